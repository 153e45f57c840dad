package logging

import (
	"strings"

	"github.com/sirupsen/logrus"
)

// NewLogger builds the process-wide logrus logger. Production gets JSON
// output for log shipping; everything else keeps the readable text
// formatter.
func NewLogger(level, environment string) *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(ParseLevel(level))

	if strings.ToLower(environment) == "production" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	return logger
}

// ParseLevel converts a string level to logrus.Level, defaulting to info.
func ParseLevel(level string) logrus.Level {
	switch strings.ToLower(level) {
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}
