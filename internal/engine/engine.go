package engine

import (
	"errors"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/oddsmith/picks-engine/internal/config"
)

// ErrInsufficientData is returned when the statistical inputs a
// calculation needs are missing. Callers skip the candidate rather than
// fabricate a number.
var ErrInsufficientData = errors.New("insufficient data for calculation")

// ErrUnknownKind is returned when a candidate carries a kind the engine
// does not handle.
var ErrUnknownKind = errors.New("unknown candidate kind")

// Engine holds the deterministic calculation pipeline: factors in,
// projection, edge, stake, and market signals out. Same inputs always
// produce the same outputs.
type Engine struct {
	cfg      config.EngineConfig
	bankroll decimal.Decimal
	logger   *logrus.Logger
}

// New creates an engine.
func New(cfg config.EngineConfig, logger *logrus.Logger) *Engine {
	return &Engine{
		cfg:      cfg,
		bankroll: decimal.NewFromFloat(cfg.Bankroll),
		logger:   logger,
	}
}
