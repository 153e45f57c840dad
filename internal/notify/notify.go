package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"

	"github.com/oddsmith/picks-engine/internal/config"
	"github.com/oddsmith/picks-engine/internal/models"
)

// Service delivers lock-tier pick alerts over Telegram. With no bot
// token configured it becomes a no-op, so the pipeline can always hold
// a notifier.
type Service struct {
	bot    *bot.Bot
	chatID int64
	logger *logrus.Logger
}

// NewService creates a notification service. An empty token disables
// delivery without erroring.
func NewService(cfg config.NotifierConfig, logger *logrus.Logger) *Service {
	s := &Service{
		chatID: cfg.ChatID,
		logger: logger,
	}
	if cfg.BotToken == "" {
		logger.Info("Telegram notifications disabled: no bot token configured")
		return s
	}

	b, err := bot.New(cfg.BotToken)
	if err != nil {
		logger.WithError(err).Warn("Failed to initialize Telegram bot, notifications disabled")
		return s
	}
	s.bot = b
	return s
}

// NotifyLockPicks sends one message summarizing the newly surfaced
// locks. Delivery failures are logged, never propagated: alerting is
// best-effort and must not disturb the pipeline.
func (s *Service) NotifyLockPicks(ctx context.Context, picks []models.RankedPick) {
	if s.bot == nil || s.chatID == 0 || len(picks) == 0 {
		return
	}

	_, err := s.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    s.chatID,
		Text:      formatLockMessage(picks),
		ParseMode: tgmodels.ParseModeMarkdown,
	})
	if err != nil {
		s.logger.WithError(err).Warn("Failed to send lock pick notification")
		return
	}

	s.logger.WithField("picks", len(picks)).Info("Sent lock pick notification")
}

func formatLockMessage(picks []models.RankedPick) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🔒 *%d New Lock Pick", len(picks)))
	if len(picks) > 1 {
		sb.WriteString("s")
	}
	sb.WriteString("*\n\n")

	for _, pick := range picks {
		line := fmt.Sprintf("*%s %s %.1f*", pick.Candidate.Subject, pick.Candidate.Side, pick.Candidate.Line)
		if pick.Candidate.StatType != "" {
			line += fmt.Sprintf(" %s", pick.Candidate.StatType)
		}
		sb.WriteString(line)
		sb.WriteString(fmt.Sprintf("\nEdge: %.1f%% | Confidence: %.0f | Stake: %s units\n",
			pick.EdgePercent, pick.Confidence, pick.Kelly.Stake.StringFixed(2)))
		if pick.Insight != "" {
			sb.WriteString(pick.Insight)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}
