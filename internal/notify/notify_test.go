package notify

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/oddsmith/picks-engine/internal/config"
	"github.com/oddsmith/picks-engine/internal/models"
)

func TestNewService_DisabledWithoutToken(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	s := NewService(config.NotifierConfig{ChatID: 42}, logger)
	assert.Nil(t, s.bot)

	// Must be a safe no-op.
	s.NotifyLockPicks(context.Background(), []models.RankedPick{{ID: "p1"}})
}

func TestFormatLockMessage(t *testing.T) {
	picks := []models.RankedPick{
		{
			Candidate: models.Candidate{
				Subject:  "Nikola Jokic",
				Side:     models.SideOver,
				Line:     26.5,
				StatType: models.StatPoints,
			},
			EdgePercent: 8.2,
			Confidence:  92,
			Kelly:       models.KellyResult{Stake: decimal.NewFromFloat(82.50)},
			Insight:     "Nikola Jokic over 26.5 points: projected 28.5, edge 8.2%, confidence 4.6/5",
		},
	}

	msg := formatLockMessage(picks)
	assert.Contains(t, msg, "1 New Lock Pick")
	assert.Contains(t, msg, "Nikola Jokic over 26.5")
	assert.Contains(t, msg, "Edge: 8.2%")
	assert.Contains(t, msg, "82.50 units")
}
