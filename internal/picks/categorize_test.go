package picks

import (
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oddsmith/picks-engine/internal/config"
	"github.com/oddsmith/picks-engine/internal/engine"
	"github.com/oddsmith/picks-engine/internal/models"
)

func testPicksConfig() config.PicksConfig {
	return config.PicksConfig{
		MinEdgePercent: 2.0,
		BestBetsCap:    6,
		LongShotsCap:   5,
		PropsCap:       12,
		GameLinesCap:   12,
	}
}

func newTestCategorizer(t *testing.T, cfg config.PicksConfig) *Categorizer {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewCategorizer(cfg, logger)
}

func propCandidate(subject, bookmaker string, line float64, odds int) models.Candidate {
	return models.Candidate{
		Kind:      models.KindPlayerProp,
		Sport:     "basketball_nba",
		EventID:   "evt-1",
		Subject:   subject,
		StatType:  models.StatPoints,
		Line:      line,
		Side:      models.SideOver,
		Odds:      odds,
		Bookmaker: bookmaker,
	}
}

// scoredProp builds a pipeline output with the projection sitting 5%
// above the line, the favorable side for the over.
func scoredProp(cand models.Candidate, edge, confidence, variance float64) ScoredCandidate {
	return ScoredCandidate{
		Candidate: cand,
		Projection: models.ProjectionResult{
			Projection:  cand.Line * 1.05,
			Confidence:  confidence,
			VariancePct: variance,
		},
		Edge: models.EdgeCalculation{
			EdgePercent:        edge,
			ImpliedProbability: engine.ImpliedProbability(cand.Odds),
		},
		Signals: models.MarketSignals{Consensus: models.ConsensusNeutral},
	}
}

func TestAssignTier_LongShotBeforeEverything(t *testing.T) {
	tests := []struct {
		name       string
		odds       int
		edge       float64
		confidence float64
		variance   float64
	}{
		{"high odds override a huge edge", 320, 22.8, 40, 12},
		{"variance at the threshold", -110, 9.0, 92, 25},
		{"big edge with weak confidence", -110, 16.0, 55, 10},
		{"implausibly large edge", -110, 26.0, 92, 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := scoredProp(propCandidate("lebron james", "draftkings", 25.5, tt.odds), tt.edge, tt.confidence, tt.variance)
			assert.Equal(t, models.TierLongShot, assignTier(sc))
		})
	}
}

func TestAssignTier_Lock(t *testing.T) {
	sc := scoredProp(propCandidate("nikola jokic", "draftkings", 27.0, -110), 8.2, 92, 8)
	assert.Equal(t, models.TierLock, assignTier(sc))
}

func TestAssignTier_Strong(t *testing.T) {
	sc := scoredProp(propCandidate("nikola jokic", "draftkings", 27.0, -105), 6.0, 75, 12)
	assert.Equal(t, models.TierStrong, assignTier(sc))
}

func TestAssignTier_Value(t *testing.T) {
	// Edge clears the threshold but confidence does not qualify for a
	// higher tier.
	sc := scoredProp(propCandidate("nikola jokic", "draftkings", 27.0, -110), 3.0, 60, 12)
	assert.Equal(t, models.TierValue, assignTier(sc))
}

func TestAssignTier_LockNeedsFavorableImpliedProbability(t *testing.T) {
	// Same edge and confidence, but the long price pushes implied
	// probability below the lock floor.
	sc := scoredProp(propCandidate("nikola jokic", "draftkings", 27.0, 180), 8.2, 92, 8)
	assert.NotEqual(t, models.TierLock, assignTier(sc))
}

func TestCategorize_FiltersBelowMinimumEdge(t *testing.T) {
	c := newTestCategorizer(t, testPicksConfig())

	snapshot := c.Categorize([]ScoredCandidate{
		scoredProp(propCandidate("lebron james", "draftkings", 25.5, -110), 1.5, 70, 10),
	})

	assert.Empty(t, snapshot.BestBets)
	assert.Empty(t, snapshot.PlayerProps)
	assert.Empty(t, snapshot.LongShots)
	assert.Empty(t, snapshot.GameLines)
}

func TestCategorize_SharpMoneyAgainstSuppresses(t *testing.T) {
	c := newTestCategorizer(t, testPicksConfig())

	sc := scoredProp(propCandidate("lebron james", "draftkings", 25.5, -110), 6.0, 80, 10)
	sc.Signals = models.MarketSignals{
		Consensus: models.ConsensusSharp,
		SharpSide: models.SideUnder,
	}

	snapshot := c.Categorize([]ScoredCandidate{sc})
	assert.Empty(t, snapshot.BestBets)
	assert.Empty(t, snapshot.PlayerProps)
}

func TestCategorize_SharpMoneyAgreeingSurvives(t *testing.T) {
	c := newTestCategorizer(t, testPicksConfig())

	sc := scoredProp(propCandidate("lebron james", "draftkings", 25.5, -110), 3.0, 60, 10)
	sc.Signals = models.MarketSignals{
		Consensus: models.ConsensusSharp,
		SharpSide: models.SideOver,
	}

	snapshot := c.Categorize([]ScoredCandidate{sc})
	require.Len(t, snapshot.PlayerProps, 1)
}

func TestCategorize_DeduplicatesByGroupKey(t *testing.T) {
	c := newTestCategorizer(t, testPicksConfig())

	weaker := scoredProp(propCandidate("lebron james", "draftkings", 25.5, -110), 6.0, 75, 10)
	stronger := scoredProp(propCandidate("lebron james", "fanduel", 25.5, 100), 7.5, 75, 10)

	snapshot := c.Categorize([]ScoredCandidate{weaker, stronger})

	// Both land in best bets territory, but only one pick survives per
	// (subject, stat, line) group.
	require.Len(t, snapshot.BestBets, 1)
	assert.Empty(t, snapshot.PlayerProps)

	pick := snapshot.BestBets[0]
	assert.Equal(t, "fanduel", pick.Candidate.Bookmaker)
	assert.GreaterOrEqual(t, pick.Strength, strengthScore(weaker))

	require.Len(t, pick.RejectedAlternatives, 1)
	assert.Contains(t, pick.RejectedAlternatives[0], "draftkings")
	assert.Contains(t, pick.RejectedAlternatives[0], "-110")
	assert.Contains(t, pick.RejectedAlternatives[0], "strength advantage")
}

func TestCategorize_DifferentLinesAreNotDuplicates(t *testing.T) {
	c := newTestCategorizer(t, testPicksConfig())

	snapshot := c.Categorize([]ScoredCandidate{
		scoredProp(propCandidate("lebron james", "draftkings", 25.5, -110), 3.0, 60, 10),
		scoredProp(propCandidate("lebron james", "fanduel", 26.5, -110), 3.0, 60, 10),
	})

	assert.Len(t, snapshot.PlayerProps, 2)
}

func TestCategorize_BucketsByTierAndKind(t *testing.T) {
	c := newTestCategorizer(t, testPicksConfig())

	lock := scoredProp(propCandidate("nikola jokic", "draftkings", 27.0, -110), 9.0, 92, 8)
	longShot := scoredProp(propCandidate("role player", "draftkings", 8.5, 320), 12.0, 45, 18)
	valueProp := scoredProp(propCandidate("luka doncic", "draftkings", 30.5, -110), 3.0, 60, 12)

	spread := scoredProp(models.Candidate{
		Kind:      models.KindSpread,
		Sport:     "basketball_nba",
		EventID:   "evt-2",
		Subject:   "boston celtics",
		Line:      -4.5,
		Side:      models.SideOver,
		Odds:      -110,
		Bookmaker: "draftkings",
	}, 3.5, 60, 12)
	// Spreads earn no distance bonus; the tier path under test only
	// needs edge and confidence.
	spread.Projection.Projection = 114.45

	snapshot := c.Categorize([]ScoredCandidate{lock, longShot, valueProp, spread})

	require.Len(t, snapshot.BestBets, 1)
	assert.Equal(t, models.TierLock, snapshot.BestBets[0].Tier)
	require.Len(t, snapshot.LongShots, 1)
	assert.Equal(t, models.TierLongShot, snapshot.LongShots[0].Tier)
	require.Len(t, snapshot.PlayerProps, 1)
	assert.Equal(t, "luka doncic", snapshot.PlayerProps[0].Candidate.Subject)
	require.Len(t, snapshot.GameLines, 1)
	assert.Equal(t, "boston celtics", snapshot.GameLines[0].Candidate.Subject)
}

func TestCategorize_CapsAndOrdersByEdge(t *testing.T) {
	cfg := testPicksConfig()
	cfg.PropsCap = 2
	c := newTestCategorizer(t, cfg)

	snapshot := c.Categorize([]ScoredCandidate{
		scoredProp(propCandidate("player a", "draftkings", 20.5, -110), 2.5, 60, 12),
		scoredProp(propCandidate("player b", "draftkings", 21.5, -110), 4.5, 60, 12),
		scoredProp(propCandidate("player c", "draftkings", 22.5, -110), 3.5, 60, 12),
	})

	require.Len(t, snapshot.PlayerProps, 2)
	assert.Equal(t, "player b", snapshot.PlayerProps[0].Candidate.Subject)
	assert.Equal(t, "player c", snapshot.PlayerProps[1].Candidate.Subject)
	assert.Greater(t, snapshot.PlayerProps[0].EdgePercent, snapshot.PlayerProps[1].EdgePercent)
}

func TestStrengthScore_PrefersLargerEdge(t *testing.T) {
	low := scoredProp(propCandidate("lebron james", "draftkings", 25.5, -110), 4.0, 75, 10)
	high := scoredProp(propCandidate("lebron james", "fanduel", 25.5, -110), 9.0, 75, 10)

	assert.Greater(t, strengthScore(high), strengthScore(low))
}

func TestStrengthScore_PenalizesHeavyFavoritePricing(t *testing.T) {
	fair := scoredProp(propCandidate("lebron james", "draftkings", 25.5, -110), 6.0, 75, 10)
	juiced := scoredProp(propCandidate("lebron james", "fanduel", 25.5, -250), 6.0, 75, 10)

	assert.InDelta(t, strengthScore(fair)-1, strengthScore(juiced), 0.001)
}

func TestDistanceBonus_ZeroWhenProjectionContradictsSide(t *testing.T) {
	sc := scoredProp(propCandidate("lebron james", "draftkings", 25.5, -110), 6.0, 75, 10)
	sc.Projection.Projection = 24.0 // below the line on an over

	assert.Zero(t, distanceBonus(sc))
}

func TestDistanceBonus_ZeroForSpreads(t *testing.T) {
	sc := scoredProp(propCandidate("boston celtics", "draftkings", 4.5, -110), 6.0, 75, 10)
	sc.Candidate.Kind = models.KindSpread
	sc.Candidate.StatType = ""
	sc.Projection.Projection = 114.45 // projected points, not a distance from the offset

	assert.Zero(t, distanceBonus(sc))
}

func TestDistanceBonus_CappedAtTenPercent(t *testing.T) {
	sc := scoredProp(propCandidate("lebron james", "draftkings", 20.0, -110), 6.0, 75, 10)
	sc.Projection.Projection = 26.0 // 30% above the line

	assert.InDelta(t, 10, distanceBonus(sc), 0.001)
}

func TestInsight_MentionsProjectionAndSharpAgreement(t *testing.T) {
	c := newTestCategorizer(t, testPicksConfig())

	sc := scoredProp(propCandidate("lebron james", "draftkings", 25.5, -110), 6.0, 80, 10)
	sc.Signals = models.MarketSignals{
		ReverseLineMovement: true,
		SteamMove:           true,
		Consensus:           models.ConsensusSharp,
		SharpSide:           models.SideOver,
	}

	insight := c.insight(sc)
	assert.True(t, strings.HasPrefix(insight, "Lebron James"), insight)
	assert.Contains(t, insight, "edge 6.0%")
	assert.Contains(t, insight, "steam move")
	assert.Contains(t, insight, "sharp money agrees")
}
