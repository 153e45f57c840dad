package engine

import (
	"math"
	"time"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/trend"
	"github.com/sirupsen/logrus"

	"github.com/oddsmith/picks-engine/internal/models"
)

const (
	steamThreshold  = 1.0 // full point within the steam window
	steamWindow     = time.Hour
	rlmThreshold    = 0.5
	publicHeavyPct  = 60.0
	publicLopsided  = 65.0
	smoothingPeriod = 3
)

// AnalyzeMarketMovement derives sharp-money signals from a line history
// and the public-betting split. PublicPct is the share of public bets on
// the over side.
func (e *Engine) AnalyzeMarketMovement(history models.LineHistory) models.MarketSignals {
	signals := models.MarketSignals{Consensus: models.ConsensusNeutral}
	pts := history.Points
	if len(pts) < 2 {
		return signals
	}

	opening := pts[0].Line
	current := pts[len(pts)-1].Line
	signals.LineDelta = round2(current - opening)

	trendDelta := e.smoothedDelta(pts)

	// Steam move: a full point of movement inside any one-hour window.
	for i := 0; i < len(pts) && !signals.SteamMove; i++ {
		for j := i + 1; j < len(pts); j++ {
			if pts[j].Timestamp.Sub(pts[i].Timestamp) > steamWindow {
				break
			}
			if math.Abs(pts[j].Line-pts[i].Line) >= steamThreshold {
				signals.SteamMove = true
				break
			}
		}
	}

	// Reverse line movement: the line walks away from the side the
	// public is loading up on.
	publicOnOver := history.PublicPct >= publicHeavyPct
	publicOnUnder := history.PublicPct <= 100-publicHeavyPct
	switch {
	case publicOnOver && trendDelta <= -rlmThreshold:
		signals.ReverseLineMovement = true
		signals.SharpSide = models.SideUnder
	case publicOnUnder && trendDelta >= rlmThreshold:
		signals.ReverseLineMovement = true
		signals.SharpSide = models.SideOver
	}

	switch {
	case signals.ReverseLineMovement:
		signals.Consensus = models.ConsensusSharp
	case signals.SteamMove:
		signals.Consensus = models.ConsensusSharp
		if signals.SharpSide == "" {
			if current > opening {
				signals.SharpSide = models.SideOver
			} else {
				signals.SharpSide = models.SideUnder
			}
		}
	case history.PublicPct >= publicLopsided || history.PublicPct <= 100-publicLopsided:
		signals.Consensus = models.ConsensusPublic
	}

	e.logger.WithFields(logrus.Fields{
		"event_id":   history.EventID,
		"line_delta": signals.LineDelta,
		"steam":      signals.SteamMove,
		"rlm":        signals.ReverseLineMovement,
		"consensus":  signals.Consensus,
	}).Debug("Analyzed market movement")

	return signals
}

// smoothedDelta measures net movement over an SMA of the line series so
// a single bounced tick does not register as reverse movement.
func (e *Engine) smoothedDelta(pts []models.LinePoint) float64 {
	if len(pts) <= smoothingPeriod {
		return pts[len(pts)-1].Line - pts[0].Line
	}

	lines := make([]float64, len(pts))
	for i, p := range pts {
		lines[i] = p.Line
	}

	sma := trend.NewSmaWithPeriod[float64](smoothingPeriod)
	smoothed := helper.ChanToSlice(sma.Compute(helper.SliceToChan(lines)))
	if len(smoothed) < 2 {
		return pts[len(pts)-1].Line - pts[0].Line
	}
	return smoothed[len(smoothed)-1] - smoothed[0]
}
