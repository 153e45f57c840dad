package engine

import (
	"fmt"
	"math"

	"github.com/oddsmith/picks-engine/internal/models"
)

// blendWeights controls how much each input matters for a stat type.
type blendWeights struct {
	season  float64
	recent  float64
	matchup float64
	venue   float64
}

// Recent form dominates for scoring stats; rebounds lean harder on the
// matchup because positional size mismatches persist game to game.
var statWeights = map[models.StatType]blendWeights{
	models.StatPoints:   {season: 0.25, recent: 0.45, matchup: 0.20, venue: 0.10},
	models.StatRebounds: {season: 0.30, recent: 0.35, matchup: 0.25, venue: 0.10},
	models.StatAssists:  {season: 0.30, recent: 0.40, matchup: 0.20, venue: 0.10},
	models.StatThrees:   {season: 0.25, recent: 0.45, matchup: 0.15, venue: 0.15},
}

var defaultWeights = blendWeights{season: 0.30, recent: 0.40, matchup: 0.20, venue: 0.10}

const (
	confidenceBase = 50.0
	confidenceMin  = 10.0
	confidenceMax  = 95.0

	windPenaltyThreshold = 20.0
	windPenalty          = 0.95
)

// CalculatePlayerProjection blends the factor averages into a projection
// with a confidence score. Returns ErrInsufficientData when the season
// or recent averages are missing: the engine never substitutes a guess.
func (e *Engine) CalculatePlayerProjection(stat models.StatType, f models.CalculationFactors) (models.ProjectionResult, error) {
	if f.SeasonAvg <= 0 || f.RecentAvg <= 0 {
		return models.ProjectionResult{}, ErrInsufficientData
	}

	w, ok := statWeights[stat]
	if !ok {
		w = defaultWeights
	}

	matchup := f.MatchupAvg
	if matchup <= 0 {
		// No head-to-head history: fold its weight back into the season
		// average.
		matchup = f.SeasonAvg
	}
	venue := f.VenueAvg
	if venue <= 0 {
		venue = f.SeasonAvg
	}

	projection := f.SeasonAvg*w.season + f.RecentAvg*w.recent + matchup*w.matchup + venue*w.venue

	factors := []string{
		fmt.Sprintf("Recent form %.1f (%.0f%% weight)", f.RecentAvg, w.recent*100),
		fmt.Sprintf("Season average %.1f (%.0f%% weight)", f.SeasonAvg, w.season*100),
	}

	// Defense multiplier: opponent ratings normalized around 100, with
	// overall defense weighted over positional defense 70/30.
	if f.OppDefRating > 0 {
		positional := f.OppPosDefRating
		if positional <= 0 {
			positional = f.OppDefRating
		}
		defense := (f.OppDefRating*0.7 + positional*0.3) / 100
		projection *= defense
		if defense > 1.02 {
			factors = append(factors, fmt.Sprintf("Favorable defensive matchup (x%.2f)", defense))
		} else if defense < 0.98 {
			factors = append(factors, fmt.Sprintf("Tough defensive matchup (x%.2f)", defense))
		}
	}

	if f.Pace > 0 {
		pace := f.Pace / 100
		projection *= pace
		if pace > 1.02 {
			factors = append(factors, fmt.Sprintf("Fast pace boosts volume (x%.2f)", pace))
		}
	}

	if f.WindSpeed >= windPenaltyThreshold {
		projection *= windPenalty
		factors = append(factors, fmt.Sprintf("High wind %.0f (x%.2f)", f.WindSpeed, windPenalty))
	}

	variancePct := math.Abs(f.RecentAvg-f.SeasonAvg) / f.SeasonAvg * 100

	confidence := confidenceBase
	switch {
	case variancePct < 10:
		confidence += 20
	case variancePct < 20:
		confidence += 10
	case variancePct > 30:
		confidence -= 10
	}
	if f.MatchupAvg > f.SeasonAvg*1.10 {
		confidence += 15
		factors = append(factors, fmt.Sprintf("Strong head-to-head history %.1f", f.MatchupAvg))
	}
	confidence = math.Min(confidenceMax, math.Max(confidenceMin, confidence))

	return models.ProjectionResult{
		Projection:  round2(projection),
		Confidence:  confidence,
		VariancePct: round2(variancePct),
		Factors:     factors,
	}, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
