package engine

import (
	"math"

	"github.com/oddsmith/picks-engine/internal/models"
)

// projectionSpread is the assumed relative spread of outcomes around the
// projection, used by the logistic CDF approximation.
const projectionSpread = 0.15

// CalculateEdge compares the model's win probability against the
// market-implied probability for a candidate's side of the line.
func (e *Engine) CalculateEdge(projection, line float64, side models.Side, odds int) (models.EdgeCalculation, error) {
	if projection <= 0 || line <= 0 {
		return models.EdgeCalculation{}, ErrInsufficientData
	}

	trueProb := trueProbability(projection, line, side)
	impliedProb := ImpliedProbability(odds)
	payout := payoutMultiplier(odds)

	return models.EdgeCalculation{
		EdgePercent:        round2((trueProb - impliedProb) * 100),
		TrueProbability:    trueProb,
		ImpliedProbability: impliedProb,
		ExpectedValue:      round2(trueProb*payout - (1 - trueProb)),
	}, nil
}

// trueProbability approximates P(outcome clears the line) with a
// logistic fit to the normal CDF: z scaled by 1.7 tracks the Gaussian
// closely across the usable range.
func trueProbability(projection, line float64, side models.Side) float64 {
	z := (line - projection) / (projection * projectionSpread)
	pOver := 1 / (1 + math.Exp(1.7*z))
	if side == models.SideUnder {
		return 1 - pOver
	}
	return pOver
}

// ImpliedProbability converts American odds into the market's implied
// win probability.
func ImpliedProbability(odds int) float64 {
	if odds > 0 {
		return 100 / (float64(odds) + 100)
	}
	abs := math.Abs(float64(odds))
	return abs / (abs + 100)
}

// payoutMultiplier is the profit per unit staked at the given odds.
func payoutMultiplier(odds int) float64 {
	if odds > 0 {
		return float64(odds) / 100
	}
	return 100 / math.Abs(float64(odds))
}

// DecimalOdds converts American odds to the decimal convention.
func DecimalOdds(odds int) float64 {
	return payoutMultiplier(odds) + 1
}
