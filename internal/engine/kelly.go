package engine

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/oddsmith/picks-engine/internal/models"
)

// CalculateKellySize turns an edge into a recommended stake fraction and
// amount. The raw Kelly fraction is capped at the configured maximum and
// scaled down further when the edge is thin: half below 5% edge, three
// quarters below 10%.
func (e *Engine) CalculateKellySize(edge models.EdgeCalculation, odds int) models.KellyResult {
	b := DecimalOdds(odds) - 1
	p := edge.TrueProbability
	q := 1 - p

	full := (b*p - q) / b
	// Degenerate odds make b infinite and the fraction NaN; a zero
	// stake must come out, never a panic in the decimal conversion.
	if math.IsNaN(full) || math.IsInf(full, 0) {
		return models.KellyResult{Stake: decimal.Zero}
	}
	if full <= 0 || edge.TrueProbability <= edge.ImpliedProbability {
		return models.KellyResult{Stake: decimal.Zero}
	}

	fraction := full
	if fraction > e.cfg.MaxKellyFraction {
		fraction = e.cfg.MaxKellyFraction
	}

	switch {
	case edge.EdgePercent < 5:
		fraction *= 0.5
	case edge.EdgePercent < 10:
		fraction *= 0.75
	}

	stake := e.bankroll.Mul(decimal.NewFromFloat(fraction)).Round(2)

	return models.KellyResult{
		Fraction:     fraction,
		FullFraction: full,
		Stake:        stake,
	}
}
