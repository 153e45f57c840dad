package models

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// CalculationFactors are the normalized inputs to a projection. Built
// fresh per candidate from raw market and stat data; never mutated.
type CalculationFactors struct {
	SeasonAvg        float64 `json:"season_avg"`
	RecentAvg        float64 `json:"recent_avg"`
	MatchupAvg       float64 `json:"matchup_avg"`
	VenueAvg         float64 `json:"venue_avg"`
	Pace             float64 `json:"pace"`
	OppDefRating     float64 `json:"opp_def_rating"`      // 100 = league average
	OppPosDefRating  float64 `json:"opp_pos_def_rating"`  // 100 = league average
	WindSpeed        float64 `json:"wind_speed,omitempty"`
	Temperature      float64 `json:"temperature,omitempty"`
	OpeningLine      float64 `json:"opening_line"`
	CurrentLine      float64 `json:"current_line"`
}

// ProjectionResult is the model output for one stat.
type ProjectionResult struct {
	Projection  float64  `json:"projection"`
	Confidence  float64  `json:"confidence"`   // 0-100
	VariancePct float64  `json:"variance_pct"` // recent-vs-season variance, % of season average
	Factors     []string `json:"factors"`      // human-readable contributions, strongest first
}

// Confidence5 maps the 0-100 confidence onto the 5-point scale used for
// tier thresholds.
func (p ProjectionResult) Confidence5() float64 {
	return p.Confidence / 20
}

// EdgeCalculation is the value assessment of a candidate against its
// market price.
type EdgeCalculation struct {
	EdgePercent        float64 `json:"edge_percent"`
	TrueProbability    float64 `json:"true_probability"`
	ImpliedProbability float64 `json:"implied_probability"`
	ExpectedValue      float64 `json:"expected_value"` // per unit staked
}

// KellyResult is the recommended stake for a candidate.
type KellyResult struct {
	Fraction     float64         `json:"fraction"`      // of bankroll, after risk scaling
	FullFraction float64         `json:"full_fraction"` // unscaled Kelly fraction
	Stake        decimal.Decimal `json:"stake"`
}

// Consensus summarizes which side of the market the informed money is on.
type Consensus string

const (
	ConsensusSharp   Consensus = "sharp"
	ConsensusPublic  Consensus = "public"
	ConsensusNeutral Consensus = "neutral"
)

// MarketSignals are the line-movement flags consumed by categorization
// and narrative generation.
type MarketSignals struct {
	ReverseLineMovement bool      `json:"reverse_line_movement"`
	SteamMove           bool      `json:"steam_move"`
	Consensus           Consensus `json:"consensus"`
	SharpSide           Side      `json:"sharp_side,omitempty"`
	LineDelta           float64   `json:"line_delta"`
}

// Tier is the qualitative bucket assigned to a ranked pick.
type Tier string

const (
	TierLock     Tier = "lock"
	TierStrong   Tier = "strong"
	TierValue    Tier = "value"
	TierLongShot Tier = "long_shot"
)

// RankedPick is the final categorized output consumed by the
// presentation layer. Read-only once emitted.
type RankedPick struct {
	ID                   string          `json:"id"`
	Candidate            Candidate       `json:"candidate"`
	Projection           float64         `json:"projection"`
	EdgePercent          float64         `json:"edge_percent"`
	Confidence           float64         `json:"confidence"`
	Tier                 Tier            `json:"tier"`
	Strength             float64         `json:"strength"`
	Kelly                KellyResult     `json:"kelly"`
	Signals              MarketSignals   `json:"signals"`
	Insight              string          `json:"insight"`
	RejectedAlternatives []string        `json:"rejected_alternatives,omitempty"`
	Edge                 EdgeCalculation `json:"edge"`
}

// PicksSnapshot is the stable, ready-to-render result set returned to
// the presentation layer.
type PicksSnapshot struct {
	BestBets    []RankedPick `json:"best_bets"`
	PlayerProps []RankedPick `json:"player_props"`
	LongShots   []RankedPick `json:"long_shots"`
	GameLines   []RankedPick `json:"game_lines"`
	LastUpdated time.Time    `json:"last_updated"`
	Stale       bool         `json:"stale"`
}

func formatLine(line float64) string {
	return strconv.FormatFloat(line, 'f', -1, 64)
}
