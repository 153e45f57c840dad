package picks

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/oddsmith/picks-engine/internal/config"
	"github.com/oddsmith/picks-engine/internal/models"
)

// ScoredCandidate is a candidate with its full calculation pipeline
// output, ready for tiering.
type ScoredCandidate struct {
	Candidate  models.Candidate
	Projection models.ProjectionResult
	Edge       models.EdgeCalculation
	Kelly      models.KellyResult
	Signals    models.MarketSignals
}

// Categorizer assigns tiers, deduplicates same-event/same-subject/
// same-stat candidates by strength score, and explains the selection.
type Categorizer struct {
	cfg    config.PicksConfig
	logger *logrus.Logger
	titler cases.Caser
}

// NewCategorizer creates a categorizer.
func NewCategorizer(cfg config.PicksConfig, logger *logrus.Logger) *Categorizer {
	return &Categorizer{
		cfg:    cfg,
		logger: logger,
		titler: cases.Title(language.English),
	}
}

const longShotOdds = 200

// Categorize runs the full pass: threshold filter, sharp-money
// suppression, per-group deduplication, tiering, and per-tier ordering
// and caps. LastUpdated is left for the orchestrator to stamp.
func (c *Categorizer) Categorize(cands []ScoredCandidate) models.PicksSnapshot {
	var eligible []ScoredCandidate
	for _, sc := range cands {
		if sc.Edge.EdgePercent < c.cfg.MinEdgePercent {
			continue
		}
		if c.sharpMoneyAgainst(sc) {
			c.logger.WithFields(logrus.Fields{
				"subject": sc.Candidate.Subject,
				"side":    sc.Candidate.Side,
			}).Debug("Suppressed candidate with sharp money against it")
			continue
		}
		eligible = append(eligible, sc)
	}

	picks := c.deduplicate(eligible)

	var snapshot models.PicksSnapshot
	for _, pick := range picks {
		switch pick.Tier {
		case models.TierLock, models.TierStrong:
			snapshot.BestBets = append(snapshot.BestBets, pick)
		case models.TierLongShot:
			snapshot.LongShots = append(snapshot.LongShots, pick)
		default:
			if pick.Candidate.Kind == models.KindPlayerProp {
				snapshot.PlayerProps = append(snapshot.PlayerProps, pick)
			} else {
				snapshot.GameLines = append(snapshot.GameLines, pick)
			}
		}
	}

	snapshot.BestBets = capByEdge(snapshot.BestBets, c.cfg.BestBetsCap)
	snapshot.LongShots = capByEdge(snapshot.LongShots, c.cfg.LongShotsCap)
	snapshot.PlayerProps = capByEdge(snapshot.PlayerProps, c.cfg.PropsCap)
	snapshot.GameLines = capByEdge(snapshot.GameLines, c.cfg.GameLinesCap)

	c.logger.WithFields(logrus.Fields{
		"candidates": len(cands),
		"eligible":   len(eligible),
		"best_bets":  len(snapshot.BestBets),
		"props":      len(snapshot.PlayerProps),
		"long_shots": len(snapshot.LongShots),
		"game_lines": len(snapshot.GameLines),
	}).Info("Categorized picks")

	return snapshot
}

// sharpMoneyAgainst reports whether informed money sits on the other
// side of this candidate's line.
func (c *Categorizer) sharpMoneyAgainst(sc ScoredCandidate) bool {
	return sc.Signals.Consensus == models.ConsensusSharp &&
		sc.Signals.SharpSide != "" &&
		sc.Signals.SharpSide != sc.Candidate.Side
}

// deduplicate keeps the strongest candidate per grouping key and records
// why the alternatives lost.
func (c *Categorizer) deduplicate(cands []ScoredCandidate) []models.RankedPick {
	groups := make(map[string][]ScoredCandidate)
	var order []string
	for _, sc := range cands {
		key := sc.Candidate.GroupKey()
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], sc)
	}

	var picks []models.RankedPick
	for _, key := range order {
		group := groups[key]
		best := 0
		bestStrength := strengthScore(group[0])
		strengths := make([]float64, len(group))
		strengths[0] = bestStrength
		for i := 1; i < len(group); i++ {
			strengths[i] = strengthScore(group[i])
			if strengths[i] > bestStrength {
				best = i
				bestStrength = strengths[i]
			}
		}

		winner := group[best]
		var rejected []string
		for i, sc := range group {
			if i == best {
				continue
			}
			rejected = append(rejected, fmt.Sprintf(
				"chosen over %s %s %s (edge %.1f%%), %.1f strength advantage",
				sc.Candidate.Bookmaker, sc.Candidate.Side, formatOdds(sc.Candidate.Odds),
				sc.Edge.EdgePercent, bestStrength-strengths[i]))
		}

		picks = append(picks, c.buildPick(winner, bestStrength, rejected))
	}
	return picks
}

// strengthScore is the comparable score used inside a dedup group.
func strengthScore(sc ScoredCandidate) float64 {
	score := sc.Edge.EdgePercent*0.4 +
		(sc.Projection.Confidence5()/5)*10*0.3 +
		distanceBonus(sc)*0.3

	if sc.Edge.EdgePercent > 8 {
		score += 2
	} else if sc.Edge.EdgePercent > 5 {
		score += 1
	}
	if sc.Candidate.Odds < -longShotOdds {
		score -= 1
	}
	return score
}

// distanceBonus rewards the projection sitting meaningfully on the
// favorable side of the line, zero when it contradicts the chosen side.
func distanceBonus(sc ScoredCandidate) float64 {
	if sc.Candidate.Kind == models.KindSpread || sc.Candidate.Line <= 0 {
		// A spread line is an offset against the opponent, not a total
		// the projection can be measured against.
		return 0
	}
	dist := sc.Projection.Projection - sc.Candidate.Line
	if sc.Candidate.Side == models.SideUnder {
		dist = -dist
	}
	if dist <= 0 {
		return 0
	}
	pct := dist / sc.Candidate.Line * 100
	if pct > 10 {
		pct = 10
	}
	return pct
}

// assignTier buckets a candidate. Long-shot classification takes
// priority: a high-odds, high-variance pick is never a lock no matter
// how large its edge.
func assignTier(sc ScoredCandidate) models.Tier {
	edge := sc.Edge.EdgePercent
	conf5 := sc.Projection.Confidence5()
	variance := sc.Projection.VariancePct

	if sc.Candidate.Odds >= longShotOdds ||
		variance >= 25 ||
		(edge >= 15 && conf5 <= 3) ||
		edge >= 25 {
		return models.TierLongShot
	}
	if edge >= 8 && conf5 >= 4.5 && variance < 15 && sc.Edge.ImpliedProbability > 0.40 {
		return models.TierLock
	}
	if edge >= 5 && conf5 >= 3.5 && sc.Edge.ImpliedProbability > 0.35 {
		return models.TierStrong
	}
	return models.TierValue
}

func (c *Categorizer) buildPick(sc ScoredCandidate, strength float64, rejected []string) models.RankedPick {
	return models.RankedPick{
		ID:                   uuid.New().String(),
		Candidate:            sc.Candidate,
		Projection:           sc.Projection.Projection,
		EdgePercent:          sc.Edge.EdgePercent,
		Confidence:           sc.Projection.Confidence,
		Tier:                 assignTier(sc),
		Strength:             strength,
		Kelly:                sc.Kelly,
		Signals:              sc.Signals,
		Insight:              c.insight(sc),
		RejectedAlternatives: rejected,
		Edge:                 sc.Edge,
	}
}

// insight builds the one-line narrative shown next to a pick.
func (c *Categorizer) insight(sc ScoredCandidate) string {
	subject := c.titler.String(sc.Candidate.Subject)
	line := fmt.Sprintf("%s %s %.1f", subject, sc.Candidate.Side, sc.Candidate.Line)
	if sc.Candidate.Kind == models.KindPlayerProp {
		line += " " + string(sc.Candidate.StatType)
	}
	line += fmt.Sprintf(": projected %.1f, edge %.1f%%, confidence %.1f/5",
		sc.Projection.Projection, sc.Edge.EdgePercent, sc.Projection.Confidence5())

	if sc.Signals.SteamMove {
		line += "; steam move on this line"
	}
	if sc.Signals.ReverseLineMovement && sc.Signals.SharpSide == sc.Candidate.Side {
		line += "; sharp money agrees"
	}
	return line
}

func capByEdge(picks []models.RankedPick, limit int) []models.RankedPick {
	sort.SliceStable(picks, func(i, j int) bool {
		return picks[i].EdgePercent > picks[j].EdgePercent
	})
	if limit > 0 && len(picks) > limit {
		picks = picks[:limit]
	}
	return picks
}

func formatOdds(odds int) string {
	if odds > 0 {
		return fmt.Sprintf("+%d", odds)
	}
	return fmt.Sprintf("%d", odds)
}
