package market

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/oddsmith/picks-engine/internal/models"
)

// Adapter parses raw provider JSON into domain records. Malformed or
// incomplete entries (missing price, missing point where the market
// needs one) are skipped without aborting the batch.
type Adapter struct {
	logger *logrus.Logger
}

// NewAdapter creates an adapter.
func NewAdapter(logger *logrus.Logger) *Adapter {
	return &Adapter{logger: logger}
}

var propStatTypes = map[string]models.StatType{
	"player_points":   models.StatPoints,
	"player_rebounds": models.StatRebounds,
	"player_assists":  models.StatAssists,
	"player_threes":   models.StatThrees,
}

// ParseGameData turns an odds response into aggregated game data with
// one candidate per usable outcome.
func (a *Adapter) ParseGameData(raw []byte) ([]models.GameData, error) {
	var events []eventPayload
	if err := json.Unmarshal(raw, &events); err != nil {
		return nil, fmt.Errorf("failed to decode odds payload: %w", err)
	}

	games := make([]models.GameData, 0, len(events))
	for _, ev := range events {
		game := models.GameData{
			EventID:      ev.ID,
			Sport:        ev.SportKey,
			HomeTeam:     ev.HomeTeam,
			AwayTeam:     ev.AwayTeam,
			CommenceTime: ev.CommenceTime,
		}
		for _, book := range ev.Bookmakers {
			for _, mkt := range book.Markets {
				for _, out := range mkt.Outcomes {
					cand, ok := a.buildCandidate(ev, book.Key, mkt.Key, out)
					if !ok {
						continue
					}
					game.Candidates = append(game.Candidates, cand)
				}
			}
		}
		games = append(games, game)
	}
	return games, nil
}

// buildCandidate maps one outcome onto a tagged candidate. Returns false
// when the record is unusable for its market kind.
func (a *Adapter) buildCandidate(ev eventPayload, bookmaker, marketKey string, out outcomePayload) (models.Candidate, bool) {
	if out.Price == nil {
		a.skip(ev.ID, marketKey, "missing price")
		return models.Candidate{}, false
	}
	// American quotes are always at least 100 in magnitude; anything in
	// (-100, 100) is a provider glitch, not a price.
	if *out.Price > -100 && *out.Price < 100 {
		a.skip(ev.ID, marketKey, fmt.Sprintf("invalid price %d", *out.Price))
		return models.Candidate{}, false
	}

	cand := models.Candidate{
		Sport:        ev.SportKey,
		EventID:      ev.ID,
		Odds:         *out.Price,
		Bookmaker:    bookmaker,
		CommenceTime: ev.CommenceTime,
	}

	if stat, ok := propStatTypes[marketKey]; ok {
		if out.Point == nil || out.Description == "" {
			a.skip(ev.ID, marketKey, "incomplete prop outcome")
			return models.Candidate{}, false
		}
		side, ok := parseSide(out.Name)
		if !ok {
			a.skip(ev.ID, marketKey, "unknown prop side "+out.Name)
			return models.Candidate{}, false
		}
		cand.Kind = models.KindPlayerProp
		cand.Subject = out.Description
		cand.StatType = stat
		cand.Line = *out.Point
		cand.Side = side
		return cand, true
	}

	switch marketKey {
	case "spreads":
		if out.Point == nil || out.Name == "" {
			a.skip(ev.ID, marketKey, "incomplete spread outcome")
			return models.Candidate{}, false
		}
		cand.Kind = models.KindSpread
		cand.Subject = out.Name
		cand.Line = *out.Point
		cand.Side = models.SideOver // covering the spread
		return cand, true
	case "totals":
		if out.Point == nil {
			a.skip(ev.ID, marketKey, "incomplete total outcome")
			return models.Candidate{}, false
		}
		side, ok := parseSide(out.Name)
		if !ok {
			a.skip(ev.ID, marketKey, "unknown total side "+out.Name)
			return models.Candidate{}, false
		}
		cand.Kind = models.KindTotal
		cand.Subject = ev.AwayTeam + " @ " + ev.HomeTeam
		cand.Line = *out.Point
		cand.Side = side
		return cand, true
	default:
		a.skip(ev.ID, marketKey, "unsupported market")
		return models.Candidate{}, false
	}
}

// ParsePlayerStats decodes the stats feed keyed by player name.
func (a *Adapter) ParsePlayerStats(raw []byte) (map[string]models.PlayerStats, error) {
	var payload []playerStatsPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode stats payload: %w", err)
	}

	stats := make(map[string]models.PlayerStats, len(payload))
	for _, p := range payload {
		if p.Player == "" {
			continue
		}
		ps := models.PlayerStats{
			Player:          p.Player,
			EventID:         p.EventID,
			Lines:           make(map[models.StatType]models.StatAverages, len(p.Stats)),
			Pace:            p.Pace,
			OppDefRating:    p.OppDefRating,
			OppPosDefRating: p.OppPosDefRating,
			WindSpeed:       p.WindSpeed,
			Temperature:     p.Temperature,
		}
		for key, line := range p.Stats {
			stat, ok := propStatTypes["player_"+key]
			if !ok {
				continue
			}
			ps.Lines[stat] = models.StatAverages{
				Season:  line.SeasonAvg,
				Recent:  line.RecentAvg,
				Matchup: line.MatchupAvg,
				Venue:   line.VenueAvg,
			}
		}
		stats[p.Player] = ps
	}
	return stats, nil
}

// ParseLineHistory decodes a movement response, dropping points without
// a line value.
func (a *Adapter) ParseLineHistory(raw []byte) (models.LineHistory, error) {
	var payload lineHistoryPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return models.LineHistory{}, fmt.Errorf("failed to decode line history payload: %w", err)
	}

	history := models.LineHistory{
		EventID:   payload.EventID,
		PublicPct: payload.PublicPct,
	}
	for _, p := range payload.Points {
		if p.Line == nil {
			a.skip(payload.EventID, "movement", "missing line value")
			continue
		}
		history.Points = append(history.Points, models.LinePoint{
			Line:      *p.Line,
			Timestamp: p.Timestamp,
		})
	}
	return history, nil
}

func parseSide(name string) (models.Side, bool) {
	switch strings.ToLower(name) {
	case "over":
		return models.SideOver, true
	case "under":
		return models.SideUnder, true
	default:
		return "", false
	}
}

func (a *Adapter) skip(eventID, marketKey, reason string) {
	a.logger.WithFields(logrus.Fields{
		"event_id": eventID,
		"market":   marketKey,
		"reason":   reason,
	}).Debug("Skipped malformed market record")
}
