package models

import "time"

// CandidateKind identifies which market a candidate belongs to.
type CandidateKind string

const (
	KindPlayerProp CandidateKind = "player_prop"
	KindSpread     CandidateKind = "spread"
	KindTotal      CandidateKind = "total"
)

// Side is the direction a candidate resolves against its line.
type Side string

const (
	SideOver  Side = "over"
	SideUnder Side = "under"
)

// Opposite returns the other side of the same line.
func (s Side) Opposite() Side {
	if s == SideOver {
		return SideUnder
	}
	return SideOver
}

// StatType identifies the statistic a player prop is written against.
type StatType string

const (
	StatPoints   StatType = "points"
	StatRebounds StatType = "rebounds"
	StatAssists  StatType = "assists"
	StatThrees   StatType = "threes"
)

// Candidate is a single betable proposition sourced from the market data
// gateway. Only the fields valid for its Kind are populated: Subject and
// StatType for player props, Subject (team) for spreads and totals.
type Candidate struct {
	Kind         CandidateKind `json:"kind"`
	Sport        string        `json:"sport"`
	EventID      string        `json:"event_id"`
	Subject      string        `json:"subject"`
	StatType     StatType      `json:"stat_type,omitempty"`
	Line         float64       `json:"line"`
	Side         Side          `json:"side"`
	Odds         int           `json:"odds"`
	Bookmaker    string        `json:"bookmaker"`
	CommenceTime time.Time     `json:"commence_time"`
}

// GroupKey is the deduplication key: candidates sharing it compete for a
// single ranked pick.
func (c Candidate) GroupKey() string {
	return c.Subject + "|" + string(c.StatType) + "|" + formatLine(c.Line)
}

// GameData is the aggregated market view for one event.
type GameData struct {
	EventID      string      `json:"event_id"`
	Sport        string      `json:"sport"`
	HomeTeam     string      `json:"home_team"`
	AwayTeam     string      `json:"away_team"`
	CommenceTime time.Time   `json:"commence_time"`
	Candidates   []Candidate `json:"candidates"`
}

// LinePoint is one observation of a market line over time.
type LinePoint struct {
	Line      float64   `json:"line"`
	Timestamp time.Time `json:"timestamp"`
}
