package models

// StatAverages are the per-stat averages a projection blends.
type StatAverages struct {
	Season  float64 `json:"season"`
	Recent  float64 `json:"recent"`
	Matchup float64 `json:"matchup"`
	Venue   float64 `json:"venue"`
}

// PlayerStats is the normalized statistical context for one player in
// one event, as parsed from the upstream stats feed.
type PlayerStats struct {
	Player          string                    `json:"player"`
	EventID         string                    `json:"event_id"`
	Lines           map[StatType]StatAverages `json:"lines"`
	Pace            float64                   `json:"pace"`
	OppDefRating    float64                   `json:"opp_def_rating"`
	OppPosDefRating float64                   `json:"opp_pos_def_rating"`
	WindSpeed       float64                   `json:"wind_speed"`
	Temperature     float64                   `json:"temperature"`
}

// LineHistory is the movement record for one market line plus the
// public-betting split against it.
type LineHistory struct {
	EventID   string      `json:"event_id"`
	Points    []LinePoint `json:"points"`
	PublicPct float64     `json:"public_pct"` // share of public bets on the over side, 0-100
}
