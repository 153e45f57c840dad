package market

import "time"

// Provider wire formats. Optional numeric fields are pointers so the
// adapter can tell "absent" from zero and skip incomplete records.

type eventPayload struct {
	ID           string             `json:"id"`
	SportKey     string             `json:"sport_key"`
	HomeTeam     string             `json:"home_team"`
	AwayTeam     string             `json:"away_team"`
	CommenceTime time.Time          `json:"commence_time"`
	Bookmakers   []bookmakerPayload `json:"bookmakers"`
}

type bookmakerPayload struct {
	Key     string          `json:"key"`
	Title   string          `json:"title"`
	Markets []marketPayload `json:"markets"`
}

type marketPayload struct {
	Key      string           `json:"key"`
	Outcomes []outcomePayload `json:"outcomes"`
}

type outcomePayload struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"` // player name on prop markets
	Price       *int     `json:"price,omitempty"`       // American odds
	Point       *float64 `json:"point,omitempty"`
}

type playerStatsPayload struct {
	Player          string                     `json:"player"`
	EventID         string                     `json:"event_id"`
	Stats           map[string]statLinePayload `json:"stats"`
	Pace            float64                    `json:"pace"`
	OppDefRating    float64                    `json:"opp_def_rating"`
	OppPosDefRating float64                    `json:"opp_pos_def_rating"`
	WindSpeed       float64                    `json:"wind_speed"`
	Temperature     float64                    `json:"temperature"`
}

type statLinePayload struct {
	SeasonAvg  float64 `json:"season_avg"`
	RecentAvg  float64 `json:"recent_avg"`
	MatchupAvg float64 `json:"matchup_avg"`
	VenueAvg   float64 `json:"venue_avg"`
}

type lineHistoryPayload struct {
	EventID   string             `json:"event_id"`
	PublicPct float64            `json:"public_pct"`
	Points    []linePointPayload `json:"points"`
}

type linePointPayload struct {
	Line      *float64  `json:"line"`
	Timestamp time.Time `json:"timestamp"`
}
