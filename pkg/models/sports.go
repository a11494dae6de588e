package models

import "time"

// TeamRef identifies one side of a game.
type TeamRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Code string `json:"code,omitempty"`
	Logo string `json:"logo,omitempty"`
}

// QuarterScore holds one quarter's points for both sides.
type QuarterScore struct {
	Home int `json:"home"`
	Away int `json:"away"`
}

// GameScore holds the final and per-quarter scores of a game.
type GameScore struct {
	Home     int            `json:"home"`
	Away     int            `json:"away"`
	Quarters []QuarterScore `json:"quarters,omitempty"`
}

// NormalizedTeam is the common team shape produced by a Transformer.
// A failed transform carries Error instead of data; it never aborts a batch.
type NormalizedTeam struct {
	BasicInfo   map[string]any `json:"basic_info,omitempty"`
	LeagueInfo  map[string]any `json:"league_info,omitempty"`
	SeasonStats map[string]any `json:"season_stats,omitempty"`
	Error       string         `json:"error,omitempty"`
}

// NormalizedGame is the common game shape produced by a Transformer.
type NormalizedGame struct {
	ID       string    `json:"id,omitempty"`
	Date     string    `json:"date,omitempty"`
	HomeTeam TeamRef   `json:"home_team"`
	AwayTeam TeamRef   `json:"away_team"`
	Score    GameScore `json:"score"`
	Status   string    `json:"status,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// NormalizedPlayer is the common player shape produced by a Transformer.
type NormalizedPlayer struct {
	BasicInfo   map[string]any   `json:"basic_info,omitempty"`
	SeasonStats map[string]any   `json:"season_stats,omitempty"`
	RecentGames []NormalizedGame `json:"recent_games,omitempty"`
	Error       string           `json:"error,omitempty"`
}

// TransformedSportData is the normalized bundle handed to the synthesis
// step. Keys of Teams and Players are the names the gatherer fetched by.
type TransformedSportData struct {
	Sport      SportType                   `json:"sport_type"`
	Teams      map[string]NormalizedTeam   `json:"team_data,omitempty"`
	Games      []NormalizedGame            `json:"game_data,omitempty"`
	Players    map[string]NormalizedPlayer `json:"player_data,omitempty"`
	Confidence float64                     `json:"confidence_score"`
	Timestamp  time.Time                   `json:"timestamp"`
}
