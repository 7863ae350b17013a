package models

import "time"

// LeaderboardScope keys one standings snapshot: either a single tournament or
// a whole (season, sport, gender) slice.
type LeaderboardScope struct {
	TournamentID *int    `json:"tournament_id,omitempty"`
	Season       *string `json:"season,omitempty"`
	SportID      int     `json:"sport_id"`
	Gender       string  `json:"gender"`
}

// ScoringRules configures the points awarded per result. Elimination formats
// contribute win/loss only, so Draw never applies there.
type ScoringRules struct {
	Win  int `json:"win"`
	Draw int `json:"draw"`
	Loss int `json:"loss"`
}

// DefaultScoring is the standard 3/1/0 league scoring.
var DefaultScoring = ScoringRules{Win: 3, Draw: 1, Loss: 0}

// LeaderboardEntry is one derived (scope, team) standings row. The stored set
// is replaced wholesale per recompute, never patched incrementally.
type LeaderboardEntry struct {
	ID           int       `json:"id" db:"id"`
	TournamentID *int      `json:"tournament_id,omitempty" db:"tournament_id"`
	Season       *string   `json:"season,omitempty" db:"season"`
	SportID      int       `json:"sport_id" db:"sport_id"`
	Gender       string    `json:"gender" db:"gender"`
	TeamID       int       `json:"team_id" db:"team_id"`
	Points       int       `json:"points" db:"points"`
	Played       int       `json:"played" db:"played"`
	Wins         int       `json:"wins" db:"wins"`
	Draws        int       `json:"draws" db:"draws"`
	Losses       int       `json:"losses" db:"losses"`
	ScoreFor     int       `json:"score_for" db:"score_for"`
	ScoreAgainst int       `json:"score_against" db:"score_against"`
	ScoreDiff    int       `json:"score_diff" db:"score_diff"`
	Rank         int       `json:"rank" db:"rank"`
	ComputedAt   time.Time `json:"computed_at" db:"computed_at"`
}
