package models

import "time"

// TournamentTeam is a team's registration in one tournament. Seeds are a
// contiguous 1..N permutation per tournament and immutable once the bracket
// has been generated; BracketPosition is assigned by the generator.
type TournamentTeam struct {
	ID              int       `json:"id" db:"id"`
	TournamentID    int       `json:"tournament_id" db:"tournament_id"`
	TeamID          int       `json:"team_id" db:"team_id"`
	Seed            int       `json:"seed" db:"seed"`
	BracketPosition *int      `json:"bracket_position,omitempty" db:"bracket_position"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}
