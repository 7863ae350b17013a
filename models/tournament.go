package models

import "time"

// TournamentFormat matches the tournament_format ENUM in the DB.
type TournamentFormat string

const (
	FormatSingleElimination TournamentFormat = "single_elimination"
	FormatDoubleElimination TournamentFormat = "double_elimination"
	FormatRoundRobin        TournamentFormat = "round_robin"
)

func (f TournamentFormat) Valid() bool {
	switch f {
	case FormatSingleElimination, FormatDoubleElimination, FormatRoundRobin:
		return true
	}
	return false
}

// TournamentStatus matches the tournament_status ENUM in the DB.
// Transitions out of draft are driven only by bracket generation; the
// active -> completed transition is driven only by the progression engine.
type TournamentStatus string

const (
	TournamentDraft     TournamentStatus = "draft"
	TournamentActive    TournamentStatus = "active"
	TournamentCompleted TournamentStatus = "completed"
	TournamentCancelled TournamentStatus = "cancelled"
)

type Tournament struct {
	ID           int              `json:"id" db:"id"`
	Name         string           `json:"name" db:"name"`
	SportID      int              `json:"sport_id" db:"sport_id"`
	Season       string           `json:"season" db:"season"`
	Gender       string           `json:"gender" db:"gender"`
	OrganizerID  int              `json:"organizer_id" db:"organizer_id"`
	Format       TournamentFormat `json:"format" db:"format"`
	MaxTeams     int              `json:"max_teams" db:"max_teams"`
	Status       TournamentStatus `json:"status" db:"status"`
	WinnerTeamID *int             `json:"winner_team_id,omitempty" db:"winner_team_id"`
	CreatedAt    time.Time        `json:"created_at" db:"created_at"`
	DeletedAt    *time.Time       `json:"-" db:"deleted_at"`

	// Optional linked entities, populated by services, not mapped directly.
	Teams   []TournamentTeam `json:"teams,omitempty" db:"-"`
	Rounds  []Round          `json:"rounds,omitempty" db:"-"`
	Matches []Match          `json:"matches,omitempty" db:"-"`
}
