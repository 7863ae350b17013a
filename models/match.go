package models

import "time"

type MatchStatus string

const (
	MatchScheduled MatchStatus = "scheduled"
	MatchLive      MatchStatus = "live"
	MatchCompleted MatchStatus = "completed"
	MatchCancelled MatchStatus = "cancelled"
)

// SlotTake says which side of a source match feeds a participant slot.
type SlotTake string

const (
	TakeWinner SlotTake = "winner"
	TakeLoser  SlotTake = "loser"
)

// Match is a fixture inside one round. Each participant slot holds either a
// concrete team or a placeholder reference to a source match (SourceAUID /
// SourceBUID with the corresponding take). Revision is a monotonic counter
// incremented on every applied change and used for optimistic concurrency
// and undo.
type Match struct {
	ID           int    `json:"id" db:"id"`
	TournamentID int    `json:"tournament_id" db:"tournament_id"`
	RoundID      int    `json:"round_id" db:"round_id"`
	BracketUID   string `json:"bracket_uid" db:"bracket_uid"`
	OrderInRound int    `json:"order_in_round" db:"order_in_round"`

	TeamAID     *int      `json:"team_a_id,omitempty" db:"team_a_id"`
	TeamBID     *int      `json:"team_b_id,omitempty" db:"team_b_id"`
	SourceAUID  *string   `json:"source_a_uid,omitempty" db:"source_a_uid"`
	SourceBUID  *string   `json:"source_b_uid,omitempty" db:"source_b_uid"`
	SourceATake *SlotTake `json:"source_a_take,omitempty" db:"source_a_take"`
	SourceBTake *SlotTake `json:"source_b_take,omitempty" db:"source_b_take"`

	ScoreA       int         `json:"score_a" db:"score_a"`
	ScoreB       int         `json:"score_b" db:"score_b"`
	Status       MatchStatus `json:"status" db:"status"`
	WinnerTeamID *int        `json:"winner_team_id,omitempty" db:"winner_team_id"`
	Revision     int         `json:"revision" db:"revision"`

	// Progression linkage, written during bracket persistence.
	NextMatchID      *int `json:"next_match_id,omitempty" db:"next_match_id"`
	NextSlot         *int `json:"next_slot,omitempty" db:"next_slot"`
	LoserNextMatchID *int `json:"loser_next_match_id,omitempty" db:"loser_next_match_id"`
	LoserNextSlot    *int `json:"loser_next_slot,omitempty" db:"loser_next_slot"`

	GrandFinal      bool `json:"grand_final,omitempty" db:"grand_final"`
	GrandFinalReset bool `json:"grand_final_reset,omitempty" db:"grand_final_reset"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Playable reports whether both participant slots are resolved to concrete
// teams.
func (m *Match) Playable() bool {
	return m.TeamAID != nil && m.TeamBID != nil
}

// HasParticipant reports whether teamID occupies one of the two slots.
func (m *Match) HasParticipant(teamID int) bool {
	return (m.TeamAID != nil && *m.TeamAID == teamID) ||
		(m.TeamBID != nil && *m.TeamBID == teamID)
}

// Opponent returns the other slot's team for a given participant, or nil if
// that slot is still a placeholder.
func (m *Match) Opponent(teamID int) *int {
	if m.TeamAID != nil && *m.TeamAID == teamID {
		return m.TeamBID
	}
	if m.TeamBID != nil && *m.TeamBID == teamID {
		return m.TeamAID
	}
	return nil
}
