package models

import "time"

// MatchEventKind matches the match_event_kind ENUM in the DB.
type MatchEventKind string

const (
	EventScoreUpdate    MatchEventKind = "score_update"
	EventIncident       MatchEventKind = "incident"
	EventWinnerDeclared MatchEventKind = "winner_declared"
	EventRevert         MatchEventKind = "revert"
)

// MatchEvent is one append-only entry in a match's change log. Rows are never
// mutated or deleted; an undo appends a compensating revert event referencing
// the original via RevertsEventID. AppliedRevision is the match revision the
// change was applied against, so after the event the match sits at
// AppliedRevision+1. The serial ID doubles as the insertion sequence number
// breaking created_at ties.
type MatchEvent struct {
	ID              int64          `json:"id" db:"id"`
	MatchID         int            `json:"match_id" db:"match_id"`
	ActorID         int            `json:"actor_id" db:"actor_id"`
	Kind            MatchEventKind `json:"kind" db:"kind"`
	Payload         EventPayload   `json:"payload" db:"payload"`
	AppliedRevision int            `json:"applied_revision" db:"applied_revision"`
	RevertsEventID  *int64         `json:"reverts_event_id,omitempty" db:"reverts_event_id"`
	CreatedAt       time.Time      `json:"created_at" db:"created_at"`
}

// EventPayload carries the field deltas applied by an event together with
// enough prior state to reverse it. Stored as JSONB.
type EventPayload struct {
	// Prior match state, recorded on every mutating event.
	PrevScoreA       int         `json:"prev_score_a"`
	PrevScoreB       int         `json:"prev_score_b"`
	PrevStatus       MatchStatus `json:"prev_status"`
	PrevWinnerTeamID *int        `json:"prev_winner_team_id,omitempty"`

	// New values, present depending on kind.
	ScoreA       *int    `json:"score_a,omitempty"`
	ScoreB       *int    `json:"score_b,omitempty"`
	WinnerTeamID *int    `json:"winner_team_id,omitempty"`
	Note         *string `json:"note,omitempty"`
}
