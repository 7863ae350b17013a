package models

import "time"

// BracketSection places a round within the bracket structure. Single
// elimination and round robin only use SectionMain; double elimination adds
// the losers bracket and the grand-final section.
type BracketSection string

const (
	SectionMain   BracketSection = "main"
	SectionLosers BracketSection = "losers"
	SectionFinal  BracketSection = "final"
)

// RoundStatus is derived from the completed_matches counter and is updated in
// the same statement that moves the counter.
type RoundStatus string

const (
	RoundPending   RoundStatus = "pending"
	RoundActive    RoundStatus = "active"
	RoundCompleted RoundStatus = "completed"
)

// Round is a numbered stage of one tournament. Number is 1-based and
// continuous across bracket sections. TotalMatches counts playable matches
// only (byes never materialize) and never changes after creation.
type Round struct {
	ID               int            `json:"id" db:"id"`
	TournamentID     int            `json:"tournament_id" db:"tournament_id"`
	Number           int            `json:"number" db:"number"`
	Section          BracketSection `json:"section" db:"section"`
	TotalMatches     int            `json:"total_matches" db:"total_matches"`
	CompletedMatches int            `json:"completed_matches" db:"completed_matches"`
	Status           RoundStatus    `json:"status" db:"status"`
	CreatedAt        time.Time      `json:"created_at" db:"created_at"`
}
