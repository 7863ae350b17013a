package services

import "errors"

// Shared error taxonomy surfaced to callers. Every sentinel belongs to one of
// five kinds (see Kind): validation, not_found, conflict,
// invariant_violation, unauthorized. The core never retries on conflict; the
// caller must re-read state first.
var (
	// Not found
	ErrNotFound           = errors.New("requested resource not found")
	ErrTournamentNotFound = errors.New("tournament not found")
	ErrMatchNotFound      = errors.New("match not found")
	ErrNoEventToRevert    = errors.New("match has no event to revert")

	// Validation / business rules, rejected before any write
	ErrValidationFailed        = errors.New("validation failed")
	ErrTournamentNameRequired  = errors.New("tournament name is required")
	ErrInvalidFormat           = errors.New("invalid tournament format")
	ErrInvalidCapacity         = errors.New("tournament max teams must be at least 2")
	ErrInvalidScope            = errors.New("leaderboard scope requires a tournament or a season")
	ErrInvalidEventKind        = errors.New("event kind cannot be recorded directly")
	ErrScoreRequired           = errors.New("score update requires both scores")
	ErrRosterLocked            = errors.New("team roster cannot change after bracket generation")
	ErrBracketAlreadyGenerated = errors.New("bracket can only be generated while the tournament is in draft")
	ErrTournamentNotActive     = errors.New("tournament is not active")
	ErrInvalidParticipant      = errors.New("declared winner is not a participant of this match")
	ErrMatchNotPlayable        = errors.New("match participants are not resolved yet")
	ErrInvalidStatusTransition = errors.New("invalid tournament status transition")

	// Conflicts: stale state, concurrent writers, double undo
	ErrStaleRevision   = errors.New("stale match revision, re-read before retrying")
	ErrMatchNotOpen    = errors.New("match is already completed or cancelled")
	ErrAlreadyReverted = errors.New("event has already been reverted")
	ErrStatusConflict  = errors.New("a concurrent status change won")

	// Invariant violations are data-integrity bugs, not expected user errors.
	ErrInvariantViolation = errors.New("operation would violate a data invariant")

	// Unauthorized: the capability precondition failed upstream.
	ErrForbiddenOperation = errors.New("operation not allowed for the current actor")
)

// ErrorKind is the taxonomy bucket of a service error.
type ErrorKind string

const (
	KindValidation         ErrorKind = "validation"
	KindNotFound           ErrorKind = "not_found"
	KindConflict           ErrorKind = "conflict"
	KindInvariantViolation ErrorKind = "invariant_violation"
	KindUnauthorized       ErrorKind = "unauthorized"
	KindInternal           ErrorKind = "internal"
)

// Kind classifies an error into the shared taxonomy. Unknown errors are
// internal.
func Kind(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrTournamentNotFound),
		errors.Is(err, ErrMatchNotFound),
		errors.Is(err, ErrNoEventToRevert):
		return KindNotFound

	case errors.Is(err, ErrValidationFailed),
		errors.Is(err, ErrTournamentNameRequired),
		errors.Is(err, ErrInvalidFormat),
		errors.Is(err, ErrInvalidCapacity),
		errors.Is(err, ErrInvalidScope),
		errors.Is(err, ErrInvalidEventKind),
		errors.Is(err, ErrScoreRequired),
		errors.Is(err, ErrRosterLocked),
		errors.Is(err, ErrBracketAlreadyGenerated),
		errors.Is(err, ErrTournamentNotActive),
		errors.Is(err, ErrInvalidParticipant),
		errors.Is(err, ErrMatchNotPlayable),
		errors.Is(err, ErrInvalidStatusTransition):
		return KindValidation

	case errors.Is(err, ErrStaleRevision),
		errors.Is(err, ErrMatchNotOpen),
		errors.Is(err, ErrAlreadyReverted),
		errors.Is(err, ErrStatusConflict):
		return KindConflict

	case errors.Is(err, ErrInvariantViolation):
		return KindInvariantViolation

	case errors.Is(err, ErrForbiddenOperation):
		return KindUnauthorized

	default:
		return KindInternal
	}
}
