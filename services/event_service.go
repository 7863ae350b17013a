package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/campuscup/bracket-system/brackets"
	"github.com/campuscup/bracket-system/db"
	"github.com/campuscup/bracket-system/models"
	"github.com/campuscup/bracket-system/repositories"
)

const (
	defaultEventPageSize = 50
	maxEventPageSize     = 200
)

type RecordEventInput struct {
	Kind   models.MatchEventKind `json:"kind"`
	ScoreA *int                  `json:"score_a,omitempty"`
	ScoreB *int                  `json:"score_b,omitempty"`
	Note   *string               `json:"note,omitempty"`
	// ExpectedRevision guards against acting on a stale view of the match.
	ExpectedRevision *int `json:"expected_revision,omitempty"`
}

type RecordEventResult struct {
	Event *models.MatchEvent `json:"event"`
	Match *models.Match      `json:"match"`
}

type MatchEventService interface {
	// Record appends a score update or incident to the match log and applies
	// its effect to the match under the revision guard, returning both the
	// appended event and the updated match. The first event moves a
	// scheduled match to live.
	Record(ctx context.Context, matchID, actorID int, input RecordEventInput) (*RecordEventResult, error)
	// List returns the match log newest first.
	List(ctx context.Context, matchID, limit, offset int) ([]models.MatchEvent, error)
}

type matchEventService struct {
	tx        db.Transactor
	matchRepo repositories.MatchRepository
	eventRepo repositories.MatchEventRepository
	hub       *brackets.Hub
}

func NewMatchEventService(
	tx db.Transactor,
	matchRepo repositories.MatchRepository,
	eventRepo repositories.MatchEventRepository,
	hub *brackets.Hub,
) MatchEventService {
	return &matchEventService{tx: tx, matchRepo: matchRepo, eventRepo: eventRepo, hub: hub}
}

func (s *matchEventService) Record(ctx context.Context, matchID, actorID int, input RecordEventInput) (*RecordEventResult, error) {
	switch input.Kind {
	case models.EventScoreUpdate, models.EventIncident:
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidEventKind, input.Kind)
	}

	match, err := s.matchRepo.GetByID(ctx, nil, matchID)
	if err != nil {
		return nil, mapMatchError(err)
	}
	if match.Status != models.MatchScheduled && match.Status != models.MatchLive {
		return nil, ErrMatchNotOpen
	}
	if !match.Playable() {
		return nil, ErrMatchNotPlayable
	}
	if input.ExpectedRevision != nil && *input.ExpectedRevision != match.Revision {
		return nil, ErrStaleRevision
	}

	scoreA, scoreB := match.ScoreA, match.ScoreB
	if input.Kind == models.EventScoreUpdate {
		if input.ScoreA == nil || input.ScoreB == nil {
			return nil, ErrScoreRequired
		}
		if *input.ScoreA < 0 || *input.ScoreB < 0 {
			return nil, fmt.Errorf("%w: scores cannot be negative", ErrValidationFailed)
		}
		scoreA, scoreB = *input.ScoreA, *input.ScoreB
	} else if input.Note == nil || strings.TrimSpace(*input.Note) == "" {
		return nil, fmt.Errorf("%w: incident requires a note", ErrValidationFailed)
	}

	payload := matchSnapshot(match)
	payload.ScoreA, payload.ScoreB = input.ScoreA, input.ScoreB
	payload.Note = input.Note
	event := &models.MatchEvent{
		MatchID:         match.ID,
		ActorID:         actorID,
		Kind:            input.Kind,
		Payload:         payload,
		AppliedRevision: match.Revision,
	}

	var updated *models.Match
	err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		// Any recorded activity on a scheduled match marks it live.
		m, err := s.matchRepo.UpdateStateGuarded(ctx, exec, match.ID, match.Revision,
			scoreA, scoreB, models.MatchLive, match.WinnerTeamID)
		if err != nil {
			return mapMatchError(err)
		}
		updated = m
		return s.eventRepo.Append(ctx, exec, event)
	})
	if err != nil {
		return nil, err
	}

	if s.hub != nil {
		s.hub.BroadcastMatchEvent(match.ID, event)
		s.hub.BroadcastMatchState(match.ID, updated)
	}
	return &RecordEventResult{Event: event, Match: updated}, nil
}

func (s *matchEventService) List(ctx context.Context, matchID, limit, offset int) ([]models.MatchEvent, error) {
	if _, err := s.matchRepo.GetByID(ctx, nil, matchID); err != nil {
		return nil, mapMatchError(err)
	}
	if limit <= 0 {
		limit = defaultEventPageSize
	}
	if limit > maxEventPageSize {
		limit = maxEventPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return s.eventRepo.ListByMatch(ctx, nil, matchID, limit, offset)
}
