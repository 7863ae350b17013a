package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/campuscup/bracket-system/brackets"
	"github.com/campuscup/bracket-system/db"
	"github.com/campuscup/bracket-system/models"
	"github.com/campuscup/bracket-system/repositories"
)

type UndoService interface {
	// RevertLast undoes the most recent non-revert event of a match by
	// appending a compensating revert event and restoring the recorded prior
	// state. Only the latest event can be undone, and only once; anything
	// deeper is a conflict.
	RevertLast(ctx context.Context, matchID, actorID int) (*models.MatchEvent, error)
}

type undoService struct {
	tx             db.Transactor
	tournamentRepo repositories.TournamentRepository
	roundRepo      repositories.RoundRepository
	matchRepo      repositories.MatchRepository
	eventRepo      repositories.MatchEventRepository
	hub            *brackets.Hub
}

func NewUndoService(
	tx db.Transactor,
	tournamentRepo repositories.TournamentRepository,
	roundRepo repositories.RoundRepository,
	matchRepo repositories.MatchRepository,
	eventRepo repositories.MatchEventRepository,
	hub *brackets.Hub,
) UndoService {
	return &undoService{
		tx:             tx,
		tournamentRepo: tournamentRepo,
		roundRepo:      roundRepo,
		matchRepo:      matchRepo,
		eventRepo:      eventRepo,
		hub:            hub,
	}
}

func (s *undoService) RevertLast(ctx context.Context, matchID, actorID int) (*models.MatchEvent, error) {
	var revert *models.MatchEvent
	var restored *models.Match

	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		match, err := s.matchRepo.GetByID(ctx, exec, matchID)
		if err != nil {
			return mapMatchError(err)
		}

		event, err := s.eventRepo.LatestNonRevert(ctx, exec, matchID)
		if err != nil {
			if errors.Is(err, repositories.ErrMatchEventNotFound) {
				return ErrNoEventToRevert
			}
			return err
		}
		alreadyReverted, err := s.eventRepo.HasRevertFor(ctx, exec, event.ID)
		if err != nil {
			return err
		}
		if alreadyReverted {
			return ErrAlreadyReverted
		}
		// The latest event must also be the latest change: a revision past
		// AppliedRevision+1 means something else touched the match since.
		if match.Revision != event.AppliedRevision+1 {
			return ErrStaleRevision
		}

		if event.Kind == models.EventWinnerDeclared {
			if err := s.unwindDeclare(ctx, exec, match, event); err != nil {
				return err
			}
		}

		payload := matchSnapshot(match)
		payload.ScoreA = &event.Payload.PrevScoreA
		payload.ScoreB = &event.Payload.PrevScoreB
		payload.WinnerTeamID = event.Payload.PrevWinnerTeamID

		restored, err = s.matchRepo.UpdateStateGuarded(ctx, exec, match.ID, match.Revision,
			event.Payload.PrevScoreA, event.Payload.PrevScoreB,
			event.Payload.PrevStatus, event.Payload.PrevWinnerTeamID)
		if err != nil {
			return mapMatchError(err)
		}

		revert = &models.MatchEvent{
			MatchID:         match.ID,
			ActorID:         actorID,
			Kind:            models.EventRevert,
			Payload:         payload,
			AppliedRevision: match.Revision,
			RevertsEventID:  &event.ID,
		}
		return s.eventRepo.Append(ctx, exec, revert)
	})
	if err != nil {
		return nil, err
	}

	if s.hub != nil {
		s.hub.BroadcastMatchEvent(matchID, revert)
		s.hub.BroadcastMatchState(matchID, restored)
	}
	return revert, nil
}

// unwindDeclare reverses the side effects of a winner declaration: the round
// counter, the downstream slot fills, a cancelled bracket reset and the
// tournament completion. It refuses to run once a downstream match has
// started, because pulling a participant out from under live play is not
// recoverable.
func (s *undoService) unwindDeclare(ctx context.Context, exec repositories.SQLExecutor, match *models.Match, event *models.MatchEvent) error {
	next, err := s.downstreamIfClearable(ctx, exec, match.NextMatchID)
	if err != nil {
		return err
	}
	loserNext, err := s.downstreamIfClearable(ctx, exec, match.LoserNextMatchID)
	if err != nil {
		return err
	}

	if next != nil && match.NextSlot != nil {
		if next.GrandFinalReset && next.Status == models.MatchCancelled {
			// A straight grand final win cancelled the reset; bringing the
			// declaration back brings the reset back too.
			if _, err := s.matchRepo.UpdateStateGuarded(ctx, exec, next.ID, next.Revision,
				next.ScoreA, next.ScoreB, models.MatchScheduled, nil); err != nil {
				return mapMatchError(err)
			}
			if _, err := s.roundRepo.DecrementCompleted(ctx, exec, next.RoundID); err != nil {
				return err
			}
		}
		if err := s.matchRepo.SetSlotTeam(ctx, exec, next.ID, *match.NextSlot, nil); err != nil {
			return err
		}
	}
	if loserNext != nil && match.LoserNextSlot != nil {
		if err := s.matchRepo.SetSlotTeam(ctx, exec, loserNext.ID, *match.LoserNextSlot, nil); err != nil {
			return err
		}
	}

	if _, err := s.roundRepo.DecrementCompleted(ctx, exec, match.RoundID); err != nil {
		return err
	}

	tournament, err := s.tournamentRepo.GetByID(ctx, exec, match.TournamentID)
	if err != nil {
		return mapTournamentError(err)
	}
	if tournament.Status == models.TournamentCompleted {
		if err := s.tournamentRepo.UpdateStatus(ctx, exec, tournament.ID, models.TournamentCompleted, models.TournamentActive); err != nil {
			return mapTournamentError(err)
		}
		if err := s.tournamentRepo.SetWinner(ctx, exec, tournament.ID, nil); err != nil {
			return err
		}
	}
	return nil
}

// downstreamIfClearable loads a downstream match and verifies its slot can
// still be vacated. A cancelled bracket reset is clearable because reverting
// restores it before play.
func (s *undoService) downstreamIfClearable(ctx context.Context, exec repositories.SQLExecutor, id *int) (*models.Match, error) {
	if id == nil {
		return nil, nil
	}
	m, err := s.matchRepo.GetByID(ctx, exec, *id)
	if err != nil {
		return nil, mapMatchError(err)
	}
	switch m.Status {
	case models.MatchScheduled:
		return m, nil
	case models.MatchCancelled:
		if m.GrandFinalReset {
			return m, nil
		}
	}
	return nil, fmt.Errorf("%w: match %d already started", ErrStatusConflict, m.ID)
}
