package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/campuscup/bracket-system/brackets"
	"github.com/campuscup/bracket-system/db"
	"github.com/campuscup/bracket-system/models"
	"github.com/campuscup/bracket-system/repositories"
)

// TournamentArchiver persists a finished tournament's final state (bracket
// and standings) to object storage and returns the archive location.
type TournamentArchiver interface {
	ArchiveTournament(ctx context.Context, tournament *models.Tournament, standings []models.LeaderboardEntry) (string, error)
	RemoveArchive(ctx context.Context, tournament *models.Tournament) error
}

type DeclareWinnerInput struct {
	// WinnerTeamID zero declares a draw, which only round robin accepts.
	WinnerTeamID int `json:"winner_team_id"`
	ScoreA       int `json:"score_a"`
	ScoreB       int `json:"score_b"`
	// ExpectedRevision guards against acting on a stale view of the match.
	// When nil the stored revision at read time is used.
	ExpectedRevision *int `json:"expected_revision,omitempty"`
}

type DeclareWinnerResult struct {
	Match               *models.Match `json:"match"`
	RoundCompleted      bool          `json:"round_completed"`
	TournamentCompleted bool          `json:"tournament_completed"`
	ChampionTeamID      *int          `json:"champion_team_id,omitempty"`
}

type ProgressionService interface {
	// DeclareWinner completes a match, logs the change, advances the round
	// counter and propagates participants into downstream slots, all in one
	// transaction. The revision guard makes a double declare a conflict, not
	// a double count.
	DeclareWinner(ctx context.Context, matchID, actorID int, input DeclareWinnerInput) (*DeclareWinnerResult, error)
}

type progressionService struct {
	tx             db.Transactor
	tournamentRepo repositories.TournamentRepository
	teamRepo       repositories.TournamentTeamRepository
	roundRepo      repositories.RoundRepository
	matchRepo      repositories.MatchRepository
	eventRepo      repositories.MatchEventRepository

	hub      *brackets.Hub
	archiver TournamentArchiver
	logger   *slog.Logger
}

func NewProgressionService(
	tx db.Transactor,
	tournamentRepo repositories.TournamentRepository,
	teamRepo repositories.TournamentTeamRepository,
	roundRepo repositories.RoundRepository,
	matchRepo repositories.MatchRepository,
	eventRepo repositories.MatchEventRepository,
	hub *brackets.Hub,
	archiver TournamentArchiver,
	logger *slog.Logger,
) ProgressionService {
	return &progressionService{
		tx:             tx,
		tournamentRepo: tournamentRepo,
		teamRepo:       teamRepo,
		roundRepo:      roundRepo,
		matchRepo:      matchRepo,
		eventRepo:      eventRepo,
		hub:            hub,
		archiver:       archiver,
		logger:         logger,
	}
}

func (s *progressionService) DeclareWinner(ctx context.Context, matchID, actorID int, input DeclareWinnerInput) (*DeclareWinnerResult, error) {
	match, err := s.matchRepo.GetByID(ctx, nil, matchID)
	if err != nil {
		return nil, mapMatchError(err)
	}
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, match.TournamentID)
	if err != nil {
		return nil, mapTournamentError(err)
	}

	if tournament.Status != models.TournamentActive {
		return nil, ErrTournamentNotActive
	}
	if match.Status != models.MatchScheduled && match.Status != models.MatchLive {
		return nil, ErrMatchNotOpen
	}
	if !match.Playable() {
		return nil, ErrMatchNotPlayable
	}
	if input.ScoreA < 0 || input.ScoreB < 0 {
		return nil, fmt.Errorf("%w: scores cannot be negative", ErrValidationFailed)
	}

	var winnerID *int
	if input.WinnerTeamID != 0 {
		if !match.HasParticipant(input.WinnerTeamID) {
			return nil, ErrInvalidParticipant
		}
		winner := input.WinnerTeamID
		winnerID = &winner
	} else if tournament.Format != models.FormatRoundRobin {
		return nil, fmt.Errorf("%w: elimination matches cannot end in a draw", ErrValidationFailed)
	}

	if input.ExpectedRevision != nil && *input.ExpectedRevision != match.Revision {
		return nil, ErrStaleRevision
	}

	result := &DeclareWinnerResult{}
	var event *models.MatchEvent
	err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		// The pre-transaction read is a fast reject; the match revision guard
		// does not cover the tournament row, so a cancel racing this declare
		// has to be caught here.
		tournament, err = s.tournamentRepo.GetByID(ctx, exec, match.TournamentID)
		if err != nil {
			return mapTournamentError(err)
		}
		if tournament.Status != models.TournamentActive {
			return ErrTournamentNotActive
		}

		updated, err := s.matchRepo.UpdateStateGuarded(ctx, exec, match.ID, match.Revision,
			input.ScoreA, input.ScoreB, models.MatchCompleted, winnerID)
		if err != nil {
			return mapMatchError(err)
		}

		payload := matchSnapshot(match)
		payload.ScoreA, payload.ScoreB = &input.ScoreA, &input.ScoreB
		payload.WinnerTeamID = winnerID
		event = &models.MatchEvent{
			MatchID:         match.ID,
			ActorID:         actorID,
			Kind:            models.EventWinnerDeclared,
			Payload:         payload,
			AppliedRevision: match.Revision,
		}
		if err := s.eventRepo.Append(ctx, exec, event); err != nil {
			return err
		}

		round, err := s.roundRepo.IncrementCompleted(ctx, exec, updated.RoundID)
		if err != nil {
			return err
		}
		result.RoundCompleted = round.Status == models.RoundCompleted

		if err := s.propagate(ctx, exec, updated, winnerID); err != nil {
			return err
		}
		if err := s.maybeCancelReset(ctx, exec, updated, winnerID); err != nil {
			return err
		}

		open, err := s.roundRepo.CountNotCompleted(ctx, exec, tournament.ID)
		if err != nil {
			return err
		}
		if open == 0 {
			champion, err := s.resolveChampion(ctx, exec, tournament, winnerID)
			if err != nil {
				return err
			}
			if err := s.tournamentRepo.UpdateStatus(ctx, exec, tournament.ID, models.TournamentActive, models.TournamentCompleted); err != nil {
				return mapTournamentError(err)
			}
			if err := s.tournamentRepo.SetWinner(ctx, exec, tournament.ID, champion); err != nil {
				return err
			}
			result.TournamentCompleted = true
			result.ChampionTeamID = champion
		}

		result.Match = updated
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, tournament, event, result)
	return result, nil
}

// propagate copies the winner and loser into the downstream slots this match
// feeds. Slots are written inside the declaring transaction, so a bracket is
// never observable with a completed match and an unfilled next slot.
func (s *progressionService) propagate(ctx context.Context, exec repositories.SQLExecutor, match *models.Match, winnerID *int) error {
	if winnerID == nil {
		return nil
	}
	if match.NextMatchID != nil && match.NextSlot != nil {
		if err := s.matchRepo.SetSlotTeam(ctx, exec, *match.NextMatchID, *match.NextSlot, winnerID); err != nil {
			return err
		}
	}
	if match.LoserNextMatchID != nil && match.LoserNextSlot != nil {
		loser := match.Opponent(*winnerID)
		if loser == nil {
			return fmt.Errorf("%w: completed match %d has no loser to drop", ErrInvariantViolation, match.ID)
		}
		if err := s.matchRepo.SetSlotTeam(ctx, exec, *match.LoserNextMatchID, *match.LoserNextSlot, loser); err != nil {
			return err
		}
	}
	return nil
}

// maybeCancelReset closes the bracket reset match when the upper-bracket
// champion wins the first grand final. The reset only gets played after a
// first loss in the final, so a straight win cancels it and completes its
// round through the same counter path as a played match.
func (s *progressionService) maybeCancelReset(ctx context.Context, exec repositories.SQLExecutor, match *models.Match, winnerID *int) error {
	if !match.GrandFinal || winnerID == nil || match.TeamAID == nil || *winnerID != *match.TeamAID {
		return nil
	}
	if match.NextMatchID == nil {
		return nil
	}

	reset, err := s.matchRepo.GetByID(ctx, exec, *match.NextMatchID)
	if err != nil {
		return err
	}
	if !reset.GrandFinalReset || reset.Status != models.MatchScheduled {
		return nil
	}
	if _, err := s.matchRepo.UpdateStateGuarded(ctx, exec, reset.ID, reset.Revision,
		reset.ScoreA, reset.ScoreB, models.MatchCancelled, nil); err != nil {
		return mapMatchError(err)
	}
	_, err = s.roundRepo.IncrementCompleted(ctx, exec, reset.RoundID)
	return err
}

// resolveChampion picks the tournament winner once every round is completed.
// Elimination formats crown the winner of the final played match; round robin
// crowns the standings leader.
func (s *progressionService) resolveChampion(ctx context.Context, exec repositories.SQLExecutor, tournament *models.Tournament, lastWinner *int) (*int, error) {
	if tournament.Format != models.FormatRoundRobin {
		return lastWinner, nil
	}

	completed := models.MatchCompleted
	matches, err := s.matchRepo.ListByTournament(ctx, exec, tournament.ID, nil, &completed)
	if err != nil {
		return nil, err
	}
	scope := models.LeaderboardScope{
		TournamentID: &tournament.ID,
		SportID:      tournament.SportID,
		Gender:       tournament.Gender,
	}
	standings := buildStandings(scope, matches, models.DefaultScoring, time.Now().UTC())
	if len(standings) == 0 {
		return nil, fmt.Errorf("%w: completed round robin produced no standings", ErrInvariantViolation)
	}
	champion := standings[0].TeamID
	return &champion, nil
}

func (s *progressionService) notify(ctx context.Context, tournament *models.Tournament, event *models.MatchEvent, result *DeclareWinnerResult) {
	if s.hub != nil && event != nil {
		s.hub.BroadcastMatchEvent(event.MatchID, event)
		s.hub.BroadcastMatchState(event.MatchID, result.Match)
	}

	if !result.TournamentCompleted || (s.hub == nil && s.archiver == nil) {
		return
	}

	// The archived snapshot is the full final state, not the bare tournament
	// row: bracket (teams, rounds, matches) plus the final standings.
	view, err := loadTournamentView(ctx, s.tournamentRepo, s.teamRepo, s.roundRepo, s.matchRepo, tournament.ID)
	if err != nil {
		s.logger.Error("failed to load completed tournament for archival",
			slog.Int("tournament_id", tournament.ID),
			slog.Any("error", err))
		return
	}
	completed := make([]models.Match, 0, len(view.Matches))
	for _, m := range view.Matches {
		if m.Status == models.MatchCompleted {
			completed = append(completed, m)
		}
	}
	scope := models.LeaderboardScope{
		TournamentID: &view.ID,
		Season:       &view.Season,
		SportID:      view.SportID,
		Gender:       view.Gender,
	}
	standings := buildStandings(scope, completed, models.DefaultScoring, time.Now().UTC())

	if s.hub != nil && event != nil {
		s.hub.BroadcastTournamentCompleted(event.MatchID, view)
	}

	if s.archiver == nil {
		return
	}
	location, err := s.archiver.ArchiveTournament(ctx, view, standings)
	if err != nil {
		s.logger.Error("failed to archive completed tournament",
			slog.Int("tournament_id", view.ID),
			slog.Any("error", err))
		return
	}
	s.logger.Info("archived completed tournament",
		slog.Int("tournament_id", view.ID),
		slog.String("location", location))
}
