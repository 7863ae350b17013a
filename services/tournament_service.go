package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/campuscup/bracket-system/db"
	"github.com/campuscup/bracket-system/models"
	"github.com/campuscup/bracket-system/repositories"
)

type CreateTournamentInput struct {
	Name        string                  `json:"name"`
	SportID     int                     `json:"sport_id"`
	Season      string                  `json:"season"`
	Gender      string                  `json:"gender"`
	OrganizerID int                     `json:"organizer_id"`
	Format      models.TournamentFormat `json:"format"`
	MaxTeams    int                     `json:"max_teams"`
}

type TeamSeedInput struct {
	TeamID int `json:"team_id"`
	Seed   int `json:"seed"`
}

type TournamentService interface {
	Create(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error)
	Get(ctx context.Context, id int) (*models.Tournament, error)
	// SetTeams replaces the seeded roster. Only allowed while the tournament
	// is still in draft: seeds are immutable after bracket generation.
	SetTeams(ctx context.Context, tournamentID int, teams []TeamSeedInput) ([]models.TournamentTeam, error)
	Cancel(ctx context.Context, id int) (*models.Tournament, error)
	Delete(ctx context.Context, id int) error
}

type tournamentService struct {
	tx             db.Transactor
	tournamentRepo repositories.TournamentRepository
	teamRepo       repositories.TournamentTeamRepository
	roundRepo      repositories.RoundRepository
	matchRepo      repositories.MatchRepository

	archiver TournamentArchiver
	logger   *slog.Logger
}

func NewTournamentService(
	tx db.Transactor,
	tournamentRepo repositories.TournamentRepository,
	teamRepo repositories.TournamentTeamRepository,
	roundRepo repositories.RoundRepository,
	matchRepo repositories.MatchRepository,
	archiver TournamentArchiver,
	logger *slog.Logger,
) TournamentService {
	return &tournamentService{
		tx:             tx,
		tournamentRepo: tournamentRepo,
		teamRepo:       teamRepo,
		roundRepo:      roundRepo,
		matchRepo:      matchRepo,
		archiver:       archiver,
		logger:         logger,
	}
}

func (s *tournamentService) Create(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, ErrTournamentNameRequired
	}
	if !input.Format.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFormat, input.Format)
	}
	if input.MaxTeams < 2 {
		return nil, ErrInvalidCapacity
	}
	if input.SportID <= 0 || strings.TrimSpace(input.Season) == "" || strings.TrimSpace(input.Gender) == "" {
		return nil, fmt.Errorf("%w: sport, season and gender are required", ErrValidationFailed)
	}

	tournament := &models.Tournament{
		Name:        strings.TrimSpace(input.Name),
		SportID:     input.SportID,
		Season:      input.Season,
		Gender:      input.Gender,
		OrganizerID: input.OrganizerID,
		Format:      input.Format,
		MaxTeams:    input.MaxTeams,
		Status:      models.TournamentDraft,
	}
	if err := s.tournamentRepo.Create(ctx, nil, tournament); err != nil {
		return nil, err
	}
	return tournament, nil
}

func (s *tournamentService) Get(ctx context.Context, id int) (*models.Tournament, error) {
	return loadTournamentView(ctx, s.tournamentRepo, s.teamRepo, s.roundRepo, s.matchRepo, id)
}

func (s *tournamentService) SetTeams(ctx context.Context, tournamentID int, teams []TeamSeedInput) ([]models.TournamentTeam, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID)
	if err != nil {
		return nil, mapTournamentError(err)
	}
	if tournament.Status != models.TournamentDraft {
		return nil, ErrRosterLocked
	}
	if len(teams) > tournament.MaxTeams {
		return nil, fmt.Errorf("%w: %d teams, max %d", ErrValidationFailed, len(teams), tournament.MaxTeams)
	}

	// Seeds must be a contiguous 1..N permutation and team ids unique.
	seenSeed := make(map[int]bool, len(teams))
	seenTeam := make(map[int]bool, len(teams))
	roster := make([]models.TournamentTeam, 0, len(teams))
	for _, in := range teams {
		if in.Seed < 1 || in.Seed > len(teams) || seenSeed[in.Seed] {
			return nil, fmt.Errorf("%w: seed %d is out of range or duplicated", ErrValidationFailed, in.Seed)
		}
		if seenTeam[in.TeamID] {
			return nil, fmt.Errorf("%w: team %d registered twice", ErrValidationFailed, in.TeamID)
		}
		seenSeed[in.Seed] = true
		seenTeam[in.TeamID] = true
		roster = append(roster, models.TournamentTeam{TournamentID: tournamentID, TeamID: in.TeamID, Seed: in.Seed})
	}

	err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		return s.teamRepo.ReplaceForTournament(ctx, exec, tournamentID, roster)
	})
	if err != nil {
		return nil, err
	}
	return roster, nil
}

func (s *tournamentService) Cancel(ctx context.Context, id int) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapTournamentError(err)
	}
	if !isValidTournamentTransition(tournament.Status, models.TournamentCancelled) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, tournament.Status, models.TournamentCancelled)
	}

	if err := s.tournamentRepo.UpdateStatus(ctx, nil, id, tournament.Status, models.TournamentCancelled); err != nil {
		return nil, mapTournamentError(err)
	}
	tournament.Status = models.TournamentCancelled
	return tournament, nil
}

func (s *tournamentService) Delete(ctx context.Context, id int) error {
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, id)
	if err != nil {
		return mapTournamentError(err)
	}
	if err := s.tournamentRepo.SoftDelete(ctx, nil, id); err != nil {
		return mapTournamentError(err)
	}

	// A completed tournament has an archived snapshot; removing the
	// tournament removes it too, best effort.
	if s.archiver != nil && tournament.Status == models.TournamentCompleted {
		if err := s.archiver.RemoveArchive(ctx, tournament); err != nil {
			s.logger.Error("failed to remove tournament archive",
				slog.Int("tournament_id", id),
				slog.Any("error", err))
		}
	}
	return nil
}
