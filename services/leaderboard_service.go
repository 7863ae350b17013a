package services

import (
	"context"
	"time"

	"github.com/campuscup/bracket-system/db"
	"github.com/campuscup/bracket-system/models"
	"github.com/campuscup/bracket-system/repositories"
)

type LeaderboardService interface {
	// Recompute rebuilds the standings snapshot for a scope from completed
	// matches. The fold is deterministic, so recomputing over unchanged
	// matches is idempotent.
	Recompute(ctx context.Context, scope models.LeaderboardScope, rules *models.ScoringRules) ([]models.LeaderboardEntry, error)
	Standings(ctx context.Context, scope models.LeaderboardScope) ([]models.LeaderboardEntry, error)
}

type leaderboardService struct {
	tx              db.Transactor
	tournamentRepo  repositories.TournamentRepository
	matchRepo       repositories.MatchRepository
	leaderboardRepo repositories.LeaderboardRepository
}

func NewLeaderboardService(
	tx db.Transactor,
	tournamentRepo repositories.TournamentRepository,
	matchRepo repositories.MatchRepository,
	leaderboardRepo repositories.LeaderboardRepository,
) LeaderboardService {
	return &leaderboardService{
		tx:              tx,
		tournamentRepo:  tournamentRepo,
		matchRepo:       matchRepo,
		leaderboardRepo: leaderboardRepo,
	}
}

func (s *leaderboardService) Recompute(ctx context.Context, scope models.LeaderboardScope, rules *models.ScoringRules) ([]models.LeaderboardEntry, error) {
	scope, err := s.resolveScope(ctx, scope)
	if err != nil {
		return nil, err
	}
	scoring := models.DefaultScoring
	if rules != nil {
		scoring = *rules
	}

	matches, err := s.scopedCompletedMatches(ctx, scope)
	if err != nil {
		return nil, err
	}
	entries := buildStandings(scope, matches, scoring, time.Now().UTC())

	err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		return s.leaderboardRepo.ReplaceForScope(ctx, exec, scope, entries)
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *leaderboardService) Standings(ctx context.Context, scope models.LeaderboardScope) ([]models.LeaderboardEntry, error) {
	scope, err := s.resolveScope(ctx, scope)
	if err != nil {
		return nil, err
	}
	return s.leaderboardRepo.ListByScope(ctx, nil, scope)
}

// resolveScope validates the scope and, for tournament scope, derives sport,
// gender and season from the tournament row so a mismatched query can never
// read or store a snapshot under a wrong key.
func (s *leaderboardService) resolveScope(ctx context.Context, scope models.LeaderboardScope) (models.LeaderboardScope, error) {
	if scope.TournamentID == nil && scope.Season == nil {
		return scope, ErrInvalidScope
	}
	if scope.TournamentID != nil {
		tournament, err := s.tournamentRepo.GetByID(ctx, nil, *scope.TournamentID)
		if err != nil {
			return scope, mapTournamentError(err)
		}
		scope.SportID = tournament.SportID
		scope.Gender = tournament.Gender
		scope.Season = &tournament.Season
	}
	return scope, nil
}

func (s *leaderboardService) scopedCompletedMatches(ctx context.Context, scope models.LeaderboardScope) ([]models.Match, error) {
	if scope.TournamentID != nil {
		return s.matchRepo.ListCompletedByTournaments(ctx, nil, []int{*scope.TournamentID})
	}

	tournaments, err := s.tournamentRepo.ListByScope(ctx, nil, *scope.Season, scope.SportID, scope.Gender)
	if err != nil {
		return nil, err
	}
	if len(tournaments) == 0 {
		return nil, nil
	}
	ids := make([]int, 0, len(tournaments))
	for _, t := range tournaments {
		ids = append(ids, t.ID)
	}
	return s.matchRepo.ListCompletedByTournaments(ctx, nil, ids)
}
