package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/campuscup/bracket-system/models"
	"github.com/campuscup/bracket-system/repositories"
	"golang.org/x/sync/errgroup"
)

func isValidTournamentTransition(current, next models.TournamentStatus) bool {
	allowed := map[models.TournamentStatus][]models.TournamentStatus{
		models.TournamentDraft:     {models.TournamentActive, models.TournamentCancelled},
		models.TournamentActive:    {models.TournamentCompleted, models.TournamentCancelled},
		models.TournamentCompleted: {},
		models.TournamentCancelled: {},
	}
	for _, status := range allowed[current] {
		if next == status {
			return true
		}
	}
	return false
}

// loadTournamentView assembles a tournament with its teams, rounds and
// matches fetched in parallel.
func loadTournamentView(
	ctx context.Context,
	tournamentRepo repositories.TournamentRepository,
	teamRepo repositories.TournamentTeamRepository,
	roundRepo repositories.RoundRepository,
	matchRepo repositories.MatchRepository,
	tournamentID int,
) (*models.Tournament, error) {
	tournament, err := tournamentRepo.GetByID(ctx, nil, tournamentID)
	if err != nil {
		return nil, mapTournamentError(err)
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		teams, err := teamRepo.ListByTournament(gCtx, nil, tournamentID)
		if err != nil {
			return fmt.Errorf("failed to load teams: %w", err)
		}
		tournament.Teams = teams
		return nil
	})
	g.Go(func() error {
		rounds, err := roundRepo.ListByTournament(gCtx, nil, tournamentID)
		if err != nil {
			return fmt.Errorf("failed to load rounds: %w", err)
		}
		tournament.Rounds = rounds
		return nil
	})
	g.Go(func() error {
		matches, err := matchRepo.ListByTournament(gCtx, nil, tournamentID, nil, nil)
		if err != nil {
			return fmt.Errorf("failed to load matches: %w", err)
		}
		tournament.Matches = matches
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return tournament, nil
}

func mapTournamentError(err error) error {
	switch {
	case errors.Is(err, repositories.ErrTournamentNotFound):
		return ErrTournamentNotFound
	case errors.Is(err, repositories.ErrTournamentStatusConflict):
		return ErrStatusConflict
	}
	return err
}

func mapMatchError(err error) error {
	switch {
	case errors.Is(err, repositories.ErrMatchNotFound):
		return ErrMatchNotFound
	case errors.Is(err, repositories.ErrMatchStaleRevision):
		return ErrStaleRevision
	}
	return err
}

// matchSnapshot captures the reversible prior state of a match into an event
// payload.
func matchSnapshot(m *models.Match) models.EventPayload {
	return models.EventPayload{
		PrevScoreA:       m.ScoreA,
		PrevScoreB:       m.ScoreB,
		PrevStatus:       m.Status,
		PrevWinnerTeamID: m.WinnerTeamID,
	}
}

// buildStandings folds completed matches into ranked leaderboard entries.
// Ranking is fully deterministic: points, then score differential, then score
// for, then team id. Pure function of its inputs, so recomputing over
// unchanged matches yields an identical snapshot.
func buildStandings(scope models.LeaderboardScope, matches []models.Match, rules models.ScoringRules, computedAt time.Time) []models.LeaderboardEntry {
	totals := make(map[int]*models.LeaderboardEntry)
	entry := func(teamID int) *models.LeaderboardEntry {
		if e, ok := totals[teamID]; ok {
			return e
		}
		e := &models.LeaderboardEntry{
			TournamentID: scope.TournamentID,
			Season:       scope.Season,
			SportID:      scope.SportID,
			Gender:       scope.Gender,
			TeamID:       teamID,
			ComputedAt:   computedAt,
		}
		totals[teamID] = e
		return e
	}

	for _, m := range matches {
		if m.Status != models.MatchCompleted || m.TeamAID == nil || m.TeamBID == nil {
			continue
		}
		a, b := entry(*m.TeamAID), entry(*m.TeamBID)
		a.Played++
		b.Played++
		a.ScoreFor += m.ScoreA
		a.ScoreAgainst += m.ScoreB
		b.ScoreFor += m.ScoreB
		b.ScoreAgainst += m.ScoreA

		switch {
		case m.WinnerTeamID == nil:
			a.Draws++
			b.Draws++
			a.Points += rules.Draw
			b.Points += rules.Draw
		case *m.WinnerTeamID == *m.TeamAID:
			a.Wins++
			b.Losses++
			a.Points += rules.Win
			b.Points += rules.Loss
		default:
			b.Wins++
			a.Losses++
			b.Points += rules.Win
			a.Points += rules.Loss
		}
	}

	entries := make([]models.LeaderboardEntry, 0, len(totals))
	for _, e := range totals {
		e.ScoreDiff = e.ScoreFor - e.ScoreAgainst
		entries = append(entries, *e)
	}
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Points != b.Points {
			return a.Points > b.Points
		}
		if a.ScoreDiff != b.ScoreDiff {
			return a.ScoreDiff > b.ScoreDiff
		}
		if a.ScoreFor != b.ScoreFor {
			return a.ScoreFor > b.ScoreFor
		}
		return a.TeamID < b.TeamID
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}
