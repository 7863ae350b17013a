package services

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/campuscup/bracket-system/models"
)

const testActorID = 7

// env wires every service against one shared in-memory store, the same way
// main wires them against postgres.
type env struct {
	store *memStore

	tournaments TournamentService
	brackets    BracketService
	progression ProgressionService
	events      MatchEventService
	undo        UndoService
	leaderboard LeaderboardService
}

func newEnv() *env {
	return newEnvWithArchiver(nil)
}

func newEnvWithArchiver(archiver TournamentArchiver) *env {
	s := newMemStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &env{
		store:       s,
		tournaments: NewTournamentService(s, s.tournamentRepo(), s.teamRepo(), s.roundRepo(), s.matchRepo(), archiver, logger),
		brackets:    NewBracketService(s, s.tournamentRepo(), s.teamRepo(), s.roundRepo(), s.matchRepo()),
		progression: NewProgressionService(s, s.tournamentRepo(), s.teamRepo(), s.roundRepo(), s.matchRepo(), s.eventRepo(), nil, archiver, logger),
		events:      NewMatchEventService(s, s.matchRepo(), s.eventRepo(), nil),
		undo:        NewUndoService(s, s.tournamentRepo(), s.roundRepo(), s.matchRepo(), s.eventRepo(), nil),
		leaderboard: NewLeaderboardService(s, s.tournamentRepo(), s.matchRepo(), s.leaderboardRepo()),
	}
}

// createActive creates a tournament, registers n teams seeded 1..n with team
// ids 100+seed, and generates the bracket.
func (e *env) createActive(t *testing.T, format models.TournamentFormat, n int) *models.Tournament {
	t.Helper()
	ctx := context.Background()

	tournament, err := e.tournaments.Create(ctx, CreateTournamentInput{
		Name:        "Spring Invitational",
		SportID:     1,
		Season:      "2026-spring",
		Gender:      "mixed",
		OrganizerID: testActorID,
		Format:      format,
		MaxTeams:    32,
	})
	require.NoError(t, err)

	teams := make([]TeamSeedInput, 0, n)
	for seed := 1; seed <= n; seed++ {
		teams = append(teams, TeamSeedInput{TeamID: 100 + seed, Seed: seed})
	}
	_, err = e.tournaments.SetTeams(ctx, tournament.ID, teams)
	require.NoError(t, err)

	active, err := e.brackets.Generate(ctx, tournament.ID)
	require.NoError(t, err)
	require.Equal(t, models.TournamentActive, active.Status)
	return active
}

func (e *env) matchByUID(t *testing.T, tournamentID int, uid string) *models.Match {
	t.Helper()
	matches, err := e.store.matchRepo().ListByTournament(context.Background(), nil, tournamentID, nil, nil)
	require.NoError(t, err)
	for i := range matches {
		if matches[i].BracketUID == uid {
			return &matches[i]
		}
	}
	t.Fatalf("no match %q in tournament %d", uid, tournamentID)
	return nil
}

func (e *env) roundByNumber(t *testing.T, tournamentID, number int) *models.Round {
	t.Helper()
	rounds, err := e.store.roundRepo().ListByTournament(context.Background(), nil, tournamentID)
	require.NoError(t, err)
	for i := range rounds {
		if rounds[i].Number == number {
			return &rounds[i]
		}
	}
	t.Fatalf("no round %d in tournament %d", number, tournamentID)
	return nil
}

func (e *env) declare(t *testing.T, matchID, winnerTeamID, scoreA, scoreB int) *DeclareWinnerResult {
	t.Helper()
	result, err := e.progression.DeclareWinner(context.Background(), matchID, testActorID, DeclareWinnerInput{
		WinnerTeamID: winnerTeamID,
		ScoreA:       scoreA,
		ScoreB:       scoreB,
	})
	require.NoError(t, err)
	return result
}

func intPtr(v int) *int { return &v }
