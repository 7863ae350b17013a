package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuscup/bracket-system/models"
)

func TestCreateTournamentValidation(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	valid := CreateTournamentInput{
		Name: "Autumn Cup", SportID: 2, Season: "2026-autumn", Gender: "women",
		OrganizerID: testActorID, Format: models.FormatSingleElimination, MaxTeams: 16,
	}

	created, err := e.tournaments.Create(ctx, valid)
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, models.TournamentDraft, created.Status)

	cases := []struct {
		name    string
		mutate  func(*CreateTournamentInput)
		wantErr error
	}{
		{"blank name", func(in *CreateTournamentInput) { in.Name = "   " }, ErrTournamentNameRequired},
		{"unknown format", func(in *CreateTournamentInput) { in.Format = "swiss" }, ErrInvalidFormat},
		{"capacity of one", func(in *CreateTournamentInput) { in.MaxTeams = 1 }, ErrInvalidCapacity},
		{"missing season", func(in *CreateTournamentInput) { in.Season = "" }, ErrValidationFailed},
		{"missing sport", func(in *CreateTournamentInput) { in.SportID = 0 }, ErrValidationFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := valid
			tc.mutate(&in)
			_, err := e.tournaments.Create(ctx, in)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestSetTeamsSeedValidation(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	created, err := e.tournaments.Create(ctx, CreateTournamentInput{
		Name: "Seeding Test", SportID: 1, Season: "2026-spring", Gender: "men",
		OrganizerID: testActorID, Format: models.FormatSingleElimination, MaxTeams: 4,
	})
	require.NoError(t, err)

	_, err = e.tournaments.SetTeams(ctx, created.ID, []TeamSeedInput{
		{TeamID: 11, Seed: 1}, {TeamID: 12, Seed: 3},
	})
	assert.ErrorIs(t, err, ErrValidationFailed, "seeds must be contiguous")

	_, err = e.tournaments.SetTeams(ctx, created.ID, []TeamSeedInput{
		{TeamID: 11, Seed: 1}, {TeamID: 12, Seed: 1},
	})
	assert.ErrorIs(t, err, ErrValidationFailed, "duplicate seed")

	_, err = e.tournaments.SetTeams(ctx, created.ID, []TeamSeedInput{
		{TeamID: 11, Seed: 1}, {TeamID: 11, Seed: 2},
	})
	assert.ErrorIs(t, err, ErrValidationFailed, "duplicate team")

	_, err = e.tournaments.SetTeams(ctx, created.ID, []TeamSeedInput{
		{TeamID: 11, Seed: 1}, {TeamID: 12, Seed: 2}, {TeamID: 13, Seed: 3},
		{TeamID: 14, Seed: 4}, {TeamID: 15, Seed: 5},
	})
	assert.ErrorIs(t, err, ErrValidationFailed, "over capacity")

	roster, err := e.tournaments.SetTeams(ctx, created.ID, []TeamSeedInput{
		{TeamID: 12, Seed: 2}, {TeamID: 11, Seed: 1},
	})
	require.NoError(t, err)
	assert.Len(t, roster, 2)

	_, err = e.tournaments.SetTeams(ctx, 98765, nil)
	assert.ErrorIs(t, err, ErrTournamentNotFound)
}

func TestSetTeamsLockedAfterGeneration(t *testing.T) {
	e := newEnv()
	tournament := e.createActive(t, models.FormatSingleElimination, 4)

	_, err := e.tournaments.SetTeams(context.Background(), tournament.ID, []TeamSeedInput{
		{TeamID: 500, Seed: 1}, {TeamID: 501, Seed: 2},
	})
	assert.ErrorIs(t, err, ErrRosterLocked)
}

func TestGetReturnsFullView(t *testing.T) {
	e := newEnv()
	tournament := e.createActive(t, models.FormatSingleElimination, 4)

	view, err := e.tournaments.Get(context.Background(), tournament.ID)
	require.NoError(t, err)
	assert.Len(t, view.Teams, 4)
	assert.Len(t, view.Rounds, 2)
	assert.Len(t, view.Matches, 3)
	for _, team := range view.Teams {
		assert.NotNil(t, team.BracketPosition, "every team gets an initial bracket position")
	}
}

func TestCancelTournament(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	draft, err := e.tournaments.Create(ctx, CreateTournamentInput{
		Name: "To Cancel", SportID: 1, Season: "2026-spring", Gender: "mixed",
		OrganizerID: testActorID, Format: models.FormatRoundRobin, MaxTeams: 8,
	})
	require.NoError(t, err)

	cancelled, err := e.tournaments.Cancel(ctx, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TournamentCancelled, cancelled.Status)

	_, err = e.tournaments.Cancel(ctx, draft.ID)
	assert.ErrorIs(t, err, ErrInvalidStatusTransition, "cancelled is terminal")

	active := e.createActive(t, models.FormatSingleElimination, 4)
	_, err = e.tournaments.Cancel(ctx, active.ID)
	assert.NoError(t, err, "active tournaments can be called off")
}

func TestDeleteHidesTournament(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	draft, err := e.tournaments.Create(ctx, CreateTournamentInput{
		Name: "Ephemeral", SportID: 1, Season: "2026-spring", Gender: "mixed",
		OrganizerID: testActorID, Format: models.FormatRoundRobin, MaxTeams: 8,
	})
	require.NoError(t, err)

	require.NoError(t, e.tournaments.Delete(ctx, draft.ID))

	_, err = e.tournaments.Get(ctx, draft.ID)
	assert.ErrorIs(t, err, ErrTournamentNotFound)

	err = e.tournaments.Delete(ctx, draft.ID)
	assert.ErrorIs(t, err, ErrTournamentNotFound)
}

func TestDeleteRemovesArchivedSnapshot(t *testing.T) {
	archiver := &captureArchiver{}
	e := newEnvWithArchiver(archiver)
	ctx := context.Background()

	tournament := e.createActive(t, models.FormatSingleElimination, 2)
	final := e.matchByUID(t, tournament.ID, "R1M1")
	e.declare(t, final.ID, 101, 21, 12)
	require.Len(t, archiver.archived, 1)

	require.NoError(t, e.tournaments.Delete(ctx, tournament.ID))
	assert.Equal(t, []int{tournament.ID}, archiver.removed)

	// Deleting a tournament that never completed leaves storage alone.
	draft, err := e.tournaments.Create(ctx, CreateTournamentInput{
		Name: "Never Played", SportID: 1, Season: "2026-spring", Gender: "mixed",
		OrganizerID: testActorID, Format: models.FormatRoundRobin, MaxTeams: 8,
	})
	require.NoError(t, err)
	require.NoError(t, e.tournaments.Delete(ctx, draft.ID))
	assert.Len(t, archiver.removed, 1)
}
