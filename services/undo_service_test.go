package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuscup/bracket-system/models"
)

func TestRevertRestoresScoreUpdate(t *testing.T) {
	e := newEnv()
	tournament := e.createActive(t, models.FormatSingleElimination, 4)
	ctx := context.Background()

	semi := e.matchByUID(t, tournament.ID, "R1M1")
	_, err := e.events.Record(ctx, semi.ID, testActorID, RecordEventInput{
		Kind: models.EventScoreUpdate, ScoreA: intPtr(10), ScoreB: intPtr(8),
	})
	require.NoError(t, err)

	revert, err := e.undo.RevertLast(ctx, semi.ID, testActorID)
	require.NoError(t, err)
	assert.Equal(t, models.EventRevert, revert.Kind)
	require.NotNil(t, revert.RevertsEventID)

	restored := e.matchByUID(t, tournament.ID, "R1M1")
	assert.Equal(t, 0, restored.ScoreA)
	assert.Equal(t, 0, restored.ScoreB)
	assert.Equal(t, models.MatchScheduled, restored.Status)
	assert.Equal(t, 3, restored.Revision, "the revert is a new change, not an erased one")

	log, err := e.events.List(ctx, semi.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, log, 2, "both the original event and the revert stay in the log")
	assert.Equal(t, models.EventRevert, log[0].Kind)
	assert.Equal(t, models.EventScoreUpdate, log[1].Kind)
}

func TestRevertDeclareRewindsProgression(t *testing.T) {
	e := newEnv()
	tournament := e.createActive(t, models.FormatSingleElimination, 4)
	ctx := context.Background()

	semi := e.matchByUID(t, tournament.ID, "R1M1")
	e.declare(t, semi.ID, 101, 21, 12)

	_, err := e.undo.RevertLast(ctx, semi.ID, testActorID)
	require.NoError(t, err)

	restored := e.matchByUID(t, tournament.ID, "R1M1")
	assert.Equal(t, models.MatchScheduled, restored.Status)
	assert.Nil(t, restored.WinnerTeamID)
	assert.Equal(t, 0, restored.ScoreA)

	round1 := e.roundByNumber(t, tournament.ID, 1)
	assert.Equal(t, 0, round1.CompletedMatches)
	assert.Equal(t, models.RoundActive, round1.Status)

	final := e.matchByUID(t, tournament.ID, "R2M1")
	assert.Nil(t, final.TeamAID, "the advanced team is pulled back out of the final")
}

func TestRevertIsSingleLevel(t *testing.T) {
	e := newEnv()
	tournament := e.createActive(t, models.FormatSingleElimination, 4)
	ctx := context.Background()

	semi := e.matchByUID(t, tournament.ID, "R1M1")
	_, err := e.events.Record(ctx, semi.ID, testActorID, RecordEventInput{
		Kind: models.EventScoreUpdate, ScoreA: intPtr(5), ScoreB: intPtr(5),
	})
	require.NoError(t, err)

	_, err = e.undo.RevertLast(ctx, semi.ID, testActorID)
	require.NoError(t, err)

	_, err = e.undo.RevertLast(ctx, semi.ID, testActorID)
	assert.ErrorIs(t, err, ErrAlreadyReverted, "a revert cannot be undone and unlocks nothing deeper")

	// A fresh event makes the match undoable again.
	_, err = e.events.Record(ctx, semi.ID, testActorID, RecordEventInput{
		Kind: models.EventScoreUpdate, ScoreA: intPtr(7), ScoreB: intPtr(3),
	})
	require.NoError(t, err)
	_, err = e.undo.RevertLast(ctx, semi.ID, testActorID)
	assert.NoError(t, err)
}

func TestRevertWithoutEventsFails(t *testing.T) {
	e := newEnv()
	tournament := e.createActive(t, models.FormatSingleElimination, 4)

	semi := e.matchByUID(t, tournament.ID, "R1M1")
	_, err := e.undo.RevertLast(context.Background(), semi.ID, testActorID)
	assert.ErrorIs(t, err, ErrNoEventToRevert)
}

func TestRevertBlockedOnceDownstreamStarted(t *testing.T) {
	e := newEnv()
	tournament := e.createActive(t, models.FormatSingleElimination, 4)
	ctx := context.Background()

	semi1 := e.matchByUID(t, tournament.ID, "R1M1")
	semi2 := e.matchByUID(t, tournament.ID, "R1M2")
	e.declare(t, semi1.ID, 101, 2, 0)
	e.declare(t, semi2.ID, 102, 2, 0)

	final := e.matchByUID(t, tournament.ID, "R2M1")
	_, err := e.events.Record(ctx, final.ID, testActorID, RecordEventInput{
		Kind: models.EventScoreUpdate, ScoreA: intPtr(1), ScoreB: intPtr(0),
	})
	require.NoError(t, err)

	_, err = e.undo.RevertLast(ctx, semi1.ID, testActorID)
	assert.ErrorIs(t, err, ErrStatusConflict, "cannot vacate a slot of a match that already started")
}

func TestRevertFinalReopensTournament(t *testing.T) {
	e := newEnv()
	tournament := e.createActive(t, models.FormatSingleElimination, 4)
	ctx := context.Background()

	e.declare(t, e.matchByUID(t, tournament.ID, "R1M1").ID, 101, 2, 0)
	e.declare(t, e.matchByUID(t, tournament.ID, "R1M2").ID, 102, 2, 0)
	final := e.matchByUID(t, tournament.ID, "R2M1")
	result := e.declare(t, final.ID, 102, 1, 3)
	require.True(t, result.TournamentCompleted)

	_, err := e.undo.RevertLast(ctx, final.ID, testActorID)
	require.NoError(t, err)

	stored, err := e.tournaments.Get(ctx, tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TournamentActive, stored.Status)
	assert.Nil(t, stored.WinnerTeamID)

	round2 := e.roundByNumber(t, tournament.ID, 2)
	assert.Equal(t, models.RoundActive, round2.Status)
	assert.Equal(t, 0, round2.CompletedMatches)

	restored := e.matchByUID(t, tournament.ID, "R2M1")
	assert.Equal(t, intPtr(101), restored.TeamAID, "participants stay in place, only the result is rewound")
	assert.Equal(t, intPtr(102), restored.TeamBID)
}

func TestRevertStraightGrandFinalWinRestoresReset(t *testing.T) {
	e := newEnv()
	tournament := e.createActive(t, models.FormatDoubleElimination, 4)
	ctx := context.Background()

	e.declare(t, e.matchByUID(t, tournament.ID, "WR1M1").ID, 101, 2, 0)
	e.declare(t, e.matchByUID(t, tournament.ID, "WR1M2").ID, 102, 2, 0)
	e.declare(t, e.matchByUID(t, tournament.ID, "WR2M1").ID, 101, 2, 1)
	e.declare(t, e.matchByUID(t, tournament.ID, "LR1M1").ID, 103, 1, 2)
	e.declare(t, e.matchByUID(t, tournament.ID, "LR2M1").ID, 103, 2, 0)

	gf1 := e.matchByUID(t, tournament.ID, "GF1")
	result := e.declare(t, gf1.ID, 101, 2, 0)
	require.True(t, result.TournamentCompleted)
	require.Equal(t, models.MatchCancelled, e.matchByUID(t, tournament.ID, "GF2").Status)

	_, err := e.undo.RevertLast(ctx, gf1.ID, testActorID)
	require.NoError(t, err)

	gf2 := e.matchByUID(t, tournament.ID, "GF2")
	assert.Equal(t, models.MatchScheduled, gf2.Status, "the cancelled reset comes back with the declaration")
	assert.Nil(t, gf2.TeamAID)
	assert.Nil(t, gf2.TeamBID)

	stored, err := e.tournaments.Get(ctx, tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TournamentActive, stored.Status)
	assert.Nil(t, stored.WinnerTeamID)
}
