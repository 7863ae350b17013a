package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/campuscup/bracket-system/models"
	"github.com/lib/pq"
)

var (
	ErrMatchNotFound = errors.New("match not found")
	// ErrMatchStaleRevision means the guarded update matched no row because
	// the match moved past the expected revision. The caller must re-read.
	ErrMatchStaleRevision = errors.New("match revision is stale")
	ErrMatchSlotInvalid   = errors.New("match slot must be 1 or 2")
)

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.Match) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error)
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int, round *int, status *models.MatchStatus) ([]models.Match, error)
	ListCompletedByTournaments(ctx context.Context, exec SQLExecutor, tournamentIDs []int) ([]models.Match, error)
	// UpdateStateGuarded applies score/status/winner and bumps the revision
	// in one statement guarded by the expected revision (optimistic
	// concurrency). Zero rows means a concurrent writer got there first.
	UpdateStateGuarded(ctx context.Context, exec SQLExecutor, id, expectedRevision int, scoreA, scoreB int, status models.MatchStatus, winnerTeamID *int) (*models.Match, error)
	SetNextMatchInfo(ctx context.Context, exec SQLExecutor, id int, nextID, nextSlot, loserNextID, loserNextSlot *int) error
	SetSlotTeam(ctx context.Context, exec SQLExecutor, id, slot int, teamID *int) error
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

func (r *postgresMatchRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const matchColumns = `id, tournament_id, round_id, bracket_uid, order_in_round,
	team_a_id, team_b_id, source_a_uid, source_b_uid, source_a_take, source_b_take,
	score_a, score_b, status, winner_team_id, revision,
	next_match_id, next_slot, loser_next_match_id, loser_next_slot,
	grand_final, grand_final_reset, created_at`

func scanMatch(row interface{ Scan(...interface{}) error }) (*models.Match, error) {
	var m models.Match
	err := row.Scan(
		&m.ID, &m.TournamentID, &m.RoundID, &m.BracketUID, &m.OrderInRound,
		&m.TeamAID, &m.TeamBID, &m.SourceAUID, &m.SourceBUID, &m.SourceATake, &m.SourceBTake,
		&m.ScoreA, &m.ScoreB, &m.Status, &m.WinnerTeamID, &m.Revision,
		&m.NextMatchID, &m.NextSlot, &m.LoserNextMatchID, &m.LoserNextSlot,
		&m.GrandFinal, &m.GrandFinalReset, &m.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, match *models.Match) error {
	query := `
		INSERT INTO matches
			(tournament_id, round_id, bracket_uid, order_in_round,
			 team_a_id, team_b_id, source_a_uid, source_b_uid, source_a_take, source_b_take,
			 score_a, score_b, status, grand_final, grand_final_reset)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id, revision, created_at`

	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		match.TournamentID, match.RoundID, match.BracketUID, match.OrderInRound,
		match.TeamAID, match.TeamBID, match.SourceAUID, match.SourceBUID, match.SourceATake, match.SourceBTake,
		match.ScoreA, match.ScoreB, match.Status, match.GrandFinal, match.GrandFinalReset,
	).Scan(&match.ID, &match.Revision, &match.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("match %s references an unknown round or tournament: %w", match.BracketUID, err)
		}
		return fmt.Errorf("failed to insert match %s: %w", match.BracketUID, err)
	}
	return nil
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1`
	return scanMatch(r.getExecutor(exec).QueryRowContext(ctx, query, id))
}

func (r *postgresMatchRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int, round *int, status *models.MatchStatus) ([]models.Match, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + matchColumns + ` FROM matches WHERE tournament_id = $1`)

	args := []interface{}{tournamentID}
	if round != nil {
		args = append(args, *round)
		queryBuilder.WriteString(` AND round_id = $` + strconv.Itoa(len(args)))
	}
	if status != nil {
		args = append(args, *status)
		queryBuilder.WriteString(` AND status = $` + strconv.Itoa(len(args)))
	}
	queryBuilder.WriteString(` ORDER BY round_id ASC, order_in_round ASC, id ASC`)

	return r.queryMatches(ctx, exec, queryBuilder.String(), args...)
}

func (r *postgresMatchRepository) ListCompletedByTournaments(ctx context.Context, exec SQLExecutor, tournamentIDs []int) ([]models.Match, error) {
	if len(tournamentIDs) == 0 {
		return []models.Match{}, nil
	}
	query := `
		SELECT ` + matchColumns + `
		FROM matches
		WHERE tournament_id = ANY($1) AND status = 'completed'
		ORDER BY tournament_id ASC, round_id ASC, id ASC`

	return r.queryMatches(ctx, exec, query, pq.Array(tournamentIDs))
}

func (r *postgresMatchRepository) queryMatches(ctx context.Context, exec SQLExecutor, query string, args ...interface{}) ([]models.Match, error) {
	rows, err := r.getExecutor(exec).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	defer rows.Close()

	matches := make([]models.Match, 0)
	for rows.Next() {
		m, scanErr := scanMatch(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		matches = append(matches, *m)
	}
	return matches, rows.Err()
}

func (r *postgresMatchRepository) UpdateStateGuarded(ctx context.Context, exec SQLExecutor, id, expectedRevision int, scoreA, scoreB int, status models.MatchStatus, winnerTeamID *int) (*models.Match, error) {
	query := `
		UPDATE matches
		SET score_a = $1, score_b = $2, status = $3, winner_team_id = $4, revision = revision + 1
		WHERE id = $5 AND revision = $6
		RETURNING ` + matchColumns

	match, err := scanMatch(r.getExecutor(exec).QueryRowContext(ctx, query,
		scoreA, scoreB, status, winnerTeamID, id, expectedRevision))
	if err != nil {
		if errors.Is(err, ErrMatchNotFound) {
			if _, getErr := r.GetByID(ctx, exec, id); getErr == nil {
				return nil, ErrMatchStaleRevision
			}
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to update match %d: %w", id, err)
	}
	return match, nil
}

func (r *postgresMatchRepository) SetNextMatchInfo(ctx context.Context, exec SQLExecutor, id int, nextID, nextSlot, loserNextID, loserNextSlot *int) error {
	query := `
		UPDATE matches
		SET next_match_id = $1, next_slot = $2, loser_next_match_id = $3, loser_next_slot = $4
		WHERE id = $5`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, nextID, nextSlot, loserNextID, loserNextSlot, id)
	if err != nil {
		return fmt.Errorf("failed to set progression linkage for match %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) SetSlotTeam(ctx context.Context, exec SQLExecutor, id, slot int, teamID *int) error {
	var column string
	switch slot {
	case 1:
		column = "team_a_id"
	case 2:
		column = "team_b_id"
	default:
		return fmt.Errorf("%w: got %d", ErrMatchSlotInvalid, slot)
	}

	query := `UPDATE matches SET ` + column + ` = $1 WHERE id = $2`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, teamID, id)
	if err != nil {
		return fmt.Errorf("failed to set slot %d of match %d: %w", slot, id, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}
