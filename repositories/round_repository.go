package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/campuscup/bracket-system/models"
)

var (
	ErrRoundNotFound = errors.New("round not found")
	// ErrRoundCounterOverflow means completed_matches already equals
	// total_matches; incrementing it would break the round invariant.
	ErrRoundCounterOverflow  = errors.New("round completion counter is already full")
	ErrRoundCounterUnderflow = errors.New("round completion counter is already zero")
)

type RoundRepository interface {
	Create(ctx context.Context, exec SQLExecutor, round *models.Round) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Round, error)
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]models.Round, error)
	// IncrementCompleted moves the counter and derives the round status in a
	// single guarded UPDATE, so two matches completing concurrently in the
	// same round can never double-count or overflow it.
	IncrementCompleted(ctx context.Context, exec SQLExecutor, id int) (*models.Round, error)
	DecrementCompleted(ctx context.Context, exec SQLExecutor, id int) (*models.Round, error)
	CountNotCompleted(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error)
}

type postgresRoundRepository struct {
	db *sql.DB
}

func NewPostgresRoundRepository(db *sql.DB) RoundRepository {
	return &postgresRoundRepository{db: db}
}

func (r *postgresRoundRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const roundColumns = `id, tournament_id, number, section, total_matches, completed_matches, status, created_at`

func scanRound(row interface{ Scan(...interface{}) error }) (*models.Round, error) {
	var round models.Round
	err := row.Scan(
		&round.ID, &round.TournamentID, &round.Number, &round.Section,
		&round.TotalMatches, &round.CompletedMatches, &round.Status, &round.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoundNotFound
		}
		return nil, err
	}
	return &round, nil
}

func (r *postgresRoundRepository) Create(ctx context.Context, exec SQLExecutor, round *models.Round) error {
	query := `
		INSERT INTO rounds (tournament_id, number, section, total_matches, completed_matches, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		round.TournamentID, round.Number, round.Section,
		round.TotalMatches, round.CompletedMatches, round.Status,
	).Scan(&round.ID, &round.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert round %d for tournament %d: %w", round.Number, round.TournamentID, err)
	}
	return nil
}

func (r *postgresRoundRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Round, error) {
	query := `SELECT ` + roundColumns + ` FROM rounds WHERE id = $1`
	return scanRound(r.getExecutor(exec).QueryRowContext(ctx, query, id))
}

func (r *postgresRoundRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]models.Round, error) {
	query := `SELECT ` + roundColumns + ` FROM rounds WHERE tournament_id = $1 ORDER BY number ASC`

	rows, err := r.getExecutor(exec).QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query rounds for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	rounds := make([]models.Round, 0)
	for rows.Next() {
		round, scanErr := scanRound(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		rounds = append(rounds, *round)
	}
	return rounds, rows.Err()
}

func (r *postgresRoundRepository) IncrementCompleted(ctx context.Context, exec SQLExecutor, id int) (*models.Round, error) {
	query := `
		UPDATE rounds
		SET completed_matches = completed_matches + 1,
		    status = CASE WHEN completed_matches + 1 = total_matches
		             THEN 'completed'::round_status ELSE 'active'::round_status END
		WHERE id = $1 AND completed_matches < total_matches
		RETURNING ` + roundColumns

	round, err := scanRound(r.getExecutor(exec).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, ErrRoundNotFound) {
			// Distinguish a full counter from an unknown round.
			if _, getErr := r.GetByID(ctx, exec, id); getErr == nil {
				return nil, ErrRoundCounterOverflow
			}
			return nil, ErrRoundNotFound
		}
		return nil, fmt.Errorf("failed to increment completed counter for round %d: %w", id, err)
	}
	return round, nil
}

func (r *postgresRoundRepository) DecrementCompleted(ctx context.Context, exec SQLExecutor, id int) (*models.Round, error) {
	query := `
		UPDATE rounds
		SET completed_matches = completed_matches - 1,
		    status = 'active'::round_status
		WHERE id = $1 AND completed_matches > 0
		RETURNING ` + roundColumns

	round, err := scanRound(r.getExecutor(exec).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, ErrRoundNotFound) {
			if _, getErr := r.GetByID(ctx, exec, id); getErr == nil {
				return nil, ErrRoundCounterUnderflow
			}
			return nil, ErrRoundNotFound
		}
		return nil, fmt.Errorf("failed to decrement completed counter for round %d: %w", id, err)
	}
	return round, nil
}

func (r *postgresRoundRepository) CountNotCompleted(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error) {
	query := `SELECT COUNT(*) FROM rounds WHERE tournament_id = $1 AND status <> 'completed'`

	var count int
	if err := r.getExecutor(exec).QueryRowContext(ctx, query, tournamentID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count open rounds for tournament %d: %w", tournamentID, err)
	}
	return count, nil
}
