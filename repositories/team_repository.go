package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/campuscup/bracket-system/models"
)

var (
	ErrTournamentTeamNotFound = errors.New("tournament team not found")
	ErrSeedConflict           = errors.New("seed already taken in this tournament")
)

type TournamentTeamRepository interface {
	// ReplaceForTournament swaps the whole roster. The service layer only
	// allows this while the tournament is still in draft.
	ReplaceForTournament(ctx context.Context, exec SQLExecutor, tournamentID int, teams []models.TournamentTeam) error
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]models.TournamentTeam, error)
	SetBracketPosition(ctx context.Context, exec SQLExecutor, tournamentID, teamID, position int) error
}

type postgresTournamentTeamRepository struct {
	db *sql.DB
}

func NewPostgresTournamentTeamRepository(db *sql.DB) TournamentTeamRepository {
	return &postgresTournamentTeamRepository{db: db}
}

func (r *postgresTournamentTeamRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresTournamentTeamRepository) ReplaceForTournament(ctx context.Context, exec SQLExecutor, tournamentID int, teams []models.TournamentTeam) error {
	executor := r.getExecutor(exec)

	if _, err := executor.ExecContext(ctx, `DELETE FROM tournament_teams WHERE tournament_id = $1`, tournamentID); err != nil {
		return fmt.Errorf("failed to clear roster for tournament %d: %w", tournamentID, err)
	}

	query := `
		INSERT INTO tournament_teams (tournament_id, team_id, seed)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`
	for i := range teams {
		teams[i].TournamentID = tournamentID
		err := executor.QueryRowContext(ctx, query, tournamentID, teams[i].TeamID, teams[i].Seed).
			Scan(&teams[i].ID, &teams[i].CreatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: team %d seed %d", ErrSeedConflict, teams[i].TeamID, teams[i].Seed)
			}
			return fmt.Errorf("failed to insert tournament team %d: %w", teams[i].TeamID, err)
		}
	}
	return nil
}

func (r *postgresTournamentTeamRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]models.TournamentTeam, error) {
	query := `
		SELECT id, tournament_id, team_id, seed, bracket_position, created_at
		FROM tournament_teams
		WHERE tournament_id = $1
		ORDER BY seed ASC`

	rows, err := r.getExecutor(exec).QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query teams for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	teams := make([]models.TournamentTeam, 0)
	for rows.Next() {
		var t models.TournamentTeam
		if scanErr := rows.Scan(&t.ID, &t.TournamentID, &t.TeamID, &t.Seed, &t.BracketPosition, &t.CreatedAt); scanErr != nil {
			return nil, fmt.Errorf("failed to scan tournament team: %w", scanErr)
		}
		teams = append(teams, t)
	}
	return teams, rows.Err()
}

func (r *postgresTournamentTeamRepository) SetBracketPosition(ctx context.Context, exec SQLExecutor, tournamentID, teamID, position int) error {
	query := `UPDATE tournament_teams SET bracket_position = $1 WHERE tournament_id = $2 AND team_id = $3`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, position, tournamentID, teamID)
	if err != nil {
		return fmt.Errorf("failed to set bracket position for team %d: %w", teamID, err)
	}
	return checkAffectedRows(result, ErrTournamentTeamNotFound)
}
