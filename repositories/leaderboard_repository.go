package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/campuscup/bracket-system/models"
)

// LeaderboardRepository stores derived standings snapshots. A snapshot is
// always replaced as a whole for its scope, never patched row by row.
type LeaderboardRepository interface {
	ReplaceForScope(ctx context.Context, exec SQLExecutor, scope models.LeaderboardScope, entries []models.LeaderboardEntry) error
	ListByScope(ctx context.Context, exec SQLExecutor, scope models.LeaderboardScope) ([]models.LeaderboardEntry, error)
}

type postgresLeaderboardRepository struct {
	db *sql.DB
}

func NewPostgresLeaderboardRepository(db *sql.DB) LeaderboardRepository {
	return &postgresLeaderboardRepository{db: db}
}

func (r *postgresLeaderboardRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func scopeClause(scope models.LeaderboardScope, args []interface{}) (string, []interface{}) {
	var clauses []string
	if scope.TournamentID != nil {
		args = append(args, *scope.TournamentID)
		clauses = append(clauses, "tournament_id = $"+strconv.Itoa(len(args)))
	} else {
		clauses = append(clauses, "tournament_id IS NULL")
		args = append(args, derefString(scope.Season))
		clauses = append(clauses, "season = $"+strconv.Itoa(len(args)))
	}
	args = append(args, scope.SportID)
	clauses = append(clauses, "sport_id = $"+strconv.Itoa(len(args)))
	args = append(args, scope.Gender)
	clauses = append(clauses, "gender = $"+strconv.Itoa(len(args)))
	return strings.Join(clauses, " AND "), args
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (r *postgresLeaderboardRepository) ReplaceForScope(ctx context.Context, exec SQLExecutor, scope models.LeaderboardScope, entries []models.LeaderboardEntry) error {
	executor := r.getExecutor(exec)

	clause, args := scopeClause(scope, nil)
	if _, err := executor.ExecContext(ctx, `DELETE FROM leaderboard_entries WHERE `+clause, args...); err != nil {
		return fmt.Errorf("failed to clear leaderboard scope: %w", err)
	}

	query := `
		INSERT INTO leaderboard_entries
			(tournament_id, season, sport_id, gender, team_id, points, played,
			 wins, draws, losses, score_for, score_against, score_diff, rank, computed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id`
	for i := range entries {
		e := &entries[i]
		err := executor.QueryRowContext(ctx, query,
			e.TournamentID, e.Season, e.SportID, e.Gender, e.TeamID, e.Points, e.Played,
			e.Wins, e.Draws, e.Losses, e.ScoreFor, e.ScoreAgainst, e.ScoreDiff, e.Rank, e.ComputedAt,
		).Scan(&e.ID)
		if err != nil {
			return fmt.Errorf("failed to insert leaderboard entry for team %d: %w", e.TeamID, err)
		}
	}
	return nil
}

func (r *postgresLeaderboardRepository) ListByScope(ctx context.Context, exec SQLExecutor, scope models.LeaderboardScope) ([]models.LeaderboardEntry, error) {
	clause, args := scopeClause(scope, nil)
	query := `
		SELECT id, tournament_id, season, sport_id, gender, team_id, points, played,
		       wins, draws, losses, score_for, score_against, score_diff, rank, computed_at
		FROM leaderboard_entries
		WHERE ` + clause + `
		ORDER BY rank ASC`

	rows, err := r.getExecutor(exec).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	defer rows.Close()

	entries := make([]models.LeaderboardEntry, 0)
	for rows.Next() {
		var e models.LeaderboardEntry
		if scanErr := rows.Scan(
			&e.ID, &e.TournamentID, &e.Season, &e.SportID, &e.Gender, &e.TeamID, &e.Points, &e.Played,
			&e.Wins, &e.Draws, &e.Losses, &e.ScoreFor, &e.ScoreAgainst, &e.ScoreDiff, &e.Rank, &e.ComputedAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan leaderboard entry: %w", scanErr)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
