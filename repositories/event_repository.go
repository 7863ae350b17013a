package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/campuscup/bracket-system/models"
)

var ErrMatchEventNotFound = errors.New("match event not found")

// MatchEventRepository is strictly append-only: there is no update or delete.
// Undo works by appending a compensating revert event.
type MatchEventRepository interface {
	Append(ctx context.Context, exec SQLExecutor, event *models.MatchEvent) error
	// LatestNonRevert returns the newest score/incident/winner event for a
	// match, ordered by (created_at, id) so ties have a single well-defined
	// winner.
	LatestNonRevert(ctx context.Context, exec SQLExecutor, matchID int) (*models.MatchEvent, error)
	HasRevertFor(ctx context.Context, exec SQLExecutor, eventID int64) (bool, error)
	ListByMatch(ctx context.Context, exec SQLExecutor, matchID, limit, offset int) ([]models.MatchEvent, error)
}

type postgresMatchEventRepository struct {
	db *sql.DB
}

func NewPostgresMatchEventRepository(db *sql.DB) MatchEventRepository {
	return &postgresMatchEventRepository{db: db}
}

func (r *postgresMatchEventRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const matchEventColumns = `id, match_id, actor_id, kind, payload, applied_revision, reverts_event_id, created_at`

func scanMatchEvent(row interface{ Scan(...interface{}) error }) (*models.MatchEvent, error) {
	var (
		event   models.MatchEvent
		payload []byte
	)
	err := row.Scan(
		&event.ID, &event.MatchID, &event.ActorID, &event.Kind,
		&payload, &event.AppliedRevision, &event.RevertsEventID, &event.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchEventNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(payload, &event.Payload); err != nil {
		return nil, fmt.Errorf("failed to decode payload of event %d: %w", event.ID, err)
	}
	return &event, nil
}

func (r *postgresMatchEventRepository) Append(ctx context.Context, exec SQLExecutor, event *models.MatchEvent) error {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("failed to encode event payload: %w", err)
	}

	query := `
		INSERT INTO match_events (match_id, actor_id, kind, payload, applied_revision, reverts_event_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err = r.getExecutor(exec).QueryRowContext(ctx, query,
		event.MatchID, event.ActorID, event.Kind, payload, event.AppliedRevision, event.RevertsEventID,
	).Scan(&event.ID, &event.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append %s event for match %d: %w", event.Kind, event.MatchID, err)
	}
	return nil
}

func (r *postgresMatchEventRepository) LatestNonRevert(ctx context.Context, exec SQLExecutor, matchID int) (*models.MatchEvent, error) {
	query := `
		SELECT ` + matchEventColumns + `
		FROM match_events
		WHERE match_id = $1 AND kind <> 'revert'
		ORDER BY created_at DESC, id DESC
		LIMIT 1`

	return scanMatchEvent(r.getExecutor(exec).QueryRowContext(ctx, query, matchID))
}

func (r *postgresMatchEventRepository) HasRevertFor(ctx context.Context, exec SQLExecutor, eventID int64) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM match_events WHERE kind = 'revert' AND reverts_event_id = $1)`

	var exists bool
	if err := r.getExecutor(exec).QueryRowContext(ctx, query, eventID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check revert for event %d: %w", eventID, err)
	}
	return exists, nil
}

func (r *postgresMatchEventRepository) ListByMatch(ctx context.Context, exec SQLExecutor, matchID, limit, offset int) ([]models.MatchEvent, error) {
	query := `
		SELECT ` + matchEventColumns + `
		FROM match_events
		WHERE match_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.getExecutor(exec).QueryContext(ctx, query, matchID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query events for match %d: %w", matchID, err)
	}
	defer rows.Close()

	events := make([]models.MatchEvent, 0)
	for rows.Next() {
		event, scanErr := scanMatchEvent(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		events = append(events, *event)
	}
	return events, rows.Err()
}
