package database

import (
	"context"
	"fmt"
	"time"

	"github.com/benvon/smartmatch/internal/models"
	"github.com/lib/pq"
)

// InteractionRepository persists interaction events
type InteractionRepository struct {
	db *DB
}

// NewInteractionRepository creates a new interaction repository
func NewInteractionRepository(db *DB) *InteractionRepository {
	return &InteractionRepository{db: db}
}

// CreateInteractions inserts one row per target for actorID in a single statement and
// returns the number of rows written.
func (r *InteractionRepository) CreateInteractions(ctx context.Context, actorID string, targetIDs []string, kind models.InteractionKind) (int, error) {
	if len(targetIDs) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO interactions (actor_id, target_id, kind, created_at)
		SELECT $1, target_id, $3, $4
		FROM unnest($2::text[]) AS target_id
	`

	res, err := r.db.ExecContext(ctx, query, actorID, pq.Array(targetIDs), string(kind), time.Now().UTC())
	if err != nil {
		return 0, classify("failed to create interactions", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return int(n), nil
}

// CountByKind aggregates the interactions performed by actorID since the given time
func (r *InteractionRepository) CountByKind(ctx context.Context, actorID string, since time.Time) ([]models.InteractionCount, error) {
	query := `
		SELECT kind, COUNT(*)
		FROM interactions
		WHERE actor_id = $1 AND created_at >= $2
		GROUP BY kind
		ORDER BY kind
	`

	rows, err := r.db.QueryContext(ctx, query, actorID, since)
	if err != nil {
		return nil, classify("failed to count interactions", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var counts []models.InteractionCount
	for rows.Next() {
		var c models.InteractionCount
		var kind string
		if err := rows.Scan(&kind, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan interaction count: %w", err)
		}
		c.Kind = models.InteractionKind(kind)
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating interaction counts: %w", err)
	}
	return counts, nil
}

// DeleteViewsOlderThan removes view rows older than cutoff and returns how many were deleted.
// Likes, messages and clicks are kept.
func (r *InteractionRepository) DeleteViewsOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM interactions WHERE kind = 'view' AND created_at < $1`, cutoff)
	if err != nil {
		return 0, classify("failed to delete old views", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n, nil
}
