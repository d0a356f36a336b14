package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/benvon/smartmatch/internal/models"
)

// UserActivityRepository handles user activity database operations
type UserActivityRepository struct {
	db *DB
}

// NewUserActivityRepository creates a new user activity repository
func NewUserActivityRepository(db *DB) *UserActivityRepository {
	return &UserActivityRepository{db: db}
}

// GetByUserID retrieves user activity by user ID. Returns nil when the user was never seen.
func (r *UserActivityRepository) GetByUserID(ctx context.Context, userID string) (*models.UserActivity, error) {
	activity := &models.UserActivity{}

	query := `
		SELECT user_id, last_active_at, created_at, updated_at
		FROM user_activity
		WHERE user_id = $1
	`

	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&activity.UserID,
		&activity.LastActiveAt,
		&activity.CreatedAt,
		&activity.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, classify("failed to get user activity", err)
	}

	return activity, nil
}

// GetLastActiveAt returns when the user was last active, or nil if never seen
func (r *UserActivityRepository) GetLastActiveAt(ctx context.Context, userID string) (*time.Time, error) {
	activity, err := r.GetByUserID(ctx, userID)
	if err != nil || activity == nil {
		return nil, err
	}
	at := activity.LastActiveAt
	return &at, nil
}

// Touch records activity for userID at the given time. An older timestamp never
// overwrites a newer one.
func (r *UserActivityRepository) Touch(ctx context.Context, userID string, at time.Time) error {
	query := `
		INSERT INTO user_activity (user_id, last_active_at, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT (user_id) DO UPDATE
		SET last_active_at = GREATEST(user_activity.last_active_at, EXCLUDED.last_active_at),
		    updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, query, userID, at.UTC(), time.Now().UTC())
	if err != nil {
		return classify("failed to touch user activity", err)
	}

	return nil
}

// CountActiveSince returns how many users were active at or after since
func (r *UserActivityRepository) CountActiveSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM user_activity WHERE last_active_at >= $1`, since).Scan(&n)
	if err != nil {
		return 0, classify("failed to count active users", err)
	}
	return n, nil
}
