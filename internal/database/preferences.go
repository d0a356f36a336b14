package database

import (
	"context"
	"database/sql"
	"errors"

	"github.com/benvon/smartmatch/internal/models"
	"github.com/lib/pq"
)

// PreferencesRepository handles user preference database operations
type PreferencesRepository struct {
	db *DB
}

// NewPreferencesRepository creates a new preferences repository
func NewPreferencesRepository(db *DB) *PreferencesRepository {
	return &PreferencesRepository{db: db}
}

// GetUserPreferences returns the stored preferences, or nil if the user has none
func (r *PreferencesRepository) GetUserPreferences(ctx context.Context, userID string) (*models.Preferences, error) {
	prefs := &models.Preferences{}

	query := `
		SELECT user_id, seeking_gender, min_age, max_age, updated_at
		FROM user_preferences
		WHERE user_id = $1
	`

	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&prefs.UserID,
		pq.Array(&prefs.SeekingGender),
		&prefs.MinAge,
		&prefs.MaxAge,
		&prefs.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, classify("failed to get user preferences", err)
	}

	return prefs, nil
}

// UpsertUserPreferences creates or replaces the user's preferences
func (r *PreferencesRepository) UpsertUserPreferences(ctx context.Context, prefs *models.Preferences) error {
	query := `
		INSERT INTO user_preferences (user_id, seeking_gender, min_age, max_age, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE
		SET seeking_gender = EXCLUDED.seeking_gender,
		    min_age = EXCLUDED.min_age,
		    max_age = EXCLUDED.max_age,
		    updated_at = EXCLUDED.updated_at
	`

	seeking := prefs.SeekingGender
	if seeking == nil {
		seeking = []string{}
	}
	_, err := r.db.ExecContext(ctx, query,
		prefs.UserID,
		pq.Array(seeking),
		prefs.MinAge,
		prefs.MaxAge,
		prefs.UpdatedAt.UTC(),
	)
	if err != nil {
		return classify("failed to upsert user preferences", err)
	}

	return nil
}
