package database

import (
	"context"
	"database/sql"
	"errors"

	"github.com/benvon/smartmatch/internal/models"
)

// ProfileRepository handles the profile attributes used for candidate filtering
type ProfileRepository struct {
	db *DB
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// Get returns the profile for userID, or nil if none exists
func (r *ProfileRepository) Get(ctx context.Context, userID string) (*models.Profile, error) {
	p := &models.Profile{}
	err := r.db.QueryRowContext(ctx, `
		SELECT user_id, gender, birth_date, created_at
		FROM user_profiles WHERE user_id = $1
	`, userID).Scan(&p.UserID, &p.Gender, &p.BirthDate, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, classify("failed to get profile", err)
	}
	return p, nil
}

// Upsert creates or updates a profile
func (r *ProfileRepository) Upsert(ctx context.Context, p *models.Profile) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_profiles (user_id, gender, birth_date)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE
		SET gender = EXCLUDED.gender,
		    birth_date = EXCLUDED.birth_date
	`, p.UserID, p.Gender, p.BirthDate)
	if err != nil {
		return classify("failed to upsert profile", err)
	}
	return nil
}
