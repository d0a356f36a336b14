package database

import (
	"context"
	"fmt"

	"github.com/benvon/smartmatch/internal/models"
	"github.com/lib/pq"
)

// DefaultCandidateLimit caps the candidate list when no limit is configured
const DefaultCandidateLimit = 500

// CandidateRepository is the default scorer: it filters profiles by the user's
// preferences and ranks them by most recent activity.
type CandidateRepository struct {
	db    *DB
	limit int
}

// NewCandidateRepository creates a candidate repository returning at most limit candidates
func NewCandidateRepository(db *DB, limit int) *CandidateRepository {
	if limit <= 0 {
		limit = DefaultCandidateLimit
	}
	return &CandidateRepository{db: db, limit: limit}
}

// ComputeCandidates returns candidate user IDs for userID, most recently active first.
// The requester and users the requester already liked are excluded.
func (r *CandidateRepository) ComputeCandidates(ctx context.Context, userID string, prefs *models.Preferences) ([]string, error) {
	if prefs == nil {
		prefs = models.DefaultPreferences(userID)
	}
	seeking := prefs.SeekingGender
	if seeking == nil {
		seeking = []string{}
	}

	query := `
		SELECT p.user_id
		FROM user_profiles p
		LEFT JOIN user_activity a ON a.user_id = p.user_id
		WHERE p.user_id <> $1
		  AND (cardinality($2::text[]) = 0 OR p.gender = ANY($2::text[]))
		  AND p.birth_date <= CURRENT_DATE - make_interval(years => $3)
		  AND p.birth_date > CURRENT_DATE - make_interval(years => $4 + 1)
		  AND NOT EXISTS (
			SELECT 1 FROM interactions i
			WHERE i.actor_id = $1 AND i.target_id = p.user_id AND i.kind = 'like'
		  )
		ORDER BY a.last_active_at DESC NULLS LAST, p.user_id
		LIMIT $5
	`

	rows, err := r.db.QueryContext(ctx, query, userID, pq.Array(seeking), prefs.MinAge, prefs.MaxAge, r.limit)
	if err != nil {
		return nil, classify("failed to compute candidates", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	candidates := make([]string, 0, r.limit)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		candidates = append(candidates, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating candidates: %w", err)
	}
	return candidates, nil
}
