package database

import (
	"context"
	"time"

	"github.com/benvon/smartmatch/internal/models"
)

// InteractionRepositoryInterface defines the interface for interaction repository operations
type InteractionRepositoryInterface interface {
	CreateInteractions(ctx context.Context, actorID string, targetIDs []string, kind models.InteractionKind) (int, error)
	CountByKind(ctx context.Context, actorID string, since time.Time) ([]models.InteractionCount, error)
}

// UserActivityRepositoryInterface defines the interface for user activity repository operations
type UserActivityRepositoryInterface interface {
	GetLastActiveAt(ctx context.Context, userID string) (*time.Time, error)
	Touch(ctx context.Context, userID string, at time.Time) error
}

// PreferencesRepositoryInterface defines the interface for preference repository operations
type PreferencesRepositoryInterface interface {
	GetUserPreferences(ctx context.Context, userID string) (*models.Preferences, error)
	UpsertUserPreferences(ctx context.Context, prefs *models.Preferences) error
}

// CandidateRepositoryInterface defines the interface for the default scorer
type CandidateRepositoryInterface interface {
	ComputeCandidates(ctx context.Context, userID string, prefs *models.Preferences) ([]string, error)
}

// RatelimitConfigRepositoryInterface defines the interface for rate limit configuration
type RatelimitConfigRepositoryInterface interface {
	Get(ctx context.Context, key string) (*models.RatelimitConfig, error)
	Set(ctx context.Context, c *models.RatelimitConfig) error
}

// Ensure concrete types implement the interfaces
var (
	_ InteractionRepositoryInterface     = (*InteractionRepository)(nil)
	_ UserActivityRepositoryInterface    = (*UserActivityRepository)(nil)
	_ PreferencesRepositoryInterface     = (*PreferencesRepository)(nil)
	_ CandidateRepositoryInterface       = (*CandidateRepository)(nil)
	_ RatelimitConfigRepositoryInterface = (*RatelimitConfigRepository)(nil)
)
