package handlers

import (
	"context"

	"github.com/benvon/smartmatch/internal/models"
	"github.com/benvon/smartmatch/internal/session"
	"github.com/benvon/smartmatch/internal/signals"
)

// SignalPipeline is the part of the signal pipeline the HTTP layer drives
type SignalPipeline interface {
	RecordInteraction(ctx context.Context, id models.Identity, targetID string, kind models.InteractionKind)
	GetPresence(ctx context.Context, userID string) (models.PresenceState, error)
	GetPresenceMany(ctx context.Context, userIDs []string) ([]models.PresenceState, error)
	GetRecommendations(ctx context.Context, id models.Identity, page, pageSize int) (models.RecommendationPage, error)
	OnLogin(ctx context.Context, id models.Identity) error
	OnLogout(id models.Identity)
	SessionState(id models.Identity) session.State
	UpdatePreferences(ctx context.Context, id models.Identity, prefs *models.Preferences) (*models.Preferences, error)
	Preferences(userID string) (*models.Preferences, bool)
}

var _ SignalPipeline = (*signals.Pipeline)(nil)
