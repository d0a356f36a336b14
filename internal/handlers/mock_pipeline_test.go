package handlers

import (
	"context"
	"net/http"
	"sync"

	"github.com/benvon/smartmatch/internal/middleware"
	"github.com/benvon/smartmatch/internal/models"
	"github.com/benvon/smartmatch/internal/session"
	"github.com/gorilla/mux"
)

type recordedInteraction struct {
	id       models.Identity
	targetID string
	kind     models.InteractionKind
}

type mockPipeline struct {
	mu           sync.Mutex
	interactions []recordedInteraction
	logouts      []models.Identity

	getPresenceFunc        func(ctx context.Context, userID string) (models.PresenceState, error)
	getPresenceManyFunc    func(ctx context.Context, userIDs []string) ([]models.PresenceState, error)
	getRecommendationsFunc func(ctx context.Context, id models.Identity, page, pageSize int) (models.RecommendationPage, error)
	onLoginFunc            func(ctx context.Context, id models.Identity) error
	sessionStateFunc       func(id models.Identity) session.State
	updatePreferencesFunc  func(ctx context.Context, id models.Identity, prefs *models.Preferences) (*models.Preferences, error)
	preferencesFunc        func(userID string) (*models.Preferences, bool)
}

func (m *mockPipeline) RecordInteraction(ctx context.Context, id models.Identity, targetID string, kind models.InteractionKind) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.interactions = append(m.interactions, recordedInteraction{id: id, targetID: targetID, kind: kind})
}

func (m *mockPipeline) recorded() []recordedInteraction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]recordedInteraction(nil), m.interactions...)
}

func (m *mockPipeline) GetPresence(ctx context.Context, userID string) (models.PresenceState, error) {
	if m.getPresenceFunc != nil {
		return m.getPresenceFunc(ctx, userID)
	}
	return models.PresenceState{UserID: userID, LastSeenLabel: "unknown"}, nil
}

func (m *mockPipeline) GetPresenceMany(ctx context.Context, userIDs []string) ([]models.PresenceState, error) {
	if m.getPresenceManyFunc != nil {
		return m.getPresenceManyFunc(ctx, userIDs)
	}
	states := make([]models.PresenceState, len(userIDs))
	for i, userID := range userIDs {
		states[i] = models.PresenceState{UserID: userID, LastSeenLabel: "unknown"}
	}
	return states, nil
}

func (m *mockPipeline) GetRecommendations(ctx context.Context, id models.Identity, page, pageSize int) (models.RecommendationPage, error) {
	if m.getRecommendationsFunc != nil {
		return m.getRecommendationsFunc(ctx, id, page, pageSize)
	}
	return models.RecommendationPage{Page: page, PageSize: pageSize}, nil
}

func (m *mockPipeline) OnLogin(ctx context.Context, id models.Identity) error {
	if m.onLoginFunc != nil {
		return m.onLoginFunc(ctx, id)
	}
	return nil
}

func (m *mockPipeline) OnLogout(id models.Identity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logouts = append(m.logouts, id)
}

func (m *mockPipeline) SessionState(id models.Identity) session.State {
	if m.sessionStateFunc != nil {
		return m.sessionStateFunc(id)
	}
	return session.StateUninitialized
}

func (m *mockPipeline) UpdatePreferences(ctx context.Context, id models.Identity, prefs *models.Preferences) (*models.Preferences, error) {
	if m.updatePreferencesFunc != nil {
		return m.updatePreferencesFunc(ctx, id, prefs)
	}
	return prefs, nil
}

func (m *mockPipeline) Preferences(userID string) (*models.Preferences, bool) {
	if m.preferencesFunc != nil {
		return m.preferencesFunc(userID)
	}
	return nil, false
}

// newTestRouter mounts every handler the way the server does, behind the identity middleware
func newTestRouter(p SignalPipeline) http.Handler {
	r := mux.NewRouter()
	r.Use(middleware.Identity)
	api := r.PathPrefix("/api/v1").Subrouter()
	NewInteractionHandler(p).RegisterRoutes(api.PathPrefix("/interactions").Subrouter())
	NewPresenceHandler(p, nil).RegisterRoutes(api.PathPrefix("/presence").Subrouter())
	NewRecommendationHandler(p, nil).RegisterRoutes(api.PathPrefix("/recommendations").Subrouter())
	NewSessionHandler(p).RegisterRoutes(api.PathPrefix("/session").Subrouter())
	NewPreferenceHandler(p).RegisterRoutes(api.PathPrefix("/preferences").Subrouter())
	return r
}

func withIdentity(req *http.Request, userID, sessionID string) *http.Request {
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	if sessionID != "" {
		req.Header.Set("X-Session-ID", sessionID)
	}
	return req
}
