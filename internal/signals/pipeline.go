// Package signals is the entry point to the signal pipeline. It owns the interaction
// recorder and batcher, the presence service, the recommendation cache and the per-session
// hydration controllers, and wires them so that a like or message invalidates the actor's
// recommendations and a logout tears the session down.
package signals

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benvon/smartmatch/internal/apperr"
	"github.com/benvon/smartmatch/internal/config"
	"github.com/benvon/smartmatch/internal/interactions"
	"github.com/benvon/smartmatch/internal/logger"
	"github.com/benvon/smartmatch/internal/models"
	"github.com/benvon/smartmatch/internal/presence"
	"github.com/benvon/smartmatch/internal/recommendations"
	"github.com/benvon/smartmatch/internal/session"
	"github.com/benvon/smartmatch/internal/validation"
	"go.uber.org/zap"
)

// PreferenceRepository loads and stores user preferences
type PreferenceRepository interface {
	session.PreferenceLoader
	UpsertUserPreferences(ctx context.Context, prefs *models.Preferences) error
}

// Deps are the collaborators the pipeline consumes.
type Deps struct {
	// Sink persists like, message and profile_click immediately.
	Sink interactions.Sink
	// ViewSink receives batched views. Defaults to Sink.
	ViewSink    interactions.Sink
	Activity    presence.ActivityReader
	Channels    presence.ChannelService
	Preferences PreferenceRepository
	Scorer      recommendations.Scorer
}

// Pipeline exposes the session-scoped operations of the signal pipeline.
type Pipeline struct {
	recorder *interactions.Recorder
	batcher  *interactions.Batcher
	presence *presence.Service
	cache    *recommendations.Cache
	store    *session.PreferenceStore
	sessions *session.Registry
	prefs    PreferenceRepository
	timeout  time.Duration
	log      *zap.Logger
}

// New wires a pipeline from deps using the tunables in cfg.
func New(deps Deps, cfg config.PipelineConfig, log *zap.Logger) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch {
	case deps.Sink == nil:
		return nil, apperr.Configuration("interaction sink is required")
	case deps.Activity == nil:
		return nil, apperr.Configuration("activity reader is required")
	case deps.Channels == nil:
		return nil, apperr.Configuration("channel service is required")
	case deps.Preferences == nil:
		return nil, apperr.Configuration("preference repository is required")
	case deps.Scorer == nil:
		return nil, apperr.Configuration("scorer is required")
	}
	if deps.ViewSink == nil {
		deps.ViewSink = deps.Sink
	}
	log = logger.OrNop(log)

	store := session.NewPreferenceStore()
	cache := recommendations.NewCache(deps.Scorer, store, log.Named("recommendations"),
		recommendations.WithTTL(cfg.RecommendationTTL),
		recommendations.WithComputeTimeout(cfg.IOTimeout),
		recommendations.WithPageSizes(cfg.DefaultPageSize, cfg.MaxPageSize),
	)
	batcher := interactions.NewBatcher(deps.ViewSink, log.Named("batcher"),
		interactions.WithFlushInterval(cfg.BatchFlushInterval),
		interactions.WithMaxBatchSize(cfg.BatchMaxSize),
		interactions.WithSubmitTimeout(cfg.IOTimeout),
	)
	recorder := interactions.NewRecorder(deps.Sink, batcher, cache, log.Named("recorder"),
		interactions.WithTimeout(cfg.IOTimeout),
	)
	resolver := presence.NewResolver(presence.WithGraceWindow(cfg.PresenceGraceWindow))
	presenceSvc := presence.NewService(resolver, deps.Channels, deps.Activity, cfg.PresenceChannel, cfg.IOTimeout, log.Named("presence"))

	sessions := session.NewRegistry(deps.Preferences, store, cache, func(sessionID, _ string) {
		recorder.ForgetSession(sessionID)
	}, cfg.IOTimeout, log.Named("session"))

	return &Pipeline{
		recorder: recorder,
		batcher:  batcher,
		presence: presenceSvc,
		cache:    cache,
		store:    store,
		sessions: sessions,
		prefs:    deps.Preferences,
		timeout:  cfg.IOTimeout,
		log:      log,
	}, nil
}

// RecordInteraction records one interaction by the caller. It never fails: anonymous callers
// and persistence errors are logged and dropped.
func (p *Pipeline) RecordInteraction(ctx context.Context, id models.Identity, targetID string, kind models.InteractionKind) {
	p.recorder.Record(ctx, models.InteractionEvent{
		ActorID:   id.UserID,
		TargetID:  targetID,
		Kind:      kind,
		SessionID: id.SessionID,
		Timestamp: time.Now().UTC(),
	})
}

// GetPresence resolves the presence label for userID
func (p *Pipeline) GetPresence(ctx context.Context, userID string) (models.PresenceState, error) {
	return p.presence.GetPresence(ctx, userID)
}

// GetPresenceMany resolves presence for several users, in input order
func (p *Pipeline) GetPresenceMany(ctx context.Context, userIDs []string) ([]models.PresenceState, error) {
	return p.presence.GetPresenceMany(ctx, userIDs)
}

// GetRecommendations returns one page of the caller's recommendations. The session must be
// hydrated for the caller. When the list could not be refreshed the previous one is paged,
// marked Stale, and returned with an error wrapping apperr.ErrRefreshFailed. A full page
// triggers an opportunistic prefetch of the next one.
func (p *Pipeline) GetRecommendations(ctx context.Context, id models.Identity, page, pageSize int) (models.RecommendationPage, error) {
	if !id.Authenticated() {
		return models.RecommendationPage{}, apperr.ErrUnauthenticated
	}
	ctrl, ok := p.sessions.Lookup(id.SessionID)
	if !ok || !ctrl.Ready(id.UserID) {
		return models.RecommendationPage{}, apperr.ErrNotHydrated
	}

	result, err := p.cache.Page(ctx, id.UserID, page, pageSize)
	if err != nil && !errors.Is(err, apperr.ErrRefreshFailed) {
		return result, err
	}

	if len(result.Items) == result.PageSize {
		go p.cache.Prefetch(context.WithoutCancel(ctx), id.UserID, result.Page, result.PageSize, len(result.Items))
	}
	return result, err
}

// OnLogin hydrates the caller's session. It returns once preferences are loaded, or with
// defaults if the load failed.
func (p *Pipeline) OnLogin(ctx context.Context, id models.Identity) error {
	if !id.Authenticated() {
		return apperr.ErrUnauthenticated
	}
	if id.SessionID == "" {
		return apperr.Configuration("session id is required")
	}
	return p.sessions.Controller(id.SessionID).Observe(ctx, id.UserID)
}

// OnLogout resets the caller's session: preferences, cached recommendations, pagination and
// click dedup state are dropped.
func (p *Pipeline) OnLogout(id models.Identity) {
	if id.SessionID == "" {
		return
	}
	p.sessions.End(id.SessionID)
}

// SessionState reports the hydration state of the caller's session
func (p *Pipeline) SessionState(id models.Identity) session.State {
	ctrl, ok := p.sessions.Lookup(id.SessionID)
	if !ok {
		return session.StateUninitialized
	}
	return ctrl.State()
}

// UpdatePreferences stores new preferences for the caller. A preference change resets the
// caller's recommendations.
func (p *Pipeline) UpdatePreferences(ctx context.Context, id models.Identity, prefs *models.Preferences) (*models.Preferences, error) {
	if !id.Authenticated() {
		return nil, apperr.ErrUnauthenticated
	}
	if err := validation.ValidatePreferences(prefs); err != nil {
		return nil, err
	}
	updated := prefs.Clone()
	updated.UserID = id.UserID
	updated.UpdatedAt = time.Now().UTC()

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if err := p.prefs.UpsertUserPreferences(ctx, updated); err != nil {
		return nil, fmt.Errorf("failed to update preferences: %w", err)
	}

	p.store.Replace(updated)
	p.cache.Reset(id.UserID)
	p.log.Info("preferences_updated", logger.UserID(id.UserID))
	return updated, nil
}

// Preferences returns the hydrated preferences for userID
func (p *Pipeline) Preferences(userID string) (*models.Preferences, bool) {
	return p.store.Preferences(userID)
}

// SweepRecommendations drops expired recommendation entries
func (p *Pipeline) SweepRecommendations() int {
	return p.cache.Sweep(time.Now())
}

// ExpireSessions ends sessions idle for at least idle. Click dedup state idle as long is
// dropped too, whether or not its session ever logged in.
func (p *Pipeline) ExpireSessions(idle time.Duration) int {
	expired := p.sessions.ExpireIdle(idle)
	if n := p.recorder.ExpireIdleClicks(idle); n > 0 {
		p.log.Debug("click_dedup_expired", zap.Int("scopes", n))
	}
	return expired
}

// Shutdown flushes pending view batches.
func (p *Pipeline) Shutdown(ctx context.Context) error {
	if err := p.batcher.Close(ctx); err != nil && !errors.Is(err, interactions.ErrBatcherClosed) {
		return fmt.Errorf("failed to flush view batches: %w", err)
	}
	return nil
}

// Stats is a point-in-time snapshot of pipeline state
type Stats struct {
	CachedRecommendations int `json:"cached_recommendations"`
	HydratedUsers         int `json:"hydrated_users"`
	Sessions              int `json:"sessions"`
	OpenViewWindows       int `json:"open_view_windows"`
}

// Stats returns a snapshot of pipeline state
func (p *Pipeline) Stats() Stats {
	return Stats{
		CachedRecommendations: p.cache.Len(),
		HydratedUsers:         p.store.Len(),
		Sessions:              p.sessions.Len(),
		OpenViewWindows:       p.batcher.Pending(),
	}
}
