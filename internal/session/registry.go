package session

import (
	"sync"
	"time"

	"github.com/benvon/smartmatch/internal/logger"
	"go.uber.org/zap"
)

// Registry owns one Controller per client session.
type Registry struct {
	loader  PreferenceLoader
	store   *PreferenceStore
	cache   CacheResetter
	onReset ResetHook
	timeout time.Duration
	now     func() time.Time
	log     *zap.Logger

	mu       sync.Mutex
	sessions map[string]*tracked
}

type tracked struct {
	ctrl     *Controller
	lastSeen time.Time
}

// NewRegistry creates a registry whose controllers share store and cache.
func NewRegistry(loader PreferenceLoader, store *PreferenceStore, cache CacheResetter, onReset ResetHook, timeout time.Duration, log *zap.Logger) *Registry {
	return &Registry{
		loader:   loader,
		store:    store,
		cache:    cache,
		onReset:  onReset,
		timeout:  timeout,
		now:      time.Now,
		log:      logger.OrNop(log),
		sessions: make(map[string]*tracked),
	}
}

// Controller returns the controller for sessionID, creating it on first use.
func (r *Registry) Controller(sessionID string) *Controller {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.sessions[sessionID]
	if !ok {
		t = &tracked{ctrl: NewController(sessionID, r.loader, r.store, r.cache, r.onReset, r.timeout, r.log)}
		r.sessions[sessionID] = t
	}
	t.lastSeen = r.now()
	return t.ctrl
}

// Lookup returns the controller for sessionID without creating one.
func (r *Registry) Lookup(sessionID string) (*Controller, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.sessions[sessionID]
	if !ok {
		return nil, false
	}
	t.lastSeen = r.now()
	return t.ctrl, true
}

// End logs the session out and forgets it.
func (r *Registry) End(sessionID string) {
	r.mu.Lock()
	t, ok := r.sessions[sessionID]
	delete(r.sessions, sessionID)
	r.mu.Unlock()
	if ok {
		t.ctrl.Logout()
	}
}

// ExpireIdle ends every session not seen for at least idle and returns how many it ended.
func (r *Registry) ExpireIdle(idle time.Duration) int {
	cutoff := r.now().Add(-idle)

	r.mu.Lock()
	var expired []*Controller
	for id, t := range r.sessions {
		if !t.lastSeen.After(cutoff) {
			expired = append(expired, t.ctrl)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, ctrl := range expired {
		ctrl.Logout()
	}
	if len(expired) > 0 {
		r.log.Info("expired_idle_sessions", zap.Int("count", len(expired)))
	}
	return len(expired)
}

// Len returns the number of tracked sessions
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
