// Package session tracks, per client session, whether the signed-in user's preferences
// have been loaded, and tears that state down on logout.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/benvon/smartmatch/internal/apperr"
	"github.com/benvon/smartmatch/internal/logger"
	"github.com/benvon/smartmatch/internal/models"
	"go.uber.org/zap"
)

// State is the hydration state of a session
type State int

const (
	StateUninitialized State = iota
	StateHydrating
	StateHydrated
	StateReset
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateHydrating:
		return "hydrating"
	case StateHydrated:
		return "hydrated"
	case StateReset:
		return "reset"
	default:
		return "unknown"
	}
}

// PreferenceLoader reads stored preferences. A nil result with a nil error means the
// user has none.
type PreferenceLoader interface {
	GetUserPreferences(ctx context.Context, userID string) (*models.Preferences, error)
}

// CacheResetter drops a user's cached recommendations
type CacheResetter interface {
	Reset(userID string)
}

// ResetHook is called after a session has been reset for userID
type ResetHook func(sessionID, userID string)

// Controller is the hydration state machine for one session:
//
//	Uninitialized -> Hydrating -> Hydrated(user)
//	Hydrated(user) -> Hydrating          when a different user is observed
//	any -> Reset                         on logout
//	Reset -> Uninitialized               on the next observed user
//
// Preferences are loaded at most once per user between resets. A load that fails or finds
// nothing hydrates the session with default preferences. A load that finishes after a
// reset is discarded.
type Controller struct {
	sessionID string
	loader    PreferenceLoader
	store     *PreferenceStore
	cache     CacheResetter
	onReset   ResetHook
	timeout   time.Duration
	log       *zap.Logger

	mu       sync.Mutex
	state    State
	userID   string
	epoch    uint64
	loadDone chan struct{}
}

// NewController creates a controller for sessionID. onReset may be nil.
func NewController(sessionID string, loader PreferenceLoader, store *PreferenceStore, cache CacheResetter, onReset ResetHook, timeout time.Duration, log *zap.Logger) *Controller {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Controller{
		sessionID: sessionID,
		loader:    loader,
		store:     store,
		cache:     cache,
		onReset:   onReset,
		timeout:   timeout,
		log:       logger.OrNop(log),
	}
}

// Observe is called whenever the session is seen authenticated as userID. The first call
// for a user loads preferences; later calls return immediately once hydrated, or wait for
// the running load.
func (c *Controller) Observe(ctx context.Context, userID string) error {
	if userID == "" {
		return apperr.ErrUnauthenticated
	}

	c.mu.Lock()
	var switched string
	if c.userID != "" && c.userID != userID {
		switched = c.userID
		c.resetLocked()
	}
	if c.state == StateReset {
		c.state = StateUninitialized
	}

	switch c.state {
	case StateHydrated:
		if _, ok := c.store.Preferences(userID); ok {
			c.mu.Unlock()
			return nil
		}
		// The entry is missing only if the store was cleared underneath this session.
	case StateHydrating:
		done := c.loadDone
		c.mu.Unlock()
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	c.state = StateHydrating
	if c.userID != userID {
		c.store.Acquire(userID)
	}
	c.userID = userID
	epoch := c.epoch
	done := make(chan struct{})
	c.loadDone = done

	if _, ok := c.store.Preferences(userID); ok {
		c.state = StateHydrated
		close(done)
		c.mu.Unlock()
		c.afterSwitch(switched)
		return nil
	}
	c.mu.Unlock()
	c.afterSwitch(switched)

	prefs := c.load(ctx, userID)

	c.mu.Lock()
	if c.epoch == epoch {
		c.store.Put(prefs)
		c.state = StateHydrated
		c.log.Debug("session_hydrated",
			zap.String("session_id", logger.SanitizeUserID(c.sessionID)),
			logger.UserID(userID),
		)
	} else {
		c.log.Debug("hydration_discarded_after_reset", logger.UserID(userID))
	}
	close(done)
	c.mu.Unlock()
	return nil
}

// Logout resets the session and discards any load still in flight. The user's preferences
// and cached recommendations are dropped unless another session of the same user is live.
func (c *Controller) Logout() {
	c.mu.Lock()
	prev := c.userID
	c.resetLocked()
	c.mu.Unlock()
	c.afterSwitch(prev)
}

// Ready reports whether the session is hydrated for userID
func (c *Controller) Ready(userID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateHydrated || c.userID != userID {
		return false
	}
	_, ok := c.store.Preferences(userID)
	return ok
}

// State returns the current state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// UserID returns the user the session is hydrating or hydrated for
func (c *Controller) UserID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID
}

func (c *Controller) load(ctx context.Context, userID string) *models.Preferences {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	prefs, err := c.loader.GetUserPreferences(ctx, userID)
	if err != nil {
		c.log.Warn("failed_to_load_preferences_using_defaults",
			logger.UserID(userID),
			zap.Bool("transient", apperr.IsTransient(err)),
			zap.Error(err),
		)
		return models.DefaultPreferences(userID)
	}
	if prefs == nil {
		return models.DefaultPreferences(userID)
	}
	prefs = prefs.Clone()
	prefs.UserID = userID
	return prefs
}

// resetLocked moves to Reset and releases the current user. Preferences and the cache
// entry are dropped once no other session of that user remains.
func (c *Controller) resetLocked() {
	if c.userID != "" && c.store.Release(c.userID) {
		c.cache.Reset(c.userID)
	}
	c.epoch++
	c.userID = ""
	c.state = StateReset
}

func (c *Controller) afterSwitch(prevUserID string) {
	if prevUserID == "" {
		return
	}
	c.log.Info("session_reset",
		zap.String("session_id", logger.SanitizeUserID(c.sessionID)),
		logger.UserID(prevUserID),
	)
	if c.onReset != nil {
		c.onReset(c.sessionID, prevUserID)
	}
}
