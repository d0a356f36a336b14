package interactions

import (
	"context"
	"sync"
	"time"

	"github.com/benvon/smartmatch/internal/apperr"
	"github.com/benvon/smartmatch/internal/logger"
	"github.com/benvon/smartmatch/internal/models"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// ViewBatcher accepts view events for coalescing
type ViewBatcher interface {
	Add(actorID, targetID string)
}

// Invalidator marks a user's cached recommendations stale
type Invalidator interface {
	Invalidate(userID string)
}

// Recorder applies the per-kind policy to interaction events:
//
//   - view is handed to the batcher and never invalidates recommendations
//   - like and message are persisted immediately, retried once on transient failure,
//     and always invalidate the actor's recommendations
//   - profile_click is persisted once per session and target; repeats are dropped locally
//
// Record never returns an error: tracking is best effort and must not break the caller's flow.
type Recorder struct {
	sink        Sink
	views       ViewBatcher
	invalidator Invalidator
	timeout     time.Duration
	retryDelay  time.Duration
	now         func() time.Time
	log         *zap.Logger

	mu     sync.Mutex
	clicks map[string]*clickScopeState
}

// clickScopeState is the profile-click dedup set of one session.
type clickScopeState struct {
	targets  map[string]struct{}
	lastSeen time.Time
}

// RecorderOption configures a Recorder
type RecorderOption func(*Recorder)

// WithTimeout bounds each persistence attempt
func WithTimeout(d time.Duration) RecorderOption {
	return func(r *Recorder) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithRetryDelay sets the pause before the single retry
func WithRetryDelay(d time.Duration) RecorderOption {
	return func(r *Recorder) {
		if d >= 0 {
			r.retryDelay = d
		}
	}
}

// NewRecorder creates a recorder. sink receives immediate writes, views receives view
// events and invalidator is signalled for like and message.
func NewRecorder(sink Sink, views ViewBatcher, invalidator Invalidator, log *zap.Logger, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		sink:        sink,
		views:       views,
		invalidator: invalidator,
		timeout:     5 * time.Second,
		retryDelay:  200 * time.Millisecond,
		now:         time.Now,
		log:         logger.OrNop(log),
		clicks:      make(map[string]*clickScopeState),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record processes one event according to its kind's policy.
func (r *Recorder) Record(ctx context.Context, ev models.InteractionEvent) {
	if ev.ActorID == "" {
		r.log.Debug("interaction_ignored_unauthenticated", zap.String("kind", string(ev.Kind)))
		return
	}
	if ev.TargetID == "" {
		r.log.Warn("interaction_missing_target",
			logger.UserID(ev.ActorID),
			zap.String("kind", string(ev.Kind)),
		)
		return
	}

	// Persistence outlives the caller's request; it is bounded by r.timeout instead.
	ctx = context.WithoutCancel(ctx)

	switch ev.Kind {
	case models.InteractionView:
		r.views.Add(ev.ActorID, ev.TargetID)

	case models.InteractionProfileClick:
		if !r.markClicked(clickScope(ev), ev.TargetID) {
			return
		}
		if err := r.persist(ctx, ev); err != nil {
			r.logFailure(ev, err)
		}

	case models.InteractionLike, models.InteractionMessage:
		if err := r.persistWithRetry(ctx, ev); err != nil {
			r.logFailure(ev, err)
		}
		r.invalidator.Invalidate(ev.ActorID)

	default:
		r.log.Error("interaction_rejected",
			logger.UserID(ev.ActorID),
			zap.Error(apperr.Configuration("unknown interaction kind %q", logger.SanitizeString(string(ev.Kind), 64))),
		)
	}
}

// ForgetSession drops the profile-click dedup state owned by sessionID.
func (r *Recorder) ForgetSession(sessionID string) {
	r.mu.Lock()
	delete(r.clicks, sessionID)
	r.mu.Unlock()
}

// ExpireIdleClicks drops click dedup state not touched for at least idle, including scopes
// of sessions that never logged in. Returns how many scopes it dropped.
func (r *Recorder) ExpireIdleClicks(idle time.Duration) int {
	cutoff := r.now().Add(-idle)
	r.mu.Lock()
	defer r.mu.Unlock()
	expired := 0
	for scope, st := range r.clicks {
		if !st.lastSeen.After(cutoff) {
			delete(r.clicks, scope)
			expired++
		}
	}
	return expired
}

// markClicked reports whether this is the first click on targetID within scope.
func (r *Recorder) markClicked(scope, targetID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.clicks[scope]
	if !ok {
		st = &clickScopeState{targets: make(map[string]struct{})}
		r.clicks[scope] = st
	}
	st.lastSeen = r.now()
	if _, dup := st.targets[targetID]; dup {
		return false
	}
	st.targets[targetID] = struct{}{}
	return true
}

func (r *Recorder) persist(ctx context.Context, ev models.InteractionEvent) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	_, err := r.sink.CreateInteractions(ctx, ev.ActorID, []string{ev.TargetID}, ev.Kind)
	return err
}

func (r *Recorder) persistWithRetry(ctx context.Context, ev models.InteractionEvent) error {
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(r.retryDelay), 1), ctx)
	return backoff.Retry(func() error {
		err := r.persist(ctx, ev)
		if err != nil && !apperr.IsTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}, policy)
}

func (r *Recorder) logFailure(ev models.InteractionEvent, err error) {
	r.log.Warn("failed_to_persist_interaction",
		logger.UserID(ev.ActorID),
		zap.String("target_id", logger.SanitizeUserID(ev.TargetID)),
		zap.String("kind", string(ev.Kind)),
		zap.Bool("transient", apperr.IsTransient(err)),
		zap.Error(err),
	)
}

// clickScope keys profile-click dedup by session, falling back to the actor when the
// caller has no session identifier.
func clickScope(ev models.InteractionEvent) string {
	if ev.SessionID != "" {
		return ev.SessionID
	}
	return "actor:" + ev.ActorID
}
