package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/benvon/smartmatch/internal/logger"
	"github.com/benvon/smartmatch/internal/request"
	"go.uber.org/zap"
)

// ActivityToucher records that a user was active
type ActivityToucher interface {
	Touch(ctx context.Context, userID string, at time.Time) error
}

// DefaultActivityInterval is the minimum spacing between activity writes per user
const DefaultActivityInterval = time.Minute

// ActivityTracker updates user_activity for authenticated API calls. Writes are
// throttled per user so a burst of requests costs one update.
type ActivityTracker struct {
	activity ActivityToucher
	interval time.Duration
	timeout  time.Duration
	now      func() time.Time
	log      *zap.Logger

	mu       sync.Mutex
	lastSeen map[string]time.Time
}

// NewActivityTracker creates a new activity tracker
func NewActivityTracker(activity ActivityToucher, interval, timeout time.Duration, log *zap.Logger) *ActivityTracker {
	if interval <= 0 {
		interval = DefaultActivityInterval
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &ActivityTracker{
		activity: activity,
		interval: interval,
		timeout:  timeout,
		now:      time.Now,
		log:      logger.OrNop(log),
		lastSeen: make(map[string]time.Time),
	}
}

// Middleware returns the tracking middleware. The write runs in the background and
// never fails the request.
func (at *ActivityTracker) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if id := request.IdentityFromContext(r); id.Authenticated() {
				if now, ok := at.due(id.UserID); ok {
					go at.touch(context.WithoutCancel(r.Context()), id.UserID, now)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (at *ActivityTracker) due(userID string) (time.Time, bool) {
	now := at.now()
	at.mu.Lock()
	defer at.mu.Unlock()
	if last, ok := at.lastSeen[userID]; ok && now.Sub(last) < at.interval {
		return now, false
	}
	at.lastSeen[userID] = now
	return now, true
}

func (at *ActivityTracker) touch(ctx context.Context, userID string, now time.Time) {
	ctx, cancel := context.WithTimeout(ctx, at.timeout)
	defer cancel()
	if err := at.activity.Touch(ctx, userID, now); err != nil {
		at.log.Warn("failed_to_update_user_activity", logger.UserID(userID), zap.Error(err))
	}
}

// Prune drops throttle entries older than the interval. Returns how many were removed.
func (at *ActivityTracker) Prune() int {
	now := at.now()
	at.mu.Lock()
	defer at.mu.Unlock()
	removed := 0
	for userID, last := range at.lastSeen {
		if now.Sub(last) >= at.interval {
			delete(at.lastSeen, userID)
			removed++
		}
	}
	return removed
}
