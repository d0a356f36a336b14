// Package presence derives online/offline state and a human-readable "last seen"
// label from channel membership and the last recorded activity.
package presence

import (
	"fmt"
	"time"

	"github.com/benvon/smartmatch/internal/models"
)

const (
	// DefaultGraceWindow absorbs transient disconnects such as a tab reload.
	DefaultGraceWindow = 5 * time.Minute

	// LabelNow is shown for online users
	LabelNow = "now"
	// LabelUnknown is shown when the user has never been seen
	LabelUnknown = "unknown"
	// LabelYesterday is shown for activity a day or more ago that fell on the previous calendar day
	LabelYesterday = "yesterday"

	dateLabelLayout = "Jan 2, 2006"
)

// Resolver maps (membership, last activity) to a PresenceState. It holds no mutable
// state and is safe to call at any frequency; results are never cached.
type Resolver struct {
	grace time.Duration
	now   func() time.Time
}

// Option configures a Resolver
type Option func(*Resolver)

// WithGraceWindow overrides the grace window
func WithGraceWindow(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.grace = d
		}
	}
}

// WithClock overrides the time source, mainly for tests
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) {
		if now != nil {
			r.now = now
		}
	}
}

// NewResolver creates a resolver
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{grace: DefaultGraceWindow, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve computes the presence of userID.
//
// A user who left the channel within the grace window is still reported online. This is
// the only reconciliation between membership and lastActiveAt: a just-closed tab reports
// member=false with a very recent lastActiveAt, and the grace window hides that gap.
func (r *Resolver) Resolve(userID string, isChannelMember bool, lastActiveAt *time.Time) models.PresenceState {
	state := models.PresenceState{UserID: userID}

	if isChannelMember {
		state.IsOnline = true
		state.LastSeenLabel = LabelNow
		return state
	}

	if lastActiveAt == nil || lastActiveAt.IsZero() {
		state.LastSeenLabel = LabelUnknown
		return state
	}

	now := r.now()
	elapsed := now.Sub(*lastActiveAt)
	if elapsed < 0 {
		elapsed = 0
	}

	if elapsed < r.grace {
		state.IsOnline = true
		state.LastSeenLabel = LabelNow
		return state
	}

	state.LastSeenLabel = lastSeenLabel(now, *lastActiveAt, elapsed)
	return state
}

func lastSeenLabel(now, seen time.Time, elapsed time.Duration) string {
	switch {
	case elapsed < time.Hour:
		return plural(int(elapsed/time.Minute), "minute")
	case elapsed < 24*time.Hour:
		return plural(int(elapsed/time.Hour), "hour")
	}

	// Day-scale labels only start after a full day, so a late-evening visit seen just
	// after midnight still reads in hours.
	seen = seen.In(now.Location())
	days := calendarDaysBetween(seen, now)
	switch {
	case days <= 1:
		return LabelYesterday
	case days <= 7:
		return plural(days, "day")
	default:
		return seen.Format(dateLabelLayout)
	}
}

// calendarDaysBetween counts midnights crossed going from a to b in b's location.
func calendarDaysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	start := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	end := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(end.Sub(start) / (24 * time.Hour))
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}
