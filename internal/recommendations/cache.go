// Package recommendations caches each user's ranked candidate list and decides when it
// must be recomputed.
package recommendations

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benvon/smartmatch/internal/apperr"
	"github.com/benvon/smartmatch/internal/logger"
	"github.com/benvon/smartmatch/internal/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultTTL is how long a computed list stays fresh
	DefaultTTL = 10 * time.Minute
	// DefaultComputeTimeout bounds a single scorer call
	DefaultComputeTimeout = 5 * time.Second
	// DefaultPageSize is used when a caller asks for a non-positive page size
	DefaultPageSize = 20
	// DefaultMaxPageSize caps the page size a caller may request
	DefaultMaxPageSize = 100
)

// Scorer ranks candidates for a user under the given preferences.
type Scorer interface {
	ComputeCandidates(ctx context.Context, userID string, prefs *models.Preferences) ([]string, error)
}

// PreferenceSource returns the hydrated preferences for a user, if any.
type PreferenceSource interface {
	Preferences(userID string) (*models.Preferences, bool)
}

type entry struct {
	items      []string
	computedAt time.Time
	dirty      bool
}

// generation tracks changes to a user's entry while a recompute is in flight. Reset
// discards the generation, so a computation that started earlier can tell it must not
// store its result. Only the most recently started computation may overwrite the entry.
type generation struct {
	invalidations uint64
	inflight      int
	storedSeq     uint64
}

// Cache holds one candidate list per user. Concurrent readers of a missing, dirty or
// expired entry share a single recompute.
type Cache struct {
	scorer      Scorer
	prefs       PreferenceSource
	ttl         time.Duration
	timeout     time.Duration
	pageSize    int
	maxPageSize int
	now         func() time.Time
	tracer      trace.Tracer
	log         *zap.Logger

	mu         sync.Mutex
	seq        uint64
	entries    map[string]*entry
	gens       map[string]*generation
	prefetched map[string]map[int]struct{}

	flights singleflight.Group
}

// Option configures a Cache
type Option func(*Cache)

// WithTTL sets how long a computed list is served without recomputing
func WithTTL(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.ttl = d
		}
	}
}

// WithComputeTimeout bounds each scorer call
func WithComputeTimeout(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithPageSizes sets the default and maximum page size
func WithPageSizes(def, max int) Option {
	return func(c *Cache) {
		if def > 0 {
			c.pageSize = def
		}
		if max > 0 {
			c.maxPageSize = max
		}
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// NewCache creates a recommendation cache backed by scorer. prefs gates computation:
// a user without hydrated preferences is never scored.
func NewCache(scorer Scorer, prefs PreferenceSource, log *zap.Logger, opts ...Option) *Cache {
	c := &Cache{
		scorer:      scorer,
		prefs:       prefs,
		ttl:         DefaultTTL,
		timeout:     DefaultComputeTimeout,
		pageSize:    DefaultPageSize,
		maxPageSize: DefaultMaxPageSize,
		now:         time.Now,
		tracer:      otel.Tracer("github.com/benvon/smartmatch/internal/recommendations"),
		log:         logger.OrNop(log),
		entries:     make(map[string]*entry),
		gens:        make(map[string]*generation),
		prefetched:  make(map[string]map[int]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the user's candidate list. A fresh entry is returned as is. A missing, dirty
// or expired entry is recomputed; when that fails and a previous list exists, the previous
// list is returned together with an error wrapping apperr.ErrRefreshFailed.
func (c *Cache) Get(ctx context.Context, userID string) ([]string, error) {
	if userID == "" {
		return nil, apperr.Configuration("recommendations requested without a user id")
	}

	c.mu.Lock()
	if e, ok := c.entries[userID]; ok && c.freshLocked(e) {
		items := cloneItems(e.items)
		c.mu.Unlock()
		return items, nil
	}
	c.mu.Unlock()

	ch := c.flights.DoChan(userID, func() (any, error) {
		return c.recompute(userID)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return c.fallback(userID, res.Err)
		}
		return cloneItems(res.Val.([]string)), nil
	case <-ctx.Done():
		return c.fallback(userID, ctx.Err())
	}
}

// Invalidate marks the user's entry dirty so the next Get recomputes it. It is safe to call
// for users with no entry. A computation already in flight keeps answering the callers that
// joined it, but later callers start a new one instead of receiving its result.
func (c *Cache) Invalidate(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[userID]; ok {
		e.dirty = true
	}
	c.generationLocked(userID).invalidations++
	c.flights.Forget(userID)
}

// Reset removes the user's entry and pagination state. A computation already in flight
// will still answer its waiters but will not repopulate the entry.
func (c *Cache) Reset(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, userID)
	delete(c.gens, userID)
	delete(c.prefetched, userID)
	c.flights.Forget(userID)
}

// Page returns one page of the user's list. page is 1-based. A stale list is still paged
// and the returned page is marked Stale alongside the ErrRefreshFailed error.
func (c *Cache) Page(ctx context.Context, userID string, page, pageSize int) (models.RecommendationPage, error) {
	page, pageSize = c.normalizePage(page, pageSize)

	items, err := c.Get(ctx, userID)
	if err != nil && !errors.Is(err, apperr.ErrRefreshFailed) {
		return models.RecommendationPage{}, err
	}

	start := (page - 1) * pageSize
	if start > len(items) {
		start = len(items)
	}
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}

	return models.RecommendationPage{
		Items:    items[start:end],
		Page:     page,
		PageSize: pageSize,
		HasMore:  end < len(items),
		Stale:    err != nil,
	}, err
}

// Prefetch warms page+1 after a caller received returned items for page. It is skipped when
// returned is smaller than pageSize, since a short page means the list is exhausted, and
// when page+1 was already prefetched since the last reset. Reports whether it ran.
func (c *Cache) Prefetch(ctx context.Context, userID string, page, pageSize, returned int) bool {
	page, pageSize = c.normalizePage(page, pageSize)
	if returned < pageSize {
		return false
	}

	next := page + 1
	c.mu.Lock()
	pages, ok := c.prefetched[userID]
	if !ok {
		pages = make(map[int]struct{})
		c.prefetched[userID] = pages
	}
	if _, done := pages[next]; done {
		c.mu.Unlock()
		return false
	}
	pages[next] = struct{}{}
	c.mu.Unlock()

	if _, err := c.Page(ctx, userID, next, pageSize); err != nil && !errors.Is(err, apperr.ErrRefreshFailed) {
		c.log.Debug("recommendation_prefetch_failed", logger.UserID(userID), zap.Int("page", next), zap.Error(err))
	}
	return true
}

// Sweep drops entries computed at least one TTL before now and returns how many it removed.
// Bookkeeping for users with neither an entry nor a running computation goes with them.
func (c *Cache) Sweep(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for userID, e := range c.entries {
		if now.Sub(e.computedAt) >= c.ttl {
			delete(c.entries, userID)
			delete(c.prefetched, userID)
			removed++
		}
	}
	for userID, gen := range c.gens {
		if _, ok := c.entries[userID]; !ok && gen.inflight == 0 {
			delete(c.gens, userID)
		}
	}
	return removed
}

// Len returns the number of cached entries
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) recompute(userID string) ([]string, error) {
	prefs, ok := c.prefs.Preferences(userID)
	if !ok || prefs == nil {
		return nil, apperr.ErrNotHydrated
	}

	c.mu.Lock()
	gen := c.generationLocked(userID)
	startInvalidations := gen.invalidations
	gen.inflight++
	c.seq++
	seq := c.seq
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		gen.inflight--
		c.mu.Unlock()
	}()

	// Waiters may give up early; the computation runs to its own deadline so the result
	// can still be stored for the next reader.
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	ctx, span := c.tracer.Start(ctx, "recommendations.recompute",
		trace.WithAttributes(attribute.String("user_id", logger.SanitizeUserID(userID))))
	defer span.End()

	started := c.now()
	items, err := c.scorer.ComputeCandidates(ctx, userID, prefs.Clone())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "compute candidates failed")
		c.log.Warn("failed_to_compute_recommendations",
			logger.UserID(userID),
			zap.Duration("elapsed", c.now().Sub(started)),
			zap.Error(err),
		)
		return nil, apperr.Transient("compute candidates", err)
	}
	items = cloneItems(items)
	span.SetAttributes(attribute.Int("candidates", len(items)))

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[userID] != gen {
		c.log.Debug("recommendations_discarded_after_reset", logger.UserID(userID))
		return items, nil
	}
	if seq < gen.storedSeq {
		c.log.Debug("recommendations_discarded_as_superseded", logger.UserID(userID))
		return items, nil
	}
	gen.storedSeq = seq
	c.entries[userID] = &entry{
		items:      items,
		computedAt: c.now(),
		dirty:      gen.invalidations != startInvalidations,
	}
	delete(c.prefetched, userID)
	return items, nil
}

// fallback serves the previous list after a failed recompute.
func (c *Cache) fallback(userID string, err error) ([]string, error) {
	if errors.Is(err, apperr.ErrNotHydrated) {
		return nil, err
	}
	c.mu.Lock()
	e, ok := c.entries[userID]
	var items []string
	if ok {
		items = cloneItems(e.items)
	}
	c.mu.Unlock()

	if !ok {
		return nil, err
	}
	return items, fmt.Errorf("%w: %w", apperr.ErrRefreshFailed, err)
}

func (c *Cache) freshLocked(e *entry) bool {
	return !e.dirty && c.now().Sub(e.computedAt) < c.ttl
}

func (c *Cache) generationLocked(userID string) *generation {
	g, ok := c.gens[userID]
	if !ok {
		g = &generation{}
		c.gens[userID] = g
	}
	return g
}

func (c *Cache) normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = c.pageSize
	}
	if pageSize > c.maxPageSize {
		pageSize = c.maxPageSize
	}
	return page, pageSize
}

func cloneItems(items []string) []string {
	if items == nil {
		return []string{}
	}
	return append([]string(nil), items...)
}
