// Package interactions records user activity events and coalesces low-value views
// into bounded batches before they reach persistence.
package interactions

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/benvon/smartmatch/internal/logger"
	"github.com/benvon/smartmatch/internal/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultFlushInterval is how long a view window stays open
	DefaultFlushInterval = 3 * time.Second
	// DefaultMaxBatchSize closes a window early once it holds this many distinct targets
	DefaultMaxBatchSize = 50
)

// ErrBatcherClosed is returned by Close when called twice
var ErrBatcherClosed = errors.New("batcher closed")

// Sink persists interactions of one kind for one actor in a single call and returns
// how many rows it wrote.
type Sink interface {
	CreateInteractions(ctx context.Context, actorID string, targetIDs []string, kind models.InteractionKind) (int, error)
}

// batchWindow is owned by Batcher and only touched under Batcher.mu.
type batchWindow struct {
	targets  map[string]struct{}
	openedAt time.Time
	timer    *time.Timer
}

// Batcher keeps one open window of distinct view targets per actor. A window closes when
// its timer fires or when it reaches the size threshold, whichever comes first, and is
// submitted to the sink as exactly one call. Flushes are never retried.
type Batcher struct {
	sink          Sink
	flushInterval time.Duration
	maxSize       int
	timeout       time.Duration
	log           *zap.Logger

	mu      sync.Mutex
	windows map[string]*batchWindow
	closed  bool

	inflight sync.WaitGroup
}

// BatcherOption configures a Batcher
type BatcherOption func(*Batcher)

// WithFlushInterval sets the window length
func WithFlushInterval(d time.Duration) BatcherOption {
	return func(b *Batcher) {
		if d > 0 {
			b.flushInterval = d
		}
	}
}

// WithMaxBatchSize sets the size threshold
func WithMaxBatchSize(n int) BatcherOption {
	return func(b *Batcher) {
		if n > 0 {
			b.maxSize = n
		}
	}
}

// WithSubmitTimeout bounds each sink call
func WithSubmitTimeout(d time.Duration) BatcherOption {
	return func(b *Batcher) {
		if d > 0 {
			b.timeout = d
		}
	}
}

// NewBatcher creates a batcher that submits view batches to sink
func NewBatcher(sink Sink, log *zap.Logger, opts ...BatcherOption) *Batcher {
	b := &Batcher{
		sink:          sink,
		flushInterval: DefaultFlushInterval,
		maxSize:       DefaultMaxBatchSize,
		timeout:       5 * time.Second,
		log:           logger.OrNop(log),
		windows:       make(map[string]*batchWindow),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Add puts targetID into actorID's open window, opening one if needed. Repeat targets
// within a window collapse to one. Add never blocks on persistence.
func (b *Batcher) Add(actorID, targetID string) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		b.log.Warn("view_dropped_batcher_closed", logger.UserID(actorID))
		return
	}

	w, ok := b.windows[actorID]
	if !ok {
		w = &batchWindow{
			targets:  make(map[string]struct{}),
			openedAt: time.Now(),
		}
		b.windows[actorID] = w
		w.timer = time.AfterFunc(b.flushInterval, func() { b.flushOnTimer(actorID, w) })
	}
	w.targets[targetID] = struct{}{}

	if len(w.targets) < b.maxSize {
		b.mu.Unlock()
		return
	}

	// Size threshold reached: swap the window out before submitting it.
	delete(b.windows, actorID)
	w.timer.Stop()
	b.inflight.Add(1)
	b.mu.Unlock()

	go func() {
		defer b.inflight.Done()
		b.submit(context.Background(), actorID, w)
	}()
}

// flushOnTimer closes w if it is still the actor's open window. A window already swapped
// out by the size threshold or by Close is left alone, so nothing is submitted twice.
func (b *Batcher) flushOnTimer(actorID string, w *batchWindow) {
	b.mu.Lock()
	if b.windows[actorID] != w {
		b.mu.Unlock()
		return
	}
	delete(b.windows, actorID)
	b.inflight.Add(1)
	b.mu.Unlock()

	defer b.inflight.Done()
	b.submit(context.Background(), actorID, w)
}

// Pending returns the number of open windows
func (b *Batcher) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.windows)
}

// Close flushes every open window, waits for in-flight submissions and rejects further adds.
func (b *Batcher) Close(ctx context.Context) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrBatcherClosed
	}
	b.closed = true
	open := b.windows
	b.windows = make(map[string]*batchWindow)
	for _, w := range open {
		w.timer.Stop()
	}
	b.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for actorID, w := range open {
		actorID, w := actorID, w
		g.Go(func() error {
			b.submit(gctx, actorID, w)
			return nil
		})
	}
	_ = g.Wait()

	done := make(chan struct{})
	go func() {
		b.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Batcher) submit(ctx context.Context, actorID string, w *batchWindow) {
	targets := make([]string, 0, len(w.targets))
	for id := range w.targets {
		targets = append(targets, id)
	}
	sort.Strings(targets)

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	n, err := b.sink.CreateInteractions(ctx, actorID, targets, models.InteractionView)
	if err != nil {
		b.log.Warn("failed_to_flush_view_batch",
			logger.UserID(actorID),
			zap.Int("targets", len(targets)),
			zap.Duration("window_age", time.Since(w.openedAt)),
			zap.Error(err),
		)
		return
	}
	b.log.Debug("flushed_view_batch",
		logger.UserID(actorID),
		zap.Int("targets", len(targets)),
		zap.Int("written", n),
	)
}
