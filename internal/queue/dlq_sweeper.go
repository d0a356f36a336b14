package queue

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/benvon/smartmatch/internal/logger"
	"go.uber.org/zap"
)

const (
	// DefaultSweepInterval is how often dead-lettered batches are checked for expiry
	DefaultSweepInterval = time.Hour
	// DefaultDLQRetention is how long a dead-lettered batch is kept for inspection
	DefaultDLQRetention = 24 * time.Hour
)

// DLQSweeper drops interaction batches that have sat in the dead letter queue longer
// than the retention period. Each dropped batch is a set of views that was never stored.
type DLQSweeper struct {
	purger    DLQPurger
	interval  time.Duration
	retention time.Duration
	log       *zap.Logger

	dropped atomic.Int64
}

// SweeperOption configures a DLQSweeper
type SweeperOption func(*DLQSweeper)

// WithSweepInterval sets how often the sweeper runs
func WithSweepInterval(d time.Duration) SweeperOption {
	return func(s *DLQSweeper) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithRetention sets how long dead-lettered batches are kept
func WithRetention(d time.Duration) SweeperOption {
	return func(s *DLQSweeper) {
		if d > 0 {
			s.retention = d
		}
	}
}

// NewDLQSweeper creates a sweeper over purger. A nil purger makes every sweep a no-op.
func NewDLQSweeper(purger DLQPurger, log *zap.Logger, opts ...SweeperOption) *DLQSweeper {
	s := &DLQSweeper{
		purger:    purger,
		interval:  DefaultSweepInterval,
		retention: DefaultDLQRetention,
		log:       logger.OrNop(log),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run sweeps once immediately, then every interval, until ctx is cancelled.
func (s *DLQSweeper) Run(ctx context.Context) error {
	s.sweepAndLog(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.sweepAndLog(ctx)
		}
	}
}

// Sweep drops expired dead-lettered batches and returns how many it dropped. A sweep may
// not take longer than one interval.
func (s *DLQSweeper) Sweep(ctx context.Context) (int, error) {
	if s.purger == nil {
		return 0, nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.interval)
	defer cancel()
	n, err := s.purger.PurgeOlderThan(ctx, s.retention)
	s.dropped.Add(int64(n))
	if err != nil {
		return n, fmt.Errorf("failed to sweep dead-lettered batches: %w", err)
	}
	return n, nil
}

// Dropped returns the number of batches dropped since the sweeper was created
func (s *DLQSweeper) Dropped() int64 {
	return s.dropped.Load()
}

func (s *DLQSweeper) sweepAndLog(ctx context.Context) {
	n, err := s.Sweep(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.log.Warn("dlq_sweep_failed", zap.Int("dropped", n), zap.Error(err))
		}
		return
	}
	if n > 0 {
		s.log.Warn("dead_lettered_batches_dropped",
			zap.Int("count", n),
			zap.Duration("retention", s.retention),
			zap.Int64("total_dropped", s.dropped.Load()),
		)
	}
}
