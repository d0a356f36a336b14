package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/benvon/smartmatch/internal/logger"
	"github.com/benvon/smartmatch/internal/models"
	"github.com/benvon/smartmatch/internal/queue"
	"go.uber.org/zap"
)

// InteractionWriter persists a batch of interactions
type InteractionWriter interface {
	CreateInteractions(ctx context.Context, actorID string, targetIDs []string, kind models.InteractionKind) (int, error)
}

// BatchWriter persists interaction batches published by the API
type BatchWriter struct {
	repo    InteractionWriter
	timeout time.Duration
	logger  *zap.Logger
}

// NewBatchWriter creates a new batch writer
func NewBatchWriter(repo InteractionWriter, timeout time.Duration, log *zap.Logger) *BatchWriter {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &BatchWriter{
		repo:    repo,
		timeout: timeout,
		logger:  logger.OrNop(log),
	}
}

// ProcessJob writes the batch carried by msg. Batches are written once: a failed or
// invalid batch is rejected to the dead letter queue, never requeued.
func (w *BatchWriter) ProcessJob(ctx context.Context, msg queue.MessageInterface) error {
	job := msg.GetJob()

	if err := job.Validate(); err != nil {
		if nackErr := msg.Nack(false); nackErr != nil {
			w.logger.Warn("failed_to_nack_invalid_job", zap.Error(nackErr))
		}
		return fmt.Errorf("invalid job: %w", err)
	}

	writeCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	n, err := w.repo.CreateInteractions(writeCtx, job.ActorID, job.TargetIDs, job.Kind)
	if err != nil {
		if nackErr := msg.Nack(false); nackErr != nil {
			w.logger.Warn("failed_to_nack_job", zap.String("job_id", job.ID.String()), zap.Error(nackErr))
		}
		return fmt.Errorf("failed to write interaction batch: %w", err)
	}

	if ackErr := msg.Ack(); ackErr != nil {
		return fmt.Errorf("failed to ack job: %w", ackErr)
	}

	w.logger.Debug("interaction_batch_written",
		zap.String("job_id", job.ID.String()),
		logger.UserID(job.ActorID),
		zap.String("kind", string(job.Kind)),
		zap.Int("rows", n),
		zap.Duration("queue_latency", time.Since(job.CreatedAt)),
	)
	return nil
}
