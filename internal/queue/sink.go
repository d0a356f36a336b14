package queue

import (
	"context"
	"fmt"

	"github.com/benvon/smartmatch/internal/apperr"
	"github.com/benvon/smartmatch/internal/models"
)

// InteractionSink publishes interaction batches to the queue for the worker to persist.
// It satisfies the same contract as the database repository, so the pipeline can hand
// batched views to either.
type InteractionSink struct {
	queue JobQueue
}

// NewInteractionSink creates a sink publishing to queue
func NewInteractionSink(queue JobQueue) *InteractionSink {
	return &InteractionSink{queue: queue}
}

// CreateInteractions enqueues one job for the batch. The count is the number of targets
// accepted for delivery, not rows written.
func (s *InteractionSink) CreateInteractions(ctx context.Context, actorID string, targetIDs []string, kind models.InteractionKind) (int, error) {
	if len(targetIDs) == 0 {
		return 0, nil
	}
	job := NewInteractionBatchJob(actorID, targetIDs, kind)
	if err := job.Validate(); err != nil {
		return 0, fmt.Errorf("refusing to enqueue batch: %w", err)
	}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		return 0, apperr.Transient("enqueue interaction batch", err)
	}
	return len(targetIDs), nil
}
