package queue

import (
	"fmt"
	"time"

	"github.com/benvon/smartmatch/internal/models"
	"github.com/google/uuid"
)

// JobType represents the type of job
type JobType string

const (
	// JobTypeInteractionBatch persists a batch of interactions by one actor
	JobTypeInteractionBatch JobType = "interaction_batch"
)

// Job represents a job in the queue
type Job struct {
	ID         uuid.UUID              `json:"id"`
	Type       JobType                `json:"type"`
	ActorID    string                 `json:"actor_id"`
	TargetIDs  []string               `json:"target_ids"`
	Kind       models.InteractionKind `json:"kind"`
	NotAfter   *time.Time             `json:"not_after,omitempty"` // Latest time to process job (nil = no expiration)
	CreatedAt  time.Time              `json:"created_at"`
	RetryCount int                    `json:"retry_count"`
	MaxRetries int                    `json:"max_retries"`
}

// NewInteractionBatchJob creates a job persisting targetIDs for actorID
func NewInteractionBatchJob(actorID string, targetIDs []string, kind models.InteractionKind) *Job {
	return &Job{
		ID:         uuid.New(),
		Type:       JobTypeInteractionBatch,
		ActorID:    actorID,
		TargetIDs:  append([]string(nil), targetIDs...),
		Kind:       kind,
		CreatedAt:  time.Now(),
		RetryCount: 0,
		MaxRetries: 0,
	}
}

// Validate checks the job carries everything the worker needs
func (j *Job) Validate() error {
	switch {
	case j.Type != JobTypeInteractionBatch:
		return fmt.Errorf("unsupported job type: %s", j.Type)
	case j.ActorID == "":
		return fmt.Errorf("job %s has no actor", j.ID)
	case len(j.TargetIDs) == 0:
		return fmt.Errorf("job %s has no targets", j.ID)
	case !j.Kind.Valid():
		return fmt.Errorf("job %s has invalid kind %q", j.ID, j.Kind)
	}
	return nil
}

// IsExpired checks if the job has expired
func (j *Job) IsExpired() bool {
	if j.NotAfter == nil {
		return false
	}

	return time.Now().After(*j.NotAfter)
}

// CanRetry checks if the job can be retried
func (j *Job) CanRetry() bool {
	return j.RetryCount < j.MaxRetries
}

// IncrementRetry increments the retry count
func (j *Job) IncrementRetry() {
	j.RetryCount++
}
