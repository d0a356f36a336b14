package queue

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/benvon/smartmatch/internal/models"
	"github.com/google/uuid"
)

func TestNewInteractionBatchJob(t *testing.T) {
	t.Parallel()

	targets := []string{"bob", "carol"}
	job := NewInteractionBatchJob("alice", targets, models.InteractionView)
	targets[0] = "mutated"

	if job.ID == uuid.Nil {
		t.Error("Expected job ID to be set")
	}
	if job.Type != JobTypeInteractionBatch {
		t.Errorf("Expected job type to be %s, got %s", JobTypeInteractionBatch, job.Type)
	}
	if job.TargetIDs[0] != "bob" {
		t.Error("Expected job to own a copy of the targets")
	}
	if job.CanRetry() {
		t.Error("Expected interaction batches not to be retried")
	}
	if err := job.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestJob_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		job     *Job
		wantErr bool
	}{
		{name: "valid", job: NewInteractionBatchJob("a", []string{"b"}, models.InteractionLike)},
		{name: "wrong type", job: &Job{Type: "task_analysis", ActorID: "a", TargetIDs: []string{"b"}, Kind: models.InteractionView}, wantErr: true},
		{name: "no actor", job: NewInteractionBatchJob("", []string{"b"}, models.InteractionView), wantErr: true},
		{name: "no targets", job: NewInteractionBatchJob("a", nil, models.InteractionView), wantErr: true},
		{name: "bad kind", job: NewInteractionBatchJob("a", []string{"b"}, "poke"), wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if err := tt.job.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestJob_IsExpired(t *testing.T) {
	t.Parallel()

	past := time.Now().Add(-time.Minute)
	future := time.Now().Add(time.Hour)

	tests := []struct {
		name     string
		notAfter *time.Time
		want     bool
	}{
		{name: "no expiration", notAfter: nil, want: false},
		{name: "expired", notAfter: &past, want: true},
		{name: "not expired", notAfter: &future, want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			job := &Job{NotAfter: tt.notAfter}
			if got := job.IsExpired(); got != tt.want {
				t.Errorf("IsExpired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestJob_IncrementRetry(t *testing.T) {
	t.Parallel()

	job := &Job{MaxRetries: 2}
	if !job.CanRetry() {
		t.Fatal("Expected job to be retryable")
	}
	job.IncrementRetry()
	job.IncrementRetry()
	if job.RetryCount != 2 {
		t.Errorf("Expected retry count 2, got %d", job.RetryCount)
	}
	if job.CanRetry() {
		t.Error("Expected job to exhaust its retries")
	}
}

func TestJob_JSONWireFormat(t *testing.T) {
	t.Parallel()

	job := NewInteractionBatchJob("alice", []string{"bob"}, models.InteractionView)
	data, err := json.Marshal(job)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	for _, key := range []string{"id", "type", "actor_id", "target_ids", "kind", "created_at"} {
		if _, ok := fields[key]; !ok {
			t.Errorf("expected %q in wire format", key)
		}
	}
	if _, ok := fields["not_after"]; ok {
		t.Error("expected not_after to be omitted when unset")
	}
}
