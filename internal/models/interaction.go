package models

import "time"

// InteractionKind identifies the type of user activity flowing through the pipeline
type InteractionKind string

const (
	InteractionView         InteractionKind = "view"
	InteractionLike         InteractionKind = "like"
	InteractionMessage      InteractionKind = "message"
	InteractionProfileClick InteractionKind = "profile_click"
)

// InteractionKinds lists every supported kind
var InteractionKinds = []InteractionKind{
	InteractionView,
	InteractionLike,
	InteractionMessage,
	InteractionProfileClick,
}

// Valid reports whether k is a supported interaction kind
func (k InteractionKind) Valid() bool {
	switch k {
	case InteractionView, InteractionLike, InteractionMessage, InteractionProfileClick:
		return true
	default:
		return false
	}
}

// InvalidatesRecommendations reports whether the kind is a strong enough signal to mark
// the actor's recommendation cache dirty. Views are deliberately excluded: they are too
// frequent and too weak, and invalidating on them would feed view -> recompute -> view loops.
func (k InteractionKind) InvalidatesRecommendations() bool {
	return k == InteractionLike || k == InteractionMessage
}

// InteractionEvent is one unit of user activity. It is consumed once by the recorder
// and never persisted as a whole.
type InteractionEvent struct {
	ActorID   string          `json:"actor_id"`
	TargetID  string          `json:"target_id"`
	Kind      InteractionKind `json:"kind"`
	SessionID string          `json:"session_id,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}
