package models

import "time"

// UserActivity tracks when a user was last seen by any part of the platform
type UserActivity struct {
	UserID       string    `json:"user_id"`
	LastActiveAt time.Time `json:"last_active_at"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// InteractionCount is an aggregate of persisted interactions for one kind
type InteractionCount struct {
	Kind  InteractionKind `json:"kind"`
	Count int             `json:"count"`
}
