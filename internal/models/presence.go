package models

// PresenceState is the derived online/offline view of a user. It is recomputed on every query.
type PresenceState struct {
	UserID        string `json:"user_id"`
	IsOnline      bool   `json:"is_online"`
	LastSeenLabel string `json:"last_seen_label"`
}
