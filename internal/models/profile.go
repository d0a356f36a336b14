package models

import "time"

// Profile holds the attributes the default candidate query filters on
type Profile struct {
	UserID    string    `json:"user_id"`
	Gender    string    `json:"gender" validate:"omitempty,oneof=female male nonbinary"`
	BirthDate time.Time `json:"birth_date"`
	CreatedAt time.Time `json:"created_at"`
}
