package models

import "time"

const (
	// DefaultMinAge is the lower age bound used when a user has no stored preferences
	DefaultMinAge = 18
	// DefaultMaxAge is the upper age bound used when a user has no stored preferences
	DefaultMaxAge = 99
)

// Preferences are a user's search preferences, loaded once per session.
type Preferences struct {
	UserID        string    `json:"user_id"`
	SeekingGender []string  `json:"seeking_gender,omitempty" validate:"dive,oneof=female male nonbinary"`
	MinAge        int       `json:"min_age" validate:"gte=18,lte=120"`
	MaxAge        int       `json:"max_age" validate:"gte=18,lte=120,gtefield=MinAge"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// DefaultPreferences returns the preferences applied to a user with nothing stored.
func DefaultPreferences(userID string) *Preferences {
	return &Preferences{
		UserID: userID,
		MinAge: DefaultMinAge,
		MaxAge: DefaultMaxAge,
	}
}

// Clone returns a deep copy so callers cannot mutate shared state.
func (p *Preferences) Clone() *Preferences {
	if p == nil {
		return nil
	}
	c := *p
	if p.SeekingGender != nil {
		c.SeekingGender = append([]string(nil), p.SeekingGender...)
	}
	return &c
}
