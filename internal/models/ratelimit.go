package models

import "time"

// RatelimitConfig is a stored rate for one rate-limited surface. Rate uses the
// limiter format, e.g. "20-S" or "600-M".
type RatelimitConfig struct {
	ConfigKey string    `json:"config_key"`
	Rate      string    `json:"rate"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
