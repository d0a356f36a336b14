package request

import (
	"context"
	"net/http"
	"strings"

	"github.com/benvon/smartmatch/internal/models"
)

type contextKey string

const identityContextKey contextKey = "identity"

const (
	// UserIDHeader carries the authenticated user, set by the gateway
	UserIDHeader = "X-User-ID"
	// SessionIDHeader carries the client session identifier
	SessionIDHeader = "X-Session-ID"
)

// IdentityContextKey returns the context key used for the identity. Exposed for tests that inject non-identity values.
func IdentityContextKey() contextKey { return identityContextKey }

// ClientIP extracts the client IP from the request, respecting X-Forwarded-For and X-Real-IP.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		if len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	return r.RemoteAddr
}

// IdentityFromHeaders reads the gateway identity headers.
func IdentityFromHeaders(r *http.Request) models.Identity {
	return models.Identity{
		UserID:    strings.TrimSpace(r.Header.Get(UserIDHeader)),
		SessionID: strings.TrimSpace(r.Header.Get(SessionIDHeader)),
	}
}

// WithIdentity returns a context with the identity attached.
func WithIdentity(ctx context.Context, id models.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, id)
}

// IdentityFromContext returns the identity from the request context, or the zero Identity if missing or wrong type.
func IdentityFromContext(r *http.Request) models.Identity {
	id, _ := r.Context().Value(identityContextKey).(models.Identity)
	return id
}
