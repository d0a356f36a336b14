package middleware

import (
	"context"

	"github.com/benvon/smartmatch/internal/models"
	"github.com/benvon/smartmatch/internal/request"
)

// SetIdentityInContext is a helper function for testing - sets the identity in context
// This is exported so other test packages can use it
func SetIdentityInContext(ctx context.Context, userID, sessionID string) context.Context {
	return request.WithIdentity(ctx, models.Identity{UserID: userID, SessionID: sessionID})
}
