package middleware

import (
	"net/http"

	"github.com/benvon/smartmatch/internal/request"
)

// Identity attaches the gateway-supplied identity to the request context.
// It does not reject anonymous requests; handlers decide what requires a user.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := request.IdentityFromHeaders(r)
		next.ServeHTTP(w, r.WithContext(request.WithIdentity(r.Context(), id)))
	})
}

// RequireIdentity rejects requests without an authenticated user with 401
func RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !request.IdentityFromContext(r).Authenticated() {
			respondErrorJSON(w, r, http.StatusUnauthorized, "Unauthorized", "authentication required", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
