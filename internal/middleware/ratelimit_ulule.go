package middleware

import (
	"context"
	"net/http"

	"github.com/benvon/smartmatch/internal/models"
	"github.com/benvon/smartmatch/internal/request"
	"github.com/ulule/limiter/v3"
	stdlibmw "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
)

const defaultRatelimitRate = "20-S"

// RatelimitConfigStore reads and writes the stored rate limit for a config key
type RatelimitConfigStore interface {
	Get(ctx context.Context, key string) (*models.RatelimitConfig, error)
	Set(ctx context.Context, c *models.RatelimitConfig) error
}

// rateLimitKey buckets authenticated callers by user and everyone else by client IP.
func rateLimitKey(r *http.Request) string {
	if id := request.IdentityFromContext(r); id.Authenticated() {
		return "user:" + id.UserID
	}
	return "ip:" + request.ClientIP(r)
}

// limitHandler wraps next with a ulule limiter over store at rate.
func limitHandler(store limiter.Store, rate limiter.Rate, next http.Handler) http.Handler {
	instance := limiter.New(store, rate)
	mw := stdlibmw.NewMiddleware(instance, stdlibmw.WithKeyGetter(rateLimitKey))
	return mw.Handler(next)
}

// RateLimit returns static rate limit middleware over store. Used in tests and
// when no config repository is available.
func RateLimit(store limiter.Store, formatted string) (func(http.Handler) http.Handler, error) {
	if formatted == "" {
		formatted = defaultRatelimitRate
	}
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, err
	}
	return func(next http.Handler) http.Handler {
		return limitHandler(store, rate, next)
	}, nil
}
