package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"sentinel-hq/sentinel/pkg/store"
)

// keyPrefix namespaces rate-limit counters in the shared store.
const keyPrefix = "ratelimit:"

// Decision is the result of an admission check.
type Decision struct {
	// Allowed indicates whether the request is admitted.
	Allowed bool

	// Limit is the configured request limit for the window.
	Limit int64

	// Remaining is how many requests remain in the current window.
	Remaining int64

	// RetryAfter is how long a rejected caller should wait before retrying.
	// Zero when Allowed is true.
	RetryAfter time.Duration

	// FailedOpen is true when the store was unreachable and the request was
	// admitted without counting.
	FailedOpen bool
}

// Limiter performs sliding-window admission control per client key. Each
// admitted or rejected check increments the shared counter exactly once; the
// window starts on the first increment and self-evicts when its TTL lapses.
//
// Store failures are fail-open: the request is admitted and a warning is
// logged. Availability is preferred over strict enforcement.
type Limiter struct {
	store       store.Store
	maxRequests int64
	window      time.Duration
	logger      *slog.Logger
}

// New creates a sliding-window limiter allowing maxRequests per client key
// within each window.
func New(s store.Store, maxRequests int, window time.Duration, logger *slog.Logger) *Limiter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Limiter{
		store:       s,
		maxRequests: int64(maxRequests),
		window:      window,
		logger:      logger.With("component", "ratelimit"),
	}
}

// Admit checks whether a request from clientKey is admitted. The underlying
// counter is incremented exactly once per call regardless of outcome.
func (l *Limiter) Admit(ctx context.Context, clientKey string) Decision {
	key := keyPrefix + clientKey

	count, err := l.store.IncrementWithin(ctx, key, l.window)
	if err != nil {
		l.logger.WarnContext(ctx, "rate limit store unavailable, failing open",
			"client", clientKey,
			"error", err,
		)
		return Decision{
			Allowed:    true,
			Limit:      l.maxRequests,
			Remaining:  l.maxRequests,
			FailedOpen: true,
		}
	}

	remaining := l.maxRequests - count
	if remaining < 0 {
		remaining = 0
	}

	if count > l.maxRequests {
		return Decision{
			Allowed:    false,
			Limit:      l.maxRequests,
			Remaining:  0,
			RetryAfter: l.retryAfter(ctx, key),
		}
	}

	return Decision{
		Allowed:   true,
		Limit:     l.maxRequests,
		Remaining: remaining,
	}
}

// retryAfter computes the wait hint from the window's remaining TTL. When the
// TTL cannot be read the full window duration is returned; overestimating is
// harmless, a zero hint is not.
func (l *Limiter) retryAfter(ctx context.Context, key string) time.Duration {
	ttl, ok, err := l.store.TTL(ctx, key)
	if err != nil || !ok || ttl <= 0 {
		return l.window
	}
	// Round up to the next whole second for the Retry-After header.
	return ttl.Truncate(time.Second) + time.Second
}

// Window returns the configured window duration.
func (l *Limiter) Window() time.Duration {
	return l.window
}

// String describes the limiter configuration.
func (l *Limiter) String() string {
	return fmt.Sprintf("sliding-window(%d req / %s)", l.maxRequests, l.window)
}
