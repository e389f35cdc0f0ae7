package store

import (
	"context"
	"time"
)

// Store is the shared key-value store used by rate limiting, response
// caching, and circuit breaker persistence. Implementations must be safe for
// concurrent use and must synchronize at the granularity of individual keys;
// operations on unrelated keys must not serialize behind each other.
type Store interface {
	// IncrementWithin atomically increments the counter stored at key and
	// returns the post-increment count. When the increment creates the key
	// (or revives an expired one), the key's expiry is set to ttl; an
	// increment on a live key leaves the existing expiry untouched. This is
	// the primitive behind sliding-window rate limiting.
	IncrementWithin(ctx context.Context, key string, ttl time.Duration) (int64, error)

	// Get retrieves the value stored at key. The second return value is
	// false if the key does not exist or has expired.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value at key with the given ttl, replacing any existing
	// entry. A non-positive ttl is invalid.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes the entry at key. It is a no-op if the key does not
	// exist.
	Delete(ctx context.Context, key string) error

	// TTL returns the remaining lifetime of the key. The second return
	// value is false if the key does not exist or has expired.
	TTL(ctx context.Context, key string) (time.Duration, bool, error)

	// Prune removes expired entries and returns the number removed.
	// Backends also drop expired entries lazily on access; Prune reclaims
	// space for keys that are never touched again.
	Prune(ctx context.Context) (int, error)

	// Close releases any resources held by the store.
	Close() error
}
