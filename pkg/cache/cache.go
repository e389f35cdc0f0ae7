package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"sentinel-hq/sentinel/pkg/providers"
	"sentinel-hq/sentinel/pkg/store"
)

// Cache is the fingerprint-keyed response cache. It follows the
// cache-aside pattern: the pipeline decides what to store and when, the
// cache only gets and puts. Store failures are fail-open — a broken
// store degrades to a permanent miss, never an error to the caller.
type Cache struct {
	store  store.Store
	ttl    time.Duration
	group  singleflight.Group
	logger *slog.Logger
}

// New creates a Cache over the shared store with the given default TTL.
func New(st store.Store, ttl time.Duration, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		store:  st,
		ttl:    ttl,
		logger: logger.With("component", "cache"),
	}
}

// Get looks up a cached response by fingerprint. Returns false on miss,
// expiry, store failure, or a corrupt entry.
func (c *Cache) Get(ctx context.Context, fingerprint string) (*providers.CompletionResponse, bool) {
	raw, found, err := c.store.Get(ctx, fingerprint)
	if err != nil {
		c.logger.WarnContext(ctx, "cache lookup failed, treating as miss", "error", err)
		return nil, false
	}
	if !found {
		return nil, false
	}

	var resp providers.CompletionResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		c.logger.WarnContext(ctx, "corrupt cache entry, treating as miss", "error", err)
		return nil, false
	}
	return &resp, true
}

// Put stores a response under its fingerprint with the default TTL.
// Store failures are logged and swallowed.
func (c *Cache) Put(ctx context.Context, fingerprint string, resp *providers.CompletionResponse) {
	raw, err := json.Marshal(resp)
	if err != nil {
		c.logger.WarnContext(ctx, "cache entry marshal failed", "error", err)
		return
	}
	if err := c.store.Set(ctx, fingerprint, raw, c.ttl); err != nil {
		c.logger.WarnContext(ctx, "cache store failed", "error", err)
	}
}

// Fetch resolves a fingerprint through the cache, coalescing concurrent
// misses: among callers racing on the same fingerprint, one leader runs
// fetch and stores the result; followers receive the leader's result
// without issuing their own upstream call. Each caller waits under its
// own context, so a slow leader cannot pin a follower past its deadline.
//
// The returned shared flag reports whether this caller received a
// coalesced result rather than performing the call itself.
func (c *Cache) Fetch(ctx context.Context, fingerprint string, fetch func(context.Context) (*providers.CompletionResponse, error)) (*providers.CompletionResponse, bool, error) {
	if resp, ok := c.Get(ctx, fingerprint); ok {
		return resp, false, nil
	}

	ch := c.group.DoChan(fingerprint, func() (interface{}, error) {
		resp, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		// Store even if the leader's client is gone: the work is done and
		// followers or future callers can still use it.
		c.Put(context.WithoutCancel(ctx), fingerprint, resp)
		return resp, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			// Failed flights are not memoized.
			c.group.Forget(fingerprint)
			return nil, res.Shared, res.Err
		}
		return res.Val.(*providers.CompletionResponse), res.Shared, nil
	case <-ctx.Done():
		// This caller gives up; release leadership so later callers do
		// not wait on a flight whose initiator has left.
		c.group.Forget(fingerprint)
		return nil, false, ctx.Err()
	}
}
