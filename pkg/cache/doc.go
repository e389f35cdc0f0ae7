// Package cache implements the fingerprint-keyed response cache.
//
// # Overview
//
// A request's fingerprint is a sha256 digest of the fields that
// determine its response: model, ordered messages, and sampling
// parameters. Correlation IDs and the stream flag are excluded, so the
// same logical completion hits the same entry regardless of transport
// shape.
//
// The cache is cache-aside over the shared store: callers check it
// first, populate it after a miss, and the TTL handles expiry. Store
// failures degrade to misses rather than errors.
//
// Fetch adds optional coalescing on top: concurrent misses for one
// fingerprint collapse into a single upstream call, with each waiter
// still honoring its own context deadline.
package cache
