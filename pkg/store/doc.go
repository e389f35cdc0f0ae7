// Package store provides the shared key-value store backing rate limiting,
// response caching, and circuit breaker persistence.
//
// The Store interface exposes three primitives the rest of the gateway is
// built on: an atomic increment-with-expiry (sliding-window counters), TTL
// get/set (cached responses and breaker snapshots), and expiry-based pruning.
//
// Two backends are provided:
//
//   - Memory: sharded in-process maps, the default. Fast, no persistence.
//   - SQLite: durable single-file storage (modernc.org/sqlite, CGO-free),
//     for deployments where windows and cached responses should survive
//     restarts.
//
// Both backends drop expired entries lazily on access. The Pruner runs
// scheduled full sweeps so entries for keys that are never read again do not
// accumulate.
//
// Callers are expected to treat store failures as advisory: rate limiting
// and caching fail open when the store is unreachable.
package store
