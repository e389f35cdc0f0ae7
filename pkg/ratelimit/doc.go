// Package ratelimit provides sliding-window admission control per client key.
//
// The limiter stores one counter per client in the shared store, created with
// an expiry equal to the window on first increment. A request is rejected when
// the post-increment count exceeds the configured limit; the retry hint is
// derived from the window's remaining TTL.
//
// The limiter fails open: if the store is unreachable, requests are admitted
// and a warning is logged.
package ratelimit
