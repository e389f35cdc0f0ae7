// Package retry wraps a single provider call in a bounded retry loop
// with exponential backoff and jitter.
//
// Failures are classified by providers.IsRetryable: timeouts, dropped
// connections, upstream 5xx, and upstream 429 are retried; auth errors
// and other 4xx return immediately. The delay before attempt k (k >= 2)
// is min(MaxDelay, BaseDelay*2^(k-2)) plus uniform jitter.
//
// The loop is deliberately invisible to layers above it: a call that
// fails twice and succeeds on the third attempt is one successful call,
// and a call that exhausts its attempts surfaces only the last failure.
// Circuit breakers therefore see one signal per logical call.
package retry
