// Package routing selects an upstream provider for each request and
// layers the resilience machinery around the call.
//
// Selection is priority-based: an explicit provider hint on the request
// wins, otherwise the configured preference list is walked in order.
// Every candidate call passes through its provider's circuit breaker
// and the shared retry policy; the breaker records one outcome per
// logical call.
//
// Failover applies to non-streaming calls only, and only for failures
// that implicate the provider rather than the request. Streams never
// fail over mid-flight: content already delivered to the client cannot
// be attributed to a different provider's continuation.
package routing
