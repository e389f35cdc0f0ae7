// Package providers defines the provider-agnostic request/response model
// and the adapter contract for upstream LLM APIs.
//
// # Overview
//
// Each upstream API gets a dedicated adapter (see the openai and
// anthropic subpackages) built on the shared HTTPProvider base. Adapters
// perform exactly one upstream attempt per call and classify failures
// into the typed errors in this package; retry, circuit breaking, and
// failover are layered above the adapter by the routing package.
//
// Streaming responses are normalized at the adapter boundary: whatever
// the provider's SSE grammar, the caller sees a channel of StreamChunk
// values ending with exactly one terminal chunk.
//
// # Error Classification
//
// Two predicates drive the resilience layers:
//   - IsRetryable: should the same provider be tried again
//     (timeouts, dropped connections, 5xx, 429)
//   - IsProviderFailure: does the failure count against the provider's
//     circuit breaker and justify failover (everything retryable plus
//     stream failures; not auth errors or other caller mistakes)
package providers
