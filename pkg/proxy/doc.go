// Package proxy provides the HTTP surface of the gateway: request parsing
// and validation, response formatting for both JSON and Server-Sent Events,
// error mapping, and the middleware stack.
//
// # Architecture
//
//   - Handlers: request processing (chat completions, health checks)
//   - Middleware: cross-cutting concerns (request ID, logging, recovery, metrics)
//   - Types: OpenAI-compatible request/response/error data structures
//
// The chat handler composes the pipeline stages in a fixed order: rate-limit
// admission, content shield, response cache, then the provider router.
//
// # Error Mapping
//
// All failures surface in one error envelope. Validation and content-policy
// rejections map to 400, rate limiting to 429 with Retry-After, an open
// circuit to 503 with Retry-After, upstream timeouts to 504, and other
// upstream failures to 502.
package proxy
