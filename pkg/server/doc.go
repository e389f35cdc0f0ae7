// Package server assembles the gateway from configuration and runs its
// HTTP listener with graceful shutdown.
//
// # Overview
//
// New wires the shared store, rate limiter, content shield, response
// cache, circuit breakers, retry policy, and provider router into the
// chat completions handler, then mounts that handler alongside health
// probes and the metrics endpoint. Start blocks until the context is
// cancelled, a SIGINT/SIGTERM arrives, or the listener fails; Shutdown
// drains in-flight requests within the configured timeout and closes
// every resource.
package server
