// Package handlers implements the HTTP endpoints of the gateway.
//
// ChatHandler serves POST /v1/chat/completions and runs the request
// pipeline: rate-limit admission, content shield, response cache, provider
// router. HealthHandler serves the liveness and readiness probes.
package handlers
