// Package metrics defines the gateway's Prometheus collectors: request
// counts and latency, cache hit rates, rate-limit rejections, shield
// detections, per-provider call outcomes, breaker states, and token and
// cost accumulation. Collectors live on a private registry exposed
// through Handler for scraping.
package metrics
