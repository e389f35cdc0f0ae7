// Sentinel is a security and resilience gateway for LLM API traffic.
//
// It accepts OpenAI-compatible chat completion requests and forwards them
// to configured upstream providers, providing:
//   - Sliding-window rate limiting per client
//   - PII detection with block/redact/warn policies
//   - Prompt-injection screening
//   - Fingerprint-keyed response caching with request coalescing
//   - Per-provider circuit breakers and retry with exponential backoff
//   - Provider routing with non-streaming failover
//   - Stream normalization across provider SSE dialects
//
// Usage:
//
//	# Start the gateway with default configuration
//	sentinel run
//
//	# Start with a custom configuration file
//	sentinel run --config /etc/sentinel/config.yaml
//
//	# Validate configuration without starting
//	sentinel validate
//
//	# Show version information
//	sentinel version
package main

func main() {
	Execute()
}
