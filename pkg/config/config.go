package config

import "time"

// Config is the root configuration structure for the Sentinel gateway.
// It contains all configuration sections for the HTTP gateway, upstream
// providers, the security shield, caching, resilience, and telemetry.
type Config struct {
	// Gateway contains HTTP server configuration including listen address,
	// timeouts, and connection limits.
	Gateway GatewayConfig `yaml:"gateway"`

	// Store contains configuration for the shared key-value store that backs
	// rate limiting, response caching, and circuit breaker persistence.
	Store StoreConfig `yaml:"store"`

	// Providers contains configuration for all upstream LLM providers.
	// Keys are provider names (e.g., "openai", "anthropic").
	Providers map[string]ProviderConfig `yaml:"providers"`

	// Routing contains configuration for provider selection and failover.
	Routing RoutingConfig `yaml:"routing"`

	// Limits contains rate limiting configuration.
	Limits LimitsConfig `yaml:"limits"`

	// Shield contains PII and prompt-injection shield configuration.
	Shield ShieldConfig `yaml:"shield"`

	// Cache contains response cache configuration.
	Cache CacheConfig `yaml:"cache"`

	// Breaker contains circuit breaker configuration applied per provider.
	Breaker BreakerConfig `yaml:"breaker"`

	// Retry contains retry policy configuration for provider calls.
	Retry RetryConfig `yaml:"retry"`

	// Telemetry contains observability configuration (logging and metrics).
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// GatewayConfig contains configuration for the HTTP gateway server.
type GatewayConfig struct {
	// ListenAddress is the address and port for the gateway to listen on.
	// Format: "host:port" (e.g., "127.0.0.1:8080", "0.0.0.0:8080").
	// Default: "127.0.0.1:8080"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request,
	// including the body. A zero or negative value means no timeout.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the
	// response. Streaming responses are long-lived, so this should be
	// generous. A zero or negative value means no timeout.
	// Default: 300s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the maximum amount of time to wait for the next request
	// when keep-alives are enabled.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes controls the maximum number of bytes the server will
	// read parsing request headers.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`
}

// StoreConfig contains configuration for the shared key-value store.
type StoreConfig struct {
	// Backend selects the store implementation: "memory" or "sqlite".
	// Default: "memory"
	Backend string `yaml:"backend"`

	// SQLitePath is the path to the SQLite database file.
	// Only used when Backend is "sqlite".
	// Default: "data/sentinel.db"
	SQLitePath string `yaml:"sqlite_path"`

	// PruneSchedule is a cron expression controlling when expired entries
	// are pruned from the store. Empty disables scheduled pruning.
	// Default: "*/5 * * * *" (every 5 minutes)
	PruneSchedule string `yaml:"prune_schedule"`
}

// ProviderConfig contains configuration for a single upstream LLM provider.
type ProviderConfig struct {
	// Type is the provider protocol type: "openai" or "anthropic".
	// Defaults to the provider name if empty.
	Type string `yaml:"type"`

	// BaseURL is the base URL for the provider's API endpoint.
	// Example: "https://api.openai.com/v1"
	BaseURL string `yaml:"base_url"`

	// APIKey is the authentication key. Supports ${ENV_VAR} expansion.
	APIKey string `yaml:"api_key"`

	// Timeout is the per-attempt request timeout.
	// Default: 60s
	Timeout time.Duration `yaml:"timeout"`

	// SupportsStreaming indicates whether streaming requests may be routed
	// to this provider.
	// Default: true
	SupportsStreaming *bool `yaml:"supports_streaming"`

	// SupportsFailover indicates whether non-streaming requests may fail
	// over away from this provider on provider-level errors.
	// Default: true
	SupportsFailover *bool `yaml:"supports_failover"`

	// MaxIdleConns is the maximum number of idle connections in the pool.
	// Default: 100
	MaxIdleConns int `yaml:"max_idle_conns"`

	// MaxIdleConnsPerHost is the maximum idle connections per host.
	// Default: 10
	MaxIdleConnsPerHost int `yaml:"max_idle_conns_per_host"`

	// IdleConnTimeout is how long an idle connection remains in the pool.
	// Default: 90s
	IdleConnTimeout time.Duration `yaml:"idle_conn_timeout"`
}

// RoutingConfig contains configuration for provider selection.
type RoutingConfig struct {
	// Preference is the ordered list of provider names to try when the
	// request carries no explicit provider hint.
	Preference []string `yaml:"preference"`

	// FailoverEnabled controls whether non-streaming requests may fail over
	// to the next provider in preference order on provider-level errors.
	// Default: true
	FailoverEnabled *bool `yaml:"failover_enabled"`
}

// LimitsConfig contains rate limiting configuration.
type LimitsConfig struct {
	// Enabled controls whether rate limiting is applied.
	// Default: true
	Enabled *bool `yaml:"enabled"`

	// MaxRequests is the number of requests allowed per client key within
	// the window.
	// Default: 60
	MaxRequests int `yaml:"max_requests"`

	// Window is the sliding window duration.
	// Default: 60s
	Window time.Duration `yaml:"window"`
}

// ShieldConfig contains PII and prompt-injection shield configuration.
type ShieldConfig struct {
	// PIIAction is the policy applied to detected PII: "block", "redact",
	// or "warn".
	// Default: "redact"
	PIIAction string `yaml:"pii_action"`

	// InjectionAction is the policy applied when a prompt injection is
	// suspected: "block", "warn", or "off".
	// Default: "warn"
	InjectionAction string `yaml:"injection_action"`

	// InjectionBlockThreshold is the risk score at or above which an
	// injection scan recommends blocking (0.0 to 1.0).
	// Default: 0.8
	InjectionBlockThreshold float64 `yaml:"injection_block_threshold"`
}

// CacheConfig contains response cache configuration.
type CacheConfig struct {
	// Enabled controls whether response caching is applied.
	// Default: true
	Enabled *bool `yaml:"enabled"`

	// TTL is how long cached responses remain valid.
	// Default: 1h
	TTL time.Duration `yaml:"ttl"`

	// CacheStreaming controls whether the aggregated text of streaming
	// responses is cached after the stream completes.
	// Default: true
	CacheStreaming *bool `yaml:"cache_streaming"`

	// Coalesce controls whether concurrent identical requests share a
	// single upstream call.
	// Default: true
	Coalesce *bool `yaml:"coalesce"`
}

// BreakerConfig contains circuit breaker configuration.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive logical call failures
	// that trips the breaker from CLOSED to OPEN.
	// Default: 3
	FailureThreshold int `yaml:"failure_threshold"`

	// Cooldown is how long the breaker stays OPEN before admitting a
	// single HALF_OPEN probe.
	// Default: 30s
	Cooldown time.Duration `yaml:"cooldown"`

	// Persist controls whether breaker state is snapshotted to the shared
	// store on transitions and restored at startup.
	// Default: false
	Persist bool `yaml:"persist"`
}

// RetryConfig contains retry policy configuration for provider calls.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts for one logical call,
	// including the first.
	// Default: 3
	MaxAttempts int `yaml:"max_attempts"`

	// BaseDelay is the delay before the second attempt. Subsequent delays
	// double, capped at MaxDelay.
	// Default: 500ms
	BaseDelay time.Duration `yaml:"base_delay"`

	// MaxDelay caps the exponential backoff delay.
	// Default: 10s
	MaxDelay time.Duration `yaml:"max_delay"`

	// JitterFactor is the fraction of the computed delay added as uniform
	// random jitter (0.0 to 1.0).
	// Default: 0.5
	JitterFactor float64 `yaml:"jitter_factor"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	// Logging contains structured logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains Prometheus metrics configuration.
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig contains structured logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	// Default: "info"
	Level string `yaml:"level"`

	// Format is the output format: "json", "text".
	// Default: "json"
	Format string `yaml:"format"`

	// RedactPII enables automatic redaction of PII patterns in log fields.
	// Default: true
	RedactPII *bool `yaml:"redact_pii"`
}

// MetricsConfig contains Prometheus metrics configuration.
type MetricsConfig struct {
	// Enabled controls whether the /metrics endpoint is exposed.
	// Default: true
	Enabled *bool `yaml:"enabled"`

	// Namespace is the Prometheus metric namespace.
	// Default: "sentinel"
	Namespace string `yaml:"namespace"`

	// RequestDurationBuckets are histogram buckets for request latency
	// in seconds. Defaults are tuned for LLM latencies (100ms - 60s).
	RequestDurationBuckets []float64 `yaml:"request_duration_buckets"`
}
