package config

import "time"

// Default values for configuration fields.
const (
	// Gateway defaults
	DefaultListenAddress   = "127.0.0.1:8080"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 300 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxHeaderBytes  = 1048576 // 1MB

	// Store defaults
	DefaultStoreBackend  = "memory"
	DefaultSQLitePath    = "data/sentinel.db"
	DefaultPruneSchedule = "*/5 * * * *"

	// Provider defaults
	DefaultProviderTimeout     = 60 * time.Second
	DefaultMaxIdleConns        = 100
	DefaultMaxIdleConnsPerHost = 10
	DefaultIdleConnTimeout     = 90 * time.Second

	// Limits defaults
	DefaultMaxRequests = 60
	DefaultWindow      = 60 * time.Second

	// Shield defaults
	DefaultPIIAction               = "redact"
	DefaultInjectionAction         = "warn"
	DefaultInjectionBlockThreshold = 0.8

	// Cache defaults
	DefaultCacheTTL = time.Hour

	// Breaker defaults
	DefaultFailureThreshold = 3
	DefaultCooldown         = 30 * time.Second

	// Retry defaults
	DefaultMaxAttempts  = 3
	DefaultBaseDelay    = 500 * time.Millisecond
	DefaultMaxDelay     = 10 * time.Second
	DefaultJitterFactor = 0.5

	// Telemetry defaults
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "json"
	DefaultMetricsNamespace = "sentinel"
)

// boolPtr returns a pointer to the given bool. Used when applying defaults
// to optional tri-state boolean fields.
func boolPtr(b bool) *bool {
	return &b
}

// ApplyDefaults fills in default values for any configuration fields that
// were not explicitly set. It modifies the configuration in place.
func ApplyDefaults(cfg *Config) {
	// Gateway defaults
	if cfg.Gateway.ListenAddress == "" {
		cfg.Gateway.ListenAddress = DefaultListenAddress
	}
	if cfg.Gateway.ReadTimeout == 0 {
		cfg.Gateway.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Gateway.WriteTimeout == 0 {
		cfg.Gateway.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Gateway.IdleTimeout == 0 {
		cfg.Gateway.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Gateway.ShutdownTimeout == 0 {
		cfg.Gateway.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Gateway.MaxHeaderBytes == 0 {
		cfg.Gateway.MaxHeaderBytes = DefaultMaxHeaderBytes
	}

	// Store defaults
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = DefaultStoreBackend
	}
	if cfg.Store.SQLitePath == "" {
		cfg.Store.SQLitePath = DefaultSQLitePath
	}
	if cfg.Store.PruneSchedule == "" {
		cfg.Store.PruneSchedule = DefaultPruneSchedule
	}

	// Provider defaults
	for name, pc := range cfg.Providers {
		if pc.Type == "" {
			pc.Type = name
		}
		if pc.Timeout == 0 {
			pc.Timeout = DefaultProviderTimeout
		}
		if pc.SupportsStreaming == nil {
			pc.SupportsStreaming = boolPtr(true)
		}
		if pc.SupportsFailover == nil {
			pc.SupportsFailover = boolPtr(true)
		}
		if pc.MaxIdleConns == 0 {
			pc.MaxIdleConns = DefaultMaxIdleConns
		}
		if pc.MaxIdleConnsPerHost == 0 {
			pc.MaxIdleConnsPerHost = DefaultMaxIdleConnsPerHost
		}
		if pc.IdleConnTimeout == 0 {
			pc.IdleConnTimeout = DefaultIdleConnTimeout
		}
		cfg.Providers[name] = pc
	}

	// Routing defaults: preference falls back to configured provider names.
	if cfg.Routing.FailoverEnabled == nil {
		cfg.Routing.FailoverEnabled = boolPtr(true)
	}

	// Limits defaults
	if cfg.Limits.Enabled == nil {
		cfg.Limits.Enabled = boolPtr(true)
	}
	if cfg.Limits.MaxRequests == 0 {
		cfg.Limits.MaxRequests = DefaultMaxRequests
	}
	if cfg.Limits.Window == 0 {
		cfg.Limits.Window = DefaultWindow
	}

	// Shield defaults
	if cfg.Shield.PIIAction == "" {
		cfg.Shield.PIIAction = DefaultPIIAction
	}
	if cfg.Shield.InjectionAction == "" {
		cfg.Shield.InjectionAction = DefaultInjectionAction
	}
	if cfg.Shield.InjectionBlockThreshold == 0 {
		cfg.Shield.InjectionBlockThreshold = DefaultInjectionBlockThreshold
	}

	// Cache defaults
	if cfg.Cache.Enabled == nil {
		cfg.Cache.Enabled = boolPtr(true)
	}
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = DefaultCacheTTL
	}
	if cfg.Cache.CacheStreaming == nil {
		cfg.Cache.CacheStreaming = boolPtr(true)
	}
	if cfg.Cache.Coalesce == nil {
		cfg.Cache.Coalesce = boolPtr(true)
	}

	// Breaker defaults
	if cfg.Breaker.FailureThreshold == 0 {
		cfg.Breaker.FailureThreshold = DefaultFailureThreshold
	}
	if cfg.Breaker.Cooldown == 0 {
		cfg.Breaker.Cooldown = DefaultCooldown
	}

	// Retry defaults
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Retry.BaseDelay == 0 {
		cfg.Retry.BaseDelay = DefaultBaseDelay
	}
	if cfg.Retry.MaxDelay == 0 {
		cfg.Retry.MaxDelay = DefaultMaxDelay
	}
	if cfg.Retry.JitterFactor == 0 {
		cfg.Retry.JitterFactor = DefaultJitterFactor
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLogLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLogFormat
	}
	if cfg.Telemetry.Logging.RedactPII == nil {
		cfg.Telemetry.Logging.RedactPII = boolPtr(true)
	}
	if cfg.Telemetry.Metrics.Enabled == nil {
		cfg.Telemetry.Metrics.Enabled = boolPtr(true)
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if len(cfg.Telemetry.Metrics.RequestDurationBuckets) == 0 {
		cfg.Telemetry.Metrics.RequestDurationBuckets = []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0, 60.0}
	}
}
