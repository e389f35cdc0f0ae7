package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR_NAME} references in string configuration values.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// LoadConfig loads configuration from a YAML file at the specified path.
// It expands ${ENV_VAR} references in API keys, applies default values,
// validates the configuration, and returns any errors.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	// Expand ${ENV_VAR} references in provider credentials
	for name, pc := range cfg.Providers {
		pc.APIKey = expandEnv(pc.APIKey)
		cfg.Providers[name] = pc
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention SENTINEL_SECTION_FIELD (e.g., SENTINEL_GATEWAY_LISTEN_ADDRESS).
// Environment variables always take precedence over file-based configuration.
//
// The loading sequence is:
//  1. Load YAML from file
//  2. Apply default values
//  3. Apply environment variable overrides
//  4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// expandEnv replaces ${VAR} references with the value of the environment
// variable VAR. Unset variables expand to the empty string.
func expandEnv(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(name)
	})
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables use the format SENTINEL_SECTION_FIELD.
func applyEnvOverrides(cfg *Config) {
	// Gateway overrides
	if val := os.Getenv("SENTINEL_GATEWAY_LISTEN_ADDRESS"); val != "" {
		cfg.Gateway.ListenAddress = val
	}
	if val := os.Getenv("SENTINEL_GATEWAY_READ_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Gateway.ReadTimeout = d
		}
	}
	if val := os.Getenv("SENTINEL_GATEWAY_WRITE_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Gateway.WriteTimeout = d
		}
	}

	// Store overrides
	if val := os.Getenv("SENTINEL_STORE_BACKEND"); val != "" {
		cfg.Store.Backend = val
	}
	if val := os.Getenv("SENTINEL_STORE_SQLITE_PATH"); val != "" {
		cfg.Store.SQLitePath = val
	}

	// Provider API key overrides (SENTINEL_PROVIDERS_OPENAI_API_KEY, ...)
	for name, pc := range cfg.Providers {
		envKey := fmt.Sprintf("SENTINEL_PROVIDERS_%s_API_KEY", upperSnake(name))
		if val := os.Getenv(envKey); val != "" {
			pc.APIKey = val
			cfg.Providers[name] = pc
		}
	}

	// Limits overrides
	if val := os.Getenv("SENTINEL_LIMITS_MAX_REQUESTS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			cfg.Limits.MaxRequests = n
		}
	}
	if val := os.Getenv("SENTINEL_LIMITS_WINDOW"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Limits.Window = d
		}
	}

	// Shield overrides
	if val := os.Getenv("SENTINEL_SHIELD_PII_ACTION"); val != "" {
		cfg.Shield.PIIAction = val
	}

	// Cache overrides
	if val := os.Getenv("SENTINEL_CACHE_TTL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Cache.TTL = d
		}
	}

	// Telemetry overrides
	if val := os.Getenv("SENTINEL_TELEMETRY_LOGGING_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv("SENTINEL_TELEMETRY_LOGGING_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
}

// upperSnake converts a provider name to the form used in environment
// variable names ("openai" -> "OPENAI", "azure-openai" -> "AZURE_OPENAI").
func upperSnake(name string) string {
	out := make([]byte, len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z':
			out[i] = c - 'a' + 'A'
		case c == '-' || c == '.':
			out[i] = '_'
		default:
			out[i] = c
		}
	}
	return string(out)
}
