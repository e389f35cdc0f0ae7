// Package config provides configuration management for the Sentinel gateway.
//
// This package handles loading, validating, and managing configuration from
// YAML files with environment variable overrides. It provides a type-safe
// configuration system with comprehensive validation and sensible defaults.
//
// # Configuration Loading
//
// Configuration can be loaded in two ways:
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("config.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("config.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention SENTINEL_SECTION_FIELD.
// For example:
//
//   - SENTINEL_GATEWAY_LISTEN_ADDRESS overrides gateway.listen_address
//   - SENTINEL_PROVIDERS_OPENAI_API_KEY overrides providers.openai.api_key
//   - SENTINEL_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// Environment variables always take precedence over file-based configuration.
// Provider API keys additionally support ${ENV_VAR} expansion inside the YAML
// file itself.
//
// # Configuration Precedence
//
// Configuration values are applied in the following order (later overrides earlier):
//
//  1. Default values (defined in defaults.go)
//  2. Values from YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// # Hot Reload
//
// A Watcher can monitor the configuration file and deliver freshly validated
// Config instances on change. Reload failures keep the previous configuration.
//
// # Example Configuration
//
// Here is a minimal configuration file:
//
//	gateway:
//	  listen_address: "127.0.0.1:8080"
//
//	providers:
//	  openai:
//	    base_url: "https://api.openai.com/v1"
//	    api_key: "${OPENAI_API_KEY}"
//	  anthropic:
//	    base_url: "https://api.anthropic.com"
//	    api_key: "${ANTHROPIC_API_KEY}"
//
//	routing:
//	  preference: ["openai", "anthropic"]
//
//	shield:
//	  pii_action: "redact"
//
//	limits:
//	  max_requests: 60
//	  window: 60s
package config
