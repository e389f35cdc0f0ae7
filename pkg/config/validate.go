package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "gateway.listen_address").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. It returns nil if the configuration is valid.
// All validation errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateGateway(&cfg.Gateway)...)
	errs = append(errs, validateStore(&cfg.Store)...)
	errs = append(errs, validateProviders(cfg.Providers)...)
	errs = append(errs, validateRouting(&cfg.Routing, cfg.Providers)...)
	errs = append(errs, validateLimits(&cfg.Limits)...)
	errs = append(errs, validateShield(&cfg.Shield)...)
	errs = append(errs, validateBreaker(&cfg.Breaker)...)
	errs = append(errs, validateRetry(&cfg.Retry)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateGateway(gc *GatewayConfig) []FieldError {
	var errs []FieldError

	if _, _, err := net.SplitHostPort(gc.ListenAddress); err != nil {
		errs = append(errs, FieldError{
			Field:   "gateway.listen_address",
			Message: fmt.Sprintf("invalid address %q: must be host:port", gc.ListenAddress),
		})
	}
	if gc.MaxHeaderBytes < 0 {
		errs = append(errs, FieldError{
			Field:   "gateway.max_header_bytes",
			Message: "must not be negative",
		})
	}

	return errs
}

func validateStore(sc *StoreConfig) []FieldError {
	var errs []FieldError

	switch sc.Backend {
	case "memory", "sqlite":
	default:
		errs = append(errs, FieldError{
			Field:   "store.backend",
			Message: fmt.Sprintf("unknown backend %q: must be \"memory\" or \"sqlite\"", sc.Backend),
		})
	}
	if sc.Backend == "sqlite" && sc.SQLitePath == "" {
		errs = append(errs, FieldError{
			Field:   "store.sqlite_path",
			Message: "field is required when backend is \"sqlite\"",
		})
	}

	return errs
}

func validateProviders(providers map[string]ProviderConfig) []FieldError {
	var errs []FieldError

	if len(providers) == 0 {
		errs = append(errs, FieldError{
			Field:   "providers",
			Message: "at least one provider must be configured",
		})
		return errs
	}

	for name, pc := range providers {
		prefix := fmt.Sprintf("providers.%s", name)

		switch pc.Type {
		case "openai", "anthropic":
		default:
			errs = append(errs, FieldError{
				Field:   prefix + ".type",
				Message: fmt.Sprintf("unknown provider type %q: must be \"openai\" or \"anthropic\"", pc.Type),
			})
		}

		if pc.BaseURL == "" {
			errs = append(errs, FieldError{
				Field:   prefix + ".base_url",
				Message: "field is required",
			})
		} else if u, err := url.Parse(pc.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, FieldError{
				Field:   prefix + ".base_url",
				Message: fmt.Sprintf("invalid URL %q", pc.BaseURL),
			})
		}

		if pc.APIKey == "" {
			errs = append(errs, FieldError{
				Field:   prefix + ".api_key",
				Message: "field is required",
			})
		}

		if pc.Timeout < 0 {
			errs = append(errs, FieldError{
				Field:   prefix + ".timeout",
				Message: "must not be negative",
			})
		}
	}

	return errs
}

func validateRouting(rc *RoutingConfig, providers map[string]ProviderConfig) []FieldError {
	var errs []FieldError

	for i, name := range rc.Preference {
		if _, ok := providers[name]; !ok {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("routing.preference[%d]", i),
				Message: fmt.Sprintf("provider %q is not configured", name),
			})
		}
	}

	return errs
}

func validateLimits(lc *LimitsConfig) []FieldError {
	var errs []FieldError

	if lc.MaxRequests < 0 {
		errs = append(errs, FieldError{
			Field:   "limits.max_requests",
			Message: "must not be negative",
		})
	}
	if lc.Window < 0 {
		errs = append(errs, FieldError{
			Field:   "limits.window",
			Message: "must not be negative",
		})
	}

	return errs
}

func validateShield(sc *ShieldConfig) []FieldError {
	var errs []FieldError

	switch sc.PIIAction {
	case "block", "redact", "warn":
	default:
		errs = append(errs, FieldError{
			Field:   "shield.pii_action",
			Message: fmt.Sprintf("unknown action %q: must be \"block\", \"redact\", or \"warn\"", sc.PIIAction),
		})
	}

	switch sc.InjectionAction {
	case "block", "warn", "off":
	default:
		errs = append(errs, FieldError{
			Field:   "shield.injection_action",
			Message: fmt.Sprintf("unknown action %q: must be \"block\", \"warn\", or \"off\"", sc.InjectionAction),
		})
	}

	if sc.InjectionBlockThreshold < 0 || sc.InjectionBlockThreshold > 1 {
		errs = append(errs, FieldError{
			Field:   "shield.injection_block_threshold",
			Message: "must be between 0.0 and 1.0",
		})
	}

	return errs
}

func validateBreaker(bc *BreakerConfig) []FieldError {
	var errs []FieldError

	if bc.FailureThreshold < 1 {
		errs = append(errs, FieldError{
			Field:   "breaker.failure_threshold",
			Message: "must be at least 1",
		})
	}
	if bc.Cooldown <= 0 {
		errs = append(errs, FieldError{
			Field:   "breaker.cooldown",
			Message: "must be positive",
		})
	}

	return errs
}

func validateRetry(rc *RetryConfig) []FieldError {
	var errs []FieldError

	if rc.MaxAttempts < 1 {
		errs = append(errs, FieldError{
			Field:   "retry.max_attempts",
			Message: "must be at least 1",
		})
	}
	if rc.BaseDelay <= 0 {
		errs = append(errs, FieldError{
			Field:   "retry.base_delay",
			Message: "must be positive",
		})
	}
	if rc.MaxDelay < rc.BaseDelay {
		errs = append(errs, FieldError{
			Field:   "retry.max_delay",
			Message: "must be at least base_delay",
		})
	}
	if rc.JitterFactor < 0 || rc.JitterFactor > 1 {
		errs = append(errs, FieldError{
			Field:   "retry.jitter_factor",
			Message: "must be between 0.0 and 1.0",
		})
	}

	return errs
}

func validateTelemetry(tc *TelemetryConfig) []FieldError {
	var errs []FieldError

	switch tc.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("unknown level %q", tc.Logging.Level),
		})
	}

	switch tc.Logging.Format {
	case "json", "text":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("unknown format %q", tc.Logging.Format),
		})
	}

	return errs
}
