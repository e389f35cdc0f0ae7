package providers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// ProviderError is a general upstream failure carrying the provider name
// and HTTP status when one applies.
type ProviderError struct {
	// Provider is the name of the provider that failed
	Provider string

	// StatusCode is the upstream HTTP status (0 when not applicable)
	StatusCode int

	// Message describes the failure
	Message string

	// Cause is the underlying error, if any
	Cause error
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("provider %q error (status %d): %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("provider %q error: %s", e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// AuthError means the provider rejected the API key (401 or 403).
type AuthError struct {
	Provider string
	Message  string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("provider %q authentication failed: %s", e.Provider, e.Message)
}

// RateLimitError means the provider returned 429. RetryAfter carries the
// provider's hint when present.
type RateLimitError struct {
	Provider   string
	RetryAfter time.Duration
	Message    string
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("provider %q rate limited (retry after %s): %s",
			e.Provider, e.RetryAfter, e.Message)
	}
	return fmt.Sprintf("provider %q rate limited: %s", e.Provider, e.Message)
}

// TimeoutError means a single upstream attempt exceeded its deadline.
type TimeoutError struct {
	Provider string
	Timeout  time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("provider %q request timed out after %s", e.Provider, e.Timeout)
}

// ParseError means the provider returned a body the adapter could not
// decode.
type ParseError struct {
	Provider string
	Cause    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("provider %q response parse error: %v", e.Provider, e.Cause)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// StreamError means a streaming response failed after it started.
type StreamError struct {
	Provider string
	Message  string
	Cause    error
}

func (e *StreamError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("provider %q stream error: %s: %v", e.Provider, e.Message, e.Cause)
	}
	return fmt.Sprintf("provider %q stream error: %s", e.Provider, e.Message)
}

func (e *StreamError) Unwrap() error {
	return e.Cause
}

// IsRetryable reports whether err is worth retrying against the same
// provider: timeouts, dropped connections, provider 5xx, and provider
// 429. Auth failures, validation rejections, and other 4xx are permanent.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var timeoutErr *TimeoutError
	if errors.As(err, &timeoutErr) {
		return true
	}
	var rateLimitErr *RateLimitError
	if errors.As(err, &rateLimitErr) {
		return true
	}
	var provErr *ProviderError
	if errors.As(err, &provErr) {
		if provErr.StatusCode >= 500 {
			return true
		}
		if provErr.StatusCode >= 400 {
			return false
		}
		// No status: transport-level failure, retryable.
		return true
	}
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}

// IsProviderFailure reports whether err indicates the provider itself is
// unhealthy, which counts against its circuit breaker and justifies
// failing over to another provider. Caller mistakes (4xx other than 429)
// do not.
func IsProviderFailure(err error) bool {
	if err == nil {
		return false
	}

	var authErr *AuthError
	if errors.As(err, &authErr) {
		return false
	}
	var provErr *ProviderError
	if errors.As(err, &provErr) {
		return provErr.StatusCode == 0 || provErr.StatusCode >= 500 || provErr.StatusCode == 429
	}
	var rateLimitErr *RateLimitError
	if errors.As(err, &rateLimitErr) {
		return true
	}
	var timeoutErr *TimeoutError
	if errors.As(err, &timeoutErr) {
		return true
	}
	var streamErr *StreamError
	if errors.As(err, &streamErr) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
