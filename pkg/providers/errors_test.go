package providers

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

// ===== Error message tests =====

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "provider error with status",
			err:  &ProviderError{Provider: "openai", StatusCode: 500, Message: "boom"},
			want: `provider "openai" error (status 500): boom`,
		},
		{
			name: "provider error without status",
			err:  &ProviderError{Provider: "openai", Message: "conn refused"},
			want: `provider "openai" error: conn refused`,
		},
		{
			name: "auth error",
			err:  &AuthError{Provider: "anthropic", Message: "bad key"},
			want: `provider "anthropic" authentication failed: bad key`,
		},
		{
			name: "rate limit with hint",
			err:  &RateLimitError{Provider: "openai", RetryAfter: 5 * time.Second, Message: "slow down"},
			want: `provider "openai" rate limited (retry after 5s): slow down`,
		},
		{
			name: "timeout",
			err:  &TimeoutError{Provider: "openai", Timeout: 30 * time.Second},
			want: `provider "openai" request timed out after 30s`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := fmt.Errorf("underlying")
	err := &ProviderError{Provider: "openai", Message: "wrapper", Cause: cause}
	if !errors.Is(err, cause) {
		t.Error("ProviderError should unwrap to its cause")
	}
}

// ===== Classification tests =====

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"timeout", &TimeoutError{Provider: "p", Timeout: time.Second}, true},
		{"rate limit", &RateLimitError{Provider: "p"}, true},
		{"server error", &ProviderError{Provider: "p", StatusCode: 502}, true},
		{"transport failure", &ProviderError{Provider: "p", Message: "conn reset"}, true},
		{"bad request", &ProviderError{Provider: "p", StatusCode: 400}, false},
		{"not found", &ProviderError{Provider: "p", StatusCode: 404}, false},
		{"auth", &AuthError{Provider: "p"}, false},
		{"deadline", context.DeadlineExceeded, true},
		{"plain error", errors.New("whatever"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsProviderFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"server error", &ProviderError{Provider: "p", StatusCode: 503}, true},
		{"transport failure", &ProviderError{Provider: "p"}, true},
		{"rate limit", &RateLimitError{Provider: "p"}, true},
		{"timeout", &TimeoutError{Provider: "p"}, true},
		{"stream failure", &StreamError{Provider: "p", Message: "cut"}, true},
		{"bad request", &ProviderError{Provider: "p", StatusCode: 400}, false},
		{"auth", &AuthError{Provider: "p"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsProviderFailure(tt.err); got != tt.want {
				t.Errorf("IsProviderFailure(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

// ===== Retry-After parsing tests =====

func TestParseRetryAfter(t *testing.T) {
	if got := ParseRetryAfter(""); got != 0 {
		t.Errorf("empty header = %s, want 0", got)
	}
	if got := ParseRetryAfter("7"); got != 7*time.Second {
		t.Errorf("seconds form = %s, want 7s", got)
	}
	if got := ParseRetryAfter("garbage"); got != 0 {
		t.Errorf("garbage header = %s, want 0", got)
	}
}
