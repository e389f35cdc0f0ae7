package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"sentinel-hq/sentinel/pkg/providers"
)

func fastPolicy(maxAttempts int) *Policy {
	return NewPolicy(maxAttempts, time.Millisecond, 10*time.Millisecond, 0, nil)
}

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	p := fastPolicy(3)

	attempts := 0
	result, err := Do(context.Background(), p, func(context.Context) (string, error) {
		attempts++
		if attempts < 3 {
			return "", &providers.ProviderError{Provider: "openai", StatusCode: 503, Message: "overloaded"}
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if result != "ok" {
		t.Errorf("result = %q", result)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestDo_PermanentErrorReturnsImmediately(t *testing.T) {
	p := fastPolicy(5)

	attempts := 0
	_, err := Do(context.Background(), p, func(context.Context) (string, error) {
		attempts++
		return "", &providers.AuthError{Provider: "openai", Message: "bad key"}
	})

	var authErr *providers.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("want AuthError, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1 (no retries on permanent errors)", attempts)
	}
}

func TestDo_ExhaustionSurfacesLastFailure(t *testing.T) {
	p := fastPolicy(3)

	attempts := 0
	_, err := Do(context.Background(), p, func(context.Context) (string, error) {
		attempts++
		return "", &providers.ProviderError{Provider: "openai", StatusCode: 500 + attempts, Message: "boom"}
	})

	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
	var provErr *providers.ProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("want ProviderError, got %v", err)
	}
	if provErr.StatusCode != 503 {
		t.Errorf("surfaced status = %d, want the last attempt's 503", provErr.StatusCode)
	}
}

func TestDo_ContextCancellationStopsRetrying(t *testing.T) {
	p := NewPolicy(10, 50*time.Millisecond, time.Second, 0, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	attempts := 0
	_, err := Do(ctx, p, func(context.Context) (string, error) {
		attempts++
		return "", &providers.TimeoutError{Provider: "openai", Timeout: time.Second}
	})
	if err == nil {
		t.Fatal("want error after cancellation")
	}
	if attempts > 2 {
		t.Errorf("attempts = %d, cancellation should stop the loop early", attempts)
	}
}

func TestDo_OneOutcomePerLogicalCall(t *testing.T) {
	p := fastPolicy(3)

	// The caller observes exactly one successful return even though the
	// op failed twice internally.
	outcomes := 0
	result, err := Do(context.Background(), p, func() func(context.Context) (int, error) {
		n := 0
		return func(context.Context) (int, error) {
			n++
			if n < 3 {
				return 0, &providers.ProviderError{Provider: "p", StatusCode: 502}
			}
			return 42, nil
		}
	}())
	if err == nil {
		outcomes++
	}
	if outcomes != 1 || result != 42 {
		t.Errorf("outcomes = %d, result = %d; want exactly one success of 42", outcomes, result)
	}
}

// ===== Delay schedule tests =====

func TestExpBackOff_Schedule(t *testing.T) {
	b := &expBackOff{base: 100 * time.Millisecond, max: 350 * time.Millisecond, jitter: 0}

	want := []time.Duration{
		100 * time.Millisecond, // before attempt 2: base * 2^0
		200 * time.Millisecond, // before attempt 3: base * 2^1
		350 * time.Millisecond, // before attempt 4: capped at max
		350 * time.Millisecond,
	}
	for i, w := range want {
		if got := b.NextBackOff(); got != w {
			t.Errorf("delay %d = %s, want %s", i, got, w)
		}
	}

	b.Reset()
	if got := b.NextBackOff(); got != 100*time.Millisecond {
		t.Errorf("after reset, first delay = %s, want 100ms", got)
	}
}

func TestExpBackOff_JitterBounds(t *testing.T) {
	b := &expBackOff{base: 100 * time.Millisecond, max: time.Second, jitter: 0.5}

	for i := 0; i < 100; i++ {
		b.Reset()
		d := b.NextBackOff()
		if d < 100*time.Millisecond || d > 150*time.Millisecond {
			t.Fatalf("jittered delay %s outside [100ms, 150ms]", d)
		}
	}
}
