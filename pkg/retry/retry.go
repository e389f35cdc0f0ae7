package retry

import (
	"context"
	"log/slog"
	"math"
	"math/rand/v2"
	"time"

	"github.com/cenkalti/backoff/v5"

	"sentinel-hq/sentinel/pkg/providers"
)

// Policy bounds the retry loop around one provider call. One Policy is
// shared by all requests; per-call state lives in the backoff instance
// created for each Do.
type Policy struct {
	// MaxAttempts is the total number of attempts including the first.
	MaxAttempts int

	// BaseDelay seeds the exponential backoff between attempts.
	BaseDelay time.Duration

	// MaxDelay caps the computed backoff.
	MaxDelay time.Duration

	// JitterFactor adds uniform random noise in [0, delay*JitterFactor]
	// on top of each computed delay.
	JitterFactor float64

	logger *slog.Logger
}

// NewPolicy creates a retry policy.
func NewPolicy(maxAttempts int, baseDelay, maxDelay time.Duration, jitterFactor float64, logger *slog.Logger) *Policy {
	if logger == nil {
		logger = slog.Default()
	}
	return &Policy{
		MaxAttempts:  maxAttempts,
		BaseDelay:    baseDelay,
		MaxDelay:     maxDelay,
		JitterFactor: jitterFactor,
		logger:       logger.With("component", "retry"),
	}
}

// Do runs op until it succeeds, fails permanently, or the attempt budget
// is spent. Only failures classified retryable by providers.IsRetryable
// are tried again; everything else returns immediately. When attempts
// run out, the last failure is surfaced unchanged so the caller can
// classify it — the caller sees one outcome per logical call, however
// many attempts happened inside.
func Do[T any](ctx context.Context, p *Policy, op func(context.Context) (T, error)) (T, error) {
	operation := func() (T, error) {
		v, err := op(ctx)
		if err != nil && !providers.IsRetryable(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(p.newBackOff()),
		backoff.WithMaxTries(uint(p.MaxAttempts)),
		backoff.WithNotify(func(err error, delay time.Duration) {
			p.logger.WarnContext(ctx, "attempt failed, backing off",
				"delay", delay, "error", err)
		}),
	)
}

// newBackOff builds the per-call delay schedule: the delay before
// attempt k (k >= 2) is min(MaxDelay, BaseDelay * 2^(k-2)) plus uniform
// jitter in [0, delay*JitterFactor].
func (p *Policy) newBackOff() backoff.BackOff {
	return &expBackOff{
		base:   p.BaseDelay,
		max:    p.MaxDelay,
		jitter: p.JitterFactor,
	}
}

type expBackOff struct {
	base    time.Duration
	max     time.Duration
	jitter  float64
	attempt int
}

func (b *expBackOff) NextBackOff() time.Duration {
	delay := float64(b.base) * math.Pow(2, float64(b.attempt))
	if delay > float64(b.max) {
		delay = float64(b.max)
	}
	b.attempt++

	return time.Duration(delay + rand.Float64()*b.jitter*delay)
}

func (b *expBackOff) Reset() {
	b.attempt = 0
}
