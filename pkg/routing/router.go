package routing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"sentinel-hq/sentinel/pkg/breaker"
	"sentinel-hq/sentinel/pkg/providers"
	"sentinel-hq/sentinel/pkg/retry"
)

// NoProviderError means no configured provider could serve the request.
type NoProviderError struct {
	Hint string
}

func (e *NoProviderError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("no provider available for hint %q", e.Hint)
	}
	return "no provider available"
}

// AllFailedError means every candidate provider was tried and failed.
// Last holds the final provider's failure.
type AllFailedError struct {
	Attempted []string
	Last      error
}

func (e *AllFailedError) Error() string {
	return fmt.Sprintf("all providers failed (tried %v): %v", e.Attempted, e.Last)
}

func (e *AllFailedError) Unwrap() error {
	return e.Last
}

// Router selects providers and drives calls through each provider's
// circuit breaker and the shared retry policy. Selection order is the
// request's provider hint when present, then the configured preference
// list. The breaker sees one signal per logical call: the outcome after
// the retry loop finishes, not each attempt.
type Router struct {
	providers map[string]providers.Provider
	order     []string
	breakers  *breaker.Table
	retry     *retry.Policy
	failover  bool
	logger    *slog.Logger
}

// New creates a Router over the given providers. order is the static
// preference list; failover enables trying the next candidate after a
// provider-level failure on non-streaming calls.
func New(provs map[string]providers.Provider, order []string, breakers *breaker.Table, policy *retry.Policy, failover bool, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		providers: provs,
		order:     order,
		breakers:  breakers,
		retry:     policy,
		failover:  failover,
		logger:    logger.With("component", "router"),
	}
}

// candidates returns the providers to try, in priority order. An
// explicit hint narrows the list to that provider alone; an unknown
// hint yields nothing.
func (r *Router) candidates(hint string) []providers.Provider {
	if hint != "" {
		if p, ok := r.providers[hint]; ok {
			return []providers.Provider{p}
		}
		return nil
	}
	out := make([]providers.Provider, 0, len(r.order))
	for _, name := range r.order {
		if p, ok := r.providers[name]; ok {
			out = append(out, p)
		}
	}
	return out
}

// Breakers exposes the breaker table for health reporting.
func (r *Router) Breakers() *breaker.Table {
	return r.breakers
}

// Complete routes a non-streaming call. Candidates are tried in order;
// each gets its own breaker admission and full retry budget. Failover
// to the next candidate happens only for provider-level failures —
// caller mistakes return immediately, because the next provider would
// reject them identically.
func (r *Router) Complete(ctx context.Context, hint string, req *providers.CompletionRequest) (*providers.CompletionResponse, error) {
	cands := r.candidates(hint)
	if len(cands) == 0 {
		return nil, &NoProviderError{Hint: hint}
	}

	var attempted []string
	var lastErr error
	sawRealFailure := false
	for _, p := range cands {
		adm, err := r.breakers.Get(p.Name()).Allow()
		if err != nil {
			r.logger.DebugContext(ctx, "provider short-circuited", "provider", p.Name())
			attempted = append(attempted, p.Name())
			lastErr = err
			continue
		}

		resp, err := retry.Do(ctx, r.retry, func(ctx context.Context) (*providers.CompletionResponse, error) {
			return p.Complete(ctx, req)
		})
		if err == nil {
			adm.Success()
			return resp, nil
		}

		attempted = append(attempted, p.Name())
		lastErr = err

		if !providers.IsProviderFailure(err) {
			// Request-level failure: not the provider's fault, and no
			// other provider would answer differently. Hand the admission
			// back without a verdict so a half-open probe slot is not
			// consumed by a caller mistake.
			adm.Release()
			return nil, err
		}

		adm.Failure()
		sawRealFailure = true
		if !r.failover {
			return nil, err
		}
		r.logger.WarnContext(ctx, "provider failed, trying next candidate",
			"provider", p.Name(), "error", err)
	}

	var openErr *breaker.OpenError
	if !sawRealFailure && errors.As(lastErr, &openErr) {
		// Every candidate was short-circuited: surface the breaker error
		// directly so the client gets an unavailable status with a hint.
		return nil, lastErr
	}
	return nil, &AllFailedError{Attempted: attempted, Last: lastErr}
}

// Stream routes a streaming call. Selection picks the first candidate
// whose breaker admits the call; there is no failover once selected —
// partial content already sent to a client cannot be retracted, so a
// broken stream terminates rather than switching providers. The initial
// connection attempt still gets the retry budget, since no bytes have
// been forwarded before the stream exists.
//
// The breaker signal for the whole stream is deferred to the terminal
// chunk: a clean terminal counts as success, an error terminal as one
// failure. A stream cut short by the client's own cancellation is not
// held against the provider.
func (r *Router) Stream(ctx context.Context, hint string, req *providers.CompletionRequest) (string, <-chan providers.StreamChunk, error) {
	cands := r.candidates(hint)
	if len(cands) == 0 {
		return "", nil, &NoProviderError{Hint: hint}
	}

	var lastErr error
	for _, p := range cands {
		adm, err := r.breakers.Get(p.Name()).Allow()
		if err != nil {
			lastErr = err
			continue
		}

		chunks, err := retry.Do(ctx, r.retry, func(ctx context.Context) (<-chan providers.StreamChunk, error) {
			return p.Stream(ctx, req)
		})
		if err != nil {
			if providers.IsProviderFailure(err) {
				adm.Failure()
			} else {
				adm.Release()
			}
			return p.Name(), nil, err
		}
		return p.Name(), r.observe(ctx, adm, chunks), nil
	}
	return "", nil, lastErr
}

// observe relays chunks while watching for the terminal, feeding the
// stream's single outcome to its provider's breaker. When ctx is
// canceled (the client hung up) the relay stops, drains the upstream
// feed so its decoder can exit, and releases the admission: a client
// walking away says nothing about provider health.
func (r *Router) observe(ctx context.Context, adm *breaker.Admission, in <-chan providers.StreamChunk) <-chan providers.StreamChunk {
	out := make(chan providers.StreamChunk)
	go func() {
		defer close(out)
		resolved := false
		for chunk := range in {
			if chunk.Done && !resolved {
				resolved = true
				switch {
				case chunk.Err == nil:
					adm.Success()
				case errors.Is(chunk.Err, context.Canceled):
					adm.Release()
				default:
					adm.Failure()
				}
			}
			select {
			case out <- chunk:
			case <-ctx.Done():
				if !resolved {
					adm.Release()
				}
				for range in {
				}
				return
			}
		}
		if !resolved {
			// Channel closed without a terminal chunk.
			adm.Failure()
		}
	}()
	return out
}
