package breaker

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
)

// State is a circuit breaker state.
type State int32

const (
	// StateClosed admits all calls; failures are counted.
	StateClosed State = iota
	// StateOpen short-circuits all calls until the cooldown elapses.
	StateOpen
	// StateHalfOpen admits exactly one probe; everyone else is
	// short-circuited until the probe resolves.
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// OpenError is returned when a call is short-circuited. RetryAfter is
// the time remaining until the breaker will admit a probe.
type OpenError struct {
	Provider   string
	RetryAfter time.Duration
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("provider %q unavailable (circuit open, retry after %s)", e.Provider, e.RetryAfter)
}

// Breaker is a per-provider circuit breaker. All state lives in atomics
// so concurrent requests never serialize behind a lock; the single-probe
// admission in particular is a compare-and-set on the probe flag, which
// guarantees exactly one winner among racing callers.
//
// The caller contract is Allow then exactly one of Success, Failure, or
// Release on the returned Admission. Outcomes should reflect whole
// logical calls: feed the breaker the result after any retry loop
// finishes, not each individual attempt.
type Breaker struct {
	name      string
	threshold int
	cooldown  time.Duration
	logger    *slog.Logger

	state    atomic.Int32
	failures atomic.Int32
	openedAt atomic.Int64 // unix nanos of the OPEN transition
	probing  atomic.Bool
	gen      atomic.Int64 // bumped on every OPEN transition

	// onTransition, when set, observes state changes (metrics, persistence).
	onTransition func(name string, from, to State)
}

// Admission is one admitted call. Each admission settles at most once:
// Success, Failure, or Release, whichever comes first; later reports
// are ignored. An admission carries the generation it was granted
// under, so a slow call that outlives a trip of the circuit cannot
// close or re-trip it on stale evidence.
type Admission struct {
	b       *Breaker
	gen     int64
	probe   bool
	settled atomic.Bool
}

// New creates a closed breaker tripping after threshold consecutive
// failures and cooling down for the given duration.
func New(name string, threshold int, cooldown time.Duration, logger *slog.Logger) *Breaker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Breaker{
		name:      name,
		threshold: threshold,
		cooldown:  cooldown,
		logger:    logger.With("component", "breaker", "provider", name),
	}
}

// State returns the current state.
func (b *Breaker) State() State {
	return State(b.state.Load())
}

// Failures returns the consecutive-failure count.
func (b *Breaker) Failures() int {
	return int(b.failures.Load())
}

// Allow decides whether a call may proceed. It returns an Admission
// when the call is admitted and an OpenError when short-circuited; no
// network access happens on the short-circuit path.
//
// When the cooldown has elapsed on an open breaker, the first caller to
// win the probe flag proceeds as the half-open probe; concurrent losers
// are rejected as if the breaker were still open.
func (b *Breaker) Allow() (*Admission, error) {
	switch State(b.state.Load()) {
	case StateOpen:
		elapsed := time.Since(time.Unix(0, b.openedAt.Load()))
		if elapsed < b.cooldown {
			return nil, &OpenError{Provider: b.name, RetryAfter: b.cooldown - elapsed}
		}
		// Cooldown over: move to half-open. Losing the CAS just means
		// another caller already did it.
		if b.state.CompareAndSwap(int32(StateOpen), int32(StateHalfOpen)) {
			b.transitioned(StateOpen, StateHalfOpen)
		}
		return b.tryProbe()

	case StateHalfOpen:
		return b.tryProbe()
	}
	return &Admission{b: b, gen: b.gen.Load()}, nil
}

// tryProbe admits at most one caller while half-open.
func (b *Breaker) tryProbe() (*Admission, error) {
	if b.probing.CompareAndSwap(false, true) {
		b.logger.Info("admitting half-open probe")
		return &Admission{b: b, gen: b.gen.Load(), probe: true}, nil
	}
	return nil, &OpenError{Provider: b.name, RetryAfter: b.cooldown}
}

// Success records a successful call. A successful half-open probe
// closes the breaker and resets the failure counter. A success granted
// before the circuit last opened is stale and ignored: only the probe
// itself may close a half-open breaker.
func (a *Admission) Success() {
	if !a.settled.CompareAndSwap(false, true) {
		return
	}
	b := a.b
	if a.probe {
		if b.state.CompareAndSwap(int32(StateHalfOpen), int32(StateClosed)) {
			b.failures.Store(0)
			b.probing.Store(false)
			b.logger.Info("probe succeeded, circuit closed")
			b.transitioned(StateHalfOpen, StateClosed)
		}
		return
	}
	if b.gen.Load() != a.gen {
		return
	}
	b.failures.Store(0)
}

// Failure records a failed call. While closed, reaching the threshold
// opens the breaker; a failed half-open probe reopens it and restarts
// the cooldown clock. Failures from before the last OPEN transition are
// stale and ignored.
func (a *Admission) Failure() {
	if !a.settled.CompareAndSwap(false, true) {
		return
	}
	b := a.b
	if a.probe {
		if b.state.CompareAndSwap(int32(StateHalfOpen), int32(StateOpen)) {
			b.openedAt.Store(time.Now().UnixNano())
			b.gen.Add(1)
			b.probing.Store(false)
			b.logger.Warn("probe failed, circuit reopened")
			b.transitioned(StateHalfOpen, StateOpen)
		}
		return
	}
	if b.gen.Load() != a.gen {
		return
	}

	failures := b.failures.Add(1)
	if int(failures) >= b.threshold {
		if b.state.CompareAndSwap(int32(StateClosed), int32(StateOpen)) {
			b.openedAt.Store(time.Now().UnixNano())
			b.gen.Add(1)
			b.logger.Warn("failure threshold reached, circuit opened",
				"failures", failures, "threshold", b.threshold)
			b.transitioned(StateClosed, StateOpen)
		}
	}
}

// Release discards the admission without judging the provider. Use it
// when the call ended for reasons that say nothing about provider
// health: a caller mistake, or the client going away. A released probe
// hands the half-open slot to the next caller.
func (a *Admission) Release() {
	if !a.settled.CompareAndSwap(false, true) {
		return
	}
	if a.probe {
		a.b.probing.Store(false)
	}
}

func (b *Breaker) transitioned(from, to State) {
	if b.onTransition != nil {
		b.onTransition(b.name, from, to)
	}
}
