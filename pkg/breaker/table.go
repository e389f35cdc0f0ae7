package breaker

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"sentinel-hq/sentinel/pkg/store"
)

const (
	keyPrefix   = "breaker:"
	snapshotTTL = 24 * time.Hour
)

// snapshot is the persisted form of a breaker's state.
type snapshot struct {
	State    State `json:"state"`
	Failures int32 `json:"failures"`
	OpenedAt int64 `json:"opened_at"`
}

// Table owns one breaker per provider name. Breakers are created lazily
// with the table's shared threshold and cooldown, and optionally persist
// their state to the shared store so an open circuit survives a restart.
type Table struct {
	threshold int
	cooldown  time.Duration
	store     store.Store // nil disables persistence
	logger    *slog.Logger

	mu       sync.RWMutex
	breakers map[string]*Breaker
}

// NewTable creates a breaker table. Pass a nil store to keep breaker
// state in memory only.
func NewTable(threshold int, cooldown time.Duration, st store.Store, logger *slog.Logger) *Table {
	if logger == nil {
		logger = slog.Default()
	}
	return &Table{
		threshold: threshold,
		cooldown:  cooldown,
		store:     st,
		logger:    logger,
		breakers:  make(map[string]*Breaker),
	}
}

// Get returns the breaker for a provider, creating it on first use.
func (t *Table) Get(name string) *Breaker {
	t.mu.RLock()
	b, ok := t.breakers[name]
	t.mu.RUnlock()
	if ok {
		return b
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if b, ok := t.breakers[name]; ok {
		return b
	}

	b = New(name, t.threshold, t.cooldown, t.logger)
	if t.store != nil {
		t.restore(b)
		b.onTransition = t.persist
	}
	t.breakers[name] = b
	return b
}

// States returns a name → state view for health reporting.
func (t *Table) States() map[string]State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]State, len(t.breakers))
	for name, b := range t.breakers {
		out[name] = b.State()
	}
	return out
}

// restore loads a persisted snapshot into a fresh breaker. Only open
// state is worth restoring; a half-open snapshot comes back as open so
// the probe race restarts cleanly.
func (t *Table) restore(b *Breaker) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	raw, found, err := t.store.Get(ctx, keyPrefix+b.name)
	if err != nil || !found {
		return
	}
	var snap snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return
	}

	b.failures.Store(snap.Failures)
	if snap.State == StateOpen || snap.State == StateHalfOpen {
		b.state.Store(int32(StateOpen))
		b.openedAt.Store(snap.OpenedAt)
		t.logger.Info("restored open circuit from store",
			"provider", b.name, "failures", snap.Failures)
	}
}

// persist writes a snapshot on every transition. Best effort: a failed
// write only loses restart continuity, never correctness.
func (t *Table) persist(name string, _, to State) {
	t.mu.RLock()
	b := t.breakers[name]
	t.mu.RUnlock()
	if b == nil {
		return
	}

	raw, err := json.Marshal(snapshot{
		State:    to,
		Failures: b.failures.Load(),
		OpenedAt: b.openedAt.Load(),
	})
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := t.store.Set(ctx, keyPrefix+name, raw, snapshotTTL); err != nil {
		t.logger.Warn("breaker snapshot write failed", "provider", name, "error", err)
	}
}
