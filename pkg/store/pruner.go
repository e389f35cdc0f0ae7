package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// Pruner runs scheduled pruning of expired store entries using cron syntax.
// Backends drop expired entries lazily on access; the pruner reclaims space
// for keys no request ever touches again (abandoned rate-limit windows,
// cached responses for one-off prompts).
type Pruner struct {
	store    Store
	schedule string
	cron     *cron.Cron
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
}

// NewPruner creates a pruner that runs store.Prune on the given cron
// schedule (e.g., "*/5 * * * *" for every five minutes).
func NewPruner(store Store, schedule string, logger *slog.Logger) *Pruner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pruner{
		store:    store,
		schedule: schedule,
		cron:     cron.New(),
		logger:   logger.With("component", "store.pruner"),
	}
}

// Start begins scheduled pruning. An empty schedule disables the pruner.
// The pruner stops when the context is cancelled or Stop is called.
func (p *Pruner) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.schedule == "" {
		p.logger.Info("prune schedule not configured, skipping pruner")
		return nil
	}
	if p.running {
		return fmt.Errorf("pruner already running")
	}

	if _, err := cron.ParseStandard(p.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", p.schedule, err)
	}

	if _, err := p.cron.AddFunc(p.schedule, func() {
		p.runPrune(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule pruning: %w", err)
	}

	p.cron.Start()
	p.running = true

	p.logger.Info("store pruner started", "schedule", p.schedule)

	go func() {
		<-ctx.Done()
		p.Stop()
	}()

	return nil
}

// runPrune executes one pruning pass.
func (p *Pruner) runPrune(ctx context.Context) {
	removed, err := p.store.Prune(ctx)
	if err != nil {
		p.logger.Warn("store pruning failed", "error", err)
		return
	}
	if removed > 0 {
		p.logger.Debug("pruned expired store entries", "removed", removed)
	}
}

// Stop halts scheduled pruning and waits for a running pass to finish.
func (p *Pruner) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}
	ctx := p.cron.Stop()
	<-ctx.Done()
	p.running = false

	p.logger.Info("store pruner stopped")
}
