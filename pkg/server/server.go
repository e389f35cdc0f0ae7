package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"sentinel-hq/sentinel/pkg/breaker"
	"sentinel-hq/sentinel/pkg/cache"
	"sentinel-hq/sentinel/pkg/config"
	"sentinel-hq/sentinel/pkg/processing/costs"
	"sentinel-hq/sentinel/pkg/providerfactory"
	"sentinel-hq/sentinel/pkg/providers"
	"sentinel-hq/sentinel/pkg/proxy/handlers"
	"sentinel-hq/sentinel/pkg/proxy/middleware"
	"sentinel-hq/sentinel/pkg/ratelimit"
	"sentinel-hq/sentinel/pkg/retry"
	"sentinel-hq/sentinel/pkg/routing"
	"sentinel-hq/sentinel/pkg/shield"
	"sentinel-hq/sentinel/pkg/store"
	"sentinel-hq/sentinel/pkg/telemetry/metrics"
)

// Server is the assembled gateway: the shared store, the request pipeline,
// and the HTTP listener, with lifecycle management on top.
type Server struct {
	cfg    *config.Config
	logger *slog.Logger

	store     store.Store
	pruner    *store.Pruner
	providers map[string]providers.Provider
	breakers  *breaker.Table
	router    *routing.Router
	metrics   *metrics.Metrics
	chat      *handlers.ChatHandler
	health    *handlers.HealthHandler

	httpServer   *http.Server
	shutdownOnce sync.Once
	mu           sync.Mutex
	running      bool
}

// New assembles a server from configuration. The configuration must have
// passed config.Validate and had defaults applied.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	st, err := newStore(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}

	provs, err := providerfactory.Build(cfg.Providers)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("providers: %w", err)
	}

	var breakerStore store.Store
	if cfg.Breaker.Persist {
		breakerStore = st
	}
	breakers := breaker.NewTable(cfg.Breaker.FailureThreshold, cfg.Breaker.Cooldown, breakerStore, logger)

	policy := retry.NewPolicy(
		cfg.Retry.MaxAttempts,
		cfg.Retry.BaseDelay,
		cfg.Retry.MaxDelay,
		cfg.Retry.JitterFactor,
		logger,
	)

	router := routing.New(provs, cfg.Routing.Preference, breakers, policy,
		cfg.Routing.FailoverEnabled == nil || *cfg.Routing.FailoverEnabled, logger)

	m := metrics.NewWithBuckets(cfg.Telemetry.Metrics.RequestDurationBuckets)

	chatCfg := handlers.ChatConfig{
		Router:  router,
		Costs:   costs.NewCalculator(nil),
		Metrics: m,
		Logger:  logger,
	}

	if cfg.Limits.Enabled == nil || *cfg.Limits.Enabled {
		chatCfg.Limiter = ratelimit.New(st, cfg.Limits.MaxRequests, cfg.Limits.Window, logger)
	}

	if action := shield.ParseAction(cfg.Shield.PIIAction); cfg.Shield.PIIAction != "off" {
		chatCfg.Shield = shield.New(shield.NewRegexDetector(), action, logger)
	}
	if cfg.Shield.InjectionAction != "off" {
		blockThreshold := cfg.Shield.InjectionBlockThreshold
		if cfg.Shield.InjectionAction != "block" {
			// Warn-only mode: never recommend blocking regardless of score.
			blockThreshold = 1.1
		}
		chatCfg.Injection = shield.NewInjectionDetector(blockThreshold, 0.3, logger)
	}

	if cfg.Cache.Enabled == nil || *cfg.Cache.Enabled {
		chatCfg.Cache = cache.New(st, cfg.Cache.TTL, logger)
		chatCfg.CacheStreams = cfg.Cache.CacheStreaming == nil || *cfg.Cache.CacheStreaming
		chatCfg.Coalesce = cfg.Cache.Coalesce == nil || *cfg.Cache.Coalesce
	}

	var pruner *store.Pruner
	if cfg.Store.PruneSchedule != "" {
		pruner = store.NewPruner(st, cfg.Store.PruneSchedule, logger)
	}

	return &Server{
		cfg:       cfg,
		logger:    logger,
		store:     st,
		pruner:    pruner,
		providers: provs,
		breakers:  breakers,
		router:    router,
		metrics:   m,
		chat:      handlers.NewChatHandler(chatCfg),
		health:    handlers.NewHealthHandler(st, breakers),
	}, nil
}

func newStore(cfg *config.Config, logger *slog.Logger) (store.Store, error) {
	switch cfg.Store.Backend {
	case "", "memory":
		return store.NewMemory(), nil
	case "sqlite":
		return store.NewSQLite(cfg.Store.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// Start runs the HTTP listener and blocks until the context is cancelled,
// a shutdown signal arrives, or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.running = true
	s.mu.Unlock()

	if s.pruner != nil {
		if err := s.pruner.Start(ctx); err != nil {
			return fmt.Errorf("pruner: %w", err)
		}
	}

	s.httpServer = &http.Server{
		Addr:           s.cfg.Gateway.ListenAddress,
		Handler:        s.routes(),
		ReadTimeout:    s.cfg.Gateway.ReadTimeout,
		WriteTimeout:   s.cfg.Gateway.WriteTimeout,
		IdleTimeout:    s.cfg.Gateway.IdleTimeout,
		MaxHeaderBytes: s.cfg.Gateway.MaxHeaderBytes,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting gateway",
			"address", s.cfg.Gateway.ListenAddress,
			"providers", len(s.providers),
			"store", s.cfg.Store.Backend,
		)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("listener: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, shutting down")
		return s.Shutdown(context.Background())
	case sig := <-sigChan:
		s.logger.Info("received shutdown signal", "signal", sig.String())
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	}
}

// Shutdown drains in-flight requests and releases every resource. Safe to
// call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.logger.Info("initiating graceful shutdown",
			"timeout", s.cfg.Gateway.ShutdownTimeout.String())

		if s.httpServer != nil {
			shutdownCtx, cancel := context.WithTimeout(ctx, s.cfg.Gateway.ShutdownTimeout)
			defer cancel()
			if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
				shutdownErr = fmt.Errorf("http shutdown: %w", err)
			}
		}

		if s.pruner != nil {
			s.pruner.Stop()
		}

		providerfactory.CloseAll(s.providers)

		if err := s.store.Close(); err != nil && shutdownErr == nil {
			shutdownErr = fmt.Errorf("store close: %w", err)
		}

		s.mu.Lock()
		s.running = false
		s.mu.Unlock()

		s.logger.Info("gateway stopped")
	})

	return shutdownErr
}

// routes builds the mux and wraps it in the middleware chain.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/v1/chat/completions", s.chat)
	mux.HandleFunc("/healthz", s.health.Liveness)
	mux.HandleFunc("/readyz", s.health.Readiness)
	mux.HandleFunc("/health", s.health.Liveness)
	mux.HandleFunc("/health/ready", s.health.Readiness)

	if s.cfg.Telemetry.Metrics.Enabled == nil || *s.cfg.Telemetry.Metrics.Enabled {
		mux.Handle("/metrics", s.metrics.Handler())
	}

	var handler http.Handler = mux
	handler = middleware.Metrics(s.metrics)(handler)
	handler = middleware.Logging(s.logger)(handler)
	handler = middleware.RequestID(handler)
	handler = middleware.Recovery(s.logger)(handler)

	return handler
}

// Router exposes the assembled router, mainly for tests and diagnostics.
func (s *Server) Router() *routing.Router {
	return s.router
}

// Handler returns the fully wired HTTP handler without starting a
// listener. Useful for embedding and integration tests.
func (s *Server) Handler() http.Handler {
	return s.routes()
}
