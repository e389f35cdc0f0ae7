package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the gateway's Prometheus collectors. All collectors
// register on a private registry so tests can create as many instances
// as they like without duplicate-registration panics.
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter

	RateLimitRejections prometheus.Counter

	ShieldDetections *prometheus.CounterVec
	ShieldBlocks     prometheus.Counter

	ProviderRequests *prometheus.CounterVec
	BreakerState     *prometheus.GaugeVec

	TokensTotal *prometheus.CounterVec
	CostUSD     *prometheus.CounterVec
}

// New creates the collector set on a fresh registry with default latency
// buckets.
func New() *Metrics {
	return NewWithBuckets(nil)
}

// NewWithBuckets creates the collector set with custom request latency
// buckets. Nil buckets fall back to defaults tuned for LLM latencies.
func NewWithBuckets(buckets []float64) *Metrics {
	if len(buckets) == 0 {
		buckets = []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,

		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_requests_total",
			Help: "Total HTTP requests by path and status code.",
		}, []string{"path", "status"}),

		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sentinel_request_duration_seconds",
			Help:    "HTTP request latency by path.",
			Buckets: buckets,
		}, []string{"path"}),

		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "sentinel_cache_hits_total",
			Help: "Response cache hits.",
		}),

		CacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "sentinel_cache_misses_total",
			Help: "Response cache misses.",
		}),

		RateLimitRejections: factory.NewCounter(prometheus.CounterOpts{
			Name: "sentinel_ratelimit_rejections_total",
			Help: "Requests rejected by the rate limiter.",
		}),

		ShieldDetections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_shield_detections_total",
			Help: "Sensitive content detections by entity type.",
		}, []string{"entity_type"}),

		ShieldBlocks: factory.NewCounter(prometheus.CounterOpts{
			Name: "sentinel_shield_blocks_total",
			Help: "Requests blocked by the content shield.",
		}),

		ProviderRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_provider_requests_total",
			Help: "Upstream provider calls by provider and outcome.",
		}, []string{"provider", "outcome"}),

		BreakerState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sentinel_breaker_state",
			Help: "Circuit breaker state per provider (0=closed, 1=open, 2=half_open).",
		}, []string{"provider"}),

		TokensTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_tokens_total",
			Help: "Tokens consumed by model and direction.",
		}, []string{"model", "direction"}),

		CostUSD: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_cost_usd_total",
			Help: "Accumulated USD cost by model.",
		}, []string{"model"}),
	}
}

// ObserveRequest records one completed HTTP request.
func (m *Metrics) ObserveRequest(path string, status int, elapsed time.Duration) {
	m.RequestsTotal.WithLabelValues(path, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(path).Observe(elapsed.Seconds())
}

// Handler serves the scrape endpoint for this metrics set.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for test gathering.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
