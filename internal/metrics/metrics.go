// Package metrics exposes Prometheus collectors for the tutoring pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/felixgeelhaar/lulu/internal/domain"
)

// Metrics holds the pipeline collectors
type Metrics struct {
	registry    *prometheus.Registry
	requests    *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	tokens      *prometheus.CounterVec
	quotaDenied *prometheus.CounterVec
	generations *prometheus.CounterVec
	reconcile   *prometheus.CounterVec
}

// New creates and registers the collectors on a private registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lulu",
			Name:      "requests_total",
			Help:      "Model-backed requests by kind and whether they were served from cache.",
		}, []string{"kind", "cache"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "lulu",
			Name:      "request_duration_seconds",
			Help:      "End-to-end latency of model-backed requests.",
			Buckets:   []float64{0.01, 0.05, 0.25, 1, 2.5, 5, 10, 30, 60},
		}, []string{"kind"}),
		tokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lulu",
			Name:      "estimated_tokens_total",
			Help:      "Estimated tokens consumed by kind.",
		}, []string{"kind"}),
		quotaDenied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lulu",
			Name:      "quota_denied_total",
			Help:      "Requests denied by the model quota, by window.",
		}, []string{"window"}),
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lulu",
			Name:      "generations_total",
			Help:      "Calls to the generative model by outcome.",
		}, []string{"provider", "outcome"}),
		reconcile: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lulu",
			Name:      "reconcile_failures_total",
			Help:      "Model responses that could not be reconciled, by kind.",
		}, []string{"kind"}),
	}

	m.registry.MustRegister(
		m.requests, m.latency, m.tokens, m.quotaDenied, m.generations, m.reconcile,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveUsage records one model-backed request
func (m *Metrics) ObserveUsage(kind domain.RequestKind, cacheHit bool, latency time.Duration, tokens int) {
	cache := "miss"
	if cacheHit {
		cache = "hit"
	}
	m.requests.WithLabelValues(string(kind), cache).Inc()
	m.latency.WithLabelValues(string(kind)).Observe(latency.Seconds())
	m.tokens.WithLabelValues(string(kind)).Add(float64(tokens))
}

// QuotaDenied counts a denial by the named window
func (m *Metrics) QuotaDenied(window string) {
	m.quotaDenied.WithLabelValues(window).Inc()
}

// Generation counts a model call outcome ("ok" or "error")
func (m *Metrics) Generation(provider, outcome string) {
	m.generations.WithLabelValues(provider, outcome).Inc()
}

// ReconcileFailed counts an unusable model response
func (m *Metrics) ReconcileFailed(kind domain.RequestKind) {
	m.reconcile.WithLabelValues(string(kind)).Inc()
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
