// Package obs holds the Prometheus instruments for planning and provider
// calls. All methods are safe on a nil *Metrics, which records nothing.
package obs

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tripplanner"

// Provider call outcomes.
const (
	OutcomeOK       = "ok"
	OutcomeError    = "error"
	OutcomeTimeout  = "timeout"
	OutcomeSkipped  = "skipped"
	OutcomeCacheHit = "cache_hit"
)

type Metrics struct {
	registry         *prometheus.Registry
	providerRequests *prometheus.CounterVec
	providerLatency  *prometheus.HistogramVec
	fallbacks        *prometheus.CounterVec
	plans            *prometheus.CounterVec
	planDuration     prometheus.Histogram
}

func NewMetrics() (*Metrics, error) {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		providerRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_requests_total",
			Help:      "Provider searches by provider and outcome.",
		}, []string{"provider", "outcome"}),
		providerLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_request_duration_seconds",
			Help:      "Provider search latency, including retries.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
		}, []string{"provider"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallback_total",
			Help:      "Legs served with synthetic candidates.",
		}, []string{"leg"}),
		plans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plans_total",
			Help:      "Completed plans by data status.",
		}, []string{"status"}),
		planDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "plan_duration_seconds",
			Help:      "End-to-end planning latency.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	collectors := []prometheus.Collector{
		m.providerRequests,
		m.providerLatency,
		m.fallbacks,
		m.plans,
		m.planDuration,
		prometheus.NewGoCollector(),
	}
	for _, c := range collectors {
		if err := m.registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register collector: %w", err)
		}
	}
	return m, nil
}

func (m *Metrics) ProviderRequest(provider, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.providerRequests.WithLabelValues(provider, outcome).Inc()
	if outcome != OutcomeSkipped && outcome != OutcomeCacheHit {
		m.providerLatency.WithLabelValues(provider).Observe(elapsed.Seconds())
	}
}

func (m *Metrics) Fallback(leg string) {
	if m == nil {
		return
	}
	m.fallbacks.WithLabelValues(leg).Inc()
}

func (m *Metrics) PlanCompleted(status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.plans.WithLabelValues(status).Inc()
	m.planDuration.Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry is exposed for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
