// Package metrics exposes the service's Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Auth event outcomes
const (
	OutcomeSuccess     = "success"
	OutcomeFailure     = "failure"
	OutcomeRateLimited = "rate_limited"
	OutcomeError       = "error"
)

// Metrics holds the collectors registered on one registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	authEvents     *prometheus.CounterVec
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	limiterTracked prometheus.Gauge
	limiterPruned  prometheus.Counter
}

// New creates a registry with process and Go collectors plus the service metrics
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		authEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chorely",
			Subsystem: "auth",
			Name:      "events_total",
			Help:      "Session operations by event and outcome.",
		}, []string{"event", "outcome"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chorely",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route pattern and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "chorely",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		limiterTracked: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "chorely",
			Subsystem: "login_limiter",
			Name:      "tracked_ips",
			Help:      "Client IPs with an open login attempt window.",
		}),
		limiterPruned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chorely",
			Subsystem: "login_limiter",
			Name:      "pruned_total",
			Help:      "Elapsed login attempt windows dropped.",
		}),
	}

	reg.MustRegister(m.authEvents, m.httpRequests, m.httpDuration, m.limiterTracked, m.limiterPruned)
	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// AuthEvent counts a register, login, refresh or logout outcome
func (m *Metrics) AuthEvent(event, outcome string) {
	if m == nil {
		return
	}
	m.authEvents.WithLabelValues(event, outcome).Inc()
}

// ObserveRequest records a finished HTTP request
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// LimiterPruned records a prune pass over the login limiter
func (m *Metrics) LimiterPruned(removed, remaining int) {
	if m == nil {
		return
	}
	m.limiterPruned.Add(float64(removed))
	m.limiterTracked.Set(float64(remaining))
}
