package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds the Prometheus collectors of the service. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPErrorsTotal     *prometheus.CounterVec

	RateLimitDecisions *prometheus.CounterVec
	RateLimitEvictions prometheus.Counter
	AuthDecisions      *prometheus.CounterVec
}

// NewMetrics creates and registers all collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "northwind_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "northwind_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		HTTPErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "northwind_http_errors_total",
				Help: "HTTP requests that ended in an error response, by error code",
			},
			[]string{"method", "route", "code"},
		),
		RateLimitDecisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "northwind_ratelimit_decisions_total",
				Help: "Rate limiter decisions",
			},
			[]string{"outcome"},
		),
		RateLimitEvictions: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "northwind_ratelimit_evictions_total",
				Help: "Idle rate limit counters removed by the sweeper",
			},
		),
		AuthDecisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "northwind_auth_decisions_total",
				Help: "Authorization policy decisions",
			},
			[]string{"outcome"},
		),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPErrorsTotal,
		m.RateLimitDecisions,
		m.RateLimitEvictions,
		m.AuthDecisions,
	)
	return m
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(route, method, code string) {
	if m == nil {
		return
	}
	m.HTTPErrorsTotal.WithLabelValues(method, route, code).Inc()
}

// ObserveRateLimitDecision implements ratelimit.DecisionObserver.
func (m *Metrics) ObserveRateLimitDecision(allowed bool) {
	if m == nil {
		return
	}
	outcome := "denied"
	if allowed {
		outcome = "allowed"
	}
	m.RateLimitDecisions.WithLabelValues(outcome).Inc()
}

// ObserveEvictions counts counters dropped by a sweep.
func (m *Metrics) ObserveEvictions(removed int) {
	if m == nil || removed <= 0 {
		return
	}
	m.RateLimitEvictions.Add(float64(removed))
}

// ObserveAuthDecision implements auth.DecisionObserver.
func (m *Metrics) ObserveAuthDecision(outcome string) {
	if m == nil {
		return
	}
	m.AuthDecisions.WithLabelValues(outcome).Inc()
}
