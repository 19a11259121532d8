// Package metrics provides Prometheus collectors for the outreach service.
package metrics

import (
	"database/sql"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "outreach"

// Gateway names used as label values.
const (
	GatewayScraper    = "apify"
	GatewayCompletion = "mistral"
	GatewayStore      = "store"
)

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
	OutcomeEmpty   = "empty"
)

// Metrics holds all collectors. A nil *Metrics is valid and records nothing,
// so components can be built without a registry in tests.
type Metrics struct {
	registerer prometheus.Registerer

	ProfileLookups  *prometheus.CounterVec
	GatewayCalls    *prometheus.CounterVec
	GatewayDuration *prometheus.HistogramVec
	Fallbacks       *prometheus.CounterVec
	BreakerState    *prometheus.GaugeVec
	HTTPRequests    *prometheus.CounterVec
	HTTPDuration    *prometheus.HistogramVec
}

// New creates and registers all collectors on reg (default registerer when nil).
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		registerer: reg,
		ProfileLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "profile_lookups_total",
			Help:      "Profile resolutions by cache result (hit, miss).",
		}, []string{"result"}),
		GatewayCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gateway_calls_total",
			Help:      "Calls to external gateways by outcome.",
		}, []string{"gateway", "outcome"}),
		GatewayDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "gateway_duration_seconds",
			Help:      "Latency of external gateway calls.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"gateway"}),
		Fallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mock_fallbacks_total",
			Help:      "Mock substitutes served because a credential is not configured.",
		}, []string{"kind"}),
		BreakerState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0 closed, 1 half-open, 2 open).",
		}, []string{"name"}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// RegisterDB exposes database/sql pool statistics for db.
func (m *Metrics) RegisterDB(name string, db *sql.DB) {
	if m == nil || db == nil {
		return
	}
	m.registerer.MustRegister(collectors.NewDBStatsCollector(db, name))
}

func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.ProfileLookups.WithLabelValues("hit").Inc()
}

func (m *Metrics) CacheMiss() {
	if m == nil {
		return
	}
	m.ProfileLookups.WithLabelValues("miss").Inc()
}

// ObserveGateway records one gateway round trip.
func (m *Metrics) ObserveGateway(gateway, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.GatewayCalls.WithLabelValues(gateway, outcome).Inc()
	m.GatewayDuration.WithLabelValues(gateway).Observe(d.Seconds())
}

func (m *Metrics) Fallback(kind string) {
	if m == nil {
		return
	}
	m.Fallbacks.WithLabelValues(kind).Inc()
}

func (m *Metrics) SetBreakerState(name string, state float64) {
	if m == nil {
		return
	}
	m.BreakerState.WithLabelValues(name).Set(state)
}

func (m *Metrics) ObserveHTTP(method, route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, status).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
