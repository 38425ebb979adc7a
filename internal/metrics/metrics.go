package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the application collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// TapsTotal counts handled taps by screen, mode and resulting mutation
	TapsTotal *prometheus.CounterVec

	// SolvesTotal counts solve attempts by kind and outcome
	SolvesTotal *prometheus.CounterVec

	// SolveDuration observes how long submitted solves take
	SolveDuration *prometheus.HistogramVec

	// ParameterLoadsTotal counts solver parameter loads by kind and result
	ParameterLoadsTotal *prometheus.CounterVec

	// LiveSessions is the number of open interaction sessions
	LiveSessions *prometheus.GaugeVec
}

// New registers every collector on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		TapsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "barrier_router_taps_total",
			Help: "Number of map taps handled, by screen, interaction mode and mutation",
		}, []string{"screen", "mode", "mutation"}),

		SolvesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "barrier_router_solves_total",
			Help: "Number of solve attempts, by kind and outcome (rejected, succeeded, failed)",
		}, []string{"kind", "outcome"}),

		SolveDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "barrier_router_solve_duration_seconds",
			Help:    "Duration of submitted solves",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"kind", "outcome"}),

		ParameterLoadsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "barrier_router_parameter_loads_total",
			Help: "Number of default solver parameter loads, by kind and result",
		}, []string{"kind", "result"}),

		LiveSessions: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "barrier_router_live_sessions",
			Help: "Number of open interaction sessions, by kind",
		}, []string{"kind"}),
	}
}

// Registry exposes the underlying registry, mainly for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveTap(screen, mode, mutation string) {
	if m == nil {
		return
	}
	m.TapsTotal.WithLabelValues(screen, mode, mutation).Inc()
}

// ObserveSolve counts a solve attempt. Rejected attempts never reached the
// solver and are not timed.
func (m *Metrics) ObserveSolve(kind, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.SolvesTotal.WithLabelValues(kind, outcome).Inc()
	if outcome != "rejected" {
		m.SolveDuration.WithLabelValues(kind, outcome).Observe(d.Seconds())
	}
}

func (m *Metrics) ObserveParameterLoad(kind string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.ParameterLoadsTotal.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) SessionOpened(kind string) {
	if m == nil {
		return
	}
	m.LiveSessions.WithLabelValues(kind).Inc()
}

func (m *Metrics) SessionClosed(kind string) {
	if m == nil {
		return
	}
	m.LiveSessions.WithLabelValues(kind).Dec()
}
