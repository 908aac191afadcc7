// Package metrics exposes run counters for Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Run outcomes used as the "outcome" label.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeCached    = "cached"
)

// Metrics holds the collectors. Each instance owns its registry, so tests
// can create as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	Pages       *prometheus.CounterVec
	Records     *prometheus.CounterVec
	Runs        *prometheus.CounterVec
	RunDuration *prometheus.HistogramVec
}

// New registers the tablescout collectors plus the Go and process
// collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Pages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tablescout_pages_total",
				Help: "Table pages extracted.",
			},
			[]string{"profile"},
		),
		Records: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tablescout_records_total",
				Help: "Distinct records collected.",
			},
			[]string{"profile"},
		),
		Runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tablescout_runs_total",
				Help: "Runs by final outcome.",
			},
			[]string{"profile", "outcome"},
		),
		RunDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tablescout_run_duration_seconds",
				Help:    "Wall time of completed runs.",
				Buckets: []float64{5, 10, 20, 30, 60, 120, 300, 600},
			},
			[]string{"profile"},
		),
	}
	m.registry.MustRegister(
		m.Pages, m.Records, m.Runs, m.RunDuration,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return m
}

// ObservePage counts one extracted page and the records it added.
func (m *Metrics) ObservePage(profile string, added int) {
	m.Pages.WithLabelValues(profile).Inc()
	m.Records.WithLabelValues(profile).Add(float64(added))
}

// ObserveRun counts a finished run. seconds is ignored for failures.
func (m *Metrics) ObserveRun(profile, outcome string, seconds float64) {
	m.Runs.WithLabelValues(profile, outcome).Inc()
	if outcome == OutcomeCompleted {
		m.RunDuration.WithLabelValues(profile).Observe(seconds)
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
