// Package metrics provides Prometheus metrics exposition for casgen.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the casgen collectors on a private registry so tests
// can create independent instances.
type Metrics struct {
	registry *prometheus.Registry

	JobsCreated   prometheus.Counter
	JobsCompleted *prometheus.CounterVec
	JobsRunning   prometheus.Gauge

	PatientsGenerated prometheus.Counter
	OutputBytes       *prometheus.CounterVec

	JobDuration prometheus.Histogram

	HTTPRequests *prometheus.CounterVec
}

// New creates and registers the casgen metric set.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.JobsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "casgen_jobs_created_total",
		Help: "Generation jobs accepted.",
	})
	m.JobsCompleted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "casgen_jobs_finished_total",
		Help: "Generation jobs finished, by terminal status.",
	}, []string{"status"})
	m.JobsRunning = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "casgen_jobs_running",
		Help: "Generation jobs currently running.",
	})
	m.PatientsGenerated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "casgen_patients_generated_total",
		Help: "Patients serialized across all jobs.",
	})
	m.OutputBytes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "casgen_output_bytes_total",
		Help: "Bytes written to output files, by format.",
	}, []string{"format"})
	m.JobDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "casgen_job_duration_seconds",
		Help:    "Wall time of completed jobs.",
		Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900, 3600},
	})
	m.HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "casgen_http_requests_total",
		Help: "API requests, by route and status code.",
	}, []string{"route", "code"})

	m.registry.MustRegister(
		m.JobsCreated, m.JobsCompleted, m.JobsRunning,
		m.PatientsGenerated, m.OutputBytes, m.JobDuration,
		m.HTTPRequests,
	)
	return m
}

// Handler exposes the registry in Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
