package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Update results recorded by IncStatusUpdates.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultDryRun  = "dry_run"
)

// Metrics wraps Prometheus collectors for status-sentinel.
type Metrics struct {
	registry                 *prometheus.Registry
	cycleDurationSeconds     prometheus.Histogram
	servicesTotal            *prometheus.GaugeVec
	statusUpdatesTotal       *prometheus.CounterVec
	serviceErrorsTotal       prometheus.Counter
	lastSuccessfulCycleGauge prometheus.Gauge
}

// New initializes a Metrics registry with all collectors registered.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		cycleDurationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "status_sentinel_cycle_duration_seconds",
			Help:    "Duration of monitoring runs in seconds.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),
		servicesTotal: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "status_sentinel_services_total",
			Help: "Services observed in the last run by status.",
		}, []string{"status"}),
		statusUpdatesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "status_sentinel_status_updates_total",
			Help: "Component status updates attempted by result.",
		}, []string{"result"}),
		serviceErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "status_sentinel_service_errors_total",
			Help: "Services skipped because of configuration or runtime errors.",
		}),
		lastSuccessfulCycleGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "status_sentinel_last_successful_cycle_timestamp",
			Help: "Unix timestamp of the last successful run.",
		}),
	}

	registry.MustRegister(
		m.cycleDurationSeconds,
		m.servicesTotal,
		m.statusUpdatesTotal,
		m.serviceErrorsTotal,
		m.lastSuccessfulCycleGauge,
	)

	return m
}

// Handler returns a Prometheus HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveCycleDuration records the duration of a completed run.
func (m *Metrics) ObserveCycleDuration(duration time.Duration) {
	if m == nil {
		return
	}
	m.cycleDurationSeconds.Observe(duration.Seconds())
}

// SetServicesByStatus replaces the services gauge with the given counts.
// Statuses missing from counts are removed so stale series do not linger.
func (m *Metrics) SetServicesByStatus(counts map[string]int) {
	if m == nil {
		return
	}
	m.servicesTotal.Reset()
	for status, value := range counts {
		m.servicesTotal.WithLabelValues(status).Set(float64(value))
	}
}

// IncStatusUpdates increments the update counter for result.
func (m *Metrics) IncStatusUpdates(result string) {
	if m == nil {
		return
	}
	m.statusUpdatesTotal.WithLabelValues(result).Inc()
}

// IncServiceErrors increments the service error counter.
func (m *Metrics) IncServiceErrors() {
	if m == nil {
		return
	}
	m.serviceErrorsTotal.Inc()
}

// SetLastSuccessfulCycleTimestamp sets the last successful run time.
func (m *Metrics) SetLastSuccessfulCycleTimestamp(t time.Time) {
	if m == nil {
		return
	}
	m.lastSuccessfulCycleGauge.Set(float64(t.Unix()))
}
