package monitor

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aatumaykin/chronos/internal/jobs"
)

// PrometheusMetrics exposes the last crontab summary and refresh outcomes.
type PrometheusMetrics struct {
	registry        prometheus.Registerer
	jobsTotal       prometheus.Gauge
	jobsEnabled     prometheus.Gauge
	jobsDisabled    prometheus.Gauge
	refreshTotal    *prometheus.CounterVec
	refreshDuration prometheus.Histogram
	lastRefresh     prometheus.Gauge
}

// InitPrometheusMetrics creates and registers the monitor metrics on reg
// (the default registerer when nil).
func InitPrometheusMetrics(namespace string, reg prometheus.Registerer) *PrometheusMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &PrometheusMetrics{
		registry: reg,
		jobsTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "jobs_total",
				Help:      "Number of crontab entries",
			},
		),
		jobsEnabled: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "jobs_enabled",
				Help:      "Number of active crontab entries",
			},
		),
		jobsDisabled: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "jobs_disabled",
				Help:      "Number of commented out crontab entries",
			},
		),
		refreshTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "refresh_total",
				Help:      "Crontab re-reads by outcome",
			},
			[]string{"status"},
		),
		refreshDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "refresh_duration_seconds",
				Help:      "Duration of crontab re-reads",
				Buckets:   []float64{.005, .01, .05, .1, .5, 1, 5},
			},
		),
		lastRefresh: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_refresh_timestamp_seconds",
				Help:      "Unix time of the last successful re-read",
			},
		),
	}

	reg.MustRegister(
		m.jobsTotal,
		m.jobsEnabled,
		m.jobsDisabled,
		m.refreshTotal,
		m.refreshDuration,
		m.lastRefresh,
	)

	return m
}

// RecordRefresh counts one re-read and its duration.
func (m *PrometheusMetrics) RecordRefresh(status string, duration time.Duration) {
	m.refreshTotal.WithLabelValues(status).Inc()
	m.refreshDuration.Observe(duration.Seconds())
}

// SetSummary publishes job counts.
func (m *PrometheusMetrics) SetSummary(s jobs.Summary, at time.Time) {
	m.jobsTotal.Set(float64(s.Total))
	m.jobsEnabled.Set(float64(s.Enabled))
	m.jobsDisabled.Set(float64(s.Disabled))
	m.lastRefresh.Set(float64(at.Unix()))
}
