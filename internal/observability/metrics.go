// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Run metrics
	RunsTotal         *prometheus.CounterVec
	RunDuration       *prometheus.HistogramVec
	EntitiesProcessed *prometheus.CounterVec
	EntityDuration    prometheus.Histogram
	RowsEmitted       *prometheus.CounterVec

	// Dataset metrics
	DatasetReadDuration prometheus.Histogram
	DatasetVariables    prometheus.Gauge
	DatasetMonths       prometheus.Gauge

	// Sink metrics
	SinkAttempts     *prometheus.CounterVec
	SinkWriteLatency prometheus.Histogram

	// Health metrics
	LastSuccessfulRun prometheus.Gauge
}

// NewMetrics creates a new Metrics instance registered with reg.
// A nil reg registers with the default registry.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "hydrostat"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "total",
			Help:      "Total number of statistics runs by status",
		}, []string{"status"}),
		RunDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "duration_seconds",
			Help:      "Statistics run duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"mode"}),
		EntitiesProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "entities_processed_total",
			Help:      "Total number of entities processed by kind and outcome",
		}, []string{"kind", "status"}),
		EntityDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "entity_duration_seconds",
			Help:      "Per-entity calculation time in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}),
		RowsEmitted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "rows_emitted_total",
			Help:      "Total number of output rows emitted by table",
		}, []string{"table"}),

		DatasetReadDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "dataset",
			Name:      "read_duration_seconds",
			Help:      "Scenario dataset read time in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		DatasetVariables: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "dataset",
			Name:      "variables",
			Help:      "Number of variables in the last dataset read",
		}),
		DatasetMonths: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "dataset",
			Name:      "months",
			Help:      "Number of monthly timesteps in the last dataset read",
		}),

		SinkAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sink",
			Name:      "attempts_total",
			Help:      "Total number of sink write attempts by outcome",
		}, []string{"outcome"}),
		SinkWriteLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sink",
			Name:      "write_duration_seconds",
			Help:      "Sink replace-scope duration in seconds, including retries",
			Buckets:   prometheus.DefBuckets,
		}),

		LastSuccessfulRun: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_run_timestamp",
			Help:      "Unix timestamp of last successful run",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordRun records a finished run.
func (m *Metrics) RecordRun(mode, status string, durationSeconds float64, finishedUnix int64) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(status).Inc()
	m.RunDuration.WithLabelValues(mode).Observe(durationSeconds)
	if status == "success" {
		m.LastSuccessfulRun.Set(float64(finishedUnix))
	}
}

// RecordEntity records one entity outcome.
func (m *Metrics) RecordEntity(kind, status string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.EntitiesProcessed.WithLabelValues(kind, status).Inc()
	m.EntityDuration.Observe(durationSeconds)
}

// RecordRows records emitted output rows.
func (m *Metrics) RecordRows(monthly, summaries int) {
	if m == nil {
		return
	}
	m.RowsEmitted.WithLabelValues("monthly_statistics").Add(float64(monthly))
	m.RowsEmitted.WithLabelValues("period_summaries").Add(float64(summaries))
}

// RecordDatasetRead records the shape and read time of a dataset.
func (m *Metrics) RecordDatasetRead(variables, months int, seconds float64) {
	if m == nil {
		return
	}
	m.DatasetReadDuration.Observe(seconds)
	m.DatasetVariables.Set(float64(variables))
	m.DatasetMonths.Set(float64(months))
}

// RecordSinkAttempt records one failed sink attempt.
func (m *Metrics) RecordSinkAttempt(outcome string) {
	if m == nil {
		return
	}
	m.SinkAttempts.WithLabelValues(outcome).Inc()
}

// RecordSinkWrite records a completed replace-scope call.
func (m *Metrics) RecordSinkWrite(seconds float64, err error) {
	if m == nil {
		return
	}
	m.SinkWriteLatency.Observe(seconds)
	if err == nil {
		m.SinkAttempts.WithLabelValues("success").Inc()
	}
}
