package engine

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kibitz-chess/kibitz/internal/model"
)

// Metric label values for engine death reasons.
const (
	deathExited = "exited"
	deathError  = "error"
	deathClosed = "closed"
)

var (
	metricWorkers = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "kibitz_engine_workers",
			Help: "Current number of engine workers by state.",
		},
		[]string{"state"},
	)

	metricSpawns = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "kibitz_engine_spawns_total",
			Help: "Total number of engine processes spawned.",
		},
	)

	metricDeaths = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kibitz_engine_deaths_total",
			Help: "Total number of engine process deaths by reason.",
		},
		[]string{"reason"},
	)

	metricEvaluations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kibitz_evaluations_total",
			Help: "Total number of position evaluations by result status.",
		},
		[]string{"status"},
	)

	metricEvalDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "kibitz_evaluation_duration_seconds",
			Help:    "Wall-clock duration of successful evaluations, in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
	)

	metricAcquireWait = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "kibitz_acquire_wait_seconds",
			Help:    "Time spent waiting to acquire an engine worker, in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		},
	)
)

func init() {
	prometheus.MustRegister(metricWorkers)
	prometheus.MustRegister(metricSpawns)
	prometheus.MustRegister(metricDeaths)
	prometheus.MustRegister(metricEvaluations)
	prometheus.MustRegister(metricEvalDuration)
	prometheus.MustRegister(metricAcquireWait)

	// Pre-initialize label combinations so they appear in /metrics with value
	// 0 from startup, rather than only after first observation.
	for _, state := range []string{StateStarting, StateReady, StateBusy} {
		metricWorkers.WithLabelValues(state)
	}
	for _, reason := range []string{deathExited, deathError, deathClosed} {
		metricDeaths.WithLabelValues(reason)
	}
	for _, status := range []string{model.ResultOK, model.ResultTimeout, model.ResultError} {
		metricEvaluations.WithLabelValues(status)
	}
}
