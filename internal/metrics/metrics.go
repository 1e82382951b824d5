// Package metrics exposes Prometheus instruments for the watch pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Save results.
const (
	SaveOK    = "ok"
	SaveStale = "stale"
	SaveError = "error"
)

var (
	SamplesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coursewatch_samples_total",
		Help: "Player events ingested by type",
	}, []string{"type"})

	SkipsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "coursewatch_large_skips_total",
		Help: "Playback samples classified as large skips",
	})

	SavesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coursewatch_validation_saves_total",
		Help: "Validation snapshot writes by result",
	}, []string{"result"})

	SaveDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "coursewatch_validation_save_seconds",
		Help:    "Latency of validation snapshot writes",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
	})

	RecordCreateFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "coursewatch_record_create_failures_total",
		Help: "Failed analytics or validation record creations",
	})

	CompletionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "coursewatch_completions_total",
		Help: "Watch attempts marked completed",
	})

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "coursewatch_active_sessions",
		Help: "Watch sessions currently held in memory",
	})
)

// ObserveSample counts one player event.
func ObserveSample(eventType string, skipped bool) {
	if eventType == "" {
		eventType = "unknown"
	}
	SamplesTotal.WithLabelValues(eventType).Inc()
	if skipped {
		SkipsTotal.Inc()
	}
}

// ObserveSave records the outcome and latency of one snapshot write.
func ObserveSave(result string, seconds float64) {
	SavesTotal.WithLabelValues(result).Inc()
	SaveDuration.Observe(seconds)
}
