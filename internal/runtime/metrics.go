package runtime

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	loadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mlpredict",
			Subsystem: "runtime",
			Name:      "loads_total",
			Help:      "Bundle loads by outcome (built, cached, failed, abandoned)",
		},
		[]string{"outcome"},
	)

	loadDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "mlpredict",
			Subsystem: "runtime",
			Name:      "load_duration_seconds",
			Help:      "Time to build a runtime entry from a bundle directory",
			Buckets:   prometheus.DefBuckets,
		},
	)

	dependencyTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mlpredict",
			Subsystem: "deps",
			Name:      "modules_total",
			Help:      "Dependency resolutions by outcome (resolved, cached, skipped)",
		},
		[]string{"outcome"},
	)

	predictionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mlpredict",
			Subsystem: "predict",
			Name:      "runs_total",
			Help:      "Prediction runs by scenario and status",
		},
		[]string{"scenario", "status"},
	)

	predictionRows = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mlpredict",
			Subsystem: "predict",
			Name:      "rows_total",
			Help:      "Output rows written by scenario",
		},
		[]string{"scenario"},
	)

	fallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mlpredict",
			Subsystem: "predict",
			Name:      "fallbacks_total",
			Help:      "Entry symbol candidates that failed before one succeeded or all ran out",
		},
		[]string{"scenario"},
	)

	predictionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mlpredict",
			Subsystem: "predict",
			Name:      "duration_seconds",
			Help:      "Duration of prediction runs in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"scenario"},
	)
)

func init() {
	prometheus.MustRegister(loadsTotal, loadDuration, dependencyTotal, predictionsTotal, predictionRows, fallbacksTotal, predictionDuration)
}

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
