package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "vigil_build_info",
			Help: "Build information of the vigil validation runner",
		},
		[]string{"version", "commit", "date"},
	)

	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vigil_runs_total",
			Help: "Total number of checkpoint runs",
		},
		[]string{"job", "outcome"},
	)

	ValidationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vigil_validations_total",
			Help: "Total number of (asset, suite) validations executed",
		},
		[]string{"suite", "outcome"},
	)

	ExpectationFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vigil_expectation_failures_total",
			Help: "Total number of failed expectations by type",
		},
		[]string{"expectation_type"},
	)

	RunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vigil_run_duration_seconds",
			Help:    "Duration of checkpoint runs",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		},
		[]string{"job"},
	)

	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vigil_notifications_total",
			Help: "Total number of webhook notifications sent",
		},
		[]string{"kind", "outcome"},
	)
)
