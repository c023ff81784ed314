// Package metrics defines Prometheus metrics for seatwatch.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "seatwatch"

// Poll metrics.
var (
	PollCyclesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "poll_cycles_total",
		Help:      "Total number of completed poll cycles.",
	})

	PollErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "poll_errors_total",
		Help:      "Total number of poll cycles that failed.",
	})

	PollDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "poll_duration_seconds",
		Help:      "Duration of poll cycles in seconds.",
		Buckets:   prometheus.DefBuckets,
	})

	OpenSeats = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "open_seats",
		Help:      "Open seats observed for each tracked section at the last poll.",
	}, []string{"class_id"})
)

// Registrar API metrics.
var (
	RegistrarAPICallsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "registrar_api_calls_total",
		Help:      "Total cumulative registrar API calls.",
	})

	RegistrarDailyUsage = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "registrar_daily_usage",
		Help:      "Registrar API calls within the rolling 24-hour window.",
	})

	RegistrarDailyLimitHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "registrar_daily_limit_hits_total",
		Help:      "Total number of times the daily registrar API limit was reached.",
	})
)

// Notification metrics.
var (
	NotificationsSentTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_sent_total",
		Help:      "Total number of push notifications sent.",
	})

	NotificationFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notification_failures_total",
		Help:      "Total number of push notification send failures.",
	})
)
