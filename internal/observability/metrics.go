package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	verdictsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "groupwarden_verdicts_total",
			Help: "Classifier verdicts by reason",
		},
		[]string{"reason"},
	)

	commandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "groupwarden_commands_total",
			Help: "Moderation commands by outcome",
		},
		[]string{"command", "outcome"},
	)

	sweepItemsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "groupwarden_sweep_items_total",
			Help: "Deferred obligations processed by the sweep",
		},
		[]string{"kind", "outcome"},
	)

	platformRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "groupwarden_platform_requests_total",
			Help: "Chat platform requests by method and outcome",
		},
		[]string{"method", "outcome"},
	)

	updateDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "groupwarden_update_duration_seconds",
			Help:    "Time spent processing inbound updates",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)
)

func RecordVerdict(reason string) {
	if reason == "" {
		reason = "allow"
	}
	verdictsTotal.WithLabelValues(reason).Inc()
}

func RecordCommand(command, outcome string) {
	commandsTotal.WithLabelValues(command, outcome).Inc()
}

func RecordSweepItem(kind, outcome string) {
	sweepItemsTotal.WithLabelValues(kind, outcome).Inc()
}

func RecordPlatformRequest(method, outcome string) {
	platformRequestsTotal.WithLabelValues(method, outcome).Inc()
}

// StartUpdate returns a function recording the update processing duration.
func StartUpdate(kind string) func() {
	start := time.Now()
	return func() {
		updateDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	}
}
