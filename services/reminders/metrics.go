package reminders

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	remindersDispatched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "studyhub_reminders_dispatched_total",
		Help: "Reminders claimed and turned into notifications.",
	})

	claimsLost = promauto.NewCounter(prometheus.CounterOpts{
		Name: "studyhub_reminder_claims_lost_total",
		Help: "Due reminders another scan claimed first.",
	})

	dispatchFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "studyhub_reminder_dispatch_failures_total",
		Help: "Claimed reminders whose notification could not be produced.",
	}, []string{"reason"})

	scanDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "studyhub_reminder_scan_duration_seconds",
		Help:    "Wall time of one scan-and-dispatch pass.",
		Buckets: prometheus.DefBuckets,
	})
)
