package notify

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	notificationsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "studyhub_notifications_created_total",
		Help: "Notifications persisted, by type.",
	}, []string{"type"})

	notificationsDuplicate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "studyhub_notifications_duplicate_total",
		Help: "Notifications dropped because the recipient already had one for the same event.",
	}, []string{"type"})
)
