package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RepairsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "repairshop_repairs_created_total",
		Help: "Total number of repair orders created.",
	})

	StatusTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "repairshop_status_transitions_total",
		Help: "Total number of repair status transitions by target status.",
	},
		[]string{"status"},
	)

	NotificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "repairshop_notifications_total",
		Help: "Notification delivery attempts by channel and result.",
	},
		[]string{"channel", "result"},
	)

	ConflictsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "repairshop_repair_conflicts_total",
		Help: "Repair writes rejected because of a concurrent modification.",
	})

	PendingNotifications = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "repairshop_pending_notifications",
		Help: "Pending notification events seen by the last outbox run.",
	})
)
