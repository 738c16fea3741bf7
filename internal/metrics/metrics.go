package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	FanOutsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "doora_fanouts_total",
		Help: "Number of fan-out requests processed.",
	})

	RecordsCreatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "doora_records_created_total",
		Help: "Number of delegation records created by fan-out.",
	})

	RecordsReactivatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "doora_records_reactivated_total",
		Help: "Number of cancelled records reactivated by fan-out.",
	})

	TransitionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "doora_status_transitions_total",
		Help: "Status transitions applied, labelled by resulting status.",
	}, []string{"to"})

	WatchdogRunsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "doora_watchdog_runs_total",
		Help: "Number of convergence passes executed by the watchdog.",
	})

	LosersRemovedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "doora_losers_removed_total",
		Help: "Number of losing sibling records removed during convergence.",
	})

	HistorySalvagedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "doora_history_events_salvaged_total",
		Help: "History events merged from losing records onto the winner.",
	})

	NotificationsSentTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "doora_notifications_sent_total",
		Help: "Notifications stored for users.",
	})
)

// Register attaches the collectors to the default registry. Call once at
// startup; duplicate registration panics.
func Register() {
	prometheus.MustRegister(
		FanOutsTotal,
		RecordsCreatedTotal,
		RecordsReactivatedTotal,
		TransitionsTotal,
		WatchdogRunsTotal,
		LosersRemovedTotal,
		HistorySalvagedTotal,
		NotificationsSentTotal,
	)
}
