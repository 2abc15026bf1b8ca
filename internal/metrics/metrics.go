package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// The collectors are exported so tests can read them through
// prometheus/testutil; production code goes through the Inc helpers.
var (
	once sync.Once

	HoldTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hotelly",
			Name:      "hold_transitions_total",
			Help:      "Hold lifecycle transitions by outcome.",
		},
		[]string{"outcome"},
	)

	ReservationOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hotelly",
			Name:      "reservation_operations_total",
			Help:      "Reservation mutations by operation.",
		},
		[]string{"operation"},
	)

	TaskRedeliveries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "hotelly",
			Name:      "task_redeliveries_collapsed_total",
			Help:      "Queue redeliveries collapsed by the task dedupe table.",
		},
	)

	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hotelly",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route.",
		},
		[]string{"route"},
	)
)

// Register registers the collectors. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(HoldTransitions, ReservationOps, TaskRedeliveries, HTTPRequests)
	})
}

func IncHold(outcome string) {
	HoldTransitions.WithLabelValues(outcome).Inc()
}

func IncReservation(operation string) {
	ReservationOps.WithLabelValues(operation).Inc()
}

func IncTaskRedelivery() {
	TaskRedeliveries.Inc()
}

func IncHTTP(route string) {
	HTTPRequests.WithLabelValues(route).Inc()
}
