package inventory

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	resultSuccess = "success"
	resultError   = "error"
)

// Prometheus metrics.
var (
	operationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pantry_inventory_operations_total",
			Help: "Total number of inventory operations by outcome",
		},
		[]string{"operation", "result"},
	)

	itemsGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pantry_inventory_items",
			Help: "Number of items in the mirror after the last refresh",
		},
	)

	subscribersGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pantry_change_subscribers",
			Help: "Number of active change feed subscribers",
		},
	)

	droppedEvents = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pantry_change_events_dropped_total",
			Help: "Change events not delivered because a subscriber queue was full",
		},
	)
)
