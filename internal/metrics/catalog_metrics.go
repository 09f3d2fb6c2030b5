package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ProductsCreated is a Prometheus counter for tracking the total number of products created.
	ProductsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "products_created_total",
		Help: "The total number of products created",
	})

	// ProductsDeleted is a Prometheus counter for tracking the total number of products deleted.
	ProductsDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "products_deleted_total",
		Help: "The total number of products deleted",
	})

	// Compensations counts composite creates rolled back after a failed component.
	Compensations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "product_compensations_total",
		Help: "The total number of composite creates rolled back",
	})

	// DispatchOutcomes counts dispatched operations by kind, operation, route and status.
	DispatchOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_outcomes_total",
		Help: "Dispatched sub-resource operations by kind, operation, route and status code",
	}, []string{"kind", "op", "route", "code"})

	// NotificationsConsumed counts consumed product notifications by action and result.
	NotificationsConsumed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "product_notifications_consumed_total",
		Help: "Consumed product notifications by action and result",
	}, []string{"action", "result"})

	// BreakerState tracks remote circuit breakers (0=closed, 1=half-open, 2=open).
	BreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "circuit_breaker_state",
		Help: "Current state of the circuit breaker (0=closed, 1=half-open, 2=open)",
	}, []string{"name"})
)
