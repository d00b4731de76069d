// Package metrics declares the Prometheus collectors of the back-office service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backoffice_http_requests_total",
			Help: "Total HTTP requests by route and status code",
		},
		[]string{"method", "route", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "backoffice_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	OrderTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backoffice_order_transitions_total",
			Help: "Order status transitions by outcome",
		},
		[]string{"from", "to", "outcome"}, // outcome: applied, rejected, failed
	)

	OrdersCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backoffice_orders_created_total",
			Help: "Orders created through the cashier",
		},
		[]string{"type", "payment_method"},
	)

	DirectionsRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backoffice_directions_requests_total",
			Help: "Directions API calls by result",
		},
		[]string{"result"}, // success, failure, rejected
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "backoffice_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	WebSocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "backoffice_websocket_clients",
			Help: "Connected dashboard websocket clients",
		},
	)

	ChangeEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backoffice_change_events_total",
			Help: "Database change notifications received",
		},
		[]string{"table", "op"},
	)

	TrackingSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "backoffice_tracking_sessions",
			Help: "Open live tracking sessions",
		},
	)
)
