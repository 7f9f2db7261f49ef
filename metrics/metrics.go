// Package metrics holds the Prometheus collectors shared by the reservation service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "reservation"

var (
	ProtocolRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "protocol_requests_total",
		Help:      "Protocol requests by request kind and response kind.",
	}, []string{"kind", "response"})

	ProtocolLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "protocol_request_duration_seconds",
		Help:      "Time spent dispatching one protocol request.",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
	}, []string{"kind"})

	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_connections",
		Help:      "Open protocol websocket connections.",
	})

	TableTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "table_transitions_total",
		Help:      "Table status writes by target status.",
	}, []string{"status"})

	ReservationTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reservation_transitions_total",
		Help:      "Reservation status writes by target status.",
	}, []string{"status"})

	VacancyMatches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "vacancy_matches_total",
		Help:      "Vacancy events by outcome (matched, none, error).",
	}, []string{"outcome"})

	WaitingJoins = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "waiting_joins_total",
		Help:      "Waiting list joins by outcome (immediate, waiting, duplicate).",
	}, []string{"outcome"})

	OfferExpirations = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "offer_expirations_total",
		Help:      "NOTIFIED waiting entries returned to WAITING after their window.",
	})

	Notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_total",
		Help:      "Notification deliveries by channel and result (sent, failed, dropped).",
	}, []string{"channel", "result"})
)
