// Package metrics registers the service's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "telemed_http_requests_total",
		Help: "HTTP requests by method, route pattern and status code.",
	}, []string{"method", "route", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "telemed_http_request_duration_seconds",
		Help:    "HTTP request latency by route pattern.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})

	BookingsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "telemed_bookings_total",
		Help: "Successfully booked appointments.",
	})

	BookingConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "telemed_booking_conflicts_total",
		Help: "Booking attempts that lost the race for a slot.",
	})

	Cancellations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "telemed_cancellations_total",
		Help: "Cancelled appointments.",
	})

	SlotsGenerated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "telemed_slots_generated_total",
		Help: "Availability slots created by batch generation.",
	})

	CrisisEscalations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "telemed_crisis_escalations_total",
		Help: "Chat sessions escalated after a crisis flag from the responder.",
	})
)
