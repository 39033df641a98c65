package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	bookingRequestsSubmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "booking_requests_submitted_total",
			Help: "Total number of booking requests submitted by passengers",
		},
	)

	bookingRequestsResolved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_requests_resolved_total",
			Help: "Total number of booking requests answered by drivers",
		},
		[]string{"decision"},
	)

	bookingConflicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_request_conflicts_total",
			Help: "Responses refused because the request or ride had already moved on",
		},
		[]string{"reason"},
	)

	notificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Notification attempts by channel and result",
		},
		[]string{"channel", "result"},
	)

	notificationsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "notification_dispatches_in_flight",
			Help: "Notification dispatches that have not finished yet",
		},
	)
)
