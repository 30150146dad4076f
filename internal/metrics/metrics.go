// Package metrics exposes Prometheus collectors for the booking workflow.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BookingAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reservita_booking_attempts_total",
			Help: "Seat booking attempts by outcome",
		},
		[]string{"outcome"},
	)

	BookingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "reservita_booking_duration_seconds",
			Help:    "Time spent in the booking transaction",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 10),
		},
	)

	TicketCancellations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reservita_ticket_cancellations_total",
			Help: "Ticket cancellation attempts by outcome",
		},
		[]string{"outcome"},
	)

	QRVerifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reservita_qr_verifications_total",
			Help: "QR verifications by result",
		},
		[]string{"result"},
	)

	PublishFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reservita_publish_failures_total",
			Help: "Ticket events that could not be handed to the broker",
		},
		[]string{"type"},
	)
)

// Outcome labels shared by the counters above.
const (
	OutcomeOK       = "ok"
	OutcomeConflict = "conflict"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)
