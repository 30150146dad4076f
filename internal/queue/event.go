// Package queue defines message payloads exchanged over the message broker
// and the publisher/consumer pair that moves them.
package queue

import "time"

// Ticket event types, also used as the message type header.
const (
	TicketBooked    = "ticket.booked"
	TicketCancelled = "ticket.cancelled"
)

// TicketEvent is published after a booking or cancellation commits.  It
// carries enough for downstream consumers to notify the holder without
// querying the primary database.
type TicketEvent struct {
	Type       string    `json:"type"`
	TicketID   uint64    `json:"ticket_id"`
	UserID     uint64    `json:"user_id"`
	EventID    uint64    `json:"event_id"`
	EventTitle string    `json:"event_title"`
	SeatNumber int       `json:"seat_number"`
	SeatLabel  string    `json:"seat_label"`
	SeatType   string    `json:"seat_type"`
	Price      string    `json:"price"`
	StartsAt   time.Time `json:"starts_at"`
	OccurredAt time.Time `json:"occurred_at"`
}
