package model

import "time"

// TicketStatus is the lifecycle state of a ticket.
type TicketStatus string

const (
	TicketConfirmed TicketStatus = "CONFIRMED"
	TicketCancelled TicketStatus = "CANCELLED"
)

// Ticket records that a user holds a seat for an event.  At most one
// CONFIRMED ticket may exist per (EventID, SeatNumber); cancelled rows
// are kept for history and release the seat.
//
// Fields:
//  ID          – primary key identifier.
//  UserID      – ticket holder.
//  EventID     – event the seat belongs to.
//  SeatNumber  – seat within the event.
//  QRCode      – signed QR token, unique across tickets.
//  Status      – CONFIRMED or CANCELLED.
//  PurchasedAt – booking time.
//  CancelledAt – cancellation time (nil while confirmed).
type Ticket struct {
	ID          uint64       // tickets.id
	UserID      uint64       // tickets.user_id
	EventID     uint64       // tickets.event_id
	SeatNumber  int          // tickets.seat_number
	QRCode      string       // tickets.qr_code
	Status      TicketStatus // tickets.status
	PurchasedAt time.Time    // tickets.purchased_at
	CancelledAt *time.Time   // tickets.cancelled_at (nullable)
}

// Active reports whether the ticket still holds its seat.
func (t Ticket) Active() bool { return t.Status == TicketConfirmed }
