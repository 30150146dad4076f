package model

// SeatType distinguishes the two price tiers of an event.
type SeatType string

const (
	SeatRegular SeatType = "REGULAR"
	SeatVIP     SeatType = "VIP"
)

// Seat is one numbered place in an event.  Seats are identified by the
// pair (EventID, SeatNumber) and never change after the event is created.
type Seat struct {
	EventID    uint64   // event_seats.event_id
	SeatNumber int      // event_seats.seat_number
	SeatType   SeatType // event_seats.seat_type
}

// SeatKey identifies a seat across events.
type SeatKey struct {
	EventID    uint64
	SeatNumber int
}
