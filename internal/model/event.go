package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event is something an agency sells seats for: a concert, a match, a
// play.  Its seat layout is fixed when the event is created and its
// prices are read at booking time to resolve what a ticket costs.
//
// Fields:
//  ID             – primary key identifier.
//  CreatorID      – agency user that owns the event.
//  Title          – display title.
//  Description    – free text description.
//  Category       – category slug used by the browse filters.
//  City           – city used by the browse filters.
//  Venue, Address – where the event takes place.
//  StartsAt       – when the event begins (booking closes here).
//  EndsAt         – when the event ends (QR tokens expire here).
//  TicketPrice    – price of a REGULAR seat.
//  VIPTicketPrice – price of a VIP seat.
type Event struct {
	ID             uint64          // events.id
	CreatorID      uint64          // events.creator_id
	Title          string          // events.title
	Description    string          // events.description
	Category       string          // events.category
	City           string          // events.city
	Venue          string          // events.venue
	Address        string          // events.address
	StartsAt       time.Time       // events.starts_at
	EndsAt         time.Time       // events.ends_at
	TicketPrice    decimal.Decimal // events.ticket_price
	VIPTicketPrice decimal.Decimal // events.vip_ticket_price
	CreatedAt      time.Time       // events.created_at
	UpdatedAt      time.Time       // events.updated_at
}

// PriceFor returns the price of a seat of the given type.
func (e Event) PriceFor(t SeatType) decimal.Decimal {
	if t == SeatVIP {
		return e.VIPTicketPrice
	}
	return e.TicketPrice
}

// Started reports whether the event has begun at instant now.
func (e Event) Started(now time.Time) bool {
	return !now.Before(e.StartsAt)
}
