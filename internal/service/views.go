package service

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/reservita/internal/model"
	"github.com/iliyamo/reservita/internal/seating"
)

// TicketView is the client-facing representation of a ticket.  The price
// is resolved from the event's current prices.
type TicketView struct {
	ID          uint64          `json:"id"`
	EventID     uint64          `json:"event_id"`
	EventTitle  string          `json:"event_title"`
	SeatNumber  int             `json:"seat_number"`
	SeatLabel   string          `json:"seat_label"`
	SeatType    model.SeatType  `json:"seat_type"`
	PricePaid   decimal.Decimal `json:"price_paid"`
	Status      string          `json:"status"`
	PurchasedAt time.Time       `json:"purchased_at"`
	CancelledAt *time.Time      `json:"cancelled_at"`
}

func newTicketView(t model.Ticket, seat model.Seat, ev model.Event) TicketView {
	return TicketView{
		ID:          t.ID,
		EventID:     t.EventID,
		EventTitle:  ev.Title,
		SeatNumber:  t.SeatNumber,
		SeatLabel:   seating.Label(t.SeatNumber),
		SeatType:    seat.SeatType,
		PricePaid:   ev.PriceFor(seat.SeatType),
		Status:      string(t.Status),
		PurchasedAt: t.PurchasedAt,
		CancelledAt: t.CancelledAt,
	}
}

// VerifyResult is the outcome of scanning a QR code at the door.
type VerifyResult struct {
	Valid  bool        `json:"valid"`
	Ticket *TicketView `json:"ticket,omitempty"`
}

// EventView is an event as shown to browsers.  AverageRating is nil when
// the event has no reviews.
type EventView struct {
	ID             uint64           `json:"id"`
	CreatorID      uint64           `json:"creator_id"`
	Title          string           `json:"title"`
	Description    string           `json:"description"`
	Category       string           `json:"category"`
	City           string           `json:"city"`
	Venue          string           `json:"venue"`
	Address        string           `json:"address"`
	StartsAt       time.Time        `json:"starts_at"`
	EndsAt         time.Time        `json:"ends_at"`
	TicketPrice    decimal.Decimal  `json:"ticket_price"`
	VIPTicketPrice decimal.Decimal  `json:"vip_ticket_price"`
	AverageRating  *decimal.Decimal `json:"average_rating"`
	IsFavorited    bool             `json:"is_favorited"`
}

func newEventView(e model.Event) EventView {
	return EventView{
		ID:             e.ID,
		CreatorID:      e.CreatorID,
		Title:          e.Title,
		Description:    e.Description,
		Category:       e.Category,
		City:           e.City,
		Venue:          e.Venue,
		Address:        e.Address,
		StartsAt:       e.StartsAt,
		EndsAt:         e.EndsAt,
		TicketPrice:    e.TicketPrice,
		VIPTicketPrice: e.VIPTicketPrice,
	}
}

// SeatView is one row of the availability grid.
type SeatView struct {
	SeatNumber  int            `json:"seat_number"`
	SeatLabel   string         `json:"seat_label"`
	SeatType    model.SeatType `json:"seat_type"`
	IsAvailable bool           `json:"is_available"`
}

type Pricing struct {
	VIP     decimal.Decimal `json:"vip"`
	Regular decimal.Decimal `json:"regular"`
}

type SeatSummary struct {
	TotalSeats     int `json:"total_seats"`
	AvailableSeats int `json:"available_seats"`
}

// SeatAvailability is the seat map of an event at read time.
type SeatAvailability struct {
	EventID uint64      `json:"event_id"`
	Seats   []SeatView  `json:"seats"`
	Pricing Pricing     `json:"pricing"`
	Summary SeatSummary `json:"summary"`
}

type ReviewView struct {
	ID           uint64          `json:"id"`
	TicketID     uint64          `json:"ticket_id"`
	UserID       uint64          `json:"user_id"`
	EventID      uint64          `json:"event_id"`
	UserFullName string          `json:"user_full_name"`
	Rating       decimal.Decimal `json:"rating"`
	Comment      *string         `json:"comment"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func newReviewView(r model.Review) ReviewView {
	return ReviewView{
		ID:           r.ID,
		TicketID:     r.TicketID,
		UserID:       r.UserID,
		EventID:      r.EventID,
		UserFullName: r.UserFullName,
		Rating:       r.Rating,
		Comment:      r.Comment,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

// PageResult wraps one page of a listing.
type PageResult[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
	Page  int `json:"page"`
	Size  int `json:"size"`
	Pages int `json:"pages"`
}

func newPageResult[T any](items []T, total int, p model.Page) PageResult[T] {
	if items == nil {
		items = []T{}
	}
	pages := 0
	if p.Size > 0 {
		pages = (total + p.Size - 1) / p.Size
	}
	return PageResult[T]{Items: items, Total: total, Page: p.Number, Size: p.Size, Pages: pages}
}
