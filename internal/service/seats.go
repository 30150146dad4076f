package service

import (
	"context"
	"errors"

	"github.com/iliyamo/reservita/internal/repository"
	"github.com/iliyamo/reservita/internal/seating"
)

// GetEventSeats joins the seat inventory of an event with its CONFIRMED
// tickets.  It takes no locks; a seat shown as available may be gone by
// the time it is booked.
func (s *EventService) GetEventSeats(ctx context.Context, eventID uint64) (SeatAvailability, error) {
	ev, err := s.events.GetByID(ctx, eventID)
	if errors.Is(err, repository.ErrNotFound) {
		return SeatAvailability{}, errEventNotFound
	}
	if err != nil {
		return SeatAvailability{}, internal("load event", err)
	}
	seats, err := s.seats.ListByEvent(ctx, eventID)
	if err != nil {
		return SeatAvailability{}, internal("list seats", err)
	}
	taken, err := s.tickets.ConfirmedSeats(ctx, eventID)
	if err != nil {
		return SeatAvailability{}, internal("list taken seats", err)
	}

	out := SeatAvailability{
		EventID: eventID,
		Seats:   make([]SeatView, 0, len(seats)),
		Pricing: Pricing{VIP: ev.VIPTicketPrice, Regular: ev.TicketPrice},
	}
	booked := 0
	for _, seat := range seats {
		available := !taken[seat.SeatNumber]
		if !available {
			booked++
		}
		out.Seats = append(out.Seats, SeatView{
			SeatNumber:  seat.SeatNumber,
			SeatLabel:   seating.Label(seat.SeatNumber),
			SeatType:    seat.SeatType,
			IsAvailable: available,
		})
	}
	out.Summary = SeatSummary{TotalSeats: len(seats), AvailableSeats: len(seats) - booked}
	return out, nil
}
