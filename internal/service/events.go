package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/reservita/internal/clock"
	"github.com/iliyamo/reservita/internal/config"
	"github.com/iliyamo/reservita/internal/model"
	"github.com/iliyamo/reservita/internal/repository"
	"github.com/iliyamo/reservita/internal/seating"
)

// EventDeps groups the collaborators of EventService.
type EventDeps struct {
	Tx        Transactor
	Events    EventStore
	Seats     SeatStore
	Tickets   TicketStore
	Favorites FavoriteStore
	Clock     clock.Clock
	Policy    config.BookingPolicy
	Log       logrus.FieldLogger
}

// EventService manages agency events, the public catalogue and the seat
// availability view.
type EventService struct {
	tx        Transactor
	events    EventStore
	seats     SeatStore
	tickets   TicketStore
	favorites FavoriteStore
	clock     clock.Clock
	policy    config.BookingPolicy
	log       logrus.FieldLogger
}

func NewEventService(d EventDeps) *EventService {
	if d.Clock == nil {
		d.Clock = clock.NewSystem()
	}
	if d.Log == nil {
		d.Log = logrus.StandardLogger()
	}
	return &EventService{
		tx:        d.Tx,
		events:    d.Events,
		seats:     d.Seats,
		tickets:   d.Tickets,
		favorites: d.Favorites,
		clock:     d.Clock,
		policy:    d.Policy,
		log:       d.Log,
	}
}

// CreateEventInput is what an agency submits.  Nil seat counts fall back
// to the configured default layout.
type CreateEventInput struct {
	Title          string
	Description    string
	Category       string
	City           string
	Venue          string
	Address        string
	StartsAt       time.Time
	EndsAt         time.Time
	TicketPrice    decimal.Decimal
	VIPTicketPrice decimal.Decimal
	VIPSeats       *int
	RegularSeats   *int
}

// UpdateEventInput carries the fields to change; nil means keep.
type UpdateEventInput struct {
	Title          *string
	Description    *string
	Category       *string
	City           *string
	Venue          *string
	Address        *string
	StartsAt       *time.Time
	EndsAt         *time.Time
	TicketPrice    *decimal.Decimal
	VIPTicketPrice *decimal.Decimal
}

// Create stores a new event and its seat inventory in one transaction.
func (s *EventService) Create(ctx context.Context, creatorID uint64, in CreateEventInput) (EventView, error) {
	now := s.clock.Now()
	if !in.StartsAt.After(now) {
		return EventView{}, invalidInput("invalid_schedule", "Start time must be in the future")
	}
	if !in.StartsAt.Before(in.EndsAt) {
		return EventView{}, invalidInput("invalid_schedule", "Start time must be before end time")
	}
	if err := checkPrices(in.TicketPrice, in.VIPTicketPrice); err != nil {
		return EventView{}, err
	}
	vip, regular := s.policy.DefaultVIPSeats, s.policy.DefaultRegularSeats
	if in.VIPSeats != nil {
		vip = *in.VIPSeats
	}
	if in.RegularSeats != nil {
		regular = *in.RegularSeats
	}
	if vip < 0 || regular < 0 {
		return EventView{}, invalidInput("invalid_layout", "Seat counts cannot be negative")
	}
	if total := vip + regular; total < 1 || (s.policy.MaxSeats > 0 && total > s.policy.MaxSeats) {
		return EventView{}, invalidInput("invalid_layout", "Total seats out of range")
	}

	ev := model.Event{
		CreatorID:      creatorID,
		Title:          strings.TrimSpace(in.Title),
		Description:    in.Description,
		Category:       strings.ToLower(in.Category),
		City:           strings.TrimSpace(in.City),
		Venue:          in.Venue,
		Address:        in.Address,
		StartsAt:       in.StartsAt.UTC(),
		EndsAt:         in.EndsAt.UTC(),
		TicketPrice:    in.TicketPrice,
		VIPTicketPrice: in.VIPTicketPrice,
	}
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.events.Create(ctx, &ev); err != nil {
			return internal("insert event", err)
		}
		if err := s.seats.CreateBulk(ctx, seating.Allocate(ev.ID, vip, regular)); err != nil {
			return internal("allocate seats", err)
		}
		return nil
	})
	if err != nil {
		s.log.WithError(err).WithField("creator_id", creatorID).Error("event creation failed")
		return EventView{}, err
	}
	s.log.WithFields(logrus.Fields{
		"event_id":      ev.ID,
		"creator_id":    creatorID,
		"vip_seats":     vip,
		"regular_seats": regular,
	}).Info("event created")
	return newEventView(ev), nil
}

// Update changes an event owned by userID.  The seat layout is immutable.
func (s *EventService) Update(ctx context.Context, userID, eventID uint64, in UpdateEventInput) (EventView, error) {
	var ev model.Event
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		ev, err = s.events.GetByID(ctx, eventID)
		if errors.Is(err, repository.ErrNotFound) {
			return errEventNotFound
		}
		if err != nil {
			return internal("load event", err)
		}
		if ev.CreatorID != userID {
			return forbidden("not_event_owner", "You can only update your own events")
		}
		applyEventUpdate(&ev, in)
		if !ev.StartsAt.Before(ev.EndsAt) {
			return invalidInput("invalid_schedule", "Start time must be before end time")
		}
		if err := checkPrices(ev.TicketPrice, ev.VIPTicketPrice); err != nil {
			return err
		}
		if err := s.events.Update(ctx, &ev); err != nil {
			return internal("update event", err)
		}
		return nil
	})
	if err != nil {
		return EventView{}, err
	}
	s.log.WithFields(logrus.Fields{"event_id": eventID, "user_id": userID}).Info("event updated")
	views, err := s.decorate(ctx, userID, []model.Event{ev})
	if err != nil {
		return EventView{}, err
	}
	return views[0], nil
}

func applyEventUpdate(ev *model.Event, in UpdateEventInput) {
	if in.Title != nil {
		ev.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		ev.Description = *in.Description
	}
	if in.Category != nil {
		ev.Category = strings.ToLower(*in.Category)
	}
	if in.City != nil {
		ev.City = strings.TrimSpace(*in.City)
	}
	if in.Venue != nil {
		ev.Venue = *in.Venue
	}
	if in.Address != nil {
		ev.Address = *in.Address
	}
	if in.StartsAt != nil {
		ev.StartsAt = in.StartsAt.UTC()
	}
	if in.EndsAt != nil {
		ev.EndsAt = in.EndsAt.UTC()
	}
	if in.TicketPrice != nil {
		ev.TicketPrice = *in.TicketPrice
	}
	if in.VIPTicketPrice != nil {
		ev.VIPTicketPrice = *in.VIPTicketPrice
	}
}

func checkPrices(regular, vip decimal.Decimal) error {
	if regular.IsNegative() || vip.IsNegative() {
		return invalidInput("invalid_price", "Prices cannot be negative")
	}
	return nil
}

// Get returns one event.  viewerID is 0 for anonymous callers.
func (s *EventService) Get(ctx context.Context, viewerID, eventID uint64) (EventView, error) {
	ev, err := s.events.GetByID(ctx, eventID)
	if errors.Is(err, repository.ErrNotFound) {
		return EventView{}, errEventNotFound
	}
	if err != nil {
		return EventView{}, internal("load event", err)
	}
	views, err := s.decorate(ctx, viewerID, []model.Event{ev})
	if err != nil {
		return EventView{}, err
	}
	return views[0], nil
}

// List returns one page of the public catalogue.
func (s *EventService) List(ctx context.Context, viewerID uint64, f repository.EventFilter) (PageResult[EventView], error) {
	f.Page = f.Page.Normalize()
	events, total, err := s.events.List(ctx, f)
	if err != nil {
		return PageResult[EventView]{}, internal("list events", err)
	}
	views, err := s.decorate(ctx, viewerID, events)
	if err != nil {
		return PageResult[EventView]{}, err
	}
	return newPageResult(views, total, f.Page), nil
}

// ListMine returns one page of the events owned by an agency.
func (s *EventService) ListMine(ctx context.Context, creatorID uint64, p model.Page) (PageResult[EventView], error) {
	p = p.Normalize()
	events, total, err := s.events.ListByCreator(ctx, creatorID, p)
	if err != nil {
		return PageResult[EventView]{}, internal("list events", err)
	}
	views, err := s.decorate(ctx, creatorID, events)
	if err != nil {
		return PageResult[EventView]{}, err
	}
	return newPageResult(views, total, p), nil
}

// decorate adds average ratings and the viewer's favourite flag with one
// query each, whatever the number of events.
func (s *EventService) decorate(ctx context.Context, viewerID uint64, events []model.Event) ([]EventView, error) {
	if len(events) == 0 {
		return []EventView{}, nil
	}
	ids := make([]uint64, len(events))
	for i, e := range events {
		ids[i] = e.ID
	}
	ratings, err := s.events.AverageRatings(ctx, ids)
	if err != nil {
		return nil, internal("average ratings", err)
	}
	favs := map[uint64]bool{}
	if viewerID != 0 && s.favorites != nil {
		favs, err = s.favorites.FavoritedAmong(ctx, viewerID, ids)
		if err != nil {
			return nil, internal("load favorites", err)
		}
	}
	out := make([]EventView, len(events))
	for i, e := range events {
		v := newEventView(e)
		if avg, ok := ratings[e.ID]; ok {
			r := avg.Round(2)
			v.AverageRating = &r
		}
		v.IsFavorited = favs[e.ID]
		out[i] = v
	}
	return out, nil
}
