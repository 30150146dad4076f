package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/reservita/internal/clock"
	"github.com/iliyamo/reservita/internal/config"
	"github.com/iliyamo/reservita/internal/metrics"
	"github.com/iliyamo/reservita/internal/model"
	"github.com/iliyamo/reservita/internal/qrtoken"
	"github.com/iliyamo/reservita/internal/queue"
	"github.com/iliyamo/reservita/internal/repository"
	"github.com/iliyamo/reservita/internal/seating"
)

const publishTimeout = 3 * time.Second

// BookingDeps groups the collaborators of BookingService.
type BookingDeps struct {
	Tx        Transactor
	Events    EventStore
	Seats     SeatStore
	Tickets   TicketStore
	Codec     TokenCodec
	Publisher TicketPublisher // optional
	Clock     clock.Clock
	Policy    config.BookingPolicy
	QR        qrtoken.RenderOptions
	Log       logrus.FieldLogger
}

// BookingService books, cancels and verifies tickets.  A seat is never
// held by two CONFIRMED tickets: the availability check is only a fast
// path, the storage uniqueness constraint decides races.
type BookingService struct {
	tx        Transactor
	events    EventStore
	seats     SeatStore
	tickets   TicketStore
	codec     TokenCodec
	publisher TicketPublisher
	clock     clock.Clock
	policy    config.BookingPolicy
	qr        qrtoken.RenderOptions
	log       logrus.FieldLogger
}

func NewBookingService(d BookingDeps) *BookingService {
	if d.Clock == nil {
		d.Clock = clock.NewSystem()
	}
	if d.Log == nil {
		d.Log = logrus.StandardLogger()
	}
	return &BookingService{
		tx:        d.Tx,
		events:    d.Events,
		seats:     d.Seats,
		tickets:   d.Tickets,
		codec:     d.Codec,
		publisher: d.Publisher,
		clock:     d.Clock,
		policy:    d.Policy,
		qr:        d.QR,
		log:       d.Log,
	}
}

// BookSeat creates a CONFIRMED ticket for seatNumber of eventID.
func (s *BookingService) BookSeat(ctx context.Context, userID, eventID uint64, seatNumber int) (TicketView, error) {
	started := time.Now()
	var (
		view   TicketView
		ticket model.Ticket
		event  model.Event
		seat   model.Seat
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		event, err = s.events.GetByID(ctx, eventID)
		if errors.Is(err, repository.ErrNotFound) {
			return errEventNotFound
		}
		if err != nil {
			return internal("load event", err)
		}
		now := s.clock.Now()
		if event.Started(now) {
			return invalidState("event_started", "Cannot book tickets for past events")
		}

		seat, err = s.seats.Get(ctx, eventID, seatNumber)
		if errors.Is(err, repository.ErrNotFound) {
			return errSeatNotFound
		}
		if err != nil {
			return internal("load seat", err)
		}

		taken, err := s.tickets.HasConfirmed(ctx, eventID, seatNumber)
		if err != nil {
			return internal("check seat", err)
		}
		if taken {
			return errSeatTaken
		}

		// The row needs an id before its token can be minted, so it is
		// inserted with a unique placeholder and patched below in the
		// same transaction.
		ticket = model.Ticket{
			UserID:      userID,
			EventID:     eventID,
			SeatNumber:  seatNumber,
			QRCode:      "pending:" + uuid.NewString(),
			Status:      model.TicketConfirmed,
			PurchasedAt: now,
		}
		if err := s.tickets.Create(ctx, &ticket); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return errSeatTaken
			}
			return internal("insert ticket", err)
		}

		token, err := s.codec.Mint(qrtoken.Payload{
			UserID:    userID,
			TicketID:  ticket.ID,
			EventID:   eventID,
			ExpiresAt: event.EndsAt,
		})
		if err != nil {
			return internal("mint qr token", err)
		}
		if err := s.tickets.SetQRCode(ctx, ticket.ID, token); err != nil {
			return internal("store qr token", err)
		}
		ticket.QRCode = token
		view = newTicketView(ticket, seat, event)
		return nil
	})
	metrics.BookingDuration.Observe(time.Since(started).Seconds())
	if err != nil {
		switch KindOf(err) {
		case KindConflict:
			metrics.BookingAttempts.WithLabelValues(metrics.OutcomeConflict).Inc()
		case KindInternal:
			metrics.BookingAttempts.WithLabelValues(metrics.OutcomeError).Inc()
			s.log.WithError(err).WithFields(logrus.Fields{"event_id": eventID, "seat_number": seatNumber}).Error("booking failed")
		default:
			metrics.BookingAttempts.WithLabelValues(metrics.OutcomeRejected).Inc()
		}
		return TicketView{}, err
	}

	metrics.BookingAttempts.WithLabelValues(metrics.OutcomeOK).Inc()
	s.log.WithFields(logrus.Fields{
		"ticket_id":   ticket.ID,
		"user_id":     userID,
		"event_id":    eventID,
		"seat_number": seatNumber,
	}).Info("ticket booked")
	s.publish(ctx, queue.TicketBooked, ticket, seat, event)
	return view, nil
}

// CancelTicket cancels a ticket owned by userID.  Cancellation closes
// policy.CancelWindow before the event starts.
func (s *BookingService) CancelTicket(ctx context.Context, userID, ticketID uint64) (TicketView, error) {
	var (
		view   TicketView
		ticket model.Ticket
		event  model.Event
		seat   model.Seat
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		ticket, err = s.tickets.GetByIDForUpdate(ctx, ticketID)
		if errors.Is(err, repository.ErrNotFound) {
			return errTicketNotFound
		}
		if err != nil {
			return internal("load ticket", err)
		}
		if ticket.UserID != userID {
			return errTicketNotFound
		}
		if !ticket.Active() {
			return invalidState("ticket_already_cancelled", "Ticket is already cancelled")
		}

		event, err = s.events.GetByID(ctx, ticket.EventID)
		if errors.Is(err, repository.ErrNotFound) {
			return errEventNotFound
		}
		if err != nil {
			return internal("load event", err)
		}
		now := s.clock.Now()
		if event.Started(now) {
			return invalidState("event_started", "Cannot cancel tickets for events that have started")
		}
		if event.StartsAt.Sub(now) < s.policy.CancelWindow {
			return invalidState("cancellation_window_closed",
				fmt.Sprintf("Tickets can only be cancelled at least %s before the event", windowText(s.policy.CancelWindow)))
		}

		seat, err = s.seats.Get(ctx, ticket.EventID, ticket.SeatNumber)
		if err != nil {
			return internal("load seat", err)
		}
		if err := s.tickets.Cancel(ctx, ticket.ID, now); err != nil {
			return internal("cancel ticket", err)
		}
		ticket.Status = model.TicketCancelled
		ticket.CancelledAt = &now
		view = newTicketView(ticket, seat, event)
		return nil
	})
	if err != nil {
		outcome := metrics.OutcomeRejected
		if KindOf(err) == KindInternal {
			outcome = metrics.OutcomeError
			s.log.WithError(err).WithField("ticket_id", ticketID).Error("cancellation failed")
		}
		metrics.TicketCancellations.WithLabelValues(outcome).Inc()
		return TicketView{}, err
	}

	metrics.TicketCancellations.WithLabelValues(metrics.OutcomeOK).Inc()
	s.log.WithFields(logrus.Fields{
		"ticket_id":   ticket.ID,
		"user_id":     userID,
		"event_id":    ticket.EventID,
		"seat_number": ticket.SeatNumber,
	}).Info("ticket cancelled")
	s.publish(ctx, queue.TicketCancelled, ticket, seat, event)
	return view, nil
}

// VerifyTicketQR decides whether a scanned token admits its holder.  Token
// problems are reported as {valid:false}, never as errors.
func (s *BookingService) VerifyTicketQR(ctx context.Context, token string) (VerifyResult, error) {
	invalid := func(reason string) (VerifyResult, error) {
		metrics.QRVerifications.WithLabelValues(reason).Inc()
		s.log.WithField("reason", reason).Debug("qr token rejected")
		return VerifyResult{Valid: false}, nil
	}

	p, err := s.codec.Verify(token)
	if err != nil {
		if errors.Is(err, qrtoken.ErrExpiredToken) {
			return invalid("expired")
		}
		return invalid("malformed")
	}

	t, err := s.tickets.GetByID(ctx, p.TicketID)
	if errors.Is(err, repository.ErrNotFound) {
		return invalid("unknown_ticket")
	}
	if err != nil {
		return VerifyResult{}, internal("load ticket", err)
	}
	if t.UserID != p.UserID || t.EventID != p.EventID {
		return invalid("mismatch")
	}
	if !t.Active() {
		return invalid("cancelled")
	}

	ev, err := s.events.GetByID(ctx, t.EventID)
	if errors.Is(err, repository.ErrNotFound) {
		return invalid("unknown_event")
	}
	if err != nil {
		return VerifyResult{}, internal("load event", err)
	}
	seat, err := s.seats.Get(ctx, t.EventID, t.SeatNumber)
	if errors.Is(err, repository.ErrNotFound) {
		return invalid("unknown_seat")
	}
	if err != nil {
		return VerifyResult{}, internal("load seat", err)
	}

	metrics.QRVerifications.WithLabelValues("valid").Inc()
	view := newTicketView(t, seat, ev)
	return VerifyResult{Valid: true, Ticket: &view}, nil
}

// GetTicket returns one of the caller's tickets.  Tickets of other users
// are reported as not found.
func (s *BookingService) GetTicket(ctx context.Context, userID, ticketID uint64) (TicketView, error) {
	t, err := s.ownedTicket(ctx, userID, ticketID)
	if err != nil {
		return TicketView{}, err
	}
	ev, err := s.events.GetByID(ctx, t.EventID)
	if errors.Is(err, repository.ErrNotFound) {
		return TicketView{}, errEventNotFound
	}
	if err != nil {
		return TicketView{}, internal("load event", err)
	}
	seat, err := s.seats.Get(ctx, t.EventID, t.SeatNumber)
	if errors.Is(err, repository.ErrNotFound) {
		return TicketView{}, notFound("seat_not_found", "Seat information not found")
	}
	if err != nil {
		return TicketView{}, internal("load seat", err)
	}
	return newTicketView(t, seat, ev), nil
}

// ListMyTickets returns the caller's tickets newest first.  Events and
// seats are loaded in one batch each.
func (s *BookingService) ListMyTickets(ctx context.Context, userID uint64) ([]TicketView, error) {
	tickets, err := s.tickets.ListByUser(ctx, userID)
	if err != nil {
		return nil, internal("list tickets", err)
	}
	if len(tickets) == 0 {
		return []TicketView{}, nil
	}

	eventIDs := make([]uint64, 0, len(tickets))
	seen := make(map[uint64]bool, len(tickets))
	keys := make([]model.SeatKey, 0, len(tickets))
	for _, t := range tickets {
		if !seen[t.EventID] {
			seen[t.EventID] = true
			eventIDs = append(eventIDs, t.EventID)
		}
		keys = append(keys, model.SeatKey{EventID: t.EventID, SeatNumber: t.SeatNumber})
	}
	events, err := s.events.GetMany(ctx, eventIDs)
	if err != nil {
		return nil, internal("load events", err)
	}
	seats, err := s.seats.GetMany(ctx, keys)
	if err != nil {
		return nil, internal("load seats", err)
	}

	out := make([]TicketView, 0, len(tickets))
	for _, t := range tickets {
		ev, ok := events[t.EventID]
		if !ok {
			continue
		}
		seat, ok := seats[model.SeatKey{EventID: t.EventID, SeatNumber: t.SeatNumber}]
		if !ok {
			continue
		}
		out = append(out, newTicketView(t, seat, ev))
	}
	return out, nil
}

// TicketQR renders the caller's ticket token as a PNG.
func (s *BookingService) TicketQR(ctx context.Context, userID, ticketID uint64) ([]byte, error) {
	t, err := s.ownedTicket(ctx, userID, ticketID)
	if err != nil {
		return nil, err
	}
	if t.QRCode == "" {
		return nil, internal("render qr", errors.New("ticket has no qr token"))
	}
	png, err := qrtoken.Render(t.QRCode, s.qr)
	if err != nil {
		return nil, internal("render qr", err)
	}
	return png, nil
}

func (s *BookingService) ownedTicket(ctx context.Context, userID, ticketID uint64) (model.Ticket, error) {
	t, err := s.tickets.GetByID(ctx, ticketID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Ticket{}, errTicketNotFound
	}
	if err != nil {
		return model.Ticket{}, internal("load ticket", err)
	}
	if t.UserID != userID {
		return model.Ticket{}, errTicketNotFound
	}
	return t, nil
}

// publish sends a lifecycle event after commit.  Failures are logged and
// counted; the booking itself already succeeded.
func (s *BookingService) publish(ctx context.Context, typ string, t model.Ticket, seat model.Seat, ev model.Event) {
	if s.publisher == nil {
		return
	}
	msg := queue.TicketEvent{
		Type:       typ,
		TicketID:   t.ID,
		UserID:     t.UserID,
		EventID:    t.EventID,
		EventTitle: ev.Title,
		SeatNumber: t.SeatNumber,
		SeatLabel:  seating.Label(t.SeatNumber),
		SeatType:   string(seat.SeatType),
		Price:      ev.PriceFor(seat.SeatType).StringFixed(2),
		StartsAt:   ev.StartsAt,
		OccurredAt: s.clock.Now(),
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.publisher.PublishTicketEvent(pctx, msg); err != nil {
		metrics.PublishFailures.WithLabelValues(typ).Inc()
		s.log.WithError(err).WithFields(logrus.Fields{"ticket_id": t.ID, "type": typ}).Warn("ticket event not published")
	}
}

func windowText(d time.Duration) string {
	if d >= time.Hour && d%time.Hour == 0 {
		return fmt.Sprintf("%d hours", int(d/time.Hour))
	}
	return d.String()
}
