package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/reservita/internal/clock"
	"github.com/iliyamo/reservita/internal/model"
	"github.com/iliyamo/reservita/internal/repository"
)

const (
	minCommentLen = 10
	maxCommentLen = 1000
)

var (
	minRating = decimal.NewFromInt(1)
	maxRating = decimal.NewFromInt(5)
)

type ReviewDeps struct {
	Tx      Transactor
	Reviews ReviewStore
	Tickets TicketStore
	Events  EventStore
	Clock   clock.Clock
	Log     logrus.FieldLogger
}

// ReviewService lets ticket holders rate events they attended.
type ReviewService struct {
	tx      Transactor
	reviews ReviewStore
	tickets TicketStore
	events  EventStore
	clock   clock.Clock
	log     logrus.FieldLogger
}

func NewReviewService(d ReviewDeps) *ReviewService {
	if d.Clock == nil {
		d.Clock = clock.NewSystem()
	}
	if d.Log == nil {
		d.Log = logrus.StandardLogger()
	}
	return &ReviewService{tx: d.Tx, reviews: d.Reviews, tickets: d.Tickets, events: d.Events, clock: d.Clock, log: d.Log}
}

// ReviewInput is a rating with an optional comment.
type ReviewInput struct {
	Rating  decimal.Decimal
	Comment *string
}

func (in ReviewInput) normalize() (ReviewInput, error) {
	if in.Rating.LessThan(minRating) || in.Rating.GreaterThan(maxRating) {
		return in, invalidInput("invalid_rating", "Rating must be between 1.0 and 5.0")
	}
	// Stored with one decimal place; 4.25 becomes 4.3.
	in.Rating = in.Rating.Round(1)
	if in.Comment != nil {
		c := strings.TrimSpace(*in.Comment)
		if c == "" {
			in.Comment = nil
			return in, nil
		}
		if n := utf8.RuneCountInString(c); n < minCommentLen || n > maxCommentLen {
			return in, invalidInput("invalid_comment", "Comment must be between 10 and 1000 characters")
		}
		in.Comment = &c
	}
	return in, nil
}

// Create reviews the event of ticketID.  The ticket must belong to userID,
// be CONFIRMED and its event must have started.
func (s *ReviewService) Create(ctx context.Context, userID, ticketID uint64, in ReviewInput) (ReviewView, error) {
	in, err := in.normalize()
	if err != nil {
		return ReviewView{}, err
	}
	var rv model.Review
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		t, err := s.tickets.GetByID(ctx, ticketID)
		if errors.Is(err, repository.ErrNotFound) {
			return errTicketNotFound
		}
		if err != nil {
			return internal("load ticket", err)
		}
		if t.UserID != userID {
			return forbidden("not_ticket_owner", "You can only review your own tickets")
		}
		if !t.Active() {
			return invalidState("ticket_cancelled", "Cancelled tickets cannot be reviewed")
		}
		ev, err := s.events.GetByID(ctx, t.EventID)
		if errors.Is(err, repository.ErrNotFound) {
			return errEventNotFound
		}
		if err != nil {
			return internal("load event", err)
		}
		if !ev.Started(s.clock.Now()) {
			return invalidState("event_not_started", "You can only review events that have started")
		}
		exists, err := s.reviews.ExistsForTicket(ctx, ticketID)
		if err != nil {
			return internal("check review", err)
		}
		if exists {
			return errReviewExists
		}
		rv = model.Review{TicketID: ticketID, UserID: userID, EventID: t.EventID, Rating: in.Rating, Comment: in.Comment}
		if err := s.reviews.Create(ctx, &rv); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return errReviewExists
			}
			return internal("insert review", err)
		}
		return nil
	})
	if err != nil {
		return ReviewView{}, err
	}
	s.log.WithFields(logrus.Fields{"review_id": rv.ID, "ticket_id": ticketID, "event_id": rv.EventID}).Info("review created")
	return newReviewView(rv), nil
}

var errReviewExists = conflict("review_exists", "You have already reviewed this ticket")

func (s *ReviewService) Get(ctx context.Context, reviewID uint64) (ReviewView, error) {
	rv, err := s.reviews.GetByID(ctx, reviewID)
	if errors.Is(err, repository.ErrNotFound) {
		return ReviewView{}, errReviewNotFound
	}
	if err != nil {
		return ReviewView{}, internal("load review", err)
	}
	return newReviewView(rv), nil
}

// Update replaces rating and comment of a review owned by userID.
func (s *ReviewService) Update(ctx context.Context, userID, reviewID uint64, in ReviewInput) (ReviewView, error) {
	in, err := in.normalize()
	if err != nil {
		return ReviewView{}, err
	}
	var rv model.Review
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		rv, err = s.owned(ctx, userID, reviewID)
		if err != nil {
			return err
		}
		rv.Rating = in.Rating
		rv.Comment = in.Comment
		if err := s.reviews.Update(ctx, &rv); err != nil {
			return internal("update review", err)
		}
		return nil
	})
	if err != nil {
		return ReviewView{}, err
	}
	return newReviewView(rv), nil
}

func (s *ReviewService) Delete(ctx context.Context, userID, reviewID uint64) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.owned(ctx, userID, reviewID); err != nil {
			return err
		}
		if err := s.reviews.Delete(ctx, reviewID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return errReviewNotFound
			}
			return internal("delete review", err)
		}
		return nil
	})
}

// ListByEvent returns reviews of an event newest first.
func (s *ReviewService) ListByEvent(ctx context.Context, eventID uint64, p model.Page) (PageResult[ReviewView], error) {
	ok, err := s.events.Exists(ctx, eventID)
	if err != nil {
		return PageResult[ReviewView]{}, internal("check event", err)
	}
	if !ok {
		return PageResult[ReviewView]{}, errEventNotFound
	}
	p = p.Normalize()
	reviews, total, err := s.reviews.ListByEvent(ctx, eventID, p)
	if err != nil {
		return PageResult[ReviewView]{}, internal("list reviews", err)
	}
	views := make([]ReviewView, len(reviews))
	for i, r := range reviews {
		views[i] = newReviewView(r)
	}
	return newPageResult(views, total, p), nil
}

func (s *ReviewService) owned(ctx context.Context, userID, reviewID uint64) (model.Review, error) {
	rv, err := s.reviews.GetByID(ctx, reviewID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Review{}, errReviewNotFound
	}
	if err != nil {
		return model.Review{}, internal("load review", err)
	}
	if rv.UserID != userID {
		return model.Review{}, forbidden("not_review_owner", "You can only modify your own reviews")
	}
	return rv, nil
}
