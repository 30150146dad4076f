package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/reservita/internal/config"
	"github.com/iliyamo/reservita/internal/model"
	"github.com/iliyamo/reservita/internal/qrtoken"
)

var base = time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)

const (
	agencyID uint64 = 900
	userA    uint64 = 1
	userB    uint64 = 2
)

type harness struct {
	db        *memDB
	clock     *stepClock
	pub       *recordingPublisher
	codec     *qrtoken.Codec
	hook      *test.Hook
	booking   *BookingService
	events    *EventService
	reviews   *ReviewService
	favorites *FavoriteService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := newMemDB()
	clk := &stepClock{now: base}
	codec, err := qrtoken.NewCodec("qr-test-secret", clk)
	require.NoError(t, err)
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	pub := &recordingPublisher{}
	policy := config.DefaultBookingPolicy()

	db.users[userA] = model.User{ID: userA, FullName: "Ada Customer", Email: "a@example.com", Role: model.RoleCustomer, IsActive: true}
	db.users[userB] = model.User{ID: userB, FullName: "Bo Customer", Email: "b@example.com", Role: model.RoleCustomer, IsActive: true}
	db.users[agencyID] = model.User{ID: agencyID, FullName: "Stage Co", Email: "agency@example.com", Role: model.RoleAgency, IsActive: true}
	db.seq = 1000

	h := &harness{db: db, clock: clk, pub: pub, codec: codec, hook: hook}
	h.booking = NewBookingService(BookingDeps{
		Tx:        fakeTx{},
		Events:    memEvents{db},
		Seats:     memSeats{db},
		Tickets:   memTickets{db},
		Codec:     codec,
		Publisher: pub,
		Clock:     clk,
		Policy:    policy,
		QR:        qrtoken.DefaultRenderOptions,
		Log:       logger,
	})
	h.events = NewEventService(EventDeps{
		Tx:        fakeTx{},
		Events:    memEvents{db},
		Seats:     memSeats{db},
		Tickets:   memTickets{db},
		Favorites: memFavorites{db},
		Clock:     clk,
		Policy:    policy,
		Log:       logger,
	})
	h.reviews = NewReviewService(ReviewDeps{
		Tx:      fakeTx{},
		Reviews: memReviews{db},
		Tickets: memTickets{db},
		Events:  memEvents{db},
		Clock:   clk,
		Log:     logger,
	})
	h.favorites = NewFavoriteService(memEvents{db}, memFavorites{db})
	return h
}

// createEvent adds an event starting startsIn from now with the given
// layout and prices.
func (h *harness) createEvent(t *testing.T, startsIn time.Duration, vip, regular int, vipPrice, price string) EventView {
	t.Helper()
	start := h.clock.Now().Add(startsIn)
	ev, err := h.events.Create(context.Background(), agencyID, CreateEventInput{
		Title:          "Night Concert",
		Description:    "Live music",
		Category:       "concert",
		City:           "Tehran",
		Venue:          "Azadi Hall",
		StartsAt:       start,
		EndsAt:         start.Add(3 * time.Hour),
		TicketPrice:    decimal.RequireFromString(price),
		VIPTicketPrice: decimal.RequireFromString(vipPrice),
		VIPSeats:       &vip,
		RegularSeats:   &regular,
	})
	require.NoError(t, err)
	return ev
}

func requireKind(t *testing.T, err error, want Kind) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, want, KindOf(err), "unexpected error: %v", err)
}
