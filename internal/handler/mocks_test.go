package handler

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/iliyamo/reservita/internal/model"
	"github.com/iliyamo/reservita/internal/repository"
	"github.com/iliyamo/reservita/internal/service"
)

type mockTickets struct{ mock.Mock }

func (m *mockTickets) BookSeat(ctx context.Context, userID, eventID uint64, seatNumber int) (service.TicketView, error) {
	args := m.Called(ctx, userID, eventID, seatNumber)
	return args.Get(0).(service.TicketView), args.Error(1)
}

func (m *mockTickets) CancelTicket(ctx context.Context, userID, ticketID uint64) (service.TicketView, error) {
	args := m.Called(ctx, userID, ticketID)
	return args.Get(0).(service.TicketView), args.Error(1)
}

func (m *mockTickets) VerifyTicketQR(ctx context.Context, token string) (service.VerifyResult, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(service.VerifyResult), args.Error(1)
}

func (m *mockTickets) GetTicket(ctx context.Context, userID, ticketID uint64) (service.TicketView, error) {
	args := m.Called(ctx, userID, ticketID)
	return args.Get(0).(service.TicketView), args.Error(1)
}

func (m *mockTickets) ListMyTickets(ctx context.Context, userID uint64) ([]service.TicketView, error) {
	args := m.Called(ctx, userID)
	items, _ := args.Get(0).([]service.TicketView)
	return items, args.Error(1)
}

func (m *mockTickets) TicketQR(ctx context.Context, userID, ticketID uint64) ([]byte, error) {
	args := m.Called(ctx, userID, ticketID)
	png, _ := args.Get(0).([]byte)
	return png, args.Error(1)
}

type mockEvents struct{ mock.Mock }

func (m *mockEvents) Create(ctx context.Context, creatorID uint64, in service.CreateEventInput) (service.EventView, error) {
	args := m.Called(ctx, creatorID, in)
	return args.Get(0).(service.EventView), args.Error(1)
}

func (m *mockEvents) Update(ctx context.Context, userID, eventID uint64, in service.UpdateEventInput) (service.EventView, error) {
	args := m.Called(ctx, userID, eventID, in)
	return args.Get(0).(service.EventView), args.Error(1)
}

func (m *mockEvents) Get(ctx context.Context, viewerID, eventID uint64) (service.EventView, error) {
	args := m.Called(ctx, viewerID, eventID)
	return args.Get(0).(service.EventView), args.Error(1)
}

func (m *mockEvents) List(ctx context.Context, viewerID uint64, f repository.EventFilter) (service.PageResult[service.EventView], error) {
	args := m.Called(ctx, viewerID, f)
	return args.Get(0).(service.PageResult[service.EventView]), args.Error(1)
}

func (m *mockEvents) ListMine(ctx context.Context, creatorID uint64, p model.Page) (service.PageResult[service.EventView], error) {
	args := m.Called(ctx, creatorID, p)
	return args.Get(0).(service.PageResult[service.EventView]), args.Error(1)
}

func (m *mockEvents) GetEventSeats(ctx context.Context, eventID uint64) (service.SeatAvailability, error) {
	args := m.Called(ctx, eventID)
	return args.Get(0).(service.SeatAvailability), args.Error(1)
}

type mockReviews struct{ mock.Mock }

func (m *mockReviews) Create(ctx context.Context, userID, ticketID uint64, in service.ReviewInput) (service.ReviewView, error) {
	args := m.Called(ctx, userID, ticketID, in)
	return args.Get(0).(service.ReviewView), args.Error(1)
}

func (m *mockReviews) Get(ctx context.Context, reviewID uint64) (service.ReviewView, error) {
	args := m.Called(ctx, reviewID)
	return args.Get(0).(service.ReviewView), args.Error(1)
}

func (m *mockReviews) Update(ctx context.Context, userID, reviewID uint64, in service.ReviewInput) (service.ReviewView, error) {
	args := m.Called(ctx, userID, reviewID, in)
	return args.Get(0).(service.ReviewView), args.Error(1)
}

func (m *mockReviews) Delete(ctx context.Context, userID, reviewID uint64) error {
	return m.Called(ctx, userID, reviewID).Error(0)
}

func (m *mockReviews) ListByEvent(ctx context.Context, eventID uint64, p model.Page) (service.PageResult[service.ReviewView], error) {
	args := m.Called(ctx, eventID, p)
	return args.Get(0).(service.PageResult[service.ReviewView]), args.Error(1)
}

type mockFavorites struct{ mock.Mock }

func (m *mockFavorites) Add(ctx context.Context, userID, eventID uint64) error {
	return m.Called(ctx, userID, eventID).Error(0)
}

func (m *mockFavorites) Remove(ctx context.Context, userID, eventID uint64) error {
	return m.Called(ctx, userID, eventID).Error(0)
}

func (m *mockFavorites) List(ctx context.Context, userID uint64) ([]service.EventView, error) {
	args := m.Called(ctx, userID)
	items, _ := args.Get(0).([]service.EventView)
	return items, args.Error(1)
}

type mockAuth struct{ mock.Mock }

func (m *mockAuth) Register(ctx context.Context, in service.RegisterInput) (service.AuthResult, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(service.AuthResult), args.Error(1)
}

func (m *mockAuth) Login(ctx context.Context, email, password string) (service.AuthResult, error) {
	args := m.Called(ctx, email, password)
	return args.Get(0).(service.AuthResult), args.Error(1)
}

func (m *mockAuth) Refresh(ctx context.Context, rawRefresh string) (service.AuthResult, error) {
	args := m.Called(ctx, rawRefresh)
	return args.Get(0).(service.AuthResult), args.Error(1)
}

func (m *mockAuth) Logout(ctx context.Context, userID uint64, rawRefresh string) error {
	return m.Called(ctx, userID, rawRefresh).Error(0)
}

func (m *mockAuth) Me(ctx context.Context, userID uint64) (service.UserView, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(service.UserView), args.Error(1)
}

func (m *mockAuth) UpdateProfile(ctx context.Context, userID uint64, in service.ProfileInput) (service.UserView, error) {
	args := m.Called(ctx, userID, in)
	return args.Get(0).(service.UserView), args.Error(1)
}

func (m *mockAuth) ChangePassword(ctx context.Context, userID uint64, oldPassword, newPassword string) error {
	return m.Called(ctx, userID, oldPassword, newPassword).Error(0)
}

type countingPurger struct {
	calls int
	err   error
}

func (p *countingPurger) Purge(context.Context) error {
	p.calls++
	return p.err
}

var (
	_ TicketService   = (*service.BookingService)(nil)
	_ EventService    = (*service.EventService)(nil)
	_ ReviewService   = (*service.ReviewService)(nil)
	_ FavoriteService = (*service.FavoriteService)(nil)
	_ AuthService     = (*service.AuthService)(nil)
)
