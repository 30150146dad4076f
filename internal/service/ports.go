package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/reservita/internal/model"
	"github.com/iliyamo/reservita/internal/qrtoken"
	"github.com/iliyamo/reservita/internal/queue"
	"github.com/iliyamo/reservita/internal/repository"
	"github.com/iliyamo/reservita/internal/utils"
)

// Transactor runs fn in one storage transaction carried by ctx.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type EventStore interface {
	Create(ctx context.Context, e *model.Event) error
	GetByID(ctx context.Context, id uint64) (model.Event, error)
	Exists(ctx context.Context, id uint64) (bool, error)
	Update(ctx context.Context, e *model.Event) error
	List(ctx context.Context, f repository.EventFilter) ([]model.Event, int, error)
	ListByCreator(ctx context.Context, creatorID uint64, p model.Page) ([]model.Event, int, error)
	GetMany(ctx context.Context, ids []uint64) (map[uint64]model.Event, error)
	AverageRatings(ctx context.Context, ids []uint64) (map[uint64]decimal.Decimal, error)
}

type SeatStore interface {
	CreateBulk(ctx context.Context, seats []model.Seat) error
	Get(ctx context.Context, eventID uint64, seatNumber int) (model.Seat, error)
	ListByEvent(ctx context.Context, eventID uint64) ([]model.Seat, error)
	GetMany(ctx context.Context, keys []model.SeatKey) (map[model.SeatKey]model.Seat, error)
}

type TicketStore interface {
	Create(ctx context.Context, t *model.Ticket) error
	SetQRCode(ctx context.Context, id uint64, qr string) error
	GetByID(ctx context.Context, id uint64) (model.Ticket, error)
	GetByIDForUpdate(ctx context.Context, id uint64) (model.Ticket, error)
	HasConfirmed(ctx context.Context, eventID uint64, seatNumber int) (bool, error)
	ConfirmedSeats(ctx context.Context, eventID uint64) (map[int]bool, error)
	ListByUser(ctx context.Context, userID uint64) ([]model.Ticket, error)
	Cancel(ctx context.Context, id uint64, at time.Time) error
}

type ReviewStore interface {
	Create(ctx context.Context, r *model.Review) error
	GetByID(ctx context.Context, id uint64) (model.Review, error)
	ExistsForTicket(ctx context.Context, ticketID uint64) (bool, error)
	Update(ctx context.Context, r *model.Review) error
	Delete(ctx context.Context, id uint64) error
	ListByEvent(ctx context.Context, eventID uint64, p model.Page) ([]model.Review, int, error)
}

type FavoriteStore interface {
	Add(ctx context.Context, userID, eventID uint64) error
	Remove(ctx context.Context, userID, eventID uint64) error
	ListEvents(ctx context.Context, userID uint64) ([]model.Event, error)
	FavoritedAmong(ctx context.Context, userID uint64, eventIDs []uint64) (map[uint64]bool, error)
}

type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	UpdateProfile(ctx context.Context, id uint64, fullName, phone string) (model.User, error)
	UpdatePassword(ctx context.Context, id uint64, hash string) error
}

type RefreshTokenStore interface {
	StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	ValidateRefresh(ctx context.Context, tokenHash string, now time.Time) (uint64, error)
	RevokeByHash(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID uint64) error
}

// TokenCodec mints and verifies QR tokens.
type TokenCodec interface {
	Mint(p qrtoken.Payload) (string, error)
	Verify(token string) (qrtoken.Payload, error)
}

// TicketPublisher hands ticket lifecycle events to the message broker.
type TicketPublisher interface {
	PublishTicketEvent(ctx context.Context, ev queue.TicketEvent) error
}

// SessionIssuer mints access and refresh tokens.
type SessionIssuer interface {
	NewAccessToken(userID uint64, role string) (utils.AccessToken, error)
	NewRefreshToken() (utils.RefreshToken, error)
	Now() time.Time
}

type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(hash, plain string) bool
}
