package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/reservita/internal/model"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

var dupSeat = &mysql.MySQLError{Number: 1062, Message: "Duplicate entry '5-3' for key 'tickets.uq_ticket_active_seat'"}

func TestWithinTxCommits(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE tickets SET qr_code = ? WHERE id = ?`)).
		WithArgs("tok", uint64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tickets := NewTicketRepo(db)
	err := NewTransactor(db).WithinTx(context.Background(), func(ctx context.Context) error {
		return tickets.SetQRCode(ctx, 4, "tok")
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTxRollsBackOnError(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	err := NewTransactor(db).WithinTx(context.Background(), func(ctx context.Context) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTxNestedReusesOuter(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	tr := NewTransactor(db)
	err := tr.WithinTx(context.Background(), func(ctx context.Context) error {
		return tr.WithinTx(ctx, func(inner context.Context) error {
			assert.Same(t, txFromContext(ctx), txFromContext(inner))
			return nil
		})
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketCreateTranslatesDuplicateSeat(t *testing.T) {
	db, mock := newMock(t)
	now := time.Date(2030, 1, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO tickets`)).
		WithArgs(uint64(2), uint64(5), 3, "pending:x", "CONFIRMED", now).
		WillReturnError(dupSeat)

	tk := &model.Ticket{UserID: 2, EventID: 5, SeatNumber: 3, QRCode: "pending:x", Status: model.TicketConfirmed, PurchasedAt: now}
	err := NewTicketRepo(db).Create(context.Background(), tk)
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketCreateSetsID(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO tickets`)).
		WillReturnResult(sqlmock.NewResult(42, 1))

	tk := &model.Ticket{UserID: 2, EventID: 5, SeatNumber: 3, QRCode: "pending:x", Status: model.TicketConfirmed, PurchasedAt: time.Now()}
	require.NoError(t, NewTicketRepo(db).Create(context.Background(), tk))
	assert.Equal(t, uint64(42), tk.ID)
}

func TestTicketGetByIDNotFound(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM tickets WHERE id = ?`)).
		WithArgs(uint64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := NewTicketRepo(db).GetByID(context.Background(), 9)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTicketGetByIDScansCancellation(t *testing.T) {
	db, mock := newMock(t)
	bought := time.Date(2030, 1, 1, 10, 0, 0, 0, time.UTC)
	cancelled := bought.Add(time.Hour)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM tickets WHERE id = ? FOR UPDATE`)).
		WithArgs(uint64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "event_id", "seat_number", "qr_code", "status", "purchased_at", "cancelled_at"}).
			AddRow(9, 2, 5, 3, "tok", "CANCELLED", bought, cancelled))

	tk, err := NewTicketRepo(db).GetByIDForUpdate(context.Background(), 9)
	require.NoError(t, err)
	assert.Equal(t, model.TicketCancelled, tk.Status)
	require.NotNil(t, tk.CancelledAt)
	assert.True(t, tk.CancelledAt.Equal(cancelled))
}

func TestTicketCancelOnlyConfirmed(t *testing.T) {
	db, mock := newMock(t)
	at := time.Date(2030, 1, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE tickets SET status = 'CANCELLED', cancelled_at = ? WHERE id = ? AND status = 'CONFIRMED'`)).
		WithArgs(at, uint64(3)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := NewTicketRepo(db).Cancel(context.Background(), 3, at)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConfirmedSeats(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT seat_number FROM tickets WHERE event_id = ? AND status = 'CONFIRMED'`)).
		WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"seat_number"}).AddRow(1).AddRow(7))

	taken, err := NewTicketRepo(db).ConfirmedSeats(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, map[int]bool{1: true, 7: true}, taken)
}

func TestSeatCreateBulkSingleStatement(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO event_seats (event_id, seat_number, seat_type) VALUES (?, ?, ?),(?, ?, ?)`)).
		WithArgs(uint64(1), 1, "VIP", uint64(1), 2, "REGULAR").
		WillReturnResult(sqlmock.NewResult(0, 2))

	err := NewSeatRepo(db).CreateBulk(context.Background(), []model.Seat{
		{EventID: 1, SeatNumber: 1, SeatType: model.SeatVIP},
		{EventID: 1, SeatNumber: 2, SeatType: model.SeatRegular},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSeatGetNotFound(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM event_seats WHERE event_id = ? AND seat_number = ?`)).
		WithArgs(uint64(1), 999).
		WillReturnRows(sqlmock.NewRows([]string{"event_id", "seat_number", "seat_type"}))

	_, err := NewSeatRepo(db).Get(context.Background(), 1, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEventListBuildsFilters(t *testing.T) {
	db, mock := newMock(t)
	starts := time.Date(2030, 6, 1, 18, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM events WHERE LOWER(city) = ? AND category = ?`)).
		WithArgs("tehran", "sports").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY starts_at ASC, id ASC LIMIT ? OFFSET ?`)).
		WithArgs("tehran", "sports", 10, 10).
		WillReturnRows(sqlmock.NewRows([]string{"id", "creator_id", "title", "description", "category", "city", "venue", "address",
			"starts_at", "ends_at", "ticket_price", "vip_ticket_price", "created_at", "updated_at"}).
			AddRow(1, 8, "Derby", "", "sports", "Tehran", "Azadi", "", starts, starts.Add(2*time.Hour), "20.00", "50.00", starts, starts))

	events, total, err := NewEventRepo(db).List(context.Background(), EventFilter{
		City: "Tehran", Category: "SPORTS", Page: model.Page{Number: 2, Size: 10},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, events, 1)
	assert.True(t, events[0].VIPTicketPrice.Equal(decimal.NewFromInt(50)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventGetByIDNotFound(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM events WHERE id = ?`)).
		WithArgs(uint64(77)).
		WillReturnError(sql.ErrNoRows)

	_, err := NewEventRepo(db).GetByID(context.Background(), 77)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReviewCreateDuplicate(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO reviews`)).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry '3' for key 'reviews.uq_reviews_ticket'"})

	rv := &model.Review{TicketID: 3, UserID: 1, EventID: 2, Rating: decimal.NewFromInt(4)}
	assert.ErrorIs(t, NewReviewRepo(db).Create(context.Background(), rv), ErrDuplicate)
}

func TestFavoritedAmongSkipsAnonymous(t *testing.T) {
	db, mock := newMock(t)
	got, err := NewFavoriteRepo(db).FavoritedAmong(context.Background(), 0, []uint64{1, 2})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserCreateDuplicateEmail(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO users`)).
		WithArgs("Ada", "ada@example.com", "hash", "", model.RoleCustomer).
		WillReturnError(&mysql.MySQLError{Number: 1062})

	u := &model.User{FullName: "Ada", Email: "  ADA@example.com ", PasswordHash: "hash", Role: model.RoleCustomer}
	assert.ErrorIs(t, NewUserRepo(db).Create(context.Background(), u), ErrDuplicate)
}

func TestUserUpdateProfile(t *testing.T) {
	db, mock := newMock(t)
	now := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET full_name=?, phone_number=? WHERE id=?`)).
		WithArgs("Ada Lovelace", "0912", uint64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT ` + userColumns + ` FROM users WHERE id=?`)).
		WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "full_name", "email", "password_hash", "phone_number", "role", "is_active", "created_at", "updated_at"}).
			AddRow(3, "Ada Lovelace", "ada@example.com", "hash", "0912", model.RoleCustomer, true, now, now))

	u, err := NewUserRepo(db).UpdateProfile(context.Background(), 3, "Ada Lovelace", "0912")
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", u.FullName)
	assert.Equal(t, "0912", u.PhoneNumber)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserUpdatePasswordUnknownUser(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET password_hash=? WHERE id=?`)).
		WithArgs("new-hash", uint64(9)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, NewUserRepo(db).UpdatePassword(context.Background(), 9, "new-hash"), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestValidateRefreshExpired(t *testing.T) {
	db, mock := newMock(t)
	now := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT user_id, expires_at, revoked_at FROM refresh_tokens`)).
		WithArgs("h").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "expires_at", "revoked_at"}).AddRow(1, now.Add(-time.Second), nil))

	_, err := NewTokenRepo(db).ValidateRefresh(context.Background(), "h", now)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestIsDuplicateKeyWrapped(t *testing.T) {
	assert.True(t, isDuplicateKey(errors.Join(errors.New("ctx"), dupSeat)))
	assert.False(t, isDuplicateKey(&mysql.MySQLError{Number: 1452}))
	assert.False(t, isDuplicateKey(errors.New("1062")))
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "", placeholders(0))
	assert.Equal(t, "?", placeholders(1))
	assert.Equal(t, "?,?,?", placeholders(3))
}
