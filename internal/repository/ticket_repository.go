package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/reservita/internal/model"
)

// TicketRepo persists tickets.  The tickets table carries a UNIQUE key on
// (event_id, active_seat) where active_seat is only set for CONFIRMED rows;
// inserting a second confirmed ticket for a seat fails with ErrDuplicate.
type TicketRepo struct {
	db *sql.DB
}

func NewTicketRepo(db *sql.DB) *TicketRepo { return &TicketRepo{db: db} }

const ticketColumns = `id, user_id, event_id, seat_number, qr_code, status, purchased_at, cancelled_at`

func scanTicket(s rowScanner) (model.Ticket, error) {
	var t model.Ticket
	var status string
	var cancelledAt sql.NullTime
	if err := s.Scan(&t.ID, &t.UserID, &t.EventID, &t.SeatNumber, &t.QRCode, &status, &t.PurchasedAt, &cancelledAt); err != nil {
		return model.Ticket{}, err
	}
	t.Status = model.TicketStatus(status)
	if cancelledAt.Valid {
		ca := cancelledAt.Time
		t.CancelledAt = &ca
	}
	return t, nil
}

// Create inserts t and sets its ID.
func (r *TicketRepo) Create(ctx context.Context, t *model.Ticket) error {
	res, err := conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO tickets (user_id, event_id, seat_number, qr_code, status, purchased_at) VALUES (?, ?, ?, ?, ?, ?)`,
		t.UserID, t.EventID, t.SeatNumber, t.QRCode, string(t.Status), t.PurchasedAt.UTC())
	if err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicate
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	return nil
}

// SetQRCode replaces the QR token of a ticket.
func (r *TicketRepo) SetQRCode(ctx context.Context, id uint64, qr string) error {
	res, err := conn(ctx, r.db).ExecContext(ctx, `UPDATE tickets SET qr_code = ? WHERE id = ?`, qr, id)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicate
		}
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByID returns a ticket or ErrNotFound.
func (r *TicketRepo) GetByID(ctx context.Context, id uint64) (model.Ticket, error) {
	return r.getOne(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id = ?`, id)
}

// GetByIDForUpdate is GetByID with a row lock; use it inside WithinTx.
func (r *TicketRepo) GetByIDForUpdate(ctx context.Context, id uint64) (model.Ticket, error) {
	return r.getOne(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id = ? FOR UPDATE`, id)
}

func (r *TicketRepo) getOne(ctx context.Context, q string, args ...any) (model.Ticket, error) {
	t, err := scanTicket(conn(ctx, r.db).QueryRowContext(ctx, q, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Ticket{}, ErrNotFound
	}
	return t, err
}

// HasConfirmed reports whether the seat is currently taken.
func (r *TicketRepo) HasConfirmed(ctx context.Context, eventID uint64, seatNumber int) (bool, error) {
	var n int
	err := conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tickets WHERE event_id = ? AND seat_number = ? AND status = 'CONFIRMED'`,
		eventID, seatNumber).Scan(&n)
	return n > 0, err
}

// ConfirmedSeats returns the set of taken seat numbers of an event.
func (r *TicketRepo) ConfirmedSeats(ctx context.Context, eventID uint64) (map[int]bool, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx,
		`SELECT seat_number FROM tickets WHERE event_id = ? AND status = 'CONFIRMED'`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	taken := map[int]bool{}
	for rows.Next() {
		var n int
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		taken[n] = true
	}
	return taken, rows.Err()
}

// ListByUser returns a user's tickets, newest first.
func (r *TicketRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Ticket, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx,
		`SELECT `+ticketColumns+` FROM tickets WHERE user_id = ? ORDER BY purchased_at DESC, id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Ticket{}
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Cancel marks a confirmed ticket as cancelled.  ErrNotFound is returned
// when no confirmed ticket with that id exists.
func (r *TicketRepo) Cancel(ctx context.Context, id uint64, at time.Time) error {
	res, err := conn(ctx, r.db).ExecContext(ctx,
		`UPDATE tickets SET status = 'CANCELLED', cancelled_at = ? WHERE id = ? AND status = 'CONFIRMED'`,
		at.UTC(), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
