package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/reservita/internal/model"
)

// seatInsertChunk bounds the number of rows per INSERT statement.
const seatInsertChunk = 500

// SeatRepo provides access to the fixed seat inventory of events.
type SeatRepo struct {
	db *sql.DB
}

func NewSeatRepo(db *sql.DB) *SeatRepo { return &SeatRepo{db: db} }

// CreateBulk inserts seats using multi-row INSERT statements.  It is meant
// to run inside the transaction that creates the event.  Passing an empty
// slice has no effect.
func (r *SeatRepo) CreateBulk(ctx context.Context, seats []model.Seat) error {
	q := conn(ctx, r.db)
	for start := 0; start < len(seats); start += seatInsertChunk {
		end := start + seatInsertChunk
		if end > len(seats) {
			end = len(seats)
		}
		batch := seats[start:end]
		var sb strings.Builder
		sb.WriteString(`INSERT INTO event_seats (event_id, seat_number, seat_type) VALUES `)
		args := make([]any, 0, len(batch)*3)
		for i, s := range batch {
			if i > 0 {
				sb.WriteString(",")
			}
			sb.WriteString("(?, ?, ?)")
			args = append(args, s.EventID, s.SeatNumber, string(s.SeatType))
		}
		if _, err := q.ExecContext(ctx, sb.String(), args...); err != nil {
			if isDuplicateKey(err) {
				return ErrDuplicate
			}
			return err
		}
	}
	return nil
}

// Get returns one seat or ErrNotFound.
func (r *SeatRepo) Get(ctx context.Context, eventID uint64, seatNumber int) (model.Seat, error) {
	var s model.Seat
	var t string
	err := conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT event_id, seat_number, seat_type FROM event_seats WHERE event_id = ? AND seat_number = ?`,
		eventID, seatNumber).Scan(&s.EventID, &s.SeatNumber, &t)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Seat{}, ErrNotFound
	}
	if err != nil {
		return model.Seat{}, err
	}
	s.SeatType = model.SeatType(t)
	return s, nil
}

// ListByEvent returns all seats of an event ordered by number.
func (r *SeatRepo) ListByEvent(ctx context.Context, eventID uint64) ([]model.Seat, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx,
		`SELECT event_id, seat_number, seat_type FROM event_seats WHERE event_id = ? ORDER BY seat_number`,
		eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Seat{}
	for rows.Next() {
		var s model.Seat
		var t string
		if err := rows.Scan(&s.EventID, &s.SeatNumber, &t); err != nil {
			return nil, err
		}
		s.SeatType = model.SeatType(t)
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetMany loads the seats for the given keys in one query.
func (r *SeatRepo) GetMany(ctx context.Context, keys []model.SeatKey) (map[model.SeatKey]model.Seat, error) {
	out := make(map[model.SeatKey]model.Seat, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	tuples := make([]string, len(keys))
	args := make([]any, 0, len(keys)*2)
	for i, k := range keys {
		tuples[i] = "(?, ?)"
		args = append(args, k.EventID, k.SeatNumber)
	}
	rows, err := conn(ctx, r.db).QueryContext(ctx,
		`SELECT event_id, seat_number, seat_type FROM event_seats WHERE (event_id, seat_number) IN (`+
			strings.Join(tuples, ",")+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var s model.Seat
		var t string
		if err := rows.Scan(&s.EventID, &s.SeatNumber, &t); err != nil {
			return nil, err
		}
		s.SeatType = model.SeatType(t)
		out[model.SeatKey{EventID: s.EventID, SeatNumber: s.SeatNumber}] = s
	}
	return out, rows.Err()
}
