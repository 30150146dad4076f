package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/reservita/internal/model"
)

// EventFilter narrows the public event listing.  Empty fields do not
// filter.  Query matches title, description and venue.
type EventFilter struct {
	City     string
	Category string
	Query    string
	Page     model.Page
}

// EventRepo manages persistence for events.
type EventRepo struct {
	db *sql.DB
}

func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

const eventColumns = `id, creator_id, title, description, category, city, venue, address,
	starts_at, ends_at, ticket_price, vip_ticket_price, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(s rowScanner) (model.Event, error) {
	var e model.Event
	err := s.Scan(&e.ID, &e.CreatorID, &e.Title, &e.Description, &e.Category, &e.City, &e.Venue,
		&e.Address, &e.StartsAt, &e.EndsAt, &e.TicketPrice, &e.VIPTicketPrice, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

// Create inserts e and fills in its generated ID and timestamps.
func (r *EventRepo) Create(ctx context.Context, e *model.Event) error {
	q := conn(ctx, r.db)
	res, err := q.ExecContext(ctx,
		`INSERT INTO events (creator_id, title, description, category, city, venue, address,
			starts_at, ends_at, ticket_price, vip_ticket_price)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.CreatorID, e.Title, e.Description, e.Category, e.City, e.Venue, e.Address,
		e.StartsAt.UTC(), e.EndsAt.UTC(), e.TicketPrice, e.VIPTicketPrice)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	// Query back the row so DB defaults are visible to the caller.
	created, err := scanEvent(q.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id))
	if err != nil {
		return err
	}
	*e = created
	return nil
}

// GetByID returns an event or ErrNotFound.
func (r *EventRepo) GetByID(ctx context.Context, id uint64) (model.Event, error) {
	e, err := scanEvent(conn(ctx, r.db).QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Event{}, ErrNotFound
	}
	return e, err
}

// Exists reports whether an event with id exists.
func (r *EventRepo) Exists(ctx context.Context, id uint64) (bool, error) {
	var n int
	err := conn(ctx, r.db).QueryRowContext(ctx, `SELECT COUNT(*) FROM events WHERE id = ?`, id).Scan(&n)
	return n > 0, err
}

// Update writes the mutable columns of e.
func (r *EventRepo) Update(ctx context.Context, e *model.Event) error {
	q := conn(ctx, r.db)
	_, err := q.ExecContext(ctx,
		`UPDATE events SET title = ?, description = ?, category = ?, city = ?, venue = ?, address = ?,
			starts_at = ?, ends_at = ?, ticket_price = ?, vip_ticket_price = ?
		 WHERE id = ?`,
		e.Title, e.Description, e.Category, e.City, e.Venue, e.Address,
		e.StartsAt.UTC(), e.EndsAt.UTC(), e.TicketPrice, e.VIPTicketPrice, e.ID)
	if err != nil {
		return err
	}
	// MySQL reports 0 affected rows when nothing changed, so existence is
	// checked by re-reading the row.
	updated, err := scanEvent(q.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, e.ID))
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	*e = updated
	return nil
}

// List returns one page of events matching f ordered by start time, plus
// the total number of matches.
func (r *EventRepo) List(ctx context.Context, f EventFilter) ([]model.Event, int, error) {
	where := []string{}
	args := []any{}
	if f.City != "" {
		where = append(where, "LOWER(city) = ?")
		args = append(args, strings.ToLower(f.City))
	}
	if f.Category != "" {
		where = append(where, "category = ?")
		args = append(args, strings.ToLower(f.Category))
	}
	if f.Query != "" {
		like := "%" + strings.ToLower(f.Query) + "%"
		where = append(where, "(LOWER(title) LIKE ? OR LOWER(description) LIKE ? OR LOWER(venue) LIKE ?)")
		args = append(args, like, like, like)
	}
	cond := "1=1"
	if len(where) > 0 {
		cond = strings.Join(where, " AND ")
	}
	return r.page(ctx, cond, args, f.Page)
}

// ListByCreator returns one page of the events owned by an agency.
func (r *EventRepo) ListByCreator(ctx context.Context, creatorID uint64, p model.Page) ([]model.Event, int, error) {
	return r.page(ctx, "creator_id = ?", []any{creatorID}, p)
}

func (r *EventRepo) page(ctx context.Context, cond string, args []any, p model.Page) ([]model.Event, int, error) {
	p = p.Normalize()
	q := conn(ctx, r.db)

	var total int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM events WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	dataArgs := append(append([]any{}, args...), p.Size, p.Offset())
	rows, err := q.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE `+cond+` ORDER BY starts_at ASC, id ASC LIMIT ? OFFSET ?`,
		dataArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.Event, 0, p.Size)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// GetMany loads the events with the given ids keyed by id.  Missing ids are
// absent from the map.
func (r *EventRepo) GetMany(ctx context.Context, ids []uint64) (map[uint64]model.Event, error) {
	out := make(map[uint64]model.Event, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := conn(ctx, r.db).QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id IN (`+placeholders(len(ids))+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out[e.ID] = e
	}
	return out, rows.Err()
}

// AverageRatings returns the mean review rating per event for the given
// ids.  Events without reviews are absent from the map.
func (r *EventRepo) AverageRatings(ctx context.Context, ids []uint64) (map[uint64]decimal.Decimal, error) {
	out := make(map[uint64]decimal.Decimal, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := conn(ctx, r.db).QueryContext(ctx,
		`SELECT event_id, AVG(rating) FROM reviews WHERE event_id IN (`+placeholders(len(ids))+`) GROUP BY event_id`,
		args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id uint64
		var avg decimal.Decimal
		if err := rows.Scan(&id, &avg); err != nil {
			return nil, err
		}
		out[id] = avg
	}
	return out, rows.Err()
}
