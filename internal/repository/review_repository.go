package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/reservita/internal/model"
)

// ReviewRepo persists reviews.  UNIQUE(ticket_id) enforces one review per
// ticket; violating it yields ErrDuplicate.
type ReviewRepo struct {
	db *sql.DB
}

func NewReviewRepo(db *sql.DB) *ReviewRepo { return &ReviewRepo{db: db} }

const reviewSelect = `SELECT r.id, r.ticket_id, r.user_id, r.event_id, r.rating, r.comment,
	r.created_at, r.updated_at, u.full_name
	FROM reviews r JOIN users u ON u.id = r.user_id`

func scanReview(s rowScanner) (model.Review, error) {
	var rv model.Review
	var comment sql.NullString
	if err := s.Scan(&rv.ID, &rv.TicketID, &rv.UserID, &rv.EventID, &rv.Rating, &comment,
		&rv.CreatedAt, &rv.UpdatedAt, &rv.UserFullName); err != nil {
		return model.Review{}, err
	}
	if comment.Valid {
		c := comment.String
		rv.Comment = &c
	}
	return rv, nil
}

// Create inserts rv and reloads it with DB defaults and the author name.
func (r *ReviewRepo) Create(ctx context.Context, rv *model.Review) error {
	q := conn(ctx, r.db)
	res, err := q.ExecContext(ctx,
		`INSERT INTO reviews (ticket_id, user_id, event_id, rating, comment) VALUES (?, ?, ?, ?, ?)`,
		rv.TicketID, rv.UserID, rv.EventID, rv.Rating, rv.Comment)
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
	created, err := scanReview(q.QueryRowContext(ctx, reviewSelect+` WHERE r.id = ?`, id))
	if err != nil {
		return err
	}
	*rv = created
	return nil
}

// GetByID returns a review or ErrNotFound.
func (r *ReviewRepo) GetByID(ctx context.Context, id uint64) (model.Review, error) {
	rv, err := scanReview(conn(ctx, r.db).QueryRowContext(ctx, reviewSelect+` WHERE r.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Review{}, ErrNotFound
	}
	return rv, err
}

// ExistsForTicket reports whether the ticket already has a review.
func (r *ReviewRepo) ExistsForTicket(ctx context.Context, ticketID uint64) (bool, error) {
	var n int
	err := conn(ctx, r.db).QueryRowContext(ctx, `SELECT COUNT(*) FROM reviews WHERE ticket_id = ?`, ticketID).Scan(&n)
	return n > 0, err
}

// Update writes rating and comment and reloads the row.
func (r *ReviewRepo) Update(ctx context.Context, rv *model.Review) error {
	q := conn(ctx, r.db)
	if _, err := q.ExecContext(ctx, `UPDATE reviews SET rating = ?, comment = ? WHERE id = ?`,
		rv.Rating, rv.Comment, rv.ID); err != nil {
		return err
	}
	updated, err := scanReview(q.QueryRowContext(ctx, reviewSelect+` WHERE r.id = ?`, rv.ID))
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	*rv = updated
	return nil
}

// Delete removes a review.
func (r *ReviewRepo) Delete(ctx context.Context, id uint64) error {
	res, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM reviews WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByEvent returns one page of an event's reviews, newest first, and
// the total count.
func (r *ReviewRepo) ListByEvent(ctx context.Context, eventID uint64, p model.Page) ([]model.Review, int, error) {
	p = p.Normalize()
	q := conn(ctx, r.db)
	var total int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM reviews WHERE event_id = ?`, eventID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := q.QueryContext(ctx,
		reviewSelect+` WHERE r.event_id = ? ORDER BY r.created_at DESC, r.id DESC LIMIT ? OFFSET ?`,
		eventID, p.Size, p.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := make([]model.Review, 0, p.Size)
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
