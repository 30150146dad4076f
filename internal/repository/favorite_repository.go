package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/reservita/internal/model"
)

// FavoriteRepo stores which events a user has bookmarked.
type FavoriteRepo struct {
	db *sql.DB
}

func NewFavoriteRepo(db *sql.DB) *FavoriteRepo { return &FavoriteRepo{db: db} }

// Add bookmarks an event.  Adding an existing favourite is a no-op.
func (r *FavoriteRepo) Add(ctx context.Context, userID, eventID uint64) error {
	_, err := conn(ctx, r.db).ExecContext(ctx,
		`INSERT IGNORE INTO favorite_events (user_id, event_id) VALUES (?, ?)`, userID, eventID)
	return err
}

// Remove deletes a bookmark; removing a missing one is a no-op.
func (r *FavoriteRepo) Remove(ctx context.Context, userID, eventID uint64) error {
	_, err := conn(ctx, r.db).ExecContext(ctx,
		`DELETE FROM favorite_events WHERE user_id = ? AND event_id = ?`, userID, eventID)
	return err
}

// ListEvents returns the user's favourite events, most recently added first.
func (r *FavoriteRepo) ListEvents(ctx context.Context, userID uint64) ([]model.Event, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx,
		`SELECT e.id, e.creator_id, e.title, e.description, e.category, e.city, e.venue, e.address,
			e.starts_at, e.ends_at, e.ticket_price, e.vip_ticket_price, e.created_at, e.updated_at
		 FROM favorite_events f JOIN events e ON e.id = f.event_id
		 WHERE f.user_id = ?
		 ORDER BY f.created_at DESC, e.id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// FavoritedAmong returns which of eventIDs the user has favourited.
func (r *FavoriteRepo) FavoritedAmong(ctx context.Context, userID uint64, eventIDs []uint64) (map[uint64]bool, error) {
	out := make(map[uint64]bool, len(eventIDs))
	if userID == 0 || len(eventIDs) == 0 {
		return out, nil
	}
	args := make([]any, 0, len(eventIDs)+1)
	args = append(args, userID)
	for _, id := range eventIDs {
		args = append(args, id)
	}
	rows, err := conn(ctx, r.db).QueryContext(ctx,
		`SELECT event_id FROM favorite_events WHERE user_id = ? AND event_id IN (`+placeholders(len(eventIDs))+`)`,
		args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = true
	}
	return out, rows.Err()
}
