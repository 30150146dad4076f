package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Review is a post-event rating left by a ticket holder.  There is at
// most one review per ticket.
type Review struct {
	ID           uint64          // reviews.id
	TicketID     uint64          // reviews.ticket_id (unique)
	UserID       uint64          // reviews.user_id
	EventID      uint64          // reviews.event_id
	Rating       decimal.Decimal // reviews.rating, 1.0 to 5.0
	Comment      *string         // reviews.comment (nullable)
	CreatedAt    time.Time       // reviews.created_at
	UpdatedAt    time.Time       // reviews.updated_at
	UserFullName string          // users.full_name, filled by joined reads
}
