package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/reservita/internal/model"
	"github.com/iliyamo/reservita/internal/queue"
	"github.com/iliyamo/reservita/internal/repository"
	"github.com/iliyamo/reservita/internal/utils"
)

// In-memory stores sharing one memDB.  fakeTx records an undo journal in
// the context and replays it when the transaction function fails, which
// is enough to model rollback for the service tests.

type journalKey struct{}

type journal struct {
	undo []func()
}

func onRollback(ctx context.Context, f func()) {
	if j, ok := ctx.Value(journalKey{}).(*journal); ok {
		j.undo = append(j.undo, f)
	}
}

type fakeTx struct{}

func (fakeTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(journalKey{}).(*journal); ok {
		return fn(ctx)
	}
	j := &journal{}
	if err := fn(context.WithValue(ctx, journalKey{}, j)); err != nil {
		for i := len(j.undo) - 1; i >= 0; i-- {
			j.undo[i]()
		}
		return err
	}
	return nil
}

type refreshRow struct {
	userID  uint64
	exp     time.Time
	revoked bool
}

type memDB struct {
	mu      sync.Mutex
	seq     uint64
	events  map[uint64]model.Event
	seats   map[model.SeatKey]model.Seat
	tickets map[uint64]model.Ticket
	reviews map[uint64]model.Review
	favs    map[[2]uint64]uint64 // (user, event) -> insertion order
	users   map[uint64]model.User
	refresh map[string]refreshRow

	// failSetQR makes SetQRCode fail, to exercise rollback.
	failSetQR error
	// failRevokeAll makes RevokeAllForUser fail.
	failRevokeAll error
}

func newMemDB() *memDB {
	return &memDB{
		events:  map[uint64]model.Event{},
		seats:   map[model.SeatKey]model.Seat{},
		tickets: map[uint64]model.Ticket{},
		reviews: map[uint64]model.Review{},
		favs:    map[[2]uint64]uint64{},
		users:   map[uint64]model.User{},
		refresh: map[string]refreshRow{},
	}
}

func (db *memDB) nextID() uint64 {
	db.seq++
	return db.seq
}

// ----- events -----

type memEvents struct{ db *memDB }

func (s memEvents) Create(ctx context.Context, e *model.Event) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	e.ID = s.db.nextID()
	s.db.events[e.ID] = *e
	id := e.ID
	onRollback(ctx, func() {
		s.db.mu.Lock()
		delete(s.db.events, id)
		s.db.mu.Unlock()
	})
	return nil
}

func (s memEvents) GetByID(_ context.Context, id uint64) (model.Event, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	e, ok := s.db.events[id]
	if !ok {
		return model.Event{}, repository.ErrNotFound
	}
	return e, nil
}

func (s memEvents) Exists(ctx context.Context, id uint64) (bool, error) {
	_, err := s.GetByID(ctx, id)
	return err == nil, nil
}

func (s memEvents) Update(ctx context.Context, e *model.Event) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	prev, ok := s.db.events[e.ID]
	if !ok {
		return repository.ErrNotFound
	}
	s.db.events[e.ID] = *e
	onRollback(ctx, func() {
		s.db.mu.Lock()
		s.db.events[prev.ID] = prev
		s.db.mu.Unlock()
	})
	return nil
}

func (s memEvents) List(_ context.Context, f repository.EventFilter) ([]model.Event, int, error) {
	return s.page(f.Page, func(e model.Event) bool {
		if f.City != "" && !strings.EqualFold(e.City, f.City) {
			return false
		}
		if f.Category != "" && e.Category != strings.ToLower(f.Category) {
			return false
		}
		if f.Query != "" {
			q := strings.ToLower(f.Query)
			return strings.Contains(strings.ToLower(e.Title), q) ||
				strings.Contains(strings.ToLower(e.Description), q) ||
				strings.Contains(strings.ToLower(e.Venue), q)
		}
		return true
	})
}

func (s memEvents) ListByCreator(_ context.Context, creatorID uint64, p model.Page) ([]model.Event, int, error) {
	return s.page(p, func(e model.Event) bool { return e.CreatorID == creatorID })
}

func (s memEvents) page(p model.Page, keep func(model.Event) bool) ([]model.Event, int, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	p = p.Normalize()
	var all []model.Event
	for _, e := range s.db.events {
		if keep(e) {
			all = append(all, e)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].StartsAt.Equal(all[j].StartsAt) {
			return all[i].StartsAt.Before(all[j].StartsAt)
		}
		return all[i].ID < all[j].ID
	})
	total := len(all)
	lo := min(p.Offset(), total)
	hi := min(lo+p.Size, total)
	return all[lo:hi], total, nil
}

func (s memEvents) GetMany(_ context.Context, ids []uint64) (map[uint64]model.Event, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := map[uint64]model.Event{}
	for _, id := range ids {
		if e, ok := s.db.events[id]; ok {
			out[id] = e
		}
	}
	return out, nil
}

func (s memEvents) AverageRatings(_ context.Context, ids []uint64) (map[uint64]decimal.Decimal, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	want := map[uint64]bool{}
	for _, id := range ids {
		want[id] = true
	}
	sums := map[uint64]decimal.Decimal{}
	counts := map[uint64]int64{}
	for _, r := range s.db.reviews {
		if want[r.EventID] {
			sums[r.EventID] = sums[r.EventID].Add(r.Rating)
			counts[r.EventID]++
		}
	}
	out := map[uint64]decimal.Decimal{}
	for id, sum := range sums {
		out[id] = sum.Div(decimal.NewFromInt(counts[id]))
	}
	return out, nil
}

// ----- seats -----

type memSeats struct{ db *memDB }

func (s memSeats) CreateBulk(ctx context.Context, seats []model.Seat) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	keys := make([]model.SeatKey, 0, len(seats))
	for _, seat := range seats {
		k := model.SeatKey{EventID: seat.EventID, SeatNumber: seat.SeatNumber}
		if _, ok := s.db.seats[k]; ok {
			return repository.ErrDuplicate
		}
		s.db.seats[k] = seat
		keys = append(keys, k)
	}
	onRollback(ctx, func() {
		s.db.mu.Lock()
		for _, k := range keys {
			delete(s.db.seats, k)
		}
		s.db.mu.Unlock()
	})
	return nil
}

func (s memSeats) Get(_ context.Context, eventID uint64, seatNumber int) (model.Seat, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	seat, ok := s.db.seats[model.SeatKey{EventID: eventID, SeatNumber: seatNumber}]
	if !ok {
		return model.Seat{}, repository.ErrNotFound
	}
	return seat, nil
}

func (s memSeats) ListByEvent(_ context.Context, eventID uint64) ([]model.Seat, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []model.Seat
	for k, seat := range s.db.seats {
		if k.EventID == eventID {
			out = append(out, seat)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SeatNumber < out[j].SeatNumber })
	return out, nil
}

func (s memSeats) GetMany(_ context.Context, keys []model.SeatKey) (map[model.SeatKey]model.Seat, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := map[model.SeatKey]model.Seat{}
	for _, k := range keys {
		if seat, ok := s.db.seats[k]; ok {
			out[k] = seat
		}
	}
	return out, nil
}

// ----- tickets -----

type memTickets struct{ db *memDB }

// Create enforces the same uniqueness the schema does: one CONFIRMED
// ticket per (event, seat) and unique QR codes.
func (s memTickets) Create(ctx context.Context, t *model.Ticket) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, o := range s.db.tickets {
		if o.QRCode == t.QRCode {
			return repository.ErrDuplicate
		}
		if t.Status == model.TicketConfirmed && o.Status == model.TicketConfirmed &&
			o.EventID == t.EventID && o.SeatNumber == t.SeatNumber {
			return repository.ErrDuplicate
		}
	}
	t.ID = s.db.nextID()
	s.db.tickets[t.ID] = *t
	id := t.ID
	onRollback(ctx, func() {
		s.db.mu.Lock()
		delete(s.db.tickets, id)
		s.db.mu.Unlock()
	})
	return nil
}

func (s memTickets) SetQRCode(ctx context.Context, id uint64, qr string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.db.failSetQR != nil {
		return s.db.failSetQR
	}
	t, ok := s.db.tickets[id]
	if !ok {
		return repository.ErrNotFound
	}
	prev := t
	t.QRCode = qr
	s.db.tickets[id] = t
	onRollback(ctx, func() {
		s.db.mu.Lock()
		s.db.tickets[id] = prev
		s.db.mu.Unlock()
	})
	return nil
}

func (s memTickets) GetByID(_ context.Context, id uint64) (model.Ticket, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	t, ok := s.db.tickets[id]
	if !ok {
		return model.Ticket{}, repository.ErrNotFound
	}
	return t, nil
}

func (s memTickets) GetByIDForUpdate(ctx context.Context, id uint64) (model.Ticket, error) {
	return s.GetByID(ctx, id)
}

func (s memTickets) HasConfirmed(_ context.Context, eventID uint64, seatNumber int) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, t := range s.db.tickets {
		if t.EventID == eventID && t.SeatNumber == seatNumber && t.Active() {
			return true, nil
		}
	}
	return false, nil
}

func (s memTickets) ConfirmedSeats(_ context.Context, eventID uint64) (map[int]bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := map[int]bool{}
	for _, t := range s.db.tickets {
		if t.EventID == eventID && t.Active() {
			out[t.SeatNumber] = true
		}
	}
	return out, nil
}

func (s memTickets) ListByUser(_ context.Context, userID uint64) ([]model.Ticket, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []model.Ticket
	for _, t := range s.db.tickets {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].PurchasedAt.Equal(out[j].PurchasedAt) {
			return out[i].PurchasedAt.After(out[j].PurchasedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s memTickets) Cancel(ctx context.Context, id uint64, at time.Time) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	t, ok := s.db.tickets[id]
	if !ok || !t.Active() {
		return repository.ErrNotFound
	}
	prev := t
	t.Status = model.TicketCancelled
	t.CancelledAt = &at
	s.db.tickets[id] = t
	onRollback(ctx, func() {
		s.db.mu.Lock()
		s.db.tickets[id] = prev
		s.db.mu.Unlock()
	})
	return nil
}

// ----- reviews -----

type memReviews struct{ db *memDB }

func (s memReviews) Create(ctx context.Context, r *model.Review) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, o := range s.db.reviews {
		if o.TicketID == r.TicketID {
			return repository.ErrDuplicate
		}
	}
	r.ID = s.db.nextID()
	r.CreatedAt = time.Unix(int64(r.ID), 0).UTC()
	r.UpdatedAt = r.CreatedAt
	r.UserFullName = s.db.users[r.UserID].FullName
	s.db.reviews[r.ID] = *r
	id := r.ID
	onRollback(ctx, func() {
		s.db.mu.Lock()
		delete(s.db.reviews, id)
		s.db.mu.Unlock()
	})
	return nil
}

func (s memReviews) GetByID(_ context.Context, id uint64) (model.Review, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	r, ok := s.db.reviews[id]
	if !ok {
		return model.Review{}, repository.ErrNotFound
	}
	return r, nil
}

func (s memReviews) ExistsForTicket(_ context.Context, ticketID uint64) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, r := range s.db.reviews {
		if r.TicketID == ticketID {
			return true, nil
		}
	}
	return false, nil
}

func (s memReviews) Update(_ context.Context, r *model.Review) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.reviews[r.ID]; !ok {
		return repository.ErrNotFound
	}
	s.db.reviews[r.ID] = *r
	return nil
}

func (s memReviews) Delete(_ context.Context, id uint64) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.reviews[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.db.reviews, id)
	return nil
}

func (s memReviews) ListByEvent(_ context.Context, eventID uint64, p model.Page) ([]model.Review, int, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	p = p.Normalize()
	var all []model.Review
	for _, r := range s.db.reviews {
		if r.EventID == eventID {
			all = append(all, r)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	total := len(all)
	lo := min(p.Offset(), total)
	hi := min(lo+p.Size, total)
	return all[lo:hi], total, nil
}

// ----- favorites -----

type memFavorites struct{ db *memDB }

func (s memFavorites) Add(_ context.Context, userID, eventID uint64) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	k := [2]uint64{userID, eventID}
	if _, ok := s.db.favs[k]; !ok {
		s.db.favs[k] = s.db.nextID()
	}
	return nil
}

func (s memFavorites) Remove(_ context.Context, userID, eventID uint64) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	delete(s.db.favs, [2]uint64{userID, eventID})
	return nil
}

func (s memFavorites) ListEvents(_ context.Context, userID uint64) ([]model.Event, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	type row struct {
		order uint64
		ev    model.Event
	}
	var rows []row
	for k, order := range s.db.favs {
		if k[0] == userID {
			rows = append(rows, row{order, s.db.events[k[1]]})
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].order > rows[j].order })
	out := make([]model.Event, len(rows))
	for i, r := range rows {
		out[i] = r.ev
	}
	return out, nil
}

func (s memFavorites) FavoritedAmong(_ context.Context, userID uint64, eventIDs []uint64) (map[uint64]bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := map[uint64]bool{}
	for _, id := range eventIDs {
		if _, ok := s.db.favs[[2]uint64{userID, id}]; ok {
			out[id] = true
		}
	}
	return out, nil
}

// ----- users and sessions -----

type memUsers struct{ db *memDB }

func (s memUsers) Create(_ context.Context, u *model.User) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	u.Email = repository.NormalizeEmail(u.Email)
	for _, o := range s.db.users {
		if o.Email == u.Email {
			return repository.ErrDuplicate
		}
	}
	u.ID = s.db.nextID()
	u.IsActive = true
	s.db.users[u.ID] = *u
	return nil
}

func (s memUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	email = repository.NormalizeEmail(email)
	for _, u := range s.db.users {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (s memUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	u, ok := s.db.users[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (s memUsers) UpdateProfile(ctx context.Context, id uint64, fullName, phone string) (model.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	u, ok := s.db.users[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	prev := u
	onRollback(ctx, func() {
		s.db.mu.Lock()
		s.db.users[id] = prev
		s.db.mu.Unlock()
	})
	u.FullName, u.PhoneNumber = fullName, phone
	s.db.users[id] = u
	return u, nil
}

func (s memUsers) UpdatePassword(ctx context.Context, id uint64, hash string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	u, ok := s.db.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	prev := u
	onRollback(ctx, func() {
		s.db.mu.Lock()
		s.db.users[id] = prev
		s.db.mu.Unlock()
	})
	u.PasswordHash = hash
	s.db.users[id] = u
	return nil
}

type memRefresh struct{ db *memDB }

func (s memRefresh) StoreRefresh(_ context.Context, userID uint64, hash string, exp time.Time) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.db.refresh[hash] = refreshRow{userID: userID, exp: exp}
	return nil
}

func (s memRefresh) ValidateRefresh(_ context.Context, hash string, now time.Time) (uint64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	r, ok := s.db.refresh[hash]
	if !ok || r.revoked || !now.Before(r.exp) {
		return 0, repository.ErrNotFound
	}
	return r.userID, nil
}

func (s memRefresh) RevokeByHash(_ context.Context, hash string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if r, ok := s.db.refresh[hash]; ok {
		r.revoked = true
		s.db.refresh[hash] = r
	}
	return nil
}

func (s memRefresh) RevokeAllForUser(ctx context.Context, userID uint64) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.db.failRevokeAll != nil {
		return s.db.failRevokeAll
	}
	for h, r := range s.db.refresh {
		if r.userID == userID && !r.revoked {
			onRollback(ctx, func() {
				s.db.mu.Lock()
				r := s.db.refresh[h]
				r.revoked = false
				s.db.refresh[h] = r
				s.db.mu.Unlock()
			})
		}
	}
	for h, r := range s.db.refresh {
		if r.userID == userID {
			r.revoked = true
			s.db.refresh[h] = r
		}
	}
	return nil
}

// ----- collaborators -----

type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stepClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t.UTC()
	c.mu.Unlock()
}

func (c *stepClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.TicketEvent
	err    error
}

func (p *recordingPublisher) PublishTicketEvent(_ context.Context, ev queue.TicketEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) Events() []queue.TicketEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]queue.TicketEvent(nil), p.events...)
}

// plainHasher keeps auth tests fast; bcrypt is covered in utils.
type plainHasher struct{}

func (plainHasher) Hash(plain string) (string, error) { return "h:" + plain, nil }
func (plainHasher) Verify(hash, plain string) bool    { return hash == "h:"+plain }

var errBoom = errors.New("boom")

var _ SessionIssuer = (*utils.TokenIssuer)(nil)
