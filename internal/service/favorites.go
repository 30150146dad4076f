package service

import "context"

// FavoriteService keeps the per-user bookmark list of events.
type FavoriteService struct {
	events    EventStore
	favorites FavoriteStore
}

func NewFavoriteService(events EventStore, favorites FavoriteStore) *FavoriteService {
	return &FavoriteService{events: events, favorites: favorites}
}

// Add bookmarks an event.  Adding an existing favourite is a no-op.
func (s *FavoriteService) Add(ctx context.Context, userID, eventID uint64) error {
	ok, err := s.events.Exists(ctx, eventID)
	if err != nil {
		return internal("check event", err)
	}
	if !ok {
		return errEventNotFound
	}
	if err := s.favorites.Add(ctx, userID, eventID); err != nil {
		return internal("add favorite", err)
	}
	return nil
}

// Remove drops a bookmark.  Removing an absent favourite is a no-op.
func (s *FavoriteService) Remove(ctx context.Context, userID, eventID uint64) error {
	if err := s.favorites.Remove(ctx, userID, eventID); err != nil {
		return internal("remove favorite", err)
	}
	return nil
}

// List returns the caller's favourite events, all flagged as favourited.
func (s *FavoriteService) List(ctx context.Context, userID uint64) ([]EventView, error) {
	events, err := s.favorites.ListEvents(ctx, userID)
	if err != nil {
		return nil, internal("list favorites", err)
	}
	out := make([]EventView, len(events))
	for i, e := range events {
		v := newEventView(e)
		v.IsFavorited = true
		out[i] = v
	}
	return out, nil
}
