package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/reservita/internal/service"
)

type FavoriteService interface {
	Add(ctx context.Context, userID, eventID uint64) error
	Remove(ctx context.Context, userID, eventID uint64) error
	List(ctx context.Context, userID uint64) ([]service.EventView, error)
}

type FavoriteHandler struct {
	svc   FavoriteService
	cache CachePurger
	log   logrus.FieldLogger
}

func NewFavoriteHandler(svc FavoriteService, cache CachePurger, log logrus.FieldLogger) *FavoriteHandler {
	return &FavoriteHandler{svc: svc, cache: cache, log: log}
}

type favoriteReq struct {
	EventID uint64 `json:"event_id" validate:"required"`
}

// List handles GET /v1/favorites.
func (h *FavoriteHandler) List(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	items, err := h.svc.List(ctx, uid)
	if err != nil {
		return respondError(c, h.log, err)
	}
	if items == nil {
		items = []service.EventView{}
	}
	return c.JSON(http.StatusOK, items)
}

// Add handles POST /v1/favorites.  Adding twice is not an error.
func (h *FavoriteHandler) Add(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var req favoriteReq
	if err := bind(c, &req); err != nil {
		return respondError(c, h.log, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.svc.Add(ctx, uid, req.EventID); err != nil {
		return respondError(c, h.log, err)
	}
	purgeListings(ctx, h.cache, h.log)
	return c.NoContent(http.StatusNoContent)
}

// Remove handles DELETE /v1/favorites/:event_id.
func (h *FavoriteHandler) Remove(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	eventID, err := pathID(c, "event_id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.svc.Remove(ctx, uid, eventID); err != nil {
		return respondError(c, h.log, err)
	}
	purgeListings(ctx, h.cache, h.log)
	return c.NoContent(http.StatusNoContent)
}
