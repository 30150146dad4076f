package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/reservita/internal/model"
	"github.com/iliyamo/reservita/internal/repository"
	"github.com/iliyamo/reservita/internal/service"
)

// EventService is the part of service.EventService the event endpoints
// need.
type EventService interface {
	Create(ctx context.Context, creatorID uint64, in service.CreateEventInput) (service.EventView, error)
	Update(ctx context.Context, userID, eventID uint64, in service.UpdateEventInput) (service.EventView, error)
	Get(ctx context.Context, viewerID, eventID uint64) (service.EventView, error)
	List(ctx context.Context, viewerID uint64, f repository.EventFilter) (service.PageResult[service.EventView], error)
	ListMine(ctx context.Context, creatorID uint64, p model.Page) (service.PageResult[service.EventView], error)
	GetEventSeats(ctx context.Context, eventID uint64) (service.SeatAvailability, error)
}

// CachePurger drops cached listings after an event, its favorites or its
// reviews change.
type CachePurger interface {
	Purge(ctx context.Context) error
}

type EventHandler struct {
	svc   EventService
	cache CachePurger
	log   logrus.FieldLogger
}

func NewEventHandler(svc EventService, cache CachePurger, log logrus.FieldLogger) *EventHandler {
	return &EventHandler{svc: svc, cache: cache, log: log}
}

type createEventReq struct {
	Title          string           `json:"title" validate:"required,max=200"`
	Description    string           `json:"description" validate:"max=5000"`
	Category       string           `json:"category" validate:"required,max=50"`
	City           string           `json:"city" validate:"required,max=100"`
	Venue          string           `json:"venue" validate:"required,max=200"`
	Address        string           `json:"address" validate:"max=300"`
	StartsAt       time.Time        `json:"starts_at" validate:"required"`
	EndsAt         time.Time        `json:"ends_at" validate:"required"`
	TicketPrice    *decimal.Decimal `json:"ticket_price" validate:"required"`
	VIPTicketPrice *decimal.Decimal `json:"vip_ticket_price" validate:"required"`
	VIPSeats       *int             `json:"vip_seats"`
	RegularSeats   *int             `json:"regular_seats"`
}

type updateEventReq struct {
	Title          *string          `json:"title" validate:"omitempty,min=1,max=200"`
	Description    *string          `json:"description" validate:"omitempty,max=5000"`
	Category       *string          `json:"category" validate:"omitempty,min=1,max=50"`
	City           *string          `json:"city" validate:"omitempty,min=1,max=100"`
	Venue          *string          `json:"venue" validate:"omitempty,min=1,max=200"`
	Address        *string          `json:"address" validate:"omitempty,max=300"`
	StartsAt       *time.Time       `json:"starts_at"`
	EndsAt         *time.Time       `json:"ends_at"`
	TicketPrice    *decimal.Decimal `json:"ticket_price"`
	VIPTicketPrice *decimal.Decimal `json:"vip_ticket_price"`
}

// List handles GET /v1/events.
func (h *EventHandler) List(c echo.Context) error {
	page, err := pageParams(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	f := repository.EventFilter{
		City:     strings.TrimSpace(c.QueryParam("city")),
		Category: strings.ToLower(strings.TrimSpace(c.QueryParam("category"))),
		Query:    strings.TrimSpace(c.QueryParam("q")),
		Page:     page,
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := h.svc.List(ctx, optionalUserID(c), f)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Get handles GET /v1/events/:id.
func (h *EventHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	ev, err := h.svc.Get(ctx, optionalUserID(c), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, ev)
}

// Seats handles GET /v1/events/:id/seats.
func (h *EventHandler) Seats(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	av, err := h.svc.GetEventSeats(ctx, id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, av)
}

// Create handles POST /v1/my-events.
func (h *EventHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var req createEventReq
	if err := bind(c, &req); err != nil {
		return respondError(c, h.log, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	ev, err := h.svc.Create(ctx, uid, service.CreateEventInput{
		Title:          req.Title,
		Description:    req.Description,
		Category:       req.Category,
		City:           req.City,
		Venue:          req.Venue,
		Address:        req.Address,
		StartsAt:       req.StartsAt,
		EndsAt:         req.EndsAt,
		TicketPrice:    *req.TicketPrice,
		VIPTicketPrice: *req.VIPTicketPrice,
		VIPSeats:       req.VIPSeats,
		RegularSeats:   req.RegularSeats,
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	h.purge(ctx)
	return c.JSON(http.StatusCreated, ev)
}

// Update handles PUT /v1/my-events/:id.
func (h *EventHandler) Update(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	var req updateEventReq
	if err := bind(c, &req); err != nil {
		return respondError(c, h.log, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	ev, err := h.svc.Update(ctx, uid, id, service.UpdateEventInput{
		Title:          req.Title,
		Description:    req.Description,
		Category:       req.Category,
		City:           req.City,
		Venue:          req.Venue,
		Address:        req.Address,
		StartsAt:       req.StartsAt,
		EndsAt:         req.EndsAt,
		TicketPrice:    req.TicketPrice,
		VIPTicketPrice: req.VIPTicketPrice,
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	h.purge(ctx)
	return c.JSON(http.StatusOK, ev)
}

// ListMine handles GET /v1/my-events.
func (h *EventHandler) ListMine(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	page, err := pageParams(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := h.svc.ListMine(ctx, uid, page)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *EventHandler) purge(ctx context.Context) { purgeListings(ctx, h.cache, h.log) }

// purgeListings is best effort; a stale listing expires with its TTL anyway.
func purgeListings(ctx context.Context, cache CachePurger, log logrus.FieldLogger) {
	if cache == nil {
		return
	}
	if err := cache.Purge(ctx); err != nil {
		log.WithError(err).Warn("event cache purge failed")
	}
}
