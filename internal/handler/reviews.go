package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/reservita/internal/model"
	"github.com/iliyamo/reservita/internal/service"
)

type ReviewService interface {
	Create(ctx context.Context, userID, ticketID uint64, in service.ReviewInput) (service.ReviewView, error)
	Get(ctx context.Context, reviewID uint64) (service.ReviewView, error)
	Update(ctx context.Context, userID, reviewID uint64, in service.ReviewInput) (service.ReviewView, error)
	Delete(ctx context.Context, userID, reviewID uint64) error
	ListByEvent(ctx context.Context, eventID uint64, p model.Page) (service.PageResult[service.ReviewView], error)
}

type ReviewHandler struct {
	svc   ReviewService
	cache CachePurger
	log   logrus.FieldLogger
}

func NewReviewHandler(svc ReviewService, cache CachePurger, log logrus.FieldLogger) *ReviewHandler {
	return &ReviewHandler{svc: svc, cache: cache, log: log}
}

type reviewReq struct {
	Rating  *decimal.Decimal `json:"rating" validate:"required"`
	Comment *string          `json:"comment"`
}

func (r reviewReq) input() service.ReviewInput {
	return service.ReviewInput{Rating: *r.Rating, Comment: r.Comment}
}

// Create handles POST /v1/tickets/:id/review.
func (h *ReviewHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	ticketID, err := pathID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	var req reviewReq
	if err := bind(c, &req); err != nil {
		return respondError(c, h.log, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	rv, err := h.svc.Create(ctx, uid, ticketID, req.input())
	if err != nil {
		return respondError(c, h.log, err)
	}
	purgeListings(ctx, h.cache, h.log)
	return c.JSON(http.StatusCreated, rv)
}

// Get handles GET /v1/reviews/:id.
func (h *ReviewHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	rv, err := h.svc.Get(ctx, id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, rv)
}

// Update handles PUT /v1/reviews/:id.
func (h *ReviewHandler) Update(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	var req reviewReq
	if err := bind(c, &req); err != nil {
		return respondError(c, h.log, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	rv, err := h.svc.Update(ctx, uid, id, req.input())
	if err != nil {
		return respondError(c, h.log, err)
	}
	purgeListings(ctx, h.cache, h.log)
	return c.JSON(http.StatusOK, rv)
}

// Delete handles DELETE /v1/reviews/:id.
func (h *ReviewHandler) Delete(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.svc.Delete(ctx, uid, id); err != nil {
		return respondError(c, h.log, err)
	}
	purgeListings(ctx, h.cache, h.log)
	return c.NoContent(http.StatusNoContent)
}

// ListByEvent handles GET /v1/events/:id/reviews, newest first.
func (h *ReviewHandler) ListByEvent(c echo.Context) error {
	eventID, err := pathID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	page, err := pageParams(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := h.svc.ListByEvent(ctx, eventID, page)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, res)
}
