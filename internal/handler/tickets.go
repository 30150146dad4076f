package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/reservita/internal/service"
)

// TicketService is the part of service.BookingService the ticket
// endpoints need.
type TicketService interface {
	BookSeat(ctx context.Context, userID, eventID uint64, seatNumber int) (service.TicketView, error)
	CancelTicket(ctx context.Context, userID, ticketID uint64) (service.TicketView, error)
	VerifyTicketQR(ctx context.Context, token string) (service.VerifyResult, error)
	GetTicket(ctx context.Context, userID, ticketID uint64) (service.TicketView, error)
	ListMyTickets(ctx context.Context, userID uint64) ([]service.TicketView, error)
	TicketQR(ctx context.Context, userID, ticketID uint64) ([]byte, error)
}

type TicketHandler struct {
	svc TicketService
	log logrus.FieldLogger
}

func NewTicketHandler(svc TicketService, log logrus.FieldLogger) *TicketHandler {
	return &TicketHandler{svc: svc, log: log}
}

type bookReq struct {
	EventID    uint64 `json:"event_id" validate:"required"`
	SeatNumber int    `json:"seat_number" validate:"required,min=1"`
}

type verifyReq struct {
	QRToken string `json:"qr_token" validate:"required"`
}

// Book handles POST /v1/tickets.
func (h *TicketHandler) Book(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var req bookReq
	if err := bind(c, &req); err != nil {
		return respondError(c, h.log, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	t, err := h.svc.BookSeat(ctx, uid, req.EventID, req.SeatNumber)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, t)
}

// List handles GET /v1/tickets.
func (h *TicketHandler) List(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	items, err := h.svc.ListMyTickets(ctx, uid)
	if err != nil {
		return respondError(c, h.log, err)
	}
	if items == nil {
		items = []service.TicketView{}
	}
	return c.JSON(http.StatusOK, items)
}

// Get handles GET /v1/tickets/:id.
func (h *TicketHandler) Get(c echo.Context) error {
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

	t, err := h.svc.GetTicket(ctx, uid, id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, t)
}

// Cancel handles DELETE /v1/tickets/:id and returns the cancelled ticket.
func (h *TicketHandler) Cancel(c echo.Context) error {
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

	t, err := h.svc.CancelTicket(ctx, uid, id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, t)
}

// QR handles GET /v1/tickets/:id/qr.
func (h *TicketHandler) QR(c echo.Context) error {
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

	png, err := h.svc.TicketQR(ctx, uid, id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return c.Blob(http.StatusOK, "image/png", png)
}

// Verify handles POST /v1/tickets/qr/verify.  A token that does not check
// out is still a 200 with valid=false.
func (h *TicketHandler) Verify(c echo.Context) error {
	var req verifyReq
	if err := bind(c, &req); err != nil {
		return respondError(c, h.log, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := h.svc.VerifyTicketQR(ctx, req.QRToken)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, res)
}
