package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/reservita/internal/service"
)

type AuthService interface {
	Register(ctx context.Context, in service.RegisterInput) (service.AuthResult, error)
	Login(ctx context.Context, email, password string) (service.AuthResult, error)
	Refresh(ctx context.Context, rawRefresh string) (service.AuthResult, error)
	Logout(ctx context.Context, userID uint64, rawRefresh string) error
	Me(ctx context.Context, userID uint64) (service.UserView, error)
	UpdateProfile(ctx context.Context, userID uint64, in service.ProfileInput) (service.UserView, error)
	ChangePassword(ctx context.Context, userID uint64, oldPassword, newPassword string) error
}

// AuthHandler serves registration, sessions and the caller's profile.
type AuthHandler struct {
	svc AuthService
	log logrus.FieldLogger
}

func NewAuthHandler(svc AuthService, log logrus.FieldLogger) *AuthHandler {
	return &AuthHandler{svc: svc, log: log}
}

// ----- DTOs -----

type registerReq struct {
	FullName    string `json:"full_name" validate:"required,max=100"`
	Email       string `json:"email" validate:"required,email,max=255"`
	Password    string `json:"password" validate:"required,min=8,max=128"`
	PhoneNumber string `json:"phone_number" validate:"omitempty,max=20"`
	IsAgency    bool   `json:"is_agency"`
}
type loginReq struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}
type profileReq struct {
	FullName    *string `json:"full_name" validate:"omitempty,max=100"`
	PhoneNumber *string `json:"phone_number" validate:"omitempty,max=20"`
}
type passwordReq struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=128"`
}

// Register: create user and return tokens immediately.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := bind(c, &req); err != nil {
		return respondError(c, h.log, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := h.svc.Register(ctx, service.RegisterInput{
		FullName:    strings.TrimSpace(req.FullName),
		Email:       req.Email,
		Password:    req.Password,
		PhoneNumber: strings.TrimSpace(req.PhoneNumber),
		IsAgency:    req.IsAgency,
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, res)
}

// Login: verify and return a new pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bind(c, &req); err != nil {
		return respondError(c, h.log, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := h.svc.Login(ctx, req.Email, req.Password)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Refresh: rotate the refresh token.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required", "code": "missing_refresh_token"})
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := h.svc.Refresh(ctx, strings.TrimSpace(req.RefreshToken))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Logout revokes the refresh token in the body.  Without one, a caller
// holding a valid access token is logged out of every session.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	_ = c.Bind(&req) // an empty body is allowed
	uid := optionalUserID(c)

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.svc.Logout(ctx, uid, strings.TrimSpace(req.RefreshToken)); err != nil {
		return respondError(c, h.log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Me returns the authenticated user's profile.
func (h *AuthHandler) Me(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	u, err := h.svc.Me(ctx, uid)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, u)
}

// UpdateProfile changes the caller's full name and phone number.
func (h *AuthHandler) UpdateProfile(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var req profileReq
	if err := bind(c, &req); err != nil {
		return respondError(c, h.log, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	u, err := h.svc.UpdateProfile(ctx, uid, service.ProfileInput{FullName: req.FullName, PhoneNumber: req.PhoneNumber})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, u)
}

// ChangePassword checks the current password and sets a new one.
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var req passwordReq
	if err := bind(c, &req); err != nil {
		return respondError(c, h.log, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.svc.ChangePassword(ctx, uid, req.OldPassword, req.NewPassword); err != nil {
		return respondError(c, h.log, err)
	}
	return c.NoContent(http.StatusNoContent)
}
