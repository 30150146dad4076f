package middleware // middleware provides shared request processing for handlers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/reservita/internal/utils"
)

// Context keys set by the auth middlewares.
const (
	ctxUserID = "user_id"
	ctxRole   = "role"
)

// AccessParser validates access tokens.
type AccessParser interface {
	ParseAccess(raw string) (utils.Identity, error)
}

// JWTAuth rejects requests without a valid Bearer access token and stores
// the caller's id and role in the context.
func JWTAuth(p AccessParser) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearer(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token", "code": "unauthenticated"})
			}
			id, err := p.ParseAccess(raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token", "code": "unauthenticated"})
			}
			setIdentity(c, id)
			return next(c)
		}
	}
}

// OptionalJWTAuth is JWTAuth for public routes that personalise their
// response: a missing or bad token leaves the request anonymous.
func OptionalJWTAuth(p AccessParser) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if raw, ok := bearer(c); ok {
				if id, err := p.ParseAccess(raw); err == nil {
					setIdentity(c, id)
				}
			}
			return next(c)
		}
	}
}

func bearer(c echo.Context) (string, bool) {
	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	if len(auth) < 7 || !strings.EqualFold(auth[:7], "Bearer ") {
		return "", false
	}
	raw := strings.TrimSpace(auth[7:])
	return raw, raw != ""
}

func setIdentity(c echo.Context, id utils.Identity) {
	c.Set(ctxUserID, id.UserID)
	c.Set(ctxRole, id.Role)
}
