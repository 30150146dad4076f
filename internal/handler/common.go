package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/reservita/internal/middleware"
	"github.com/iliyamo/reservita/internal/model"
)

// requestTimeout bounds the storage work done for a single request.
const requestTimeout = 5 * time.Second

var errNoUser = errors.New("missing user_id in context")

func requestContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// getUserID returns the id the auth middleware stored for the caller.
func getUserID(c echo.Context) (uint64, error) {
	id, ok := middleware.UserID(c)
	if !ok {
		return 0, errNoUser
	}
	return id, nil
}

// optionalUserID is 0 for anonymous callers.
func optionalUserID(c echo.Context) uint64 {
	id, _ := middleware.UserID(c)
	return id
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, badRequest("invalid_id", "invalid "+name)
	}
	return id, nil
}

// pageParams reads ?page= and ?size=.  Absent values take the defaults;
// present values outside the accepted range are rejected.
func pageParams(c echo.Context) (model.Page, error) {
	p := model.Page{Number: 1, Size: model.DefaultPageSize}
	if v := c.QueryParam("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return p, badRequest("invalid_page", "page must be a positive integer")
		}
		p.Number = n
	}
	if v := c.QueryParam("size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > model.MaxPageSize {
			return p, badRequest("invalid_size", "size must be between 1 and "+strconv.Itoa(model.MaxPageSize))
		}
		p.Size = n
	}
	return p, nil
}

// bind decodes the body into req and runs the registered validator.
func bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return badRequest("invalid_body", "invalid body")
	}
	if err := c.Validate(req); err != nil {
		return err
	}
	return nil
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "code": "unauthenticated"})
}
