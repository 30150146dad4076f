package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/reservita/internal/service"
)

// requestError is a failure detected by the handler itself, before any
// service is called.
type requestError struct {
	status  int
	code    string
	message string
}

func (e *requestError) Error() string { return e.code + ": " + e.message }

func badRequest(code, msg string) error {
	return &requestError{status: http.StatusBadRequest, code: code, message: msg}
}

var kindStatus = map[service.Kind]int{
	service.KindNotFound:        http.StatusNotFound,
	service.KindConflict:        http.StatusConflict,
	service.KindInvalidState:    http.StatusBadRequest,
	service.KindForbidden:       http.StatusForbidden,
	service.KindInvalidInput:    http.StatusBadRequest,
	service.KindUnauthenticated: http.StatusUnauthorized,
}

// respondError writes err as {"error": message, "code": code}.  Internal
// failures are logged and reported without detail.
func respondError(c echo.Context, log logrus.FieldLogger, err error) error {
	var re *requestError
	if errors.As(err, &re) {
		return c.JSON(re.status, echo.Map{"error": re.message, "code": re.code})
	}
	var se *service.Error
	if errors.As(err, &se) {
		if status, ok := kindStatus[se.Kind]; ok {
			return c.JSON(status, echo.Map{"error": se.Message, "code": se.Code})
		}
	}
	log.WithFields(logrus.Fields{
		"method": c.Request().Method,
		"path":   c.Path(),
	}).WithError(err).Error("request failed")
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error", "code": "internal_error"})
}
