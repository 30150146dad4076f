package service

import (
	"errors"
	"fmt"
)

// Kind classifies a service failure.  Handlers translate kinds into HTTP
// statuses; services never deal with status codes.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindConflict
	KindInvalidState
	KindForbidden
	KindInvalidInput
	KindUnauthenticated
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindInvalidState:
		return "invalid_state"
	case KindForbidden:
		return "forbidden"
	case KindInvalidInput:
		return "invalid_input"
	case KindUnauthenticated:
		return "unauthenticated"
	default:
		return "internal"
	}
}

// Error is a domain failure with a stable machine-readable code and a
// message safe to show to clients.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return e.Code + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of err, or KindInternal for errors that did not
// come from a service.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

func newErr(k Kind, code, msg string) *Error { return &Error{Kind: k, Code: code, Message: msg} }

func notFound(code, msg string) *Error     { return newErr(KindNotFound, code, msg) }
func conflict(code, msg string) *Error     { return newErr(KindConflict, code, msg) }
func invalidState(code, msg string) *Error { return newErr(KindInvalidState, code, msg) }
func forbidden(code, msg string) *Error    { return newErr(KindForbidden, code, msg) }
func invalidInput(code, msg string) *Error { return newErr(KindInvalidInput, code, msg) }
func unauthenticated(msg string) *Error    { return newErr(KindUnauthenticated, "unauthenticated", msg) }

// internal wraps an unexpected storage or dependency failure.
func internal(op string, err error) *Error {
	return &Error{Kind: KindInternal, Code: "internal_error", Message: "internal server error", Err: fmt.Errorf("%s: %w", op, err)}
}

var (
	errEventNotFound  = notFound("event_not_found", "Event not found")
	errTicketNotFound = notFound("ticket_not_found", "Ticket not found")
	errSeatNotFound   = notFound("seat_not_found", "Seat number does not exist")
	errReviewNotFound = notFound("review_not_found", "Review not found")
	errSeatTaken      = conflict("seat_taken", "This seat is already booked")
)
