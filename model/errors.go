package model

import (
	"errors"
	"net/http"
)

// Domain errors. Callers classify with errors.Is.
var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrUnauthenticated   = errors.New("authentication required")
	ErrForbidden         = errors.New("not allowed to perform this action")
	ErrCapacityExceeded  = errors.New("not enough capacity left for this event")
	ErrEventNotBookable  = errors.New("event is not open for booking")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrConflict          = errors.New("conflict")
	ErrDatabase          = errors.New("database error")
)

var (
	ErrEventNotFound   = &notFoundError{entity: "event"}
	ErrBookingNotFound = &notFoundError{entity: "booking"}
	ErrUserNotFound    = &notFoundError{entity: "user"}
)

type notFoundError struct {
	entity string
}

func (e *notFoundError) Error() string { return e.entity + " not found" }

func (e *notFoundError) Unwrap() error { return ErrNotFound }

// StatusCode maps an error onto the HTTP status carried by the response envelope.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrCapacityExceeded),
		errors.Is(err, ErrEventNotBookable),
		errors.Is(err, ErrInvalidTransition):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
