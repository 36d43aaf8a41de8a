package client

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrUnavailable     = errors.New("server unavailable")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("already exists")
	ErrRateLimited     = errors.New("too many attempts")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotLoggedIn     = errors.New("not logged in")
)

// APIError is a non-2xx answer from the server. It unwraps to the sentinel
// matching its status, so callers can use errors.Is.
type APIError struct {
	Status    int
	Message   string
	RequestID string
	kind      error
}

func (e *APIError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("%s (status %d, request %s)", e.Message, e.Status, e.RequestID)
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
}

func (e *APIError) Unwrap() error { return e.kind }

// NewAPIError builds an APIError whose sentinel follows status.
func NewAPIError(status int, message string) *APIError {
	e := &APIError{Status: status, Message: message}
	switch {
	case status == http.StatusBadRequest:
		e.kind = ErrInvalidArgument
	case status == http.StatusUnauthorized:
		e.kind = ErrUnauthorized
	case status == http.StatusForbidden:
		e.kind = ErrForbidden
	case status == http.StatusNotFound:
		e.kind = ErrNotFound
	case status == http.StatusConflict:
		e.kind = ErrConflict
	case status == http.StatusTooManyRequests:
		e.kind = ErrRateLimited
	case status >= http.StatusInternalServerError:
		e.kind = ErrUnavailable
	}
	return e
}
