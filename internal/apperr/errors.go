// Package apperr defines the error taxonomy shared by the ceremony, wallet and
// ledger packages and its mapping onto HTTP status codes.
package apperr

import (
	"context"
	"errors"
	"net/http"
)

// Error kinds. Domain errors wrap exactly one of these.
var (
	ErrValidation     = errors.New("validation error")
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("conflict")
	ErrAuthentication = errors.New("authentication failed")
	ErrStore          = errors.New("store failure")
	ErrPartialFailure = errors.New("partial failure")
)

const internalMessage = "internal server error"

// Error carries a kind, the message safe to return to callers and an optional
// underlying cause that is only ever logged.
type Error struct {
	Kind    error
	Message string
	Err     error
}

// New returns an error of the given kind with a public message.
func New(kind error, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap attaches a cause to a new error of the given kind.
func Wrap(kind error, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Store wraps a failed external store call. Context deadline and cancellation
// are folded into the same kind.
func Store(op string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return err
	}
	return &Error{Kind: ErrStore, Message: op, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

// Is lets two distinct *Error values with the same kind and message compare
// equal, which keeps package sentinels matchable after a round trip.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

// Status maps err onto an HTTP status code.
func Status(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation), errors.Is(err, ErrConflict):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAuthentication):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the text that may be shown to a caller. Store failures,
// partial failures and unknown errors collapse into a generic message.
func Message(err error) string {
	if err == nil {
		return ""
	}
	if Internal(err) {
		return internalMessage
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

// Internal reports whether err must be hidden from callers.
func Internal(err error) bool {
	if errors.Is(err, ErrStore) || errors.Is(err, ErrPartialFailure) ||
		errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	for _, kind := range []error{ErrValidation, ErrNotFound, ErrConflict, ErrAuthentication} {
		if errors.Is(err, kind) {
			return false
		}
	}
	return true
}
