package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStatusAndMessage(t *testing.T) {
	dupUser := New(ErrConflict, "user already exists")
	cases := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"validation", New(ErrValidation, "username is required"), http.StatusBadRequest, "username is required"},
		{"conflict", dupUser, http.StatusBadRequest, "user already exists"},
		{"wrapped conflict", fmt.Errorf("begin registration: %w", dupUser), http.StatusBadRequest, "user already exists"},
		{"not found", New(ErrNotFound, "user not found"), http.StatusNotFound, "user not found"},
		{"auth", New(ErrAuthentication, "credential mismatch"), http.StatusUnauthorized, "credential mismatch"},
		{"store", Store("insert wallet", errors.New("connection reset")), http.StatusInternalServerError, internalMessage},
		{"timeout", Store("select wallet", context.DeadlineExceeded), http.StatusInternalServerError, internalMessage},
		{"partial", Wrap(ErrPartialFailure, "registration left partial state", errors.New("boom")), http.StatusInternalServerError, internalMessage},
		{"unknown", errors.New("kaboom"), http.StatusInternalServerError, internalMessage},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Status(tc.err); got != tc.status {
				t.Fatalf("expected status %d, got %d", tc.status, got)
			}
			if got := Message(tc.err); got != tc.message {
				t.Fatalf("expected message %q, got %q", tc.message, got)
			}
		})
	}
}

func TestStoreKeepsDomainErrors(t *testing.T) {
	notFound := New(ErrNotFound, "wallet not found")
	if err := Store("get wallet", notFound); !errors.Is(err, notFound) {
		t.Fatalf("expected domain error to pass through, got %v", err)
	}
	if Store("noop", nil) != nil {
		t.Fatal("expected nil for nil cause")
	}
	cause := errors.New("dial tcp: refused")
	err := Store("get wallet", cause)
	if !errors.Is(err, ErrStore) || !errors.Is(err, cause) {
		t.Fatalf("expected store kind wrapping cause, got %v", err)
	}
}
