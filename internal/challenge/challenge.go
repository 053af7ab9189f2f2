// Package challenge holds the one-time WebAuthn challenges issued per username.
package challenge

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
)

// Kind names the ceremony a challenge was issued for.
type Kind string

const (
	KindRegistration   Kind = "registration"
	KindAuthentication Kind = "authentication"
)

// ErrNotFound reports that no live challenge exists for a username, either
// because none was issued, it was consumed, replaced or it expired.
var ErrNotFound = errors.New("challenge not found")

// Challenge is a pending ceremony. At most one is live per username.
type Challenge struct {
	Username  string
	Value     string
	Kind      Kind
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Expired reports whether the challenge is past its expiry. A zero ExpiresAt never expires.
func (c Challenge) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// Bytes decodes the URL-safe value back into the raw challenge.
func (c Challenge) Bytes() (protocol.URLEncodedBase64, error) {
	raw, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return nil, fmt.Errorf("decode challenge: %w", err)
	}
	return protocol.URLEncodedBase64(raw), nil
}

// Store keeps the live challenge per username.
type Store interface {
	// Put records c as the live challenge for c.Username, replacing any previous one.
	Put(ctx context.Context, c Challenge) error
	// Get returns the live challenge or ErrNotFound.
	Get(ctx context.Context, username string) (Challenge, error)
	// Consume deletes the live challenge only if it still carries value.
	// It returns ErrNotFound when the challenge is gone or has been replaced.
	Consume(ctx context.Context, username, value string) error
}

// Issue generates a fresh challenge for username. ttl <= 0 disables expiry.
func Issue(username string, kind Kind, now time.Time, ttl time.Duration) (Challenge, error) {
	raw, err := protocol.CreateChallenge()
	if err != nil {
		return Challenge{}, fmt.Errorf("generate challenge: %w", err)
	}
	c := Challenge{
		Username: username,
		Value:    base64.RawURLEncoding.EncodeToString(raw),
		Kind:     kind,
		IssuedAt: now.UTC(),
	}
	if ttl > 0 {
		c.ExpiresAt = c.IssuedAt.Add(ttl)
	}
	return c, nil
}
