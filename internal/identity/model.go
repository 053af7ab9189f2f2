package identity

import "time"

// Credential is the passkey registered for a username. It is written once at
// registration and never mutated.
type Credential struct {
	Username     string
	CredentialID string
	PublicKey    string
	RegisteredAt time.Time
}
