package ceremony

import (
	"context"
	"crypto/subtle"
	"strings"

	"github.com/congo-pay/passkey_wallet/internal/challenge"
	"github.com/congo-pay/passkey_wallet/internal/identity"
)

// CredentialResponse is the PublicKeyCredential returned by the browser, with
// binary fields already encoded as URL-safe base64 text.
type CredentialResponse struct {
	ID       string                `json:"id"`
	RawID    string                `json:"rawId,omitempty"`
	Type     string                `json:"type,omitempty"`
	Response AuthenticatorResponse `json:"response"`
}

// AuthenticatorResponse carries the attestation (registration) or assertion
// (authentication) fields. They are stored or compared as opaque text.
type AuthenticatorResponse struct {
	ClientDataJSON    string `json:"clientDataJSON,omitempty"`
	AttestationObject string `json:"attestationObject,omitempty"`
	PublicKey         string `json:"publicKey,omitempty"`
	AuthenticatorData string `json:"authenticatorData,omitempty"`
	Signature         string `json:"signature,omitempty"`
	UserHandle        string `json:"userHandle,omitempty"`
}

// CredentialID returns the credential id, preferring id over rawId.
func (c CredentialResponse) CredentialID() string {
	if id := strings.TrimSpace(c.ID); id != "" {
		return id
	}
	return strings.TrimSpace(c.RawID)
}

// PublicKey returns the key material to store: the explicit publicKey field
// when the browser exposes it, otherwise the raw attestation object.
func (c CredentialResponse) PublicKey() string {
	if c.Response.PublicKey != "" {
		return c.Response.PublicKey
	}
	return c.Response.AttestationObject
}

// Verifier decides whether a presented assertion proves possession of the stored credential.
type Verifier interface {
	Verify(ctx context.Context, stored identity.Credential, pending challenge.Challenge, presented CredentialResponse) error
}

// CredentialIDVerifier accepts an assertion whose credential id equals the
// stored one. It does not check the authenticator signature over the
// challenge against the stored public key, so it is not a proof of key
// possession and must not guard real funds.
type CredentialIDVerifier struct{}

func (CredentialIDVerifier) Verify(_ context.Context, stored identity.Credential, _ challenge.Challenge, presented CredentialResponse) error {
	want := strings.TrimRight(stored.CredentialID, "=")
	got := strings.TrimRight(presented.CredentialID(), "=")
	if want == "" || subtle.ConstantTimeCompare([]byte(want), []byte(got)) != 1 {
		return ErrCredentialMismatch
	}
	return nil
}
