package ceremony

import (
	"encoding/base64"
	"strings"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/protocol/webauthncose"
)

// CeremonyTimeout is the advisory browser-side timeout sent with both option sets.
const CeremonyTimeout = 60 * time.Second

var supportedAlgorithms = []webauthncose.COSEAlgorithmIdentifier{
	webauthncose.AlgES256,
	webauthncose.AlgRS256,
}

func registrationOptions(rpName, rpID, username string, ch protocol.URLEncodedBase64) *protocol.PublicKeyCredentialCreationOptions {
	params := make([]protocol.CredentialParameter, 0, len(supportedAlgorithms))
	for _, alg := range supportedAlgorithms {
		params = append(params, protocol.CredentialParameter{Type: protocol.PublicKeyCredentialType, Algorithm: alg})
	}
	return &protocol.PublicKeyCredentialCreationOptions{
		RelyingParty: protocol.RelyingPartyEntity{
			CredentialEntity: protocol.CredentialEntity{Name: rpName},
			ID:               rpID,
		},
		User: protocol.UserEntity{
			CredentialEntity: protocol.CredentialEntity{Name: username},
			DisplayName:      username,
			ID:               userHandle(username),
		},
		Challenge:  ch,
		Parameters: params,
		AuthenticatorSelection: protocol.AuthenticatorSelection{
			AuthenticatorAttachment: protocol.Platform,
			UserVerification:        protocol.VerificationRequired,
		},
		Timeout:     int(CeremonyTimeout.Milliseconds()),
		Attestation: protocol.PreferNoAttestation,
	}
}

func authenticationOptions(rpID, credentialID string, ch protocol.URLEncodedBase64) *protocol.PublicKeyCredentialRequestOptions {
	return &protocol.PublicKeyCredentialRequestOptions{
		Challenge:      ch,
		Timeout:        int(CeremonyTimeout.Milliseconds()),
		RelyingPartyID: rpID,
		AllowedCredentials: []protocol.CredentialDescriptor{{
			Type:         protocol.PublicKeyCredentialType,
			CredentialID: decodeCredentialID(credentialID),
		}},
		UserVerification: protocol.VerificationRequired,
	}
}

// userHandle is the opaque WebAuthn user id: the username bytes.
func userHandle(username string) protocol.URLEncodedBase64 {
	return protocol.URLEncodedBase64(username)
}

// decodeCredentialID turns the stored base64url id back into bytes so it
// re-encodes identically on the wire. Ids that are not base64 are sent as-is.
func decodeCredentialID(id string) protocol.URLEncodedBase64 {
	trimmed := strings.TrimRight(id, "=")
	if raw, err := base64.RawURLEncoding.DecodeString(trimmed); err == nil {
		return raw
	}
	if raw, err := base64.RawStdEncoding.DecodeString(trimmed); err == nil {
		return raw
	}
	return protocol.URLEncodedBase64(id)
}
