package ceremony

import (
	"github.com/congo-pay/passkey_wallet/internal/apperr"
	"github.com/congo-pay/passkey_wallet/internal/identity"
)

var (
	// ErrUsernameRequired rejects a ceremony call without a username.
	ErrUsernameRequired = apperr.New(apperr.ErrValidation, "username is required")
	// ErrCredentialRequired rejects a completion without a credential id.
	ErrCredentialRequired = apperr.New(apperr.ErrValidation, "credential is required")
	// ErrNoPendingChallenge is returned when completing a ceremony that has no live challenge.
	ErrNoPendingChallenge = apperr.New(apperr.ErrValidation, "no pending challenge for user")
	// ErrCredentialMismatch is returned when the presented credential is not the registered one.
	ErrCredentialMismatch = apperr.New(apperr.ErrAuthentication, "credential mismatch")
	// ErrDuplicateUser is returned when registering a username that already holds a credential.
	ErrDuplicateUser = identity.ErrUserExists
	// ErrUserNotFound is returned when authenticating a username without a credential.
	ErrUserNotFound = identity.ErrUserNotFound
)
