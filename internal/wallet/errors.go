package wallet

import "github.com/congo-pay/passkey_wallet/internal/apperr"

var (
	// ErrWalletNotFound is returned when no wallet exists for the requested (or sending) username.
	ErrWalletNotFound = apperr.New(apperr.ErrNotFound, "wallet not found")
	// ErrReceiverNotFound is returned when a transfer names a receiver without a wallet.
	ErrReceiverNotFound = apperr.New(apperr.ErrNotFound, "receiver wallet not found")
	// ErrWalletExists is returned when creating a second wallet for a username.
	ErrWalletExists = apperr.New(apperr.ErrConflict, "wallet already exists")
	// ErrInsufficientBalance is returned when the sender balance is below the amount.
	ErrInsufficientBalance = apperr.New(apperr.ErrValidation, "insufficient balance")
	// ErrNegativeBalance rejects writes that would store a negative balance.
	ErrNegativeBalance = apperr.New(apperr.ErrValidation, "balance must not be negative")
	// ErrSameWallet rejects transfers whose sender and receiver are the same username.
	ErrSameWallet = apperr.New(apperr.ErrValidation, "sender and receiver must differ")
	// ErrInvalidAmount rejects non-positive transfer amounts.
	ErrInvalidAmount = apperr.New(apperr.ErrValidation, "amount must be a positive integer")
	// ErrBalanceOverflow rejects a transfer whose credit would exceed the largest storable balance.
	ErrBalanceOverflow = apperr.New(apperr.ErrValidation, "receiver balance would overflow")
	// ErrOwnerNotFound rejects a wallet for a username that has not registered.
	ErrOwnerNotFound = apperr.New(apperr.ErrNotFound, "user not found")
	// ErrInvalidTransactions rejects a transactions payload that is not a JSON array.
	ErrInvalidTransactions = apperr.New(apperr.ErrValidation, "transactions must be a JSON array")
)

// ErrUsernameRequired rejects wallet operations without a username.
var ErrUsernameRequired = apperr.New(apperr.ErrValidation, "username is required")
