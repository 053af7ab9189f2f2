package wallet

import (
	"encoding/json"
	"time"
)

// Wallet is the balance holder for a username. Balance is in the smallest
// currency unit and never negative.
type Wallet struct {
	Username     string
	Balance      int64
	Address      string
	Transactions json.RawMessage
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Transaction is an immutable audit record of a completed transfer.
type Transaction struct {
	ID        string
	Sender    string
	Receiver  string
	Amount    int64
	CreatedAt time.Time
}

// Patch lists the wallet fields an update replaces. Nil fields are left unchanged.
type Patch struct {
	Balance      *int64
	Address      *string
	Transactions json.RawMessage
}

// TransferResult is the committed outcome of a transfer.
type TransferResult struct {
	Transaction     Transaction
	SenderBalance   int64
	ReceiverBalance int64
}

var emptyTransactions = json.RawMessage("[]")

func cloneRaw(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}
	out := make(json.RawMessage, len(raw))
	copy(out, raw)
	return out
}

func (w Wallet) clone() Wallet {
	w.Transactions = cloneRaw(w.Transactions)
	return w
}
