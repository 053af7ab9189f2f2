package wallet

import (
	"context"
	"math"
	"strings"
	"sync"
	"time"
)

// memoryRepository keeps wallets and the audit log behind one mutex, so a
// transfer's read-check-write sequence cannot interleave with another.
type memoryRepository struct {
	mu           sync.RWMutex
	storage      map[string]Wallet
	transactions []Transaction
}

// NewMemoryRepository constructs an in-memory repository for development and tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{storage: make(map[string]Wallet)}
}

func (r *memoryRepository) Create(_ context.Context, wallet Wallet) error {
	if wallet.Balance < 0 {
		return ErrNegativeBalance
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.storage[wallet.Username]; exists {
		return ErrWalletExists
	}
	if wallet.Transactions == nil {
		wallet.Transactions = emptyTransactions
	}
	// Callers may pass strings backed by a reused request buffer.
	wallet.Username = strings.Clone(wallet.Username)
	r.storage[wallet.Username] = wallet.clone()
	return nil
}

func (r *memoryRepository) Get(_ context.Context, username string) (Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	wallet, ok := r.storage[username]
	if !ok {
		return Wallet{}, ErrWalletNotFound
	}
	return wallet.clone(), nil
}

func (r *memoryRepository) Update(_ context.Context, username string, patch Patch, at time.Time) (Wallet, error) {
	if patch.Balance != nil && *patch.Balance < 0 {
		return Wallet{}, ErrNegativeBalance
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	wallet, ok := r.storage[username]
	if !ok {
		return Wallet{}, ErrWalletNotFound
	}
	if patch.Balance != nil {
		wallet.Balance = *patch.Balance
	}
	if patch.Address != nil {
		wallet.Address = *patch.Address
	}
	if patch.Transactions != nil {
		wallet.Transactions = cloneRaw(patch.Transactions)
	}
	wallet.UpdatedAt = at.UTC()
	// Assigning to an existing key replaces the stored key string, so reuse the owned one.
	r.storage[wallet.Username] = wallet
	return wallet.clone(), nil
}

func (r *memoryRepository) Transfer(_ context.Context, tx Transaction) (TransferResult, error) {
	if tx.Amount <= 0 {
		return TransferResult{}, ErrInvalidAmount
	}
	if tx.Sender == tx.Receiver {
		return TransferResult{}, ErrSameWallet
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	sender, ok := r.storage[tx.Sender]
	if !ok {
		return TransferResult{}, ErrWalletNotFound
	}
	receiver, ok := r.storage[tx.Receiver]
	if !ok {
		return TransferResult{}, ErrReceiverNotFound
	}
	if sender.Balance < tx.Amount {
		return TransferResult{}, ErrInsufficientBalance
	}
	if receiver.Balance > math.MaxInt64-tx.Amount {
		return TransferResult{}, ErrBalanceOverflow
	}

	at := tx.CreatedAt.UTC()
	sender.Balance -= tx.Amount
	sender.UpdatedAt = at
	receiver.Balance += tx.Amount
	receiver.UpdatedAt = at

	r.storage[sender.Username] = sender
	r.storage[receiver.Username] = receiver
	tx.Sender, tx.Receiver = sender.Username, receiver.Username
	r.transactions = append(r.transactions, tx)

	return TransferResult{
		Transaction:     tx,
		SenderBalance:   sender.Balance,
		ReceiverBalance: receiver.Balance,
	}, nil
}

func (r *memoryRepository) Transactions(_ context.Context, username string) ([]Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Transaction
	for _, tx := range r.transactions {
		if tx.Sender == username || tx.Receiver == username {
			out = append(out, tx)
		}
	}
	return out, nil
}
