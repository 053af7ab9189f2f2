package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/congo-pay/passkey_wallet/internal/identity"
)

// Options configures a wallet Service.
type Options struct {
	// StartingBalance seeds wallets created without an explicit balance.
	StartingBalance int64
	// Timeout bounds every repository call. Zero leaves the caller's deadline alone.
	Timeout time.Duration
	Clock   func() time.Time
	// Owners, when set, makes Create refuse usernames that have not registered.
	Owners Owners
}

// Owners looks up the registered user a wallet belongs to.
type Owners interface {
	FindByUsername(ctx context.Context, username string) (identity.Credential, error)
}

// Service exposes wallet CRUD on top of a Repository.
type Service struct {
	repo            Repository
	owners          Owners
	startingBalance int64
	timeout         time.Duration
	now             func() time.Time
}

// NewService builds a wallet service instance.
func NewService(repo Repository, opts Options) *Service {
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	return &Service{repo: repo, owners: opts.Owners, startingBalance: opts.StartingBalance, timeout: opts.Timeout, now: now}
}

// CreateInput captures data required to create a wallet. Nil fields get defaults.
type CreateInput struct {
	Username     string
	Balance      *int64
	Address      *string
	Transactions json.RawMessage
}

// NewWallet builds, without storing it, the wallet provisioned at registration:
// the starting balance, a freshly derived address and no transactions.
func (s *Service) NewWallet(username string) (Wallet, error) {
	return s.build(CreateInput{Username: username})
}

// Create validates input, fills defaults and stores the wallet.
func (s *Service) Create(ctx context.Context, input CreateInput) (Wallet, error) {
	wallet, err := s.build(input)
	if err != nil {
		return Wallet{}, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := s.checkOwner(ctx, wallet.Username); err != nil {
		return Wallet{}, err
	}
	if err := s.repo.Create(ctx, wallet); err != nil {
		return Wallet{}, err
	}
	return wallet, nil
}

// Get retrieves the wallet for username.
func (s *Service) Get(ctx context.Context, username string) (Wallet, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return Wallet{}, ErrUsernameRequired
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.repo.Get(ctx, username)
}

// Update replaces the fields set in patch. Any non-negative balance is accepted.
func (s *Service) Update(ctx context.Context, username string, patch Patch) (Wallet, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return Wallet{}, ErrUsernameRequired
	}
	if patch.Balance != nil && *patch.Balance < 0 {
		return Wallet{}, ErrNegativeBalance
	}
	if patch.Transactions != nil {
		if err := validateTransactions(patch.Transactions); err != nil {
			return Wallet{}, err
		}
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.repo.Update(ctx, username, patch, s.now())
}

// History lists the transfers sent or received by username.
func (s *Service) History(ctx context.Context, username string) ([]Transaction, error) {
	if _, err := s.Get(ctx, username); err != nil {
		return nil, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.repo.Transactions(ctx, strings.TrimSpace(username))
}

func (s *Service) build(input CreateInput) (Wallet, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" {
		return Wallet{}, ErrUsernameRequired
	}

	balance := s.startingBalance
	if input.Balance != nil {
		balance = *input.Balance
	}
	if balance < 0 {
		return Wallet{}, ErrNegativeBalance
	}

	var address string
	if input.Address != nil && *input.Address != "" {
		address = *input.Address
	} else {
		derived, err := DeriveAddress(username)
		if err != nil {
			return Wallet{}, err
		}
		address = derived
	}

	txs := cloneRaw(emptyTransactions)
	if input.Transactions != nil {
		if err := validateTransactions(input.Transactions); err != nil {
			return Wallet{}, err
		}
		txs = cloneRaw(input.Transactions)
	}

	now := s.now().UTC()
	return Wallet{
		Username:     username,
		Balance:      balance,
		Address:      address,
		Transactions: txs,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (s *Service) checkOwner(ctx context.Context, username string) error {
	if s.owners == nil {
		return nil
	}
	_, err := s.owners.FindByUsername(ctx, username)
	if errors.Is(err, identity.ErrUserNotFound) {
		return ErrOwnerNotFound
	}
	return err
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func validateTransactions(raw json.RawMessage) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' || !json.Valid(trimmed) {
		return ErrInvalidTransactions
	}
	return nil
}
