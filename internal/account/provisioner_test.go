package account

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/congo-pay/passkey_wallet/internal/apperr"
	"github.com/congo-pay/passkey_wallet/internal/identity"
	"github.com/congo-pay/passkey_wallet/internal/logging"
	"github.com/congo-pay/passkey_wallet/internal/wallet"
)

type failingWallets struct {
	wallet.Repository
	err error
}

func (f failingWallets) Create(context.Context, wallet.Wallet) error { return f.err }

type stickyUsers struct {
	identity.Repository
}

func (stickyUsers) Delete(context.Context, string) error { return errors.New("connection lost") }

func fixtures() (identity.Credential, wallet.Wallet) {
	now := time.Now().UTC()
	return identity.Credential{Username: "alice", CredentialID: "cred", PublicKey: "pk", RegisteredAt: now},
		wallet.Wallet{Username: "alice", Balance: 10_000, Address: "0xabc", CreatedAt: now, UpdatedAt: now}
}

func TestCompensatingProvisionerSuccess(t *testing.T) {
	users := identity.NewMemoryRepository()
	wallets := wallet.NewMemoryRepository()
	p := NewCompensatingProvisioner(users, wallets, logging.Discard())
	ctx := context.Background()

	cred, w := fixtures()
	if err := p.Provision(ctx, cred, w); err != nil {
		t.Fatalf("provision: %v", err)
	}
	if _, err := users.FindByUsername(ctx, "alice"); err != nil {
		t.Fatalf("expected user: %v", err)
	}
	if got, err := wallets.Get(ctx, "alice"); err != nil || got.Balance != 10_000 {
		t.Fatalf("expected wallet with starting balance, got %+v %v", got, err)
	}

	if err := p.Provision(ctx, cred, w); !errors.Is(err, identity.ErrUserExists) {
		t.Fatalf("expected duplicate user, got %v", err)
	}
}

func TestCompensatingProvisionerRollsBackUser(t *testing.T) {
	users := identity.NewMemoryRepository()
	storeErr := apperr.Store("insert wallet", errors.New("disk full"))
	p := NewCompensatingProvisioner(users, failingWallets{Repository: wallet.NewMemoryRepository(), err: storeErr}, logging.Discard())
	ctx := context.Background()

	cred, w := fixtures()
	err := p.Provision(ctx, cred, w)
	if !errors.Is(err, apperr.ErrStore) {
		t.Fatalf("expected store error, got %v", err)
	}
	if _, err := users.FindByUsername(ctx, "alice"); !errors.Is(err, identity.ErrUserNotFound) {
		t.Fatalf("expected user to be rolled back, got %v", err)
	}
}

func TestCompensatingProvisionerReportsPartialFailure(t *testing.T) {
	users := stickyUsers{Repository: identity.NewMemoryRepository()}
	p := NewCompensatingProvisioner(users, failingWallets{Repository: wallet.NewMemoryRepository(), err: errors.New("boom")}, logging.Discard())
	ctx := context.Background()

	cred, w := fixtures()
	err := p.Provision(ctx, cred, w)
	if !errors.Is(err, apperr.ErrPartialFailure) {
		t.Fatalf("expected partial failure, got %v", err)
	}
	if _, err := users.FindByUsername(ctx, "alice"); err != nil {
		t.Fatalf("expected the characterised partial state (user without wallet), got %v", err)
	}
}
