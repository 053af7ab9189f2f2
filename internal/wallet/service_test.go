package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/congo-pay/passkey_wallet/internal/identity"
)

var addressPattern = regexp.MustCompile(`^0x[0-9a-f]{40}$`)

func newTestService() (*Service, Repository) {
	repo := NewMemoryRepository()
	return NewService(repo, Options{StartingBalance: 10_000, Timeout: time.Second}), repo
}

func TestServiceCreateDefaults(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	w, err := svc.Create(ctx, CreateInput{Username: "alice"})
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	if w.Balance != 10_000 {
		t.Fatalf("expected starting balance 10000, got %d", w.Balance)
	}
	if !addressPattern.MatchString(w.Address) {
		t.Fatalf("unexpected address %q", w.Address)
	}
	if string(w.Transactions) != "[]" {
		t.Fatalf("expected empty transactions, got %s", w.Transactions)
	}

	fetched, err := svc.Get(ctx, "alice")
	if err != nil {
		t.Fatalf("get wallet: %v", err)
	}
	if fetched.Address != w.Address || fetched.Balance != w.Balance {
		t.Fatalf("expected %+v, got %+v", w, fetched)
	}
}

func TestServiceCreateExplicitRoundTrip(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	balance := int64(4_321)
	address := "0xfeedfacefeedfacefeedfacefeedfacefeedface"
	txs := json.RawMessage(`[ {"sender": "bob", "receiver": "alice", "amount": 10} ]`)

	if _, err := svc.Create(ctx, CreateInput{Username: "alice", Balance: &balance, Address: &address, Transactions: txs}); err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	got, err := svc.Get(ctx, "alice")
	if err != nil {
		t.Fatalf("get wallet: %v", err)
	}
	if got.Balance != balance || got.Address != address {
		t.Fatalf("unexpected wallet %+v", got)
	}
	if !bytes.Equal(got.Transactions, txs) {
		t.Fatalf("expected transactions %s, got %s", txs, got.Transactions)
	}
}

func TestServiceCreateValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	negative := int64(-1)

	cases := []struct {
		name  string
		input CreateInput
		want  error
	}{
		{"missing username", CreateInput{Username: "  "}, ErrUsernameRequired},
		{"negative balance", CreateInput{Username: "bob", Balance: &negative}, ErrNegativeBalance},
		{"object transactions", CreateInput{Username: "bob", Transactions: json.RawMessage(`{"a":1}`)}, ErrInvalidTransactions},
		{"broken transactions", CreateInput{Username: "bob", Transactions: json.RawMessage(`[1,`)}, ErrInvalidTransactions},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Create(ctx, tc.input); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}

	if _, err := svc.Create(ctx, CreateInput{Username: "carol"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Create(ctx, CreateInput{Username: "carol"}); !errors.Is(err, ErrWalletExists) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
}

func TestServiceUpdate(t *testing.T) {
	clock := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	repo := NewMemoryRepository()
	svc := NewService(repo, Options{StartingBalance: 10_000, Clock: func() time.Time { return clock }})
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateInput{Username: "dave"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	clock = clock.Add(time.Hour)
	balance := int64(77)
	updated, err := svc.Update(ctx, "dave", Patch{Balance: &balance})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Balance != 77 || updated.Address != created.Address {
		t.Fatalf("unexpected update result %+v", updated)
	}
	if !updated.UpdatedAt.Equal(clock) || !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Fatalf("unexpected timestamps %+v", updated)
	}

	if _, err := svc.Update(ctx, "nobody", Patch{Balance: &balance}); !errors.Is(err, ErrWalletNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	negative := int64(-5)
	if _, err := svc.Update(ctx, "dave", Patch{Balance: &negative}); !errors.Is(err, ErrNegativeBalance) {
		t.Fatalf("expected negative balance error, got %v", err)
	}
}

func TestNewWalletDoesNotStore(t *testing.T) {
	svc, repo := newTestService()
	w, err := svc.NewWallet("erin")
	if err != nil {
		t.Fatalf("new wallet: %v", err)
	}
	if w.Balance != 10_000 || string(w.Transactions) != "[]" {
		t.Fatalf("unexpected wallet %+v", w)
	}
	if _, err := repo.Get(context.Background(), "erin"); !errors.Is(err, ErrWalletNotFound) {
		t.Fatalf("expected wallet not to be stored, got %v", err)
	}
}

func TestDeriveAddressIsFresh(t *testing.T) {
	a, err := DeriveAddress("alice")
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	b, err := DeriveAddress("alice")
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if a == b {
		t.Fatal("expected distinct addresses for repeated derivation")
	}
	if !addressPattern.MatchString(a) || !addressPattern.MatchString(b) {
		t.Fatalf("unexpected address format %q %q", a, b)
	}
}

func TestServiceCreateRequiresRegisteredOwner(t *testing.T) {
	users := identity.NewMemoryRepository()
	repo := NewMemoryRepository()
	svc := NewService(repo, Options{StartingBalance: 10_000, Owners: users})
	ctx := context.Background()

	if _, err := svc.Create(ctx, CreateInput{Username: "carol"}); !errors.Is(err, ErrOwnerNotFound) {
		t.Fatalf("expected owner not found, got %v", err)
	}
	if _, err := repo.Get(ctx, "carol"); !errors.Is(err, ErrWalletNotFound) {
		t.Fatalf("expected no wallet stored, got %v", err)
	}

	if err := users.Create(ctx, identity.Credential{Username: "carol", CredentialID: "cred", RegisteredAt: time.Now()}); err != nil {
		t.Fatalf("register carol: %v", err)
	}
	if _, err := svc.Create(ctx, CreateInput{Username: "carol"}); err != nil {
		t.Fatalf("create for registered user: %v", err)
	}
}
