package identity

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryRepositoryLifecycle(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	cred := Credential{Username: "alice", CredentialID: "cred-1", PublicKey: "pk", RegisteredAt: time.Now().UTC()}
	if err := repo.Create(ctx, cred); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.Create(ctx, cred); !errors.Is(err, ErrUserExists) {
		t.Fatalf("expected duplicate error, got %v", err)
	}

	got, err := repo.FindByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got != cred {
		t.Fatalf("expected %+v, got %+v", cred, got)
	}

	if err := repo.Delete(ctx, "alice"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.FindByUsername(ctx, "alice"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
	if err := repo.Delete(ctx, "alice"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}
