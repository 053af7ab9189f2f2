package identity

import (
	"context"
	"strings"
	"sync"
)

type memoryRepository struct {
	mu    sync.RWMutex
	users map[string]Credential
}

// NewMemoryRepository builds an in-memory credential store for development and tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{users: make(map[string]Credential)}
}

func (r *memoryRepository) Create(_ context.Context, cred Credential) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.users[cred.Username]; exists {
		return ErrUserExists
	}
	cred.Username = strings.Clone(cred.Username)
	r.users[cred.Username] = cred
	return nil
}

func (r *memoryRepository) FindByUsername(_ context.Context, username string) (Credential, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cred, ok := r.users[username]
	if !ok {
		return Credential{}, ErrUserNotFound
	}
	return cred, nil
}

func (r *memoryRepository) Delete(_ context.Context, username string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[username]; !ok {
		return ErrUserNotFound
	}
	delete(r.users, username)
	return nil
}
