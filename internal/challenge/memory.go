package challenge

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a process-local Store. All access goes through one mutex, so
// concurrent Put calls for the same username are serialized and the last one wins.
type MemoryStore struct {
	mu    sync.Mutex
	items map[string]Challenge
	now   func() time.Time
}

// NewMemoryStore builds an empty store. now defaults to time.Now.
func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{items: make(map[string]Challenge), now: now}
}

func (s *MemoryStore) Put(_ context.Context, c Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[c.Username] = c
	return nil
}

func (s *MemoryStore) Get(_ context.Context, username string) (Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.live(username)
	if !ok {
		return Challenge{}, ErrNotFound
	}
	return c, nil
}

func (s *MemoryStore) Consume(_ context.Context, username, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.live(username)
	if !ok || c.Value != value {
		return ErrNotFound
	}
	delete(s.items, username)
	return nil
}

// PurgeExpired drops every expired challenge and returns how many were removed.
func (s *MemoryStore) PurgeExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	removed := 0
	for username, c := range s.items {
		if c.Expired(now) {
			delete(s.items, username)
			removed++
		}
	}
	return removed
}

// live must be called with mu held.
func (s *MemoryStore) live(username string) (Challenge, bool) {
	c, ok := s.items[username]
	if !ok {
		return Challenge{}, false
	}
	if c.Expired(s.now()) {
		delete(s.items, username)
		return Challenge{}, false
	}
	return c, true
}
