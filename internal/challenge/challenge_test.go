package challenge

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type storeFactory func(t *testing.T, clock *fakeClock) Store

func stores() map[string]storeFactory {
	return map[string]storeFactory{
		"memory": func(_ *testing.T, clock *fakeClock) Store {
			return NewMemoryStore(clock.Now)
		},
		"redis": func(t *testing.T, clock *fakeClock) Store {
			t.Helper()
			mr, err := miniredis.Run()
			if err != nil {
				t.Fatalf("start miniredis: %v", err)
			}
			client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
			t.Cleanup(func() {
				client.Close()
				mr.Close()
			})
			return NewRedisStore(client, clock.Now)
		},
	}
}

func TestIssue(t *testing.T) {
	now := time.Now()
	c, err := Issue("alice", KindRegistration, now, time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	raw, err := c.Bytes()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(raw) < 32 {
		t.Fatalf("expected at least 32 random bytes, got %d", len(raw))
	}
	if !c.ExpiresAt.Equal(c.IssuedAt.Add(time.Minute)) {
		t.Fatalf("unexpected expiry %s", c.ExpiresAt)
	}

	other, err := Issue("alice", KindRegistration, now, 0)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if other.Value == c.Value {
		t.Fatal("expected distinct challenge values")
	}
	if !other.ExpiresAt.IsZero() || other.Expired(now.Add(24*time.Hour)) {
		t.Fatal("expected challenge without expiry")
	}
}

func TestStoreLifecycle(t *testing.T) {
	for name, factory := range stores() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			clock := &fakeClock{now: time.Now()}
			store := factory(t, clock)

			if _, err := store.Get(ctx, "alice"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected not found before issue, got %v", err)
			}

			first, _ := Issue("alice", KindRegistration, clock.Now(), time.Minute)
			if err := store.Put(ctx, first); err != nil {
				t.Fatalf("put: %v", err)
			}
			second, _ := Issue("alice", KindAuthentication, clock.Now(), time.Minute)
			if err := store.Put(ctx, second); err != nil {
				t.Fatalf("overwrite: %v", err)
			}

			got, err := store.Get(ctx, "alice")
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if got.Value != second.Value || got.Kind != KindAuthentication {
				t.Fatalf("expected overwritten challenge, got %+v", got)
			}

			if err := store.Consume(ctx, "alice", first.Value); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected replaced challenge to be unusable, got %v", err)
			}
			if err := store.Consume(ctx, "alice", second.Value); err != nil {
				t.Fatalf("consume: %v", err)
			}
			if err := store.Consume(ctx, "alice", second.Value); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected second consume to fail, got %v", err)
			}
		})
	}
}

func TestStoreExpiry(t *testing.T) {
	for name, factory := range stores() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			clock := &fakeClock{now: time.Now()}
			store := factory(t, clock)

			c, _ := Issue("bob", KindAuthentication, clock.Now(), time.Minute)
			if err := store.Put(ctx, c); err != nil {
				t.Fatalf("put: %v", err)
			}
			clock.Advance(59 * time.Second)
			if _, err := store.Get(ctx, "bob"); err != nil {
				t.Fatalf("expected live challenge, got %v", err)
			}
			clock.Advance(2 * time.Second)
			if _, err := store.Get(ctx, "bob"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected expired challenge, got %v", err)
			}
			if err := store.Consume(ctx, "bob", c.Value); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected expired challenge to be unconsumable, got %v", err)
			}
		})
	}
}

func TestMemoryStoreConcurrentConsumeOnce(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(nil)
	c, _ := Issue("carol", KindRegistration, time.Now(), time.Minute)
	if err := store.Put(ctx, c); err != nil {
		t.Fatalf("put: %v", err)
	}

	const workers = 16
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := store.Consume(ctx, "carol", c.Value); err == nil {
				mu.Lock()
				success++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if success != 1 {
		t.Fatalf("expected exactly one consume, got %d", success)
	}
}

func TestMemoryStorePurgeExpired(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Now()}
	store := NewMemoryStore(clock.Now)

	short, _ := Issue("dave", KindRegistration, clock.Now(), time.Second)
	forever, _ := Issue("erin", KindRegistration, clock.Now(), 0)
	_ = store.Put(ctx, short)
	_ = store.Put(ctx, forever)

	clock.Advance(time.Minute)
	if removed := store.PurgeExpired(); removed != 1 {
		t.Fatalf("expected one purged challenge, got %d", removed)
	}
	if _, err := store.Get(ctx, "erin"); err != nil {
		t.Fatalf("expected non-expiring challenge to survive, got %v", err)
	}
}

func TestRedisStoreSetsKeyTTL(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	store := NewRedisStore(client, nil)
	ctx := context.Background()
	c, _ := Issue("frank", KindRegistration, time.Now(), 30*time.Second)
	if err := store.Put(ctx, c); err != nil {
		t.Fatalf("put: %v", err)
	}
	if ttl := mr.TTL(redisKeyPrefix + "frank"); ttl != 30*time.Second {
		t.Fatalf("expected 30s ttl, got %s", ttl)
	}

	mr.FastForward(31 * time.Second)
	if mr.Exists(redisKeyPrefix + "frank") {
		t.Fatal("expected key to be reclaimed by ttl")
	}
}
