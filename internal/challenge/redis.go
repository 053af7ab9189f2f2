package challenge

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/passkey_wallet/internal/apperr"
)

const redisKeyPrefix = "webauthn:challenge:v1:"

// consumeScript deletes the hash only when its value field matches ARGV[1].
var consumeScript = redis.NewScript(`
if redis.call('HGET', KEYS[1], 'value') == ARGV[1] then
  return redis.call('DEL', KEYS[1])
end
return 0
`)

// RedisStore keeps each challenge in a hash keyed by username. Expiring
// challenges also carry a key TTL so abandoned ceremonies are reclaimed by Redis.
type RedisStore struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisStore builds a Store on client. now defaults to time.Now.
func NewRedisStore(client *redis.Client, now func() time.Time) *RedisStore {
	if now == nil {
		now = time.Now
	}
	return &RedisStore{client: client, now: now}
}

func (s *RedisStore) Put(ctx context.Context, c Challenge) error {
	key := redisKeyPrefix + c.Username
	var expiresAt int64
	if !c.ExpiresAt.IsZero() {
		expiresAt = c.ExpiresAt.UnixNano()
	}
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key,
			"value", c.Value,
			"kind", string(c.Kind),
			"issued_at", strconv.FormatInt(c.IssuedAt.UnixNano(), 10),
			"expires_at", strconv.FormatInt(expiresAt, 10),
		)
		if !c.ExpiresAt.IsZero() {
			pipe.PExpire(ctx, key, c.ExpiresAt.Sub(c.IssuedAt))
		}
		return nil
	})
	return apperr.Store("store challenge", err)
}

func (s *RedisStore) Get(ctx context.Context, username string) (Challenge, error) {
	key := redisKeyPrefix + username
	fields, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return Challenge{}, apperr.Store("load challenge", err)
	}
	if len(fields) == 0 || fields["value"] == "" {
		return Challenge{}, ErrNotFound
	}

	c := Challenge{
		Username: username,
		Value:    fields["value"],
		Kind:     Kind(fields["kind"]),
		IssuedAt: unixNano(fields["issued_at"]),
	}
	if exp := unixNano(fields["expires_at"]); !exp.IsZero() {
		c.ExpiresAt = exp
	}
	if c.Expired(s.now()) {
		if err := s.client.Del(ctx, key).Err(); err != nil {
			return Challenge{}, apperr.Store("drop expired challenge", err)
		}
		return Challenge{}, ErrNotFound
	}
	return c, nil
}

func (s *RedisStore) Consume(ctx context.Context, username, value string) error {
	if _, err := s.Get(ctx, username); err != nil {
		return err
	}
	deleted, err := consumeScript.Run(ctx, s.client, []string{redisKeyPrefix + username}, value).Int64()
	if err != nil {
		return apperr.Store("consume challenge", err)
	}
	if deleted == 0 {
		return ErrNotFound
	}
	return nil
}

func unixNano(v string) time.Time {
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}
