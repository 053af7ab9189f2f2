package middleware

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

const (
	loginRateWindow  = time.Minute
	loginRatePrefix  = "rl:login:"
	limiterSweepSize = 4096
)

// LoginRateLimit caps login attempts per username (or client IP when the body
// names none) at maxPerMin. It counts in Redis when cache is set and in
// process otherwise. Redis errors fail open. maxPerMin <= 0 disables the limit.
func LoginRateLimit(cache *redis.Client, maxPerMin int) fiber.Handler {
	if maxPerMin <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	local := newLocalLimiter(maxPerMin)
	return func(c *fiber.Ctx) error {
		subject := loginSubject(c)

		var allowed bool
		if cache != nil {
			allowed = allowRedis(c.UserContext(), cache, loginRatePrefix+subject, maxPerMin)
		} else {
			allowed = local.allow(subject)
		}
		if !allowed {
			return fiber.NewError(fiber.StatusTooManyRequests, "too many login attempts, try again later")
		}
		return c.Next()
	}
}

func loginSubject(c *fiber.Ctx) string {
	var req struct {
		Username string `json:"username"`
	}
	_ = c.BodyParser(&req)
	if username := strings.TrimSpace(req.Username); username != "" {
		return "user:" + username
	}
	return "ip:" + c.IP()
}

func allowRedis(ctx context.Context, cache *redis.Client, key string, max int) bool {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	cnt, err := cache.Incr(ctx, key).Result()
	if err != nil {
		return true
	}
	if cnt == 1 {
		cache.Expire(ctx, key, loginRateWindow)
	}
	return cnt <= int64(max)
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// localLimiter keeps one token bucket per subject, refilled at max per minute.
type localLimiter struct {
	mu       sync.Mutex
	entries  map[string]*limiterEntry
	limit    rate.Limit
	burst    int
	now      func() time.Time
	idleTime time.Duration
}

func newLocalLimiter(maxPerMin int) *localLimiter {
	return &localLimiter{
		entries:  make(map[string]*limiterEntry),
		limit:    rate.Every(loginRateWindow / time.Duration(maxPerMin)),
		burst:    maxPerMin,
		now:      time.Now,
		idleTime: 2 * loginRateWindow,
	}
}

func (l *localLimiter) allow(subject string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if len(l.entries) >= limiterSweepSize {
		for k, e := range l.entries {
			if now.Sub(e.lastSeen) > l.idleTime {
				delete(l.entries, k)
			}
		}
	}
	e, ok := l.entries[subject]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.entries[subject] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}
