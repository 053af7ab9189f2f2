package middleware

import (
	"net/http/httptest"
	"strings"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

func loginApp(cache *redis.Client, max int) *fiber.App {
	app := fiber.New()
	app.Post("/login/start", LoginRateLimit(cache, max), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func attempt(t *testing.T, app *fiber.App, username string) int {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, "/login/start", strings.NewReader(`{"username":"`+username+`"}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	resp.Body.Close()
	return resp.StatusCode
}

func TestLoginRateLimit(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer cache.Close()

	backends := map[string]*redis.Client{"memory": nil, "redis": cache}
	for name, backend := range backends {
		t.Run(name, func(t *testing.T) {
			app := loginApp(backend, 2)
			for i := 0; i < 2; i++ {
				if status := attempt(t, app, name+"-alice"); status != fiber.StatusOK {
					t.Fatalf("attempt %d: expected 200, got %d", i+1, status)
				}
			}
			if status := attempt(t, app, name+"-alice"); status != fiber.StatusTooManyRequests {
				t.Fatalf("expected 429, got %d", status)
			}
			if status := attempt(t, app, name+"-bob"); status != fiber.StatusOK {
				t.Fatalf("other users must not be limited, got %d", status)
			}
		})
	}
}

func TestLoginRateLimitRedisWindowExpires(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer cache.Close()

	app := loginApp(cache, 1)
	attempt(t, app, "alice")
	if status := attempt(t, app, "alice"); status != fiber.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", status)
	}
	mr.FastForward(loginRateWindow)
	if status := attempt(t, app, "alice"); status != fiber.StatusOK {
		t.Fatalf("expected window to reset, got %d", status)
	}
}

func TestLoginRateLimitDisabled(t *testing.T) {
	app := loginApp(nil, 0)
	for i := 0; i < 20; i++ {
		if status := attempt(t, app, "alice"); status != fiber.StatusOK {
			t.Fatalf("expected no limit, got %d", status)
		}
	}
}
