package httputil

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v3"
	"github.com/redis/go-redis/v9"

	"github.com/eludris-go/eludris/internal/ratelimit"
)

func newTestApp(t *testing.T, buckets map[string]ratelimit.Bucket) *fiber.App {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	limiter := ratelimit.New(rdb, buckets)
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Get("/x", RateLimit(limiter, "b", ByIP), func(c fiber.Ctx) error {
		return Success(c, "ok")
	})
	return app
}

func TestRateLimitAdmitsWithinLimit(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, map[string]ratelimit.Bucket{"b": {ResetAfter: 5 * time.Second, Limit: 2}})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	for _, h := range []string{"X-RateLimit-Reset", "X-RateLimit-Max", "X-RateLimit-Last-Reset", "X-RateLimit-Request-Count"} {
		if resp.Header.Get(h) == "" {
			t.Errorf("missing header %s", h)
		}
	}
}

func TestRateLimitRejectsOverLimit(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, map[string]ratelimit.Bucket{"b": {ResetAfter: time.Minute, Limit: 1}})

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("app.Test() error: %v", err)
		}
		_ = resp.Body.Close()
		if i == 0 && resp.StatusCode != http.StatusOK {
			t.Fatalf("first request status = %d, want 200", resp.StatusCode)
		}
		if i == 1 && resp.StatusCode != http.StatusTooManyRequests {
			t.Fatalf("second request status = %d, want 429", resp.StatusCode)
		}
	}
}
