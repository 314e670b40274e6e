package httputil

import (
	"strconv"

	"github.com/gofiber/fiber/v3"

	"github.com/eludris-go/eludris/internal/apierr"
	"github.com/eludris-go/eludris/internal/ratelimit"
)

// Identify extracts the rate-limit identifier for a request, e.g. the client IP or an authenticated user id.
type Identify func(c fiber.Ctx) string

// ByIP identifies requests by their remote IP, used for every unauthenticated bucket.
func ByIP(c fiber.Ctx) string {
	return c.IP()
}

// RateLimit returns Fiber middleware that admits requests through limiter under the named bucket, writing the four
// rate-limit response headers on every response regardless of outcome, per spec.md §6.
func RateLimit(limiter *ratelimit.Limiter, bucket string, identify Identify) fiber.Handler {
	return func(c fiber.Ctx) error {
		result, err := limiter.Admit(c.Context(), bucket, identify(c))
		if err != nil {
			return apierr.Server(err.Error())
		}

		c.Set("X-RateLimit-Reset", strconv.FormatInt(result.Reset.Milliseconds(), 10))
		c.Set("X-RateLimit-Max", strconv.FormatInt(result.Max, 10))
		c.Set("X-RateLimit-Last-Reset", strconv.FormatInt(result.LastReset, 10))
		c.Set("X-RateLimit-Request-Count", strconv.FormatInt(result.RequestCount, 10))

		if !result.Admitted {
			return apierr.RateLimited(result.RetryAfterMS)
		}
		return c.Next()
	}
}
