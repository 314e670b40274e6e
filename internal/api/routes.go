package api

import (
	"strconv"

	"github.com/gofiber/fiber/v3"

	"github.com/eludris-go/eludris/internal/auth"
	"github.com/eludris-go/eludris/internal/httputil"
	"github.com/eludris-go/eludris/internal/ratelimit"
)

// Handlers bundles every oprish handler, ready for route registration.
type Handlers struct {
	Instance *InstanceHandler
	User     *UserHandler
	Session  *SessionHandler
	Message  *MessageHandler
	Health   *HealthHandler
}

// byUserID identifies a rate-limit admission by the authenticated caller's id.
func byUserID(c fiber.Ctx) string {
	id, _ := auth.UserID(c)
	return strconv.FormatUint(id, 10)
}

// byUserOrIP identifies a rate-limit admission by the caller's user id when authenticated, falling back to their IP
// otherwise — used on routes where authentication is optional.
func byUserOrIP(c fiber.Ctx) string {
	if id, ok := auth.UserID(c); ok {
		return strconv.FormatUint(id, 10)
	}
	return httputil.ByIP(c)
}

// RegisterRoutes wires every oprish route onto app, with the rate-limit bucket and auth
// middleware each route requires.
func RegisterRoutes(app *fiber.App, h *Handlers, limiter *ratelimit.Limiter, validator auth.Validator) {
	limit := func(bucket string, identify httputil.Identify) fiber.Handler {
		return httputil.RateLimit(limiter, bucket, identify)
	}

	app.Get("/", limit(ratelimit.BucketGetInstanceInfo, httputil.ByIP), h.Instance.Info)
	app.Get("/health", h.Health.Health)

	app.Post("/messages",
		auth.RequireAuth(validator), limit(ratelimit.BucketCreateMessage, byUserID), h.Message.Create)

	app.Post("/users", limit(ratelimit.BucketCreateUser, httputil.ByIP), h.User.Create)
	app.Post("/users/verify",
		auth.RequireAuth(validator), limit(ratelimit.BucketVerifyUser, byUserID), h.User.Verify)
	app.Get("/users/@me",
		auth.RequireAuth(validator), limit(ratelimit.BucketGetUser, byUserID), h.User.GetMe)
	app.Get("/users/:identifier",
		auth.OptionalAuth(validator), limit(ratelimit.BucketGuestGetUser, byUserOrIP), h.User.Get)
	app.Patch("/users",
		auth.RequireAuth(validator), limit(ratelimit.BucketUpdateUser, byUserID), h.User.Update)
	app.Patch("/users/profile",
		auth.RequireAuth(validator), limit(ratelimit.BucketUpdateProfile, byUserID), h.User.UpdateProfile)
	app.Delete("/users",
		auth.RequireAuth(validator), limit(ratelimit.BucketDeleteUser, byUserID), h.User.Delete)
	app.Post("/users/reset-password",
		limit(ratelimit.BucketCreatePasswordResetCode, httputil.ByIP), h.User.CreatePasswordResetCode)
	app.Patch("/users/reset-password",
		limit(ratelimit.BucketResetPassword, httputil.ByIP), h.User.ResetPassword)

	app.Post("/sessions", limit(ratelimit.BucketCreateSession, httputil.ByIP), h.Session.Create)
	app.Get("/sessions",
		auth.RequireAuth(validator), limit(ratelimit.BucketGetSessions, byUserID), h.Session.List)
	app.Delete("/sessions/:id",
		auth.RequireAuth(validator), limit(ratelimit.BucketDeleteSession, byUserID), h.Session.Delete)
}
