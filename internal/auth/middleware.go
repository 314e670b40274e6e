package auth

import (
	"context"

	"github.com/gofiber/fiber/v3"

	"github.com/eludris-go/eludris/internal/apierr"
)

// Validator checks a token against live session state, per §4.3's validate-token semantics (HMAC verify, session
// lookup, tombstone check).
type Validator interface {
	ValidateToken(ctx context.Context, token string) (userID, sessionID uint64, err error)
}

// RequireAuth returns Fiber middleware that validates the raw token carried in the Authorization header (no Bearer
// scheme; callers send "Authorization: <token>" directly) and stores the user and session ids in Locals under
// "userID" and "sessionID".
func RequireAuth(v Validator) fiber.Handler {
	return func(c fiber.Ctx) error {
		token := c.Get("Authorization")
		if token == "" {
			return apierr.Unauthorized("Missing authorization header")
		}

		userID, sessionID, err := v.ValidateToken(c.Context(), token)
		if err != nil {
			return apierr.Unauthorized("Invalid or expired token")
		}

		c.Locals("userID", userID)
		c.Locals("sessionID", sessionID)
		return c.Next()
	}
}

// OptionalAuth returns Fiber middleware that validates the Authorization token when present but, unlike RequireAuth,
// lets the request through unauthenticated when the header is missing or invalid. Used by routes where the response
// shape depends on whether a caller happened to identify themselves.
func OptionalAuth(v Validator) fiber.Handler {
	return func(c fiber.Ctx) error {
		token := c.Get("Authorization")
		if token == "" {
			return c.Next()
		}

		userID, sessionID, err := v.ValidateToken(c.Context(), token)
		if err != nil {
			return c.Next()
		}

		c.Locals("userID", userID)
		c.Locals("sessionID", sessionID)
		return c.Next()
	}
}

// UserID reads the authenticated user id stored by RequireAuth/OptionalAuth, reporting false when absent.
func UserID(c fiber.Ctx) (uint64, bool) {
	id, ok := c.Locals("userID").(uint64)
	return id, ok
}
