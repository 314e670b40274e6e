package api

import (
	"github.com/gofiber/fiber/v3"

	"github.com/eludris-go/eludris/internal/config"
	"github.com/eludris-go/eludris/internal/httputil"
	"github.com/eludris-go/eludris/internal/instance"
)

// InstanceHandler serves GET / (instance metadata).
type InstanceHandler struct {
	Config *config.Config
}

// Info handles GET /?rate_limits=bool.
func (h *InstanceHandler) Info(c fiber.Ctx) error {
	withRateLimits := c.Query("rate_limits") == "true"
	return httputil.Success(c, instance.Build(h.Config, withRateLimits))
}
