package gatewayapi

import "github.com/gofiber/fiber/v3"

// RegisterRoutes wires the single WebSocket upgrade endpoint that pandemonium serves.
func RegisterRoutes(app *fiber.App, h *Handler) {
	app.Get("/", h.Upgrade)
}
