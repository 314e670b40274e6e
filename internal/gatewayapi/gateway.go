// Package gatewayapi serves the pandemonium WebSocket upgrade endpoint.
package gatewayapi

import (
	"github.com/gofiber/contrib/v3/websocket"
	"github.com/gofiber/fiber/v3"

	"github.com/eludris-go/eludris/internal/gateway"
)

// Handler serves the WebSocket upgrade endpoint for the real-time gateway.
type Handler struct {
	Hub *gateway.Hub
}

// Upgrade handles GET /, upgrading the HTTP connection to a WebSocket and handing it to the Hub for the lifetime of
// the connection.
func (h *Handler) Upgrade(c fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	addr := gateway.ClientAddress(c)
	return websocket.New(func(conn *websocket.Conn) {
		h.Hub.ServeWebSocket(conn.Conn, addr)
	})(c)
}
