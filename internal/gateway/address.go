package gateway

import "github.com/gofiber/fiber/v3"

// ClientAddress resolves the address a gateway connection's rate limit is keyed on, preferring reverse-proxy headers
// over the raw socket address exactly the way the original's accept_hdr_async callback does.
func ClientAddress(c fiber.Ctx) string {
	if ip := c.Get("X-Real-Ip"); ip != "" {
		return ip
	}
	if ip := c.Get("CF-Connecting-IP"); ip != "" {
		return ip
	}
	return c.IP()
}
