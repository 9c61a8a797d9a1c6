package security

import (
	"github.com/gofiber/fiber/v2"
)

// Headers sets conservative response headers on every route.
func Headers() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "no-referrer")
		c.Set("Cache-Control", "no-store")

		return c.Next()
	}
}
