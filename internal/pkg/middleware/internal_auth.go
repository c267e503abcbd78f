package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// InternalAuthMiddleware guards operator endpoints (scheduler run, dispatch)
// with a shared token. With no token configured the endpoints are disabled
// rather than open.
func InternalAuthMiddleware(token string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token == "" {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "internal API disabled"})
		}
		got := strings.TrimSpace(c.Get("X-Internal-Token"))
		if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
		}
		return c.Next()
	}
}
