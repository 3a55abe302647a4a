package middleware

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"
)

// CronProtected guards the on-demand reminder trigger with a shared
// secret. An empty configured secret leaves the endpoint open, which is
// only acceptable outside production (config enforces that).
func CronProtected(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if secret == "" {
			return c.Next()
		}

		provided := c.Get("X-Cron-Secret")
		if subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid cron secret",
			})
		}

		return c.Next()
	}
}
