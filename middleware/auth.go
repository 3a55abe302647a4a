package middleware

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"duechaser/models"
)

// Protected resolves the requesting user from the X-API-Key header and
// puts it on the request context. There is no session or login flow;
// keys are provisioned out of band.
func Protected(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Get("X-API-Key")
		if key == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "API key required",
			})
		}

		var user models.User
		if err := db.Where("api_key = ?", key).First(&user).Error; err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid API key",
			})
		}

		if !user.IsActive {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Account is not active",
			})
		}

		c.Locals("user", &user)
		c.Locals("userID", user.ID)

		return c.Next()
	}
}
