package middleware

import (
	"captcha-client/server/internal/models"

	"github.com/gofiber/fiber/v2"
)

// RoleMiddleware lets only the listed roles through.
func RoleMiddleware(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := c.Locals("user").(*models.User)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).Redirect("/login")
		}

		for _, role := range roles {
			if user.Role == role {
				return c.Next()
			}
		}

		return c.Status(fiber.StatusForbidden).SendString("Access denied")
	}
}
