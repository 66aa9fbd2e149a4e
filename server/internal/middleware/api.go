package middleware

import (
	"log"

	"captcha-client/server/internal/db"
	"captcha-client/server/internal/models"

	"github.com/gofiber/fiber/v2"
)

// ClientKeyMiddleware authenticates API calls by the clientKey carried in
// the JSON request body (the wire protocol puts the credential there, not
// in a header). The resolved user is stored in locals.
func ClientKeyMiddleware(c *fiber.Ctx) error {
	var body struct {
		ClientKey string `json:"clientKey"`
	}
	if err := c.BodyParser(&body); err != nil || body.ClientKey == "" {
		log.Println("API authentication failed: missing clientKey")
		return c.JSON(fiber.Map{"errorId": 1, "errorCode": models.ErrCodeKeyDenied})
	}

	user, err := db.GetUserByAPIKey(body.ClientKey)
	if err != nil {
		log.Printf("API authentication failed: %v", err)
		return c.JSON(fiber.Map{"errorId": 1, "errorCode": models.ErrCodeKeyDenied})
	}

	c.Locals("user", user)
	return c.Next()
}
