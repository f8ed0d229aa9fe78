package middleware

import (
	"bluetrust-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// RequireAuth rejects requests without a signed-in identity.
func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if GetSession(c) == nil {
			return response.Unauthorized(c, "Unauthorized")
		}
		return c.Next()
	}
}
