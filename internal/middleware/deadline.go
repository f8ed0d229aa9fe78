package middleware

import (
	"context"
	"errors"
	"time"

	"bluetrust-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// RequestDeadline bounds every request with timeout. Handlers see it through
// c.UserContext(); a request that runs past it is answered with 504.
func RequestDeadline(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if timeout <= 0 {
			return c.Next()
		}
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)

		err := c.Next()
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return response.Error(c, "Request timed out", fiber.StatusGatewayTimeout, nil)
		}
		return err
	}
}
