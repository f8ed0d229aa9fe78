package navigation

import (
	"bluetrust-backend/internal/application/navigation"
	"bluetrust-backend/internal/middleware"
	"bluetrust-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// Resolve GET /api/v1/navigation/resolve?path=
func Resolve(c *fiber.Ctx) error {
	route := navigation.Resolve(middleware.GetSession(c), c.Query("path", "/"))
	return response.Success(c, "Route resolved", route, nil)
}
