package dashboard

import (
	"errors"

	"bluetrust-backend/internal/application/dashboard"
	"bluetrust-backend/internal/domain"
	"bluetrust-backend/internal/middleware"
	"bluetrust-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

type Handlers struct {
	Service *dashboard.Service
}

// Get GET /api/v1/dashboard returns the KPI cards of the caller's role.
func (h *Handlers) Get(c *fiber.Ctx) error {
	d, err := h.Service.For(c.UserContext(), *middleware.GetSession(c))
	if err != nil {
		switch {
		case errors.Is(err, dashboard.ErrUnknownRole):
			return response.Error(c, err.Error(), fiber.StatusForbidden, nil)
		case errors.Is(err, domain.ErrAccountNotFound):
			return response.Error(c, err.Error(), fiber.StatusNotFound, nil)
		}
		log.Error().Err(err).Msg("dashboard: stats failed")
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Dashboard fetched", d, nil)
}
