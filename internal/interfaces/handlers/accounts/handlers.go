package accounts

import (
	"errors"

	acctsvc "bluetrust-backend/internal/application/accounts"
	"bluetrust-backend/internal/domain"
	"bluetrust-backend/internal/middleware"
	"bluetrust-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *acctsvc.Service
}

// Me GET /api/v1/accounts/me returns the caller's balances.
func (h *Handlers) Me(c *fiber.Ctx) error {
	sess := middleware.GetSession(c)
	if sess == nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	acct, err := h.Service.Get(c.UserContext(), sess.AccountID)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return response.Error(c, err.Error(), fiber.StatusNotFound, nil)
		}
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Account fetched", acct, nil)
}
