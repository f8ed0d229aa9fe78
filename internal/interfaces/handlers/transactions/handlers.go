package transactions

import (
	txsvc "bluetrust-backend/internal/application/transactions"
	"bluetrust-backend/internal/middleware"
	"bluetrust-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *txsvc.Service
}

// GetTransactions GET /api/v1/transactions?type=
func (h *Handlers) GetTransactions(c *fiber.Ctx) error {
	sess := middleware.GetSession(c)
	if sess == nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	accountID := sess.AccountID
	if accountID == uuid.Nil {
		return response.Error(c, "account_id missing from session", 401, nil)
	}

	data, errMsg, code := h.Service.ViewTransactions(c.UserContext(), accountID, c.Query("type"))
	if errMsg != "" {
		return response.Error(c, errMsg, code, nil)
	}
	return response.Success(c, "Transactions fetched successfully", data, nil)
}
