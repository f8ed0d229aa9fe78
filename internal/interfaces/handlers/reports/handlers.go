package reports

import (
	"errors"

	"bluetrust-backend/internal/application/reports"
	"bluetrust-backend/internal/domain"
	"bluetrust-backend/internal/middleware"
	"bluetrust-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

type Handlers struct {
	Service *reports.Service
}

// ESG GET /api/v1/reports/esg?format=txt|pdf, served as an attachment.
func (h *Handlers) ESG(c *fiber.Ctx) error {
	sess := middleware.GetSession(c)
	rep, err := h.Service.ESG(c.UserContext(), sess.AccountID, c.Query("format"))
	if err != nil {
		switch {
		case errors.Is(err, reports.ErrUnknownFormat):
			return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
		case errors.Is(err, domain.ErrAccountNotFound):
			return response.Error(c, err.Error(), fiber.StatusNotFound, nil)
		}
		log.Error().Err(err).Msg("reports: esg export failed")
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}

	c.Set("X-Content-Fingerprint", rep.Fingerprint)
	return response.Attachment(c, rep.FileName, rep.ContentType, rep.Body)
}
