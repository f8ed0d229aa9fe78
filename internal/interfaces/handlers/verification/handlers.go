package verification

import (
	"context"
	"errors"

	"bluetrust-backend/internal/application/verification"
	"bluetrust-backend/internal/domain"
	"bluetrust-backend/internal/middleware"
	"bluetrust-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// StatsInvalidator drops cached dashboard figures after a decision.
type StatsInvalidator interface {
	Invalidate(ctx context.Context)
}

type Handlers struct {
	Service *verification.Service
	Stats   StatsInvalidator
}

func fail(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrMissingJustification),
		errors.Is(err, domain.ErrInvalidOutcome),
		errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, verification.ErrInvalidStatusFilter):
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	case errors.Is(err, domain.ErrSubmissionNotFound):
		return response.Error(c, err.Error(), fiber.StatusNotFound, nil)
	case errors.Is(err, domain.ErrSubmissionAlreadyDecided):
		return response.Error(c, err.Error(), fiber.StatusConflict, nil)
	}
	log.Error().Err(err).Str("path", c.Path()).Msg("verification: request failed")
	return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
}

// GetQueue GET /api/v1/verification/submissions?status=
func (h *Handlers) GetQueue(c *fiber.Ctx) error {
	subs, err := h.Service.Queue(c.UserContext(), c.Query("status"))
	if err != nil {
		return fail(c, err)
	}
	if subs == nil {
		subs = []domain.ProjectSubmission{}
	}
	return response.Success(c, "Submissions fetched", subs, fiber.Map{"count": len(subs)})
}

// GetSubmission GET /api/v1/verification/submissions/:id
func (h *Handlers) GetSubmission(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for submission id", fiber.StatusBadRequest, nil)
	}
	r, err := h.Service.Review(c.UserContext(), id)
	if err != nil {
		return fail(c, err)
	}
	return response.Success(c, "Submission fetched", r, nil)
}

// Decide POST /api/v1/verification/submissions/:id/decision
func (h *Handlers) Decide(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for submission id", fiber.StatusBadRequest, nil)
	}
	var in domain.DecisionInput
	if err := c.BodyParser(&in); err != nil {
		return response.Error(c, domain.ErrInvalidOutcome.Error(), fiber.StatusBadRequest, nil)
	}

	out, err := h.Service.Decide(c.UserContext(), id, *middleware.GetSession(c), in)
	if err != nil {
		return fail(c, err)
	}
	if h.Stats != nil {
		h.Stats.Invalidate(c.UserContext())
	}
	return response.SuccessCreated(c, "Decision recorded", out, nil)
}
