package projects

import (
	"errors"
	"strconv"

	dashsvc "bluetrust-backend/internal/application/dashboard"
	"bluetrust-backend/internal/application/intake"
	"bluetrust-backend/internal/domain"
	"bluetrust-backend/internal/infrastructure/kvstore"
	"bluetrust-backend/internal/middleware"
	"bluetrust-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

type Handlers struct {
	Service *intake.Service
	Stats   *dashsvc.Service
}

// submitted answers a new pending submission and drops the cached platform stats.
func (h *Handlers) submitted(c *fiber.Ctx, sub *domain.ProjectSubmission) error {
	if h.Stats != nil {
		h.Stats.Invalidate(c.UserContext())
	}
	return response.SuccessCreated(c, "Project submitted for verification", sub, nil)
}

func fail(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrMissingName),
		errors.Is(err, domain.ErrMissingLocation),
		errors.Is(err, domain.ErrInvalidLocation),
		errors.Is(err, domain.ErrMissingPhotos),
		errors.Is(err, domain.ErrInvalidQuantity):
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	case errors.Is(err, domain.ErrPhotoIndex):
		return response.Error(c, err.Error(), fiber.StatusNotFound, nil)
	}
	log.Error().Err(err).Str("path", c.Path()).Msg("projects: request failed")
	return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
}

func store(c *fiber.Ctx) (kvstore.Store, bool) {
	s := middleware.GetStore(c)
	return s, s != nil
}

func noStore(c *fiber.Ctx) error {
	return response.Unauthorized(c, "Unauthorized")
}

// GetDraft GET /api/v1/projects/draft
func (h *Handlers) GetDraft(c *fiber.Ctx) error {
	st, ok := store(c)
	if !ok {
		return noStore(c)
	}
	d, err := h.Service.Draft(c.UserContext(), st)
	if err != nil {
		return fail(c, err)
	}
	return response.Success(c, "Draft fetched", d, nil)
}

// SaveDraft PUT /api/v1/projects/draft
func (h *Handlers) SaveDraft(c *fiber.Ctx) error {
	st, ok := store(c)
	if !ok {
		return noStore(c)
	}
	var in intake.Details
	if err := c.BodyParser(&in); err != nil {
		return response.Error(c, "Invalid project details", fiber.StatusBadRequest, nil)
	}
	d, err := h.Service.SaveDetails(c.UserContext(), st, in)
	if err != nil {
		return fail(c, err)
	}
	return response.Success(c, "Draft saved", d, nil)
}

// ResetDraft DELETE /api/v1/projects/draft
func (h *Handlers) ResetDraft(c *fiber.Ctx) error {
	st, ok := store(c)
	if !ok {
		return noStore(c)
	}
	if err := h.Service.Reset(c.UserContext(), st); err != nil {
		return fail(c, err)
	}
	return response.Success(c, "Draft cleared", nil, nil)
}

// CaptureLocation POST /api/v1/projects/draft/location
func (h *Handlers) CaptureLocation(c *fiber.Ctx) error {
	st, ok := store(c)
	if !ok {
		return noStore(c)
	}
	var loc intake.Location
	if err := c.BodyParser(&loc); err != nil {
		return response.Error(c, domain.ErrInvalidLocation.Error(), fiber.StatusBadRequest, nil)
	}
	d, err := h.Service.CaptureLocation(c.UserContext(), st, loc)
	if err != nil {
		return fail(c, err)
	}
	return response.Success(c, "Location captured", d, nil)
}

// AddPhotos POST /api/v1/projects/draft/photos {paths[]}
func (h *Handlers) AddPhotos(c *fiber.Ctx) error {
	st, ok := store(c)
	if !ok {
		return noStore(c)
	}
	var body struct {
		Paths []string `json:"paths"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "paths is required", fiber.StatusBadRequest, nil)
	}
	d, err := h.Service.AddPhotos(c.UserContext(), st, body.Paths...)
	if err != nil {
		return fail(c, err)
	}
	return response.Success(c, "Photos added", d, nil)
}

// RemovePhoto DELETE /api/v1/projects/draft/photos/:index
func (h *Handlers) RemovePhoto(c *fiber.Ctx) error {
	st, ok := store(c)
	if !ok {
		return noStore(c)
	}
	idx, err := strconv.Atoi(c.Params("index"))
	if err != nil {
		return response.Error(c, domain.ErrPhotoIndex.Error(), fiber.StatusNotFound, nil)
	}
	d, err := h.Service.RemovePhoto(c.UserContext(), st, idx)
	if err != nil {
		return fail(c, err)
	}
	return response.Success(c, "Photo removed", d, nil)
}

// SubmitDraft POST /api/v1/projects/draft/submit
func (h *Handlers) SubmitDraft(c *fiber.Ctx) error {
	st, ok := store(c)
	if !ok {
		return noStore(c)
	}
	sub, err := h.Service.SubmitDraft(c.UserContext(), st, *middleware.GetSession(c))
	if err != nil {
		return fail(c, err)
	}
	return h.submitted(c, sub)
}

// Submit POST /api/v1/projects
func (h *Handlers) Submit(c *fiber.Ctx) error {
	var in intake.SubmitInput
	if err := c.BodyParser(&in); err != nil {
		return response.Error(c, domain.ErrMissingName.Error(), fiber.StatusBadRequest, nil)
	}
	sub, err := h.Service.Submit(c.UserContext(), *middleware.GetSession(c), in)
	if err != nil {
		return fail(c, err)
	}
	return h.submitted(c, sub)
}

// List GET /api/v1/projects
func (h *Handlers) List(c *fiber.Ctx) error {
	subs, err := h.Service.ListMine(c.UserContext(), middleware.GetSession(c).AccountID)
	if err != nil {
		return fail(c, err)
	}
	if subs == nil {
		subs = []domain.ProjectSubmission{}
	}
	return response.Success(c, "Projects fetched", subs, fiber.Map{"count": len(subs)})
}

// Sites GET /api/v1/projects/sites.geojson
func (h *Handlers) Sites(c *fiber.Ctx) error {
	fc, err := h.Service.SitesGeoJSON(c.UserContext(), middleware.GetSession(c).AccountID)
	if err != nil {
		return fail(c, err)
	}
	b, err := fc.MarshalJSON()
	if err != nil {
		return fail(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/geo+json")
	return c.Send(b)
}
