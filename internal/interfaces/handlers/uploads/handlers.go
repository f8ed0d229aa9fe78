package uploads

import (
	"errors"

	uploadsvc "bluetrust-backend/internal/application/uploads"
	"bluetrust-backend/internal/middleware"
	"bluetrust-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// Handlers bundles upload handlers with the service.
type Handlers struct {
	Service *uploadsvc.Service
}

type uploadRequest struct {
	FileNames []string `json:"file_names"`
}

// UploadSitePhotos POST /api/v1/uploads/site-photos
func (h *Handlers) UploadSitePhotos(c *fiber.Ctx) error {
	var req uploadRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, uploadsvc.ErrNoFiles.Error(), 400, nil)
	}

	sess := middleware.GetSession(c)
	res, err := h.Service.SignSitePhotos(c.UserContext(), sess.AccountID, req.FileNames)
	if err != nil {
		switch {
		case errors.Is(err, uploadsvc.ErrNoFiles),
			errors.Is(err, uploadsvc.ErrInvalidFileName):
			return response.Error(c, err.Error(), 400, nil)
		}
		log.Error().Err(err).Str("bucket", h.Service.Bucket).Msg("upload: failed to generate signed URL")
		return response.Error(c, "Failed to generate upload URL", 500, nil)
	}
	return response.Success(c, "Upload URLs generated", res, fiber.Map{"count": len(res)})
}
