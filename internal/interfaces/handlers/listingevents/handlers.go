package listingevents

import (
	"errors"

	lesvc "bluetrust-backend/internal/application/listingevents"
	"bluetrust-backend/internal/domain"
	"bluetrust-backend/internal/middleware"
	"bluetrust-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *lesvc.Service
}

// GetListingEvents GET /api/v1/listing-events?listing_id=
// Without listing_id it returns the events the caller's account caused.
func (h *Handlers) GetListingEvents(c *fiber.Ctx) error {
	raw := c.Query("listing_id")
	if raw == "" {
		sess := middleware.GetSession(c)
		if sess == nil || sess.AccountID == uuid.Nil {
			return response.Error(c, "User is not associated with any account", 401, nil)
		}
		events, err := h.Service.GetActorEvents(c.UserContext(), sess.AccountID)
		if err != nil {
			return response.Error(c, "Internal Server Error", 500, nil)
		}
		return response.Success(c, "Listing events fetched successfully", fiber.Map{"events": orEmpty(events)}, nil)
	}

	listingID, err := uuid.Parse(raw)
	if err != nil {
		return response.Error(c, "Invalid UUID format for listing_id", 400, nil)
	}
	events, err := h.Service.GetListingEvents(c.UserContext(), listingID)
	if err != nil {
		switch {
		case errors.Is(err, lesvc.ErrListingRequired):
			return response.Error(c, err.Error(), 400, nil)
		case errors.Is(err, domain.ErrListingNotFound):
			return response.Error(c, err.Error(), 404, nil)
		default:
			return response.Error(c, "Internal Server Error", 500, nil)
		}
	}
	return response.Success(c, "Listing events fetched successfully", fiber.Map{"events": orEmpty(events)}, nil)
}

func orEmpty(events []domain.ListingEvent) []domain.ListingEvent {
	if events == nil {
		return []domain.ListingEvent{}
	}
	return events
}
