package marketplace

import (
	"errors"
	"strconv"

	dashsvc "bluetrust-backend/internal/application/dashboard"
	"bluetrust-backend/internal/application/listings"
	mktsvc "bluetrust-backend/internal/application/marketplace"
	"bluetrust-backend/internal/domain"
	"bluetrust-backend/internal/middleware"
	"bluetrust-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Handlers bundles marketplace handlers.
type Handlers struct {
	Service  *mktsvc.Service
	Listings *listings.Service
	Stats    *dashsvc.Service
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrInvalidPrice),
		errors.Is(err, domain.ErrInsufficientFunds),
		errors.Is(err, domain.ErrInsufficientSupply),
		errors.Is(err, domain.ErrInsufficientHoldings),
		errors.Is(err, mktsvc.ErrOwnListing):
		return fiber.StatusBadRequest
	case errors.Is(err, domain.ErrListingNotFound),
		errors.Is(err, domain.ErrAccountNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, listings.ErrNotSeller):
		return fiber.StatusForbidden
	case errors.Is(err, listings.ErrAlreadyClosed):
		return fiber.StatusConflict
	}
	return fiber.StatusInternalServerError
}

func fail(c *fiber.Ctx, err error) error {
	code := errorStatus(err)
	if code == fiber.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Path()).Msg("marketplace: request failed")
		return response.Error(c, "Internal Server Error", code, nil)
	}
	return response.Error(c, err.Error(), code, nil)
}

func listingID(c *fiber.Ctx) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Params("id"))
	return id, err == nil
}

func badListingID(c *fiber.Ctx) error {
	return response.Error(c, "Invalid UUID format for listing id", fiber.StatusBadRequest, nil)
}

// queryInt reads an integer query parameter; absent or malformed yields def.
func queryInt(c *fiber.Ctx, key string, def int64) int64 {
	v, err := strconv.ParseInt(c.Query(key), 10, 64)
	if err != nil {
		return def
	}
	return v
}

// GetListings GET /api/v1/marketplace/listings
func (h *Handlers) GetListings(c *fiber.Ctx) error {
	data, err := h.Listings.ListOpen(c.UserContext())
	if err != nil {
		return fail(c, err)
	}
	if data == nil {
		data = []domain.CreditListing{}
	}
	return response.Success(c, "Listings fetched", data, fiber.Map{"count": len(data)})
}

// GetListing GET /api/v1/marketplace/listings/:id
func (h *Handlers) GetListing(c *fiber.Ctx) error {
	id, ok := listingID(c)
	if !ok {
		return badListingID(c)
	}
	l, err := h.Listings.Get(c.UserContext(), id)
	if err != nil {
		return fail(c, err)
	}
	return response.Success(c, "Listing fetched", l, nil)
}

// QuotePurchase GET /api/v1/marketplace/listings/:id/quote?quantity=
func (h *Handlers) QuotePurchase(c *fiber.Ctx) error {
	id, ok := listingID(c)
	if !ok {
		return badListingID(c)
	}
	q, err := h.Service.QuotePurchase(c.UserContext(), id, queryInt(c, "quantity", 1))
	if err != nil {
		return fail(c, err)
	}
	return response.Success(c, "Quote", q, nil)
}

// Purchase POST /api/v1/marketplace/purchase
func (h *Handlers) Purchase(c *fiber.Ctx) error {
	var body struct {
		ListingID string `json:"listing_id"`
		Quantity  int64  `json:"quantity"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Missing required fields", fiber.StatusBadRequest, nil)
	}
	id, err := uuid.Parse(body.ListingID)
	if err != nil {
		return response.Error(c, "Invalid UUID format for listing_id", fiber.StatusBadRequest, nil)
	}

	sess := middleware.GetSession(c)
	res, err := h.Service.Purchase(c.UserContext(), sess.AccountID, id, body.Quantity)
	if err != nil {
		return fail(c, err)
	}
	if h.Stats != nil {
		h.Stats.Invalidate(c.UserContext())
	}
	return response.SuccessCreated(c, "Purchase successful", res, nil)
}

// QuoteSell GET /api/v1/marketplace/sell-quote?quantity=&price=
func (h *Handlers) QuoteSell(c *fiber.Ctx) error {
	sess := middleware.GetSession(c)
	q, err := h.Service.QuoteSell(c.UserContext(), sess.AccountID,
		queryInt(c, "price", mktsvc.DefaultSellPrice), queryInt(c, "quantity", 1))
	if err != nil {
		return fail(c, err)
	}
	return response.Success(c, "Quote", q, nil)
}

// Sell POST /api/v1/marketplace/sell
func (h *Handlers) Sell(c *fiber.Ctx) error {
	var body struct {
		PricePerCredit int64 `json:"price_per_credit"`
		Quantity       int64 `json:"quantity"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Missing required fields", fiber.StatusBadRequest, nil)
	}

	sess := middleware.GetSession(c)
	order, err := h.Service.CreateSellOrder(c.UserContext(), sess.AccountID, body.PricePerCredit, body.Quantity)
	if err != nil {
		return fail(c, err)
	}
	return response.SuccessCreated(c, "Sell order created", order, nil)
}

// Retire POST /api/v1/marketplace/retire
func (h *Handlers) Retire(c *fiber.Ctx) error {
	var body struct {
		Quantity int64 `json:"quantity"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Missing required fields", fiber.StatusBadRequest, nil)
	}

	sess := middleware.GetSession(c)
	acct, err := h.Service.Retire(c.UserContext(), sess.AccountID, body.Quantity)
	if err != nil {
		return fail(c, err)
	}
	return response.Success(c, "Credits retired", acct, nil)
}

// MyListings GET /api/v1/marketplace/my-listings
func (h *Handlers) MyListings(c *fiber.Ctx) error {
	sess := middleware.GetSession(c)
	data, err := h.Listings.ListBySeller(c.UserContext(), sess.AccountID)
	if err != nil {
		return fail(c, err)
	}
	if data == nil {
		data = []domain.CreditListing{}
	}
	return response.Success(c, "Listings fetched", data, fiber.Map{"count": len(data)})
}

// CancelListing DELETE /api/v1/marketplace/listings/:id
func (h *Handlers) CancelListing(c *fiber.Ctx) error {
	id, ok := listingID(c)
	if !ok {
		return badListingID(c)
	}
	sess := middleware.GetSession(c)
	l, err := h.Listings.Cancel(c.UserContext(), id, sess.AccountID)
	if err != nil {
		return fail(c, err)
	}
	return response.Success(c, "Listing closed", l, nil)
}
