package listings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"bluetrust-backend/internal/domain"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrNotSeller        = errors.New("Unauthorized: You are not the seller of this listing")
	ErrAlreadyClosed    = errors.New("Listing is already closed")
	ErrInvalidListing   = errors.New("Listing must have a project name and 0 <= available <= total credits")
	ErrInvalidListPrice = errors.New("Listing price must be at least 1")
)

type Service struct {
	DB *gorm.DB
}

type CreateListingInput struct {
	ProjectName      string
	Location         string
	Organization     string
	Rating           string
	PricePerCredit   int64
	AvailableCredits int64
	TotalCredits     int64
	CoBenefits       []string
	VerificationDate *time.Time
	HectaresRestored float64
	TreesPlanted     int64
	CommunityMembers int64
	SellerAccountID  *uuid.UUID
}

// CreateListing inserts a listing and its CREATED event in one transaction.
func (s *Service) CreateListing(ctx context.Context, in CreateListingInput) (*domain.CreditListing, error) {
	listing := &domain.CreditListing{
		ProjectName:      in.ProjectName,
		Location:         in.Location,
		Organization:     in.Organization,
		Rating:           in.Rating,
		PricePerCredit:   in.PricePerCredit,
		AvailableCredits: in.AvailableCredits,
		TotalCredits:     in.TotalCredits,
		CoBenefits:       datatypes.JSONSlice[string](in.CoBenefits),
		VerificationDate: in.VerificationDate,
		HectaresRestored: in.HectaresRestored,
		TreesPlanted:     in.TreesPlanted,
		CommunityMembers: in.CommunityMembers,
		SellerAccountID:  in.SellerAccountID,
		Status:           domain.ListingStatusOpen,
	}
	if listing.CoBenefits == nil {
		listing.CoBenefits = datatypes.JSONSlice[string]{}
	}
	if listing.ProjectName == "" || !listing.Valid() {
		return nil, ErrInvalidListing
	}
	if listing.PricePerCredit < 1 {
		return nil, ErrInvalidListPrice
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(listing).Error; err != nil {
			return fmt.Errorf("Failed to create listing: %w", err)
		}
		return RecordEvent(tx, listing.ListingID, domain.ListingEventCreated, in.SellerAccountID, map[string]interface{}{
			"price_per_credit":  listing.PricePerCredit,
			"available_credits": listing.AvailableCredits,
		})
	})
	if err != nil {
		return nil, err
	}
	return listing, nil
}

// RecordEvent appends a listing event inside tx.
func RecordEvent(tx *gorm.DB, listingID uuid.UUID, eventType string, actor *uuid.UUID, data map[string]interface{}) error {
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return tx.Create(&domain.ListingEvent{
		ListingID:    listingID,
		EventType:    eventType,
		ActorAccount: actor,
		EventData:    datatypes.JSON(b),
	}).Error
}

// ListOpen returns open listings with credits left, cheapest first.
func (s *Service) ListOpen(ctx context.Context) ([]domain.CreditListing, error) {
	var out []domain.CreditListing
	err := s.DB.WithContext(ctx).
		Where("status = ? AND available_credits > 0", domain.ListingStatusOpen).
		Order("price_per_credit ASC").Order(`"createdAt" ASC`).
		Find(&out).Error
	return out, err
}

// ListBySeller returns listings created by the seller's sell orders.
func (s *Service) ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]domain.CreditListing, error) {
	var out []domain.CreditListing
	err := s.DB.WithContext(ctx).
		Where("seller_account_id = ?", sellerID).
		Order(`"createdAt" DESC`).
		Find(&out).Error
	return out, err
}

// Get returns a listing by id.
func (s *Service) Get(ctx context.Context, listingID uuid.UUID) (*domain.CreditListing, error) {
	var l domain.CreditListing
	if err := s.DB.WithContext(ctx).Where("listing_id = ?", listingID).First(&l).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrListingNotFound
		}
		return nil, err
	}
	return &l, nil
}

// Cancel closes a seller's open listing and returns its unsold credits to the
// seller's owned credits.
func (s *Service) Cancel(ctx context.Context, listingID, sellerID uuid.UUID) (*domain.CreditListing, error) {
	var out domain.CreditListing
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("listing_id = ?", listingID).First(&out).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrListingNotFound
			}
			return err
		}
		if out.SellerAccountID == nil || *out.SellerAccountID != sellerID {
			return ErrNotSeller
		}
		if out.Status != domain.ListingStatusOpen {
			return ErrAlreadyClosed
		}
		returned := out.AvailableCredits
		res := tx.Model(&domain.CreditListing{}).
			Where("listing_id = ? AND status = ? AND available_credits = ?", listingID, domain.ListingStatusOpen, returned).
			Updates(map[string]interface{}{"status": domain.ListingStatusClosed, "available_credits": 0})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyClosed
		}
		if returned > 0 {
			if err := tx.Model(&domain.Account{}).Where("account_id = ?", sellerID).
				Update("owned_credits", gorm.Expr("owned_credits + ?", returned)).Error; err != nil {
				return err
			}
		}
		out.Status = domain.ListingStatusClosed
		out.AvailableCredits = 0
		return RecordEvent(tx, listingID, domain.ListingEventClosed, &sellerID, map[string]interface{}{
			"credits_returned": returned,
		})
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
