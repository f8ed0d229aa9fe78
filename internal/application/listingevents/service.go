package listingevents

import (
	"context"
	"errors"

	"bluetrust-backend/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrListingRequired = errors.New("listing_id is required")

type Service struct {
	DB *gorm.DB
}

// GetListingEvents returns a listing's history, oldest first.
func (s *Service) GetListingEvents(ctx context.Context, listingID uuid.UUID) ([]domain.ListingEvent, error) {
	if listingID == uuid.Nil {
		return nil, ErrListingRequired
	}

	var l domain.CreditListing
	if err := s.DB.WithContext(ctx).Where("listing_id = ?", listingID).Select("listing_id").First(&l).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrListingNotFound
		}
		return nil, err
	}

	var events []domain.ListingEvent
	if err := s.DB.WithContext(ctx).Where("listing_id = ?", listingID).Order(`"createdAt" ASC`).Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

// GetActorEvents returns the events an account caused, newest first.
func (s *Service) GetActorEvents(ctx context.Context, accountID uuid.UUID) ([]domain.ListingEvent, error) {
	var events []domain.ListingEvent
	if err := s.DB.WithContext(ctx).Where("actor_account_id = ?", accountID).Order(`"createdAt" DESC`).Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}
