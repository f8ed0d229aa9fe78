package accounts

import (
	"context"
	"errors"
	"fmt"

	"bluetrust-backend/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Service encapsulates account lookups and provisioning.
type Service struct {
	DB              *gorm.DB
	StartingBalance int64
	StartingCredits func(role string) int64
}

// Ensure returns the organization's account, creating it on first sign-in
// with the starting balance and the role's starting credits.
func (s *Service) Ensure(ctx context.Context, organization, role string) (*domain.Account, error) {
	if organization == "" {
		return nil, errors.New("organization is required")
	}
	var credits int64
	if s.StartingCredits != nil {
		credits = s.StartingCredits(role)
	}
	fresh := domain.Account{
		Organization: organization,
		Role:         role,
		Balance:      s.StartingBalance,
		OwnedCredits: credits,
	}
	db := s.DB.WithContext(ctx)
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "organization"}},
		DoNothing: true,
	}).Create(&fresh).Error; err != nil {
		return nil, fmt.Errorf("ensure account: %w", err)
	}
	var acct domain.Account
	if err := db.Where("organization = ?", organization).First(&acct).Error; err != nil {
		return nil, fmt.Errorf("ensure account: %w", err)
	}
	return &acct, nil
}

// Get returns an account by id.
func (s *Service) Get(ctx context.Context, accountID uuid.UUID) (*domain.Account, error) {
	if accountID == uuid.Nil {
		return nil, domain.ErrAccountNotFound
	}
	var acct domain.Account
	if err := s.DB.WithContext(ctx).Where("account_id = ?", accountID).First(&acct).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}
	return &acct, nil
}

// ByOrganization returns the organization's account.
func (s *Service) ByOrganization(ctx context.Context, organization string) (*domain.Account, error) {
	var acct domain.Account
	if err := s.DB.WithContext(ctx).Where("organization = ?", organization).First(&acct).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}
	return &acct, nil
}
