package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ListingStatusOpen   = "open"
	ListingStatusClosed = "closed"
)

// CreditListing offers credits from one restoration project at a fixed unit price.
// SellerAccountID is set only for listings created by a seller's sell order.
type CreditListing struct {
	ListingID        uuid.UUID                   `gorm:"column:listing_id;type:uuid;primaryKey" json:"listing_id"`
	ProjectName      string                      `gorm:"column:project_name;not null" json:"project_name"`
	Location         string                      `gorm:"column:location;not null" json:"location"`
	Organization     string                      `gorm:"column:organization;not null" json:"organization"`
	Rating           string                      `gorm:"column:rating;type:varchar(8)" json:"rating"`
	PricePerCredit   int64                       `gorm:"column:price_per_credit;not null" json:"price_per_credit"`
	AvailableCredits int64                       `gorm:"column:available_credits;not null" json:"available_credits"`
	TotalCredits     int64                       `gorm:"column:total_credits;not null" json:"total_credits"`
	CoBenefits       datatypes.JSONSlice[string] `gorm:"column:co_benefits;type:json" json:"co_benefits"`
	VerificationDate *time.Time                  `gorm:"column:verification_date" json:"verification_date"`
	HectaresRestored float64                     `gorm:"column:hectares_restored" json:"hectares_restored"`
	TreesPlanted     int64                       `gorm:"column:trees_planted" json:"trees_planted"`
	CommunityMembers int64                       `gorm:"column:community_members" json:"community_members"`
	SellerAccountID  *uuid.UUID                  `gorm:"column:seller_account_id;type:uuid;index" json:"seller_account_id"`
	Status           string                      `gorm:"column:status;type:varchar(20);default:'open'" json:"status"`
	CreatedAt        time.Time                   `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt        time.Time                   `gorm:"column:updatedAt" json:"updatedAt"`
}

func (CreditListing) TableName() string {
	return "Listings"
}

// BeforeCreate sets listing_id if not already set (DBs without default uuid).
func (l *CreditListing) BeforeCreate(tx *gorm.DB) error {
	if l.ListingID == uuid.Nil {
		l.ListingID = uuid.New()
	}
	if l.Status == "" {
		l.Status = ListingStatusOpen
	}
	return nil
}

// Valid reports whether 0 <= available <= total.
func (l *CreditListing) Valid() bool {
	return l.AvailableCredits >= 0 && l.TotalCredits >= 0 && l.AvailableCredits <= l.TotalCredits
}
