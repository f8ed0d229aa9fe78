// Package seed loads the demo marketplace catalog and verification queue.
package seed

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"bluetrust-backend/internal/application/accounts"
	"bluetrust-backend/internal/application/listings"
	"bluetrust-backend/internal/domain"
	"bluetrust-backend/internal/pkg/constants"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

//go:embed catalog.yaml
var catalogYAML []byte

type Listing struct {
	ProjectName      string    `yaml:"project_name"`
	Location         string    `yaml:"location"`
	Organization     string    `yaml:"organization"`
	Rating           string    `yaml:"rating"`
	PricePerCredit   int64     `yaml:"price_per_credit"`
	AvailableCredits int64     `yaml:"available_credits"`
	TotalCredits     int64     `yaml:"total_credits"`
	CoBenefits       []string  `yaml:"co_benefits"`
	VerificationDate time.Time `yaml:"verification_date"`
	HectaresRestored float64   `yaml:"hectares_restored"`
	TreesPlanted     int64     `yaml:"trees_planted"`
	CommunityMembers int64     `yaml:"community_members"`
}

type Submission struct {
	Name              string   `yaml:"name"`
	Organization      string   `yaml:"organization"`
	SubmittedBy       string   `yaml:"submitted_by"`
	Description       string   `yaml:"description"`
	Latitude          float64  `yaml:"latitude"`
	Longitude         float64  `yaml:"longitude"`
	Photos            []string `yaml:"photos"`
	ReportType        string   `yaml:"report_type"`
	EstimatedCredits  int64    `yaml:"estimated_credits"`
	HectaresRestored  float64  `yaml:"hectares_restored"`
	TreesPlanted      int64    `yaml:"trees_planted"`
	CommunityMembers  int64    `yaml:"community_members"`
	SubmittedHoursAgo int      `yaml:"submitted_hours_ago"`
}

type Catalog struct {
	Listings    []Listing    `yaml:"listings"`
	Submissions []Submission `yaml:"submissions"`
}

// Load parses the embedded catalog.
func Load() (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(catalogYAML, &c); err != nil {
		return nil, fmt.Errorf("seed: parse catalog: %w", err)
	}
	return &c, nil
}

// Seeder writes a catalog into an empty database.
type Seeder struct {
	DB       *gorm.DB
	Accounts *accounts.Service
	Now      func() time.Time
}

func (s *Seeder) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Run seeds listings and pending submissions. Each half is skipped when its
// table already has rows, so running it twice changes nothing.
func (s *Seeder) Run(ctx context.Context, c *Catalog) error {
	db := s.DB.WithContext(ctx)

	var n int64
	if err := db.Model(&domain.CreditListing{}).Count(&n).Error; err != nil {
		return fmt.Errorf("seed: count listings: %w", err)
	}
	if n == 0 {
		ls := &listings.Service{DB: s.DB}
		for _, l := range c.Listings {
			verified := l.VerificationDate
			if _, err := ls.CreateListing(ctx, listings.CreateListingInput{
				ProjectName:      l.ProjectName,
				Location:         l.Location,
				Organization:     l.Organization,
				Rating:           l.Rating,
				PricePerCredit:   l.PricePerCredit,
				AvailableCredits: l.AvailableCredits,
				TotalCredits:     l.TotalCredits,
				CoBenefits:       l.CoBenefits,
				VerificationDate: &verified,
				HectaresRestored: l.HectaresRestored,
				TreesPlanted:     l.TreesPlanted,
				CommunityMembers: l.CommunityMembers,
			}); err != nil {
				return fmt.Errorf("seed: listing %q: %w", l.ProjectName, err)
			}
		}
		log.Info().Int("count", len(c.Listings)).Msg("seed: listings created")
	}

	if err := db.Model(&domain.ProjectSubmission{}).Count(&n).Error; err != nil {
		return fmt.Errorf("seed: count submissions: %w", err)
	}
	if n > 0 {
		return nil
	}
	now := s.now()
	for _, sub := range c.Submissions {
		acct, err := s.Accounts.Ensure(ctx, sub.Organization, constants.NGO)
		if err != nil {
			return fmt.Errorf("seed: submission %q: %w", sub.Name, err)
		}
		row := domain.ProjectSubmission{
			AccountID:        acct.AccountID,
			Organization:     sub.Organization,
			SubmittedBy:      sub.SubmittedBy,
			SubmitterEmail:   sub.SubmittedBy,
			Name:             sub.Name,
			Description:      sub.Description,
			Latitude:         sub.Latitude,
			Longitude:        sub.Longitude,
			Photos:           datatypes.JSONSlice[string](sub.Photos),
			ReportType:       sub.ReportType,
			EstimatedCredits: sub.EstimatedCredits,
			HectaresRestored: sub.HectaresRestored,
			TreesPlanted:     sub.TreesPlanted,
			CommunityMembers: sub.CommunityMembers,
			Status:           domain.SubmissionPending,
			SubmittedAt:      now.Add(-time.Duration(sub.SubmittedHoursAgo) * time.Hour),
		}
		if err := db.Create(&row).Error; err != nil {
			return fmt.Errorf("seed: submission %q: %w", sub.Name, err)
		}
	}
	log.Info().Int("count", len(c.Submissions)).Msg("seed: verification queue created")
	return nil
}
