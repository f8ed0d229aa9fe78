// Package intake holds the NGO project form: a per-session draft and the
// submission that turns it into a pending verification request.
package intake

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"time"

	"bluetrust-backend/internal/domain"
	"bluetrust-backend/internal/infrastructure/kvstore"
	"bluetrust-backend/internal/metrics"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var worldBound = orb.Bound{Min: orb.Point{-180, -90}, Max: orb.Point{180, 90}}

// Location is a captured site coordinate.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Point returns the orb point (lng, lat).
func (l Location) Point() orb.Point {
	return orb.Point{l.Longitude, l.Latitude}
}

// Valid reports whether l is a finite coordinate on the globe.
func (l Location) Valid() bool {
	if math.IsNaN(l.Latitude) || math.IsNaN(l.Longitude) || math.IsInf(l.Latitude, 0) || math.IsInf(l.Longitude, 0) {
		return false
	}
	return worldBound.Contains(l.Point())
}

// Details are the free-form fields of the form.
type Details struct {
	Name             string  `json:"name"`
	Description      string  `json:"description"`
	ReportType       string  `json:"report_type"`
	EstimatedCredits int64   `json:"estimated_credits"`
	HectaresRestored float64 `json:"hectares_restored"`
	TreesPlanted     int64   `json:"trees_planted"`
	CommunityMembers int64   `json:"community_members"`
}

// Draft is the form state kept between requests.
type Draft struct {
	Details
	Location *Location `json:"location"`
	Photos   []string  `json:"photos"`
}

// SubmitInput is a complete form, whether from a draft or posted directly.
type SubmitInput struct {
	Details
	Location *Location `json:"location"`
	Photos   []string  `json:"photos"`
}

// Check applies the submit rules in order; the first failure wins.
func (in SubmitInput) Check() error {
	if strings.TrimSpace(in.Name) == "" {
		return domain.ErrMissingName
	}
	if in.Location == nil {
		return domain.ErrMissingLocation
	}
	if !in.Location.Valid() {
		return domain.ErrInvalidLocation
	}
	if len(cleanPhotos(in.Photos)) == 0 {
		return domain.ErrMissingPhotos
	}
	if in.EstimatedCredits < 0 {
		return domain.ErrInvalidQuantity
	}
	return nil
}

func cleanPhotos(photos []string) []string {
	out := make([]string, 0, len(photos))
	for _, p := range photos {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

type Service struct {
	DB *gorm.DB
}

// Draft returns the session's draft, empty when none is stored.
func (s *Service) Draft(ctx context.Context, store kvstore.Store) (*Draft, error) {
	raw, err := store.Get(ctx, kvstore.KeyProjectDraft)
	if errors.Is(err, kvstore.ErrNotFound) {
		return &Draft{Photos: []string{}}, nil
	}
	if err != nil {
		return nil, err
	}
	var d Draft
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		log.Warn().Err(err).Msg("intake: discarding unreadable draft")
		return &Draft{Photos: []string{}}, nil
	}
	if d.Photos == nil {
		d.Photos = []string{}
	}
	return &d, nil
}

func (s *Service) save(ctx context.Context, store kvstore.Store, d *Draft) error {
	b, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return store.Set(ctx, kvstore.KeyProjectDraft, string(b))
}

// SaveDetails replaces the free-form fields, keeping location and photos.
func (s *Service) SaveDetails(ctx context.Context, store kvstore.Store, details Details) (*Draft, error) {
	if details.EstimatedCredits < 0 {
		return nil, domain.ErrInvalidQuantity
	}
	d, err := s.Draft(ctx, store)
	if err != nil {
		return nil, err
	}
	d.Details = details
	if err := s.save(ctx, store, d); err != nil {
		return nil, err
	}
	return d, nil
}

// CaptureLocation sets the draft's coordinate. An invalid one leaves the draft unchanged.
func (s *Service) CaptureLocation(ctx context.Context, store kvstore.Store, loc Location) (*Draft, error) {
	if !loc.Valid() {
		return nil, domain.ErrInvalidLocation
	}
	d, err := s.Draft(ctx, store)
	if err != nil {
		return nil, err
	}
	d.Location = &loc
	if err := s.save(ctx, store, d); err != nil {
		return nil, err
	}
	return d, nil
}

// AddPhotos appends photo paths; anything past MaxPhotos is dropped.
func (s *Service) AddPhotos(ctx context.Context, store kvstore.Store, paths ...string) (*Draft, error) {
	d, err := s.Draft(ctx, store)
	if err != nil {
		return nil, err
	}
	d.Photos = domain.TruncatePhotos(append(d.Photos, cleanPhotos(paths)...))
	if err := s.save(ctx, store, d); err != nil {
		return nil, err
	}
	return d, nil
}

// RemovePhoto drops the photo at index.
func (s *Service) RemovePhoto(ctx context.Context, store kvstore.Store, index int) (*Draft, error) {
	d, err := s.Draft(ctx, store)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(d.Photos) {
		return nil, domain.ErrPhotoIndex
	}
	d.Photos = append(d.Photos[:index], d.Photos[index+1:]...)
	if err := s.save(ctx, store, d); err != nil {
		return nil, err
	}
	return d, nil
}

// Reset discards the draft.
func (s *Service) Reset(ctx context.Context, store kvstore.Store) error {
	return store.Delete(ctx, kvstore.KeyProjectDraft)
}

// Submit creates a pending submission for the session's organization.
func (s *Service) Submit(ctx context.Context, sess domain.Session, in SubmitInput) (*domain.ProjectSubmission, error) {
	if err := in.Check(); err != nil {
		return nil, err
	}
	photos := domain.TruncatePhotos(cleanPhotos(in.Photos))
	sub := &domain.ProjectSubmission{
		AccountID:        sess.AccountID,
		Organization:     sess.Organization,
		SubmittedBy:      sess.Name,
		SubmitterEmail:   sess.Email,
		Name:             strings.TrimSpace(in.Name),
		Description:      strings.TrimSpace(in.Description),
		Latitude:         in.Location.Latitude,
		Longitude:        in.Location.Longitude,
		Photos:           datatypes.JSONSlice[string](photos),
		ReportType:       in.ReportType,
		EstimatedCredits: in.EstimatedCredits,
		HectaresRestored: in.HectaresRestored,
		TreesPlanted:     in.TreesPlanted,
		CommunityMembers: in.CommunityMembers,
		Status:           domain.SubmissionPending,
		SubmittedAt:      time.Now().UTC(),
	}
	if err := s.DB.WithContext(ctx).Create(sub).Error; err != nil {
		return nil, err
	}
	metrics.RecordSubmission()
	log.Info().Str("submission_id", sub.SubmissionID.String()).Str("organization", sub.Organization).
		Int("photos", len(photos)).Msg("intake: project submitted")
	return sub, nil
}

// SubmitDraft submits the stored draft and resets it on success only.
func (s *Service) SubmitDraft(ctx context.Context, store kvstore.Store, sess domain.Session) (*domain.ProjectSubmission, error) {
	d, err := s.Draft(ctx, store)
	if err != nil {
		return nil, err
	}
	sub, err := s.Submit(ctx, sess, SubmitInput{Details: d.Details, Location: d.Location, Photos: d.Photos})
	if err != nil {
		return nil, err
	}
	if err := s.Reset(ctx, store); err != nil {
		log.Warn().Err(err).Msg("intake: draft reset after submit failed")
	}
	return sub, nil
}

// ListMine returns an account's submissions, most recent first.
func (s *Service) ListMine(ctx context.Context, accountID uuid.UUID) ([]domain.ProjectSubmission, error) {
	var out []domain.ProjectSubmission
	err := s.DB.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("submitted_at DESC").
		Find(&out).Error
	return out, err
}

// SitesGeoJSON renders an account's submissions as a FeatureCollection of points.
func (s *Service) SitesGeoJSON(ctx context.Context, accountID uuid.UUID) (*geojson.FeatureCollection, error) {
	subs, err := s.ListMine(ctx, accountID)
	if err != nil {
		return nil, err
	}
	fc := geojson.NewFeatureCollection()
	for _, sub := range subs {
		f := geojson.NewFeature(orb.Point{sub.Longitude, sub.Latitude})
		f.ID = sub.SubmissionID.String()
		f.Properties["name"] = sub.Name
		f.Properties["status"] = sub.Status
		f.Properties["estimated_credits"] = sub.EstimatedCredits
		f.Properties["photos"] = len(sub.Photos)
		f.Properties["submitted_at"] = sub.SubmittedAt.Format(time.RFC3339)
		fc.Append(f)
	}
	return fc, nil
}
