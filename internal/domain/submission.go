package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	SubmissionPending  = "pending"
	SubmissionApproved = "approved"
	SubmissionRejected = "rejected"
)

// MaxPhotos is the number of photo attachments a submission keeps.
const MaxPhotos = 5

// ProjectSubmission is an NGO-authored site record awaiting a reviewer decision.
type ProjectSubmission struct {
	SubmissionID     uuid.UUID                   `gorm:"column:submission_id;type:uuid;primaryKey" json:"submission_id"`
	AccountID        uuid.UUID                   `gorm:"column:account_id;type:uuid;not null;index" json:"account_id"`
	Organization     string                      `gorm:"column:organization;not null" json:"organization"`
	SubmittedBy      string                      `gorm:"column:submitted_by" json:"submitted_by"`
	SubmitterEmail   string                      `gorm:"column:submitter_email" json:"-"`
	Name             string                      `gorm:"column:name;not null" json:"name"`
	Description      string                      `gorm:"column:description" json:"description"`
	Latitude         float64                     `gorm:"column:latitude;not null" json:"latitude"`
	Longitude        float64                     `gorm:"column:longitude;not null" json:"longitude"`
	Photos           datatypes.JSONSlice[string] `gorm:"column:photos;type:json;not null" json:"photos"`
	ReportType       string                      `gorm:"column:report_type" json:"report_type"`
	EstimatedCredits int64                       `gorm:"column:estimated_credits;not null;default:0" json:"estimated_credits"`
	HectaresRestored float64                     `gorm:"column:hectares_restored" json:"hectares_restored"`
	TreesPlanted     int64                       `gorm:"column:trees_planted" json:"trees_planted"`
	CommunityMembers int64                       `gorm:"column:community_members" json:"community_members"`
	Status           string                      `gorm:"column:status;type:varchar(20);not null;default:'pending';index" json:"status"`
	SubmittedAt      time.Time                   `gorm:"column:submitted_at;not null" json:"submitted_at"`
	DecidedAt        *time.Time                  `gorm:"column:decided_at" json:"decided_at"`
	CreatedAt        time.Time                   `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt        time.Time                   `gorm:"column:updatedAt" json:"updatedAt"`
}

func (ProjectSubmission) TableName() string {
	return "Submissions"
}

func (s *ProjectSubmission) BeforeCreate(tx *gorm.DB) error {
	if s.SubmissionID == uuid.Nil {
		s.SubmissionID = uuid.New()
	}
	if s.Status == "" {
		s.Status = SubmissionPending
	}
	return nil
}

// Transition returns the status an outcome moves a pending submission to.
// Approved and rejected are terminal.
func (s *ProjectSubmission) Transition(outcome string) (string, error) {
	if s.Status != SubmissionPending {
		return "", ErrSubmissionAlreadyDecided
	}
	switch outcome {
	case OutcomeApprove:
		return SubmissionApproved, nil
	case OutcomeReject:
		return SubmissionRejected, nil
	}
	return "", ErrInvalidOutcome
}

// TruncatePhotos keeps the first MaxPhotos entries.
func TruncatePhotos(photos []string) []string {
	if len(photos) > MaxPhotos {
		return photos[:MaxPhotos]
	}
	return photos
}
