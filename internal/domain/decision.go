package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	OutcomeApprove = "approve"
	OutcomeReject  = "reject"
)

// VerificationDecision is written once per submission and never updated.
// AdvisoryScore is display-only metadata and has no bearing on the outcome.
type VerificationDecision struct {
	DecisionID     uuid.UUID `gorm:"column:decision_id;type:uuid;primaryKey" json:"decision_id"`
	SubmissionID   uuid.UUID `gorm:"column:submission_id;type:uuid;not null;uniqueIndex" json:"submission_id"`
	ReviewerID     string    `gorm:"column:reviewer_id;not null" json:"reviewer_id"`
	ReviewerName   string    `gorm:"column:reviewer_name" json:"reviewer_name"`
	Outcome        string    `gorm:"column:outcome;type:varchar(10);not null" json:"outcome"`
	CreditsAwarded int64     `gorm:"column:credits_awarded;not null;default:0" json:"credits_awarded"`
	Comments       string    `gorm:"column:comments" json:"comments,omitempty"`
	Reason         string    `gorm:"column:reason" json:"reason,omitempty"`
	AdvisoryScore  *int      `gorm:"column:advisory_score" json:"advisory_score"`
	CreatedAt      time.Time `gorm:"column:createdAt" json:"createdAt"`
}

func (VerificationDecision) TableName() string {
	return "VerificationDecisions"
}

func (d *VerificationDecision) BeforeCreate(tx *gorm.DB) error {
	if d.DecisionID == uuid.Nil {
		d.DecisionID = uuid.New()
	}
	return nil
}

// DecisionInput is the reviewer payload for one outcome.
// A nil CreditsAwarded on approve falls back to the submission's estimate.
type DecisionInput struct {
	Outcome        string `json:"outcome"`
	Comments       string `json:"comments"`
	Reason         string `json:"reason"`
	CreditsAwarded *int64 `json:"credits_awarded"`
}

// Resolve validates in against s and returns the credits to award.
func (in DecisionInput) Resolve(s *ProjectSubmission) (int64, error) {
	switch in.Outcome {
	case OutcomeApprove:
		if strings.TrimSpace(in.Comments) == "" {
			return 0, ErrMissingJustification
		}
		credits := s.EstimatedCredits
		if in.CreditsAwarded != nil {
			credits = *in.CreditsAwarded
		}
		if credits < 0 {
			return 0, ErrInvalidQuantity
		}
		return credits, nil
	case OutcomeReject:
		if strings.TrimSpace(in.Reason) == "" {
			return 0, ErrMissingJustification
		}
		return 0, nil
	}
	return 0, ErrInvalidOutcome
}
