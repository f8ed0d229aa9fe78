// Package verification runs the reviewer workflow over project submissions.
package verification

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"time"

	"bluetrust-backend/internal/application/emails"
	"bluetrust-backend/internal/domain"
	"bluetrust-backend/internal/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// ErrInvalidStatusFilter is returned by Queue for an unknown status.
var ErrInvalidStatusFilter = errors.New("Status must be pending, approved or rejected")

// Scorer produces the display-only advisory score shown next to a submission.
type Scorer interface {
	Score(ctx context.Context, s *domain.ProjectSubmission) (int, error)
}

// RandomScorer returns a uniform score in [Min, Max]; zero values mean 80..100.
type RandomScorer struct {
	Min, Max int
}

func (r RandomScorer) Score(_ context.Context, _ *domain.ProjectSubmission) (int, error) {
	lo, hi := r.Min, r.Max
	if lo == 0 && hi == 0 {
		lo, hi = 80, 100
	}
	if hi < lo {
		lo, hi = hi, lo
	}
	return lo + rand.Intn(hi-lo+1), nil
}

// Advisory is attached to a review and never decides anything.
type Advisory struct {
	Score         *int   `json:"score"`
	Authoritative bool   `json:"authoritative"`
	Label         string `json:"label"`
}

// Review is a submission as the reviewer sees it.
type Review struct {
	Submission domain.ProjectSubmission     `json:"submission"`
	Advisory   Advisory                     `json:"advisory"`
	Decision   *domain.VerificationDecision `json:"decision,omitempty"`
}

// Outcome is a committed decision with the NGO's post-award account.
type Outcome struct {
	Decision   domain.VerificationDecision `json:"decision"`
	Submission domain.ProjectSubmission    `json:"submission"`
	Account    *domain.Account             `json:"account,omitempty"`
}

type Service struct {
	DB     *gorm.DB
	Scorer Scorer
	Mailer emails.Sender
}

func (s *Service) scorer() Scorer {
	if s.Scorer == nil {
		return RandomScorer{}
	}
	return s.Scorer
}

func (s *Service) advisory(ctx context.Context, sub *domain.ProjectSubmission) Advisory {
	a := Advisory{Label: "AI Confidence (advisory)"}
	score, err := s.scorer().Score(ctx, sub)
	if err != nil {
		log.Warn().Err(err).Str("submission_id", sub.SubmissionID.String()).Msg("verification: advisory score unavailable")
		return a
	}
	a.Score = &score
	return a
}

// Queue lists submissions, most recent first. An empty status lists all.
func (s *Service) Queue(ctx context.Context, status string) ([]domain.ProjectSubmission, error) {
	q := s.DB.WithContext(ctx).Order("submitted_at DESC")
	switch status {
	case "":
	case domain.SubmissionPending, domain.SubmissionApproved, domain.SubmissionRejected:
		q = q.Where("status = ?", status)
	default:
		return nil, ErrInvalidStatusFilter
	}
	var out []domain.ProjectSubmission
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func loadSubmission(tx *gorm.DB, id uuid.UUID) (*domain.ProjectSubmission, error) {
	var sub domain.ProjectSubmission
	if err := tx.Where("submission_id = ?", id).First(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrSubmissionNotFound
		}
		return nil, err
	}
	return &sub, nil
}

// Review returns a submission with a freshly computed advisory score and,
// once decided, its decision.
func (s *Service) Review(ctx context.Context, id uuid.UUID) (*Review, error) {
	db := s.DB.WithContext(ctx)
	sub, err := loadSubmission(db, id)
	if err != nil {
		return nil, err
	}
	r := &Review{Submission: *sub, Advisory: s.advisory(ctx, sub)}
	if sub.Status != domain.SubmissionPending {
		var d domain.VerificationDecision
		if err := db.Where("submission_id = ?", id).First(&d).Error; err == nil {
			r.Decision = &d
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	return r, nil
}

// Decide records the reviewer's outcome. Only pending submissions can be
// decided; the status change, the decision row and any credit award commit
// together.
func (s *Service) Decide(ctx context.Context, id uuid.UUID, reviewer domain.Session, in domain.DecisionInput) (*Outcome, error) {
	in.Outcome = strings.ToLower(strings.TrimSpace(in.Outcome))
	in.Comments = strings.TrimSpace(in.Comments)
	in.Reason = strings.TrimSpace(in.Reason)

	var out Outcome
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub, err := loadSubmission(tx, id)
		if err != nil {
			return err
		}
		next, err := sub.Transition(in.Outcome)
		if err != nil {
			return err
		}
		credits, err := in.Resolve(sub)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		res := tx.Model(&domain.ProjectSubmission{}).
			Where("submission_id = ? AND status = ?", id, domain.SubmissionPending).
			Updates(map[string]interface{}{"status": next, "decided_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrSubmissionAlreadyDecided
		}

		decision := domain.VerificationDecision{
			SubmissionID:   id,
			ReviewerID:     reviewer.UserID,
			ReviewerName:   reviewer.Name,
			Outcome:        in.Outcome,
			CreditsAwarded: credits,
			Comments:       in.Comments,
			Reason:         in.Reason,
			AdvisoryScore:  s.advisory(ctx, sub).Score,
		}
		if err := tx.Create(&decision).Error; err != nil {
			return err
		}

		if in.Outcome == domain.OutcomeApprove {
			acct, err := award(tx, sub, credits)
			if err != nil {
				return err
			}
			out.Account = acct
		}

		sub.Status = next
		sub.DecidedAt = &now
		out.Decision = decision
		out.Submission = *sub
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordDecision(in.Outcome)
	log.Info().Str("submission_id", id.String()).Str("outcome", in.Outcome).
		Int64("credits", out.Decision.CreditsAwarded).Str("reviewer", reviewer.UserID).Msg("verification: decided")
	s.notify(ctx, &out)
	return &out, nil
}

func award(tx *gorm.DB, sub *domain.ProjectSubmission, credits int64) (*domain.Account, error) {
	var acct domain.Account
	if err := tx.Where("account_id = ?", sub.AccountID).First(&acct).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}
	if err := acct.Award(credits); err != nil {
		return nil, err
	}
	if credits > 0 {
		if err := tx.Model(&domain.Account{}).Where("account_id = ?", acct.AccountID).
			Updates(map[string]interface{}{
				"owned_credits":  gorm.Expr("owned_credits + ?", credits),
				"earned_credits": gorm.Expr("earned_credits + ?", credits),
			}).Error; err != nil {
			return nil, err
		}
	}
	subID := sub.SubmissionID
	if err := tx.Create(&domain.Transaction{
		Type:         domain.TxAward,
		AccountID:    acct.AccountID,
		SubmissionID: &subID,
		Quantity:     credits,
	}).Error; err != nil {
		return nil, err
	}
	return &acct, nil
}

// notify mails the submitter. Failures are logged only.
func (s *Service) notify(ctx context.Context, out *Outcome) {
	if s.Mailer == nil || out.Submission.SubmitterEmail == "" {
		return
	}
	n := emails.DecisionNotice{
		ProjectName:    out.Submission.Name,
		Outcome:        out.Decision.Outcome,
		CreditsAwarded: out.Decision.CreditsAwarded,
		Comments:       out.Decision.Comments,
		Reason:         out.Decision.Reason,
		ReviewerName:   out.Decision.ReviewerName,
	}
	if err := s.Mailer.SendDecision(ctx, out.Submission.SubmitterEmail, out.Submission.SubmittedBy, n); err != nil {
		log.Error().Err(err).Str("submission_id", out.Submission.SubmissionID.String()).Msg("verification: decision email failed")
	}
}
