// Package dashboard computes the KPI cards shown on each role's home screen.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"bluetrust-backend/internal/domain"
	"bluetrust-backend/internal/pkg/constants"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

// GovernmentCacheKey holds the cached platform-wide stats.
const GovernmentCacheKey = "dashboard:government"

// DefaultCacheTTL outlives the default refresh interval.
const DefaultCacheTTL = 10 * time.Minute

var ErrUnknownRole = errors.New("No dashboard for this role")

type NGOStats struct {
	CreditsEarned    int64 `json:"credits_earned"`
	CreditsForSale   int64 `json:"credits_for_sale"`
	Earnings         int64 `json:"earnings"`
	Projects         int64 `json:"projects"`
	PendingProjects  int64 `json:"pending_projects"`
	ApprovedProjects int64 `json:"approved_projects"`
}

type GovernmentStats struct {
	TotalSubmissions     int64     `json:"total_submissions"`
	PendingVerifications int64     `json:"pending_verifications"`
	Approved             int64     `json:"approved"`
	Rejected             int64     `json:"rejected"`
	CreditsAwarded       int64     `json:"credits_awarded"`
	MarketplaceVolume    int64     `json:"marketplace_volume"`
	CreditsTraded        int64     `json:"credits_traded"`
	RefreshedAt          time.Time `json:"refreshed_at"`
}

type CorporateStats struct {
	CreditsPurchased int64 `json:"credits_purchased"`
	CreditsHeld      int64 `json:"credits_held"`
	PortfolioValue   int64 `json:"portfolio_value"`
	CreditsRetired   int64 `json:"credits_retired"`
	CO2ImpactTons    int64 `json:"co2_impact_tons"`
	Balance          int64 `json:"balance"`
}

// Dashboard carries exactly one role's stats.
type Dashboard struct {
	Role       string           `json:"role"`
	NGO        *NGOStats        `json:"ngo,omitempty"`
	Government *GovernmentStats `json:"government,omitempty"`
	Corporate  *CorporateStats  `json:"corporate,omitempty"`
}

type Service struct {
	DB       *gorm.DB
	Rdb      *redis.Client
	CacheTTL time.Duration

	group singleflight.Group
}

type sums struct {
	Quantity int64
	Amount   int64
}

func (s *Service) ttl() time.Duration {
	if s.CacheTTL > 0 {
		return s.CacheTTL
	}
	return DefaultCacheTTL
}

// For returns the dashboard of the session's role.
func (s *Service) For(ctx context.Context, sess domain.Session) (*Dashboard, error) {
	d := &Dashboard{Role: sess.Role}
	var err error
	switch sess.Role {
	case constants.NGO:
		d.NGO, err = s.NGO(ctx, sess.AccountID)
	case constants.Government:
		d.Government, err = s.Government(ctx)
	case constants.Corporate:
		d.Corporate, err = s.Corporate(ctx, sess.AccountID)
	default:
		return nil, ErrUnknownRole
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Service) account(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	var a domain.Account
	if err := s.DB.WithContext(ctx).Where("account_id = ?", id).First(&a).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (s *Service) NGO(ctx context.Context, accountID uuid.UUID) (*NGOStats, error) {
	a, err := s.account(ctx, accountID)
	if err != nil {
		return nil, err
	}
	st := &NGOStats{CreditsEarned: a.EarnedCredits, CreditsForSale: a.OwnedCredits, Earnings: a.Earnings}
	counts, err := s.statusCounts(ctx, &accountID)
	if err != nil {
		return nil, err
	}
	for status, n := range counts {
		st.Projects += n
		switch status {
		case domain.SubmissionPending:
			st.PendingProjects = n
		case domain.SubmissionApproved:
			st.ApprovedProjects = n
		}
	}
	return st, nil
}

// statusCounts counts submissions per status, for one account or all.
func (s *Service) statusCounts(ctx context.Context, accountID *uuid.UUID) (map[string]int64, error) {
	type statusCount struct {
		Status string
		N      int64
	}
	var rows []statusCount
	q := s.DB.WithContext(ctx).Model(&domain.ProjectSubmission{}).Select("status, COUNT(*) AS n")
	if accountID != nil {
		q = q.Where("account_id = ?", *accountID)
	}
	if err := q.Group("status").Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Status] = r.N
	}
	return out, nil
}

func (s *Service) Corporate(ctx context.Context, accountID uuid.UUID) (*CorporateStats, error) {
	a, err := s.account(ctx, accountID)
	if err != nil {
		return nil, err
	}
	var bought sums
	if err := s.DB.WithContext(ctx).Model(&domain.Transaction{}).
		Select("COALESCE(SUM(quantity),0) AS quantity, COALESCE(SUM(amount),0) AS amount").
		Where("account_id = ? AND type = ?", accountID, domain.TxPurchase).
		Scan(&bought).Error; err != nil {
		return nil, err
	}
	st := &CorporateStats{
		CreditsPurchased: bought.Quantity,
		CreditsHeld:      a.OwnedCredits,
		CreditsRetired:   a.RetiredCredits,
		CO2ImpactTons:    a.RetiredCredits,
		Balance:          a.Balance,
	}
	if bought.Quantity > 0 {
		st.PortfolioValue = a.OwnedCredits * bought.Amount / bought.Quantity
	}
	return st, nil
}

// Government serves the cached platform stats, computing them once per cache
// miss however many requests arrive together.
func (s *Service) Government(ctx context.Context) (*GovernmentStats, error) {
	if s.Rdb != nil {
		raw, err := s.Rdb.Get(ctx, GovernmentCacheKey).Bytes()
		if err == nil {
			var st GovernmentStats
			if jerr := json.Unmarshal(raw, &st); jerr == nil {
				return &st, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Msg("dashboard: cache read failed")
		}
	}
	v, err, _ := s.group.Do(GovernmentCacheKey, func() (interface{}, error) {
		return s.RefreshGovernment(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*GovernmentStats), nil
}

// RefreshGovernment recomputes the platform stats and replaces the cache entry.
func (s *Service) RefreshGovernment(ctx context.Context) (*GovernmentStats, error) {
	st, err := s.computeGovernment(ctx)
	if err != nil {
		return nil, err
	}
	if s.Rdb != nil {
		b, err := json.Marshal(st)
		if err != nil {
			return nil, err
		}
		if err := s.Rdb.Set(ctx, GovernmentCacheKey, b, s.ttl()).Err(); err != nil {
			log.Warn().Err(err).Msg("dashboard: cache write failed")
		}
	}
	return st, nil
}

func (s *Service) computeGovernment(ctx context.Context) (*GovernmentStats, error) {
	counts, err := s.statusCounts(ctx, nil)
	if err != nil {
		return nil, err
	}
	st := &GovernmentStats{RefreshedAt: time.Now().UTC()}
	for status, n := range counts {
		st.TotalSubmissions += n
		switch status {
		case domain.SubmissionPending:
			st.PendingVerifications = n
		case domain.SubmissionApproved:
			st.Approved = n
		case domain.SubmissionRejected:
			st.Rejected = n
		}
	}

	db := s.DB.WithContext(ctx)
	var awarded sums
	if err := db.Model(&domain.VerificationDecision{}).
		Select("COALESCE(SUM(credits_awarded),0) AS quantity").
		Where("outcome = ?", domain.OutcomeApprove).
		Scan(&awarded).Error; err != nil {
		return nil, err
	}
	st.CreditsAwarded = awarded.Quantity

	var traded sums
	if err := db.Model(&domain.Transaction{}).
		Select("COALESCE(SUM(quantity),0) AS quantity, COALESCE(SUM(amount),0) AS amount").
		Where("type = ?", domain.TxPurchase).
		Scan(&traded).Error; err != nil {
		return nil, err
	}
	st.CreditsTraded = traded.Quantity
	st.MarketplaceVolume = traded.Amount
	return st, nil
}

// Invalidate drops the cached platform stats so the next read recomputes them.
func (s *Service) Invalidate(ctx context.Context) {
	if s.Rdb == nil {
		return
	}
	if err := s.Rdb.Del(ctx, GovernmentCacheKey).Err(); err != nil {
		log.Warn().Err(err).Msg("dashboard: cache invalidate failed")
	}
}
