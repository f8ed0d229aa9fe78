package marketplace

import (
	"context"
	"errors"
	"fmt"

	"bluetrust-backend/internal/application/listings"
	"bluetrust-backend/internal/config"
	"bluetrust-backend/internal/domain"
	"bluetrust-backend/internal/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// DefaultSellPrice pre-fills the sell form.
const DefaultSellPrice int64 = 45

var ErrOwnListing = errors.New("You cannot purchase credits from your own listing")

// Service applies ledger operations. Every mutation is one database
// transaction whose updates are guarded on the balances they consume, so a
// concurrent request that got there first turns into the same domain error.
type Service struct {
	DB       *gorm.DB
	SellMode string
}

// PurchaseResult is the committed purchase with post-trade state.
type PurchaseResult struct {
	Transaction domain.Transaction   `json:"transaction"`
	Account     domain.Account       `json:"account"`
	Listing     domain.CreditListing `json:"listing"`
}

// SellOrder is the committed sell order. Listing is set in listing mode.
type SellOrder struct {
	Mode        string                `json:"mode"`
	Transaction domain.Transaction    `json:"transaction"`
	Account     domain.Account        `json:"account"`
	Listing     *domain.CreditListing `json:"listing,omitempty"`
}

// Quote is a stepper-clamped price preview.
type Quote struct {
	Quantity  int64 `json:"quantity"`
	Max       int64 `json:"max"`
	UnitPrice int64 `json:"unit_price"`
	Total     int64 `json:"total"`
}

func loadAccount(tx *gorm.DB, id uuid.UUID) (*domain.Account, error) {
	var a domain.Account
	if err := tx.Where("account_id = ?", id).First(&a).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}
	return &a, nil
}

func loadListing(tx *gorm.DB, id uuid.UUID) (*domain.CreditListing, error) {
	var l domain.CreditListing
	if err := tx.Where("listing_id = ?", id).First(&l).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrListingNotFound
		}
		return nil, err
	}
	return &l, nil
}

// Purchase buys quantity credits from a listing for the account.
func (s *Service) Purchase(ctx context.Context, accountID, listingID uuid.UUID, quantity int64) (res *PurchaseResult, err error) {
	defer func() { metrics.RecordLedger(domain.TxPurchase, quantity, err) }()

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		acct, err := loadAccount(tx, accountID)
		if err != nil {
			return err
		}
		l, err := loadListing(tx, listingID)
		if err != nil {
			return err
		}
		if l.SellerAccountID != nil && *l.SellerAccountID == accountID {
			return ErrOwnListing
		}
		if l.Status != domain.ListingStatusOpen {
			l.AvailableCredits = 0
		}

		rec, err := acct.Purchase(l, quantity)
		if err != nil {
			return err
		}

		debit := tx.Model(&domain.Account{}).
			Where("account_id = ? AND balance >= ?", accountID, rec.Amount).
			Updates(map[string]interface{}{
				"balance":       gorm.Expr("balance - ?", rec.Amount),
				"owned_credits": gorm.Expr("owned_credits + ?", quantity),
			})
		if debit.Error != nil {
			return debit.Error
		}
		if debit.RowsAffected == 0 {
			return domain.ErrInsufficientFunds
		}

		take := tx.Model(&domain.CreditListing{}).
			Where("listing_id = ? AND status = ? AND available_credits >= ?", listingID, domain.ListingStatusOpen, quantity).
			Updates(map[string]interface{}{
				"available_credits": gorm.Expr("available_credits - ?", quantity),
				"status":            gorm.Expr("CASE WHEN available_credits = ? THEN ? ELSE status END", quantity, domain.ListingStatusClosed),
			})
		if take.Error != nil {
			return take.Error
		}
		if take.RowsAffected == 0 {
			return domain.ErrInsufficientSupply
		}

		if l.SellerAccountID != nil {
			if err := tx.Model(&domain.Account{}).Where("account_id = ?", *l.SellerAccountID).
				Update("earnings", gorm.Expr("earnings + ?", rec.Amount)).Error; err != nil {
				return err
			}
		}

		if err := tx.Create(rec).Error; err != nil {
			return err
		}
		if err := listings.RecordEvent(tx, listingID, domain.ListingEventPurchased, &accountID, map[string]interface{}{
			"quantity":          quantity,
			"unit_price":        rec.UnitPrice,
			"available_credits": l.AvailableCredits,
		}); err != nil {
			return err
		}

		acct, err = loadAccount(tx, accountID)
		if err != nil {
			return err
		}
		l, err = loadListing(tx, listingID)
		if err != nil {
			return err
		}
		res = &PurchaseResult{Transaction: *rec, Account: *acct, Listing: *l}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("account_id", accountID.String()).Str("listing_id", listingID.String()).
		Int64("quantity", quantity).Int64("cost", res.Transaction.Amount).Msg("marketplace: purchase")
	return res, nil
}

// CreateSellOrder sells owned credits. In instant mode the proceeds are
// credited at once; in listing mode the credits move into an open listing and
// the proceeds arrive as buyers purchase from it.
func (s *Service) CreateSellOrder(ctx context.Context, accountID uuid.UUID, price, quantity int64) (order *SellOrder, err error) {
	defer func() { metrics.RecordLedger(domain.TxSell, quantity, err) }()

	mode := s.SellMode
	if mode == "" {
		mode = config.SellModeInstant
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		acct, err := loadAccount(tx, accountID)
		if err != nil {
			return err
		}
		if err := acct.CheckSell(price, quantity); err != nil {
			return err
		}
		proceeds, _ := domain.Cost(quantity, price)

		updates := map[string]interface{}{"owned_credits": gorm.Expr("owned_credits - ?", quantity)}
		if mode == config.SellModeInstant {
			updates["earnings"] = gorm.Expr("earnings + ?", proceeds)
		}
		res := tx.Model(&domain.Account{}).
			Where("account_id = ? AND owned_credits >= ?", accountID, quantity).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrInsufficientHoldings
		}

		rec := &domain.Transaction{
			Type:      domain.TxSell,
			AccountID: accountID,
			Quantity:  quantity,
			UnitPrice: price,
			Amount:    proceeds,
		}
		order = &SellOrder{Mode: mode}

		if mode == config.SellModeListing {
			l, err := s.listForSale(tx, acct, price, quantity)
			if err != nil {
				return err
			}
			rec.ListingID = &l.ListingID
			order.Listing = l
		}

		if err := tx.Create(rec).Error; err != nil {
			return err
		}
		acct, err = loadAccount(tx, accountID)
		if err != nil {
			return err
		}
		order.Transaction = *rec
		order.Account = *acct
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("account_id", accountID.String()).Str("mode", mode).
		Int64("quantity", quantity).Int64("price", price).Msg("marketplace: sell order")
	return order, nil
}

// listForSale extends the seller's open listing at the same price or opens a new one.
func (s *Service) listForSale(tx *gorm.DB, seller *domain.Account, price, quantity int64) (*domain.CreditListing, error) {
	var existing domain.CreditListing
	err := tx.Where("seller_account_id = ? AND price_per_credit = ? AND status = ?", seller.AccountID, price, domain.ListingStatusOpen).
		First(&existing).Error
	if err == nil {
		if err := tx.Model(&domain.CreditListing{}).Where("listing_id = ?", existing.ListingID).
			Updates(map[string]interface{}{
				"available_credits": gorm.Expr("available_credits + ?", quantity),
				"total_credits":     gorm.Expr("total_credits + ?", quantity),
			}).Error; err != nil {
			return nil, err
		}
		if err := listings.RecordEvent(tx, existing.ListingID, domain.ListingEventUpdated, &seller.AccountID, map[string]interface{}{
			"credits_added":     quantity,
			"available_credits": existing.AvailableCredits + quantity,
			"price_per_credit":  price,
		}); err != nil {
			return nil, err
		}
		existing.AvailableCredits += quantity
		existing.TotalCredits += quantity
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	l := &domain.CreditListing{
		ProjectName:      seller.Organization + " Blue Carbon Credits",
		Organization:     seller.Organization,
		Rating:           "A",
		PricePerCredit:   price,
		AvailableCredits: quantity,
		TotalCredits:     quantity,
		SellerAccountID:  &seller.AccountID,
		Status:           domain.ListingStatusOpen,
	}
	var site domain.ProjectSubmission
	if err := tx.Where("account_id = ? AND status = ?", seller.AccountID, domain.SubmissionApproved).
		Order("decided_at DESC").First(&site).Error; err == nil {
		l.ProjectName = site.Name
		l.Location = fmt.Sprintf("%.4f, %.4f", site.Latitude, site.Longitude)
		l.VerificationDate = site.DecidedAt
		l.HectaresRestored = site.HectaresRestored
		l.TreesPlanted = site.TreesPlanted
		l.CommunityMembers = site.CommunityMembers
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if err := tx.Create(l).Error; err != nil {
		return nil, err
	}
	if err := listings.RecordEvent(tx, l.ListingID, domain.ListingEventCreated, &seller.AccountID, map[string]interface{}{
		"available_credits": quantity,
		"price_per_credit":  price,
	}); err != nil {
		return nil, err
	}
	return l, nil
}

// Retire takes owned credits out of circulation.
func (s *Service) Retire(ctx context.Context, accountID uuid.UUID, quantity int64) (acct *domain.Account, err error) {
	defer func() { metrics.RecordLedger(domain.TxRetire, quantity, err) }()

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		a, err := loadAccount(tx, accountID)
		if err != nil {
			return err
		}
		rec, err := a.Retire(quantity)
		if err != nil {
			return err
		}
		res := tx.Model(&domain.Account{}).
			Where("account_id = ? AND owned_credits >= ?", accountID, quantity).
			Updates(map[string]interface{}{
				"owned_credits":   gorm.Expr("owned_credits - ?", quantity),
				"retired_credits": gorm.Expr("retired_credits + ?", quantity),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrInsufficientHoldings
		}
		if err := tx.Create(rec).Error; err != nil {
			return err
		}
		acct, err = loadAccount(tx, accountID)
		return err
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("account_id", accountID.String()).Int64("quantity", quantity).Msg("marketplace: retire")
	return acct, nil
}

// QuotePurchase clamps quantity to [1, available] and prices it.
func (s *Service) QuotePurchase(ctx context.Context, listingID uuid.UUID, quantity int64) (*Quote, error) {
	l, err := loadListing(s.DB.WithContext(ctx), listingID)
	if err != nil {
		return nil, err
	}
	q := domain.ClampQuantity(quantity, l.AvailableCredits)
	total, _ := domain.Cost(q, l.PricePerCredit)
	return &Quote{Quantity: q, Max: l.AvailableCredits, UnitPrice: l.PricePerCredit, Total: total}, nil
}

// QuoteSell clamps quantity to [1, owned]; a price below 1 uses the default.
func (s *Service) QuoteSell(ctx context.Context, accountID uuid.UUID, price, quantity int64) (*Quote, error) {
	a, err := loadAccount(s.DB.WithContext(ctx), accountID)
	if err != nil {
		return nil, err
	}
	if price < 1 {
		price = DefaultSellPrice
	}
	q := domain.ClampQuantity(quantity, a.OwnedCredits)
	total, _ := domain.Cost(q, price)
	return &Quote{Quantity: q, Max: a.OwnedCredits, UnitPrice: price, Total: total}, nil
}
