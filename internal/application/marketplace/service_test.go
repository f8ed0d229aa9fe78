package marketplace

import (
	"context"
	"sync"
	"testing"

	"bluetrust-backend/internal/application/listings"
	"bluetrust-backend/internal/config"
	"bluetrust-backend/internal/domain"
	"bluetrust-backend/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	db       *gorm.DB
	svc      *Service
	listings *listings.Service
	buyer    domain.Account
	ngo      domain.Account
	listing  *domain.CreditListing
}

func setup(t *testing.T, mode string) *fixture {
	db := testutil.NewDB(t)
	f := &fixture{db: db, svc: &Service{DB: db, SellMode: mode}, listings: &listings.Service{DB: db}}
	f.buyer = domain.Account{Organization: "TechCorp India Pvt Ltd", Role: "corporate", Balance: 2500000}
	f.ngo = domain.Account{Organization: "Sundarbans Conservation Society", Role: "ngo", Balance: 2500000, OwnedCredits: 1550}
	require.NoError(t, db.Create(&f.buyer).Error)
	require.NoError(t, db.Create(&f.ngo).Error)
	l, err := f.listings.CreateListing(context.Background(), listings.CreateListingInput{
		ProjectName:      "Sundarbans Mangrove Restoration",
		Location:         "West Bengal, India",
		Organization:     "Sundarbans Conservation Society",
		Rating:           "A+",
		PricePerCredit:   40,
		AvailableCredits: 850,
		TotalCredits:     1000,
		CoBenefits:       []string{"Biodiversity", "Community Livelihoods"},
	})
	require.NoError(t, err)
	f.listing = l
	return f
}

func (f *fixture) account(t *testing.T, id uuid.UUID) domain.Account {
	var a domain.Account
	require.NoError(t, f.db.Where("account_id = ?", id).First(&a).Error)
	return a
}

func (f *fixture) reload(t *testing.T, id uuid.UUID) domain.CreditListing {
	var l domain.CreditListing
	require.NoError(t, f.db.Where("listing_id = ?", id).First(&l).Error)
	return l
}

func TestPurchase_Scenario(t *testing.T) {
	f := setup(t, config.SellModeInstant)
	res, err := f.svc.Purchase(context.Background(), f.buyer.AccountID, f.listing.ListingID, 200)
	require.NoError(t, err)

	assert.Equal(t, int64(2492000), res.Account.Balance)
	assert.Equal(t, int64(200), res.Account.OwnedCredits)
	assert.Equal(t, int64(650), res.Listing.AvailableCredits)
	assert.Equal(t, int64(8000), res.Transaction.Amount)

	assert.Equal(t, int64(2492000), f.account(t, f.buyer.AccountID).Balance)
	assert.Equal(t, int64(650), f.reload(t, f.listing.ListingID).AvailableCredits)

	var events []domain.ListingEvent
	require.NoError(t, f.db.Where("listing_id = ?", f.listing.ListingID).Order(`"createdAt" ASC`).Find(&events).Error)
	require.Len(t, events, 2)
	assert.Equal(t, domain.ListingEventPurchased, events[1].EventType)
}

func TestPurchase_InsufficientFunds(t *testing.T) {
	f := setup(t, config.SellModeInstant)
	require.NoError(t, f.db.Model(&domain.Account{}).Where("account_id = ?", f.buyer.AccountID).Update("balance", 100).Error)

	_, err := f.svc.Purchase(context.Background(), f.buyer.AccountID, f.listing.ListingID, 3)
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)

	a := f.account(t, f.buyer.AccountID)
	assert.Equal(t, int64(100), a.Balance)
	assert.Equal(t, int64(0), a.OwnedCredits)
	assert.Equal(t, int64(850), f.reload(t, f.listing.ListingID).AvailableCredits)

	var n int64
	f.db.Model(&domain.Transaction{}).Count(&n)
	assert.Equal(t, int64(0), n)
}

func TestPurchase_InsufficientSupply(t *testing.T) {
	f := setup(t, config.SellModeInstant)
	_, err := f.svc.Purchase(context.Background(), f.buyer.AccountID, f.listing.ListingID, 851)
	assert.ErrorIs(t, err, domain.ErrInsufficientSupply)
	assert.Equal(t, int64(2500000), f.account(t, f.buyer.AccountID).Balance)
	assert.Equal(t, int64(850), f.reload(t, f.listing.ListingID).AvailableCredits)
}

func TestPurchase_SellOutClosesListing(t *testing.T) {
	f := setup(t, config.SellModeInstant)
	res, err := f.svc.Purchase(context.Background(), f.buyer.AccountID, f.listing.ListingID, 850)
	require.NoError(t, err)
	assert.Equal(t, domain.ListingStatusClosed, res.Listing.Status)

	_, err = f.svc.Purchase(context.Background(), f.buyer.AccountID, f.listing.ListingID, 1)
	assert.ErrorIs(t, err, domain.ErrInsufficientSupply)
}

func TestPurchase_NotFound(t *testing.T) {
	f := setup(t, config.SellModeInstant)
	_, err := f.svc.Purchase(context.Background(), f.buyer.AccountID, uuid.New(), 1)
	assert.ErrorIs(t, err, domain.ErrListingNotFound)
	_, err = f.svc.Purchase(context.Background(), uuid.New(), f.listing.ListingID, 1)
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestPurchase_ConcurrentBuyersNeverOversell(t *testing.T) {
	f := setup(t, config.SellModeInstant)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	var sold int64
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.svc.Purchase(ctx, f.buyer.AccountID, f.listing.ListingID, 100); err == nil {
				mu.Lock()
				sold += 100
				mu.Unlock()
			} else {
				assert.ErrorIs(t, err, domain.ErrInsufficientSupply)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(800), sold)
	l := f.reload(t, f.listing.ListingID)
	a := f.account(t, f.buyer.AccountID)
	assert.Equal(t, int64(50), l.AvailableCredits)
	assert.Equal(t, sold, a.OwnedCredits)
	assert.Equal(t, int64(2500000)-sold*40, a.Balance)
}

func TestCreateSellOrder_InstantScenario(t *testing.T) {
	f := setup(t, config.SellModeInstant)
	order, err := f.svc.CreateSellOrder(context.Background(), f.ngo.AccountID, 45, 100)
	require.NoError(t, err)

	assert.Equal(t, config.SellModeInstant, order.Mode)
	assert.Nil(t, order.Listing)
	assert.Equal(t, int64(4500), order.Account.Earnings)
	assert.Equal(t, int64(1450), order.Account.OwnedCredits)
	assert.Equal(t, int64(4500), order.Transaction.Amount)
}

func TestCreateSellOrder_InsufficientHoldings(t *testing.T) {
	f := setup(t, config.SellModeInstant)
	_, err := f.svc.CreateSellOrder(context.Background(), f.ngo.AccountID, 45, 1551)
	assert.ErrorIs(t, err, domain.ErrInsufficientHoldings)
	a := f.account(t, f.ngo.AccountID)
	assert.Equal(t, int64(1550), a.OwnedCredits)
	assert.Equal(t, int64(0), a.Earnings)
}

func TestCreateSellOrder_Validation(t *testing.T) {
	f := setup(t, config.SellModeInstant)
	_, err := f.svc.CreateSellOrder(context.Background(), f.ngo.AccountID, 0, 10)
	assert.ErrorIs(t, err, domain.ErrInvalidPrice)
	_, err = f.svc.CreateSellOrder(context.Background(), f.ngo.AccountID, 45, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
}

func TestCreateSellOrder_ListingModeMatchesBuyers(t *testing.T) {
	f := setup(t, config.SellModeListing)
	ctx := context.Background()

	order, err := f.svc.CreateSellOrder(ctx, f.ngo.AccountID, 45, 100)
	require.NoError(t, err)
	require.NotNil(t, order.Listing)
	assert.Equal(t, int64(1450), order.Account.OwnedCredits)
	assert.Equal(t, int64(0), order.Account.Earnings)
	assert.Equal(t, int64(100), order.Listing.AvailableCredits)

	again, err := f.svc.CreateSellOrder(ctx, f.ngo.AccountID, 45, 50)
	require.NoError(t, err)
	assert.Equal(t, order.Listing.ListingID, again.Listing.ListingID)
	assert.Equal(t, int64(150), again.Listing.AvailableCredits)

	open, err := f.listings.ListOpen(ctx)
	require.NoError(t, err)
	assert.Len(t, open, 2)

	_, err = f.svc.Purchase(ctx, f.buyer.AccountID, order.Listing.ListingID, 60)
	require.NoError(t, err)
	seller := f.account(t, f.ngo.AccountID)
	assert.Equal(t, int64(60*45), seller.Earnings)
	assert.Equal(t, int64(1400), seller.OwnedCredits)

	_, err = f.svc.Purchase(ctx, f.ngo.AccountID, order.Listing.ListingID, 1)
	assert.ErrorIs(t, err, ErrOwnListing)
}

func TestCancelListing_ReturnsCredits(t *testing.T) {
	f := setup(t, config.SellModeListing)
	ctx := context.Background()
	order, err := f.svc.CreateSellOrder(ctx, f.ngo.AccountID, 50, 200)
	require.NoError(t, err)
	_, err = f.svc.Purchase(ctx, f.buyer.AccountID, order.Listing.ListingID, 20)
	require.NoError(t, err)

	_, err = f.listings.Cancel(ctx, order.Listing.ListingID, f.buyer.AccountID)
	assert.ErrorIs(t, err, listings.ErrNotSeller)

	closed, err := f.listings.Cancel(ctx, order.Listing.ListingID, f.ngo.AccountID)
	require.NoError(t, err)
	assert.Equal(t, domain.ListingStatusClosed, closed.Status)
	assert.Equal(t, int64(1550-20), f.account(t, f.ngo.AccountID).OwnedCredits)

	_, err = f.listings.Cancel(ctx, order.Listing.ListingID, f.ngo.AccountID)
	assert.ErrorIs(t, err, listings.ErrAlreadyClosed)
}

func TestRetire(t *testing.T) {
	f := setup(t, config.SellModeInstant)
	ctx := context.Background()
	_, err := f.svc.Purchase(ctx, f.buyer.AccountID, f.listing.ListingID, 200)
	require.NoError(t, err)

	a, err := f.svc.Retire(ctx, f.buyer.AccountID, 150)
	require.NoError(t, err)
	assert.Equal(t, int64(50), a.OwnedCredits)
	assert.Equal(t, int64(150), a.RetiredCredits)

	_, err = f.svc.Retire(ctx, f.buyer.AccountID, 51)
	assert.ErrorIs(t, err, domain.ErrInsufficientHoldings)
}

func TestQuotes(t *testing.T) {
	f := setup(t, config.SellModeInstant)
	ctx := context.Background()

	q, err := f.svc.QuotePurchase(ctx, f.listing.ListingID, 5000)
	require.NoError(t, err)
	assert.Equal(t, int64(850), q.Quantity)
	assert.Equal(t, int64(34000), q.Total)

	q, err = f.svc.QuotePurchase(ctx, f.listing.ListingID, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), q.Quantity)

	sq, err := f.svc.QuoteSell(ctx, f.ngo.AccountID, 0, 100)
	require.NoError(t, err)
	assert.Equal(t, DefaultSellPrice, sq.UnitPrice)
	assert.Equal(t, int64(4500), sq.Total)
	assert.Equal(t, int64(1550), sq.Max)
}
