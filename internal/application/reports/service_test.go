package reports

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"bluetrust-backend/internal/domain"
	"bluetrust-backend/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var fixedNow = time.Date(2024, 12, 20, 10, 0, 0, 0, time.UTC)

func seedPortfolio(t *testing.T, db *gorm.DB) domain.Account {
	t.Helper()
	acct := domain.Account{Organization: "TechCorp India Pvt Ltd", Role: "corporate", Balance: 2492000, OwnedCredits: 250, RetiredCredits: 50}
	require.NoError(t, db.Create(&acct).Error)
	verified := time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)
	l1 := domain.CreditListing{ProjectName: "Sundarbans Mangrove Restoration", Location: "West Bengal, India", Organization: "Sundarbans Conservation Society",
		Rating: "A+", PricePerCredit: 40, AvailableCredits: 650, TotalCredits: 1000, HectaresRestored: 120, CommunityMembers: 500, VerificationDate: &verified}
	l2 := domain.CreditListing{ProjectName: "Coastal Resilience Initiative", Location: "Gujarat, India", Organization: "Coastal Protection Foundation",
		Rating: "A", PricePerCredit: 35, AvailableCredits: 1100, TotalCredits: 1200}
	require.NoError(t, db.Create(&l1).Error)
	require.NoError(t, db.Create(&l2).Error)
	for _, tx := range []domain.Transaction{
		{Type: domain.TxPurchase, AccountID: acct.AccountID, ListingID: &l1.ListingID, Quantity: 150, UnitPrice: 40, Amount: 6000},
		{Type: domain.TxPurchase, AccountID: acct.AccountID, ListingID: &l2.ListingID, Quantity: 100, UnitPrice: 35, Amount: 3500},
		{Type: domain.TxPurchase, AccountID: acct.AccountID, ListingID: &l1.ListingID, Quantity: 50, UnitPrice: 40, Amount: 2000},
		{Type: domain.TxRetire, AccountID: acct.AccountID, Quantity: 50},
	} {
		tx := tx
		require.NoError(t, db.Create(&tx).Error)
	}
	return acct
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "TechCorp_India_Pvt_Ltd_ESG_Report_Q4_2024.txt", FileName("TechCorp India Pvt Ltd", FormatText))
	assert.Equal(t, "A_B_ESG_Report_Q4_2024.pdf", FileName("A \t B", FormatPDF))
}

func TestLoadPortfolio_GroupsByListing(t *testing.T) {
	db := testutil.NewDB(t)
	acct := seedPortfolio(t, db)
	svc := &Service{DB: db}

	p, err := svc.LoadPortfolio(context.Background(), acct.AccountID)
	require.NoError(t, err)
	assert.Equal(t, int64(300), p.Purchased)
	assert.Equal(t, int64(11500), p.Invested)
	require.Len(t, p.Holdings, 2)
	assert.Equal(t, "Sundarbans Mangrove Restoration", p.Holdings[0].ProjectName)
	assert.Equal(t, int64(200), p.Holdings[0].Credits)
	assert.InDelta(t, 24.0, p.Holdings[0].Hectares, 0.001)
}

func TestESG_Text(t *testing.T) {
	db := testutil.NewDB(t)
	acct := seedPortfolio(t, db)
	svc := &Service{DB: db, Now: func() time.Time { return fixedNow }}

	r, err := svc.ESG(context.Background(), acct.AccountID, "")
	require.NoError(t, err)
	assert.Equal(t, "TechCorp_India_Pvt_Ltd_ESG_Report_Q4_2024.txt", r.FileName)
	assert.Equal(t, "text/plain; charset=utf-8", r.ContentType)

	body := string(r.Body)
	last := -1
	for _, h := range Headers {
		i := strings.Index(body, "\n"+h+"\n")
		require.NotEqual(t, -1, i, h)
		assert.Greater(t, i, last, "%s out of order", h)
		last = i
	}
	assert.Contains(t, body, "Total credits purchased: 300")
	assert.Contains(t, body, "Total investment: INR 11,500")
	assert.Contains(t, body, "Total CO2 offset (retired): 50 tons CO2e")

	footer := "Document fingerprint (BLAKE2b-256): " + r.Fingerprint
	require.True(t, strings.HasSuffix(strings.TrimSpace(body), footer))
	signed := body[:strings.LastIndex(body, "\n"+strings.Repeat("=", 60))]
	assert.Equal(t, Fingerprint([]byte(signed)), r.Fingerprint)

	again, err := svc.ESG(context.Background(), acct.AccountID, FormatText)
	require.NoError(t, err)
	assert.Equal(t, r.Fingerprint, again.Fingerprint)
}

func TestESG_PDF(t *testing.T) {
	db := testutil.NewDB(t)
	acct := seedPortfolio(t, db)
	svc := &Service{DB: db, Now: func() time.Time { return fixedNow }}

	r, err := svc.ESG(context.Background(), acct.AccountID, FormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", r.ContentType)
	assert.True(t, strings.HasSuffix(r.FileName, ".pdf"))
	assert.True(t, bytes.HasPrefix(r.Body, []byte("%PDF-")))
}

func TestESG_Errors(t *testing.T) {
	svc := &Service{DB: testutil.NewDB(t)}
	_, err := svc.ESG(context.Background(), uuid.New(), "docx")
	assert.ErrorIs(t, err, ErrUnknownFormat)
	_, err = svc.ESG(context.Background(), uuid.New(), FormatText)
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestESG_EmptyPortfolio(t *testing.T) {
	db := testutil.NewDB(t)
	acct := domain.Account{Organization: "New Co", Role: "corporate"}
	require.NoError(t, db.Create(&acct).Error)
	r, err := (&Service{DB: db}).ESG(context.Background(), acct.AccountID, FormatText)
	require.NoError(t, err)
	assert.Contains(t, string(r.Body), "No credit purchases recorded in this period.")
}

func TestESG_LargeFiguresAreGrouped(t *testing.T) {
	db := testutil.NewDB(t)
	acct := domain.Account{Organization: "Big Co", Role: "corporate", Balance: 2492000, OwnedCredits: 1250000}
	require.NoError(t, db.Create(&acct).Error)
	r, err := (&Service{DB: db}).ESG(context.Background(), acct.AccountID, FormatText)
	require.NoError(t, err)
	assert.Contains(t, string(r.Body), "Credits currently held: 1,250,000")
	assert.Contains(t, string(r.Body), "CO2 offset potential (held): 1,250,000 tons CO2e")
}
