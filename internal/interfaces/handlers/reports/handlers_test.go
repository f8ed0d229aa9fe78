package reports

import (
	"bytes"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"bluetrust-backend/internal/application/reports"
	"bluetrust-backend/internal/domain"
	"bluetrust-backend/internal/middleware"
	"bluetrust-backend/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupReports(t *testing.T, accountID *uuid.UUID) *fiber.App {
	db := testutil.NewDB(t)
	acct := domain.Account{Organization: "TechCorp India Pvt Ltd", Role: "corporate", Balance: 2492000, OwnedCredits: 200}
	require.NoError(t, db.Create(&acct).Error)
	l := domain.CreditListing{ProjectName: "Sundarbans Mangrove Restoration", Organization: "Sundarbans Conservation Society",
		PricePerCredit: 40, AvailableCredits: 650, TotalCredits: 1000}
	require.NoError(t, db.Create(&l).Error)
	require.NoError(t, db.Create(&domain.Transaction{Type: domain.TxPurchase, AccountID: acct.AccountID, ListingID: &l.ListingID,
		Quantity: 200, UnitPrice: 40, Amount: 8000}).Error)
	if *accountID == uuid.Nil {
		*accountID = acct.AccountID
	}

	h := &Handlers{Service: &reports.Service{DB: db, Now: func() time.Time { return time.Date(2024, 12, 20, 0, 0, 0, 0, time.UTC) }}}
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		middleware.SetSession(c, &domain.Session{Role: "corporate", AccountID: *accountID})
		return c.Next()
	})
	app.Get("/esg", h.ESG)
	return app
}

func TestESG_Text(t *testing.T) {
	var id uuid.UUID
	app := setupReports(t, &id)

	resp, err := app.Test(httptest.NewRequest("GET", "/esg", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, `attachment; filename="TechCorp_India_Pvt_Ltd_ESG_Report_Q4_2024.txt"`, resp.Header.Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/plain"))

	body, _ := io.ReadAll(resp.Body)
	for _, header := range reports.Headers {
		assert.Contains(t, string(body), header)
	}
	assert.Contains(t, string(body), resp.Header.Get("X-Content-Fingerprint"))
}

func TestESG_PDF(t *testing.T) {
	var id uuid.UUID
	app := setupReports(t, &id)

	resp, err := app.Test(httptest.NewRequest("GET", "/esg?format=pdf", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	body, _ := io.ReadAll(resp.Body)
	assert.True(t, bytes.HasPrefix(body, []byte("%PDF-")))
}

func TestESG_Errors(t *testing.T) {
	var id uuid.UUID
	app := setupReports(t, &id)
	resp, err := app.Test(httptest.NewRequest("GET", "/esg?format=docx", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	missing := uuid.New()
	app = setupReports(t, &missing)
	resp, err = app.Test(httptest.NewRequest("GET", "/esg", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
