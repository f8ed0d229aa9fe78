package transactions

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	txsvc "bluetrust-backend/internal/application/transactions"
	"bluetrust-backend/internal/domain"
	"bluetrust-backend/internal/middleware"
	"bluetrust-backend/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupTxTest(t *testing.T, sess *domain.Session) (*fiber.App, *gorm.DB) {
	db := testutil.NewDB(t)
	h := &Handlers{Service: &txsvc.Service{DB: db}}
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		middleware.SetSession(c, sess)
		return c.Next()
	})
	app.Get("/transactions", h.GetTransactions)
	return app, db
}

func TestGetTransactions_NoSession(t *testing.T) {
	app, _ := setupTxTest(t, nil)
	resp, err := app.Test(httptest.NewRequest("GET", "/transactions", nil))
	require.NoError(t, err)
	assert.Equal(t, 401, resp.StatusCode)
}

func TestGetTransactions_MissingAccount(t *testing.T) {
	app, _ := setupTxTest(t, &domain.Session{UserID: "u", Role: "corporate"})
	resp, err := app.Test(httptest.NewRequest("GET", "/transactions", nil))
	require.NoError(t, err)
	assert.Equal(t, 401, resp.StatusCode)
}

func TestGetTransactions_FilterAndShape(t *testing.T) {
	acct := uuid.New()
	app, db := setupTxTest(t, &domain.Session{UserID: "u", Role: "corporate", AccountID: acct})
	require.NoError(t, db.Create(&domain.Transaction{Type: domain.TxRetire, AccountID: acct, Quantity: 5}).Error)

	statusMap := map[string]int{
		"/transactions":             200,
		"/transactions?type=retire": 200,
		"/transactions?type=refund": 400,
	}
	for path, want := range statusMap {
		resp, err := app.Test(httptest.NewRequest("GET", path, nil))
		require.NoError(t, err)
		assert.Equal(t, want, resp.StatusCode, path)
	}

	resp, err := app.Test(httptest.NewRequest("GET", "/transactions?type=purchase", nil))
	require.NoError(t, err)
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "success", out["status"])
	assert.Equal(t, []interface{}{}, out["data"])
}
