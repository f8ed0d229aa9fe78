package accounts

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	acctsvc "bluetrust-backend/internal/application/accounts"
	"bluetrust-backend/internal/domain"
	"bluetrust-backend/internal/middleware"
	"bluetrust-backend/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMe(t *testing.T) {
	db := testutil.NewDB(t)
	acct := domain.Account{Organization: "TechCorp India Pvt Ltd", Role: "corporate", Balance: 2500000}
	require.NoError(t, db.Create(&acct).Error)

	h := &Handlers{Service: &acctsvc.Service{DB: db}}
	var sess *domain.Session
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		middleware.SetSession(c, sess)
		return c.Next()
	})
	app.Get("/me", h.Me)

	resp, err := app.Test(httptest.NewRequest("GET", "/me", nil))
	require.NoError(t, err)
	assert.Equal(t, 401, resp.StatusCode)

	sess = &domain.Session{Role: "corporate", AccountID: uuid.New()}
	resp, err = app.Test(httptest.NewRequest("GET", "/me", nil))
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)

	sess = &domain.Session{Role: "corporate", AccountID: acct.AccountID}
	resp, err = app.Test(httptest.NewRequest("GET", "/me", nil))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)
	var out struct {
		Data domain.Account `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, int64(2500000), out.Data.Balance)
}
