package dashboard

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"bluetrust-backend/internal/application/dashboard"
	"bluetrust-backend/internal/domain"
	"bluetrust-backend/internal/middleware"
	"bluetrust-backend/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_ByRole(t *testing.T) {
	db := testutil.NewDB(t)
	rdb, _ := testutil.NewRedis(t)
	ngo := domain.Account{Organization: "Sundarbans Conservation Society", Role: "ngo", OwnedCredits: 1550, EarnedCredits: 1550, Earnings: 4500}
	require.NoError(t, db.Create(&ngo).Error)

	h := &Handlers{Service: &dashboard.Service{DB: db, Rdb: rdb}}
	var sess *domain.Session
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		middleware.SetSession(c, sess)
		return c.Next()
	})
	app.Get("/dashboard", h.Get)

	sess = &domain.Session{Role: "ngo", AccountID: ngo.AccountID}
	resp, err := app.Test(httptest.NewRequest("GET", "/dashboard", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var out struct {
		Data dashboard.Dashboard `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.NotNil(t, out.Data.NGO)
	assert.Equal(t, int64(1550), out.Data.NGO.CreditsForSale)
	assert.Equal(t, int64(4500), out.Data.NGO.Earnings)
	assert.Nil(t, out.Data.Corporate)

	sess = &domain.Session{Role: "government"}
	resp, err = app.Test(httptest.NewRequest("GET", "/dashboard", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	sess = &domain.Session{Role: "admin"}
	resp, err = app.Test(httptest.NewRequest("GET", "/dashboard", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}
