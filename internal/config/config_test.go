package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("NODE_ENV", "")
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, int64(2500000), cfg.StartingBalance)
	assert.Equal(t, int64(1550), cfg.StartingCredits("ngo"))
	assert.Equal(t, int64(0), cfg.StartingCredits("corporate"))
	assert.Equal(t, int64(0), cfg.StartingCredits("government"))
	assert.Equal(t, SellModeInstant, cfg.SellMode)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "site-photos", cfg.PhotoBucket)
	assert.True(t, cfg.SeedOnStart)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("SELL_MODE", "Listing")
	t.Setenv("STARTING_BALANCE", "1000")
	t.Setenv("REQUEST_TIMEOUT", "2s")
	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.False(t, cfg.SeedOnStart)
	assert.Equal(t, SellModeListing, cfg.SellMode)
	assert.Equal(t, int64(1000), cfg.StartingBalance)
	assert.Equal(t, 2*time.Second, cfg.RequestTimeout)
}

func TestLoad_RejectsUnknownSellMode(t *testing.T) {
	t.Setenv("SELL_MODE", "auction")
	_, err := Load()
	assert.Error(t, err)
}
