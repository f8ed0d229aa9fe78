package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	SellModeInstant = "instant"
	SellModeListing = "listing"
)

// Config holds application configuration (env + Viper).
type Config struct {
	Env                 string
	Port                string
	LogLevel            string
	DatabaseURL         string // empty -> SQLite at SQLitePath
	SQLitePath          string
	RedisURL            string
	SupabaseURL         string
	SupabaseSecretKey   string // service_role key, storage signing fails with the anon key
	PhotoBucket         string
	FrontendURLEndsWith string
	DevPassword         string
	AllowCrossSiteDev   bool
	HealthAdminKey      string
	SendinblueAPIKey    string
	MailFrom            string

	StartingBalance          int64
	NGOStartingCredits       int64
	CorporateStartingCredits int64
	SellMode                 string

	RequestTimeout   time.Duration
	InFlightTTL      time.Duration
	RateLimitRPS     float64
	RateLimitBurst   int
	StatsRefreshSpec string
	SeedOnStart      bool
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("SQLITE_PATH", "bluetrust.db")
	v.SetDefault("PHOTO_BUCKET", "site-photos")
	v.SetDefault("MAIL_FROM", "noreply@bluetrust.in")
	v.SetDefault("STARTING_BALANCE", 2500000)
	v.SetDefault("NGO_STARTING_CREDITS", 1550)
	v.SetDefault("CORPORATE_STARTING_CREDITS", 0)
	v.SetDefault("SELL_MODE", SellModeInstant)
	v.SetDefault("REQUEST_TIMEOUT", "10s")
	v.SetDefault("INFLIGHT_TTL", "30s")
	v.SetDefault("RATE_LIMIT_RPS", 10)
	v.SetDefault("RATE_LIMIT_BURST", 20)
	v.SetDefault("STATS_REFRESH_SPEC", "@every 5m")
}

// Load loads config from env and optional .env file.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig()

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	env := v.GetString("APP_ENV")
	if env == "" {
		env = v.GetString("NODE_ENV")
	}
	if env == "" {
		env = "development"
	}

	sellMode := strings.ToLower(strings.TrimSpace(v.GetString("SELL_MODE")))
	if sellMode != SellModeInstant && sellMode != SellModeListing {
		return nil, fmt.Errorf("config: SELL_MODE must be %q or %q, got %q", SellModeInstant, SellModeListing, sellMode)
	}

	seed := env != "production"
	if v.IsSet("SEED_ON_START") {
		seed = v.GetBool("SEED_ON_START")
	}

	cfg := &Config{
		Env:                      env,
		Port:                     v.GetString("PORT"),
		LogLevel:                 v.GetString("LOG_LEVEL"),
		DatabaseURL:              v.GetString("DATABASE_URL"),
		SQLitePath:               v.GetString("SQLITE_PATH"),
		RedisURL:                 v.GetString("REDIS_URL"),
		SupabaseURL:              v.GetString("SUPABASE_URL"),
		SupabaseSecretKey:        v.GetString("SUPABASE_SECRET_KEY"),
		PhotoBucket:              v.GetString("PHOTO_BUCKET"),
		FrontendURLEndsWith:      v.GetString("FRONTEND_URL_ENDS_WITH"),
		DevPassword:              v.GetString("DEV_PASSWORD"),
		AllowCrossSiteDev:        strings.EqualFold(v.GetString("ALLOW_CROSS_SITE_DEV"), "true"),
		HealthAdminKey:           v.GetString("HEALTH_ADMIN_KEY"),
		SendinblueAPIKey:         v.GetString("SENDINBLUE_API_KEY"),
		MailFrom:                 v.GetString("MAIL_FROM"),
		StartingBalance:          v.GetInt64("STARTING_BALANCE"),
		NGOStartingCredits:       v.GetInt64("NGO_STARTING_CREDITS"),
		CorporateStartingCredits: v.GetInt64("CORPORATE_STARTING_CREDITS"),
		SellMode:                 sellMode,
		RequestTimeout:           v.GetDuration("REQUEST_TIMEOUT"),
		InFlightTTL:              v.GetDuration("INFLIGHT_TTL"),
		RateLimitRPS:             v.GetFloat64("RATE_LIMIT_RPS"),
		RateLimitBurst:           v.GetInt("RATE_LIMIT_BURST"),
		StatsRefreshSpec:         v.GetString("STATS_REFRESH_SPEC"),
		SeedOnStart:              seed,
	}
	if cfg.StartingBalance < 0 || cfg.NGOStartingCredits < 0 || cfg.CorporateStartingCredits < 0 {
		return nil, fmt.Errorf("config: starting balance and credits must be non-negative")
	}
	return cfg, nil
}

// IsProduction reports whether the app runs with production cookie/seed rules.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// StartingCredits returns the credits a fresh account of role receives.
func (c *Config) StartingCredits(role string) int64 {
	switch role {
	case "ngo":
		return c.NGOStartingCredits
	case "corporate":
		return c.CorporateStartingCredits
	}
	return 0
}
