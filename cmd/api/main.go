package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bluetrust-backend/internal/application/accounts"
	"bluetrust-backend/internal/application/dashboard"
	"bluetrust-backend/internal/config"
	"bluetrust-backend/internal/infrastructure/database"
	"bluetrust-backend/internal/interfaces/router"
	"bluetrust-backend/internal/seed"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:           "bluetrust-api",
	Short:         "BlueTrust blue carbon credit marketplace API",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		setupLogger(cfg)
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API (default)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		log.Info().Msg("Database schema up to date")
		return closeDB(db)
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the demo listings and verification queue into an empty database",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer closeDB(db)
		return runSeed(cmd.Context(), db, &accounts.Service{
			DB:              db,
			StartingBalance: cfg.StartingBalance,
			StartingCredits: cfg.StartingCredits,
		})
	},
}

func setupLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if !cfg.IsProduction() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

func openDB() (*gorm.DB, error) {
	db, err := database.Open(cfg.DatabaseURL, cfg.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("database: migrate: %w", err)
	}
	return db, nil
}

func closeDB(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func runSeed(ctx context.Context, db *gorm.DB, accts *accounts.Service) error {
	catalog, err := seed.Load()
	if err != nil {
		return err
	}
	return (&seed.Seeder{DB: db, Accounts: accts}).Run(ctx, catalog)
}

func serve(ctx context.Context) error {
	app, svc, db, rdb, err := router.CreateApp(cfg)
	if err != nil {
		return err
	}
	defer rdb.Close()
	defer closeDB(db)

	if db.Dialector.Name() == "postgres" {
		log.Info().Msg("Postgres connected")
	} else {
		log.Info().Str("path", cfg.SQLitePath).Msg("SQLite opened")
	}
	log.Info().Msg("Redis connected")

	if cfg.SeedOnStart {
		if err := runSeed(ctx, db, svc.Accounts); err != nil {
			return err
		}
	}

	sched, err := dashboard.NewScheduler(cfg.StatsRefreshSpec, 30*time.Second, func(ctx context.Context) error {
		_, err := svc.Dashboard.RefreshGovernment(ctx)
		return err
	})
	if err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	errc := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Str("sell_mode", cfg.SellMode).Msg("Server running")
		errc <- app.Listen(":" + cfg.Port)
	}()

	sig, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	select {
	case err := <-errc:
		return err
	case <-sig.Done():
	}

	log.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return app.ShutdownWithContext(shutdownCtx)
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		log.Error().Err(err).Msg("bluetrust-api failed")
		os.Exit(1)
	}
}
