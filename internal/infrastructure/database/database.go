package database

import (
	"bluetrust-backend/internal/domain"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open opens a GORM DB. A Postgres DSN (Supabase pooler URL) wins; otherwise
// a local SQLite file is used.
// PreferSimpleProtocol disables prepared statement caching to avoid 42P05
// ("prepared statement already exists") behind connection poolers.
func Open(dsn, sqlitePath string) (*gorm.DB, error) {
	cfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)}
	if dsn != "" {
		return gorm.Open(postgres.New(postgres.Config{
			DSN:                  dsn,
			PreferSimpleProtocol: true,
		}), cfg)
	}
	db, err := gorm.Open(sqlite.Open(sqlitePath+"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"), cfg)
	if err != nil {
		return nil, err
	}
	// single writer for SQLite
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

// Models lists every table the service owns.
func Models() []interface{} {
	return []interface{}{
		&domain.Account{},
		&domain.CreditListing{},
		&domain.ListingEvent{},
		&domain.Transaction{},
		&domain.ProjectSubmission{},
		&domain.VerificationDecision{},
	}
}

// AutoMigrate runs migrations for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}

// GormPinger adapts a *gorm.DB to the health check's Ping.
type GormPinger struct {
	DB *gorm.DB
}

func (g *GormPinger) Ping() error {
	if g == nil || g.DB == nil {
		return nil
	}
	sqlDB, err := g.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
