package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mehdiessalah/eventyBackend/config"
	_ "github.com/mehdiessalah/eventyBackend/database/migrations"
	"github.com/pressly/goose/v3"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens the postgres pool. Driver errors such as unique
// violations are translated to gorm's sentinel errors.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	log.Printf("✅ Connected to database %s on %s:%s", cfg.DBName, cfg.DBHost, cfg.DBPort)
	return db, nil
}

// NewMigrator builds a goose provider over the Go migrations in
// database/migrations.
func NewMigrator(db *gorm.DB) (*goose.Provider, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	return goose.NewProvider(goose.DialectPostgres, sqlDB, nil)
}

// Migrate applies every pending migration.
func Migrate(ctx context.Context, db *gorm.DB) error {
	provider, err := NewMigrator(db)
	if err != nil {
		return err
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}
	for _, r := range results {
		log.Printf("📦 Applied migration %d (%s)", r.Source.Version, r.Duration)
	}
	return nil
}
