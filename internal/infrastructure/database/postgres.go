package database

import (
	"fmt"

	gormadapter "github.com/casbin/gorm-adapter/v3"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/vouge2017/ethio-farm-connect-sub000/internal/infrastructure/repositories"
)

// Open creates a new database connection with production-ready settings
func Open(dsn string, debug bool) (*gorm.DB, error) {
	level := logger.Warn
	if debug {
		level = logger.Info
	}
	config := &gorm.Config{
		Logger:         logger.Default.LogMode(level),
		TranslateError: true,
	}

	return gorm.Open(postgres.Open(dsn), config)
}

// AutoMigrate creates the OTP, account, messaging and Casbin policy tables
func AutoMigrate(db *gorm.DB, log *zap.Logger) error {
	if err := db.AutoMigrate(repositories.Models()...); err != nil {
		return fmt.Errorf("failed to migrate tables: %w", err)
	}

	// the adapter creates casbin_rule on construction
	if _, err := gormadapter.NewAdapterByDB(db); err != nil {
		return fmt.Errorf("failed to initialize Casbin GORM adapter: %w", err)
	}

	log.Info("database migrated", zap.Int("models", len(repositories.Models())))
	return nil
}

// Close releases the underlying connection pool
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
