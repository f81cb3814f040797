package config

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/vouge2017/ethio-farm-connect-sub000/internal/config"
	"github.com/vouge2017/ethio-farm-connect-sub000/internal/infrastructure/repositories"
)

// GetTestJWTSecret returns a deterministic JWT secret for testing
func GetTestJWTSecret() string {
	return "test-jwt-secret-for-farm-connect-7f3a"
}

// LoadTestConfig returns an in-memory configuration suitable for service and router tests
func LoadTestConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg, err := config.FromFile(&config.ConfigFile{
		App: config.AppConfig{
			Env:     "test",
			GinMode: "test",
			SiteURL: "http://localhost:5173",
		},
		JWT: config.JWTConfig{
			Secret:     GetTestJWTSecret(),
			Issuer:     "farm-connect-test",
			AccessTTL:  "900s",
			RefreshTTL: "168h",
		},
		OTP: config.OTPConfig{
			TTL:           "10m",
			MaxAttempts:   5,
			ResendWindow:  "60s",
			ExposeDevCode: true,
		},
	})
	if err != nil {
		t.Fatalf("failed to build test configuration: %v", err)
	}
	return cfg
}

// NewTestDB opens a private in-memory SQLite database with every table migrated
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.AutoMigrate(repositories.Models()...); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}
	return db
}

// NewTestRedis starts a miniredis server and returns a client bound to it
func NewTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client, mr
}
