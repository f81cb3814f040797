package services

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/vouge2017/ethio-farm-connect-sub000/domain"
	"github.com/vouge2017/ethio-farm-connect-sub000/internal/mocks"
)

const (
	testPhone   = "+251911234567"
	testSiteURL = "http://localhost:5173"
)

// otpFixture bundles an OTP service with the mocks behind it
type otpFixture struct {
	svc        *OTPServiceImpl
	otpRepo    *mocks.MockOTPRepository
	accounts   *mocks.MockAccountRepository
	authSvc    *mocks.MockAuthService
	dispatcher *mocks.MockDispatcher
	audit      *mocks.MockAuditLogger
	now        time.Time
}

func newOTPFixture(t *testing.T) *otpFixture {
	t.Helper()

	f := &otpFixture{
		otpRepo:    mocks.NewMockOTPRepository(),
		accounts:   mocks.NewMockAccountRepository(),
		authSvc:    mocks.NewMockAuthService(),
		dispatcher: mocks.NewMockDispatcher(),
		audit:      mocks.NewMockAuditLogger(),
		now:        time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	f.svc = NewOTPService(f.otpRepo, f.accounts, f.authSvc, f.dispatcher, f.audit, nil, zap.NewNop(), OTPConfig{
		TTL:           10 * time.Minute,
		MaxAttempts:   5,
		ResendWindow:  60 * time.Second,
		ExposeDevCode: true,
		SiteURL:       testSiteURL,
		Now:           func() time.Time { return f.now },
	})
	return f
}

// createValidProfile creates a farmer profile for testing
func createValidProfile(t *testing.T) *domain.Profile {
	t.Helper()

	now := time.Now().UTC()
	return &domain.Profile{
		UserID:              "user-1",
		PhoneNumber:         testPhone,
		DisplayName:         "Abebe",
		Role:                domain.RoleFarmer,
		PreferredOTPChannel: domain.ChannelSMS,
		CreatedAt:           now.Add(-24 * time.Hour),
		UpdatedAt:           now.Add(-time.Hour),
	}
}

// createValidSession creates a live session for the user
func createValidSession(t *testing.T, userID string) *domain.Session {
	t.Helper()

	now := time.Now().UTC()
	return &domain.Session{
		ID:        "session-1",
		UserID:    userID,
		Role:      domain.RoleFarmer,
		CreatedAt: now,
		ExpiresAt: now.Add(7 * 24 * time.Hour),
	}
}

func strPtr(s string) *string { return &s }
