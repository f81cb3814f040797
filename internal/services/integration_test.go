package services

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vouge2017/ethio-farm-connect-sub000/domain"
	"github.com/vouge2017/ethio-farm-connect-sub000/internal/infrastructure/auth"
	"github.com/vouge2017/ethio-farm-connect-sub000/internal/infrastructure/repositories"
	"github.com/vouge2017/ethio-farm-connect-sub000/internal/metrics"
	"github.com/vouge2017/ethio-farm-connect-sub000/internal/mocks"
	testconfig "github.com/vouge2017/ethio-farm-connect-sub000/internal/tests/config"
)

// stack wires the services over SQLite and miniredis the way the app container does
type stack struct {
	otp      *OTPServiceImpl
	auth     *AuthServiceImpl
	policy   *PolicyServiceImpl
	tokens   *auth.JWTServiceImpl
	accounts domain.AccountRepository
	sent     *mocks.MockDispatcher
	clock    *testClock
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newStack(t *testing.T) *stack {
	t.Helper()

	cfg := testconfig.LoadTestConfig(t)
	db := testconfig.NewTestDB(t)
	rdb, _ := testconfig.NewTestRedis(t)

	accounts := repositories.NewAccountRepository(db)
	tokens := auth.NewJWTService(cfg.JWTSecret, cfg.JWTIssuer, cfg.AccessTTL, cfg.RefreshTTL)
	audit := mocks.NewMockAuditLogger()
	authSvc := NewAuthService(accounts, repositories.NewSessionRepository(rdb, cfg.RefreshTTL), tokens, audit, mocks.NewMockChangePublisher(), zap.NewNop(), cfg.RefreshTTL)

	s := &stack{
		auth:     authSvc,
		policy:   NewPolicyServiceWithEnforcer(mocks.NewMockCasbinEnforcer(), accounts, audit),
		tokens:   tokens,
		accounts: accounts,
		sent:     mocks.NewMockDispatcher(),
		clock:    &testClock{now: time.Now().UTC()},
	}
	s.otp = NewOTPService(repositories.NewOTPRepository(db), accounts, authSvc, s.sent, audit, metrics.New(), zap.NewNop(), OTPConfig{
		TTL:           cfg.OTP_TTL,
		MaxAttempts:   cfg.OTP_MaxAttempts,
		ResendWindow:  cfg.OTP_ResendWindow,
		ExposeDevCode: cfg.OTP_ExposeDevCode,
		SiteURL:       cfg.SiteURL,
		Now:           s.clock.Now,
	})
	return s
}

func TestSignupVerifyCreatesFarmer(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	issued, err := s.otp.Signup(ctx, domain.SignupRequest{PhoneNumber: "+251911234567", DisplayName: "Abebe", Channel: domain.ChannelSMS})
	require.NoError(t, err)
	require.Len(t, issued.DevCode, 6)

	verified, err := s.otp.Verify(ctx, "0911234567", issued.DevCode)
	require.NoError(t, err)
	assert.True(t, verified.NewAccount)
	assert.Contains(t, verified.SessionURL, "http://localhost:5173/auth/callback#")

	profile := verified.Auth.Profile
	assert.Equal(t, "+251911234567", profile.PhoneNumber)
	assert.Equal(t, "Abebe", profile.DisplayName)
	assert.Equal(t, domain.RoleFarmer, profile.Role)

	claims, err := s.tokens.ValidateAccessToken(verified.Auth.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, profile.UserID, claims.UserID)
	assert.Equal(t, verified.Auth.SessionID, claims.SessionID)

	stored, err := s.accounts.FindProfileByPhone(ctx, "+251911234567")
	require.NoError(t, err)
	assert.Equal(t, profile.UserID, stored.UserID)

	// the code was consumed
	_, err = s.otp.Verify(ctx, "+251911234567", issued.DevCode)
	assert.ErrorIs(t, err, domain.ErrOTPInvalid)
}

func TestSecondSignInKeepsAccount(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	first, err := s.otp.Signup(ctx, domain.SignupRequest{PhoneNumber: testPhone, DisplayName: "Abebe"})
	require.NoError(t, err)
	initial, err := s.otp.Verify(ctx, testPhone, first.DevCode)
	require.NoError(t, err)

	s.clock.Advance(2 * time.Minute)
	second, err := s.otp.Signup(ctx, domain.SignupRequest{PhoneNumber: testPhone, DisplayName: "Someone Else"})
	require.NoError(t, err)
	again, err := s.otp.Verify(ctx, testPhone, second.DevCode)
	require.NoError(t, err)

	assert.False(t, again.NewAccount)
	assert.Equal(t, initial.Auth.Profile.UserID, again.Auth.Profile.UserID)
	assert.Equal(t, "Abebe", again.Auth.Profile.DisplayName)
}

func TestResendCooldownAndCarriedName(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	_, err := s.otp.Signup(ctx, domain.SignupRequest{PhoneNumber: testPhone, DisplayName: "Almaz"})
	require.NoError(t, err)

	s.clock.Advance(15 * time.Second)
	_, err = s.otp.Resend(ctx, testPhone, domain.ChannelSMS)
	var limited *domain.RateLimitError
	require.ErrorAs(t, err, &limited)
	assert.Equal(t, int64(45), limited.Seconds())

	s.clock.Advance(50 * time.Second)
	resent, err := s.otp.Resend(ctx, testPhone, domain.ChannelSMS)
	require.NoError(t, err)
	assert.Equal(t, "Almaz", resent.Record.DisplayName)

	verified, err := s.otp.Verify(ctx, testPhone, resent.DevCode)
	require.NoError(t, err)
	assert.Equal(t, "Almaz", verified.Auth.Profile.DisplayName)
	assert.Len(t, s.sent.Sent(), 2)
}

func TestExpiredCodeIsRejected(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	issued, err := s.otp.Signup(ctx, domain.SignupRequest{PhoneNumber: testPhone, DisplayName: "Abebe"})
	require.NoError(t, err)

	s.clock.Advance(11 * time.Minute)
	_, err = s.otp.Verify(ctx, testPhone, issued.DevCode)
	assert.ErrorIs(t, err, domain.ErrOTPInvalid)
}

func TestFailedAttemptsExhaustCode(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	issued, err := s.otp.Signup(ctx, domain.SignupRequest{PhoneNumber: testPhone, DisplayName: "Abebe"})
	require.NoError(t, err)

	wrong := "000000"
	if issued.DevCode == wrong {
		wrong = "111111"
	}
	for i := 0; i < 5; i++ {
		_, err := s.otp.Verify(ctx, testPhone, wrong)
		require.ErrorIs(t, err, domain.ErrOTPInvalid)
	}

	_, err = s.otp.Verify(ctx, testPhone, issued.DevCode)
	assert.ErrorIs(t, err, domain.ErrOTPInvalid)
}

func TestExhaustedPhoneRecoversWithFreshCode(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	issued, err := s.otp.Signup(ctx, domain.SignupRequest{PhoneNumber: testPhone, DisplayName: "Abebe"})
	require.NoError(t, err)

	// a third party burns the live code
	wrong := "000000"
	if issued.DevCode == wrong {
		wrong = "111111"
	}
	for i := 0; i < 5; i++ {
		_, err := s.otp.Verify(ctx, testPhone, wrong)
		require.ErrorIs(t, err, domain.ErrOTPInvalid)
	}
	_, err = s.otp.Verify(ctx, testPhone, issued.DevCode)
	require.ErrorIs(t, err, domain.ErrOTPInvalid)

	s.clock.Advance(61 * time.Second)
	fresh, err := s.otp.Resend(ctx, testPhone, domain.ChannelSMS)
	require.NoError(t, err)
	assert.Equal(t, 0, fresh.Record.Attempts)

	verified, err := s.otp.Verify(ctx, testPhone, fresh.DevCode)
	require.NoError(t, err)
	assert.Equal(t, "Abebe", verified.Auth.Profile.DisplayName)
}

func TestConcurrentVerifySingleWinner(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	issued, err := s.otp.Signup(ctx, domain.SignupRequest{PhoneNumber: testPhone, DisplayName: "Abebe"})
	require.NoError(t, err)

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.otp.Verify(ctx, testPhone, issued.DevCode); err == nil {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins)
}

func TestRefreshPicksUpRoleAndSignOutRevokes(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	issued, err := s.otp.Signup(ctx, domain.SignupRequest{PhoneNumber: testPhone, DisplayName: "Abebe"})
	require.NoError(t, err)
	verified, err := s.otp.Verify(ctx, testPhone, issued.DevCode)
	require.NoError(t, err)
	userID := verified.Auth.Profile.UserID

	_, err = s.policy.SetProfileRole(ctx, userID, domain.RoleVet)
	require.NoError(t, err)

	refreshed, err := s.auth.RefreshToken(ctx, verified.Auth.RefreshToken)
	require.NoError(t, err)
	claims, err := s.tokens.ValidateAccessToken(refreshed.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleVet, claims.Role)

	require.NoError(t, s.auth.SignOut(ctx, userID))
	_, err = s.auth.RefreshToken(ctx, verified.Auth.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}
