package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vouge2017/ethio-farm-connect-sub000/domain"
	"github.com/vouge2017/ethio-farm-connect-sub000/internal/metrics"
	"github.com/vouge2017/ethio-farm-connect-sub000/internal/phone"
)

var otpFormat = regexp.MustCompile(`^[0-9]{6}$`)

// OTPServiceImpl implements domain.OTPService on top of the otp_codes table
type OTPServiceImpl struct {
	otpRepo     domain.OTPRepository
	accountRepo domain.AccountRepository
	authSvc     domain.AuthService
	dispatcher  domain.Dispatcher
	audit       domain.AuditLogger
	metrics     *metrics.Metrics
	log         *zap.Logger
	config      OTPConfig
}

type OTPConfig struct {
	TTL           time.Duration
	MaxAttempts   int
	ResendWindow  time.Duration
	ExposeDevCode bool
	SiteURL       string
	// Now defaults to time.Now
	Now func() time.Time
}

// NewOTPService creates a new OTP service
func NewOTPService(
	otpRepo domain.OTPRepository,
	accountRepo domain.AccountRepository,
	authSvc domain.AuthService,
	dispatcher domain.Dispatcher,
	audit domain.AuditLogger,
	m *metrics.Metrics,
	log *zap.Logger,
	config OTPConfig,
) *OTPServiceImpl {
	if config.Now == nil {
		config.Now = time.Now
	}
	return &OTPServiceImpl{
		otpRepo:     otpRepo,
		accountRepo: accountRepo,
		authSvc:     authSvc,
		dispatcher:  dispatcher,
		audit:       audit,
		metrics:     m,
		log:         log,
		config:      config,
	}
}

func (s *OTPServiceImpl) now() time.Time {
	return s.config.Now().UTC()
}

// Signup implements domain.OTPService
func (s *OTPServiceImpl) Signup(ctx context.Context, req domain.SignupRequest) (*domain.IssueResult, error) {
	if strings.TrimSpace(req.PhoneNumber) == "" {
		return nil, domain.ErrPhoneRequired
	}
	name := strings.TrimSpace(req.DisplayName)
	if name == "" {
		return nil, domain.ErrDisplayNameRequired
	}
	normalized, err := normalizePhone(req.PhoneNumber)
	if err != nil {
		return nil, err
	}
	channel, err := resolveChannel(req.Channel)
	if err != nil {
		return nil, err
	}

	return s.issue(ctx, normalized, channel, name, domain.OTPRequestEvent, "signup")
}

// Resend implements domain.OTPService.
// The newest record of the phone sets the cooldown and lends its display name to the new one.
func (s *OTPServiceImpl) Resend(ctx context.Context, phoneNumber string, channel domain.Channel) (*domain.IssueResult, error) {
	if strings.TrimSpace(phoneNumber) == "" {
		return nil, domain.ErrPhoneRequired
	}
	normalized, err := normalizePhone(phoneNumber)
	if err != nil {
		return nil, err
	}
	channel, err = resolveChannel(channel)
	if err != nil {
		return nil, err
	}

	latest, err := s.otpRepo.Latest(ctx, normalized)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrOTPStore, err)
	}

	var name string
	if latest != nil {
		elapsed := s.now().Sub(latest.CreatedAt)
		if elapsed < s.config.ResendWindow {
			limited := &domain.RateLimitError{RetryAfter: s.config.ResendWindow - elapsed}
			s.audit.LogEvent(ctx, domain.NewAuditEvent(domain.OTPResendLimitedEvent).
				WithPhone(normalized).
				WithChannel(channel).
				WithMetadata("retry_after_seconds", limited.Seconds()).
				WithError(limited))
			return nil, limited
		}
		name = latest.DisplayName
	}

	return s.issue(ctx, normalized, channel, name, domain.OTPResendEvent, "resend")
}

// issue persists a fresh code and hands it to the dispatcher.
// Delivery failures are logged only; the code stays valid and resend remains available.
func (s *OTPServiceImpl) issue(ctx context.Context, phoneNumber string, channel domain.Channel, name string, event domain.AuditEventType, kind string) (*domain.IssueResult, error) {
	code, err := generateCode()
	if err != nil {
		return nil, fmt.Errorf("failed to generate OTP code: %w", err)
	}

	now := s.now()
	record := &domain.OTPRecord{
		ID:          uuid.NewString(),
		PhoneNumber: phoneNumber,
		Code:        code,
		Channel:     channel,
		DisplayName: name,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.config.TTL),
	}
	if err := s.otpRepo.Create(ctx, record); err != nil {
		s.log.Error("failed to store otp", zap.String("phone", phoneNumber), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", domain.ErrOTPStore, err)
	}

	if err := s.dispatcher.Dispatch(ctx, phoneNumber, code, channel); err != nil {
		s.metrics.DispatchFailed(string(channel))
		s.log.Warn("otp dispatch failed",
			zap.String("phone", phoneNumber),
			zap.String("channel", string(channel)),
			zap.Error(err))
		s.audit.LogEvent(ctx, domain.NewAuditEvent(domain.OTPDispatchFailEvent).
			WithPhone(phoneNumber).
			WithChannel(channel).
			WithError(err))
	}

	s.metrics.OTPIssued(string(channel), kind)
	s.audit.LogEvent(ctx, domain.NewAuditEvent(event).
		WithPhone(phoneNumber).
		WithChannel(channel).
		WithMetadata("otp_id", record.ID))

	result := &domain.IssueResult{Record: record}
	if s.config.ExposeDevCode {
		result.DevCode = code
	}
	return result, nil
}

// Verify implements domain.OTPService
func (s *OTPServiceImpl) Verify(ctx context.Context, phoneNumber, code string) (*domain.VerifyResult, error) {
	if strings.TrimSpace(phoneNumber) == "" {
		return nil, domain.ErrPhoneRequired
	}
	normalized, err := normalizePhone(phoneNumber)
	if err != nil {
		return nil, err
	}
	code = strings.TrimSpace(code)
	if !otpFormat.MatchString(code) {
		return nil, domain.ErrInvalidOTPFormat
	}

	now := s.now()
	record, err := s.otpRepo.Consume(ctx, normalized, code, now, s.config.MaxAttempts)
	if err != nil {
		if errors.Is(err, domain.ErrOTPInvalid) {
			if ferr := s.otpRepo.RecordFailedAttempt(ctx, normalized, now); ferr != nil {
				s.log.Warn("failed to record otp attempt", zap.String("phone", normalized), zap.Error(ferr))
			}
			s.metrics.OTPVerified("invalid")
			s.audit.LogEvent(ctx, domain.NewAuditEvent(domain.OTPFailureEvent).
				WithPhone(normalized).
				WithError(domain.ErrOTPInvalid))
			return nil, domain.ErrOTPInvalid
		}
		s.metrics.OTPVerified("error")
		return nil, fmt.Errorf("%w: %v", domain.ErrOTPStore, err)
	}

	profile, created, err := s.resolveAccount(ctx, record)
	if err != nil {
		s.metrics.OTPVerified("error")
		return nil, err
	}

	auth, err := s.authSvc.StartSession(ctx, profile)
	if err != nil {
		s.metrics.OTPVerified("error")
		return nil, fmt.Errorf("failed to start session: %w", err)
	}

	s.metrics.OTPVerified("success")
	s.audit.LogEvent(ctx, domain.NewAuditEvent(domain.OTPVerifyEvent).
		WithUser(profile.UserID).
		WithPhone(normalized).
		WithChannel(record.Channel).
		WithMetadata("new_account", created))

	return &domain.VerifyResult{
		Auth:       auth,
		SessionURL: SessionURL(s.config.SiteURL, auth),
		NewAccount: created,
	}, nil
}

// resolveAccount returns the profile of the phone, creating identity and profile on first sign-in
func (s *OTPServiceImpl) resolveAccount(ctx context.Context, record *domain.OTPRecord) (*domain.Profile, bool, error) {
	profile, err := s.accountRepo.FindProfileByPhone(ctx, record.PhoneNumber)
	if err == nil {
		return profile, false, nil
	}
	if !errors.Is(err, domain.ErrProfileNotFound) {
		return nil, false, fmt.Errorf("%w: %v", domain.ErrAccountCreation, err)
	}

	name := record.DisplayName
	if name == "" {
		name = domain.PlaceholderDisplayName
	}
	now := s.now()
	id := uuid.NewString()
	identity := &domain.Identity{ID: id, PhoneNumber: record.PhoneNumber, CreatedAt: now}
	profile = &domain.Profile{
		UserID:              id,
		PhoneNumber:         record.PhoneNumber,
		DisplayName:         name,
		Role:                domain.RoleFarmer,
		PreferredOTPChannel: record.Channel,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	if err := s.accountRepo.CreateAccount(ctx, identity, profile); err != nil {
		if errors.Is(err, domain.ErrAccountExists) {
			// a concurrent verify created it first
			existing, ferr := s.accountRepo.FindProfileByPhone(ctx, record.PhoneNumber)
			if ferr != nil {
				return nil, false, fmt.Errorf("%w: %v", domain.ErrAccountCreation, ferr)
			}
			return existing, false, nil
		}
		s.log.Error("failed to create account", zap.String("phone", record.PhoneNumber), zap.Error(err))
		return nil, false, fmt.Errorf("%w: %v", domain.ErrAccountCreation, err)
	}

	s.audit.LogEvent(ctx, domain.NewAuditEvent(domain.AccountCreatedEvent).
		WithUser(id).
		WithPhone(record.PhoneNumber).
		WithChannel(record.Channel))
	return profile, true, nil
}

// SessionURL builds the browser callback carrying the session in its fragment
func SessionURL(siteURL string, auth *domain.AuthResult) string {
	fragment := url.Values{}
	fragment.Set("access_token", auth.AccessToken)
	fragment.Set("refresh_token", auth.RefreshToken)
	fragment.Set("token_type", "bearer")
	fragment.Set("expires_in", strconv.FormatInt(auth.ExpiresIn, 10))
	return strings.TrimRight(siteURL, "/") + "/auth/callback#" + fragment.Encode()
}

func normalizePhone(input string) (string, error) {
	if !phone.Validate(input) {
		return "", domain.ErrInvalidPhone
	}
	return phone.Normalize(input), nil
}

func resolveChannel(c domain.Channel) (domain.Channel, error) {
	if c == "" {
		return domain.ChannelSMS, nil
	}
	if !c.Valid() {
		return "", domain.ErrInvalidChannel
	}
	return c, nil
}

// generateCode returns a uniformly distributed code in [100000, 999999]
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.Int64()+100000, 10), nil
}
