package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vouge2017/ethio-farm-connect-sub000/domain"
)

// AuthServiceImpl implements domain.AuthService
type AuthServiceImpl struct {
	accountRepo domain.AccountRepository
	sessionRepo domain.SessionRepository
	tokenSvc    domain.TokenService
	audit       domain.AuditLogger
	changes     domain.ChangePublisher
	log         *zap.Logger
	sessionTTL  time.Duration
	now         func() time.Time
}

// NewAuthService creates a new auth service. sessionTTL should match the refresh token TTL.
// changes receives the disconnect event on sign-out and may be nil.
func NewAuthService(
	accountRepo domain.AccountRepository,
	sessionRepo domain.SessionRepository,
	tokenSvc domain.TokenService,
	audit domain.AuditLogger,
	changes domain.ChangePublisher,
	log *zap.Logger,
	sessionTTL time.Duration,
) *AuthServiceImpl {
	return &AuthServiceImpl{
		accountRepo: accountRepo,
		sessionRepo: sessionRepo,
		tokenSvc:    tokenSvc,
		audit:       audit,
		changes:     changes,
		log:         log,
		sessionTTL:  sessionTTL,
		now:         time.Now,
	}
}

// StartSession implements domain.AuthService
func (s *AuthServiceImpl) StartSession(ctx context.Context, profile *domain.Profile) (*domain.AuthResult, error) {
	now := s.now().UTC()
	session := &domain.Session{
		ID:        uuid.NewString(),
		UserID:    profile.UserID,
		Role:      profile.Role,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	accessToken, err := s.tokenSvc.GenerateAccessToken(profile.UserID, profile.Role, session.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := s.tokenSvc.GenerateRefreshToken(profile.UserID, profile.Role, session.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return &domain.AuthResult{
		Profile:      profile,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		SessionID:    session.ID,
		ExpiresIn:    int64(s.tokenSvc.AccessTTL() / time.Second),
	}, nil
}

// RefreshToken implements domain.AuthService.
// The role is re-read from the profile so moderation changes apply on refresh.
func (s *AuthServiceImpl) RefreshToken(ctx context.Context, refreshToken string) (*domain.AuthResult, error) {
	claims, err := s.tokenSvc.ValidateRefreshToken(refreshToken)
	if err != nil {
		if errors.Is(err, domain.ErrTokenExpired) {
			return nil, domain.ErrTokenExpired
		}
		return nil, domain.ErrTokenInvalid
	}

	session, err := s.sessionRepo.FindByID(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionExpired) {
			return nil, domain.ErrSessionExpired
		}
		return nil, domain.ErrSessionNotFound
	}
	if session.UserID != claims.UserID {
		return nil, domain.ErrTokenInvalid
	}

	profile, err := s.accountRepo.FindProfileByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}

	accessToken, err := s.tokenSvc.GenerateAccessToken(profile.UserID, profile.Role, session.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	return &domain.AuthResult{
		Profile:      profile,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		SessionID:    session.ID,
		ExpiresIn:    int64(s.tokenSvc.AccessTTL() / time.Second),
	}, nil
}

// SignOut implements domain.AuthService. Every session of the user is revoked
// and their open change-feed sockets are closed on every instance.
func (s *AuthServiceImpl) SignOut(ctx context.Context, userID string) error {
	if err := s.sessionRepo.DeleteAllForUser(ctx, userID); err != nil {
		s.audit.LogEvent(ctx, domain.NewAuditEvent(domain.UserSignOutEvent).WithUser(userID).WithError(err))
		return fmt.Errorf("failed to revoke sessions: %w", err)
	}
	s.audit.LogEvent(ctx, domain.NewAuditEvent(domain.UserSignOutEvent).WithUser(userID))

	if s.changes != nil {
		// sessions are already gone; a lost event only leaves sockets open until they reconnect
		if err := s.changes.Publish(ctx, domain.NewDisconnect(userID)); err != nil {
			s.log.Warn("failed to publish disconnect", zap.String("user_id", userID), zap.Error(err))
		}
	}
	return nil
}

// GetProfile implements domain.AuthService
func (s *AuthServiceImpl) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	return s.accountRepo.FindProfileByID(ctx, userID)
}

// UpdateProfile implements domain.AuthService
func (s *AuthServiceImpl) UpdateProfile(ctx context.Context, userID string, update domain.ProfileUpdate) (*domain.Profile, error) {
	if update.DisplayName != nil {
		name := strings.TrimSpace(*update.DisplayName)
		if name == "" {
			return nil, domain.ErrDisplayNameRequired
		}
		update.DisplayName = &name
	}
	if update.PreferredOTPChannel != nil && !update.PreferredOTPChannel.Valid() {
		return nil, domain.ErrInvalidChannel
	}
	for _, field := range []*string{update.Region, update.Zone, update.Woreda} {
		if field != nil {
			*field = strings.TrimSpace(*field)
		}
	}

	profile, err := s.accountRepo.UpdateProfile(ctx, userID, update)
	if err != nil {
		return nil, err
	}
	s.log.Debug("profile updated", zap.String("user_id", userID))
	return profile, nil
}
