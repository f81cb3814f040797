package mocks

import (
	"fmt"
	"time"

	"github.com/vouge2017/ethio-farm-connect-sub000/domain"
)

// MockTokenService implements domain.TokenService interface for testing
type MockTokenService struct {
	GenerateAccessTokenFunc  func(userID string, role domain.Role, sessionID string) (string, error)
	GenerateRefreshTokenFunc func(userID string, role domain.Role, sessionID string) (string, error)
	ValidateAccessTokenFunc  func(token string) (*domain.TokenClaims, error)
	ValidateRefreshTokenFunc func(token string) (*domain.TokenClaims, error)
	TTL                      time.Duration
}

// NewMockTokenService creates a new MockTokenService with default behaviors
func NewMockTokenService() *MockTokenService {
	return &MockTokenService{TTL: 15 * time.Minute}
}

// GenerateAccessToken generates an access token for the user
func (m *MockTokenService) GenerateAccessToken(userID string, role domain.Role, sessionID string) (string, error) {
	if m.GenerateAccessTokenFunc != nil {
		return m.GenerateAccessTokenFunc(userID, role, sessionID)
	}
	// Default behavior: return a mock access token
	return fmt.Sprintf("access_token_%s_%s_%s", userID, role, sessionID), nil
}

// GenerateRefreshToken generates a refresh token for the user
func (m *MockTokenService) GenerateRefreshToken(userID string, role domain.Role, sessionID string) (string, error) {
	if m.GenerateRefreshTokenFunc != nil {
		return m.GenerateRefreshTokenFunc(userID, role, sessionID)
	}
	return fmt.Sprintf("refresh_token_%s_%s_%s", userID, role, sessionID), nil
}

// ValidateAccessToken validates an access token and returns claims
func (m *MockTokenService) ValidateAccessToken(token string) (*domain.TokenClaims, error) {
	if m.ValidateAccessTokenFunc != nil {
		return m.ValidateAccessTokenFunc(token)
	}
	if token == "" {
		return nil, domain.ErrTokenInvalid
	}

	now := time.Now().Unix()
	return &domain.TokenClaims{
		UserID:    "mock_user_id",
		Role:      domain.RoleFarmer,
		SessionID: "mock_session_id",
		IssuedAt:  now,
		ExpiresAt: now + 900, // 15 minutes
	}, nil
}

// ValidateRefreshToken validates a refresh token and returns claims
func (m *MockTokenService) ValidateRefreshToken(token string) (*domain.TokenClaims, error) {
	if m.ValidateRefreshTokenFunc != nil {
		return m.ValidateRefreshTokenFunc(token)
	}
	if token == "" {
		return nil, domain.ErrTokenInvalid
	}

	now := time.Now().Unix()
	return &domain.TokenClaims{
		UserID:    "mock_user_id",
		Role:      domain.RoleFarmer,
		SessionID: "mock_session_id",
		IssuedAt:  now,
		ExpiresAt: now + 604800, // 7 days
	}, nil
}

// AccessTTL returns the configured access token lifetime
func (m *MockTokenService) AccessTTL() time.Duration {
	return m.TTL
}

// Compile-time interface compliance verification
var _ domain.TokenService = (*MockTokenService)(nil)
