package mocks

import (
	"context"
	"time"

	"github.com/vouge2017/ethio-farm-connect-sub000/domain"
)

// MockAuthService implements domain.AuthService interface for testing
type MockAuthService struct {
	StartSessionFunc  func(ctx context.Context, profile *domain.Profile) (*domain.AuthResult, error)
	RefreshTokenFunc  func(ctx context.Context, refreshToken string) (*domain.AuthResult, error)
	SignOutFunc       func(ctx context.Context, userID string) error
	GetProfileFunc    func(ctx context.Context, userID string) (*domain.Profile, error)
	UpdateProfileFunc func(ctx context.Context, userID string, update domain.ProfileUpdate) (*domain.Profile, error)
}

// NewMockAuthService creates a new MockAuthService with default behaviors
func NewMockAuthService() *MockAuthService {
	return &MockAuthService{}
}

// MockProfile returns a farmer profile for the phone
func MockProfile(phone string) *domain.Profile {
	now := time.Now().UTC()
	return &domain.Profile{
		UserID:              "mock_user_id",
		PhoneNumber:         phone,
		DisplayName:         "Abebe",
		Role:                domain.RoleFarmer,
		PreferredOTPChannel: domain.ChannelSMS,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}

// MockAuthResult returns a session for the profile
func MockAuthResult(profile *domain.Profile) *domain.AuthResult {
	return &domain.AuthResult{
		Profile:      profile,
		AccessToken:  "mock_access_token",
		RefreshToken: "mock_refresh_token",
		SessionID:    "mock_session_id",
		ExpiresIn:    900, // 15 minutes
	}
}

// StartSession mints a session for the profile
func (m *MockAuthService) StartSession(ctx context.Context, profile *domain.Profile) (*domain.AuthResult, error) {
	if m.StartSessionFunc != nil {
		return m.StartSessionFunc(ctx, profile)
	}
	return MockAuthResult(profile), nil
}

// RefreshToken refreshes an access token using a refresh token
func (m *MockAuthService) RefreshToken(ctx context.Context, refreshToken string) (*domain.AuthResult, error) {
	if m.RefreshTokenFunc != nil {
		return m.RefreshTokenFunc(ctx, refreshToken)
	}
	// Default behavior: return new auth result
	result := MockAuthResult(MockProfile("+251911234567"))
	result.AccessToken = "new_mock_access_token"
	result.RefreshToken = refreshToken
	return result, nil
}

// SignOut revokes every session of the user
func (m *MockAuthService) SignOut(ctx context.Context, userID string) error {
	if m.SignOutFunc != nil {
		return m.SignOutFunc(ctx, userID)
	}
	return nil
}

// GetProfile retrieves the user's profile
func (m *MockAuthService) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	if m.GetProfileFunc != nil {
		return m.GetProfileFunc(ctx, userID)
	}
	profile := MockProfile("+251911234567")
	profile.UserID = userID
	return profile, nil
}

// UpdateProfile applies the update to the user's profile
func (m *MockAuthService) UpdateProfile(ctx context.Context, userID string, update domain.ProfileUpdate) (*domain.Profile, error) {
	if m.UpdateProfileFunc != nil {
		return m.UpdateProfileFunc(ctx, userID, update)
	}
	profile := MockProfile("+251911234567")
	profile.UserID = userID
	if update.DisplayName != nil {
		profile.DisplayName = *update.DisplayName
	}
	return profile, nil
}

// Compile-time interface compliance verification
var _ domain.AuthService = (*MockAuthService)(nil)
