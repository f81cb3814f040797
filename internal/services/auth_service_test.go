package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vouge2017/ethio-farm-connect-sub000/domain"
	"github.com/vouge2017/ethio-farm-connect-sub000/internal/mocks"
)

func newAuthServiceForTest(accounts *mocks.MockAccountRepository, sessions *mocks.MockSessionRepository, tokens *mocks.MockTokenService, audit *mocks.MockAuditLogger) *AuthServiceImpl {
	return NewAuthService(accounts, sessions, tokens, audit, nil, zap.NewNop(), 7*24*time.Hour)
}

func TestAuthServiceImpl_StartSession(t *testing.T) {
	sessions := mocks.NewMockSessionRepository()
	svc := newAuthServiceForTest(mocks.NewMockAccountRepository(), sessions, mocks.NewMockTokenService(), mocks.NewMockAuditLogger())
	fixed := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	var stored *domain.Session
	sessions.CreateFunc = func(ctx context.Context, session *domain.Session) error {
		stored = session
		return nil
	}

	profile := createValidProfile(t)
	result, err := svc.StartSession(context.Background(), profile)
	require.NoError(t, err)
	require.NotNil(t, stored)

	assert.NotEmpty(t, stored.ID)
	assert.Equal(t, profile.UserID, stored.UserID)
	assert.Equal(t, fixed.Add(7*24*time.Hour), stored.ExpiresAt)
	assert.Equal(t, stored.ID, result.SessionID)
	assert.Equal(t, "access_token_user-1_farmer_"+stored.ID, result.AccessToken)
	assert.Equal(t, "refresh_token_user-1_farmer_"+stored.ID, result.RefreshToken)
	assert.Equal(t, int64(900), result.ExpiresIn)
	assert.Same(t, profile, result.Profile)
}

func TestAuthServiceImpl_StartSessionStoreFailure(t *testing.T) {
	sessions := mocks.NewMockSessionRepository()
	sessions.CreateFunc = func(ctx context.Context, session *domain.Session) error {
		return errors.New("redis unavailable")
	}
	svc := newAuthServiceForTest(mocks.NewMockAccountRepository(), sessions, mocks.NewMockTokenService(), mocks.NewMockAuditLogger())

	result, err := svc.StartSession(context.Background(), createValidProfile(t))
	assert.Error(t, err)
	assert.Nil(t, result)
}

func TestAuthServiceImpl_RefreshToken(t *testing.T) {
	tests := []struct {
		name          string
		setupMocks    func(*mocks.MockAccountRepository, *mocks.MockSessionRepository, *mocks.MockTokenService)
		expectedError error
		expectedRole  domain.Role
	}{
		{
			name: "role is re-read from the profile",
			setupMocks: func(accounts *mocks.MockAccountRepository, sessions *mocks.MockSessionRepository, tokens *mocks.MockTokenService) {
				sessions.FindByIDFunc = func(ctx context.Context, sessionID string) (*domain.Session, error) {
					return createValidSession(t, "mock_user_id"), nil
				}
				accounts.FindProfileByIDFunc = func(ctx context.Context, userID string) (*domain.Profile, error) {
					p := createValidProfile(t)
					p.UserID = userID
					p.Role = domain.RoleAdmin
					return p, nil
				}
			},
			expectedRole: domain.RoleAdmin,
		},
		{
			name: "expired refresh token",
			setupMocks: func(accounts *mocks.MockAccountRepository, sessions *mocks.MockSessionRepository, tokens *mocks.MockTokenService) {
				tokens.ValidateRefreshTokenFunc = func(token string) (*domain.TokenClaims, error) {
					return nil, domain.ErrTokenExpired
				}
			},
			expectedError: domain.ErrTokenExpired,
		},
		{
			name: "malformed refresh token",
			setupMocks: func(accounts *mocks.MockAccountRepository, sessions *mocks.MockSessionRepository, tokens *mocks.MockTokenService) {
				tokens.ValidateRefreshTokenFunc = func(token string) (*domain.TokenClaims, error) {
					return nil, domain.ErrTokenMalformed
				}
			},
			expectedError: domain.ErrTokenInvalid,
		},
		{
			name: "session signed out",
			setupMocks: func(accounts *mocks.MockAccountRepository, sessions *mocks.MockSessionRepository, tokens *mocks.MockTokenService) {
				// default session repository reports not found
			},
			expectedError: domain.ErrSessionNotFound,
		},
		{
			name: "session of another user",
			setupMocks: func(accounts *mocks.MockAccountRepository, sessions *mocks.MockSessionRepository, tokens *mocks.MockTokenService) {
				sessions.FindByIDFunc = func(ctx context.Context, sessionID string) (*domain.Session, error) {
					return createValidSession(t, "someone-else"), nil
				}
			},
			expectedError: domain.ErrTokenInvalid,
		},
		{
			name: "profile removed",
			setupMocks: func(accounts *mocks.MockAccountRepository, sessions *mocks.MockSessionRepository, tokens *mocks.MockTokenService) {
				sessions.FindByIDFunc = func(ctx context.Context, sessionID string) (*domain.Session, error) {
					return createValidSession(t, "mock_user_id"), nil
				}
			},
			expectedError: domain.ErrProfileNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			accounts := mocks.NewMockAccountRepository()
			sessions := mocks.NewMockSessionRepository()
			tokens := mocks.NewMockTokenService()
			tt.setupMocks(accounts, sessions, tokens)

			svc := newAuthServiceForTest(accounts, sessions, tokens, mocks.NewMockAuditLogger())
			result, err := svc.RefreshToken(context.Background(), "refresh-token")

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, result)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedRole, result.Profile.Role)
			assert.Equal(t, "access_token_mock_user_id_"+string(tt.expectedRole)+"_session-1", result.AccessToken)
			assert.Equal(t, "refresh-token", result.RefreshToken)
		})
	}
}

func TestAuthServiceImpl_SignOut(t *testing.T) {
	sessions := mocks.NewMockSessionRepository()
	audit := mocks.NewMockAuditLogger()
	svc := newAuthServiceForTest(mocks.NewMockAccountRepository(), sessions, mocks.NewMockTokenService(), audit)

	var revoked string
	sessions.DeleteAllForUserFunc = func(ctx context.Context, userID string) error {
		revoked = userID
		return nil
	}

	require.NoError(t, svc.SignOut(context.Background(), "user-1"))
	assert.Equal(t, "user-1", revoked)

	events := audit.Events(domain.UserSignOutEvent)
	require.Len(t, events, 1)
	assert.True(t, events[0].Success)

	sessions.DeleteAllForUserFunc = func(ctx context.Context, userID string) error {
		return errors.New("redis unavailable")
	}
	assert.Error(t, svc.SignOut(context.Background(), "user-1"))
	events = audit.Events(domain.UserSignOutEvent)
	require.Len(t, events, 2)
	assert.False(t, events[1].Success)
}

func TestAuthServiceImpl_SignOutDisconnectsSockets(t *testing.T) {
	sessions := mocks.NewMockSessionRepository()
	changes := mocks.NewMockChangePublisher()
	svc := NewAuthService(mocks.NewMockAccountRepository(), sessions, mocks.NewMockTokenService(),
		mocks.NewMockAuditLogger(), changes, zap.NewNop(), time.Hour)

	require.NoError(t, svc.SignOut(context.Background(), "user-1"))
	published := changes.Changes()
	require.Len(t, published, 1)
	assert.Equal(t, domain.ChangeDisconnect, published[0].Type)
	assert.Equal(t, []string{"user-1"}, published[0].UserIDs)

	// a broker outage does not fail the sign-out
	changes.PublishFunc = func(ctx context.Context, change *domain.Change) error {
		return errors.New("redis unavailable")
	}
	assert.NoError(t, svc.SignOut(context.Background(), "user-1"))

	// nothing is published when sessions could not be revoked
	sessions.DeleteAllForUserFunc = func(ctx context.Context, userID string) error {
		return errors.New("redis unavailable")
	}
	assert.Error(t, svc.SignOut(context.Background(), "user-1"))
	assert.Len(t, changes.Changes(), 2)
}

func TestAuthServiceImpl_UpdateProfile(t *testing.T) {
	telegram := domain.ChannelTelegram
	bogus := domain.Channel("fax")

	tests := []struct {
		name          string
		update        domain.ProfileUpdate
		expectedError error
		validate      func(t *testing.T, applied domain.ProfileUpdate)
	}{
		{
			name:   "trims fields",
			update: domain.ProfileUpdate{DisplayName: strPtr("  Almaz "), Region: strPtr(" Amhara "), PreferredOTPChannel: &telegram},
			validate: func(t *testing.T, applied domain.ProfileUpdate) {
				assert.Equal(t, "Almaz", *applied.DisplayName)
				assert.Equal(t, "Amhara", *applied.Region)
				assert.Nil(t, applied.Zone)
				assert.Equal(t, domain.ChannelTelegram, *applied.PreferredOTPChannel)
			},
		},
		{
			name:          "blank display name",
			update:        domain.ProfileUpdate{DisplayName: strPtr("   ")},
			expectedError: domain.ErrDisplayNameRequired,
		},
		{
			name:          "unknown channel",
			update:        domain.ProfileUpdate{PreferredOTPChannel: &bogus},
			expectedError: domain.ErrInvalidChannel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			accounts := mocks.NewMockAccountRepository()
			var applied *domain.ProfileUpdate
			accounts.UpdateProfileFunc = func(ctx context.Context, userID string, update domain.ProfileUpdate) (*domain.Profile, error) {
				applied = &update
				return createValidProfile(t), nil
			}
			svc := newAuthServiceForTest(accounts, mocks.NewMockSessionRepository(), mocks.NewMockTokenService(), mocks.NewMockAuditLogger())

			profile, err := svc.UpdateProfile(context.Background(), "user-1", tt.update)
			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, applied)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, profile)
			require.NotNil(t, applied)
			tt.validate(t, *applied)
		})
	}
}

func TestAuthServiceImpl_GetProfile(t *testing.T) {
	accounts := mocks.NewMockAccountRepository()
	svc := newAuthServiceForTest(accounts, mocks.NewMockSessionRepository(), mocks.NewMockTokenService(), mocks.NewMockAuditLogger())

	_, err := svc.GetProfile(context.Background(), "user-1")
	assert.ErrorIs(t, err, domain.ErrProfileNotFound)

	accounts.FindProfileByIDFunc = func(ctx context.Context, userID string) (*domain.Profile, error) {
		return createValidProfile(t), nil
	}
	profile, err := svc.GetProfile(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "Abebe", profile.DisplayName)
}
