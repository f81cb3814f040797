package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vouge2017/ethio-farm-connect-sub000/domain"
	"github.com/vouge2017/ethio-farm-connect-sub000/internal/mocks"
)

func TestPolicyServiceImpl_AddAndRemovePolicy(t *testing.T) {
	enforcer := mocks.NewMockCasbinEnforcer()
	svc := NewPolicyServiceWithEnforcer(enforcer, mocks.NewMockAccountRepository(), mocks.NewMockAuditLogger())

	require.NoError(t, svc.AddPolicy("role_vet", "/conversations", "GET"))
	allowed, err := svc.CheckPermission("role_vet", "/conversations", "GET")
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Contains(t, svc.GetPolicies(), []string{"role_vet", "/conversations", "GET"})

	require.NoError(t, svc.RemovePolicy("role_vet", "/conversations", "GET"))
	allowed, err = svc.CheckPermission("role_vet", "/conversations", "GET")
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, 2, enforcer.Saves())
}

func TestPolicyServiceImpl_AddPolicyError(t *testing.T) {
	enforcer := mocks.NewMockCasbinEnforcer()
	enforcer.AddPolicyFunc = func(params ...interface{}) (bool, error) {
		return false, errors.New("adapter closed")
	}
	svc := NewPolicyServiceWithEnforcer(enforcer, mocks.NewMockAccountRepository(), mocks.NewMockAuditLogger())

	assert.Error(t, svc.AddPolicy("role_vet", "/conversations", "GET"))
	assert.Zero(t, enforcer.Saves())
}

func TestPolicyServiceImpl_SetProfileRole(t *testing.T) {
	tests := []struct {
		name          string
		role          domain.Role
		repoErr       error
		expectedError error
	}{
		{name: "promote to vet", role: domain.RoleVet},
		{name: "unknown role", role: "superuser", expectedError: domain.ErrInvalidRole},
		{name: "missing profile", role: domain.RoleAdmin, repoErr: domain.ErrProfileNotFound, expectedError: domain.ErrProfileNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			accounts := mocks.NewMockAccountRepository()
			called := false
			accounts.SetRoleFunc = func(ctx context.Context, userID string, role domain.Role) (*domain.Profile, error) {
				called = true
				if tt.repoErr != nil {
					return nil, tt.repoErr
				}
				p := createValidProfile(t)
				p.UserID = userID
				p.Role = role
				return p, nil
			}
			audit := mocks.NewMockAuditLogger()
			svc := NewPolicyServiceWithEnforcer(mocks.NewMockCasbinEnforcer(), accounts, audit)

			profile, err := svc.SetProfileRole(context.Background(), "user-1", tt.role)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, profile)
				if errors.Is(tt.expectedError, domain.ErrInvalidRole) {
					assert.False(t, called)
					assert.Empty(t, audit.Events(domain.RoleChangedEvent))
				} else {
					events := audit.Events(domain.RoleChangedEvent)
					require.Len(t, events, 1)
					assert.False(t, events[0].Success)
				}
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.role, profile.Role)
			events := audit.Events(domain.RoleChangedEvent)
			require.Len(t, events, 1)
			assert.Equal(t, "user-1", events[0].UserID)
			assert.Equal(t, string(tt.role), events[0].Metadata["role"])
		})
	}
}
