package mocks

import (
	"context"

	"github.com/vouge2017/ethio-farm-connect-sub000/domain"
)

// MockAccountRepository implements domain.AccountRepository interface for testing
type MockAccountRepository struct {
	CreateAccountFunc      func(ctx context.Context, identity *domain.Identity, profile *domain.Profile) error
	FindProfileByPhoneFunc func(ctx context.Context, phone string) (*domain.Profile, error)
	FindProfileByIDFunc    func(ctx context.Context, userID string) (*domain.Profile, error)
	UpdateProfileFunc      func(ctx context.Context, userID string, update domain.ProfileUpdate) (*domain.Profile, error)
	SetRoleFunc            func(ctx context.Context, userID string, role domain.Role) (*domain.Profile, error)
}

// NewMockAccountRepository creates a new MockAccountRepository with default behaviors
func NewMockAccountRepository() *MockAccountRepository {
	return &MockAccountRepository{}
}

// CreateAccount stores an identity and its profile
func (m *MockAccountRepository) CreateAccount(ctx context.Context, identity *domain.Identity, profile *domain.Profile) error {
	if m.CreateAccountFunc != nil {
		return m.CreateAccountFunc(ctx, identity, profile)
	}
	// Default behavior: success
	return nil
}

// FindProfileByPhone finds a profile by phone number
func (m *MockAccountRepository) FindProfileByPhone(ctx context.Context, phone string) (*domain.Profile, error) {
	if m.FindProfileByPhoneFunc != nil {
		return m.FindProfileByPhoneFunc(ctx, phone)
	}
	// Default behavior: not found
	return nil, domain.ErrProfileNotFound
}

// FindProfileByID finds a profile by user ID
func (m *MockAccountRepository) FindProfileByID(ctx context.Context, userID string) (*domain.Profile, error) {
	if m.FindProfileByIDFunc != nil {
		return m.FindProfileByIDFunc(ctx, userID)
	}
	return nil, domain.ErrProfileNotFound
}

// UpdateProfile updates the editable profile fields
func (m *MockAccountRepository) UpdateProfile(ctx context.Context, userID string, update domain.ProfileUpdate) (*domain.Profile, error) {
	if m.UpdateProfileFunc != nil {
		return m.UpdateProfileFunc(ctx, userID, update)
	}
	return nil, domain.ErrProfileNotFound
}

// SetRole changes the role of a profile
func (m *MockAccountRepository) SetRole(ctx context.Context, userID string, role domain.Role) (*domain.Profile, error) {
	if m.SetRoleFunc != nil {
		return m.SetRoleFunc(ctx, userID, role)
	}
	return nil, domain.ErrProfileNotFound
}

// Compile-time interface compliance verification
var _ domain.AccountRepository = (*MockAccountRepository)(nil)
