package mocks

import (
	"context"
	"time"

	"github.com/vouge2017/ethio-farm-connect-sub000/domain"
)

// MockOTPRepository implements domain.OTPRepository interface for testing
type MockOTPRepository struct {
	CreateFunc              func(ctx context.Context, record *domain.OTPRecord) error
	LatestFunc              func(ctx context.Context, phone string) (*domain.OTPRecord, error)
	ConsumeFunc             func(ctx context.Context, phone, code string, now time.Time, maxAttempts int) (*domain.OTPRecord, error)
	RecordFailedAttemptFunc func(ctx context.Context, phone string, now time.Time) error
}

// NewMockOTPRepository creates a new MockOTPRepository with default behaviors
func NewMockOTPRepository() *MockOTPRepository {
	return &MockOTPRepository{}
}

// Create stores a record
func (m *MockOTPRepository) Create(ctx context.Context, record *domain.OTPRecord) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, record)
	}
	// Default behavior: success
	return nil
}

// Latest returns the newest record for the phone
func (m *MockOTPRepository) Latest(ctx context.Context, phone string) (*domain.OTPRecord, error) {
	if m.LatestFunc != nil {
		return m.LatestFunc(ctx, phone)
	}
	// Default behavior: nothing issued yet
	return nil, nil
}

// Consume marks a matching record as used
func (m *MockOTPRepository) Consume(ctx context.Context, phone, code string, now time.Time, maxAttempts int) (*domain.OTPRecord, error) {
	if m.ConsumeFunc != nil {
		return m.ConsumeFunc(ctx, phone, code, now, maxAttempts)
	}
	return nil, domain.ErrOTPInvalid
}

// RecordFailedAttempt bumps the attempt counters of the phone
func (m *MockOTPRepository) RecordFailedAttempt(ctx context.Context, phone string, now time.Time) error {
	if m.RecordFailedAttemptFunc != nil {
		return m.RecordFailedAttemptFunc(ctx, phone, now)
	}
	return nil
}

// Compile-time interface compliance verification
var _ domain.OTPRepository = (*MockOTPRepository)(nil)
