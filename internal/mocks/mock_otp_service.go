package mocks

import (
	"context"
	"time"

	"github.com/vouge2017/ethio-farm-connect-sub000/domain"
)

// MockOTPService implements domain.OTPService interface for testing
type MockOTPService struct {
	SignupFunc func(ctx context.Context, req domain.SignupRequest) (*domain.IssueResult, error)
	ResendFunc func(ctx context.Context, phone string, channel domain.Channel) (*domain.IssueResult, error)
	VerifyFunc func(ctx context.Context, phone, code string) (*domain.VerifyResult, error)
}

// NewMockOTPService creates a new MockOTPService with default behaviors
func NewMockOTPService() *MockOTPService {
	return &MockOTPService{}
}

// Signup issues a code for a new sign-in
func (m *MockOTPService) Signup(ctx context.Context, req domain.SignupRequest) (*domain.IssueResult, error) {
	if m.SignupFunc != nil {
		return m.SignupFunc(ctx, req)
	}
	// Default behavior: issue the fixed test code
	return mockIssue(req.PhoneNumber, req.Channel, req.DisplayName), nil
}

// Resend issues a fresh code for the phone
func (m *MockOTPService) Resend(ctx context.Context, phone string, channel domain.Channel) (*domain.IssueResult, error) {
	if m.ResendFunc != nil {
		return m.ResendFunc(ctx, phone, channel)
	}
	return mockIssue(phone, channel, ""), nil
}

// Verify checks the code and starts a session
func (m *MockOTPService) Verify(ctx context.Context, phone, code string) (*domain.VerifyResult, error) {
	if m.VerifyFunc != nil {
		return m.VerifyFunc(ctx, phone, code)
	}
	// Default behavior: accept "123456" as valid OTP
	if code != "123456" {
		return nil, domain.ErrOTPInvalid
	}
	auth := MockAuthResult(MockProfile(phone))
	return &domain.VerifyResult{
		Auth:       auth,
		SessionURL: "http://localhost:3000/auth/callback#access_token=" + auth.AccessToken,
	}, nil
}

func mockIssue(phone string, channel domain.Channel, name string) *domain.IssueResult {
	now := time.Now().UTC()
	return &domain.IssueResult{
		Record: &domain.OTPRecord{
			ID:          "mock_otp_id",
			PhoneNumber: phone,
			Code:        "123456", // Mock OTP code for testing
			Channel:     channel,
			DisplayName: name,
			CreatedAt:   now,
			ExpiresAt:   now.Add(10 * time.Minute),
		},
		DevCode: "123456",
	}
}

// Compile-time interface compliance verification
var _ domain.OTPService = (*MockOTPService)(nil)
