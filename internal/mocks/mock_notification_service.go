package mocks

import (
	"context"
	"sync"

	"github.com/vouge2017/ethio-farm-connect-sub000/domain"
)

// SentOTP is a code handed to a mock sender or dispatcher
type SentOTP struct {
	Phone   string
	Code    string
	Channel domain.Channel
}

// MockOTPSender implements domain.OTPSender interface for testing
type MockOTPSender struct {
	SendOTPFunc func(ctx context.Context, phone, code string) error

	mu   sync.Mutex
	sent []SentOTP
}

// NewMockOTPSender creates a new MockOTPSender with default behaviors
func NewMockOTPSender() *MockOTPSender {
	return &MockOTPSender{}
}

// SendOTP records the code and returns the configured result
func (m *MockOTPSender) SendOTP(ctx context.Context, phone, code string) error {
	m.mu.Lock()
	m.sent = append(m.sent, SentOTP{Phone: phone, Code: code})
	m.mu.Unlock()
	if m.SendOTPFunc != nil {
		return m.SendOTPFunc(ctx, phone, code)
	}
	// Default behavior: success (no actual SMS sent in tests)
	return nil
}

// Sent returns a copy of every code passed to SendOTP
func (m *MockOTPSender) Sent() []SentOTP {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SentOTP(nil), m.sent...)
}

// MockDispatcher implements domain.Dispatcher interface for testing
type MockDispatcher struct {
	DispatchFunc func(ctx context.Context, phone, code string, channel domain.Channel) error

	mu   sync.Mutex
	sent []SentOTP
}

// NewMockDispatcher creates a new MockDispatcher with default behaviors
func NewMockDispatcher() *MockDispatcher {
	return &MockDispatcher{}
}

// Dispatch records the code and returns the configured result
func (m *MockDispatcher) Dispatch(ctx context.Context, phone, code string, channel domain.Channel) error {
	m.mu.Lock()
	m.sent = append(m.sent, SentOTP{Phone: phone, Code: code, Channel: channel})
	m.mu.Unlock()
	if m.DispatchFunc != nil {
		return m.DispatchFunc(ctx, phone, code, channel)
	}
	return nil
}

// Sent returns a copy of every dispatched code
func (m *MockDispatcher) Sent() []SentOTP {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SentOTP(nil), m.sent...)
}

// Compile-time interface compliance verification
var (
	_ domain.OTPSender  = (*MockOTPSender)(nil)
	_ domain.Dispatcher = (*MockDispatcher)(nil)
)
