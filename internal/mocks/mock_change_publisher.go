package mocks

import (
	"context"
	"sync"

	"github.com/vouge2017/ethio-farm-connect-sub000/domain"
)

// MockChangePublisher implements domain.ChangePublisher and keeps every published change
type MockChangePublisher struct {
	PublishFunc func(ctx context.Context, change *domain.Change) error

	mu      sync.Mutex
	changes []*domain.Change
}

// NewMockChangePublisher creates a new MockChangePublisher with default behaviors
func NewMockChangePublisher() *MockChangePublisher {
	return &MockChangePublisher{}
}

// Publish records the change
func (m *MockChangePublisher) Publish(ctx context.Context, change *domain.Change) error {
	m.mu.Lock()
	m.changes = append(m.changes, change)
	m.mu.Unlock()
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, change)
	}
	return nil
}

// Changes returns the published changes in order
func (m *MockChangePublisher) Changes() []*domain.Change {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*domain.Change(nil), m.changes...)
}

// Compile-time interface compliance verification
var _ domain.ChangePublisher = (*MockChangePublisher)(nil)
