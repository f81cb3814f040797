package mocks

import (
	"context"

	"github.com/vouge2017/ethio-farm-connect-sub000/domain"
)

// MockMessagingRepository implements domain.MessagingRepository interface for testing
type MockMessagingRepository struct {
	FindConversationFunc          func(ctx context.Context, id string) (*domain.Conversation, error)
	FindConversationByPartiesFunc func(ctx context.Context, buyerID, sellerID, listingID string) (*domain.Conversation, error)
	CreateConversationFunc        func(ctx context.Context, conv *domain.Conversation) error
	ListConversationsFunc         func(ctx context.Context, userID string) ([]domain.Conversation, error)
	AppendMessageFunc             func(ctx context.Context, msg *domain.Message, notification *domain.Notification) (*domain.Conversation, error)
	ListMessagesFunc              func(ctx context.Context, conversationID string) ([]domain.Message, error)
	MarkConversationReadFunc      func(ctx context.Context, conversationID, readerID string) ([]domain.Message, *domain.Conversation, error)
	ListNotificationsFunc         func(ctx context.Context, userID string) ([]domain.Notification, error)
	MarkNotificationReadFunc      func(ctx context.Context, userID, notificationID string) (*domain.Notification, error)
}

// NewMockMessagingRepository creates a new MockMessagingRepository with default behaviors
func NewMockMessagingRepository() *MockMessagingRepository {
	return &MockMessagingRepository{}
}

func (m *MockMessagingRepository) FindConversation(ctx context.Context, id string) (*domain.Conversation, error) {
	if m.FindConversationFunc != nil {
		return m.FindConversationFunc(ctx, id)
	}
	return nil, domain.ErrConversationNotFound
}

func (m *MockMessagingRepository) FindConversationByParties(ctx context.Context, buyerID, sellerID, listingID string) (*domain.Conversation, error) {
	if m.FindConversationByPartiesFunc != nil {
		return m.FindConversationByPartiesFunc(ctx, buyerID, sellerID, listingID)
	}
	return nil, domain.ErrConversationNotFound
}

func (m *MockMessagingRepository) CreateConversation(ctx context.Context, conv *domain.Conversation) error {
	if m.CreateConversationFunc != nil {
		return m.CreateConversationFunc(ctx, conv)
	}
	if conv.ID == "" {
		conv.ID = "mock_conversation_id"
	}
	return nil
}

func (m *MockMessagingRepository) ListConversations(ctx context.Context, userID string) ([]domain.Conversation, error) {
	if m.ListConversationsFunc != nil {
		return m.ListConversationsFunc(ctx, userID)
	}
	return []domain.Conversation{}, nil
}

func (m *MockMessagingRepository) AppendMessage(ctx context.Context, msg *domain.Message, notification *domain.Notification) (*domain.Conversation, error) {
	if m.AppendMessageFunc != nil {
		return m.AppendMessageFunc(ctx, msg, notification)
	}
	return nil, domain.ErrConversationNotFound
}

func (m *MockMessagingRepository) ListMessages(ctx context.Context, conversationID string) ([]domain.Message, error) {
	if m.ListMessagesFunc != nil {
		return m.ListMessagesFunc(ctx, conversationID)
	}
	return []domain.Message{}, nil
}

func (m *MockMessagingRepository) MarkConversationRead(ctx context.Context, conversationID, readerID string) ([]domain.Message, *domain.Conversation, error) {
	if m.MarkConversationReadFunc != nil {
		return m.MarkConversationReadFunc(ctx, conversationID, readerID)
	}
	return nil, nil, domain.ErrConversationNotFound
}

func (m *MockMessagingRepository) ListNotifications(ctx context.Context, userID string) ([]domain.Notification, error) {
	if m.ListNotificationsFunc != nil {
		return m.ListNotificationsFunc(ctx, userID)
	}
	return []domain.Notification{}, nil
}

func (m *MockMessagingRepository) MarkNotificationRead(ctx context.Context, userID, notificationID string) (*domain.Notification, error) {
	if m.MarkNotificationReadFunc != nil {
		return m.MarkNotificationReadFunc(ctx, userID, notificationID)
	}
	return nil, domain.ErrNotificationNotFound
}

// Compile-time interface compliance verification
var _ domain.MessagingRepository = (*MockMessagingRepository)(nil)
