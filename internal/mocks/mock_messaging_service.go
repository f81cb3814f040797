package mocks

import (
	"context"

	"github.com/vouge2017/ethio-farm-connect-sub000/domain"
)

// MockMessagingService implements domain.MessagingService interface for testing
type MockMessagingService struct {
	StartConversationFunc    func(ctx context.Context, buyerID, sellerID, listingID string) (*domain.Conversation, error)
	ListConversationsFunc    func(ctx context.Context, userID string) ([]domain.Conversation, error)
	SendMessageFunc          func(ctx context.Context, senderID, conversationID, body string) (*domain.Message, error)
	ListMessagesFunc         func(ctx context.Context, userID, conversationID string) ([]domain.Message, error)
	MarkConversationReadFunc func(ctx context.Context, userID, conversationID string) error
	ListNotificationsFunc    func(ctx context.Context, userID string) ([]domain.Notification, error)
	MarkNotificationReadFunc func(ctx context.Context, userID, notificationID string) (*domain.Notification, error)
}

// NewMockMessagingService creates a new MockMessagingService with default behaviors
func NewMockMessagingService() *MockMessagingService {
	return &MockMessagingService{}
}

func (m *MockMessagingService) StartConversation(ctx context.Context, buyerID, sellerID, listingID string) (*domain.Conversation, error) {
	if m.StartConversationFunc != nil {
		return m.StartConversationFunc(ctx, buyerID, sellerID, listingID)
	}
	if buyerID == sellerID {
		return nil, domain.ErrSelfConversation
	}
	return &domain.Conversation{ID: "mock_conversation_id", BuyerID: buyerID, SellerID: sellerID, ListingID: listingID, IsRead: true}, nil
}

func (m *MockMessagingService) ListConversations(ctx context.Context, userID string) ([]domain.Conversation, error) {
	if m.ListConversationsFunc != nil {
		return m.ListConversationsFunc(ctx, userID)
	}
	return []domain.Conversation{}, nil
}

func (m *MockMessagingService) SendMessage(ctx context.Context, senderID, conversationID, body string) (*domain.Message, error) {
	if m.SendMessageFunc != nil {
		return m.SendMessageFunc(ctx, senderID, conversationID, body)
	}
	if body == "" {
		return nil, domain.ErrEmptyMessage
	}
	return &domain.Message{ID: "mock_message_id", ConversationID: conversationID, SenderID: senderID, Body: body}, nil
}

func (m *MockMessagingService) ListMessages(ctx context.Context, userID, conversationID string) ([]domain.Message, error) {
	if m.ListMessagesFunc != nil {
		return m.ListMessagesFunc(ctx, userID, conversationID)
	}
	return []domain.Message{}, nil
}

func (m *MockMessagingService) MarkConversationRead(ctx context.Context, userID, conversationID string) error {
	if m.MarkConversationReadFunc != nil {
		return m.MarkConversationReadFunc(ctx, userID, conversationID)
	}
	return nil
}

func (m *MockMessagingService) ListNotifications(ctx context.Context, userID string) ([]domain.Notification, error) {
	if m.ListNotificationsFunc != nil {
		return m.ListNotificationsFunc(ctx, userID)
	}
	return []domain.Notification{}, nil
}

func (m *MockMessagingService) MarkNotificationRead(ctx context.Context, userID, notificationID string) (*domain.Notification, error) {
	if m.MarkNotificationReadFunc != nil {
		return m.MarkNotificationReadFunc(ctx, userID, notificationID)
	}
	return &domain.Notification{ID: notificationID, UserID: userID, IsRead: true}, nil
}

// Compile-time interface compliance verification
var _ domain.MessagingService = (*MockMessagingService)(nil)
