package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vouge2017/ethio-farm-connect-sub000/domain"
	"github.com/vouge2017/ethio-farm-connect-sub000/internal/metrics"
)

// MessagingServiceImpl implements domain.MessagingService.
// Every mutation is mirrored to the change feed for the affected participants.
type MessagingServiceImpl struct {
	repo        domain.MessagingRepository
	accountRepo domain.AccountRepository
	publisher   domain.ChangePublisher
	metrics     *metrics.Metrics
	log         *zap.Logger
}

// NewMessagingService creates a new messaging service
func NewMessagingService(
	repo domain.MessagingRepository,
	accountRepo domain.AccountRepository,
	publisher domain.ChangePublisher,
	m *metrics.Metrics,
	log *zap.Logger,
) *MessagingServiceImpl {
	return &MessagingServiceImpl{
		repo:        repo,
		accountRepo: accountRepo,
		publisher:   publisher,
		metrics:     m,
		log:         log,
	}
}

// StartConversation implements domain.MessagingService. It returns the existing
// conversation of the pair for the listing when there is one.
func (s *MessagingServiceImpl) StartConversation(ctx context.Context, buyerID, sellerID, listingID string) (*domain.Conversation, error) {
	if buyerID == sellerID {
		return nil, domain.ErrSelfConversation
	}
	if _, err := s.accountRepo.FindProfileByID(ctx, sellerID); err != nil {
		return nil, err
	}

	conv, err := s.repo.FindConversationByParties(ctx, buyerID, sellerID, listingID)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, domain.ErrConversationNotFound) {
		return nil, fmt.Errorf("failed to look up conversation: %w", err)
	}

	conv = &domain.Conversation{BuyerID: buyerID, SellerID: sellerID, ListingID: listingID}
	if err := s.repo.CreateConversation(ctx, conv); err != nil {
		if errors.Is(err, domain.ErrConversationExists) {
			return s.repo.FindConversationByParties(ctx, buyerID, sellerID, listingID)
		}
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}

	s.publish(ctx, domain.TableConversations, domain.ChangeInsert, conv, conv.Participants()...)
	return conv, nil
}

// ListConversations implements domain.MessagingService
func (s *MessagingServiceImpl) ListConversations(ctx context.Context, userID string) ([]domain.Conversation, error) {
	return s.repo.ListConversations(ctx, userID)
}

// SendMessage implements domain.MessagingService
func (s *MessagingServiceImpl) SendMessage(ctx context.Context, senderID, conversationID, body string) (*domain.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, domain.ErrEmptyMessage
	}

	conv, err := s.participantConversation(ctx, senderID, conversationID)
	if err != nil {
		return nil, err
	}

	recipient := conv.Counterpart(senderID)
	msg := &domain.Message{
		ID:             uuid.NewString(),
		ConversationID: conv.ID,
		SenderID:       senderID,
		RecipientID:    recipient,
		Body:           body,
		CreatedAt:      time.Now().UTC(),
	}
	notification := &domain.Notification{
		ID:        uuid.NewString(),
		UserID:    recipient,
		ActorID:   senderID,
		Type:      "message",
		Title:     "New message",
		Body:      body,
		Link:      "/messages/" + conv.ID,
		CreatedAt: msg.CreatedAt,
	}

	updated, err := s.repo.AppendMessage(ctx, msg, notification)
	if err != nil {
		return nil, fmt.Errorf("failed to store message: %w", err)
	}
	s.metrics.MessageSent()

	s.publish(ctx, domain.TableMessages, domain.ChangeInsert, msg, senderID, recipient)
	s.publish(ctx, domain.TableConversations, domain.ChangeUpdate, updated, updated.Participants()...)
	s.publish(ctx, domain.TableNotifications, domain.ChangeInsert, notification, recipient)
	return msg, nil
}

// ListMessages implements domain.MessagingService
func (s *MessagingServiceImpl) ListMessages(ctx context.Context, userID, conversationID string) ([]domain.Message, error) {
	if _, err := s.participantConversation(ctx, userID, conversationID); err != nil {
		return nil, err
	}
	return s.repo.ListMessages(ctx, conversationID)
}

// MarkConversationRead implements domain.MessagingService
func (s *MessagingServiceImpl) MarkConversationRead(ctx context.Context, userID, conversationID string) error {
	if _, err := s.participantConversation(ctx, userID, conversationID); err != nil {
		return err
	}

	changed, conv, err := s.repo.MarkConversationRead(ctx, conversationID, userID)
	if err != nil {
		return fmt.Errorf("failed to mark conversation read: %w", err)
	}
	for i := range changed {
		s.publish(ctx, domain.TableMessages, domain.ChangeUpdate, &changed[i], changed[i].SenderID, changed[i].RecipientID)
	}
	if len(changed) > 0 {
		s.publish(ctx, domain.TableConversations, domain.ChangeUpdate, conv, conv.Participants()...)
	}
	return nil
}

// ListNotifications implements domain.MessagingService
func (s *MessagingServiceImpl) ListNotifications(ctx context.Context, userID string) ([]domain.Notification, error) {
	return s.repo.ListNotifications(ctx, userID)
}

// MarkNotificationRead implements domain.MessagingService
func (s *MessagingServiceImpl) MarkNotificationRead(ctx context.Context, userID, notificationID string) (*domain.Notification, error) {
	n, err := s.repo.MarkNotificationRead(ctx, userID, notificationID)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, domain.TableNotifications, domain.ChangeUpdate, n, userID)
	return n, nil
}

func (s *MessagingServiceImpl) participantConversation(ctx context.Context, userID, conversationID string) (*domain.Conversation, error) {
	conv, err := s.repo.FindConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(userID) {
		return nil, domain.ErrNotParticipant
	}
	return conv, nil
}

// publish sends a change to the feed. The row is already committed, so failures are only logged.
func (s *MessagingServiceImpl) publish(ctx context.Context, table string, typ domain.ChangeType, record any, userIDs ...string) {
	change, err := domain.NewChange(table, typ, record, userIDs...)
	if err == nil {
		err = s.publisher.Publish(ctx, change)
	}
	if err != nil {
		s.log.Warn("failed to publish change",
			zap.String("table", table),
			zap.String("type", string(typ)),
			zap.Error(err))
	}
}
