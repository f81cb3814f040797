package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vouge2017/ethio-farm-connect-sub000/domain"
)

// DBConversation represents the database model for a conversation
type DBConversation struct {
	ID            string `gorm:"primaryKey;size:36"`
	ListingID     string `gorm:"uniqueIndex:idx_conversation_parties,priority:3;size:36"`
	BuyerID       string `gorm:"uniqueIndex:idx_conversation_parties,priority:1;size:36;not null"`
	SellerID      string `gorm:"uniqueIndex:idx_conversation_parties,priority:2;index;size:36;not null"`
	LastMessage   string `gorm:"size:2000"`
	LastMessageAt *time.Time
	LastSenderID  string    `gorm:"size:36"`
	IsRead        bool      `gorm:"not null"`
	CreatedAt     time.Time `gorm:"not null"`
	UpdatedAt     time.Time `gorm:"index;not null"`
}

// TableName returns the table name for GORM
func (DBConversation) TableName() string {
	return "conversations"
}

// DBMessage represents the database model for a chat message
type DBMessage struct {
	ID             string    `gorm:"primaryKey;size:36"`
	ConversationID string    `gorm:"index;size:36;not null"`
	SenderID       string    `gorm:"size:36;not null"`
	RecipientID    string    `gorm:"index;size:36;not null"`
	Body           string    `gorm:"size:2000;not null"`
	IsRead         bool      `gorm:"not null;default:false"`
	CreatedAt      time.Time `gorm:"index;not null"`
}

// TableName returns the table name for GORM
func (DBMessage) TableName() string {
	return "messages"
}

// DBNotification represents the database model for a notification
type DBNotification struct {
	ID        string    `gorm:"primaryKey;size:36"`
	UserID    string    `gorm:"index;size:36;not null"`
	ActorID   string    `gorm:"size:36"`
	Type      string    `gorm:"size:32;not null"`
	Title     string    `gorm:"size:200;not null"`
	Body      string    `gorm:"size:2000"`
	Link      string    `gorm:"size:255"`
	IsRead    bool      `gorm:"not null;default:false"`
	CreatedAt time.Time `gorm:"index;not null"`
}

// TableName returns the table name for GORM
func (DBNotification) TableName() string {
	return "notifications"
}

// MessagingRepositoryImpl implements domain.MessagingRepository using GORM
type MessagingRepositoryImpl struct {
	db *gorm.DB
}

// NewMessagingRepository creates a new messaging repository
func NewMessagingRepository(db *gorm.DB) domain.MessagingRepository {
	return &MessagingRepositoryImpl{db: db}
}

// FindConversation implements domain.MessagingRepository
func (r *MessagingRepositoryImpl) FindConversation(ctx context.Context, id string) (*domain.Conversation, error) {
	return findConversation(r.db.WithContext(ctx), id)
}

// FindConversationByParties implements domain.MessagingRepository.
// The pair matches in either direction for the same listing.
func (r *MessagingRepositoryImpl) FindConversationByParties(ctx context.Context, buyerID, sellerID, listingID string) (*domain.Conversation, error) {
	var c DBConversation
	err := r.db.WithContext(ctx).
		Where("listing_id = ?", listingID).
		Where(r.db.Where("buyer_id = ? AND seller_id = ?", buyerID, sellerID).
			Or("buyer_id = ? AND seller_id = ?", sellerID, buyerID)).
		First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrConversationNotFound
		}
		return nil, err
	}
	return conversationToDomain(&c), nil
}

// CreateConversation implements domain.MessagingRepository
func (r *MessagingRepositoryImpl) CreateConversation(ctx context.Context, conv *domain.Conversation) error {
	if conv.ID == "" {
		conv.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = now
	}
	conv.UpdatedAt = conv.CreatedAt
	conv.IsRead = true
	err := r.db.WithContext(ctx).Create(conversationToDB(conv)).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.ErrConversationExists
	}
	return err
}

// ListConversations implements domain.MessagingRepository
func (r *MessagingRepositoryImpl) ListConversations(ctx context.Context, userID string) ([]domain.Conversation, error) {
	var rows []DBConversation
	err := r.db.WithContext(ctx).
		Where("buyer_id = ? OR seller_id = ?", userID, userID).
		Order("updated_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.Conversation, 0, len(rows))
	for i := range rows {
		out = append(out, *conversationToDomain(&rows[i]))
	}
	return out, nil
}

// AppendMessage implements domain.MessagingRepository
func (r *MessagingRepositoryImpl) AppendMessage(ctx context.Context, msg *domain.Message, notification *domain.Notification) (*domain.Conversation, error) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	var conv *domain.Conversation
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(messageToDB(msg)).Error; err != nil {
			return err
		}

		res := tx.Model(&DBConversation{}).Where("id = ?", msg.ConversationID).Updates(map[string]interface{}{
			"last_message":    msg.Body,
			"last_message_at": msg.CreatedAt,
			"last_sender_id":  msg.SenderID,
			"is_read":         false,
			"updated_at":      msg.CreatedAt,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrConversationNotFound
		}

		if notification != nil {
			if notification.ID == "" {
				notification.ID = uuid.NewString()
			}
			if notification.CreatedAt.IsZero() {
				notification.CreatedAt = msg.CreatedAt
			}
			if err := tx.Create(notificationToDB(notification)).Error; err != nil {
				return err
			}
		}

		var err error
		conv, err = findConversation(tx, msg.ConversationID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return conv, nil
}

// ListMessages implements domain.MessagingRepository
func (r *MessagingRepositoryImpl) ListMessages(ctx context.Context, conversationID string) ([]domain.Message, error) {
	var rows []DBMessage
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.Message, 0, len(rows))
	for i := range rows {
		out = append(out, *messageToDomain(&rows[i]))
	}
	return out, nil
}

// MarkConversationRead implements domain.MessagingRepository
func (r *MessagingRepositoryImpl) MarkConversationRead(ctx context.Context, conversationID, readerID string) ([]domain.Message, *domain.Conversation, error) {
	var changed []domain.Message
	var conv *domain.Conversation

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var unread []DBMessage
		if err := tx.Where("conversation_id = ? AND recipient_id = ? AND is_read = ?", conversationID, readerID, false).
			Find(&unread).Error; err != nil {
			return err
		}

		if len(unread) > 0 {
			ids := make([]string, 0, len(unread))
			for i := range unread {
				ids = append(ids, unread[i].ID)
				unread[i].IsRead = true
				changed = append(changed, *messageToDomain(&unread[i]))
			}
			if err := tx.Model(&DBMessage{}).Where("id IN ?", ids).Update("is_read", true).Error; err != nil {
				return err
			}
		}

		if err := tx.Model(&DBConversation{}).
			Where("id = ? AND last_sender_id <> ? AND is_read = ?", conversationID, readerID, false).
			Update("is_read", true).Error; err != nil {
			return err
		}

		var err error
		conv, err = findConversation(tx, conversationID)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return changed, conv, nil
}

// ListNotifications implements domain.MessagingRepository
func (r *MessagingRepositoryImpl) ListNotifications(ctx context.Context, userID string) ([]domain.Notification, error) {
	var rows []DBNotification
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.Notification, 0, len(rows))
	for i := range rows {
		out = append(out, *notificationToDomain(&rows[i]))
	}
	return out, nil
}

// MarkNotificationRead implements domain.MessagingRepository
func (r *MessagingRepositoryImpl) MarkNotificationRead(ctx context.Context, userID, notificationID string) (*domain.Notification, error) {
	db := r.db.WithContext(ctx)
	if err := db.Model(&DBNotification{}).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Update("is_read", true).Error; err != nil {
		return nil, err
	}

	var n DBNotification
	if err := db.Where("id = ? AND user_id = ?", notificationID, userID).First(&n).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotificationNotFound
		}
		return nil, err
	}
	return notificationToDomain(&n), nil
}

func findConversation(db *gorm.DB, id string) (*domain.Conversation, error) {
	var c DBConversation
	if err := db.Where("id = ?", id).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrConversationNotFound
		}
		return nil, err
	}
	return conversationToDomain(&c), nil
}

func conversationToDB(c *domain.Conversation) *DBConversation {
	return &DBConversation{
		ID:            c.ID,
		ListingID:     c.ListingID,
		BuyerID:       c.BuyerID,
		SellerID:      c.SellerID,
		LastMessage:   c.LastMessage,
		LastMessageAt: c.LastMessageAt,
		LastSenderID:  c.LastSenderID,
		IsRead:        c.IsRead,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

func conversationToDomain(c *DBConversation) *domain.Conversation {
	return &domain.Conversation{
		ID:            c.ID,
		ListingID:     c.ListingID,
		BuyerID:       c.BuyerID,
		SellerID:      c.SellerID,
		LastMessage:   c.LastMessage,
		LastMessageAt: c.LastMessageAt,
		LastSenderID:  c.LastSenderID,
		IsRead:        c.IsRead,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

func messageToDB(m *domain.Message) *DBMessage {
	return &DBMessage{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		RecipientID:    m.RecipientID,
		Body:           m.Body,
		IsRead:         m.IsRead,
		CreatedAt:      m.CreatedAt,
	}
}

func messageToDomain(m *DBMessage) *domain.Message {
	return &domain.Message{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		RecipientID:    m.RecipientID,
		Body:           m.Body,
		IsRead:         m.IsRead,
		CreatedAt:      m.CreatedAt,
	}
}

func notificationToDB(n *domain.Notification) *DBNotification {
	return &DBNotification{
		ID:        n.ID,
		UserID:    n.UserID,
		ActorID:   n.ActorID,
		Type:      n.Type,
		Title:     n.Title,
		Body:      n.Body,
		Link:      n.Link,
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt,
	}
}

func notificationToDomain(n *DBNotification) *domain.Notification {
	return &domain.Notification{
		ID:        n.ID,
		UserID:    n.UserID,
		ActorID:   n.ActorID,
		Type:      n.Type,
		Title:     n.Title,
		Body:      n.Body,
		Link:      n.Link,
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt,
	}
}
