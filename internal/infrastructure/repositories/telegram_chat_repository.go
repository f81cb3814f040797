package repositories

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vouge2017/ethio-farm-connect-sub000/domain"
)

// DBTelegramChat links a phone number to the private chat that shared it with the bot
type DBTelegramChat struct {
	PhoneNumber string    `gorm:"primaryKey;size:20"`
	ChatID      int64     `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (DBTelegramChat) TableName() string {
	return "telegram_chats"
}

// TelegramChatRepositoryImpl implements domain.TelegramChatRepository using GORM
type TelegramChatRepositoryImpl struct {
	db *gorm.DB
}

// NewTelegramChatRepository creates a new telegram chat repository
func NewTelegramChatRepository(db *gorm.DB) domain.TelegramChatRepository {
	return &TelegramChatRepositoryImpl{db: db}
}

// Link implements domain.TelegramChatRepository
func (r *TelegramChatRepositoryImpl) Link(ctx context.Context, phone string, chatID int64) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "phone_number"}},
		DoUpdates: clause.AssignmentColumns([]string{"chat_id", "updated_at"}),
	}).Create(&DBTelegramChat{
		PhoneNumber: phone,
		ChatID:      chatID,
		UpdatedAt:   time.Now().UTC(),
	}).Error
}

// ChatIDByPhone implements domain.TelegramChatRepository
func (r *TelegramChatRepositoryImpl) ChatIDByPhone(ctx context.Context, phone string) (int64, error) {
	var rec DBTelegramChat
	err := r.db.WithContext(ctx).Where("phone_number = ?", phone).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, domain.ErrTelegramChatUnknown
	}
	if err != nil {
		return 0, err
	}
	return rec.ChatID, nil
}
