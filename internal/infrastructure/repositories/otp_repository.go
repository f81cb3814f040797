package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vouge2017/ethio-farm-connect-sub000/domain"
)

// consumeRetries bounds how often Consume re-selects after losing a race
const consumeRetries = 3

// DBOTPCode represents the database model for an OTP record
type DBOTPCode struct {
	ID          string    `gorm:"primaryKey;size:36"`
	PhoneNumber string    `gorm:"index:idx_otp_phone_created,priority:1;size:20;not null"`
	OTPCode     string    `gorm:"column:otp_code;size:6;not null"`
	Channel     string    `gorm:"size:16;not null"`
	DisplayName string    `gorm:"size:120"`
	CreatedAt   time.Time `gorm:"index:idx_otp_phone_created,priority:2;not null"`
	ExpiresAt   time.Time `gorm:"index;not null"`
	Attempts    int       `gorm:"not null;default:0"`
	IsUsed      bool      `gorm:"index;not null;default:false"`
	UsedAt      *time.Time
}

// TableName returns the table name for GORM
func (DBOTPCode) TableName() string {
	return "otp_codes"
}

// OTPRepositoryImpl implements domain.OTPRepository using GORM
type OTPRepositoryImpl struct {
	db *gorm.DB
}

// NewOTPRepository creates a new OTP repository
func NewOTPRepository(db *gorm.DB) domain.OTPRepository {
	return &OTPRepositoryImpl{db: db}
}

// Create implements domain.OTPRepository
func (r *OTPRepositoryImpl) Create(ctx context.Context, record *domain.OTPRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	return r.db.WithContext(ctx).Create(otpToDB(record)).Error
}

// Latest implements domain.OTPRepository
func (r *OTPRepositoryImpl) Latest(ctx context.Context, phone string) (*domain.OTPRecord, error) {
	var rec DBOTPCode
	err := r.db.WithContext(ctx).
		Where("phone_number = ?", phone).
		Order("created_at DESC").
		Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return otpToDomain(&rec), nil
}

// Consume implements domain.OTPRepository.
// The newest live match is claimed with UPDATE ... WHERE is_used = false; only the
// caller whose update touches the row wins, a loser re-selects.
func (r *OTPRepositoryImpl) Consume(ctx context.Context, phone, code string, now time.Time, maxAttempts int) (*domain.OTPRecord, error) {
	for i := 0; i < consumeRetries; i++ {
		q := r.db.WithContext(ctx).
			Where("phone_number = ? AND otp_code = ? AND is_used = ? AND expires_at > ?", phone, code, false, now)
		if maxAttempts > 0 {
			q = q.Where("attempts < ?", maxAttempts)
		}

		var candidate DBOTPCode
		err := q.Order("created_at DESC").Take(&candidate).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrOTPInvalid
		}
		if err != nil {
			return nil, err
		}

		res := r.db.WithContext(ctx).
			Model(&DBOTPCode{}).
			Where("id = ? AND is_used = ?", candidate.ID, false).
			Updates(map[string]interface{}{"is_used": true, "used_at": now})
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 1 {
			candidate.IsUsed = true
			candidate.UsedAt = &now
			return otpToDomain(&candidate), nil
		}
	}
	return nil, domain.ErrOTPInvalid
}

// RecordFailedAttempt implements domain.OTPRepository
func (r *OTPRepositoryImpl) RecordFailedAttempt(ctx context.Context, phone string, now time.Time) error {
	return r.db.WithContext(ctx).
		Model(&DBOTPCode{}).
		Where("phone_number = ? AND is_used = ? AND expires_at > ?", phone, false, now).
		UpdateColumn("attempts", gorm.Expr("attempts + ?", 1)).Error
}

func otpToDB(o *domain.OTPRecord) *DBOTPCode {
	return &DBOTPCode{
		ID:          o.ID,
		PhoneNumber: o.PhoneNumber,
		OTPCode:     o.Code,
		Channel:     string(o.Channel),
		DisplayName: o.DisplayName,
		CreatedAt:   o.CreatedAt,
		ExpiresAt:   o.ExpiresAt,
		Attempts:    o.Attempts,
		IsUsed:      o.IsUsed,
		UsedAt:      o.UsedAt,
	}
}

func otpToDomain(o *DBOTPCode) *domain.OTPRecord {
	return &domain.OTPRecord{
		ID:          o.ID,
		PhoneNumber: o.PhoneNumber,
		Code:        o.OTPCode,
		Channel:     domain.Channel(o.Channel),
		DisplayName: o.DisplayName,
		CreatedAt:   o.CreatedAt,
		ExpiresAt:   o.ExpiresAt,
		Attempts:    o.Attempts,
		IsUsed:      o.IsUsed,
		UsedAt:      o.UsedAt,
	}
}
