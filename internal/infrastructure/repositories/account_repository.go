package repositories

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/vouge2017/ethio-farm-connect-sub000/domain"
)

// DBIdentity represents the database model for an authentication identity
type DBIdentity struct {
	ID          string    `gorm:"primaryKey;size:36"`
	PhoneNumber string    `gorm:"uniqueIndex;size:20;not null"`
	CreatedAt   time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (DBIdentity) TableName() string {
	return "identities"
}

// DBProfile represents the database model for a profile
type DBProfile struct {
	UserID              string    `gorm:"primaryKey;size:36"`
	PhoneNumber         string    `gorm:"uniqueIndex;size:20;not null"`
	DisplayName         string    `gorm:"size:120;not null"`
	Role                string    `gorm:"index;size:16;not null;default:farmer"`
	Region              string    `gorm:"size:64"`
	Zone                string    `gorm:"size:64"`
	Woreda              string    `gorm:"size:64"`
	PreferredOTPChannel string    `gorm:"column:preferred_otp_channel;size:16;not null;default:sms"`
	CreatedAt           time.Time `gorm:"not null"`
	UpdatedAt           time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (DBProfile) TableName() string {
	return "profiles"
}

// AccountRepositoryImpl implements domain.AccountRepository using GORM
type AccountRepositoryImpl struct {
	db *gorm.DB
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *gorm.DB) domain.AccountRepository {
	return &AccountRepositoryImpl{db: db}
}

// CreateAccount implements domain.AccountRepository
func (r *AccountRepositoryImpl) CreateAccount(ctx context.Context, identity *domain.Identity, profile *domain.Profile) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&DBIdentity{
			ID:          identity.ID,
			PhoneNumber: identity.PhoneNumber,
			CreatedAt:   identity.CreatedAt,
		}).Error; err != nil {
			return err
		}
		return tx.Create(profileToDB(profile)).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.ErrAccountExists
	}
	return err
}

// FindProfileByPhone implements domain.AccountRepository
func (r *AccountRepositoryImpl) FindProfileByPhone(ctx context.Context, phone string) (*domain.Profile, error) {
	return r.findProfile(ctx, "phone_number = ?", phone)
}

// FindProfileByID implements domain.AccountRepository
func (r *AccountRepositoryImpl) FindProfileByID(ctx context.Context, userID string) (*domain.Profile, error) {
	return r.findProfile(ctx, "user_id = ?", userID)
}

// UpdateProfile implements domain.AccountRepository
func (r *AccountRepositoryImpl) UpdateProfile(ctx context.Context, userID string, update domain.ProfileUpdate) (*domain.Profile, error) {
	fields := map[string]interface{}{}
	if update.DisplayName != nil {
		fields["display_name"] = *update.DisplayName
	}
	if update.Region != nil {
		fields["region"] = *update.Region
	}
	if update.Zone != nil {
		fields["zone"] = *update.Zone
	}
	if update.Woreda != nil {
		fields["woreda"] = *update.Woreda
	}
	if update.PreferredOTPChannel != nil {
		fields["preferred_otp_channel"] = string(*update.PreferredOTPChannel)
	}
	return r.updateFields(ctx, userID, fields)
}

// SetRole implements domain.AccountRepository
func (r *AccountRepositoryImpl) SetRole(ctx context.Context, userID string, role domain.Role) (*domain.Profile, error) {
	return r.updateFields(ctx, userID, map[string]interface{}{"role": string(role)})
}

func (r *AccountRepositoryImpl) updateFields(ctx context.Context, userID string, fields map[string]interface{}) (*domain.Profile, error) {
	if len(fields) > 0 {
		fields["updated_at"] = time.Now().UTC()
		res := r.db.WithContext(ctx).Model(&DBProfile{}).Where("user_id = ?", userID).Updates(fields)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, domain.ErrProfileNotFound
		}
	}
	return r.FindProfileByID(ctx, userID)
}

func (r *AccountRepositoryImpl) findProfile(ctx context.Context, query string, arg interface{}) (*domain.Profile, error) {
	var p DBProfile
	err := r.db.WithContext(ctx).Where(query, arg).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, err
	}
	return profileToDomain(&p), nil
}

func profileToDB(p *domain.Profile) *DBProfile {
	channel := p.PreferredOTPChannel
	if channel == "" {
		channel = domain.ChannelSMS
	}
	role := p.Role
	if role == "" {
		role = domain.RoleFarmer
	}
	return &DBProfile{
		UserID:              p.UserID,
		PhoneNumber:         p.PhoneNumber,
		DisplayName:         p.DisplayName,
		Role:                string(role),
		Region:              p.Region,
		Zone:                p.Zone,
		Woreda:              p.Woreda,
		PreferredOTPChannel: string(channel),
		CreatedAt:           p.CreatedAt,
		UpdatedAt:           p.UpdatedAt,
	}
}

func profileToDomain(p *DBProfile) *domain.Profile {
	return &domain.Profile{
		UserID:              p.UserID,
		PhoneNumber:         p.PhoneNumber,
		DisplayName:         p.DisplayName,
		Role:                domain.Role(p.Role),
		Region:              p.Region,
		Zone:                p.Zone,
		Woreda:              p.Woreda,
		PreferredOTPChannel: domain.Channel(p.PreferredOTPChannel),
		CreatedAt:           p.CreatedAt,
		UpdatedAt:           p.UpdatedAt,
	}
}
