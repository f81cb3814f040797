package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vouge2017/ethio-farm-connect-sub000/domain"
)

func newAccount(phone, name string) (*domain.Identity, *domain.Profile) {
	now := time.Now().UTC()
	id := uuid.NewString()
	return &domain.Identity{ID: id, PhoneNumber: phone, CreatedAt: now},
		&domain.Profile{
			UserID:      id,
			PhoneNumber: phone,
			DisplayName: name,
			Role:        domain.RoleFarmer,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
}

func TestAccountRepository_CreateAndFind(t *testing.T) {
	repo := NewAccountRepository(setupTestDB(t))
	ctx := context.Background()

	identity, profile := newAccount("+251911000001", "Almaz")
	require.NoError(t, repo.CreateAccount(ctx, identity, profile))

	byPhone, err := repo.FindProfileByPhone(ctx, "+251911000001")
	require.NoError(t, err)
	assert.Equal(t, identity.ID, byPhone.UserID)
	assert.Equal(t, "Almaz", byPhone.DisplayName)
	assert.Equal(t, domain.RoleFarmer, byPhone.Role)
	assert.Equal(t, domain.ChannelSMS, byPhone.PreferredOTPChannel)

	byID, err := repo.FindProfileByID(ctx, identity.ID)
	require.NoError(t, err)
	assert.Equal(t, byPhone.PhoneNumber, byID.PhoneNumber)

	_, err = repo.FindProfileByPhone(ctx, "+251911999999")
	assert.ErrorIs(t, err, domain.ErrProfileNotFound)
}

func TestAccountRepository_DuplicatePhone(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAccountRepository(db)
	ctx := context.Background()

	first, firstProfile := newAccount("+251911000002", "Kebede")
	require.NoError(t, repo.CreateAccount(ctx, first, firstProfile))

	second, secondProfile := newAccount("+251911000002", "Kebede again")
	err := repo.CreateAccount(ctx, second, secondProfile)
	assert.ErrorIs(t, err, domain.ErrAccountExists)

	// the failed transaction leaves no orphan identity
	var count int64
	require.NoError(t, db.Model(&DBIdentity{}).Where("phone_number = ?", "+251911000002").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestAccountRepository_UpdateProfile(t *testing.T) {
	repo := NewAccountRepository(setupTestDB(t))
	ctx := context.Background()

	identity, profile := newAccount("+251911000003", "Tigist")
	require.NoError(t, repo.CreateAccount(ctx, identity, profile))

	name := "Tigist Haile"
	region := "Oromia"
	channel := domain.ChannelTelegram
	updated, err := repo.UpdateProfile(ctx, identity.ID, domain.ProfileUpdate{
		DisplayName:         &name,
		Region:              &region,
		PreferredOTPChannel: &channel,
	})
	require.NoError(t, err)
	assert.Equal(t, "Tigist Haile", updated.DisplayName)
	assert.Equal(t, "Oromia", updated.Region)
	assert.Empty(t, updated.Zone)
	assert.Equal(t, domain.ChannelTelegram, updated.PreferredOTPChannel)

	// empty update returns the profile untouched
	same, err := repo.UpdateProfile(ctx, identity.ID, domain.ProfileUpdate{})
	require.NoError(t, err)
	assert.Equal(t, "Tigist Haile", same.DisplayName)

	_, err = repo.UpdateProfile(ctx, "missing", domain.ProfileUpdate{DisplayName: &name})
	assert.ErrorIs(t, err, domain.ErrProfileNotFound)
}

func TestAccountRepository_SetRole(t *testing.T) {
	repo := NewAccountRepository(setupTestDB(t))
	ctx := context.Background()

	identity, profile := newAccount("+251911000004", "Dawit")
	require.NoError(t, repo.CreateAccount(ctx, identity, profile))

	updated, err := repo.SetRole(ctx, identity.ID, domain.RoleVet)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleVet, updated.Role)

	_, err = repo.SetRole(ctx, "missing", domain.RoleAdmin)
	assert.ErrorIs(t, err, domain.ErrProfileNotFound)
}

func TestTelegramChatRepository_Link(t *testing.T) {
	repo := NewTelegramChatRepository(setupTestDB(t))
	ctx := context.Background()

	_, err := repo.ChatIDByPhone(ctx, "+251911000005")
	assert.ErrorIs(t, err, domain.ErrTelegramChatUnknown)

	require.NoError(t, repo.Link(ctx, "+251911000005", 1001))
	chatID, err := repo.ChatIDByPhone(ctx, "+251911000005")
	require.NoError(t, err)
	assert.Equal(t, int64(1001), chatID)

	// relinking replaces the chat
	require.NoError(t, repo.Link(ctx, "+251911000005", 2002))
	chatID, err = repo.ChatIDByPhone(ctx, "+251911000005")
	require.NoError(t, err)
	assert.Equal(t, int64(2002), chatID)
}
