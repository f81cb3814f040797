package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vouge2017/ethio-farm-connect-sub000/domain"
)

func TestMessagingRepository_Conversations(t *testing.T) {
	repo := NewMessagingRepository(setupTestDB(t))
	ctx := context.Background()

	conv := &domain.Conversation{BuyerID: "buyer", SellerID: "seller", ListingID: "listing-1"}
	require.NoError(t, repo.CreateConversation(ctx, conv))
	require.NotEmpty(t, conv.ID)
	assert.True(t, conv.IsRead)

	found, err := repo.FindConversationByParties(ctx, "buyer", "seller", "listing-1")
	require.NoError(t, err)
	assert.Equal(t, conv.ID, found.ID)

	reversed, err := repo.FindConversationByParties(ctx, "seller", "buyer", "listing-1")
	require.NoError(t, err)
	assert.Equal(t, conv.ID, reversed.ID)

	_, err = repo.FindConversationByParties(ctx, "buyer", "seller", "listing-2")
	assert.ErrorIs(t, err, domain.ErrConversationNotFound)

	_, err = repo.FindConversation(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrConversationNotFound)

	dup := &domain.Conversation{BuyerID: "buyer", SellerID: "seller", ListingID: "listing-1"}
	assert.ErrorIs(t, repo.CreateConversation(ctx, dup), domain.ErrConversationExists)

	other := &domain.Conversation{BuyerID: "someone", SellerID: "else"}
	require.NoError(t, repo.CreateConversation(ctx, other))

	list, err := repo.ListConversations(ctx, "seller")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, conv.ID, list[0].ID)
}

func TestMessagingRepository_AppendAndRead(t *testing.T) {
	repo := NewMessagingRepository(setupTestDB(t))
	ctx := context.Background()

	conv := &domain.Conversation{BuyerID: "buyer", SellerID: "seller", ListingID: "listing-1"}
	require.NoError(t, repo.CreateConversation(ctx, conv))

	msg := &domain.Message{
		ConversationID: conv.ID,
		SenderID:       "buyer",
		RecipientID:    "seller",
		Body:           "Is the heifer still available?",
		CreatedAt:      time.Now().UTC(),
	}
	notification := &domain.Notification{
		UserID:  "seller",
		ActorID: "buyer",
		Type:    "message",
		Title:   "New message",
		Body:    msg.Body,
	}

	updated, err := repo.AppendMessage(ctx, msg, notification)
	require.NoError(t, err)
	assert.NotEmpty(t, msg.ID)
	assert.NotEmpty(t, notification.ID)
	assert.Equal(t, "Is the heifer still available?", updated.LastMessage)
	assert.Equal(t, "buyer", updated.LastSenderID)
	assert.False(t, updated.IsRead)
	require.NotNil(t, updated.LastMessageAt)

	messages, err := repo.ListMessages(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.False(t, messages[0].IsRead)

	notifications, err := repo.ListNotifications(ctx, "seller")
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.Equal(t, "message", notifications[0].Type)

	// the sender reading does not flip anything
	changed, afterSender, err := repo.MarkConversationRead(ctx, conv.ID, "buyer")
	require.NoError(t, err)
	assert.Empty(t, changed)
	assert.False(t, afterSender.IsRead)

	changed, afterRecipient, err := repo.MarkConversationRead(ctx, conv.ID, "seller")
	require.NoError(t, err)
	require.Len(t, changed, 1)
	assert.True(t, changed[0].IsRead)
	assert.True(t, afterRecipient.IsRead)

	n, err := repo.MarkNotificationRead(ctx, "seller", notification.ID)
	require.NoError(t, err)
	assert.True(t, n.IsRead)

	_, err = repo.MarkNotificationRead(ctx, "buyer", notification.ID)
	assert.ErrorIs(t, err, domain.ErrNotificationNotFound)
}

func TestMessagingRepository_AppendToMissingConversation(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMessagingRepository(db)

	_, err := repo.AppendMessage(context.Background(), &domain.Message{
		ConversationID: "missing",
		SenderID:       "a",
		RecipientID:    "b",
		Body:           "hello",
	}, nil)
	assert.ErrorIs(t, err, domain.ErrConversationNotFound)

	var count int64
	require.NoError(t, db.Model(&DBMessage{}).Count(&count).Error)
	assert.Zero(t, count)
}
