package e2e

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/vouge2017/ethio-farm-connect-sub000/client"
	"github.com/vouge2017/ethio-farm-connect-sub000/domain"
)

func TestClientFlow_SessionAndSyncs(t *testing.T) {
	ts := NewTestServer(t)
	ctx := context.Background()

	api := client.NewAPI(ts.BaseURL, client.WithAPILogger(zaptest.NewLogger(t)))
	var toasts []client.Toast
	m := client.NewSessionManager(api, client.NewMemoryStore(), client.NotifierFunc(func(toast client.Toast) {
		toasts = append(toasts, toast)
	}), client.WithLogger(zaptest.NewLogger(t)), client.WithRealtime(func(viewer string) []client.Sync {
		return []client.Sync{client.NewConversationSync(viewer), client.NewNotificationSync(viewer)}
	}))
	defer m.Close()

	require.NoError(t, m.SignUp(ctx, "0911000021", "Tigist", domain.ChannelSMS))
	require.Equal(t, client.StateOTPPending, m.Snapshot().State)
	code := m.Snapshot().DevOTP
	require.Len(t, code, 6)

	require.NoError(t, m.VerifyOTP(ctx, "0911000021", code))
	snap := m.Snapshot()
	require.True(t, snap.Authenticated())
	require.Equal(t, client.ProfileLoaded, snap.ProfileStatus)
	assert.Equal(t, "Tigist", snap.Profile.DisplayName)
	assert.Equal(t, "+251911000021", snap.User.PhoneNumber)
	seller := snap.User.ID

	syncs := m.Syncs()
	require.Len(t, syncs, 2)
	convs := syncs[0].(*client.ConversationSync)
	notifications := syncs[1].(*client.NotificationSync)
	require.Eventually(t, func() bool { return ts.Container.Hub.Connections(seller) == 1 }, 2*time.Second, 10*time.Millisecond)

	buyer := ts.SignIn(t, "0911000022", "Abebe")
	conv, err := api.StartConversation(ctx, buyer.AccessToken, seller, "heifer-3")
	require.NoError(t, err)
	_, err = api.SendMessage(ctx, buyer.AccessToken, conv.ID, "How old is she?")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return convs.Len() == 1 && convs.Unread() == 1 && notifications.Unread() == 1
	}, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, "How old is she?", convs.Items()[0].LastMessage)

	token, err := m.AccessToken()
	require.NoError(t, err)
	require.NoError(t, api.MarkConversationRead(ctx, token, conv.ID))
	_, err = api.MarkNotificationRead(ctx, token, notifications.Items()[0].ID)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return convs.Unread() == 0 && notifications.Unread() == 0
	}, 3*time.Second, 10*time.Millisecond)

	// the buyer's view, fetched in full after the fact
	buyerConvs := client.NewConversationSync(buyer.UserID)
	require.NoError(t, buyerConvs.Load(ctx, api, buyer.AccessToken))
	assert.Equal(t, 1, buyerConvs.Len())
	assert.Zero(t, buyerConvs.Unread())

	refresh := m.Snapshot().Session.RefreshToken
	m.SignOut(ctx)
	assert.Equal(t, client.StateAnonymous, m.Snapshot().State)
	assert.Empty(t, m.Syncs())
	require.Eventually(t, func() bool { return ts.Container.Hub.Connections(seller) == 0 }, 2*time.Second, 10*time.Millisecond)

	_, err = api.Refresh(ctx, refresh)
	assert.Equal(t, http.StatusUnauthorized, client.StatusOf(err))
	assert.NotEmpty(t, toasts)
}

func TestClientFlow_ResendCooldown(t *testing.T) {
	ts := NewTestServer(t)
	ctx := context.Background()
	m := client.NewSessionManager(client.NewAPI(ts.BaseURL), nil, nil)
	defer m.Close()

	require.NoError(t, m.SignUp(ctx, "0911000031", "Almaz", domain.ChannelSMS))
	err := m.ResendOTP(ctx, "0911000031", domain.ChannelSMS)
	require.Error(t, err)
	assert.True(t, client.IsRateLimited(err))
	assert.Equal(t, client.StateOTPPending, m.Snapshot().State)
}
