package notifications

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vouge2017/ethio-farm-connect-sub000/domain"
)

type fakeChats map[string]int64

func (f fakeChats) Link(_ context.Context, phone string, chatID int64) error {
	f[phone] = chatID
	return nil
}

func (f fakeChats) ChatIDByPhone(_ context.Context, phone string) (int64, error) {
	id, ok := f[phone]
	if !ok {
		return 0, domain.ErrTelegramChatUnknown
	}
	return id, nil
}

type botRequest struct {
	path   string
	chatID string
	text   string
}

func newFakeBot(t *testing.T, ok bool) (*httptest.Server, func() []botRequest) {
	t.Helper()
	var mu sync.Mutex
	var got []botRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		mu.Lock()
		got = append(got, botRequest{path: r.URL.Path, chatID: r.PostForm.Get("chat_id"), text: r.PostForm.Get("text")})
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"ok": ok, "result": map[string]any{"message_id": 7}})
	}))
	t.Cleanup(srv.Close)

	return srv, func() []botRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]botRequest(nil), got...)
	}
}

func TestTelegramService_SendOTP(t *testing.T) {
	srv, requests := newFakeBot(t, true)
	chats := fakeChats{"+251911234567": 4242}
	svc := NewTelegramService("TOKEN", srv.URL+"/", chats, 10*time.Minute, zap.NewNop())

	require.NoError(t, svc.SendOTP(context.Background(), "+251911234567", "123456"))

	got := requests()
	require.Len(t, got, 1)
	assert.Equal(t, "/botTOKEN/sendMessage", got[0].path)
	assert.Equal(t, "4242", got[0].chatID)
	assert.Contains(t, got[0].text, "123456")
	assert.Contains(t, got[0].text, "10 minutes")
}

func TestTelegramService_UnknownChat(t *testing.T) {
	srv, requests := newFakeBot(t, true)
	svc := NewTelegramService("TOKEN", srv.URL, fakeChats{}, 10*time.Minute, zap.NewNop())

	err := svc.SendOTP(context.Background(), "+251911234567", "123456")
	assert.ErrorIs(t, err, domain.ErrTelegramChatUnknown)
	assert.Empty(t, requests())
}

func TestTelegramService_NotOK(t *testing.T) {
	srv, _ := newFakeBot(t, false)
	svc := NewTelegramService("TOKEN", srv.URL, fakeChats{"+251911234567": 1}, 10*time.Minute, zap.NewNop())

	err := svc.SendOTP(context.Background(), "+251911234567", "123456")
	assert.Error(t, err)
}

func TestTelegramService_Unconfigured(t *testing.T) {
	svc := NewTelegramService("", "http://127.0.0.1:1", fakeChats{}, 10*time.Minute, zap.NewNop())
	assert.False(t, svc.Configured())
	assert.NoError(t, svc.SendOTP(context.Background(), "+251911234567", "123456"))
}

func TestUpdateMessage_SharedPhone(t *testing.T) {
	own := &UpdateMessage{
		From:    &User{ID: 9},
		Contact: &Contact{PhoneNumber: "251911234567", UserID: 9},
	}
	phone, ok := own.SharedPhone()
	assert.True(t, ok)
	assert.Equal(t, "251911234567", phone)

	forwarded := &UpdateMessage{
		From:    &User{ID: 9},
		Contact: &Contact{PhoneNumber: "251911234567", UserID: 10},
	}
	_, ok = forwarded.SharedPhone()
	assert.False(t, ok)

	var none *UpdateMessage
	_, ok = none.SharedPhone()
	assert.False(t, ok)
}

func TestTelegramService_HandleUpdate(t *testing.T) {
	srv, requests := newFakeBot(t, true)
	chats := fakeChats{}
	svc := NewTelegramService("bot-token", srv.URL, chats, 10*time.Minute, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, svc.HandleUpdate(ctx, &Update{UpdateID: 1}))
	assert.Empty(t, requests())

	require.NoError(t, svc.HandleUpdate(ctx, &Update{UpdateID: 2, Message: &UpdateMessage{
		Chat: Chat{ID: 42, Type: "private"},
		From: &User{ID: 9},
		Text: "/start",
	}}))
	require.Len(t, requests(), 1)
	assert.Equal(t, sharePrompt, requests()[0].text)
	assert.Empty(t, chats)

	require.NoError(t, svc.HandleUpdate(ctx, &Update{UpdateID: 3, Message: &UpdateMessage{
		Chat:    Chat{ID: 42, Type: "private"},
		From:    &User{ID: 9},
		Contact: &Contact{PhoneNumber: "251911234567", UserID: 9},
	}}))
	assert.Equal(t, int64(42), chats["+251911234567"])
	require.Len(t, requests(), 2)
	assert.Contains(t, requests()[1].text, "+251 91 123 4567")

	require.NoError(t, svc.HandleUpdate(ctx, &Update{UpdateID: 4, Message: &UpdateMessage{
		Chat:    Chat{ID: 43, Type: "private"},
		From:    &User{ID: 11},
		Contact: &Contact{PhoneNumber: "+14155550100", UserID: 11},
	}}))
	assert.Len(t, chats, 1)
	assert.Equal(t, "43", requests()[2].chatID)
}
