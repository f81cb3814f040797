package handlers

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type feedRecorder struct {
	users []string
	err   error
}

func (f *feedRecorder) Serve(w http.ResponseWriter, r *http.Request, userID string) error {
	f.users = append(f.users, userID)
	if f.err != nil {
		http.Error(w, "upgrade required", http.StatusBadRequest)
	}
	return f.err
}

func TestRealtimeHandlers_Feed(t *testing.T) {
	feed := &feedRecorder{}
	r := newTestRouter("user-1")
	r.GET("/realtime/v1/websocket", NewRealtimeHandlers(feed, zap.NewNop()).Feed)

	perform(r, http.MethodGet, "/realtime/v1/websocket", nil)
	assert.Equal(t, []string{"user-1"}, feed.users)

	feed.err = errors.New("websocket: not a websocket handshake")
	w := perform(r, http.MethodGet, "/realtime/v1/websocket", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
