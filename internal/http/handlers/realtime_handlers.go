package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vouge2017/ethio-farm-connect-sub000/internal/http/middleware"
)

// FeedServer attaches an upgraded socket to a user's change feed
type FeedServer interface {
	Serve(w http.ResponseWriter, r *http.Request, userID string) error
}

// RealtimeHandlers serves the websocket change feed
type RealtimeHandlers struct {
	hub FeedServer
	log *zap.Logger
}

// NewRealtimeHandlers creates new realtime handlers
func NewRealtimeHandlers(hub FeedServer, log *zap.Logger) *RealtimeHandlers {
	return &RealtimeHandlers{hub: hub, log: log}
}

// Feed handles GET /realtime/v1/websocket. The upgrader writes its own error response.
func (h *RealtimeHandlers) Feed(c *gin.Context) {
	userID := middleware.UserID(c)
	if err := h.hub.Serve(c.Writer, c.Request, userID); err != nil {
		h.log.Warn("realtime upgrade failed", zap.String("user_id", userID), zap.Error(err))
	}
}
