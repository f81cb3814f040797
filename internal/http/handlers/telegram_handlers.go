package handlers

import (
	"context"
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vouge2017/ethio-farm-connect-sub000/internal/infrastructure/notifications"
)

// TelegramSecretHeader carries the secret registered with setWebhook
const TelegramSecretHeader = "X-Telegram-Bot-Api-Secret-Token"

// UpdateHandler processes one bot update
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, update *notifications.Update) error
}

// TelegramHandlers receives bot webhook updates
type TelegramHandlers struct {
	bot    UpdateHandler
	secret string
	log    *zap.Logger
}

// NewTelegramHandlers creates the webhook handler.
// Without a secret every update is rejected, since contact shares would otherwise be forgeable.
func NewTelegramHandlers(bot UpdateHandler, secret string, log *zap.Logger) *TelegramHandlers {
	if secret == "" {
		log.Warn("telegram webhook secret not set, rejecting all updates")
	}
	return &TelegramHandlers{bot: bot, secret: secret, log: log}
}

// Webhook handles POST /telegram/webhook.
// Processing failures still answer 200 so Telegram does not redeliver the update.
func (h *TelegramHandlers) Webhook(c *gin.Context) {
	got := c.GetHeader(TelegramSecretHeader)
	if h.secret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(h.secret)) != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid webhook secret"})
		return
	}

	var update notifications.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid update"})
		return
	}

	if err := h.bot.HandleUpdate(c.Request.Context(), &update); err != nil {
		h.log.Error("telegram update failed", zap.Int64("update_id", update.UpdateID), zap.Error(err))
	}
	c.Status(http.StatusOK)
}
