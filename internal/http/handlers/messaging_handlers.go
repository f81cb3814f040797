package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vouge2017/ethio-farm-connect-sub000/domain"
	"github.com/vouge2017/ethio-farm-connect-sub000/internal/http/middleware"
)

// MessagingHandlers serves conversations, messages and notifications of the caller
type MessagingHandlers struct {
	svc domain.MessagingService
	log *zap.Logger
}

// NewMessagingHandlers creates new messaging handlers
func NewMessagingHandlers(svc domain.MessagingService, log *zap.Logger) *MessagingHandlers {
	return &MessagingHandlers{svc: svc, log: log}
}

// StartConversationRequest opens a thread with a seller, optionally about a listing
type StartConversationRequest struct {
	SellerID  string `json:"seller_id" binding:"required"`
	ListingID string `json:"listing_id"`
}

// SendMessageRequest is the body of a new message
type SendMessageRequest struct {
	Body string `json:"body"`
}

// ListConversations handles GET /conversations
func (h *MessagingHandlers) ListConversations(c *gin.Context) {
	convs, err := h.svc.ListConversations(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": nonNil(convs)})
}

// StartConversation handles POST /conversations
func (h *MessagingHandlers) StartConversation(c *gin.Context) {
	var req StartConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindingMessage(err)})
		return
	}
	conv, err := h.svc.StartConversation(c.Request.Context(), middleware.UserID(c), req.SellerID, req.ListingID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": conv})
}

// ListMessages handles GET /conversations/:id/messages
func (h *MessagingHandlers) ListMessages(c *gin.Context) {
	msgs, err := h.svc.ListMessages(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": nonNil(msgs)})
}

// SendMessage handles POST /conversations/:id/messages
func (h *MessagingHandlers) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindingMessage(err)})
		return
	}
	msg, err := h.svc.SendMessage(c.Request.Context(), middleware.UserID(c), c.Param("id"), req.Body)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": msg})
}

// MarkConversationRead handles POST /conversations/:id/read
func (h *MessagingHandlers) MarkConversationRead(c *gin.Context) {
	if err := h.svc.MarkConversationRead(c.Request.Context(), middleware.UserID(c), c.Param("id")); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListNotifications handles GET /notifications
func (h *MessagingHandlers) ListNotifications(c *gin.Context) {
	notifications, err := h.svc.ListNotifications(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": nonNil(notifications)})
}

// MarkNotificationRead handles POST /notifications/:id/read
func (h *MessagingHandlers) MarkNotificationRead(c *gin.Context) {
	n, err := h.svc.MarkNotificationRead(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": n})
}

// nonNil keeps empty lists encoded as [] rather than null
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
