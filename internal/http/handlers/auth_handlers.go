package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vouge2017/ethio-farm-connect-sub000/domain"
	"github.com/vouge2017/ethio-farm-connect-sub000/internal/http/middleware"
)

// AuthHandlers handles session and profile requests
type AuthHandlers struct {
	authSvc domain.AuthService
	log     *zap.Logger
}

// NewAuthHandlers creates new auth handlers
func NewAuthHandlers(authSvc domain.AuthService, log *zap.Logger) *AuthHandlers {
	return &AuthHandlers{
		authSvc: authSvc,
		log:     log,
	}
}

// RefreshRequest represents token refresh request
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// UpdateProfileRequest carries the editable profile fields; omitted fields stay unchanged
type UpdateProfileRequest struct {
	DisplayName         *string         `json:"display_name"`
	Region              *string         `json:"region"`
	Zone                *string         `json:"zone"`
	Woreda              *string         `json:"woreda"`
	PreferredOTPChannel *domain.Channel `json:"preferred_otp_channel"`
}

// Refresh handles token refresh
func (h *AuthHandlers) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindingMessage(err)})
		return
	}

	result, err := h.authSvc.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"access_token":  result.AccessToken,
			"refresh_token": result.RefreshToken,
			"token_type":    "Bearer",
			"expires_in":    result.ExpiresIn,
			"user": gin.H{
				"id":           result.Profile.UserID,
				"phone_number": result.Profile.PhoneNumber,
				"role":         result.Profile.Role,
			},
		},
	})
}

// Me returns the caller's profile
func (h *AuthHandlers) Me(c *gin.Context) {
	profile, err := h.authSvc.GetProfile(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": profile})
}

// UpdateMe edits the caller's profile
func (h *AuthHandlers) UpdateMe(c *gin.Context) {
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindingMessage(err)})
		return
	}

	profile, err := h.authSvc.UpdateProfile(c.Request.Context(), middleware.UserID(c), domain.ProfileUpdate{
		DisplayName:         req.DisplayName,
		Region:              req.Region,
		Zone:                req.Zone,
		Woreda:              req.Woreda,
		PreferredOTPChannel: req.PreferredOTPChannel,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": profile})
}

// Logout revokes every session of the caller
func (h *AuthHandlers) Logout(c *gin.Context) {
	if err := h.authSvc.SignOut(c.Request.Context(), middleware.UserID(c)); err != nil {
		h.log.Error("logout failed", zap.String("user_id", middleware.UserID(c)), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Logout failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"message": "Logged out successfully",
		},
	})
}
