package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/vouge2017/ethio-farm-connect-sub000/domain"
)

const internalErrorMessage = "Something went wrong, please try again"

// errorStatus maps a domain error to its HTTP status and user-facing message
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrPhoneRequired):
		return http.StatusBadRequest, "Phone number is required"
	case errors.Is(err, domain.ErrDisplayNameRequired):
		return http.StatusBadRequest, "Display name is required"
	case errors.Is(err, domain.ErrInvalidPhone):
		return http.StatusBadRequest, "Invalid Ethiopian phone number"
	case errors.Is(err, domain.ErrInvalidChannel):
		return http.StatusBadRequest, "Unsupported delivery channel"
	case errors.Is(err, domain.ErrInvalidOTPFormat):
		return http.StatusBadRequest, "OTP must be 6 digits"
	case errors.Is(err, domain.ErrOTPInvalid):
		return http.StatusBadRequest, "Invalid or expired OTP"
	case errors.Is(err, domain.ErrOTPResendLimit):
		return http.StatusTooManyRequests, "Please wait before requesting another code"
	case errors.Is(err, domain.ErrInvalidRole):
		return http.StatusBadRequest, "Invalid role"
	case errors.Is(err, domain.ErrSelfConversation):
		return http.StatusBadRequest, "You cannot message yourself"
	case errors.Is(err, domain.ErrEmptyMessage):
		return http.StatusBadRequest, "Message body is required"
	case errors.Is(err, domain.ErrNotParticipant):
		return http.StatusForbidden, "Forbidden"
	case errors.Is(err, domain.ErrProfileNotFound):
		return http.StatusNotFound, "Profile not found"
	case errors.Is(err, domain.ErrConversationNotFound):
		return http.StatusNotFound, "Conversation not found"
	case errors.Is(err, domain.ErrNotificationNotFound):
		return http.StatusNotFound, "Notification not found"
	case errors.Is(err, domain.ErrTokenInvalid), errors.Is(err, domain.ErrTokenExpired), errors.Is(err, domain.ErrTokenMalformed):
		return http.StatusUnauthorized, "Invalid or expired refresh token"
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrSessionExpired):
		return http.StatusUnauthorized, "Session expired"
	}
	return http.StatusInternalServerError, internalErrorMessage
}

// bindingMessage turns a gin binding failure into a user-facing message
func bindingMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			switch fe.Tag() {
			case "ethphone":
				return "Invalid Ethiopian phone number"
			case "required":
				return fe.Field() + " is required"
			}
		}
		return "Invalid request"
	}
	return "Invalid request body"
}

// respondError writes {error} and logs unexpected failures
func respondError(c *gin.Context, log *zap.Logger, err error) {
	status, msg := errorStatus(err)
	if status == http.StatusInternalServerError {
		log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": msg})
}
