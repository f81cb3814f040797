package domain

import (
	"errors"
	"time"
)

// Validation errors
var (
	ErrPhoneRequired       = errors.New("phone number is required")
	ErrInvalidPhone        = errors.New("invalid phone number")
	ErrDisplayNameRequired = errors.New("display name is required")
	ErrInvalidChannel      = errors.New("unsupported otp channel")
	ErrInvalidOTPFormat    = errors.New("otp must be 6 digits")
	ErrInvalidRole         = errors.New("invalid role")
)

// OTP errors
var (
	// ErrOTPInvalid covers no match, expired, already used and exhausted codes alike
	ErrOTPInvalid     = errors.New("invalid or expired otp")
	ErrOTPResendLimit = errors.New("otp resend limit exceeded")
	ErrOTPStore       = errors.New("otp could not be stored")
)

// Dispatch errors
var (
	ErrDispatchUnavailable = errors.New("otp dispatch channel not configured")
	ErrTelegramChatUnknown = errors.New("no telegram chat linked to phone number")
)

// Account errors
var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrAccountExists   = errors.New("account already exists for phone number")
	ErrAccountCreation = errors.New("account could not be created")
)

// Token errors
var (
	ErrTokenInvalid   = errors.New("invalid token")
	ErrTokenExpired   = errors.New("token has expired")
	ErrTokenMalformed = errors.New("malformed token")
)

// Session errors
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session has expired")
)

// Authorization and messaging errors
var (
	ErrUnauthorized         = errors.New("unauthorized access")
	ErrNotParticipant       = errors.New("user is not a participant of the conversation")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrConversationExists   = errors.New("conversation already exists")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrSelfConversation     = errors.New("cannot start a conversation with yourself")
	ErrEmptyMessage         = errors.New("message body is required")
)

// RateLimitError reports how long a caller must wait before requesting another code
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return ErrOTPResendLimit.Error()
}

func (e *RateLimitError) Unwrap() error {
	return ErrOTPResendLimit
}

// Seconds rounds RetryAfter up to whole seconds
func (e *RateLimitError) Seconds() int64 {
	secs := int64(e.RetryAfter / time.Second)
	if e.RetryAfter%time.Second != 0 {
		secs++
	}
	return secs
}
