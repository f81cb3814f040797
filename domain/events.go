package domain

import (
	"context"
	"time"
)

// AuditEventType defines the type of audit event
type AuditEventType string

const (
	// OTP lifecycle events
	OTPRequestEvent       AuditEventType = "OTP_REQUESTED"
	OTPResendEvent        AuditEventType = "OTP_RESENT"
	OTPResendLimitedEvent AuditEventType = "OTP_RESEND_LIMITED"
	OTPDispatchFailEvent  AuditEventType = "OTP_DISPATCH_FAILED"
	OTPVerifyEvent        AuditEventType = "OTP_VERIFIED"
	OTPFailureEvent       AuditEventType = "OTP_VERIFICATION_FAILED"

	// Account events
	AccountCreatedEvent AuditEventType = "ACCOUNT_CREATED"
	UserSignOutEvent    AuditEventType = "USER_SIGNED_OUT"
	RoleChangedEvent    AuditEventType = "ROLE_CHANGED"
)

// AuditEvent represents a business event that occurred in the system
type AuditEvent struct {
	EventType AuditEventType         `json:"event_type"`
	UserID    string                 `json:"user_id,omitempty"`
	Phone     string                 `json:"phone,omitempty"`
	Channel   Channel                `json:"channel,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	ErrorMsg  string                 `json:"error_msg,omitempty"`
	Success   bool                   `json:"success"`
}

// AuditLogger records audit events
type AuditLogger interface {
	LogEvent(ctx context.Context, event *AuditEvent)
}

// NewAuditEvent creates a new audit event with common fields populated
func NewAuditEvent(eventType AuditEventType) *AuditEvent {
	return &AuditEvent{
		EventType: eventType,
		Timestamp: time.Now().UTC(),
		Metadata:  make(map[string]interface{}),
		Success:   true,
	}
}

// WithError sets error information on the audit event
func (e *AuditEvent) WithError(err error) *AuditEvent {
	e.Success = false
	if err != nil {
		e.ErrorMsg = err.Error()
	}
	return e
}

// WithUser sets the user id
func (e *AuditEvent) WithUser(userID string) *AuditEvent {
	e.UserID = userID
	return e
}

// WithPhone sets the phone field
func (e *AuditEvent) WithPhone(phone string) *AuditEvent {
	e.Phone = phone
	return e
}

// WithChannel sets the delivery channel
func (e *AuditEvent) WithChannel(ch Channel) *AuditEvent {
	e.Channel = ch
	return e
}

// WithMetadata adds metadata to the event
func (e *AuditEvent) WithMetadata(key string, value interface{}) *AuditEvent {
	e.Metadata[key] = value
	return e
}
