package domain

import (
	"context"
	"time"
)

// OTPRepository defines OTP record persistence
type OTPRepository interface {
	Create(ctx context.Context, record *OTPRecord) error
	// Latest returns the newest record for the phone, or nil if none exists
	Latest(ctx context.Context, phone string) (*OTPRecord, error)
	// Consume atomically marks the newest matching live record as used
	Consume(ctx context.Context, phone, code string, now time.Time, maxAttempts int) (*OTPRecord, error)
	// RecordFailedAttempt bumps the attempts counter of every live record of the phone
	RecordFailedAttempt(ctx context.Context, phone string, now time.Time) error
}

// AccountRepository defines identity and profile persistence
type AccountRepository interface {
	// CreateAccount inserts the identity and its profile in one transaction
	CreateAccount(ctx context.Context, identity *Identity, profile *Profile) error
	FindProfileByPhone(ctx context.Context, phone string) (*Profile, error)
	FindProfileByID(ctx context.Context, userID string) (*Profile, error)
	UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) (*Profile, error)
	SetRole(ctx context.Context, userID string, role Role) (*Profile, error)
}

// TelegramChatRepository maps phone numbers to Telegram chat ids
type TelegramChatRepository interface {
	Link(ctx context.Context, phone string, chatID int64) error
	ChatIDByPhone(ctx context.Context, phone string) (int64, error)
}

// SessionRepository defines session data access operations
type SessionRepository interface {
	Create(ctx context.Context, session *Session) error
	FindByID(ctx context.Context, sessionID string) (*Session, error)
	Delete(ctx context.Context, sessionID string) error
	DeleteAllForUser(ctx context.Context, userID string) error
}

// MessagingRepository defines conversation, message and notification persistence
type MessagingRepository interface {
	FindConversation(ctx context.Context, id string) (*Conversation, error)
	FindConversationByParties(ctx context.Context, buyerID, sellerID, listingID string) (*Conversation, error)
	CreateConversation(ctx context.Context, conv *Conversation) error
	ListConversations(ctx context.Context, userID string) ([]Conversation, error)
	// AppendMessage inserts the message and the recipient notification and updates the conversation
	AppendMessage(ctx context.Context, msg *Message, notification *Notification) (*Conversation, error)
	ListMessages(ctx context.Context, conversationID string) ([]Message, error)
	// MarkConversationRead marks messages addressed to readerID as read and returns the changed rows
	MarkConversationRead(ctx context.Context, conversationID, readerID string) ([]Message, *Conversation, error)
	ListNotifications(ctx context.Context, userID string) ([]Notification, error)
	MarkNotificationRead(ctx context.Context, userID, notificationID string) (*Notification, error)
}

// OTPService implements the signup, resend and verify functions
type OTPService interface {
	Signup(ctx context.Context, req SignupRequest) (*IssueResult, error)
	Resend(ctx context.Context, phone string, channel Channel) (*IssueResult, error)
	Verify(ctx context.Context, phone, code string) (*VerifyResult, error)
}

// AuthService defines session lifecycle operations
type AuthService interface {
	StartSession(ctx context.Context, profile *Profile) (*AuthResult, error)
	RefreshToken(ctx context.Context, refreshToken string) (*AuthResult, error)
	SignOut(ctx context.Context, userID string) error
	GetProfile(ctx context.Context, userID string) (*Profile, error)
	UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) (*Profile, error)
}

// MessagingService defines buyer/seller messaging and notifications
type MessagingService interface {
	StartConversation(ctx context.Context, buyerID, sellerID, listingID string) (*Conversation, error)
	ListConversations(ctx context.Context, userID string) ([]Conversation, error)
	SendMessage(ctx context.Context, senderID, conversationID, body string) (*Message, error)
	ListMessages(ctx context.Context, userID, conversationID string) ([]Message, error)
	MarkConversationRead(ctx context.Context, userID, conversationID string) error
	ListNotifications(ctx context.Context, userID string) ([]Notification, error)
	MarkNotificationRead(ctx context.Context, userID, notificationID string) (*Notification, error)
}

// OTPSender delivers a code over a single channel
type OTPSender interface {
	SendOTP(ctx context.Context, phone, code string) error
}

// Dispatcher routes a code to the sender registered for its channel
type Dispatcher interface {
	Dispatch(ctx context.Context, phone, code string, channel Channel) error
}

// ChangePublisher pushes row mutations to the change feed
type ChangePublisher interface {
	Publish(ctx context.Context, change *Change) error
}

// TokenService defines token operations
type TokenService interface {
	GenerateAccessToken(userID string, role Role, sessionID string) (string, error)
	GenerateRefreshToken(userID string, role Role, sessionID string) (string, error)
	ValidateAccessToken(token string) (*TokenClaims, error)
	ValidateRefreshToken(token string) (*TokenClaims, error)
	AccessTTL() time.Duration
}

// PolicyService defines authorization policy operations
type PolicyService interface {
	AddPolicy(role, resource, action string) error
	RemovePolicy(role, resource, action string) error
	CheckPermission(role, resource, action string) (bool, error)
	GetPolicies() [][]string
	SetProfileRole(ctx context.Context, userID string, role Role) (*Profile, error)
}

// CasbinEnforcer interface defines the methods we need from Casbin enforcer
type CasbinEnforcer interface {
	AddPolicy(params ...interface{}) (bool, error)
	RemovePolicy(params ...interface{}) (bool, error)
	Enforce(rvals ...interface{}) (bool, error)
	GetPolicy() ([][]string, error)
	SavePolicy() error
}
