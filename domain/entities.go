package domain

import (
	"encoding/json"
	"time"
)

// Channel is the delivery mechanism for an OTP
type Channel string

const (
	ChannelSMS      Channel = "sms"
	ChannelTelegram Channel = "telegram"
)

// Valid reports whether c is a supported delivery channel
func (c Channel) Valid() bool {
	return c == ChannelSMS || c == ChannelTelegram
}

// Role is the application role held by a profile
type Role string

const (
	RoleFarmer Role = "farmer"
	RoleVet    Role = "vet"
	RoleAdmin  Role = "admin"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	switch r {
	case RoleFarmer, RoleVet, RoleAdmin:
		return true
	}
	return false
}

// PlaceholderDisplayName is used when no display name reached the verify step
const PlaceholderDisplayName = "User"

// OTPRecord is a one-time code issued to a phone number
type OTPRecord struct {
	ID          string
	PhoneNumber string
	Code        string
	Channel     Channel
	DisplayName string
	CreatedAt   time.Time
	ExpiresAt   time.Time
	Attempts    int
	IsUsed      bool
	UsedAt      *time.Time
}

// Active reports whether the record can still be matched at the given instant
func (o *OTPRecord) Active(now time.Time) bool {
	return !o.IsUsed && o.ExpiresAt.After(now)
}

// Identity is the bare authentication principal bound to a phone number
type Identity struct {
	ID          string
	PhoneNumber string
	CreatedAt   time.Time
}

// Profile is the application-level user record, 1:1 with an Identity
type Profile struct {
	UserID              string    `json:"user_id"`
	PhoneNumber         string    `json:"phone_number"`
	DisplayName         string    `json:"display_name"`
	Role                Role      `json:"role"`
	Region              string    `json:"region,omitempty"`
	Zone                string    `json:"zone,omitempty"`
	Woreda              string    `json:"woreda,omitempty"`
	PreferredOTPChannel Channel   `json:"preferred_otp_channel"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// ProfileUpdate carries the owner-editable profile fields; nil means unchanged
type ProfileUpdate struct {
	DisplayName         *string
	Region              *string
	Zone                *string
	Woreda              *string
	PreferredOTPChannel *Channel
}

// Session represents a user session
type Session struct {
	ID        string
	UserID    string
	Role      Role
	ExpiresAt time.Time
	CreatedAt time.Time
}

// AuthResult represents a minted session and its tokens
type AuthResult struct {
	Profile      *Profile
	AccessToken  string
	RefreshToken string
	SessionID    string
	ExpiresIn    int64
}

// SignupRequest is the input of the signup function
type SignupRequest struct {
	PhoneNumber string
	DisplayName string
	Channel     Channel
}

// IssueResult is returned by signup and resend
type IssueResult struct {
	Record *OTPRecord
	// DevCode is only set when the service runs with dev code exposure enabled
	DevCode string
}

// VerifyResult is returned by a successful verification
type VerifyResult struct {
	Auth       *AuthResult
	SessionURL string
	NewAccount bool
}

// Conversation is a buyer/seller thread about a listing
type Conversation struct {
	ID            string     `json:"id"`
	ListingID     string     `json:"listing_id,omitempty"`
	BuyerID       string     `json:"buyer_id"`
	SellerID      string     `json:"seller_id"`
	LastMessage   string     `json:"last_message,omitempty"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
	LastSenderID  string     `json:"last_sender_id,omitempty"`
	IsRead        bool       `json:"is_read"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Participants returns both user ids of the conversation
func (c *Conversation) Participants() []string {
	return []string{c.BuyerID, c.SellerID}
}

// HasParticipant reports whether userID belongs to the conversation
func (c *Conversation) HasParticipant(userID string) bool {
	return c.BuyerID == userID || c.SellerID == userID
}

// Counterpart returns the other participant
func (c *Conversation) Counterpart(userID string) string {
	if c.BuyerID == userID {
		return c.SellerID
	}
	return c.BuyerID
}

// Message is a single chat message
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	RecipientID    string    `json:"recipient_id"`
	Body           string    `json:"body"`
	IsRead         bool      `json:"is_read"`
	CreatedAt      time.Time `json:"created_at"`
}

// Notification is a user-facing notification row
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ActorID   string    `json:"actor_id,omitempty"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Body      string    `json:"body,omitempty"`
	Link      string    `json:"link,omitempty"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// Change feed tables
const (
	TableConversations = "conversations"
	TableMessages      = "messages"
	TableNotifications = "notifications"
	TableSessions      = "sessions"
)

// ChangeType is the kind of row mutation carried by the change feed
type ChangeType string

const (
	ChangeInsert     ChangeType = "INSERT"
	ChangeUpdate     ChangeType = "UPDATE"
	// ChangeDisconnect is a control event: sockets of the audience are closed instead of written to
	ChangeDisconnect ChangeType = "DISCONNECT"
)

// Change is a row-level mutation pushed to subscribers
type Change struct {
	Table     string          `json:"table"`
	Type      ChangeType      `json:"type"`
	Record    json.RawMessage `json:"record"`
	Timestamp time.Time       `json:"commit_timestamp"`
	// UserIDs is the audience; it never leaves the server
	UserIDs []string `json:"user_ids,omitempty"`
}

// NewChange builds a change event for the given audience
func NewChange(table string, typ ChangeType, record any, userIDs ...string) (*Change, error) {
	raw, err := json.Marshal(record)
	if err != nil {
		return nil, err
	}
	return &Change{
		Table:     table,
		Type:      typ,
		Record:    raw,
		Timestamp: time.Now().UTC(),
		UserIDs:   userIDs,
	}, nil
}

// NewDisconnect builds the control event that closes every socket of userID
func NewDisconnect(userID string) *Change {
	change, _ := NewChange(TableSessions, ChangeDisconnect, map[string]string{"user_id": userID}, userID)
	return change
}

// Concerns reports whether the change is addressed to userID
func (c *Change) Concerns(userID string) bool {
	for _, id := range c.UserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// TokenClaims represents JWT token claims
type TokenClaims struct {
	UserID    string `json:"user_id"`
	Role      Role   `json:"role"`
	SessionID string `json:"session_id,omitempty"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}
