package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vouge2017/ethio-farm-connect-sub000/domain"
	"github.com/vouge2017/ethio-farm-connect-sub000/internal/phone"
)

// TelegramService implements domain.OTPSender through the Telegram Bot API
type TelegramService struct {
	botToken string
	baseURL  string
	chats    domain.TelegramChatRepository
	ttl      time.Duration
	log      *zap.Logger
	client   *http.Client
}

// NewTelegramService creates a new Telegram bot sender
func NewTelegramService(botToken, baseURL string, chats domain.TelegramChatRepository, ttl time.Duration, log *zap.Logger) *TelegramService {
	return &TelegramService{
		botToken: botToken,
		baseURL:  strings.TrimRight(baseURL, "/"),
		chats:    chats,
		ttl:      ttl,
		log:      log,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Configured reports whether a bot token is present
func (s *TelegramService) Configured() bool {
	return s.botToken != ""
}

// SendOTP implements domain.OTPSender
func (s *TelegramService) SendOTP(ctx context.Context, phone, code string) error {
	if !s.Configured() {
		s.log.Info("telegram bot not configured, skipping delivery", zap.String("to", phone))
		return nil
	}

	chatID, err := s.chats.ChatIDByPhone(ctx, phone)
	if err != nil {
		return fmt.Errorf("telegram dispatch: %w", err)
	}

	text := fmt.Sprintf("<b>Ethio Farm Connect</b>\n\n%s", otpMessage(code, s.ttl))
	return s.SendMessage(ctx, chatID, text)
}

// SendMessage posts a text message to a chat
func (s *TelegramService) SendMessage(ctx context.Context, chatID int64, text string) error {
	apiURL := fmt.Sprintf("%s/bot%s/sendMessage", s.baseURL, s.botToken)

	params := url.Values{}
	params.Add("chat_id", strconv.FormatInt(chatID, 10))
	params.Add("text", text)
	params.Add("parse_mode", "HTML")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, strings.NewReader(params.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("telegram API error: %s, status code: %d", string(body), resp.StatusCode)
	}

	var response struct {
		OK     bool `json:"ok"`
		Result struct {
			MessageID int `json:"message_id"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if !response.OK {
		return errors.New("telegram API returned not OK status")
	}

	s.log.Debug("telegram message sent", zap.Int64("chat_id", chatID), zap.Int("message_id", response.Result.MessageID))
	return nil
}

// Update is the subset of a Telegram webhook update the bot reacts to
type Update struct {
	UpdateID int64          `json:"update_id"`
	Message  *UpdateMessage `json:"message,omitempty"`
}

// UpdateMessage is an incoming chat message
type UpdateMessage struct {
	Chat    Chat     `json:"chat"`
	From    *User    `json:"from,omitempty"`
	Text    string   `json:"text,omitempty"`
	Contact *Contact `json:"contact,omitempty"`
}

// Chat is the conversation an update came from; its ID is where replies and codes go
type Chat struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
}

// User is the Telegram account that sent a message
type User struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name,omitempty"`
}

// Contact is a shared phone card. UserID is set only when it belongs to a Telegram account.
type Contact struct {
	PhoneNumber string `json:"phone_number"`
	UserID      int64  `json:"user_id"`
}

// SharedPhone returns the phone number a user shared about themself, if any
func (m *UpdateMessage) SharedPhone() (string, bool) {
	if m == nil || m.Contact == nil || m.Contact.PhoneNumber == "" {
		return "", false
	}
	// a forwarded contact belongs to someone else
	if m.From == nil || m.Contact.UserID != m.From.ID {
		return "", false
	}
	return m.Contact.PhoneNumber, true
}

// HandleUpdate links the chat to the phone number a user shares with the bot.
// Any other message gets instructions on how to share it.
func (s *TelegramService) HandleUpdate(ctx context.Context, update *Update) error {
	msg := update.Message
	if msg == nil {
		return nil
	}

	shared, ok := msg.SharedPhone()
	if !ok {
		return s.SendMessage(ctx, msg.Chat.ID, sharePrompt)
	}
	if !phone.Validate(shared) {
		return s.SendMessage(ctx, msg.Chat.ID, "Only Ethiopian mobile numbers can receive codes.")
	}

	normalized := phone.Normalize(shared)
	if err := s.chats.Link(ctx, normalized, msg.Chat.ID); err != nil {
		return fmt.Errorf("failed to link telegram chat: %w", err)
	}
	s.log.Info("telegram chat linked", zap.String("phone", normalized), zap.Int64("chat_id", msg.Chat.ID))
	return s.SendMessage(ctx, msg.Chat.ID, "Your number "+phone.Format(normalized)+" is linked. Login codes will arrive here.")
}

const sharePrompt = "Share your contact with this bot to receive Ethio Farm Connect login codes here."
