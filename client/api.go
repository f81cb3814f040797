package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vouge2017/ethio-farm-connect-sub000/domain"
)

// API is a thin HTTP client for the backend functions and REST endpoints
type API struct {
	baseURL    string
	httpClient *http.Client
	log        *zap.Logger
}

// APIOption configures an API
type APIOption func(*API)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(c *http.Client) APIOption {
	return func(a *API) {
		a.httpClient = c
	}
}

// WithAPILogger sets the logger used for request failures
func WithAPILogger(log *zap.Logger) APIOption {
	return func(a *API) {
		a.log = log
	}
}

// NewAPI creates a client for the backend at baseURL
func NewAPI(baseURL string, opts ...APIOption) *API {
	a := &API{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// User is the account summary returned with a new session
type User struct {
	ID          string      `json:"id"`
	PhoneNumber string      `json:"phone_number"`
	Role        domain.Role `json:"role"`
}

// IssueResponse is the reply of signup and resend-otp
type IssueResponse struct {
	Message string `json:"message"`
	DevOTP  string `json:"dev_otp,omitempty"`
}

// Tokens is a session handed out by verify-otp or refresh
type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	SessionURL   string `json:"session_url,omitempty"`
	User         User   `json:"user"`
}

// ProfilePatch carries the fields to change on the caller's profile
type ProfilePatch struct {
	DisplayName         *string         `json:"display_name,omitempty"`
	Region              *string         `json:"region,omitempty"`
	Zone                *string         `json:"zone,omitempty"`
	Woreda              *string         `json:"woreda,omitempty"`
	PreferredOTPChannel *domain.Channel `json:"preferred_otp_channel,omitempty"`
}

// Signup calls the signup function
func (a *API) Signup(ctx context.Context, phone, displayName string, channel domain.Channel) (*IssueResponse, error) {
	var out IssueResponse
	err := a.do(ctx, http.MethodPost, "/functions/v1/signup", "", map[string]any{
		"phoneNumber":      phone,
		"displayName":      displayName,
		"preferredChannel": channel,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ResendOTP calls the resend-otp function
func (a *API) ResendOTP(ctx context.Context, phone string, channel domain.Channel) (*IssueResponse, error) {
	var out IssueResponse
	err := a.do(ctx, http.MethodPost, "/functions/v1/resend-otp", "", map[string]any{
		"phoneNumber": phone,
		"channel":     channel,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyOTP calls the verify-otp function and returns the new session
func (a *API) VerifyOTP(ctx context.Context, phone, code string) (*Tokens, error) {
	var out Tokens
	err := a.do(ctx, http.MethodPost, "/functions/v1/verify-otp", "", map[string]any{
		"phoneNumber": phone,
		"otp":         code,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Refresh exchanges a refresh token for a new access token
func (a *API) Refresh(ctx context.Context, refreshToken string) (*Tokens, error) {
	var out Tokens
	err := a.data(ctx, http.MethodPost, "/auth/refresh", "", map[string]string{"refresh_token": refreshToken}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout revokes every session of the token's user
func (a *API) Logout(ctx context.Context, accessToken string) error {
	return a.data(ctx, http.MethodPost, "/auth/logout", accessToken, nil, nil)
}

// Me fetches the caller's profile; a missing profile is a 404 APIError
func (a *API) Me(ctx context.Context, accessToken string) (*domain.Profile, error) {
	var out domain.Profile
	if err := a.data(ctx, http.MethodGet, "/auth/me", accessToken, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateMe edits the caller's profile
func (a *API) UpdateMe(ctx context.Context, accessToken string, patch ProfilePatch) (*domain.Profile, error) {
	var out domain.Profile
	if err := a.data(ctx, http.MethodPatch, "/auth/me", accessToken, patch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Conversations lists the caller's conversations, newest activity first
func (a *API) Conversations(ctx context.Context, accessToken string) ([]domain.Conversation, error) {
	var out []domain.Conversation
	if err := a.data(ctx, http.MethodGet, "/conversations", accessToken, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// StartConversation opens or reuses a thread with a seller
func (a *API) StartConversation(ctx context.Context, accessToken, sellerID, listingID string) (*domain.Conversation, error) {
	var out domain.Conversation
	body := map[string]string{"seller_id": sellerID, "listing_id": listingID}
	if err := a.data(ctx, http.MethodPost, "/conversations", accessToken, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Messages lists the messages of a conversation
func (a *API) Messages(ctx context.Context, accessToken, conversationID string) ([]domain.Message, error) {
	var out []domain.Message
	path := "/conversations/" + url.PathEscape(conversationID) + "/messages"
	if err := a.data(ctx, http.MethodGet, path, accessToken, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SendMessage posts a message to a conversation
func (a *API) SendMessage(ctx context.Context, accessToken, conversationID, body string) (*domain.Message, error) {
	var out domain.Message
	path := "/conversations/" + url.PathEscape(conversationID) + "/messages"
	if err := a.data(ctx, http.MethodPost, path, accessToken, map[string]string{"body": body}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MarkConversationRead marks every message addressed to the caller as read
func (a *API) MarkConversationRead(ctx context.Context, accessToken, conversationID string) error {
	path := "/conversations/" + url.PathEscape(conversationID) + "/read"
	return a.data(ctx, http.MethodPost, path, accessToken, nil, nil)
}

// Notifications lists the caller's notifications
func (a *API) Notifications(ctx context.Context, accessToken string) ([]domain.Notification, error) {
	var out []domain.Notification
	if err := a.data(ctx, http.MethodGet, "/notifications", accessToken, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// MarkNotificationRead marks a single notification as read
func (a *API) MarkNotificationRead(ctx context.Context, accessToken, notificationID string) (*domain.Notification, error) {
	var out domain.Notification
	path := "/notifications/" + url.PathEscape(notificationID) + "/read"
	if err := a.data(ctx, http.MethodPost, path, accessToken, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FeedURL returns the websocket address of the change feed for accessToken
func (a *API) FeedURL(accessToken string) string {
	u, err := url.Parse(a.baseURL + "/realtime/v1/websocket")
	if err != nil {
		return ""
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.RawQuery = url.Values{"access_token": {accessToken}}.Encode()
	return u.String()
}

// data calls an endpoint that wraps its payload in {data: ...}
func (a *API) data(ctx context.Context, method, path, token string, in, out any) error {
	if out == nil {
		return a.do(ctx, method, path, token, in, nil)
	}
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := a.do(ctx, method, path, token, in, &env); err != nil {
		return err
	}
	if len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("failed to decode %s %s: %w", method, path, err)
	}
	return nil
}

func (a *API) do(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		a.log.Warn("request failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{Status: resp.StatusCode}
		var failure struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &failure) == nil {
			apiErr.Message = failure.Error
		}
		if secs, err := strconv.ParseInt(resp.Header.Get("Retry-After"), 10, 64); err == nil {
			apiErr.RetryAfter = secs
		}
		a.log.Debug("request rejected",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("error", apiErr.Message))
		return apiErr
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode %s %s: %w", method, path, err)
	}
	return nil
}
