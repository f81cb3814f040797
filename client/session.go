package client

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vouge2017/ethio-farm-connect-sub000/domain"
)

// State is the position of the client in the sign-in flow
type State string

const (
	StateAnonymous     State = "anonymous"
	StateOTPPending    State = "otp_pending"
	StateAuthenticated State = "authenticated"
)

// ProfileStatus tells "no profile yet" apart from "profile fetch failed"
type ProfileStatus string

const (
	ProfileUnknown ProfileStatus = ""
	ProfileLoaded  ProfileStatus = "loaded"
	ProfileMissing ProfileStatus = "missing"
	ProfileFailed  ProfileStatus = "failed"
)

// Snapshot is a read-only copy of the auth context
type Snapshot struct {
	State         State
	Loading       bool
	User          *User
	Session       *StoredSession
	Profile       *domain.Profile
	ProfileStatus ProfileStatus
	// PendingPhone is the number waiting for its code while in otp_pending
	PendingPhone string
	// DevOTP is only set when the backend echoes development codes
	DevOTP string
}

// Authenticated reports whether a session is held
func (s Snapshot) Authenticated() bool {
	return s.State == StateAuthenticated
}

// Option configures a SessionManager
type Option func(*SessionManager)

// WithLogger sets the manager's logger
func WithLogger(log *zap.Logger) Option {
	return func(m *SessionManager) {
		m.log = log
	}
}

// WithRealtime opens the change feed for every new session and feeds it the
// syncs built by newSyncs; syncs implementing Loader are fetched once connected.
func WithRealtime(newSyncs func(viewer string) []Sync) Option {
	return func(m *SessionManager) {
		m.newSyncs = newSyncs
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(m *SessionManager) {
		m.now = now
	}
}

// SessionManager owns the client auth context and its lifecycle
type SessionManager struct {
	api      *API
	store    TokenStore
	notifier Notifier
	log      *zap.Logger
	now      func() time.Time
	newSyncs func(viewer string) []Sync

	mu      sync.Mutex
	snap    Snapshot
	epoch   uint64
	feed    *Feed
	syncs   []Sync
	subs    map[int]func(Snapshot)
	nextSub int
	closed  bool
}

// NewSessionManager creates an anonymous manager; call Start to restore a stored session
func NewSessionManager(api *API, store TokenStore, notifier Notifier, opts ...Option) *SessionManager {
	m := &SessionManager{
		api:      api,
		store:    store,
		notifier: notifier,
		log:      zap.NewNop(),
		now:      time.Now,
		snap:     Snapshot{State: StateAnonymous},
		subs:     make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.store == nil {
		m.store = NewMemoryStore()
	}
	if m.notifier == nil {
		m.notifier = NewLogNotifier(m.log)
	}
	return m
}

// Start restores a stored session by refreshing it, or clears the store
func (m *SessionManager) Start(ctx context.Context) error {
	stored, err := m.store.Load()
	if err != nil {
		m.log.Warn("failed to load stored session", zap.Error(err))
		return m.clearStore()
	}
	if stored == nil || stored.RefreshToken == "" {
		return nil
	}

	tokens, err := m.api.Refresh(ctx, stored.RefreshToken)
	if err != nil {
		m.log.Info("stored session could not be restored", zap.Error(err))
		return m.clearStore()
	}
	return m.authenticate(ctx, tokens)
}

// Close tears the manager down; the stored session is kept for the next Start
func (m *SessionManager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.epoch++
	feed := m.feed
	m.feed, m.syncs = nil, nil
	m.subs = make(map[int]func(Snapshot))
	m.mu.Unlock()

	if feed != nil {
		feed.Close()
	}
}

// SignUp requests a code for a new or returning user and moves to otp_pending
func (m *SessionManager) SignUp(ctx context.Context, phone, displayName string, channel domain.Channel) error {
	m.reset()
	if err := m.clearStore(); err != nil {
		m.log.Warn("failed to clear stale session", zap.Error(err))
	}

	resp, err := m.api.Signup(ctx, phone, displayName, channel)
	if err != nil {
		m.toastError("Sign up failed", err, "Could not send the code, please try again")
		return err
	}

	m.toastSuccess("Code sent", resp.Message)
	m.update(func(s *Snapshot) {
		s.State = StateOTPPending
		s.PendingPhone = phone
		s.DevOTP = resp.DevOTP
	})
	return nil
}

// ResendOTP requests a fresh code for phone
func (m *SessionManager) ResendOTP(ctx context.Context, phone string, channel domain.Channel) error {
	resp, err := m.api.ResendOTP(ctx, phone, channel)
	if err != nil {
		m.toastError("Resend failed", err, "Could not resend the code, please try again")
		return err
	}

	m.toastSuccess("Code sent", resp.Message)
	m.update(func(s *Snapshot) {
		if s.State != StateAuthenticated {
			s.State = StateOTPPending
			s.PendingPhone = phone
		}
		s.DevOTP = resp.DevOTP
	})
	return nil
}

// VerifyOTP exchanges the code for a session and moves straight to authenticated
func (m *SessionManager) VerifyOTP(ctx context.Context, phone, code string) error {
	tokens, err := m.api.VerifyOTP(ctx, phone, code)
	if err != nil {
		m.toastError("Verification failed", err, "Could not verify the code, please try again")
		return err
	}

	m.toastSuccess("Welcome", "Phone number verified")
	return m.authenticate(ctx, tokens)
}

// Refresh renews the access token; a rejected refresh token signs the client out
func (m *SessionManager) Refresh(ctx context.Context) error {
	m.mu.Lock()
	session := m.snap.Session
	m.mu.Unlock()
	if session == nil {
		return ErrNotAuthenticated
	}

	tokens, err := m.api.Refresh(ctx, session.RefreshToken)
	if err != nil {
		if status := StatusOf(err); status == http.StatusUnauthorized || status == http.StatusBadRequest {
			m.log.Info("session ended by backend", zap.Error(err))
			m.SignOut(ctx)
		}
		return err
	}
	return m.authenticate(ctx, tokens)
}

// SignOut clears local artifacts, asks the backend to revoke every session
// and always leaves the manager anonymous.
func (m *SessionManager) SignOut(ctx context.Context) {
	m.mu.Lock()
	var token string
	if m.snap.Session != nil {
		token = m.snap.Session.AccessToken
	}
	m.mu.Unlock()

	if err := m.clearStore(); err != nil {
		m.log.Warn("failed to clear stored session", zap.Error(err))
	}
	m.reset()

	if token == "" {
		return
	}
	if err := m.api.Logout(ctx, token); err != nil {
		m.log.Warn("backend sign-out failed", zap.Error(err))
	}
}

// UpdateProfile edits the profile and refreshes the snapshot with the result
func (m *SessionManager) UpdateProfile(ctx context.Context, patch ProfilePatch) (*domain.Profile, error) {
	token, err := m.AccessToken()
	if err != nil {
		return nil, err
	}
	profile, err := m.api.UpdateMe(ctx, token, patch)
	if err != nil {
		m.toastError("Profile not saved", err, "Could not save your profile, please try again")
		return nil, err
	}
	m.update(func(s *Snapshot) {
		if s.State == StateAuthenticated {
			s.Profile = profile
			s.ProfileStatus = ProfileLoaded
		}
	})
	return profile, nil
}

// AccessToken returns the current access token
func (m *SessionManager) AccessToken() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snap.Session == nil {
		return "", ErrNotAuthenticated
	}
	return m.snap.Session.AccessToken, nil
}

// Syncs returns the syncs attached to the current session's feed
func (m *SessionManager) Syncs() []Sync {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Sync(nil), m.syncs...)
}

// Snapshot returns a copy of the auth context
func (m *SessionManager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap
}

// Subscribe registers fn for every change of the auth context
func (m *SessionManager) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

func (m *SessionManager) authenticate(ctx context.Context, tokens *Tokens) error {
	stored := storedFrom(tokens, m.now())
	if err := m.store.Save(stored); err != nil {
		m.log.Warn("failed to persist session", zap.Error(err))
	}

	user := tokens.User
	m.mu.Lock()
	m.epoch++
	epoch := m.epoch
	switching := m.snap.User == nil || m.snap.User.ID != user.ID
	var stale *Feed
	if switching {
		stale = m.feed
		m.feed, m.syncs = nil, nil
	}
	m.snap.State = StateAuthenticated
	m.snap.User = &user
	m.snap.Session = stored
	m.snap.PendingPhone = ""
	m.snap.DevOTP = ""
	if switching {
		m.snap.Profile = nil
		m.snap.ProfileStatus = ProfileUnknown
	}
	m.snap.Loading = true
	m.publishLocked()

	if stale != nil {
		stale.Close()
	}
	m.startFeed(ctx, epoch, stored.AccessToken, user.ID)
	m.loadProfile(ctx, epoch, stored.AccessToken)
	return nil
}

func (m *SessionManager) loadProfile(ctx context.Context, epoch uint64, token string) {
	profile, err := m.api.Me(ctx, token)

	status := ProfileLoaded
	switch {
	case err == nil:
	case StatusOf(err) == http.StatusNotFound:
		status, profile = ProfileMissing, nil
	default:
		status, profile = ProfileFailed, nil
		m.log.Warn("profile fetch failed", zap.Error(err))
	}

	m.mu.Lock()
	if m.epoch != epoch {
		m.mu.Unlock()
		return
	}
	m.snap.Loading = false
	m.snap.Profile = profile
	m.snap.ProfileStatus = status
	m.publishLocked()

	if status == ProfileFailed {
		m.toastError("Profile unavailable", err, "Could not load your profile")
	}
}

func (m *SessionManager) startFeed(ctx context.Context, epoch uint64, token, viewer string) {
	if m.newSyncs == nil {
		return
	}
	m.mu.Lock()
	running := m.feed != nil
	m.mu.Unlock()
	if running {
		return
	}

	syncs := m.newSyncs(viewer)
	feed, err := DialFeed(ctx, m.api.FeedURL(token), m.log, syncs...)
	if err != nil {
		m.log.Warn("change feed unavailable", zap.Error(err))
		return
	}

	m.mu.Lock()
	if m.epoch != epoch || m.closed || m.snap.State != StateAuthenticated {
		m.mu.Unlock()
		feed.Close()
		return
	}
	m.feed, m.syncs = feed, syncs
	m.mu.Unlock()

	for _, s := range syncs {
		loader, ok := s.(Loader)
		if !ok {
			continue
		}
		if err := loader.Load(ctx, m.api, token); err != nil {
			m.log.Warn("initial fetch failed", zap.String("table", s.Table()), zap.Error(err))
		}
	}
}

// reset drops the session and stops the feed
func (m *SessionManager) reset() {
	m.mu.Lock()
	m.epoch++
	feed := m.feed
	m.feed, m.syncs = nil, nil
	m.snap = Snapshot{State: StateAnonymous}
	m.publishLocked()
	if feed != nil {
		feed.Close()
	}
}

func (m *SessionManager) clearStore() error {
	return m.store.Clear()
}

func (m *SessionManager) update(fn func(*Snapshot)) {
	m.mu.Lock()
	fn(&m.snap)
	m.publishLocked()
}

// publishLocked releases m.mu and then notifies subscribers
func (m *SessionManager) publishLocked() {
	snap := m.snap
	subs := make([]func(Snapshot), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}

func (m *SessionManager) toastSuccess(title, message string) {
	m.notifier.Notify(Toast{Kind: ToastSuccess, Title: title, Message: message})
}

func (m *SessionManager) toastError(title string, err error, fallback string) {
	m.notifier.Notify(Toast{Kind: ToastError, Title: title, Message: messageOf(err, fallback)})
}

// IsRateLimited reports whether err is a 429 from the backend
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}
