package client

import (
	"sync"
	"time"
)

// StoredSession is what survives between runs of the client
type StoredSession struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	UserID       string    `json:"user_id"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// TokenStore keeps the session artifacts of the client.
// Load returns nil without error when nothing is stored.
type TokenStore interface {
	Load() (*StoredSession, error)
	Save(session *StoredSession) error
	Clear() error
}

// MemoryStore is a TokenStore that lives as long as the process
type MemoryStore struct {
	mu      sync.Mutex
	session *StoredSession
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load() (*StoredSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil, nil
	}
	copied := *s.session
	return &copied, nil
}

func (s *MemoryStore) Save(session *StoredSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *session
	s.session = &copied
	return nil
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = nil
	return nil
}

func storedFrom(tokens *Tokens, now time.Time) *StoredSession {
	return &StoredSession{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		UserID:       tokens.User.ID,
		ExpiresAt:    now.Add(time.Duration(tokens.ExpiresIn) * time.Second),
	}
}
