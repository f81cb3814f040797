package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/vouge2017/ethio-farm-connect-sub000/domain"
)

// setupTestRedis creates an in-memory Redis instance for testing
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestSessionRepositoryImpl_Create(t *testing.T) {
	tests := []struct {
		name         string
		session      *domain.Session
		ttl          time.Duration
		validateData func(t *testing.T, client *redis.Client, session *domain.Session)
	}{
		{
			name: "successful session creation",
			session: &domain.Session{
				ID:        "session_123",
				UserID:    "user-1",
				Role:      domain.RoleFarmer,
				CreatedAt: time.Now(),
				ExpiresAt: time.Now().Add(time.Hour),
			},
			ttl: time.Hour,
			validateData: func(t *testing.T, client *redis.Client, session *domain.Session) {
				key := "session:" + session.ID
				if client.Exists(context.Background(), key).Val() != 1 {
					t.Error("expected session to exist in Redis")
				}
				if client.TTL(context.Background(), key).Val() <= 0 {
					t.Error("expected TTL to be set on session key")
				}
				if !client.SIsMember(context.Background(), "session:user:user-1", session.ID).Val() {
					t.Error("expected session to be indexed under its user")
				}
			},
		},
		{
			name: "create session with custom TTL",
			session: &domain.Session{
				ID:        "session_456",
				UserID:    "user-2",
				Role:      domain.RoleVet,
				CreatedAt: time.Now(),
				ExpiresAt: time.Now().Add(30 * time.Minute),
			},
			ttl: 30 * time.Minute,
			validateData: func(t *testing.T, client *redis.Client, session *domain.Session) {
				ttl := client.TTL(context.Background(), "session:"+session.ID).Val()
				expected := 30 * time.Minute
				if ttl < expected-time.Second || ttl > expected+time.Second {
					t.Errorf("expected TTL around %v, got %v", expected, ttl)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := setupTestRedis(t)
			repo := NewSessionRepository(client, tt.ttl)

			if err := repo.Create(context.Background(), tt.session); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			tt.validateData(t, client, tt.session)
		})
	}
}

func TestSessionRepositoryImpl_FindByID(t *testing.T) {
	tests := []struct {
		name          string
		session       *domain.Session
		sessionID     string
		expectedUser  string
		expectedError error
	}{
		{
			name: "successful session retrieval",
			session: &domain.Session{
				ID:        "session_active",
				UserID:    "user-1",
				Role:      domain.RoleFarmer,
				CreatedAt: time.Now(),
				ExpiresAt: time.Now().Add(time.Hour),
			},
			sessionID:    "session_active",
			expectedUser: "user-1",
		},
		{
			name:          "session not found",
			sessionID:     "nonexistent_session",
			expectedError: domain.ErrSessionNotFound,
		},
		{
			name: "expired session",
			session: &domain.Session{
				ID:        "session_expired",
				UserID:    "user-2",
				CreatedAt: time.Now().Add(-2 * time.Hour),
				ExpiresAt: time.Now().Add(-time.Hour),
			},
			sessionID:     "session_expired",
			expectedError: domain.ErrSessionExpired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := setupTestRedis(t)
			repo := NewSessionRepository(client, time.Hour)
			if tt.session != nil {
				if err := repo.Create(context.Background(), tt.session); err != nil {
					t.Fatalf("setup failed: %v", err)
				}
			}

			session, err := repo.FindByID(context.Background(), tt.sessionID)
			if tt.expectedError != nil {
				if !errors.Is(err, tt.expectedError) {
					t.Errorf("expected error %v, got %v", tt.expectedError, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if session.UserID != tt.expectedUser {
				t.Errorf("expected UserID %s, got %s", tt.expectedUser, session.UserID)
			}
			if session.Role != tt.session.Role {
				t.Errorf("expected role %s, got %s", tt.session.Role, session.Role)
			}
		})
	}
}

func TestSessionRepositoryImpl_Delete(t *testing.T) {
	client := setupTestRedis(t)
	repo := NewSessionRepository(client, time.Hour)
	ctx := context.Background()

	session := &domain.Session{ID: "session_to_delete", UserID: "user-1", CreatedAt: time.Now(), ExpiresAt: time.Now().Add(time.Hour)}
	if err := repo.Create(ctx, session); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	if err := repo.Delete(ctx, session.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.Exists(ctx, "session:"+session.ID).Val() != 0 {
		t.Error("expected session to be deleted from Redis")
	}
	if client.SIsMember(ctx, "session:user:user-1", session.ID).Val() {
		t.Error("expected session to be removed from the user index")
	}

	// idempotent
	if err := repo.Delete(ctx, session.ID); err != nil {
		t.Errorf("second delete should not fail: %v", err)
	}
}

func TestSessionRepositoryImpl_DeleteAllForUser(t *testing.T) {
	client := setupTestRedis(t)
	repo := NewSessionRepository(client, time.Hour)
	ctx := context.Background()

	sessions := []*domain.Session{
		{ID: "s1", UserID: "user-1", CreatedAt: time.Now(), ExpiresAt: time.Now().Add(time.Hour)},
		{ID: "s2", UserID: "user-1", CreatedAt: time.Now(), ExpiresAt: time.Now().Add(time.Hour)},
		{ID: "s3", UserID: "user-2", CreatedAt: time.Now(), ExpiresAt: time.Now().Add(time.Hour)},
	}
	for _, s := range sessions {
		if err := repo.Create(ctx, s); err != nil {
			t.Fatalf("setup failed: %v", err)
		}
	}

	if err := repo.DeleteAllForUser(ctx, "user-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, id := range []string{"s1", "s2"} {
		if _, err := repo.FindByID(ctx, id); !errors.Is(err, domain.ErrSessionNotFound) {
			t.Errorf("expected %s to be gone, got %v", id, err)
		}
	}
	if _, err := repo.FindByID(ctx, "s3"); err != nil {
		t.Errorf("other user's session should survive: %v", err)
	}
	if client.Exists(ctx, "session:user:user-1").Val() != 0 {
		t.Error("expected user index to be removed")
	}

	// no sessions at all is fine
	if err := repo.DeleteAllForUser(ctx, "nobody"); err != nil {
		t.Errorf("unexpected error for empty user: %v", err)
	}
}
