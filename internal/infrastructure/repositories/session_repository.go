package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vouge2017/ethio-farm-connect-sub000/domain"
)

// SessionRepositoryImpl implements domain.SessionRepository using Redis
type SessionRepositoryImpl struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(client *redis.Client, ttl time.Duration) domain.SessionRepository {
	return &SessionRepositoryImpl{
		client: client,
		prefix: "session:",
		ttl:    ttl,
	}
}

func (r *SessionRepositoryImpl) userKey(userID string) string {
	return r.prefix + "user:" + userID
}

// Create implements domain.SessionRepository
func (r *SessionRepositoryImpl) Create(ctx context.Context, session *domain.Session) error {
	key := r.prefix + session.ID
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, key, data, r.ttl)
	pipe.SAdd(ctx, r.userKey(session.UserID), session.ID)
	pipe.Expire(ctx, r.userKey(session.UserID), r.ttl)
	_, err = pipe.Exec(ctx)
	return err
}

// FindByID implements domain.SessionRepository
func (r *SessionRepositoryImpl) FindByID(ctx context.Context, sessionID string) (*domain.Session, error) {
	key := r.prefix + sessionID
	data, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, err
	}

	var session domain.Session
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	if session.ExpiresAt.Before(time.Now()) {
		r.client.Del(ctx, key)
		r.client.SRem(ctx, r.userKey(session.UserID), sessionID)
		return nil, domain.ErrSessionExpired
	}

	return &session, nil
}

// Delete implements domain.SessionRepository
func (r *SessionRepositoryImpl) Delete(ctx context.Context, sessionID string) error {
	key := r.prefix + sessionID
	session, err := r.FindByID(ctx, sessionID)
	if err == nil {
		r.client.SRem(ctx, r.userKey(session.UserID), sessionID)
	}
	return r.client.Del(ctx, key).Err()
}

// DeleteAllForUser implements domain.SessionRepository
func (r *SessionRepositoryImpl) DeleteAllForUser(ctx context.Context, userID string) error {
	index := r.userKey(userID)
	ids, err := r.client.SMembers(ctx, index).Result()
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, r.prefix+id)
	}
	keys = append(keys, index)
	return r.client.Del(ctx, keys...).Err()
}
