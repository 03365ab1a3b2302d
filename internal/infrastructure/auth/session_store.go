package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/atelierloop/gateway/internal/domain/session"
	"github.com/redis/go-redis/v9"
)

// SessionStore persists sessions across gateway restarts so a page reload
// never forces a re-login. The session is the source of truth; cookies are
// derived from it.
type SessionStore interface {
	// Get loads the session for the given ID. Returns (nil, nil) when absent.
	Get(ctx context.Context, sid string) (*session.Session, error)

	// Put writes the session under the given ID with the store's TTL.
	Put(ctx context.Context, sid string, s *session.Session) error

	// Delete removes the session.
	Delete(ctx context.Context, sid string) error
}

// RedisSessionStore implements SessionStore using Redis
type RedisSessionStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewRedisSessionStore creates a redis-backed session store. The TTL should
// match the cookie lifetime so both expire together.
func NewRedisSessionStore(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{
		client:    client,
		keyPrefix: "gateway:session:",
		ttl:       ttl,
	}
}

func (s *RedisSessionStore) key(sid string) string {
	return s.keyPrefix + sid
}

// Get loads a session by ID
func (s *RedisSessionStore) Get(ctx context.Context, sid string) (*session.Session, error) {
	raw, err := s.client.Get(ctx, s.key(sid)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var sess session.Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &sess, nil
}

// Put writes a session with the configured TTL
func (s *RedisSessionStore) Put(ctx context.Context, sid string, sess *session.Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := s.client.Set(ctx, s.key(sid), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

// Delete removes a session
func (s *RedisSessionStore) Delete(ctx context.Context, sid string) error {
	if err := s.client.Del(ctx, s.key(sid)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

var _ SessionStore = (*RedisSessionStore)(nil)

// InMemorySessionStore provides an in-memory implementation for testing.
// WARNING: not suitable for production with multiple instances.
type InMemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]session.Session
}

// NewInMemorySessionStore creates a new in-memory session store
func NewInMemorySessionStore() *InMemorySessionStore {
	return &InMemorySessionStore{sessions: make(map[string]session.Session)}
}

// Get loads a session by ID
func (s *InMemorySessionStore) Get(_ context.Context, sid string) (*session.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sid]
	if !ok {
		return nil, nil
	}
	copied := sess
	return &copied, nil
}

// Put writes a session
func (s *InMemorySessionStore) Put(_ context.Context, sid string, sess *session.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sid] = *sess
	return nil
}

// Delete removes a session
func (s *InMemorySessionStore) Delete(_ context.Context, sid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sid)
	return nil
}

var _ SessionStore = (*InMemorySessionStore)(nil)
