package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// CapabilityStore holds the single current admin path segment. The segment is
// a URL capability, not a credential: it hides the admin routes from casual
// discovery, while the real authorization stays with the cookie-based gate.
// Rotation replaces the segment atomically so at any instant exactly one
// value validates.
type CapabilityStore interface {
	// Current returns the segment that validates right now.
	Current(ctx context.Context) (string, error)

	// Rotate issues a fresh segment with the given TTL and returns it.
	Rotate(ctx context.Context, ttl time.Duration) (string, error)
}

// ValidateSegment compares a path segment against the current capability.
// Exact byte equality: no trimming, no case folding.
func ValidateSegment(ctx context.Context, store CapabilityStore, segment string) (bool, error) {
	current, err := store.Current(ctx)
	if err != nil {
		return false, err
	}
	if current == "" {
		return false, nil
	}
	return subtle.ConstantTimeCompare([]byte(current), []byte(segment)) == 1, nil
}

// newSegment returns a random URL-safe capability segment.
func newSegment() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate capability segment: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// RedisCapabilityStore implements CapabilityStore using Redis
type RedisCapabilityStore struct {
	client *redis.Client
	key    string
	seed   string
}

// NewRedisCapabilityStore creates a redis-backed capability store. The seed
// is the configured segment used until the first rotation and whenever the
// rotated value has expired.
func NewRedisCapabilityStore(client *redis.Client, seed string) *RedisCapabilityStore {
	return &RedisCapabilityStore{
		client: client,
		key:    "gateway:admin:capability",
		seed:   seed,
	}
}

// Current returns the active capability segment
func (s *RedisCapabilityStore) Current(ctx context.Context) (string, error) {
	val, err := s.client.Get(ctx, s.key).Result()
	if err == redis.Nil {
		return s.seed, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load capability segment: %w", err)
	}
	return val, nil
}

// Rotate issues a fresh segment with the given TTL
func (s *RedisCapabilityStore) Rotate(ctx context.Context, ttl time.Duration) (string, error) {
	segment, err := newSegment()
	if err != nil {
		return "", err
	}
	if err := s.client.Set(ctx, s.key, segment, ttl).Err(); err != nil {
		return "", fmt.Errorf("failed to rotate capability segment: %w", err)
	}
	return segment, nil
}

var _ CapabilityStore = (*RedisCapabilityStore)(nil)

// InMemoryCapabilityStore provides an in-memory implementation for testing
type InMemoryCapabilityStore struct {
	mu      sync.RWMutex
	current string
	expires time.Time
	seed    string
}

// NewInMemoryCapabilityStore creates a new in-memory capability store
func NewInMemoryCapabilityStore(seed string) *InMemoryCapabilityStore {
	return &InMemoryCapabilityStore{seed: seed}
}

// Current returns the active capability segment
func (s *InMemoryCapabilityStore) Current(_ context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == "" || time.Now().After(s.expires) {
		return s.seed, nil
	}
	return s.current, nil
}

// Rotate issues a fresh segment with the given TTL
func (s *InMemoryCapabilityStore) Rotate(_ context.Context, ttl time.Duration) (string, error) {
	segment, err := newSegment()
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = segment
	s.expires = time.Now().Add(ttl)
	return segment, nil
}

var _ CapabilityStore = (*InMemoryCapabilityStore)(nil)
