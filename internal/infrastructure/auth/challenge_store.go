package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Challenge is a pending one-time-code verification keyed by its session
// token. The code itself is stored hashed; the challenge is consumed on the
// first successful verification.
type Challenge struct {
	SessionToken string    `json:"sessionToken"`
	Email        string    `json:"email"`
	CodeHash     string    `json:"codeHash"`
	Attempts     int       `json:"attempts"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// HashCode returns the hex-encoded SHA-256 of a one-time code.
func HashCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

// MatchesCode compares a submitted code against the stored hash in constant time.
func (c *Challenge) MatchesCode(code string) bool {
	return subtle.ConstantTimeCompare([]byte(c.CodeHash), []byte(HashCode(code))) == 1
}

// ChallengeStore holds pending MFA challenges and the per-email resend cooldown.
type ChallengeStore interface {
	// Put stores a challenge until its TTL elapses.
	Put(ctx context.Context, ch *Challenge, ttl time.Duration) error

	// Get loads a challenge by session token. Returns (nil, nil) when absent.
	Get(ctx context.Context, sessionToken string) (*Challenge, error)

	// Consume deletes a challenge after a terminal verification outcome.
	Consume(ctx context.Context, sessionToken string) error

	// MarkResend sets the resend cooldown for an email address; returns false
	// if the cooldown is still active.
	MarkResend(ctx context.Context, email string, cooldown time.Duration) (bool, error)
}

// RedisChallengeStore implements ChallengeStore using Redis
type RedisChallengeStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisChallengeStore creates a redis-backed challenge store
func NewRedisChallengeStore(client *redis.Client) *RedisChallengeStore {
	return &RedisChallengeStore{client: client, keyPrefix: "gateway:mfa:"}
}

func (s *RedisChallengeStore) challengeKey(token string) string {
	return s.keyPrefix + "challenge:" + token
}

func (s *RedisChallengeStore) resendKey(email string) string {
	return s.keyPrefix + "resend:" + email
}

// Put stores a challenge with a TTL
func (s *RedisChallengeStore) Put(ctx context.Context, ch *Challenge, ttl time.Duration) error {
	raw, err := json.Marshal(ch)
	if err != nil {
		return fmt.Errorf("failed to encode challenge: %w", err)
	}
	if err := s.client.Set(ctx, s.challengeKey(ch.SessionToken), raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store challenge: %w", err)
	}
	return nil
}

// Get loads a challenge by session token
func (s *RedisChallengeStore) Get(ctx context.Context, sessionToken string) (*Challenge, error) {
	raw, err := s.client.Get(ctx, s.challengeKey(sessionToken)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load challenge: %w", err)
	}
	var ch Challenge
	if err := json.Unmarshal([]byte(raw), &ch); err != nil {
		return nil, fmt.Errorf("failed to decode challenge: %w", err)
	}
	return &ch, nil
}

// Consume deletes a challenge
func (s *RedisChallengeStore) Consume(ctx context.Context, sessionToken string) error {
	if err := s.client.Del(ctx, s.challengeKey(sessionToken)).Err(); err != nil {
		return fmt.Errorf("failed to consume challenge: %w", err)
	}
	return nil
}

// MarkResend sets the resend cooldown using SET NX so concurrent resends
// cannot both pass.
func (s *RedisChallengeStore) MarkResend(ctx context.Context, email string, cooldown time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.resendKey(email), "1", cooldown).Result()
	if err != nil {
		return false, fmt.Errorf("failed to set resend cooldown: %w", err)
	}
	return ok, nil
}

var _ ChallengeStore = (*RedisChallengeStore)(nil)

// InMemoryChallengeStore provides an in-memory implementation for testing
type InMemoryChallengeStore struct {
	mu         sync.Mutex
	challenges map[string]Challenge
	expiries   map[string]time.Time
	resends    map[string]time.Time
}

// NewInMemoryChallengeStore creates a new in-memory challenge store
func NewInMemoryChallengeStore() *InMemoryChallengeStore {
	return &InMemoryChallengeStore{
		challenges: make(map[string]Challenge),
		expiries:   make(map[string]time.Time),
		resends:    make(map[string]time.Time),
	}
}

// Put stores a challenge
func (s *InMemoryChallengeStore) Put(_ context.Context, ch *Challenge, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.challenges[ch.SessionToken] = *ch
	s.expiries[ch.SessionToken] = time.Now().Add(ttl)
	return nil
}

// Get loads a challenge, honouring the stored TTL
func (s *InMemoryChallengeStore) Get(_ context.Context, sessionToken string) (*Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.challenges[sessionToken]
	if !ok {
		return nil, nil
	}
	if time.Now().After(s.expiries[sessionToken]) {
		delete(s.challenges, sessionToken)
		delete(s.expiries, sessionToken)
		return nil, nil
	}
	copied := ch
	return &copied, nil
}

// Consume deletes a challenge
func (s *InMemoryChallengeStore) Consume(_ context.Context, sessionToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.challenges, sessionToken)
	delete(s.expiries, sessionToken)
	return nil
}

// MarkResend sets the resend cooldown
func (s *InMemoryChallengeStore) MarkResend(_ context.Context, email string, cooldown time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if until, ok := s.resends[email]; ok && time.Now().Before(until) {
		return false, nil
	}
	s.resends[email] = time.Now().Add(cooldown)
	return true, nil
}

var _ ChallengeStore = (*InMemoryChallengeStore)(nil)
