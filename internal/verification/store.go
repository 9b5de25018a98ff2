package verification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCodeNotFound is returned when no live code exists for the email, either
// because none was ever stored or because the TTL evicted it.
var ErrCodeNotFound = errors.New("verification code not found")

const codeKeyPrefix = "svc"

// Store is a time-bounded email→code store backed by redis. Redis owns the
// TTL eviction, so an expired entry simply stops resolving; per email the
// last Set wins.
type Store struct {
	redis  *redis.Client
	prefix string
}

// NewStore creates a new Store instance.
func NewStore(redisClient *redis.Client) *Store {
	return &Store{
		redis:  redisClient,
		prefix: codeKeyPrefix,
	}
}

func (s *Store) key(email string) string {
	return s.prefix + ":" + email
}

// Set stores the code for the email with the given TTL, replacing any
// previous code for the same email.
func (s *Store) Set(ctx context.Context, email, code string, ttl time.Duration) error {
	if err := s.redis.Set(ctx, s.key(email), code, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store verification code: %w", err)
	}

	return nil
}

// Get returns the live code for the email, or ErrCodeNotFound.
func (s *Store) Get(ctx context.Context, email string) (string, error) {
	code, err := s.redis.Get(ctx, s.key(email)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrCodeNotFound
		}

		return "", fmt.Errorf("failed to load verification code: %w", err)
	}

	return code, nil
}

// Delete removes the code for the email. Deleting an absent or already
// expired entry is a no-op.
func (s *Store) Delete(ctx context.Context, email string) error {
	if err := s.redis.Del(ctx, s.key(email)).Err(); err != nil {
		return fmt.Errorf("failed to delete verification code: %w", err)
	}

	return nil
}
