// Package revocation stores signed-out session token ids in Redis.
package revocation

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "session:revoked:"

// Connect parses a redis:// URL and pings the server.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("revocation: parse url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("revocation: ping: %w", err)
	}
	return client, nil
}

// RedisStore keeps one key per revoked token that expires with the token.
// Safe for concurrent use.
type RedisStore struct {
	client redis.Cmdable
	now    func() time.Time
}

// NewRedisStore returns a RedisStore using client.
func NewRedisStore(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client, now: time.Now}
}

// Revoke records tokenID until until. Tokens that have already expired are not recorded.
func (s *RedisStore) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	ttl := until.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	if err := s.client.Set(ctx, keyPrefix+tokenID, 1, ttl).Err(); err != nil {
		return fmt.Errorf("revocation: set: %w", err)
	}
	return nil
}

// Revoked reports whether tokenID has been revoked and not yet expired.
func (s *RedisStore) Revoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := s.client.Exists(ctx, keyPrefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("revocation: exists: %w", err)
	}
	return n > 0, nil
}
