package cancel

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const cancelKeyPrefix = "stagehand:cancel:"

// RedisStore shares cancel requests between server instances; a request made on
// one node stops a run on another.
type RedisStore struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Request sets the marker key with a TTL so a forgotten request cannot cancel a
// future run indefinitely.
func (s *RedisStore) Request(ctx context.Context, batchID string, ttl time.Duration) error {
	if err := s.client.Set(ctx, cancelKeyPrefix+batchID, "1", ttl).Err(); err != nil {
		return fmt.Errorf("request cancel of batch %s: %w", batchID, err)
	}
	return nil
}

func (s *RedisStore) IsRequested(ctx context.Context, batchID string) (bool, error) {
	n, err := s.client.Exists(ctx, cancelKeyPrefix+batchID).Result()
	if err != nil {
		return false, fmt.Errorf("check cancel of batch %s: %w", batchID, err)
	}
	return n > 0, nil
}

func (s *RedisStore) Clear(ctx context.Context, batchID string) error {
	if err := s.client.Del(ctx, cancelKeyPrefix+batchID).Err(); err != nil {
		return fmt.Errorf("clear cancel of batch %s: %w", batchID, err)
	}
	return nil
}
