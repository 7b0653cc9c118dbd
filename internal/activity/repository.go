package activity

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Repository is the durable mirror of the in-memory log. A Redis list keeps
// the same newest-first order: LPUSH inserts at the head, LTRIM evicts the
// tail once the cap is exceeded.
type Repository interface {
	Push(ctx context.Context, entry LogEntry) error
	Load(ctx context.Context, limit int) ([]LogEntry, error)
}

type RedisRepository struct {
	client   *redis.Client
	key      string
	capacity int
}

func NewRepository(client *redis.Client, key string, capacity int) Repository {
	return &RedisRepository{
		client:   client,
		key:      key,
		capacity: capacity,
	}
}

func (r *RedisRepository) Push(ctx context.Context, entry LogEntry) error {
	body, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal log entry: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, r.key, body)
	pipe.LTrim(ctx, r.key, 0, int64(r.capacity-1))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis push failed: %w", err)
	}

	return nil
}

func (r *RedisRepository) Load(ctx context.Context, limit int) ([]LogEntry, error) {
	if limit <= 0 || limit > r.capacity {
		limit = r.capacity
	}

	values, err := r.client.LRange(ctx, r.key, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis range failed: %w", err)
	}

	entries := make([]LogEntry, 0, len(values))
	for _, value := range values {
		var entry LogEntry
		if err := json.Unmarshal([]byte(value), &entry); err != nil {
			// Skip corrupt entries rather than losing the whole log.
			continue
		}
		entries = append(entries, entry)
	}

	return entries, nil
}
