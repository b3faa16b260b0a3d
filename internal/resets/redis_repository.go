package resets

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRepository stores resets as JSON under "<prefix><token>" with a TTL
// matching the reset's expiry.
type RedisRepository struct {
	client *redis.Client
	prefix string
}

// NewRedisRepository creates a Redis-based repository. Prefix may be empty.
func NewRedisRepository(client *redis.Client, prefix string) *RedisRepository {
	if prefix == "" {
		prefix = "reset:"
	}
	return &RedisRepository{client: client, prefix: prefix}
}

func (r *RedisRepository) key(token string) string {
	return r.prefix + token
}

func (r *RedisRepository) Create(ctx context.Context, rs *Reset) error {
	b, err := json.Marshal(rs)
	if err != nil {
		return err
	}
	ttl := time.Until(rs.ExpiresAt)
	if ttl <= 0 {
		ttl = time.Second
	}
	return r.client.Set(ctx, r.key(rs.Token), b, ttl).Err()
}

func (r *RedisRepository) Get(ctx context.Context, token string) (*Reset, error) {
	b, err := r.client.Get(ctx, r.key(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var rs Reset
	if err := json.Unmarshal(b, &rs); err != nil {
		return nil, err
	}
	return &rs, nil
}

func (r *RedisRepository) Delete(ctx context.Context, token string) error {
	return r.client.Del(ctx, r.key(token)).Err()
}
