package resets

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Revocations remembers, per user, the moment before which issued access
// tokens are rejected. Entries live as long as an access token can.
type Revocations interface {
	Revoke(ctx context.Context, userID int64, at time.Time) error
	RevokedAt(ctx context.Context, userID int64) (time.Time, error)
}

type MemoryRevocations struct {
	mu sync.RWMutex
	m  map[int64]time.Time
}

func NewMemoryRevocations() *MemoryRevocations {
	return &MemoryRevocations{m: map[int64]time.Time{}}
}

func (r *MemoryRevocations) Revoke(ctx context.Context, userID int64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[userID] = at
	return nil
}

func (r *MemoryRevocations) RevokedAt(ctx context.Context, userID int64) (time.Time, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.m[userID], nil
}

// RedisRevocations stores unix seconds under "revoked:user:<id>".
type RedisRevocations struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisRevocations keeps entries for ttl, normally the access token lifetime.
func NewRedisRevocations(client *redis.Client, ttl time.Duration) *RedisRevocations {
	return &RedisRevocations{client: client, ttl: ttl}
}

func revocationKey(userID int64) string {
	return "revoked:user:" + strconv.FormatInt(userID, 10)
}

func (r *RedisRevocations) Revoke(ctx context.Context, userID int64, at time.Time) error {
	return r.client.Set(ctx, revocationKey(userID), at.Unix(), r.ttl).Err()
}

func (r *RedisRevocations) RevokedAt(ctx context.Context, userID int64) (time.Time, error) {
	v, err := r.client.Get(ctx, revocationKey(userID)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return time.Time{}, nil
		}
		return time.Time{}, err
	}
	return time.Unix(v, 0), nil
}
