package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/aiot-hub/aiot/backend/go-client/pkg/logger"
	"github.com/aiot-hub/aiot/backend/go-client/pkg/metrics"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// Limiter decides whether the caller identified by key may proceed. When it
// may not, retryAfter says how long to wait.
type Limiter interface {
	Allow(ctx context.Context, key string) (ok bool, retryAfter time.Duration, err error)
	// Kind labels the rate limit metrics.
	Kind() string
}

// MemoryLimiter keeps one token bucket per key in process.
type MemoryLimiter struct {
	rps     float64
	burst   int
	buckets sync.Map // key -> *rate.Limiter
}

func NewMemoryLimiter(rps float64, burst int) *MemoryLimiter {
	if burst < 1 {
		burst = 1
	}
	return &MemoryLimiter{rps: rps, burst: burst}
}

func (l *MemoryLimiter) Kind() string { return "memory" }

func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	v, ok := l.buckets.Load(key)
	if !ok {
		v, _ = l.buckets.LoadOrStore(key, rate.NewLimiter(rate.Limit(l.rps), l.burst))
	}
	if v.(*rate.Limiter).Allow() {
		return true, 0, nil
	}
	wait := time.Second
	if l.rps > 0 {
		wait = time.Duration(float64(time.Second) / l.rps)
	}
	return false, wait, nil
}

// RedisLimiter counts requests per fixed window in Redis so every devserver
// sharing the instance sees the same budget. A window admits
// floor(rps*window)+burst requests.
type RedisLimiter struct {
	client *redis.Client
	window time.Duration
	limit  int64
	now    func() time.Time
}

func NewRedisLimiter(client *redis.Client, rps float64, burst int, window time.Duration) *RedisLimiter {
	if window < time.Second {
		window = time.Second
	}
	return &RedisLimiter{
		client: client,
		window: window,
		limit:  int64(rps*window.Seconds()) + int64(burst),
		now:    time.Now,
	}
}

func (l *RedisLimiter) Kind() string { return "redis" }

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	secs := int64(l.window / time.Second)
	slot := l.now().Unix() / secs
	k := fmt.Sprintf("rl:%s:%d", key, slot)

	n, err := l.client.Incr(ctx, k).Result()
	if err != nil {
		return false, 0, fmt.Errorf("rate limit %s: %w", k, err)
	}
	if n == 1 {
		_ = l.client.Expire(ctx, k, l.window+time.Second).Err()
	}
	if n > l.limit {
		return false, time.Duration((slot+1)*secs-l.now().Unix()) * time.Second, nil
	}
	return true, 0, nil
}

// rateKey prefers the authenticated user id and falls back to the client IP.
func rateKey(c *gin.Context) string {
	if cl, ok := Claims(c); ok && cl.UserID != 0 {
		return "user:" + strconv.FormatInt(cl.UserID, 10)
	}
	ip := c.ClientIP()
	if ip == "" {
		ip = "unknown"
	}
	return "ip:" + ip
}

// RateLimit rejects requests over the limiter's budget with 429.
func RateLimit(l Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, retry, err := l.Allow(c.Request.Context(), rateKey(c))
		if err != nil {
			logger.Errorf("%v", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Rate limit check failed"})
			return
		}
		if !ok {
			secs := int(retry.Round(time.Second) / time.Second)
			if secs < 1 {
				secs = 1
			}
			c.Header("Retry-After", strconv.Itoa(secs))
			metrics.RateLimitRejected.WithLabelValues(l.Kind()).Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"message": "Too Many Attempts."})
			return
		}
		metrics.RateLimitAllowed.WithLabelValues(l.Kind()).Inc()
		c.Next()
	}
}
