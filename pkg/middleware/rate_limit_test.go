package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aiot-hub/aiot/backend/go-client/internal/tokens"
	"github.com/aiot-hub/aiot/backend/go-client/pkg/metrics"
	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// limitedEngine authenticates each request as the user named in ?uid, if any.
func limitedEngine(l Limiter) *gin.Engine {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		switch c.Query("uid") {
		case "1":
			c.Set(ClaimsKey, &tokens.AccessClaims{UserID: 1})
		case "2":
			c.Set(ClaimsKey, &tokens.AccessClaims{UserID: 2})
		}
		c.Next()
	})
	r.Use(RateLimit(l))
	r.GET("/r", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func hit(r *gin.Engine, target, remote string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if remote != "" {
		req.RemoteAddr = remote
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func newRedisLimiter(t *testing.T, rps float64, burst int) (*RedisLimiter, *miniredis.Miniredis) {
	t.Helper()
	m := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisLimiter(client, rps, burst, time.Minute), m
}

func TestRateLimit_Limiters(t *testing.T) {
	redisLimiter, _ := newRedisLimiter(t, 0, 2)
	for _, l := range []Limiter{NewMemoryLimiter(0.01, 2), redisLimiter} {
		t.Run(l.Kind(), func(t *testing.T) {
			allowed := testutil.ToFloat64(metrics.RateLimitAllowed.WithLabelValues(l.Kind()))
			rejected := testutil.ToFloat64(metrics.RateLimitRejected.WithLabelValues(l.Kind()))
			r := limitedEngine(l)

			assert.Equal(t, http.StatusOK, hit(r, "/r", "").Code)
			assert.Equal(t, http.StatusOK, hit(r, "/r", "").Code)
			w := hit(r, "/r", "")
			assert.Equal(t, http.StatusTooManyRequests, w.Code)
			assert.NotEmpty(t, w.Header().Get("Retry-After"))
			assert.JSONEq(t, `{"message":"Too Many Attempts."}`, w.Body.String())

			// another address has its own budget
			assert.Equal(t, http.StatusOK, hit(r, "/r", "10.9.9.9:1234").Code)

			assert.Equal(t, allowed+3, testutil.ToFloat64(metrics.RateLimitAllowed.WithLabelValues(l.Kind())))
			assert.Equal(t, rejected+1, testutil.ToFloat64(metrics.RateLimitRejected.WithLabelValues(l.Kind())))
		})
	}
}

func TestRateLimit_KeysByUserAcrossAddresses(t *testing.T) {
	r := limitedEngine(NewMemoryLimiter(0.01, 1))
	require.Equal(t, http.StatusOK, hit(r, "/r?uid=1", "10.0.0.1:1").Code)
	require.Equal(t, http.StatusTooManyRequests, hit(r, "/r?uid=1", "10.0.0.2:1").Code)
	require.Equal(t, http.StatusOK, hit(r, "/r?uid=2", "10.0.0.1:1").Code)
}

func TestMemoryLimiter_Refills(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLimiter(20, 1)
	ok, _, _ := l.Allow(ctx, "k")
	require.True(t, ok)
	ok, retry, _ := l.Allow(ctx, "k")
	require.False(t, ok)
	assert.Equal(t, 50*time.Millisecond, retry)

	time.Sleep(120 * time.Millisecond)
	ok, _, _ = l.Allow(ctx, "k")
	assert.True(t, ok)
}

func TestRedisLimiter_WindowRollsOver(t *testing.T) {
	l, m := newRedisLimiter(t, 0, 1)
	now := time.Unix(6000, 0)
	l.now = func() time.Time { return now }
	r := limitedEngine(l)

	require.Equal(t, http.StatusOK, hit(r, "/r", "").Code)
	w := hit(r, "/r", "")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))

	now = now.Add(time.Minute)
	m.FastForward(time.Minute)
	require.Equal(t, http.StatusOK, hit(r, "/r", "").Code)
}

func TestRedisLimiter_BackendDown(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	defer client.Close()
	l := NewRedisLimiter(client, 0, 1, time.Minute)
	require.Equal(t, http.StatusInternalServerError, hit(limitedEngine(l), "/r", "").Code)
}
