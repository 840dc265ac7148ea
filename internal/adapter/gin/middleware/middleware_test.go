package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"user-management-api/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// setupTestRedis creates a miniredis instance for testing
func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() {
		_ = client.Close()
	})
	return client, mr
}

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw...)
	r.GET("/users", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	return r
}

func get(r http.Handler, target string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.RemoteAddr = "192.0.2.1:12345"
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimiter_Redis(t *testing.T) {
	client, _ := setupTestRedis(t)

	rl := NewRateLimiter(client, RateLimiterConfig{
		Enabled:           true,
		RequestsPerSecond: 0.001, // effectively no refill during the test
		BurstCapacity:     3,
	}, zaptest.NewLogger(t))
	r := newEngine(rl.Handler())

	for i := 0; i < 3; i++ {
		w := get(r, "/users", nil)
		require.Equal(t, http.StatusOK, w.Code, "request %d should pass", i+1)
	}

	w := get(r, "/users", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), `"message"`)
}

func TestRateLimiter_RedisBucketsAreShared(t *testing.T) {
	client, _ := setupTestRedis(t)
	cfg := RateLimiterConfig{Enabled: true, RequestsPerSecond: 0.001, BurstCapacity: 2}

	// Two instances behind one Redis draw from the same bucket
	a := newEngine(NewRateLimiter(client, cfg, zaptest.NewLogger(t)).Handler())
	b := newEngine(NewRateLimiter(client, cfg, zaptest.NewLogger(t)).Handler())

	assert.Equal(t, http.StatusOK, get(a, "/users", nil).Code)
	assert.Equal(t, http.StatusOK, get(b, "/users", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, get(a, "/users", nil).Code)
}

func TestRateLimiter_RedisDownFallsBackToLocal(t *testing.T) {
	client, mr := setupTestRedis(t)
	mr.Close()

	rl := NewRateLimiter(client, RateLimiterConfig{
		Enabled:           true,
		RequestsPerSecond: 0.001,
		BurstCapacity:     1,
	}, zaptest.NewLogger(t))
	r := newEngine(rl.Handler())

	assert.Equal(t, http.StatusOK, get(r, "/users", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, get(r, "/users", nil).Code)
}

func TestRateLimiter_Local(t *testing.T) {
	rl := NewRateLimiter(nil, RateLimiterConfig{
		Enabled:           true,
		RequestsPerSecond: 0.001,
		BurstCapacity:     2,
	}, zaptest.NewLogger(t))
	r := newEngine(rl.Handler())

	assert.Equal(t, http.StatusOK, get(r, "/users", nil).Code)
	assert.Equal(t, http.StatusOK, get(r, "/users", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, get(r, "/users", nil).Code)

	// Another client has its own bucket
	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	req.RemoteAddr = "198.51.100.7:4000"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimiter_LocalBucketsExpire(t *testing.T) {
	rl := NewRateLimiter(nil, RateLimiterConfig{
		Enabled:           true,
		RequestsPerSecond: 1,
		BurstCapacity:     1,
	}, zaptest.NewLogger(t))
	require.Equal(t, time.Minute, rl.idleTTL)

	clock := time.Unix(1_700_000_000, 0)
	rl.now = func() time.Time { return clock }
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		assert.True(t, rl.allow(ctx, fmt.Sprintf("client-%d", i)))
	}
	assert.False(t, rl.allow(ctx, "client-0"))
	assert.Len(t, rl.buckets, 50)

	// Touching a bucket keeps it alive
	clock = clock.Add(30 * time.Second)
	rl.allow(ctx, "client-0")
	assert.Len(t, rl.buckets, 50, "nothing is idle long enough yet")

	clock = clock.Add(45 * time.Second)
	assert.True(t, rl.allow(ctx, "fresh"))
	assert.Len(t, rl.buckets, 2, "only client-0 and fresh were used within the last minute")
	assert.Contains(t, rl.buckets, "client-0")
	assert.Contains(t, rl.buckets, "fresh")
}

func TestBucketIdleTTL(t *testing.T) {
	tests := []struct {
		name string
		cfg  RateLimiterConfig
		want time.Duration
	}{
		{name: "fast refill uses the floor", cfg: RateLimiterConfig{RequestsPerSecond: 10, BurstCapacity: 20}, want: time.Minute},
		{name: "refill time", cfg: RateLimiterConfig{RequestsPerSecond: 0.5, BurstCapacity: 60}, want: 2 * time.Minute},
		{name: "slow refill uses the ceiling", cfg: RateLimiterConfig{RequestsPerSecond: 0.001, BurstCapacity: 3}, want: time.Hour},
		{name: "zero rate", cfg: RateLimiterConfig{}, want: time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, bucketIdleTTL(tt.cfg))
		})
	}
}

func TestRateLimiter_Disabled(t *testing.T) {
	rl := NewRateLimiter(nil, RateLimiterConfig{Enabled: false, RequestsPerSecond: 0.001, BurstCapacity: 1}, zaptest.NewLogger(t))
	r := newEngine(rl.Handler())

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, get(r, "/users", nil).Code)
	}
}

func TestRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())

	var seen string
	r.GET("/users", func(c *gin.Context) {
		seen = logger.GetRequestID(c.Request.Context())
		c.Status(http.StatusNoContent)
	})

	t.Run("generated when absent", func(t *testing.T) {
		w := get(r, "/users", nil)

		rid := w.Header().Get(HeaderRequestID)
		_, err := uuid.Parse(rid)
		assert.NoError(t, err)
		assert.Equal(t, rid, seen)
	})

	t.Run("propagated when present", func(t *testing.T) {
		w := get(r, "/users", map[string]string{HeaderRequestID: "abc-123"})

		assert.Equal(t, "abc-123", w.Header().Get(HeaderRequestID))
		assert.Equal(t, "abc-123", seen)
	})

	t.Run("oversized value replaced", func(t *testing.T) {
		w := get(r, "/users", map[string]string{HeaderRequestID: strings.Repeat("x", 200)})

		_, err := uuid.Parse(w.Header().Get(HeaderRequestID))
		assert.NoError(t, err)
	})
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	r := newEngine(m.Handler())

	get(r, "/users", nil)
	get(r, "/users", nil)
	get(r, "/missing", nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("/users", http.MethodGet, "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("unmatched", http.MethodGet, "404")))
}

func TestCORS(t *testing.T) {
	t.Run("configured origin allowed with credentials", func(t *testing.T) {
		r := newEngine(CORS("http://localhost:5173"))

		w := get(r, "/users", map[string]string{"Origin": "http://localhost:5173"})

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("other origin rejected", func(t *testing.T) {
		r := newEngine(CORS("http://localhost:5173"))

		w := get(r, "/users", map[string]string{"Origin": "http://evil.example"})

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("empty origin disables", func(t *testing.T) {
		assert.Nil(t, CORS(""))
	})
}
