package middleware

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"user-management-api/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RateLimiterConfig holds configuration for the rate limiter.
type RateLimiterConfig struct {
	Enabled           bool
	RequestsPerSecond float64
	BurstCapacity     int
}

// Token bucket state per key: {last_refill, tokens}. Runs atomically inside Redis.
var tokenBucketScript = redis.NewScript(`
	local key = KEYS[1]
	local rate = tonumber(ARGV[1])
	local capacity = tonumber(ARGV[2])
	local now = tonumber(ARGV[3])
	local requested = tonumber(ARGV[4])

	local bucket = redis.call('HMGET', key, 'last_refill', 'tokens')
	local last_refill = tonumber(bucket[1]) or now
	local tokens = tonumber(bucket[2]) or capacity

	local elapsed = math.max(0, now - last_refill)
	tokens = math.min(capacity, tokens + elapsed * rate)

	local allowed = 0
	if tokens >= requested then
		tokens = tokens - requested
		allowed = 1
	end

	redis.call('HSET', key, 'last_refill', tostring(now), 'tokens', tostring(tokens))
	redis.call('EXPIRE', key, 60)
	return allowed
`)

// RateLimiter throttles requests per client IP and route with a token bucket.
// Buckets live in Redis when a client is given, so every instance shares them;
// otherwise they are kept in process and forgotten once idle.
type RateLimiter struct {
	client *redis.Client
	config RateLimiterConfig
	log    *zap.Logger

	mu        sync.Mutex
	buckets   map[string]*localBucket
	idleTTL   time.Duration
	lastSweep time.Time
	now       func() time.Time
}

type localBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a new rate limiter. client may be nil.
func NewRateLimiter(client *redis.Client, config RateLimiterConfig, log *zap.Logger) *RateLimiter {
	return &RateLimiter{
		client:  client,
		config:  config,
		log:     log,
		buckets: make(map[string]*localBucket),
		idleTTL: bucketIdleTTL(config),
		now:     time.Now,
	}
}

// bucketIdleTTL is how long a local bucket may sit unused before it is dropped.
// A bucket idle for burst/rate seconds has refilled, so dropping it is unobservable;
// the result is kept between one minute and one hour.
func bucketIdleTTL(config RateLimiterConfig) time.Duration {
	if config.RequestsPerSecond <= 0 {
		return time.Hour
	}
	refill := float64(config.BurstCapacity) / config.RequestsPerSecond
	switch {
	case refill < time.Minute.Seconds():
		return time.Minute
	case refill > time.Hour.Seconds():
		return time.Hour
	default:
		return time.Duration(refill * float64(time.Second))
	}
}

// Handler returns the gin middleware enforcing the limit.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl == nil || !rl.config.Enabled {
			c.Next()
			return
		}

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		key := fmt.Sprintf("ratelimit:tb:%s:%s:%s", c.Request.Method, route, c.ClientIP())

		if !rl.allow(c.Request.Context(), key) {
			logger.WithContext(c.Request.Context(), rl.log).Warn("rate limit exceeded",
				zap.String("client_ip", c.ClientIP()),
				zap.String("route", route),
				zap.Float64("limit", rl.config.RequestsPerSecond),
				zap.Int("burst", rl.config.BurstCapacity),
			)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"message": "Too many requests, please try again later.",
			})
			return
		}

		c.Next()
	}
}

// allow consumes one token for key. Redis failures fall back to the
// in-process bucket for the same key.
func (rl *RateLimiter) allow(ctx context.Context, key string) bool {
	if rl.client != nil {
		allowed, err := rl.allowRedis(ctx, key)
		if err == nil {
			return allowed
		}
		rl.log.Warn("rate limiter redis error, using local bucket", zap.String("key", key), zap.Error(err))
	}
	return rl.localLimiter(key).Allow()
}

func (rl *RateLimiter) allowRedis(ctx context.Context, key string) (bool, error) {
	now, err := rl.client.Time(ctx).Result()
	if err != nil {
		return false, fmt.Errorf("redis time: %w", err)
	}

	res, err := tokenBucketScript.Run(ctx, rl.client, []string{key},
		rl.config.RequestsPerSecond,
		rl.config.BurstCapacity,
		float64(now.UnixMicro())/1e6,
		1,
	).Int64()
	if err != nil {
		return false, fmt.Errorf("token bucket script: %w", err)
	}
	return res == 1, nil
}

func (rl *RateLimiter) localLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastSweep) >= rl.idleTTL {
		rl.sweep(now)
	}

	b, ok := rl.buckets[key]
	if !ok {
		b = &localBucket{limiter: rate.NewLimiter(rate.Limit(rl.config.RequestsPerSecond), rl.config.BurstCapacity)}
		rl.buckets[key] = b
	}
	b.lastSeen = now
	return b.limiter
}

// sweep drops buckets idle for at least idleTTL. Callers hold rl.mu.
func (rl *RateLimiter) sweep(now time.Time) {
	for key, b := range rl.buckets {
		if now.Sub(b.lastSeen) >= rl.idleTTL {
			delete(rl.buckets, key)
		}
	}
	rl.lastSweep = now
}
