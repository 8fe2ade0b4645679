package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	pkgredis "github.com/prohmpiriya/storefront/pkg/redis"
	"github.com/prohmpiriya/storefront/pkg/response"
)

// Limiter decides whether a request identified by key may proceed
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerSecond int
	BurstSize         int
	KeyPrefix         string
	CleanupInterval   time.Duration
	EntryTTL          time.Duration
}

// DefaultRateLimitConfig returns defaults suited to credential endpoints
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 10,
		BurstSize:         20,
		KeyPrefix:         "ratelimit:",
		CleanupInterval:   time.Minute,
		EntryTTL:          time.Minute,
	}
}

type rateLimitEntry struct {
	tokens     float64
	lastUpdate time.Time
	mu         sync.Mutex
}

// LocalRateLimiter implements in-memory token bucket rate limiting
type LocalRateLimiter struct {
	config  RateLimitConfig
	entries sync.Map
	now     func() time.Time
	stop    chan struct{}
	once    sync.Once
}

// NewLocalRateLimiter creates a local limiter and starts its cleanup loop
func NewLocalRateLimiter(config RateLimitConfig) *LocalRateLimiter {
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = time.Minute
	}
	if config.EntryTTL <= 0 {
		config.EntryTTL = time.Minute
	}
	rl := &LocalRateLimiter{
		config: config,
		now:    time.Now,
		stop:   make(chan struct{}),
	}
	go rl.cleanup()
	return rl
}

// Allow consumes one token for key
func (rl *LocalRateLimiter) Allow(_ context.Context, key string) (bool, error) {
	now := rl.now()

	entry, _ := rl.entries.LoadOrStore(key, &rateLimitEntry{
		tokens:     float64(rl.config.BurstSize),
		lastUpdate: now,
	})
	e := entry.(*rateLimitEntry)

	e.mu.Lock()
	defer e.mu.Unlock()

	elapsed := now.Sub(e.lastUpdate).Seconds()
	e.tokens = min(float64(rl.config.BurstSize), e.tokens+elapsed*float64(rl.config.RequestsPerSecond))
	e.lastUpdate = now

	if e.tokens >= 1 {
		e.tokens--
		return true, nil
	}
	return false, nil
}

func (rl *LocalRateLimiter) cleanup() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cutoff := rl.now().Add(-rl.config.EntryTTL)
			rl.entries.Range(func(key, value interface{}) bool {
				e := value.(*rateLimitEntry)
				e.mu.Lock()
				if e.lastUpdate.Before(cutoff) {
					rl.entries.Delete(key)
				}
				e.mu.Unlock()
				return true
			})
		case <-rl.stop:
			return
		}
	}
}

// Stop stops the cleanup goroutine
func (rl *LocalRateLimiter) Stop() {
	rl.once.Do(func() { close(rl.stop) })
}

const tokenBucketScriptName = "token_bucket"

// atomic token bucket, returns {allowed, remaining}
const tokenBucketScript = `
local key = KEYS[1]
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

local data = redis.call("HMGET", key, "tokens", "last_update")
local tokens = tonumber(data[1]) or burst
local last_update = tonumber(data[2]) or now

tokens = math.min(burst, tokens + (now - last_update) * rate)

local allowed = 0
if tokens >= 1 then
    tokens = tokens - 1
    allowed = 1
end

redis.call("HSET", key, "tokens", tokens, "last_update", now)
redis.call("EXPIRE", key, 60)
return {allowed, tostring(tokens)}
`

// RedisRateLimiter implements distributed token bucket rate limiting
type RedisRateLimiter struct {
	config RateLimitConfig
	client *pkgredis.Client
}

// NewRedisRateLimiter creates a new Redis rate limiter
func NewRedisRateLimiter(client *pkgredis.Client, config RateLimitConfig) *RedisRateLimiter {
	return &RedisRateLimiter{config: config, client: client}
}

// Allow consumes one token for key in Redis
func (rl *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	now := float64(time.Now().UnixNano()) / 1e9

	values, err := rl.client.EvalWithFallback(ctx, tokenBucketScriptName, tokenBucketScript,
		[]string{rl.config.KeyPrefix + key},
		rl.config.RequestsPerSecond, rl.config.BurstSize, now,
	).Slice()
	if err != nil {
		return false, err
	}
	if len(values) < 1 {
		return false, fmt.Errorf("unexpected rate limit result length: %d", len(values))
	}

	allowed, ok := values[0].(int64)
	if !ok {
		return false, fmt.Errorf("unexpected rate limit result type %T", values[0])
	}
	return allowed == 1, nil
}

// RateLimit rejects requests over the limit with 429, keyed by client IP.
// Limiter errors fail open.
func RateLimit(limiter Limiter, config RateLimitConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, err := limiter.Allow(c.Request.Context(), c.FullPath()+"|"+c.ClientIP())
		if err != nil {
			allowed = true
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(config.RequestsPerSecond))

		if !allowed {
			c.Header("Retry-After", "1")
			response.Abort(c, http.StatusTooManyRequests, "TOO_MANY_REQUESTS", "Rate limit exceeded. Please retry after 1 second(s).")
			return
		}
		c.Next()
	}
}
