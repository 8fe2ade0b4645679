package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prohmpiriya/storefront/pkg/response"
	"github.com/redis/go-redis/v9"
)

const (
	// IdempotencyKeyHeader is the header name for idempotency key
	IdempotencyKeyHeader = "X-Idempotency-Key"
	// ContextKeyIdempotencyKey is the context key for idempotency key
	ContextKeyIdempotencyKey = "idempotency_key"
	// DefaultIdempotencyTTL keeps completed records long enough for client retries
	DefaultIdempotencyTTL = 5 * time.Minute
	// IdempotencyKeyPrefix is the Redis key prefix for idempotency records
	IdempotencyKeyPrefix = "idempotency:"

	maxIdempotencyKeyLength = 128
)

// IdempotencyStatus represents the status of an idempotency record
type IdempotencyStatus string

const (
	StatusProcessing IdempotencyStatus = "processing"
	StatusCompleted  IdempotencyStatus = "completed"
)

// IdempotencyRecord stores the state of an idempotent request
type IdempotencyRecord struct {
	Key          string            `json:"key"`
	Status       IdempotencyStatus `json:"status"`
	RequestHash  string            `json:"request_hash"`
	ResponseCode int               `json:"response_code"`
	ResponseBody string            `json:"response_body"`
	CreatedAt    time.Time         `json:"created_at"`
	CompletedAt  *time.Time        `json:"completed_at,omitempty"`
}

// RedisClient is the subset of Redis commands the middleware needs
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// IdempotencyConfig holds configuration for idempotency middleware
type IdempotencyConfig struct {
	Redis RedisClient
	// TTL for completed records
	TTL time.Duration
	// TTL for processing records, bounds how long a crashed request blocks its key
	ProcessingTTL time.Duration
	// Required rejects mutating requests without a key
	Required bool
}

// DefaultIdempotencyConfig returns default configuration
func DefaultIdempotencyConfig(redis RedisClient) *IdempotencyConfig {
	return &IdempotencyConfig{
		Redis:         redis,
		TTL:           DefaultIdempotencyTTL,
		ProcessingTTL: 60 * time.Second,
	}
}

// Idempotency replays the stored response for a repeated X-Idempotency-Key.
// Keys are scoped to the authenticated user, so it must run after authentication.
func Idempotency(config *IdempotencyConfig) gin.HandlerFunc {
	if config.ProcessingTTL == 0 {
		config.ProcessingTTL = 60 * time.Second
	}
	if config.TTL == 0 {
		config.TTL = DefaultIdempotencyTTL
	}

	return func(c *gin.Context) {
		if config.Redis == nil {
			c.Next()
			return
		}

		idempotencyKey := c.GetHeader(IdempotencyKeyHeader)
		if idempotencyKey == "" {
			if config.Required {
				response.Abort(c, http.StatusBadRequest, "MISSING_IDEMPOTENCY_KEY", "X-Idempotency-Key header is required")
				return
			}
			c.Next()
			return
		}
		if len(idempotencyKey) > maxIdempotencyKeyLength {
			response.Abort(c, http.StatusBadRequest, "INVALID_IDEMPOTENCY_KEY", "X-Idempotency-Key is too long")
			return
		}

		c.Set(ContextKeyIdempotencyKey, idempotencyKey)

		var bodyBytes []byte
		if c.Request.Body != nil {
			bodyBytes, _ = io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
		}

		userID, _ := GetUserID(c)
		requestHash := requestHash(c.Request.Method, c.Request.URL.Path, userID, bodyBytes)
		redisKey := IdempotencyKeyPrefix + userID + ":" + idempotencyKey
		ctx := c.Request.Context()

		record := &IdempotencyRecord{
			Key:         idempotencyKey,
			Status:      StatusProcessing,
			RequestHash: requestHash,
			CreatedAt:   time.Now(),
		}

		acquired, err := trySetIdempotencyRecord(ctx, config.Redis, redisKey, record, config.ProcessingTTL)
		if err != nil {
			// Redis unavailable, fail open
			c.Next()
			return
		}

		if !acquired {
			existing, err := getIdempotencyRecord(ctx, config.Redis, redisKey)
			if err != nil {
				if errors.Is(err, redis.Nil) {
					// expired between SETNX and GET
					response.Abort(c, http.StatusConflict, "REQUEST_IN_PROGRESS", "A request with this idempotency key is already being processed")
					return
				}
				c.Next()
				return
			}
			replay(c, existing, requestHash)
			return
		}

		rw := &idempotencyResponseWriter{ResponseWriter: c.Writer, body: bytes.NewBuffer(nil), status: http.StatusOK}
		c.Writer = rw

		c.Next()

		// 5xx responses are transient, let the client retry with the same key
		if rw.status >= http.StatusInternalServerError {
			_ = config.Redis.Del(context.WithoutCancel(ctx), redisKey).Err()
			return
		}

		now := time.Now()
		record.Status = StatusCompleted
		record.ResponseCode = rw.status
		record.ResponseBody = rw.body.String()
		record.CompletedAt = &now

		_ = saveIdempotencyRecord(context.WithoutCancel(ctx), config.Redis, redisKey, record, config.TTL)
	}
}

func replay(c *gin.Context, existing *IdempotencyRecord, requestHash string) {
	if existing.RequestHash != requestHash {
		response.Abort(c, http.StatusUnprocessableEntity, "IDEMPOTENCY_KEY_REUSED", "Idempotency key already used with a different request")
		return
	}
	if existing.Status == StatusProcessing {
		response.Abort(c, http.StatusConflict, "REQUEST_IN_PROGRESS", "A request with this idempotency key is already being processed")
		return
	}

	c.Header("Idempotent-Replayed", "true")
	c.Data(existing.ResponseCode, "application/json; charset=utf-8", []byte(existing.ResponseBody))
	c.Abort()
}

// GetIdempotencyKey extracts idempotency key from gin context
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	key := c.GetString(ContextKeyIdempotencyKey)
	return key, key != ""
}

// idempotencyResponseWriter captures response for caching
type idempotencyResponseWriter struct {
	gin.ResponseWriter
	body   *bytes.Buffer
	status int
}

func (w *idempotencyResponseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *idempotencyResponseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func requestHash(method, path, userID string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte(path))
	h.Write([]byte(userID))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

func getIdempotencyRecord(ctx context.Context, redis RedisClient, key string) (*IdempotencyRecord, error) {
	result, err := redis.Get(ctx, key).Result()
	if err != nil {
		return nil, err
	}

	var record IdempotencyRecord
	if err := json.Unmarshal([]byte(result), &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func trySetIdempotencyRecord(ctx context.Context, redis RedisClient, key string, record *IdempotencyRecord, ttl time.Duration) (bool, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return false, err
	}
	return redis.SetNX(ctx, key, string(data), ttl).Result()
}

func saveIdempotencyRecord(ctx context.Context, redis RedisClient, key string, record *IdempotencyRecord, ttl time.Duration) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return redis.Set(ctx, key, string(data), ttl).Err()
}
