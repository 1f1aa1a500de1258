package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/khata/backend/internal/infrastructure/cache"
	"github.com/khata/backend/internal/interfaces/http/dto"
)

// IdempotencyKeyHeader is the header clients send to deduplicate retries.
const IdempotencyKeyHeader = "Idempotency-Key"

// MaxIdempotencyKeyLength bounds the header value to keep store keys sane.
const MaxIdempotencyKeyLength = 128

// IdempotencyConfig holds configuration for the idempotency middleware.
type IdempotencyConfig struct {
	// Store tracks which keys have already been handled. Required.
	Store cache.IdempotencyStore
	// TTL is how long a processed key stays on record.
	TTL time.Duration
	// Logger for middleware logging.
	Logger *zap.Logger
}

// DefaultIdempotencyConfig returns the default idempotency configuration.
func DefaultIdempotencyConfig(store cache.IdempotencyStore) IdempotencyConfig {
	return IdempotencyConfig{
		Store: store,
		TTL:   24 * time.Hour,
	}
}

// Idempotency returns middleware that rejects replays of mutating requests.
// Clients opt in per request via the Idempotency-Key header; requests
// without the header pass through untouched. Keys are scoped to the
// authenticated merchant so two merchants can use the same key safely.
//
// A replayed key gets 409 with ERR_CONFLICT. Store failures fail open:
// losing deduplication is better than refusing writes while the
// backing store is down.
func Idempotency(store cache.IdempotencyStore) gin.HandlerFunc {
	return IdempotencyWithConfig(DefaultIdempotencyConfig(store))
}

// IdempotencyWithConfig returns idempotency middleware with custom configuration.
func IdempotencyWithConfig(cfg IdempotencyConfig) gin.HandlerFunc {
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}

	return func(c *gin.Context) {
		if cfg.Store == nil || !isMutatingMethod(c.Request.Method) {
			c.Next()
			return
		}

		key := c.GetHeader(IdempotencyKeyHeader)
		if key == "" {
			c.Next()
			return
		}
		if len(key) > MaxIdempotencyKeyLength {
			c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeBadRequest,
				"Idempotency-Key header is too long",
				c.GetString("request_id"),
			))
			return
		}

		storeKey := buildIdempotencyKey(c, key)

		newlyMarked, err := cfg.Store.MarkProcessed(c.Request.Context(), storeKey, cfg.TTL)
		if err != nil {
			// Fail open for availability; the store may be down
			if cfg.Logger != nil {
				cfg.Logger.Warn("Idempotency store unavailable",
					zap.String("key", key),
					zap.Error(err))
			}
			c.Next()
			return
		}

		if !newlyMarked {
			c.AbortWithStatusJSON(http.StatusConflict, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeConflict,
				"Request with this idempotency key was already processed",
				c.GetString("request_id"),
			))
			return
		}

		c.Next()
	}
}

// buildIdempotencyKey scopes the client key by merchant, method and route
// so the same key on different endpoints does not collide.
func buildIdempotencyKey(c *gin.Context, key string) string {
	merchantID := GetJWTMerchantID(c)
	route := c.FullPath()
	if route == "" {
		route = c.Request.URL.Path
	}
	return merchantID + ":" + c.Request.Method + ":" + route + ":" + key
}

func isMutatingMethod(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}
