package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/ignatzorin/skillswap-backend/internal/interface/http/response"
	"github.com/ignatzorin/skillswap-backend/internal/logger"
)

// NewRateLimitStore хранилище счётчиков: Redis, если он есть, иначе память процесса.
func NewRateLimitStore(client *redis.Client) limiter.Store {
	if client != nil {
		store, err := sredis.NewStoreWithOptions(client, limiter.StoreOptions{Prefix: "skillswap:ratelimit", MaxRetry: 3})
		if err == nil {
			return store
		}
		logger.Log.WithField("error", err.Error()).Warn("rate limit: redis недоступен, счётчики в памяти")
	}
	return memory.NewStore()
}

// RateLimitMiddleware ограничивает количество запросов с одного IP.
// По умолчанию: 10 запросов в минуту.
func RateLimitMiddleware(store limiter.Store, limit int64, period time.Duration) gin.HandlerFunc {
	return rateLimit(store, limit, period, func(c *gin.Context) string {
		return "ip:" + c.ClientIP()
	})
}

// UserRateLimitMiddleware ограничивает запросы авторизованного пользователя.
// Ставится после AuthMiddleware, без пользователя в контексте ключом служит IP.
func UserRateLimitMiddleware(store limiter.Store, limit int64, period time.Duration) gin.HandlerFunc {
	return rateLimit(store, limit, period, func(c *gin.Context) string {
		if userID, ok := c.Get(ContextUserIDKey); ok {
			return fmt.Sprintf("user:%v", userID)
		}
		return "ip:" + c.ClientIP()
	})
}

func rateLimit(store limiter.Store, limit int64, period time.Duration, key func(*gin.Context) string) gin.HandlerFunc {
	if limit <= 0 {
		limit = 10
	}
	if period <= 0 {
		period = time.Minute
	}
	instance := limiter.New(store, limiter.Rate{Period: period, Limit: limit})

	return func(c *gin.Context) {
		lctx, err := instance.Get(c.Request.Context(), key(c))
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(lctx.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(lctx.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(lctx.Reset, 10))

		if lctx.Reached {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, response.Response{
				Success: false,
				Code:    "RATE_LIMITED",
				Message: "слишком много запросов, попробуйте позже",
			})
			return
		}
		c.Next()
	}
}
