package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/LolHubFun/server-vps/internal/cache"
	"github.com/LolHubFun/server-vps/internal/logger"
	"github.com/gin-gonic/gin"
)

// Counter 限流用的分布式计数器，生产实现是 *cache.Cache
type Counter interface {
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// RateLimit 按IP每分钟限流，计数器故障时放行
func RateLimit(counter Counter, scope string, perMinute int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := cache.RateLimitKey(scope, c.ClientIP(), time.Now())
		n, err := counter.Incr(c.Request.Context(), key, time.Minute)
		if err != nil {
			logger.Warn("Rate limit counter unavailable for %s: %v", key, err)
			c.Next()
			return
		}
		if n > perMinute {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "请求过于频繁"})
			return
		}
		c.Next()
	}
}
