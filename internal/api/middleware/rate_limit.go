package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/UoaWDCC/uabc-web-sub005/pkg/response"
)

// RateLimiter 固定窗口计数器，由 pkg/redis.Client 实现
type RateLimiter interface {
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// RateLimit 基于 Redis 固定窗口（INCR + 首次 PEXPIRE）的速率限制中间件
// 已认证请求按 user_id 计数，否则按客户端 IP。
// limiter 为 nil 或出错时降级放行
func RateLimit(limiter RateLimiter, limit int, window time.Duration, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil || limit <= 0 {
			c.Next()
			return
		}

		subject := c.GetString("user_id")
		if subject == "" {
			subject = "ip:" + c.ClientIP()
		}

		key := fmt.Sprintf("rate_limit:%s:%s:%s", c.Request.Method, c.FullPath(), subject)
		allowed, err := limiter.CheckRateLimit(c.Request.Context(), key, limit, window)
		if err != nil {
			logger.Warn("限流检查失败，降级放行", zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}

		if !allowed {
			response.TooManyRequests(c, 10004, "请求过于频繁，请稍后再试")
			c.Abort()
			return
		}

		c.Next()
	}
}
