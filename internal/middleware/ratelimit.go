package middleware

import (
	"github.com/GoPolymarket/gasgate/internal/pkg/apperrors"
	"github.com/GoPolymarket/gasgate/internal/pkg/metrics"
	"github.com/GoPolymarket/gasgate/internal/service"
	"github.com/gin-gonic/gin"
)

func RateLimitMiddleware(cm *service.ClientManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1. 获取当前客户端 (必须在 AuthMiddleware 之后使用)
		client, ok := CurrentClient(c)
		if !ok {
			_ = c.Error(apperrors.New(apperrors.ErrAuthFailed, "unauthorized", nil))
			c.Abort()
			return
		}

		// 2. 获取限流器
		limiter := cm.GetLimiterForClient(client.ID)
		if limiter == nil {
			// ClientManager 数据不一致时放行
			c.Next()
			return
		}

		// 3. 尝试获取令牌
		if !limiter.Allow() {
			metrics.QuotaRejects.WithLabelValues("rate_limit").Inc()
			c.Header("Retry-After", "1")
			_ = c.Error(apperrors.New(apperrors.ErrRateLimited, "rate limit exceeded", nil))
			c.Abort()
			return
		}

		c.Next()
	}
}
