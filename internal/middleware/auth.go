package middleware

import (
	"github.com/GoPolymarket/gasgate/internal/config"
	"github.com/GoPolymarket/gasgate/internal/model"
	"github.com/GoPolymarket/gasgate/internal/pkg/apperrors"
	"github.com/GoPolymarket/gasgate/internal/service"
	"github.com/gin-gonic/gin"
)

const (
	HeaderGatewayKey = "X-Gateway-Key"
	ContextClientKey = "client"
)

func AuthMiddleware(cfg *config.Config, cm *service.ClientManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := c.GetHeader(HeaderGatewayKey)
		if apiKey == "" {
			if cfg != nil && !cfg.Auth.RequireAPIKey {
				if client := cm.DefaultClient(); client != nil {
					c.Set(ContextClientKey, client)
					c.Next()
					return
				}
			}
			_ = c.Error(apperrors.New(apperrors.ErrAuthFailed, "missing API key", nil))
			c.Abort()
			return
		}

		client, ok := cm.GetClientByApiKeyWithFallback(c.Request.Context(), apiKey)
		if !ok {
			_ = c.Error(apperrors.New(apperrors.ErrAuthFailed, "invalid API key", nil))
			c.Abort()
			return
		}

		// 将客户端信息存入上下文
		c.Set(ContextClientKey, client)
		c.Next()
	}
}

// CurrentClient returns the client AuthMiddleware attached, if any.
func CurrentClient(c *gin.Context) (*model.Client, bool) {
	val, exists := c.Get(ContextClientKey)
	if !exists {
		return nil, false
	}
	client, ok := val.(*model.Client)
	return client, ok && client != nil
}
