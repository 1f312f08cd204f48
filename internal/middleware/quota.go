package middleware

import (
	"github.com/GoPolymarket/gasgate/internal/pkg/logger"
	"github.com/GoPolymarket/gasgate/internal/service"
	"github.com/gin-gonic/gin"
)

// ContextGasUsed carries the gas a handler's on-chain submission consumed.
const ContextGasUsed = "gas_used"

// QuotaMiddleware enforces the client's daily sponsored-action budget.
// Only successful responses count against the budget.
func QuotaMiddleware(guard *service.QuotaGuard) gin.HandlerFunc {
	return func(c *gin.Context) {
		client, ok := CurrentClient(c)
		if !ok {
			c.Next()
			return
		}
		if err := guard.Check(c.Request.Context(), client); err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}

		c.Next()

		if c.Writer.Status() >= 400 || len(c.Errors) > 0 {
			return
		}
		var gasUsed uint64
		if v, exists := c.Get(ContextGasUsed); exists {
			if g, ok := v.(uint64); ok {
				gasUsed = g
			}
		}
		if err := guard.Record(c.Request.Context(), client, gasUsed); err != nil {
			logger.Warn("record usage failed", "client_id", client.ID, "error", err)
		}
	}
}
