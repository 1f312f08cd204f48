package middleware

import (
	"net/http"

	"github.com/GoPolymarket/gasgate/internal/pkg/apperrors"
	"github.com/gin-gonic/gin"
)

// ReadOnlyMiddleware rejects every state-changing request while enabled.
// Status, verification and event routes stay reachable.
func ReadOnlyMiddleware(enabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !enabled {
			c.Next()
			return
		}

		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}
		if isVerifyPath(c.Request.URL.Path) {
			c.Next()
			return
		}
		_ = c.Error(apperrors.New(apperrors.ErrReadOnly, "read-only mode enabled", nil))
		c.Abort()
	}
}

func isVerifyPath(path string) bool {
	return path == "/v1/verify/did" || path == "/v1/verify/storage"
}
