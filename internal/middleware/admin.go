package middleware

import (
	"crypto/subtle"

	"github.com/GoPolymarket/gasgate/internal/config"
	"github.com/GoPolymarket/gasgate/internal/pkg/apperrors"
	"github.com/gin-gonic/gin"
)

const HeaderAdminKey = "X-Admin-Key"
const HeaderAdminSecretKey = "X-Admin-Secret"

func AdminMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg == nil || cfg.Auth.AdminKey == "" {
			_ = c.Error(apperrors.New(apperrors.ErrForbidden, "admin key not configured", nil))
			c.Abort()
			return
		}
		if !keyEqual(c.GetHeader(HeaderAdminKey), cfg.Auth.AdminKey) {
			_ = c.Error(apperrors.New(apperrors.ErrAuthFailed, "invalid admin key", nil))
			c.Abort()
			return
		}
		c.Next()
	}
}

// AdminSecretMiddleware guards routes that reveal or replace client keys.
func AdminSecretMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg == nil || cfg.Auth.AdminSecretKey == "" {
			_ = c.Error(apperrors.New(apperrors.ErrForbidden, "admin secret key not configured", nil))
			c.Abort()
			return
		}
		if !keyEqual(c.GetHeader(HeaderAdminSecretKey), cfg.Auth.AdminSecretKey) {
			_ = c.Error(apperrors.New(apperrors.ErrAuthFailed, "invalid admin secret key", nil))
			c.Abort()
			return
		}
		c.Next()
	}
}

func keyEqual(got, want string) bool {
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
