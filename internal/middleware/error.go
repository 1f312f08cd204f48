package middleware

import (
	"errors"

	"github.com/GoPolymarket/gasgate/internal/pkg/apperrors"
	"github.com/GoPolymarket/gasgate/internal/pkg/logger"
	"github.com/gin-gonic/gin"
)

// ErrorBody is the failure envelope: {"success": false, "error": {...}}.
type ErrorBody struct {
	Success bool                `json:"success"`
	Error   *apperrors.AppError `json:"error"`
}

func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Only handle if there are errors
		if len(c.Errors) == 0 {
			return
		}

		// Get the last error
		err := c.Errors.Last().Err
		var appErr *apperrors.AppError

		if !errors.As(err, &appErr) {
			// Unknown error, wrap as Internal
			appErr = apperrors.New(apperrors.ErrInternal, err.Error(), err)
		}

		// Log the error
		logFields := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"code", appErr.Type,
			"client_ip", c.ClientIP(),
		}
		if client, ok := CurrentClient(c); ok {
			logFields = append(logFields, "client_id", client.ID)
		}
		if appErr.RevertReason != "" {
			logFields = append(logFields, "revert_reason", appErr.RevertReason)
		}

		if appErr.HTTPStatus >= 500 {
			logger.LogError(c.Request.Context(), appErr, "Internal Server Error", logFields...)
		} else {
			logger.Warn(appErr.Message, logFields...)
		}

		AddAuditContext(c, "error_code", string(appErr.Type))
		if c.Writer.Written() {
			return
		}
		c.JSON(appErr.HTTPStatus, ErrorBody{Success: false, Error: appErr})
	}
}
