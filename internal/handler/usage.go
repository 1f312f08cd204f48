package handler

import (
	"github.com/GoPolymarket/gasgate/internal/middleware"
	"github.com/GoPolymarket/gasgate/internal/pkg/apperrors"
	"github.com/GoPolymarket/gasgate/internal/service"
	"github.com/gin-gonic/gin"
)

type UsageHandler struct {
	guard *service.QuotaGuard
}

func NewUsageHandler(guard *service.QuotaGuard) *UsageHandler {
	return &UsageHandler{guard: guard}
}

// Get reports today's sponsored actions and gas for the calling client.
func (h *UsageHandler) Get(c *gin.Context) {
	client, exists := middleware.CurrentClient(c)
	if !exists {
		_ = c.Error(apperrors.New(apperrors.ErrAuthFailed, "unauthorized: missing client context", nil))
		return
	}
	report, err := h.guard.Usage(c.Request.Context(), client)
	if err != nil {
		_ = c.Error(err)
		return
	}
	respond(c, report)
}
