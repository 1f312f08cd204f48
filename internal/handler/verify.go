package handler

import (
	"github.com/GoPolymarket/gasgate/internal/service"
	"github.com/gin-gonic/gin"
)

type VerifyHandler struct {
	svc *service.VerificationService
}

func NewVerifyHandler(svc *service.VerificationService) *VerifyHandler {
	return &VerifyHandler{svc: svc}
}

func (h *VerifyHandler) DID(c *gin.Context) {
	var req service.VerifyRequest
	if !bind(c, &req) {
		return
	}
	out, err := h.svc.DID(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	respond(c, out)
}

// Storage verifies a storage write; expectedCount switches to the count check.
func (h *VerifyHandler) Storage(c *gin.Context) {
	var req service.VerifyRequest
	if !bind(c, &req) {
		return
	}
	out, err := h.svc.Storage(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	respond(c, out)
}
