package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/GoPolymarket/gasgate/internal/model"
	"github.com/GoPolymarket/gasgate/internal/pkg/apperrors"
	"github.com/GoPolymarket/gasgate/internal/service"
	"github.com/gin-gonic/gin"
)

type ClientHandler struct {
	svc *service.ClientService
}

func NewClientHandler(svc *service.ClientService) *ClientHandler {
	return &ClientHandler{svc: svc}
}

func (h *ClientHandler) List(c *gin.Context) {
	limit := 100
	offset := 0
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}
	if raw := c.Query("offset"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			offset = parsed
		}
	}

	clients, err := h.svc.List(c.Request.Context(), limit, offset)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, toClientPublicList(clients))
}

func (h *ClientHandler) Get(c *gin.Context) {
	client, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, toClientPublic(client))
}

func (h *ClientHandler) Create(c *gin.Context) {
	var req service.ClientCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.NewInvalidRequest(err.Error()))
		return
	}
	client, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, toClientPublic(client))
}

func (h *ClientHandler) Update(c *gin.Context) {
	var req service.ClientUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.NewInvalidRequest(err.Error()))
		return
	}
	client, err := h.svc.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, toClientPublic(client))
}

// RotateKey 替换客户端的网关 Key, 需要 admin secret
func (h *ClientHandler) RotateKey(c *gin.Context) {
	var req service.ClientKeyRotateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.NewInvalidRequest(err.Error()))
		return
	}
	client, err := h.svc.RotateKey(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, toClientPublic(client))
}

func (h *ClientHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// GetSecret 返回未脱敏的客户端信息
func (h *ClientHandler) GetSecret(c *gin.Context) {
	client, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, client)
}

type ClientPublic struct {
	ID     string                `json:"id"`
	Name   string                `json:"name"`
	APIKey string                `json:"api_key"`
	Quota  model.QuotaConfig     `json:"quota"`
	Rate   model.RateLimitConfig `json:"rate_limit"`
}

func toClientPublic(c *model.Client) *ClientPublic {
	if c == nil {
		return nil
	}
	return &ClientPublic{
		ID:     c.ID,
		Name:   c.Name,
		APIKey: maskSecret(c.ApiKey),
		Quota:  c.Quota,
		Rate:   c.Rate,
	}
}

func toClientPublicList(clients []*model.Client) []*ClientPublic {
	if len(clients) == 0 {
		return []*ClientPublic{}
	}
	out := make([]*ClientPublic, 0, len(clients))
	for _, client := range clients {
		out = append(out, toClientPublic(client))
	}
	return out
}

func maskSecret(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if len(value) <= 8 {
		return "****"
	}
	return value[:4] + "..." + value[len(value)-4:]
}
