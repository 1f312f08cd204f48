package handler

import (
	"context"

	"github.com/GoPolymarket/gasgate/internal/middleware"
	"github.com/GoPolymarket/gasgate/internal/service"
	"github.com/gin-gonic/gin"
)

// Provisioner deploys machine smart accounts.
type Provisioner interface {
	CreateMachineAccount(ctx context.Context, eoa string) (*service.ProvisionResult, error)
}

type AccountHandler struct {
	relay    Provisioner
	registry *service.AccountRegistry
}

func NewAccountHandler(relay Provisioner, registry *service.AccountRegistry) *AccountHandler {
	return &AccountHandler{relay: relay, registry: registry}
}

type CreateMachineAccountRequest struct {
	EOAAddress string `json:"eoaAddress" binding:"required"`
}

func (h *AccountHandler) Create(c *gin.Context) {
	var req CreateMachineAccountRequest
	if !bind(c, &req) {
		return
	}
	middleware.SetAuditAction(c, "deploy_machine_smart_account")

	// 调用 Service 执行 Gasless 部署
	res, err := h.relay.CreateMachineAccount(c.Request.Context(), req.EOAAddress)
	if err != nil {
		_ = c.Error(err)
		return
	}

	clientID := ""
	if client, ok := middleware.CurrentClient(c); ok {
		clientID = client.ID
	}
	h.registry.Record(c.Request.Context(), clientID, res)

	middleware.SetAuditTx(c, res.TxHash, 0)
	middleware.SetAuditMachine(c, res.MachineAddress)
	c.Set(middleware.ContextGasUsed, res.GasUsed)
	respond(c, res)
}

func (h *AccountHandler) Lookup(c *gin.Context) {
	views, err := h.registry.Lookup(c.Request.Context(), c.Param("eoa"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	respond(c, views)
}
