package handler

import (
	"context"
	"net/http"

	"github.com/GoPolymarket/gasgate/internal/middleware"
	"github.com/GoPolymarket/gasgate/internal/model"
	"github.com/GoPolymarket/gasgate/internal/pkg/apperrors"
	"github.com/GoPolymarket/gasgate/internal/service"
	"github.com/gin-gonic/gin"
)

// Relay is the sponsored-action surface the HTTP layer exposes.
type Relay interface {
	CreateMachineAccount(ctx context.Context, eoa string) (*service.ProvisionResult, error)
	TransferStationBalance(ctx context.Context, req service.StationTransferRequest) (*service.ExecutionResult, error)
	GenerateStorageTx(ctx context.Context, req service.StorageTxRequest) (*service.TxBundle, error)
	GenerateDIDTx(ctx context.Context, req service.DIDTxRequest) (*service.TxBundle, error)
	ExecuteTransaction(ctx context.Context, req service.ExecuteTxRequest) (*service.ExecutionResult, error)
	GenerateMachineStorageTx(ctx context.Context, req service.MachineStorageTxRequest) (*service.TxBundle, error)
	GenerateMachineDIDTx(ctx context.Context, req service.MachineDIDTxRequest) (*service.TxBundle, error)
	ExecuteMachineTransaction(ctx context.Context, req service.MachineTxRequest) (*service.ExecutionResult, error)
	ExecuteMachineBatch(ctx context.Context, items []service.MachineBatchItem) (*service.ExecutionResult, error)
	ExecuteMachineTransferBalance(ctx context.Context, req service.MachineTransferRequest) (*service.ExecutionResult, error)
	SponsorMachineAction(ctx context.Context, req service.SponsorRequest) (*service.SponsorResult, error)
	Status(ctx context.Context) (*service.StationStatus, error)
}

type RelayHandler struct {
	relay Relay
}

func NewRelayHandler(relay Relay) *RelayHandler {
	return &RelayHandler{relay: relay}
}

type MachineBatchRequest struct {
	Transactions []service.MachineBatchItem `json:"transactions" binding:"required,dive"`
}

func (h *RelayHandler) Status(c *gin.Context) {
	status, err := h.relay.Status(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	respond(c, status)
}

func (h *RelayHandler) TransferStation(c *gin.Context) {
	var req service.StationTransferRequest
	if !bind(c, &req) {
		return
	}
	res, err := h.relay.TransferStationBalance(c.Request.Context(), req)
	executed(c, "transfer_station_balance", res, err)
}

func (h *RelayHandler) StorageTx(c *gin.Context) {
	var req service.StorageTxRequest
	if !bind(c, &req) {
		return
	}
	bundle, err := h.relay.GenerateStorageTx(c.Request.Context(), req)
	generated(c, "storage_tx", bundle, err)
}

func (h *RelayHandler) DIDTx(c *gin.Context) {
	var req service.DIDTxRequest
	if !bind(c, &req) {
		return
	}
	bundle, err := h.relay.GenerateDIDTx(c.Request.Context(), req)
	generated(c, "did_tx", bundle, err)
}

func (h *RelayHandler) Execute(c *gin.Context) {
	var req service.ExecuteTxRequest
	if !bind(c, &req) {
		return
	}
	res, err := h.relay.ExecuteTransaction(c.Request.Context(), req)
	executed(c, "execute_transaction", res, err)
}

func (h *RelayHandler) MachineStorageTx(c *gin.Context) {
	var req service.MachineStorageTxRequest
	if !bind(c, &req) {
		return
	}
	bundle, err := h.relay.GenerateMachineStorageTx(c.Request.Context(), req)
	generated(c, "machine_storage_tx", bundle, err)
}

func (h *RelayHandler) MachineDIDTx(c *gin.Context) {
	var req service.MachineDIDTxRequest
	if !bind(c, &req) {
		return
	}
	bundle, err := h.relay.GenerateMachineDIDTx(c.Request.Context(), req)
	generated(c, "machine_did_tx", bundle, err)
}

func (h *RelayHandler) MachineExecute(c *gin.Context) {
	var req service.MachineTxRequest
	if !bind(c, &req) {
		return
	}
	middleware.SetAuditMachine(c, req.MachineAddress)
	res, err := h.relay.ExecuteMachineTransaction(c.Request.Context(), req)
	executed(c, "execute_machine_transaction", res, err)
}

func (h *RelayHandler) MachineBatch(c *gin.Context) {
	var req MachineBatchRequest
	if !bind(c, &req) {
		return
	}
	middleware.AddAuditContext(c, "batch_size", len(req.Transactions))
	res, err := h.relay.ExecuteMachineBatch(c.Request.Context(), req.Transactions)
	executed(c, "execute_machine_batch", res, err)
}

func (h *RelayHandler) MachineTransfer(c *gin.Context) {
	var req service.MachineTransferRequest
	if !bind(c, &req) {
		return
	}
	middleware.SetAuditMachine(c, req.MachineAddress)
	res, err := h.relay.ExecuteMachineTransferBalance(c.Request.Context(), req)
	executed(c, "execute_machine_transfer_balance", res, err)
}

func (h *RelayHandler) Sponsor(c *gin.Context) {
	var req service.SponsorRequest
	if !bind(c, &req) {
		return
	}
	middleware.SetAuditMachine(c, req.MachineAddress)
	res, err := h.relay.SponsorMachineAction(c.Request.Context(), req)
	if err != nil {
		middleware.SetAuditAction(c, "sponsor_"+req.Action)
		_ = c.Error(err)
		return
	}
	var exec *service.ExecutionResult
	if res != nil {
		exec = res.Execution
		if res.Bundle != nil {
			middleware.SetAuditTx(c, "", res.Bundle.Nonce)
		}
	}
	recordExecution(c, "sponsor_"+req.Action, exec)
	respond(c, res)
}

func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		_ = c.Error(apperrors.NewInvalidRequest(err.Error()))
		return false
	}
	return true
}

func respond(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, model.Response{Success: true, Payload: payload})
}

func generated(c *gin.Context, action string, bundle *service.TxBundle, err error) {
	middleware.SetAuditAction(c, action)
	if err != nil {
		_ = c.Error(err)
		return
	}
	middleware.SetAuditTx(c, "", bundle.Nonce)
	middleware.SetAuditMachine(c, bundle.MachineAddress)
	respond(c, bundle)
}

func executed(c *gin.Context, action string, res *service.ExecutionResult, err error) {
	if err != nil {
		middleware.SetAuditAction(c, action)
		_ = c.Error(err)
		return
	}
	recordExecution(c, action, res)
	respond(c, res)
}

// recordExecution hands the receipt's gas to the quota middleware.
func recordExecution(c *gin.Context, action string, res *service.ExecutionResult) {
	middleware.SetAuditAction(c, action)
	if res == nil {
		return
	}
	middleware.SetAuditTx(c, res.TxHash, res.Nonce)
	c.Set(middleware.ContextGasUsed, res.GasUsed)
}
