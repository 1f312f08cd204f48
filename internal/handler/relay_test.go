package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/GoPolymarket/gasgate/internal/config"
	"github.com/GoPolymarket/gasgate/internal/middleware"
	"github.com/GoPolymarket/gasgate/internal/pkg/apperrors"
	"github.com/GoPolymarket/gasgate/internal/service"
	"github.com/gin-gonic/gin"
)

const (
	testEOA     = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"
	testMachine = "0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512"
)

type fakeRelay struct {
	batch     []service.MachineBatchItem
	execErr   error
	provision *service.ProvisionResult
}

func (f *fakeRelay) CreateMachineAccount(_ context.Context, eoa string) (*service.ProvisionResult, error) {
	if f.provision != nil {
		return f.provision, nil
	}
	return &service.ProvisionResult{EOAAddress: eoa, MachineAddress: testMachine, Nonce: 8, TxHash: "0xaa", GasUsed: 310000}, nil
}

func (f *fakeRelay) TransferStationBalance(context.Context, service.StationTransferRequest) (*service.ExecutionResult, error) {
	return f.result()
}

func (f *fakeRelay) GenerateStorageTx(_ context.Context, req service.StorageTxRequest) (*service.TxBundle, error) {
	return &service.TxBundle{Target: "0x0801", Calldata: "0x01", Nonce: 5, OwnerSignature: "0xsig"}, nil
}

func (f *fakeRelay) GenerateDIDTx(context.Context, service.DIDTxRequest) (*service.TxBundle, error) {
	return &service.TxBundle{Target: "0x0800", Calldata: "0x02", Nonce: 6, OwnerSignature: "0xsig"}, nil
}

func (f *fakeRelay) ExecuteTransaction(context.Context, service.ExecuteTxRequest) (*service.ExecutionResult, error) {
	return f.result()
}

func (f *fakeRelay) GenerateMachineStorageTx(context.Context, service.MachineStorageTxRequest) (*service.TxBundle, error) {
	return &service.TxBundle{MachineAddress: testMachine, Nonce: 7, OwnerSignature: "0xo", Signature: "0xm"}, nil
}

func (f *fakeRelay) GenerateMachineDIDTx(context.Context, service.MachineDIDTxRequest) (*service.TxBundle, error) {
	return &service.TxBundle{MachineAddress: testMachine, Nonce: 9, OwnerSignature: "0xo", Signature: "0xm"}, nil
}

func (f *fakeRelay) ExecuteMachineTransaction(context.Context, service.MachineTxRequest) (*service.ExecutionResult, error) {
	return f.result()
}

func (f *fakeRelay) ExecuteMachineBatch(_ context.Context, items []service.MachineBatchItem) (*service.ExecutionResult, error) {
	f.batch = items
	return f.result()
}

func (f *fakeRelay) ExecuteMachineTransferBalance(context.Context, service.MachineTransferRequest) (*service.ExecutionResult, error) {
	return f.result()
}

func (f *fakeRelay) SponsorMachineAction(_ context.Context, req service.SponsorRequest) (*service.SponsorResult, error) {
	exec, err := f.result()
	if err != nil {
		return nil, err
	}
	return &service.SponsorResult{Bundle: &service.TxBundle{MachineAddress: req.MachineAddress}, Execution: exec}, nil
}

func (f *fakeRelay) Status(context.Context) (*service.StationStatus, error) {
	return &service.StationStatus{Station: "0x5FbDB2315678afecb367f032d93F642f64180aa3", ChainID: 9990, Balance: "1.5"}, nil
}

func (f *fakeRelay) result() (*service.ExecutionResult, error) {
	if f.execErr != nil {
		return nil, f.execErr
	}
	return &service.ExecutionResult{Status: "executed", TxHash: "0xbb", BlockNumber: 12, GasUsed: 50000}, nil
}

type envelope struct {
	Success bool            `json:"success"`
	Payload json.RawMessage `json:"payload"`
	Error   struct {
		Code         string `json:"code"`
		RevertReason string `json:"revert_reason"`
	} `json:"error"`
}

func newRelayRouter(t *testing.T, relay *fakeRelay, maxDaily int) (*gin.Engine, *service.UsageStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{}
	cfg.Auth.RequireAPIKey = true
	cfg.Clients = []config.ClientConfig{{ID: "c1", APIKey: "key-1", MaxDailyActions: maxDaily}}
	clients := service.NewClientManager(cfg, nil)
	usage := service.NewUsageStore()

	h := NewRelayHandler(relay)
	accounts := NewAccountHandler(relay, service.NewAccountRegistry(nil, nil))

	r := gin.New()
	r.Use(middleware.ErrorHandler())
	v1 := r.Group("/v1")
	v1.Use(middleware.AuthMiddleware(cfg, clients))
	v1.GET("/station", h.Status)
	v1.GET("/machine-accounts/:eoa", accounts.Lookup)

	sponsored := v1.Group("")
	sponsored.Use(middleware.QuotaMiddleware(service.NewQuotaGuard(usage)))
	sponsored.POST("/machine-accounts", accounts.Create)
	sponsored.POST("/storage/tx", h.StorageTx)
	sponsored.POST("/tx/execute", h.Execute)
	sponsored.POST("/machine/tx/batch", h.MachineBatch)
	sponsored.POST("/machine/sponsor", h.Sponsor)
	return r, usage
}

func post(t *testing.T, r http.Handler, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.HeaderGatewayKey, "key-1")
	return serve(t, r, req)
}

func get(t *testing.T, r http.Handler, path string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set(middleware.HeaderGatewayKey, "key-1")
	return serve(t, r, req)
}

func serve(t *testing.T, r http.Handler, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("invalid json response %q: %v", rec.Body.String(), err)
	}
	return rec, env
}

func TestStatusEnvelope(t *testing.T) {
	r, _ := newRelayRouter(t, &fakeRelay{}, 0)
	rec, env := get(t, r, "/v1/station")
	if rec.Code != http.StatusOK || !env.Success {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
	var status service.StationStatus
	if err := json.Unmarshal(env.Payload, &status); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if status.ChainID != 9990 || status.Balance != "1.5" {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestStorageTxValidation(t *testing.T) {
	r, usage := newRelayRouter(t, &fakeRelay{}, 0)

	rec, env := post(t, r, "/v1/storage/tx", map[string]string{"email": "a@b.c"})
	if rec.Code != http.StatusBadRequest || env.Success || env.Error.Code != "INVALID_REQUEST" {
		t.Fatalf("expected INVALID_REQUEST, got %d %s", rec.Code, rec.Body.String())
	}

	rec, env = post(t, r, "/v1/storage/tx", map[string]string{"email": "a@b.c", "itemType": "t", "item": "v"})
	if rec.Code != http.StatusOK || !env.Success {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
	var bundle service.TxBundle
	if err := json.Unmarshal(env.Payload, &bundle); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if bundle.Nonce != 5 || bundle.OwnerSignature == "" {
		t.Fatalf("unexpected bundle %+v", bundle)
	}

	actions, _, _ := usage.GetDailyUsage(context.Background(), "c1")
	if actions != 1 {
		t.Fatalf("expected one counted action, got %d", actions)
	}
}

func TestExecuteRecordsGasUsage(t *testing.T) {
	r, usage := newRelayRouter(t, &fakeRelay{}, 0)
	rec, env := post(t, r, "/v1/tx/execute", map[string]any{
		"target": "0x0000000000000000000000000000000000000801", "calldata": "0x01",
		"nonce": 3, "ownerSignature": "0x01",
	})
	if rec.Code != http.StatusOK || !env.Success {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
	var res service.ExecutionResult
	if err := json.Unmarshal(env.Payload, &res); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if res.Status != "executed" || res.TxHash != "0xbb" {
		t.Fatalf("unexpected result %+v", res)
	}
	_, gas, _ := usage.GetDailyUsage(context.Background(), "c1")
	if gas != 50000 {
		t.Fatalf("expected gas 50000 recorded, got %d", gas)
	}
}

func TestExecuteRevertSurfacesReason(t *testing.T) {
	relay := &fakeRelay{execErr: apperrors.NewReverted("executeTransaction reverted", "InvalidNonce", nil)}
	r, usage := newRelayRouter(t, relay, 0)
	rec, env := post(t, r, "/v1/tx/execute", map[string]any{
		"target": "0x0000000000000000000000000000000000000801", "calldata": "0x01",
		"nonce": 3, "ownerSignature": "0x01",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	if env.Success || env.Error.Code != "TRANSACTION_REVERTED" || env.Error.RevertReason != "InvalidNonce" {
		t.Fatalf("unexpected error body %s", rec.Body.String())
	}
	if actions, _, _ := usage.GetDailyUsage(context.Background(), "c1"); actions != 0 {
		t.Fatalf("failed execution must not count against quota, got %d", actions)
	}
}

func TestMachineBatchForwardsItems(t *testing.T) {
	relay := &fakeRelay{}
	r, _ := newRelayRouter(t, relay, 0)
	item := map[string]any{
		"machineAddress": testMachine, "target": "0x0000000000000000000000000000000000000801",
		"calldata": "0x01", "nonce": 4, "signature": "0x02",
	}
	rec, env := post(t, r, "/v1/machine/tx/batch", map[string]any{"transactions": []any{item, item}})
	if rec.Code != http.StatusOK || !env.Success {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
	if len(relay.batch) != 2 || relay.batch[1].Nonce != 4 {
		t.Fatalf("batch not forwarded: %+v", relay.batch)
	}

	rec, _ = post(t, r, "/v1/machine/tx/batch", map[string]any{"transactions": []any{map[string]any{"target": "0x01"}}})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("incomplete batch item should be rejected, got %d", rec.Code)
	}
}

func TestSponsorRejectsUnknownAction(t *testing.T) {
	r, _ := newRelayRouter(t, &fakeRelay{}, 0)
	rec, env := post(t, r, "/v1/machine/sponsor", map[string]string{
		"action": "transfer", "email": "a@b.c", "machineAddress": testMachine,
	})
	if rec.Code != http.StatusBadRequest || env.Error.Code != "INVALID_REQUEST" {
		t.Fatalf("expected INVALID_REQUEST, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestQuotaBlocksSponsoredRoutes(t *testing.T) {
	r, _ := newRelayRouter(t, &fakeRelay{}, 1)
	body := map[string]string{"action": "storage", "email": "a@b.c", "machineAddress": testMachine, "itemType": "t", "item": "v"}
	if rec, _ := post(t, r, "/v1/machine/sponsor", body); rec.Code != http.StatusOK {
		t.Fatalf("first sponsorship should pass, got %d", rec.Code)
	}
	rec, env := post(t, r, "/v1/machine/sponsor", body)
	if rec.Code != http.StatusTooManyRequests || env.Error.Code != "QUOTA_EXCEEDED" {
		t.Fatalf("expected QUOTA_EXCEEDED, got %d %s", rec.Code, rec.Body.String())
	}
	// read routes are not metered
	if rec, _ := get(t, r, "/v1/station"); rec.Code != http.StatusOK {
		t.Fatalf("status should stay reachable, got %d", rec.Code)
	}
}

func TestCreateMachineAccountIsRecorded(t *testing.T) {
	r, usage := newRelayRouter(t, &fakeRelay{}, 0)

	rec, _ := get(t, r, "/v1/machine-accounts/"+testEOA)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 before provisioning, got %d", rec.Code)
	}

	rec, env := post(t, r, "/v1/machine-accounts", map[string]string{"eoaAddress": testEOA})
	if rec.Code != http.StatusOK || !env.Success {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
	var res service.ProvisionResult
	if err := json.Unmarshal(env.Payload, &res); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if res.MachineAddress != testMachine || res.Nonce != 8 {
		t.Fatalf("unexpected provision result %+v", res)
	}
	actions, gas, _ := usage.GetDailyUsage(context.Background(), "c1")
	if actions != 1 || gas != 310000 {
		t.Fatalf("expected provisioning usage 1/310000, got %d/%d", actions, gas)
	}

	rec, env = get(t, r, "/v1/machine-accounts/"+testEOA)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected recorded account, got %d %s", rec.Code, rec.Body.String())
	}
	var views []map[string]any
	if err := json.Unmarshal(env.Payload, &views); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if len(views) != 1 || views[0]["machineAddress"] != testMachine || views[0]["clientId"] != "c1" {
		t.Fatalf("unexpected lookup %+v", views)
	}
}
