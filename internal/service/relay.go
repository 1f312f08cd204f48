package service

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/GoPolymarket/gasgate/internal/calldata"
	"github.com/GoPolymarket/gasgate/internal/chain"
	"github.com/GoPolymarket/gasgate/internal/did"
	"github.com/GoPolymarket/gasgate/internal/events"
	"github.com/GoPolymarket/gasgate/internal/getreal"
	"github.com/GoPolymarket/gasgate/internal/manager"
	"github.com/GoPolymarket/gasgate/internal/pkg/apperrors"
	"github.com/GoPolymarket/gasgate/internal/pkg/logger"
	"github.com/GoPolymarket/gasgate/internal/pkg/metrics"
	"github.com/GoPolymarket/gasgate/internal/signer"
	"github.com/GoPolymarket/gasgate/internal/station"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"
)

// Submitter sends station calls as the owner and waits for inclusion.
type Submitter interface {
	Submit(ctx context.Context, to common.Address, data []byte, gasLimit uint64) (*chain.Receipt, error)
	From() common.Address
	OwnerBalance(ctx context.Context) (*big.Int, error)
}

// RelayConfig is fixed at startup and shared read-only by every request.
type RelayConfig struct {
	ChainID           int64
	Station           common.Address
	DIDPrecompile     common.Address
	StoragePrecompile common.Address
	GasLimit          uint64
}

// RelayService exposes one method per sponsored action. It holds no per-request state.
type RelayService struct {
	cfg       RelayConfig
	contract  *station.Contract
	nonces    *manager.NoncePolicy
	auth      *Authorizer
	submitter Submitter
	getReal   getreal.Service
	events    events.Publisher
	log       *slog.Logger
}

type RelayOption func(*RelayService)

func WithNoncePolicy(p *manager.NoncePolicy) RelayOption {
	return func(s *RelayService) {
		if p != nil {
			s.nonces = p
		}
	}
}

func WithEventPublisher(p events.Publisher) RelayOption {
	return func(s *RelayService) { s.events = p }
}

func NewRelayService(cfg RelayConfig, contract *station.Contract, auth *Authorizer, submitter Submitter, getReal getreal.Service, opts ...RelayOption) *RelayService {
	if cfg.GasLimit == 0 {
		cfg.GasLimit = chain.DefaultGasLimit
	}
	s := &RelayService{
		cfg:       cfg,
		contract:  contract,
		nonces:    manager.NewNoncePolicy(),
		auth:      auth,
		submitter: submitter,
		getReal:   getReal,
		log:       logger.With("component", "relay"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ProvisionResult answers CreateMachineAccount. Nonce is the value the caller
// should use for its next action on the new account.
type ProvisionResult struct {
	EOAAddress     string `json:"eoaAddress"`
	MachineAddress string `json:"machineAddress"`
	Nonce          uint64 `json:"nonce"`
	TxHash         string `json:"txHash"`
	GasUsed        uint64 `json:"gasUsed"`
}

// TxBundle is a signed but unsubmitted sponsored call.
type TxBundle struct {
	MachineAddress string `json:"machineAddress,omitempty"`
	Target         string `json:"target"`
	Calldata       string `json:"calldata"`
	Nonce          uint64 `json:"nonce"`
	OwnerSignature string `json:"ownerSignature"`
	Signature      string `json:"signature,omitempty"`
}

// ExecutionResult describes an included station call.
type ExecutionResult struct {
	Status      string `json:"status"`
	TxHash      string `json:"txHash"`
	BlockNumber uint64 `json:"blockNumber"`
	GasUsed     uint64 `json:"gasUsed"`
	Nonce       uint64 `json:"nonce,omitempty"`
}

type StorageTxRequest struct {
	Email    string `json:"email" binding:"required"`
	ItemType string `json:"itemType" binding:"required"`
	Item     string `json:"item" binding:"required"`
	Tag      string `json:"tag"`
}

type DIDTxRequest struct {
	Email       string `json:"email" binding:"required"`
	UserAddress string `json:"userAddress" binding:"required"`
	Company     string `json:"company" binding:"required"`
	Tag         string `json:"tag"`
}

type MachineStorageTxRequest struct {
	Email          string `json:"email" binding:"required"`
	MachineAddress string `json:"machineAddress" binding:"required"`
	ItemType       string `json:"itemType" binding:"required"`
	Item           string `json:"item" binding:"required"`
	Tag            string `json:"tag"`
}

type MachineDIDTxRequest struct {
	Email          string `json:"email" binding:"required"`
	EOAAddress     string `json:"eoaAddress" binding:"required"`
	MachineAddress string `json:"machineAddress" binding:"required"`
	Company        string `json:"company" binding:"required"`
	Tag            string `json:"tag"`
}

type ExecuteTxRequest struct {
	Target         string `json:"target" binding:"required"`
	Calldata       string `json:"calldata" binding:"required"`
	Nonce          uint64 `json:"nonce" binding:"required"`
	OwnerSignature string `json:"ownerSignature" binding:"required"`
}

type MachineTxRequest struct {
	MachineAddress string `json:"machineAddress" binding:"required"`
	Target         string `json:"target" binding:"required"`
	Calldata       string `json:"calldata" binding:"required"`
	Nonce          uint64 `json:"nonce" binding:"required"`
	OwnerSignature string `json:"ownerSignature" binding:"required"`
	Signature      string `json:"signature" binding:"required"`
}

// MachineBatchItem is one machine-signed call inside a batch.
type MachineBatchItem struct {
	MachineAddress string `json:"machineAddress" binding:"required"`
	Target         string `json:"target" binding:"required"`
	Calldata       string `json:"calldata" binding:"required"`
	Nonce          uint64 `json:"nonce" binding:"required"`
	Signature      string `json:"signature" binding:"required"`
}

type MachineTransferRequest struct {
	MachineAddress   string `json:"machineAddress" binding:"required"`
	RecipientAddress string `json:"recipientAddress" binding:"required"`
}

type StationTransferRequest struct {
	NewMachineStationAddress string `json:"newMachineStationAddress" binding:"required"`
	OldMachineStationAddress string `json:"oldMachineStationAddress"`
}

// Sponsored machine actions executed end to end.
const (
	SponsorStorage = "storage"
	SponsorDID     = "did"
)

type SponsorRequest struct {
	Action         string `json:"action" binding:"required,oneof=storage did"`
	Email          string `json:"email" binding:"required"`
	MachineAddress string `json:"machineAddress" binding:"required"`
	EOAAddress     string `json:"eoaAddress"`
	ItemType       string `json:"itemType"`
	Item           string `json:"item"`
	Company        string `json:"company"`
	Tag            string `json:"tag"`
}

type SponsorResult struct {
	Bundle    *TxBundle        `json:"bundle"`
	Execution *ExecutionResult `json:"execution"`
}

type StationStatus struct {
	Station      string `json:"station"`
	Owner        string `json:"owner"`
	ChainID      int64  `json:"chainId"`
	BalanceWei   string `json:"balanceWei"`
	Balance      string `json:"balance"`
	MachineReady bool   `json:"machineSignerConfigured"`
}

// CreateMachineAccount deploys a machine smart account owned by eoa.
func (s *RelayService) CreateMachineAccount(ctx context.Context, eoa string) (res *ProvisionResult, err error) {
	defer s.observe(signer.ActionDeployMachineAccount, &err, func(ev *events.Event) {
		ev.EOAAddress = eoa
		if res != nil {
			ev.MachineAddress, ev.TxHash, ev.Nonce = res.MachineAddress, res.TxHash, res.Nonce
		}
	})

	owner, err := signer.ParseAddress("eoaAddress", eoa)
	if err != nil {
		return nil, err
	}
	nonce := s.nonces.Issue()
	payload, err := s.factoryPayload(signer.ActionDeployMachineAccount, signer.Fields{
		"machineOwner": owner,
		"nonce":        nonce,
	})
	if err != nil {
		return nil, err
	}
	auth, err := s.auth.AuthorizeOwnerOnly(payload)
	if err != nil {
		return nil, err
	}
	data, err := s.contract.PackDeployMachineSmartAccount(owner, new(big.Int).SetUint64(nonce), auth.OwnerSignature)
	if err != nil {
		return nil, err
	}
	receipt, err := s.submitter.Submit(ctx, s.cfg.Station, data, s.cfg.GasLimit)
	if err != nil {
		return nil, err
	}
	machine, err := chain.ExtractDeployedAddress(receipt, station.DeployedEventSignature)
	if err != nil {
		return nil, err
	}
	s.log.Info("machine account deployed", "eoa", owner.Hex(), "machine", machine.Hex(), "tx_hash", receipt.TxHash.Hex())
	return &ProvisionResult{
		EOAAddress:     owner.Hex(),
		MachineAddress: machine.Hex(),
		Nonce:          s.nonces.Next(nonce),
		TxHash:         receipt.TxHash.Hex(),
		GasUsed:        receipt.GasUsed,
	}, nil
}

// TransferStationBalance moves the station's funds to a new station contract.
func (s *RelayService) TransferStationBalance(ctx context.Context, req StationTransferRequest) (res *ExecutionResult, err error) {
	defer s.observe(signer.ActionTransferStationBalance, &err, executionEvent(&res))

	newStation, err := signer.ParseAddress("newMachineStationAddress", req.NewMachineStationAddress)
	if err != nil {
		return nil, err
	}
	nonce := s.nonces.Issue()
	payload, err := s.factoryPayload(signer.ActionTransferStationBalance, signer.Fields{
		"newMachineStationAddress": newStation,
		"nonce":                    nonce,
	})
	if err != nil {
		return nil, err
	}
	auth, err := s.auth.AuthorizeOwnerOnly(payload)
	if err != nil {
		return nil, err
	}
	data, err := s.contract.PackTransferMachineStationBalance(newStation, new(big.Int).SetUint64(nonce), auth.OwnerSignature)
	if err != nil {
		return nil, err
	}
	s.log.Info("transferring station balance", "from", req.OldMachineStationAddress, "to", newStation.Hex())
	return s.submit(ctx, data, nonce)
}

// GenerateStorageTx prepares an owner-approved addItem call on the storage precompile.
func (s *RelayService) GenerateStorageTx(ctx context.Context, req StorageTxRequest) (*TxBundle, error) {
	if _, err := s.getReal.StoreDataKey(ctx, req.Email, req.ItemType, req.Tag); err != nil {
		return nil, err
	}
	data, err := calldata.EncodeAddItem(req.ItemType, req.Item)
	if err != nil {
		return nil, err
	}
	return s.ownerBundle(s.cfg.StoragePrecompile, data)
}

// GenerateDIDTx prepares an owner-approved addAttribute call writing userAddress's DID document.
func (s *RelayService) GenerateDIDTx(ctx context.Context, req DIDTxRequest) (*TxBundle, error) {
	user, err := signer.ParseAddress("userAddress", req.UserAddress)
	if err != nil {
		return nil, err
	}
	data, err := s.didCalldata(ctx, req.Email, req.Tag, user, user, req.Company)
	if err != nil {
		return nil, err
	}
	return s.ownerBundle(s.cfg.DIDPrecompile, data)
}

// ExecuteTransaction submits a bundle produced by GenerateStorageTx or GenerateDIDTx.
func (s *RelayService) ExecuteTransaction(ctx context.Context, req ExecuteTxRequest) (res *ExecutionResult, err error) {
	defer s.observe(signer.ActionExecuteTransaction, &err, executionEvent(&res))

	target, err := signer.ParseAddress("target", req.Target)
	if err != nil {
		return nil, err
	}
	cd, err := decodeHex("calldata", req.Calldata)
	if err != nil {
		return nil, err
	}
	ownerSig, err := decodeSignature("ownerSignature", req.OwnerSignature)
	if err != nil {
		return nil, err
	}
	data, err := s.contract.PackExecuteTransaction(target, cd, new(big.Int).SetUint64(req.Nonce), ownerSig)
	if err != nil {
		return nil, err
	}
	return s.submit(ctx, data, req.Nonce)
}

// GenerateMachineStorageTx prepares a dual-signed addItem call made by a machine account.
func (s *RelayService) GenerateMachineStorageTx(ctx context.Context, req MachineStorageTxRequest) (*TxBundle, error) {
	machine, err := signer.ParseAddress("machineAddress", req.MachineAddress)
	if err != nil {
		return nil, err
	}
	if _, err := s.getReal.StoreDataKey(ctx, req.Email, req.ItemType, req.Tag); err != nil {
		return nil, err
	}
	data, err := calldata.EncodeAddItem(req.ItemType, req.Item)
	if err != nil {
		return nil, err
	}
	return s.machineBundle(machine, s.cfg.StoragePrecompile, data)
}

// GenerateMachineDIDTx prepares a dual-signed addAttribute call describing a machine account.
func (s *RelayService) GenerateMachineDIDTx(ctx context.Context, req MachineDIDTxRequest) (*TxBundle, error) {
	eoa, err := signer.ParseAddress("eoaAddress", req.EOAAddress)
	if err != nil {
		return nil, err
	}
	machine, err := signer.ParseAddress("machineAddress", req.MachineAddress)
	if err != nil {
		return nil, err
	}
	data, err := s.didCalldata(ctx, req.Email, req.Tag, machine, eoa, req.Company)
	if err != nil {
		return nil, err
	}
	return s.machineBundle(machine, s.cfg.DIDPrecompile, data)
}

// ExecuteMachineTransaction submits a dual-signed machine bundle.
func (s *RelayService) ExecuteMachineTransaction(ctx context.Context, req MachineTxRequest) (res *ExecutionResult, err error) {
	defer s.observe(signer.ActionExecuteMachineTransaction, &err, func(ev *events.Event) {
		ev.MachineAddress = req.MachineAddress
		executionEvent(&res)(ev)
	})

	machine, err := signer.ParseAddress("machineAddress", req.MachineAddress)
	if err != nil {
		return nil, err
	}
	target, err := signer.ParseAddress("target", req.Target)
	if err != nil {
		return nil, err
	}
	cd, err := decodeHex("calldata", req.Calldata)
	if err != nil {
		return nil, err
	}
	ownerSig, err := decodeSignature("ownerSignature", req.OwnerSignature)
	if err != nil {
		return nil, err
	}
	machineSig, err := decodeSignature("signature", req.Signature)
	if err != nil {
		return nil, err
	}
	data, err := s.contract.PackExecuteMachineTransaction(machine, target, cd, new(big.Int).SetUint64(req.Nonce), ownerSig, machineSig)
	if err != nil {
		return nil, err
	}
	return s.submit(ctx, data, req.Nonce)
}

// ExecuteMachineBatch approves every machine-signed item under one fresh owner
// nonce and submits them as a single station call.
func (s *RelayService) ExecuteMachineBatch(ctx context.Context, items []MachineBatchItem) (res *ExecutionResult, err error) {
	defer s.observe(signer.ActionExecuteMachineBatchTransactions, &err, executionEvent(&res))

	if len(items) == 0 {
		return nil, apperrors.NewInvalidRequest("batch is empty")
	}
	call := station.BatchCall{
		MachineAddresses:  make([]common.Address, 0, len(items)),
		Targets:           make([]common.Address, 0, len(items)),
		Data:              make([][]byte, 0, len(items)),
		MachineNonces:     make([]*big.Int, 0, len(items)),
		MachineSignatures: make([][]byte, 0, len(items)),
	}
	for i, item := range items {
		machine, err := signer.ParseAddress(fmt.Sprintf("items[%d].machineAddress", i), item.MachineAddress)
		if err != nil {
			return nil, err
		}
		target, err := signer.ParseAddress(fmt.Sprintf("items[%d].target", i), item.Target)
		if err != nil {
			return nil, err
		}
		cd, err := decodeHex(fmt.Sprintf("items[%d].calldata", i), item.Calldata)
		if err != nil {
			return nil, err
		}
		sig, err := decodeSignature(fmt.Sprintf("items[%d].signature", i), item.Signature)
		if err != nil {
			return nil, err
		}
		call.MachineAddresses = append(call.MachineAddresses, machine)
		call.Targets = append(call.Targets, target)
		call.Data = append(call.Data, cd)
		call.MachineNonces = append(call.MachineNonces, new(big.Int).SetUint64(item.Nonce))
		call.MachineSignatures = append(call.MachineSignatures, sig)
	}

	nonce := s.nonces.Issue()
	call.Nonce = new(big.Int).SetUint64(nonce)
	payload, err := s.factoryPayload(signer.ActionExecuteMachineBatchTransactions, signer.Fields{
		"machineAddresses": call.MachineAddresses,
		"targets":          call.Targets,
		"data":             call.Data,
		"nonce":            nonce,
		"machineNonces":    call.MachineNonces,
	})
	if err != nil {
		return nil, err
	}
	auth, err := s.auth.AuthorizeOwnerOnly(payload)
	if err != nil {
		return nil, err
	}
	call.OwnerSignature = auth.OwnerSignature

	data, err := s.contract.PackExecuteMachineBatchTransactions(call)
	if err != nil {
		return nil, err
	}
	return s.submit(ctx, data, nonce)
}

// ExecuteMachineTransferBalance drains a machine account to recipient with both
// the machine's and the owner's approval.
func (s *RelayService) ExecuteMachineTransferBalance(ctx context.Context, req MachineTransferRequest) (res *ExecutionResult, err error) {
	defer s.observe(signer.ActionExecuteMachineTransferBalance, &err, func(ev *events.Event) {
		ev.MachineAddress = req.MachineAddress
		executionEvent(&res)(ev)
	})

	machine, err := signer.ParseAddress("machineAddress", req.MachineAddress)
	if err != nil {
		return nil, err
	}
	recipient, err := signer.ParseAddress("recipientAddress", req.RecipientAddress)
	if err != nil {
		return nil, err
	}
	nonce := s.nonces.Issue()
	ownerPayload, err := s.factoryPayload(signer.ActionExecuteMachineTransferBalance, signer.Fields{
		"machineAddress":   machine,
		"recipientAddress": recipient,
		"nonce":            nonce,
	})
	if err != nil {
		return nil, err
	}
	machinePayload, err := signer.BuildPayload(signer.ActionMachineTransferBalance, machine.Hex(), s.cfg.ChainID, signer.Fields{
		"recipientAddress": recipient,
		"nonce":            nonce,
	})
	if err != nil {
		return nil, err
	}
	auth, err := s.auth.AuthorizeDual(ownerPayload, machinePayload)
	if err != nil {
		return nil, err
	}
	data, err := s.contract.PackExecuteMachineTransferBalance(machine, recipient, new(big.Int).SetUint64(nonce), auth.OwnerSignature, auth.MachineSignature)
	if err != nil {
		return nil, err
	}
	return s.submit(ctx, data, nonce)
}

// SponsorMachineAction runs a machine storage or identity write end to end:
// encode, dual-sign and submit in one call.
func (s *RelayService) SponsorMachineAction(ctx context.Context, req SponsorRequest) (*SponsorResult, error) {
	var (
		bundle *TxBundle
		err    error
	)
	switch strings.ToLower(req.Action) {
	case SponsorStorage:
		bundle, err = s.GenerateMachineStorageTx(ctx, MachineStorageTxRequest{
			Email:          req.Email,
			MachineAddress: req.MachineAddress,
			ItemType:       req.ItemType,
			Item:           req.Item,
			Tag:            req.Tag,
		})
	case SponsorDID:
		bundle, err = s.GenerateMachineDIDTx(ctx, MachineDIDTxRequest{
			Email:          req.Email,
			EOAAddress:     req.EOAAddress,
			MachineAddress: req.MachineAddress,
			Company:        req.Company,
			Tag:            req.Tag,
		})
	default:
		return nil, apperrors.New(apperrors.ErrInvalidAction, fmt.Sprintf("unknown sponsored action %q", req.Action), nil)
	}
	if err != nil {
		return nil, err
	}
	exec, err := s.ExecuteMachineTransaction(ctx, MachineTxRequest{
		MachineAddress: bundle.MachineAddress,
		Target:         bundle.Target,
		Calldata:       bundle.Calldata,
		Nonce:          bundle.Nonce,
		OwnerSignature: bundle.OwnerSignature,
		Signature:      bundle.Signature,
	})
	if err != nil {
		return nil, err
	}
	return &SponsorResult{Bundle: bundle, Execution: exec}, nil
}

// Status reports the station and the owner balance that funds sponsorships.
func (s *RelayService) Status(ctx context.Context) (*StationStatus, error) {
	bal, err := s.submitter.OwnerBalance(ctx)
	if err != nil {
		return nil, err
	}
	return &StationStatus{
		Station:      s.cfg.Station.Hex(),
		Owner:        s.submitter.From().Hex(),
		ChainID:      s.cfg.ChainID,
		BalanceWei:   bal.String(),
		Balance:      decimal.NewFromBigInt(bal, -18).String(),
		MachineReady: s.auth.Machine() != nil,
	}, nil
}

func (s *RelayService) factoryPayload(kind signer.ActionKind, fields signer.Fields) (*signer.TypedPayload, error) {
	return signer.BuildPayload(kind, s.cfg.Station.Hex(), s.cfg.ChainID, fields)
}

func (s *RelayService) didCalldata(ctx context.Context, email, tag string, subject, owner common.Address, company string) (calldata.Calldata, error) {
	emailSig, err := s.getReal.EmailSignature(ctx, email, subject.Hex(), tag)
	if err != nil {
		return nil, err
	}
	doc := did.NewMachineDocument(subject.Hex(), emailSig, owner.Hex())
	s.log.Debug("did document built", "subject", subject.Hex(), "document", logger.Short(doc.Hex()))
	return calldata.EncodeAddAttribute(subject, company, doc.Hex())
}

func (s *RelayService) ownerBundle(target common.Address, data calldata.Calldata) (*TxBundle, error) {
	nonce := s.nonces.Issue()
	payload, err := s.factoryPayload(signer.ActionExecuteTransaction, signer.Fields{
		"target": target,
		"data":   []byte(data),
		"nonce":  nonce,
	})
	if err != nil {
		return nil, err
	}
	auth, err := s.auth.AuthorizeOwnerOnly(payload)
	if err != nil {
		return nil, err
	}
	return &TxBundle{
		Target:         target.Hex(),
		Calldata:       data.Hex(),
		Nonce:          nonce,
		OwnerSignature: hexutil.Encode(auth.OwnerSignature),
	}, nil
}

func (s *RelayService) machineBundle(machine, target common.Address, data calldata.Calldata) (*TxBundle, error) {
	nonce := s.nonces.Issue()
	ownerPayload, err := s.factoryPayload(signer.ActionExecuteMachineTransaction, signer.Fields{
		"machineAddress": machine,
		"target":         target,
		"data":           []byte(data),
		"nonce":          nonce,
	})
	if err != nil {
		return nil, err
	}
	machinePayload, err := signer.BuildPayload(signer.ActionMachineExecute, machine.Hex(), s.cfg.ChainID, signer.Fields{
		"target": target,
		"data":   []byte(data),
		"nonce":  nonce,
	})
	if err != nil {
		return nil, err
	}
	auth, err := s.auth.AuthorizeDual(ownerPayload, machinePayload)
	if err != nil {
		return nil, err
	}
	return &TxBundle{
		MachineAddress: machine.Hex(),
		Target:         target.Hex(),
		Calldata:       data.Hex(),
		Nonce:          nonce,
		OwnerSignature: hexutil.Encode(auth.OwnerSignature),
		Signature:      hexutil.Encode(auth.MachineSignature),
	}, nil
}

func (s *RelayService) submit(ctx context.Context, data []byte, nonce uint64) (*ExecutionResult, error) {
	receipt, err := s.submitter.Submit(ctx, s.cfg.Station, data, s.cfg.GasLimit)
	if err != nil {
		return nil, err
	}
	res := &ExecutionResult{
		Status:  "executed",
		TxHash:  receipt.TxHash.Hex(),
		GasUsed: receipt.GasUsed,
		Nonce:   nonce,
	}
	if receipt.BlockNumber != nil {
		res.BlockNumber = receipt.BlockNumber.Uint64()
	}
	return res, nil
}

// observe records the outcome of a submitting action in metrics and on the event stream.
func (s *RelayService) observe(kind signer.ActionKind, errp *error, fill func(ev *events.Event)) {
	status := events.StatusSucceeded
	if *errp != nil {
		status = events.StatusFailed
	}
	metrics.ActionsTotal.WithLabelValues(kind.String(), status).Inc()
	if s.events == nil {
		return
	}
	ev := events.Event{Action: kind.String(), Status: status, Timestamp: time.Now().UTC()}
	if *errp != nil {
		ev.Error = apperrors.Wrap(*errp).Message
	}
	if fill != nil {
		fill(&ev)
	}
	s.events.Publish(ev)
}

func executionEvent(res **ExecutionResult) func(ev *events.Event) {
	return func(ev *events.Event) {
		if *res != nil {
			ev.TxHash = (*res).TxHash
			ev.Nonce = (*res).Nonce
		}
	}
}

func decodeHex(field, s string) ([]byte, error) {
	b, err := hexutil.Decode(strings.TrimSpace(s))
	if err != nil {
		return nil, apperrors.New(apperrors.ErrInvalidRequest, field+" must be 0x-prefixed hex", err)
	}
	return b, nil
}

func decodeSignature(field, s string) ([]byte, error) {
	b, err := decodeHex(field, s)
	if err != nil {
		return nil, err
	}
	if len(b) != 65 {
		return nil, apperrors.NewInvalidRequest(fmt.Sprintf("%s must be 65 bytes, got %d", field, len(b)))
	}
	return b, nil
}
