// Package chain submits station calls as the owner account and interprets receipts.
package chain

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/GoPolymarket/gasgate/internal/manager"
	"github.com/GoPolymarket/gasgate/internal/pkg/apperrors"
	"github.com/GoPolymarket/gasgate/internal/pkg/logger"
	"github.com/GoPolymarket/gasgate/internal/pkg/metrics"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
)

const DefaultGasLimit uint64 = 900000

// Backend is the subset of *ethclient.Client the relay needs.
type Backend interface {
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

// TxSigner signs raw transactions for one account.
type TxSigner interface {
	Address() common.Address
	SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)
}

type Submitter struct {
	backend      Backend
	signer       TxSigner
	chainID      *big.Int
	nonces       *manager.TxNonceManager
	gasLimit     uint64
	pollInterval time.Duration
	methodName   func([]byte) string
	log          *slog.Logger
}

type Option func(*Submitter)

func WithGasLimit(limit uint64) Option {
	return func(s *Submitter) {
		if limit > 0 {
			s.gasLimit = limit
		}
	}
}

func WithPollInterval(d time.Duration) Option {
	return func(s *Submitter) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

// WithMethodNamer labels metrics and logs with the invoked contract method.
func WithMethodNamer(fn func([]byte) string) Option {
	return func(s *Submitter) {
		if fn != nil {
			s.methodName = fn
		}
	}
}

func NewSubmitter(backend Backend, signer TxSigner, chainID int64, opts ...Option) *Submitter {
	s := &Submitter{
		backend:      backend,
		signer:       signer,
		chainID:      big.NewInt(chainID),
		nonces:       manager.NewTxNonceManager(backend),
		gasLimit:     DefaultGasLimit,
		pollInterval: time.Second,
		methodName:   func([]byte) string { return "call" },
		log:          logger.With("component", "submitter"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Submitter) From() common.Address {
	return s.signer.Address()
}

func (s *Submitter) ChainID() *big.Int {
	return new(big.Int).Set(s.chainID)
}

// Submit signs {to, data} as the owner, broadcasts it and blocks until the
// network reports inclusion. gasLimit 0 means the configured default.
// No retries: every failure is returned to the caller.
func (s *Submitter) Submit(ctx context.Context, to common.Address, data []byte, gasLimit uint64) (*Receipt, error) {
	if gasLimit == 0 {
		gasLimit = s.gasLimit
	}
	method := s.methodName(data)
	from := s.signer.Address()

	gasPrice, err := s.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrTransactionRejected, "suggest gas price", errors.WithStack(err))
	}
	nonce, err := s.nonces.Acquire(ctx, from)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrTransactionRejected, "fetch owner nonce", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    big.NewInt(0),
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})
	signed, err := s.signer.SignTx(tx, s.chainID)
	if err != nil {
		s.nonces.Reset(from)
		return nil, apperrors.Wrap(asSigningFailure(err))
	}

	start := time.Now()
	if err := s.backend.SendTransaction(ctx, signed); err != nil {
		s.nonces.Reset(from)
		s.log.Warn("broadcast rejected", "method", method, "nonce", nonce, "error", err)
		return nil, apperrors.New(apperrors.ErrTransactionRejected, fmt.Sprintf("%s rejected by node", method), err)
	}
	s.log.Info("transaction sent", "method", method, "tx_hash", signed.Hash().Hex(), "nonce", nonce, "gas", gasLimit)

	raw, err := s.waitMined(ctx, signed.Hash())
	if err != nil {
		return nil, apperrors.New(apperrors.ErrUpstream,
			fmt.Sprintf("gave up waiting for receipt of %s", signed.Hash().Hex()), err)
	}
	metrics.SubmitSeconds.WithLabelValues(method).Observe(time.Since(start).Seconds())

	receipt := FromTypesReceipt(raw)
	if !receipt.Succeeded() {
		reason := RevertReason(ctx, s.backend, ethereum.CallMsg{
			From:     from,
			To:       &to,
			Gas:      gasLimit,
			GasPrice: gasPrice,
			Data:     data,
		}, raw.BlockNumber)
		s.log.Warn("transaction reverted", "method", method, "tx_hash", receipt.TxHash.Hex(), "reason", reason)
		return receipt, apperrors.NewReverted(
			fmt.Sprintf("%s reverted in tx %s", method, receipt.TxHash.Hex()), reason, nil)
	}
	return receipt, nil
}

func (s *Submitter) waitMined(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()
	for {
		receipt, err := s.backend.TransactionReceipt(ctx, hash)
		if err == nil && receipt != nil {
			return receipt, nil
		}
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			s.log.Debug("receipt lookup failed", "tx_hash", hash.Hex(), "error", err)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// OwnerBalance reports the native balance funding sponsorships.
func (s *Submitter) OwnerBalance(ctx context.Context) (*big.Int, error) {
	bal, err := s.backend.BalanceAt(ctx, s.signer.Address(), nil)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrUpstream, "fetch owner balance", err)
	}
	return bal, nil
}

func asSigningFailure(err error) error {
	if apperrors.Is(err, apperrors.ErrSigningFailed) {
		return err
	}
	return apperrors.New(apperrors.ErrSigningFailed, "sign transaction", err)
}
