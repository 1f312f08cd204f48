package chain

import (
	"context"
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// fakeBackend mines every accepted transaction immediately with the configured status.
type fakeBackend struct {
	mu sync.Mutex

	pendingNonce uint64
	gasPrice     *big.Int
	balance      *big.Int
	status       uint64
	logs         []*types.Log

	sendErr  error
	priceErr error
	callErr  error
	// receiptMisses is how many lookups return NotFound before the receipt appears.
	receiptMisses int

	sent     []*types.Transaction
	receipts map[common.Hash]*types.Receipt
	calls    []ethereum.CallMsg
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		pendingNonce: 7,
		gasPrice:     big.NewInt(1_000_000_000),
		balance:      big.NewInt(0),
		status:       types.ReceiptStatusSuccessful,
		receipts:     make(map[common.Hash]*types.Receipt),
	}
}

func (f *fakeBackend) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	if f.priceErr != nil {
		return nil, f.priceErr
	}
	return new(big.Int).Set(f.gasPrice), nil
}

func (f *fakeBackend) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pendingNonce, nil
}

func (f *fakeBackend) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, tx)
	f.pendingNonce = tx.Nonce() + 1
	f.receipts[tx.Hash()] = &types.Receipt{
		TxHash:      tx.Hash(),
		Status:      f.status,
		GasUsed:     21000,
		BlockNumber: big.NewInt(100 + int64(len(f.sent))),
		Logs:        f.logs,
	}
	return nil
}

func (f *fakeBackend) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.receiptMisses > 0 {
		f.receiptMisses--
		return nil, ethereum.NotFound
	}
	r, ok := f.receipts[hash]
	if !ok {
		return nil, ethereum.NotFound
	}
	return r, nil
}

func (f *fakeBackend) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
	if f.callErr != nil {
		return nil, f.callErr
	}
	return nil, nil
}

func (f *fakeBackend) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	if f.balance == nil {
		return nil, errors.New("balance unavailable")
	}
	return new(big.Int).Set(f.balance), nil
}

// revertError mimics the JSON-RPC error returned for a reverted eth_call.
type revertError struct {
	msg  string
	data interface{}
}

func (e *revertError) Error() string          { return e.msg }
func (e *revertError) ErrorCode() int         { return 3 }
func (e *revertError) ErrorData() interface{} { return e.data }
