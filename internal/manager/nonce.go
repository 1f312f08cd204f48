package manager

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/GoPolymarket/gasgate/internal/pkg/logger"
	"github.com/ethereum/go-ethereum/common"
)

// Action nonce range accepted by the gas station.
const (
	MinActionNonce uint64 = 1
	MaxActionNonce uint64 = 1_000_000_000
)

// NoncePolicy issues the replay-protection value signed into every sponsored action.
// Values are random and untracked; uniqueness is enforced only by the
// contract's used-nonce set, so two concurrent requests may draw the same value.
type NoncePolicy struct {
	draw func(n uint64) uint64
}

func NewNoncePolicy() *NoncePolicy {
	return &NoncePolicy{draw: rand.Uint64N}
}

// NewSeededNoncePolicy is deterministic for a given seed. Draws are serialized
// so the policy stays safe to share between concurrent requests.
func NewSeededNoncePolicy(seed uint64) *NoncePolicy {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	var mu sync.Mutex
	return &NoncePolicy{draw: func(n uint64) uint64 {
		mu.Lock()
		defer mu.Unlock()
		return r.Uint64N(n)
	}}
}

// Issue returns a nonce uniformly drawn from [1, 1e9].
func (p *NoncePolicy) Issue() uint64 {
	return MinActionNonce + p.draw(MaxActionNonce-MinActionNonce+1)
}

// Next is the nonce a caller should use after n has been consumed by an execution.
func (p *NoncePolicy) Next(n uint64) uint64 {
	return n + 1
}

// NonceSource is the chain view needed to seed transaction nonces.
type NonceSource interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
}

// TxNonceManager hands out account transaction nonces optimistically so that
// concurrent submissions from the station owner do not collide in the mempool.
type TxNonceManager struct {
	source NonceSource

	txNonces map[common.Address]uint64
	txMu     sync.Mutex
}

func NewTxNonceManager(source NonceSource) *TxNonceManager {
	return &TxNonceManager{
		source:   source,
		txNonces: make(map[common.Address]uint64),
	}
}

// Acquire returns the nonce for the next transaction from addr and reserves it.
// If it's the first time, it fetches the pending nonce from chain.
func (m *TxNonceManager) Acquire(ctx context.Context, addr common.Address) (uint64, error) {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	nonce, ok := m.txNonces[addr]
	if !ok {
		fetched, err := m.source.PendingNonceAt(ctx, addr)
		if err != nil {
			return 0, fmt.Errorf("failed to fetch pending nonce: %w", err)
		}
		nonce = fetched
	}
	m.txNonces[addr] = nonce + 1
	return nonce, nil
}

// Reset forces a re-sync from the chain on the next Acquire.
// Call this after "nonce too low" or a broadcast that never reached the pool.
func (m *TxNonceManager) Reset(addr common.Address) {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	delete(m.txNonces, addr)
	logger.Info("Reset TX nonce", "address", addr.Hex())
}
