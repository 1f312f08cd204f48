package manager

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueWithinRange(t *testing.T) {
	p := NewNoncePolicy()
	for i := 0; i < 10000; i++ {
		n := p.Issue()
		assert.GreaterOrEqual(t, n, MinActionNonce)
		assert.LessOrEqual(t, n, MaxActionNonce)
	}
}

func TestIssueBoundaries(t *testing.T) {
	low := &NoncePolicy{draw: func(uint64) uint64 { return 0 }}
	assert.Equal(t, uint64(1), low.Issue())

	high := &NoncePolicy{draw: func(n uint64) uint64 { return n - 1 }}
	assert.Equal(t, uint64(1_000_000_000), high.Issue())
}

func TestNext(t *testing.T) {
	p := NewNoncePolicy()
	assert.Equal(t, uint64(43), p.Next(42))
	assert.Equal(t, MaxActionNonce+1, p.Next(MaxActionNonce))
}

func TestSeededPolicyIsReproducible(t *testing.T) {
	a := NewSeededNoncePolicy(7)
	b := NewSeededNoncePolicy(7)
	for i := 0; i < 5; i++ {
		assert.Equal(t, a.Issue(), b.Issue())
	}
}

func TestSeededPolicyConcurrentIssue(t *testing.T) {
	p := NewSeededNoncePolicy(7)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				n := p.Issue()
				assert.True(t, n >= MinActionNonce && n <= MaxActionNonce)
			}
		}()
	}
	wg.Wait()
}

// Concurrent requests may draw the same nonce. That is expected: nothing here
// tracks issued values and the contract rejects the second use.
func TestConcurrentIssueMayCollide(t *testing.T) {
	p := &NoncePolicy{draw: func(uint64) uint64 { return 41 }}

	var wg sync.WaitGroup
	got := make([]uint64, 2)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i] = p.Issue()
		}(i)
	}
	wg.Wait()
	assert.Equal(t, got[0], got[1])
}

type stubSource struct {
	mu    sync.Mutex
	nonce uint64
	calls int
	err   error
}

func (s *stubSource) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.nonce, s.err
}

func TestTxNonceManagerAcquire(t *testing.T) {
	src := &stubSource{nonce: 5}
	m := NewTxNonceManager(src)
	addr := common.HexToAddress("0x01")

	n, err := m.Acquire(context.Background(), addr)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), n)

	n, err = m.Acquire(context.Background(), addr)
	require.NoError(t, err)
	assert.Equal(t, uint64(6), n)
	assert.Equal(t, 1, src.calls)

	src.nonce = 9
	m.Reset(addr)
	n, err = m.Acquire(context.Background(), addr)
	require.NoError(t, err)
	assert.Equal(t, uint64(9), n)
	assert.Equal(t, 2, src.calls)
}

func TestTxNonceManagerConcurrentAcquireIsUnique(t *testing.T) {
	m := NewTxNonceManager(&stubSource{nonce: 100})
	addr := common.HexToAddress("0x02")

	var mu sync.Mutex
	seen := make(map[uint64]bool)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := m.Acquire(context.Background(), addr)
			assert.NoError(t, err)
			mu.Lock()
			seen[n] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Len(t, seen, 50)
}

func TestTxNonceManagerSourceError(t *testing.T) {
	m := NewTxNonceManager(&stubSource{err: errors.New("rpc down")})
	_, err := m.Acquire(context.Background(), common.HexToAddress("0x03"))
	assert.Error(t, err)
}
