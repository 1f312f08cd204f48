package service

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// CodeReader is the chain view needed to tell a deployed machine account from an empty address.
type CodeReader interface {
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
}

// AccountProbe checks on-chain whether machine accounts carry code.
// Positive answers are cached for ttl; deployments are never undone.
type AccountProbe struct {
	reader   CodeReader
	mu       sync.Mutex
	cacheTTL time.Duration
	cache    map[string]cacheEntry
	timeout  time.Duration
	retries  int
}

type cacheEntry struct {
	deployed bool
	expires  time.Time
}

func NewAccountProbe(reader CodeReader, ttl time.Duration, timeout time.Duration, retries int) *AccountProbe {
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if retries < 0 {
		retries = 0
	}
	return &AccountProbe{
		reader:   reader,
		cacheTTL: ttl,
		cache:    make(map[string]cacheEntry),
		timeout:  timeout,
		retries:  retries,
	}
}

func (p *AccountProbe) Deployed(ctx context.Context, account common.Address) (bool, error) {
	if p.reader == nil {
		return false, fmt.Errorf("chain reader not configured")
	}
	key := strings.ToLower(account.Hex())
	if hit, ok := p.cacheGet(key); ok {
		return hit, nil
	}

	var lastErr error
	for attempt := 0; attempt <= p.retries; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, p.timeout)
		code, err := p.reader.CodeAt(attemptCtx, account, nil)
		cancel()
		if err != nil {
			lastErr = fmt.Errorf("code lookup failed: %w", err)
			if !shouldRetry(ctx, attempt, p.retries) {
				break
			}
			continue
		}
		deployed := len(code) > 0
		if deployed {
			p.cacheSet(key, true)
		}
		return deployed, nil
	}
	return false, lastErr
}

func (p *AccountProbe) cacheGet(key string) (bool, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	entry, ok := p.cache[key]
	if !ok {
		return false, false
	}
	if time.Now().After(entry.expires) {
		delete(p.cache, key)
		return false, false
	}
	return entry.deployed, true
}

func (p *AccountProbe) cacheSet(key string, deployed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cache[key] = cacheEntry{
		deployed: deployed,
		expires:  time.Now().Add(p.cacheTTL),
	}
}

func shouldRetry(ctx context.Context, attempt, max int) bool {
	if attempt >= max {
		return false
	}
	select {
	case <-ctx.Done():
		return false
	default:
	}
	time.Sleep(time.Duration(attempt+1) * 200 * time.Millisecond)
	return true
}
