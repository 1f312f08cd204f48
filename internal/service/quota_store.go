package service

import (
	"context"
	"sync"
	"time"
)

// UsageStore 跟踪客户端的当日用量（内存版）
type UsageStore struct {
	mu      sync.RWMutex
	actions map[string]int    // Key: ClientID:YYYY-MM-DD
	gasUsed map[string]uint64 // Key: ClientID:YYYY-MM-DD
	now     func() time.Time
}

func NewUsageStore() *UsageStore {
	return &UsageStore{
		actions: make(map[string]int),
		gasUsed: make(map[string]uint64),
		now:     time.Now,
	}
}

func (s *UsageStore) GetDailyUsage(_ context.Context, clientID string) (int, uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key := s.makeKey(clientID)
	return s.actions[key], s.gasUsed[key], nil
}

func (s *UsageStore) AddDailyUsage(_ context.Context, clientID string, actions int, gasUsed uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := s.makeKey(clientID)
	s.actions[key] += actions
	s.gasUsed[key] += gasUsed
	return nil
}

func (s *UsageStore) makeKey(clientID string) string {
	return clientID + ":" + UsageDay(s.now())
}
