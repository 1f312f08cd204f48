package service

import (
	"context"
	"sync"

	"github.com/GoPolymarket/gasgate/internal/config"
	"github.com/GoPolymarket/gasgate/internal/model"
	"golang.org/x/time/rate"
)

const (
	defaultClientQPS   = 10
	defaultClientBurst = 20
)

// ClientManager 管理接入方信息以及限流器
type ClientManager struct {
	mu            sync.RWMutex
	clients       map[string]*model.Client // Key: Gateway ApiKey
	limiters      map[string]*rate.Limiter // Key: ClientID
	defaultClient *model.Client
	repo          ClientRepo
}

type ClientRepo interface {
	GetByApiKey(ctx context.Context, apiKey string) (*model.Client, error)
}

func NewClientManager(cfg *config.Config, repo ClientRepo) *ClientManager {
	cm := &ClientManager{
		clients:  make(map[string]*model.Client),
		limiters: make(map[string]*rate.Limiter),
		repo:     repo,
	}

	// 配置化客户端 (优先)
	if len(cfg.Clients) > 0 {
		for _, cc := range cfg.Clients {
			cm.RegisterClient(&model.Client{
				ID:     cc.ID,
				Name:   cc.Name,
				ApiKey: cc.APIKey,
				Quota: model.QuotaConfig{
					MaxDailyActions: chooseInt(cfg.Quota.MaxDailyActions, cc.MaxDailyActions),
				},
				Rate: model.RateLimitConfig{
					QPS:   chooseFloat(defaultClientQPS, cc.QPS),
					Burst: chooseInt(defaultClientBurst, cc.Burst),
				},
			})
		}
		return cm
	}

	// 单客户端模式
	if cfg.Auth.APIKey != "" {
		def := &model.Client{
			ID:     "default-client",
			Name:   "Default Client",
			ApiKey: cfg.Auth.APIKey,
			Quota:  model.QuotaConfig{MaxDailyActions: cfg.Quota.MaxDailyActions},
			Rate:   model.RateLimitConfig{QPS: defaultClientQPS, Burst: defaultClientBurst},
		}
		cm.RegisterClient(def)
		cm.defaultClient = def
	}

	return cm
}

func (cm *ClientManager) RegisterClient(c *model.Client) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if c == nil {
		return
	}
	cm.clients[c.ApiKey] = c

	// 配置为0时不限流
	limit := rate.Limit(c.Rate.QPS)
	if limit == 0 {
		limit = rate.Inf
	}
	burst := c.Rate.Burst
	if burst == 0 {
		burst = 1
	}
	cm.limiters[c.ID] = rate.NewLimiter(limit, burst)
}

func (cm *ClientManager) ReplaceClient(c *model.Client) {
	cm.RemoveClientByID(c.ID)
	cm.RegisterClient(c)
}

func (cm *ClientManager) RemoveClientByID(id string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	for key, c := range cm.clients {
		if c != nil && c.ID == id {
			delete(cm.clients, key)
			delete(cm.limiters, c.ID)
		}
	}
}

func (cm *ClientManager) GetClientByID(id string) (*model.Client, bool) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	for _, c := range cm.clients {
		if c != nil && c.ID == id {
			return c, true
		}
	}
	return nil, false
}

func (cm *ClientManager) ListClients() []*model.Client {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	results := make([]*model.Client, 0, len(cm.clients))
	seen := make(map[string]struct{})
	for _, c := range cm.clients {
		if c == nil {
			continue
		}
		if _, ok := seen[c.ID]; ok {
			continue
		}
		seen[c.ID] = struct{}{}
		results = append(results, c)
	}
	return results
}

func (cm *ClientManager) GetClientByApiKey(apiKey string) (*model.Client, bool) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	c, ok := cm.clients[apiKey]
	return c, ok
}

// GetClientByApiKeyWithFallback consults the repository on a cache miss and caches the hit.
func (cm *ClientManager) GetClientByApiKeyWithFallback(ctx context.Context, apiKey string) (*model.Client, bool) {
	if c, ok := cm.GetClientByApiKey(apiKey); ok {
		return c, true
	}
	if cm.repo == nil {
		return nil, false
	}
	c, err := cm.repo.GetByApiKey(ctx, apiKey)
	if err != nil || c == nil {
		return nil, false
	}
	cm.RegisterClient(c)
	return c, true
}

func (cm *ClientManager) DefaultClient() *model.Client {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.defaultClient
}

// GetLimiterForClient 获取客户端的限流器
func (cm *ClientManager) GetLimiterForClient(clientID string) *rate.Limiter {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.limiters[clientID]
}

func chooseFloat(base, override float64) float64 {
	if override > 0 {
		return override
	}
	return base
}

func chooseInt(base, override int) int {
	if override > 0 {
		return override
	}
	return base
}
