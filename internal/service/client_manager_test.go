package service

import (
	"context"
	"testing"

	"github.com/GoPolymarket/gasgate/internal/config"
	"github.com/GoPolymarket/gasgate/internal/model"
	"github.com/GoPolymarket/gasgate/internal/pkg/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

type stubClientRepo struct {
	clients map[string]*model.Client
	calls   int
}

func (r *stubClientRepo) GetByApiKey(_ context.Context, apiKey string) (*model.Client, error) {
	r.calls++
	if c, ok := r.clients[apiKey]; ok {
		return c, nil
	}
	return nil, errClientNotFound(apiKey)
}

func TestClientManagerFromConfig(t *testing.T) {
	cfg := &config.Config{
		Quota: config.QuotaConfig{MaxDailyActions: 50},
		Clients: []config.ClientConfig{
			{ID: "a", APIKey: "sk-a"},
			{ID: "b", APIKey: "sk-b", QPS: 2, Burst: 4, MaxDailyActions: 5},
		},
	}
	cm := NewClientManager(cfg, nil)

	a, ok := cm.GetClientByApiKey("sk-a")
	require.True(t, ok)
	assert.Equal(t, 50, a.Quota.MaxDailyActions)
	assert.Equal(t, float64(defaultClientQPS), a.Rate.QPS)

	b, ok := cm.GetClientByApiKey("sk-b")
	require.True(t, ok)
	assert.Equal(t, 5, b.Quota.MaxDailyActions)
	assert.Equal(t, rate.Limit(2), cm.GetLimiterForClient("b").Limit())
	assert.Nil(t, cm.DefaultClient())
	assert.Len(t, cm.ListClients(), 2)
}

func TestClientManagerDefaultClient(t *testing.T) {
	cm := NewClientManager(&config.Config{Auth: config.AuthConfig{APIKey: "sk-main"}}, nil)
	def := cm.DefaultClient()
	require.NotNil(t, def)
	assert.Equal(t, "sk-main", def.ApiKey)

	cm.RemoveClientByID(def.ID)
	_, ok := cm.GetClientByID(def.ID)
	assert.False(t, ok)
	assert.Nil(t, cm.GetLimiterForClient(def.ID))
}

func TestClientManagerRepoFallbackCaches(t *testing.T) {
	repo := &stubClientRepo{clients: map[string]*model.Client{
		"sk-db": {ID: "db", ApiKey: "sk-db"},
	}}
	cm := NewClientManager(&config.Config{}, repo)

	c, ok := cm.GetClientByApiKeyWithFallback(context.Background(), "sk-db")
	require.True(t, ok)
	assert.Equal(t, "db", c.ID)
	_, ok = cm.GetClientByApiKeyWithFallback(context.Background(), "sk-db")
	assert.True(t, ok)
	assert.Equal(t, 1, repo.calls)
	assert.Equal(t, rate.Inf, cm.GetLimiterForClient("db").Limit())

	_, ok = cm.GetClientByApiKeyWithFallback(context.Background(), "sk-missing")
	assert.False(t, ok)
}

func TestClientServiceWithoutRepo(t *testing.T) {
	cm := NewClientManager(&config.Config{}, nil)
	svc := NewClientService(cm, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, ClientCreateRequest{ID: " ", APIKey: "k"})
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidRequest))

	c, err := svc.Create(ctx, ClientCreateRequest{ID: "dev", APIKey: "sk-dev", Quota: model.QuotaConfig{MaxDailyActions: 3}})
	require.NoError(t, err)
	assert.Equal(t, "dev", c.ID)

	name := "Device backend"
	updated, err := svc.Update(ctx, "dev", ClientUpdateRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, name, updated.Name)
	assert.Equal(t, 3, updated.Quota.MaxDailyActions)

	_, err = svc.RotateKey(ctx, "dev", ClientKeyRotateRequest{APIKey: "sk-dev-2"})
	require.NoError(t, err)
	_, ok := cm.GetClientByApiKey("sk-dev")
	assert.False(t, ok)
	_, ok = cm.GetClientByApiKey("sk-dev-2")
	assert.True(t, ok)

	require.NoError(t, svc.Delete(ctx, "dev"))
	_, err = svc.Get(ctx, "dev")
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}
