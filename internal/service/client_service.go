package service

import (
	"context"
	"strings"

	"github.com/GoPolymarket/gasgate/internal/model"
	"github.com/GoPolymarket/gasgate/internal/pkg/apperrors"
)

type ClientService struct {
	repo    ClientRepoCRUD
	manager *ClientManager
}

type ClientRepoCRUD interface {
	ClientRepo
	List(ctx context.Context, limit, offset int) ([]*model.Client, error)
	GetByID(ctx context.Context, id string) (*model.Client, error)
	Create(ctx context.Context, c *model.Client) error
	Update(ctx context.Context, c *model.Client) error
	Delete(ctx context.Context, id string) error
}

type ClientCreateRequest struct {
	ID     string                `json:"id" binding:"required"`
	Name   string                `json:"name"`
	APIKey string                `json:"api_key" binding:"required"`
	Quota  model.QuotaConfig     `json:"quota"`
	Rate   model.RateLimitConfig `json:"rate_limit"`
}

type ClientUpdateRequest struct {
	Name  *string                `json:"name"`
	Quota *model.QuotaConfig     `json:"quota"`
	Rate  *model.RateLimitConfig `json:"rate_limit"`
}

// ClientKeyRotateRequest replaces a client's gateway key. Guarded by the admin secret.
type ClientKeyRotateRequest struct {
	APIKey string `json:"api_key" binding:"required"`
}

func NewClientService(manager *ClientManager, repo ClientRepoCRUD) *ClientService {
	return &ClientService{
		repo:    repo,
		manager: manager,
	}
}

func (s *ClientService) List(ctx context.Context, limit, offset int) ([]*model.Client, error) {
	if s.repo != nil {
		return s.repo.List(ctx, limit, offset)
	}
	return s.manager.ListClients(), nil
}

func (s *ClientService) Get(ctx context.Context, id string) (*model.Client, error) {
	if s.repo != nil {
		return s.repo.GetByID(ctx, id)
	}
	c, ok := s.manager.GetClientByID(id)
	if !ok {
		return nil, errClientNotFound(id)
	}
	return c, nil
}

func (s *ClientService) Create(ctx context.Context, req ClientCreateRequest) (*model.Client, error) {
	c := &model.Client{
		ID:     strings.TrimSpace(req.ID),
		Name:   req.Name,
		ApiKey: strings.TrimSpace(req.APIKey),
		Quota:  req.Quota,
		Rate:   req.Rate,
	}
	if c.ID == "" || c.ApiKey == "" {
		return nil, apperrors.NewInvalidRequest("id and api_key are required")
	}
	if c.Quota.MaxDailyActions < 0 || c.Rate.QPS < 0 || c.Rate.Burst < 0 {
		return nil, apperrors.NewInvalidRequest("quota and rate limits must not be negative")
	}
	if s.repo != nil {
		if err := s.repo.Create(ctx, c); err != nil {
			return nil, err
		}
	}
	s.manager.RegisterClient(c)
	return c, nil
}

func (s *ClientService) Update(ctx context.Context, id string, req ClientUpdateRequest) (*model.Client, error) {
	c, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		c.Name = *req.Name
	}
	if req.Quota != nil {
		c.Quota = *req.Quota
	}
	if req.Rate != nil {
		c.Rate = *req.Rate
	}
	return s.save(ctx, c)
}

func (s *ClientService) RotateKey(ctx context.Context, id string, req ClientKeyRotateRequest) (*model.Client, error) {
	key := strings.TrimSpace(req.APIKey)
	if key == "" {
		return nil, apperrors.NewInvalidRequest("api_key is required")
	}
	c, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	c.ApiKey = key
	return s.save(ctx, c)
}

func (s *ClientService) Delete(ctx context.Context, id string) error {
	if s.repo != nil {
		if err := s.repo.Delete(ctx, id); err != nil {
			return err
		}
	}
	s.manager.RemoveClientByID(id)
	return nil
}

// load returns a copy so a failed save leaves the cached client untouched.
func (s *ClientService) load(ctx context.Context, id string) (*model.Client, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	cp := *current
	return &cp, nil
}

func (s *ClientService) save(ctx context.Context, c *model.Client) (*model.Client, error) {
	if s.repo != nil {
		if err := s.repo.Update(ctx, c); err != nil {
			return nil, err
		}
	}
	s.manager.ReplaceClient(c)
	return c, nil
}

func errClientNotFound(id string) error {
	return apperrors.New(apperrors.ErrNotFound, "client "+id+" not found", nil)
}
