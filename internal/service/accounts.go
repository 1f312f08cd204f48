package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/GoPolymarket/gasgate/internal/model"
	"github.com/GoPolymarket/gasgate/internal/pkg/apperrors"
	"github.com/GoPolymarket/gasgate/internal/pkg/logger"
	"github.com/GoPolymarket/gasgate/internal/signer"
)

// AccountRepo persists EOA → machine account links.
type AccountRepo interface {
	Save(ctx context.Context, account *model.MachineAccount) error
	ListByEOA(ctx context.Context, eoa string) ([]*model.MachineAccount, error)
}

// MachineAccountView is a registry entry annotated with its on-chain state.
type MachineAccountView struct {
	*model.MachineAccount
	Deployed *bool `json:"deployed,omitempty"`
}

// AccountRegistry remembers which machine accounts the relay provisioned.
// Addresses are stored checksummed.
type AccountRegistry struct {
	repo  AccountRepo
	probe *AccountProbe
}

func NewAccountRegistry(repo AccountRepo, probe *AccountProbe) *AccountRegistry {
	if repo == nil {
		repo = NewInMemAccountStore()
	}
	return &AccountRegistry{repo: repo, probe: probe}
}

// Record stores a successful provisioning. Failures are logged, not returned:
// the account exists on-chain regardless.
func (r *AccountRegistry) Record(ctx context.Context, clientID string, res *ProvisionResult) {
	if res == nil {
		return
	}
	entry := &model.MachineAccount{
		EOAAddress:     res.EOAAddress,
		MachineAddress: res.MachineAddress,
		TxHash:         res.TxHash,
		ClientID:       clientID,
		CreatedAt:      time.Now().UTC(),
	}
	if err := r.repo.Save(ctx, entry); err != nil {
		logger.Warn("machine account not recorded", "eoa", res.EOAAddress, "machine", res.MachineAddress, "error", err)
	}
}

func (r *AccountRegistry) Lookup(ctx context.Context, eoa string) ([]*MachineAccountView, error) {
	addr, err := signer.ParseAddress("eoa", eoa)
	if err != nil {
		return nil, err
	}
	accounts, err := r.repo.ListByEOA(ctx, addr.Hex())
	if err != nil {
		return nil, apperrors.New(apperrors.ErrInternal, "load machine accounts", err)
	}
	if len(accounts) == 0 {
		return nil, apperrors.New(apperrors.ErrNotFound, "no machine account recorded for "+addr.Hex(), nil)
	}
	views := make([]*MachineAccountView, 0, len(accounts))
	for _, acc := range accounts {
		view := &MachineAccountView{MachineAccount: acc}
		if r.probe != nil {
			machine, err := signer.ParseAddress("machineAddress", acc.MachineAddress)
			if err == nil {
				if deployed, err := r.probe.Deployed(ctx, machine); err == nil {
					view.Deployed = &deployed
				}
			}
		}
		views = append(views, view)
	}
	return views, nil
}

// InMemAccountStore 用于单实例部署，多实例请用 Redis 或 Postgres
type InMemAccountStore struct {
	mu       sync.RWMutex
	accounts map[string][]*model.MachineAccount // Key: EOA
}

func NewInMemAccountStore() *InMemAccountStore {
	return &InMemAccountStore{accounts: make(map[string][]*model.MachineAccount)}
}

func (s *InMemAccountStore) Save(_ context.Context, account *model.MachineAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.accounts[account.EOAAddress] {
		if existing.MachineAddress == account.MachineAddress {
			return nil
		}
	}
	s.accounts[account.EOAAddress] = append(s.accounts[account.EOAAddress], account)
	return nil
}

func (s *InMemAccountStore) ListByEOA(_ context.Context, eoa string) ([]*model.MachineAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := append([]*model.MachineAccount(nil), s.accounts[eoa]...)
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
