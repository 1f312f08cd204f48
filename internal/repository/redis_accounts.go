package repository

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/GoPolymarket/gasgate/internal/model"
)

// RedisAccountRepo keeps one hash per EOA: field = machine address, value = JSON record.
type RedisAccountRepo struct {
	client *RedisClient
	prefix string
}

func NewRedisAccountRepo(client *RedisClient) *RedisAccountRepo {
	return &RedisAccountRepo{client: client, prefix: "machine_accounts:"}
}

func (r *RedisAccountRepo) Save(ctx context.Context, account *model.MachineAccount) error {
	payload, err := json.Marshal(account)
	if err != nil {
		return err
	}
	return r.client.Client.HSetNX(ctx, r.prefix+account.EOAAddress, account.MachineAddress, payload).Err()
}

func (r *RedisAccountRepo) ListByEOA(ctx context.Context, eoa string) ([]*model.MachineAccount, error) {
	vals, err := r.client.Client.HGetAll(ctx, r.prefix+eoa).Result()
	if err != nil {
		return nil, err
	}
	out := make([]*model.MachineAccount, 0, len(vals))
	for _, raw := range vals {
		var acc model.MachineAccount
		if err := json.Unmarshal([]byte(raw), &acc); err != nil {
			continue
		}
		out = append(out, &acc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
