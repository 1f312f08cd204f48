package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const usageKeyTTL = 48 * time.Hour

type RedisUsageRepo struct {
	client *RedisClient
	prefix string
}

func NewRedisUsageRepo(client *RedisClient) *RedisUsageRepo {
	return &RedisUsageRepo{
		client: client,
		prefix: "usage",
	}
}

// GetDailyUsage 读取当日赞助次数与累计 gas
func (r *RedisUsageRepo) GetDailyUsage(ctx context.Context, clientID string) (int, uint64, error) {
	vals, err := r.client.Client.HGetAll(ctx, r.makeKey(clientID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, 0, err
	}
	actions, _ := strconv.Atoi(vals["actions"])
	gasUsed, _ := strconv.ParseUint(vals["gas_used"], 10, 64)
	return actions, gasUsed, nil
}

func (r *RedisUsageRepo) AddDailyUsage(ctx context.Context, clientID string, actions int, gasUsed uint64) error {
	key := r.makeKey(clientID)
	pipe := r.client.Client.TxPipeline()
	if actions != 0 {
		pipe.HIncrBy(ctx, key, "actions", int64(actions))
	}
	if gasUsed != 0 {
		pipe.HIncrBy(ctx, key, "gas_used", int64(gasUsed))
	}
	// 跨日后自然过期
	pipe.Expire(ctx, key, usageKeyTTL)
	_, err := pipe.Exec(ctx)
	return err
}

func (r *RedisUsageRepo) makeKey(clientID string) string {
	date := time.Now().UTC().Format("2006-01-02")
	return fmt.Sprintf("%s:%s:%s", r.prefix, clientID, date)
}
