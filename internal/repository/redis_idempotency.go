package repository

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/GoPolymarket/gasgate/internal/middleware"
	"github.com/GoPolymarket/gasgate/internal/pkg/logger"
)

type RedisIdempotencyStore struct {
	client *RedisClient
	ttl    time.Duration
	prefix string
}

func NewRedisIdempotencyStore(client *RedisClient, ttl time.Duration) *RedisIdempotencyStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisIdempotencyStore{
		client: client,
		ttl:    ttl,
		prefix: "idem:",
	}
}

func (s *RedisIdempotencyStore) key(scope middleware.IdempotencyScope) string {
	return s.prefix + scope.String()
}

func (s *RedisIdempotencyStore) GetOrLock(scope middleware.IdempotencyScope) (*middleware.IdempotencyRecord, bool) {
	ctx := context.Background()
	key := s.key(scope)
	lock := encodeIdemRecord(middleware.IdempotencyRecord{
		CreatedAt:  time.Now().UTC(),
		Processing: true,
	})
	acquired, err := s.client.Client.SetNX(ctx, key, lock, s.ttl).Result()
	if err != nil {
		// Redis 不可用时放行, 由链上 nonce 兜底防重放
		logger.Warn("idempotency lock failed", "client_id", scope.ClientID, "route", scope.Route, "error", err)
		return nil, false
	}
	if acquired {
		return nil, false
	}
	raw, err := s.client.Client.Get(ctx, key).Result()
	if err != nil {
		return nil, false
	}
	rec, err := decodeIdemRecord(raw)
	if err != nil {
		return nil, false
	}
	return rec, true
}

func (s *RedisIdempotencyStore) Save(scope middleware.IdempotencyScope, status int, body []byte) {
	payload := encodeIdemRecord(middleware.IdempotencyRecord{
		Status:    status,
		Body:      body,
		CreatedAt: time.Now().UTC(),
	})
	if err := s.client.Client.Set(context.Background(), s.key(scope), payload, s.ttl).Err(); err != nil {
		logger.Warn("idempotency save failed", "client_id", scope.ClientID, "route", scope.Route, "error", err)
	}
}

func (s *RedisIdempotencyStore) Unlock(scope middleware.IdempotencyScope) {
	_ = s.client.Client.Del(context.Background(), s.key(scope)).Err()
}

type idemWire struct {
	Status     int    `json:"status"`
	Body       string `json:"body"`
	CreatedAt  int64  `json:"created_at"`
	Processing bool   `json:"processing"`
}

func encodeIdemRecord(rec middleware.IdempotencyRecord) string {
	data, _ := json.Marshal(idemWire{
		Status:     rec.Status,
		Body:       base64.StdEncoding.EncodeToString(rec.Body),
		CreatedAt:  rec.CreatedAt.Unix(),
		Processing: rec.Processing,
	})
	return string(data)
}

func decodeIdemRecord(raw string) (*middleware.IdempotencyRecord, error) {
	var wire idemWire
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		return nil, err
	}
	body, _ := base64.StdEncoding.DecodeString(wire.Body)
	return &middleware.IdempotencyRecord{
		Status:     wire.Status,
		Body:       body,
		CreatedAt:  time.Unix(wire.CreatedAt, 0).UTC(),
		Processing: wire.Processing,
	}, nil
}
