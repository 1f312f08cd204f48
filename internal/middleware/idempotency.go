package middleware

import (
	"sync"
	"time"

	"github.com/GoPolymarket/gasgate/internal/pkg/apperrors"
	"github.com/gin-gonic/gin"
)

const HeaderIdempotencyKey = "X-Idempotency-Key"

type IdempotencyRecord struct {
	Status     int
	Body       []byte
	CreatedAt  time.Time
	Processing bool // 正在处理中，用于防止并发竞争
}

// IdempotencyScope names one retryable request. The same header value sent by
// another client or to another sponsored route is a different request.
type IdempotencyScope struct {
	ClientID string
	Route    string // "POST /v1/tx/execute"
	Key      string
}

func (s IdempotencyScope) String() string {
	return s.ClientID + "|" + s.Route + "|" + s.Key
}

type IdempotencyStore interface {
	// GetOrLock returns (record, true) if exists; (nil,false) if newly locked by caller.
	GetOrLock(scope IdempotencyScope) (*IdempotencyRecord, bool)
	Save(scope IdempotencyScope, status int, body []byte)
	Unlock(scope IdempotencyScope)
}

// InMemIdempotencyStore 用于单实例部署, 多实例请用 Redis 或 Postgres
type InMemIdempotencyStore struct {
	mu      sync.RWMutex
	records map[IdempotencyScope]*IdempotencyRecord
}

func NewInMemIdempotencyStore() *InMemIdempotencyStore {
	return &InMemIdempotencyStore{
		records: make(map[IdempotencyScope]*IdempotencyRecord),
	}
}

// GetOrLock 尝试获取记录。如果不存在，则锁定并返回 nil（表示你是第一个）。
// 如果正在处理，返回 Processing=true。如果已完成，返回完整记录。
func (s *InMemIdempotencyStore) GetOrLock(key IdempotencyScope) (*IdempotencyRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.records[key]; ok {
		return rec, true // 命中缓存或正在处理
	}

	// 锁定该 Key
	s.records[key] = &IdempotencyRecord{
		Processing: true,
		CreatedAt:  time.Now(),
	}
	return nil, false // 未命中，你获得了锁
}

func (s *InMemIdempotencyStore) Save(key IdempotencyScope, status int, body []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[key] = &IdempotencyRecord{
		Status:     status,
		Body:       body,
		CreatedAt:  time.Now(),
		Processing: false,
	}
}

func (s *InMemIdempotencyStore) Unlock(key IdempotencyScope) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
}

// IdempotencyMiddleware 幂等性中间件
func IdempotencyMiddleware(store IdempotencyStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1. 检查 Header
		idemKey := c.GetHeader(HeaderIdempotencyKey)
		if idemKey == "" {
			c.Next()
			return
		}

		// 2. 获取客户端 (确保在 Auth 之后)
		client, ok := CurrentClient(c)
		if !ok {
			c.Next()
			return
		}

		scope := IdempotencyScope{ClientID: client.ID, Route: routeOf(c), Key: idemKey}

		// 3. 检查存储
		record, hit := store.GetOrLock(scope)
		if hit {
			if record.Processing {
				// 正在处理中（并发请求）: 同一 nonce 不能重复上链
				_ = c.Error(apperrors.New(apperrors.ErrConflict, "request with this idempotency key is in progress", nil))
				c.Abort()
				return
			}
			// 已处理完成：直接返回缓存的响应
			// 注意：这里需要设置正确的 Content-Type
			c.Data(record.Status, "application/json; charset=utf-8", record.Body)
			c.Abort()
			return
		}

		// 4. 捕获响应
		// 我们使用 Gin 的 ResponseWriter 钩子来捕获输出
		w := &responseBodyWriter{body: nil, ResponseWriter: c.Writer}
		c.Writer = w

		c.Next()

		// 5. 保存结果
		// 5xx (含节点拒绝的 502) 与经 c.Error 上报的失败允许重试, 解锁但不保存
		if c.Writer.Status() < 500 && len(c.Errors) == 0 {
			store.Save(scope, c.Writer.Status(), w.body)
		} else {
			// 如果是服务器内部错误，通常允许重试，所以解锁但不保存结果
			store.Unlock(scope)
		}
	}
}

func routeOf(c *gin.Context) string {
	path := c.FullPath()
	if path == "" {
		path = c.Request.URL.Path
	}
	return c.Request.Method + " " + path
}

type responseBodyWriter struct {
	gin.ResponseWriter
	body []byte
}

func (w *responseBodyWriter) Write(b []byte) (int, error) {
	// 捕获 Body
	// 中继响应很小, 整体缓存
	w.body = append(w.body, b...)
	return w.ResponseWriter.Write(b)
}
