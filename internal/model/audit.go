package model

import (
	"strings"
	"time"
)

// AuditLog 代表一次完整的操作审计记录
type AuditLog struct {
	ID        string `json:"id"`         // 唯一请求 ID (UUID)
	ClientID  string `json:"client_id"`  // 客户端 ID
	Method    string `json:"method"`     // HTTP 方法
	Path      string `json:"path"`       // 请求路径
	IP        string `json:"ip"`         // 客户端 IP
	UserAgent string `json:"user_agent"` // 客户端 UA

	// 请求详情
	RequestBody   string `json:"request_body"`   // 请求体 (签名与私钥已脱敏)
	RequestHeader string `json:"request_header"` // 关键 Header

	// 响应详情
	StatusCode   int    `json:"status_code"`   // HTTP 状态码
	ResponseBody string `json:"response_body"` // 响应体
	LatencyMs    int64  `json:"latency_ms"`    // 耗时 (毫秒)

	// 中继结果: 赞助动作, 上链交易, 涉及的机器账户与签名 nonce
	Action         string `json:"action,omitempty"`
	TxHash         string `json:"tx_hash,omitempty"`
	MachineAddress string `json:"machine_address,omitempty"`
	Nonce          uint64 `json:"nonce,omitempty"`

	// 其余上下文: 错误码, 批量大小等
	Context map[string]interface{} `json:"context"`

	CreatedAt time.Time `json:"created_at"`
}

// AuditFilter selects audit rows. Zero fields match everything.
type AuditFilter struct {
	ClientID string
	Action   string
	TxHash   string
	From     *time.Time
	To       *time.Time
	Limit    int
}

// Matches applies the filter to one row.
func (f AuditFilter) Matches(e *AuditLog) bool {
	if e == nil {
		return false
	}
	if f.ClientID != "" && e.ClientID != f.ClientID {
		return false
	}
	if f.Action != "" && e.Action != f.Action {
		return false
	}
	if f.TxHash != "" && !strings.EqualFold(e.TxHash, f.TxHash) {
		return false
	}
	if f.From != nil && e.CreatedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && e.CreatedAt.After(*f.To) {
		return false
	}
	return true
}
