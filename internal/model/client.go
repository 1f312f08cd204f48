package model

// QuotaConfig 定义客户端维度的每日赞助额度
type QuotaConfig struct {
	MaxDailyActions int `json:"max_daily_actions"` // 单日最多赞助的链上操作数, 0 表示不限
}

// RateLimitConfig 定义客户端的限流规则
type RateLimitConfig struct {
	QPS   float64 `json:"qps"`   // 每秒查询数
	Burst int     `json:"burst"` // 突发桶大小
}

// Client 代表一个接入方 (设备后端, 运营工具)
type Client struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	ApiKey string          `json:"api_key"` // 网关颁发给客户端的 Access Key
	Quota  QuotaConfig     `json:"quota"`
	Rate   RateLimitConfig `json:"rate_limit"`
}
