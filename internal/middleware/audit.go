package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"time"

	"github.com/GoPolymarket/gasgate/internal/model"
	"github.com/GoPolymarket/gasgate/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const ContextAuditLog = "audit_log"

// bodyLogWriter 包装 ResponseWriter 以捕获响应体
type bodyLogWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w bodyLogWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func AuditMiddleware(auditSvc *service.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		reqID := uuid.New().String()
		c.Header("X-Request-ID", reqID)

		// 1. 读取请求体 (并写回以便后续 Bind 使用)
		var reqBodyBytes []byte
		if c.Request.Body != nil {
			reqBodyBytes, _ = io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewBuffer(reqBodyBytes))
		}

		// 2. 初始化审计对象并存入 Context
		// 这样业务层 (Service/Handler) 可以往 Context 字段里塞额外信息
		auditEntry := &model.AuditLog{
			ID:        reqID,
			Method:    c.Request.Method,
			Path:      c.Request.URL.Path,
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
			CreatedAt: start,
			Context:   make(map[string]interface{}),
		}
		c.Set(ContextAuditLog, auditEntry)

		// 3. 包装 ResponseWriter 以捕获响应
		blw := &bodyLogWriter{body: bytes.NewBufferString(""), ResponseWriter: c.Writer}
		c.Writer = blw

		// === 执行业务逻辑 ===
		c.Next()

		// 4. 填充剩余信息 (在请求结束后)
		// 尝试获取 ClientID
		if client, ok := CurrentClient(c); ok {
			auditEntry.ClientID = client.ID
		}

		auditEntry.RequestBody = redactAuditBody(c.Request.URL.Path, reqBodyBytes)
		auditEntry.StatusCode = c.Writer.Status()
		auditEntry.ResponseBody = redactAuditBody(c.Request.URL.Path, []byte(blw.body.String()))
		auditEntry.LatencyMs = time.Since(start).Milliseconds()

		// 5. 异步发送日志
		auditSvc.Log(auditEntry)
	}
}

func auditEntry(c *gin.Context) (*model.AuditLog, bool) {
	val, exists := c.Get(ContextAuditLog)
	if !exists {
		return nil, false
	}
	entry, ok := val.(*model.AuditLog)
	return entry, ok
}

// AddAuditContext 辅助函数：允许 Handler/Service 向审计日志添加业务上下文
func AddAuditContext(c *gin.Context, key string, value interface{}) {
	if entry, ok := auditEntry(c); ok {
		entry.Context[key] = value
	}
}

// SetAuditAction tags the audit row with the sponsored action.
func SetAuditAction(c *gin.Context, action string) {
	if entry, ok := auditEntry(c); ok {
		entry.Action = action
	}
}

// SetAuditTx records the signed nonce and, once submitted, the transaction hash.
func SetAuditTx(c *gin.Context, txHash string, nonce uint64) {
	if entry, ok := auditEntry(c); ok {
		if txHash != "" {
			entry.TxHash = txHash
		}
		if nonce != 0 {
			entry.Nonce = nonce
		}
	}
}

// SetAuditMachine records the machine account a request acted on.
func SetAuditMachine(c *gin.Context, machineAddress string) {
	if entry, ok := auditEntry(c); ok && machineAddress != "" {
		entry.MachineAddress = machineAddress
	}
}

func redactAuditBody(path string, body []byte) string {
	if len(body) == 0 {
		return ""
	}
	if !isSensitivePath(path) {
		return string(body)
	}
	redacted, ok := redactJSON(body)
	if !ok {
		return "[redacted]"
	}
	return string(redacted)
}

func isSensitivePath(path string) bool {
	switch {
	case strings.HasPrefix(path, "/v1/admin/clients"):
		return true
	case strings.HasPrefix(path, "/v1/tx"):
		return true
	case strings.HasPrefix(path, "/v1/machine"):
		return true
	case strings.HasPrefix(path, "/v1/station"):
		return true
	case strings.HasPrefix(path, "/v1/storage"), strings.HasPrefix(path, "/v1/did"):
		return true
	default:
		return false
	}
}

func redactJSON(body []byte) ([]byte, bool) {
	var data interface{}
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, false
	}
	redactValue(&data)
	out, err := json.Marshal(data)
	if err != nil {
		return nil, false
	}
	return out, true
}

func redactValue(v *interface{}) {
	switch raw := (*v).(type) {
	case map[string]interface{}:
		for key, val := range raw {
			if isSensitiveKey(key) {
				raw[key] = "***"
				continue
			}
			vv := val
			redactValue(&vv)
			raw[key] = vv
		}
	case []interface{}:
		for i, val := range raw {
			vv := val
			redactValue(&vv)
			raw[i] = vv
		}
	}
}

func isSensitiveKey(key string) bool {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "api_key",
		"apikey",
		"private_key",
		"privatekey",
		"signature",
		"ownersignature",
		"machinesignature",
		"machinesignatures",
		"email",
		"emailsignature",
		"sig",
		"admin_key",
		"admin_secret_key":
		return true
	default:
		return false
	}
}
