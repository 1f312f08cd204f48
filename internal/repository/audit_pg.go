package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/GoPolymarket/gasgate/internal/model"
	"github.com/GoPolymarket/gasgate/internal/pkg/logger"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// PostgresAuditRepo stores one row per audited request. The relay outcome
// (action, tx hash, machine account, nonce) lives in typed columns so operators
// can trace a sponsorship by its transaction.
type PostgresAuditRepo struct {
	db *sqlx.DB
}

const auditColumns = `id, client_id, method, path, ip, user_agent, request_body, request_header,
	status_code, response_body, latency_ms, action, tx_hash, machine_address, nonce, context, created_at`

type auditRow struct {
	ID             string          `db:"id"`
	ClientID       string          `db:"client_id"`
	Method         string          `db:"method"`
	Path           string          `db:"path"`
	IP             string          `db:"ip"`
	UserAgent      string          `db:"user_agent"`
	RequestBody    string          `db:"request_body"`
	RequestHeader  string          `db:"request_header"`
	StatusCode     int             `db:"status_code"`
	ResponseBody   string          `db:"response_body"`
	LatencyMs      int64           `db:"latency_ms"`
	Action         string          `db:"action"`
	TxHash         string          `db:"tx_hash"`
	MachineAddress string          `db:"machine_address"`
	Nonce          decimal.Decimal `db:"nonce"`
	Context        []byte          `db:"context"`
	CreatedAt      time.Time       `db:"created_at"`
}

func newAuditRow(e *model.AuditLog) auditRow {
	ctxJSON, _ := json.Marshal(e.Context)
	return auditRow{
		ID:             e.ID,
		ClientID:       e.ClientID,
		Method:         e.Method,
		Path:           e.Path,
		IP:             e.IP,
		UserAgent:      e.UserAgent,
		RequestBody:    e.RequestBody,
		RequestHeader:  e.RequestHeader,
		StatusCode:     e.StatusCode,
		ResponseBody:   e.ResponseBody,
		LatencyMs:      e.LatencyMs,
		Action:         e.Action,
		TxHash:         strings.ToLower(e.TxHash),
		MachineAddress: e.MachineAddress,
		Nonce:          decimal.NewFromUint64(e.Nonce),
		Context:        ctxJSON,
		CreatedAt:      e.CreatedAt,
	}
}

func (r auditRow) toDomain() *model.AuditLog {
	entry := &model.AuditLog{
		ID:             r.ID,
		ClientID:       r.ClientID,
		Method:         r.Method,
		Path:           r.Path,
		IP:             r.IP,
		UserAgent:      r.UserAgent,
		RequestBody:    r.RequestBody,
		RequestHeader:  r.RequestHeader,
		StatusCode:     r.StatusCode,
		ResponseBody:   r.ResponseBody,
		LatencyMs:      r.LatencyMs,
		Action:         r.Action,
		TxHash:         r.TxHash,
		MachineAddress: r.MachineAddress,
		CreatedAt:      r.CreatedAt,
		Context:        map[string]interface{}{},
	}
	if n := r.Nonce.BigInt(); n.IsUint64() {
		entry.Nonce = n.Uint64()
	}
	if len(r.Context) > 0 {
		var extra map[string]interface{}
		if err := json.Unmarshal(r.Context, &extra); err == nil && extra != nil {
			entry.Context = extra
		}
	}
	return entry
}

func NewPostgresAuditRepo(db *sqlx.DB) *PostgresAuditRepo {
	repo := &PostgresAuditRepo{db: db}
	if err := repo.ensureSchema(context.Background()); err != nil {
		logger.Warn("audit_logs schema", "error", err)
	}
	return repo
}

func (r *PostgresAuditRepo) Insert(ctx context.Context, entry *model.AuditLog) error {
	if entry == nil {
		return nil
	}
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO audit_logs (`+auditColumns+`) VALUES (
			:id, :client_id, :method, :path, :ip, :user_agent, :request_body, :request_header,
			:status_code, :response_body, :latency_ms, :action, :tx_hash, :machine_address, :nonce, :context, :created_at
		)
		ON CONFLICT (id) DO NOTHING
	`, newAuditRow(entry))
	return errors.Wrap(err, "insert audit log")
}

func (r *PostgresAuditRepo) List(ctx context.Context, filter model.AuditFilter) ([]*model.AuditLog, error) {
	query, args := auditListQuery(filter)
	var rows []auditRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "list audit logs")
	}
	records := make([]*model.AuditLog, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.toDomain())
	}
	return records, nil
}

func auditListQuery(filter model.AuditFilter) (string, []interface{}) {
	limit := filter.Limit
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	var clauses []string
	var args []interface{}
	add := func(cond string, v interface{}) {
		args = append(args, v)
		clauses = append(clauses, fmt.Sprintf(cond, len(args)))
	}
	if filter.ClientID != "" {
		add("client_id = $%d", filter.ClientID)
	}
	if filter.Action != "" {
		add("action = $%d", filter.Action)
	}
	if filter.TxHash != "" {
		add("tx_hash = $%d", strings.ToLower(filter.TxHash))
	}
	if filter.From != nil {
		add("created_at >= $%d", *filter.From)
	}
	if filter.To != nil {
		add("created_at <= $%d", *filter.To)
	}

	query := "SELECT " + auditColumns + " FROM audit_logs"
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))
	return query, args
}

func (r *PostgresAuditRepo) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS audit_logs (
			id TEXT PRIMARY KEY,
			client_id TEXT NOT NULL DEFAULT '',
			method TEXT NOT NULL DEFAULT '',
			path TEXT NOT NULL DEFAULT '',
			ip TEXT NOT NULL DEFAULT '',
			user_agent TEXT NOT NULL DEFAULT '',
			request_body TEXT NOT NULL DEFAULT '',
			request_header TEXT NOT NULL DEFAULT '',
			status_code INTEGER NOT NULL DEFAULT 0,
			response_body TEXT NOT NULL DEFAULT '',
			latency_ms BIGINT NOT NULL DEFAULT 0,
			action TEXT NOT NULL DEFAULT '',
			tx_hash TEXT NOT NULL DEFAULT '',
			machine_address TEXT NOT NULL DEFAULT '',
			nonce NUMERIC(20,0) NOT NULL DEFAULT 0,
			context JSONB,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_logs_client ON audit_logs(client_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_logs_action ON audit_logs(action, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_logs_tx ON audit_logs(tx_hash) WHERE tx_hash <> ''`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "ensure audit_logs")
		}
	}
	return nil
}

func (r *PostgresAuditRepo) Cleanup(ctx context.Context, olderThan time.Duration) error {
	if olderThan <= 0 {
		return nil
	}
	cutoff := time.Now().UTC().Add(-olderThan)
	_, err := r.db.ExecContext(ctx, `DELETE FROM audit_logs WHERE created_at < $1`, cutoff)
	return err
}
