package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/GoPolymarket/gasgate/internal/middleware"
	"github.com/GoPolymarket/gasgate/internal/pkg/logger"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// PostgresIdempotencyStore keeps one row per (client, route, key) so a retried
// sponsorship replays its own response and never another endpoint's.
type PostgresIdempotencyStore struct {
	db *sqlx.DB
}

type sponsorRequestRow struct {
	StatusCode   int          `db:"status_code"`
	ResponseBody []byte       `db:"response_body"`
	Processing   bool         `db:"processing"`
	CreatedAt    time.Time    `db:"created_at"`
	CompletedAt  sql.NullTime `db:"completed_at"`
}

func (r sponsorRequestRow) toRecord() *middleware.IdempotencyRecord {
	rec := &middleware.IdempotencyRecord{
		Status:     r.StatusCode,
		Body:       r.ResponseBody,
		CreatedAt:  r.CreatedAt,
		Processing: r.Processing,
	}
	if r.CompletedAt.Valid {
		rec.CreatedAt = r.CompletedAt.Time
	}
	return rec
}

func NewPostgresIdempotencyStore(db *sqlx.DB) *PostgresIdempotencyStore {
	store := &PostgresIdempotencyStore{db: db}
	if err := store.ensureSchema(context.Background()); err != nil {
		logger.Warn("sponsor_requests schema", "error", err)
	}
	return store
}

func (s *PostgresIdempotencyStore) GetOrLock(scope middleware.IdempotencyScope) (*middleware.IdempotencyRecord, bool) {
	ctx := context.Background()
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO sponsor_requests (client_id, route, idem_key, processing, created_at)
		VALUES ($1, $2, $3, true, $4)
		ON CONFLICT (client_id, route, idem_key) DO NOTHING
	`, scope.ClientID, scope.Route, scope.Key, time.Now().UTC())
	if err != nil {
		// 数据库不可用时放行, 由链上 nonce 兜底防重放
		logger.Warn("idempotency lock failed", "client_id", scope.ClientID, "route", scope.Route, "error", err)
		return nil, false
	}
	if rows, _ := result.RowsAffected(); rows > 0 {
		return nil, false
	}

	var row sponsorRequestRow
	err = s.db.GetContext(ctx, &row, `
		SELECT status_code, response_body, processing, created_at, completed_at
		FROM sponsor_requests
		WHERE client_id = $1 AND route = $2 AND idem_key = $3
	`, scope.ClientID, scope.Route, scope.Key)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			logger.Warn("idempotency lookup failed", "client_id", scope.ClientID, "route", scope.Route, "error", err)
		}
		return nil, false
	}
	return row.toRecord(), true
}

func (s *PostgresIdempotencyStore) Save(scope middleware.IdempotencyScope, status int, body []byte) {
	_, err := s.db.ExecContext(context.Background(), `
		UPDATE sponsor_requests
		SET status_code = $4, response_body = $5, processing = false, completed_at = $6
		WHERE client_id = $1 AND route = $2 AND idem_key = $3
	`, scope.ClientID, scope.Route, scope.Key, status, body, time.Now().UTC())
	if err != nil {
		logger.Warn("idempotency save failed", "client_id", scope.ClientID, "route", scope.Route, "error", err)
	}
}

func (s *PostgresIdempotencyStore) Unlock(scope middleware.IdempotencyScope) {
	_, _ = s.db.ExecContext(context.Background(),
		`DELETE FROM sponsor_requests WHERE client_id = $1 AND route = $2 AND idem_key = $3`,
		scope.ClientID, scope.Route, scope.Key)
}

func (s *PostgresIdempotencyStore) ensureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS sponsor_requests (
			client_id TEXT NOT NULL,
			route TEXT NOT NULL,
			idem_key TEXT NOT NULL,
			status_code INTEGER NOT NULL DEFAULT 0,
			response_body BYTEA,
			processing BOOLEAN NOT NULL DEFAULT true,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			completed_at TIMESTAMPTZ,
			PRIMARY KEY (client_id, route, idem_key)
		)
	`)
	if err != nil {
		return errors.Wrap(err, "create sponsor_requests")
	}
	_, err = s.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_sponsor_requests_created ON sponsor_requests(created_at)`)
	return errors.Wrap(err, "index sponsor_requests")
}

// Cleanup drops finished and abandoned locks older than olderThan.
func (s *PostgresIdempotencyStore) Cleanup(ctx context.Context, olderThan time.Duration) error {
	if olderThan <= 0 {
		return nil
	}
	cutoff := time.Now().UTC().Add(-olderThan)
	_, err := s.db.ExecContext(ctx, `DELETE FROM sponsor_requests WHERE created_at < $1`, cutoff)
	return err
}
