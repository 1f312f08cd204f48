package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/GoPolymarket/gasgate/internal/model"
	"github.com/GoPolymarket/gasgate/internal/pkg/apperrors"
	"github.com/jmoiron/sqlx"
)

type PostgresClientRepo struct {
	db *sqlx.DB
}

func NewPostgresClientRepo(db *sqlx.DB) *PostgresClientRepo {
	repo := &PostgresClientRepo{db: db}
	_ = repo.ensureSchema(context.Background())
	return repo
}

// DB Model 用于处理 JSONB 序列化
type clientDB struct {
	ID            string `db:"id"`
	Name          string `db:"name"`
	ApiKey        string `db:"api_key"`
	QuotaJSON     []byte `db:"quota_config"`
	RateLimitJSON []byte `db:"rate_limit_config"`
}

const clientColumns = `id, name, api_key, quota_config, rate_limit_config`

func (r *PostgresClientRepo) GetByApiKey(ctx context.Context, apiKey string) (*model.Client, error) {
	return r.getOne(ctx, `SELECT `+clientColumns+` FROM clients WHERE api_key = $1 LIMIT 1`, apiKey)
}

func (r *PostgresClientRepo) GetByID(ctx context.Context, id string) (*model.Client, error) {
	return r.getOne(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = $1 LIMIT 1`, id)
}

func (r *PostgresClientRepo) getOne(ctx context.Context, query string, arg string) (*model.Client, error) {
	var cd clientDB
	if err := r.db.GetContext(ctx, &cd, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.New(apperrors.ErrNotFound, "client not found", nil)
		}
		return nil, err
	}
	return cd.toDomain()
}

func (cd *clientDB) toDomain() (*model.Client, error) {
	c := &model.Client{
		ID:     cd.ID,
		Name:   cd.Name,
		ApiKey: cd.ApiKey,
	}
	if len(cd.QuotaJSON) > 0 {
		if err := json.Unmarshal(cd.QuotaJSON, &c.Quota); err != nil {
			return nil, err
		}
	}
	if len(cd.RateLimitJSON) > 0 {
		if err := json.Unmarshal(cd.RateLimitJSON, &c.Rate); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (r *PostgresClientRepo) Create(ctx context.Context, c *model.Client) error {
	quota, _ := json.Marshal(c.Quota)
	rate, _ := json.Marshal(c.Rate)
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO clients (id, name, api_key, quota_config, rate_limit_config, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
	`, c.ID, c.Name, c.ApiKey, quota, rate, now)
	return err
}

func (r *PostgresClientRepo) List(ctx context.Context, limit, offset int) ([]*model.Client, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := r.db.QueryxContext(ctx,
		`SELECT `+clientColumns+` FROM clients ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	results := make([]*model.Client, 0, limit)
	for rows.Next() {
		var cd clientDB
		if err := rows.StructScan(&cd); err != nil {
			return nil, err
		}
		c, err := cd.toDomain()
		if err != nil {
			return nil, err
		}
		results = append(results, c)
	}
	return results, rows.Err()
}

func (r *PostgresClientRepo) Update(ctx context.Context, c *model.Client) error {
	quota, _ := json.Marshal(c.Quota)
	rate, _ := json.Marshal(c.Rate)
	res, err := r.db.ExecContext(ctx, `
		UPDATE clients
		SET name = $2, api_key = $3, quota_config = $4, rate_limit_config = $5, updated_at = $6
		WHERE id = $1
	`, c.ID, c.Name, c.ApiKey, quota, rate, time.Now().UTC())
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.New(apperrors.ErrNotFound, "client "+c.ID+" not found", nil)
	}
	return nil
}

func (r *PostgresClientRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM clients WHERE id = $1`, id)
	return err
}

func (r *PostgresClientRepo) ensureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS clients (
			id TEXT PRIMARY KEY,
			name TEXT,
			api_key TEXT UNIQUE,
			quota_config JSONB,
			rate_limit_config JSONB,
			created_at TIMESTAMPTZ,
			updated_at TIMESTAMPTZ
		)
	`)
	return err
}
