package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

type PostgresUsageRepo struct {
	db *sqlx.DB
}

func NewPostgresUsageRepo(db *sqlx.DB) *PostgresUsageRepo {
	repo := &PostgresUsageRepo{db: db}
	_ = repo.ensureSchema(context.Background())
	return repo
}

// GetDailyUsage 获取当日赞助次数与 gas 用量
func (r *PostgresUsageRepo) GetDailyUsage(ctx context.Context, clientID string) (int, uint64, error) {
	today := time.Now().UTC().Format("2006-01-02")
	var actions int
	var gasUsed int64
	err := r.db.QueryRowxContext(ctx,
		`SELECT actions, gas_used FROM sponsor_daily_usage WHERE client_id = $1 AND date = $2`,
		clientID, today).Scan(&actions, &gasUsed)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, 0, nil
	}
	if err != nil {
		return 0, 0, err
	}
	return actions, uint64(gasUsed), nil
}

// AddDailyUsage 原子累加
func (r *PostgresUsageRepo) AddDailyUsage(ctx context.Context, clientID string, actions int, gasUsed uint64) error {
	today := time.Now().UTC().Format("2006-01-02")
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sponsor_daily_usage (client_id, date, actions, gas_used)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (client_id, date)
		DO UPDATE SET actions = sponsor_daily_usage.actions + $3,
		              gas_used = sponsor_daily_usage.gas_used + $4
	`, clientID, today, actions, int64(gasUsed))
	return err
}

func (r *PostgresUsageRepo) ensureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS sponsor_daily_usage (
			client_id TEXT NOT NULL,
			date DATE NOT NULL,
			actions INTEGER NOT NULL DEFAULT 0,
			gas_used BIGINT NOT NULL DEFAULT 0,
			PRIMARY KEY (client_id, date)
		)
	`)
	return err
}

func (r *PostgresUsageRepo) Cleanup(ctx context.Context, olderThan time.Duration) error {
	if olderThan <= 0 {
		return nil
	}
	cutoff := time.Now().UTC().Add(-olderThan)
	_, err := r.db.ExecContext(ctx, `DELETE FROM sponsor_daily_usage WHERE date < $1`, cutoff.Format("2006-01-02"))
	return err
}
