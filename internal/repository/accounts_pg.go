package repository

import (
	"context"

	"github.com/GoPolymarket/gasgate/internal/model"
	"github.com/jmoiron/sqlx"
)

type PostgresAccountRepo struct {
	db *sqlx.DB
}

func NewPostgresAccountRepo(db *sqlx.DB) *PostgresAccountRepo {
	repo := &PostgresAccountRepo{db: db}
	_ = repo.ensureSchema(context.Background())
	return repo
}

func (r *PostgresAccountRepo) Save(ctx context.Context, account *model.MachineAccount) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO machine_accounts (eoa_address, machine_address, tx_hash, client_id, created_at)
		VALUES (:eoa_address, :machine_address, :tx_hash, :client_id, :created_at)
		ON CONFLICT (machine_address) DO NOTHING
	`, account)
	return err
}

func (r *PostgresAccountRepo) ListByEOA(ctx context.Context, eoa string) ([]*model.MachineAccount, error) {
	var out []*model.MachineAccount
	err := r.db.SelectContext(ctx, &out, `
		SELECT eoa_address, machine_address, tx_hash, client_id, created_at
		FROM machine_accounts
		WHERE eoa_address = $1
		ORDER BY created_at DESC
	`, eoa)
	return out, err
}

func (r *PostgresAccountRepo) ensureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS machine_accounts (
			machine_address TEXT PRIMARY KEY,
			eoa_address TEXT NOT NULL,
			tx_hash TEXT,
			client_id TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	if err != nil {
		return err
	}
	_, _ = r.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_machine_accounts_eoa ON machine_accounts(eoa_address)`)
	return nil
}
