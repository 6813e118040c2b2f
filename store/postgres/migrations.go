package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the paymarket store (PostgreSQL).
var Migrations = migrate.NewGroup("paymarket")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_paymarket_state",
			Version: "20250301000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS paymarket_state (
    id               TEXT PRIMARY KEY,
    address          TEXT NOT NULL,
    admin            TEXT NOT NULL,
    paused           BOOLEAN NOT NULL DEFAULT FALSE,
    fee_basis_points INT NOT NULL DEFAULT 0 CHECK (fee_basis_points BETWEEN 0 AND 10000),
    fee_recipient    TEXT NOT NULL,
    updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS paymarket_state`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_paymarket_tokens",
			Version: "20250301000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS paymarket_tokens (
    address    TEXT PRIMARY KEY,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS paymarket_tokens`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_paymarket_vendors",
			Version: "20250301000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS paymarket_vendors (
    id         TEXT PRIMARY KEY,
    address    TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_paymarket_vendors_address ON paymarket_vendors (address);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS paymarket_vendors`)
				return err
			},
		},
	)
}
