package stationmigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating station_defs and station_results tables...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			// 1. Catalog
			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS station_defs (
					station_key VARCHAR(64) PRIMARY KEY,
					title TEXT NOT NULL DEFAULT '',
					max_score INTEGER NOT NULL CHECK (max_score > 0),
					order_index INTEGER NOT NULL DEFAULT 0
				);
			`); err != nil {
				return fmt.Errorf("failed to create station_defs table: %w", err)
			}

			// 2. Ledger. run_id must reference an existing run; the writer
			// creates the run and retries once when it does not.
			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS station_results (
					id BIGSERIAL PRIMARY KEY,
					run_id UUID NOT NULL REFERENCES game_runs(run_id) ON DELETE CASCADE,
					station_key VARCHAR(64) NOT NULL,
					mode VARCHAR(16) NOT NULL CHECK (mode IN ('web', 'in_person')),
					score INTEGER NOT NULL CHECK (score >= 0),
					key_part VARCHAR(16),
					meta JSONB NOT NULL DEFAULT '{}'::jsonb,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					CONSTRAINT uq_station_results_run_station UNIQUE (run_id, station_key)
				);
				CREATE INDEX IF NOT EXISTS idx_station_results_station_key ON station_results(station_key);
			`); err != nil {
				return fmt.Errorf("failed to create station_results table: %w", err)
			}

			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping station tables...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS station_results;`); err != nil {
				return fmt.Errorf("failed to drop station_results table: %w", err)
			}
			if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS station_defs;`); err != nil {
				return fmt.Errorf("failed to drop station_defs table: %w", err)
			}
			return nil
		})
	})
}
