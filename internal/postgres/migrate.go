package postgres

import (
	"context"
	"fmt"
)

// schema dibuat idempotent supaya aman dijalankan di setiap start.
// claimant_phone sengaja dibuat lewat ALTER terpisah: deployment lama
// bisa saja belum punya kolom ini (lihat orders.Repo).
var schema = []string{
	`CREATE TABLE IF NOT EXISTS orders (
		id                   BIGSERIAL PRIMARY KEY,
		job_kind             TEXT NOT NULL,
		city                 TEXT,
		origin               TEXT NOT NULL,
		destination          TEXT NOT NULL,
		comment              TEXT,
		distance_km          DOUBLE PRECISION,
		price_estimate       DOUBLE PRECISION,
		requester_phone      TEXT,
		status               TEXT NOT NULL DEFAULT 'OPEN',
		claimant_id          BIGINT,
		claimant_handle      TEXT,
		claimed_at           TIMESTAMPTZ,
		broadcast_chat_id    BIGINT,
		broadcast_message_id BIGINT,
		created_at           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT orders_claimant_matches_status
			CHECK ((status = 'CLAIMED') = (claimant_id IS NOT NULL))
	)`,
	`ALTER TABLE orders ADD COLUMN IF NOT EXISTS claimant_phone TEXT`,
	`CREATE INDEX IF NOT EXISTS idx_orders_status ON orders (status)`,
	`CREATE TABLE IF NOT EXISTS workers (
		worker_id  BIGINT PRIMARY KEY,
		handle     TEXT,
		first_name TEXT,
		last_name  TEXT,
		phone      TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS bot_settings (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// Migrate applies the schema.
func Migrate(ctx context.Context, db DBTX) error {
	for i, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i+1, err)
		}
	}
	return nil
}
