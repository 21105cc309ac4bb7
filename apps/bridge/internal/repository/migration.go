package repository

import (
	"database/sql"
	"fmt"
)

// InitMigration initializes the database. In production, this would use a proper migration
// library like go-migrate
func InitMigration(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS bridge_orders (
			id UUID PRIMARY KEY,
			network VARCHAR(20) NOT NULL,
			source_asset VARCHAR(10) NOT NULL,
			destination_asset VARCHAR(30) NOT NULL,
			amount VARCHAR(80) NOT NULL,
			amount_type VARCHAR(10) NOT NULL,
			amount_source VARCHAR(80),
			amount_destination VARCHAR(80),
			receive_address VARCHAR(80) NOT NULL,
			wallet_address VARCHAR(80) NOT NULL,
			status VARCHAR(30) NOT NULL,
			atomiq_swap_id TEXT,
			deposit_address VARCHAR(90),
			source_tx_id TEXT,
			destination_tx_id TEXT,
			quote JSONB,
			expires_at TIMESTAMP,
			last_error TEXT,
			raw_state JSONB,
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMP NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_bridge_orders_wallet ON bridge_orders (wallet_address, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_bridge_orders_status ON bridge_orders (status)`,
		`CREATE TABLE IF NOT EXISTS bridge_actions (
			seq BIGSERIAL PRIMARY KEY,
			order_id UUID NOT NULL,
			action_type VARCHAR(20) NOT NULL,
			outcome VARCHAR(10) NOT NULL,
			detail JSONB,
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_bridge_actions_order ON bridge_actions (order_id, seq)`,
		`CREATE TABLE IF NOT EXISTS bridge_events (
			seq BIGSERIAL PRIMARY KEY,
			order_id UUID NOT NULL,
			kind VARCHAR(20) NOT NULL,
			from_status VARCHAR(30),
			to_status VARCHAR(30) NOT NULL,
			detail JSONB,
			publish_status VARCHAR(10) NOT NULL DEFAULT 'unsent',
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_bridge_events_order ON bridge_events (order_id, seq)`,
		`CREATE INDEX IF NOT EXISTS idx_bridge_events_publish ON bridge_events (publish_status, seq)`,
		`CREATE TABLE IF NOT EXISTS atomiq_swaps (
			storage_key TEXT NOT NULL,
			id TEXT NOT NULL,
			data JSONB NOT NULL,
			PRIMARY KEY (storage_key, id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_atomiq_swaps_storage_key ON atomiq_swaps (storage_key)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query %s: %w", query, err)
		}
	}

	return nil
}
