package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// SwapStorage is the swap engine's own persistence backend: opaque JSON blobs
// keyed by (storage_key, id). It survives restarts and is never read by the
// reconciliation orchestrator.
type SwapStorage struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewSwapStorage(db *sql.DB, logger *zap.Logger) *SwapStorage {
	return &SwapStorage{db: db, logger: logger}
}

func (s *SwapStorage) Save(storageKey, id string, data []byte) error {
	if id == "" {
		return nil
	}
	if !json.Valid(data) {
		return fmt.Errorf("swap record %s/%s is not valid JSON", storageKey, id)
	}

	_, err := s.db.Exec(`
		INSERT INTO atomiq_swaps (storage_key, id, data)
		VALUES ($1, $2, $3)
		ON CONFLICT (storage_key, id) DO UPDATE SET data = EXCLUDED.data
	`, storageKey, id, data)
	if err != nil {
		return fmt.Errorf("failed to save swap record: %w", err)
	}
	return nil
}

func (s *SwapStorage) Get(storageKey, id string) (json.RawMessage, error) {
	var data []byte
	err := s.db.QueryRow(`
		SELECT data FROM atomiq_swaps WHERE storage_key = $1 AND id = $2
	`, storageKey, id).Scan(&data)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get swap record: %w", err)
	}
	return data, nil
}

func (s *SwapStorage) Remove(storageKey, id string) error {
	_, err := s.db.Exec(`
		DELETE FROM atomiq_swaps WHERE storage_key = $1 AND id = $2
	`, storageKey, id)
	if err != nil {
		return fmt.Errorf("failed to remove swap record: %w", err)
	}
	return nil
}
