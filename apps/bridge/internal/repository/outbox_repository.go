package repository

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"bridge/apps/bridge/internal/model"
)

// EventOutboxRepository hands unpublished bridge events to the Kafka
// publisher and tracks their publish status.
type EventOutboxRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewEventOutboxRepository(db *sql.DB, logger *zap.Logger) *EventOutboxRepository {
	return &EventOutboxRepository{db: db, logger: logger}
}

func (r *EventOutboxRepository) GetUnsentEventsForPublishing(limit int) ([]model.OutboxBridgeEvent, error) {
	// Use a transaction to ensure atomicity
	tx, err := r.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback() // Will be ignored if tx.Commit() succeeds

	// Select and lock unsent events for processing
	rows, err := tx.Query(`
		SELECT e.seq, e.order_id, e.kind, e.from_status, e.to_status, e.detail, e.created_at,
			o.wallet_address
		FROM bridge_events e
		JOIN bridge_orders o ON o.id = e.order_id
		WHERE e.publish_status = 'unsent'
		ORDER BY e.seq
		LIMIT $1
		FOR UPDATE OF e SKIP LOCKED
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []model.OutboxBridgeEvent
	for rows.Next() {
		var event model.OutboxBridgeEvent
		if err := rows.Scan(&event.Seq, &event.OrderID, &event.Kind, &event.FromStatus,
			&event.ToStatus, &event.Detail, &event.CreatedAt, &event.WalletAddress); err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	rows.Close()

	// Mark selected events as 'processing' to prevent other publishers from
	// picking them up
	for _, event := range events {
		if _, err := tx.Exec(`
			UPDATE bridge_events SET publish_status = 'processing'
			WHERE seq = $1 AND publish_status = 'unsent'
		`, event.Seq); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return events, nil
}

func (r *EventOutboxRepository) MarkEventAsSent(seq int64) error {
	_, err := r.db.Exec(`
		UPDATE bridge_events SET publish_status = 'sent' WHERE seq = $1
	`, seq)
	if err != nil {
		return fmt.Errorf("failed to mark event as sent: %w", err)
	}
	return nil
}

func (r *EventOutboxRepository) MarkEventAsFailed(seq int64) error {
	_, err := r.db.Exec(`
		UPDATE bridge_events SET publish_status = 'unsent'
		WHERE seq = $1 AND publish_status = 'processing'
	`, seq)
	if err != nil {
		return fmt.Errorf("failed to mark event as failed: %w", err)
	}
	return nil
}
