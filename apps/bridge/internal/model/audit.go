package model

import (
	"encoding/json"
	"time"
)

type ActionType string

const (
	ActionCreateOrder ActionType = "CREATE_ORDER"
	ActionManualRetry ActionType = "MANUAL_RETRY"
	ActionAutoClaim   ActionType = "AUTO_CLAIM"
	ActionAutoRefund  ActionType = "AUTO_REFUND"
	ActionPollOrder   ActionType = "POLL_ORDER"
)

type ActionOutcome string

const (
	OutcomeSuccess ActionOutcome = "SUCCESS"
	OutcomeFailed  ActionOutcome = "FAILED"
)

// BridgeAction is an append-only audit record of an attempted operation.
type BridgeAction struct {
	Seq       int64           `db:"seq" json:"seq"`
	OrderID   string          `db:"order_id" json:"orderId"`
	Type      ActionType      `db:"action_type" json:"type"`
	Outcome   ActionOutcome   `db:"outcome" json:"outcome"`
	Detail    json.RawMessage `db:"detail" json:"detail"`
	CreatedAt time.Time       `db:"created_at" json:"createdAt"`
}

type EventKind string

const (
	EventOrderCreated    EventKind = "ORDER_CREATED"
	EventOrderReconciled EventKind = "ORDER_RECONCILED"
)

// BridgeEvent is an append-only audit record of an observed status transition.
// It is written by the orchestrator and only read by the outbox publisher.
type BridgeEvent struct {
	Seq           int64           `db:"seq" json:"seq"`
	OrderID       string          `db:"order_id" json:"orderId"`
	Kind          EventKind       `db:"kind" json:"kind"`
	FromStatus    *OrderStatus    `db:"from_status" json:"fromStatus"`
	ToStatus      OrderStatus     `db:"to_status" json:"toStatus"`
	Detail        json.RawMessage `db:"detail" json:"detail"`
	PublishStatus string          `db:"publish_status" json:"-"`
	CreatedAt     time.Time       `db:"created_at" json:"createdAt"`
}

// OutboxBridgeEvent is a bridge event joined with the owning order's wallet
// address, as handed to the Kafka publisher.
type OutboxBridgeEvent struct {
	BridgeEvent
	WalletAddress string `db:"wallet_address"`
}
