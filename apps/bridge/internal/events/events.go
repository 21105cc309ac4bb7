package events

import (
	"encoding/json"
	"time"
)

// BridgeOrderEvent is the Kafka payload for one bridge order status event.
type BridgeOrderEvent struct {
	Seq           int64           `json:"seq"`
	OrderID       string          `json:"order_id"`
	Kind          string          `json:"kind"`
	FromStatus    *string         `json:"from_status"`
	ToStatus      string          `json:"to_status"`
	WalletAddress string          `json:"wallet_address"`
	Detail        json.RawMessage `json:"detail"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Timestamp     time.Time       `json:"timestamp"`
}
