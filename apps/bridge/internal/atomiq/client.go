// Package atomiq is the adapter for the external swap-execution engine. The
// orchestrator only sees the narrow Client contract; everything engine-shaped
// (wire schema, execution plans, raw states) stays inside this package.
package atomiq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"bridge/apps/bridge/internal/model"
)

// EngineError is a swap-engine call failure, mapped to HTTP 502 by the API
// layer.
type EngineError struct {
	Op  string
	Err error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("atomiq %s: %v", e.Op, e.Err)
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

func engineErrorf(op, format string, args ...any) *EngineError {
	return &EngineError{Op: op, Err: fmt.Errorf(format, args...)}
}

// CreateSwapInput describes the incoming swap to open with the engine.
// Amount is always in satoshis, for both exactIn and exactOut.
type CreateSwapInput struct {
	Network          string
	DestinationAsset string
	Amount           string
	AmountType       model.AmountType
	ReceiveAddress   string
}

// CreateSwapResult is the engine's answer to a create call.
type CreateSwapResult struct {
	SwapID            string
	StateRaw          string
	Quote             json.RawMessage
	ExpiresAt         *time.Time
	AmountSource      string
	AmountDestination string
	// DepositAddress is nil when the engine issued a PSBT artifact instead of
	// a plain deposit address.
	DepositAddress *string
	Artifact       PaymentArtifact
}

// OrderSnapshot is the engine's current view of a swap.
type OrderSnapshot struct {
	StateRaw        string
	SourceTxID      *string
	DestinationTxID *string
	RawState        json.RawMessage
	IsClaimable     bool
	IsRefundable    bool
}

// ActionResult is the outcome of a claim or refund attempt. Success false is
// a no-op, not an error: the order stays eligible for the next pass.
type ActionResult struct {
	Success bool
	TxID    string
}

// Client is the swap-engine contract consumed by the orchestrator. The engine
// owns all on-chain effects; the caller adds no idempotency layer around
// these operations.
type Client interface {
	CreateIncomingSwap(ctx context.Context, input CreateSwapInput) (*CreateSwapResult, error)
	GetOrderSnapshot(ctx context.Context, order *model.BridgeOrder) (*OrderSnapshot, error)
	TryClaim(ctx context.Context, order *model.BridgeOrder) (*ActionResult, error)
	TryRefund(ctx context.Context, order *model.BridgeOrder) (*ActionResult, error)
}
