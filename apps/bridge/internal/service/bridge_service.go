// Package service contains the reconciliation orchestrator: the state machine
// that drives a bridge order through its lifecycle by polling the swap engine,
// mapping engine states to canonical statuses, opportunistically claiming or
// refunding, and persisting an auditable trail.
package service

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"bridge/apps/bridge/internal/atomiq"
	"bridge/apps/bridge/internal/model"
	"bridge/apps/bridge/internal/validation"
)

// MaxListLimit caps the page size of order listings.
const MaxListLimit = 100

// reconcileBatchSize bounds how many active orders one poller tick touches.
const reconcileBatchSize = 100

// OrderStore is the persistence contract consumed by the orchestrator.
type OrderStore interface {
	CreateOrder(args model.CreateOrderArgs) (*model.BridgeOrder, error)
	GetOrderByID(id string) (*model.BridgeOrder, error)
	ListOrdersByWallet(walletAddress string, page, limit int) (*model.OrderPage, error)
	UpdateOrder(id string, patch model.OrderPatch) (*model.BridgeOrder, error)
	GetActiveOrders(limit int) ([]model.BridgeOrder, error)
	AddAction(orderID string, actionType model.ActionType, outcome model.ActionOutcome, detail any) error
	AddEvent(orderID string, kind model.EventKind, fromStatus *model.OrderStatus, toStatus model.OrderStatus, detail any) error
}

type BridgeService struct {
	store  OrderStore
	engine atomiq.Client
	logger *zap.Logger
}

func NewBridgeService(store OrderStore, engine atomiq.Client, logger *zap.Logger) *BridgeService {
	return &BridgeService{store: store, engine: engine, logger: logger}
}

// CreateOrder opens an incoming swap with the engine and persists the
// resulting order. The input must already be validated.
func (s *BridgeService) CreateOrder(ctx context.Context, input validation.CreateOrderInput) (*model.BridgeOrder, error) {
	s.logger.Info("Creating bridge order",
		zap.String("network", input.Network),
		zap.String("destination_asset", input.DestinationAsset),
		zap.String("amount", input.Amount),
		zap.String("amount_type", string(input.AmountType)))

	swap, err := s.engine.CreateIncomingSwap(ctx, atomiq.CreateSwapInput{
		Network:          input.Network,
		DestinationAsset: input.DestinationAsset,
		Amount:           input.Amount,
		AmountType:       input.AmountType,
		ReceiveAddress:   input.ReceiveAddress,
	})
	if err != nil {
		return nil, err
	}

	rawState, _ := json.Marshal(map[string]string{"state": swap.StateRaw})
	order, err := s.store.CreateOrder(model.CreateOrderArgs{
		Network:           input.Network,
		SourceAsset:       input.SourceAsset,
		DestinationAsset:  input.DestinationAsset,
		Amount:            input.Amount,
		AmountType:        input.AmountType,
		ReceiveAddress:    input.ReceiveAddress,
		WalletAddress:     input.WalletAddress,
		Status:            model.StatusCreated,
		AtomiqSwapID:      swap.SwapID,
		DepositAddress:    swap.DepositAddress,
		Quote:             swap.Quote,
		ExpiresAt:         swap.ExpiresAt,
		RawState:          rawState,
		AmountSource:      &swap.AmountSource,
		AmountDestination: &swap.AmountDestination,
	})
	if err != nil {
		return nil, err
	}

	s.addAction(order.ID, model.ActionCreateOrder, model.OutcomeSuccess, map[string]any{
		"atomiqSwapId": swap.SwapID,
	})
	s.addEvent(order.ID, model.EventOrderCreated, nil, model.StatusCreated, map[string]any{
		"expiresAt": order.ExpiresAt,
	})

	s.logger.Info("Created bridge order",
		zap.String("order_id", order.ID),
		zap.String("atomiq_swap_id", swap.SwapID),
		zap.String("status", string(order.Status)))
	return order, nil
}

// GetOrder loads one order, failing with ErrOrderNotFound when absent.
func (s *BridgeService) GetOrder(ctx context.Context, orderID string) (*model.BridgeOrder, error) {
	return s.requireOrder(orderID)
}

// ListOrders returns a page of a wallet's orders. The limit is capped at
// MaxListLimit; page and limit must both be >= 1.
func (s *BridgeService) ListOrders(ctx context.Context, walletAddress string, page, limit int) (*model.OrderPage, error) {
	if page < 1 {
		return nil, &validation.Error{Message: "page must be a positive integer"}
	}
	if limit < 1 {
		return nil, &validation.Error{Message: "limit must be a positive integer"}
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	return s.store.ListOrdersByWallet(validation.NormalizeWalletAddress(walletAddress), page, limit)
}

// RetryOrder records a manual retry and reconciles the order immediately.
func (s *BridgeService) RetryOrder(ctx context.Context, orderID string) (*model.BridgeOrder, error) {
	s.logger.Info("Manual retry requested", zap.String("order_id", orderID))

	order, err := s.requireOrder(orderID)
	if err != nil {
		return nil, err
	}
	s.addAction(order.ID, model.ActionManualRetry, model.OutcomeSuccess, nil)
	return s.ReconcileOrder(ctx, order.ID)
}

// ReconcileOrder fetches the engine's snapshot for one order, applies the
// status mapping, attempts a claim or refund when the snapshot allows one,
// and persists the result. Claim and refund are mutually exclusive per pass.
func (s *BridgeService) ReconcileOrder(ctx context.Context, orderID string) (*model.BridgeOrder, error) {
	order, err := s.requireOrder(orderID)
	if err != nil {
		return nil, err
	}

	// Terminal orders are final; reconciliation never revisits them.
	if order.Status.IsTerminal() {
		return order, nil
	}

	snapshot, err := s.engine.GetOrderSnapshot(ctx, order)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Reconciling bridge order",
		zap.String("order_id", order.ID),
		zap.String("state_raw", snapshot.StateRaw),
		zap.Bool("claimable", snapshot.IsClaimable),
		zap.Bool("refundable", snapshot.IsRefundable))

	nextStatus := atomiq.MapEngineState(snapshot.StateRaw)
	destinationTxID := snapshot.DestinationTxID

	if snapshot.IsClaimable {
		nextStatus, destinationTxID = s.attemptClaim(ctx, order, destinationTxID)
	} else if snapshot.IsRefundable {
		nextStatus, destinationTxID = s.attemptRefund(ctx, order, destinationTxID)
	}

	sourceTxID := order.SourceTxID
	if snapshot.SourceTxID != nil {
		sourceTxID = snapshot.SourceTxID
	}

	updated, err := s.store.UpdateOrder(order.ID, model.OrderPatch{
		Status:          &nextStatus,
		SourceTxID:      sourceTxID,
		DestinationTxID: destinationTxID,
		RawState:        snapshot.RawState,
	})
	if err != nil {
		return nil, err
	}

	s.addAction(order.ID, model.ActionPollOrder, model.OutcomeSuccess, map[string]any{
		"stateRaw":        snapshot.StateRaw,
		"mappedStatus":    nextStatus,
		"sourceTxId":      snapshot.SourceTxID,
		"destinationTxId": destinationTxID,
	})
	fromStatus := order.Status
	s.addEvent(order.ID, model.EventOrderReconciled, &fromStatus, updated.Status, map[string]any{
		"stateRaw":        snapshot.StateRaw,
		"sourceTxId":      snapshot.SourceTxID,
		"destinationTxId": destinationTxID,
	})

	s.logger.Info("Reconciled bridge order",
		zap.String("order_id", order.ID),
		zap.String("from_status", string(order.Status)),
		zap.String("to_status", string(updated.Status)))
	return updated, nil
}

// attemptClaim tries the destination-side payout. A failed attempt is not an
// error: the order parks in CLAIMING and retries on the next pass.
func (s *BridgeService) attemptClaim(ctx context.Context, order *model.BridgeOrder, destinationTxID *string) (model.OrderStatus, *string) {
	claim, err := s.engine.TryClaim(ctx, order)
	if err != nil {
		s.logger.Error("Claim attempt errored", zap.String("order_id", order.ID), zap.Error(err))
		s.addAction(order.ID, model.ActionAutoClaim, model.OutcomeFailed, map[string]any{"error": err.Error()})
		return model.StatusClaiming, destinationTxID
	}
	if !claim.Success {
		s.addAction(order.ID, model.ActionAutoClaim, model.OutcomeFailed, nil)
		return model.StatusClaiming, destinationTxID
	}

	s.addAction(order.ID, model.ActionAutoClaim, model.OutcomeSuccess, map[string]any{"txId": claim.TxID})
	if claim.TxID != "" {
		txID := claim.TxID
		return model.StatusSettled, &txID
	}
	return model.StatusSettled, destinationTxID
}

// attemptRefund mirrors attemptClaim for the refund leg.
func (s *BridgeService) attemptRefund(ctx context.Context, order *model.BridgeOrder, destinationTxID *string) (model.OrderStatus, *string) {
	refund, err := s.engine.TryRefund(ctx, order)
	if err != nil {
		s.logger.Error("Refund attempt errored", zap.String("order_id", order.ID), zap.Error(err))
		s.addAction(order.ID, model.ActionAutoRefund, model.OutcomeFailed, map[string]any{"error": err.Error()})
		return model.StatusRefunding, destinationTxID
	}
	if !refund.Success {
		s.addAction(order.ID, model.ActionAutoRefund, model.OutcomeFailed, nil)
		return model.StatusRefunding, destinationTxID
	}

	s.addAction(order.ID, model.ActionAutoRefund, model.OutcomeSuccess, map[string]any{"txId": refund.TxID})
	if refund.TxID != "" {
		txID := refund.TxID
		return model.StatusRefunded, &txID
	}
	return model.StatusRefunded, destinationTxID
}

// ReconcileActiveOrders reconciles up to reconcileBatchSize active orders
// sequentially. A failure on one order is logged and the batch continues, so
// a single stuck order cannot starve the rest of the tick.
func (s *BridgeService) ReconcileActiveOrders(ctx context.Context) error {
	activeOrders, err := s.store.GetActiveOrders(reconcileBatchSize)
	if err != nil {
		return err
	}

	s.logger.Info("Reconciling active bridge orders", zap.Int("count", len(activeOrders)))
	for _, order := range activeOrders {
		if _, err := s.ReconcileOrder(ctx, order.ID); err != nil {
			s.logger.Error("Failed to reconcile bridge order",
				zap.String("order_id", order.ID),
				zap.Error(err))
		}
	}
	return nil
}

// StartRecoveryPoller launches the background reconciliation loop. The loop
// stops when ctx is cancelled; errors never kill it.
func (s *BridgeService) StartRecoveryPoller(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		s.logger.Info("Starting bridge recovery poller", zap.Duration("interval", interval))
		for {
			select {
			case <-ctx.Done():
				s.logger.Info("Stopping bridge recovery poller")
				return
			case <-ticker.C:
				if err := s.ReconcileActiveOrders(ctx); err != nil {
					s.logger.Error("Bridge recovery poller error", zap.Error(err))
				}
			}
		}
	}()
}

func (s *BridgeService) requireOrder(orderID string) (*model.BridgeOrder, error) {
	order, err := s.store.GetOrderByID(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, model.ErrOrderNotFound
	}
	return order, nil
}

// Audit writes are fire-and-forget: a failed audit insert is logged, never
// surfaced to the caller.
func (s *BridgeService) addAction(orderID string, actionType model.ActionType, outcome model.ActionOutcome, detail any) {
	if err := s.store.AddAction(orderID, actionType, outcome, detail); err != nil {
		s.logger.Error("Failed to record bridge action",
			zap.String("order_id", orderID),
			zap.String("action_type", string(actionType)),
			zap.Error(err))
	}
}

func (s *BridgeService) addEvent(orderID string, kind model.EventKind, fromStatus *model.OrderStatus, toStatus model.OrderStatus, detail any) {
	if err := s.store.AddEvent(orderID, kind, fromStatus, toStatus, detail); err != nil {
		s.logger.Error("Failed to record bridge event",
			zap.String("order_id", orderID),
			zap.String("kind", string(kind)),
			zap.Error(err))
	}
}
