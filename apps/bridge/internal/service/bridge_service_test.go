package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"bridge/apps/bridge/internal/atomiq"
	"bridge/apps/bridge/internal/model"
	"bridge/apps/bridge/internal/validation"
)

type recordedAction struct {
	orderID    string
	actionType model.ActionType
	outcome    model.ActionOutcome
}

type recordedEvent struct {
	orderID    string
	kind       model.EventKind
	fromStatus *model.OrderStatus
	toStatus   model.OrderStatus
}

type fakeStore struct {
	mu          sync.Mutex
	orders      map[string]*model.BridgeOrder
	actions     []recordedAction
	events      []recordedEvent
	nextID      int
	activeCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{orders: make(map[string]*model.BridgeOrder)}
}

func (s *fakeStore) CreateOrder(args model.CreateOrderArgs) (*model.BridgeOrder, error) {
	s.nextID++
	now := time.Now()
	swapID := args.AtomiqSwapID
	order := &model.BridgeOrder{
		ID:               fmt.Sprintf("order-%d", s.nextID),
		Network:          args.Network,
		SourceAsset:      args.SourceAsset,
		DestinationAsset: args.DestinationAsset,
		Amount:           args.Amount,
		AmountType:       args.AmountType,
		ReceiveAddress:   args.ReceiveAddress,
		WalletAddress:    args.WalletAddress,
		Status:           args.Status,
		AtomiqSwapID:     &swapID,
		DepositAddress:   args.DepositAddress,
		Quote:            args.Quote,
		ExpiresAt:        args.ExpiresAt,
		RawState:         args.RawState,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	s.orders[order.ID] = order
	return order, nil
}

func (s *fakeStore) GetOrderByID(id string) (*model.BridgeOrder, error) {
	order, ok := s.orders[id]
	if !ok {
		return nil, nil
	}
	copied := *order
	return &copied, nil
}

func (s *fakeStore) ListOrdersByWallet(walletAddress string, page, limit int) (*model.OrderPage, error) {
	var matched []model.BridgeOrder
	for _, order := range s.orders {
		if order.WalletAddress == walletAddress {
			matched = append(matched, *order)
		}
	}
	return &model.OrderPage{
		Data: matched,
		Meta: model.PageMeta{Total: len(matched), Page: page, Limit: limit},
	}, nil
}

func (s *fakeStore) UpdateOrder(id string, patch model.OrderPatch) (*model.BridgeOrder, error) {
	order, ok := s.orders[id]
	if !ok {
		return nil, model.ErrOrderNotFound
	}
	if patch.Status != nil {
		order.Status = *patch.Status
	}
	if patch.SourceTxID != nil {
		order.SourceTxID = patch.SourceTxID
	}
	if patch.DestinationTxID != nil {
		order.DestinationTxID = patch.DestinationTxID
	}
	if patch.LastError != nil {
		order.LastError = patch.LastError
	}
	if patch.RawState != nil {
		order.RawState = patch.RawState
	}
	order.UpdatedAt = time.Now()
	copied := *order
	return &copied, nil
}

func (s *fakeStore) GetActiveOrders(limit int) ([]model.BridgeOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeCalls++
	var active []model.BridgeOrder
	for _, order := range s.orders {
		if !order.Status.IsTerminal() {
			active = append(active, *order)
		}
	}
	return active, nil
}

func (s *fakeStore) activeCallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeCalls
}

func (s *fakeStore) AddAction(orderID string, actionType model.ActionType, outcome model.ActionOutcome, detail any) error {
	s.actions = append(s.actions, recordedAction{orderID, actionType, outcome})
	return nil
}

func (s *fakeStore) AddEvent(orderID string, kind model.EventKind, fromStatus *model.OrderStatus, toStatus model.OrderStatus, detail any) error {
	s.events = append(s.events, recordedEvent{orderID, kind, fromStatus, toStatus})
	return nil
}

type fakeEngine struct {
	createResult *atomiq.CreateSwapResult
	createErr    error
	snapshots    map[string]*atomiq.OrderSnapshot
	snapshotErr  error
	claimResult  *atomiq.ActionResult
	claimErr     error
	refundResult *atomiq.ActionResult
	refundErr    error
	claimCalls   int
	refundCalls  int
}

func (e *fakeEngine) CreateIncomingSwap(ctx context.Context, input atomiq.CreateSwapInput) (*atomiq.CreateSwapResult, error) {
	if e.createErr != nil {
		return nil, e.createErr
	}
	return e.createResult, nil
}

func (e *fakeEngine) GetOrderSnapshot(ctx context.Context, order *model.BridgeOrder) (*atomiq.OrderSnapshot, error) {
	if e.snapshotErr != nil {
		return nil, e.snapshotErr
	}
	if snapshot, ok := e.snapshots[*order.AtomiqSwapID]; ok {
		return snapshot, nil
	}
	return nil, errors.New("no snapshot configured")
}

func (e *fakeEngine) TryClaim(ctx context.Context, order *model.BridgeOrder) (*atomiq.ActionResult, error) {
	e.claimCalls++
	if e.claimErr != nil {
		return nil, e.claimErr
	}
	return e.claimResult, nil
}

func (e *fakeEngine) TryRefund(ctx context.Context, order *model.BridgeOrder) (*atomiq.ActionResult, error) {
	e.refundCalls++
	if e.refundErr != nil {
		return nil, e.refundErr
	}
	return e.refundResult, nil
}

func testInput() validation.CreateOrderInput {
	return validation.CreateOrderInput{
		Network:          "testnet",
		SourceAsset:      "BTC",
		DestinationAsset: "WBTC",
		Amount:           "100000",
		AmountType:       model.AmountTypeExactIn,
		ReceiveAddress:   "0x0000000000000000000000000000000000000000000000000000000000000abc",
		WalletAddress:    "0xwallet",
	}
}

func newTestService(store *fakeStore, engine *fakeEngine) *BridgeService {
	return NewBridgeService(store, engine, zap.NewNop())
}

func createTestOrder(t *testing.T, svc *BridgeService, engine *fakeEngine) *model.BridgeOrder {
	t.Helper()
	depositAddress := "tb1qdeposit"
	engine.createResult = &atomiq.CreateSwapResult{
		SwapID:            "swap-1",
		StateRaw:          "PR_CREATED",
		Quote:             json.RawMessage(`{"amountIn":"100000","amountOut":"100000"}`),
		AmountSource:      "100000",
		AmountDestination: "100000",
		DepositAddress:    &depositAddress,
	}
	order, err := svc.CreateOrder(context.Background(), testInput())
	if err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}
	return order
}

func TestCreateOrderPersistsEngineResult(t *testing.T) {
	store := newFakeStore()
	engine := &fakeEngine{}
	svc := newTestService(store, engine)

	order := createTestOrder(t, svc, engine)

	if order.Status != model.StatusCreated {
		t.Errorf("Expected status CREATED, got %s", order.Status)
	}
	if order.AtomiqSwapID == nil || *order.AtomiqSwapID != "swap-1" {
		t.Errorf("Expected atomiq swap id swap-1, got %v", order.AtomiqSwapID)
	}
	if order.DepositAddress == nil || *order.DepositAddress != "tb1qdeposit" {
		t.Errorf("Expected deposit address, got %v", order.DepositAddress)
	}

	if len(store.actions) != 1 || store.actions[0].actionType != model.ActionCreateOrder {
		t.Errorf("Expected one CREATE_ORDER action, got %+v", store.actions)
	}
	if len(store.events) != 1 || store.events[0].kind != model.EventOrderCreated {
		t.Errorf("Expected one ORDER_CREATED event, got %+v", store.events)
	}
	if store.events[0].fromStatus != nil {
		t.Errorf("Expected nil fromStatus on creation event, got %v", *store.events[0].fromStatus)
	}
}

func TestCreateOrderEngineFailureWritesNothing(t *testing.T) {
	store := newFakeStore()
	engine := &fakeEngine{createErr: &atomiq.EngineError{Op: "create swap", Err: errors.New("boom")}}
	svc := newTestService(store, engine)

	_, err := svc.CreateOrder(context.Background(), testInput())
	var engineErr *atomiq.EngineError
	if !errors.As(err, &engineErr) {
		t.Fatalf("Expected EngineError, got %v", err)
	}
	if len(store.orders) != 0 {
		t.Errorf("Expected no persisted order, got %d", len(store.orders))
	}
}

func TestGetOrderNotFound(t *testing.T) {
	svc := newTestService(newFakeStore(), &fakeEngine{})

	_, err := svc.GetOrder(context.Background(), "missing")
	if !errors.Is(err, model.ErrOrderNotFound) {
		t.Errorf("Expected ErrOrderNotFound, got %v", err)
	}
}

func TestReconcileMapsConfirmedState(t *testing.T) {
	store := newFakeStore()
	engine := &fakeEngine{}
	svc := newTestService(store, engine)
	order := createTestOrder(t, svc, engine)

	sourceTx := "btc-tx-1"
	engine.snapshots = map[string]*atomiq.OrderSnapshot{
		"swap-1": {
			StateRaw:   "BTC_TX_CONFIRMED",
			SourceTxID: &sourceTx,
			RawState:   json.RawMessage(`{"state":"BTC_TX_CONFIRMED"}`),
		},
	}

	updated, err := svc.ReconcileOrder(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("ReconcileOrder failed: %v", err)
	}
	if updated.Status != model.StatusSourceConfirmed {
		t.Errorf("Expected SOURCE_CONFIRMED, got %s", updated.Status)
	}
	if updated.SourceTxID == nil || *updated.SourceTxID != "btc-tx-1" {
		t.Errorf("Expected source tx btc-tx-1, got %v", updated.SourceTxID)
	}
	if engine.claimCalls != 0 || engine.refundCalls != 0 {
		t.Errorf("Expected no claim or refund attempt, got %d/%d", engine.claimCalls, engine.refundCalls)
	}

	last := store.events[len(store.events)-1]
	if last.kind != model.EventOrderReconciled {
		t.Errorf("Expected ORDER_RECONCILED event, got %s", last.kind)
	}
	if last.fromStatus == nil || *last.fromStatus != model.StatusCreated {
		t.Errorf("Expected fromStatus CREATED, got %v", last.fromStatus)
	}
}

func TestReconcileClaimSuccessSettlesOrder(t *testing.T) {
	store := newFakeStore()
	engine := &fakeEngine{}
	svc := newTestService(store, engine)
	order := createTestOrder(t, svc, engine)

	engine.snapshots = map[string]*atomiq.OrderSnapshot{
		"swap-1": {
			StateRaw:    "BTC_TX_CONFIRMED",
			RawState:    json.RawMessage(`{"state":"BTC_TX_CONFIRMED"}`),
			IsClaimable: true,
		},
	}
	engine.claimResult = &atomiq.ActionResult{Success: true, TxID: "starknet-tx-1"}

	updated, err := svc.ReconcileOrder(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("ReconcileOrder failed: %v", err)
	}
	if updated.Status != model.StatusSettled {
		t.Errorf("Expected SETTLED, got %s", updated.Status)
	}
	if updated.DestinationTxID == nil || *updated.DestinationTxID != "starknet-tx-1" {
		t.Errorf("Expected destination tx starknet-tx-1, got %v", updated.DestinationTxID)
	}

	claimRecorded := false
	for _, action := range store.actions {
		if action.actionType == model.ActionAutoClaim && action.outcome == model.OutcomeSuccess {
			claimRecorded = true
		}
	}
	if !claimRecorded {
		t.Error("Expected a successful AUTO_CLAIM action")
	}
}

func TestReconcileClaimFailureParksOrderInClaiming(t *testing.T) {
	store := newFakeStore()
	engine := &fakeEngine{}
	svc := newTestService(store, engine)
	order := createTestOrder(t, svc, engine)

	engine.snapshots = map[string]*atomiq.OrderSnapshot{
		"swap-1": {
			StateRaw:    "BTC_TX_CONFIRMED",
			RawState:    json.RawMessage(`{"state":"BTC_TX_CONFIRMED"}`),
			IsClaimable: true,
		},
	}
	engine.claimErr = errors.New("claim tx reverted")

	updated, err := svc.ReconcileOrder(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("Expected claim failure to be absorbed, got error: %v", err)
	}
	if updated.Status != model.StatusClaiming {
		t.Errorf("Expected CLAIMING, got %s", updated.Status)
	}

	failedClaim := false
	for _, action := range store.actions {
		if action.actionType == model.ActionAutoClaim && action.outcome == model.OutcomeFailed {
			failedClaim = true
		}
	}
	if !failedClaim {
		t.Error("Expected a failed AUTO_CLAIM action")
	}
}

func TestReconcileRefundSuccess(t *testing.T) {
	store := newFakeStore()
	engine := &fakeEngine{}
	svc := newTestService(store, engine)
	order := createTestOrder(t, svc, engine)

	engine.snapshots = map[string]*atomiq.OrderSnapshot{
		"swap-1": {
			StateRaw:     "QUOTE_EXPIRED",
			RawState:     json.RawMessage(`{"state":"QUOTE_EXPIRED"}`),
			IsRefundable: true,
		},
	}
	engine.refundResult = &atomiq.ActionResult{Success: true, TxID: "btc-refund-tx"}

	updated, err := svc.ReconcileOrder(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("ReconcileOrder failed: %v", err)
	}
	if updated.Status != model.StatusRefunded {
		t.Errorf("Expected REFUNDED, got %s", updated.Status)
	}
	if engine.claimCalls != 0 {
		t.Errorf("Expected no claim attempt on refundable order, got %d", engine.claimCalls)
	}
}

func TestReconcileRefundFailureParksOrderInRefunding(t *testing.T) {
	store := newFakeStore()
	engine := &fakeEngine{}
	svc := newTestService(store, engine)
	order := createTestOrder(t, svc, engine)

	engine.snapshots = map[string]*atomiq.OrderSnapshot{
		"swap-1": {
			StateRaw:     "QUOTE_EXPIRED",
			RawState:     json.RawMessage(`{"state":"QUOTE_EXPIRED"}`),
			IsRefundable: true,
		},
	}
	engine.refundResult = &atomiq.ActionResult{Success: false}

	updated, err := svc.ReconcileOrder(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("Expected refund failure to be absorbed, got error: %v", err)
	}
	if updated.Status != model.StatusRefunding {
		t.Errorf("Expected REFUNDING, got %s", updated.Status)
	}
}

func TestReconcileClaimWinsOverRefund(t *testing.T) {
	store := newFakeStore()
	engine := &fakeEngine{}
	svc := newTestService(store, engine)
	order := createTestOrder(t, svc, engine)

	engine.snapshots = map[string]*atomiq.OrderSnapshot{
		"swap-1": {
			StateRaw:     "BTC_TX_CONFIRMED",
			RawState:     json.RawMessage(`{"state":"BTC_TX_CONFIRMED"}`),
			IsClaimable:  true,
			IsRefundable: true,
		},
	}
	engine.claimResult = &atomiq.ActionResult{Success: true, TxID: "starknet-tx-1"}

	if _, err := svc.ReconcileOrder(context.Background(), order.ID); err != nil {
		t.Fatalf("ReconcileOrder failed: %v", err)
	}
	if engine.claimCalls != 1 || engine.refundCalls != 0 {
		t.Errorf("Expected one claim and no refund, got %d/%d", engine.claimCalls, engine.refundCalls)
	}
}

func TestReconcileTerminalOrderIsNoOp(t *testing.T) {
	store := newFakeStore()
	engine := &fakeEngine{}
	svc := newTestService(store, engine)
	order := createTestOrder(t, svc, engine)

	settled := model.StatusSettled
	if _, err := store.UpdateOrder(order.ID, model.OrderPatch{Status: &settled}); err != nil {
		t.Fatalf("Failed to settle order: %v", err)
	}
	engine.snapshotErr = errors.New("engine must not be called for terminal orders")

	updated, err := svc.ReconcileOrder(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("ReconcileOrder failed: %v", err)
	}
	if updated.Status != model.StatusSettled {
		t.Errorf("Expected SETTLED to stay, got %s", updated.Status)
	}
}

func TestReconcileUnknownStateFallsBack(t *testing.T) {
	store := newFakeStore()
	engine := &fakeEngine{}
	svc := newTestService(store, engine)
	order := createTestOrder(t, svc, engine)

	engine.snapshots = map[string]*atomiq.OrderSnapshot{
		"swap-1": {
			StateRaw: "SOME_FUTURE_STATE",
			RawState: json.RawMessage(`{"state":"SOME_FUTURE_STATE"}`),
		},
	}

	updated, err := svc.ReconcileOrder(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("ReconcileOrder failed: %v", err)
	}
	if updated.Status != model.StatusSourceSubmitted {
		t.Errorf("Expected fallback to SOURCE_SUBMITTED, got %s", updated.Status)
	}
}

func TestRetryOrderRecordsManualRetry(t *testing.T) {
	store := newFakeStore()
	engine := &fakeEngine{}
	svc := newTestService(store, engine)
	order := createTestOrder(t, svc, engine)

	engine.snapshots = map[string]*atomiq.OrderSnapshot{
		"swap-1": {
			StateRaw: "BTC_TX_SUBMITTED",
			RawState: json.RawMessage(`{"state":"BTC_TX_SUBMITTED"}`),
		},
	}

	if _, err := svc.RetryOrder(context.Background(), order.ID); err != nil {
		t.Fatalf("RetryOrder failed: %v", err)
	}

	retryRecorded := false
	for _, action := range store.actions {
		if action.actionType == model.ActionManualRetry {
			retryRecorded = true
		}
	}
	if !retryRecorded {
		t.Error("Expected a MANUAL_RETRY action")
	}
}

func TestListOrdersValidatesPagination(t *testing.T) {
	svc := newTestService(newFakeStore(), &fakeEngine{})

	var validationErr *validation.Error
	if _, err := svc.ListOrders(context.Background(), "0xwallet", 0, 20); !errors.As(err, &validationErr) {
		t.Errorf("Expected validation error for page 0, got %v", err)
	}
	if _, err := svc.ListOrders(context.Background(), "0xwallet", 1, 0); !errors.As(err, &validationErr) {
		t.Errorf("Expected validation error for limit 0, got %v", err)
	}
}

func TestListOrdersCapsLimit(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeEngine{})

	page, err := svc.ListOrders(context.Background(), "0xWallet", 1, 500)
	if err != nil {
		t.Fatalf("ListOrders failed: %v", err)
	}
	if page.Meta.Limit != MaxListLimit {
		t.Errorf("Expected limit capped at %d, got %d", MaxListLimit, page.Meta.Limit)
	}
}

func TestReconcileActiveOrdersIsolatesFailures(t *testing.T) {
	store := newFakeStore()
	engine := &fakeEngine{}
	svc := newTestService(store, engine)

	first := createTestOrder(t, svc, engine)
	engine.createResult.SwapID = "swap-2"
	second, err := svc.CreateOrder(context.Background(), testInput())
	if err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}

	// Only swap-2 has a snapshot; swap-1 reconciliation fails.
	engine.snapshots = map[string]*atomiq.OrderSnapshot{
		"swap-2": {
			StateRaw: "BTC_TX_CONFIRMED",
			RawState: json.RawMessage(`{"state":"BTC_TX_CONFIRMED"}`),
		},
	}

	if err := svc.ReconcileActiveOrders(context.Background()); err != nil {
		t.Fatalf("ReconcileActiveOrders failed: %v", err)
	}

	stale, _ := store.GetOrderByID(first.ID)
	if stale.Status != model.StatusCreated {
		t.Errorf("Expected failed order to keep CREATED, got %s", stale.Status)
	}
	advanced, _ := store.GetOrderByID(second.ID)
	if advanced.Status != model.StatusSourceConfirmed {
		t.Errorf("Expected healthy order to advance to SOURCE_CONFIRMED, got %s", advanced.Status)
	}
}

func TestRecoveryPollerStopsOnCancel(t *testing.T) {
	store := newFakeStore()
	engine := &fakeEngine{snapshots: map[string]*atomiq.OrderSnapshot{}}
	svc := newTestService(store, engine)

	ctx, cancel := context.WithCancel(context.Background())
	svc.StartRecoveryPoller(ctx, 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	if store.activeCallCount() == 0 {
		t.Error("Expected the poller to tick at least once")
	}

	cancel()
	time.Sleep(10 * time.Millisecond)
	stopped := store.activeCallCount()
	time.Sleep(30 * time.Millisecond)
	if store.activeCallCount() != stopped {
		t.Error("Expected no further ticks after cancel")
	}
}
