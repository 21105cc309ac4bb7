package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"bridge/apps/bridge/internal/model"
)

const orderColumns = `id, network, source_asset, destination_asset, amount, amount_type,
	amount_source, amount_destination, receive_address, wallet_address, status,
	atomiq_swap_id, deposit_address, source_tx_id, destination_tx_id, quote,
	expires_at, last_error, raw_state, created_at, updated_at`

type OrderRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewOrderRepository(db *sql.DB, logger *zap.Logger) *OrderRepository {
	return &OrderRepository{db: db, logger: logger}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*model.BridgeOrder, error) {
	var order model.BridgeOrder
	err := row.Scan(&order.ID, &order.Network, &order.SourceAsset, &order.DestinationAsset,
		&order.Amount, &order.AmountType, &order.AmountSource, &order.AmountDestination,
		&order.ReceiveAddress, &order.WalletAddress, &order.Status,
		&order.AtomiqSwapID, &order.DepositAddress, &order.SourceTxID, &order.DestinationTxID,
		&order.Quote, &order.ExpiresAt, &order.LastError, &order.RawState,
		&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *OrderRepository) CreateOrder(args model.CreateOrderArgs) (*model.BridgeOrder, error) {
	id := uuid.New().String()

	row := r.db.QueryRow(`
		INSERT INTO bridge_orders (id, network, source_asset, destination_asset, amount, amount_type,
			amount_source, amount_destination, receive_address, wallet_address, status,
			atomiq_swap_id, deposit_address, quote, expires_at, raw_state)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING `+orderColumns+`
	`, id, args.Network, args.SourceAsset, args.DestinationAsset, args.Amount, args.AmountType,
		args.AmountSource, args.AmountDestination, args.ReceiveAddress, args.WalletAddress,
		args.Status, args.AtomiqSwapID, args.DepositAddress, []byte(args.Quote), args.ExpiresAt,
		[]byte(args.RawState))

	order, err := scanOrder(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create bridge order: %w", err)
	}

	r.logger.Info("Created bridge order",
		zap.String("order_id", order.ID),
		zap.String("atomiq_swap_id", args.AtomiqSwapID),
		zap.String("destination_asset", order.DestinationAsset),
		zap.String("wallet_address", order.WalletAddress))
	return order, nil
}

func (r *OrderRepository) GetOrderByID(id string) (*model.BridgeOrder, error) {
	order, err := scanOrder(r.db.QueryRow(`
		SELECT `+orderColumns+` FROM bridge_orders WHERE id = $1
	`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get bridge order: %w", err)
	}
	return order, nil
}

func (r *OrderRepository) ListOrdersByWallet(walletAddress string, page, limit int) (*model.OrderPage, error) {
	var total int
	err := r.db.QueryRow(`
		SELECT COUNT(*) FROM bridge_orders WHERE wallet_address = $1
	`, walletAddress).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("failed to count bridge orders: %w", err)
	}

	rows, err := r.db.Query(`
		SELECT `+orderColumns+`
		FROM bridge_orders
		WHERE wallet_address = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, walletAddress, limit, (page-1)*limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list bridge orders: %w", err)
	}
	defer rows.Close()

	orders := make([]model.BridgeOrder, 0, limit)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bridge order: %w", err)
		}
		orders = append(orders, *order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bridge orders: %w", err)
	}

	return &model.OrderPage{Data: orders, Meta: BuildPageMeta(total, page, limit)}, nil
}

// BuildPageMeta computes pagination metadata for a page of results.
func BuildPageMeta(total, page, limit int) model.PageMeta {
	totalPages := (total + limit - 1) / limit
	return model.PageMeta{
		Total:       total,
		Page:        page,
		Limit:       limit,
		TotalPages:  totalPages,
		HasNextPage: page < totalPages,
		HasPrevPage: page > 1 && total > 0,
	}
}

func (r *OrderRepository) UpdateOrder(id string, patch model.OrderPatch) (*model.BridgeOrder, error) {
	order, err := scanOrder(r.db.QueryRow(`
		UPDATE bridge_orders SET
			status = COALESCE($2, status),
			source_tx_id = COALESCE($3, source_tx_id),
			destination_tx_id = COALESCE($4, destination_tx_id),
			last_error = COALESCE($5, last_error),
			raw_state = COALESCE($6, raw_state),
			updated_at = NOW()
		WHERE id = $1
		RETURNING `+orderColumns+`
	`, id, patch.Status, patch.SourceTxID, patch.DestinationTxID, patch.LastError,
		[]byte(patch.RawState)))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, model.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to update bridge order: %w", err)
	}

	r.logger.Info("Updated bridge order",
		zap.String("order_id", order.ID),
		zap.String("status", string(order.Status)))
	return order, nil
}

func (r *OrderRepository) GetActiveOrders(limit int) ([]model.BridgeOrder, error) {
	statuses := make([]string, 0, len(model.ActiveStatuses))
	for _, status := range model.ActiveStatuses {
		statuses = append(statuses, string(status))
	}

	rows, err := r.db.Query(`
		SELECT `+orderColumns+`
		FROM bridge_orders
		WHERE status = ANY($1)
		ORDER BY updated_at ASC
		LIMIT $2
	`, pq.Array(statuses), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get active bridge orders: %w", err)
	}
	defer rows.Close()

	var orders []model.BridgeOrder
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bridge order: %w", err)
		}
		orders = append(orders, *order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating active bridge orders: %w", err)
	}
	return orders, nil
}

func marshalDetail(detail any) ([]byte, error) {
	if detail == nil {
		return nil, nil
	}
	encoded, err := json.Marshal(detail)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal audit detail: %w", err)
	}
	return encoded, nil
}

func (r *OrderRepository) AddAction(orderID string, actionType model.ActionType, outcome model.ActionOutcome, detail any) error {
	encoded, err := marshalDetail(detail)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(`
		INSERT INTO bridge_actions (order_id, action_type, outcome, detail)
		VALUES ($1, $2, $3, $4)
	`, orderID, actionType, outcome, encoded)
	if err != nil {
		return fmt.Errorf("failed to add bridge action: %w", err)
	}
	return nil
}

func (r *OrderRepository) AddEvent(orderID string, kind model.EventKind, fromStatus *model.OrderStatus, toStatus model.OrderStatus, detail any) error {
	encoded, err := marshalDetail(detail)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(`
		INSERT INTO bridge_events (order_id, kind, from_status, to_status, detail)
		VALUES ($1, $2, $3, $4, $5)
	`, orderID, kind, fromStatus, toStatus, encoded)
	if err != nil {
		return fmt.Errorf("failed to add bridge event: %w", err)
	}
	return nil
}
