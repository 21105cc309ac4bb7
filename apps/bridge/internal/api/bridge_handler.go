package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"bridge/apps/bridge/internal/atomiq"
	"bridge/apps/bridge/internal/model"
	"bridge/apps/bridge/internal/validation"
)

const (
	defaultPage  = 1
	defaultLimit = 20
)

// OrderService is the orchestrator contract consumed by the HTTP handlers.
type OrderService interface {
	CreateOrder(ctx context.Context, input validation.CreateOrderInput) (*model.BridgeOrder, error)
	GetOrder(ctx context.Context, orderID string) (*model.BridgeOrder, error)
	ListOrders(ctx context.Context, walletAddress string, page, limit int) (*model.OrderPage, error)
	RetryOrder(ctx context.Context, orderID string) (*model.BridgeOrder, error)
}

// BridgeHandler handles bridge order API endpoints
type BridgeHandler struct {
	service OrderService
	network string
	logger  *zap.Logger
}

// NewBridgeHandler creates a new BridgeHandler
func NewBridgeHandler(service OrderService, network string, logger *zap.Logger) *BridgeHandler {
	return &BridgeHandler{service: service, network: network, logger: logger}
}

// CreateOrder handles POST /api/bridge/orders
func (h *BridgeHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, "invalid_request_body", "Invalid JSON in request body")
		return
	}

	input, err := validation.ValidateCreateOrder(h.network, validation.RawCreateOrderRequest{
		SourceAsset:      req.SourceAsset,
		DestinationAsset: req.DestinationAsset,
		Amount:           req.Amount,
		AmountType:       req.AmountType,
		ReceiveAddress:   req.ReceiveAddress,
		WalletAddress:    req.WalletAddress,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	order, err := h.service.CreateOrder(r.Context(), input)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusCreated, DataResponse{Data: CreateOrderResponse{
		OrderID:        order.ID,
		Status:         string(order.Status),
		DepositAddress: order.DepositAddress,
		AmountSats:     order.AmountSource,
		Quote:          order.Quote,
		ExpiresAt:      order.ExpiresAt,
	}})
}

// GetOrder handles GET /api/bridge/orders/{order_id}
func (h *BridgeHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["order_id"]
	if orderID == "" {
		h.writeErrorResponse(w, http.StatusBadRequest, "missing_order_id", "Order id is required")
		return
	}

	order, err := h.service.GetOrder(r.Context(), orderID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, DataResponse{Data: order})
}

// ListOrders handles GET /api/bridge/orders?walletAddress=...&page=...&limit=...
func (h *BridgeHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	walletAddress := r.URL.Query().Get("walletAddress")
	if walletAddress == "" {
		h.writeErrorResponse(w, http.StatusBadRequest, "missing_wallet_address", "walletAddress query parameter is required")
		return
	}

	page, err := parsePositiveQueryInt(r, "page", defaultPage)
	if err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, "invalid_page", "page must be a positive integer")
		return
	}
	limit, err := parsePositiveQueryInt(r, "limit", defaultLimit)
	if err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
		return
	}

	orders, err := h.service.ListOrders(r.Context(), walletAddress, page, limit)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, ListOrdersResponse{Data: orders.Data, Meta: orders.Meta})
}

// RetryOrder handles POST /api/bridge/orders/{order_id}/retry
func (h *BridgeHandler) RetryOrder(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["order_id"]
	if orderID == "" {
		h.writeErrorResponse(w, http.StatusBadRequest, "missing_order_id", "Order id is required")
		return
	}

	order, err := h.service.RetryOrder(r.Context(), orderID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, DataResponse{Data: order})
}

func parsePositiveQueryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		return 0, errors.New(name + " must be a positive integer")
	}
	return value, nil
}

// writeServiceError maps orchestrator errors to HTTP statuses: validation
// failures are 400, unknown orders 404, engine failures 502.
func (h *BridgeHandler) writeServiceError(w http.ResponseWriter, err error) {
	var validationErr *validation.Error
	if errors.As(err, &validationErr) {
		h.writeErrorResponse(w, http.StatusBadRequest, "validation_error", validationErr.Message)
		return
	}
	if errors.Is(err, model.ErrOrderNotFound) {
		h.writeErrorResponse(w, http.StatusNotFound, "order_not_found", "Bridge order not found")
		return
	}
	var engineErr *atomiq.EngineError
	if errors.As(err, &engineErr) {
		h.logger.Error("Swap engine error", zap.Error(err))
		h.writeErrorResponse(w, http.StatusBadGateway, "engine_error", "Swap engine request failed")
		return
	}

	h.logger.Error("Unhandled service error", zap.Error(err))
	h.writeErrorResponse(w, http.StatusBadGateway, "internal_error", "Request failed")
}

// writeJSONResponse writes a JSON response with the specified status code
func (h *BridgeHandler) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode JSON response", zap.Error(err))
	}
}

// writeErrorResponse writes an error response
func (h *BridgeHandler) writeErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) {
	h.writeJSONResponse(w, statusCode, ErrorResponse{Error: errorCode, Message: message})
}
