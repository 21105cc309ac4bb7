package api

import (
	"encoding/json"
	"time"

	"bridge/apps/bridge/internal/model"
)

// CreateOrderRequest represents the request body for opening a bridge order
type CreateOrderRequest struct {
	SourceAsset      string `json:"sourceAsset"`
	DestinationAsset string `json:"destinationAsset"`
	Amount           string `json:"amount"`
	AmountType       string `json:"amountType"`
	ReceiveAddress   string `json:"receiveAddress"`
	WalletAddress    string `json:"walletAddress"`
}

// CreateOrderResponse represents the response for a newly opened bridge order
type CreateOrderResponse struct {
	OrderID        string          `json:"orderId"`
	Status         string          `json:"status"`
	DepositAddress *string         `json:"depositAddress"`
	AmountSats     *string         `json:"amountSats"`
	Quote          json.RawMessage `json:"quote"`
	ExpiresAt      *time.Time      `json:"expiresAt"`
}

// DataResponse wraps a successful payload
type DataResponse struct {
	Data any `json:"data"`
}

// ListOrdersResponse represents one page of a wallet's orders
type ListOrdersResponse struct {
	Data []model.BridgeOrder `json:"data"`
	Meta model.PageMeta      `json:"meta"`
}

// ErrorResponse represents the API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
