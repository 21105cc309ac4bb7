package model

import (
	"encoding/json"
	"errors"
	"time"
)

// ErrOrderNotFound is returned when a referenced bridge order does not exist.
var ErrOrderNotFound = errors.New("bridge order not found")

type OrderStatus string

const (
	StatusCreated               OrderStatus = "CREATED"
	StatusAwaitingUserSignature OrderStatus = "AWAITING_USER_SIGNATURE"
	StatusSourceSubmitted       OrderStatus = "SOURCE_SUBMITTED"
	StatusSourceConfirmed       OrderStatus = "SOURCE_CONFIRMED"
	StatusClaiming              OrderStatus = "CLAIMING"
	StatusSettled               OrderStatus = "SETTLED"
	StatusRefunding             OrderStatus = "REFUNDING"
	StatusRefunded              OrderStatus = "REFUNDED"
)

// ActiveStatuses are the non-terminal statuses still eligible for reconciliation.
var ActiveStatuses = []OrderStatus{
	StatusCreated,
	StatusAwaitingUserSignature,
	StatusSourceSubmitted,
	StatusSourceConfirmed,
	StatusClaiming,
	StatusRefunding,
}

// IsTerminal reports whether the status is final. Terminal orders are never
// reconciled again.
func (s OrderStatus) IsTerminal() bool {
	return s == StatusSettled || s == StatusRefunded
}

type AmountType string

const (
	AmountTypeExactIn  AmountType = "exactIn"
	AmountTypeExactOut AmountType = "exactOut"
)

// BridgeOrder is one requested BTC->Starknet incoming swap. Amounts are
// base-unit integer strings; wallet and receive addresses are stored
// lower-cased.
type BridgeOrder struct {
	ID                string          `db:"id" json:"id"`
	Network           string          `db:"network" json:"network"`
	SourceAsset       string          `db:"source_asset" json:"sourceAsset"`
	DestinationAsset  string          `db:"destination_asset" json:"destinationAsset"`
	Amount            string          `db:"amount" json:"amount"`
	AmountType        AmountType      `db:"amount_type" json:"amountType"`
	AmountSource      *string         `db:"amount_source" json:"amountSource"`
	AmountDestination *string         `db:"amount_destination" json:"amountDestination"`
	ReceiveAddress    string          `db:"receive_address" json:"receiveAddress"`
	WalletAddress     string          `db:"wallet_address" json:"walletAddress"`
	Status            OrderStatus     `db:"status" json:"status"`
	AtomiqSwapID      *string         `db:"atomiq_swap_id" json:"atomiqSwapId"`
	DepositAddress    *string         `db:"deposit_address" json:"depositAddress"`
	SourceTxID        *string         `db:"source_tx_id" json:"sourceTxId"`
	DestinationTxID   *string         `db:"destination_tx_id" json:"destinationTxId"`
	Quote             json.RawMessage `db:"quote" json:"quote"`
	ExpiresAt         *time.Time      `db:"expires_at" json:"expiresAt"`
	LastError         *string         `db:"last_error" json:"lastError"`
	RawState          json.RawMessage `db:"raw_state" json:"rawState"`
	CreatedAt         time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time       `db:"updated_at" json:"updatedAt"`
}

// CreateOrderArgs is everything the store needs to persist a new order.
type CreateOrderArgs struct {
	Network           string
	SourceAsset       string
	DestinationAsset  string
	Amount            string
	AmountType        AmountType
	ReceiveAddress    string
	WalletAddress     string
	Status            OrderStatus
	AtomiqSwapID      string
	DepositAddress    *string
	Quote             json.RawMessage
	ExpiresAt         *time.Time
	RawState          json.RawMessage
	AmountSource      *string
	AmountDestination *string
}

// OrderPatch is a partial update applied during reconciliation. Nil fields
// leave the current value unchanged.
type OrderPatch struct {
	Status          *OrderStatus
	SourceTxID      *string
	DestinationTxID *string
	LastError       *string
	RawState        json.RawMessage
}

// OrderPage is one page of a wallet's orders plus pagination metadata.
type OrderPage struct {
	Data []BridgeOrder `json:"data"`
	Meta PageMeta      `json:"meta"`
}

type PageMeta struct {
	Total       int  `json:"total"`
	Page        int  `json:"page"`
	Limit       int  `json:"limit"`
	TotalPages  int  `json:"totalPages"`
	HasNextPage bool `json:"hasNextPage"`
	HasPrevPage bool `json:"hasPrevPage"`
}
