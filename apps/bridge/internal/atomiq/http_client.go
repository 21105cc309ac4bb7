package atomiq

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcutil"
	"go.uber.org/zap"

	"bridge/apps/bridge/internal/amounts"
	"bridge/apps/bridge/internal/assets"
	"bridge/apps/bridge/internal/model"
)

// SwapMirror persists raw engine swap records. It is the engine's own storage
// backend (a key/value table of opaque JSON blobs); the orchestrator never
// reads it.
type SwapMirror interface {
	Save(storageKey, id string, data []byte) error
}

const swapStorageKey = "swaps"

// swapResource is the engine's versioned swap representation on the wire.
type swapResource struct {
	ID             string     `json:"id"`
	State          string     `json:"state"`
	AmountIn       string     `json:"amountIn"`
	AmountOut      string     `json:"amountOut"`
	DepositAddress string     `json:"depositAddress"`
	InputTxID      *string    `json:"inputTxId"`
	OutputTxID     *string    `json:"outputTxId"`
	ExpiresAt      *time.Time `json:"expiresAt"`
	Claimable      bool       `json:"claimable"`
	Refundable     bool       `json:"refundable"`
	ExecutionPlan  []PlanStep `json:"executionPlan"`
}

type createSwapRequest struct {
	Network          string `json:"network"`
	SourceAsset      string `json:"sourceAsset"`
	DestinationAsset string `json:"destinationAsset"`
	Amount           string `json:"amount"`
	ExactIn          bool   `json:"exactIn"`
	ReceiveAddress   string `json:"receiveAddress"`
}

type claimResponse struct {
	TxID string `json:"txId"`
}

// HTTPClient talks to the swap-execution engine over its HTTP API.
type HTTPClient struct {
	baseURL     string
	network     string
	chainParams *chaincfg.Params
	httpClient  *http.Client
	mirror      SwapMirror
	logger      *zap.Logger
}

// NewHTTPClient creates an engine client for the given network. The mirror
// may be nil, in which case raw swap records are not persisted.
func NewHTTPClient(baseURL, network string, mirror SwapMirror, logger *zap.Logger) *HTTPClient {
	chainParams := &chaincfg.TestNet3Params
	if network == "mainnet" {
		chainParams = &chaincfg.MainNetParams
	}

	return &HTTPClient{
		baseURL:     strings.TrimRight(baseURL, "/"),
		network:     network,
		chainParams: chainParams,
		httpClient:  &http.Client{},
		mirror:      mirror,
		logger:      logger,
	}
}

// displayAmount renders a base-unit integer string as a decimal string for
// quote payloads. Unparseable values pass through untouched.
func displayAmount(baseUnits string, decimals int) string {
	parsed, ok := new(big.Int).SetString(baseUnits, 10)
	if !ok {
		return baseUnits
	}
	return amounts.ToDecimalString(parsed, decimals)
}

// satoshisToDestinationUnits converts a satoshi amount to destination token
// base units for exactOut quotes: 10^(d-8) for d >= 8 decimals, x1000 for
// 6-decimal stables (1 sat ~ $0.001 at ~$100k/BTC), 1:1 otherwise.
func satoshisToDestinationUnits(satoshis *big.Int, decimals int) *big.Int {
	if decimals >= 8 {
		scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals-8)), nil)
		return new(big.Int).Mul(satoshis, scale)
	}
	if decimals == 6 {
		return new(big.Int).Mul(satoshis, big.NewInt(1000))
	}
	return new(big.Int).Set(satoshis)
}

func (c *HTTPClient) CreateIncomingSwap(ctx context.Context, input CreateSwapInput) (*CreateSwapResult, error) {
	// Testnet has no canonical WBTC; the engine exposes the Vesu testnet
	// wrapper under a dedicated ticker.
	ticker := input.DestinationAsset
	if input.Network == "testnet" && input.DestinationAsset == "WBTC" {
		ticker = "_TESTNET_WBTC_VESU"
	}

	amountSats, ok := new(big.Int).SetString(input.Amount, 10)
	if !ok {
		return nil, engineErrorf("create swap", "amount is not an integer: %q", input.Amount)
	}

	decimals := assets.GlobalRegistry.DestinationDecimals(input.DestinationAsset)
	engineAmount := amountSats
	if input.AmountType == model.AmountTypeExactOut {
		engineAmount = satoshisToDestinationUnits(amountSats, decimals)
	}

	body := createSwapRequest{
		Network:          input.Network,
		SourceAsset:      "BTC",
		DestinationAsset: ticker,
		Amount:           engineAmount.String(),
		ExactIn:          input.AmountType == model.AmountTypeExactIn,
		ReceiveAddress:   input.ReceiveAddress,
	}

	resource, raw, status, err := c.doSwapRequest(ctx, http.MethodPost, "/swaps", body)
	if err != nil {
		return nil, &EngineError{Op: "create swap", Err: err}
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return nil, engineErrorf("create swap", "engine returned status %d: %s", status, strings.TrimSpace(string(raw)))
	}
	if resource.ID == "" {
		return nil, engineErrorf("create swap", "engine returned no swap id")
	}

	artifact, err := c.resolveArtifact(resource)
	if err != nil {
		return nil, err
	}

	var depositAddress *string
	if payment, ok := artifact.(AddressPayment); ok {
		if err := c.validateDepositAddress(payment.Address); err != nil {
			return nil, err
		}
		addr := payment.Address
		depositAddress = &addr
	}

	c.mirrorSwap(resource.ID, raw)

	amountSource := resource.AmountIn
	if amountSource == "" {
		amountSource = input.Amount
	}
	amountDestination := resource.AmountOut
	if amountDestination == "" {
		amountDestination = engineAmount.String()
	}

	quote, err := json.Marshal(map[string]any{
		"amountIn":         amountSource,
		"amountOut":        amountDestination,
		"amountInDisplay":  displayAmount(amountSource, assets.SourceDecimals),
		"amountOutDisplay": displayAmount(amountDestination, decimals),
		"depositAddress":   depositAddress,
	})
	if err != nil {
		return nil, &EngineError{Op: "create swap", Err: err}
	}

	return &CreateSwapResult{
		SwapID:            resource.ID,
		StateRaw:          resource.State,
		Quote:             quote,
		ExpiresAt:         resource.ExpiresAt,
		AmountSource:      amountSource,
		AmountDestination: amountDestination,
		DepositAddress:    depositAddress,
		Artifact:          artifact,
	}, nil
}

func (c *HTTPClient) GetOrderSnapshot(ctx context.Context, order *model.BridgeOrder) (*OrderSnapshot, error) {
	resource, raw, err := c.getSwap(ctx, order)
	if err != nil {
		return nil, err
	}

	c.mirrorSwap(resource.ID, raw)

	rawState, err := json.Marshal(map[string]string{"state": resource.State})
	if err != nil {
		return nil, &EngineError{Op: "get snapshot", Err: err}
	}

	return &OrderSnapshot{
		StateRaw:        resource.State,
		SourceTxID:      resource.InputTxID,
		DestinationTxID: resource.OutputTxID,
		RawState:        rawState,
		IsClaimable:     resource.Claimable,
		IsRefundable:    resource.Refundable,
	}, nil
}

func (c *HTTPClient) TryClaim(ctx context.Context, order *model.BridgeOrder) (*ActionResult, error) {
	return c.tryAction(ctx, order, "claim")
}

func (c *HTTPClient) TryRefund(ctx context.Context, order *model.BridgeOrder) (*ActionResult, error) {
	return c.tryAction(ctx, order, "refund")
}

// tryAction posts a claim or refund. The engine answers 409 when the swap is
// not currently claimable/refundable; that and transient transport failures
// both come back as a non-error no-op so the order stays retry-eligible.
func (c *HTTPClient) tryAction(ctx context.Context, order *model.BridgeOrder, action string) (*ActionResult, error) {
	swapID, err := c.swapID(order, action)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/swaps/%s/%s", c.baseURL, swapID, action), nil)
	if err != nil {
		return nil, &EngineError{Op: action, Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("Engine action request failed",
			zap.String("action", action),
			zap.String("swap_id", swapID),
			zap.Error(err))
		return &ActionResult{Success: false}, nil
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &ActionResult{Success: false}, nil
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, engineErrorf(action, "atomiq swap not found")
	case resp.StatusCode == http.StatusConflict:
		// Not currently claimable/refundable.
		return &ActionResult{Success: false}, nil
	case resp.StatusCode >= 300:
		c.logger.Warn("Engine action rejected",
			zap.String("action", action),
			zap.String("swap_id", swapID),
			zap.Int("status", resp.StatusCode),
			zap.String("body", strings.TrimSpace(string(raw))))
		return &ActionResult{Success: false}, nil
	}

	var result claimResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, engineErrorf(action, "malformed engine response: %v", err)
	}
	return &ActionResult{Success: true, TxID: result.TxID}, nil
}

func (c *HTTPClient) getSwap(ctx context.Context, order *model.BridgeOrder) (*swapResource, []byte, error) {
	swapID, err := c.swapID(order, "get swap")
	if err != nil {
		return nil, nil, err
	}

	resource, raw, status, err := c.doSwapRequest(ctx, http.MethodGet, "/swaps/"+swapID, nil)
	if err != nil {
		return nil, nil, &EngineError{Op: "get swap", Err: err}
	}
	if status == http.StatusNotFound {
		return nil, nil, engineErrorf("get swap", "atomiq swap not found")
	}
	if status >= 300 {
		return nil, nil, engineErrorf("get swap", "engine returned status %d: %s", status, strings.TrimSpace(string(raw)))
	}
	return resource, raw, nil
}

func (c *HTTPClient) swapID(order *model.BridgeOrder, op string) (string, error) {
	if order.AtomiqSwapID == nil || *order.AtomiqSwapID == "" {
		return "", engineErrorf(op, "missing atomiq swap id for order %s", order.ID)
	}
	return *order.AtomiqSwapID, nil
}

func (c *HTTPClient) doSwapRequest(ctx context.Context, method, path string, body any) (*swapResource, []byte, int, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, nil, 0, err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, nil, 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, 0, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, resp.StatusCode, err
	}

	var resource swapResource
	if resp.StatusCode < 300 {
		if err := json.Unmarshal(raw, &resource); err != nil {
			return nil, nil, resp.StatusCode, fmt.Errorf("malformed engine response: %w", err)
		}
	}
	return &resource, raw, resp.StatusCode, nil
}

// resolveArtifact picks the payment artifact from the execution plan, or from
// the resource's own depositAddress field when the engine omits a plan. No
// artifact anywhere is a hard failure, flagged for operator visibility.
func (c *HTTPClient) resolveArtifact(resource *swapResource) (PaymentArtifact, error) {
	if len(resource.ExecutionPlan) > 0 {
		artifact, err := ResolvePaymentArtifact(resource.ExecutionPlan)
		if err != nil {
			c.logger.Error("Deposit artifact resolution failed",
				zap.String("swap_id", resource.ID),
				zap.Error(err))
			return nil, err
		}
		return artifact, nil
	}
	if resource.DepositAddress != "" {
		return AddressPayment{Address: resource.DepositAddress, AmountSats: resource.AmountIn}, nil
	}

	c.logger.Error("Engine response carries no execution plan or deposit address",
		zap.String("swap_id", resource.ID))
	return nil, engineErrorf("create swap", "no deposit artifact in engine response")
}

func (c *HTTPClient) validateDepositAddress(address string) error {
	decoded, err := btcutil.DecodeAddress(address, c.chainParams)
	if err != nil {
		return engineErrorf("create swap", "engine returned invalid deposit address %q: %v", address, err)
	}
	if !decoded.IsForNet(c.chainParams) {
		return engineErrorf("create swap", "deposit address %q is not valid for network %s", address, c.network)
	}
	return nil
}

func (c *HTTPClient) mirrorSwap(id string, raw []byte) {
	if c.mirror == nil {
		return
	}
	if err := c.mirror.Save(swapStorageKey, id, raw); err != nil {
		c.logger.Error("Failed to persist engine swap record", zap.String("swap_id", id), zap.Error(err))
	}
}
