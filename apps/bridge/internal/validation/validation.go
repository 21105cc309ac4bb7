// Package validation normalizes raw create-order requests before any side
// effect occurs. It performs no I/O; every failure names the offending field.
package validation

import (
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"bridge/apps/bridge/internal/assets"
	"bridge/apps/bridge/internal/model"
)

// Error is a request validation failure, mapped to HTTP 400 by the API layer.
type Error struct {
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func errorf(format string, args ...any) *Error {
	return &Error{Message: fmt.Sprintf(format, args...)}
}

// CreateOrderInput is a canonical, validated create-order request.
type CreateOrderInput struct {
	Network          string
	SourceAsset      string
	DestinationAsset string
	Amount           string
	AmountType       model.AmountType
	ReceiveAddress   string
	WalletAddress    string
}

// RawCreateOrderRequest holds the untyped request fields as received.
type RawCreateOrderRequest struct {
	SourceAsset      string
	DestinationAsset string
	Amount           string
	AmountType       string
	ReceiveAddress   string
	WalletAddress    string
}

var positiveIntegerPattern = regexp.MustCompile(`^\d+$`)

// starknetFieldPrime is the prime of the Starknet field; every valid address
// is a felt strictly below it.
var starknetFieldPrime, _ = new(big.Int).SetString(
	"800000000000011000000000000000000000000000000000000000000000001", 16)

// NormalizeWalletAddress trims and lower-cases a wallet address. Queries and
// stored orders always use this form.
func NormalizeWalletAddress(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

// ValidateAmountType accepts exactly "exactIn" or "exactOut".
func ValidateAmountType(value string) (model.AmountType, error) {
	normalized := strings.TrimSpace(value)
	if normalized != string(model.AmountTypeExactIn) && normalized != string(model.AmountTypeExactOut) {
		return "", errorf("amountType must be one of: exactIn, exactOut")
	}
	return model.AmountType(normalized), nil
}

// ValidatePositiveIntegerString accepts a base-unit amount: decimal digits
// only, greater than zero.
func ValidatePositiveIntegerString(value, field string) (string, error) {
	normalized := strings.TrimSpace(value)
	if !positiveIntegerPattern.MatchString(normalized) {
		return "", errorf("%s must be a positive integer string", field)
	}
	parsed, ok := new(big.Int).SetString(normalized, 10)
	if !ok || parsed.Sign() <= 0 {
		return "", errorf("%s must be greater than zero", field)
	}
	return normalized, nil
}

// ValidateDestinationAsset matches against the supported asset set,
// case-insensitively, and normalizes to upper case.
func ValidateDestinationAsset(value string) (string, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	if !assets.GlobalRegistry.IsSupported(normalized) {
		return "", errorf("destinationAsset is unsupported, use one of: USDC, ETH, STRK, WBTC, USDT, TBTC")
	}
	return normalized, nil
}

// ValidateStarknetReceiveAddress checks that the value parses as a Starknet
// address (a non-zero felt) and normalizes it to a lower-cased, zero-padded
// 0x-prefixed form.
func ValidateStarknetReceiveAddress(value string) (string, error) {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return "", errorf("receiveAddress is required")
	}

	hexPart := strings.ToLower(raw)
	if strings.HasPrefix(hexPart, "0x") {
		hexPart = hexPart[2:]
	}
	if hexPart == "" || len(hexPart) > 64 {
		return "", errorf("receiveAddress must be a valid Starknet address")
	}
	for _, r := range hexPart {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return "", errorf("receiveAddress must be a valid Starknet address")
		}
	}

	parsed, ok := new(big.Int).SetString(hexPart, 16)
	if !ok || parsed.Sign() == 0 || parsed.Cmp(starknetFieldPrime) >= 0 {
		return "", errorf("receiveAddress must be a valid Starknet address")
	}

	return "0x" + strings.Repeat("0", 64-len(hexPart)) + hexPart, nil
}

// ValidateCreateOrder turns a raw request into a canonical create-order input
// or fails with a descriptive error.
func ValidateCreateOrder(network string, raw RawCreateOrderRequest) (CreateOrderInput, error) {
	sourceAsset := strings.ToUpper(strings.TrimSpace(raw.SourceAsset))
	if sourceAsset != "BTC" {
		return CreateOrderInput{}, errorf("sourceAsset must be BTC for incoming bridge")
	}

	walletAddress := NormalizeWalletAddress(raw.WalletAddress)
	if walletAddress == "" {
		return CreateOrderInput{}, errorf("walletAddress is required")
	}

	destinationAsset, err := ValidateDestinationAsset(raw.DestinationAsset)
	if err != nil {
		return CreateOrderInput{}, err
	}

	amount, err := ValidatePositiveIntegerString(raw.Amount, "amount")
	if err != nil {
		return CreateOrderInput{}, err
	}

	amountType, err := ValidateAmountType(raw.AmountType)
	if err != nil {
		return CreateOrderInput{}, err
	}

	receiveAddress, err := ValidateStarknetReceiveAddress(raw.ReceiveAddress)
	if err != nil {
		return CreateOrderInput{}, err
	}

	return CreateOrderInput{
		Network:          network,
		SourceAsset:      "BTC",
		DestinationAsset: destinationAsset,
		Amount:           amount,
		AmountType:       amountType,
		ReceiveAddress:   receiveAddress,
		WalletAddress:    walletAddress,
	}, nil
}
