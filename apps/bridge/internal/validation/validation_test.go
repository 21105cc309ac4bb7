package validation

import (
	"errors"
	"strings"
	"testing"

	"bridge/apps/bridge/internal/model"
)

const testReceiveAddress = "0x04a1b2C3d4E5f60123456789abcdef0123456789abcdef0123456789abcdef01"

func validRequest() RawCreateOrderRequest {
	return RawCreateOrderRequest{
		SourceAsset:      "BTC",
		DestinationAsset: "USDC",
		Amount:           "10000",
		AmountType:       "exactIn",
		ReceiveAddress:   testReceiveAddress,
		WalletAddress:    "0xWalletAddressABC",
	}
}

func TestValidateCreateOrderAcceptsValidRequest(t *testing.T) {
	input, err := ValidateCreateOrder("testnet", validRequest())
	if err != nil {
		t.Fatalf("ValidateCreateOrder failed: %v", err)
	}

	if input.Network != "testnet" {
		t.Errorf("Expected network 'testnet', got %q", input.Network)
	}
	if input.SourceAsset != "BTC" {
		t.Errorf("Expected sourceAsset 'BTC', got %q", input.SourceAsset)
	}
	if input.DestinationAsset != "USDC" {
		t.Errorf("Expected destinationAsset 'USDC', got %q", input.DestinationAsset)
	}
	if input.AmountType != model.AmountTypeExactIn {
		t.Errorf("Expected amountType 'exactIn', got %q", input.AmountType)
	}
	if input.WalletAddress != "0xwalletaddressabc" {
		t.Errorf("Wallet address should be lower-cased, got %q", input.WalletAddress)
	}
	if input.ReceiveAddress != strings.ToLower(testReceiveAddress) {
		t.Errorf("Receive address should be normalized to lower case, got %q", input.ReceiveAddress)
	}
}

func TestValidateCreateOrderRejectsBadFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*RawCreateOrderRequest)
	}{
		{"non-BTC source asset", func(r *RawCreateOrderRequest) { r.SourceAsset = "ETH" }},
		{"empty wallet address", func(r *RawCreateOrderRequest) { r.WalletAddress = "  " }},
		{"unsupported destination asset", func(r *RawCreateOrderRequest) { r.DestinationAsset = "DOGE" }},
		{"zero amount", func(r *RawCreateOrderRequest) { r.Amount = "0" }},
		{"negative amount", func(r *RawCreateOrderRequest) { r.Amount = "-5" }},
		{"decimal amount", func(r *RawCreateOrderRequest) { r.Amount = "0.001" }},
		{"bad amount type", func(r *RawCreateOrderRequest) { r.AmountType = "exactMiddle" }},
		{"malformed receive address", func(r *RawCreateOrderRequest) { r.ReceiveAddress = "not-an-address" }},
		{"empty receive address", func(r *RawCreateOrderRequest) { r.ReceiveAddress = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)

			_, err := ValidateCreateOrder("testnet", req)
			if err == nil {
				t.Fatal("Expected validation error, got nil")
			}
			var validationErr *Error
			if !errors.As(err, &validationErr) {
				t.Errorf("Expected *validation.Error, got %T", err)
			}
		})
	}
}

func TestValidateDestinationAssetIsCaseInsensitive(t *testing.T) {
	asset, err := ValidateDestinationAsset("usdc")
	if err != nil {
		t.Fatalf("ValidateDestinationAsset failed: %v", err)
	}
	if asset != "USDC" {
		t.Errorf("Expected 'USDC', got %q", asset)
	}
}

func TestValidateStarknetReceiveAddress(t *testing.T) {
	// Short addresses are zero-padded to 64 hex digits.
	got, err := ValidateStarknetReceiveAddress("0x123")
	if err != nil {
		t.Fatalf("ValidateStarknetReceiveAddress failed: %v", err)
	}
	want := "0x" + strings.Repeat("0", 61) + "123"
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}

	invalid := []string{
		"",
		"0x",
		"0x0", // zero address
		"0xzz",
		"0x" + strings.Repeat("f", 65), // too long
		// Above the Starknet field prime.
		"0x800000000000011000000000000000000000000000000000000000000000001",
	}
	for _, addr := range invalid {
		if _, err := ValidateStarknetReceiveAddress(addr); err == nil {
			t.Errorf("Expected %q to be rejected", addr)
		}
	}
}
