package assets

import "strings"

// SourceDecimals is the decimal count of the source asset (BTC, satoshis).
const SourceDecimals = 8

// Asset represents a supported destination asset on Starknet.
type Asset struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Decimals int    `json:"decimals"`
}

// Registry holds all supported destination assets.
type Registry struct {
	assets map[string]*Asset
}

// NewRegistry creates a registry with all supported destination assets.
func NewRegistry() *Registry {
	registry := &Registry{assets: make(map[string]*Asset)}

	supportedAssets := []*Asset{
		{Symbol: "WBTC", Name: "Wrapped BTC", Decimals: 8},
		{Symbol: "TBTC", Name: "Threshold BTC", Decimals: 18},
		{Symbol: "ETH", Name: "Ether", Decimals: 18},
		{Symbol: "STRK", Name: "Starknet Token", Decimals: 18},
		{Symbol: "USDC", Name: "USD Coin", Decimals: 6},
		{Symbol: "USDT", Name: "Tether USD", Decimals: 6},
	}

	for _, asset := range supportedAssets {
		registry.assets[asset.Symbol] = asset
	}

	return registry
}

// GetBySymbol returns an asset by its symbol (case-insensitive).
func (r *Registry) GetBySymbol(symbol string) (*Asset, bool) {
	asset, exists := r.assets[strings.ToUpper(symbol)]
	return asset, exists
}

// IsSupported checks if a symbol is a supported destination asset.
func (r *Registry) IsSupported(symbol string) bool {
	_, exists := r.GetBySymbol(symbol)
	return exists
}

// SupportedSymbols returns all supported destination asset symbols.
func (r *Registry) SupportedSymbols() []string {
	symbols := make([]string, 0, len(r.assets))
	for symbol := range r.assets {
		symbols = append(symbols, symbol)
	}
	return symbols
}

// DestinationDecimals returns the decimal count for a destination asset,
// defaulting to 8 when the asset is unknown.
func (r *Registry) DestinationDecimals(symbol string) int {
	if asset, exists := r.GetBySymbol(symbol); exists {
		return asset.Decimals
	}
	return 8
}

// GlobalRegistry is the shared destination asset registry.
var GlobalRegistry = NewRegistry()
