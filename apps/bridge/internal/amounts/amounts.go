// Package amounts converts between base-unit integers and the decimal-string
// convention used by the swap engine. All arithmetic is done on strings and
// math/big — never float — to avoid precision errors.
//
// Base units are what the API and database use everywhere (e.g. "10000000"
// for 0.1 BTC); decimal strings (e.g. "0.1") exist only at the engine boundary.
package amounts

import (
	"fmt"
	"math/big"
	"strings"
)

// ToBaseUnits converts a decimal token amount to base units.
// Examples: "0.001" with 8 decimals -> 100000, "100" with 6 decimals -> 100000000.
// Fractional digits beyond the asset's decimals are truncated, not rounded.
func ToBaseUnits(amount string, decimals int) (*big.Int, error) {
	trimmed := strings.TrimSpace(amount)
	if trimmed == "" || strings.HasPrefix(trimmed, ".") || strings.HasSuffix(trimmed, ".") {
		return nil, fmt.Errorf("invalid token amount: %q", amount)
	}
	for _, r := range trimmed {
		if (r < '0' || r > '9') && r != '.' {
			return nil, fmt.Errorf("invalid token amount: %q", amount)
		}
	}
	if strings.Count(trimmed, ".") > 1 {
		return nil, fmt.Errorf("invalid token amount: %q", amount)
	}

	var digits string
	if before, after, found := strings.Cut(trimmed, "."); found {
		intPart := before
		if intPart == "0" {
			intPart = ""
		}
		if len(after) > decimals {
			after = after[:decimals]
		} else {
			after = after + strings.Repeat("0", decimals-len(after))
		}
		digits = intPart + after
	} else {
		digits = trimmed + strings.Repeat("0", decimals)
	}
	if digits == "" {
		digits = "0"
	}

	value, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return nil, fmt.Errorf("invalid token amount: %q", amount)
	}
	return value, nil
}

// ToDecimalString converts base units to a decimal token amount.
// Examples: 100000 with 8 decimals -> "0.001", 100000000 with 6 decimals -> "100".
// Input must be non-negative.
func ToDecimalString(baseUnits *big.Int, decimals int) string {
	if decimals <= 0 {
		scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(-decimals)), nil)
		return new(big.Int).Mul(baseUnits, scale).String()
	}

	str := baseUnits.String()
	if len(str) < decimals+1 {
		str = strings.Repeat("0", decimals+1-len(str)) + str
	}

	splitPoint := len(str) - decimals
	intPart := strings.TrimLeft(str[:splitPoint], "0")
	if intPart == "" {
		intPart = "0"
	}
	decPart := strings.TrimRight(str[splitPoint:], "0")
	if decPart == "" {
		return intPart
	}
	return intPart + "." + decPart
}
