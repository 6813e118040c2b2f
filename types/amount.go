package types

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// NativeToken is the reserved token identifier that marks a payment made in
// the native currency.
var NativeToken = common.Address{}

// IsNative reports whether token is the native-currency marker.
func IsNative(token common.Address) bool {
	return token == NativeToken
}

// Common denominations.
const (
	NativeDecimals = 18 // wei per native unit
	StableDecimals = 6  // typical fiat-backed token
)

var errBadAmount = errors.New("types: invalid amount")

// ParseAmount parses a base-10 integer amount in base units. Hex input with a
// 0x prefix is accepted as well.
func ParseAmount(s string) (*uint256.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty string", errBadAmount)
	}

	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		v, err := uint256.FromHex(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %w", errBadAmount, s, err)
		}
		return v, nil
	}

	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", errBadAmount, s, err)
	}
	return v, nil
}

// MustParseAmount is like ParseAmount but panics on error. Intended for tests
// and constants.
func MustParseAmount(s string) *uint256.Int {
	v, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return v
}

// Units returns n whole units scaled by 10^decimals.
func Units(n uint64, decimals uint8) *uint256.Int {
	scale := new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(uint64(decimals)))
	return scale.Mul(scale, uint256.NewInt(n))
}

// FormatUnits renders a base-unit amount as a decimal string with the given
// number of fractional digits. Trailing zeros in the fraction are trimmed.
//
//	FormatUnits(990000000000000000, 18) = "0.99"
//	FormatUnits(9900000, 6)             = "9.9"
func FormatUnits(amount *uint256.Int, decimals uint8) string {
	if amount == nil {
		return "0"
	}

	digits := amount.Dec()
	if decimals == 0 {
		return digits
	}

	d := int(decimals)
	if len(digits) <= d {
		digits = strings.Repeat("0", d-len(digits)+1) + digits
	}

	whole := digits[:len(digits)-d]
	frac := strings.TrimRight(digits[len(digits)-d:], "0")
	if frac == "" {
		return whole
	}
	return whole + "." + frac
}
