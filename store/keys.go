package store

import (
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
)

// StateKey is the primary key of the single state row.
const StateKey = "market"

// VendorKey encodes a vendor id as a fixed-width decimal string so text
// ordering matches numeric ordering in every driver.
func VendorKey(vendorID uint64) string {
	return fmt.Sprintf("%020d", vendorID)
}

// ParseVendorKey reverses VendorKey.
func ParseVendorKey(s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("store: bad vendor key %q: %w", s, err)
	}
	return v, nil
}

// ParseAddress decodes a stored hex address.
func ParseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("store: bad address %q", s)
	}
	return common.HexToAddress(s), nil
}
