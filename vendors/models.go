// Package vendors defines the registry records that map vendor identifiers to
// payout addresses.
package vendors

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/xraph/paymarket/types"
)

// Vendor is a registered payee.
type Vendor struct {
	types.Entity
	ID      uint64         `json:"id"`
	Address common.Address `json:"address"`
}
