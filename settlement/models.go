// Package settlement describes the record emitted for every completed
// purchase. Records are published to plugins and never stored by the market.
package settlement

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/xraph/paymarket/id"
	"github.com/xraph/paymarket/types"
)

// Purchase is the settlement record of one payment.
type Purchase struct {
	ID             id.SettlementID `json:"id"`
	Payer          common.Address  `json:"payer"`
	VendorID       uint64          `json:"vendor_id"`
	OrderID        uint64          `json:"order_id"`
	AmountAfterFee *uint256.Int    `json:"amount_after_fee"`
	Token          common.Address  `json:"token"`

	Gross        *uint256.Int   `json:"gross"`
	Fee          *uint256.Int   `json:"fee"`
	FeeRecipient common.Address `json:"fee_recipient"`
	Vendor       common.Address `json:"vendor"`
	SettledAt    time.Time      `json:"settled_at"`

	// Sequence is assigned while the market lock is held and increases by
	// one per settlement in this process. Hooks may deliver purchases out of
	// order; sort by Sequence to recover settlement order.
	Sequence uint64 `json:"sequence"`
}

// Native reports whether the purchase was paid in the native currency.
func (p *Purchase) Native() bool {
	return types.IsNative(p.Token)
}

// Path labels the payment path for metrics and logs.
func (p *Purchase) Path() string {
	if p.Native() {
		return PathNative
	}
	return PathToken
}

// Payment paths.
const (
	PathNative = "native"
	PathToken  = "token"
)

// Rejection describes a settlement that failed validation or transfer.
type Rejection struct {
	Payer    common.Address `json:"payer"`
	VendorID uint64         `json:"vendor_id"`
	OrderID  uint64         `json:"order_id"`
	Token    common.Address `json:"token"`
	Amount   *uint256.Int   `json:"amount,omitempty"`
	Path     string         `json:"path"`
	Err      error          `json:"-"`
}
