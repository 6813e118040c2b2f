// Package fee holds the platform fee policy: a basis-point rate and the
// address that collects it.
package fee

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// MaxBasisPoints caps the fee at 100% of the payment.
const MaxBasisPoints uint32 = 10_000

// ErrRateTooHigh is returned by Validate when the rate exceeds MaxBasisPoints.
var ErrRateTooHigh = errors.New("fee: basis points exceed 10000")

var denominator = uint256.NewInt(uint64(MaxBasisPoints))

// Policy is the fee configuration applied to every settlement.
type Policy struct {
	BasisPoints uint32         `json:"basis_points"`
	Recipient   common.Address `json:"recipient"`
}

// Validate reports whether the rate is within [0, MaxBasisPoints].
func (p Policy) Validate() error {
	if p.BasisPoints > MaxBasisPoints {
		return fmt.Errorf("%w: %d", ErrRateTooHigh, p.BasisPoints)
	}
	return nil
}

// Split divides amount into the platform fee and the vendor payout.
//
//	fee    = floor(amount * bps / 10000)
//	payout = amount - fee
//
// The product is computed at 512 bits so large amounts cannot overflow, and
// the truncation remainder stays with the payout. A nil amount splits as zero.
func (p Policy) Split(amount *uint256.Int) (fee, payout *uint256.Int) {
	if amount == nil {
		return new(uint256.Int), new(uint256.Int)
	}

	bps := uint256.NewInt(uint64(min(p.BasisPoints, MaxBasisPoints)))
	fee, _ = new(uint256.Int).MulDivOverflow(amount, bps, denominator)
	payout = new(uint256.Int).Sub(amount, fee)
	return fee, payout
}
