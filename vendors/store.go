package vendors

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

type Store interface {
	PutVendor(ctx context.Context, v *Vendor) error
	GetVendor(ctx context.Context, vendorID uint64) (*Vendor, error)
	ListVendors(ctx context.Context, opts ListOpts) ([]*Vendor, error)
}

type ListOpts struct {
	Address common.Address // filter by payout address when non-zero
	Limit   int
	Offset  int
}
