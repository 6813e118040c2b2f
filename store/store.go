// Package store defines the persistence contract of a market. Drivers live
// in the memory, sqlite, postgres and mongo subpackages.
package store

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xraph/paymarket/control"
	"github.com/xraph/paymarket/vendors"
	"github.com/xraph/paymarket/whitelist"
)

// Store is the unified storage interface for all market records.
// A store holds exactly one market.
type Store interface {
	// State methods
	GetState(ctx context.Context) (*control.State, error)
	SaveState(ctx context.Context, s *control.State) error

	// Whitelist methods
	AddToken(ctx context.Context, t *whitelist.Token) error
	RemoveToken(ctx context.Context, token common.Address) error
	IsWhitelisted(ctx context.Context, token common.Address) (bool, error)
	ListTokens(ctx context.Context) ([]*whitelist.Token, error)

	// Vendor methods
	PutVendor(ctx context.Context, v *vendors.Vendor) error
	GetVendor(ctx context.Context, vendorID uint64) (*vendors.Vendor, error)
	ListVendors(ctx context.Context, opts vendors.ListOpts) ([]*vendors.Vendor, error)

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

var (
	_ control.Store   = Store(nil)
	_ vendors.Store   = Store(nil)
	_ whitelist.Store = Store(nil)
)
