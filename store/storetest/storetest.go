// Package storetest is a conformance suite for store.Store drivers.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/xraph/paymarket"
	"github.com/xraph/paymarket/control"
	"github.com/xraph/paymarket/store"
	"github.com/xraph/paymarket/types"
	"github.com/xraph/paymarket/vendors"
	"github.com/xraph/paymarket/whitelist"
)

// Factory returns a fresh, migrated, empty store.
type Factory func(t *testing.T) store.Store

// Run exercises every Store method against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	t.Run("State", func(t *testing.T) { testState(t, newStore(t)) })
	t.Run("Whitelist", func(t *testing.T) { testWhitelist(t, newStore(t)) })
	t.Run("Vendors", func(t *testing.T) { testVendors(t, newStore(t)) })
	t.Run("VendorPaging", func(t *testing.T) { testVendorPaging(t, newStore(t)) })
}

var (
	admin     = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	recipient = common.HexToAddress("0x00000000000000000000000000000000000000fe")
	usdc      = common.HexToAddress("0x00000000000000000000000000000000000005dc")
	dai       = common.HexToAddress("0x000000000000000000000000000000000000da10")
)

func testState(t *testing.T, s store.Store) {
	ctx := context.Background()

	_, err := s.GetState(ctx)
	require.ErrorIs(t, err, paymarket.ErrStateNotFound)

	st := control.Genesis(admin, 100, recipient)
	require.NoError(t, s.SaveState(ctx, st))

	got, err := s.GetState(ctx)
	require.NoError(t, err)
	require.Equal(t, admin, got.Admin)
	require.False(t, got.Paused)
	require.Equal(t, uint32(100), got.Fee.BasisPoints)
	require.Equal(t, recipient, got.Fee.Recipient)

	got.Paused = true
	got.Fee.BasisPoints = 250
	require.NoError(t, s.SaveState(ctx, got))

	again, err := s.GetState(ctx)
	require.NoError(t, err)
	require.True(t, again.Paused)
	require.Equal(t, uint32(250), again.Fee.BasisPoints)
}

func testWhitelist(t *testing.T, s store.Store) {
	ctx := context.Background()

	ok, err := s.IsWhitelisted(ctx, usdc)
	require.NoError(t, err)
	require.False(t, ok)

	now := time.Now().UTC()
	require.NoError(t, s.AddToken(ctx, &whitelist.Token{Address: usdc, CreatedAt: now}))
	require.NoError(t, s.AddToken(ctx, &whitelist.Token{Address: usdc, CreatedAt: now}), "add is idempotent")
	require.NoError(t, s.AddToken(ctx, &whitelist.Token{Address: dai, CreatedAt: now}))

	ok, err = s.IsWhitelisted(ctx, usdc)
	require.NoError(t, err)
	require.True(t, ok)

	tokens, err := s.ListTokens(ctx)
	require.NoError(t, err)
	require.Len(t, tokens, 2)

	require.NoError(t, s.RemoveToken(ctx, usdc))
	require.NoError(t, s.RemoveToken(ctx, usdc), "remove is idempotent")

	ok, err = s.IsWhitelisted(ctx, usdc)
	require.NoError(t, err)
	require.False(t, ok)
}

func testVendors(t *testing.T, s store.Store) {
	ctx := context.Background()

	_, err := s.GetVendor(ctx, 7)
	require.ErrorIs(t, err, paymarket.ErrVendorNotFound)

	first := common.HexToAddress("0x0000000000000000000000000000000000000b01")
	second := common.HexToAddress("0x0000000000000000000000000000000000000b02")

	v := &vendors.Vendor{Entity: types.NewEntity(), ID: 7, Address: first}
	require.NoError(t, s.PutVendor(ctx, v))

	got, err := s.GetVendor(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, first, got.Address)
	created := got.CreatedAt

	v2 := &vendors.Vendor{Entity: types.NewEntity(), ID: 7, Address: second}
	require.NoError(t, s.PutVendor(ctx, v2))

	got, err = s.GetVendor(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, second, got.Address, "put overwrites the payout address")
	require.WithinDuration(t, created, got.CreatedAt, time.Second, "created_at survives overwrite")
}

func testVendorPaging(t *testing.T, s store.Store) {
	ctx := context.Background()
	shared := common.HexToAddress("0x0000000000000000000000000000000000000c0c")

	for _, id := range []uint64{30, 2, 100, 11} {
		addr := shared
		if id == 100 {
			addr = common.HexToAddress("0x0000000000000000000000000000000000000d0d")
		}
		require.NoError(t, s.PutVendor(ctx, &vendors.Vendor{Entity: types.NewEntity(), ID: id, Address: addr}))
	}

	all, err := s.ListVendors(ctx, vendors.ListOpts{})
	require.NoError(t, err)
	require.Equal(t, []uint64{2, 11, 30, 100}, ids(all))

	page, err := s.ListVendors(ctx, vendors.ListOpts{Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Equal(t, []uint64{11, 30}, ids(page))

	byAddr, err := s.ListVendors(ctx, vendors.ListOpts{Address: shared})
	require.NoError(t, err)
	require.Equal(t, []uint64{2, 11, 30}, ids(byAddr))
}

func ids(vs []*vendors.Vendor) []uint64 {
	out := make([]uint64, len(vs))
	for i, v := range vs {
		out[i] = v.ID
	}
	return out
}
