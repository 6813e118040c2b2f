package paymarket_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/xraph/paymarket"
	"github.com/xraph/paymarket/bank"
	"github.com/xraph/paymarket/control"
	"github.com/xraph/paymarket/settlement"
	"github.com/xraph/paymarket/store/memory"
	"github.com/xraph/paymarket/vendors"
)

var (
	admin    = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	feeSink  = common.HexToAddress("0x90F79bf6EB2c4f870365E785982E1f101E93b906")
	vendorA  = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	vendorB  = common.HexToAddress("0x15d34AAf54267DB7D7c367839AAf71A00a2C6A65")
	customer = common.HexToAddress("0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC")
	mallory  = common.HexToAddress("0x9965507D1a55bcC2695C58ba16FB37d819B0A4dc")
	usdc     = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
)

// events captures every hook the market fires.
type events struct {
	mu         sync.Mutex
	purchases  []*settlement.Purchase
	rejections []*settlement.Rejection
	registered []*vendors.Vendor
	updated    []*vendors.Vendor
	owners     []common.Address
	paused     int
	unpaused   int
	whitelist  []common.Address
	removed    []common.Address
	rates      []uint32
	recipients []common.Address
}

func (e *events) Name() string { return "events" }

func (e *events) OnPurchase(_ context.Context, p *settlement.Purchase) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.purchases = append(e.purchases, p)
	return nil
}

func (e *events) OnSettlementRejected(_ context.Context, r *settlement.Rejection) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rejections = append(e.rejections, r)
	return nil
}

func (e *events) OnVendorRegistered(_ context.Context, v *vendors.Vendor) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.registered = append(e.registered, v)
	return nil
}

func (e *events) OnVendorUpdated(_ context.Context, _ common.Address, v *vendors.Vendor) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.updated = append(e.updated, v)
	return nil
}

func (e *events) OnOwnershipTransferred(_ context.Context, _, next common.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.owners = append(e.owners, next)
	return nil
}

func (e *events) OnPaused(context.Context, common.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.paused++
	return nil
}

func (e *events) OnUnpaused(context.Context, common.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.unpaused++
	return nil
}

func (e *events) OnTokenWhitelisted(_ context.Context, token common.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.whitelist = append(e.whitelist, token)
	return nil
}

func (e *events) OnTokenRemoved(_ context.Context, token common.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.removed = append(e.removed, token)
	return nil
}

func (e *events) OnFeeRateUpdated(_ context.Context, _, next uint32) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rates = append(e.rates, next)
	return nil
}

func (e *events) OnFeeRecipientUpdated(_ context.Context, _, next common.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.recipients = append(e.recipients, next)
	return nil
}

type fixture struct {
	m      *paymarket.Market
	book   *bank.Book
	store  *memory.Store
	events *events

	adminCtx    context.Context
	customerCtx context.Context
	malloryCtx  context.Context
}

func newFixture(t *testing.T, opts ...paymarket.Option) *fixture {
	t.Helper()

	f := &fixture{
		book:   bank.NewBook(),
		store:  memory.New(),
		events: &events{},
	}

	opts = append([]paymarket.Option{
		paymarket.WithGenesis(admin, 100, feeSink),
		paymarket.WithPlugin(f.events),
	}, opts...)
	f.m = paymarket.New(f.store, f.book, opts...)

	ctx := context.Background()
	require.NoError(t, f.m.Start(ctx))
	t.Cleanup(func() { _ = f.m.Stop() })

	f.adminCtx = paymarket.WithCaller(ctx, admin)
	f.customerCtx = paymarket.WithCaller(ctx, customer)
	f.malloryCtx = paymarket.WithCaller(ctx, mallory)
	return f
}

func TestStartGenesis(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	owner, err := f.m.Owner(ctx)
	require.NoError(t, err)
	require.Equal(t, admin, owner)

	paused, err := f.m.Paused(ctx)
	require.NoError(t, err)
	require.False(t, paused)

	bps, err := f.m.FeeBasisPoints(ctx)
	require.NoError(t, err)
	require.Equal(t, uint32(100), bps)

	recipient, err := f.m.FeeRecipient(ctx)
	require.NoError(t, err)
	require.Equal(t, feeSink, recipient)

	require.Equal(t, crypto.CreateAddress(admin, 0), f.m.Address())

	tokens, err := f.m.WhitelistedTokens(ctx)
	require.NoError(t, err)
	require.Empty(t, tokens)

	registered, err := f.m.Vendors(ctx, vendors.ListOpts{})
	require.NoError(t, err)
	require.Empty(t, registered)
}

func TestStartKeepsStoredState(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	market := common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	require.NoError(t, s.SaveState(ctx, &control.State{Address: market, Admin: mallory}))

	m := paymarket.New(s, bank.NewBook(), paymarket.WithGenesis(admin, 100, feeSink))
	require.NoError(t, m.Start(ctx))

	owner, err := m.Owner(ctx)
	require.NoError(t, err)
	require.Equal(t, mallory, owner, "genesis must not overwrite existing state")
	require.Equal(t, market, m.Address())
}

func TestStartWithAddress(t *testing.T) {
	market := common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	f := newFixture(t, paymarket.WithAddress(market))
	require.Equal(t, market, f.m.Address())
}

func TestStartErrors(t *testing.T) {
	ctx := context.Background()

	m := paymarket.New(memory.New(), bank.NewBook())
	require.ErrorIs(t, m.Start(ctx), paymarket.ErrNotInitialized)

	_, err := m.Owner(ctx)
	require.ErrorIs(t, err, paymarket.ErrNotInitialized)

	m = paymarket.New(memory.New(), bank.NewBook(), paymarket.WithGenesis(admin, 10_001, feeSink))
	require.ErrorIs(t, m.Start(ctx), paymarket.ErrInvalidFeeRate)

	m = paymarket.New(memory.New(), bank.NewBook(), paymarket.WithGenesis(common.Address{}, 100, common.Address{}))
	err = m.Start(ctx)
	require.ErrorIs(t, err, paymarket.ErrInvalidAddress)
	var multi paymarket.MultiError
	require.True(t, errors.As(err, &multi))
	require.Len(t, multi.Errors, 2)
}

func TestPrivilegedCallsRejectNonAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := f.malloryCtx

	calls := map[string]func() error{
		"TransferOwnership":    func() error { return f.m.TransferOwnership(ctx, mallory) },
		"Pause":                func() error { return f.m.Pause(ctx) },
		"AddToWhitelist":       func() error { return f.m.AddToWhitelist(ctx, usdc) },
		"RemoveFromWhitelist":  func() error { return f.m.RemoveFromWhitelist(ctx, usdc) },
		"RegisterVendor":       func() error { return f.m.RegisterVendor(ctx, 1, mallory) },
		"UpdateVendorAddress":  func() error { return f.m.UpdateVendorAddress(ctx, 1, mallory) },
		"UpdateFeeBasisPoints": func() error { return f.m.UpdateFeeBasisPoints(ctx, 10_000) },
		"UpdateFeeRecipient":   func() error { return f.m.UpdateFeeRecipient(ctx, mallory) },
	}

	before, err := f.m.State(context.Background())
	require.NoError(t, err)

	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			require.ErrorIs(t, call(), paymarket.ErrUnauthorized)
		})
	}

	// unpause is checked against a paused market
	require.NoError(t, f.m.Pause(f.adminCtx))
	require.ErrorIs(t, f.m.Unpause(ctx), paymarket.ErrUnauthorized)
	require.NoError(t, f.m.Unpause(f.adminCtx))

	after, err := f.m.State(context.Background())
	require.NoError(t, err)
	require.Equal(t, before.Admin, after.Admin)
	require.Equal(t, before.Fee, after.Fee)
	require.False(t, after.Paused)

	listed, err := f.m.IsWhitelisted(context.Background(), usdc)
	require.NoError(t, err)
	require.False(t, listed)

	_, ok, err := f.m.VendorAddress(context.Background(), 1)
	require.NoError(t, err)
	require.False(t, ok)

	require.Empty(t, f.events.owners)
	require.Empty(t, f.events.registered)
	require.Empty(t, f.events.whitelist)
	require.Empty(t, f.events.rates)
	require.Empty(t, f.events.recipients)
}

func TestMissingCallerIsNotAdmin(t *testing.T) {
	f := newFixture(t)
	require.ErrorIs(t, f.m.Pause(context.Background()), paymarket.ErrUnauthorized)
}

func TestTransferOwnership(t *testing.T) {
	f := newFixture(t)

	require.ErrorIs(t, f.m.TransferOwnership(f.adminCtx, common.Address{}), paymarket.ErrInvalidAddress)

	next := common.HexToAddress("0x976EA74026E726554dB657fA54763abd0C3a0aa9")
	require.NoError(t, f.m.TransferOwnership(f.adminCtx, next))

	owner, err := f.m.Owner(context.Background())
	require.NoError(t, err)
	require.Equal(t, next, owner)

	// the previous admin lost its rights, the new one has them
	require.ErrorIs(t, f.m.Pause(f.adminCtx), paymarket.ErrUnauthorized)
	require.NoError(t, f.m.Pause(paymarket.WithCaller(context.Background(), next)))

	require.Equal(t, []common.Address{next}, f.events.owners)
	require.Equal(t, crypto.CreateAddress(admin, 0), f.m.Address(), "market address is stable across ownership changes")
}

func TestPauseUnpause(t *testing.T) {
	f := newFixture(t)

	require.ErrorIs(t, f.m.Unpause(f.adminCtx), paymarket.ErrNotPaused)

	require.NoError(t, f.m.Pause(f.adminCtx))
	paused, err := f.m.Paused(context.Background())
	require.NoError(t, err)
	require.True(t, paused)

	require.ErrorIs(t, f.m.Pause(f.adminCtx), paymarket.ErrContractPaused, "pausing twice is an error")

	require.NoError(t, f.m.Unpause(f.adminCtx))
	paused, err = f.m.Paused(context.Background())
	require.NoError(t, err)
	require.False(t, paused)

	require.Equal(t, 1, f.events.paused)
	require.Equal(t, 1, f.events.unpaused)
}

func TestWhitelist(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.ErrorIs(t, f.m.AddToWhitelist(f.adminCtx, paymarket.NativeToken), paymarket.ErrInvalidAddress)

	require.NoError(t, f.m.AddToWhitelist(f.adminCtx, usdc))
	require.NoError(t, f.m.AddToWhitelist(f.adminCtx, usdc), "add is idempotent")

	listed, err := f.m.IsWhitelisted(ctx, usdc)
	require.NoError(t, err)
	require.True(t, listed)

	require.NoError(t, f.m.RemoveFromWhitelist(f.adminCtx, usdc))
	require.NoError(t, f.m.RemoveFromWhitelist(f.adminCtx, usdc), "remove is idempotent")

	listed, err = f.m.IsWhitelisted(ctx, usdc)
	require.NoError(t, err)
	require.False(t, listed)

	require.Equal(t, []common.Address{usdc}, f.events.whitelist, "only real changes are announced")
	require.Equal(t, []common.Address{usdc}, f.events.removed)
}

func TestVendorRegistry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.ErrorIs(t, f.m.RegisterVendor(f.adminCtx, 1, common.Address{}), paymarket.ErrInvalidAddress)
	require.ErrorIs(t, f.m.UpdateVendorAddress(f.adminCtx, 1, vendorA), paymarket.ErrUnknownVendor)

	require.NoError(t, f.m.RegisterVendor(f.adminCtx, 1, vendorA))
	addr, ok, err := f.m.VendorAddress(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, vendorA, addr)

	// re-registration overwrites
	require.NoError(t, f.m.RegisterVendor(f.adminCtx, 1, vendorB))
	addr, _, err = f.m.VendorAddress(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, vendorB, addr)

	require.NoError(t, f.m.UpdateVendorAddress(f.adminCtx, 1, vendorA))
	v, err := f.m.Vendor(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, vendorA, v.Address)

	require.ErrorIs(t, f.m.UpdateVendorAddress(f.adminCtx, 1, common.Address{}), paymarket.ErrInvalidAddress)

	require.Len(t, f.events.registered, 2)
	require.Equal(t, uint64(1), f.events.registered[0].ID)
	require.Equal(t, vendorA, f.events.registered[0].Address)
	require.Len(t, f.events.updated, 1)
}

func TestFeePolicyUpdates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.m.UpdateFeeBasisPoints(f.adminCtx, 10_001)
	require.ErrorIs(t, err, paymarket.ErrInvalidFeeRate)
	bps, err := f.m.FeeBasisPoints(ctx)
	require.NoError(t, err)
	require.Equal(t, uint32(100), bps, "prior rate intact")

	require.NoError(t, f.m.UpdateFeeBasisPoints(f.adminCtx, 10_000))
	require.NoError(t, f.m.UpdateFeeBasisPoints(f.adminCtx, 0))
	bps, err = f.m.FeeBasisPoints(ctx)
	require.NoError(t, err)
	require.Equal(t, uint32(0), bps)

	require.ErrorIs(t, f.m.UpdateFeeRecipient(f.adminCtx, common.Address{}), paymarket.ErrInvalidAddress)
	require.NoError(t, f.m.UpdateFeeRecipient(f.adminCtx, vendorB))
	recipient, err := f.m.FeeRecipient(ctx)
	require.NoError(t, err)
	require.Equal(t, vendorB, recipient)

	require.Equal(t, []uint32{10_000, 0}, f.events.rates)
	require.Equal(t, []common.Address{vendorB}, f.events.recipients)
}
