// Package paymarket provides a push-payment marketplace ledger for Go
// applications.
//
// Customers pay registered vendors in native currency or in whitelisted
// fungible tokens. Every payment is split into a platform fee and a vendor
// payout and forwarded immediately; nothing is held in escrow. The market
// is a library, not a service. It provides:
//
//   - Integer-exact basis-point fee splitting on 256-bit amounts
//   - A vendor registry mapping vendor ids to payout addresses
//   - A token whitelist and a pause gate
//   - A single administrator who owns all configuration
//   - All-or-nothing settlement over a snapshot-capable funds backend
//   - Settlement events delivered to plugins (audit, metrics)
//
// # Quick Start
//
//	import (
//	    "github.com/xraph/paymarket"
//	    "github.com/xraph/paymarket/bank"
//	    "github.com/xraph/paymarket/store/memory"
//	)
//
//	book := bank.NewBook()
//	m := paymarket.New(memory.New(), book,
//	    paymarket.WithGenesis(admin, 100, feeRecipient), // 1% fee
//	)
//	if err := m.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer m.Stop()
//
// # Callers
//
// The account making a call travels in the context. Privileged calls
// compare it with the administrator:
//
//	adminCtx := paymarket.WithCaller(ctx, admin)
//	err := m.RegisterVendor(adminCtx, 1, vendorAddr)
//
//	buyerCtx := paymarket.WithCaller(ctx, buyer)
//	p, err := m.PurchaseWithNative(buyerCtx, 1, orderID, paymarket.Units(1, 18))
//
// # Settlement
//
// A purchase is checked in a fixed order (pause gate, non-zero amount,
// registered vendor, whitelisted token) and then executed inside a funds
// snapshot. The payment moves into the market's own account (Market.Address),
// the fee goes to the fee recipient and the remainder to the vendor. If any
// leg fails the snapshot is reverted and the call returns an error wrapping
// ErrTransferFailed. The Purchase event fires only after commit.
//
//	fee    = floor(amount * bps / 10000)
//	payout = amount - fee
//
// One market serialises all mutating calls and settlements. Calls made back
// into the market from inside a settlement (for example by a receiving
// account's hook) fail with ErrReentrantCall.
//
// # Storage
//
// The memory store suits tests. SQLite, PostgreSQL and MongoDB stores are
// built on Grove and share the same migrations-on-Start behaviour:
//
//	pmstore "github.com/xraph/paymarket/store/postgres"
//	m := paymarket.New(pmstore.New(db), funds, opts...)
//
// # TypeID
//
// Settlement records carry TypeIDs:
//
//	stl_01h2xcejqtf2nbrexx3vqjhp41    // Settlement ID
//	audit_01h455vb4pex5vsknk084sn02q  // Audit entry ID
package paymarket
