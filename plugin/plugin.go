// Package plugin provides the hook system through which a market publishes
// its events. A plugin implements Plugin plus any subset of the hook
// interfaces below; the registry discovers them once at registration.
//
// Hooks run after the market lock is released, on the goroutine of the call
// that produced the event. Concurrent calls can therefore deliver events in a
// different order than they took effect: a purchase may reach a plugin after
// a later pause. Purchases carry settlement.Purchase.Sequence for reordering.
package plugin

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xraph/paymarket/settlement"
	"github.com/xraph/paymarket/vendors"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called once the market has started. m is the *paymarket.Market.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, m any) error
}

// OnShutdown is called when the market stops.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Administration hooks
// ──────────────────────────────────────────────────

// OnOwnershipTransferred is called after the administrator changes.
type OnOwnershipTransferred interface {
	Plugin
	OnOwnershipTransferred(ctx context.Context, previous, next common.Address) error
}

// OnPaused is called after the market is paused.
type OnPaused interface {
	Plugin
	OnPaused(ctx context.Context, by common.Address) error
}

// OnUnpaused is called after the market is unpaused.
type OnUnpaused interface {
	Plugin
	OnUnpaused(ctx context.Context, by common.Address) error
}

// OnTokenWhitelisted is called after a token is added to the whitelist.
type OnTokenWhitelisted interface {
	Plugin
	OnTokenWhitelisted(ctx context.Context, token common.Address) error
}

// OnTokenRemoved is called after a token is removed from the whitelist.
type OnTokenRemoved interface {
	Plugin
	OnTokenRemoved(ctx context.Context, token common.Address) error
}

// OnFeeRateUpdated is called after the fee rate changes.
type OnFeeRateUpdated interface {
	Plugin
	OnFeeRateUpdated(ctx context.Context, previous, next uint32) error
}

// OnFeeRecipientUpdated is called after the fee recipient changes.
type OnFeeRecipientUpdated interface {
	Plugin
	OnFeeRecipientUpdated(ctx context.Context, previous, next common.Address) error
}

// ──────────────────────────────────────────────────
// Vendor registry hooks
// ──────────────────────────────────────────────────

// OnVendorRegistered is the VendorRegistered event.
type OnVendorRegistered interface {
	Plugin
	OnVendorRegistered(ctx context.Context, v *vendors.Vendor) error
}

// OnVendorUpdated is called after a registered vendor's address changes.
type OnVendorUpdated interface {
	Plugin
	OnVendorUpdated(ctx context.Context, previous common.Address, v *vendors.Vendor) error
}

// ──────────────────────────────────────────────────
// Settlement hooks
// ──────────────────────────────────────────────────

// OnPurchase is the Purchase event, delivered after funds have moved.
type OnPurchase interface {
	Plugin
	OnPurchase(ctx context.Context, p *settlement.Purchase) error
}

// OnSettlementRejected is a diagnostic hook for purchases that failed.
// Nothing was transferred.
type OnSettlementRejected interface {
	Plugin
	OnSettlementRejected(ctx context.Context, r *settlement.Rejection) error
}
