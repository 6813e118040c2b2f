// Package observability provides a metrics extension for paymarket that
// records settlement and administration event counts via a MetricFactory.
package observability

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/xraph/paymarket/plugin"
	"github.com/xraph/paymarket/settlement"
	"github.com/xraph/paymarket/vendors"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin                 = (*MetricsExtension)(nil)
	_ plugin.OnOwnershipTransferred = (*MetricsExtension)(nil)
	_ plugin.OnPaused               = (*MetricsExtension)(nil)
	_ plugin.OnUnpaused             = (*MetricsExtension)(nil)
	_ plugin.OnTokenWhitelisted     = (*MetricsExtension)(nil)
	_ plugin.OnTokenRemoved         = (*MetricsExtension)(nil)
	_ plugin.OnVendorRegistered     = (*MetricsExtension)(nil)
	_ plugin.OnVendorUpdated        = (*MetricsExtension)(nil)
	_ plugin.OnFeeRateUpdated       = (*MetricsExtension)(nil)
	_ plugin.OnFeeRecipientUpdated  = (*MetricsExtension)(nil)
	_ plugin.OnPurchase             = (*MetricsExtension)(nil)
	_ plugin.OnSettlementRejected   = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records market-wide event metrics.
// Register it as a paymarket plugin to track settlements automatically.
type MetricsExtension struct {
	factory MetricFactory

	// Settlement metrics
	PurchasesNative  Counter
	PurchasesToken   Counter
	PurchaseRejected Counter
	SettledVolume    Histogram
	FeesCollected    Histogram

	// Administration metrics
	OwnershipTransferred Counter
	Paused               Counter
	Unpaused             Counter
	TokenWhitelisted     Counter
	TokenRemoved         Counter
	VendorRegistered     Counter
	VendorUpdated        Counter
	FeeRateUpdated       Counter
	FeeRecipientUpdated  Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		PurchasesNative:  factory.Counter("paymarket.purchase.native"),
		PurchasesToken:   factory.Counter("paymarket.purchase.token"),
		PurchaseRejected: factory.Counter("paymarket.purchase.rejected"),
		SettledVolume:    factory.Histogram("paymarket.purchase.gross_amount"),
		FeesCollected:    factory.Histogram("paymarket.purchase.fee_amount"),

		OwnershipTransferred: factory.Counter("paymarket.admin.ownership_transferred"),
		Paused:               factory.Counter("paymarket.admin.paused"),
		Unpaused:             factory.Counter("paymarket.admin.unpaused"),
		TokenWhitelisted:     factory.Counter("paymarket.admin.token_whitelisted"),
		TokenRemoved:         factory.Counter("paymarket.admin.token_removed"),
		VendorRegistered:     factory.Counter("paymarket.admin.vendor_registered"),
		VendorUpdated:        factory.Counter("paymarket.admin.vendor_updated"),
		FeeRateUpdated:       factory.Counter("paymarket.admin.fee_rate_updated"),
		FeeRecipientUpdated:  factory.Counter("paymarket.admin.fee_recipient_updated"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// ──────────────────────────────────────────────────
// Settlement hooks
// ──────────────────────────────────────────────────

// OnPurchase implements plugin.OnPurchase.
func (m *MetricsExtension) OnPurchase(_ context.Context, p *settlement.Purchase) error {
	if p.Native() {
		m.PurchasesNative.Inc()
	} else {
		m.PurchasesToken.Inc()
	}
	m.SettledVolume.Observe(toFloat(p.Gross))
	m.FeesCollected.Observe(toFloat(p.Fee))
	return nil
}

// OnSettlementRejected implements plugin.OnSettlementRejected.
func (m *MetricsExtension) OnSettlementRejected(_ context.Context, _ *settlement.Rejection) error {
	m.PurchaseRejected.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Administration hooks
// ──────────────────────────────────────────────────

// OnOwnershipTransferred implements plugin.OnOwnershipTransferred.
func (m *MetricsExtension) OnOwnershipTransferred(_ context.Context, _, _ common.Address) error {
	m.OwnershipTransferred.Inc()
	return nil
}

// OnPaused implements plugin.OnPaused.
func (m *MetricsExtension) OnPaused(_ context.Context, _ common.Address) error {
	m.Paused.Inc()
	return nil
}

// OnUnpaused implements plugin.OnUnpaused.
func (m *MetricsExtension) OnUnpaused(_ context.Context, _ common.Address) error {
	m.Unpaused.Inc()
	return nil
}

// OnTokenWhitelisted implements plugin.OnTokenWhitelisted.
func (m *MetricsExtension) OnTokenWhitelisted(_ context.Context, _ common.Address) error {
	m.TokenWhitelisted.Inc()
	return nil
}

// OnTokenRemoved implements plugin.OnTokenRemoved.
func (m *MetricsExtension) OnTokenRemoved(_ context.Context, _ common.Address) error {
	m.TokenRemoved.Inc()
	return nil
}

// OnVendorRegistered implements plugin.OnVendorRegistered.
func (m *MetricsExtension) OnVendorRegistered(_ context.Context, _ *vendors.Vendor) error {
	m.VendorRegistered.Inc()
	return nil
}

// OnVendorUpdated implements plugin.OnVendorUpdated.
func (m *MetricsExtension) OnVendorUpdated(_ context.Context, _ common.Address, _ *vendors.Vendor) error {
	m.VendorUpdated.Inc()
	return nil
}

// OnFeeRateUpdated implements plugin.OnFeeRateUpdated.
func (m *MetricsExtension) OnFeeRateUpdated(_ context.Context, _, _ uint32) error {
	m.FeeRateUpdated.Inc()
	return nil
}

// OnFeeRecipientUpdated implements plugin.OnFeeRecipientUpdated.
func (m *MetricsExtension) OnFeeRecipientUpdated(_ context.Context, _, _ common.Address) error {
	m.FeeRecipientUpdated.Inc()
	return nil
}

// toFloat converts a base-unit amount to the nearest float64.
func toFloat(v *uint256.Int) float64 {
	if v == nil {
		return 0
	}
	f, _ := new(big.Float).SetInt(v.ToBig()).Float64()
	return f
}
