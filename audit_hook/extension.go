// Package audithook bridges market events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not import an
// audit backend directly. Callers inject a RecorderFunc adapter that bridges
// to their backend at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xraph/paymarket/id"
	"github.com/xraph/paymarket/plugin"
	"github.com/xraph/paymarket/settlement"
	"github.com/xraph/paymarket/vendors"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin                 = (*Extension)(nil)
	_ plugin.OnOwnershipTransferred = (*Extension)(nil)
	_ plugin.OnPaused               = (*Extension)(nil)
	_ plugin.OnUnpaused             = (*Extension)(nil)
	_ plugin.OnTokenWhitelisted     = (*Extension)(nil)
	_ plugin.OnTokenRemoved         = (*Extension)(nil)
	_ plugin.OnVendorRegistered     = (*Extension)(nil)
	_ plugin.OnVendorUpdated        = (*Extension)(nil)
	_ plugin.OnFeeRateUpdated       = (*Extension)(nil)
	_ plugin.OnFeeRecipientUpdated  = (*Extension)(nil)
	_ plugin.OnPurchase             = (*Extension)(nil)
	_ plugin.OnSettlementRejected   = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
type AuditEvent struct {
	ID         id.AuditID     `json:"id"`
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges market events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Access control hooks
// ──────────────────────────────────────────────────

// OnOwnershipTransferred implements plugin.OnOwnershipTransferred.
func (e *Extension) OnOwnershipTransferred(ctx context.Context, previous, next common.Address) error {
	return e.record(ctx, ActionOwnershipTransferred, SeverityCritical, OutcomeSuccess,
		ResourceMarket, "", CategoryAccess, nil,
		"previous", previous.Hex(),
		"next", next.Hex(),
	)
}

// OnPaused implements plugin.OnPaused.
func (e *Extension) OnPaused(ctx context.Context, by common.Address) error {
	return e.record(ctx, ActionMarketPaused, SeverityWarning, OutcomeSuccess,
		ResourceMarket, "", CategoryAccess, nil,
		"by", by.Hex(),
	)
}

// OnUnpaused implements plugin.OnUnpaused.
func (e *Extension) OnUnpaused(ctx context.Context, by common.Address) error {
	return e.record(ctx, ActionMarketUnpaused, SeverityInfo, OutcomeSuccess,
		ResourceMarket, "", CategoryAccess, nil,
		"by", by.Hex(),
	)
}

// ──────────────────────────────────────────────────
// Whitelist and vendor hooks
// ──────────────────────────────────────────────────

// OnTokenWhitelisted implements plugin.OnTokenWhitelisted.
func (e *Extension) OnTokenWhitelisted(ctx context.Context, token common.Address) error {
	return e.record(ctx, ActionTokenWhitelisted, SeverityInfo, OutcomeSuccess,
		ResourceToken, token.Hex(), CategoryConfig, nil,
	)
}

// OnTokenRemoved implements plugin.OnTokenRemoved.
func (e *Extension) OnTokenRemoved(ctx context.Context, token common.Address) error {
	return e.record(ctx, ActionTokenRemoved, SeverityInfo, OutcomeSuccess,
		ResourceToken, token.Hex(), CategoryConfig, nil,
	)
}

// OnVendorRegistered implements plugin.OnVendorRegistered.
func (e *Extension) OnVendorRegistered(ctx context.Context, v *vendors.Vendor) error {
	return e.record(ctx, ActionVendorRegistered, SeverityInfo, OutcomeSuccess,
		ResourceVendor, strconv.FormatUint(v.ID, 10), CategoryRegistry, nil,
		"address", v.Address.Hex(),
	)
}

// OnVendorUpdated implements plugin.OnVendorUpdated.
func (e *Extension) OnVendorUpdated(ctx context.Context, previous common.Address, v *vendors.Vendor) error {
	return e.record(ctx, ActionVendorUpdated, SeverityWarning, OutcomeSuccess,
		ResourceVendor, strconv.FormatUint(v.ID, 10), CategoryRegistry, nil,
		"previous", previous.Hex(),
		"address", v.Address.Hex(),
	)
}

// ──────────────────────────────────────────────────
// Fee hooks
// ──────────────────────────────────────────────────

// OnFeeRateUpdated implements plugin.OnFeeRateUpdated.
func (e *Extension) OnFeeRateUpdated(ctx context.Context, previous, next uint32) error {
	return e.record(ctx, ActionFeeRateUpdated, SeverityWarning, OutcomeSuccess,
		ResourceFee, "", CategoryConfig, nil,
		"previous_bps", previous,
		"bps", next,
	)
}

// OnFeeRecipientUpdated implements plugin.OnFeeRecipientUpdated.
func (e *Extension) OnFeeRecipientUpdated(ctx context.Context, previous, next common.Address) error {
	return e.record(ctx, ActionFeeRecipientUpdated, SeverityWarning, OutcomeSuccess,
		ResourceFee, "", CategoryConfig, nil,
		"previous", previous.Hex(),
		"recipient", next.Hex(),
	)
}

// ──────────────────────────────────────────────────
// Settlement hooks
// ──────────────────────────────────────────────────

// OnPurchase implements plugin.OnPurchase.
func (e *Extension) OnPurchase(ctx context.Context, p *settlement.Purchase) error {
	return e.record(ctx, ActionPurchaseSettled, SeverityInfo, OutcomeSuccess,
		ResourceSettlement, p.ID.String(), CategorySettlement, nil,
		"payer", p.Payer.Hex(),
		"vendor_id", p.VendorID,
		"order_id", p.OrderID,
		"path", p.Path(),
		"token", p.Token.Hex(),
		"gross", p.Gross.Dec(),
		"fee", p.Fee.Dec(),
		"amount_after_fee", p.AmountAfterFee.Dec(),
	)
}

// OnSettlementRejected implements plugin.OnSettlementRejected.
func (e *Extension) OnSettlementRejected(ctx context.Context, r *settlement.Rejection) error {
	amount := "0"
	if r.Amount != nil {
		amount = r.Amount.Dec()
	}
	return e.record(ctx, ActionPurchaseRejected, SeverityWarning, OutcomeFailure,
		ResourceSettlement, "", CategorySettlement, r.Err,
		"payer", r.Payer.Hex(),
		"vendor_id", r.VendorID,
		"order_id", r.OrderID,
		"path", r.Path,
		"token", r.Token.Hex(),
		"amount", amount,
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		ID:         id.NewAuditID(),
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
		OccurredAt: time.Now().UTC(),
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
