package paymarket

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xraph/paymarket/control"
	"github.com/xraph/paymarket/fee"
	"github.com/xraph/paymarket/types"
	"github.com/xraph/paymarket/vendors"
	"github.com/xraph/paymarket/whitelist"
)

// privileged runs fn under the market lock after checking that the caller in
// ctx is the administrator. fn receives the current state; it must persist
// whatever it changes.
func (m *Market) privileged(ctx context.Context, fn func(ctx context.Context, st *control.State) error) error {
	lctx, release, err := m.enter(ctx)
	if err != nil {
		return err
	}
	defer release()

	st, err := m.state(lctx)
	if err != nil {
		return err
	}

	if caller := CallerFrom(lctx); caller != st.Admin {
		m.logger.Warn("unauthorized call rejected", "caller", caller.Hex())
		return ErrUnauthorized
	}

	return fn(lctx, st)
}

// ──────────────────────────────────────────────────
// Access control
// ──────────────────────────────────────────────────

// TransferOwnership hands administrator rights to next.
func (m *Market) TransferOwnership(ctx context.Context, next common.Address) error {
	var previous common.Address
	err := m.privileged(ctx, func(ctx context.Context, st *control.State) error {
		if next == (common.Address{}) {
			return fmt.Errorf("%w: new owner", ErrInvalidAddress)
		}
		previous = st.Admin
		st.Admin = next
		return m.store.SaveState(ctx, st)
	})
	if err != nil {
		return err
	}

	m.logger.Info("ownership transferred", "previous", previous.Hex(), "next", next.Hex())
	m.plugins.EmitOwnershipTransferred(ctx, previous, next)
	return nil
}

// ──────────────────────────────────────────────────
// Pause gate
// ──────────────────────────────────────────────────

// Pause halts settlement. Pausing a paused market fails with
// ErrContractPaused.
func (m *Market) Pause(ctx context.Context) error {
	err := m.privileged(ctx, func(ctx context.Context, st *control.State) error {
		if st.Paused {
			return ErrContractPaused
		}
		st.Paused = true
		return m.store.SaveState(ctx, st)
	})
	if err != nil {
		return err
	}

	by := CallerFrom(ctx)
	m.logger.Info("market paused", "by", by.Hex())
	m.plugins.EmitPaused(ctx, by)
	return nil
}

// Unpause resumes settlement. Unpausing a running market fails with
// ErrNotPaused.
func (m *Market) Unpause(ctx context.Context) error {
	err := m.privileged(ctx, func(ctx context.Context, st *control.State) error {
		if !st.Paused {
			return ErrNotPaused
		}
		st.Paused = false
		return m.store.SaveState(ctx, st)
	})
	if err != nil {
		return err
	}

	by := CallerFrom(ctx)
	m.logger.Info("market unpaused", "by", by.Hex())
	m.plugins.EmitUnpaused(ctx, by)
	return nil
}

// ──────────────────────────────────────────────────
// Token whitelist
// ──────────────────────────────────────────────────

// AddToWhitelist accepts token for payment. Adding a listed token is a no-op.
func (m *Market) AddToWhitelist(ctx context.Context, token common.Address) error {
	var added bool
	err := m.privileged(ctx, func(ctx context.Context, _ *control.State) error {
		if types.IsNative(token) {
			return fmt.Errorf("%w: token", ErrInvalidAddress)
		}
		listed, err := m.store.IsWhitelisted(ctx, token)
		if err != nil || listed {
			return err
		}
		added = true
		return m.store.AddToken(ctx, &whitelist.Token{Address: token, CreatedAt: time.Now().UTC()})
	})
	if err != nil || !added {
		return err
	}

	m.logger.Info("token whitelisted", "token", token.Hex())
	m.plugins.EmitTokenWhitelisted(ctx, token)
	return nil
}

// RemoveFromWhitelist stops accepting token. Removing an absent token is a
// no-op.
func (m *Market) RemoveFromWhitelist(ctx context.Context, token common.Address) error {
	var removed bool
	err := m.privileged(ctx, func(ctx context.Context, _ *control.State) error {
		listed, err := m.store.IsWhitelisted(ctx, token)
		if err != nil || !listed {
			return err
		}
		removed = true
		return m.store.RemoveToken(ctx, token)
	})
	if err != nil || !removed {
		return err
	}

	m.logger.Info("token removed from whitelist", "token", token.Hex())
	m.plugins.EmitTokenRemoved(ctx, token)
	return nil
}

// IsWhitelisted reports whether token is accepted for payment.
func (m *Market) IsWhitelisted(ctx context.Context, token common.Address) (bool, error) {
	return m.store.IsWhitelisted(ctx, token)
}

// WhitelistedTokens lists every accepted token.
func (m *Market) WhitelistedTokens(ctx context.Context) ([]*whitelist.Token, error) {
	return m.store.ListTokens(ctx)
}

// ──────────────────────────────────────────────────
// Vendor registry
// ──────────────────────────────────────────────────

// RegisterVendor maps vendorID to a payout address, replacing any existing
// mapping, and emits VendorRegistered.
func (m *Market) RegisterVendor(ctx context.Context, vendorID uint64, addr common.Address) error {
	var v *vendors.Vendor
	err := m.privileged(ctx, func(ctx context.Context, _ *control.State) error {
		if addr == (common.Address{}) {
			return fmt.Errorf("%w: vendor %d", ErrInvalidAddress, vendorID)
		}
		v = &vendors.Vendor{Entity: types.NewEntity(), ID: vendorID, Address: addr}
		if existing, err := m.store.GetVendor(ctx, vendorID); err == nil {
			v.CreatedAt = existing.CreatedAt
		} else if !errors.Is(err, ErrVendorNotFound) {
			return err
		}
		return m.store.PutVendor(ctx, v)
	})
	if err != nil {
		return err
	}

	m.logger.Info("vendor registered", "vendor_id", vendorID, "address", addr.Hex())
	m.plugins.EmitVendorRegistered(ctx, v)
	return nil
}

// UpdateVendorAddress changes the payout address of a registered vendor.
// Unregistered vendors fail with ErrUnknownVendor.
func (m *Market) UpdateVendorAddress(ctx context.Context, vendorID uint64, addr common.Address) error {
	var (
		v        *vendors.Vendor
		previous common.Address
	)
	err := m.privileged(ctx, func(ctx context.Context, _ *control.State) error {
		if addr == (common.Address{}) {
			return fmt.Errorf("%w: vendor %d", ErrInvalidAddress, vendorID)
		}
		existing, err := m.store.GetVendor(ctx, vendorID)
		if err != nil {
			if errors.Is(err, ErrVendorNotFound) {
				return fmt.Errorf("%w: %d", ErrUnknownVendor, vendorID)
			}
			return err
		}
		previous = existing.Address
		existing.Address = addr
		existing.Touch()
		v = existing
		return m.store.PutVendor(ctx, v)
	})
	if err != nil {
		return err
	}

	m.logger.Info("vendor address updated", "vendor_id", vendorID, "previous", previous.Hex(), "address", addr.Hex())
	m.plugins.EmitVendorUpdated(ctx, previous, v)
	return nil
}

// VendorAddress resolves the payout address of vendorID. ok is false when the
// vendor is not registered.
func (m *Market) VendorAddress(ctx context.Context, vendorID uint64) (addr common.Address, ok bool, err error) {
	v, err := m.store.GetVendor(ctx, vendorID)
	if err != nil {
		if errors.Is(err, ErrVendorNotFound) {
			return common.Address{}, false, nil
		}
		return common.Address{}, false, err
	}
	return v.Address, true, nil
}

// Vendor returns the registry record of vendorID.
func (m *Market) Vendor(ctx context.Context, vendorID uint64) (*vendors.Vendor, error) {
	return m.store.GetVendor(ctx, vendorID)
}

// Vendors lists registered vendors ordered by id.
func (m *Market) Vendors(ctx context.Context, opts vendors.ListOpts) ([]*vendors.Vendor, error) {
	return m.store.ListVendors(ctx, opts)
}

// ──────────────────────────────────────────────────
// Fee policy
// ──────────────────────────────────────────────────

// UpdateFeeBasisPoints sets the fee rate for subsequent settlements.
func (m *Market) UpdateFeeBasisPoints(ctx context.Context, bps uint32) error {
	var previous uint32
	err := m.privileged(ctx, func(ctx context.Context, st *control.State) error {
		next := fee.Policy{BasisPoints: bps, Recipient: st.Fee.Recipient}
		if err := next.Validate(); err != nil {
			return fmt.Errorf("%w: %d", ErrInvalidFeeRate, bps)
		}
		previous = st.Fee.BasisPoints
		st.Fee = next
		return m.store.SaveState(ctx, st)
	})
	if err != nil {
		return err
	}

	m.logger.Info("fee rate updated", "previous_bps", previous, "bps", bps)
	m.plugins.EmitFeeRateUpdated(ctx, previous, bps)
	return nil
}

// UpdateFeeRecipient sets the address that collects fees.
func (m *Market) UpdateFeeRecipient(ctx context.Context, recipient common.Address) error {
	var previous common.Address
	err := m.privileged(ctx, func(ctx context.Context, st *control.State) error {
		if recipient == (common.Address{}) {
			return fmt.Errorf("%w: fee recipient", ErrInvalidAddress)
		}
		previous = st.Fee.Recipient
		st.Fee.Recipient = recipient
		return m.store.SaveState(ctx, st)
	})
	if err != nil {
		return err
	}

	m.logger.Info("fee recipient updated", "previous", previous.Hex(), "recipient", recipient.Hex())
	m.plugins.EmitFeeRecipientUpdated(ctx, previous, recipient)
	return nil
}
