package paymarket

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/xraph/paymarket/control"
	"github.com/xraph/paymarket/id"
	"github.com/xraph/paymarket/settlement"
	"github.com/xraph/paymarket/types"
)

type payment struct {
	payer    common.Address
	vendorID uint64
	orderID  uint64
	amount   *uint256.Int
	token    common.Address
	path     string
}

// PurchaseWithNative pays vendorID for orderID with value in native currency,
// debited from the caller in ctx.
func (m *Market) PurchaseWithNative(ctx context.Context, vendorID, orderID uint64, value *uint256.Int) (*settlement.Purchase, error) {
	return m.purchase(ctx, payment{
		payer:    CallerFrom(ctx),
		vendorID: vendorID,
		orderID:  orderID,
		amount:   value,
		token:    types.NativeToken,
		path:     settlement.PathNative,
	})
}

// PurchaseWithToken pays vendorID for orderID with amount of token. The
// caller in ctx must have approved the market's address to pull amount.
func (m *Market) PurchaseWithToken(ctx context.Context, vendorID, orderID uint64, amount *uint256.Int, token common.Address) (*settlement.Purchase, error) {
	return m.purchase(ctx, payment{
		payer:    CallerFrom(ctx),
		vendorID: vendorID,
		orderID:  orderID,
		amount:   amount,
		token:    token,
		path:     settlement.PathToken,
	})
}

func (m *Market) purchase(ctx context.Context, pay payment) (*settlement.Purchase, error) {
	p, err := m.settle(ctx, pay)
	if err != nil {
		m.logger.Warn("purchase rejected",
			"payer", pay.payer.Hex(),
			"vendor_id", pay.vendorID,
			"order_id", pay.orderID,
			"path", pay.path,
			"error", err,
		)
		m.plugins.EmitSettlementRejected(ctx, &settlement.Rejection{
			Payer:    pay.payer,
			VendorID: pay.vendorID,
			OrderID:  pay.orderID,
			Token:    pay.token,
			Amount:   pay.amount,
			Path:     pay.path,
			Err:      err,
		})
		return nil, err
	}

	m.logger.Info("purchase settled",
		"settlement_id", p.ID.String(),
		"payer", p.Payer.Hex(),
		"vendor_id", p.VendorID,
		"order_id", p.OrderID,
		"token", p.Token.Hex(),
		"gross", p.Gross.Dec(),
		"fee", p.Fee.Dec(),
		"amount_after_fee", p.AmountAfterFee.Dec(),
	)
	m.plugins.EmitPurchase(ctx, p)
	return p, nil
}

// settle validates and executes one payment under the market lock. Checks run
// in a fixed order and the first failure wins.
func (m *Market) settle(ctx context.Context, pay payment) (*settlement.Purchase, error) {
	lctx, release, err := m.enter(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	st, err := m.state(lctx)
	if err != nil {
		return nil, err
	}

	if st.Paused {
		return nil, ErrContractPaused
	}
	if pay.amount == nil || pay.amount.IsZero() {
		return nil, ErrZeroAmount
	}

	v, err := m.store.GetVendor(lctx, pay.vendorID)
	if err != nil {
		if errors.Is(err, ErrVendorNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrUnknownVendor, pay.vendorID)
		}
		return nil, err
	}

	if pay.path == settlement.PathToken {
		listed, err := m.store.IsWhitelisted(lctx, pay.token)
		if err != nil {
			return nil, err
		}
		if !listed {
			return nil, fmt.Errorf("%w: %s", ErrTokenNotWhitelisted, pay.token.Hex())
		}
	}

	amount := new(uint256.Int).Set(pay.amount)
	feeAmt, payout := st.Fee.Split(amount)

	snap := m.funds.Snapshot()
	if err := m.transfer(lctx, st, pay, v.Address, amount, feeAmt, payout); err != nil {
		m.funds.RevertToSnapshot(snap)
		return nil, fmt.Errorf("%w: %w", ErrTransferFailed, err)
	}
	m.funds.Commit(snap)
	m.seq++

	return &settlement.Purchase{
		ID:             id.NewSettlementID(),
		Payer:          pay.payer,
		VendorID:       pay.vendorID,
		OrderID:        pay.orderID,
		AmountAfterFee: payout,
		Token:          pay.token,
		Gross:          amount,
		Fee:            feeAmt,
		FeeRecipient:   st.Fee.Recipient,
		Vendor:         v.Address,
		SettledAt:      time.Now().UTC(),
		Sequence:       m.seq,
	}, nil
}

// transfer pulls the payment into the market account, then pays the fee
// recipient and the vendor. Zero-value legs are skipped.
func (m *Market) transfer(ctx context.Context, st *control.State, pay payment, vendorAddr common.Address, amount, feeAmt, payout *uint256.Int) error {
	if pay.path == settlement.PathToken {
		if err := m.funds.TransferFrom(ctx, pay.token, st.Address, pay.payer, st.Address, amount); err != nil {
			return fmt.Errorf("pull %s from payer: %w", pay.token.Hex(), err)
		}
	} else {
		if err := m.funds.Transfer(ctx, pay.token, pay.payer, st.Address, amount); err != nil {
			return fmt.Errorf("attach value: %w", err)
		}
	}

	if !feeAmt.IsZero() {
		if err := m.funds.Transfer(ctx, pay.token, st.Address, st.Fee.Recipient, feeAmt); err != nil {
			return fmt.Errorf("fee leg: %w", err)
		}
	}
	if !payout.IsZero() {
		if err := m.funds.Transfer(ctx, pay.token, st.Address, vendorAddr, payout); err != nil {
			return fmt.Errorf("vendor leg: %w", err)
		}
	}
	return nil
}
