package audithook_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	audithook "github.com/xraph/paymarket/audit_hook"
	"github.com/xraph/paymarket/id"
	"github.com/xraph/paymarket/settlement"
	"github.com/xraph/paymarket/vendors"
)

type sink struct {
	mu     sync.Mutex
	events []*audithook.AuditEvent
}

func (s *sink) recorder() audithook.RecorderFunc {
	return func(_ context.Context, evt *audithook.AuditEvent) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.events = append(s.events, evt)
		return nil
	}
}

func TestRecordsMarketActions(t *testing.T) {
	s := &sink{}
	ext := audithook.New(s.recorder())
	ctx := context.Background()
	who := common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")

	require.NoError(t, ext.OnPaused(ctx, who))
	require.NoError(t, ext.OnVendorRegistered(ctx, &vendors.Vendor{ID: 12, Address: who}))
	require.NoError(t, ext.OnFeeRateUpdated(ctx, 100, 250))

	require.Len(t, s.events, 3)

	paused := s.events[0]
	require.Equal(t, audithook.ActionMarketPaused, paused.Action)
	require.Equal(t, audithook.SeverityWarning, paused.Severity)
	require.Equal(t, who.Hex(), paused.Metadata["by"])
	require.Equal(t, id.PrefixAudit, paused.ID.Prefix())
	require.False(t, paused.OccurredAt.IsZero())

	reg := s.events[1]
	require.Equal(t, audithook.ResourceVendor, reg.Resource)
	require.Equal(t, "12", reg.ResourceID)

	rate := s.events[2]
	require.Equal(t, uint32(100), rate.Metadata["previous_bps"])
	require.Equal(t, uint32(250), rate.Metadata["bps"])
}

func TestRecordsSettlements(t *testing.T) {
	s := &sink{}
	ext := audithook.New(s.recorder())
	ctx := context.Background()

	p := &settlement.Purchase{
		ID:             id.NewSettlementID(),
		VendorID:       1,
		OrderID:        9,
		Gross:          uint256.NewInt(1000),
		Fee:            uint256.NewInt(10),
		AmountAfterFee: uint256.NewInt(990),
	}
	require.NoError(t, ext.OnPurchase(ctx, p))

	cause := errors.New("paymarket: unknown vendor")
	require.NoError(t, ext.OnSettlementRejected(ctx, &settlement.Rejection{
		VendorID: 4,
		Path:     settlement.PathToken,
		Err:      cause,
	}))

	require.Len(t, s.events, 2)
	require.Equal(t, p.ID.String(), s.events[0].ResourceID)
	require.Equal(t, "990", s.events[0].Metadata["amount_after_fee"])
	require.Equal(t, settlement.PathNative, s.events[0].Metadata["path"])

	rej := s.events[1]
	require.Equal(t, audithook.OutcomeFailure, rej.Outcome)
	require.Equal(t, cause.Error(), rej.Reason)
	require.Equal(t, "0", rej.Metadata["amount"])
}

func TestActionFilters(t *testing.T) {
	ctx := context.Background()
	token := common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")

	s := &sink{}
	ext := audithook.New(s.recorder(), audithook.WithEnabledActions(audithook.ActionTokenRemoved))
	require.NoError(t, ext.OnTokenWhitelisted(ctx, token))
	require.NoError(t, ext.OnTokenRemoved(ctx, token))
	require.Len(t, s.events, 1)
	require.Equal(t, audithook.ActionTokenRemoved, s.events[0].Action)

	s = &sink{}
	ext = audithook.New(s.recorder(), audithook.WithDisabledActions(audithook.ActionTokenRemoved))
	require.NoError(t, ext.OnTokenWhitelisted(ctx, token))
	require.NoError(t, ext.OnTokenRemoved(ctx, token))
	require.Len(t, s.events, 1)
	require.Equal(t, audithook.ActionTokenWhitelisted, s.events[0].Action)
}

func TestRecorderFailureIsSwallowed(t *testing.T) {
	ext := audithook.New(audithook.RecorderFunc(func(context.Context, *audithook.AuditEvent) error {
		return errors.New("backend down")
	}))
	require.NoError(t, ext.OnUnpaused(context.Background(), common.Address{}))
}
