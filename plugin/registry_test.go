package plugin_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xraph/paymarket/plugin"
	"github.com/xraph/paymarket/settlement"
	"github.com/xraph/paymarket/vendors"
)

type recorder struct {
	name      string
	purchases atomic.Int32
	vendors   atomic.Int32
	paused    atomic.Int32
}

func (r *recorder) Name() string { return r.name }

func (r *recorder) OnPurchase(context.Context, *settlement.Purchase) error {
	r.purchases.Add(1)
	return nil
}

func (r *recorder) OnVendorRegistered(context.Context, *vendors.Vendor) error {
	r.vendors.Add(1)
	return nil
}

func (r *recorder) OnPaused(context.Context, common.Address) error {
	r.paused.Add(1)
	return errors.New("logged, not returned")
}

type slow struct{}

func (slow) Name() string { return "slow" }

func (slow) OnUnpaused(context.Context, common.Address) error {
	time.Sleep(300 * time.Millisecond)
	return nil
}

func TestRegisterDuplicate(t *testing.T) {
	r := plugin.NewRegistry()
	if err := r.Register(&recorder{name: "a"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := r.Register(&recorder{name: "a"}); err == nil {
		t.Fatal("expected duplicate registration to fail")
	}
	if r.Count() != 1 {
		t.Errorf("count = %d, want 1", r.Count())
	}
	if r.Get("a") == nil || r.Get("missing") != nil {
		t.Error("Get lookup mismatch")
	}
}

func TestDispatchOnlyToImplementers(t *testing.T) {
	ctx := context.Background()
	r := plugin.NewRegistry()
	rec := &recorder{name: "rec"}
	if err := r.Register(rec); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(slow{}); err != nil {
		t.Fatal(err)
	}

	r.EmitPurchase(ctx, &settlement.Purchase{VendorID: 1})
	r.EmitPurchase(ctx, &settlement.Purchase{VendorID: 2})
	r.EmitVendorRegistered(ctx, &vendors.Vendor{ID: 1})
	r.EmitPaused(ctx, common.Address{})
	r.EmitTokenWhitelisted(ctx, common.Address{}) // no implementers

	if got := rec.purchases.Load(); got != 2 {
		t.Errorf("purchases = %d, want 2", got)
	}
	if got := rec.vendors.Load(); got != 1 {
		t.Errorf("vendors = %d, want 1", got)
	}
	if got := rec.paused.Load(); got != 1 {
		t.Errorf("paused = %d, want 1", got)
	}
}

func TestHookTimeout(t *testing.T) {
	r := plugin.NewRegistry().WithTimeout(20 * time.Millisecond)
	if err := r.Register(slow{}); err != nil {
		t.Fatal(err)
	}

	start := time.Now()
	r.EmitUnpaused(context.Background(), common.Address{})
	if elapsed := time.Since(start); elapsed > 250*time.Millisecond {
		t.Errorf("emit blocked for %s", elapsed)
	}
}
