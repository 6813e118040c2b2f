package paymarket_test

import (
	"context"
	"log"
	"log/slog"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xraph/paymarket"
	"github.com/xraph/paymarket/bank"
	"github.com/xraph/paymarket/store/memory"
	"github.com/xraph/paymarket/types"
)

// TestDocumentationExamples verifies that the examples in the package
// documentation compile and behave as described.
func TestDocumentationExamples(t *testing.T) {
	t.Run("QuickStartExample", func(t *testing.T) {
		owner := common.HexToAddress("0x1000000000000000000000000000000000000001")
		feeRecipient := common.HexToAddress("0x1000000000000000000000000000000000000002")
		vendorAddr := common.HexToAddress("0x1000000000000000000000000000000000000003")
		buyer := common.HexToAddress("0x1000000000000000000000000000000000000004")

		// Funds backend (in-memory book for demo)
		book := bank.NewBook()

		m := paymarket.New(memory.New(), book,
			paymarket.WithLogger(slog.Default()),
			paymarket.WithGenesis(owner, 100, feeRecipient), // 1% fee
		)

		ctx := context.Background()
		if err := m.Start(ctx); err != nil {
			t.Fatal(err)
		}
		defer m.Stop()

		// Register a vendor as the administrator
		adminCtx := paymarket.WithCaller(ctx, owner)
		if err := m.RegisterVendor(adminCtx, 1, vendorAddr); err != nil {
			t.Fatal(err)
		}

		// Give the buyer one coin and pay for order 1001
		if err := book.Mint(paymarket.NativeToken, buyer, paymarket.Units(1, types.NativeDecimals)); err != nil {
			t.Fatal(err)
		}

		buyerCtx := paymarket.WithCaller(ctx, buyer)
		p, err := m.PurchaseWithNative(buyerCtx, 1, 1001, paymarket.Units(1, types.NativeDecimals))
		if err != nil {
			t.Fatal(err)
		}

		log.Printf("Settlement %s: vendor received %s\n", p.ID, paymarket.FormatUnits(p.AmountAfterFee, types.NativeDecimals))

		if got := paymarket.FormatUnits(book.BalanceOf(paymarket.NativeToken, vendorAddr), types.NativeDecimals); got != "0.99" {
			t.Errorf("vendor balance = %s, want 0.99", got)
		}
	})

	t.Run("AmountExamples", func(t *testing.T) {
		// Parsing
		a, err := paymarket.ParseAmount("1000000000000000000")
		if err != nil {
			t.Fatal(err)
		}
		b, err := paymarket.ParseAmount("0xde0b6b3a7640000")
		if err != nil {
			t.Fatal(err)
		}
		if !a.Eq(b) {
			t.Errorf("decimal and hex forms differ: %s vs %s", a, b)
		}

		// Formatting
		if got := paymarket.FormatUnits(paymarket.Units(10, types.StableDecimals), types.StableDecimals); got != "10" {
			t.Errorf("FormatUnits = %s, want 10", got)
		}
	})
}
