package mongo

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xraph/paymarket/control"
)

func TestStateModel(t *testing.T) {
	admin := common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	st := control.Genesis(admin, 100, admin)

	got, err := fromStateModel(toStateModel(st))
	if err != nil {
		t.Fatalf("fromStateModel: %v", err)
	}
	if got.Admin != admin || got.Fee.BasisPoints != 100 || got.Paused {
		t.Errorf("unexpected state %+v", got)
	}

	m := toStateModel(st)
	m.FeeBasisPoints = 10_001
	if _, err := fromStateModel(m); err == nil {
		t.Error("expected out-of-range fee to be rejected")
	}
}

func TestMigrationIndexesCoverCollections(t *testing.T) {
	idx := migrationIndexes()
	for _, col := range []string{colState, colTokens, colVendors} {
		if _, ok := idx[col]; !ok {
			t.Errorf("collection %s missing from index map", col)
		}
	}
	if len(idx[colVendors]) == 0 {
		t.Error("vendors need an address index")
	}
}
