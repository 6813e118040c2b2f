package types

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

func TestIsNative(t *testing.T) {
	if !IsNative(common.Address{}) {
		t.Error("zero address should be the native marker")
	}
	if IsNative(common.HexToAddress("0x01")) {
		t.Error("non-zero address should not be native")
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    uint64
		wantErr bool
	}{
		{"0", 0, false},
		{"10000000", 10_000_000, false},
		{" 42 ", 42, false},
		{"0x2a", 42, false},
		{"", 0, true},
		{"-1", 0, true},
		{"1.5", 0, true},
		{"abc", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAmount(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseAmount(%q) = %s, want error", tt.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAmount(%q): %v", tt.in, err)
			}
			if got.Uint64() != tt.want {
				t.Errorf("ParseAmount(%q) = %s, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestUnits(t *testing.T) {
	if got := Units(1, NativeDecimals); got.Dec() != "1000000000000000000" {
		t.Errorf("1 native unit = %s", got.Dec())
	}
	if got := Units(10, StableDecimals); got.Uint64() != 10_000_000 {
		t.Errorf("10 stable units = %s", got.Dec())
	}
}

func TestFormatUnits(t *testing.T) {
	tests := []struct {
		amount   *uint256.Int
		decimals uint8
		want     string
	}{
		{uint256.NewInt(0), 18, "0"},
		{MustParseAmount("990000000000000000"), 18, "0.99"},
		{MustParseAmount("10000000000000000"), 18, "0.01"},
		{uint256.NewInt(9_900_000), 6, "9.9"},
		{uint256.NewInt(100_000), 6, "0.1"},
		{uint256.NewInt(10_000_000), 6, "10"},
		{uint256.NewInt(1), 6, "0.000001"},
		{uint256.NewInt(1234), 0, "1234"},
		{nil, 6, "0"},
	}

	for _, tt := range tests {
		if got := FormatUnits(tt.amount, tt.decimals); got != tt.want {
			t.Errorf("FormatUnits(%v, %d) = %q, want %q", tt.amount, tt.decimals, got, tt.want)
		}
	}
}
