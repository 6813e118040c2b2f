package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/xraph/paymarket"
	"github.com/xraph/paymarket/types"
)

const sampleConfig = `
ListenAddress = "127.0.0.1:9090"
Admin = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
FeeBasisPoints = 100
FeeRecipient = "0x90F79bf6EB2c4f870365E785982E1f101E93b906"

[[Balances]]
Holder = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
Amount = "10000000000000000000"

[[Balances]]
Holder = "0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC"
Token = "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"
Amount = "25000000"
ApproveMarket = true
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "paymarketd.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	require.Equal(t, "127.0.0.1:9090", cfg.ListenAddress)
	require.Equal(t, "dev", cfg.Environment)
	require.Equal(t, uint32(100), cfg.FeeBasisPoints)
	require.Len(t, cfg.Balances, 2)
}

func TestLoadConfigRejectsUnknownKeys(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, sampleConfig+"\nBogus = 1\n"))
	require.ErrorContains(t, err, "Bogus")
}

func TestLoadConfigDefaultsToLoopback(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, strings.Replace(sampleConfig, `ListenAddress = "127.0.0.1:9090"`, "", 1)))
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:8080", cfg.ListenAddress)
}

func TestValidateListenAddress(t *testing.T) {
	tests := []struct {
		addr  string
		trust bool
		ok    bool
	}{
		{"127.0.0.1:8080", false, true},
		{"[::1]:8080", false, true},
		{"localhost:8080", false, true},
		{":8080", false, false},
		{"0.0.0.0:8080", false, false},
		{"10.0.0.5:8080", false, false},
		{":8080", true, true},
		{"0.0.0.0:8080", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			cfg := &Config{
				ListenAddress:     tt.addr,
				TrustCallerHeader: tt.trust,
				Admin:             "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266",
				FeeRecipient:      "0x90F79bf6EB2c4f870365E785982E1f101E93b906",
			}
			err := cfg.Validate()
			if tt.ok {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, paymarket.ErrInvalidInput)
			require.ErrorContains(t, err, "TrustCallerHeader")
		})
	}
}

func TestValidateCollectsErrors(t *testing.T) {
	cfg := &Config{
		Admin:          "nope",
		FeeRecipient:   "0x90F79bf6EB2c4f870365E785982E1f101E93b906",
		FeeBasisPoints: 20_000,
		Balances:       []Balance{{Holder: "0x90F79bf6EB2c4f870365E785982E1f101E93b906", Amount: "ten"}},
	}

	err := cfg.Validate()
	require.ErrorIs(t, err, paymarket.ErrInvalidInput)

	var multi paymarket.MultiError
	require.ErrorAs(t, err, &multi)
	require.Len(t, multi.Errors, 3)
}

func TestDeploySeedsBalancesAndStarts(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	book, err := seedBook(cfg)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m, err := deploy(context.Background(), cfg, book, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Stop() })

	admin := common.HexToAddress(cfg.Admin)
	require.Equal(t, "10", paymarket.FormatUnits(book.BalanceOf(types.NativeToken, admin), types.NativeDecimals))
	require.NotEqual(t, common.Address{}, m.Address())

	customer := common.HexToAddress("0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC")
	usdc := common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	require.Equal(t, "25000000", book.Allowance(usdc, customer, m.Address()).Dec())

	owner, err := m.Owner(context.Background())
	require.NoError(t, err)
	require.Equal(t, admin, owner)
}
