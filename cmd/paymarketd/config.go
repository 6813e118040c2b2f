package main

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/xraph/paymarket"
	"github.com/xraph/paymarket/fee"
	"github.com/xraph/paymarket/types"
)

const defaultListenAddress = "127.0.0.1:8080"

// Config is the daemon configuration file.
//
// The API takes the caller from the X-Paymarket-Caller header. Binding a
// non-loopback address requires TrustCallerHeader, set only when a gateway in
// front of the daemon authenticates accounts and owns that header.
type Config struct {
	ListenAddress     string    `toml:"ListenAddress"`
	TrustCallerHeader bool      `toml:"TrustCallerHeader"`
	Environment       string    `toml:"Environment"`
	LogLevel          string    `toml:"LogLevel"`
	Admin             string    `toml:"Admin"`
	FeeBasisPoints    uint32    `toml:"FeeBasisPoints"`
	FeeRecipient      string    `toml:"FeeRecipient"`
	MarketAddress     string    `toml:"MarketAddress"`
	Balances          []Balance `toml:"Balances"`
}

// Balance seeds the development funds book. An empty Token seeds native
// currency. ApproveMarket lets the market pull the whole token amount.
type Balance struct {
	Holder        string `toml:"Holder"`
	Token         string `toml:"Token"`
	Amount        string `toml:"Amount"`
	ApproveMarket bool   `toml:"ApproveMarket"`
}

// seed is a parsed Balance.
type seed struct {
	holder  common.Address
	token   common.Address
	amount  *uint256.Int
	approve bool
}

// LoadConfig reads and validates the configuration at path.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown config key %q in %s", undecoded[0].String(), path)
	}

	if strings.TrimSpace(cfg.ListenAddress) == "" {
		cfg.ListenAddress = defaultListenAddress
	}
	if strings.TrimSpace(cfg.Environment) == "" {
		cfg.Environment = "dev"
	}
	if strings.TrimSpace(cfg.LogLevel) == "" {
		cfg.LogLevel = "info"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every field and reports all problems at once.
func (c *Config) Validate() error {
	var errs paymarket.MultiError

	if !common.IsHexAddress(c.Admin) {
		errs.Add(paymarket.ValidationError{Field: "Admin", Message: "must be a hex address"})
	}
	if !common.IsHexAddress(c.FeeRecipient) {
		errs.Add(paymarket.ValidationError{Field: "FeeRecipient", Message: "must be a hex address"})
	}
	if c.FeeBasisPoints > fee.MaxBasisPoints {
		errs.Add(paymarket.ValidationError{Field: "FeeBasisPoints", Message: "must not exceed 10000"})
	}
	if c.MarketAddress != "" && !common.IsHexAddress(c.MarketAddress) {
		errs.Add(paymarket.ValidationError{Field: "MarketAddress", Message: "must be a hex address"})
	}
	if c.ListenAddress != "" && !c.TrustCallerHeader && !loopback(c.ListenAddress) {
		errs.Add(paymarket.ValidationError{
			Field:   "ListenAddress",
			Message: "non-loopback address requires TrustCallerHeader behind an authenticating gateway",
		})
	}
	if _, err := c.seeds(); err != nil {
		errs.Add(err)
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

func (c *Config) seeds() ([]seed, error) {
	out := make([]seed, 0, len(c.Balances))
	for i, b := range c.Balances {
		field := fmt.Sprintf("Balances[%d]", i)
		if !common.IsHexAddress(b.Holder) {
			return nil, paymarket.ValidationError{Field: field + ".Holder", Message: "must be a hex address"}
		}
		token := types.NativeToken
		if b.Token != "" {
			if !common.IsHexAddress(b.Token) {
				return nil, paymarket.ValidationError{Field: field + ".Token", Message: "must be a hex address"}
			}
			token = common.HexToAddress(b.Token)
		}
		amount, err := types.ParseAmount(b.Amount)
		if err != nil {
			return nil, paymarket.ValidationError{Field: field + ".Amount", Message: err.Error()}
		}
		if b.ApproveMarket && types.IsNative(token) {
			return nil, paymarket.ValidationError{Field: field + ".ApproveMarket", Message: "native balances take no allowance"}
		}
		out = append(out, seed{
			holder:  common.HexToAddress(b.Holder),
			token:   token,
			amount:  amount,
			approve: b.ApproveMarket,
		})
	}
	return out, nil
}

// loopback reports whether addr only accepts local connections. An empty
// host binds every interface.
func loopback(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

var errNoConfig = errors.New("no config file given")
