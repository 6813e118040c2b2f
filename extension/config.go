package extension

import "time"

// Config holds the paymarket extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.paymarket" or "paymarket" keys).
type Config struct {
	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// Admin is the hex address of the genesis administrator. Only used when
	// the store holds no market yet.
	Admin string `json:"admin" mapstructure:"admin" yaml:"admin"`

	// FeeBasisPoints is the genesis fee rate (0 to 10000). Nil means unset,
	// so an explicit 0 in a config file is kept as a fee-free market.
	FeeBasisPoints *uint32 `json:"fee_basis_points" mapstructure:"fee_basis_points" yaml:"fee_basis_points"`

	// FeeRecipient is the hex address that collects fees at genesis.
	FeeRecipient string `json:"fee_recipient" mapstructure:"fee_recipient" yaml:"fee_recipient"`

	// MarketAddress overrides the derived market account at genesis.
	MarketAddress string `json:"market_address" mapstructure:"market_address" yaml:"market_address"`

	// PluginTimeout bounds each plugin hook call (default: 5s).
	PluginTimeout time.Duration `json:"plugin_timeout" mapstructure:"plugin_timeout" yaml:"plugin_timeout"`

	// GroveDriver names the driver of the grove.DB passed to WithGroveDB:
	// "pg", "postgres", "sqlite" or "mongo".
	GroveDriver string `json:"grove_driver" mapstructure:"grove_driver" yaml:"grove_driver"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// feeRate returns the configured rate, 0 when unset.
func (c Config) feeRate() uint32 {
	if c.FeeBasisPoints == nil {
		return 0
	}
	return *c.FeeBasisPoints
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		PluginTimeout: 5 * time.Second,
	}
}
