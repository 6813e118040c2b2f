package extension

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/paymarket"
	"github.com/xraph/paymarket/bank"
	"github.com/xraph/paymarket/plugin"
	"github.com/xraph/paymarket/store"
)

// Option configures the paymarket Forge extension.
type Option func(*Extension)

// WithStore sets the store for the market.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithGroveDB builds the store from a grove database. driver selects the
// backend: "pg" or "postgres", "sqlite", or "mongo".
func WithGroveDB(db *grove.DB, driver string) Option {
	return func(e *Extension) {
		e.groveDB = db
		e.config.GroveDriver = driver
	}
}

// WithFunds sets the funds backend. Defaults to an empty in-memory bank.Book.
func WithFunds(f bank.Funds) Option {
	return func(e *Extension) {
		e.funds = f
	}
}

// WithMarketOption passes a paymarket.Option through to the underlying market.
func WithMarketOption(opt paymarket.Option) Option {
	return func(e *Extension) {
		e.marketOpts = append(e.marketOpts, opt)
	}
}

// WithPlugin registers a market plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.marketOpts = append(e.marketOpts, paymarket.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithGenesis sets the deployment parameters used on first start.
func WithGenesis(admin string, basisPoints uint32, recipient string) Option {
	return func(e *Extension) {
		e.config.Admin = admin
		e.config.FeeBasisPoints = &basisPoints
		e.config.FeeRecipient = recipient
	}
}

// WithMarketAddress overrides the market account used at genesis.
func WithMarketAddress(addr string) Option {
	return func(e *Extension) { e.config.MarketAddress = addr }
}

// WithPluginTimeout bounds each plugin hook call.
func WithPluginTimeout(d time.Duration) Option {
	return func(e *Extension) { e.config.PluginTimeout = d }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}
