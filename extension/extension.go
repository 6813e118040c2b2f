// Package extension provides the Forge extension adapter for paymarket.
//
// It implements the forge.Extension interface to integrate a Market
// into a Forge application with DI registration and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.paymarket" or
// "paymarket" keys.
package extension

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/xraph/forge"
	"github.com/xraph/grove"
	"github.com/xraph/vessel"

	"github.com/xraph/paymarket"
	"github.com/xraph/paymarket/api"
	"github.com/xraph/paymarket/bank"
	"github.com/xraph/paymarket/store"
	"github.com/xraph/paymarket/store/memory"
	pmmongo "github.com/xraph/paymarket/store/mongo"
	pmpostgres "github.com/xraph/paymarket/store/postgres"
	pmsqlite "github.com/xraph/paymarket/store/sqlite"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "paymarket"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Push-payment marketplace settlement"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts a paymarket Market as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	market     *paymarket.Market
	store      store.Store
	funds      bank.Funds
	groveDB    *grove.DB
	marketOpts []paymarket.Option
}

// New creates a new paymarket Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Market returns the underlying Market.
// This is nil until Register is called.
func (e *Extension) Market() *paymarket.Market { return e.market }

// Handler returns the HTTP API for the market. Nil until Register is called.
func (e *Extension) Handler() http.Handler {
	if e.market == nil {
		return nil
	}
	return api.New(e.market, api.WithLogger(e.market.Logger())).Routes()
}

// Register implements [forge.Extension]. It loads configuration,
// builds the market, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	if e.store == nil {
		s, err := buildStore(e.groveDB, e.config.GroveDriver)
		if err != nil {
			return err
		}
		e.store = s
	}
	if e.funds == nil {
		e.funds = bank.NewBook()
	}

	opts, err := e.buildMarketOpts()
	if err != nil {
		return err
	}

	e.market = paymarket.New(e.store, e.funds, opts...)

	return vessel.Provide(fapp.Container(), func() (*paymarket.Market, error) {
		return e.market, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.market == nil {
		return errors.New("paymarket: extension not initialized")
	}

	if err := e.market.Start(ctx); err != nil {
		return err
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.market != nil {
		if err := e.market.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("paymarket: store not initialized")
	}
	return e.store.Ping(ctx)
}

// buildStore picks the store backend for a grove database. Without a
// database the market runs on the memory store.
func buildStore(db *grove.DB, driver string) (store.Store, error) {
	if db == nil {
		return memory.New(), nil
	}

	switch strings.ToLower(driver) {
	case "pg", "postgres", "postgresql":
		return pmpostgres.New(db), nil
	case "sqlite", "sqlite3":
		return pmsqlite.New(db), nil
	case "mongo", "mongodb":
		return pmmongo.New(db), nil
	default:
		return nil, fmt.Errorf("paymarket: unsupported grove driver %q", driver)
	}
}

// buildMarketOpts constructs paymarket.Option values from the resolved config.
func (e *Extension) buildMarketOpts() ([]paymarket.Option, error) {
	opts := make([]paymarket.Option, 0, len(e.marketOpts)+4)

	if e.config.Admin != "" || e.config.FeeRecipient != "" {
		admin, err := parseAddress("admin", e.config.Admin)
		if err != nil {
			return nil, err
		}
		recipient, err := parseAddress("fee_recipient", e.config.FeeRecipient)
		if err != nil {
			return nil, err
		}
		opts = append(opts, paymarket.WithGenesis(admin, e.config.feeRate(), recipient))
	}

	if e.config.MarketAddress != "" {
		addr, err := parseAddress("market_address", e.config.MarketAddress)
		if err != nil {
			return nil, err
		}
		opts = append(opts, paymarket.WithAddress(addr))
	}

	if e.config.PluginTimeout > 0 {
		opts = append(opts, paymarket.WithPluginTimeout(e.config.PluginTimeout))
	}

	if e.config.DisableMigrate {
		opts = append(opts, paymarket.WithoutMigrations())
	}

	// Append any pass-through market options.
	opts = append(opts, e.marketOpts...)

	return opts, nil
}

func parseAddress(field, s string) (common.Address, error) {
	addr, err := store.ParseAddress(s)
	if err != nil {
		return common.Address{}, paymarket.ValidationError{Field: field, Message: err.Error()}
	}
	return addr, nil
}

// --- Config Loading ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("paymarket: configuration is required but not found in config files; " +
				"ensure 'extensions.paymarket' or 'paymarket' key exists in your config")
		}

		e.config = mergeWithDefaults(programmaticConfig)
	} else {
		e.config = mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("paymarket: configuration loaded",
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("admin", e.config.Admin),
		forge.F("fee_basis_points", e.config.feeRate()),
		forge.F("fee_recipient", e.config.FeeRecipient),
		forge.F("plugin_timeout", e.config.PluginTimeout),
		forge.F("grove_driver", e.config.GroveDriver),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	for _, key := range []string{"extensions.paymarket", "paymarket"} {
		if !cm.IsSet(key) {
			continue
		}
		if err := cm.Bind(key, &cfg); err == nil {
			e.Logger().Debug("paymarket: loaded config from file",
				forge.F("key", key),
			)
			return cfg, true
		}
		e.Logger().Warn("paymarket: failed to bind config",
			forge.F("key", key),
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.PluginTimeout == 0 {
		cfg.PluginTimeout = defaults.PluginTimeout
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence; programmatic values fill gaps. A fee rate
// present in YAML wins even when it is 0.
func mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}

	if yamlConfig.Admin == "" {
		yamlConfig.Admin = programmaticConfig.Admin
	}
	if yamlConfig.FeeRecipient == "" {
		yamlConfig.FeeRecipient = programmaticConfig.FeeRecipient
	}
	if yamlConfig.FeeBasisPoints == nil {
		yamlConfig.FeeBasisPoints = programmaticConfig.FeeBasisPoints
	}
	if yamlConfig.MarketAddress == "" {
		yamlConfig.MarketAddress = programmaticConfig.MarketAddress
	}
	if yamlConfig.GroveDriver == "" {
		yamlConfig.GroveDriver = programmaticConfig.GroveDriver
	}
	if yamlConfig.PluginTimeout == 0 {
		yamlConfig.PluginTimeout = programmaticConfig.PluginTimeout
	}

	return mergeWithDefaults(yamlConfig)
}
