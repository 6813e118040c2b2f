package paymarket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/xraph/paymarket/bank"
	"github.com/xraph/paymarket/control"
	"github.com/xraph/paymarket/fee"
	"github.com/xraph/paymarket/plugin"
	"github.com/xraph/paymarket/store"
)

// Market is the push-payment settlement engine. It owns one market's state
// in the store and moves funds through a bank.Funds backend.
type Market struct {
	store   store.Store
	funds   bank.Funds
	plugins *plugin.Registry
	logger  *slog.Logger

	genesis     *control.State
	override    common.Address
	skipMigrate bool

	// sem serialises every mutating call and every settlement.
	sem chan struct{}
	// seq numbers settlements; guarded by sem.
	seq uint64

	mu      sync.RWMutex
	address common.Address
	started bool
}

// New creates a new Market. Call Start before use.
func New(s store.Store, funds bank.Funds, opts ...Option) *Market {
	m := &Market{
		store:   s,
		funds:   funds,
		plugins: plugin.NewRegistry(),
		logger:  slog.Default(),
		sem:     make(chan struct{}, 1),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Option configures a Market instance.
type Option func(*Market)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Market) {
		m.logger = logger
		m.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(m *Market) {
		_ = m.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithPluginTimeout bounds each plugin hook call.
func WithPluginTimeout(d time.Duration) Option {
	return func(m *Market) {
		m.plugins.WithTimeout(d)
	}
}

// WithGenesis supplies the deployment parameters used when the store holds
// no market yet: admin becomes the administrator, and basisPoints and
// recipient form the initial fee policy.
func WithGenesis(admin common.Address, basisPoints uint32, recipient common.Address) Option {
	return func(m *Market) {
		m.genesis = control.Genesis(admin, basisPoints, recipient)
	}
}

// WithAddress sets the market's own account address at genesis. By default
// it is derived from the genesis administrator.
func WithAddress(addr common.Address) Option {
	return func(m *Market) {
		m.override = addr
	}
}

// WithoutMigrations makes Start skip store migrations, for deployments that
// manage the schema separately.
func WithoutMigrations() Option {
	return func(m *Market) {
		m.skipMigrate = true
	}
}

// Start migrates the store and loads the market state, creating it from the
// genesis parameters on first run.
func (m *Market) Start(ctx context.Context) error {
	if !m.skipMigrate {
		if err := m.store.Migrate(ctx); err != nil {
			return fmt.Errorf("paymarket: migrate store: %w", err)
		}
	}

	st, err := m.store.GetState(ctx)
	switch {
	case err == nil:
		if m.override != (common.Address{}) && m.override != st.Address {
			m.logger.Warn("configured market address ignored, using stored address",
				"configured", m.override.Hex(),
				"stored", st.Address.Hex(),
			)
		}
	case errors.Is(err, ErrStateNotFound):
		if st, err = m.initialize(ctx); err != nil {
			return err
		}
	default:
		return fmt.Errorf("paymarket: load state: %w", err)
	}

	m.mu.Lock()
	m.address = st.Address
	m.started = true
	m.mu.Unlock()

	m.plugins.EmitInit(ctx, m)

	m.logger.Info("paymarket started",
		"address", st.Address.Hex(),
		"admin", st.Admin.Hex(),
		"fee_bps", st.Fee.BasisPoints,
		"fee_recipient", st.Fee.Recipient.Hex(),
		"paused", st.Paused,
	)

	return nil
}

func (m *Market) initialize(ctx context.Context) (*control.State, error) {
	if m.genesis == nil {
		return nil, ErrNotInitialized
	}

	st := m.genesis.Clone()

	var errs MultiError
	if st.Admin == (common.Address{}) {
		errs.Add(fmt.Errorf("%w: admin", ErrInvalidAddress))
	}
	if st.Fee.Recipient == (common.Address{}) {
		errs.Add(fmt.Errorf("%w: fee recipient", ErrInvalidAddress))
	}
	if err := st.Fee.Validate(); err != nil {
		errs.Add(fmt.Errorf("%w: %w", ErrInvalidFeeRate, err))
	}
	if errs.HasErrors() {
		return nil, errs
	}

	st.Address = m.override
	if st.Address == (common.Address{}) {
		st.Address = crypto.CreateAddress(st.Admin, 0)
	}

	if err := m.store.SaveState(ctx, st); err != nil {
		return nil, fmt.Errorf("paymarket: save genesis state: %w", err)
	}

	m.logger.Info("paymarket initialized from genesis",
		"address", st.Address.Hex(),
		"admin", st.Admin.Hex(),
	)
	return st, nil
}

// Stop shuts down the Market and closes its store.
func (m *Market) Stop() error {
	m.mu.Lock()
	m.started = false
	m.mu.Unlock()

	m.plugins.EmitShutdown(context.Background())

	return m.store.Close()
}

// Health reports whether the store is reachable.
func (m *Market) Health(ctx context.Context) error {
	return m.store.Ping(ctx)
}

// Address returns the market's own account: the holder of funds in transit
// and the spender of token allowances. Zero until Start succeeds.
func (m *Market) Address() common.Address {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.address
}

// Logger returns the market's logger.
func (m *Market) Logger() *slog.Logger { return m.logger }

// Plugins returns the plugin registry.
func (m *Market) Plugins() *plugin.Registry { return m.plugins }

// ──────────────────────────────────────────────────
// Queries
// ──────────────────────────────────────────────────

// State returns a copy of the market configuration.
func (m *Market) State(ctx context.Context) (*control.State, error) {
	return m.state(ctx)
}

// Owner returns the administrator.
func (m *Market) Owner(ctx context.Context) (common.Address, error) {
	st, err := m.state(ctx)
	if err != nil {
		return common.Address{}, err
	}
	return st.Admin, nil
}

// Paused reports whether settlement is halted.
func (m *Market) Paused(ctx context.Context) (bool, error) {
	st, err := m.state(ctx)
	if err != nil {
		return false, err
	}
	return st.Paused, nil
}

// FeePolicy returns the current fee rate and recipient.
func (m *Market) FeePolicy(ctx context.Context) (fee.Policy, error) {
	st, err := m.state(ctx)
	if err != nil {
		return fee.Policy{}, err
	}
	return st.Fee, nil
}

// FeeBasisPoints returns the current fee rate.
func (m *Market) FeeBasisPoints(ctx context.Context) (uint32, error) {
	p, err := m.FeePolicy(ctx)
	return p.BasisPoints, err
}

// FeeRecipient returns the address that collects fees.
func (m *Market) FeeRecipient(ctx context.Context) (common.Address, error) {
	p, err := m.FeePolicy(ctx)
	return p.Recipient, err
}

// ──────────────────────────────────────────────────
// Locking
// ──────────────────────────────────────────────────

type inFlightKey struct{ m *Market }

// enter acquires the market lock. The returned context marks the call as in
// flight so any call back into this market made with it fails fast instead
// of waiting on the lock it already holds.
func (m *Market) enter(ctx context.Context) (context.Context, func(), error) {
	if ctx.Value(inFlightKey{m}) != nil {
		return nil, nil, ErrReentrantCall
	}

	select {
	case m.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	}

	return context.WithValue(ctx, inFlightKey{m}, struct{}{}), func() { <-m.sem }, nil
}

func (m *Market) state(ctx context.Context) (*control.State, error) {
	st, err := m.store.GetState(ctx)
	if err != nil {
		if errors.Is(err, ErrStateNotFound) {
			return nil, ErrNotInitialized
		}
		return nil, err
	}
	return st, nil
}
