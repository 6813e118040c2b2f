package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xraph/paymarket/settlement"
	"github.com/xraph/paymarket/vendors"
)

// DefaultTimeout bounds a single hook call.
const DefaultTimeout = 5 * time.Second

// Registry manages all registered plugins and provides efficient dispatch.
// Hook implementations are cached per type at registration.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration

	onInit                 []OnInit
	onShutdown             []OnShutdown
	onOwnershipTransferred []OnOwnershipTransferred
	onPaused               []OnPaused
	onUnpaused             []OnUnpaused
	onTokenWhitelisted     []OnTokenWhitelisted
	onTokenRemoved         []OnTokenRemoved
	onFeeRateUpdated       []OnFeeRateUpdated
	onFeeRecipientUpdated  []OnFeeRecipientUpdated
	onVendorRegistered     []OnVendorRegistered
	onVendorUpdated        []OnVendorUpdated
	onPurchase             []OnPurchase
	onSettlementRejected   []OnSettlementRejected
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:  slog.Default(),
		timeout: DefaultTimeout,
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout sets the per-hook timeout.
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	if d > 0 {
		r.timeout = d
	}
	return r
}

// Register adds a plugin to the registry and caches its hooks.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	var hooks []string

	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
		hooks = append(hooks, "OnInit")
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
		hooks = append(hooks, "OnShutdown")
	}
	if v, ok := p.(OnOwnershipTransferred); ok {
		r.onOwnershipTransferred = append(r.onOwnershipTransferred, v)
		hooks = append(hooks, "OnOwnershipTransferred")
	}
	if v, ok := p.(OnPaused); ok {
		r.onPaused = append(r.onPaused, v)
		hooks = append(hooks, "OnPaused")
	}
	if v, ok := p.(OnUnpaused); ok {
		r.onUnpaused = append(r.onUnpaused, v)
		hooks = append(hooks, "OnUnpaused")
	}
	if v, ok := p.(OnTokenWhitelisted); ok {
		r.onTokenWhitelisted = append(r.onTokenWhitelisted, v)
		hooks = append(hooks, "OnTokenWhitelisted")
	}
	if v, ok := p.(OnTokenRemoved); ok {
		r.onTokenRemoved = append(r.onTokenRemoved, v)
		hooks = append(hooks, "OnTokenRemoved")
	}
	if v, ok := p.(OnFeeRateUpdated); ok {
		r.onFeeRateUpdated = append(r.onFeeRateUpdated, v)
		hooks = append(hooks, "OnFeeRateUpdated")
	}
	if v, ok := p.(OnFeeRecipientUpdated); ok {
		r.onFeeRecipientUpdated = append(r.onFeeRecipientUpdated, v)
		hooks = append(hooks, "OnFeeRecipientUpdated")
	}
	if v, ok := p.(OnVendorRegistered); ok {
		r.onVendorRegistered = append(r.onVendorRegistered, v)
		hooks = append(hooks, "OnVendorRegistered")
	}
	if v, ok := p.(OnVendorUpdated); ok {
		r.onVendorUpdated = append(r.onVendorUpdated, v)
		hooks = append(hooks, "OnVendorUpdated")
	}
	if v, ok := p.(OnPurchase); ok {
		r.onPurchase = append(r.onPurchase, v)
		hooks = append(hooks, "OnPurchase")
	}
	if v, ok := p.(OnSettlementRejected); ok {
		r.onSettlementRejected = append(r.onSettlementRejected, v)
		hooks = append(hooks, "OnSettlementRejected")
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"hooks", hooks,
	)

	return nil
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, m any) {
	dispatch(ctx, r, "OnInit", snapshot(r, &r.onInit), func(p OnInit) error {
		return p.OnInit(ctx, m)
	})
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	dispatch(ctx, r, "OnShutdown", snapshot(r, &r.onShutdown), func(p OnShutdown) error {
		return p.OnShutdown(ctx)
	})
}

// EmitOwnershipTransferred emits an ownership change.
func (r *Registry) EmitOwnershipTransferred(ctx context.Context, previous, next common.Address) {
	dispatch(ctx, r, "OnOwnershipTransferred", snapshot(r, &r.onOwnershipTransferred), func(p OnOwnershipTransferred) error {
		return p.OnOwnershipTransferred(ctx, previous, next)
	})
}

// EmitPaused emits a pause.
func (r *Registry) EmitPaused(ctx context.Context, by common.Address) {
	dispatch(ctx, r, "OnPaused", snapshot(r, &r.onPaused), func(p OnPaused) error {
		return p.OnPaused(ctx, by)
	})
}

// EmitUnpaused emits an unpause.
func (r *Registry) EmitUnpaused(ctx context.Context, by common.Address) {
	dispatch(ctx, r, "OnUnpaused", snapshot(r, &r.onUnpaused), func(p OnUnpaused) error {
		return p.OnUnpaused(ctx, by)
	})
}

// EmitTokenWhitelisted emits a whitelist addition.
func (r *Registry) EmitTokenWhitelisted(ctx context.Context, token common.Address) {
	dispatch(ctx, r, "OnTokenWhitelisted", snapshot(r, &r.onTokenWhitelisted), func(p OnTokenWhitelisted) error {
		return p.OnTokenWhitelisted(ctx, token)
	})
}

// EmitTokenRemoved emits a whitelist removal.
func (r *Registry) EmitTokenRemoved(ctx context.Context, token common.Address) {
	dispatch(ctx, r, "OnTokenRemoved", snapshot(r, &r.onTokenRemoved), func(p OnTokenRemoved) error {
		return p.OnTokenRemoved(ctx, token)
	})
}

// EmitFeeRateUpdated emits a fee rate change.
func (r *Registry) EmitFeeRateUpdated(ctx context.Context, previous, next uint32) {
	dispatch(ctx, r, "OnFeeRateUpdated", snapshot(r, &r.onFeeRateUpdated), func(p OnFeeRateUpdated) error {
		return p.OnFeeRateUpdated(ctx, previous, next)
	})
}

// EmitFeeRecipientUpdated emits a fee recipient change.
func (r *Registry) EmitFeeRecipientUpdated(ctx context.Context, previous, next common.Address) {
	dispatch(ctx, r, "OnFeeRecipientUpdated", snapshot(r, &r.onFeeRecipientUpdated), func(p OnFeeRecipientUpdated) error {
		return p.OnFeeRecipientUpdated(ctx, previous, next)
	})
}

// EmitVendorRegistered emits the VendorRegistered event.
func (r *Registry) EmitVendorRegistered(ctx context.Context, v *vendors.Vendor) {
	dispatch(ctx, r, "OnVendorRegistered", snapshot(r, &r.onVendorRegistered), func(p OnVendorRegistered) error {
		return p.OnVendorRegistered(ctx, v)
	})
}

// EmitVendorUpdated emits a vendor address change.
func (r *Registry) EmitVendorUpdated(ctx context.Context, previous common.Address, v *vendors.Vendor) {
	dispatch(ctx, r, "OnVendorUpdated", snapshot(r, &r.onVendorUpdated), func(p OnVendorUpdated) error {
		return p.OnVendorUpdated(ctx, previous, v)
	})
}

// EmitPurchase emits the Purchase event.
func (r *Registry) EmitPurchase(ctx context.Context, p *settlement.Purchase) {
	dispatch(ctx, r, "OnPurchase", snapshot(r, &r.onPurchase), func(h OnPurchase) error {
		return h.OnPurchase(ctx, p)
	})
}

// EmitSettlementRejected emits a rejected settlement.
func (r *Registry) EmitSettlementRejected(ctx context.Context, rej *settlement.Rejection) {
	dispatch(ctx, r, "OnSettlementRejected", snapshot(r, &r.onSettlementRejected), func(h OnSettlementRejected) error {
		return h.OnSettlementRejected(ctx, rej)
	})
}

func snapshot[T any](r *Registry, list *[]T) []T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return *list
}

// dispatch calls fn for every plugin in order. Failures are logged and never
// reach the caller.
func dispatch[T Plugin](ctx context.Context, r *Registry, hook string, plugins []T, fn func(T) error) {
	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return fn(p)
		}); err != nil {
			r.logger.Warn("plugin "+hook+" failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the settlement pipeline.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
