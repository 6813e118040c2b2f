// Command paymarketd runs a market over an in-memory funds book and serves
// its HTTP API. It is the development deployment: balances are seeded from
// the config file and nothing survives a restart.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/xraph/paymarket"
	"github.com/xraph/paymarket/api"
	audithook "github.com/xraph/paymarket/audit_hook"
	"github.com/xraph/paymarket/bank"
	"github.com/xraph/paymarket/observability"
	"github.com/xraph/paymarket/store/memory"
	"github.com/xraph/paymarket/types"
)

func main() {
	configPath := flag.String("config", "./paymarketd.toml", "Path to the paymarketd config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "paymarketd: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	if configPath == "" {
		return errNoConfig
	}
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := setupLogging(cfg.Environment, cfg.LogLevel)

	book, err := seedBook(cfg)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	market, err := deploy(context.Background(), cfg, book, logger,
		paymarket.WithPlugin(observability.NewMetricsExtension(observability.NewPrometheusFactory(registry))),
		paymarket.WithPlugin(audithook.New(logRecorder(logger), audithook.WithLogger(logger))),
	)
	if err != nil {
		return err
	}
	defer func() { _ = market.Stop() }()

	router := chi.NewRouter()
	router.Mount("/", api.New(market, api.WithLogger(logger)).Routes())
	router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := market.Health(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	httpServer := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	stopCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errs := make(chan error, 1)
	go func() {
		logger.Info("paymarketd listening", "address", cfg.ListenAddress)
		errs <- httpServer.ListenAndServe()
	}()

	select {
	case <-stopCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			_ = httpServer.Close()
			return err
		}
		return nil
	case err := <-errs:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// deploy constructs and starts the market from cfg, then reports the market
// address and the administrator's native balance.
func deploy(ctx context.Context, cfg *Config, book *bank.Book, logger *slog.Logger, extra ...paymarket.Option) (*paymarket.Market, error) {
	admin := common.HexToAddress(cfg.Admin)

	opts := []paymarket.Option{
		paymarket.WithLogger(logger),
		paymarket.WithGenesis(admin, cfg.FeeBasisPoints, common.HexToAddress(cfg.FeeRecipient)),
	}
	if cfg.MarketAddress != "" {
		opts = append(opts, paymarket.WithAddress(common.HexToAddress(cfg.MarketAddress)))
	}
	opts = append(opts, extra...)

	market := paymarket.New(memory.New(), book, opts...)
	if err := market.Start(ctx); err != nil {
		return nil, fmt.Errorf("start market: %w", err)
	}

	seeds, err := cfg.seeds()
	if err != nil {
		_ = market.Stop()
		return nil, err
	}
	for _, s := range seeds {
		if !s.approve {
			continue
		}
		if err := book.Approve(s.token, s.holder, market.Address(), s.amount); err != nil {
			_ = market.Stop()
			return nil, fmt.Errorf("approve market for %s: %w", s.holder.Hex(), err)
		}
	}

	logger.Info("market deployed",
		"market_address", market.Address().Hex(),
		"admin", admin.Hex(),
		"admin_balance", paymarket.FormatUnits(book.BalanceOf(types.NativeToken, admin), types.NativeDecimals),
	)
	return market, nil
}

func seedBook(cfg *Config) (*bank.Book, error) {
	seeds, err := cfg.seeds()
	if err != nil {
		return nil, err
	}
	book := bank.NewBook()
	for _, s := range seeds {
		if err := book.Mint(s.token, s.holder, s.amount); err != nil {
			return nil, fmt.Errorf("seed %s: %w", s.holder.Hex(), err)
		}
	}
	return book, nil
}

// logRecorder writes audit events to the log.
func logRecorder(logger *slog.Logger) audithook.RecorderFunc {
	return func(_ context.Context, evt *audithook.AuditEvent) error {
		logger.Info("audit",
			"audit_id", evt.ID.String(),
			"action", evt.Action,
			"resource", evt.Resource,
			"resource_id", evt.ResourceID,
			"outcome", evt.Outcome,
			"severity", evt.Severity,
			"metadata", evt.Metadata,
		)
		return nil
	}
}
