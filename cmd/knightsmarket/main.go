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

	"github.com/efreitasn/knightsmarket/internal/archive"
	"github.com/efreitasn/knightsmarket/internal/auth"
	"github.com/efreitasn/knightsmarket/internal/config"
	"github.com/efreitasn/knightsmarket/internal/domain"
	"github.com/efreitasn/knightsmarket/internal/feed"
	"github.com/efreitasn/knightsmarket/internal/handler"
	"github.com/efreitasn/knightsmarket/internal/inventory"
	"github.com/efreitasn/knightsmarket/internal/market"
	"github.com/efreitasn/knightsmarket/internal/payment"
	"github.com/efreitasn/knightsmarket/internal/persistence/sqlite"
	"github.com/efreitasn/knightsmarket/internal/service"
	"github.com/efreitasn/knightsmarket/internal/store"
	"github.com/efreitasn/knightsmarket/internal/tradelog"
)

func main() {
	healthcheck := flag.Bool("healthcheck", false, "Run health check against running server")
	issueToken := flag.String("issue-token", "", "Print a bearer token for the given account and exit")
	tokenTTL := flag.Duration("token-ttl", 24*time.Hour, "Lifetime of tokens printed by -issue-token")
	flag.Parse()

	// Handle -healthcheck flag: HTTP GET to localhost:PORT/healthz, exit 0/1.
	if *healthcheck {
		port := os.Getenv("PORT")
		if port == "" {
			port = "8080"
		}
		resp, err := http.Get(fmt.Sprintf("http://localhost:%s/healthz", port))
		if err != nil || resp.StatusCode != http.StatusOK {
			os.Exit(1)
		}
		os.Exit(0)
	}

	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if *issueToken != "" {
		token, err := auth.NewIssuer(cfg.JWTSecret).Issue(*issueToken, *tokenTTL)
		if err != nil {
			slog.Error("failed to issue token", slog.String("error", err.Error()))
			os.Exit(1)
		}
		fmt.Println(token)
		os.Exit(0)
	}

	// Set up slog logger with configured level.
	var logLevel slog.Level
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	rules, err := config.LoadRules(cfg.RulesPath)
	if err != nil {
		return err
	}
	marketCfg := rules.Market()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Stand-in game state. The house and controller exist from the start.
	inv := inventory.NewStore()
	for _, account := range []string{marketCfg.HouseAccount, marketCfg.ControllerAccount} {
		err := inv.Register(domain.Player{Account: account})
		if err != nil && !errors.Is(err, domain.ErrPlayerExists) {
			return err
		}
	}

	// The archive is an extra append-only copy of every trade log entry.
	var sinks tradelog.Tee
	if cfg.ArchiveDir != "" {
		w := archive.NewWriter(cfg.ArchiveDir, "trades")
		defer w.Close()
		sinks = append(sinks, w)
	}

	catalog := rules.Catalog()
	if catalog.Len() == 0 {
		logger.Warn("market rules list no material codes, bulk issuance accepts any code")
	}
	opts := []market.Option{
		market.WithMaterialCatalog(catalog),
		market.WithLogger(logger),
	}

	// Market state and trade history. SQLite persists both with each
	// commit; memory serves history from the live log store.
	var (
		history service.TradeHistory
		snap    market.Snapshot
	)
	switch cfg.Storage {
	case config.StorageSQLite:
		db, err := sqlite.Open(cfg.DatabasePath)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()
		if snap, err = db.Load(ctx); err != nil {
			return fmt.Errorf("load market state: %w", err)
		}
		opts = append(opts, market.WithCommitter(db))
		history = db
	case config.StorageMemory:
		logs := store.NewTradeLogStore()
		sinks = append(sinks, logs)
		history = service.NewMemoryHistory(logs)
		logger.Warn("market state is kept in memory only")
	}

	var payments market.PaymentIssuer = payment.NewLedger()
	if cfg.SettlementURL != "" {
		payments = payment.NewHTTPIssuer(cfg.SettlementURL, cfg.PaymentTimeout)
	}

	m := market.NewMarket(marketCfg, inv, inv, sinks, payments, opts...)
	m.Restore(snap)
	logger.Info("market state restored",
		slog.String("storage", cfg.Storage),
		slog.Int("listings", len(snap.Listings)),
		slog.Uint64("last_item_id", m.LastID(domain.ListingTypeItem)),
		slog.Uint64("last_material_id", m.LastID(domain.ListingTypeMaterial)),
	)

	hub := feed.NewHub(logger)
	defer hub.Close()

	// Services.
	webhookSvc := service.NewWebhookService(store.NewWebhookStore(), inv, cfg.WebhookTimeout, logger)
	marketSvc := service.NewMarketService(m, webhookSvc, hub, logger)
	playerSvc := service.NewPlayerService(inv, history, marketCfg.ControllerAccount, logger)

	// Router.
	router := handler.NewRouter(marketSvc, playerSvc, webhookSvc, auth.NewVerifier(cfg.JWTSecret), hub, logger)

	// Configure HTTP server.
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	// Start HTTP server in a goroutine.
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-errCh:
		return err
	}

	// Graceful shutdown: close feed clients, then drain in-flight requests.
	hub.Close()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.String("error", err.Error()))
	}
	cancel()

	logger.Info("server stopped")
	return nil
}
