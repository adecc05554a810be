package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/AsetGithub/evm-lens-bot/internal/alerting"
	"github.com/AsetGithub/evm-lens-bot/internal/bot"
	"github.com/AsetGithub/evm-lens-bot/internal/chain/rpc"
	"github.com/AsetGithub/evm-lens-bot/internal/config"
	"github.com/AsetGithub/evm-lens-bot/internal/gas"
	"github.com/AsetGithub/evm-lens-bot/internal/notify"
	"github.com/AsetGithub/evm-lens-bot/internal/portfolio"
	"github.com/AsetGithub/evm-lens-bot/internal/price"
	"github.com/AsetGithub/evm-lens-bot/internal/registry"
	"github.com/AsetGithub/evm-lens-bot/internal/store"
	"github.com/AsetGithub/evm-lens-bot/internal/store/postgres"
	redisstore "github.com/AsetGithub/evm-lens-bot/internal/store/redis"
	"github.com/AsetGithub/evm-lens-bot/internal/watcher"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logLevel := slog.LevelInfo
	switch cfg.Log.Level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	reg, err := registry.Load()
	if err != nil {
		logger.Error("failed to load chain registry", "error", err)
		os.Exit(1)
	}

	logger.Info("starting lensbot",
		"chains", len(reg.Chains()),
		"poll_interval", cfg.Watcher.PollInterval.String(),
		"alert_pass_interval", cfg.Alerts.PassInterval.String(),
	)

	db, err := postgres.New(postgres.Config{
		URL:             cfg.DB.URL,
		MaxOpenConns:    cfg.DB.MaxOpenConns,
		MaxIdleConns:    cfg.DB.MaxIdleConns,
		ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
	})
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.RunMigrations(cfg.DB.MigrationsDir); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	wallets := postgres.NewWalletRepo(db)
	settings := postgres.NewSettingsRepo(db)
	alerts := postgres.NewAlertRepo(db)
	cursors := postgres.NewCursorRepo(db)

	var dedup store.Deduper
	if cfg.Redis.URL != "" {
		redisDedup, err := redisstore.NewDedup(cfg.Redis.URL, redisstore.DefaultDedupTTL)
		if err != nil {
			logger.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer redisDedup.Close()
		dedup = redisDedup
	} else {
		logger.Warn("no REDIS_URL set, notification dedup will not survive restarts")
		dedup = watcher.NewMemoryDedup(8192, time.Hour)
	}

	telegram, err := notify.NewTelegram(cfg.Telegram.Token)
	if err != nil {
		logger.Error("failed to init telegram", "error", err)
		os.Exit(1)
	}
	dispatcher := notify.NewDispatcher(telegram, 256, logger)

	client := rpc.NewClient(logger)
	resolver := price.NewResolver(reg, price.NewCoinGecko(logger), logger)
	gate := watcher.NewGate(wallets, settings, dedup, dispatcher, logger)

	pollerCfg := watcher.Config{
		PollInterval:    cfg.Watcher.PollInterval,
		IdleInterval:    cfg.Watcher.IdleInterval,
		BackoffInterval: cfg.Watcher.BackoffInterval,
		MaxCount:        cfg.Watcher.MaxCount,
	}

	var pollers []*watcher.Poller
	for _, chain := range reg.Chains() {
		desc, _ := reg.Descriptor(chain)
		pollers = append(pollers, watcher.NewPoller(
			desc, desc.RPCURL(cfg.Provider.APIKey), client,
			wallets, cursors, resolver, gate, pollerCfg, logger,
		))
	}

	engine := alerting.NewEngine(alerts, resolver, dispatcher, cfg.Alerts.PassInterval, logger)

	holdings := portfolio.NewService(reg, client, resolver, cfg.Provider.APIKey, logger)
	gasTracker := gas.NewTracker(reg, client, cfg.Provider.APIKey, logger)
	router := bot.NewRouter(reg, wallets, settings, alerts, resolver, holdings, gasTracker, dispatcher, telegram, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return runHealthServer(gCtx, cfg.Server.HealthPort, logger)
	})

	g.Go(func() error {
		return dispatcher.Run(gCtx)
	})

	for _, p := range pollers {
		p := p
		g.Go(func() error {
			return p.Run(gCtx)
		})
	}

	g.Go(func() error {
		return engine.Run(gCtx)
	})

	g.Go(func() error {
		return router.Run(gCtx)
	})

	g.Go(func() error {
		select {
		case sig := <-sigCh:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
			return nil
		case <-gCtx.Done():
			return nil
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("lensbot exited with error", "error", err)
		os.Exit(1)
	}

	logger.Info("lensbot shut down gracefully")
}

func runHealthServer(ctx context.Context, port int, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("ok")); err != nil {
			logger.Warn("failed to write health response", "error", err)
		}
	})
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("health server shutdown error", "error", err)
		}
	}()

	logger.Info("health server started", "port", port)
	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("health server: %w", err)
	}
	return nil
}
