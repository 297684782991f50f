package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"sitewatch/internal/config"
	"sitewatch/internal/domain"
	"sitewatch/internal/httpapi"
	apimw "sitewatch/internal/httpapi/middleware"
	"sitewatch/internal/logging"
	"sitewatch/internal/notify"
	"sitewatch/internal/probe"
	"sitewatch/internal/repo"
	"sitewatch/internal/repo/memory"
	"sitewatch/internal/repo/postgres"
	"sitewatch/internal/repo/sqlite"
	"sitewatch/internal/scheduler"
	"sitewatch/internal/uptime"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg := config.FromEnv()
	logger, err := logging.NewLogger(cfg.LogDir)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	checker := probe.NewHTTPChecker(cfg.ProbeTimeout)
	routes := notifyRoutes(cfg)

	runner := &scheduler.Runner{
		Logger:   logger,
		Config:   store,
		Checker:  checker,
		Recorder: &scheduler.Recorder{Logger: logger, Checks: store},
		Alerter: &scheduler.Alerter{
			Logger: logger,
			Alerts: store,
			Config: store,
			Routes: routes,
		},
	}

	sched := scheduler.New(logger, runner)
	sched.Start()
	defer sched.Stop()

	poller := &scheduler.Poller{
		Logger:   logger,
		Config:   store,
		Targets:  sched,
		Interval: cfg.ConfigPollInterval,
	}
	go poller.Run(ctx)

	agg := &uptime.Aggregator{
		Logger:   logger,
		Config:   store,
		Checks:   store,
		Store:    store,
		Window:   cfg.AggWindow,
		Interval: cfg.AggInterval,
		Prune:    cfg.RetentionPrune,
	}
	go agg.Run(ctx)

	// Registration checks retry before declaring a new site down;
	// scheduled ticks use the bare checker and record every probe as-is.
	regChecker := &probe.RetryChecker{
		Inner:    checker,
		Attempts: cfg.RetryAttempts,
		Backoff:  cfg.RetryBackoff,
	}
	api := httpapi.NewServer(logger, store, regChecker, sched, cfg.DatabaseDriver)
	keys := apimw.Keys{Public: cfg.PublicAPIKeys, Admin: cfg.AdminAPIKeys}

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: api.Router(keys, cfg.AllowedOrigins, cfg.PublicRPM, cfg.PublicBurst, cfg.AdminRPM, cfg.AdminBurst),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api_listen",
			zap.String("addr", cfg.Addr),
			zap.String("driver", cfg.DatabaseDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	logger.Info("shutting_down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

func openStore(ctx context.Context, cfg config.Config) (repo.Store, func(), error) {
	switch cfg.DatabaseDriver {
	case config.DriverMemory:
		return memory.New(), func() {}, nil

	case config.DriverSQLite:
		if dir := filepath.Dir(cfg.DatabaseURL); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, nil, err
			}
		}
		st, err := sqlite.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		return st, func() { _ = st.Close() }, nil

	case config.DriverPostgres:
		st, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		return st, func() { st.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown DATABASE_DRIVER %q", cfg.DatabaseDriver)
	}
}

// notifyRoutes maps a setting's notify mode to a configured channel.
// Unconfigured channels are left out of the map, so a project routed at
// them logs a missing-route warning instead of sending into the void.
func notifyRoutes(cfg config.Config) map[string]notify.Notifier {
	routes := make(map[string]notify.Notifier)
	var all notify.Multi
	if cfg.SlackWebhook != "" {
		s := notify.NewSlack(cfg.SlackWebhook)
		routes[domain.NotifySlack] = s
		all = append(all, s)
	}
	if cfg.TelegramToken != "" && cfg.TelegramChatID != "" {
		t := notify.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID)
		routes[domain.NotifyTelegram] = t
		all = append(all, t)
	}
	if len(all) > 0 {
		routes[domain.NotifyAll] = all
	}
	return routes
}
