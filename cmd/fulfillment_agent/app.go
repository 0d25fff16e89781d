package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/jonathan/fulfillment-agent/internal/carrier"
	"github.com/jonathan/fulfillment-agent/internal/config"
	"github.com/jonathan/fulfillment-agent/internal/db"
	"github.com/jonathan/fulfillment-agent/internal/history"
	"github.com/jonathan/fulfillment-agent/internal/jobs"
	"github.com/jonathan/fulfillment-agent/internal/logging"
	"github.com/jonathan/fulfillment-agent/internal/report"
	"github.com/jonathan/fulfillment-agent/internal/storefront"
	"github.com/jonathan/fulfillment-agent/internal/types"
)

// app holds the wired collaborators shared by the subcommands.
type app struct {
	cfg    *config.Config
	logger *zap.Logger

	history    history.Store
	jobStore   jobs.Store
	reports    *report.FileStore
	storefront *storefront.Client // nil when Shopify is not configured
	carrier    *carrier.Client

	closers []func()
}

// loadApp reads configuration, installs the global logger and opens the configured stores.
func loadApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger, restore, err := logging.Install(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	a := &app{cfg: cfg, logger: logger}
	a.closers = append(a.closers, func() { _ = logger.Sync() }, restore)
	if err := a.open(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) open(ctx context.Context) error {
	cfg := a.cfg

	var database *db.DB
	if cfg.JobStore == "postgres" || cfg.HistoryStore == "postgres" {
		conn, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		a.closers = append(a.closers, conn.Close)
		if err := conn.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
		database = conn
	}

	switch cfg.HistoryStore {
	case "postgres":
		a.history = history.NewPostgresStore(database.SQL())
	default:
		store, err := history.NewFileStore(cfg.DataDir, a.logger)
		if err != nil {
			return err
		}
		a.history = store
	}

	switch cfg.JobStore {
	case "postgres":
		a.jobStore = jobs.NewPostgresStore(database.SQL())
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		a.closers = append(a.closers, func() { _ = client.Close() })
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			return fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		a.jobStore = jobs.NewRedisStore(client, cfg.JobTTL, a.logger)
	default:
		a.jobStore = jobs.NewMemoryStore()
	}

	reports, err := report.NewFileStore(cfg.ReportsDir)
	if err != nil {
		return err
	}
	a.reports = reports

	if cfg.ShopifyConfigured() {
		client, err := storefront.New(storefront.Config{
			StoreDomain:  cfg.ShopifyStoreDomain,
			ClientID:     cfg.ShopifyClientID,
			ClientSecret: cfg.ShopifyClientSecret,
			APIVersion:   cfg.ShopifyAPIVersion,
			Timeout:      cfg.CallTimeout,
			Logger:       a.logger,
		})
		if err != nil {
			return fmt.Errorf("invalid storefront configuration: %w", err)
		}
		a.storefront = client
	} else {
		a.logger.Warn("shopify credentials not set; order fetching is disabled")
	}

	a.carrier = carrier.New(carrier.Config{
		BaseURL:           cfg.ShiprocketBaseURL,
		Email:             cfg.ShiprocketEmail,
		Password:          cfg.ShiprocketPassword,
		Timeout:           cfg.CallTimeout,
		RequestsPerSecond: cfg.ShiprocketRPS,
		Burst:             cfg.ShiprocketBurst,
		MaxSearchPages:    cfg.ShiprocketMaxPages,
		Logger:            a.logger,
	})
	if !cfg.ShiprocketConfigured() {
		a.logger.Warn("shiprocket credentials not set; label jobs will fail authentication")
	}

	a.logger.Info("stores ready",
		zap.String("history_store", cfg.HistoryStore),
		zap.String("job_store", cfg.JobStore),
		zap.String("reports_dir", cfg.ReportsDir),
	)
	return nil
}

// runnerConfig maps configuration onto the job runner.
func (a *app) runnerConfig() jobs.RunnerConfig {
	rc := jobs.DefaultRunnerConfig()
	rc.FallbackCost = a.cfg.WalletFallbackCost
	margin := a.cfg.WalletSafetyMargin
	rc.SafetyMargin = &margin
	rc.LookupConcurrency = a.cfg.LookupConcurrency
	rc.SchedulePickup = a.cfg.SchedulePickup
	rc.RefreshOrders = a.cfg.RefreshCarrierOrders
	rc.CreateMissing = a.cfg.CreateMissingOrders
	rc.CallTimeout = a.cfg.CallTimeout
	rc.PhaseTimeout = a.cfg.PhaseTimeout
	return rc
}

// orderSource returns the storefront client, or a source that reports it is not configured.
func (a *app) orderSource() jobs.OrderSource {
	if a.storefront == nil {
		return unconfiguredStorefront{}
	}
	return a.storefront
}

// newManager builds a job manager whose jobs run under baseCtx.
func (a *app) newManager(baseCtx context.Context) *jobs.Manager {
	runner := jobs.NewRunner(a.jobStore, a.history, a.orderSource(), a.carrier, a.reports, a.runnerConfig(), a.logger)
	return jobs.NewManager(baseCtx, a.jobStore, runner, a.logger)
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

type unconfiguredStorefront struct{}

func (unconfiguredStorefront) GetOrder(context.Context, string) (*types.CanonicalOrder, error) {
	return nil, storefront.ErrNotConfigured
}

var errNoStorefront = errors.New("shopify is not configured: set SHOPIFY_STORE_DOMAIN, SHOPIFY_CLIENT_ID and SHOPIFY_CLIENT_SECRET")
