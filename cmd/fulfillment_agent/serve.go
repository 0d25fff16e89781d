package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/fulfillment-agent/internal/config"
	"github.com/jonathan/fulfillment-agent/internal/notify"
	"github.com/jonathan/fulfillment-agent/internal/portal"
	"github.com/jonathan/fulfillment-agent/internal/server"
	"github.com/jonathan/fulfillment-agent/internal/server/ratelimit"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long:  `Start an HTTP server that exposes the export, approval and label-job endpoints.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides PORT)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if servePort != 0 {
		a.cfg.Port = servePort
	}

	// Jobs keep running through request cancellation; shutdown gives them a grace period.
	jobCtx, cancelJobs := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelJobs()
	manager := a.newManager(jobCtx)

	srvCfg, err := serverConfig(a.cfg, a.logger)
	if err != nil {
		return err
	}

	deps := server.Deps{
		History: a.history,
		Jobs:    manager,
		Reports: a.reports,
		Mailer: notify.NewMailer(notify.SMTPConfig{
			Host:     a.cfg.SMTPHost,
			Port:     a.cfg.SMTPPort,
			Username: a.cfg.SMTPUsername,
			Password: a.cfg.SMTPPassword,
			From:     a.cfg.SMTPFrom,
			To:       a.cfg.ApprovalRecipient,
			Logger:   a.logger,
		}),
		Portal: portal.New(portal.Config{
			URL:      a.cfg.PortalURL,
			Username: a.cfg.PortalUsername,
			Password: a.cfg.PortalPassword,
			Headless: a.cfg.PortalHeadless,
			Timeout:  a.cfg.PortalTimeout,
			DebugDir: a.cfg.ReportsDir,
			Logger:   a.logger,
		}),
	}
	if a.storefront != nil {
		deps.Orders = a.storefront
		deps.Products = a.storefront
	}

	srv, err := server.New(srvCfg, deps)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	if err := srv.Start(ctx); err != nil {
		return err
	}

	waitCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := manager.Wait(waitCtx); err != nil {
		a.logger.Warn("abandoning running jobs", zap.Int64("running", manager.Running()))
		cancelJobs()
	}
	return nil
}

// serverConfig maps configuration onto the HTTP server.
func serverConfig(cfg *config.Config, logger *zap.Logger) (server.Config, error) {
	limits := &ratelimit.Config{
		Enabled:         cfg.RateLimitEnabled,
		DefaultLimit:    cfg.RateLimitDefaultLimit,
		DefaultWindow:   cfg.RateLimitDefaultWindow,
		CleanupInterval: 5 * time.Minute,
		Whitelist:       ratelimit.ParseIPList(cfg.RateLimitWhitelist),
		Blacklist:       ratelimit.ParseIPList(cfg.RateLimitBlacklist),
		EndpointConfigs: ratelimit.DefaultEndpointConfigs(cfg.RateLimitJobsLimit, cfg.RateLimitJobsWindow),
	}

	sc := server.Config{
		Port:           cfg.Port,
		StoreDomain:    cfg.ShopifyStoreDomain,
		GSTRate:        cfg.GSTRate,
		LookbackDays:   cfg.DetailsLookbackDays,
		AllowedOrigins: config.SplitList(cfg.AllowedOrigins),
		Integrations: server.Integrations{
			Shopify:    cfg.ShopifyConfigured(),
			Shiprocket: cfg.ShiprocketConfigured(),
			SMTP:       cfg.SMTPConfigured(),
			Portal:     cfg.PortalConfigured(),
		},
		RateLimit: limits,
		Logger:    logger,
	}

	if cfg.AuthEnabled() {
		jwtCfg, err := cfg.JWT()
		if err != nil {
			return sc, fmt.Errorf("failed to create JWT config: %w", err)
		}
		passwords, err := cfg.Password()
		if err != nil {
			return sc, fmt.Errorf("failed to create password config: %w", err)
		}
		sc.JWT = jwtCfg
		sc.Passwords = passwords
		sc.Operator = server.Operator{Username: cfg.OperatorUsername, PasswordHash: cfg.OperatorPasswordHash}
	}
	return sc, nil
}
