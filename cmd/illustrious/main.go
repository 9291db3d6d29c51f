// Command illustrious runs the multi-tenant backend API: delegated login,
// per-request permission snapshots, and the user/org/invoice/report surface.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/illustrious/cloud/pkg/api"
	"github.com/illustrious/cloud/pkg/config"
	"github.com/illustrious/cloud/pkg/identity"
	"github.com/illustrious/cloud/pkg/invoices"
	"github.com/illustrious/cloud/pkg/observability"
	"github.com/illustrious/cloud/pkg/orgs"
	"github.com/illustrious/cloud/pkg/permissions"
	"github.com/illustrious/cloud/pkg/reports"
	"github.com/illustrious/cloud/pkg/store"
	"github.com/illustrious/cloud/pkg/users"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	logger := observability.NewLogger(cfg.LogLevel, os.Stdout)
	logger.WithField("version", api.Version).Info("starting illustrious-cloud")

	ctx := context.Background()

	db, err := store.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := store.Migrate(ctx, db); err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	usersSvc := users.NewPostgresService(db)
	orgsSvc := orgs.NewPostgresService(db)
	invoicesSvc := invoices.NewPostgresService(db)
	reportsSvc := reports.NewPostgresService(db)

	provider, err := identity.NewProvider(ctx, cfg.Auth.ProviderName, cfg.Auth)
	if err != nil {
		return err
	}
	states := identity.NewPostgresStateStore(db, cfg.Auth.StateTTL)
	identityHandler := identity.NewHandler(provider, states, usersSvc, cfg.Server.AppURL, logger)
	identityResolver := identity.NewResolver(provider, usersSvc, logger)

	permStore := permissions.NewPostgresStore(db)
	permResolver := permissions.NewResolver(permStore, logger)
	authMW := permissions.NewMiddleware(identityResolver, permResolver, metrics, logger)

	server := api.NewServer(usersSvc, orgsSvc, invoicesSvc, reportsSvc, identityHandler, authMW, metrics, logger)

	apiServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      server,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Health and metrics on a separate port so probes stay off the API surface.
	healthChecker := observability.NewHealthChecker(db, api.Version)
	healthMux := http.NewServeMux()
	healthMux.HandleFunc("/healthz", healthChecker.Liveness)
	healthMux.HandleFunc("/readyz", healthChecker.Readiness)
	healthMux.Handle("/metrics", metrics.Handler())
	healthServer := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler: healthMux,
	}

	// Periodic maintenance: expired login states and pool gauges.
	scheduler := cron.New()
	scheduler.AddFunc("@every 5m", func() {
		sweepCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		deleted, err := states.DeleteExpired(sweepCtx)
		if err != nil {
			logger.WithError(err).Warn("login state sweep failed")
			return
		}
		if deleted > 0 {
			logger.WithField("deleted", deleted).Debug("swept expired login states")
		}
	})
	scheduler.AddFunc("@every 15s", func() {
		stats := db.Stats()
		metrics.DBConnectionsActive.Set(float64(stats.InUse))
		metrics.DBConnectionsIdle.Set(float64(stats.Idle))
	})
	scheduler.Start()

	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout, apiServer, healthServer)
	shutdown.RegisterShutdownFunc(func(context.Context) error {
		scheduler.Stop()
		return nil
	})

	var group errgroup.Group
	group.Go(func() error {
		logger.Infof("API server listening on %s", apiServer.Addr)
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("API server failed: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		logger.Infof("Health server listening on %s", healthServer.Addr)
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("health server failed: %w", err)
		}
		return nil
	})
	group.Go(shutdown.WaitForShutdown)

	return group.Wait()
}
