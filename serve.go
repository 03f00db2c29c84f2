package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/greensdlc/sustainability-dashboard/pkg/config"
	"github.com/greensdlc/sustainability-dashboard/pkg/database"
	"github.com/greensdlc/sustainability-dashboard/pkg/handlers"
	"github.com/greensdlc/sustainability-dashboard/pkg/logging"
	"github.com/greensdlc/sustainability-dashboard/pkg/middleware"
	"github.com/greensdlc/sustainability-dashboard/pkg/repositories"
	"github.com/greensdlc/sustainability-dashboard/pkg/retry"
	"github.com/greensdlc/sustainability-dashboard/pkg/services"
)

func newServeCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
}

func runServe(ctx context.Context, opts *globalOptions) error {
	cfg, logger, err := bootstrap(opts)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("version", cfg.Version),
		zap.String("listen_addr", cfg.ListenAddr()),
		zap.String("database", logging.SanitizeConnectionString(cfg.Database.URL())),
		zap.Bool("auto_migrate", cfg.AutoMigrate))

	db, err := connect(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.AutoMigrate {
		if err := migrateUp(cfg, logger); err != nil {
			return err
		}
	}

	router := handlers.NewRouter(cfg, buildDeps(db, logger), logger)
	return serveHTTP(ctx, cfg, router, logger)
}

// connect opens the pool, retrying while the database is still coming up.
func connect(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*database.DB, error) {
	dbCfg := &database.Config{
		URL:            cfg.Database.URL(),
		MaxConnections: cfg.Database.MaxConnections,
	}

	attempt := 0
	db, err := retry.DoIfRetryable(ctx, retry.DefaultConfig(), func() (*database.DB, error) {
		attempt++
		db, err := database.NewConnection(ctx, dbCfg)
		if err != nil {
			logger.Warn("Database connection attempt failed",
				zap.Int("attempt", attempt),
				zap.String("error", logging.SanitizeError(err)))
		}
		return db, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %s", logging.SanitizeError(err))
	}

	logger.Info("Connected to database", zap.Int("attempts", attempt))
	return db, nil
}

// buildDeps wires repositories into services for the router.
func buildDeps(db *database.DB, logger *zap.Logger) handlers.RouterDeps {
	projectRepo := repositories.NewProjectRepository()
	tagRepo := repositories.NewTagRepository()
	providerRepo := repositories.NewCloudProviderRepository()
	serviceRepo := repositories.NewInfrastructureServiceRepository()
	elementRepo := repositories.NewInfrastructureElementRepository()
	metricRepo := repositories.NewMetricDefinitionRepository()
	valueRepo := repositories.NewMetricValueRepository()
	pipelineRepo := repositories.NewCicdPipelineRepository()
	userFlowRepo := repositories.NewUserFlowRepository()

	runInTx := services.DefaultTxRunner
	now := services.UTCClock

	return handlers.RouterDeps{
		DB:      db,
		Scope:   database.WithScope(db, logger),
		Metrics: middleware.NewMetrics(),

		Projects:   services.NewProjectService(projectRepo, tagRepo, elementRepo, pipelineRepo, runInTx, logger),
		Sdlc:       services.NewSdlcService(projectRepo, elementRepo, pipelineRepo, logger),
		UserFlows:  services.NewUserFlowService(projectRepo, userFlowRepo, logger),
		Catalog:    services.NewCatalogService(providerRepo, serviceRepo, metricRepo, runInTx, logger),
		Elements:   services.NewElementService(elementRepo, serviceRepo, metricRepo, valueRepo, tagRepo, runInTx, now, logger),
		Cicd:       services.NewCicdService(pipelineRepo, tagRepo, runInTx, now, logger),
		Historical: services.NewHistoricalService(projectRepo, serviceRepo, elementRepo, pipelineRepo, logger),
	}
}

// serveHTTP runs the server until ctx is cancelled, then drains in-flight
// requests within the configured shutdown timeout.
func serveHTTP(ctx context.Context, cfg *config.Config, handler http.Handler, logger *zap.Logger) error {
	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    cfg.ListenAddr(),
		Handler: handler,
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg.Go(func() error {
		logger.Info("Starting sustainability dashboard API",
			zap.String("addr", srv.Addr),
			zap.String("version", cfg.Version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		timeout := time.Duration(cfg.ShutdownTimeoutSeconds) * time.Second
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		logger.Info("Shutting down server", zap.Duration("timeout", timeout))
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}
