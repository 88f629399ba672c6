package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/feral-file/ff-alert-indexer/internal/adapter"
	"github.com/feral-file/ff-alert-indexer/internal/config"
	"github.com/feral-file/ff-alert-indexer/internal/logger"
	"github.com/feral-file/ff-alert-indexer/internal/metrics"
	"github.com/feral-file/ff-alert-indexer/internal/service"
	"github.com/feral-file/ff-alert-indexer/internal/source"
	"github.com/feral-file/ff-alert-indexer/internal/store"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
	dryRun     = flag.Bool("dry-run", false, "Validate and classify alerts without writing them")
	limit      = flag.Int("limit", -1, "Maximum number of alerts per run (overrides ingest.limit)")
)

func main() {
	flag.Parse()

	// Load configuration
	config.ChdirRepoRoot()
	cfg, err := config.LoadIngesterConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}
	if *limit >= 0 {
		cfg.Ingest.Limit = *limit
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize logger with sentry integration
	err = logger.Initialize(logger.Config{
		Debug:           cfg.Debug,
		SentryDSN:       cfg.SentryDSN,
		BreadcrumbLevel: zapcore.InfoLevel,
		Tags: map[string]string{
			"service": "ingester",
			"source":  cfg.Source.Type,
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting Ingester", zap.String("source", cfg.Source.Type), zap.Bool("dry_run", *dryRun))

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m, err = metrics.New()
		if err != nil {
			logger.FatalCtx(ctx, "Failed to register metrics", zap.Error(err))
		}
	}

	// Connect to database
	db, err := store.Open(cfg.Database.OpenConfig(logger.NewGormLogger(cfg.Debug, time.Second)))
	if err != nil {
		logger.FatalCtx(ctx, "Failed to connect to database", zap.Error(err), zap.String("driver", cfg.Database.Driver))
	}
	var storeOpts []store.Option
	if m != nil {
		storeOpts = append(storeOpts, store.WithMetrics(m.Store))
	}
	dataStore := store.NewSQLStore(db, storeOpts...)
	defer func() {
		if err := dataStore.Close(); err != nil {
			logger.Error(err, zap.String("component", "store"))
		}
	}()
	if err := dataStore.Initialize(ctx); err != nil {
		logger.FatalCtx(ctx, "Failed to initialize database", zap.Error(err))
	}

	clock := adapter.NewClock()
	svc, err := service.New(dataStore, service.Options{
		Clock:   clock,
		Metrics: m,
		Ingest:  cfg.Ingest.PipelineConfig(),
	})
	if err != nil {
		logger.FatalCtx(ctx, "Failed to create service", zap.Error(err))
	}

	// Build the source
	sourceConfig, err := cfg.Source.Build()
	if err != nil {
		logger.FatalCtx(ctx, "Failed to configure source", zap.Error(err))
	}
	src, err := source.NewDefaultFactory().Create(sourceConfig, source.Deps{
		FileSystem: adapter.NewFileSystem(),
		NatsJS:     adapter.NewNatsJetStream(),
		Cursors:    dataStore,
		Clock:      clock,
	})
	if err != nil {
		logger.FatalCtx(ctx, "Failed to create source", zap.Error(err), zap.String("type", cfg.Source.Type))
	}
	defer func() {
		if err := src.Close(); err != nil {
			logger.Error(err, zap.String("component", "source"))
		}
	}()

	var metricsServer *metrics.Server
	if m != nil {
		metricsServer = metrics.NewServer(cfg.Metrics.Address, m)
		go func() {
			if err := metricsServer.Start(); err != nil {
				logger.ErrorCtx(ctx, err)
			}
		}()
	}

	// Cancel the context on interrupt; the current run is finalized as cancelled
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			logger.InfoCtx(ctx, "Received shutdown signal", zap.String("signal", sig.String()))
			cancel()
		case <-ctx.Done():
		}
	}()

	opts := cfg.Ingest.Options(*dryRun)
	failed := false
	for {
		run, err := svc.Ingest(ctx, src, opts)
		if err != nil && !errors.Is(err, context.Canceled) {
			failed = true
		}
		if run != nil {
			logger.InfoCtx(ctx, "Run summary",
				zap.String("run_id", run.RunID),
				zap.String("status", string(run.Status)),
				zap.Int64("ingested", run.AlertsIngested),
				zap.Int64("reassociations", run.ReassociationsDetected),
			)
		}

		// A zero interval runs once
		if cfg.Ingest.Interval <= 0 || ctx.Err() != nil {
			break
		}
		select {
		case <-clock.After(cfg.Ingest.Interval):
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}
	}

	if metricsServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer shutdownCancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error(err)
		}
	}

	logger.Info("Ingester stopped")
	if failed {
		// Flush before exiting since deferred calls do not run on os.Exit
		logger.Flush(2 * time.Second)
		os.Exit(1)
	}
}
