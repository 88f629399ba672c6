package main

import (
	"context"
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
	"github.com/feral-file/ff-alert-indexer/internal/store"
	"github.com/feral-file/ff-alert-indexer/internal/sweeper"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
)

func main() {
	flag.Parse()

	// Load configuration
	config.ChdirRepoRoot()
	cfg, err := config.LoadSweeperConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
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
			"service": "sweeper",
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting Sweeper")

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
	logger.InfoCtx(ctx, "Connected to database",
		zap.String("driver", cfg.Database.Driver),
		zap.Int("max_open_conns", cfg.Database.MaxOpenConns),
	)

	clock := adapter.NewClock()
	retry := sweeper.RetryConfig{
		InitialInterval: cfg.Retry.InitialInterval,
		MaxInterval:     cfg.Retry.MaxInterval,
		MaxElapsedTime:  cfg.Retry.MaxElapsedTime,
	}

	var sweepers []sweeper.Sweeper
	if cfg.ProcessingSweeper.Enabled {
		svc, err := service.New(dataStore, service.Options{
			Clock:      clock,
			Metrics:    m,
			Processing: cfg.Processing.RunnerConfig(),
			Overrides:  cfg.Processing.Overrides(),
		})
		if err != nil {
			logger.FatalCtx(ctx, "Failed to create service", zap.Error(err))
		}
		sweepers = append(sweepers, sweeper.NewProcessingSweeper(&sweeper.ProcessingSweeperConfig{
			Interval:   cfg.ProcessingSweeper.Interval,
			WindowDays: cfg.Processing.WindowDays,
			Only:       cfg.Processing.Only,
			Retry:      retry,
		}, svc.Runner(), clock))
		logger.InfoCtx(ctx, "Initialized processing sweeper",
			zap.Duration("interval", cfg.ProcessingSweeper.Interval),
			zap.Int("window_days", cfg.Processing.WindowDays),
		)
	}
	if cfg.RetentionSweeper.Enabled {
		sweepers = append(sweepers, sweeper.NewRetentionSweeper(&sweeper.RetentionSweeperConfig{
			Interval:      cfg.RetentionSweeper.Interval,
			RetentionDays: cfg.RetentionSweeper.RetentionDays,
			Retry:         retry,
		}, dataStore, clock))
		logger.InfoCtx(ctx, "Initialized retention sweeper",
			zap.Duration("interval", cfg.RetentionSweeper.Interval),
			zap.Int("retention_days", cfg.RetentionSweeper.RetentionDays),
		)
	}
	if len(sweepers) == 0 {
		logger.WarnCtx(ctx, "No sweeper enabled, exiting")
		return
	}

	// Start the sweepers and the metrics server
	errChan := make(chan error, len(sweepers)+1)
	for _, s := range sweepers {
		go func(s sweeper.Sweeper) {
			if err := s.Start(ctx); err != nil {
				errChan <- fmt.Errorf("%s: %w", s.Name(), err)
			}
		}(s)
	}

	var metricsServer *metrics.Server
	if m != nil {
		metricsServer = metrics.NewServer(cfg.Metrics.Address, m)
		go func() {
			if err := metricsServer.Start(); err != nil {
				errChan <- err
			}
		}()
	}

	// Wait for interrupt signal or error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.InfoCtx(ctx, "Received shutdown signal", zap.String("signal", sig.String()))
	case err := <-errChan:
		logger.ErrorCtx(ctx, err)
	}

	// Cancel context to stop the sweepers
	cancel()

	// Give the sweepers time to shut down gracefully
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	for _, s := range sweepers {
		if err := s.Stop(shutdownCtx); err != nil {
			logger.ErrorCtx(shutdownCtx, err, zap.String("sweeper", s.Name()))
		}
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.ErrorCtx(shutdownCtx, err)
		}
	}

	logger.InfoCtx(shutdownCtx, "Sweeper stopped")
}
