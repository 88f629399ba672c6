package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/feral-file/ff-alert-indexer/internal/adapter"
	"github.com/feral-file/ff-alert-indexer/internal/api/middleware"
	"github.com/feral-file/ff-alert-indexer/internal/api/server"
	"github.com/feral-file/ff-alert-indexer/internal/config"
	"github.com/feral-file/ff-alert-indexer/internal/logger"
	"github.com/feral-file/ff-alert-indexer/internal/metrics"
	"github.com/feral-file/ff-alert-indexer/internal/ratelimit"
	"github.com/feral-file/ff-alert-indexer/internal/service"
	"github.com/feral-file/ff-alert-indexer/internal/store"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
)

func main() {
	flag.Parse()

	// Load configuration
	config.ChdirRepoRoot()
	cfg, err := config.LoadAPIConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize logger with sentry integration
	err = logger.Initialize(logger.Config{
		Debug:           cfg.Debug,
		SentryDSN:       cfg.SentryDSN,
		BreadcrumbLevel: zapcore.InfoLevel,
		Tags: map[string]string{
			"service": "api-server",
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting alert indexer API")

	// Initialize metrics
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
		zap.Bool("read_replica", cfg.Database.ReadDSN() != ""),
	)

	clock := adapter.NewClock()
	svc, err := service.New(dataStore, service.Options{
		Clock:      clock,
		Metrics:    m,
		Processing: cfg.Processing.RunnerConfig(),
		Overrides:  cfg.Processing.Overrides(),
	})
	if err != nil {
		logger.FatalCtx(ctx, "Failed to create service", zap.Error(err))
	}

	auth, err := middleware.NewAuthenticator(middleware.AuthConfig{
		JWTPublicKey: cfg.Auth.JWTPublicKey,
		APIKeys:      cfg.Auth.APIKeys,
	})
	if err != nil {
		logger.FatalCtx(ctx, "Failed to configure authentication", zap.Error(err))
	}
	if !auth.Enabled() {
		logger.WarnCtx(ctx, "No API keys or JWT public key configured, write endpoints will reject every request")
	}

	serverConfig := server.Config{
		Debug:          cfg.Debug,
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		ReadTimeout:    time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:    time.Duration(cfg.Server.IdleTimeout) * time.Second,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}
	if cfg.Server.RateLimit.RequestsPerSecond > 0 {
		limiter, err := ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerSecond: cfg.Server.RateLimit.RequestsPerSecond,
			Burst:             cfg.Server.RateLimit.Burst,
		}, clock)
		if err != nil {
			logger.FatalCtx(ctx, "Failed to create rate limiter", zap.Error(err))
		}
		serverConfig.RateLimiter = limiter
	}
	var metricsHandler http.Handler
	if m != nil {
		metricsHandler = m.Handler()
	}
	srv := server.New(serverConfig, svc, auth, clock, metricsHandler)

	// Start server in a goroutine
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			errCh <- err
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.InfoCtx(ctx, "Received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	case err := <-errCh:
		logger.ErrorCtx(ctx, err, zap.String("component", "server"))
		cancel()
	}

	// Create shutdown context with timeout (don't use canceled ctx)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.ErrorCtx(shutdownCtx, err, zap.String("component", "server"))
	}

	// Use non-context logger for final message since original ctx is canceled
	logger.Info("API server stopped")
}
