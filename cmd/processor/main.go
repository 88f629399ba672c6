package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/feral-file/ff-alert-indexer/internal/adapter"
	"github.com/feral-file/ff-alert-indexer/internal/config"
	"github.com/feral-file/ff-alert-indexer/internal/logger"
	"github.com/feral-file/ff-alert-indexer/internal/service"
	"github.com/feral-file/ff-alert-indexer/internal/store"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
	windowDays = flag.Int("window-days", -1, "Window in days for every processor (overrides processing.window_days)")
	only       = flag.String("only", "", "Comma separated processors to run (overrides processing.only)")
)

func main() {
	flag.Parse()

	// Load configuration
	config.ChdirRepoRoot()
	cfg, err := config.LoadProcessorConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}
	if *windowDays >= 0 {
		cfg.Processing.WindowDays = *windowDays
	}
	if *only != "" {
		cfg.Processing.Only = strings.Split(*only, ",")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Initialize logger with sentry integration
	err = logger.Initialize(logger.Config{
		Debug:           cfg.Debug,
		SentryDSN:       cfg.SentryDSN,
		BreadcrumbLevel: zapcore.InfoLevel,
		Tags: map[string]string{
			"service": "processor",
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	logger.InfoCtx(ctx, "Starting Processor")

	code := run(ctx, cfg)
	logger.Flush(2 * time.Second)
	os.Exit(code)
}

func run(ctx context.Context, cfg *config.ProcessorConfig) int {
	// Connect to database
	db, err := store.Open(cfg.Database.OpenConfig(logger.NewGormLogger(cfg.Debug, time.Second)))
	if err != nil {
		logger.ErrorCtx(ctx, fmt.Errorf("failed to connect to database: %w", err))
		return 1
	}
	dataStore := store.NewSQLStore(db)
	defer func() {
		if err := dataStore.Close(); err != nil {
			logger.Error(err, zap.String("component", "store"))
		}
	}()
	if err := dataStore.Initialize(ctx); err != nil {
		logger.ErrorCtx(ctx, fmt.Errorf("failed to initialize database: %w", err))
		return 1
	}

	svc, err := service.New(dataStore, service.Options{
		Clock:      adapter.NewClock(),
		Processing: cfg.Processing.RunnerConfig(),
		Overrides:  cfg.Processing.Overrides(),
	})
	if err != nil {
		logger.ErrorCtx(ctx, err)
		return 1
	}

	report, err := svc.Runner().Run(ctx, cfg.Processing.RunOptions())
	if err != nil {
		logger.ErrorCtx(ctx, err, zap.String("message", "Processing pass aborted"))
		return 1
	}

	for _, o := range report.Outcomes {
		fields := []zap.Field{
			zap.String("processor", o.Processor),
			zap.Duration("elapsed", o.Elapsed),
		}
		if o.Result != nil {
			fields = append(fields,
				zap.String("status", string(o.Result.Status)),
				zap.String("summary", o.Result.Summary),
				zap.Int("records", len(o.Result.Records)),
			)
		}
		if o.Err != nil {
			logger.WarnCtx(ctx, "Processor failed", append(fields, zap.Error(o.Err))...)
			continue
		}
		logger.InfoCtx(ctx, "Processor finished", fields...)
	}

	if report.FailureCount() > 0 {
		return 1
	}
	return 0
}
