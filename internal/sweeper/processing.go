package sweeper

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/feral-file/ff-alert-indexer/internal/adapter"
	"github.com/feral-file/ff-alert-indexer/internal/logger"
	"github.com/feral-file/ff-alert-indexer/internal/processing"
)

// ProcessingSweeperConfig holds configuration for the processing sweeper
type ProcessingSweeperConfig struct {
	Interval   time.Duration // Time between passes
	WindowDays int           // Pass window, each processor's own window when 0
	Only       []string      // Processors to run, all when empty
	Retry      RetryConfig
}

// processingSweeper runs a processing pass every interval
type processingSweeper struct {
	*loop
	config *ProcessingSweeperConfig
	runner PassRunner
}

// NewProcessingSweeper creates a sweeper that periodically runs the registered processors
func NewProcessingSweeper(config *ProcessingSweeperConfig, runner PassRunner, clock adapter.Clock) Sweeper {
	s := &processingSweeper{config: config, runner: runner}
	s.loop = newLoop(s.Name(), config.Interval, config.Retry, clock, s.runPass)
	return s
}

// Name returns the sweeper's name
func (s *processingSweeper) Name() string {
	return "processing-sweeper"
}

func (s *processingSweeper) Start(ctx context.Context) error {
	return s.start(ctx)
}

func (s *processingSweeper) Stop(ctx context.Context) error {
	return s.stop(ctx)
}

// runPass runs one pass. Processor failures are logged; only store failures fail the cycle.
func (s *processingSweeper) runPass(ctx context.Context) error {
	report, err := s.runner.Run(ctx, processing.RunOptions{
		WindowDays: s.config.WindowDays,
		Only:       s.config.Only,
	})
	if err != nil {
		return fmt.Errorf("failed to run processing pass: %w", err)
	}

	for _, o := range report.Outcomes {
		if o.Err != nil {
			logger.WarnCtx(ctx, "Processor failed during sweep",
				zap.String("pass_id", report.PassID),
				zap.String("processor", o.Processor),
				zap.Error(o.Err))
		}
	}

	logger.InfoCtx(ctx, "Processing sweep completed",
		zap.String("pass_id", report.PassID),
		zap.Int("succeeded", report.SuccessCount()),
		zap.Int("failed", report.FailureCount()))

	return nil
}
