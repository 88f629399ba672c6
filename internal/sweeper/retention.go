package sweeper

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/feral-file/ff-alert-indexer/internal/adapter"
	"github.com/feral-file/ff-alert-indexer/internal/domain"
	"github.com/feral-file/ff-alert-indexer/internal/logger"
	"github.com/feral-file/ff-alert-indexer/internal/store"
)

// RetentionSweeperConfig holds configuration for the association state retention sweeper
type RetentionSweeperConfig struct {
	Interval      time.Duration // Time between cycles
	RetentionDays int           // States not seen for this many days are deleted
	Retry         RetryConfig
}

// retentionSweeper deletes association states of detections that have not been seen recently
type retentionSweeper struct {
	*loop
	config *RetentionSweeperConfig
	store  store.Store
	clock  adapter.Clock
}

// NewRetentionSweeper creates a sweeper that prunes stale association states
func NewRetentionSweeper(config *RetentionSweeperConfig, st store.Store, clock adapter.Clock) Sweeper {
	s := &retentionSweeper{config: config, store: st, clock: clock}
	s.loop = newLoop(s.Name(), config.Interval, config.Retry, clock, s.prune)
	return s
}

// Name returns the sweeper's name
func (s *retentionSweeper) Name() string {
	return "retention-sweeper"
}

func (s *retentionSweeper) Start(ctx context.Context) error {
	return s.start(ctx)
}

func (s *retentionSweeper) Stop(ctx context.Context) error {
	return s.stop(ctx)
}

func (s *retentionSweeper) prune(ctx context.Context) error {
	if s.config.RetentionDays <= 0 {
		return nil
	}

	cutoff := domain.DaysAgoMJD(s.clock.Now(), float64(s.config.RetentionDays))
	deleted, err := s.store.DeleteStatesLastSeenBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to prune association states: %w", err)
	}

	logger.InfoCtx(ctx, "Association states pruned",
		zap.Float64("cutoff_mjd", cutoff),
		zap.Int64("deleted", deleted))

	return nil
}
