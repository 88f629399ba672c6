// Package service is the entry point of the alert engine. It ties the
// ingestion pipeline, the filter engine and the processing runner to one store.
package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/feral-file/ff-alert-indexer/internal/adapter"
	"github.com/feral-file/ff-alert-indexer/internal/domain"
	"github.com/feral-file/ff-alert-indexer/internal/filter"
	"github.com/feral-file/ff-alert-indexer/internal/ingest"
	"github.com/feral-file/ff-alert-indexer/internal/logger"
	"github.com/feral-file/ff-alert-indexer/internal/metrics"
	"github.com/feral-file/ff-alert-indexer/internal/processing"
	"github.com/feral-file/ff-alert-indexer/internal/processing/builtin"
	"github.com/feral-file/ff-alert-indexer/internal/source"
	"github.com/feral-file/ff-alert-indexer/internal/store"
)

// Options configure the components of a Service
type Options struct {
	Clock      adapter.Clock
	Metrics    *metrics.Metrics
	Ingest     ingest.Config
	Processing processing.Config
	// Overrides tune the builtin processors by name
	Overrides map[string]processing.ProcessorConfig
	// Registry replaces the builtin processors when set
	Registry *processing.Registry
}

// Service exposes ingestion, filtering, processing and statistics over one store
type Service struct {
	store    store.Store
	pipeline *ingest.Pipeline
	filters  *filter.Engine
	runner   *processing.Runner
}

// New creates a service over st. The builtin processors are registered unless
// opts.Registry is provided.
func New(st store.Store, opts Options) (*Service, error) {
	if opts.Clock == nil {
		opts.Clock = adapter.NewClock()
	}
	if opts.Processing.Parallelism <= 0 {
		opts.Processing.Parallelism = 1
	}

	var (
		ingestMetrics     *metrics.IngestMetrics
		processingMetrics *metrics.ProcessingMetrics
	)
	if opts.Metrics != nil {
		ingestMetrics = opts.Metrics.Ingest
		processingMetrics = opts.Metrics.Processing
	}

	registry := opts.Registry
	if registry == nil {
		registry = processing.NewRegistry()
		if err := builtin.Register(registry, opts.Overrides); err != nil {
			return nil, err
		}
	}

	return &Service{
		store:    st,
		pipeline: ingest.New(opts.Ingest, st, opts.Clock, ingestMetrics),
		filters:  filter.NewEngine(st),
		runner:   processing.NewRunner(opts.Processing, registry, st, opts.Clock, processingMetrics),
	}, nil
}

// Ingest runs one ingestion run over src. The returned run is finalized also when an error is returned.
func (s *Service) Ingest(ctx context.Context, src source.Source, opts ingest.Options) (*domain.IngestionRun, error) {
	return s.pipeline.Run(ctx, src, opts)
}

// ApplyFilter returns the stored alerts matching cfg
func (s *Service) ApplyFilter(ctx context.Context, cfg filter.Config) ([]domain.Alert, error) {
	return s.filters.Apply(ctx, cfg)
}

// RunProcessors runs every registered processor over the last windowDays days.
// A windowDays of 0 lets each processor use its own window.
func (s *Service) RunProcessors(ctx context.Context, windowDays int) (*processing.Report, error) {
	return s.runner.RunAll(ctx, windowDays)
}

// GetStats summarizes the stored data
func (s *Service) GetStats(ctx context.Context) (*store.Stats, error) {
	stats, err := s.store.GetStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}

	logger.DebugCtx(ctx, "Stats collected",
		zap.Int64("total_alerts", stats.TotalAlerts),
		zap.Int64("tracked_states", stats.TrackedStates))

	return stats, nil
}

// Filters returns the filter engine
func (s *Service) Filters() *filter.Engine {
	return s.filters
}

// Runner returns the processing runner
func (s *Service) Runner() *processing.Runner {
	return s.runner
}

// Store returns the underlying store
func (s *Service) Store() store.Store {
	return s.store
}
