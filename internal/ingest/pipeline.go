package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/feral-file/ff-alert-indexer/internal/adapter"
	"github.com/feral-file/ff-alert-indexer/internal/domain"
	"github.com/feral-file/ff-alert-indexer/internal/logger"
	"github.com/feral-file/ff-alert-indexer/internal/metrics"
	"github.com/feral-file/ff-alert-indexer/internal/source"
	"github.com/feral-file/ff-alert-indexer/internal/store"
	"github.com/feral-file/ff-alert-indexer/internal/tracker"
)

// DefaultBatchSize is the number of alerts written per store transaction
const DefaultBatchSize = 1000

// Metric outcomes of ingested alerts
const (
	outcomeFetched       = "fetched"
	outcomeIngested      = "ingested"
	outcomeRejected      = "rejected"
	outcomeDuplicate     = "duplicate"
	outcomeReassociation = "reassociation"
)

// Options control one ingestion run
type Options struct {
	// BatchSize is the number of alerts per store write, DefaultBatchSize when 0
	BatchSize int
	// Limit caps the number of fetched alerts, 0 fetches until the source is exhausted
	Limit int
	// DryRun validates and classifies alerts without writing anything
	DryRun bool
}

// Config configures the retries of batch writes
type Config struct {
	RetryInitialInterval time.Duration
	RetryMaxInterval     time.Duration
	RetryMaxElapsedTime  time.Duration
}

// DefaultConfig returns the retry settings used by the ingester
func DefaultConfig() Config {
	return Config{
		RetryInitialInterval: 500 * time.Millisecond,
		RetryMaxInterval:     10 * time.Second,
		RetryMaxElapsedTime:  2 * time.Minute,
	}
}

// Pipeline pulls alerts from a source, classifies them against the stored
// association history and writes them to the store in batches
type Pipeline struct {
	cfg     Config
	store   store.Store
	clock   adapter.Clock
	metrics *metrics.IngestMetrics
}

// New creates an ingestion pipeline
func New(cfg Config, st store.Store, clock adapter.Clock, m *metrics.IngestMetrics) *Pipeline {
	if clock == nil {
		clock = adapter.NewClock()
	}
	if cfg.RetryInitialInterval <= 0 {
		cfg.RetryInitialInterval = DefaultConfig().RetryInitialInterval
	}
	if cfg.RetryMaxInterval <= 0 {
		cfg.RetryMaxInterval = DefaultConfig().RetryMaxInterval
	}
	if cfg.RetryMaxElapsedTime <= 0 {
		cfg.RetryMaxElapsedTime = DefaultConfig().RetryMaxElapsedTime
	}

	return &Pipeline{
		cfg:     cfg,
		store:   st,
		clock:   clock,
		metrics: m,
	}
}

// Run executes one ingestion run over src.
//
// Per-record failures (invalid alerts, out-of-order sightings, duplicates) are
// counted and never abort the run. Source and store failures end the run as
// failed after the pending batch was flushed. Cancelling ctx ends the run as
// cancelled with the records taken so far written. The returned run is always
// finalized, also when an error is returned.
func (p *Pipeline) Run(ctx context.Context, src source.Source, opts Options) (*domain.IngestionRun, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Limit < 0 {
		opts.Limit = 0
	}

	startedAt := p.clock.Now()
	run := &domain.IngestionRun{
		RunID:      ulid.MustNewDefault(startedAt).String(),
		SourceName: src.Name(),
		StartedAt:  startedAt,
		Status:     domain.RunStatusRunning,
		Metadata: map[string]any{
			"batch_size": opts.BatchSize,
			"limit":      opts.Limit,
			"dry_run":    opts.DryRun,
		},
	}
	ctx = logger.WithFields(ctx,
		zap.String("run_id", run.RunID),
		zap.String("source", run.SourceName),
	)

	if !opts.DryRun {
		if err := p.store.RecordRun(ctx, run); err != nil {
			return nil, fmt.Errorf("failed to start ingestion run: %w", err)
		}
	}
	logger.InfoCtx(ctx, "Ingestion run started",
		zap.Int("batch_size", opts.BatchSize),
		zap.Int("limit", opts.Limit),
		zap.Bool("dry_run", opts.DryRun),
	)

	r := &runState{
		pipeline: p,
		run:      run,
		opts:     opts,
		tracker:  tracker.New(p.store),
	}
	status, runErr := r.execute(ctx, src)

	return run, p.finalize(ctx, run, status, runErr, opts.DryRun)
}

func (p *Pipeline) finalize(ctx context.Context, run *domain.IngestionRun, status domain.RunStatus, runErr error, dryRun bool) error {
	run.Finish(status, p.clock.Now(), runErr)
	p.metrics.RecordRun(run.SourceName, string(status), run.Duration(), *run.CompletedAt)

	if !dryRun {
		if err := p.store.FinalizeRun(context.WithoutCancel(ctx), run); err != nil {
			logger.ErrorCtx(ctx, fmt.Errorf("failed to finalize ingestion run: %w", err))
			runErr = errors.Join(runErr, err)
		}
	}

	fields := []zap.Field{
		zap.String("status", string(status)),
		zap.Int64("fetched", run.AlertsFetched),
		zap.Int64("ingested", run.AlertsIngested),
		zap.Int64("rejected", run.AlertsRejected),
		zap.Int64("duplicates", run.Duplicates),
		zap.Int64("new_sources", run.NewSources),
		zap.Int64("reassociations", run.ReassociationsDetected),
		zap.Int64("batches", run.BatchesWritten),
		zap.Duration("duration", run.Duration()),
		zap.Float64("rate", run.ProcessingRate()),
	}
	if runErr != nil {
		logger.ErrorCtx(ctx, runErr, append(fields, zap.String("message", "Ingestion run ended with an error"))...)
		return runErr
	}
	logger.InfoCtx(ctx, "Ingestion run finished", fields...)

	return nil
}

// runState carries the counters and the open batch of one run
type runState struct {
	pipeline *Pipeline
	run      *domain.IngestionRun
	opts     Options
	tracker  *tracker.Tracker
	batch    []*domain.Alert
}

func (r *runState) execute(ctx context.Context, src source.Source) (domain.RunStatus, error) {
	if err := src.Connect(ctx); err != nil {
		if !errors.Is(err, domain.ErrSourceUnavailable) {
			err = fmt.Errorf("%w: %w", domain.ErrSourceUnavailable, err)
		}
		return domain.RunStatusFailed, fmt.Errorf("failed to connect source: %w", err)
	}
	defer func() {
		if err := src.Close(); err != nil {
			logger.WarnCtx(ctx, "Failed to close source", zap.Error(err))
		}
	}()

	var fatal error
	cancelled := false

	for raw, err := range src.Fetch(ctx, r.opts.Limit) {
		if ctx.Err() != nil {
			cancelled = true
			break
		}
		if fatal = r.consume(ctx, raw, err); fatal != nil {
			break
		}
		// sources treat the limit as a hint
		if r.limitReached() {
			break
		}
	}
	if fatal == nil && !cancelled && ctx.Err() != nil {
		cancelled = true
	}

	// the pending batch is written even when the run was cancelled or the source failed
	flushErr := r.flush(context.WithoutCancel(ctx))

	switch {
	case fatal != nil:
		if flushErr != nil {
			logger.ErrorCtx(ctx, flushErr, zap.String("message", "Failed to flush pending batch"))
		}
		return domain.RunStatusFailed, fatal
	case flushErr != nil:
		return domain.RunStatusFailed, flushErr
	case cancelled:
		logger.WarnCtx(ctx, "Ingestion run cancelled", zap.Error(ctx.Err()))
		return domain.RunStatusCancelled, nil
	}

	return domain.RunStatusCompleted, nil
}

// consume takes one fetched record into the open batch, flushing it when full.
// Only source and store failures are returned.
func (r *runState) consume(ctx context.Context, raw domain.RawAlert, err error) error {
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			r.reject(ctx, err)
			return nil
		}
		if !errors.Is(err, domain.ErrSourceUnavailable) {
			err = fmt.Errorf("%w: %w", domain.ErrSourceUnavailable, err)
		}
		return fmt.Errorf("source failed mid-stream: %w", err)
	}

	r.run.AlertsFetched++
	r.pipeline.metrics.AddAlerts(r.run.SourceName, outcomeFetched, 1)

	alert, err := domain.NewAlertFromRaw(raw)
	if err != nil {
		r.rejectFetched(ctx, err)
		return nil
	}
	r.batch = append(r.batch, alert)

	if len(r.batch) >= r.opts.BatchSize {
		return r.flush(ctx)
	}
	return nil
}

func (r *runState) limitReached() bool {
	return r.opts.Limit > 0 && r.run.AlertsFetched >= int64(r.opts.Limit)
}

// reject counts a record the source could not decode
func (r *runState) reject(ctx context.Context, err error) {
	r.run.AlertsFetched++
	r.pipeline.metrics.AddAlerts(r.run.SourceName, outcomeFetched, 1)
	r.rejectFetched(ctx, err)
}

// rejectFetched counts a fetched record that will not be written
func (r *runState) rejectFetched(ctx context.Context, err error) {
	r.run.AlertsRejected++
	r.pipeline.metrics.AddAlerts(r.run.SourceName, outcomeRejected, 1)
	logger.WarnCtx(ctx, "Alert rejected", zap.Error(err))
}

// flush classifies the open batch, writes it and persists the resulting
// association states. The store transaction never spans a source fetch.
func (r *runState) flush(ctx context.Context) error {
	if len(r.batch) == 0 {
		return nil
	}
	pending := r.batch
	r.batch = nil

	if err := r.tracker.Load(ctx, pending); err != nil {
		return fmt.Errorf("failed to load association states: %w", err)
	}

	tracked := make([]*domain.Alert, 0, len(pending))
	for _, alert := range pending {
		if _, err := r.tracker.Track(ctx, alert); err != nil {
			if errors.Is(err, domain.ErrOutOfOrder) {
				r.rejectFetched(ctx, err)
				continue
			}
			r.tracker.Discard()
			return fmt.Errorf("failed to track alert %d: %w", alert.AlertID, err)
		}
		tracked = append(tracked, alert)
	}
	if len(tracked) == 0 {
		r.tracker.Discard()
		return nil
	}

	if r.opts.DryRun {
		r.record(r.tracker.Commit(nil), len(tracked), 0)
		return nil
	}

	result, err := r.pipeline.writeWithRetry(ctx, r.run.SourceName, tracked)
	if err != nil {
		r.tracker.Discard()
		return err
	}

	// repeated sightings are not stored again but still advance the association history
	invalid := make(map[*domain.Alert]struct{}, len(result.Rejected))
	for _, row := range result.Rejected {
		if !row.Duplicate() && row.Index >= 0 && row.Index < len(tracked) {
			invalid[tracked[row.Index]] = struct{}{}
		}
		logger.DebugCtx(ctx, "Alert not written",
			zap.Int64("alert_id", row.AlertID),
			zap.Int64("dia_source_id", row.DetectionID),
			zap.String("reason", row.Reason))
	}
	commit := r.tracker.Commit(func(a *domain.Alert) bool {
		_, ok := invalid[a]
		return !ok
	})

	duplicates := result.Duplicates()
	r.run.AlertsRejected += int64(len(result.Rejected) - duplicates)
	r.pipeline.metrics.AddAlerts(r.run.SourceName, outcomeRejected, int64(len(result.Rejected)-duplicates))
	r.record(commit, result.Written, duplicates)

	// states lost here are rebuilt when the same sightings are ingested again
	return r.pipeline.persistStates(ctx, r.run.SourceName, commit.States)
}

// record adds the outcome of a committed batch to the run counters
func (r *runState) record(c tracker.Commit, written, duplicates int) {
	r.run.AlertsIngested += int64(written)
	r.run.Duplicates += int64(duplicates)
	r.run.NewSources += int64(c.NewDetections)
	r.run.ReassociationsDetected += int64(c.Reassociations)
	r.run.BatchesWritten++

	name := r.run.SourceName
	r.pipeline.metrics.AddAlerts(name, outcomeIngested, int64(written))
	r.pipeline.metrics.AddAlerts(name, outcomeDuplicate, int64(duplicates))
	r.pipeline.metrics.AddAlerts(name, outcomeReassociation, int64(c.Reassociations))
}

// writeWithRetry writes a batch, retrying with exponential backoff while the store is unavailable
func (p *Pipeline) writeWithRetry(ctx context.Context, sourceName string, alerts []*domain.Alert) (*store.WriteResult, error) {
	var result *store.WriteResult
	err := p.retry(ctx, sourceName, "Batch write", func() error {
		started := p.clock.Now()
		res, err := p.store.WriteBatch(ctx, alerts)
		p.metrics.ObserveBatchWrite(sourceName, p.clock.Since(started))
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to write batch: %w", err)
	}

	return result, nil
}

// persistStates upserts the association states of a committed batch with the same retries as batch writes
func (p *Pipeline) persistStates(ctx context.Context, sourceName string, states []*domain.AssociationState) error {
	if len(states) == 0 {
		return nil
	}
	err := p.retry(ctx, sourceName, "Association state write", func() error {
		return p.store.UpsertAssociationStates(ctx, states)
	})
	if err != nil {
		return fmt.Errorf("failed to persist association states: %w", err)
	}

	return nil
}

// retry runs op with exponential backoff while it fails with domain.ErrStoreUnavailable
func (p *Pipeline) retry(ctx context.Context, sourceName string, what string, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.cfg.RetryInitialInterval
	b.MaxInterval = p.cfg.RetryMaxInterval
	b.MaxElapsedTime = p.cfg.RetryMaxElapsedTime

	operation := func() error {
		err := op()
		if err != nil && !errors.Is(err, domain.ErrStoreUnavailable) {
			return backoff.Permanent(err)
		}
		return err
	}

	var attempts int
	notify := func(err error, next time.Duration) {
		attempts++
		p.metrics.RecordWriteRetry(sourceName)
		logger.WarnCtx(ctx, what+" failed, retrying",
			zap.Error(err),
			zap.Int("attempt", attempts),
			zap.Duration("next_retry_in", next),
		)
	}

	if err := backoff.RetryNotify(operation, backoff.WithContext(b, ctx), notify); err != nil {
		return fmt.Errorf("gave up after %d retries: %w", attempts, err)
	}

	return nil
}
