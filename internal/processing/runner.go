package processing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/feral-file/ff-alert-indexer/internal/adapter"
	"github.com/feral-file/ff-alert-indexer/internal/domain"
	"github.com/feral-file/ff-alert-indexer/internal/filter"
	"github.com/feral-file/ff-alert-indexer/internal/logger"
	"github.com/feral-file/ff-alert-indexer/internal/metrics"
	"github.com/feral-file/ff-alert-indexer/internal/store"
)

// Config configures a Runner
type Config struct {
	// Parallelism is the number of processors executed at once; 1 runs them in order
	Parallelism int
	// StopOnError skips the remaining processors after the first failure
	StopOnError bool
	// SaveResults persists every result, including skipped and failed ones
	SaveResults bool
}

// DefaultConfig runs processors one at a time and persists their results
func DefaultConfig() Config {
	return Config{Parallelism: 1, SaveResults: true}
}

// RunOptions select the processors and window of one pass
type RunOptions struct {
	// WindowDays overrides the window of every processor when positive
	WindowDays int
	// Only restricts the pass to the named processors
	Only []string
}

// Outcome is the result of one processor within a pass
type Outcome struct {
	Processor string
	Result    *domain.ProcessingResult
	Err       error
	Elapsed   time.Duration

	fatal bool
}

// Succeeded reports whether the processor ran without failing. Skipped
// processors succeed.
func (o Outcome) Succeeded() bool {
	return o.Err == nil
}

// Report summarizes a runner pass
type Report struct {
	PassID      string
	StartedAt   time.Time
	CompletedAt time.Time
	Outcomes    []Outcome
}

// SuccessCount returns the number of processors that did not fail
func (r *Report) SuccessCount() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Succeeded() {
			n++
		}
	}
	return n
}

// FailureCount returns the number of failed processors
func (r *Report) FailureCount() int {
	return len(r.Outcomes) - r.SuccessCount()
}

// Err joins the errors of every failed processor
func (r *Report) Err() error {
	var errs []error
	for _, o := range r.Outcomes {
		if o.Err != nil {
			errs = append(errs, o.Err)
		}
	}
	return errors.Join(errs...)
}

// Runner executes registered processors over a trailing window of stored
// alerts and persists their results
type Runner struct {
	config   Config
	registry *Registry
	store    store.Store
	engine   *filter.Engine
	clock    adapter.Clock
	metrics  *metrics.ProcessingMetrics

	persistMu sync.Mutex
}

// NewRunner creates a runner over the processors of reg
func NewRunner(cfg Config, reg *Registry, st store.Store, clock adapter.Clock, m *metrics.ProcessingMetrics) *Runner {
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = 1
	}
	return &Runner{
		config:   cfg,
		registry: reg,
		store:    st,
		engine:   filter.NewEngine(st),
		clock:    clock,
		metrics:  m,
	}
}

// Registry returns the processors the runner executes
func (r *Runner) Registry() *Registry {
	return r.registry
}

// RunAll runs every registered processor over the last windowDays days. When
// windowDays is not positive each processor uses its configured window.
// Processor failures are reported in the returned Report; the error is set only
// when the store failed or ctx was cancelled.
func (r *Runner) RunAll(ctx context.Context, windowDays int) (*Report, error) {
	return r.Run(ctx, RunOptions{WindowDays: windowDays})
}

// Run executes one pass
func (r *Runner) Run(ctx context.Context, opts RunOptions) (*Report, error) {
	names := opts.Only
	if len(names) == 0 {
		names = r.registry.Names()
	}

	report := &Report{
		PassID:    ulid.MustNewDefault(r.clock.Now()).String(),
		StartedAt: r.clock.Now(),
	}
	ctx = logger.WithFields(ctx, zap.String("pass_id", report.PassID))

	logger.InfoCtx(ctx, "Processing pass started",
		zap.Strings("processors", names),
		zap.Int("window_days", opts.WindowDays),
		zap.Int("parallelism", r.config.Parallelism))

	var outcomes []Outcome
	if r.config.Parallelism > 1 && len(names) > 1 {
		outcomes = r.runParallel(ctx, report.PassID, names, opts.WindowDays)
	} else {
		outcomes = r.runSequential(ctx, report.PassID, names, opts.WindowDays)
	}

	report.Outcomes = outcomes
	report.CompletedAt = r.clock.Now()

	var fatal []error
	for _, o := range outcomes {
		if o.fatal {
			fatal = append(fatal, o.Err)
		}
	}
	if err := ctx.Err(); err != nil {
		fatal = append(fatal, err)
	}

	logger.InfoCtx(ctx, "Processing pass finished",
		zap.Int("succeeded", report.SuccessCount()),
		zap.Int("failed", report.FailureCount()),
		zap.Duration("elapsed", report.CompletedAt.Sub(report.StartedAt)))

	if len(fatal) > 0 {
		return report, errors.Join(fatal...)
	}
	return report, nil
}

func (r *Runner) runSequential(ctx context.Context, passID string, names []string, windowDays int) []Outcome {
	outcomes := make([]Outcome, 0, len(names))
	for _, name := range names {
		if ctx.Err() != nil {
			break
		}

		o := r.execute(ctx, passID, name, windowDays)
		outcomes = append(outcomes, o)

		if o.fatal {
			break
		}
		if o.Err != nil && r.config.StopOnError {
			logger.WarnCtx(ctx, "Processing pass stopped after failure", zap.String("processor", name))
			break
		}
	}
	return outcomes
}

func (r *Runner) runParallel(ctx context.Context, passID string, names []string, windowDays int) []Outcome {
	pool := pond.NewPool(r.config.Parallelism, pond.WithContext(ctx))
	defer pool.StopAndWait()

	outcomes := make([]Outcome, len(names))
	ran := make([]bool, len(names))
	var stop atomic.Bool

	tasks := make([]pond.Task, 0, len(names))
	for i, name := range names {
		tasks = append(tasks, pool.Submit(func() {
			if stop.Load() || ctx.Err() != nil {
				return
			}
			o := r.execute(ctx, passID, name, windowDays)
			outcomes[i] = o
			ran[i] = true
			if o.fatal || (o.Err != nil && r.config.StopOnError) {
				stop.Store(true)
			}
		}))
	}
	for _, task := range tasks {
		if err := task.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			logger.ErrorCtx(ctx, err, zap.String("message", "Processor task did not complete"))
		}
	}

	completed := make([]Outcome, 0, len(names))
	for i := range outcomes {
		if ran[i] {
			completed = append(completed, outcomes[i])
		}
	}
	return completed
}

// execute runs one processor and persists its result
func (r *Runner) execute(ctx context.Context, passID, name string, windowDays int) Outcome {
	started := r.clock.Now()
	o := Outcome{Processor: name}

	p, cfg, ok := r.registry.Get(name)
	if !ok {
		o.Err = fmt.Errorf("%w: %w: processor %s", domain.ErrProcessorFailure, domain.ErrNotFound, name)
		logger.ErrorCtx(ctx, o.Err)
		return o
	}

	window := r.window(cfg, windowDays)
	alerts, err := r.load(ctx, p, window)
	switch {
	case err != nil && isFatal(err):
		o.Err = err
		o.fatal = true
		logger.ErrorCtx(ctx, err, zap.String("processor", name))
		return o
	case err != nil:
		o.Err = fmt.Errorf("%w: %s: %w", domain.ErrProcessorFailure, name, err)
		o.Result = failedResult(p, o.Err)
	case len(alerts) < cfg.MinAlerts:
		logger.WarnCtx(ctx, "Insufficient data for processor",
			zap.String("processor", name),
			zap.Int("found", len(alerts)),
			zap.Int("required", cfg.MinAlerts))
		o.Result = skippedResult(p, len(alerts), cfg.MinAlerts)
	default:
		o.Result, o.Err = invoke(ctx, p, alerts)
		if o.Err != nil {
			o.Result = failedResult(p, o.Err)
		}
	}

	r.complete(o.Result, p, passID, window, len(alerts))

	if r.config.SaveResults {
		if err := r.persist(ctx, o.Result); err != nil {
			o.Err = errors.Join(o.Err, err)
			o.fatal = isFatal(err)
		}
	}

	o.Elapsed = r.clock.Since(started)
	r.metrics.RecordExecution(name, string(o.Result.Status), o.Elapsed, len(o.Result.Records))

	if o.Err != nil {
		logger.ErrorCtx(ctx, o.Err, zap.String("processor", name), zap.Duration("elapsed", o.Elapsed))
	} else {
		logger.InfoCtx(ctx, "Processor completed",
			zap.String("processor", name),
			zap.String("status", string(o.Result.Status)),
			zap.Int("records", len(o.Result.Records)),
			zap.String("summary", o.Result.Summary),
			zap.Duration("elapsed", o.Elapsed))
	}

	return o
}

// window resolves [now - days, now] for a processor
func (r *Runner) window(cfg ProcessorConfig, windowDays int) Window {
	days := windowDays
	if days <= 0 {
		days = cfg.WindowDays
	}
	if days <= 0 {
		days = domain.DEFAULT_WINDOW_DAYS
	}
	now := r.clock.Now()
	return Window{
		StartMJD: domain.DaysAgoMJD(now, float64(days)),
		EndMJD:   domain.TimeToMJD(now),
	}
}

// load fetches the working set of p, narrowed by its pre-filter and clamped to the window
func (r *Runner) load(ctx context.Context, p Processor, window Window) ([]domain.Alert, error) {
	var cfg filter.Config
	if pf, ok := p.(PreFilterer); ok {
		cfg = pf.PreFilter(window)
	}

	start, end := window.StartMJD, window.EndMJD
	if cfg.MJDMin != nil {
		start = max(start, *cfg.MJDMin)
	}
	if cfg.MJDMax != nil {
		end = min(end, *cfg.MJDMax)
	}
	cfg.Name = "processor:" + p.Name()
	cfg.MJDMin = &start
	cfg.MJDMax = &end
	cfg.OrderBy = "mjd"
	cfg.OrderDesc = false
	cfg.Limit = 0

	if start > end {
		return nil, nil
	}
	return r.engine.Apply(ctx, cfg)
}

// invoke calls Process, turning errors and panics into domain.ErrProcessorFailure
func invoke(ctx context.Context, p Processor, alerts []domain.Alert) (result *domain.ProcessingResult, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			result = nil
			err = fmt.Errorf("%w: %s panicked: %v", domain.ErrProcessorFailure, p.Name(), rec)
		}
	}()

	result, err = p.Process(ctx, alerts)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrProcessorFailure, p.Name(), err)
	}
	if result == nil {
		return nil, fmt.Errorf("%w: %s returned no result", domain.ErrProcessorFailure, p.Name())
	}
	return result, nil
}

// complete stamps the identity and window of a pass on result
func (r *Runner) complete(result *domain.ProcessingResult, p Processor, passID string, window Window, inputRows int) {
	result.PassID = passID
	result.ProcessorName = p.Name()
	result.ProcessorVersion = p.Version()
	if result.Status == "" {
		result.Status = domain.ResultStatusSuccess
	}
	if result.Records == nil {
		result.Records = []map[string]any{}
	}
	result.WindowStartMJD = &window.StartMJD
	result.WindowEndMJD = &window.EndMJD
	result.ProcessedAt = r.clock.Now()

	if result.Metadata == nil {
		result.Metadata = map[string]any{}
	}
	result.Metadata["window_start_mjd"] = window.StartMJD
	result.Metadata["window_end_mjd"] = window.EndMJD
	result.Metadata["input_rows"] = inputRows
}

// persist writes one result. Writes are serialized across parallel processors.
func (r *Runner) persist(ctx context.Context, result *domain.ProcessingResult) error {
	r.persistMu.Lock()
	defer r.persistMu.Unlock()

	if err := r.store.RecordProcessingResult(context.WithoutCancel(ctx), result); err != nil {
		return fmt.Errorf("failed to persist result of %s: %w", result.ProcessorName, err)
	}
	return nil
}

// History returns the most recent results of a processor, newest first
func (r *Runner) History(ctx context.Context, name string, limit int) ([]*domain.ProcessingResult, error) {
	return r.store.ListProcessingResults(ctx, name, limit)
}

func isFatal(err error) bool {
	return errors.Is(err, domain.ErrStoreUnavailable) ||
		errors.Is(err, domain.ErrSchema) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
