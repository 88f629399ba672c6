package processing_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-alert-indexer/internal/adapter"
	"github.com/feral-file/ff-alert-indexer/internal/domain"
	"github.com/feral-file/ff-alert-indexer/internal/filter"
	"github.com/feral-file/ff-alert-indexer/internal/logger"
	"github.com/feral-file/ff-alert-indexer/internal/mocks"
	"github.com/feral-file/ff-alert-indexer/internal/processing"
	"github.com/feral-file/ff-alert-indexer/internal/store"
	"github.com/feral-file/ff-alert-indexer/internal/types"
)

func TestMain(m *testing.M) {
	if err := logger.Initialize(logger.Config{Debug: false}); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

var (
	testNow    = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	testNowMJD = domain.TimeToMJD(testNow)
)

func openStore(t *testing.T) store.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "alerts.db")
	db, err := store.Open(store.OpenConfig{
		Driver:  "sqlite",
		DSN:     store.SQLiteDSN(path),
		ReadDSN: store.SQLiteReadOnlyDSN(path),
	})
	require.NoError(t, err)

	st := store.NewSQLStore(db)
	require.NoError(t, st.Initialize(context.Background()))
	t.Cleanup(func() { _ = st.Close() })
	return st
}

// seedDaysAgo stores one alert per entry, observed that many days before testNow
func seedDaysAgo(t *testing.T, st store.Store, daysAgo ...float64) {
	t.Helper()
	alerts := make([]*domain.Alert, 0, len(daysAgo))
	for i, d := range daysAgo {
		id := int64(i + 1)
		alerts = append(alerts, &domain.Alert{
			AlertID:            id * 100,
			DetectionID:        id,
			RA:                 10,
			Dec:                10,
			MJD:                testNowMJD - d,
			FilterBand:         domain.FilterBandG,
			ExtendednessMedian: types.Float64Ptr(0.5),
		})
	}
	res, err := st.WriteBatch(context.Background(), alerts)
	require.NoError(t, err)
	require.Equal(t, len(alerts), res.Written)
}

func newRunner(cfg processing.Config, reg *processing.Registry, st store.Store) *processing.Runner {
	return processing.NewRunner(cfg, reg, st, adapter.NewFixedClock(testNow), nil)
}

func mockProcessor(ctrl *gomock.Controller, name string) *mocks.MockProcessor {
	p := mocks.NewMockProcessor(ctrl)
	p.EXPECT().Name().Return(name).AnyTimes()
	p.EXPECT().Version().Return("0.1.0").AnyTimes()
	return p
}

func countingResult(name string) func(context.Context, []domain.Alert) (*domain.ProcessingResult, error) {
	return func(_ context.Context, alerts []domain.Alert) (*domain.ProcessingResult, error) {
		return &domain.ProcessingResult{
			ProcessorName: name,
			Records:       []map[string]any{{"count": len(alerts)}},
			Summary:       fmt.Sprintf("%d alerts", len(alerts)),
		}, nil
	}
}

// preFiltering is a processor with a pre-filter
type preFiltering struct {
	*mocks.MockProcessor
	*mocks.MockPreFilterer
}

func TestRegistry_RejectsDuplicateNames(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	reg := processing.NewRegistry()
	require.NoError(t, reg.Register(mockProcessor(ctrl, "stats"), processing.ProcessorConfig{}))

	err := reg.Register(mockProcessor(ctrl, "stats"), processing.ProcessorConfig{WindowDays: 3})
	assert.True(t, errors.Is(err, domain.ErrDuplicateProcessor))

	err = reg.Register(mockProcessor(ctrl, " "), processing.ProcessorConfig{})
	assert.True(t, errors.Is(err, domain.ErrInvalidConfig))

	err = reg.Register(mockProcessor(ctrl, "negative"), processing.ProcessorConfig{MinAlerts: -1})
	assert.True(t, errors.Is(err, domain.ErrInvalidConfig))

	_, cfg, ok := reg.Get("stats")
	require.True(t, ok)
	assert.Zero(t, cfg.WindowDays, "the first registration is kept")
	assert.Equal(t, 1, reg.Len())
}

func TestRegistry_Info(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	reg := processing.NewRegistry()
	require.NoError(t, reg.Register(mockProcessor(ctrl, "zeta"), processing.ProcessorConfig{WindowDays: 3}))
	require.NoError(t, reg.Register(preFiltering{mockProcessor(ctrl, "alpha"), mocks.NewMockPreFilterer(ctrl)}, processing.ProcessorConfig{MinAlerts: 2}))

	assert.Equal(t, []string{"alpha", "zeta"}, reg.Names())

	infos := reg.Info()
	require.Len(t, infos, 2)
	assert.Equal(t, "alpha", infos[0].Name)
	assert.True(t, infos[0].PreFilter)
	assert.Equal(t, 2, infos[0].MinAlerts)
	assert.Equal(t, "zeta", infos[1].Name)
	assert.False(t, infos[1].PreFilter)
	assert.Equal(t, 3, infos[1].WindowDays)
	assert.Equal(t, "0.1.0", infos[1].Version)
}

func TestRunner_IsolatesProcessorFailures(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx := context.Background()
	st := openStore(t)
	seedDaysAgo(t, st, 1, 2, 3)

	failing := mockProcessor(ctrl, "a_failing")
	failing.EXPECT().Process(gomock.Any(), gomock.Len(3)).Return(nil, errors.New("boom"))
	healthy := mockProcessor(ctrl, "b_healthy")
	healthy.EXPECT().Process(gomock.Any(), gomock.Len(3)).DoAndReturn(countingResult("b_healthy"))

	reg := processing.NewRegistry()
	require.NoError(t, reg.Register(failing, processing.ProcessorConfig{}))
	require.NoError(t, reg.Register(healthy, processing.ProcessorConfig{}))

	report, err := newRunner(processing.DefaultConfig(), reg, st).RunAll(ctx, 15)
	require.NoError(t, err)
	require.Len(t, report.Outcomes, 2)
	assert.NotEmpty(t, report.PassID)
	assert.Equal(t, 1, report.SuccessCount())
	assert.Equal(t, 1, report.FailureCount())
	assert.True(t, errors.Is(report.Err(), domain.ErrProcessorFailure))

	failed := report.Outcomes[0]
	assert.Equal(t, "a_failing", failed.Processor)
	assert.True(t, errors.Is(failed.Err, domain.ErrProcessorFailure))
	assert.Contains(t, failed.Err.Error(), "boom")

	results, err := st.ListProcessingResults(ctx, "b_healthy", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, domain.ResultStatusSuccess, results[0].Status)
	assert.Equal(t, "0.1.0", results[0].ProcessorVersion)
	assert.Equal(t, report.PassID, results[0].PassID)
	assert.Equal(t, "3 alerts", results[0].Summary)

	results, err = st.ListProcessingResults(ctx, "a_failing", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, domain.ResultStatusFailed, results[0].Status)
	require.NotNil(t, results[0].ErrorMessage)
	assert.Contains(t, *results[0].ErrorMessage, "boom")
	assert.Empty(t, results[0].Records)
}

func TestRunner_RecoversPanickingProcessor(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx := context.Background()
	st := openStore(t)
	seedDaysAgo(t, st, 1)

	panicking := mockProcessor(ctrl, "panicking")
	panicking.EXPECT().Process(gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, []domain.Alert) (*domain.ProcessingResult, error) {
			panic("index out of range")
		})
	empty := mockProcessor(ctrl, "returns_nil")
	empty.EXPECT().Process(gomock.Any(), gomock.Any()).Return(nil, nil)
	healthy := mockProcessor(ctrl, "z_healthy")
	healthy.EXPECT().Process(gomock.Any(), gomock.Any()).DoAndReturn(countingResult("z_healthy"))

	reg := processing.NewRegistry()
	for _, p := range []processing.Processor{panicking, empty, healthy} {
		require.NoError(t, reg.Register(p, processing.ProcessorConfig{}))
	}

	report, err := newRunner(processing.DefaultConfig(), reg, st).RunAll(ctx, 15)
	require.NoError(t, err)
	require.Len(t, report.Outcomes, 3)

	assert.True(t, errors.Is(report.Outcomes[0].Err, domain.ErrProcessorFailure))
	assert.Contains(t, report.Outcomes[0].Err.Error(), "panicked")
	assert.True(t, errors.Is(report.Outcomes[1].Err, domain.ErrProcessorFailure))
	assert.True(t, report.Outcomes[2].Succeeded())
}

func TestRunner_WindowAndOrdering(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx := context.Background()
	st := openStore(t)
	// ids 1..4 observed 2, 20, 0.5 and 6 days ago
	seedDaysAgo(t, st, 2, 20, 0.5, 6)

	var seen []domain.Alert
	p := mockProcessor(ctrl, "window")
	p.EXPECT().Process(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, alerts []domain.Alert) (*domain.ProcessingResult, error) {
			seen = alerts
			return &domain.ProcessingResult{}, nil
		})

	reg := processing.NewRegistry()
	require.NoError(t, reg.Register(p, processing.ProcessorConfig{WindowDays: 30}))

	report, err := newRunner(processing.DefaultConfig(), reg, st).RunAll(ctx, 7)
	require.NoError(t, err)
	require.Len(t, report.Outcomes, 1)

	ids := make([]int64, len(seen))
	for i, a := range seen {
		ids[i] = a.DetectionID
	}
	assert.Equal(t, []int64{4, 1, 3}, ids, "alerts of the last 7 days, oldest first")

	result := report.Outcomes[0].Result
	require.NotNil(t, result.WindowStartMJD)
	require.NotNil(t, result.WindowEndMJD)
	assert.InDelta(t, testNowMJD-7, *result.WindowStartMJD, 1e-6)
	assert.InDelta(t, testNowMJD, *result.WindowEndMJD, 1e-6)
	assert.Equal(t, 3, result.Metadata["input_rows"])
	assert.Equal(t, domain.ResultStatusSuccess, result.Status)
	assert.Equal(t, testNow, result.ProcessedAt)
}

func TestRunner_UsesProcessorWindowWhenPassHasNone(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx := context.Background()
	st := openStore(t)
	seedDaysAgo(t, st, 2, 20, 40)

	p := mockProcessor(ctrl, "month")
	p.EXPECT().Process(gomock.Any(), gomock.Len(2)).DoAndReturn(countingResult("month"))

	reg := processing.NewRegistry()
	require.NoError(t, reg.Register(p, processing.ProcessorConfig{WindowDays: 30}))

	report, err := newRunner(processing.DefaultConfig(), reg, st).RunAll(ctx, 0)
	require.NoError(t, err)
	require.Len(t, report.Outcomes, 1)
	assert.True(t, report.Outcomes[0].Succeeded())
}

func TestRunner_PreFilterNarrowsWorkingSet(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx := context.Background()
	st := openStore(t)
	seedDaysAgo(t, st, 1, 2, 3, 4)

	base := mockProcessor(ctrl, "recent_only")
	base.EXPECT().Process(gomock.Any(), gomock.Len(3)).DoAndReturn(countingResult("recent_only"))
	pf := mocks.NewMockPreFilterer(ctrl)
	pf.EXPECT().PreFilter(gomock.Any()).DoAndReturn(func(w processing.Window) filter.Config {
		assert.InDelta(t, 15, w.Days(), 1e-6)
		// wider than the window on the left, narrower on the right
		return filter.Config{
			MJDMin: types.Float64Ptr(w.StartMJD - 100),
			MJDMax: types.Float64Ptr(testNowMJD - 1.5),
			DecMin: types.Float64Ptr(0),
		}
	})

	reg := processing.NewRegistry()
	require.NoError(t, reg.Register(preFiltering{base, pf}, processing.ProcessorConfig{}))

	report, err := newRunner(processing.DefaultConfig(), reg, st).RunAll(ctx, 15)
	require.NoError(t, err)
	require.Len(t, report.Outcomes, 1)
	assert.True(t, report.Outcomes[0].Succeeded())
}

func TestRunner_InvalidPreFilterIsAProcessorFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx := context.Background()
	st := openStore(t)

	base := mockProcessor(ctrl, "contradictory")
	pf := mocks.NewMockPreFilterer(ctrl)
	pf.EXPECT().PreFilter(gomock.Any()).Return(filter.Config{RequireAssociation: true, ExcludeAssociation: true})

	reg := processing.NewRegistry()
	require.NoError(t, reg.Register(preFiltering{base, pf}, processing.ProcessorConfig{}))

	report, err := newRunner(processing.DefaultConfig(), reg, st).RunAll(ctx, 15)
	require.NoError(t, err)
	require.Len(t, report.Outcomes, 1)
	assert.True(t, errors.Is(report.Outcomes[0].Err, domain.ErrProcessorFailure))
	assert.True(t, errors.Is(report.Outcomes[0].Err, domain.ErrInvalidConfig))
}

func TestRunner_SkipsWhenDataIsInsufficient(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx := context.Background()
	st := openStore(t)
	seedDaysAgo(t, st, 1, 2)

	// Process is never called
	p := mockProcessor(ctrl, "needs_more")

	reg := processing.NewRegistry()
	require.NoError(t, reg.Register(p, processing.ProcessorConfig{MinAlerts: 5}))

	report, err := newRunner(processing.DefaultConfig(), reg, st).RunAll(ctx, 15)
	require.NoError(t, err)
	require.Len(t, report.Outcomes, 1)
	assert.True(t, report.Outcomes[0].Succeeded())

	result := report.Outcomes[0].Result
	assert.Equal(t, domain.ResultStatusSkipped, result.Status)
	assert.Equal(t, "Insufficient data: 2 alerts (need 5)", result.Summary)
	assert.Equal(t, "insufficient_data", result.Metadata["reason"])

	history, err := newRunner(processing.DefaultConfig(), reg, st).History(ctx, "needs_more", 5)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, domain.ResultStatusSkipped, history[0].Status)
}

func TestRunner_StopOnError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx := context.Background()
	st := openStore(t)
	seedDaysAgo(t, st, 1)

	first := mockProcessor(ctrl, "first")
	first.EXPECT().Process(gomock.Any(), gomock.Any()).Return(nil, errors.New("bad input"))
	// never reached
	second := mockProcessor(ctrl, "second")

	reg := processing.NewRegistry()
	require.NoError(t, reg.Register(first, processing.ProcessorConfig{}))
	require.NoError(t, reg.Register(second, processing.ProcessorConfig{}))

	cfg := processing.DefaultConfig()
	cfg.StopOnError = true
	report, err := newRunner(cfg, reg, st).RunAll(ctx, 15)
	require.NoError(t, err)
	require.Len(t, report.Outcomes, 1)
	assert.Equal(t, "first", report.Outcomes[0].Processor)
}

func TestRunner_Only(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx := context.Background()
	st := openStore(t)
	seedDaysAgo(t, st, 1)

	wanted := mockProcessor(ctrl, "wanted")
	wanted.EXPECT().Process(gomock.Any(), gomock.Any()).DoAndReturn(countingResult("wanted"))
	other := mockProcessor(ctrl, "other")

	reg := processing.NewRegistry()
	require.NoError(t, reg.Register(wanted, processing.ProcessorConfig{}))
	require.NoError(t, reg.Register(other, processing.ProcessorConfig{}))

	report, err := newRunner(processing.DefaultConfig(), reg, st).Run(ctx, processing.RunOptions{
		WindowDays: 15,
		Only:       []string{"wanted", "missing"},
	})
	require.NoError(t, err)
	require.Len(t, report.Outcomes, 2)
	assert.True(t, report.Outcomes[0].Succeeded())
	assert.True(t, errors.Is(report.Outcomes[1].Err, domain.ErrNotFound))
	assert.Nil(t, report.Outcomes[1].Result)
}

func TestRunner_WithoutSavingResults(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx := context.Background()
	st := openStore(t)
	seedDaysAgo(t, st, 1)

	p := mockProcessor(ctrl, "ephemeral")
	p.EXPECT().Process(gomock.Any(), gomock.Any()).DoAndReturn(countingResult("ephemeral"))

	reg := processing.NewRegistry()
	require.NoError(t, reg.Register(p, processing.ProcessorConfig{}))

	report, err := newRunner(processing.Config{SaveResults: false}, reg, st).RunAll(ctx, 15)
	require.NoError(t, err)
	require.Len(t, report.Outcomes, 1)
	assert.NotNil(t, report.Outcomes[0].Result)

	results, err := st.ListProcessingResults(ctx, "", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRunner_Parallel(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx := context.Background()
	st := openStore(t)
	seedDaysAgo(t, st, 1, 2)

	reg := processing.NewRegistry()
	for i := range 6 {
		name := fmt.Sprintf("p%d", i)
		p := mockProcessor(ctrl, name)
		if i == 3 {
			p.EXPECT().Process(gomock.Any(), gomock.Len(2)).Return(nil, errors.New("broken"))
		} else {
			p.EXPECT().Process(gomock.Any(), gomock.Len(2)).DoAndReturn(countingResult(name))
		}
		require.NoError(t, reg.Register(p, processing.ProcessorConfig{}))
	}

	cfg := processing.DefaultConfig()
	cfg.Parallelism = 3
	report, err := newRunner(cfg, reg, st).RunAll(ctx, 15)
	require.NoError(t, err)
	require.Len(t, report.Outcomes, 6)
	assert.Equal(t, 5, report.SuccessCount())
	assert.Equal(t, "p3", report.Outcomes[3].Processor)
	assert.False(t, report.Outcomes[3].Succeeded())

	results, err := st.ListProcessingResults(ctx, "", 20)
	require.NoError(t, err)
	assert.Len(t, results, 6)
}

func TestRunner_StoreFailureAbortsPass(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	st := mocks.NewMockStore(ctrl)
	st.EXPECT().QueryAlerts(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, fmt.Errorf("failed to query alerts: %w", domain.ErrStoreUnavailable))

	// neither processor is invoked
	reg := processing.NewRegistry()
	require.NoError(t, reg.Register(mockProcessor(ctrl, "a"), processing.ProcessorConfig{}))
	require.NoError(t, reg.Register(mockProcessor(ctrl, "b"), processing.ProcessorConfig{}))

	report, err := newRunner(processing.DefaultConfig(), reg, st).RunAll(context.Background(), 15)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrStoreUnavailable))
	require.NotNil(t, report)
	require.Len(t, report.Outcomes, 1)
	assert.False(t, report.Outcomes[0].Succeeded())
}

func TestRunner_PersistFailureAbortsPass(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	st := mocks.NewMockStore(ctrl)
	st.EXPECT().QueryAlerts(gomock.Any(), gomock.Any(), gomock.Any()).Return([]domain.Alert{}, nil)
	st.EXPECT().RecordProcessingResult(gomock.Any(), gomock.Any()).
		Return(fmt.Errorf("failed to record processing result: %w", domain.ErrStoreUnavailable))

	p := mockProcessor(ctrl, "a")
	p.EXPECT().Process(gomock.Any(), gomock.Len(0)).DoAndReturn(countingResult("a"))

	reg := processing.NewRegistry()
	require.NoError(t, reg.Register(p, processing.ProcessorConfig{}))
	require.NoError(t, reg.Register(mockProcessor(ctrl, "b"), processing.ProcessorConfig{}))

	_, err := newRunner(processing.DefaultConfig(), reg, st).RunAll(context.Background(), 15)
	assert.True(t, errors.Is(err, domain.ErrStoreUnavailable))
}

func TestRunner_CancelledContext(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reg := processing.NewRegistry()
	require.NoError(t, reg.Register(mockProcessor(ctrl, "a"), processing.ProcessorConfig{}))

	report, err := newRunner(processing.DefaultConfig(), reg, mocks.NewMockStore(ctrl)).RunAll(ctx, 15)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, report.Outcomes)
}
