package service_test

import (
	"context"
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
	"github.com/feral-file/ff-alert-indexer/internal/ingest"
	"github.com/feral-file/ff-alert-indexer/internal/logger"
	"github.com/feral-file/ff-alert-indexer/internal/metrics"
	"github.com/feral-file/ff-alert-indexer/internal/mocks"
	"github.com/feral-file/ff-alert-indexer/internal/processing"
	"github.com/feral-file/ff-alert-indexer/internal/service"
	"github.com/feral-file/ff-alert-indexer/internal/source"
	"github.com/feral-file/ff-alert-indexer/internal/store"
)

func TestMain(m *testing.M) {
	if err := logger.Initialize(logger.Config{Debug: false}); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func openStore(t *testing.T) store.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "alerts.db")
	db, err := store.Open(store.OpenConfig{
		Driver: "sqlite",
		DSN:    store.SQLiteDSN(path),
	})
	require.NoError(t, err)

	st := store.NewSQLStore(db)
	require.NoError(t, st.Initialize(context.Background()))
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func newService(t *testing.T, opts service.Options) *service.Service {
	t.Helper()
	if opts.Clock == nil {
		opts.Clock = adapter.NewFixedClock(testNow)
	}
	opts.Processing = processing.DefaultConfig()
	svc, err := service.New(openStore(t), opts)
	require.NoError(t, err)
	return svc
}

func mockSource() source.Source {
	return source.NewMockSource(source.MockConfig{
		Count:          100,
		Seed:           42,
		SSOProbability: 0.3,
		SpanDays:       30,
	}, adapter.NewFixedClock(testNow))
}

func TestService_EndToEnd(t *testing.T) {
	ctx := context.Background()
	m, err := metrics.New()
	require.NoError(t, err)
	svc := newService(t, service.Options{Metrics: m})

	run, err := svc.Ingest(ctx, mockSource(), ingest.Options{BatchSize: 30})
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusCompleted, run.Status)
	assert.Equal(t, int64(100), run.AlertsFetched)
	assert.Equal(t, int64(100), run.AlertsIngested)
	assert.Equal(t, int64(4), run.BatchesWritten)

	stats, err := svc.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(100), stats.TotalAlerts)
	assert.Equal(t, int64(100), stats.UniqueDetections)
	require.NotNil(t, stats.MinMJD)
	require.NotNil(t, stats.MaxMJD)
	assert.GreaterOrEqual(t, *stats.MinMJD, domain.DaysAgoMJD(testNow, 30))
	assert.LessOrEqual(t, *stats.MaxMJD, domain.TimeToMJD(testNow))

	points, err := svc.ApplyFilter(ctx, filter.Config{
		ExtendednessMax: ptr(domain.POINT_SOURCE_MAX_EXTENDEDNESS),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, points)
	for _, a := range points {
		require.NotNil(t, a.ExtendednessMedian)
		assert.LessOrEqual(t, *a.ExtendednessMedian, domain.POINT_SOURCE_MAX_EXTENDEDNESS)
	}

	report, err := svc.RunProcessors(ctx, 30)
	require.NoError(t, err)
	assert.Len(t, report.Outcomes, 4)
	assert.Equal(t, 4, report.SuccessCount())
	assert.Zero(t, report.FailureCount())

	history, err := svc.Runner().History(ctx, "example", 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, domain.ResultStatusSuccess, history[0].Status)
	assert.Equal(t, report.PassID, history[0].PassID)
}

func TestService_IngestIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, service.Options{})
	src := mockSource()

	first, err := svc.Ingest(ctx, src, ingest.Options{})
	require.NoError(t, err)
	assert.Equal(t, int64(100), first.AlertsIngested)

	second, err := svc.Ingest(ctx, src, ingest.Options{})
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusCompleted, second.Status)
	assert.Zero(t, second.AlertsIngested)
	assert.Equal(t, int64(100), second.Duplicates)

	stats, err := svc.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(100), stats.TotalAlerts)
	assert.Equal(t, int64(2), stats.RunsByStatus[string(domain.RunStatusCompleted)])
}

func TestService_IngestWithLimit(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, service.Options{})

	run, err := svc.Ingest(ctx, mockSource(), ingest.Options{Limit: 25})
	require.NoError(t, err)
	assert.Equal(t, int64(25), run.AlertsIngested)

	count, err := svc.Filters().Count(ctx, filter.Config{})
	require.NoError(t, err)
	assert.Equal(t, int64(25), count)
}

func TestService_ApplyFilterRejectsInvalidConfig(t *testing.T) {
	svc := newService(t, service.Options{})

	_, err := svc.ApplyFilter(context.Background(), filter.Config{
		ExtendednessMin: ptr(0.8),
		ExtendednessMax: ptr(0.2),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestService_CustomRegistry(t *testing.T) {
	ctrl := gomock.NewController(t)
	ctx := context.Background()

	p := mocks.NewMockProcessor(ctrl)
	p.EXPECT().Name().Return("custom").AnyTimes()
	p.EXPECT().Version().Return("2.0.0").AnyTimes()
	p.EXPECT().Process(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, alerts []domain.Alert) (*domain.ProcessingResult, error) {
			return processing.NewResult(p, []map[string]any{{"n": len(alerts)}}, "custom pass"), nil
		})

	reg := processing.NewRegistry()
	require.NoError(t, reg.Register(p, processing.ProcessorConfig{}))

	svc := newService(t, service.Options{Registry: reg})
	_, err := svc.Ingest(ctx, mockSource(), ingest.Options{})
	require.NoError(t, err)

	report, err := svc.RunProcessors(ctx, 30)
	require.NoError(t, err)
	require.Len(t, report.Outcomes, 1)
	assert.Equal(t, "custom", report.Outcomes[0].Processor)
	require.NotNil(t, report.Outcomes[0].Result)
	assert.Equal(t, []map[string]any{{"n": 100}}, report.Outcomes[0].Result.Records)
}

func TestService_BuiltinOverrides(t *testing.T) {
	svc := newService(t, service.Options{
		Overrides: map[string]processing.ProcessorConfig{
			"example": {WindowDays: 3, MinAlerts: 50},
		},
	})

	_, cfg, ok := svc.Runner().Registry().Get("example")
	require.True(t, ok)
	assert.Equal(t, 3, cfg.WindowDays)
	assert.Equal(t, 50, cfg.MinAlerts)
}

func ptr[T any](v T) *T {
	return &v
}
