package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/feral-file/ff-alert-indexer/internal/domain"
	"github.com/feral-file/ff-alert-indexer/internal/store/schema"
	"github.com/feral-file/ff-alert-indexer/internal/types"
)

// =============================================================================
// Test Data Builders
// =============================================================================

// buildTestAlert creates a valid point-source alert without association
func buildTestAlert(alertID, detectionID int64, mjd float64) *domain.Alert {
	objectID := detectionID / 10
	return &domain.Alert{
		AlertID:            alertID,
		DetectionID:        detectionID,
		ObjectID:           &objectID,
		RA:                 150.25,
		Dec:                -12.5,
		MJD:                mjd,
		FilterBand:         domain.FilterBandR,
		Flux:               types.Float64Ptr(1200),
		FluxError:          types.Float64Ptr(100),
		SNR:                types.Float64Ptr(12),
		ExtendednessMedian: types.Float64Ptr(0.1),
		ExtendednessMin:    types.Float64Ptr(0.05),
		ExtendednessMax:    types.Float64Ptr(0.2),
	}
}

// buildAssociatedAlert creates a valid alert associated with a solar system object
func buildAssociatedAlert(alertID, detectionID int64, mjd float64, ssObjectID string, extendedness float64) *domain.Alert {
	a := buildTestAlert(alertID, detectionID, mjd)
	a.HasAssociatedObject = true
	a.AssociatedObjectID = types.StringPtr(ssObjectID)
	a.AssociationRetimestamp = types.Float64Ptr(mjd - 0.5)
	a.ExtendednessMedian = types.Float64Ptr(extendedness)
	a.ExtendednessMin = types.Float64Ptr(extendedness)
	a.ExtendednessMax = types.Float64Ptr(extendedness)
	return a
}

func buildTestRun(runID string, startedAt time.Time) *domain.IngestionRun {
	return &domain.IngestionRun{
		RunID:      runID,
		SourceName: "mock",
		StartedAt:  startedAt,
		Status:     domain.RunStatusRunning,
	}
}

// =============================================================================
// Test: Initialize
// =============================================================================

func testInitialize(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("initialize is idempotent", func(t *testing.T) {
		require.NoError(t, store.Initialize(ctx))
		require.NoError(t, store.Initialize(ctx))
	})

	t.Run("every view is queryable", func(t *testing.T) {
		for _, name := range ViewNames() {
			rows, err := store.Query(ctx, fmt.Sprintf("SELECT COUNT(*) AS n FROM %s", name))
			require.NoError(t, err, name)
			require.Len(t, rows, 1, name)
		}
	})
}

// =============================================================================
// Test: WriteBatch
// =============================================================================

func testWriteBatch(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("writing the same batch twice stores each alert once", func(t *testing.T) {
		batch := []*domain.Alert{
			buildTestAlert(1001, 2001, 60000.1),
			buildTestAlert(1002, 2002, 60000.2),
			buildTestAlert(1003, 2003, 60000.3),
		}

		first, err := store.WriteBatch(ctx, batch)
		require.NoError(t, err)
		assert.Equal(t, 3, first.Written)
		assert.Empty(t, first.Rejected)

		second, err := store.WriteBatch(ctx, batch)
		require.NoError(t, err)
		assert.Equal(t, 0, second.Written)
		require.Len(t, second.Rejected, 3)
		assert.Equal(t, 3, second.Duplicates())
		for _, row := range second.Rejected {
			assert.Equal(t, RejectReasonDuplicate, row.Reason)
			assert.ErrorIs(t, row.Err, domain.ErrConstraintViolation)
		}

		rows, err := store.Query(ctx, "SELECT COUNT(*) AS n FROM alerts_raw WHERE alert_id BETWEEN ? AND ?", 1001, 1003)
		require.NoError(t, err)
		assert.EqualValues(t, 3, rows[0]["n"])
	})

	t.Run("invalid and in-batch duplicate rows are rejected individually", func(t *testing.T) {
		invalid := buildTestAlert(1102, 2102, 60001)
		invalid.RA = 400

		batch := []*domain.Alert{
			buildTestAlert(1101, 2101, 60001),
			invalid,
			buildTestAlert(1101, 2101, 60001),
			buildTestAlert(1103, 2103, 60001),
		}

		result, err := store.WriteBatch(ctx, batch)
		require.NoError(t, err)
		assert.Equal(t, 2, result.Written)
		require.Len(t, result.Rejected, 2)
		assert.Equal(t, 1, result.Duplicates())

		reasons := map[string]int64{}
		for _, row := range result.Rejected {
			reasons[row.Reason] = row.AlertID
		}
		assert.Equal(t, int64(1102), reasons[RejectReasonInvalid])
		assert.Equal(t, int64(1101), reasons[RejectReasonDuplicateInBatch])
	})

	t.Run("a detection is stored once whatever its alert id", func(t *testing.T) {
		first, err := store.WriteBatch(ctx, []*domain.Alert{
			buildTestAlert(1151, 2151, 60002),
			buildTestAlert(1152, 2151, 60002.5),
		})
		require.NoError(t, err)
		assert.Equal(t, 1, first.Written)
		require.Len(t, first.Rejected, 1)
		assert.Equal(t, int64(1152), first.Rejected[0].AlertID)
		assert.Equal(t, RejectReasonDuplicateInBatch, first.Rejected[0].Reason)
		assert.True(t, first.Rejected[0].Duplicate())

		later, err := store.WriteBatch(ctx, []*domain.Alert{buildTestAlert(1153, 2151, 60003)})
		require.NoError(t, err)
		assert.Equal(t, 0, later.Written)
		require.Len(t, later.Rejected, 1)
		assert.Equal(t, RejectReasonDuplicate, later.Rejected[0].Reason)
		assert.ErrorIs(t, later.Rejected[0].Err, domain.ErrConstraintViolation)

		rows, err := store.Query(ctx, "SELECT COUNT(*) AS n FROM alerts_raw WHERE dia_source_id = ?", 2151)
		require.NoError(t, err)
		assert.EqualValues(t, 1, rows[0]["n"])
	})

	t.Run("empty batch writes nothing", func(t *testing.T) {
		result, err := store.WriteBatch(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, 0, result.Written)
		assert.Empty(t, result.Rejected)
	})
}

// =============================================================================
// Test: GetAlert / QueryAlerts
// =============================================================================

func testGetAlert(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("returns the first stored sighting of a detection", func(t *testing.T) {
		result, err := store.WriteBatch(ctx, []*domain.Alert{
			buildAssociatedAlert(1202, 2201, 60012, "SSO_000001", 0.5),
			buildTestAlert(1201, 2201, 60010),
		})
		require.NoError(t, err)
		assert.Equal(t, 1, result.Written)
		assert.Equal(t, 1, result.Duplicates())

		result, err = store.WriteBatch(ctx, []*domain.Alert{buildTestAlert(1203, 2201, 60013)})
		require.NoError(t, err)
		assert.Equal(t, 0, result.Written)
		assert.Equal(t, 1, result.Duplicates())

		alert, err := store.GetAlert(ctx, 2201)
		require.NoError(t, err)
		assert.Equal(t, int64(1202), alert.AlertID)
		assert.Equal(t, 60012.0, alert.MJD)
		assert.True(t, alert.HasAssociatedObject)
		assert.Equal(t, "SSO_000001", types.SafeString(alert.AssociatedObjectID))
		assert.False(t, alert.IngestedAt.IsZero())
	})

	t.Run("unknown detection is not found", func(t *testing.T) {
		_, err := store.GetAlert(ctx, 999999)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func testQueryAlerts(t *testing.T, store Store) {
	ctx := context.Background()

	original := buildAssociatedAlert(1301, 2301, 60020.125, "SSO_000002", 0.45)
	original.FilterBand = domain.FilterBandG
	original.IsReassociation = true
	original.ReassociationReason = domain.ReassociationChangedAssociation
	original.TrailData = map[string]any{"trailLength": 1.5}
	original.PixelFlags = map[string]any{"pixelFlagsSaturated": true}

	_, err := store.WriteBatch(ctx, []*domain.Alert{original})
	require.NoError(t, err)

	alerts, err := store.QueryAlerts(ctx, "SELECT * FROM alerts_raw WHERE alert_id = ?", 1301)
	require.NoError(t, err)
	require.Len(t, alerts, 1)

	got := alerts[0]
	assert.Equal(t, original.AlertID, got.AlertID)
	assert.Equal(t, original.DetectionID, got.DetectionID)
	assert.Equal(t, *original.ObjectID, *got.ObjectID)
	assert.Equal(t, original.MJD, got.MJD)
	assert.Equal(t, original.FilterBand, got.FilterBand)
	assert.Equal(t, *original.ExtendednessMedian, *got.ExtendednessMedian)
	assert.Equal(t, *original.AssociationRetimestamp, *got.AssociationRetimestamp)
	assert.True(t, got.IsReassociation)
	assert.Equal(t, domain.ReassociationChangedAssociation, got.ReassociationReason)
	assert.Equal(t, 1.5, got.TrailData["trailLength"])
	assert.Equal(t, true, got.PixelFlags["pixelFlagsSaturated"])

	t.Run("views select by classification", func(t *testing.T) {
		rows, err := store.Query(ctx, "SELECT alert_id FROM v_minimoon_candidates WHERE alert_id = ?", 1301)
		require.NoError(t, err)
		assert.Len(t, rows, 1)

		rows, err = store.Query(ctx, "SELECT alert_id FROM v_reassociations WHERE alert_id = ?", 1301)
		require.NoError(t, err)
		assert.Len(t, rows, 1)

		rows, err = store.Query(ctx, "SELECT alert_id FROM v_point_sources WHERE alert_id = ?", 1301)
		require.NoError(t, err)
		assert.Empty(t, rows)
	})
}

// =============================================================================
// Test: Query guard
// =============================================================================

func testQueryGuard(t *testing.T, store Store) {
	ctx := context.Background()

	statements := []string{
		"DELETE FROM alerts_raw",
		"SELECT 1; DELETE FROM alerts_raw",
		"WITH gone AS (DELETE FROM alerts_raw RETURNING *) SELECT * FROM gone",
		"DROP TABLE alerts_raw",
		"",
	}
	for _, stmt := range statements {
		_, err := store.Query(ctx, stmt)
		assert.ErrorIs(t, err, domain.ErrReadOnlyQuery, stmt)
		_, err = store.QueryAlerts(ctx, stmt)
		assert.ErrorIs(t, err, domain.ErrReadOnlyQuery, stmt)
	}

	rows, err := store.Query(ctx, "SELECT COUNT(*) AS n FROM alerts_raw;")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

// =============================================================================
// Test: Association states
// =============================================================================

func testAssociationStates(t *testing.T, store Store) {
	ctx := context.Background()

	state, err := store.GetAssociationState(ctx, 2401)
	require.NoError(t, err)
	assert.Nil(t, state)

	require.NoError(t, store.UpsertAssociationState(ctx, &domain.AssociationState{
		DetectionID:      2401,
		FirstSeenMJD:     60000,
		LastSeenMJD:      60000,
		ObservationCount: 1,
	}))

	state, err = store.GetAssociationState(ctx, 2401)
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Nil(t, state.CurrentAssociatedObjectID)
	assert.Equal(t, int64(1), state.ObservationCount)

	require.NoError(t, store.UpsertAssociationStates(ctx, []*domain.AssociationState{
		{
			DetectionID:               2401,
			FirstSeenMJD:              60000,
			LastSeenMJD:               60005,
			CurrentAssociatedObjectID: types.StringPtr("SSO_000003"),
			CurrentRetimestamp:        types.Float64Ptr(60004.5),
			ObservationCount:          2,
		},
		{
			DetectionID:      2402,
			FirstSeenMJD:     59000,
			LastSeenMJD:      59001,
			ObservationCount: 1,
		},
	}))

	states, err := store.GetAssociationStates(ctx, []int64{2401, 2402, 2403})
	require.NoError(t, err)
	require.Len(t, states, 2)
	assert.Equal(t, "SSO_000003", types.SafeString(states[2401].CurrentAssociatedObjectID))
	assert.Equal(t, 60005.0, states[2401].LastSeenMJD)
	assert.Equal(t, 60004.5, *states[2401].CurrentRetimestamp)
	assert.Equal(t, int64(2), states[2401].ObservationCount)

	deleted, err := store.DeleteStatesLastSeenBefore(ctx, 59500)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	state, err = store.GetAssociationState(ctx, 2402)
	require.NoError(t, err)
	assert.Nil(t, state)
}

// =============================================================================
// Test: Ingestion runs
// =============================================================================

func testIngestionRuns(t *testing.T, store Store) {
	ctx := context.Background()
	base := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	older := buildTestRun("01JRUNOLDER0000000000000000", base)
	newer := buildTestRun("01JRUNNEWER0000000000000000", base.Add(time.Hour))
	require.NoError(t, store.RecordRun(ctx, older))
	require.NoError(t, store.RecordRun(ctx, newer))

	newer.Apply(domain.RunStats{AlertsFetched: 105, AlertsIngested: 100, AlertsRejected: 5, NewSources: 90, BatchesWritten: 2})
	newer.Finish(domain.RunStatusCompleted, base.Add(time.Hour+time.Minute), nil)
	require.NoError(t, store.FinalizeRun(ctx, newer))

	got, err := store.GetRun(ctx, newer.RunID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusCompleted, got.Status)
	assert.Equal(t, int64(105), got.AlertsFetched)
	assert.Equal(t, int64(100), got.AlertsIngested)
	assert.Equal(t, int64(5), got.AlertsRejected)
	require.NotNil(t, got.CompletedAt)
	assert.WithinDuration(t, base.Add(time.Hour+time.Minute), *got.CompletedAt, time.Second)

	runs, err := store.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, newer.RunID, runs[0].RunID)
	assert.Equal(t, older.RunID, runs[1].RunID)

	_, err = store.GetRun(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = store.FinalizeRun(ctx, buildTestRun("missing", base))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// =============================================================================
// Test: Processing results
// =============================================================================

func testProcessingResults(t *testing.T, store Store) {
	ctx := context.Background()
	base := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	for i, name := range []string{"example", "source_summary", "example"} {
		result := &domain.ProcessingResult{
			PassID:           "01JPASS000000000000000000" + fmt.Sprint(i),
			ProcessorName:    name,
			ProcessorVersion: "1.0.0",
			Records:          []map[string]any{{"index": i}},
			Summary:          fmt.Sprintf("result %d", i),
			Status:           domain.ResultStatusSuccess,
			ProcessedAt:      base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, store.RecordProcessingResult(ctx, result))
		assert.NotZero(t, result.ID)
	}

	results, err := store.ListProcessingResults(ctx, "example", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "result 2", results[0].Summary)
	assert.Equal(t, "result 0", results[1].Summary)
	require.Len(t, results[0].Records, 1)
	assert.EqualValues(t, 2, results[0].Records[0]["index"])

	all, err := store.ListProcessingResults(ctx, "", 2)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

// =============================================================================
// Test: Saved filters and materialization
// =============================================================================

func testSavedFilters(t *testing.T, store Store) {
	ctx := context.Background()

	filter := &schema.SavedFilter{
		Name:        "candidates",
		Description: "first",
		Config:      datatypes.JSON(`{"require_ss_association":"true"}`),
		ConfigHash:  "hash-1",
	}
	require.NoError(t, store.SaveFilter(ctx, filter))

	filter.Description = "second"
	filter.ConfigHash = "hash-2"
	require.NoError(t, store.SaveFilter(ctx, filter))

	got, err := store.GetFilter(ctx, "candidates")
	require.NoError(t, err)
	assert.Equal(t, "second", got.Description)
	assert.Equal(t, "hash-2", got.ConfigHash)

	require.NoError(t, store.SaveFilter(ctx, &schema.SavedFilter{Name: "another", Config: datatypes.JSON(`{}`), ConfigHash: "hash-3"}))
	filters, err := store.ListFilters(ctx)
	require.NoError(t, err)
	require.Len(t, filters, 2)
	assert.Equal(t, "another", filters[0].Name)

	deleted, err := store.DeleteFilter(ctx, "candidates")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = store.DeleteFilter(ctx, "candidates")
	require.NoError(t, err)
	assert.False(t, deleted)

	_, err = store.GetFilter(ctx, "candidates")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func testCopyToFiltered(t *testing.T, store Store) {
	ctx := context.Background()

	_, err := store.WriteBatch(ctx, []*domain.Alert{
		buildTestAlert(1501, 2501, 60030),
		buildAssociatedAlert(1502, 2502, 60030, "SSO_000010", 0.5),
		buildAssociatedAlert(1503, 2503, 60031, "SSO_000011", 0.6),
	})
	require.NoError(t, err)

	copied, err := store.CopyToFiltered(ctx, "hash-assoc", "associated", "has_ss_source = ?", true)
	require.NoError(t, err)
	assert.Equal(t, int64(2), copied)

	copied, err = store.CopyToFiltered(ctx, "hash-assoc", "associated", "has_ss_source = ?", true)
	require.NoError(t, err)
	assert.Equal(t, int64(0), copied)

	stats, err := store.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TableCounts["alerts_filtered"])
}

// =============================================================================
// Test: Stats and cursors
// =============================================================================

func testStats(t *testing.T, store Store) {
	ctx := context.Background()

	empty, err := store.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), empty.TotalAlerts)
	assert.Nil(t, empty.MinMJD)
	assert.Nil(t, empty.LastIngestedAt)

	reassociated := buildAssociatedAlert(1602, 2603, 60041, "SSO_000020", 0.5)
	reassociated.IsReassociation = true
	reassociated.ReassociationReason = domain.ReassociationNewAssociation
	_, err = store.WriteBatch(ctx, []*domain.Alert{
		buildTestAlert(1601, 2601, 60040),
		reassociated,
		buildTestAlert(1603, 2602, 60045),
	})
	require.NoError(t, err)
	require.NoError(t, store.RecordRun(ctx, buildTestRun("01JSTATSRUN000000000000000", time.Now().UTC())))

	stats, err := store.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalAlerts)
	assert.Equal(t, int64(3), stats.UniqueDetections)
	assert.Equal(t, int64(1), stats.AssociatedAlerts)
	assert.Equal(t, int64(1), stats.ReassociationAlerts)
	require.NotNil(t, stats.MinMJD)
	require.NotNil(t, stats.MaxMJD)
	assert.Equal(t, 60040.0, *stats.MinMJD)
	assert.Equal(t, 60045.0, *stats.MaxMJD)
	assert.NotNil(t, stats.LastIngestedAt)
	assert.Equal(t, int64(1), stats.RunsByStatus[string(domain.RunStatusRunning)])
}

func testSourceCursor(t *testing.T, store Store) {
	ctx := context.Background()

	cursor, err := store.GetSourceCursor(ctx, "nats")
	require.NoError(t, err)
	assert.Empty(t, cursor)

	require.NoError(t, store.SetSourceCursor(ctx, "nats", "41"))
	require.NoError(t, store.SetSourceCursor(ctx, "nats", "42"))

	cursor, err = store.GetSourceCursor(ctx, "nats")
	require.NoError(t, err)
	assert.Equal(t, "42", cursor)
}

// RunStoreTests runs the shared store test suite against the store returned by initDB
func RunStoreTests(t *testing.T, initDB func(t *testing.T) Store, cleanupDB func(t *testing.T)) {
	tests := []struct {
		name string
		fn   func(*testing.T, Store)
	}{
		{"Initialize", testInitialize},
		{"WriteBatch", testWriteBatch},
		{"GetAlert", testGetAlert},
		{"QueryAlerts", testQueryAlerts},
		{"QueryGuard", testQueryGuard},
		{"AssociationStates", testAssociationStates},
		{"IngestionRuns", testIngestionRuns},
		{"ProcessingResults", testProcessingResults},
		{"SavedFilters", testSavedFilters},
		{"CopyToFiltered", testCopyToFiltered},
		{"Stats", testStats},
		{"SourceCursor", testSourceCursor},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := initDB(t)
			defer cleanupDB(t)
			require.NoError(t, store.Initialize(context.Background()))
			tt.fn(t, store)
		})
	}
}
