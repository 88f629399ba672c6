package rest_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-alert-indexer/internal/adapter"
	"github.com/feral-file/ff-alert-indexer/internal/api/middleware"
	"github.com/feral-file/ff-alert-indexer/internal/api/rest"
	"github.com/feral-file/ff-alert-indexer/internal/api/shared/dto"
	apierrors "github.com/feral-file/ff-alert-indexer/internal/api/shared/errors"
	"github.com/feral-file/ff-alert-indexer/internal/filter"
	"github.com/feral-file/ff-alert-indexer/internal/ingest"
	"github.com/feral-file/ff-alert-indexer/internal/logger"
	"github.com/feral-file/ff-alert-indexer/internal/processing"
	"github.com/feral-file/ff-alert-indexer/internal/processing/builtin"
	"github.com/feral-file/ff-alert-indexer/internal/service"
	"github.com/feral-file/ff-alert-indexer/internal/source"
	"github.com/feral-file/ff-alert-indexer/internal/store"
)

const apiKey = "test-key"

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func TestMain(m *testing.M) {
	if err := logger.Initialize(logger.Config{Debug: false}); err != nil {
		panic(err)
	}
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type testAPI struct {
	svc    *service.Service
	router *gin.Engine
}

// newTestAPI serves a sqlite-backed service holding one mock ingestion run
func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	ctx := context.Background()
	clock := adapter.NewFixedClock(testNow)

	db, err := store.Open(store.OpenConfig{
		Driver: "sqlite",
		DSN:    store.SQLiteDSN(filepath.Join(t.TempDir(), "alerts.db")),
	})
	require.NoError(t, err)
	st := store.NewSQLStore(db)
	require.NoError(t, st.Initialize(ctx))
	t.Cleanup(func() { _ = st.Close() })

	svc, err := service.New(st, service.Options{
		Clock:      clock,
		Processing: processing.DefaultConfig(),
	})
	require.NoError(t, err)

	src := source.NewMockSource(source.MockConfig{
		Count:          50,
		Seed:           7,
		SSOProbability: 0.4,
		SpanDays:       10,
	}, clock)
	_, err = svc.Ingest(ctx, src, ingest.Options{})
	require.NoError(t, err)

	auth, err := middleware.NewAuthenticator(middleware.AuthConfig{APIKeys: []string{apiKey}})
	require.NoError(t, err)

	router := gin.New()
	rest.SetupRoutes(router, rest.NewHandler(svc, clock), auth)
	return &testAPI{svc: svc, router: router}
}

func (a *testAPI) do(t *testing.T, method, path string, body any, authorized bool) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authorized {
		req.Header.Set("Authorization", "ApiKey "+apiKey)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHandler_HealthAndStats(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodGet, "/health", nil, false)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)

	w = api.do(t, http.MethodGet, "/api/v1/stats", nil, false)
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode[dto.StatsResponse](t, w)
	assert.Equal(t, int64(50), stats.TotalAlerts)
	assert.Equal(t, int64(50), stats.UniqueDetections)
	assert.Equal(t, int64(1), stats.RunsByStatus["completed"])
}

func TestHandler_Runs(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodGet, "/api/v1/runs", nil, false)
	require.Equal(t, http.StatusOK, w.Code)
	runs := decode[[]dto.RunResponse](t, w)
	require.Len(t, runs, 1)
	assert.Equal(t, int64(50), runs[0].AlertsIngested)

	w = api.do(t, http.MethodGet, "/api/v1/runs/"+runs[0].RunID, nil, false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, runs[0].RunID, decode[dto.RunResponse](t, w).RunID)

	w = api.do(t, http.MethodGet, "/api/v1/runs/unknown", nil, false)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = api.do(t, http.MethodGet, "/api/v1/runs?limit=zero", nil, false)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestHandler_GetAlert(t *testing.T) {
	api := newTestAPI(t)

	alerts, err := api.svc.ApplyFilter(context.Background(), filter.Config{Limit: 1})
	require.NoError(t, err)
	require.Len(t, alerts, 1)

	w := api.do(t, http.MethodGet, fmt.Sprintf("/api/v1/alerts/%d", alerts[0].DetectionID), nil, false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, alerts[0].DetectionID, decode[dto.AlertResponse](t, w).DetectionID)

	w = api.do(t, http.MethodGet, "/api/v1/alerts/abc", nil, false)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(t, http.MethodGet, "/api/v1/alerts/1", nil, false)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_ApplyFilter(t *testing.T) {
	api := newTestAPI(t)

	tests := []struct {
		name       string
		body       any
		statusCode int
		count      int
		errCode    apierrors.ErrorCode
	}{
		{
			name:       "limit",
			body:       map[string]any{"limit": 5},
			statusCode: http.StatusOK,
			count:      5,
		},
		{
			name:       "empty config returns everything",
			body:       map[string]any{},
			statusCode: http.StatusOK,
			count:      50,
		},
		{
			name:       "contradictory association flags",
			body:       map[string]any{"require_association": true, "exclude_association": true},
			statusCode: http.StatusBadRequest,
			errCode:    apierrors.ErrCodeInvalidConfig,
		},
		{
			name:       "unknown column",
			body:       map[string]any{"conditions": []map[string]any{{"column": "password", "operator": "=", "value": 1}}},
			statusCode: http.StatusBadRequest,
			errCode:    apierrors.ErrCodeInvalidConfig,
		},
		{
			name:       "malformed body",
			body:       "{not json",
			statusCode: http.StatusBadRequest,
			errCode:    apierrors.ErrCodeBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := api.do(t, http.MethodPost, "/api/v1/filters/apply", tt.body, false)
			require.Equal(t, tt.statusCode, w.Code, w.Body.String())
			if tt.statusCode == http.StatusOK {
				resp := decode[dto.AlertListResponse](t, w)
				assert.Equal(t, tt.count, resp.Count)
				assert.Len(t, resp.Alerts, tt.count)
				assert.NotEmpty(t, resp.Hash)
				return
			}
			assert.Equal(t, tt.errCode, decode[apierrors.APIError](t, w).Code)
		})
	}
}

func TestHandler_SavedFilters(t *testing.T) {
	api := newTestAPI(t)
	body := map[string]any{"description": "associated", "require_association": true, "limit": 3}

	w := api.do(t, http.MethodPut, "/api/v1/filters/sso", body, false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = api.do(t, http.MethodPut, "/api/v1/filters/sso", body, true)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = api.do(t, http.MethodGet, "/api/v1/filters", nil, false)
	require.Equal(t, http.StatusOK, w.Code)
	saved := decode[[]filter.Config](t, w)
	require.Len(t, saved, 1)
	assert.Equal(t, "sso", saved[0].Name)

	w = api.do(t, http.MethodGet, "/api/v1/filters/sso", nil, false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[filter.Config](t, w).RequireAssociation)

	w = api.do(t, http.MethodGet, "/api/v1/filters/sso/alerts", nil, false)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[dto.AlertListResponse](t, w)
	assert.LessOrEqual(t, resp.Count, 3)
	for _, a := range resp.Alerts {
		assert.True(t, a.HasAssociatedObject)
	}

	w = api.do(t, http.MethodGet, "/api/v1/filters/sso/alerts?limit=1", nil, false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.LessOrEqual(t, decode[dto.AlertListResponse](t, w).Count, 1)

	w = api.do(t, http.MethodDelete, "/api/v1/filters/sso", nil, true)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = api.do(t, http.MethodDelete, "/api/v1/filters/sso", nil, true)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = api.do(t, http.MethodGet, "/api/v1/filters/sso", nil, false)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_Presets(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodGet, "/api/v1/presets", nil, false)
	require.Equal(t, http.StatusOK, w.Code)
	presets := decode[[]dto.PresetResponse](t, w)
	assert.Len(t, presets, len(filter.Presets()))

	w = api.do(t, http.MethodGet, "/api/v1/presets/sso_alerts/alerts", nil, false)
	require.Equal(t, http.StatusOK, w.Code)
	for _, a := range decode[dto.AlertListResponse](t, w).Alerts {
		assert.True(t, a.HasAssociatedObject)
	}

	w = api.do(t, http.MethodGet, "/api/v1/presets/unknown/alerts", nil, false)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = api.do(t, http.MethodGet, "/api/v1/presets/high_snr/alerts?min_snr=high", nil, false)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestHandler_Processing(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodGet, "/api/v1/processors", nil, false)
	require.Equal(t, http.StatusOK, w.Code)
	processors := decode[[]dto.ProcessorResponse](t, w)
	assert.Len(t, processors, api.svc.Runner().Registry().Len())

	req := dto.RunProcessorsRequest{WindowDays: 30, Only: []string{builtin.ExampleName}}
	w = api.do(t, http.MethodPost, "/api/v1/processing/run", req, false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = api.do(t, http.MethodPost, "/api/v1/processing/run", dto.RunProcessorsRequest{WindowDays: -1}, true)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = api.do(t, http.MethodPost, "/api/v1/processing/run", req, true)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	pass := decode[dto.PassResponse](t, w)
	assert.NotEmpty(t, pass.PassID)
	assert.Equal(t, 1, pass.Succeeded)
	require.Len(t, pass.Outcomes, 1)
	assert.Equal(t, builtin.ExampleName, pass.Outcomes[0].Processor)

	w = api.do(t, http.MethodGet, "/api/v1/results?processor=example&records=true", nil, false)
	require.Equal(t, http.StatusOK, w.Code)
	results := decode[[]dto.ResultResponse](t, w)
	require.Len(t, results, 1)
	assert.Equal(t, pass.PassID, results[0].PassID)
	assert.NotEmpty(t, results[0].Records)

	w = api.do(t, http.MethodGet, "/api/v1/results?records=maybe", nil, false)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}
