package rest

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/feral-file/ff-alert-indexer/internal/adapter"
	"github.com/feral-file/ff-alert-indexer/internal/api/shared/dto"
	"github.com/feral-file/ff-alert-indexer/internal/domain"
	"github.com/feral-file/ff-alert-indexer/internal/filter"
	"github.com/feral-file/ff-alert-indexer/internal/processing"
	"github.com/feral-file/ff-alert-indexer/internal/service"
)

const (
	defaultAlertLimit  = 1000
	maxAlertLimit      = 10000
	defaultRunLimit    = 20
	defaultResultLimit = 10
	maxListLimit       = 500
)

// Handler defines the interface for REST API handlers
type Handler interface {
	// GetStats summarizes the stored data
	// GET /api/v1/stats
	GetStats(c *gin.Context)

	// ListRuns lists recent ingestion runs
	// GET /api/v1/runs?limit=<limit>
	ListRuns(c *gin.Context)

	// GetRun retrieves one ingestion run
	// GET /api/v1/runs/:run_id
	GetRun(c *gin.Context)

	// GetAlert retrieves the stored alert of a detection
	// GET /api/v1/alerts/:dia_source_id
	GetAlert(c *gin.Context)

	// ApplyFilter applies a filter config from the request body
	// POST /api/v1/filters/apply
	ApplyFilter(c *gin.Context)

	// ListFilters lists saved filters
	// GET /api/v1/filters
	ListFilters(c *gin.Context)

	// GetFilter retrieves a saved filter
	// GET /api/v1/filters/:name
	GetFilter(c *gin.Context)

	// ApplySavedFilter applies a saved filter
	// GET /api/v1/filters/:name/alerts?limit=<limit>
	ApplySavedFilter(c *gin.Context)

	// SaveFilter stores the filter config from the request body under :name (requires authentication)
	// PUT /api/v1/filters/:name
	SaveFilter(c *gin.Context)

	// DeleteFilter removes a saved filter (requires authentication)
	// DELETE /api/v1/filters/:name
	DeleteFilter(c *gin.Context)

	// ListPresets lists the filter presets
	// GET /api/v1/presets
	ListPresets(c *gin.Context)

	// ApplyPreset applies a preset
	// GET /api/v1/presets/:name/alerts?limit=<limit>&min_snr=<snr>&days=<days>&band=<band>
	ApplyPreset(c *gin.Context)

	// ListProcessors lists the registered processors
	// GET /api/v1/processors
	ListProcessors(c *gin.Context)

	// ListResults lists processing results, newest first
	// GET /api/v1/results?processor=<name>&limit=<limit>&records=<bool>
	ListResults(c *gin.Context)

	// RunProcessors runs a processing pass (requires authentication)
	// POST /api/v1/processing/run
	RunProcessors(c *gin.Context)

	// HealthCheck returns the health status of the API
	// GET /health
	HealthCheck(c *gin.Context)
}

// handler implements the Handler interface
type handler struct {
	svc   *service.Service
	clock adapter.Clock
}

// NewHandler creates a new REST API handler
func NewHandler(svc *service.Service, clock adapter.Clock) Handler {
	if clock == nil {
		clock = adapter.NewClock()
	}
	return &handler{svc: svc, clock: clock}
}

func (h *handler) GetStats(c *gin.Context) {
	stats, err := h.svc.GetStats(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to get stats")
		return
	}
	c.JSON(http.StatusOK, dto.NewStatsResponse(stats))
}

func (h *handler) ListRuns(c *gin.Context) {
	limit, err := parseLimit(c, defaultRunLimit, maxListLimit)
	if err != nil {
		respondValidationError(c, err.Error())
		return
	}

	runs, err := h.svc.Store().ListRuns(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err, "Failed to list runs")
		return
	}
	c.JSON(http.StatusOK, dto.NewRunResponses(runs))
}

func (h *handler) GetRun(c *gin.Context) {
	runID := c.Param("run_id")
	run, err := h.svc.Store().GetRun(c.Request.Context(), runID)
	if err != nil {
		respondError(c, err, "Run not found")
		return
	}
	c.JSON(http.StatusOK, dto.NewRunResponse(run))
}

func (h *handler) GetAlert(c *gin.Context) {
	detectionID, err := strconv.ParseInt(c.Param("dia_source_id"), 10, 64)
	if err != nil {
		respondBadRequest(c, "Invalid dia_source_id", err.Error())
		return
	}

	alert, err := h.svc.Store().GetAlert(c.Request.Context(), detectionID)
	if err != nil {
		respondError(c, err, "Alert not found")
		return
	}
	c.JSON(http.StatusOK, dto.NewAlertResponse(*alert))
}

func (h *handler) ApplyFilter(c *gin.Context) {
	var cfg filter.Config
	if err := c.ShouldBindJSON(&cfg); err != nil {
		respondBadRequest(c, "Invalid request body", err.Error())
		return
	}
	h.apply(c, cfg)
}

func (h *handler) ListFilters(c *gin.Context) {
	configs, err := h.svc.Filters().List(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to list filters")
		return
	}
	c.JSON(http.StatusOK, configs)
}

func (h *handler) GetFilter(c *gin.Context) {
	cfg, err := h.svc.Filters().Load(c.Request.Context(), c.Param("name"))
	if err != nil {
		respondError(c, err, "Filter not found")
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (h *handler) ApplySavedFilter(c *gin.Context) {
	cfg, err := h.svc.Filters().Load(c.Request.Context(), c.Param("name"))
	if err != nil {
		respondError(c, err, "Filter not found")
		return
	}
	if c.Query("limit") != "" {
		limit, err := parseLimit(c, defaultAlertLimit, maxAlertLimit)
		if err != nil {
			respondValidationError(c, err.Error())
			return
		}
		cfg.Limit = limit
	}
	h.apply(c, cfg)
}

func (h *handler) SaveFilter(c *gin.Context) {
	var cfg filter.Config
	if err := c.ShouldBindJSON(&cfg); err != nil {
		respondBadRequest(c, "Invalid request body", err.Error())
		return
	}
	cfg.Name = c.Param("name")

	if err := h.svc.Filters().Save(c.Request.Context(), cfg); err != nil {
		respondError(c, err, "Failed to save filter")
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (h *handler) DeleteFilter(c *gin.Context) {
	name := c.Param("name")
	deleted, err := h.svc.Filters().Delete(c.Request.Context(), name)
	if err != nil {
		respondError(c, err, "Failed to delete filter")
		return
	}
	if !deleted {
		respondNotFound(c, "Filter not found", name)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) ListPresets(c *gin.Context) {
	c.JSON(http.StatusOK, dto.NewPresetResponses(filter.Presets()))
}

func (h *handler) ApplyPreset(c *gin.Context) {
	opts, err := parsePresetOptions(c)
	if err != nil {
		respondValidationError(c, err.Error())
		return
	}
	opts.Now = h.clock.Now()

	cfg, err := filter.PresetConfig(c.Param("name"), opts)
	if err != nil {
		respondError(c, err, "Preset not found")
		return
	}
	h.apply(c, cfg)
}

func (h *handler) ListProcessors(c *gin.Context) {
	c.JSON(http.StatusOK, dto.NewProcessorResponses(h.svc.Runner().Registry().Info()))
}

func (h *handler) ListResults(c *gin.Context) {
	limit, err := parseLimit(c, defaultResultLimit, maxListLimit)
	if err != nil {
		respondValidationError(c, err.Error())
		return
	}
	withRecords, err := parseBool(c.Query("records"))
	if err != nil {
		respondValidationError(c, "records must be a boolean")
		return
	}

	results, err := h.svc.Runner().History(c.Request.Context(), c.Query("processor"), limit)
	if err != nil {
		respondError(c, err, "Failed to list results")
		return
	}
	c.JSON(http.StatusOK, dto.NewResultResponses(results, withRecords))
}

func (h *handler) RunProcessors(c *gin.Context) {
	var req dto.RunProcessorsRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBadRequest(c, "Invalid request body", err.Error())
			return
		}
	}
	if req.WindowDays < 0 {
		respondValidationError(c, "window_days must not be negative")
		return
	}

	report, err := h.svc.Runner().Run(c.Request.Context(), processing.RunOptions{
		WindowDays: req.WindowDays,
		Only:       req.Only,
	})
	if err != nil {
		respondError(c, err, "Processing pass failed", zap.String("pass_id", passID(report)))
		return
	}
	c.JSON(http.StatusOK, dto.NewPassResponse(report))
}

func (h *handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "ff-alert-indexer",
	})
}

// apply runs cfg with the HTTP limits applied
func (h *handler) apply(c *gin.Context, cfg filter.Config) {
	if cfg.Limit <= 0 || cfg.Limit > maxAlertLimit {
		cfg.Limit = min(max(cfg.Limit, defaultAlertLimit), maxAlertLimit)
	}

	alerts, err := h.svc.ApplyFilter(c.Request.Context(), cfg)
	if err != nil {
		respondError(c, err, "Failed to apply filter")
		return
	}
	c.JSON(http.StatusOK, dto.NewAlertListResponse(cfg, alerts))
}

func passID(report *processing.Report) string {
	if report == nil {
		return ""
	}
	return report.PassID
}

func parseLimit(c *gin.Context, def, maxLimit int) (int, error) {
	raw := c.Query("limit")
	if raw == "" {
		return def, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, fmt.Errorf("limit must be a positive integer")
	}
	return min(limit, maxLimit), nil
}

func parseBool(raw string) (bool, error) {
	if raw == "" {
		return false, nil
	}
	return strconv.ParseBool(raw)
}

func parseFloatQuery(c *gin.Context, key string) (*float64, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("%s must be a number", key)
	}
	return &v, nil
}

func parsePresetOptions(c *gin.Context) (filter.PresetOptions, error) {
	var opts filter.PresetOptions
	if c.Query("limit") != "" {
		limit, err := parseLimit(c, defaultAlertLimit, maxAlertLimit)
		if err != nil {
			return opts, err
		}
		opts.Limit = limit
	}
	opts.Band = domain.FilterBand(strings.ToLower(c.Query("band")))

	floats := []struct {
		key  string
		dest **float64
	}{
		{"ra_min", &opts.RAMin},
		{"ra_max", &opts.RAMax},
		{"dec_min", &opts.DecMin},
		{"dec_max", &opts.DecMax},
		{"mjd_start", &opts.MJDStart},
		{"mjd_end", &opts.MJDEnd},
		{"ext_min", &opts.ExtMin},
		{"ext_max", &opts.ExtMax},
	}
	for _, f := range floats {
		v, err := parseFloatQuery(c, f.key)
		if err != nil {
			return opts, err
		}
		*f.dest = v
	}

	minSNR, err := parseFloatQuery(c, "min_snr")
	if err != nil {
		return opts, err
	}
	if minSNR != nil {
		opts.MinSNR = *minSNR
	}
	days, err := parseFloatQuery(c, "days")
	if err != nil {
		return opts, err
	}
	if days != nil {
		opts.Days = *days
	}

	return opts, nil
}
