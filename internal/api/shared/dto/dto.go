// Package dto holds the JSON representations shared by the HTTP API and alertctl
package dto

import (
	"time"

	"github.com/feral-file/ff-alert-indexer/internal/domain"
	"github.com/feral-file/ff-alert-indexer/internal/filter"
	"github.com/feral-file/ff-alert-indexer/internal/processing"
	"github.com/feral-file/ff-alert-indexer/internal/store"
)

// AlertResponse is the JSON form of a stored alert
type AlertResponse struct {
	AlertID     int64  `json:"alert_id" yaml:"alert_id"`
	DetectionID int64  `json:"dia_source_id" yaml:"dia_source_id"`
	ObjectID    *int64 `json:"dia_object_id,omitempty" yaml:"dia_object_id,omitempty"`

	RA         float64  `json:"ra" yaml:"ra"`
	Dec        float64  `json:"dec" yaml:"dec"`
	MJD        float64  `json:"mjd" yaml:"mjd"`
	FilterBand string   `json:"filter_name,omitempty" yaml:"filter_name,omitempty"`
	Flux       *float64 `json:"ps_flux,omitempty" yaml:"ps_flux,omitempty"`
	FluxError  *float64 `json:"ps_flux_err,omitempty" yaml:"ps_flux_err,omitempty"`
	SNR        *float64 `json:"snr,omitempty" yaml:"snr,omitempty"`

	ExtendednessMedian *float64 `json:"extendedness_median,omitempty" yaml:"extendedness_median,omitempty"`
	ExtendednessMin    *float64 `json:"extendedness_min,omitempty" yaml:"extendedness_min,omitempty"`
	ExtendednessMax    *float64 `json:"extendedness_max,omitempty" yaml:"extendedness_max,omitempty"`

	HasAssociatedObject    bool     `json:"has_ss_source" yaml:"has_ss_source"`
	AssociatedObjectID     *string  `json:"ss_object_id,omitempty" yaml:"ss_object_id,omitempty"`
	AssociationRetimestamp *float64 `json:"ss_object_reassoc_time_mjd,omitempty" yaml:"ss_object_reassoc_time_mjd,omitempty"`
	IsReassociation        bool     `json:"is_reassociation" yaml:"is_reassociation"`
	ReassociationReason    string   `json:"reassociation_reason,omitempty" yaml:"reassociation_reason,omitempty"`

	TrailData  map[string]any `json:"trail_data,omitempty" yaml:"trail_data,omitempty"`
	PixelFlags map[string]any `json:"pixel_flags,omitempty" yaml:"pixel_flags,omitempty"`
	IngestedAt time.Time      `json:"ingested_at" yaml:"ingested_at"`
}

// NewAlertResponse maps a domain alert
func NewAlertResponse(a domain.Alert) AlertResponse {
	return AlertResponse{
		AlertID:                a.AlertID,
		DetectionID:            a.DetectionID,
		ObjectID:               a.ObjectID,
		RA:                     a.RA,
		Dec:                    a.Dec,
		MJD:                    a.MJD,
		FilterBand:             string(a.FilterBand),
		Flux:                   a.Flux,
		FluxError:              a.FluxError,
		SNR:                    a.SNR,
		ExtendednessMedian:     a.ExtendednessMedian,
		ExtendednessMin:        a.ExtendednessMin,
		ExtendednessMax:        a.ExtendednessMax,
		HasAssociatedObject:    a.HasAssociatedObject,
		AssociatedObjectID:     a.AssociatedObjectID,
		AssociationRetimestamp: a.AssociationRetimestamp,
		IsReassociation:        a.IsReassociation,
		ReassociationReason:    string(a.ReassociationReason),
		TrailData:              a.TrailData,
		PixelFlags:             a.PixelFlags,
		IngestedAt:             a.IngestedAt,
	}
}

// NewAlertResponses maps a list of domain alerts
func NewAlertResponses(alerts []domain.Alert) []AlertResponse {
	out := make([]AlertResponse, len(alerts))
	for i, a := range alerts {
		out[i] = NewAlertResponse(a)
	}
	return out
}

// AlertListResponse is the result of applying a filter
type AlertListResponse struct {
	Filter filter.Config   `json:"filter" yaml:"filter"`
	Hash   string          `json:"hash" yaml:"hash"`
	Count  int             `json:"count" yaml:"count"`
	Alerts []AlertResponse `json:"alerts" yaml:"alerts"`
}

// NewAlertListResponse maps the alerts a filter selected
func NewAlertListResponse(cfg filter.Config, alerts []domain.Alert) AlertListResponse {
	return AlertListResponse{
		Filter: cfg,
		Hash:   cfg.Hash(),
		Count:  len(alerts),
		Alerts: NewAlertResponses(alerts),
	}
}

// RunResponse is the JSON form of an ingestion run
type RunResponse struct {
	RunID                  string         `json:"run_id" yaml:"run_id"`
	SourceName             string         `json:"source_name" yaml:"source_name"`
	Status                 string         `json:"status" yaml:"status"`
	StartedAt              time.Time      `json:"started_at" yaml:"started_at"`
	CompletedAt            *time.Time     `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
	AlertsFetched          int64          `json:"alerts_fetched" yaml:"alerts_fetched"`
	AlertsIngested         int64          `json:"alerts_ingested" yaml:"alerts_ingested"`
	AlertsRejected         int64          `json:"alerts_rejected" yaml:"alerts_rejected"`
	Duplicates             int64          `json:"duplicates" yaml:"duplicates"`
	NewSources             int64          `json:"new_sources" yaml:"new_sources"`
	ReassociationsDetected int64          `json:"reassociations_detected" yaml:"reassociations_detected"`
	BatchesWritten         int64          `json:"batches_written" yaml:"batches_written"`
	ErrorMessage           *string        `json:"error_message,omitempty" yaml:"error_message,omitempty"`
	Metadata               map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// NewRunResponse maps an ingestion run
func NewRunResponse(r *domain.IngestionRun) RunResponse {
	return RunResponse{
		RunID:                  r.RunID,
		SourceName:             r.SourceName,
		Status:                 string(r.Status),
		StartedAt:              r.StartedAt,
		CompletedAt:            r.CompletedAt,
		AlertsFetched:          r.AlertsFetched,
		AlertsIngested:         r.AlertsIngested,
		AlertsRejected:         r.AlertsRejected,
		Duplicates:             r.Duplicates,
		NewSources:             r.NewSources,
		ReassociationsDetected: r.ReassociationsDetected,
		BatchesWritten:         r.BatchesWritten,
		ErrorMessage:           r.ErrorMessage,
		Metadata:               r.Metadata,
	}
}

// NewRunResponses maps a list of ingestion runs
func NewRunResponses(runs []*domain.IngestionRun) []RunResponse {
	out := make([]RunResponse, len(runs))
	for i, r := range runs {
		out[i] = NewRunResponse(r)
	}
	return out
}

// ResultResponse is the JSON form of a processing result
type ResultResponse struct {
	ID               uint64           `json:"id" yaml:"id"`
	PassID           string           `json:"pass_id" yaml:"pass_id"`
	ProcessorName    string           `json:"processor_name" yaml:"processor_name"`
	ProcessorVersion string           `json:"processor_version" yaml:"processor_version"`
	Status           string           `json:"status" yaml:"status"`
	Summary          string           `json:"summary" yaml:"summary"`
	ErrorMessage     *string          `json:"error_message,omitempty" yaml:"error_message,omitempty"`
	WindowStartMJD   *float64         `json:"window_start_mjd,omitempty" yaml:"window_start_mjd,omitempty"`
	WindowEndMJD     *float64         `json:"window_end_mjd,omitempty" yaml:"window_end_mjd,omitempty"`
	RecordCount      int              `json:"record_count" yaml:"record_count"`
	Records          []map[string]any `json:"records,omitempty" yaml:"records,omitempty"`
	Metadata         map[string]any   `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	ProcessedAt      time.Time        `json:"processed_at" yaml:"processed_at"`
}

// NewResultResponse maps a processing result; records are left out unless withRecords is set
func NewResultResponse(r *domain.ProcessingResult, withRecords bool) ResultResponse {
	resp := ResultResponse{
		ID:               r.ID,
		PassID:           r.PassID,
		ProcessorName:    r.ProcessorName,
		ProcessorVersion: r.ProcessorVersion,
		Status:           string(r.Status),
		Summary:          r.Summary,
		ErrorMessage:     r.ErrorMessage,
		WindowStartMJD:   r.WindowStartMJD,
		WindowEndMJD:     r.WindowEndMJD,
		RecordCount:      len(r.Records),
		Metadata:         r.Metadata,
		ProcessedAt:      r.ProcessedAt,
	}
	if withRecords {
		resp.Records = r.Records
	}
	return resp
}

// NewResultResponses maps a list of processing results
func NewResultResponses(results []*domain.ProcessingResult, withRecords bool) []ResultResponse {
	out := make([]ResultResponse, len(results))
	for i, r := range results {
		out[i] = NewResultResponse(r, withRecords)
	}
	return out
}

// OutcomeResponse is the JSON form of one processor within a pass
type OutcomeResponse struct {
	Processor string          `json:"processor" yaml:"processor"`
	Succeeded bool            `json:"succeeded" yaml:"succeeded"`
	Error     string          `json:"error,omitempty" yaml:"error,omitempty"`
	ElapsedMS int64           `json:"elapsed_ms" yaml:"elapsed_ms"`
	Result    *ResultResponse `json:"result,omitempty" yaml:"result,omitempty"`
}

// PassResponse is the JSON form of a processing pass
type PassResponse struct {
	PassID      string            `json:"pass_id" yaml:"pass_id"`
	StartedAt   time.Time         `json:"started_at" yaml:"started_at"`
	CompletedAt time.Time         `json:"completed_at" yaml:"completed_at"`
	Succeeded   int               `json:"succeeded" yaml:"succeeded"`
	Failed      int               `json:"failed" yaml:"failed"`
	Outcomes    []OutcomeResponse `json:"outcomes" yaml:"outcomes"`
}

// NewPassResponse maps a runner report
func NewPassResponse(r *processing.Report) PassResponse {
	resp := PassResponse{
		PassID:      r.PassID,
		StartedAt:   r.StartedAt,
		CompletedAt: r.CompletedAt,
		Succeeded:   r.SuccessCount(),
		Failed:      r.FailureCount(),
		Outcomes:    make([]OutcomeResponse, len(r.Outcomes)),
	}
	for i, o := range r.Outcomes {
		out := OutcomeResponse{
			Processor: o.Processor,
			Succeeded: o.Succeeded(),
			ElapsedMS: o.Elapsed.Milliseconds(),
		}
		if o.Err != nil {
			out.Error = o.Err.Error()
		}
		if o.Result != nil {
			result := NewResultResponse(o.Result, false)
			out.Result = &result
		}
		resp.Outcomes[i] = out
	}
	return resp
}

// ProcessorResponse describes a registered processor
type ProcessorResponse struct {
	Name        string `json:"name" yaml:"name"`
	Version     string `json:"version" yaml:"version"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	WindowDays  int    `json:"window_days" yaml:"window_days"`
	MinAlerts   int    `json:"min_alerts" yaml:"min_alerts"`
	PreFilter   bool   `json:"pre_filter" yaml:"pre_filter"`
}

// NewProcessorResponses maps registry info
func NewProcessorResponses(infos []processing.Info) []ProcessorResponse {
	out := make([]ProcessorResponse, len(infos))
	for i, info := range infos {
		out[i] = ProcessorResponse{
			Name:        info.Name,
			Version:     info.Version,
			Description: info.Description,
			WindowDays:  info.WindowDays,
			MinAlerts:   info.MinAlerts,
			PreFilter:   info.PreFilter,
		}
	}
	return out
}

// PresetResponse describes a filter preset
type PresetResponse struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
}

// NewPresetResponses maps the filter presets
func NewPresetResponses(presets []filter.Preset) []PresetResponse {
	out := make([]PresetResponse, len(presets))
	for i, p := range presets {
		out[i] = PresetResponse{Name: p.Name, Description: p.Description}
	}
	return out
}

// StatsResponse is the JSON form of the store summary
type StatsResponse struct {
	TableCounts            map[string]int64 `json:"table_counts" yaml:"table_counts"`
	TotalAlerts            int64            `json:"total_alerts" yaml:"total_alerts"`
	UniqueDetections       int64            `json:"unique_detections" yaml:"unique_detections"`
	UniqueObjects          int64            `json:"unique_objects" yaml:"unique_objects"`
	AssociatedAlerts       int64            `json:"associated_alerts" yaml:"associated_alerts"`
	ReassociationAlerts    int64            `json:"reassociation_alerts" yaml:"reassociation_alerts"`
	TrackedStates          int64            `json:"tracked_states" yaml:"tracked_states"`
	MinMJD                 *float64         `json:"min_mjd,omitempty" yaml:"min_mjd,omitempty"`
	MaxMJD                 *float64         `json:"max_mjd,omitempty" yaml:"max_mjd,omitempty"`
	LastIngestedAt         *time.Time       `json:"last_ingested_at,omitempty" yaml:"last_ingested_at,omitempty"`
	RunsByStatus           map[string]int64 `json:"runs_by_status" yaml:"runs_by_status"`
	ProcessingResultsCount int64            `json:"processing_results" yaml:"processing_results"`
	SavedFilters           int64            `json:"saved_filters" yaml:"saved_filters"`
}

// NewStatsResponse maps the store summary
func NewStatsResponse(s *store.Stats) StatsResponse {
	return StatsResponse{
		TableCounts:            s.TableCounts,
		TotalAlerts:            s.TotalAlerts,
		UniqueDetections:       s.UniqueDetections,
		UniqueObjects:          s.UniqueObjects,
		AssociatedAlerts:       s.AssociatedAlerts,
		ReassociationAlerts:    s.ReassociationAlerts,
		TrackedStates:          s.TrackedStates,
		MinMJD:                 s.MinMJD,
		MaxMJD:                 s.MaxMJD,
		LastIngestedAt:         s.LastIngestedAt,
		RunsByStatus:           s.RunsByStatus,
		ProcessingResultsCount: s.ProcessingResultsCount,
		SavedFilters:           s.SavedFilters,
	}
}

// RunProcessorsRequest triggers a processing pass
type RunProcessorsRequest struct {
	WindowDays int      `json:"window_days"`
	Only       []string `json:"only"`
}
