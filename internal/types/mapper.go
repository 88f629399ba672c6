package types

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"

	"github.com/feral-file/ff-alert-indexer/internal/domain"
	"github.com/feral-file/ff-alert-indexer/internal/store/schema"
)

// AlertToSchema converts a canonical alert to its alerts_raw row
func AlertToSchema(a *domain.Alert) (*schema.Alert, error) {
	trail, err := MarshalJSONMap(a.TrailData)
	if err != nil {
		return nil, err
	}
	flags, err := MarshalJSONMap(a.PixelFlags)
	if err != nil {
		return nil, err
	}

	row := &schema.Alert{
		AlertID:                a.AlertID,
		DetectionID:            a.DetectionID,
		ObjectID:               a.ObjectID,
		RA:                     a.RA,
		Dec:                    a.Dec,
		MJD:                    a.MJD,
		IngestedAt:             a.IngestedAt,
		PSFlux:                 a.Flux,
		PSFluxErr:              a.FluxError,
		SNR:                    a.SNR,
		ExtendednessMedian:     a.ExtendednessMedian,
		ExtendednessMin:        a.ExtendednessMin,
		ExtendednessMax:        a.ExtendednessMax,
		HasSSSource:            a.HasAssociatedObject,
		SSObjectID:             a.AssociatedObjectID,
		SSObjectReassocTimeMJD: a.AssociationRetimestamp,
		IsReassociation:        a.IsReassociation,
		TrailData:              trail,
		PixelFlags:             flags,
	}
	if a.FilterBand != "" {
		row.FilterName = StringPtr(string(a.FilterBand))
	}
	if a.ReassociationReason != "" {
		row.ReassociationReason = StringPtr(string(a.ReassociationReason))
	}

	return row, nil
}

// AlertFromSchema converts an alerts_raw row back to a canonical alert
func AlertFromSchema(row *schema.Alert) (*domain.Alert, error) {
	trail, err := UnmarshalJSONMap(row.TrailData)
	if err != nil {
		return nil, err
	}
	flags, err := UnmarshalJSONMap(row.PixelFlags)
	if err != nil {
		return nil, err
	}

	return &domain.Alert{
		AlertID:                row.AlertID,
		DetectionID:            row.DetectionID,
		ObjectID:               row.ObjectID,
		RA:                     row.RA,
		Dec:                    row.Dec,
		MJD:                    row.MJD,
		FilterBand:             domain.FilterBand(SafeString(row.FilterName)),
		Flux:                   row.PSFlux,
		FluxError:              row.PSFluxErr,
		SNR:                    row.SNR,
		ExtendednessMedian:     row.ExtendednessMedian,
		ExtendednessMin:        row.ExtendednessMin,
		ExtendednessMax:        row.ExtendednessMax,
		HasAssociatedObject:    row.HasSSSource,
		AssociatedObjectID:     row.SSObjectID,
		AssociationRetimestamp: row.SSObjectReassocTimeMJD,
		IsReassociation:        row.IsReassociation,
		ReassociationReason:    domain.ReassociationReason(SafeString(row.ReassociationReason)),
		TrailData:              trail,
		PixelFlags:             flags,
		IngestedAt:             row.IngestedAt,
	}, nil
}

// AssociationStateToSchema converts a tracker state to its association_states row
func AssociationStateToSchema(s *domain.AssociationState) *schema.AssociationState {
	return &schema.AssociationState{
		DetectionID:         s.DetectionID,
		FirstSeenMJD:        s.FirstSeenMJD,
		LastSeenMJD:         s.LastSeenMJD,
		SSObjectID:          s.CurrentAssociatedObjectID,
		SSObjectReassocTime: s.CurrentRetimestamp,
		ObservationCount:    s.ObservationCount,
		UpdatedAt:           s.UpdatedAt,
	}
}

// AssociationStateFromSchema converts an association_states row to a tracker state
func AssociationStateFromSchema(row *schema.AssociationState) *domain.AssociationState {
	return &domain.AssociationState{
		DetectionID:               row.DetectionID,
		FirstSeenMJD:              row.FirstSeenMJD,
		LastSeenMJD:               row.LastSeenMJD,
		CurrentAssociatedObjectID: row.SSObjectID,
		CurrentRetimestamp:        row.SSObjectReassocTime,
		ObservationCount:          row.ObservationCount,
		UpdatedAt:                 row.UpdatedAt,
	}
}

// IngestionRunToSchema converts a run to its ingestion_runs row
func IngestionRunToSchema(r *domain.IngestionRun) (*schema.IngestionRun, error) {
	meta, err := MarshalJSONMap(r.Metadata)
	if err != nil {
		return nil, err
	}
	return &schema.IngestionRun{
		RunID:                  r.RunID,
		SourceName:             r.SourceName,
		StartedAt:              r.StartedAt,
		CompletedAt:            r.CompletedAt,
		Status:                 string(r.Status),
		AlertsFetched:          r.AlertsFetched,
		AlertsIngested:         r.AlertsIngested,
		AlertsRejected:         r.AlertsRejected,
		Duplicates:             r.Duplicates,
		NewSources:             r.NewSources,
		ReassociationsDetected: r.ReassociationsDetected,
		BatchesWritten:         r.BatchesWritten,
		ErrorMessage:           r.ErrorMessage,
		Metadata:               meta,
	}, nil
}

// IngestionRunFromSchema converts an ingestion_runs row to a run
func IngestionRunFromSchema(row *schema.IngestionRun) (*domain.IngestionRun, error) {
	meta, err := UnmarshalJSONMap(row.Metadata)
	if err != nil {
		return nil, err
	}
	return &domain.IngestionRun{
		RunID:                  row.RunID,
		SourceName:             row.SourceName,
		StartedAt:              row.StartedAt,
		CompletedAt:            row.CompletedAt,
		Status:                 domain.RunStatus(row.Status),
		AlertsFetched:          row.AlertsFetched,
		AlertsIngested:         row.AlertsIngested,
		AlertsRejected:         row.AlertsRejected,
		Duplicates:             row.Duplicates,
		NewSources:             row.NewSources,
		ReassociationsDetected: row.ReassociationsDetected,
		BatchesWritten:         row.BatchesWritten,
		ErrorMessage:           row.ErrorMessage,
		Metadata:               meta,
	}, nil
}

// ProcessingResultToSchema converts a processing result to its processing_results row
func ProcessingResultToSchema(r *domain.ProcessingResult) (*schema.ProcessingResult, error) {
	records := r.Records
	if records == nil {
		records = []map[string]any{}
	}
	recordsJSON, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal processing records: %w", err)
	}
	meta, err := MarshalJSONMap(r.Metadata)
	if err != nil {
		return nil, err
	}
	return &schema.ProcessingResult{
		ID:               r.ID,
		PassID:           r.PassID,
		ProcessorName:    r.ProcessorName,
		ProcessorVersion: r.ProcessorVersion,
		Records:          datatypes.JSON(recordsJSON),
		Metadata:         meta,
		Summary:          r.Summary,
		Status:           string(r.Status),
		ErrorMessage:     r.ErrorMessage,
		WindowStartMJD:   r.WindowStartMJD,
		WindowEndMJD:     r.WindowEndMJD,
		ProcessedAt:      r.ProcessedAt,
	}, nil
}

// ProcessingResultFromSchema converts a processing_results row to a processing result
func ProcessingResultFromSchema(row *schema.ProcessingResult) (*domain.ProcessingResult, error) {
	records, err := UnmarshalJSONRecords(row.Records)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal processing records: %w", err)
	}
	meta, err := UnmarshalJSONMap(row.Metadata)
	if err != nil {
		return nil, err
	}
	return &domain.ProcessingResult{
		ID:               row.ID,
		PassID:           row.PassID,
		ProcessorName:    row.ProcessorName,
		ProcessorVersion: row.ProcessorVersion,
		Records:          records,
		Summary:          row.Summary,
		Status:           domain.ResultStatus(row.Status),
		ErrorMessage:     row.ErrorMessage,
		WindowStartMJD:   row.WindowStartMJD,
		WindowEndMJD:     row.WindowEndMJD,
		Metadata:         meta,
		ProcessedAt:      row.ProcessedAt,
	}, nil
}
