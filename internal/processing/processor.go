package processing

import (
	"context"
	"fmt"

	"github.com/feral-file/ff-alert-indexer/internal/domain"
	"github.com/feral-file/ff-alert-indexer/internal/filter"
)

// Window is the closed MJD range one runner pass operates on
type Window struct {
	StartMJD float64
	EndMJD   float64
}

// Days returns the length of the window in days
func (w Window) Days() float64 {
	return w.EndMJD - w.StartMJD
}

// Processor is a windowed analysis over stored alerts. Process receives the
// alerts of the window ordered by observation time and must not write to the
// store; the runner persists the returned result.
//
//go:generate mockgen -source=processor.go -destination=../mocks/processor.go -package=mocks -mock_names=Processor=MockProcessor,PreFilterer=MockPreFilterer
type Processor interface {
	Name() string
	Version() string
	Process(ctx context.Context, alerts []domain.Alert) (*domain.ProcessingResult, error)
}

// PreFilterer is implemented by processors that can narrow their working set in
// the store. The pre-filter only saves work: Process must produce the same output
// for the narrowed set as for the whole window.
type PreFilterer interface {
	PreFilter(window Window) filter.Config
}

// Describer is implemented by processors with a human readable description
type Describer interface {
	Description() string
}

// ProcessorConfig tunes how the runner executes one processor
type ProcessorConfig struct {
	// WindowDays is used when a pass does not set its own window
	WindowDays int
	// MinAlerts below which the processor is skipped
	MinAlerts int
	// Params are processor specific settings
	Params map[string]any
}

// Info describes a registered processor
type Info struct {
	Name        string
	Version     string
	Description string
	WindowDays  int
	MinAlerts   int
	PreFilter   bool
}

// NewResult builds a successful result for the given processor
func NewResult(p Processor, records []map[string]any, summary string) *domain.ProcessingResult {
	if records == nil {
		records = []map[string]any{}
	}
	return &domain.ProcessingResult{
		ProcessorName:    p.Name(),
		ProcessorVersion: p.Version(),
		Records:          records,
		Summary:          summary,
		Status:           domain.ResultStatusSuccess,
		Metadata:         map[string]any{},
	}
}

func skippedResult(p Processor, found, required int) *domain.ProcessingResult {
	result := NewResult(p, nil, fmt.Sprintf("Insufficient data: %d alerts (need %d)", found, required))
	result.Status = domain.ResultStatusSkipped
	result.Metadata["skipped"] = true
	result.Metadata["reason"] = "insufficient_data"
	return result
}

func failedResult(p Processor, err error) *domain.ProcessingResult {
	msg := err.Error()
	result := NewResult(p, nil, "Processor failed: "+msg)
	result.Status = domain.ResultStatusFailed
	result.ErrorMessage = &msg
	return result
}

// AlertRecord returns the alert as a result row keyed by alerts_raw column names
func AlertRecord(a domain.Alert) map[string]any {
	record := map[string]any{
		"alert_id":         a.AlertID,
		"dia_source_id":    a.DetectionID,
		"ra":               a.RA,
		"dec":              a.Dec,
		"mjd":              a.MJD,
		"has_ss_source":    a.HasAssociatedObject,
		"is_reassociation": a.IsReassociation,
	}
	if a.ObjectID != nil {
		record["dia_object_id"] = *a.ObjectID
	}
	if a.FilterBand != "" {
		record["filter_name"] = string(a.FilterBand)
	}
	if a.SNR != nil {
		record["snr"] = *a.SNR
	}
	if a.Flux != nil {
		record["ps_flux"] = *a.Flux
	}
	if a.ExtendednessMedian != nil {
		record["extendedness_median"] = *a.ExtendednessMedian
	}
	if a.AssociatedObjectID != nil {
		record["ss_object_id"] = *a.AssociatedObjectID
	}
	if a.ReassociationReason != "" {
		record["reassociation_reason"] = string(a.ReassociationReason)
	}
	return record
}
