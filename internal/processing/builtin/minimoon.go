package builtin

import (
	"context"
	"fmt"

	"github.com/feral-file/ff-alert-indexer/internal/domain"
	"github.com/feral-file/ff-alert-indexer/internal/filter"
	"github.com/feral-file/ff-alert-indexer/internal/processing"
)

const MinimoonCandidatesName = "minimoon_candidates"

// Parameter keys of MinimoonCandidates
const (
	ParamExtendednessMin = "extendedness_min"
	ParamExtendednessMax = "extendedness_max"
	ParamMinSNR          = "min_snr"
)

const defaultMinimoonSNR = 5.0

// MinimoonCandidates selects associated alerts with intermediate extendedness,
// the signature of temporarily captured objects
type MinimoonCandidates struct {
	ExtendednessMin float64
	ExtendednessMax float64
	// MinSNR applies only to alerts that report an SNR
	MinSNR float64
}

// NewMinimoonCandidates creates the processor, reading thresholds from params
func NewMinimoonCandidates(params map[string]any) (*MinimoonCandidates, error) {
	p := &MinimoonCandidates{}
	var err error
	if p.ExtendednessMin, err = floatParam(params, ParamExtendednessMin, domain.POINT_SOURCE_MAX_EXTENDEDNESS); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrInvalidConfig, MinimoonCandidatesName, err)
	}
	if p.ExtendednessMax, err = floatParam(params, ParamExtendednessMax, domain.EXTENDED_SOURCE_MIN_EXTENDEDNESS); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrInvalidConfig, MinimoonCandidatesName, err)
	}
	if p.MinSNR, err = floatParam(params, ParamMinSNR, defaultMinimoonSNR); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrInvalidConfig, MinimoonCandidatesName, err)
	}
	if p.ExtendednessMin > p.ExtendednessMax {
		return nil, fmt.Errorf("%w: %s: extendedness_min exceeds extendedness_max", domain.ErrInvalidConfig, MinimoonCandidatesName)
	}
	return p, nil
}

func (p *MinimoonCandidates) Name() string    { return MinimoonCandidatesName }
func (p *MinimoonCandidates) Version() string { return version }
func (p *MinimoonCandidates) Description() string {
	return "Associated alerts with intermediate extendedness"
}

// PreFilter narrows the working set to associated alerts
func (p *MinimoonCandidates) PreFilter(processing.Window) filter.Config {
	return filter.Config{RequireAssociation: true}
}

func (p *MinimoonCandidates) Process(ctx context.Context, alerts []domain.Alert) (*domain.ProcessingResult, error) {
	records := make([]map[string]any, 0)
	for i := range alerts {
		if p.matches(&alerts[i]) {
			records = append(records, processing.AlertRecord(alerts[i]))
		}
	}

	result := processing.NewResult(p, records, fmt.Sprintf("Selected %d candidates", len(records)))
	result.Metadata["criteria"] = map[string]any{
		"extendedness_range": []float64{p.ExtendednessMin, p.ExtendednessMax},
		"min_snr":            p.MinSNR,
		"requires_sso":       true,
	}
	return result, nil
}

func (p *MinimoonCandidates) matches(a *domain.Alert) bool {
	if !a.HasAssociatedObject || a.ExtendednessMedian == nil {
		return false
	}
	ext := *a.ExtendednessMedian
	if ext < p.ExtendednessMin || ext > p.ExtendednessMax {
		return false
	}
	return a.SNR == nil || *a.SNR >= p.MinSNR
}
