package builtin

import (
	"context"
	"fmt"
	"slices"

	"github.com/feral-file/ff-alert-indexer/internal/domain"
	"github.com/feral-file/ff-alert-indexer/internal/processing"
)

const SourceSummaryName = "source_summary"

// ParamMinDetections is the smallest group SourceSummary reports
const ParamMinDetections = "min_detections"

// SourceSummary aggregates the alerts of each object into one summary row.
// Alerts without an object are ignored.
type SourceSummary struct {
	MinDetections int
}

// NewSourceSummary creates the processor, reading its minimum group size from params
func NewSourceSummary(params map[string]any) (*SourceSummary, error) {
	n, err := floatParam(params, ParamMinDetections, 2)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrInvalidConfig, SourceSummaryName, err)
	}
	if n < 1 {
		return nil, fmt.Errorf("%w: %s: min_detections must be at least 1", domain.ErrInvalidConfig, SourceSummaryName)
	}
	return &SourceSummary{MinDetections: int(n)}, nil
}

func (p *SourceSummary) Name() string        { return SourceSummaryName }
func (p *SourceSummary) Version() string     { return version }
func (p *SourceSummary) Description() string { return "Per-object summaries of the window" }

func (p *SourceSummary) Process(ctx context.Context, alerts []domain.Alert) (*domain.ProcessingResult, error) {
	groups := make(map[int64][]*domain.Alert)
	for i := range alerts {
		if id := alerts[i].ObjectID; id != nil {
			groups[*id] = append(groups[*id], &alerts[i])
		}
	}

	ids := make([]int64, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	records := make([]map[string]any, 0)
	for _, id := range ids {
		if record := p.aggregate(groups[id]); record != nil {
			record["dia_object_id"] = id
			records = append(records, record)
		}
	}

	return processing.NewResult(p, records,
		fmt.Sprintf("Aggregated %d groups into %d results", len(groups), len(records))), nil
}

func (p *SourceSummary) aggregate(group []*domain.Alert) map[string]any {
	if len(group) < p.MinDetections {
		return nil
	}

	var mjd, ext stats
	var bands []string
	hasSSO := false
	for _, a := range group {
		mjd.add(a.MJD)
		if a.ExtendednessMedian != nil {
			ext.add(*a.ExtendednessMedian)
		}
		if a.FilterBand != "" && !slices.Contains(bands, string(a.FilterBand)) {
			bands = append(bands, string(a.FilterBand))
		}
		hasSSO = hasSSO || a.HasAssociatedObject
	}

	record := map[string]any{
		"detection_count":   len(group),
		"first_mjd":         mjd.minV,
		"last_mjd":          mjd.maxV,
		"time_span_days":    mjd.maxV - mjd.minV,
		"has_sso_detection": hasSSO,
		"filters":           bands,
	}
	if ext.n > 0 {
		record["extendedness_mean"] = ext.mean
		record["extendedness_std"] = ext.std()
		record["extendedness_range"] = []float64{ext.minV, ext.maxV}
	}
	return record
}
