package builtin

import (
	"context"
	"fmt"
	"math"

	"github.com/feral-file/ff-alert-indexer/internal/domain"
	"github.com/feral-file/ff-alert-indexer/internal/processing"
)

const ExampleName = "example"

// Example computes basic statistics over the alerts of the window. It is the
// smallest complete processor and a template for new ones.
type Example struct{}

func NewExample() *Example {
	return &Example{}
}

func (p *Example) Name() string        { return ExampleName }
func (p *Example) Version() string     { return version }
func (p *Example) Description() string { return "Basic alert statistics over the window" }

func (p *Example) Process(ctx context.Context, alerts []domain.Alert) (*domain.ProcessingResult, error) {
	sources := make(map[int64]struct{})
	objects := make(map[int64]struct{})
	minMJD, maxMJD := math.Inf(1), math.Inf(-1)

	var ext stats
	var pointSources, extendedSources, withSSO int
	for i := range alerts {
		a := &alerts[i]
		sources[a.DetectionID] = struct{}{}
		if a.ObjectID != nil {
			objects[*a.ObjectID] = struct{}{}
		}
		minMJD = min(minMJD, a.MJD)
		maxMJD = max(maxMJD, a.MJD)

		if a.ExtendednessMedian != nil {
			ext.add(*a.ExtendednessMedian)
		}
		if a.IsPointSource() {
			pointSources++
		}
		if a.IsExtendedSource() {
			extendedSources++
		}
		if a.HasAssociatedObject {
			withSSO++
		}
	}

	record := map[string]any{
		"total_alerts":   len(alerts),
		"unique_sources": len(sources),
		"unique_objects": len(objects),
		"sso": map[string]any{
			"with_sso":    withSSO,
			"without_sso": len(alerts) - withSSO,
		},
	}
	if len(alerts) > 0 {
		record["date_range"] = map[string]any{"min_mjd": minMJD, "max_mjd": maxMJD}
	}
	if ext.n > 0 {
		record["extendedness"] = map[string]any{
			"mean":             ext.mean,
			"std":              ext.std(),
			"point_sources":    pointSources,
			"extended_sources": extendedSources,
		}
	}

	result := processing.NewResult(p, []map[string]any{record},
		fmt.Sprintf("Processed %d alerts from %d sources", len(alerts), len(sources)))
	result.Metadata["type"] = "statistics"
	return result, nil
}
