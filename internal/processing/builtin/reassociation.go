package builtin

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/feral-file/ff-alert-indexer/internal/domain"
	"github.com/feral-file/ff-alert-indexer/internal/filter"
	"github.com/feral-file/ff-alert-indexer/internal/processing"
)

const ReassociationTrackerName = "reassociation_tracker"

// ReassociationTracker reports the detections whose association changed in the
// window, most frequently reassociated first
type ReassociationTracker struct{}

func NewReassociationTracker() *ReassociationTracker {
	return &ReassociationTracker{}
}

func (p *ReassociationTracker) Name() string    { return ReassociationTrackerName }
func (p *ReassociationTracker) Version() string { return version }
func (p *ReassociationTracker) Description() string {
	return "Detections whose solar system association changed"
}

// PreFilter narrows the working set to reassociation events
func (p *ReassociationTracker) PreFilter(processing.Window) filter.Config {
	return filter.Config{ReassociationsOnly: true}
}

type reassociationGroup struct {
	detectionID int64
	count       int
	first, last float64
	objects     []string
	reasons     []string
}

func (p *ReassociationTracker) Process(ctx context.Context, alerts []domain.Alert) (*domain.ProcessingResult, error) {
	groups := make(map[int64]*reassociationGroup)
	total := 0
	for i := range alerts {
		a := &alerts[i]
		if !a.IsReassociation {
			continue
		}
		total++

		g, ok := groups[a.DetectionID]
		if !ok {
			g = &reassociationGroup{detectionID: a.DetectionID, first: a.MJD, last: a.MJD}
			groups[a.DetectionID] = g
		}
		g.count++
		g.first = min(g.first, a.MJD)
		g.last = max(g.last, a.MJD)
		if a.AssociatedObjectID != nil && !slices.Contains(g.objects, *a.AssociatedObjectID) {
			g.objects = append(g.objects, *a.AssociatedObjectID)
		}
		if reason := string(a.ReassociationReason); reason != "" && !slices.Contains(g.reasons, reason) {
			g.reasons = append(g.reasons, reason)
		}
	}

	if total == 0 {
		return processing.NewResult(p, nil, "No reassociations in window"), nil
	}

	sorted := make([]*reassociationGroup, 0, len(groups))
	for _, g := range groups {
		sorted = append(sorted, g)
	}
	slices.SortFunc(sorted, func(a, b *reassociationGroup) int {
		if c := cmp.Compare(b.count, a.count); c != 0 {
			return c
		}
		return cmp.Compare(a.detectionID, b.detectionID)
	})

	records := make([]map[string]any, 0, len(sorted))
	for _, g := range sorted {
		records = append(records, map[string]any{
			"dia_source_id":       g.detectionID,
			"reassociation_count": g.count,
			"first_reassoc_mjd":   g.first,
			"last_reassoc_mjd":    g.last,
			"ss_objects":          g.objects,
			"ss_object_count":     len(g.objects),
			"reasons":             g.reasons,
		})
	}

	result := processing.NewResult(p, records, fmt.Sprintf("Found %d sources with reassociations", len(records)))
	result.Metadata["total_reassociations"] = total
	result.Metadata["unique_sources"] = len(records)
	return result, nil
}
