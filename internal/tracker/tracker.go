package tracker

import (
	"context"
	"fmt"
	"slices"

	"github.com/feral-file/ff-alert-indexer/internal/domain"
)

// StateReader loads the stored association states of detections
type StateReader interface {
	GetAssociationStates(ctx context.Context, detectionIDs []int64) (map[int64]*domain.AssociationState, error)
}

// Tracker classifies the sightings of one ingestion run batch by batch.
//
// Within a batch the pending state of a detection is visible to its later sightings,
// so repeated sightings in one batch are classified against each other rather than
// against the stale stored state. A Tracker is not safe for concurrent use.
type Tracker struct {
	reader StateReader

	// known holds the states committed by earlier batches of this run
	known map[int64]*domain.AssociationState
	// lastSeen holds the latest accepted sighting of each detection in this run
	lastSeen map[int64]float64

	batch    []*domain.Alert
	baseline map[int64]*domain.AssociationState
	pending  map[int64]*domain.AssociationState
}

// Commit is the outcome of closing a batch
type Commit struct {
	// States are the association states to persist, ordered by detection ID
	States []*domain.AssociationState
	// NewDetections counts detections seen for the first time
	NewDetections int
	// Reassociations counts committed sightings classified as a reassociation
	Reassociations int
}

// New creates a tracker for one ingestion run
func New(reader StateReader) *Tracker {
	return &Tracker{
		reader:   reader,
		known:    make(map[int64]*domain.AssociationState),
		lastSeen: make(map[int64]float64),
		baseline: make(map[int64]*domain.AssociationState),
		pending:  make(map[int64]*domain.AssociationState),
	}
}

// Load fetches the prior states of the given alerts in one round trip.
// Detections already known to the batch or the run are skipped.
func (t *Tracker) Load(ctx context.Context, alerts []*domain.Alert) error {
	var missing []int64
	seen := make(map[int64]struct{}, len(alerts))
	for _, a := range alerts {
		id := a.DetectionID
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := t.baseline[id]; ok {
			continue
		}
		if state, ok := t.known[id]; ok {
			t.baseline[id] = state
			continue
		}
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return nil
	}

	states, err := t.reader.GetAssociationStates(ctx, missing)
	if err != nil {
		return fmt.Errorf("failed to load association states: %w", err)
	}
	for _, id := range missing {
		// a nil baseline records a detection without stored history
		t.baseline[id] = states[id]
	}

	return nil
}

// Track classifies a sighting against the pending state of its detection and
// attaches the classification to the alert. Sightings older than an earlier
// sighting of the same detection in this run fail with domain.ErrOutOfOrder
// and leave the tracker unchanged.
func (t *Tracker) Track(ctx context.Context, alert *domain.Alert) (domain.ReassociationReason, error) {
	id := alert.DetectionID
	if last, ok := t.lastSeen[id]; ok {
		if err := CheckOrder(alert, last); err != nil {
			return "", err
		}
	}

	if _, ok := t.baseline[id]; !ok {
		if err := t.Load(ctx, []*domain.Alert{alert}); err != nil {
			return "", err
		}
	}

	prior, ok := t.pending[id]
	if !ok {
		prior = t.baseline[id]
	}

	reason, next := Classify(alert, prior)
	alert.ReassociationReason = reason
	alert.IsReassociation = reason.IsReassociation()

	t.pending[id] = &next
	t.lastSeen[id] = alert.MJD
	t.batch = append(t.batch, alert)

	return reason, nil
}

// Pending returns the number of sightings tracked in the open batch
func (t *Tracker) Pending() int {
	return len(t.batch)
}

// Commit closes the open batch. The states are rebuilt from the batch baselines
// using only the sightings accepted reports true for; a nil accepted keeps every
// tracked sighting.
func (t *Tracker) Commit(accepted func(*domain.Alert) bool) Commit {
	var c Commit

	states := make(map[int64]*domain.AssociationState)
	for _, a := range t.batch {
		if accepted != nil && !accepted(a) {
			continue
		}
		id := a.DetectionID
		prior, ok := states[id]
		if !ok {
			prior = t.baseline[id]
			if prior == nil {
				c.NewDetections++
			}
		}
		_, next := Classify(a, prior)
		states[id] = &next
		if a.IsReassociation {
			c.Reassociations++
		}
	}

	c.States = make([]*domain.AssociationState, 0, len(states))
	for id, state := range states {
		t.known[id] = state
		c.States = append(c.States, state)
	}
	slices.SortFunc(c.States, func(a, b *domain.AssociationState) int {
		switch {
		case a.DetectionID < b.DetectionID:
			return -1
		case a.DetectionID > b.DetectionID:
			return 1
		}
		return 0
	})

	t.reset()
	return c
}

// Discard drops the open batch without advancing any state
func (t *Tracker) Discard() {
	t.reset()
}

func (t *Tracker) reset() {
	t.batch = nil
	clear(t.baseline)
	clear(t.pending)
}
