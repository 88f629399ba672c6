package tracker

import (
	"fmt"

	"github.com/feral-file/ff-alert-indexer/internal/domain"
	"github.com/feral-file/ff-alert-indexer/internal/types"
)

// Classify derives the reassociation reason of a sighting and the association state
// that results from applying it. prior is nil on the first sighting of a detection.
// Classify has no side effects; alert and prior are never modified.
func Classify(alert *domain.Alert, prior *domain.AssociationState) (domain.ReassociationReason, domain.AssociationState) {
	reason := classifyReason(alert, prior)

	next := domain.AssociationState{
		DetectionID:               alert.DetectionID,
		FirstSeenMJD:              alert.MJD,
		LastSeenMJD:               alert.MJD,
		CurrentAssociatedObjectID: copyString(alert.AssociatedObjectID),
		CurrentRetimestamp:        copyFloat(alert.AssociationRetimestamp),
		ObservationCount:          1,
	}
	if prior != nil {
		next.FirstSeenMJD = min(prior.FirstSeenMJD, alert.MJD)
		next.LastSeenMJD = max(prior.LastSeenMJD, alert.MJD)
		next.ObservationCount = prior.ObservationCount + 1
	}

	return reason, next
}

func classifyReason(alert *domain.Alert, prior *domain.AssociationState) domain.ReassociationReason {
	if prior == nil {
		if alert.HasAssociatedObject {
			return domain.ReassociationNewAssociation
		}
		return domain.ReassociationNone
	}

	previous := prior.CurrentAssociatedObjectID
	current := alert.AssociatedObjectID
	switch {
	case previous == nil && current != nil:
		return domain.ReassociationNewAssociation
	case previous != nil && current != nil && *previous != *current:
		return domain.ReassociationChangedAssociation
	case previous != nil && current != nil && !types.EqualFloat64Ptr(alert.AssociationRetimestamp, prior.CurrentRetimestamp):
		return domain.ReassociationUpdatedRetimestamp
	default:
		return domain.ReassociationNone
	}
}

// CheckOrder rejects a sighting older than the latest sighting of the same detection
// already accepted in the current run
func CheckOrder(alert *domain.Alert, lastSeenMJD float64) error {
	if alert.MJD < lastSeenMJD {
		return fmt.Errorf("%w: detection %d at mjd %.6f precedes %.6f",
			domain.ErrOutOfOrder, alert.DetectionID, alert.MJD, lastSeenMJD)
	}
	return nil
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	return types.StringPtr(*s)
}

func copyFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	return types.Float64Ptr(*f)
}
