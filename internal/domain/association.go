package domain

import "time"

// ReassociationReason classifies how a sighting changed the association history of a detection
type ReassociationReason string

const (
	ReassociationNone               ReassociationReason = "none"
	ReassociationNewAssociation     ReassociationReason = "new_association"
	ReassociationChangedAssociation ReassociationReason = "changed_association"
	ReassociationUpdatedRetimestamp ReassociationReason = "updated_retimestamp"
)

// IsValidReassociationReason checks if a reason is one of the known classifications
func IsValidReassociationReason(r ReassociationReason) bool {
	switch r {
	case ReassociationNone, ReassociationNewAssociation, ReassociationChangedAssociation, ReassociationUpdatedRetimestamp:
		return true
	}
	return false
}

// IsReassociation reports whether the reason marks an association change
func (r ReassociationReason) IsReassociation() bool {
	return r != "" && r != ReassociationNone
}

// AssociationState is the association history summary of one detection
type AssociationState struct {
	DetectionID               int64
	FirstSeenMJD              float64
	LastSeenMJD               float64
	CurrentAssociatedObjectID *string
	CurrentRetimestamp        *float64
	ObservationCount          int64
	UpdatedAt                 time.Time
}
