package store

import (
	"context"
	"time"

	"github.com/feral-file/ff-alert-indexer/internal/domain"
	"github.com/feral-file/ff-alert-indexer/internal/store/schema"
)

// Store defines the interface for database operations
//
//go:generate mockgen -source=store.go -destination=../mocks/store.go -package=mocks -mock_names=Store=MockStore
type Store interface {
	// Initialize creates tables, indexes and views; safe to call repeatedly
	Initialize(ctx context.Context) error
	// Close releases the underlying connections
	Close() error

	// WriteBatch persists a batch of alerts in one transaction, rejecting invalid rows and repeated detections individually
	WriteBatch(ctx context.Context, alerts []*domain.Alert) (*WriteResult, error)
	// GetAlert retrieves the stored alert of a detection
	GetAlert(ctx context.Context, detectionID int64) (*domain.Alert, error)
	// Query runs a single read-only statement and returns the rows as maps
	Query(ctx context.Context, sql string, args ...any) ([]map[string]any, error)
	// QueryAlerts runs a single read-only statement over alerts_raw and decodes the rows into alerts
	QueryAlerts(ctx context.Context, sql string, args ...any) ([]domain.Alert, error)

	// GetAssociationState retrieves the state of a detection, nil when it was never seen
	GetAssociationState(ctx context.Context, detectionID int64) (*domain.AssociationState, error)
	// GetAssociationStates retrieves the states of many detections keyed by detection ID
	GetAssociationStates(ctx context.Context, detectionIDs []int64) (map[int64]*domain.AssociationState, error)
	// UpsertAssociationState inserts or replaces the state of a detection
	UpsertAssociationState(ctx context.Context, state *domain.AssociationState) error
	// UpsertAssociationStates inserts or replaces many states in one transaction
	UpsertAssociationStates(ctx context.Context, states []*domain.AssociationState) error
	// DeleteStatesLastSeenBefore removes states whose last sighting is older than mjd
	DeleteStatesLastSeenBefore(ctx context.Context, mjd float64) (int64, error)

	// RecordRun inserts a new ingestion run
	RecordRun(ctx context.Context, run *domain.IngestionRun) error
	// FinalizeRun stores the final counters and status of an ingestion run
	FinalizeRun(ctx context.Context, run *domain.IngestionRun) error
	// GetRun retrieves an ingestion run by ID
	GetRun(ctx context.Context, runID string) (*domain.IngestionRun, error)
	// ListRuns lists the most recent ingestion runs, newest first
	ListRuns(ctx context.Context, limit int) ([]*domain.IngestionRun, error)

	// RecordProcessingResult appends a processing result
	RecordProcessingResult(ctx context.Context, result *domain.ProcessingResult) error
	// ListProcessingResults lists results newest first, optionally for one processor
	ListProcessingResults(ctx context.Context, processorName string, limit int) ([]*domain.ProcessingResult, error)

	// SaveFilter inserts or overwrites a named filter
	SaveFilter(ctx context.Context, filter *schema.SavedFilter) error
	// GetFilter retrieves a named filter
	GetFilter(ctx context.Context, name string) (*schema.SavedFilter, error)
	// ListFilters lists saved filters ordered by name
	ListFilters(ctx context.Context) ([]*schema.SavedFilter, error)
	// DeleteFilter removes a named filter, reporting whether it existed
	DeleteFilter(ctx context.Context, name string) (bool, error)
	// CopyToFiltered materializes the alerts selected by a compiled filter into alerts_filtered
	CopyToFiltered(ctx context.Context, configHash, filterName, where string, args ...any) (int64, error)

	// GetStats summarizes the stored data
	GetStats(ctx context.Context) (*Stats, error)

	// GetSourceCursor retrieves the resume position of a source, empty when none was stored
	GetSourceCursor(ctx context.Context, source string) (string, error)
	// SetSourceCursor stores the resume position of a source
	SetSourceCursor(ctx context.Context, source string, cursor string) error
}

// RejectedRow describes one alert a batch write did not persist
type RejectedRow struct {
	// Index is the position of the alert in the written batch
	Index       int
	AlertID     int64
	DetectionID int64
	Reason      string
	// Err is the taxonomy error behind the rejection
	Err error
}

// WriteResult is the per-row outcome of a batch write
type WriteResult struct {
	Written  int
	Rejected []RejectedRow
}

// Duplicates counts the rejected rows that were duplicates of an existing or earlier row
func (r *WriteResult) Duplicates() int {
	n := 0
	for _, row := range r.Rejected {
		if row.Duplicate() {
			n++
		}
	}
	return n
}

// Duplicate reports whether the row was rejected because its detection is already stored or repeated in the batch
func (r RejectedRow) Duplicate() bool {
	return r.Reason == RejectReasonDuplicate || r.Reason == RejectReasonDuplicateInBatch
}

// Rejection reasons reported by WriteBatch
const (
	RejectReasonDuplicate        = "duplicate detection"
	RejectReasonDuplicateInBatch = "duplicate detection within batch"
	RejectReasonInvalid          = "invalid alert"
)

// Stats summarizes the stored data
type Stats struct {
	TableCounts            map[string]int64
	TotalAlerts            int64
	UniqueDetections       int64
	UniqueObjects          int64
	AssociatedAlerts       int64
	ReassociationAlerts    int64
	TrackedStates          int64
	MinMJD                 *float64
	MaxMJD                 *float64
	LastIngestedAt         *time.Time
	RunsByStatus           map[string]int64
	ProcessingResultsCount int64
	SavedFilters           int64
}
