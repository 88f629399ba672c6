package domain

import "time"

// RunStatus is the lifecycle state of an ingestion run
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// IngestionRun records one invocation of the ingestion pipeline
type IngestionRun struct {
	RunID       string
	SourceName  string
	StartedAt   time.Time
	CompletedAt *time.Time
	Status      RunStatus

	AlertsFetched          int64
	AlertsIngested         int64
	AlertsRejected         int64
	Duplicates             int64
	NewSources             int64
	ReassociationsDetected int64
	BatchesWritten         int64

	ErrorMessage *string
	Metadata     map[string]any
}

// RunStats are the counters a run is finalized with
type RunStats struct {
	AlertsFetched          int64
	AlertsIngested         int64
	AlertsRejected         int64
	Duplicates             int64
	NewSources             int64
	ReassociationsDetected int64
	BatchesWritten         int64
}

// Stats returns the counters of the run
func (r *IngestionRun) Stats() RunStats {
	return RunStats{
		AlertsFetched:          r.AlertsFetched,
		AlertsIngested:         r.AlertsIngested,
		AlertsRejected:         r.AlertsRejected,
		Duplicates:             r.Duplicates,
		NewSources:             r.NewSources,
		ReassociationsDetected: r.ReassociationsDetected,
		BatchesWritten:         r.BatchesWritten,
	}
}

// Apply copies counters onto the run
func (r *IngestionRun) Apply(stats RunStats) {
	r.AlertsFetched = stats.AlertsFetched
	r.AlertsIngested = stats.AlertsIngested
	r.AlertsRejected = stats.AlertsRejected
	r.Duplicates = stats.Duplicates
	r.NewSources = stats.NewSources
	r.ReassociationsDetected = stats.ReassociationsDetected
	r.BatchesWritten = stats.BatchesWritten
}

// Finish marks the run as ended with the given status at the given time
func (r *IngestionRun) Finish(status RunStatus, at time.Time, err error) {
	r.Status = status
	r.CompletedAt = &at
	if err != nil {
		msg := err.Error()
		r.ErrorMessage = &msg
	}
}

// Duration returns the wall time of a finished run, or zero while it is running
func (r *IngestionRun) Duration() time.Duration {
	if r.CompletedAt == nil {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}

// ProcessingRate returns ingested alerts per second
func (r *IngestionRun) ProcessingRate() float64 {
	seconds := r.Duration().Seconds()
	if seconds <= 0 {
		return 0
	}
	return float64(r.AlertsIngested) / seconds
}

// SuccessRate returns the share of fetched alerts that were ingested
func (r *IngestionRun) SuccessRate() float64 {
	if r.AlertsFetched == 0 {
		return 0
	}
	return float64(r.AlertsIngested) / float64(r.AlertsFetched)
}
