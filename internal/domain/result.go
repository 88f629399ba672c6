package domain

import "time"

// ResultStatus is the outcome of one processor execution
type ResultStatus string

const (
	ResultStatusSuccess ResultStatus = "success"
	ResultStatusFailed  ResultStatus = "failed"
	ResultStatusSkipped ResultStatus = "skipped"
)

// ProcessingResult is the output of one processor run. It is appended to the store and never mutated.
type ProcessingResult struct {
	ID               uint64
	PassID           string
	ProcessorName    string
	ProcessorVersion string
	Records          []map[string]any
	Summary          string
	Status           ResultStatus
	ErrorMessage     *string
	WindowStartMJD   *float64
	WindowEndMJD     *float64
	Metadata         map[string]any
	ProcessedAt      time.Time
}
