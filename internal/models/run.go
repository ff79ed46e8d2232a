package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RunStatus is the state of one audited batch execution. "running" is
// the only non-terminal state; a run that leaves it never changes
// status again.
type RunStatus string

const (
	RunStatusRunning RunStatus = "running"
	RunStatusSuccess RunStatus = "success"
	RunStatusPartial RunStatus = "partial"
	RunStatusFailed  RunStatus = "failed"
)

// IsTerminal reports whether the status is final.
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusSuccess || s == RunStatusPartial || s == RunStatusFailed
}

// JobType names the kind of batch a run executed.
type JobType string

const (
	JobTypeProbabilityUpdate JobType = "probability_update"
	JobTypeHistoricalFetch   JobType = "historical_fetch"
	JobTypeLookupRebuild     JobType = "lookup_rebuild"
)

// ParseJobType normalizes a raw job type name into a JobType.
func ParseJobType(s string) (JobType, error) {
	j := JobType(strings.ToLower(strings.TrimSpace(s)))
	switch j {
	case JobTypeProbabilityUpdate, JobTypeHistoricalFetch, JobTypeLookupRebuild:
		return j, nil
	}
	return "", fmt.Errorf("%w: unknown job type %q", ErrInvalidInput, s)
}

// PredictionRun is one ledger entry: a single audited execution of a
// batch job. Rows are append-only; a run is created in "running",
// mutated only by its owning process, and kept forever once terminal.
type PredictionRun struct {
	ID                   uuid.UUID       `db:"id" json:"id"`
	JobType              JobType         `db:"job_type" json:"job_type" validate:"required"`
	Status               RunStatus       `db:"status" json:"status" validate:"required,oneof=running success partial failed"`
	RecordsProcessed     int             `db:"records_processed" json:"records_processed"`
	RecordsInserted      int             `db:"records_inserted" json:"records_inserted"`
	RecordsUpdated       int             `db:"records_updated" json:"records_updated"`
	RecordsFailed        int             `db:"records_failed" json:"records_failed"`
	ConfederationCounts  json.RawMessage `db:"confederation_counts" json:"confederation_counts,omitempty"`
	Warnings             json.RawMessage `db:"warnings" json:"warnings,omitempty"`
	ErrorDetails         json.RawMessage `db:"error_details" json:"error_details,omitempty"`
	InputHash            string          `db:"input_hash" json:"input_hash"`
	Environment          string          `db:"environment" json:"environment"`
	TriggerSource        string          `db:"trigger_source" json:"trigger_source"`
	Notes                string          `db:"notes" json:"notes,omitempty"`
	ExecutionTimeSeconds float64         `db:"execution_time_seconds" json:"execution_time_seconds"`
	StartedAt            time.Time       `db:"started_at" json:"started_at"`
	CompletedAt          *time.Time      `db:"completed_at" json:"completed_at"`
}

// NewRun creates a ledger entry in the running state.
func NewRun(jobType JobType, inputHash, environment, triggerSource string) *PredictionRun {
	return &PredictionRun{
		ID:            uuid.New(),
		JobType:       jobType,
		Status:        RunStatusRunning,
		InputHash:     inputHash,
		Environment:   environment,
		TriggerSource: triggerSource,
		StartedAt:     time.Now().UTC(),
	}
}

// StatusFor derives the terminal status from row counts: success when
// nothing failed, failed when everything did (or nothing was processed
// because the batch aborted), partial in between.
func StatusFor(processed, failed int) RunStatus {
	switch {
	case processed == 0 && failed == 0:
		return RunStatusFailed
	case failed == 0:
		return RunStatusSuccess
	case failed >= processed:
		return RunStatusFailed
	default:
		return RunStatusPartial
	}
}

// Complete transitions the run to its terminal status and stamps
// timing fields. Returns ErrRunTerminal if the run already finished.
func (r *PredictionRun) Complete(status RunStatus, at time.Time) error {
	if r.Status.IsTerminal() {
		return ErrRunTerminal
	}
	r.Status = status
	completed := at.UTC()
	r.CompletedAt = &completed
	r.ExecutionTimeSeconds = completed.Sub(r.StartedAt).Seconds()
	return nil
}

// Duration returns wall-clock run time, zero while still running.
func (r *PredictionRun) Duration() time.Duration {
	if r.CompletedAt == nil {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}

// SetConfederationCounts stores the per-confederation processed-row
// counts diagnostic payload.
func (r *PredictionRun) SetConfederationCounts(counts map[string]int) error {
	raw, err := json.Marshal(counts)
	if err != nil {
		return err
	}
	r.ConfederationCounts = raw
	return nil
}

// GetConfederationCounts decodes the per-confederation counts, or an
// empty map when none were recorded.
func (r *PredictionRun) GetConfederationCounts() (map[string]int, error) {
	counts := make(map[string]int)
	if len(r.ConfederationCounts) == 0 {
		return counts, nil
	}
	if err := json.Unmarshal(r.ConfederationCounts, &counts); err != nil {
		return nil, err
	}
	return counts, nil
}

// SetWarnings stores free-form warning strings.
func (r *PredictionRun) SetWarnings(warnings []string) error {
	if len(warnings) == 0 {
		r.Warnings = nil
		return nil
	}
	raw, err := json.Marshal(warnings)
	if err != nil {
		return err
	}
	r.Warnings = raw
	return nil
}

// SetErrorDetails stores the per-row failure records.
func (r *PredictionRun) SetErrorDetails(rowErrors []*RowError) error {
	if len(rowErrors) == 0 {
		r.ErrorDetails = nil
		return nil
	}
	raw, err := json.Marshal(rowErrors)
	if err != nil {
		return err
	}
	r.ErrorDetails = raw
	return nil
}
