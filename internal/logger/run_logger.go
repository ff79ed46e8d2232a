// Package logger provides run ledger logging.
package logger

import (
	"time"

	"github.com/sirupsen/logrus"
)

// RunLogger provides dedicated logging for the run ledger: every state
// transition of a batch run lands in the log as well as the database.
type RunLogger struct {
	*logrus.Entry
}

// NewRunLogger creates a new run logger.
func NewRunLogger(baseLogger *logrus.Logger) *RunLogger {
	return &RunLogger{
		Entry: baseLogger.WithField("component", "runs"),
	}
}

// LogRunStarted logs the creation of a ledger entry.
func (rl *RunLogger) LogRunStarted(runID, jobType, triggerSource, inputHash string) {
	rl.WithFields(logrus.Fields{
		"run_id":         runID,
		"job_type":       jobType,
		"trigger_source": triggerSource,
		"input_hash":     inputHash,
	}).Info("Run started")
}

// LogRunCompleted logs a terminal transition with its outcome counters.
func (rl *RunLogger) LogRunCompleted(runID, jobType, status string, processed, failed, inserted, updated int, executionSeconds float64) {
	rl.WithFields(logrus.Fields{
		"run_id":            runID,
		"job_type":          jobType,
		"status":            status,
		"records_processed": processed,
		"records_failed":    failed,
		"records_inserted":  inserted,
		"records_updated":   updated,
		"execution_seconds": executionSeconds,
	}).Info("Run completed")
}

// LogRunDeduplicated logs a skipped run whose input hash matched a
// prior successful run.
func (rl *RunLogger) LogRunDeduplicated(inputHash, priorRunID string, priorStartedAt time.Time) {
	rl.WithFields(logrus.Fields{
		"input_hash":       inputHash,
		"prior_run_id":     priorRunID,
		"prior_started_at": priorStartedAt.Unix(),
	}).Info("Run skipped, identical input already processed")
}

// LogRowFailure logs one rejected row within a run.
func (rl *RunLogger) LogRowFailure(runID, team, confederation, group, reason string) {
	rl.WithFields(logrus.Fields{
		"run_id":        runID,
		"team":          team,
		"confederation": confederation,
		"group":         group,
		"reason":        reason,
	}).Warn("Row rejected")
}

// LogStaleRunsSwept logs the reconciliation of runs stuck in the
// running state past the threshold.
func (rl *RunLogger) LogStaleRunsSwept(count int, threshold time.Duration) {
	rl.WithFields(logrus.Fields{
		"runs_failed": count,
		"threshold":   threshold.String(),
	}).Warn("Stale running runs marked failed")
}
