package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/qualprob/internal/logger"
	"github.com/yourusername/qualprob/internal/metrics"
	"github.com/yourusername/qualprob/internal/models"
	"github.com/yourusername/qualprob/internal/repository"
)

// finalizeRun transitions a run to its terminal status, persists it,
// and emits the ledger log line and metrics. Callers stamp the record
// counters and diagnostics first. Persistence failures are logged, not
// propagated: the pipeline outcome stands even if the ledger write is
// lost.
func finalizeRun(
	ctx context.Context,
	repo repository.RunRepository,
	runLogger *logger.RunLogger,
	appLogger *logrus.Logger,
	run *models.PredictionRun,
	status models.RunStatus,
) {
	if err := run.Complete(status, time.Now().UTC()); err != nil {
		appLogger.WithError(err).Error("Failed to transition run to terminal status")
		return
	}
	if err := repo.Update(ctx, run); err != nil {
		appLogger.WithError(err).Error("Failed to persist run completion")
	}

	runLogger.LogRunCompleted(
		run.ID.String(), string(run.JobType), string(run.Status),
		run.RecordsProcessed, run.RecordsFailed,
		run.RecordsInserted, run.RecordsUpdated,
		run.ExecutionTimeSeconds,
	)
	metrics.RecordRunCompleted(string(run.JobType), string(run.Status), run.ExecutionTimeSeconds)
	metrics.RecordRowOutcomes(string(run.JobType), run.RecordsProcessed, run.RecordsFailed)
}
