package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/qualprob/internal/blend"
	"github.com/yourusername/qualprob/internal/logger"
	"github.com/yourusername/qualprob/internal/metrics"
	"github.com/yourusername/qualprob/internal/models"
	"github.com/yourusername/qualprob/internal/repository"
	"github.com/yourusername/qualprob/internal/standings"
)

// Trigger sources recorded in the run ledger.
const (
	TriggerScheduled = "scheduled"
	TriggerManual    = "manual"
)

// DefaultHostTeams returns the co-hosts of the 2026 tournament. Hosts
// hold automatic slots and never appear in a qualifying table, so the
// refresh seeds their rows when the source omits them.
func DefaultHostTeams() []string {
	return []string{"United States", "Canada", "Mexico"}
}

// RefreshConfig carries the run-level policy for probability updates.
type RefreshConfig struct {
	Environment  string
	DedupEnabled bool
	StaleAfter   time.Duration
	HostTeams    []string
}

// RefreshResult summarises one probability update: either the
// completed ledger entry, or the prior run that made this one
// redundant.
type RefreshResult struct {
	Run          *models.PredictionRun
	Deduplicated bool
	PriorRun     *models.PredictionRun
	Processed    int
	Failed       int
	Inserted     int
	Updated      int
}

// RefreshService runs the probability update pipeline: collect current
// standings, blend each row against the historical lookup table, and
// replace the probability table contents, with every execution recorded
// in the run ledger.
type RefreshService struct {
	collector    *standings.Collector
	lookup       *LookupProvider
	materializer *Materializer
	blender      *blend.Blender
	runs         repository.RunRepository
	cfg          RefreshConfig
	runLogger    *logger.RunLogger
	logger       *logrus.Logger
}

// NewRefreshService creates the probability update service.
func NewRefreshService(
	collector *standings.Collector,
	lookup *LookupProvider,
	materializer *Materializer,
	blender *blend.Blender,
	runs repository.RunRepository,
	cfg RefreshConfig,
	baseLogger *logrus.Logger,
) *RefreshService {
	if baseLogger == nil {
		baseLogger = logrus.New()
	}
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = 2 * time.Hour
	}
	if cfg.HostTeams == nil {
		cfg.HostTeams = DefaultHostTeams()
	}

	return &RefreshService{
		collector:    collector,
		lookup:       lookup,
		materializer: materializer,
		blender:      blender,
		runs:         runs,
		cfg:          cfg,
		runLogger:    logger.NewRunLogger(baseLogger),
		logger:       baseLogger,
	}
}

// Run executes one probability update. A batch identical to the last
// successful run is skipped without a new ledger entry when dedup is
// enabled. Row failures are recorded and skipped; only a collection
// that yields nothing at all, or a write failure, aborts the run.
func (s *RefreshService) Run(ctx context.Context, triggerSource string) (*RefreshResult, error) {
	batch, err := s.collector.Collect(ctx)
	if err != nil {
		return nil, fmt.Errorf("standings collection failed: %w", err)
	}

	rows, seededHosts := s.seedHosts(batch.Rows, batch.FetchedAt)
	inputHash := models.InputHash(rows)

	if s.cfg.DedupEnabled {
		prior, err := s.runs.GetLatestSuccessByInputHash(ctx, inputHash)
		switch {
		case err == nil:
			metrics.RecordDedupSkip()
			s.runLogger.LogRunDeduplicated(inputHash, prior.ID.String(), prior.StartedAt)
			return &RefreshResult{Deduplicated: true, PriorRun: prior}, nil
		case !errors.Is(err, models.ErrNotFound):
			return nil, fmt.Errorf("dedup check failed: %w", err)
		}
	}

	run := models.NewRun(models.JobTypeProbabilityUpdate, inputHash, s.cfg.Environment, triggerSource)
	if err := s.runs.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	s.runLogger.LogRunStarted(run.ID.String(), string(run.JobType), triggerSource, inputHash)

	warnings := batchWarnings(batch)

	// The lookup table is advisory: when it cannot be loaded the run
	// degrades to form-only blending instead of aborting.
	table, err := s.lookup.Table(ctx)
	if err != nil {
		s.logger.WithError(err).Warn("Lookup table unavailable, blending on form only")
		warnings = append(warnings, fmt.Sprintf("lookup table unavailable: %v", err))
		table = blend.NewTable(nil)
	}

	var (
		blended   []BlendedStanding
		rowErrors []*models.RowError
		qualified = make(map[models.Confederation]int)
	)
	for _, row := range rows {
		buckets := blend.BucketRow(row)
		hist := table.Lookup(row.Confederation, row.Stage, row.Rank, buckets)
		metrics.RecordLookupMatch(string(hist.Level))

		prob, err := s.blender.Blend(row, buckets, hist)
		if err != nil {
			rowErrors = append(rowErrors, models.NewRowError(row, err.Error()))
			s.runLogger.LogRowFailure(run.ID.String(), row.Team, string(row.Confederation), row.Group, err.Error())
			continue
		}

		metrics.RecordBlendedProbability(string(row.Confederation), prob)
		if row.Status == models.StatusQualified {
			qualified[row.Confederation]++
		}
		blended = append(blended, BlendedStanding{Row: row, Probability: prob})
	}

	processed := len(rows)
	failed := len(rowErrors)

	inserted, updated, err := s.materializer.Materialize(ctx, blended, time.Now().UTC())
	if err != nil {
		warnings = append(warnings, fmt.Sprintf("materialization failed: %v", err))
		s.completeRun(ctx, run, models.RunStatusFailed, processed, processed, 0, 0, batch.Counts, warnings, rowErrors, seededHosts)
		return nil, err
	}

	status := models.StatusFor(processed, failed)
	s.completeRun(ctx, run, status, processed, failed, inserted, updated, batch.Counts, warnings, rowErrors, seededHosts)

	metrics.UpdateTrackedTeams(float64(len(blended)))
	for _, confed := range models.AllConfederations() {
		metrics.UpdateQualifiedTeams(string(confed), float64(qualified[confed]))
	}

	return &RefreshResult{
		Run:       run,
		Processed: processed,
		Failed:    failed,
		Inserted:  inserted,
		Updated:   updated,
	}, nil
}

// completeRun stamps the terminal state and diagnostics onto the ledger
// entry and persists it.
func (s *RefreshService) completeRun(
	ctx context.Context,
	run *models.PredictionRun,
	status models.RunStatus,
	processed, failed, inserted, updated int,
	counts map[string]int,
	warnings []string,
	rowErrors []*models.RowError,
	seededHosts int,
) {
	run.RecordsProcessed = processed
	run.RecordsFailed = failed
	run.RecordsInserted = inserted
	run.RecordsUpdated = updated
	if seededHosts > 0 {
		run.Notes = fmt.Sprintf("seeded %d host team(s)", seededHosts)
	}

	if err := run.SetConfederationCounts(counts); err != nil {
		s.logger.WithError(err).Warn("Failed to encode confederation counts")
	}
	if err := run.SetWarnings(warnings); err != nil {
		s.logger.WithError(err).Warn("Failed to encode run warnings")
	}
	if err := run.SetErrorDetails(rowErrors); err != nil {
		s.logger.WithError(err).Warn("Failed to encode run error details")
	}

	finalizeRun(ctx, s.runs, s.runLogger, s.logger, run, status)
}

// seedHosts appends rows for host nations missing from the collected
// standings. All three 2026 co-hosts are CONCACAF members, mirrored in
// the seeded confederation.
func (s *RefreshService) seedHosts(rows []models.StandingRow, fetchedAt time.Time) ([]models.StandingRow, int) {
	if len(s.cfg.HostTeams) == 0 {
		return rows, 0
	}

	present := make(map[string]bool, len(rows))
	for _, r := range rows {
		present[r.Team] = true
	}

	seeded := 0
	for _, host := range s.cfg.HostTeams {
		if present[host] {
			continue
		}
		rows = append(rows, hostRow(host, fetchedAt))
		seeded++
	}
	return rows, seeded
}

func hostRow(team string, fetchedAt time.Time) models.StandingRow {
	return models.StandingRow{
		Team:          team,
		Confederation: models.ConfederationCONCACAF,
		Group:         "Host",
		Status:        models.StatusQualified,
		FetchedAt:     fetchedAt,
	}
}

// batchWarnings converts per-confederation collection failures into
// ledger warning strings.
func batchWarnings(batch *standings.Batch) []string {
	var warnings []string
	for _, confed := range batch.FailedConfederations() {
		warnings = append(warnings, fmt.Sprintf("%s standings fetch failed: %s", confed, batch.Failed[confed]))
	}
	return warnings
}

// ReconcileStaleRuns marks runs stuck in the running state beyond the
// stale threshold as failed. Crashed processes leave such rows behind;
// nothing else ever finishes them.
func (s *RefreshService) ReconcileStaleRuns(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(-s.cfg.StaleAfter)
	count, err := s.runs.MarkStaleRunsFailed(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep stale runs: %w", err)
	}
	if count > 0 {
		metrics.RecordStaleRunsSwept(count)
		s.runLogger.LogStaleRunsSwept(count, s.cfg.StaleAfter)
	}
	return count, nil
}
