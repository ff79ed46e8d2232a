package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/qualprob/internal/logger"
	"github.com/yourusername/qualprob/internal/metrics"
	"github.com/yourusername/qualprob/internal/models"
	"github.com/yourusername/qualprob/internal/repository"
)

// RebuildResult summarises one lookup rebuild run.
type RebuildResult struct {
	Run           *models.PredictionRun
	RankEntries   int
	BucketEntries int
}

// Total returns the number of lookup entries written.
func (r *RebuildResult) Total() int {
	return r.RankEntries + r.BucketEntries
}

// LookupRebuildService recomputes the historical probability lookup
// from the standings archive: qualification rates aggregated at exact
// rank and at (rank bucket, ppg bucket) granularity, swapped in as one
// atomic replacement.
type LookupRebuildService struct {
	archive     repository.HistoricalStandingRepository
	lookup      repository.LookupRepository
	runs        repository.RunRepository
	provider    *LookupProvider
	environment string
	runLogger   *logger.RunLogger
	logger      *logrus.Logger
}

// NewLookupRebuildService creates the rebuild service. The provider is
// flushed after each successful rebuild so readers pick up the new
// table; nil is allowed for one-shot invocations with no live readers.
func NewLookupRebuildService(
	archive repository.HistoricalStandingRepository,
	lookup repository.LookupRepository,
	runs repository.RunRepository,
	provider *LookupProvider,
	environment string,
	baseLogger *logrus.Logger,
) *LookupRebuildService {
	if baseLogger == nil {
		baseLogger = logrus.New()
	}
	if environment == "" {
		environment = "development"
	}

	return &LookupRebuildService{
		archive:     archive,
		lookup:      lookup,
		runs:        runs,
		provider:    provider,
		environment: environment,
		runLogger:   logger.NewRunLogger(baseLogger),
		logger:      baseLogger,
	}
}

// Run recomputes and replaces the lookup table. An empty archive fails
// the run rather than silently replacing the table with nothing.
func (s *LookupRebuildService) Run(ctx context.Context, triggerSource string) (*RebuildResult, error) {
	inputHash, err := s.archiveFingerprint(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fingerprint archive: %w", err)
	}

	run := models.NewRun(models.JobTypeLookupRebuild, inputHash, s.environment, triggerSource)
	if err := s.runs.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	s.runLogger.LogRunStarted(run.ID.String(), string(run.JobType), triggerSource, inputHash)

	rankEntries, err := s.archive.AggregateRankLevel(ctx)
	if err != nil {
		s.abortRun(ctx, run, fmt.Sprintf("rank-level aggregation failed: %v", err))
		return nil, fmt.Errorf("rank-level aggregation failed: %w", err)
	}

	bucketEntries, err := s.archive.AggregateBucketLevel(ctx)
	if err != nil {
		s.abortRun(ctx, run, fmt.Sprintf("bucket-level aggregation failed: %v", err))
		return nil, fmt.Errorf("bucket-level aggregation failed: %w", err)
	}

	entries := make([]*models.HistoricalProbabilityEntry, 0, len(rankEntries)+len(bucketEntries))
	entries = append(entries, rankEntries...)
	entries = append(entries, bucketEntries...)

	if len(entries) == 0 {
		s.abortRun(ctx, run, "standings archive is empty")
		return nil, fmt.Errorf("standings archive is empty, nothing to rebuild")
	}

	if err := s.lookup.ReplaceAll(ctx, entries); err != nil {
		s.abortRun(ctx, run, fmt.Sprintf("lookup replacement failed: %v", err))
		return nil, fmt.Errorf("failed to replace lookup table: %w", err)
	}

	if s.provider != nil {
		s.provider.Flush()
	}
	metrics.UpdateLookupTableEntries(float64(len(entries)))

	run.RecordsProcessed = len(entries)
	run.RecordsInserted = len(entries)
	s.setCounts(run, entries)
	finalizeRun(ctx, s.runs, s.runLogger, s.logger, run, models.StatusFor(len(entries), 0))

	s.logger.WithFields(logrus.Fields{
		"rank_entries":   len(rankEntries),
		"bucket_entries": len(bucketEntries),
	}).Info("Lookup table rebuilt")

	return &RebuildResult{
		Run:           run,
		RankEntries:   len(rankEntries),
		BucketEntries: len(bucketEntries),
	}, nil
}

// archiveFingerprint hashes the archive's per-season row counts. It
// identifies what the rebuild ran against; rebuilds are never
// dedup-skipped on it, because counts alone cannot prove the archive
// rows themselves are unchanged.
func (s *LookupRebuildService) archiveFingerprint(ctx context.Context) (string, error) {
	bySeason, err := s.archive.CountBySeason(ctx)
	if err != nil {
		return "", err
	}
	params := make(map[string]string, len(bySeason))
	for season, count := range bySeason {
		params["season_"+strconv.Itoa(season)] = strconv.Itoa(count)
	}
	return models.ParamsHash(params), nil
}

func (s *LookupRebuildService) abortRun(ctx context.Context, run *models.PredictionRun, reason string) {
	run.Notes = reason
	finalizeRun(ctx, s.runs, s.runLogger, s.logger, run, models.RunStatusFailed)
}

func (s *LookupRebuildService) setCounts(run *models.PredictionRun, entries []*models.HistoricalProbabilityEntry) {
	counts := make(map[string]int)
	for _, e := range entries {
		counts[string(e.Confederation)]++
	}
	if err := run.SetConfederationCounts(counts); err != nil {
		s.logger.WithError(err).Warn("Failed to encode confederation counts")
	}
}
