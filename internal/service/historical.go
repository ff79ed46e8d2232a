package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/qualprob/internal/blend"
	"github.com/yourusername/qualprob/internal/logger"
	"github.com/yourusername/qualprob/internal/models"
	"github.com/yourusername/qualprob/internal/repository"
	"github.com/yourusername/qualprob/internal/standings"
)

// ArchiveSource fetches one confederation's standings for a past
// qualifying cycle.
type ArchiveSource interface {
	FetchSeason(ctx context.Context, confederation models.Confederation, season int) (*standings.ConfederationStandings, error)
	Confederations() []models.Confederation
	Name() string
}

// HistoricalConfig carries the archive fetch policy.
type HistoricalConfig struct {
	SeasonFrom  int
	SeasonTo    int
	Environment string
}

// HistoricalResult summarises one archive fetch run.
type HistoricalResult struct {
	Run      *models.PredictionRun
	Seasons  []int
	Rows     int
	Upserted int
}

// HistoricalService fetches past qualifying cycles season by season and
// archives each team-season line with its derived buckets, so lookup
// rebuilds never re-bucket old rows under newer edges.
type HistoricalService struct {
	source    ArchiveSource
	archive   repository.HistoricalStandingRepository
	runs      repository.RunRepository
	cfg       HistoricalConfig
	runLogger *logger.RunLogger
	logger    *logrus.Logger
}

// NewHistoricalService creates the archive fetch service.
func NewHistoricalService(
	source ArchiveSource,
	archive repository.HistoricalStandingRepository,
	runs repository.RunRepository,
	cfg HistoricalConfig,
	baseLogger *logrus.Logger,
) *HistoricalService {
	if baseLogger == nil {
		baseLogger = logrus.New()
	}
	if cfg.SeasonFrom == 0 {
		cfg.SeasonFrom = 1990
	}
	if cfg.SeasonTo == 0 {
		cfg.SeasonTo = 2025
	}
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	return &HistoricalService{
		source:    source,
		archive:   archive,
		runs:      runs,
		cfg:       cfg,
		runLogger: logger.NewRunLogger(baseLogger),
		logger:    baseLogger,
	}
}

// Run fetches the given seasons, or the configured range when none are
// passed, and upserts every collected line into the archive. A season
// the source has no data for just contributes zero rows; the run only
// fails when nothing at all was collected. Archive fetches are never
// deduplicated: the same parameters can legitimately return new data.
func (s *HistoricalService) Run(ctx context.Context, triggerSource string, seasons []int) (*HistoricalResult, error) {
	if len(seasons) == 0 {
		seasons = seasonRange(s.cfg.SeasonFrom, s.cfg.SeasonTo)
	} else {
		seasons = normalizeSeasons(seasons)
	}
	if len(seasons) == 0 {
		return nil, fmt.Errorf("%w: no seasons to fetch", models.ErrInvalidInput)
	}

	inputHash := models.ParamsHash(map[string]string{
		"source":  s.source.Name(),
		"seasons": joinSeasons(seasons),
	})

	run := models.NewRun(models.JobTypeHistoricalFetch, inputHash, s.cfg.Environment, triggerSource)
	if err := s.runs.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	s.runLogger.LogRunStarted(run.ID.String(), string(run.JobType), triggerSource, inputHash)

	var (
		archived []*models.HistoricalStanding
		warnings []string
		counts   = make(map[string]int)
	)

	for _, season := range seasons {
		if err := ctx.Err(); err != nil {
			s.abortRun(ctx, run, counts, warnings, fmt.Sprintf("aborted at season %d: %v", season, err))
			return nil, fmt.Errorf("historical fetch aborted: %w", err)
		}

		seasonRows := 0
		for _, confed := range s.source.Confederations() {
			cs, err := s.source.FetchSeason(ctx, confed, season)
			if err != nil {
				warnings = append(warnings, fmt.Sprintf("season %d %s fetch failed: %v", season, confed, err))
				continue
			}
			for _, row := range cs.Rows {
				archived = append(archived, toHistorical(season, row))
				counts[string(confed)]++
				seasonRows++
			}
		}

		s.logger.WithFields(logrus.Fields{
			"season": season,
			"rows":   seasonRows,
		}).Info("Season archived")
	}

	if len(archived) == 0 {
		s.abortRun(ctx, run, counts, warnings, "no historical standings collected")
		return nil, fmt.Errorf("no historical standings collected for seasons %d-%d", seasons[0], seasons[len(seasons)-1])
	}

	upserted, err := s.archive.UpsertBatch(ctx, archived)
	if err != nil {
		s.abortRun(ctx, run, counts, warnings, fmt.Sprintf("archive write failed: %v", err))
		return nil, fmt.Errorf("failed to archive historical standings: %w", err)
	}

	run.RecordsProcessed = len(archived)
	run.RecordsInserted = upserted
	s.setDiagnostics(run, counts, warnings)
	finalizeRun(ctx, s.runs, s.runLogger, s.logger, run, models.StatusFor(len(archived), 0))

	return &HistoricalResult{
		Run:      run,
		Seasons:  seasons,
		Rows:     len(archived),
		Upserted: upserted,
	}, nil
}

func (s *HistoricalService) abortRun(ctx context.Context, run *models.PredictionRun, counts map[string]int, warnings []string, reason string) {
	run.Notes = reason
	s.setDiagnostics(run, counts, warnings)
	finalizeRun(ctx, s.runs, s.runLogger, s.logger, run, models.RunStatusFailed)
}

func (s *HistoricalService) setDiagnostics(run *models.PredictionRun, counts map[string]int, warnings []string) {
	if err := run.SetConfederationCounts(counts); err != nil {
		s.logger.WithError(err).Warn("Failed to encode confederation counts")
	}
	if err := run.SetWarnings(warnings); err != nil {
		s.logger.WithError(err).Warn("Failed to encode run warnings")
	}
}

// toHistorical converts a fetched standing row into its archive form,
// deriving the buckets at capture time.
func toHistorical(season int, row models.StandingRow) *models.HistoricalStanding {
	return &models.HistoricalStanding{
		Season:         season,
		Confederation:  row.Confederation,
		Stage:          row.Stage,
		Team:           row.Team,
		Rank:           row.Rank,
		GamesPlayed:    row.GamesPlayed,
		Wins:           row.Wins,
		Draws:          row.Draws,
		Losses:         row.Losses,
		GoalsFor:       row.GoalsFor,
		GoalsAgainst:   row.GoalsAgainst,
		GoalDifference: row.GoalDifference,
		Points:         row.Points,
		Qualified:      row.Status == models.StatusQualified,
		RankBucket:     blend.RankBucket(row.Rank),
		PPGBucket:      blend.PPGBucket(row.Points, row.GamesPlayed),
		GoalDiffBucket: blend.GoalDiffBucket(row.GoalDifference),
		FetchedAt:      row.FetchedAt,
	}
}

func seasonRange(from, to int) []int {
	if from > to {
		from, to = to, from
	}
	seasons := make([]int, 0, to-from+1)
	for s := from; s <= to; s++ {
		seasons = append(seasons, s)
	}
	return seasons
}

func normalizeSeasons(seasons []int) []int {
	seen := make(map[int]bool, len(seasons))
	out := make([]int, 0, len(seasons))
	for _, s := range seasons {
		if s <= 0 || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	sort.Ints(out)
	return out
}

func joinSeasons(seasons []int) string {
	parts := make([]string, len(seasons))
	for i, s := range seasons {
		parts[i] = strconv.Itoa(s)
	}
	return strings.Join(parts, ",")
}
