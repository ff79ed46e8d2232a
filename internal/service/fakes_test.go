package service

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/qualprob/internal/models"
	"github.com/yourusername/qualprob/internal/repository"
	"github.com/yourusername/qualprob/internal/standings"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func intPtr(v int) *int { return &v }

func inProgressRow(team string, confed models.Confederation, stage, group string, rank, points, played, goalDiff int) models.StandingRow {
	wins := points / 3
	return models.StandingRow{
		Team:           team,
		Confederation:  confed,
		Stage:          stage,
		Group:          group,
		Rank:           intPtr(rank),
		GamesPlayed:    played,
		Wins:           wins,
		Draws:          points - wins*3,
		Losses:         played - wins - (points - wins*3),
		GoalDifference: goalDiff,
		Points:         points,
		Status:         models.StatusInProgress,
	}
}

func rankEntry(confed models.Confederation, stage string, rank int, prob float64) *models.HistoricalProbabilityEntry {
	return &models.HistoricalProbabilityEntry{
		Confederation: confed,
		Stage:         stage,
		LookupLevel:   models.LookupLevelRank,
		Rank:          intPtr(rank),
		PPGBucket:     models.PPGBucketAll,
		QualProb:      decimal.NewFromFloat(prob),
	}
}

func bucketEntry(confed models.Confederation, stage, rankBucket, ppgBucket string, prob float64) *models.HistoricalProbabilityEntry {
	return &models.HistoricalProbabilityEntry{
		Confederation: confed,
		Stage:         stage,
		LookupLevel:   models.LookupLevelBucket,
		RankBucket:    rankBucket,
		PPGBucket:     ppgBucket,
		QualProb:      decimal.NewFromFloat(prob),
	}
}

type fakeRunRepo struct {
	runs      map[uuid.UUID]*models.PredictionRun
	created   []uuid.UUID
	staleErr  error
	staleHits int
}

func newFakeRunRepo() *fakeRunRepo {
	return &fakeRunRepo{runs: make(map[uuid.UUID]*models.PredictionRun)}
}

func (r *fakeRunRepo) Create(ctx context.Context, run *models.PredictionRun) error {
	copied := *run
	r.runs[run.ID] = &copied
	r.created = append(r.created, run.ID)
	return nil
}

func (r *fakeRunRepo) Update(ctx context.Context, run *models.PredictionRun) error {
	copied := *run
	r.runs[run.ID] = &copied
	return nil
}

func (r *fakeRunRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.PredictionRun, error) {
	run, ok := r.runs[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return run, nil
}

func (r *fakeRunRepo) GetRecent(ctx context.Context, jobType models.JobType, limit int) ([]*models.PredictionRun, error) {
	var out []*models.PredictionRun
	for _, run := range r.runs {
		if jobType == "" || run.JobType == jobType {
			out = append(out, run)
		}
	}
	return out, nil
}

func (r *fakeRunRepo) GetLatestSuccessByInputHash(ctx context.Context, inputHash string) (*models.PredictionRun, error) {
	var latest *models.PredictionRun
	for _, run := range r.runs {
		if run.InputHash != inputHash || run.Status != models.RunStatusSuccess {
			continue
		}
		if latest == nil || run.StartedAt.After(latest.StartedAt) {
			latest = run
		}
	}
	if latest == nil {
		return nil, models.ErrNotFound
	}
	return latest, nil
}

func (r *fakeRunRepo) MarkStaleRunsFailed(ctx context.Context, olderThan time.Time) (int, error) {
	if r.staleErr != nil {
		return 0, r.staleErr
	}
	swept := 0
	for _, run := range r.runs {
		if run.Status == models.RunStatusRunning && run.StartedAt.Before(olderThan) {
			run.Status = models.RunStatusFailed
			swept++
		}
	}
	r.staleHits++
	return swept, nil
}

type fakeProbRepo struct {
	byKey     map[string]*models.TeamSlotProbability
	upsertErr error
}

func newFakeProbRepo() *fakeProbRepo {
	return &fakeProbRepo{byKey: make(map[string]*models.TeamSlotProbability)}
}

func (r *fakeProbRepo) UpsertBatch(ctx context.Context, probs []*models.TeamSlotProbability) (int, int, error) {
	if r.upsertErr != nil {
		return 0, 0, r.upsertErr
	}
	inserted, updated := 0, 0
	for _, p := range probs {
		if _, ok := r.byKey[p.Key()]; ok {
			updated++
		} else {
			inserted++
		}
		r.byKey[p.Key()] = p
	}
	return inserted, updated, nil
}

func (r *fakeProbRepo) GetByKey(ctx context.Context, team string, confederation models.Confederation, group string) (*models.TeamSlotProbability, error) {
	p, ok := r.byKey[team+"|"+string(confederation)+"|"+group]
	if !ok {
		return nil, models.ErrNotFound
	}
	return p, nil
}

func (r *fakeProbRepo) List(ctx context.Context, filter repository.ProbabilityFilter) ([]*models.TeamSlotProbability, error) {
	var out []*models.TeamSlotProbability
	for _, p := range r.byKey {
		out = append(out, p)
	}
	return out, nil
}

func (r *fakeProbRepo) Stats(ctx context.Context) (*models.TeamStats, error) {
	return &models.TeamStats{TotalTeams: len(r.byKey)}, nil
}

func (r *fakeProbRepo) LatestUpdateTime(ctx context.Context) (*time.Time, error) {
	return nil, nil
}

type fakeLookupRepo struct {
	entries    []*models.HistoricalProbabilityEntry
	listCalls  int
	listErr    error
	replaceErr error
}

func (r *fakeLookupRepo) ReplaceAll(ctx context.Context, entries []*models.HistoricalProbabilityEntry) error {
	if r.replaceErr != nil {
		return r.replaceErr
	}
	r.entries = entries
	return nil
}

func (r *fakeLookupRepo) ListAll(ctx context.Context) ([]*models.HistoricalProbabilityEntry, error) {
	r.listCalls++
	if r.listErr != nil {
		return nil, r.listErr
	}
	return r.entries, nil
}

func (r *fakeLookupRepo) Count(ctx context.Context) (int, error) {
	return len(r.entries), nil
}

type fakeArchiveRepo struct {
	rows      []*models.HistoricalStanding
	rankAgg   []*models.HistoricalProbabilityEntry
	bucketAgg []*models.HistoricalProbabilityEntry
	upsertErr error
	aggErr    error
}

func (r *fakeArchiveRepo) UpsertBatch(ctx context.Context, rows []*models.HistoricalStanding) (int, error) {
	if r.upsertErr != nil {
		return 0, r.upsertErr
	}
	r.rows = append(r.rows, rows...)
	return len(rows), nil
}

func (r *fakeArchiveRepo) CountBySeason(ctx context.Context) (map[int]int, error) {
	counts := make(map[int]int)
	for _, row := range r.rows {
		counts[row.Season]++
	}
	return counts, nil
}

func (r *fakeArchiveRepo) AggregateRankLevel(ctx context.Context) ([]*models.HistoricalProbabilityEntry, error) {
	if r.aggErr != nil {
		return nil, r.aggErr
	}
	return r.rankAgg, nil
}

func (r *fakeArchiveRepo) AggregateBucketLevel(ctx context.Context) ([]*models.HistoricalProbabilityEntry, error) {
	if r.aggErr != nil {
		return nil, r.aggErr
	}
	return r.bucketAgg, nil
}

// fakeSource serves canned current standings per confederation.
type fakeSource struct {
	covered []models.Confederation
	rows    map[models.Confederation][]models.StandingRow
	errs    map[models.Confederation]error
}

func (f *fakeSource) FetchStandings(ctx context.Context, confederation models.Confederation) (*standings.ConfederationStandings, error) {
	if err := f.errs[confederation]; err != nil {
		return nil, err
	}
	return &standings.ConfederationStandings{
		Confederation: confederation,
		Rows:          f.rows[confederation],
		Checksum:      "checksum-" + string(confederation),
		FetchedAt:     time.Now().UTC(),
	}, nil
}

func (f *fakeSource) Confederations() []models.Confederation { return f.covered }

func (f *fakeSource) Name() string { return "fake" }

// fakeSeasonSource serves canned archive standings per (season,
// confederation) pair.
type fakeSeasonSource struct {
	covered []models.Confederation
	rows    map[int]map[models.Confederation][]models.StandingRow
	errs    map[int]map[models.Confederation]error
}

func (f *fakeSeasonSource) FetchSeason(ctx context.Context, confederation models.Confederation, season int) (*standings.ConfederationStandings, error) {
	if byConfed, ok := f.errs[season]; ok {
		if err := byConfed[confederation]; err != nil {
			return nil, err
		}
	}
	return &standings.ConfederationStandings{
		Confederation: confederation,
		Rows:          f.rows[season][confederation],
		FetchedAt:     time.Now().UTC(),
	}, nil
}

func (f *fakeSeasonSource) Confederations() []models.Confederation { return f.covered }

func (f *fakeSeasonSource) Name() string { return "fake-archive" }
