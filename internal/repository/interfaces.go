package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/yourusername/qualprob/internal/models"
)

// ProbabilityFilter narrows List queries over the probability table.
// Zero values mean "no constraint".
type ProbabilityFilter struct {
	Confederation models.Confederation
	Status        models.QualificationStatus
	Limit         int
}

// ProbabilityRepository defines the interface for probability table access
type ProbabilityRepository interface {
	UpsertBatch(ctx context.Context, probs []*models.TeamSlotProbability) (inserted, updated int, err error)
	GetByKey(ctx context.Context, team string, confederation models.Confederation, group string) (*models.TeamSlotProbability, error)
	List(ctx context.Context, filter ProbabilityFilter) ([]*models.TeamSlotProbability, error)
	Stats(ctx context.Context) (*models.TeamStats, error)
	LatestUpdateTime(ctx context.Context) (*time.Time, error)
}

// RunRepository defines the interface for the run ledger
type RunRepository interface {
	Create(ctx context.Context, run *models.PredictionRun) error
	Update(ctx context.Context, run *models.PredictionRun) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.PredictionRun, error)
	GetRecent(ctx context.Context, jobType models.JobType, limit int) ([]*models.PredictionRun, error)
	GetLatestSuccessByInputHash(ctx context.Context, inputHash string) (*models.PredictionRun, error)
	MarkStaleRunsFailed(ctx context.Context, olderThan time.Time) (int, error)
}

// LookupRepository defines the interface for the historical probability
// lookup table
type LookupRepository interface {
	ReplaceAll(ctx context.Context, entries []*models.HistoricalProbabilityEntry) error
	ListAll(ctx context.Context) ([]*models.HistoricalProbabilityEntry, error)
	Count(ctx context.Context) (int, error)
}

// HistoricalStandingRepository defines the interface for the standings
// archive
type HistoricalStandingRepository interface {
	UpsertBatch(ctx context.Context, rows []*models.HistoricalStanding) (int, error)
	CountBySeason(ctx context.Context) (map[int]int, error)
	AggregateRankLevel(ctx context.Context) ([]*models.HistoricalProbabilityEntry, error)
	AggregateBucketLevel(ctx context.Context) ([]*models.HistoricalProbabilityEntry, error)
}
