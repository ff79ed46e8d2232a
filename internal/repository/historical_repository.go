package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/yourusername/qualprob/internal/database"
	"github.com/yourusername/qualprob/internal/models"
)

// PostgresHistoricalStandingRepository implements
// HistoricalStandingRepository for PostgreSQL
type PostgresHistoricalStandingRepository struct {
	db *database.DB
}

// NewPostgresHistoricalStandingRepository creates a new standings
// archive repository
func NewPostgresHistoricalStandingRepository(db *database.DB) HistoricalStandingRepository {
	return &PostgresHistoricalStandingRepository{db: db}
}

// UpsertBatch stores archive rows in a single transaction, replacing
// rows that already exist for the same (season, confederation, stage,
// team). Returns the number of rows written.
func (r *PostgresHistoricalStandingRepository) UpsertBatch(ctx context.Context, rows []*models.HistoricalStanding) (int, error) {
	query := `
		INSERT INTO historical_standings (
			season, confederation, stage, team, rank, games_played, wins,
			draws, losses, goals_for, goals_against, goal_difference,
			points, qualified, rank_bucket, ppg_bucket, goal_diff_bucket, fetched_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, NOW())
		ON CONFLICT (season, confederation, stage, team) DO UPDATE SET
			rank = EXCLUDED.rank,
			games_played = EXCLUDED.games_played,
			wins = EXCLUDED.wins,
			draws = EXCLUDED.draws,
			losses = EXCLUDED.losses,
			goals_for = EXCLUDED.goals_for,
			goals_against = EXCLUDED.goals_against,
			goal_difference = EXCLUDED.goal_difference,
			points = EXCLUDED.points,
			qualified = EXCLUDED.qualified,
			rank_bucket = EXCLUDED.rank_bucket,
			ppg_bucket = EXCLUDED.ppg_bucket,
			goal_diff_bucket = EXCLUDED.goal_diff_bucket,
			fetched_at = NOW()
	`

	var stored int
	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		for _, row := range rows {
			_, err := tx.Exec(ctx, query,
				row.Season, row.Confederation, row.Stage, row.Team, row.Rank,
				row.GamesPlayed, row.Wins, row.Draws, row.Losses, row.GoalsFor,
				row.GoalsAgainst, row.GoalDifference, row.Points, row.Qualified,
				row.RankBucket, row.PPGBucket, row.GoalDiffBucket,
			)
			if err != nil {
				return fmt.Errorf("failed to upsert historical standing for %s (%d): %w", row.Team, row.Season, err)
			}
			stored++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return stored, nil
}

// CountBySeason reports how many archive rows exist per season
func (r *PostgresHistoricalStandingRepository) CountBySeason(ctx context.Context) (map[int]int, error) {
	query := `
		SELECT season, COUNT(*)
		FROM historical_standings
		GROUP BY season
		ORDER BY season
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to count historical standings: %w", err)
	}
	defer rows.Close()

	counts := make(map[int]int)
	for rows.Next() {
		var season, count int
		if err := rows.Scan(&season, &count); err != nil {
			return nil, fmt.Errorf("failed to scan season count: %w", err)
		}
		counts[season] = count
	}

	return counts, rows.Err()
}

// AggregateRankLevel computes the qualification rate for every
// (confederation, stage, rank) cell across the archive. Rows with no
// explicit rank are excluded; they only contribute at bucket level.
func (r *PostgresHistoricalStandingRepository) AggregateRankLevel(ctx context.Context) ([]*models.HistoricalProbabilityEntry, error) {
	query := `
		SELECT confederation, stage, rank,
		       AVG(CASE WHEN qualified THEN 1.0 ELSE 0.0 END)::numeric(5,4),
		       COUNT(*),
		       COUNT(DISTINCT season)
		FROM historical_standings
		WHERE rank IS NOT NULL
		GROUP BY confederation, stage, rank
		ORDER BY confederation, stage, rank
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate rank-level probabilities: %w", err)
	}
	defer rows.Close()

	var entries []*models.HistoricalProbabilityEntry
	for rows.Next() {
		e := &models.HistoricalProbabilityEntry{
			LookupLevel: models.LookupLevelRank,
			PPGBucket:   models.PPGBucketAll,
		}
		err := rows.Scan(&e.Confederation, &e.Stage, &e.Rank, &e.QualProb, &e.SampleSize, &e.SeasonsCovered)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rank-level aggregate: %w", err)
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// AggregateBucketLevel computes the qualification rate for every
// (confederation, stage, rank_bucket, ppg_bucket) cell. Rows without a
// ppg bucket (no games recorded) are excluded.
func (r *PostgresHistoricalStandingRepository) AggregateBucketLevel(ctx context.Context) ([]*models.HistoricalProbabilityEntry, error) {
	query := `
		SELECT confederation, stage, rank_bucket, ppg_bucket,
		       AVG(CASE WHEN qualified THEN 1.0 ELSE 0.0 END)::numeric(5,4),
		       COUNT(*),
		       COUNT(DISTINCT season)
		FROM historical_standings
		WHERE ppg_bucket IS NOT NULL
		GROUP BY confederation, stage, rank_bucket, ppg_bucket
		ORDER BY confederation, stage, rank_bucket, ppg_bucket
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate bucket-level probabilities: %w", err)
	}
	defer rows.Close()

	var entries []*models.HistoricalProbabilityEntry
	for rows.Next() {
		e := &models.HistoricalProbabilityEntry{
			LookupLevel: models.LookupLevelBucket,
		}
		err := rows.Scan(&e.Confederation, &e.Stage, &e.RankBucket, &e.PPGBucket, &e.QualProb, &e.SampleSize, &e.SeasonsCovered)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bucket-level aggregate: %w", err)
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}
