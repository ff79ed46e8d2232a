package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/yourusername/qualprob/internal/database"
	"github.com/yourusername/qualprob/internal/models"
)

const lookupColumns = `
	id, confederation, stage, lookup_level, rank, rank_bucket,
	ppg_bucket, historical_qual_prob, sample_size, seasons_covered,
	rebuilt_at
`

// PostgresLookupRepository implements LookupRepository for PostgreSQL
type PostgresLookupRepository struct {
	db *database.DB
}

// NewPostgresLookupRepository creates a new lookup table repository
func NewPostgresLookupRepository(db *database.DB) LookupRepository {
	return &PostgresLookupRepository{db: db}
}

// ReplaceAll swaps the whole lookup table for the given entries inside
// one transaction, so readers never observe a half-rebuilt table.
func (r *PostgresLookupRepository) ReplaceAll(ctx context.Context, entries []*models.HistoricalProbabilityEntry) error {
	insertQuery := `
		INSERT INTO historical_probability_lookup (
			confederation, stage, lookup_level, rank, rank_bucket,
			ppg_bucket, historical_qual_prob, sample_size, seasons_covered, rebuilt_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
	`

	return r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "DELETE FROM historical_probability_lookup"); err != nil {
			return fmt.Errorf("failed to clear lookup table: %w", err)
		}

		for _, e := range entries {
			_, err := tx.Exec(ctx, insertQuery,
				e.Confederation, e.Stage, e.LookupLevel, e.Rank, e.RankBucket,
				e.PPGBucket, e.QualProb, e.SampleSize, e.SeasonsCovered,
			)
			if err != nil {
				return fmt.Errorf("failed to insert lookup entry for %s/%s: %w", e.Confederation, e.Stage, err)
			}
		}
		return nil
	})
}

// ListAll retrieves every lookup entry
func (r *PostgresLookupRepository) ListAll(ctx context.Context) ([]*models.HistoricalProbabilityEntry, error) {
	query := `
		SELECT ` + lookupColumns + `
		FROM historical_probability_lookup
		ORDER BY confederation, stage, lookup_level, rank, rank_bucket, ppg_bucket
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query lookup table: %w", err)
	}
	defer rows.Close()

	var entries []*models.HistoricalProbabilityEntry
	for rows.Next() {
		e := &models.HistoricalProbabilityEntry{}
		err := rows.Scan(
			&e.ID, &e.Confederation, &e.Stage, &e.LookupLevel, &e.Rank, &e.RankBucket,
			&e.PPGBucket, &e.QualProb, &e.SampleSize, &e.SeasonsCovered, &e.RebuiltAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lookup entry: %w", err)
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// Count returns the number of lookup entries
func (r *PostgresLookupRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM historical_probability_lookup").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count lookup entries: %w", err)
	}
	return count, nil
}
