package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/yourusername/qualprob/internal/database"
	"github.com/yourusername/qualprob/internal/models"
)

const errScanProbability = "failed to scan probability row: %w"

const probabilityColumns = `
	id, team, confederation, qualification_status, prob_fill_slot,
	current_group, position, points, played, goal_diff, form,
	updated_at, created_at
`

// PostgresProbabilityRepository implements ProbabilityRepository for PostgreSQL
type PostgresProbabilityRepository struct {
	db *database.DB
}

// NewPostgresProbabilityRepository creates a new probability repository
func NewPostgresProbabilityRepository(db *database.DB) ProbabilityRepository {
	return &PostgresProbabilityRepository{db: db}
}

// UpsertBatch writes the batch in a single transaction, refreshing rows
// whose (team, confederation, current_group) key already exists. The
// returned counts split the batch into newly inserted and updated rows;
// "xmax = 0" distinguishes a fresh insert from a conflict update.
func (r *PostgresProbabilityRepository) UpsertBatch(ctx context.Context, probs []*models.TeamSlotProbability) (int, int, error) {
	query := `
		INSERT INTO team_slot_probabilities (
			id, team, confederation, qualification_status, prob_fill_slot,
			current_group, position, points, played, goal_diff, form, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
		ON CONFLICT (team, confederation, current_group) DO UPDATE SET
			qualification_status = EXCLUDED.qualification_status,
			prob_fill_slot = EXCLUDED.prob_fill_slot,
			position = EXCLUDED.position,
			points = EXCLUDED.points,
			played = EXCLUDED.played,
			goal_diff = EXCLUDED.goal_diff,
			form = EXCLUDED.form,
			updated_at = NOW()
		RETURNING (xmax = 0) AS inserted
	`

	var inserted, updated int
	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		for _, p := range probs {
			var wasInsert bool
			err := tx.QueryRow(ctx, query,
				p.ID, p.Team, p.Confederation, p.QualificationStatus, p.ProbFillSlot,
				p.CurrentGroup, p.Position, p.Points, p.Played, p.GoalDiff, p.RecentForm,
			).Scan(&wasInsert)
			if err != nil {
				return fmt.Errorf("failed to upsert probability for %s: %w", p.Team, err)
			}
			if wasInsert {
				inserted++
			} else {
				updated++
			}
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}

	return inserted, updated, nil
}

// GetByKey retrieves the probability row for one natural key
func (r *PostgresProbabilityRepository) GetByKey(ctx context.Context, team string, confederation models.Confederation, group string) (*models.TeamSlotProbability, error) {
	query := `
		SELECT ` + probabilityColumns + `
		FROM team_slot_probabilities
		WHERE team = $1 AND confederation = $2 AND current_group = $3
	`

	p := &models.TeamSlotProbability{}
	err := r.db.QueryRow(ctx, query, team, confederation, group).Scan(
		&p.ID, &p.Team, &p.Confederation, &p.QualificationStatus, &p.ProbFillSlot,
		&p.CurrentGroup, &p.Position, &p.Points, &p.Played, &p.GoalDiff, &p.RecentForm,
		&p.UpdatedAt, &p.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get probability: %w", err)
	}

	return p, nil
}

// List retrieves probability rows matching the filter, highest
// probability first
func (r *PostgresProbabilityRepository) List(ctx context.Context, filter ProbabilityFilter) ([]*models.TeamSlotProbability, error) {
	query := `SELECT ` + probabilityColumns + ` FROM team_slot_probabilities`

	var conditions []string
	var args []any
	if filter.Confederation != "" {
		args = append(args, filter.Confederation)
		conditions = append(conditions, fmt.Sprintf("confederation = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("qualification_status = $%d", len(args)))
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY prob_fill_slot DESC, team ASC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query probabilities: %w", err)
	}
	defer rows.Close()

	var probs []*models.TeamSlotProbability
	for rows.Next() {
		p := &models.TeamSlotProbability{}
		err := rows.Scan(
			&p.ID, &p.Team, &p.Confederation, &p.QualificationStatus, &p.ProbFillSlot,
			&p.CurrentGroup, &p.Position, &p.Points, &p.Played, &p.GoalDiff, &p.RecentForm,
			&p.UpdatedAt, &p.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf(errScanProbability, err)
		}
		probs = append(probs, p)
	}

	return probs, rows.Err()
}

// Stats summarises the probability table overall and per confederation
func (r *PostgresProbabilityRepository) Stats(ctx context.Context) (*models.TeamStats, error) {
	totalsQuery := `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE qualification_status = 'Qualified'),
		       COUNT(*) FILTER (WHERE qualification_status = 'In Progress'),
		       COALESCE(AVG(prob_fill_slot), 0),
		       MAX(updated_at)
		FROM team_slot_probabilities
	`

	stats := &models.TeamStats{}
	err := r.db.QueryRow(ctx, totalsQuery).Scan(
		&stats.TotalTeams, &stats.Qualified, &stats.InProgress,
		&stats.AvgProbability, &stats.LastUpdated,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query probability totals: %w", err)
	}

	confedQuery := `
		SELECT confederation,
		       COUNT(*),
		       COUNT(*) FILTER (WHERE qualification_status = 'Qualified'),
		       COALESCE(AVG(prob_fill_slot), 0)
		FROM team_slot_probabilities
		GROUP BY confederation
		ORDER BY confederation
	`

	rows, err := r.db.Query(ctx, confedQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query confederation stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		cs := models.ConfederationStat{}
		err := rows.Scan(&cs.Confederation, &cs.Teams, &cs.Qualified, &cs.AvgProbability)
		if err != nil {
			return nil, fmt.Errorf("failed to scan confederation stats: %w", err)
		}
		stats.Confederations = append(stats.Confederations, cs)
	}

	return stats, rows.Err()
}

// LatestUpdateTime returns when any probability row last changed, nil
// when the table is empty
func (r *PostgresProbabilityRepository) LatestUpdateTime(ctx context.Context) (*time.Time, error) {
	var latest *time.Time
	err := r.db.QueryRow(ctx, "SELECT MAX(updated_at) FROM team_slot_probabilities").Scan(&latest)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest update time: %w", err)
	}
	return latest, nil
}
