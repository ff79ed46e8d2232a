package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/qualprob/internal/models"
	"github.com/yourusername/qualprob/internal/repository"
)

// BlendedStanding pairs a standing row with its blended probability,
// ready to be written to the probability table.
type BlendedStanding struct {
	Row         models.StandingRow
	Probability float64
}

// Materializer turns blended standings into probability table rows and
// upserts them in one batch.
type Materializer struct {
	repo   repository.ProbabilityRepository
	logger *logrus.Logger
}

// NewMaterializer creates a materializer.
func NewMaterializer(repo repository.ProbabilityRepository, logger *logrus.Logger) *Materializer {
	if logger == nil {
		logger = logrus.New()
	}
	return &Materializer{repo: repo, logger: logger}
}

// Materialize writes the blended batch to the probability table and
// reports how many rows were new versus replaced.
func (m *Materializer) Materialize(ctx context.Context, blended []BlendedStanding, now time.Time) (inserted, updated int, err error) {
	if len(blended) == 0 {
		return 0, 0, nil
	}

	probs := make([]*models.TeamSlotProbability, 0, len(blended))
	for _, b := range blended {
		probs = append(probs, toProbability(b.Row, b.Probability, now))
	}

	inserted, updated, err = m.repo.UpsertBatch(ctx, probs)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to materialize probabilities: %w", err)
	}

	m.logger.WithFields(logrus.Fields{
		"rows":     len(probs),
		"inserted": inserted,
		"updated":  updated,
	}).Info("Probabilities materialized")

	return inserted, updated, nil
}

// toProbability converts one blended standing row into the persisted
// model. Table statistics stay NULL for teams that have not played,
// such as seeded hosts.
func toProbability(row models.StandingRow, prob float64, now time.Time) *models.TeamSlotProbability {
	p := &models.TeamSlotProbability{
		ID:                  uuid.New(),
		Team:                row.Team,
		Confederation:       row.Confederation,
		QualificationStatus: row.Status,
		ProbFillSlot:        models.ProbabilityFromFloat(prob),
		CurrentGroup:        row.Group,
		RecentForm:          formSummary(row),
		UpdatedAt:           now,
		CreatedAt:           now,
	}

	if row.Rank != nil {
		rank := *row.Rank
		p.Position = &rank
	}
	if row.GamesPlayed > 0 {
		points := row.Points
		played := row.GamesPlayed
		goalDiff := row.GoalDifference
		p.Points = &points
		p.Played = &played
		p.GoalDiff = &goalDiff
	}

	return p
}

// formSummary compresses the win/draw/loss record into the short form
// string the table stores. The standings source exposes no per-match
// streaks, so the season record stands in for one.
func formSummary(row models.StandingRow) string {
	if row.GamesPlayed <= 0 {
		return ""
	}
	return fmt.Sprintf("%dW-%dD-%dL", row.Wins, row.Draws, row.Losses)
}
