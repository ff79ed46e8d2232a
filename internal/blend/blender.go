package blend

import (
	"fmt"
	"math"

	"github.com/yourusername/qualprob/internal/models"
)

// Config holds the tunable blending policy: component weights and the
// per-confederation strength multipliers. The values are heuristics,
// not invariants; only the blending structure (qualified override,
// form + historical blend, multiplier, clamp) is fixed.
type Config struct {
	// FormWeight and HistoricalWeight blend the two components and
	// must sum to 1. When no historical entry matches, the form
	// weight is renormalized to carry the full blend.
	FormWeight       float64 `mapstructure:"form_weight" validate:"gt=0,lte=1"`
	HistoricalWeight float64 `mapstructure:"historical_weight" validate:"gte=0,lt=1"`

	// Multipliers scale the blended probability by confederation
	// strength. Confederations absent from the map default to 1.
	Multipliers map[models.Confederation]float64 `mapstructure:"multipliers"`
}

// DefaultConfig returns the tuned default policy.
func DefaultConfig() Config {
	return Config{
		FormWeight:       0.6,
		HistoricalWeight: 0.4,
		Multipliers: map[models.Confederation]float64{
			models.ConfederationUEFA:     1.0,
			models.ConfederationCONMEBOL: 1.0,
			models.ConfederationAFC:      0.95,
			models.ConfederationCAF:      0.95,
			models.ConfederationCONCACAF: 0.9,
			models.ConfederationOFC:      0.7,
		},
	}
}

// Validate checks the config is a usable blending policy.
func (c Config) Validate() error {
	if c.FormWeight <= 0 {
		return fmt.Errorf("%w: form weight %.2f must be positive", models.ErrInvalidInput, c.FormWeight)
	}
	if c.HistoricalWeight < 0 {
		return fmt.Errorf("%w: historical weight %.2f must not be negative", models.ErrInvalidInput, c.HistoricalWeight)
	}
	if sum := c.FormWeight + c.HistoricalWeight; math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("%w: blend weights sum to %.4f, want 1", models.ErrInvalidInput, sum)
	}
	for confed, m := range c.Multipliers {
		if m <= 0 || m > 1 {
			return fmt.Errorf("%w: multiplier %.2f for %s out of (0,1]", models.ErrInvalidInput, m, confed)
		}
	}
	return nil
}

// Blender turns a team's current standing plus its historical base
// rate into the final slot-fill probability.
type Blender struct {
	cfg Config
}

// NewBlender creates a blender with the given policy.
func NewBlender(cfg Config) *Blender {
	return &Blender{cfg: cfg}
}

// Blend computes prob_fill_slot in [0,100] for one standing row.
// Qualified teams short-circuit to exactly 100 with no blending.
// Invalid rows return an error and contribute nothing; the caller
// records them and moves on.
func (b *Blender) Blend(row models.StandingRow, buckets Buckets, hist LookupResult) (float64, error) {
	if err := row.Validate(); err != nil {
		return 0, err
	}

	if row.Status == models.StatusQualified {
		return 100, nil
	}

	form := FormScore(row)

	var blended float64
	if histProb, ok := hist.Probability(); ok {
		blended = b.cfg.FormWeight*form + b.cfg.HistoricalWeight*histProb*100
	} else {
		// No historical signal: the form component carries the
		// whole blend.
		blended = form
	}

	blended *= b.multiplier(row.Confederation)

	return round2(clamp(blended, 0, 100)), nil
}

func (b *Blender) multiplier(confed models.Confederation) float64 {
	if m, ok := b.cfg.Multipliers[confed]; ok {
		return m
	}
	return 1.0
}

// FormScore is the rule-based current-form component, on the same
// 0-100 scale as a probability. Rank dominates, with points per game
// and goal difference adjusting around it. The ppg term includes the
// raw points-per-game value on top of the stepped bonus so that more
// points always score strictly higher for the same games played.
func FormScore(row models.StandingRow) float64 {
	score := rankScore(row.Rank)

	if row.GamesPlayed > 0 {
		ppg := row.PointsPerGame()
		switch {
		case ppg >= 2.0:
			score += 15
		case ppg >= 1.5:
			score += 10
		case ppg >= 1.0:
			score += 5
		case ppg < 0.5:
			score -= 10
		}
		score += ppg
	}

	switch {
	case row.GoalDifference > 10:
		score += 10
	case row.GoalDifference > 5:
		score += 5
	case row.GoalDifference < -5:
		score -= 10
	}

	return score
}

func rankScore(rank *int) float64 {
	if rank == nil {
		return 5
	}
	switch {
	case *rank == 1:
		return 70
	case *rank <= 3:
		return 50
	case *rank == 4:
		return 30
	case *rank == 5:
		return 15
	default:
		return 5
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
