// Package blend implements the probability blending engine: bucketing
// of standings statistics, the two-level historical lookup, and the
// blend of current form with historical base rates into a final
// slot-fill probability. Everything in this package is pure
// computation; persistence and fetching live elsewhere.
package blend

import (
	"github.com/yourusername/qualprob/internal/models"
)

// Rank bucket labels. Exact ranks 1 and 2 carry enough historical
// signal to stand alone; 3-4 merge, 5 stands alone, 6 and worse merge.
// Rows with no rank at all get an explicit bucket rather than being
// folded into "6+", and the archive stores the same label so lookups
// line up.
const (
	RankBucket1       = "1"
	RankBucket2       = "2"
	RankBucket34      = "3-4"
	RankBucket5       = "5"
	RankBucket6Plus   = "6+"
	RankBucketUnknown = "unknown"
)

// Points-per-game bucket labels.
const (
	PPGBucketTwoPlus = ">=2"
	PPGBucketHigh    = "1.5-1.99"
	PPGBucketMid     = "1.0-1.49"
	PPGBucketLow     = "<1.0"
)

// Goal differential bands. Monotonic and exhaustive over all integers.
const (
	GoalDiffBucketDominant = ">=10"
	GoalDiffBucketStrong   = "5-9"
	GoalDiffBucketEven     = "0-4"
	GoalDiffBucketWeak     = "-4--1"
	GoalDiffBucketPoor     = "-9--5"
	GoalDiffBucketRouted   = "<-9"
)

// Buckets is the purely derived classification of one standing row.
// Recomputed fresh from each row, never persisted as mutable state.
type Buckets struct {
	Rank     string
	PPG      *string
	GoalDiff string
}

// RankBucket maps a table rank to its ordinal bucket. Nil rank maps to
// the explicit unknown bucket.
func RankBucket(rank *int) string {
	if rank == nil {
		return RankBucketUnknown
	}
	switch r := *rank; {
	case r == 1:
		return RankBucket1
	case r == 2:
		return RankBucket2
	case r == 3 || r == 4:
		return RankBucket34
	case r == 5:
		return RankBucket5
	default:
		return RankBucket6Plus
	}
}

// PPGBucket maps points per game to its bucket. Returns nil when no
// games have been played: zero points from zero games is insufficient
// data, not bottom-bucket form.
func PPGBucket(points, gamesPlayed int) *string {
	if gamesPlayed <= 0 {
		return nil
	}
	ppg := float64(points) / float64(gamesPlayed)
	var b string
	switch {
	case ppg >= 2.0:
		b = PPGBucketTwoPlus
	case ppg >= 1.5:
		b = PPGBucketHigh
	case ppg >= 1.0:
		b = PPGBucketMid
	default:
		b = PPGBucketLow
	}
	return &b
}

// GoalDiffBucket maps a goal differential to its band.
func GoalDiffBucket(goalDiff int) string {
	switch {
	case goalDiff >= 10:
		return GoalDiffBucketDominant
	case goalDiff >= 5:
		return GoalDiffBucketStrong
	case goalDiff >= 0:
		return GoalDiffBucketEven
	case goalDiff >= -4:
		return GoalDiffBucketWeak
	case goalDiff >= -9:
		return GoalDiffBucketPoor
	default:
		return GoalDiffBucketRouted
	}
}

// BucketRow derives all three buckets for a standing row.
func BucketRow(row models.StandingRow) Buckets {
	return Buckets{
		Rank:     RankBucket(row.Rank),
		PPG:      PPGBucket(row.Points, row.GamesPlayed),
		GoalDiff: GoalDiffBucket(row.GoalDifference),
	}
}
