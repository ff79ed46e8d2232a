package blend

import (
	"strings"

	"github.com/yourusername/qualprob/internal/models"
)

// MatchLevel says which level of the historical lookup produced a
// result, or that nothing matched.
type MatchLevel string

const (
	MatchRank   MatchLevel = "rank"
	MatchBucket MatchLevel = "bucket"
	MatchNone   MatchLevel = "none"
)

// LookupResult is the outcome of a historical lookup: an exact-rank
// match, a coarser bucket match, or no historical signal at all. The
// probability is only meaningful when Level != MatchNone, so callers
// should go through Probability rather than reading Prob directly.
type LookupResult struct {
	Level MatchLevel
	Prob  float64
}

// RankMatch builds a rank-level result.
func RankMatch(prob float64) LookupResult {
	return LookupResult{Level: MatchRank, Prob: prob}
}

// BucketMatch builds a bucket-level result.
func BucketMatch(prob float64) LookupResult {
	return LookupResult{Level: MatchBucket, Prob: prob}
}

// NoMatch builds the empty result.
func NoMatch() LookupResult {
	return LookupResult{Level: MatchNone}
}

// Probability returns the historical qualification rate in [0,1] and
// whether any level matched.
func (r LookupResult) Probability() (float64, bool) {
	if r.Level == MatchNone {
		return 0, false
	}
	return r.Prob, true
}

type rankKey struct {
	confed models.Confederation
	stage  string
	rank   int
}

type bucketKey struct {
	confed     models.Confederation
	stage      string
	rankBucket string
	ppgBucket  string
}

// Table is an in-memory snapshot of the historical probability lookup,
// built once from the persisted entries and read-only afterwards. It
// implements the two-level fallback: exact rank first, then the
// (rank bucket, ppg bucket) pair, each retried with the stage prefix
// because live stage names carry round decorations ("Third Round -
// Group A") that the archive aggregates away.
type Table struct {
	rank   map[rankKey]float64
	bucket map[bucketKey]float64
}

// NewTable indexes lookup entries for constant-time lookups. Entries
// with an unusable key for their level (rank-level without a rank,
// bucket-level without both buckets) are skipped.
func NewTable(entries []models.HistoricalProbabilityEntry) *Table {
	t := &Table{
		rank:   make(map[rankKey]float64, len(entries)),
		bucket: make(map[bucketKey]float64, len(entries)),
	}
	for _, e := range entries {
		switch e.LookupLevel {
		case models.LookupLevelRank:
			if e.Rank == nil {
				continue
			}
			t.rank[rankKey{e.Confederation, e.Stage, *e.Rank}] = e.Probability()
		case models.LookupLevelBucket:
			if e.RankBucket == "" || e.PPGBucket == "" {
				continue
			}
			t.bucket[bucketKey{e.Confederation, e.Stage, e.RankBucket, e.PPGBucket}] = e.Probability()
		}
	}
	return t
}

// Size returns the number of indexed entries across both levels.
func (t *Table) Size() int {
	return len(t.rank) + len(t.bucket)
}

// Lookup resolves the historical qualification rate for a team at the
// given position. Pure over the table contents.
func (t *Table) Lookup(confed models.Confederation, stage string, rank *int, buckets Buckets) LookupResult {
	stages := []string{stage}
	if prefix := StagePrefix(stage); prefix != stage {
		stages = append(stages, prefix)
	}

	if rank != nil {
		for _, s := range stages {
			if prob, ok := t.rank[rankKey{confed, s, *rank}]; ok {
				return RankMatch(prob)
			}
		}
	}

	// Bucket-level entries always carry a concrete ppg bucket; a row
	// with no games played has none, so it can only match on rank.
	if buckets.PPG != nil {
		for _, s := range stages {
			if prob, ok := t.bucket[bucketKey{confed, s, buckets.Rank, *buckets.PPG}]; ok {
				return BucketMatch(prob)
			}
		}
	}

	return NoMatch()
}

// StagePrefix strips the round decoration from a stage name: the text
// before the first " - " separator, or the whole name when there is
// none.
func StagePrefix(stage string) string {
	if idx := strings.Index(stage, " - "); idx >= 0 {
		return stage[:idx]
	}
	return stage
}
