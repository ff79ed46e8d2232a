package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LookupLevel says how specific a historical probability entry is: an
// exact table rank, or a coarser (rank bucket, ppg bucket) pair used
// when exact-rank history is too sparse.
type LookupLevel string

const (
	LookupLevelRank   LookupLevel = "rank"
	LookupLevelBucket LookupLevel = "bucket"
)

// PPGBucketAll marks rank-level entries, which aggregate over every
// points-per-game bucket.
const PPGBucketAll = "all"

// HistoricalProbabilityEntry is one immutable fact in the lookup table:
// the share of teams in this (confederation, stage, rank-or-bucket)
// cell that went on to qualify, across all archived cycles. The table
// is rebuilt in bulk and read-only between rebuilds.
type HistoricalProbabilityEntry struct {
	ID             int64           `db:"id" json:"id"`
	Confederation  Confederation   `db:"confederation" json:"confederation" validate:"required"`
	Stage          string          `db:"stage" json:"stage" validate:"required"`
	LookupLevel    LookupLevel     `db:"lookup_level" json:"lookup_level" validate:"required,oneof=rank bucket"`
	Rank           *int            `db:"rank" json:"rank"`
	RankBucket     string          `db:"rank_bucket" json:"rank_bucket"`
	PPGBucket      string          `db:"ppg_bucket" json:"ppg_bucket"`
	QualProb       decimal.Decimal `db:"historical_qual_prob" json:"historical_qual_prob"`
	SampleSize     int             `db:"sample_size" json:"sample_size"`
	SeasonsCovered int             `db:"seasons_covered" json:"seasons_covered"`
	RebuiltAt      time.Time       `db:"rebuilt_at" json:"rebuilt_at"`
}

// Probability returns the entry's qualification rate as a float in [0,1].
func (e *HistoricalProbabilityEntry) Probability() float64 {
	f, _ := e.QualProb.Float64()
	return f
}

// HistoricalStanding is one archived team-season line from a past
// qualifying cycle, stored with the buckets that were derived from it
// so lookup rebuilds never re-bucket old rows under newer edges.
type HistoricalStanding struct {
	ID             int64         `db:"id" json:"id"`
	Season         int           `db:"season" json:"season" validate:"required"`
	Confederation  Confederation `db:"confederation" json:"confederation" validate:"required"`
	Stage          string        `db:"stage" json:"stage"`
	Team           string        `db:"team" json:"team" validate:"required"`
	Rank           *int          `db:"rank" json:"rank"`
	GamesPlayed    int           `db:"games_played" json:"games_played"`
	Wins           int           `db:"wins" json:"wins"`
	Draws          int           `db:"draws" json:"draws"`
	Losses         int           `db:"losses" json:"losses"`
	GoalsFor       int           `db:"goals_for" json:"goals_for"`
	GoalsAgainst   int           `db:"goals_against" json:"goals_against"`
	GoalDifference int           `db:"goal_difference" json:"goal_difference"`
	Points         int           `db:"points" json:"points"`
	Qualified      bool          `db:"qualified" json:"qualified"`
	RankBucket     string        `db:"rank_bucket" json:"rank_bucket"`
	PPGBucket      *string       `db:"ppg_bucket" json:"ppg_bucket"`
	GoalDiffBucket string        `db:"goal_diff_bucket" json:"goal_diff_bucket"`
	FetchedAt      time.Time     `db:"fetched_at" json:"fetched_at"`
}
