package blend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/qualprob/internal/models"
)

func intPtr(v int) *int {
	return &v
}

func TestRankBucket(t *testing.T) {
	tests := []struct {
		name string
		rank *int
		want string
	}{
		{name: "leader", rank: intPtr(1), want: RankBucket1},
		{name: "runner up", rank: intPtr(2), want: RankBucket2},
		{name: "third merges", rank: intPtr(3), want: RankBucket34},
		{name: "fourth merges", rank: intPtr(4), want: RankBucket34},
		{name: "fifth stands alone", rank: intPtr(5), want: RankBucket5},
		{name: "sixth", rank: intPtr(6), want: RankBucket6Plus},
		{name: "deep table", rank: intPtr(12), want: RankBucket6Plus},
		{name: "nil rank", rank: nil, want: RankBucketUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RankBucket(tt.rank))
		})
	}
}

// Every positive rank must land in exactly one of the five numeric
// buckets, whatever the table depth.
func TestRankBucketTotal(t *testing.T) {
	known := map[string]bool{
		RankBucket1:     true,
		RankBucket2:     true,
		RankBucket34:    true,
		RankBucket5:     true,
		RankBucket6Plus: true,
	}
	for rank := 1; rank <= 60; rank++ {
		b := RankBucket(&rank)
		require.Truef(t, known[b], "rank %d mapped to unexpected bucket %q", rank, b)
	}
}

func TestPPGBucket(t *testing.T) {
	tests := []struct {
		name   string
		points int
		played int
		want   *string
	}{
		{name: "perfect record", points: 16, played: 8, want: strPtr(PPGBucketTwoPlus)},
		{name: "above two", points: 21, played: 8, want: strPtr(PPGBucketTwoPlus)},
		{name: "just below two", points: 15, played: 8, want: strPtr(PPGBucketHigh)},
		{name: "exactly one point five", points: 12, played: 8, want: strPtr(PPGBucketHigh)},
		{name: "mid table", points: 11, played: 8, want: strPtr(PPGBucketMid)},
		{name: "exactly one", points: 8, played: 8, want: strPtr(PPGBucketMid)},
		{name: "struggling", points: 7, played: 8, want: strPtr(PPGBucketLow)},
		{name: "pointless", points: 0, played: 8, want: strPtr(PPGBucketLow)},
		{name: "no games yet", points: 0, played: 0, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PPGBucket(tt.points, tt.played)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tt.want, *got)
		})
	}
}

func TestGoalDiffBucket(t *testing.T) {
	tests := []struct {
		gd   int
		want string
	}{
		{gd: 25, want: GoalDiffBucketDominant},
		{gd: 10, want: GoalDiffBucketDominant},
		{gd: 9, want: GoalDiffBucketStrong},
		{gd: 5, want: GoalDiffBucketStrong},
		{gd: 4, want: GoalDiffBucketEven},
		{gd: 0, want: GoalDiffBucketEven},
		{gd: -1, want: GoalDiffBucketWeak},
		{gd: -4, want: GoalDiffBucketWeak},
		{gd: -5, want: GoalDiffBucketPoor},
		{gd: -9, want: GoalDiffBucketPoor},
		{gd: -10, want: GoalDiffBucketRouted},
		{gd: -30, want: GoalDiffBucketRouted},
	}

	for _, tt := range tests {
		assert.Equalf(t, tt.want, GoalDiffBucket(tt.gd), "goal diff %d", tt.gd)
	}
}

// Every integer goal differential maps to exactly one band.
func TestGoalDiffBucketExhaustive(t *testing.T) {
	known := map[string]bool{
		GoalDiffBucketDominant: true,
		GoalDiffBucketStrong:   true,
		GoalDiffBucketEven:     true,
		GoalDiffBucketWeak:     true,
		GoalDiffBucketPoor:     true,
		GoalDiffBucketRouted:   true,
	}
	for gd := -50; gd <= 50; gd++ {
		b := GoalDiffBucket(gd)
		require.Truef(t, known[b], "goal diff %d mapped to unexpected band %q", gd, b)
	}
}

func TestBucketRowDeterministic(t *testing.T) {
	row := models.StandingRow{
		Team:           "Norway",
		Confederation:  models.ConfederationUEFA,
		Group:          "Group I",
		Rank:           intPtr(2),
		GamesPlayed:    6,
		Points:         13,
		GoalDifference: 7,
		Status:         models.StatusInProgress,
	}

	first := BucketRow(row)
	second := BucketRow(row)

	assert.Equal(t, first, second)
	assert.Equal(t, RankBucket2, first.Rank)
	require.NotNil(t, first.PPG)
	assert.Equal(t, PPGBucketTwoPlus, *first.PPG)
	assert.Equal(t, GoalDiffBucketStrong, first.GoalDiff)
}

func strPtr(s string) *string {
	return &s
}
