package fund

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hulugan-ph/hulugan/internal/db/models"
)

func TestComputeStatsEmptyCollection(t *testing.T) {
	t.Parallel()

	stats := ComputeStats(nil)
	assert.Equal(t, 0, stats.Members)
	assert.Equal(t, DefaultMonthWeeks, stats.MonthWeeks)
	assert.Equal(t, float64(0), stats.TotalCollected)
	assert.Equal(t, 0, stats.FullMonthPaid)
	assert.Equal(t, float64(DefaultTargetPerMember), stats.TargetPerMember)
}

func TestComputeStatsTwoGroups(t *testing.T) {
	t.Parallel()

	groups := []models.Group{
		{ID: "a", WeeklyAmount: 10, WeeksTotal: 4, PaidWeeks: 4},
		{ID: "b", WeeklyAmount: 10, WeeksTotal: 4, PaidWeeks: 0},
	}

	stats := ComputeStats(groups)
	assert.Equal(t, 2, stats.Members)
	assert.Equal(t, 4, stats.MonthWeeks)
	assert.Equal(t, float64(40), stats.TotalCollected)
	assert.Equal(t, 1, stats.FullMonthPaid)
	assert.Equal(t, float64(40), stats.TargetPerMember)
}

func TestComputeStatsMonthWeeksIsMax(t *testing.T) {
	t.Parallel()

	groups := []models.Group{
		{WeeksTotal: 4},
		{WeeksTotal: 12},
		{WeeksTotal: 8},
	}
	assert.Equal(t, 12, ComputeStats(groups).MonthWeeks)
}

func TestComputeStatsTargetUsesFirstGroup(t *testing.T) {
	t.Parallel()

	groups := []models.Group{
		{WeeklyAmount: 25, WeeksTotal: 4},
		{WeeklyAmount: 10, WeeksTotal: 4},
	}
	assert.Equal(t, float64(100), ComputeStats(groups).TargetPerMember)
}

func TestTotalCollectedInvariantUnderReordering(t *testing.T) {
	t.Parallel()

	forward := []models.Group{
		{WeeklyAmount: 10, WeeksTotal: 4, PaidWeeks: 2},
		{WeeklyAmount: 25, WeeksTotal: 4, PaidWeeks: 4},
		{WeeklyAmount: 5, WeeksTotal: 8, PaidWeeks: 7},
	}
	reversed := []models.Group{forward[2], forward[1], forward[0]}

	assert.Equal(t, ComputeStats(forward).TotalCollected, ComputeStats(reversed).TotalCollected)
	assert.Equal(t, ComputeStats(forward).FullMonthPaid, ComputeStats(reversed).FullMonthPaid)
}

func TestComputeStatsDoesNotMutateInput(t *testing.T) {
	t.Parallel()

	groups := []models.Group{
		{ID: "a", WeeklyAmount: 10, WeeksTotal: 4, PaidWeeks: 2},
	}
	before := groups[0]

	_ = ComputeStats(groups)
	_ = BuildViews(groups)

	assert.Equal(t, before, groups[0])
}

func TestComputeStatsCoercesMalformedValues(t *testing.T) {
	t.Parallel()

	groups := []models.Group{
		{WeeklyAmount: math.NaN(), WeeksTotal: 4, PaidWeeks: 2},
		{WeeklyAmount: math.Inf(1), WeeksTotal: 4, PaidWeeks: 2},
		{WeeklyAmount: -10, WeeksTotal: 4, PaidWeeks: 2},
		{WeeklyAmount: 10, WeeksTotal: 4, PaidWeeks: -3},
	}

	stats := ComputeStats(groups)
	assert.Equal(t, float64(0), stats.TotalCollected)
	assert.False(t, math.IsNaN(stats.TargetPerMember))
}

func TestProgressPercent(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		group models.Group
		want  float64
	}{
		{"half way", models.Group{WeeksTotal: 4, PaidWeeks: 2}, 50},
		{"complete", models.Group{WeeksTotal: 4, PaidWeeks: 4}, 100},
		{"not started", models.Group{WeeksTotal: 4, PaidWeeks: 0}, 0},
		{"zero total guards division", models.Group{WeeksTotal: 0, PaidWeeks: 3}, 0},
		{"negative total", models.Group{WeeksTotal: -4, PaidWeeks: 2}, 0},
		{"over-paid clamps to 100", models.Group{WeeksTotal: 4, PaidWeeks: 9}, 100},
		{"negative paid clamps to 0", models.Group{WeeksTotal: 4, PaidWeeks: -1}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ProgressPercent(tc.group))
		})
	}
}

func TestProgressPercentWithinBounds(t *testing.T) {
	t.Parallel()

	for total := 1; total <= 12; total++ {
		for paid := 0; paid <= total; paid++ {
			g := models.Group{WeeksTotal: total, PaidWeeks: paid}
			pct := ProgressPercent(g)
			require.GreaterOrEqual(t, pct, float64(0))
			require.LessOrEqual(t, pct, float64(100))
			require.InDelta(t, 100*float64(paid)/float64(total), pct, 1e-9)
		}
	}
}

func TestBuildViews(t *testing.T) {
	t.Parallel()

	groups := []models.Group{
		{ID: "a", WeeklyAmount: 10, WeeksTotal: 4, PaidWeeks: 2},
		{ID: "b", WeeklyAmount: 10, WeeksTotal: 4, PaidWeeks: 4},
	}

	views := BuildViews(groups)
	require.Len(t, views, 2)

	assert.Equal(t, "a", views[0].ID)
	assert.Equal(t, float64(20), views[0].PaidAmount)
	assert.Equal(t, float64(50), views[0].ProgressPercent)

	assert.Equal(t, "b", views[1].ID)
	assert.Equal(t, float64(40), views[1].PaidAmount)
	assert.Equal(t, float64(100), views[1].ProgressPercent)
}
