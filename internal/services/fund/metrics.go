// Package fund implements the hulugan fund domain: progress metrics computed
// from group snapshots, and the authorization-gated mutation path for the
// paid-weeks counter.
package fund

import (
	"math"

	"github.com/hulugan-ph/hulugan/internal/db/models"
)

// Fallbacks applied when the group collection is empty. Groups are expected
// to share a common cycle length, so these only matter before the first group
// exists.
const (
	DefaultMonthWeeks      = 4
	DefaultTargetPerMember = 40
)

// FundStats is the aggregate view over the whole group collection.
type FundStats struct {
	// Members is the number of groups in the snapshot.
	Members int `json:"members"`

	// MonthWeeks is the maximum weeks_total across groups, or
	// DefaultMonthWeeks when the collection is empty.
	MonthWeeks int `json:"month_weeks"`

	// TotalCollected is the sum over all groups of paid_weeks * weekly_amount.
	TotalCollected float64 `json:"total_collected"`

	// FullMonthPaid counts the groups with paid_weeks >= weeks_total.
	FullMonthPaid int `json:"full_month_paid"`

	// TargetPerMember is weeks_total * weekly_amount of the first group in
	// the ordered collection, or DefaultTargetPerMember when no groups exist.
	TargetPerMember float64 `json:"target_per_member"`
}

// GroupView is a single group with its derived display metrics.
type GroupView struct {
	models.Group

	// PaidAmount is paid_weeks * weekly_amount.
	PaidAmount float64 `json:"paid_amount"`

	// ProgressPercent is clamp(paid_weeks / weeks_total * 100, 0, 100),
	// with weeks_total <= 0 defined as 0.
	ProgressPercent float64 `json:"progress_percent"`
}

// ComputeStats turns a group collection into aggregate statistics. It is a
// pure function: the input slice is never mutated, and malformed values
// coerce to zero instead of failing, since the result renders best-effort
// progress to end users.
func ComputeStats(groups []models.Group) FundStats {
	stats := FundStats{
		Members:         len(groups),
		MonthWeeks:      DefaultMonthWeeks,
		TargetPerMember: DefaultTargetPerMember,
	}
	if len(groups) == 0 {
		return stats
	}

	stats.MonthWeeks = 0
	for _, g := range groups {
		if g.WeeksTotal > stats.MonthWeeks {
			stats.MonthWeeks = g.WeeksTotal
		}
		stats.TotalCollected += PaidAmount(g)
		if g.PaidWeeks >= g.WeeksTotal {
			stats.FullMonthPaid++
		}
	}
	if stats.MonthWeeks <= 0 {
		stats.MonthWeeks = DefaultMonthWeeks
	}

	// The first group in the ordered collection is the reference for the
	// per-member target. Groups are assumed homogeneous; this is a display
	// convenience, not a guarantee.
	ref := groups[0]
	stats.TargetPerMember = coerce(float64(ref.WeeksTotal)) * coerce(ref.WeeklyAmount)

	return stats
}

// BuildViews derives per-group display metrics for each group, preserving
// the input order.
func BuildViews(groups []models.Group) []GroupView {
	views := make([]GroupView, len(groups))
	for i, g := range groups {
		views[i] = GroupView{
			Group:           g,
			PaidAmount:      PaidAmount(g),
			ProgressPercent: ProgressPercent(g),
		}
	}
	return views
}

// PaidAmount is the currency amount a group has collected so far.
func PaidAmount(g models.Group) float64 {
	return coerce(float64(g.PaidWeeks)) * coerce(g.WeeklyAmount)
}

// ProgressPercent reports how far through its cycle a group is, in [0, 100].
// A non-positive weeks_total yields 0 rather than dividing by zero.
func ProgressPercent(g models.Group) float64 {
	if g.WeeksTotal <= 0 {
		return 0
	}
	pct := float64(g.PaidWeeks) / float64(g.WeeksTotal) * 100
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// coerce maps NaN, infinities and negatives to zero so a single malformed
// value cannot poison the aggregate.
func coerce(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}
