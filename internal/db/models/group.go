package models

import (
	"errors"
	"strings"
	"time"

	"github.com/uptrace/bun"
)

var (
	// ErrGroupNameRequired is returned when a group is created without a name.
	ErrGroupNameRequired = errors.New("group name is required")

	// ErrWeeklyAmountNegative is returned when weekly_amount is below zero.
	ErrWeeklyAmountNegative = errors.New("weekly_amount must not be negative")

	// ErrWeeksTotalInvalid is returned when weeks_total is below one.
	ErrWeeksTotalInvalid = errors.New("weeks_total must be at least 1")

	// ErrPaidWeeksOutOfRange is returned when paid_weeks falls outside [0, weeks_total].
	ErrPaidWeeksOutOfRange = errors.New("paid_weeks must be between 0 and weeks_total")
)

// Group is one hulugan member group: a fixed weekly contribution collected
// over a fixed cycle of weeks, with a running count of weeks already paid.
//
// PaidWeeks is the only field mutated after creation. UpdatedAt is stamped by
// the repository on every write and is the display ordering key (descending).
type Group struct {
	bun.BaseModel `bun:"table:groups,alias:g"`

	ID           string    `bun:"id,pk,type:uuid" json:"id"`
	Name         string    `bun:"name,notnull" json:"name"`
	WeeklyAmount float64   `bun:"weekly_amount,notnull" json:"weekly_amount"`
	WeeksTotal   int       `bun:"weeks_total,notnull" json:"weeks_total"`
	PaidWeeks    int       `bun:"paid_weeks,notnull,default:0" json:"paid_weeks"`
	CreatedAt    time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt    time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}

// ValidateForCreate checks the invariants a new group must satisfy.
func (g *Group) ValidateForCreate() error {
	if strings.TrimSpace(g.Name) == "" {
		return ErrGroupNameRequired
	}
	if g.WeeklyAmount < 0 {
		return ErrWeeklyAmountNegative
	}
	if g.WeeksTotal < 1 {
		return ErrWeeksTotalInvalid
	}
	if g.PaidWeeks < 0 || g.PaidWeeks > g.WeeksTotal {
		return ErrPaidWeeksOutOfRange
	}
	return nil
}

// ValidatePaidWeeks checks that a candidate paid-weeks value keeps the
// 0 <= paid_weeks <= weeks_total invariant for this group.
func (g *Group) ValidatePaidWeeks(value int) error {
	if value < 0 || value > g.WeeksTotal {
		return ErrPaidWeeksOutOfRange
	}
	return nil
}
