package entity

import (
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// RotationActivityRequirement is the L2 layer: for a rotation, how many
// half-days of a given activity are required over a set of applicable
// weeks. Mirrors the original's dynamic per-activity requirement model.
type RotationActivityRequirement struct {
	ID                  uuid.UUID
	RotationTemplateID  uuid.UUID
	ActivityCode        string
	MinHalfdays         int
	MaxHalfdays         int
	TargetHalfdays      int
	ApplicableWeeks     []int // nil means all four weeks
	ApplicableWeeksHash uuid.UUID
	PreferFullDays      bool
	PreferredDays       []int
	AvoidDays           []int
	Priority            int // 0-100; 91-100 treated as near-hard
}

func NewRotationActivityRequirement(id, rotationTemplateID uuid.UUID, activityCode string, min, max, target int, applicableWeeks []int, priority int) *RotationActivityRequirement {
	r := &RotationActivityRequirement{
		ID:                 id,
		RotationTemplateID: rotationTemplateID,
		ActivityCode:       activityCode,
		MinHalfdays:        min,
		MaxHalfdays:        max,
		TargetHalfdays:     target,
		ApplicableWeeks:    applicableWeeks,
		Priority:           priority,
	}
	r.ApplicableWeeksHash = r.ComputeWeeksHash()
	return r
}

// ComputeWeeksHash mirrors the original's compute_weeks_hash: a UUIDv5 over
// "all" when ApplicableWeeks is nil, or over the sorted comma-joined week
// list otherwise. Enforces uniqueness per (template, activity, scope).
func (r *RotationActivityRequirement) ComputeWeeksHash() uuid.UUID {
	if r.ApplicableWeeks == nil {
		return uuid.NewSHA1(uuid.NameSpaceDNS, []byte("all"))
	}
	weeks := append([]int(nil), r.ApplicableWeeks...)
	sort.Ints(weeks)
	parts := make([]string, len(weeks))
	for i, w := range weeks {
		parts[i] = strconv.Itoa(w)
	}
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte(strings.Join(parts, ",")))
}

// IsHardConstraint reports whether min == max (an exact requirement).
func (r *RotationActivityRequirement) IsHardConstraint() bool {
	return r.MinHalfdays == r.MaxHalfdays
}

// IsNearHard reports whether the requirement's priority should be treated
// as effectively hard by the solver (priority 91-100).
func (r *RotationActivityRequirement) IsNearHard() bool {
	return r.Priority >= 91
}

// AppliesToWeek reports whether week (1-4) is within scope.
func (r *RotationActivityRequirement) AppliesToWeek(week int) bool {
	if r.ApplicableWeeks == nil {
		return true
	}
	for _, w := range r.ApplicableWeeks {
		if w == week {
			return true
		}
	}
	return false
}

// WeeksDisplay is a human-readable week scope, mirroring the original's
// weeks_display property.
func (r *RotationActivityRequirement) WeeksDisplay() string {
	if r.ApplicableWeeks == nil {
		return "All weeks"
	}
	weeks := append([]int(nil), r.ApplicableWeeks...)
	sort.Ints(weeks)
	parts := make([]string, len(weeks))
	for i, w := range weeks {
		parts[i] = strconv.Itoa(w)
	}
	label := "Week"
	if len(weeks) > 1 {
		label = "Weeks"
	}
	return label + " " + strings.Join(parts, ", ")
}
