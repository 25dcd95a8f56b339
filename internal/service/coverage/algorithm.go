// Package coverage provides pure functional algorithms for activity
// coverage resolution without side effects, database access, or external
// I/O — the shape backing the validator's coverage_rate scoring
// component (spec.md §4.4).
package coverage

import (
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/schedcu/v2/internal/constraint"
	"github.com/schedcu/v2/internal/entity"
)

// CoverageDetail represents staffing status for a single activity code.
type CoverageDetail struct {
	ActivityCode       string
	Required           int
	Assigned           int // unique person count; one person on several blocks counts once
	CoveragePercentage float64
	Status             CoverageStatus
}

// CoverageStatus represents the staffing status of an activity.
type CoverageStatus string

const (
	StatusFull      CoverageStatus = "FULL"
	StatusPartial   CoverageStatus = "PARTIAL"
	StatusUncovered CoverageStatus = "UNCOVERED"
)

// CoverageMetrics represents the complete coverage analysis across all
// activities with a declared requirement.
type CoverageMetrics struct {
	CoverageByActivity       map[string]CoverageDetail
	OverallCoveragePercentage float64
	UnderStaffedActivities   []string
	OverStaffedActivities    []string
	Summary                  string
}

// RequiredFromRequirements sums TargetHalfdays per activity code across a
// context's RotationActivityRequirement rows, the default requirement
// source for ResolveCoverage when a caller has no independent figure.
func RequiredFromRequirements(reqs []*entity.RotationActivityRequirement) map[string]int {
	out := make(map[string]int)
	for _, r := range reqs {
		out[r.ActivityCode] += r.TargetHalfdays
	}
	return out
}

// ResolveCoverage is a pure function computing coverage metrics from
// assignments against a required-count-per-activity-code map.
//
// Algorithm:
//  1. Group assignments by the activity code they resolve to (ctx.ActivityCodeFor).
//  2. Count unique persons per activity code.
//  3. Compare assigned count vs required count, capped at 100%.
//  4. Classify each activity as FULL, PARTIAL, or UNCOVERED.
//  5. Aggregate overall metrics.
//
// Edge cases: zero requirement → excluded from the denominator (no
// shifts to cover is a valid schedule); zero assignments → UNCOVERED;
// soft-deleted assignments are skipped.
func ResolveCoverage(
	assignments []*entity.Assignment,
	ctx *constraint.SchedulingContext,
	requiredByActivity map[string]int,
) CoverageMetrics {
	metrics := CoverageMetrics{
		CoverageByActivity:     make(map[string]CoverageDetail),
		UnderStaffedActivities: []string{},
		OverStaffedActivities:  []string{},
	}

	if len(requiredByActivity) == 0 {
		metrics.Summary = "No activity requirements defined"
		return metrics
	}

	assignedPeople := make(map[string]map[uuid.UUID]bool, len(requiredByActivity))
	for code := range requiredByActivity {
		assignedPeople[code] = make(map[uuid.UUID]bool)
	}

	for _, a := range assignments {
		if a.IsDeleted() {
			continue
		}
		code := ctx.ActivityCodeFor(a)
		if bucket, ok := assignedPeople[code]; ok {
			bucket[a.PersonID] = true
		}
	}

	totalAssigned, totalRequired := 0, 0
	for code, required := range requiredByActivity {
		if required < 0 {
			continue
		}
		assigned := len(assignedPeople[code])
		pct := coveragePercentage(assigned, required)
		status := coverageStatus(assigned, required)

		metrics.CoverageByActivity[code] = CoverageDetail{
			ActivityCode: code, Required: required, Assigned: assigned,
			CoveragePercentage: pct, Status: status,
		}

		totalAssigned += assigned
		totalRequired += required

		switch {
		case assigned < required:
			metrics.UnderStaffedActivities = append(metrics.UnderStaffedActivities, code)
		case assigned > required:
			metrics.OverStaffedActivities = append(metrics.OverStaffedActivities, code)
		}
	}

	metrics.OverallCoveragePercentage = coveragePercentage(totalAssigned, totalRequired)
	metrics.Summary = buildSummary(metrics, len(requiredByActivity))
	return metrics
}

// Rate returns the overall coverage percentage as a [0,1] fraction, the
// direct input to the validator's coverage_rate scoring component.
func Rate(assignments []*entity.Assignment, ctx *constraint.SchedulingContext, requiredByActivity map[string]int) float64 {
	return ResolveCoverage(assignments, ctx, requiredByActivity).OverallCoveragePercentage / 100.0
}

func coveragePercentage(assigned, required int) float64 {
	if required == 0 {
		return 0
	}
	pct := (float64(assigned) / float64(required)) * 100
	if pct > 100 {
		pct = 100
	}
	return math.Round(pct*100) / 100
}

func coverageStatus(assigned, required int) CoverageStatus {
	if assigned >= required {
		return StatusFull
	}
	if assigned > 0 {
		return StatusPartial
	}
	return StatusUncovered
}

func buildSummary(metrics CoverageMetrics, totalActivities int) string {
	partial := 0
	for _, d := range metrics.CoverageByActivity {
		if d.Status == StatusPartial {
			partial++
		}
	}
	uncovered := len(metrics.UnderStaffedActivities) - partial

	if len(metrics.UnderStaffedActivities) == 0 {
		return fmt.Sprintf("Full coverage: %d activities fully staffed (%.1f%% overall)",
			totalActivities, metrics.OverallCoveragePercentage)
	}
	full := totalActivities - len(metrics.UnderStaffedActivities) - len(metrics.OverStaffedActivities)
	return fmt.Sprintf("Coverage: %d full, %d partial, %d uncovered (%.1f%% overall)",
		full, partial, uncovered, metrics.OverallCoveragePercentage)
}
