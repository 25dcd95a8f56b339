// Package validation implements the standalone validator of spec.md §4.4:
// given a concrete assignment set and a context, it runs every
// constraint's validate and produces a deterministic, purely functional
// ValidationReport carrying a pass/fail gate and a weighted [0,1] score.
package validation

import (
	"fmt"
	"math"

	"github.com/schedcu/v2/internal/constraint"
	"github.com/schedcu/v2/internal/entity"
	"github.com/schedcu/v2/internal/service/coverage"
)

// Severity re-exports constraint.Severity at the validator's public
// surface as a type alias (the same type, not a distinct one), so callers
// never need to import internal/constraint just to read a report.
type Severity = constraint.Severity

const (
	SeverityCritical = constraint.SeverityCritical
	SeverityHigh     = constraint.SeverityHigh
	SeverityMedium   = constraint.SeverityMedium
	SeverityLow      = constraint.SeverityLow
)

// Violation is a single constraint failure surfaced by a ValidationReport.
type Violation = constraint.Violation

// acgmeConstraintNames are the hard constraints whose violations feed the
// acgme_compliance scoring component.
var acgmeConstraintNames = map[string]bool{
	"80_hour_rule": true, "1_in_7_rule": true,
	"supervision_ratio": true, "resident_inpatient_headcount": true,
}

// resilienceConstraintNames feed the resilience scoring component.
var resilienceConstraintNames = map[string]bool{
	"resilience": true, "hub_protection": true, "utilization_buffer": true,
}

// preferenceConstraintNames feed the preference_alignment scoring
// component.
var preferenceConstraintNames = map[string]bool{
	"tuesday_call_preference": true,
}

// ComponentScores is the [0,1] breakdown of the weighted score, surfaced
// for audit/debugging even though only Score (the weighted sum) gates
// anything.
type ComponentScores struct {
	ACGMECompliance     float64
	CoverageRate        float64
	Resilience          float64
	LoadBalance         float64
	PreferenceAlignment float64
}

// Weights is the scoring-component weight map; spec.md §9 requires the
// five keys to sum to 1.0 ± 0.001.
type Weights struct {
	ACGMECompliance     float64
	CoverageRate        float64
	Resilience          float64
	LoadBalance         float64
	PreferenceAlignment float64
}

// DefaultWeights is spec.md §4.4's fixed default.
func DefaultWeights() Weights {
	return Weights{
		ACGMECompliance: 0.30, CoverageRate: 0.25, Resilience: 0.15,
		LoadBalance: 0.15, PreferenceAlignment: 0.15,
	}
}

// Validate checks the weights sum to 1.0 within spec.md's ±0.001
// tolerance.
func (w Weights) Validate() error {
	sum := w.ACGMECompliance + w.CoverageRate + w.Resilience + w.LoadBalance + w.PreferenceAlignment
	if sum < 0.999 || sum > 1.001 {
		return entity.NewValidation(fmt.Sprintf("scoring weights must sum to 1.0 ± 0.001, got %.4f", sum))
	}
	return nil
}

// CriticalFailScoreCap is the max score reported when any critical
// violation is present (spec.md §9's validator.critical_fail_score_cap,
// default 0.0).
const CriticalFailScoreCap = 0.0

// Report is the validator's full, deterministic output.
type Report struct {
	Valid      bool
	Score      float64
	Components ComponentScores
	Violations []Violation
}

// Summary is a short human-readable description, in the teacher's
// validation.Result.Summary() style.
func (r *Report) Summary() string {
	if len(r.Violations) == 0 {
		return fmt.Sprintf("validation passed: score %.3f, no violations", r.Score)
	}
	counts := make(map[Severity]int)
	for _, v := range r.Violations {
		counts[v.Severity]++
	}
	return fmt.Sprintf("validation %s: score %.3f, %d critical, %d high, %d medium, %d low",
		validityWord(r.Valid), r.Score, counts[SeverityCritical], counts[SeverityHigh],
		counts[SeverityMedium], counts[SeverityLow])
}

func validityWord(valid bool) string {
	if valid {
		return "passed"
	}
	return "failed"
}

// CriticalViolations filters the report down to critical-severity
// violations, the ones that force Valid=false.
func (r *Report) CriticalViolations() []Violation {
	var out []Violation
	for _, v := range r.Violations {
		if v.Severity == SeverityCritical {
			out = append(out, v)
		}
	}
	return out
}

// Validate runs manager.ValidateAll over assignments/ctx and reduces the
// result to a ValidationReport: valid iff every hard constraint is
// satisfied, score as the weighted aggregate of five [0,1] components.
// requiredByActivity feeds the coverage_rate component (see
// internal/service/coverage.RequiredFromRequirements for the usual
// source). Purely functional: identical inputs produce identical output.
func Validate(
	assignments []*entity.Assignment,
	ctx *constraint.SchedulingContext,
	manager *constraint.Manager,
	requiredByActivity map[string]int,
	weights Weights,
) (*Report, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}

	cr, err := manager.ValidateAll(assignments, ctx)
	if err != nil {
		return nil, err
	}

	components := ComponentScores{
		ACGMECompliance:     1 - violationRatio(cr.AllViolations, acgmeConstraintNames, len(assignments)),
		CoverageRate:        coverage.Rate(assignments, ctx, requiredByActivity),
		Resilience:          1 - violationRatio(cr.AllViolations, resilienceConstraintNames, len(assignments)),
		LoadBalance:         1 - loadImbalanceRatio(assignments),
		PreferenceAlignment: 1 - violationRatio(cr.AllViolations, preferenceConstraintNames, len(assignments)),
	}

	score := weights.ACGMECompliance*components.ACGMECompliance +
		weights.CoverageRate*components.CoverageRate +
		weights.Resilience*components.Resilience +
		weights.LoadBalance*components.LoadBalance +
		weights.PreferenceAlignment*components.PreferenceAlignment

	hasCritical := false
	for _, v := range cr.AllViolations {
		if v.Severity == SeverityCritical {
			hasCritical = true
			break
		}
	}
	if hasCritical && score > CriticalFailScoreCap {
		score = CriticalFailScoreCap
	}

	return &Report{
		Valid:      cr.Valid,
		Score:      clamp01(score),
		Components: components,
		Violations: cr.AllViolations,
	}, nil
}

// violationRatio is the fraction of assignments "touched" by a violation
// whose constraint name is in names, clamped to [0,1]. With no
// assignments, an empty violation set scores a clean 0 ratio (full
// marks); a nonempty one scores 1 (total failure), since there is
// nothing to normalize against.
func violationRatio(violations []Violation, names map[string]bool, assignmentCount int) float64 {
	count := 0
	for _, v := range violations {
		if names[v.ConstraintName] {
			count++
		}
	}
	if count == 0 {
		return 0
	}
	if assignmentCount == 0 {
		return 1
	}
	ratio := float64(count) / float64(assignmentCount)
	if ratio > 1 {
		ratio = 1
	}
	return ratio
}

// loadImbalanceRatio measures the coefficient of variation of
// per-person assignment counts, clamped to [0,1] — a simple proxy for
// the load_balance scoring component until a richer fairness metric is
// warranted.
func loadImbalanceRatio(assignments []*entity.Assignment) float64 {
	byPerson := constraint.AssignmentsByPerson(assignments)
	if len(byPerson) < 2 {
		return 0
	}
	counts := make([]float64, 0, len(byPerson))
	total := 0.0
	for _, list := range byPerson {
		n := float64(len(list))
		counts = append(counts, n)
		total += n
	}
	mean := total / float64(len(counts))
	if mean == 0 {
		return 0
	}
	variance := 0.0
	for _, c := range counts {
		d := c - mean
		variance += d * d
	}
	variance /= float64(len(counts))
	cv := math.Sqrt(variance) / mean
	if cv > 1 {
		cv = 1
	}
	return cv
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
