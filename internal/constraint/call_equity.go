package constraint

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/schedcu/v2/internal/entity"
)

func uuidMustParse(s string) *uuid.UUID {
	id, err := uuid.Parse(s)
	if err != nil {
		return nil
	}
	return &id
}

// Weight hierarchy is part of the contract (spec.md §4.1.2): 10 > 8 > 5 > 2.
const (
	WeightSundayCallEquity    = 10.0
	WeightCallSpacing         = 8.0
	WeightWeekdayCallEquity   = 5.0
	WeightTuesdayCallPref     = 2.0
)

// SundayCallEquityConstraint (Soft, weight=10): minimizes the variance of
// Sunday call counts across eligible faculty.
type SundayCallEquityConstraint struct{ Base }

func NewSundayCallEquityConstraint() *SundayCallEquityConstraint {
	return &SundayCallEquityConstraint{Base{
		NameValue: "sunday_call_equity", TypeValue: TypeEquity,
		PriorityValue: PriorityMedium, Hard: false, WeightValue: WeightSundayCallEquity,
	}}
}

func (c *SundayCallEquityConstraint) Inject(model ModelBuilder, vars *DecisionVars, ctx *SchedulingContext) error {
	return nil
}

func (c *SundayCallEquityConstraint) Validate(assignments []*entity.Assignment, ctx *SchedulingContext) (Result, error) {
	counts := sundayCallCounts(ctx)
	if len(counts) == 0 {
		return Result{Satisfied: true}, nil
	}
	variance := populationVariance(counts)
	if variance == 0 {
		return Result{Satisfied: true}, nil
	}
	violations := []Violation{{
		ConstraintName: c.Name(), ConstraintType: c.Type(), Severity: SeverityLow,
		Message: "Sunday call count variance across eligible faculty is nonzero",
	}}
	result := SoftResult(c.WeightValue, c.PriorityValue, violations...)
	result.Penalty = c.WeightValue * variance
	return result, nil
}

func sundayCallCounts(ctx *SchedulingContext) []float64 {
	byPerson := make(map[string]int)
	for _, call := range ctx.CallAssignments {
		if call.Date.Weekday() != time.Sunday {
			continue
		}
		byPerson[call.PersonID.String()]++
	}
	counts := make([]float64, 0, len(byPerson))
	for _, n := range byPerson {
		counts = append(counts, float64(n))
	}
	return counts
}

func populationVariance(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	mean := 0.0
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	variance := 0.0
	for _, x := range xs {
		variance += (x - mean) * (x - mean)
	}
	return variance / float64(len(xs))
}

// CallSpacingConstraint (Soft, weight=8): minimum days between successive
// calls for the same person; each violation below MinDaysBetween adds
// weighted penalty.
type CallSpacingConstraint struct {
	Base
	MinDaysBetween int
}

func NewCallSpacingConstraint(minDaysBetween int) *CallSpacingConstraint {
	return &CallSpacingConstraint{
		Base: Base{
			NameValue: "call_spacing", TypeValue: TypeCall,
			PriorityValue: PriorityMedium, Hard: false, WeightValue: WeightCallSpacing,
		},
		MinDaysBetween: minDaysBetween,
	}
}

func (c *CallSpacingConstraint) Inject(model ModelBuilder, vars *DecisionVars, ctx *SchedulingContext) error {
	return nil
}

func (c *CallSpacingConstraint) Validate(assignments []*entity.Assignment, ctx *SchedulingContext) (Result, error) {
	byPerson := make(map[string][]time.Time)
	for _, call := range ctx.CallAssignments {
		byPerson[call.PersonID.String()] = append(byPerson[call.PersonID.String()], call.Date.Time)
	}
	var violations []Violation
	for personIDStr, dates := range byPerson {
		sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
		for i := 1; i < len(dates); i++ {
			gap := int(dates[i].Sub(dates[i-1]).Hours() / 24)
			if gap < c.MinDaysBetween {
				pid := uuidMustParse(personIDStr)
				violations = append(violations, Violation{
					ConstraintName: c.Name(), ConstraintType: c.Type(), Severity: SeverityLow,
					Message:  "successive calls spaced fewer than the minimum required days apart",
					PersonID: pid,
				})
			}
		}
	}
	return SoftResult(c.WeightValue, c.PriorityValue, violations...), nil
}

// WeekdayCallEquityConstraint (Soft, weight=5): weekday call distribution
// variance minimized.
type WeekdayCallEquityConstraint struct{ Base }

func NewWeekdayCallEquityConstraint() *WeekdayCallEquityConstraint {
	return &WeekdayCallEquityConstraint{Base{
		NameValue: "weekday_call_equity", TypeValue: TypeEquity,
		PriorityValue: PriorityMedium, Hard: false, WeightValue: WeightWeekdayCallEquity,
	}}
}

func (c *WeekdayCallEquityConstraint) Inject(model ModelBuilder, vars *DecisionVars, ctx *SchedulingContext) error {
	return nil
}

func (c *WeekdayCallEquityConstraint) Validate(assignments []*entity.Assignment, ctx *SchedulingContext) (Result, error) {
	byPerson := make(map[string]int)
	for _, call := range ctx.CallAssignments {
		wd := call.Date.Weekday()
		if wd == time.Saturday || wd == time.Sunday {
			continue
		}
		byPerson[call.PersonID.String()]++
	}
	counts := make([]float64, 0, len(byPerson))
	for _, n := range byPerson {
		counts = append(counts, float64(n))
	}
	variance := populationVariance(counts)
	if variance == 0 {
		return Result{Satisfied: true}, nil
	}
	result := SoftResult(c.WeightValue, c.PriorityValue, Violation{
		ConstraintName: c.Name(), ConstraintType: c.Type(), Severity: SeverityLow,
		Message: "weekday call count variance across eligible people is nonzero",
	})
	result.Penalty = c.WeightValue * variance
	return result, nil
}

// TuesdayCallPreferenceConstraint (Soft, weight=2): prefer Tuesday
// placements consistent with academic scheduling. Every call on a
// Monday, Wednesday, Thursday or Friday counts as one violation; Tuesday
// and weekend calls are not penalized.
type TuesdayCallPreferenceConstraint struct{ Base }

func NewTuesdayCallPreferenceConstraint() *TuesdayCallPreferenceConstraint {
	return &TuesdayCallPreferenceConstraint{Base{
		NameValue: "tuesday_call_preference", TypeValue: TypePreference,
		PriorityValue: PriorityLow, Hard: false, WeightValue: WeightTuesdayCallPref,
	}}
}

func (c *TuesdayCallPreferenceConstraint) Inject(model ModelBuilder, vars *DecisionVars, ctx *SchedulingContext) error {
	return nil
}

func (c *TuesdayCallPreferenceConstraint) Validate(assignments []*entity.Assignment, ctx *SchedulingContext) (Result, error) {
	var violations []Violation
	for _, call := range ctx.CallAssignments {
		wd := call.Date.Weekday()
		if wd == time.Saturday || wd == time.Sunday || wd == time.Tuesday {
			continue
		}
		pid := call.PersonID
		violations = append(violations, Violation{
			ConstraintName: c.Name(), ConstraintType: c.Type(), Severity: SeverityLow,
			Message:  "call placed on a non-Tuesday weeknight",
			PersonID: &pid,
		})
	}
	return SoftResult(c.WeightValue, c.PriorityValue, violations...), nil
}
