package constraint

import (
	"github.com/schedcu/v2/internal/entity"
)

// ResilienceConstraint (Soft): penalizes assignments that concentrate
// load on faculty flagged as N1-vulnerable (single point of failure if
// they become unavailable), per SchedulingContext.N1VulnerableFaculty.
type ResilienceConstraint struct{ Base }

func NewResilienceConstraint() *ResilienceConstraint {
	return &ResilienceConstraint{Base{
		NameValue: "resilience", TypeValue: TypeResilience,
		PriorityValue: PriorityMedium, Hard: false, WeightValue: 4.0,
	}}
}

func (c *ResilienceConstraint) Inject(model ModelBuilder, vars *DecisionVars, ctx *SchedulingContext) error {
	return nil
}

func (c *ResilienceConstraint) Validate(assignments []*entity.Assignment, ctx *SchedulingContext) (Result, error) {
	var violations []Violation
	for _, a := range assignments {
		if !ctx.N1VulnerableFaculty[a.PersonID] {
			continue
		}
		if a.Role != entity.AssignmentRoleSupervising {
			continue
		}
		pid := a.PersonID
		violations = append(violations, Violation{
			ConstraintName: c.Name(), ConstraintType: c.Type(), Severity: SeverityLow,
			Message:  "assignment relies on an N1-vulnerable faculty member's sole coverage",
			PersonID: &pid,
		})
	}
	return SoftResult(c.WeightValue, c.PriorityValue, violations...), nil
}

// HubProtectionConstraint (Soft): penalizes over-scheduling "hub" people
// (high HubScores — central to many coverage paths) beyond a threshold
// share of blocks, to protect network resilience.
type HubProtectionConstraint struct {
	Base
	HubScoreThreshold float64
}

func NewHubProtectionConstraint(threshold float64) *HubProtectionConstraint {
	return &HubProtectionConstraint{
		Base: Base{
			NameValue: "hub_protection", TypeValue: TypeHubProtection,
			PriorityValue: PriorityMedium, Hard: false, WeightValue: 3.0,
		},
		HubScoreThreshold: threshold,
	}
}

func (c *HubProtectionConstraint) Inject(model ModelBuilder, vars *DecisionVars, ctx *SchedulingContext) error {
	return nil
}

func (c *HubProtectionConstraint) Validate(assignments []*entity.Assignment, ctx *SchedulingContext) (Result, error) {
	counts := make(map[string]int)
	for _, a := range assignments {
		counts[a.PersonID.String()]++
	}
	var violations []Violation
	for personID, score := range ctx.HubScores {
		if score < c.HubScoreThreshold {
			continue
		}
		if counts[personID.String()] <= len(ctx.Blocks)/2 {
			continue
		}
		pid := personID
		violations = append(violations, Violation{
			ConstraintName: c.Name(), ConstraintType: c.Type(), Severity: SeverityLow,
			Message:  "high hub-score person over-scheduled, concentrating network risk",
			PersonID: &pid,
		})
	}
	return SoftResult(c.WeightValue, c.PriorityValue, violations...), nil
}

// UtilizationBufferConstraint (Soft): keeps each person's utilization
// below a buffer threshold so capacity remains to absorb unplanned
// absences elsewhere in the schedule.
type UtilizationBufferConstraint struct {
	Base
	BufferThreshold float64
}

func NewUtilizationBufferConstraint(threshold float64) *UtilizationBufferConstraint {
	return &UtilizationBufferConstraint{
		Base: Base{
			NameValue: "utilization_buffer", TypeValue: TypeUtilizationBuffer,
			PriorityValue: PriorityLow, Hard: false, WeightValue: 2.0,
		},
		BufferThreshold: threshold,
	}
}

func (c *UtilizationBufferConstraint) Inject(model ModelBuilder, vars *DecisionVars, ctx *SchedulingContext) error {
	return nil
}

func (c *UtilizationBufferConstraint) Validate(assignments []*entity.Assignment, ctx *SchedulingContext) (Result, error) {
	var violations []Violation
	for personID, util := range ctx.CurrentUtilization {
		if util <= c.BufferThreshold {
			continue
		}
		pid := personID
		violations = append(violations, Violation{
			ConstraintName: c.Name(), ConstraintType: c.Type(), Severity: SeverityLow,
			Message:  "person utilization exceeds the configured resilience buffer",
			PersonID: &pid,
		})
	}
	return SoftResult(c.WeightValue, c.PriorityValue, violations...), nil
}
