package constraint

import (
	"github.com/schedcu/v2/internal/entity"
)

// AvailabilityConstraint (Hard): no assignment may reference a person who
// is absent on that block's date.
type AvailabilityConstraint struct{ Base }

func NewAvailabilityConstraint() *AvailabilityConstraint {
	return &AvailabilityConstraint{Base{
		NameValue: "availability", TypeValue: TypeAvailability,
		PriorityValue: PriorityCritical, Hard: true,
	}}
}

func (c *AvailabilityConstraint) Inject(model ModelBuilder, vars *DecisionVars, ctx *SchedulingContext) error {
	// A person absent on a block's date simply never gets a decision
	// variable created for that (person, block, *) triple — enforced by
	// the pruner (internal/pruner) before the solver builds variables at
	// all. Inject is a no-op safety net: if a variable somehow exists for
	// an absent person, pin it to zero.
	for personID, p := range ctx.PersonIndex {
		_ = p
		for _, block := range ctx.Blocks {
			if !ctx.IsAbsent(personID, block.Date) {
				continue
			}
			terms := vars.ForPersonBlock(personID, block.ID)
			if len(terms) == 0 {
				continue
			}
			model.AddLinearLE(terms, 0, c.Name()+":"+personID.String()+":"+block.ID.String())
		}
	}
	return nil
}

func (c *AvailabilityConstraint) Validate(assignments []*entity.Assignment, ctx *SchedulingContext) (Result, error) {
	var violations []Violation
	for _, a := range assignments {
		block, ok := ctx.BlockIndex[a.BlockID]
		if !ok {
			continue
		}
		if ctx.IsAbsent(a.PersonID, block.Date) {
			personID, blockID := a.PersonID, a.BlockID
			violations = append(violations, Violation{
				ConstraintName: c.Name(), ConstraintType: c.Type(), Severity: SeverityCritical,
				Message:  "person is absent on the assigned date",
				PersonID: &personID, BlockID: &blockID,
			})
		}
	}
	return HardResult(violations...), nil
}
