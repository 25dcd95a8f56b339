package constraint

import (
	"github.com/schedcu/v2/internal/entity"
)

// OnePersonPerBlock (Hard): (block, person) assignments are unique — a
// person occupies at most one decision slot per block.
type OnePersonPerBlock struct{ Base }

func NewOnePersonPerBlock() *OnePersonPerBlock {
	return &OnePersonPerBlock{Base{
		NameValue: "one_person_per_block", TypeValue: TypeCapacity,
		PriorityValue: PriorityCritical, Hard: true,
	}}
}

func (c *OnePersonPerBlock) Inject(model ModelBuilder, vars *DecisionVars, ctx *SchedulingContext) error {
	seen := make(map[string]bool)
	for personID := range ctx.PersonIndex {
		for _, block := range ctx.Blocks {
			k := personID.String() + "_" + block.ID.String()
			if seen[k] {
				continue
			}
			seen[k] = true
			terms := vars.ForPersonBlock(personID, block.ID)
			if len(terms) <= 1 {
				continue
			}
			model.AddLinearLE(terms, 1, c.Name()+":"+k)
		}
	}
	return nil
}

func (c *OnePersonPerBlock) Validate(assignments []*entity.Assignment, ctx *SchedulingContext) (Result, error) {
	counts := make(map[string]int)
	for _, a := range assignments {
		counts[a.Key()]++
	}
	var violations []Violation
	for _, a := range assignments {
		if counts[a.Key()] > 1 {
			personID, blockID := a.PersonID, a.BlockID
			violations = append(violations, Violation{
				ConstraintName: c.Name(), ConstraintType: c.Type(), Severity: SeverityCritical,
				Message:  "person has more than one assignment for this block",
				PersonID: &personID, BlockID: &blockID,
			})
		}
	}
	return HardResult(dedupeViolations(violations)...), nil
}

func dedupeViolations(in []Violation) []Violation {
	seen := make(map[string]bool)
	var out []Violation
	for _, v := range in {
		if v.BlockID != nil && v.PersonID != nil {
			k := v.PersonID.String() + "_" + v.BlockID.String()
			if seen[k] {
				continue
			}
			seen[k] = true
		}
		out = append(out, v)
	}
	return out
}
