package constraint

import (
	"fmt"

	"github.com/schedcu/v2/internal/entity"
)

// SupervisionRatio (Hard): for every (block, rotation with
// SupervisionRequired), primary residents <= MaxSupervisionRatio *
// supervising faculty present.
type SupervisionRatio struct{ Base }

func NewSupervisionRatio() *SupervisionRatio {
	return &SupervisionRatio{Base{
		NameValue: "supervision_ratio", TypeValue: TypeSupervision,
		PriorityValue: PriorityCritical, Hard: true,
	}}
}

func (c *SupervisionRatio) Inject(model ModelBuilder, vars *DecisionVars, ctx *SchedulingContext) error {
	return nil
}

func (c *SupervisionRatio) Validate(assignments []*entity.Assignment, ctx *SchedulingContext) (Result, error) {
	type counts struct {
		primary, supervising int
	}
	byBlockTemplate := make(map[string]*counts)
	for _, a := range assignments {
		if a.RotationTemplateID == nil {
			continue
		}
		tmpl, ok := ctx.TemplateIndex[*a.RotationTemplateID]
		if !ok || !tmpl.SupervisionRequired {
			continue
		}
		k := a.BlockID.String() + "_" + tmpl.ID.String()
		if byBlockTemplate[k] == nil {
			byBlockTemplate[k] = &counts{}
		}
		switch a.Role {
		case entity.AssignmentRolePrimary:
			byBlockTemplate[k].primary++
		case entity.AssignmentRoleSupervising:
			byBlockTemplate[k].supervising++
		}
	}
	var violations []Violation
	for _, a := range assignments {
		if a.RotationTemplateID == nil {
			continue
		}
		tmpl, ok := ctx.TemplateIndex[*a.RotationTemplateID]
		if !ok || !tmpl.SupervisionRequired {
			continue
		}
		k := a.BlockID.String() + "_" + tmpl.ID.String()
		cnt := byBlockTemplate[k]
		ratio := tmpl.MaxSupervisionRatio
		if ratio <= 0 {
			ratio = 4
		}
		if cnt.supervising == 0 && cnt.primary > 0 || cnt.primary > ratio*cnt.supervising {
			blockID := a.BlockID
			violations = append(violations, Violation{
				ConstraintName: c.Name(), ConstraintType: c.Type(), Severity: SeverityCritical,
				Message: fmt.Sprintf("rotation %s: %d primary residents exceed ratio %d x %d supervising faculty",
					tmpl.Abbreviation, cnt.primary, ratio, cnt.supervising),
				BlockID: &blockID,
			})
		}
	}
	return HardResult(dedupeViolations(violations)...), nil
}

// ResidentInpatientHeadcount (Hard, Block 10 policy): every inpatient
// block carries exactly the required headcount. "Inpatient" rotations
// are identified by RotationTemplate.ActivityType == "inpatient"; the
// required headcount is the template's MaxResidents (the original's
// Block 10 policy models inpatient capacity as a fixed, not maximum,
// headcount).
type ResidentInpatientHeadcount struct{ Base }

func NewResidentInpatientHeadcount() *ResidentInpatientHeadcount {
	return &ResidentInpatientHeadcount{Base{
		NameValue: "resident_inpatient_headcount", TypeValue: TypeCapacity,
		PriorityValue: PriorityCritical, Hard: true,
	}}
}

func (c *ResidentInpatientHeadcount) Inject(model ModelBuilder, vars *DecisionVars, ctx *SchedulingContext) error {
	return nil
}

func (c *ResidentInpatientHeadcount) Validate(assignments []*entity.Assignment, ctx *SchedulingContext) (Result, error) {
	counts := make(map[string]int) // blockID_templateID -> resident count
	for _, a := range assignments {
		if a.RotationTemplateID == nil || a.Role != entity.AssignmentRolePrimary {
			continue
		}
		tmpl, ok := ctx.TemplateIndex[*a.RotationTemplateID]
		if !ok || tmpl.ActivityType != "inpatient" {
			continue
		}
		counts[a.BlockID.String()+"_"+tmpl.ID.String()]++
	}
	// Only blocks actually touched by the inpatient rotation are checked:
	// the template's scheduled footprint (which blocks it covers) is a
	// hybrid-layer concern (weekly patterns), not something this
	// standalone validator can infer on its own.
	touchedBlocks := make(map[string]bool)
	for _, a := range assignments {
		if a.RotationTemplateID == nil {
			continue
		}
		if tmpl, ok := ctx.TemplateIndex[*a.RotationTemplateID]; ok && tmpl.ActivityType == "inpatient" {
			touchedBlocks[a.BlockID.String()+"_"+tmpl.ID.String()] = true
		}
	}
	var violations []Violation
	for _, tmpl := range ctx.Templates {
		if tmpl.ActivityType != "inpatient" || tmpl.MaxResidents <= 0 {
			continue
		}
		for _, block := range ctx.Blocks {
			k := block.ID.String() + "_" + tmpl.ID.String()
			if !touchedBlocks[k] {
				continue
			}
			if counts[k] != tmpl.MaxResidents {
				blockID := block.ID
				violations = append(violations, Violation{
					ConstraintName: c.Name(), ConstraintType: c.Type(), Severity: SeverityCritical,
					Message: fmt.Sprintf("inpatient rotation %s requires exactly %d residents, found %d",
						tmpl.Abbreviation, tmpl.MaxResidents, counts[k]),
					BlockID: &blockID,
				})
			}
		}
	}
	return HardResult(violations...), nil
}
