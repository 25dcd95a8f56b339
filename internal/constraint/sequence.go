package constraint

import (
	"time"

	"github.com/google/uuid"

	"github.com/schedcu/v2/internal/entity"
)

// PostFMITSundayBlocking (Hard): a resident who ended FMIT on Saturday
// cannot be assigned any duty the immediately following Sunday.
type PostFMITSundayBlocking struct{ Base }

func NewPostFMITSundayBlocking() *PostFMITSundayBlocking {
	return &PostFMITSundayBlocking{Base{
		NameValue: "post_fmit_sunday_blocking", TypeValue: TypeConsecutiveDays,
		PriorityValue: PriorityCritical, Hard: true,
	}}
}

func (c *PostFMITSundayBlocking) Inject(model ModelBuilder, vars *DecisionVars, ctx *SchedulingContext) error {
	return nil
}

func (c *PostFMITSundayBlocking) Validate(assignments []*entity.Assignment, ctx *SchedulingContext) (Result, error) {
	byPerson := AssignmentsByPerson(assignments)
	var violations []Violation
	for personID, list := range byPerson {
		saturdaysOnFMIT := make(map[string]bool)
		sundayAssignments := make(map[string]uuid.UUID)
		for _, a := range list {
			block, ok := ctx.BlockIndex[a.BlockID]
			if !ok {
				continue
			}
			code := ctx.ActivityCodeFor(a)
			if block.Date.Weekday() == time.Saturday && code == "FMIT" {
				saturdaysOnFMIT[block.Date.String()] = true
			}
			if block.Date.Weekday() == time.Sunday {
				sundayAssignments[block.Date.String()] = a.BlockID
			}
		}
		for sat := range saturdaysOnFMIT {
			t, err := time.Parse("2006-01-02", sat)
			if err != nil {
				continue
			}
			sunday := t.AddDate(0, 0, 1).Format("2006-01-02")
			if blockID, ok := sundayAssignments[sunday]; ok {
				pid := personID
				bid := blockID
				violations = append(violations, Violation{
					ConstraintName: c.Name(), ConstraintType: c.Type(), Severity: SeverityCritical,
					Message:  "resident assigned duty the Sunday immediately after ending FMIT on Saturday",
					PersonID: &pid, BlockID: &bid,
				})
			}
		}
	}
	return HardResult(violations...), nil
}

// SequenceConstraint (Hard, parameterized): if a person has
// PrerequisiteActivityCode on day d, FollowUpActivityCode must be
// assigned within MaxGapDays of d (prereq => sum(follow_up) >= 1). The
// rule is checked by Validate only; Inject adds no solver clauses.
type SequenceConstraint struct {
	Base
	PrerequisiteActivityCode string
	FollowUpActivityCode     string
	MaxGapDays               int
}

func NewSequenceConstraint(prereq, followUp string, maxGapDays int) *SequenceConstraint {
	return &SequenceConstraint{
		Base: Base{
			NameValue: "sequence:" + prereq + "->" + followUp, TypeValue: TypeRotation,
			PriorityValue: PriorityHigh, Hard: true,
		},
		PrerequisiteActivityCode: prereq,
		FollowUpActivityCode:     followUp,
		MaxGapDays:               maxGapDays,
	}
}

func (c *SequenceConstraint) Inject(model ModelBuilder, vars *DecisionVars, ctx *SchedulingContext) error {
	// Solver-side expression would require per-activity decision
	// variables (the hybrid engine's Layer 2 structural terms carry
	// activity identity; Layer 3's raw person/block/template variables
	// do not). The rule is enforced by Validate alone; nothing in
	// internal/hybrid expresses it either.
	return nil
}

func (c *SequenceConstraint) Validate(assignments []*entity.Assignment, ctx *SchedulingContext) (Result, error) {
	byPerson := AssignmentsByPerson(assignments)
	var violations []Violation
	for personID, list := range byPerson {
		var prereqDates, followDates []time.Time
		for _, a := range list {
			block, ok := ctx.BlockIndex[a.BlockID]
			if !ok {
				continue
			}
			code := ctx.ActivityCodeFor(a)
			switch code {
			case c.PrerequisiteActivityCode:
				prereqDates = append(prereqDates, block.Date.Time)
			case c.FollowUpActivityCode:
				followDates = append(followDates, block.Date.Time)
			}
		}
		for _, d := range prereqDates {
			satisfied := false
			for _, f := range followDates {
				gap := int(f.Sub(d).Hours() / 24)
				if gap >= 0 && gap <= c.MaxGapDays {
					satisfied = true
					break
				}
			}
			if !satisfied {
				pid := personID
				violations = append(violations, Violation{
					ConstraintName: c.Name(), ConstraintType: c.Type(), Severity: SeverityHigh,
					Message:  "prerequisite activity " + c.PrerequisiteActivityCode + " not followed by " + c.FollowUpActivityCode + " within the required gap",
					PersonID: &pid,
				})
			}
		}
	}
	return HardResult(violations...), nil
}
