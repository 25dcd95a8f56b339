// Package hybrid implements the three-layer hybrid fill of spec.md §4.2:
// protected weekly patterns (L1) pre-commit cells the solver cannot touch,
// per-rotation activity requirements (L2) become structural count
// constraints over the remaining cells, and every other (person, block)
// cell becomes a free decision variable for the solver (L3).
package hybrid

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/schedcu/v2/internal/constraint"
	"github.com/schedcu/v2/internal/entity"
)

// RotationAssignment says a person is on a given rotation for a date
// range — the input the hybrid engine needs to know which weekly
// patterns and activity requirements apply to whom. Spec.md's repository
// interface (§4.9) has no standalone "rotation assignment" entity of its
// own; this is supplied by the generation caller alongside the loaded
// SchedulingContext, the way the original system's rotation calendar
// feeds its scheduler.
type RotationAssignment struct {
	PersonID           uuid.UUID
	RotationTemplateID uuid.UUID
	Start              entity.Date
	End                entity.Date
}

// StructuralRequirement is Layer 2's output: a per-(person, rotation,
// activity, scope) count bound the solver (or its adapter) must enforce
// over the still-free blocks in FreeBlockIDs, plus a soft pull toward
// Target weighted by Priority.
type StructuralRequirement struct {
	PersonID           uuid.UUID
	RotationTemplateID uuid.UUID
	ActivityCode       string
	Min, Max, Target   int
	Priority           int
	FreeBlockIDs       []uuid.UUID
	Feasible           bool
}

// Result is the hybrid engine's full output: Layer 1's locked
// pre-commits, Layer 2's structural requirements, and Layer 3's free
// decision-variable index, ready for constraint.Manager.InjectAll.
type Result struct {
	PreCommitted []*entity.Assignment
	Structural   []StructuralRequirement
	Vars         *constraint.DecisionVars
}

// Engine runs the three layers over a SchedulingContext and a set of
// rotation assignments for the period being generated.
type Engine struct{}

func NewEngine() *Engine { return &Engine{} }

// Run executes L1 -> L2 -> L3 in sequence; each layer only shrinks what
// the next layer sees, never widens it (spec.md §4.2's "additive"
// composition — no layer can override a stricter layer).
func (e *Engine) Run(ctx *constraint.SchedulingContext, assignments []RotationAssignment, createdBy uuid.UUID) (*Result, error) {
	preCommitted, lockedCells := e.runLayer1(ctx, assignments, createdBy)
	structural := e.runLayer2(ctx, assignments, preCommitted)
	vars := e.runLayer3(ctx, assignments, lockedCells)

	log.Debug().
		Int("precommitted", len(preCommitted)).
		Int("structural_requirements", len(structural)).
		Int("free_decision_vars", len(vars.All())).
		Msg("hybrid layer fill complete")

	return &Result{PreCommitted: preCommitted, Structural: structural, Vars: vars}, nil
}

type cellKey struct {
	personID, blockID uuid.UUID
}

// runLayer1 pre-commits every block covered by a protected weekly
// pattern for each (person, rotation) assignment, returning the
// pre-committed assignments and the set of (person, block) cells they
// lock out of Layer 3.
func (e *Engine) runLayer1(ctx *constraint.SchedulingContext, assignments []RotationAssignment, createdBy uuid.UUID) ([]*entity.Assignment, map[cellKey]bool) {
	locked := make(map[cellKey]bool)
	var out []*entity.Assignment

	patternsByTemplate := make(map[uuid.UUID][]*entity.WeeklyPattern)
	for _, p := range ctx.Patterns {
		if p.IsProtected {
			patternsByTemplate[p.RotationTemplateID] = append(patternsByTemplate[p.RotationTemplateID], p)
		}
	}

	for _, ra := range assignments {
		patterns := patternsByTemplate[ra.RotationTemplateID]
		if len(patterns) == 0 {
			continue
		}
		for _, block := range ctx.Blocks {
			if block.Date.Time.Before(ra.Start.Time) || block.Date.Time.After(ra.End.Time) {
				continue
			}
			dow := int(block.Date.Weekday())
			for _, pattern := range patterns {
				if pattern.DayOfWeek != dow || pattern.TimeOfDay != block.TimeOfDay {
					continue
				}
				templateID := ra.RotationTemplateID
				a := entity.NewAssignment(uuid.New(), block.ID, ra.PersonID, entity.AssignmentRolePrimary, createdBy)
				a.RotationTemplateID = &templateID
				a.ActivityOverride = pattern.ActivityCode
				out = append(out, a)
				locked[cellKey{ra.PersonID, block.ID}] = true
			}
		}
	}
	return out, locked
}

// runLayer2 computes, for each requirement scoped to the rotation
// assignment's applicable weeks, the remaining count after subtracting
// Layer 1 pre-commits, and the still-free blocks it could land on.
func (e *Engine) runLayer2(ctx *constraint.SchedulingContext, assignments []RotationAssignment, preCommitted []*entity.Assignment) []StructuralRequirement {
	precommitCountByPersonActivity := make(map[string]int)
	precommitBlocksByPerson := make(map[uuid.UUID]map[uuid.UUID]bool)
	for _, a := range preCommitted {
		precommitCountByPersonActivity[a.PersonID.String()+"_"+a.ActivityOverride]++
		if precommitBlocksByPerson[a.PersonID] == nil {
			precommitBlocksByPerson[a.PersonID] = make(map[uuid.UUID]bool)
		}
		precommitBlocksByPerson[a.PersonID][a.BlockID] = true
	}

	requirementsByTemplate := make(map[uuid.UUID][]*entity.RotationActivityRequirement)
	for _, r := range ctx.Requirements {
		requirementsByTemplate[r.RotationTemplateID] = append(requirementsByTemplate[r.RotationTemplateID], r)
	}

	var out []StructuralRequirement
	for _, ra := range assignments {
		for _, req := range requirementsByTemplate[ra.RotationTemplateID] {
			precommitted := precommitCountByPersonActivity[ra.PersonID.String()+"_"+req.ActivityCode]
			remainingMin := req.MinHalfdays - precommitted
			if remainingMin < 0 {
				remainingMin = 0
			}
			remainingMax := req.MaxHalfdays - precommitted
			remainingTarget := req.TargetHalfdays - precommitted
			if remainingTarget < 0 {
				remainingTarget = 0
			}

			var freeBlocks []uuid.UUID
			for _, block := range ctx.Blocks {
				if block.Date.Time.Before(ra.Start.Time) || block.Date.Time.After(ra.End.Time) {
					continue
				}
				if precommitBlocksByPerson[ra.PersonID][block.ID] {
					continue
				}
				week := weekIndex(ra.Start, block.Date)
				if !req.AppliesToWeek(week) {
					continue
				}
				freeBlocks = append(freeBlocks, block.ID)
			}

			out = append(out, StructuralRequirement{
				PersonID:           ra.PersonID,
				RotationTemplateID: ra.RotationTemplateID,
				ActivityCode:       req.ActivityCode,
				Min:                remainingMin,
				Max:                remainingMax,
				Target:             remainingTarget,
				Priority:           req.Priority,
				FreeBlockIDs:       freeBlocks,
				Feasible:           remainingMax >= 0 && remainingMin <= len(freeBlocks),
			})
		}
	}
	return out
}

// weekIndex returns the 1-based week number of d within a period
// beginning at start.
func weekIndex(start, d entity.Date) int {
	days := int(d.Time.Sub(start.Time).Hours() / 24)
	if days < 0 {
		return 1
	}
	return days/7 + 1
}

// runLayer3 creates a free decision variable for every (person, block,
// rotation) cell not locked by Layer 1, scoped to the rotation
// assignments supplied (and, for persons with no rotation assignment in
// range, no variable is created — they simply have nothing to fill).
func (e *Engine) runLayer3(ctx *constraint.SchedulingContext, assignments []RotationAssignment, locked map[cellKey]bool) *constraint.DecisionVars {
	vars := constraint.NewDecisionVars()
	for _, ra := range assignments {
		for _, block := range ctx.Blocks {
			if block.Date.Time.Before(ra.Start.Time) || block.Date.Time.After(ra.End.Time) {
				continue
			}
			if locked[cellKey{ra.PersonID, block.ID}] {
				continue
			}
			key := constraint.Key(ra.PersonID, block.ID, ra.RotationTemplateID)
			vars.Set(ra.PersonID, block.ID, ra.RotationTemplateID, constraint.VarRef(key))
		}
	}
	return vars
}
