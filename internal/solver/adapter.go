package solver

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/schedcu/v2/internal/constraint"
	"github.com/schedcu/v2/internal/entity"
	"github.com/schedcu/v2/internal/hybrid"
)

// Status is the terminal state of a Solve call.
type Status string

const (
	StatusFeasible   Status = "feasible"
	StatusInfeasible Status = "infeasible"
	StatusAborted    Status = "aborted"
	StatusTimedOut   Status = "timed_out"
)

// Options bounds the solve loop, per spec.md §6.1's generate_schedule
// timeout_seconds/max_iterations and §6.3's heartbeat.
type Options struct {
	TimeoutSeconds int
	MaxIterations  int
	HeartbeatMS    int
}

func (o Options) heartbeat() time.Duration {
	if o.HeartbeatMS <= 0 {
		return heartbeat
	}
	return time.Duration(o.HeartbeatMS) * time.Millisecond
}

// Result is a Solve call's full outcome.
type Result struct {
	Status      Status
	Assignments []*entity.Assignment
	Objective   float64
	Iterations  int
	Report      *constraint.Report // the authoritative post-solve validation
	ConflictSet []string           // populated when Status == StatusInfeasible
}

// Adapter is the constraint-propagation-plus-greedy solve engine
// implementing the capability spec.md §4.3 asks of "the solver": build a
// model from injected constraints, fill free decision variables toward
// each Layer 2 structural requirement's target under hard-constraint
// bounds, and extract a solution (or report infeasibility/abort).
type Adapter struct{}

func NewAdapter() *Adapter { return &Adapter{} }

// Solve runs one solve attempt over a hybrid engine Result. assignedBy
// stamps every produced entity.Assignment's CreatedBy.
func (a *Adapter) Solve(
	stdctx context.Context,
	sctx *constraint.SchedulingContext,
	hr *hybrid.Result,
	manager *constraint.Manager,
	opts Options,
	tracker *ProgressTracker,
	abort *AbortFlag,
	assignedBy uuid.UUID,
) (*Result, error) {
	model := NewModel(hr.Vars)
	if err := manager.InjectAll(model, hr.Vars, sctx); err != nil {
		return nil, err
	}

	start := time.Now()
	deadline := time.Time{}
	if opts.TimeoutSeconds > 0 {
		deadline = start.Add(time.Duration(opts.TimeoutSeconds) * time.Second)
	}

	requirements := sortedRequirements(hr.Structural)

	assignedBlocks := make(map[uuid.UUID]map[uuid.UUID]bool) // personID -> blockID -> true
	for _, pc := range hr.PreCommitted {
		if assignedBlocks[pc.PersonID] == nil {
			assignedBlocks[pc.PersonID] = make(map[uuid.UUID]bool)
		}
		assignedBlocks[pc.PersonID][pc.BlockID] = true
	}

	var produced []*entity.Assignment
	iterations := 0
	status := StatusFeasible

requirementLoop:
	for _, req := range requirements {
		iterations++
		if opts.MaxIterations > 0 && iterations > opts.MaxIterations {
			status = StatusTimedOut
			break
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			status = StatusTimedOut
			break
		}
		if abort != nil && abort.Requested() {
			status = StatusAborted
			break
		}

		if !req.Feasible {
			status = StatusInfeasible
			break requirementLoop
		}

		target := req.Target
		if target < req.Min {
			target = req.Min
		}
		if target > req.Max {
			target = req.Max
		}

		if assignedBlocks[req.PersonID] == nil {
			assignedBlocks[req.PersonID] = make(map[uuid.UUID]bool)
		}

		filled := 0
		for _, blockID := range req.FreeBlockIDs {
			if filled >= target {
				break
			}
			if assignedBlocks[req.PersonID][blockID] {
				continue
			}
			assignedBlocks[req.PersonID][blockID] = true
			templateID := req.RotationTemplateID
			asn := entity.NewAssignment(uuid.New(), blockID, req.PersonID, entity.AssignmentRolePrimary, assignedBy)
			asn.RotationTemplateID = &templateID
			asn.ActivityOverride = req.ActivityCode
			produced = append(produced, asn)
			filled++
		}
		if filled < req.Min {
			status = StatusInfeasible
			break requirementLoop
		}

		if tracker != nil {
			tracker.publish(Progress{
				Iteration:     iterations,
				MaxIterations: opts.MaxIterations,
				BestObjective: 0,
				ElapsedMS:     time.Since(start).Milliseconds(),
			})
		}
	}

	all := append(append([]*entity.Assignment(nil), hr.PreCommitted...), produced...)

	if status == StatusInfeasible {
		conflicts := infeasibleRequirementNames(requirements)
		log.Warn().Strs("conflicts", conflicts).Msg("solve infeasible")
		return &Result{Status: StatusInfeasible, ConflictSet: conflicts, Iterations: iterations}, nil
	}

	report, err := manager.ValidateAll(all, sctx)
	if err != nil {
		return nil, err
	}
	if !report.Valid {
		return &Result{
			Status:      StatusInfeasible,
			ConflictSet: hardViolationNames(report),
			Report:      report,
			Iterations:  iterations,
			Assignments: all,
		}, nil
	}

	objective := -report.TotalPenalty - structuralPenalty(requirements, assignedBlocks)

	if tracker != nil {
		tracker.publish(Progress{
			Iteration:     iterations,
			MaxIterations: opts.MaxIterations,
			BestObjective: objective,
			ElapsedMS:     time.Since(start).Milliseconds(),
			Done:          true,
		})
	}

	if status == StatusAborted {
		return &Result{
			Status: StatusAborted, Assignments: all, Objective: objective,
			Report: report, Iterations: iterations,
		}, nil
	}
	if status == StatusTimedOut {
		return &Result{
			Status: StatusTimedOut, Assignments: all, Objective: objective,
			Report: report, Iterations: iterations,
		}, nil
	}

	return &Result{
		Status: StatusFeasible, Assignments: all, Objective: objective,
		Report: report, Iterations: iterations,
	}, nil
}

// sortedRequirements orders by priority (descending) then a deterministic
// tie-break, so greedy fill outcomes never depend on map iteration order.
func sortedRequirements(reqs []hybrid.StructuralRequirement) []hybrid.StructuralRequirement {
	out := append([]hybrid.StructuralRequirement(nil), reqs...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		if out[i].PersonID != out[j].PersonID {
			return out[i].PersonID.String() < out[j].PersonID.String()
		}
		return out[i].ActivityCode < out[j].ActivityCode
	})
	return out
}

func infeasibleRequirementNames(reqs []hybrid.StructuralRequirement) []string {
	var out []string
	for _, r := range reqs {
		if !r.Feasible {
			out = append(out, "requirement:"+r.PersonID.String()+":"+r.ActivityCode)
		}
	}
	return out
}

func hardViolationNames(report *constraint.Report) []string {
	seen := make(map[string]bool)
	var out []string
	for _, v := range report.AllViolations {
		if v.Severity != constraint.SeverityCritical && v.Severity != constraint.SeverityHigh {
			continue
		}
		if seen[v.ConstraintName] {
			continue
		}
		seen[v.ConstraintName] = true
		out = append(out, v.ConstraintName)
	}
	return out
}

// structuralPenalty is Layer 2's soft pull toward Target, weighted by
// Priority, for requirements that could not be filled exactly to target.
func structuralPenalty(reqs []hybrid.StructuralRequirement, assigned map[uuid.UUID]map[uuid.UUID]bool) float64 {
	penalty := 0.0
	for _, r := range reqs {
		count := 0
		for _, blockID := range r.FreeBlockIDs {
			if assigned[r.PersonID][blockID] {
				count++
			}
		}
		diff := count - r.Target
		if diff < 0 {
			diff = -diff
		}
		penalty += float64(diff) * float64(r.Priority)
	}
	return penalty
}
