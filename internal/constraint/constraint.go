package constraint

import (
	"math"

	"github.com/google/uuid"

	"github.com/schedcu/v2/internal/entity"
)

// ConstraintType categorizes a constraint for reporting and meta-checks.
type ConstraintType string

const (
	TypeAvailability      ConstraintType = "availability"
	TypeDutyHours         ConstraintType = "duty_hours"
	TypeConsecutiveDays   ConstraintType = "consecutive_days"
	TypeSupervision       ConstraintType = "supervision"
	TypeCapacity          ConstraintType = "capacity"
	TypeRotation          ConstraintType = "rotation"
	TypePreference        ConstraintType = "preference"
	TypeEquity            ConstraintType = "equity"
	TypeContinuity        ConstraintType = "continuity"
	TypeCall              ConstraintType = "call"
	TypeSpecialty         ConstraintType = "specialty"
	TypeResilience        ConstraintType = "resilience"
	TypeHubProtection     ConstraintType = "hub_protection"
	TypeUtilizationBuffer ConstraintType = "utilization_buffer"
)

// Priority is the constraint priority band; numeric so soft-constraint
// penalties can weight by it directly.
type Priority int

const (
	PriorityCritical Priority = 100
	PriorityHigh     Priority = 75
	PriorityMedium   Priority = 50
	PriorityLow      Priority = 25
)

// Severity is the violation severity reported by Validate.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Violation is one concrete constraint failure, optionally anchored to a
// person and/or block.
type Violation struct {
	ConstraintName string
	ConstraintType ConstraintType
	Severity       Severity
	Message        string
	PersonID       *uuid.UUID
	BlockID        *uuid.UUID
	Penalty        float64
}

// Result is what Validate returns for a single constraint.
type Result struct {
	Satisfied  bool
	Violations []Violation
	Penalty    float64
}

// Description is the logging/audit-facing summary Describe returns.
type Description struct {
	Name     string
	Type     ConstraintType
	IsHard   bool
	Priority Priority
	Weight   float64
	Summary  string
}

// Constraint is the uniform polymorphic contract every constraint object
// implements, per spec.md §4.1.1: inject into a solver model, validate
// against a concrete assignment set, and describe itself for audit/logging.
type Constraint interface {
	Name() string
	Type() ConstraintType
	IsHard() bool
	Priority() Priority
	Inject(model ModelBuilder, vars *DecisionVars, ctx *SchedulingContext) error
	Validate(assignments []*entity.Assignment, ctx *SchedulingContext) (Result, error)
	Describe() Description
}

// Base carries the fields every constraint shares; embedded by concrete
// constraints so they only need to implement Inject/Validate.
type Base struct {
	NameValue     string
	TypeValue     ConstraintType
	PriorityValue Priority
	Hard          bool
	WeightValue   float64 // soft constraints only
}

func (b Base) Name() string           { return b.NameValue }
func (b Base) Type() ConstraintType   { return b.TypeValue }
func (b Base) Priority() Priority     { return b.PriorityValue }
func (b Base) IsHard() bool           { return b.Hard }
func (b Base) Describe() Description {
	return Description{
		Name:     b.NameValue,
		Type:     b.TypeValue,
		IsHard:   b.Hard,
		Priority: b.PriorityValue,
		Weight:   b.WeightValue,
		Summary:  b.NameValue,
	}
}

// HardResult is a convenience for hard constraints: a violation always
// carries +Inf penalty and satisfied=false.
func HardResult(violations ...Violation) Result {
	if len(violations) == 0 {
		return Result{Satisfied: true}
	}
	for i := range violations {
		violations[i].Penalty = math.Inf(1)
	}
	return Result{Satisfied: false, Violations: violations, Penalty: math.Inf(1)}
}

// SoftResult computes penalty = weight * len(violations) * priority, per
// spec.md §4.1.1.
func SoftResult(weight float64, priority Priority, violations ...Violation) Result {
	if len(violations) == 0 {
		return Result{Satisfied: true}
	}
	penalty := weight * float64(len(violations)) * float64(priority)
	for i := range violations {
		violations[i].Penalty = weight * float64(priority)
	}
	return Result{Satisfied: true, Violations: violations, Penalty: penalty}
}

// AssignmentsByPerson groups assignments by person id for constraints that
// reason over one person's schedule at a time.
func AssignmentsByPerson(assignments []*entity.Assignment) map[uuid.UUID][]*entity.Assignment {
	out := make(map[uuid.UUID][]*entity.Assignment)
	for _, a := range assignments {
		out[a.PersonID] = append(out[a.PersonID], a)
	}
	return out
}

// AssignmentsByBlock groups assignments by block id.
func AssignmentsByBlock(assignments []*entity.Assignment) map[uuid.UUID][]*entity.Assignment {
	out := make(map[uuid.UUID][]*entity.Assignment)
	for _, a := range assignments {
		out[a.BlockID] = append(out[a.BlockID], a)
	}
	return out
}
