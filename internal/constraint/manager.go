package constraint

import (
	"sort"

	"go.uber.org/multierr"

	"github.com/schedcu/v2/internal/entity"
)

// Manager composes an ordered list of constraints and guarantees every
// name is unique, per spec.md §4.1.3.
type Manager struct {
	constraints []Constraint
}

// NewManager builds a Manager from constraints, rejecting duplicate names
// up front so callers never silently double-register one.
func NewManager(constraints ...Constraint) (*Manager, error) {
	seen := make(map[string]bool, len(constraints))
	for _, c := range constraints {
		if c.Name() == "" {
			return nil, entity.NewValidation("constraint has an empty name")
		}
		if seen[c.Name()] {
			return nil, entity.NewValidation("duplicate constraint name: " + c.Name())
		}
		seen[c.Name()] = true
	}
	m := &Manager{constraints: append([]Constraint(nil), constraints...)}
	m.sortByPriority()
	return m, nil
}

func (m *Manager) sortByPriority() {
	sort.SliceStable(m.constraints, func(i, j int) bool {
		return m.constraints[i].Priority() > m.constraints[j].Priority()
	})
}

func (m *Manager) Constraints() []Constraint { return append([]Constraint(nil), m.constraints...) }

func (m *Manager) Add(c Constraint) error {
	for _, existing := range m.constraints {
		if existing.Name() == c.Name() {
			return entity.NewValidation("duplicate constraint name: " + c.Name())
		}
	}
	m.constraints = append(m.constraints, c)
	m.sortByPriority()
	return nil
}

// InjectAll calls Inject on every constraint in priority order.
func (m *Manager) InjectAll(model ModelBuilder, vars *DecisionVars, ctx *SchedulingContext) error {
	var err error
	for _, c := range m.constraints {
		err = multierr.Append(err, c.Inject(model, vars, ctx))
	}
	return err
}

// Report is the aggregated result of ValidateAll: every constraint's
// Result, with violations grouped by severity.
type Report struct {
	Valid              bool
	ViolationsBySeverity map[Severity][]Violation
	AllViolations      []Violation
	TotalPenalty       float64
	PerConstraint      map[string]Result
}

// ValidateAll runs validate_all across every enabled constraint, used both
// post-solve and on standalone schedules (spec.md §4.1.3).
func (m *Manager) ValidateAll(assignments []*entity.Assignment, ctx *SchedulingContext) (*Report, error) {
	report := &Report{
		Valid:                true,
		ViolationsBySeverity: make(map[Severity][]Violation),
		PerConstraint:        make(map[string]Result),
	}
	var errs error
	for _, c := range m.constraints {
		result, err := c.Validate(assignments, ctx)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		report.PerConstraint[c.Name()] = result
		report.AllViolations = append(report.AllViolations, result.Violations...)
		for _, v := range result.Violations {
			report.ViolationsBySeverity[v.Severity] = append(report.ViolationsBySeverity[v.Severity], v)
		}
		if c.IsHard() && !result.Satisfied {
			report.Valid = false
		}
		if !result.Satisfied && c.IsHard() {
			continue // hard violations carry +Inf penalty, excluded from the soft sum
		}
		report.TotalPenalty += result.Penalty
	}
	return report, errs
}

// CreateDefault returns the full ACGME + institutional constraint set of
// spec.md §4.1.2. sequencePrereq/sequenceFollowUp/sequenceMaxGapDays
// configure SequenceConstraint for the institution's prerequisite ->
// follow-up rotation rule; pass an empty sequencePrereq to build the set
// without it (no such rule configured).
func CreateDefault(sequencePrereq, sequenceFollowUp string, sequenceMaxGapDays int) *Manager {
	constraints := []Constraint{
		NewAvailabilityConstraint(),
		NewOnePersonPerBlock(),
		NewEightyHourRule(),
		NewOneIn7Rule(),
		NewSupervisionRatio(),
		NewResidentInpatientHeadcount(),
		NewPostFMITSundayBlocking(),
		NewSundayCallEquityConstraint(),
		NewCallSpacingConstraint(1),
		NewWeekdayCallEquityConstraint(),
		NewTuesdayCallPreferenceConstraint(),
	}
	if sequencePrereq != "" && sequenceFollowUp != "" {
		constraints = append(constraints, NewSequenceConstraint(sequencePrereq, sequenceFollowUp, sequenceMaxGapDays))
	}
	m, err := NewManager(constraints...)
	if err != nil {
		// Names above are fixed and known-unique; a failure here signals
		// a programming error, not a runtime condition callers handle.
		panic(err)
	}
	return m
}

// CreateResilienceAware returns CreateDefault's set plus the
// resilience-family soft constraints (spec.md §4.1.3).
func CreateResilienceAware(hubScoreThreshold, utilizationBufferThreshold float64, sequencePrereq, sequenceFollowUp string, sequenceMaxGapDays int) *Manager {
	m := CreateDefault(sequencePrereq, sequenceFollowUp, sequenceMaxGapDays)
	for _, c := range []Constraint{
		NewResilienceConstraint(),
		NewHubProtectionConstraint(hubScoreThreshold),
		NewUtilizationBufferConstraint(utilizationBufferThreshold),
	} {
		if err := m.Add(c); err != nil {
			panic(err)
		}
	}
	return m
}
