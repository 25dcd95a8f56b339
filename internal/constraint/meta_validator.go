package constraint

import "fmt"

// MetaValidator performs syntax/coverage/feasibility checks on a
// constraint set itself, per spec.md §4.1.3's "separate ConstraintValidator"
// — distinct from Manager.ValidateAll, which checks assignments against
// the constraints.
type MetaValidator struct{}

func NewMetaValidator() *MetaValidator { return &MetaValidator{} }

// MetaIssue is one finding from CheckSet.
type MetaIssue struct {
	Severity Severity
	Message  string
}

// acgmeQuartet is the set of constraint names CheckSet requires to be
// present in any production manager for ACGME coverage.
var acgmeQuartet = []string{
	"80_hour_rule",
	"1_in_7_rule",
	"supervision_ratio",
	"resident_inpatient_headcount",
}

// CheckSet runs syntax (non-empty/unique names), coverage (ACGME quartet
// present), and feasibility heuristics (warn when >20 hard constraints
// suggest likely infeasibility) against m.
func (v *MetaValidator) CheckSet(m *Manager) []MetaIssue {
	var issues []MetaIssue

	seen := make(map[string]bool)
	hardCount := 0
	for _, c := range m.Constraints() {
		if c.Name() == "" {
			issues = append(issues, MetaIssue{Severity: SeverityCritical, Message: "constraint has an empty name"})
		}
		if seen[c.Name()] {
			issues = append(issues, MetaIssue{Severity: SeverityCritical, Message: "duplicate constraint name: " + c.Name()})
		}
		seen[c.Name()] = true
		if c.IsHard() {
			hardCount++
		}
	}

	for _, required := range acgmeQuartet {
		if !seen[required] {
			issues = append(issues, MetaIssue{
				Severity: SeverityHigh,
				Message:  fmt.Sprintf("ACGME quartet missing required constraint: %s", required),
			})
		}
	}

	if hardCount > 20 {
		issues = append(issues, MetaIssue{
			Severity: SeverityMedium,
			Message:  fmt.Sprintf("%d hard constraints registered; likely infeasibility risk above 20", hardCount),
		})
	}

	return issues
}

// IsClean reports whether CheckSet found no critical or high issues.
func (v *MetaValidator) IsClean(issues []MetaIssue) bool {
	for _, i := range issues {
		if i.Severity == SeverityCritical || i.Severity == SeverityHigh {
			return false
		}
	}
	return true
}
