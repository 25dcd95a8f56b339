// Package solver implements the CP-SAT-style adapter of spec.md §4.3: it
// builds decision variables (via the hybrid engine's Layer 3), injects
// constraints (via internal/constraint), and extracts a solution. No
// OR-Tools/CP-SAT binding exists anywhere in the example pack or its
// reachable dependency graph (see DESIGN.md); the adapter's capability
// interface (internal/constraint.ModelBuilder) is implemented here over a
// constraint-propagation-plus-greedy engine instead, so a real CP-SAT
// binding can be dropped in later without changing any caller.
package solver

import (
	"github.com/schedcu/v2/internal/constraint"
)

// linearClause is Σ terms[v]*value(v) <= bound.
type linearClause struct {
	name  string
	terms map[constraint.VarRef]float64
	bound float64
}

// implicationClause is ifVar=true => Σ thenTerms[v]*value(v) >= thenMin.
type implicationClause struct {
	name     string
	ifVar    constraint.VarRef
	thenTerms map[constraint.VarRef]float64
	thenMin  float64
}

// Model is the in-memory constraint-satisfaction problem the adapter
// builds from a constraint.Manager's InjectAll call, and the
// constraint.ModelBuilder implementation constraints see.
type Model struct {
	vars       map[constraint.VarRef]bool // current/solved value
	known      map[string]constraint.VarRef
	linear     []linearClause
	implications []implicationClause
	objective  map[constraint.VarRef]float64
}

func NewModel(vars *constraint.DecisionVars) *Model {
	m := &Model{
		vars:      make(map[constraint.VarRef]bool),
		known:     make(map[string]constraint.VarRef),
		objective: make(map[constraint.VarRef]float64),
	}
	for key, v := range vars.All() {
		m.vars[v] = false
		m.known[key] = v
	}
	return m
}

var _ constraint.ModelBuilder = (*Model)(nil)

func (m *Model) Var(key string) (constraint.VarRef, bool) {
	v, ok := m.known[key]
	return v, ok
}

func (m *Model) AddLinearLE(terms map[constraint.VarRef]float64, bound float64, name string) {
	m.linear = append(m.linear, linearClause{name: name, terms: terms, bound: bound})
}

func (m *Model) AddImplication(ifVar constraint.VarRef, thenTerms map[constraint.VarRef]float64, thenMin float64, name string) {
	m.implications = append(m.implications, implicationClause{name: name, ifVar: ifVar, thenTerms: thenTerms, thenMin: thenMin})
}

func (m *Model) AddObjectiveTerm(v constraint.VarRef, coeff float64) {
	m.objective[v] += coeff
}

// Set assigns a decision variable's solved value.
func (m *Model) Set(v constraint.VarRef, value bool) { m.vars[v] = value }

// Value reads a decision variable's current value.
func (m *Model) Value(v constraint.VarRef) bool { return m.vars[v] }

// SatisfiesLinear reports whether every registered linear clause holds
// under the model's current variable assignment.
func (m *Model) SatisfiesLinear() (bool, []string) {
	var violated []string
	for _, c := range m.linear {
		sum := 0.0
		for v, coeff := range c.terms {
			if m.vars[v] {
				sum += coeff
			}
		}
		if sum > c.bound+1e-9 {
			violated = append(violated, c.name)
		}
	}
	for _, c := range m.implications {
		if !m.vars[c.ifVar] {
			continue
		}
		sum := 0.0
		for v, coeff := range c.thenTerms {
			if m.vars[v] {
				sum += coeff
			}
		}
		if sum < c.thenMin-1e-9 {
			violated = append(violated, c.name)
		}
	}
	return len(violated) == 0, violated
}
