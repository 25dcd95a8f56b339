package constraint

import (
	"strings"

	"github.com/google/uuid"
)

// VarRef identifies a boolean decision variable created by a ModelBuilder.
type VarRef string

// ModelBuilder is the capability the CP solver adapter exposes to
// constraints during Inject: create/look up boolean decision variables,
// add linear and implication clauses, and contribute objective terms.
// Defined here (not in internal/solver) so constraints never import the
// solver package; the adapter is the only concrete implementer.
type ModelBuilder interface {
	Var(key string) (VarRef, bool)
	AddLinearLE(terms map[VarRef]float64, bound float64, name string)
	AddImplication(ifVar VarRef, thenTerms map[VarRef]float64, thenMin float64, name string)
	AddObjectiveTerm(v VarRef, coeff float64)
}

// Triple is the (person, block, template) identity a decision variable
// stands for, recoverable by the solver adapter when it needs to turn a
// solved assignment of true-valued vars back into entity.Assignment rows.
type Triple struct {
	PersonID, BlockID, TemplateID uuid.UUID
}

// DecisionVars is the (person, block, template) decision-variable index
// the hybrid layer engine's Layer 3 populates and hands to every
// constraint's Inject call.
type DecisionVars struct {
	byKey    map[string]VarRef
	triples  map[VarRef]Triple
}

func NewDecisionVars() *DecisionVars {
	return &DecisionVars{byKey: make(map[string]VarRef), triples: make(map[VarRef]Triple)}
}

// Key is the decision-variable key for a (person, block, template) triple.
func Key(personID, blockID, templateID uuid.UUID) string {
	var b strings.Builder
	b.WriteString(personID.String())
	b.WriteByte('_')
	b.WriteString(blockID.String())
	b.WriteByte('_')
	if templateID != uuid.Nil {
		b.WriteString(templateID.String())
	}
	return b.String()
}

func (d *DecisionVars) Set(personID, blockID, templateID uuid.UUID, v VarRef) {
	d.byKey[Key(personID, blockID, templateID)] = v
	d.triples[v] = Triple{PersonID: personID, BlockID: blockID, TemplateID: templateID}
}

// TripleFor recovers the (person, block, template) identity behind a
// decision variable.
func (d *DecisionVars) TripleFor(v VarRef) (Triple, bool) {
	t, ok := d.triples[v]
	return t, ok
}

func (d *DecisionVars) Get(personID, blockID, templateID uuid.UUID) (VarRef, bool) {
	v, ok := d.byKey[Key(personID, blockID, templateID)]
	return v, ok
}

// ForPersonBlock returns every variable touching (person, block) across
// all candidate templates — used by OnePersonPerBlock and similar
// per-block capacity constraints.
func (d *DecisionVars) ForPersonBlock(personID, blockID uuid.UUID) map[VarRef]float64 {
	prefix := personID.String() + "_" + blockID.String() + "_"
	out := make(map[VarRef]float64)
	for k, v := range d.byKey {
		if strings.HasPrefix(k, prefix) {
			out[v] = 1.0
		}
	}
	return out
}

func (d *DecisionVars) All() map[string]VarRef { return d.byKey }
