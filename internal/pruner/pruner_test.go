package pruner_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schedcu/v2/internal/entity"
	"github.com/schedcu/v2/internal/pruner"
)

func mustPerson(t *testing.T, typ entity.PersonType, pgy int, specialties []string) *entity.Person {
	t.Helper()
	p, err := entity.NewPerson(uuid.New(), typ, pgy, "p@example.com", "Person", specialties)
	require.NoError(t, err)
	return p
}

func mustBlock(t *testing.T, tod entity.TimeOfDay) *entity.Block {
	t.Helper()
	b, err := entity.NewBlock(uuid.New(), entity.NewDate(2026, 1, 5), tod, 1)
	require.NoError(t, err)
	return b
}

func TestPrune_AllowsMatchingTriple(t *testing.T) {
	person := mustPerson(t, entity.PersonTypeResident, 2, nil)
	block := mustBlock(t, entity.TimeOfDayAM)
	rt := entity.NewRotationTemplate(uuid.New(), "Family Medicine Inpatient", "FMIT")

	result := pruner.Prune([]*entity.Person{person}, []*entity.Block{block}, []*entity.RotationTemplate{rt}, nil, nil)

	assert.Equal(t, 1, result.TotalEvaluated)
	assert.Equal(t, 0, result.PrunedCount)
	require.Len(t, result.Feasible, 1)
	assert.Equal(t, person.ID, result.Feasible[0].Person.ID)
}

func TestPrune_PersonTypeMismatch(t *testing.T) {
	person := mustPerson(t, entity.PersonTypeFaculty, 0, nil)
	block := mustBlock(t, entity.TimeOfDayAM)
	rt := entity.NewRotationTemplate(uuid.New(), "Resident-only", "RES")
	rt.AllowedPersonTypes = []entity.PersonType{entity.PersonTypeResident}

	result := pruner.Prune([]*entity.Person{person}, []*entity.Block{block}, []*entity.RotationTemplate{rt}, nil, nil)

	assert.Empty(t, result.Feasible)
	assert.Equal(t, 1, result.PrunedCount)
	assert.Equal(t, 1, result.PruningReasons[pruner.ReasonPersonTypeMismatch])
}

func TestPrune_PGYOutOfRange(t *testing.T) {
	block := mustBlock(t, entity.TimeOfDayAM)
	rt := entity.NewRotationTemplate(uuid.New(), "Senior Selective", "SEN")
	rt.MinPGY, rt.MaxPGY = 2, 2

	junior := mustPerson(t, entity.PersonTypeResident, 1, nil)
	result := pruner.Prune([]*entity.Person{junior}, []*entity.Block{block}, []*entity.RotationTemplate{rt}, nil, nil)
	assert.Equal(t, 1, result.PruningReasons[pruner.ReasonPGYTooLow])

	senior := mustPerson(t, entity.PersonTypeResident, 3, nil)
	result = pruner.Prune([]*entity.Person{senior}, []*entity.Block{block}, []*entity.RotationTemplate{rt}, nil, nil)
	assert.Equal(t, 1, result.PruningReasons[pruner.ReasonPGYTooHigh])
}

func TestPrune_SpecialtyMismatch(t *testing.T) {
	person := mustPerson(t, entity.PersonTypeResident, 2, []string{"pediatrics"})
	block := mustBlock(t, entity.TimeOfDayAM)
	rt := entity.NewRotationTemplate(uuid.New(), "Sports Medicine", "SM")
	rt.RequiresSpecialty = []string{"sports_medicine"}

	result := pruner.Prune([]*entity.Person{person}, []*entity.Block{block}, []*entity.RotationTemplate{rt}, nil, nil)
	assert.Empty(t, result.Feasible)
	assert.Equal(t, 1, result.PruningReasons[pruner.ReasonSpecialtyMismatch])
}

func TestPrune_PersonUnavailableDuringAbsence(t *testing.T) {
	person := mustPerson(t, entity.PersonTypeResident, 2, nil)
	block := mustBlock(t, entity.TimeOfDayAM)
	rt := entity.NewRotationTemplate(uuid.New(), "Family Medicine Inpatient", "FMIT")

	absence, err := entity.NewAbsence(uuid.New(), person.ID, entity.NewDate(2026, 1, 1), entity.NewDate(2026, 1, 10), entity.AbsenceTypeVacation)
	require.NoError(t, err)

	result := pruner.Prune(
		[]*entity.Person{person}, []*entity.Block{block}, []*entity.RotationTemplate{rt},
		map[uuid.UUID][]*entity.Absence{person.ID: {absence}}, nil,
	)
	assert.Empty(t, result.Feasible)
	assert.Equal(t, 1, result.PruningReasons[pruner.ReasonPersonUnavailable])
}

func TestPrune_TimeOfDayMismatch(t *testing.T) {
	person := mustPerson(t, entity.PersonTypeResident, 2, nil)
	block := mustBlock(t, entity.TimeOfDayPM)
	rt := entity.NewRotationTemplate(uuid.New(), "Morning Clinic", "AM")
	rt.TimeOfDay = entity.TimeOfDayAM

	result := pruner.Prune([]*entity.Person{person}, []*entity.Block{block}, []*entity.RotationTemplate{rt}, nil, nil)
	assert.Empty(t, result.Feasible)
	assert.Equal(t, 1, result.PruningReasons[pruner.ReasonTimeOfDayMismatch])
}

func TestPrune_SkipsExistingAssignment(t *testing.T) {
	person := mustPerson(t, entity.PersonTypeResident, 2, nil)
	block := mustBlock(t, entity.TimeOfDayAM)
	rt := entity.NewRotationTemplate(uuid.New(), "Family Medicine Inpatient", "FMIT")

	existing := map[pruner.ExistingAssignmentKey]bool{
		{PersonID: person.ID, BlockID: block.ID}: true,
	}
	result := pruner.Prune([]*entity.Person{person}, []*entity.Block{block}, []*entity.RotationTemplate{rt}, nil, existing)

	assert.Empty(t, result.Feasible)
	assert.Equal(t, 1, result.PrunedCount)
	assert.Empty(t, result.PruningReasons, "skipped-as-already-assigned carries no disqualifying reason")
}

func TestEstimateSearchSpaceReduction(t *testing.T) {
	result := pruner.Result{TotalEvaluated: 10, PrunedCount: 5}
	reduction := pruner.EstimateSearchSpaceReduction(result)

	assert.Equal(t, 10, reduction.TotalCombinations)
	assert.Equal(t, 5, reduction.PrunedCombinations)
	assert.Equal(t, 5, reduction.RemainingCombinations)
	assert.InDelta(t, 0.5, reduction.ReductionRatio, 0.0001)
	assert.InDelta(t, 1.414, reduction.EstimatedReductionFactor, 0.01)
}

func TestEstimateSearchSpaceReduction_NoEvaluations(t *testing.T) {
	reduction := pruner.EstimateSearchSpaceReduction(pruner.Result{})
	assert.Equal(t, 0.0, reduction.ReductionRatio)
	assert.Equal(t, 1.0, reduction.EstimatedReductionFactor)
}
