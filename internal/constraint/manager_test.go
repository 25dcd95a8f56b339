package constraint_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schedcu/v2/internal/constraint"
	"github.com/schedcu/v2/internal/entity"
)

func TestNewManager_RejectsDuplicateNames(t *testing.T) {
	_, err := constraint.NewManager(
		constraint.NewAvailabilityConstraint(),
		constraint.NewAvailabilityConstraint(),
	)
	require.Error(t, err)
}

func TestCreateDefault_ACGMEQuartetPresent(t *testing.T) {
	m := constraint.CreateDefault("", "", 0)
	v := constraint.NewMetaValidator()
	issues := v.CheckSet(m)
	assert.True(t, v.IsClean(issues), "expected no critical/high meta issues, got %+v", issues)
}

func TestCreateDefault_SequenceConstraintOnlyWiredWhenConfigured(t *testing.T) {
	withoutSequence := constraint.CreateDefault("", "", 0)
	for _, c := range withoutSequence.Constraints() {
		assert.NotContains(t, c.Name(), "sequence:")
	}

	withSequence := constraint.CreateDefault("FMIT", "fm_clinic", 7)
	found := false
	for _, c := range withSequence.Constraints() {
		if c.Name() == "sequence:FMIT->fm_clinic" {
			found = true
		}
	}
	assert.True(t, found, "expected a wired SequenceConstraint when prereq/follow-up codes are configured")
}

func TestCreateResilienceAware_AddsResilienceFamily(t *testing.T) {
	m := constraint.CreateResilienceAware(0.7, 0.8, "FMIT", "fm_clinic", 7)
	names := make(map[string]bool)
	for _, c := range m.Constraints() {
		names[c.Name()] = true
	}
	assert.True(t, names["resilience"])
	assert.True(t, names["hub_protection"])
	assert.True(t, names["utilization_buffer"])
	assert.True(t, names["sequence:FMIT->fm_clinic"])
}

func TestOnePersonPerBlock_DetectsDoubleBooking(t *testing.T) {
	personID := uuid.New()
	blockID := uuid.New()
	a1 := entity.NewAssignment(uuid.New(), blockID, personID, entity.AssignmentRolePrimary, uuid.New())
	a2 := entity.NewAssignment(uuid.New(), blockID, personID, entity.AssignmentRolePrimary, uuid.New())

	c := constraint.NewOnePersonPerBlock()
	result, err := c.Validate([]*entity.Assignment{a1, a2}, &constraint.SchedulingContext{})
	require.NoError(t, err)
	assert.False(t, result.Satisfied)
	assert.Len(t, result.Violations, 1)
}

func TestAvailabilityConstraint_FlagsAbsentAssignment(t *testing.T) {
	personID := uuid.New()
	date := entity.NewDate(2026, 1, 5)
	block, err := entity.NewBlock(uuid.New(), date, entity.TimeOfDayAM, 1)
	require.NoError(t, err)
	absence, err := entity.NewAbsence(uuid.New(), personID, date, date, entity.AbsenceTypeVacation)
	require.NoError(t, err)
	a := entity.NewAssignment(uuid.New(), block.ID, personID, entity.AssignmentRolePrimary, uuid.New())

	ctx := constraint.NewSchedulingContext(constraint.ContextData{
		Blocks:   []*entity.Block{block},
		Absences: []*entity.Absence{absence},
	})

	c := constraint.NewAvailabilityConstraint()
	result, err := c.Validate([]*entity.Assignment{a}, ctx)
	require.NoError(t, err)
	assert.False(t, result.Satisfied)
	assert.Len(t, result.Violations, 1)
}

func TestSoftResult_WeightHierarchy(t *testing.T) {
	// spec.md §4.1.2: 10 > 8 > 5 > 2 is part of the contract.
	assert.Greater(t, constraint.WeightSundayCallEquity, constraint.WeightCallSpacing)
	assert.Greater(t, constraint.WeightCallSpacing, constraint.WeightWeekdayCallEquity)
	assert.Greater(t, constraint.WeightWeekdayCallEquity, constraint.WeightTuesdayCallPref)
}
