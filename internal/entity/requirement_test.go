package entity

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestComputeWeeksHash_AllWeeksIsStable(t *testing.T) {
	r1 := NewRotationActivityRequirement(uuid.New(), uuid.New(), "fm_clinic", 2, 2, 2, nil, 50)
	r2 := NewRotationActivityRequirement(uuid.New(), uuid.New(), "lec", 1, 1, 1, nil, 50)
	assert.Equal(t, r1.ApplicableWeeksHash, r2.ApplicableWeeksHash, "hash over nil weeks is scope-independent")
}

func TestComputeWeeksHash_OrderIndependent(t *testing.T) {
	r1 := NewRotationActivityRequirement(uuid.New(), uuid.New(), "fm_clinic", 1, 1, 1, []int{3, 1, 2}, 50)
	r2 := NewRotationActivityRequirement(uuid.New(), uuid.New(), "fm_clinic", 1, 1, 1, []int{1, 2, 3}, 50)
	assert.Equal(t, r1.ApplicableWeeksHash, r2.ApplicableWeeksHash)
}

func TestComputeWeeksHash_DifferentScopesDiffer(t *testing.T) {
	r1 := NewRotationActivityRequirement(uuid.New(), uuid.New(), "fm_clinic", 1, 1, 1, []int{1}, 50)
	r2 := NewRotationActivityRequirement(uuid.New(), uuid.New(), "fm_clinic", 1, 1, 1, []int{4}, 50)
	assert.NotEqual(t, r1.ApplicableWeeksHash, r2.ApplicableWeeksHash)
}

func TestRotationActivityRequirement_IsHardConstraint(t *testing.T) {
	r := NewRotationActivityRequirement(uuid.New(), uuid.New(), "fm_clinic", 2, 2, 2, nil, 95)
	assert.True(t, r.IsHardConstraint())
	assert.True(t, r.IsNearHard())

	soft := NewRotationActivityRequirement(uuid.New(), uuid.New(), "fm_clinic", 1, 3, 2, nil, 50)
	assert.False(t, soft.IsHardConstraint())
	assert.False(t, soft.IsNearHard())
}

func TestRotationActivityRequirement_AppliesToWeek(t *testing.T) {
	r := NewRotationActivityRequirement(uuid.New(), uuid.New(), "fm_clinic", 1, 1, 1, []int{1, 2, 3}, 50)
	assert.True(t, r.AppliesToWeek(2))
	assert.False(t, r.AppliesToWeek(4))

	all := NewRotationActivityRequirement(uuid.New(), uuid.New(), "fm_clinic", 1, 1, 1, nil, 50)
	assert.True(t, all.AppliesToWeek(4))
}
