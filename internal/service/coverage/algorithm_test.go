package coverage

import (
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schedcu/v2/internal/constraint"
	"github.com/schedcu/v2/internal/entity"
)

func assignmentsFor(activityCode string, count int) []*entity.Assignment {
	var out []*entity.Assignment
	for i := 0; i < count; i++ {
		a := entity.NewAssignment(uuid.New(), uuid.New(), uuid.New(), entity.AssignmentRolePrimary, uuid.New())
		a.ActivityOverride = activityCode
		out = append(out, a)
	}
	return out
}

func emptyCtx() *constraint.SchedulingContext {
	return constraint.NewSchedulingContext(constraint.ContextData{})
}

func TestResolveCoverage_EmptyAssignments(t *testing.T) {
	required := map[string]int{"on1": 2, "on2": 2, "day": 3}
	metrics := ResolveCoverage(nil, emptyCtx(), required)

	assert.Len(t, metrics.CoverageByActivity, 3)
	for code, detail := range metrics.CoverageByActivity {
		assert.Equal(t, 0, detail.Assigned, "activity %s should have 0 assigned", code)
		assert.Equal(t, StatusUncovered, detail.Status)
	}
	assert.Len(t, metrics.UnderStaffedActivities, 3)
	assert.Empty(t, metrics.OverStaffedActivities)
	assert.Equal(t, 0.0, metrics.OverallCoveragePercentage)
}

func TestResolveCoverage_EmptyRequirements(t *testing.T) {
	metrics := ResolveCoverage(nil, emptyCtx(), map[string]int{})
	assert.Empty(t, metrics.CoverageByActivity)
	assert.Equal(t, 0.0, metrics.OverallCoveragePercentage)
	assert.Contains(t, metrics.Summary, "No activity requirements defined")
}

func TestResolveCoverage_ZeroRequirement(t *testing.T) {
	metrics := ResolveCoverage(nil, emptyCtx(), map[string]int{"on1": 0})
	detail := metrics.CoverageByActivity["on1"]
	assert.Equal(t, 0, detail.Required)
	assert.Equal(t, 0, detail.Assigned)
}

func TestResolveCoverage_DeletedAssignmentsIgnored(t *testing.T) {
	as := assignmentsFor("on1", 1)
	as[0].SoftDelete(uuid.New())

	metrics := ResolveCoverage(as, emptyCtx(), map[string]int{"on1": 1})
	detail := metrics.CoverageByActivity["on1"]
	assert.Equal(t, 0, detail.Assigned)
	assert.Equal(t, StatusUncovered, detail.Status)
}

func TestResolveCoverage_FullyCovered(t *testing.T) {
	metrics := ResolveCoverage(assignmentsFor("on1", 2), emptyCtx(), map[string]int{"on1": 2})

	detail := metrics.CoverageByActivity["on1"]
	assert.Equal(t, 2, detail.Required)
	assert.Equal(t, 2, detail.Assigned)
	assert.Equal(t, 100.0, detail.CoveragePercentage)
	assert.Equal(t, StatusFull, detail.Status)
	assert.Equal(t, 100.0, metrics.OverallCoveragePercentage)
	assert.Empty(t, metrics.UnderStaffedActivities)
	assert.Empty(t, metrics.OverStaffedActivities)
}

func TestResolveCoverage_MultipleActivitiesFullyCovered(t *testing.T) {
	var all []*entity.Assignment
	all = append(all, assignmentsFor("on1", 2)...)
	all = append(all, assignmentsFor("on2", 2)...)
	all = append(all, assignmentsFor("day", 3)...)
	required := map[string]int{"on1": 2, "on2": 2, "day": 3}

	metrics := ResolveCoverage(all, emptyCtx(), required)
	for code, req := range required {
		detail, ok := metrics.CoverageByActivity[code]
		require.True(t, ok)
		assert.Equal(t, req, detail.Assigned)
		assert.Equal(t, StatusFull, detail.Status)
	}
	assert.Equal(t, 100.0, metrics.OverallCoveragePercentage)
}

func TestResolveCoverage_PartialCovered(t *testing.T) {
	metrics := ResolveCoverage(assignmentsFor("on1", 1), emptyCtx(), map[string]int{"on1": 2})

	detail := metrics.CoverageByActivity["on1"]
	assert.Equal(t, 1, detail.Assigned)
	assert.Equal(t, 50.0, detail.CoveragePercentage)
	assert.Equal(t, StatusPartial, detail.Status)
	assert.Equal(t, 50.0, metrics.OverallCoveragePercentage)
	require.Len(t, metrics.UnderStaffedActivities, 1)
	assert.Equal(t, "on1", metrics.UnderStaffedActivities[0])
}

func TestResolveCoverage_MixedCoverage(t *testing.T) {
	var all []*entity.Assignment
	all = append(all, assignmentsFor("on1", 2)...) // full
	all = append(all, assignmentsFor("on2", 1)...) // partial, requires 3
	required := map[string]int{"on1": 2, "on2": 3, "day": 2}

	metrics := ResolveCoverage(all, emptyCtx(), required)

	assert.Equal(t, StatusFull, metrics.CoverageByActivity["on1"].Status)
	assert.Equal(t, StatusPartial, metrics.CoverageByActivity["on2"].Status)
	assert.Equal(t, StatusUncovered, metrics.CoverageByActivity["day"].Status)

	expected := math.Round((3.0/7.0)*100*100) / 100
	assert.Equal(t, expected, metrics.OverallCoveragePercentage)
	assert.Len(t, metrics.UnderStaffedActivities, 2)
}

func TestResolveCoverage_OverStaffed(t *testing.T) {
	metrics := ResolveCoverage(assignmentsFor("on1", 3), emptyCtx(), map[string]int{"on1": 2})

	detail := metrics.CoverageByActivity["on1"]
	assert.Equal(t, 3, detail.Assigned)
	assert.Equal(t, 100.0, detail.CoveragePercentage)
	require.Len(t, metrics.OverStaffedActivities, 1)
	assert.Equal(t, "on1", metrics.OverStaffedActivities[0])
}

func TestResolveCoverage_PercentageAccuracy(t *testing.T) {
	cases := []struct {
		assigned, required int
		expected            float64
	}{
		{0, 1, 0.0}, {1, 2, 50.0}, {1, 3, 33.33}, {2, 3, 66.67},
		{3, 3, 100.0}, {4, 3, 100.0}, {1, 4, 25.0}, {3, 4, 75.0},
	}
	for _, tc := range cases {
		metrics := ResolveCoverage(assignmentsFor("on1", tc.assigned), emptyCtx(), map[string]int{"on1": tc.required})
		assert.Equal(t, tc.expected, metrics.CoverageByActivity["on1"].CoveragePercentage)
	}
}

func TestResolveCoverage_DuplicatePersonCountsOnce(t *testing.T) {
	person := uuid.New()
	a1 := entity.NewAssignment(uuid.New(), uuid.New(), person, entity.AssignmentRolePrimary, uuid.New())
	a1.ActivityOverride = "on1"
	a2 := entity.NewAssignment(uuid.New(), uuid.New(), person, entity.AssignmentRolePrimary, uuid.New())
	a2.ActivityOverride = "on1"

	metrics := ResolveCoverage([]*entity.Assignment{a1, a2}, emptyCtx(), map[string]int{"on1": 1})
	assert.Equal(t, 1, metrics.CoverageByActivity["on1"].Assigned, "same person counts once")
}

func TestResolveCoverage_Rate(t *testing.T) {
	rate := Rate(assignmentsFor("on1", 1), emptyCtx(), map[string]int{"on1": 2})
	assert.InDelta(t, 0.5, rate, 0.001)
}

func TestResolveCoverage_Invariants(t *testing.T) {
	cases := []struct {
		name        string
		assignments []*entity.Assignment
		required    map[string]int
	}{
		{"empty", nil, map[string]int{"on1": 2}},
		{"full", assignmentsFor("on1", 2), map[string]int{"on1": 2}},
		{"partial", assignmentsFor("on1", 1), map[string]int{"on1": 2}},
		{"over", assignmentsFor("on1", 5), map[string]int{"on1": 2}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			metrics := ResolveCoverage(tc.assignments, emptyCtx(), tc.required)
			assert.GreaterOrEqual(t, metrics.OverallCoveragePercentage, 0.0)
			assert.LessOrEqual(t, metrics.OverallCoveragePercentage, 100.0)
			for code := range tc.required {
				_, ok := metrics.CoverageByActivity[code]
				assert.True(t, ok, "activity %s should have metrics", code)
			}
			for _, code := range metrics.UnderStaffedActivities {
				d := metrics.CoverageByActivity[code]
				assert.Less(t, d.Assigned, d.Required)
			}
			for _, code := range metrics.OverStaffedActivities {
				d := metrics.CoverageByActivity[code]
				assert.Greater(t, d.Assigned, d.Required)
			}
		})
	}
}

func TestRequiredFromRequirements_SumsByActivity(t *testing.T) {
	templateID := uuid.New()
	reqs := []*entity.RotationActivityRequirement{
		entity.NewRotationActivityRequirement(uuid.New(), templateID, "fm_clinic", 1, 2, 2, nil, 80),
		entity.NewRotationActivityRequirement(uuid.New(), templateID, "fm_clinic", 1, 1, 1, nil, 80),
		entity.NewRotationActivityRequirement(uuid.New(), templateID, "inpatient", 3, 3, 3, nil, 100),
	}
	out := RequiredFromRequirements(reqs)
	assert.Equal(t, 3, out["fm_clinic"])
	assert.Equal(t, 3, out["inpatient"])
}
