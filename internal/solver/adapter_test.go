package solver_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schedcu/v2/internal/constraint"
	"github.com/schedcu/v2/internal/entity"
	"github.com/schedcu/v2/internal/hybrid"
	"github.com/schedcu/v2/internal/solver"
)

func buildFourBlockContext(t *testing.T, templateID uuid.UUID) *constraint.SchedulingContext {
	t.Helper()
	var blocks []*entity.Block
	for day := 5; day <= 6; day++ {
		for _, tod := range []entity.TimeOfDay{entity.TimeOfDayAM, entity.TimeOfDayPM} {
			b, err := entity.NewBlock(uuid.New(), entity.NewDate(2026, 1, day), tod, 1)
			require.NoError(t, err)
			blocks = append(blocks, b)
		}
	}
	req := entity.NewRotationActivityRequirement(uuid.New(), templateID, "fm_clinic", 2, 2, 2, nil, 80)
	return constraint.NewSchedulingContext(constraint.ContextData{
		Blocks:                 blocks,
		Requirements:           []*entity.RotationActivityRequirement{req},
		NominalHoursByActivity: map[string]float64{"fm_clinic": 4},
	})
}

func TestAdapter_Solve_FeasibleGreedyFill(t *testing.T) {
	templateID := uuid.New()
	personID := uuid.New()
	ctx := buildFourBlockContext(t, templateID)

	ra := hybrid.RotationAssignment{
		PersonID: personID, RotationTemplateID: templateID,
		Start: entity.NewDate(2026, 1, 5), End: entity.NewDate(2026, 1, 6),
	}
	hr, err := hybrid.NewEngine().Run(ctx, []hybrid.RotationAssignment{ra}, uuid.New())
	require.NoError(t, err)

	manager := constraint.CreateDefault("", "", 0)
	adapter := solver.NewAdapter()
	result, err := adapter.Solve(context.Background(), ctx, hr, manager, solver.Options{}, nil, nil, uuid.New())
	require.NoError(t, err)

	require.Equal(t, solver.StatusFeasible, result.Status)
	assert.Len(t, result.Assignments, 2, "target of 2 half-days filled from the 4 free blocks")
	assert.True(t, result.Report.Valid)
}

func TestAdapter_Solve_InfeasibleWhenRequirementUnfillable(t *testing.T) {
	templateID := uuid.New()
	personID := uuid.New()
	ctx := buildFourBlockContext(t, templateID)

	hr := &hybrid.Result{
		Vars: constraint.NewDecisionVars(),
		Structural: []hybrid.StructuralRequirement{
			{
				PersonID: personID, RotationTemplateID: templateID, ActivityCode: "fm_clinic",
				Min: 5, Max: 5, Target: 5, Priority: 80,
				FreeBlockIDs: nil, // no free blocks at all
				Feasible:     false,
			},
		},
	}

	manager := constraint.CreateDefault("", "", 0)
	adapter := solver.NewAdapter()
	result, err := adapter.Solve(context.Background(), ctx, hr, manager, solver.Options{}, nil, nil, uuid.New())
	require.NoError(t, err)

	require.Equal(t, solver.StatusInfeasible, result.Status)
	require.NotEmpty(t, result.ConflictSet)
}

func TestAdapter_Solve_AbortStopsBeforeFilling(t *testing.T) {
	templateID := uuid.New()
	personID := uuid.New()
	ctx := buildFourBlockContext(t, templateID)

	ra := hybrid.RotationAssignment{
		PersonID: personID, RotationTemplateID: templateID,
		Start: entity.NewDate(2026, 1, 5), End: entity.NewDate(2026, 1, 6),
	}
	hr, err := hybrid.NewEngine().Run(ctx, []hybrid.RotationAssignment{ra}, uuid.New())
	require.NoError(t, err)

	abort := &solver.AbortFlag{}
	abort.Request()

	manager := constraint.CreateDefault("", "", 0)
	adapter := solver.NewAdapter()
	result, err := adapter.Solve(context.Background(), ctx, hr, manager, solver.Options{}, nil, abort, uuid.New())
	require.NoError(t, err)

	assert.Equal(t, solver.StatusAborted, result.Status)
	assert.Empty(t, result.Assignments)
}

func TestAbortRegistry_RequestAbort(t *testing.T) {
	reg := solver.NewAbortRegistry()
	flag := reg.Register("run-1")
	assert.False(t, flag.Requested())

	assert.True(t, reg.RequestAbort("run-1"))
	assert.True(t, flag.Requested())

	assert.False(t, reg.RequestAbort("unknown-run"))
}
