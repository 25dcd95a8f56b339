package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schedcu/v2/internal/cache"
	"github.com/schedcu/v2/internal/constraint"
	"github.com/schedcu/v2/internal/entity"
	"github.com/schedcu/v2/internal/hybrid"
	"github.com/schedcu/v2/internal/lock"
	"github.com/schedcu/v2/internal/repository"
	"github.com/schedcu/v2/internal/repository/memory"
	"github.com/schedcu/v2/internal/service"
)

func newTestRedis(t *testing.T) redis.Cmdable {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func newTestOrchestrator(t *testing.T, redisClient redis.Cmdable) (*service.Orchestrator, repository.Database) {
	t.Helper()
	db := memory.NewDatabase()
	locker := lock.NewScheduleGenerationLock(redisClient)
	solutionCache := cache.NewSolutionCache(redisClient, cache.DefaultTTL)
	manager := constraint.CreateDefault("FMIT", "fm_clinic", 7)
	return service.NewOrchestrator(db, locker, solutionCache, manager), db
}

// twoResidentFourBlockFixture seeds a database with 2 residents, 1
// faculty, a Monday/Tuesday AM+PM block set, and a single fm_clinic
// rotation requiring exactly 2 half-days per resident across all weeks —
// the scenario behind spec.md §8.4's "generate, validate, cache" walk.
func twoResidentFourBlockFixture(t *testing.T, ctx context.Context, db repository.Database) (residentA, residentB, faculty *entity.Person, templateID uuid.UUID, blockIDs []uuid.UUID) {
	t.Helper()

	a, err := entity.NewPerson(uuid.New(), entity.PersonTypeResident, 2, "a@example.com", "Resident A", nil)
	require.NoError(t, err)
	b, err := entity.NewPerson(uuid.New(), entity.PersonTypeResident, 2, "b@example.com", "Resident B", nil)
	require.NoError(t, err)
	f, err := entity.NewPerson(uuid.New(), entity.PersonTypeFaculty, 0, "f@example.com", "Faculty F", nil)
	require.NoError(t, err)
	for _, p := range []*entity.Person{a, b, f} {
		require.NoError(t, db.PersonRepository().Create(ctx, p))
	}

	rt := entity.NewRotationTemplate(uuid.New(), "Family Medicine Clinic", "FMC")
	require.NoError(t, db.RotationTemplateRepository().Create(ctx, rt))

	fmClinic, err := entity.NewActivity("fm_clinic", "FMC", entity.ActivityCategoryClinical)
	require.NoError(t, err)
	require.NoError(t, db.ActivityRepository().Create(ctx, fmClinic))

	req := entity.NewRotationActivityRequirement(uuid.New(), rt.ID, "fm_clinic", 2, 2, 2, nil, 80)
	require.NoError(t, db.RotationActivityRequirementRepository().Create(ctx, req))

	for day := 5; day <= 6; day++ {
		for _, tod := range []entity.TimeOfDay{entity.TimeOfDayAM, entity.TimeOfDayPM} {
			blk, err := entity.NewBlock(uuid.New(), entity.NewDate(2026, 1, day), tod, 1)
			require.NoError(t, err)
			require.NoError(t, db.BlockRepository().Create(ctx, blk))
			blockIDs = append(blockIDs, blk.ID)
		}
	}

	return a, b, f, rt.ID, blockIDs
}

func baseConfig() service.Config {
	cfg := service.DefaultConfig()
	cfg.NominalHoursByActivity = map[string]float64{"fm_clinic": 4, "lec": 4, "inpatient": 8}
	return cfg
}

func TestGenerateSchedule_GenerateValidateCache(t *testing.T) {
	ctx := context.Background()
	redisClient := newTestRedis(t)
	orch, db := newTestOrchestrator(t, redisClient)

	a, b, _, templateID, _ := twoResidentFourBlockFixture(t, ctx, db)

	req := service.GenerateRequest{
		YearID: "2026",
		Start:  entity.NewDate(2026, 1, 5),
		End:    entity.NewDate(2026, 1, 6),
		RotationAssignments: []hybrid.RotationAssignment{
			{PersonID: a.ID, RotationTemplateID: templateID, Start: entity.NewDate(2026, 1, 5), End: entity.NewDate(2026, 1, 6)},
			{PersonID: b.ID, RotationTemplateID: templateID, Start: entity.NewDate(2026, 1, 5), End: entity.NewDate(2026, 1, 6)},
		},
		Config:    baseConfig(),
		CreatedBy: uuid.New(),
	}

	result, err := orch.GenerateSchedule(ctx, req)
	require.NoError(t, err)
	require.Equal(t, "ok", result.Status)
	assert.Equal(t, 4, result.AssignmentsCount, "both residents fill their 2-half-day target from the shared 4-block pool")
	assert.InDelta(t, 1.0, result.Score, 0.001)

	second, err := orch.GenerateSchedule(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "ok", second.Status)
	assert.Equal(t, result.AssignmentsCount, second.AssignmentsCount, "second call is served from the solution cache")
}

func TestGenerateSchedule_AppendsApprovalChainRecord(t *testing.T) {
	ctx := context.Background()
	redisClient := newTestRedis(t)
	orch, db := newTestOrchestrator(t, redisClient)

	a, b, _, templateID, _ := twoResidentFourBlockFixture(t, ctx, db)

	req := service.GenerateRequest{
		YearID: "2026-chain",
		Start:  entity.NewDate(2026, 1, 5),
		End:    entity.NewDate(2026, 1, 6),
		RotationAssignments: []hybrid.RotationAssignment{
			{PersonID: a.ID, RotationTemplateID: templateID, Start: entity.NewDate(2026, 1, 5), End: entity.NewDate(2026, 1, 6)},
			{PersonID: b.ID, RotationTemplateID: templateID, Start: entity.NewDate(2026, 1, 5), End: entity.NewDate(2026, 1, 6)},
		},
		Config:    baseConfig(),
		CreatedBy: uuid.New(),
	}

	result, err := orch.GenerateSchedule(ctx, req)
	require.NoError(t, err)
	require.Equal(t, "ok", result.Status)

	chain, err := db.ReadChain(ctx, req.YearID)
	require.NoError(t, err)
	require.NotEmpty(t, chain)
	last := chain[len(chain)-1]
	assert.Equal(t, entity.ApprovalActionScheduleGenerated, last.Action)

	verification, err := orch.VerifyApprovalChain(ctx, req.YearID)
	require.NoError(t, err)
	assert.True(t, verification.OK)
	assert.Nil(t, verification.FirstBadSequence)
}

func TestGenerateSchedule_ProtectedPatternDominatesRequirement(t *testing.T) {
	ctx := context.Background()
	redisClient := newTestRedis(t)
	orch, db := newTestOrchestrator(t, redisClient)

	a, b, _, templateID, _ := twoResidentFourBlockFixture(t, ctx, db)

	pattern, err := entity.NewWeeklyPattern(uuid.New(), templateID, 1, entity.TimeOfDayAM, "lec")
	require.NoError(t, err)
	pattern.IsProtected = true
	require.NoError(t, db.WeeklyPatternRepository().Create(ctx, pattern))

	req := service.GenerateRequest{
		YearID: "2026-protected",
		Start:  entity.NewDate(2026, 1, 5),
		End:    entity.NewDate(2026, 1, 6),
		RotationAssignments: []hybrid.RotationAssignment{
			{PersonID: a.ID, RotationTemplateID: templateID, Start: entity.NewDate(2026, 1, 5), End: entity.NewDate(2026, 1, 6)},
			{PersonID: b.ID, RotationTemplateID: templateID, Start: entity.NewDate(2026, 1, 5), End: entity.NewDate(2026, 1, 6)},
		},
		Config:    baseConfig(),
		CreatedBy: uuid.New(),
	}

	result, err := orch.GenerateSchedule(ctx, req)
	require.NoError(t, err)
	require.Equal(t, "ok", result.Status)
	assert.Empty(t, result.Violations)
}

func TestGenerateSchedule_InfeasibleDueToOneIn7(t *testing.T) {
	ctx := context.Background()
	redisClient := newTestRedis(t)
	orch, db := newTestOrchestrator(t, redisClient)

	resident, err := entity.NewPerson(uuid.New(), entity.PersonTypeResident, 2, "r@example.com", "Resident R", nil)
	require.NoError(t, err)
	require.NoError(t, db.PersonRepository().Create(ctx, resident))

	rt := entity.NewRotationTemplate(uuid.New(), "Inpatient", "INPT")
	rt.TimeOfDay = entity.TimeOfDayAM
	require.NoError(t, db.RotationTemplateRepository().Create(ctx, rt))

	inpatient, err := entity.NewActivity("inpatient", "INPT", entity.ActivityCategoryClinical)
	require.NoError(t, err)
	require.NoError(t, db.ActivityRepository().Create(ctx, inpatient))

	requirement := entity.NewRotationActivityRequirement(uuid.New(), rt.ID, "inpatient", 7, 7, 7, nil, 95)
	require.NoError(t, db.RotationActivityRequirementRepository().Create(ctx, requirement))

	for day := 5; day <= 11; day++ {
		blk, err := entity.NewBlock(uuid.New(), entity.NewDate(2026, 1, day), entity.TimeOfDayAM, 1)
		require.NoError(t, err)
		require.NoError(t, db.BlockRepository().Create(ctx, blk))
	}

	req := service.GenerateRequest{
		YearID: "2026-inpatient",
		Start:  entity.NewDate(2026, 1, 5),
		End:    entity.NewDate(2026, 1, 11),
		RotationAssignments: []hybrid.RotationAssignment{
			{PersonID: resident.ID, RotationTemplateID: rt.ID, Start: entity.NewDate(2026, 1, 5), End: entity.NewDate(2026, 1, 11)},
		},
		Config:    baseConfig(),
		CreatedBy: uuid.New(),
	}
	// 7 consecutive required inpatient half-days leave no duty-free date
	// anywhere in the window, so the 1-in-7 rule can never be satisfied.
	result, err := orch.GenerateSchedule(ctx, req)
	require.NoError(t, err)
	require.Equal(t, "infeasible", result.Status)
	assert.Contains(t, result.ConflictSet, "1_in_7_rule")
}

func TestGenerateSchedule_EmptyContext(t *testing.T) {
	ctx := context.Background()
	redisClient := newTestRedis(t)
	orch, _ := newTestOrchestrator(t, redisClient)

	req := service.GenerateRequest{
		YearID: "2026-empty",
		Start:  entity.NewDate(2026, 1, 5),
		End:    entity.NewDate(2026, 1, 6),
		Config: baseConfig(),
	}

	result, err := orch.GenerateSchedule(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "ok", result.Status)
	assert.Equal(t, 0, result.AssignmentsCount)
}

func TestGenerateSchedule_LockAcquisitionTimeout(t *testing.T) {
	ctx := context.Background()
	redisClient := newTestRedis(t)
	orch, _ := newTestOrchestrator(t, redisClient)

	locker := lock.NewScheduleGenerationLock(redisClient)
	held, err := locker.Acquire(ctx, "2026-locked", 10)
	require.NoError(t, err)
	defer held.Release(ctx)

	cfg := baseConfig()
	cfg.LockAcquisitionTimeoutSeconds = 1
	req := service.GenerateRequest{
		YearID: "2026-locked",
		Start:  entity.NewDate(2026, 1, 5),
		End:    entity.NewDate(2026, 1, 6),
		Config: cfg,
	}

	result, err := orch.GenerateSchedule(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "locked", result.Status)
	assert.Greater(t, result.RemainingTTLSeconds, 0)
}

func TestGenerateSchedule_ConcurrentGenerationLockedOut(t *testing.T) {
	ctx := context.Background()
	redisClient := newTestRedis(t)
	orch, db := newTestOrchestrator(t, redisClient)

	a, b, _, templateID, _ := twoResidentFourBlockFixture(t, ctx, db)

	req := service.GenerateRequest{
		YearID: "2026-concurrent",
		Start:  entity.NewDate(2026, 1, 5),
		End:    entity.NewDate(2026, 1, 6),
		RotationAssignments: []hybrid.RotationAssignment{
			{PersonID: a.ID, RotationTemplateID: templateID, Start: entity.NewDate(2026, 1, 5), End: entity.NewDate(2026, 1, 6)},
			{PersonID: b.ID, RotationTemplateID: templateID, Start: entity.NewDate(2026, 1, 5), End: entity.NewDate(2026, 1, 6)},
		},
		Config: baseConfig(),
	}
	req.Config.LockAcquisitionTimeoutSeconds = 1

	var wg sync.WaitGroup
	results := make([]*service.GenerateResult, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r := req
			r.RunID = uuid.New().String()
			results[i], errs[i] = orch.GenerateSchedule(ctx, r)
		}(i)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	statuses := []string{results[0].Status, results[1].Status}
	var lockedCount, otherCount int
	for _, s := range statuses {
		if s == "locked" {
			lockedCount++
		} else {
			assert.Contains(t, []string{"ok", "aborted"}, s)
			otherCount++
		}
	}
	assert.Equal(t, 1, lockedCount, "exactly one concurrent call finds the year locked")
	assert.Equal(t, 1, otherCount)

	for _, r := range results {
		if r.Status == "locked" {
			assert.Greater(t, r.RemainingTTLSeconds, 0)
		}
	}
}

func TestGenerateSchedule_AbortBeforeFeasible(t *testing.T) {
	ctx := context.Background()
	redisClient := newTestRedis(t)
	orch, db := newTestOrchestrator(t, redisClient)

	resident, err := entity.NewPerson(uuid.New(), entity.PersonTypeResident, 2, "r2@example.com", "Resident R2", nil)
	require.NoError(t, err)
	require.NoError(t, db.PersonRepository().Create(ctx, resident))

	rt := entity.NewRotationTemplate(uuid.New(), "Family Medicine Clinic", "FMC2")
	require.NoError(t, db.RotationTemplateRepository().Create(ctx, rt))

	fmClinic, err := entity.NewActivity("fm_clinic", "FMC", entity.ActivityCategoryClinical)
	require.NoError(t, err)
	require.NoError(t, db.ActivityRepository().Create(ctx, fmClinic))

	requirement := entity.NewRotationActivityRequirement(uuid.New(), rt.ID, "fm_clinic", 1, 1, 1, nil, 80)
	require.NoError(t, db.RotationActivityRequirementRepository().Create(ctx, requirement))

	blk, err := entity.NewBlock(uuid.New(), entity.NewDate(2026, 1, 5), entity.TimeOfDayAM, 1)
	require.NoError(t, err)
	require.NoError(t, db.BlockRepository().Create(ctx, blk))

	runID := uuid.New().String()
	req := service.GenerateRequest{
		RunID:  runID,
		YearID: "2026-abort",
		Start:  entity.NewDate(2026, 1, 5),
		End:    entity.NewDate(2026, 1, 5),
		RotationAssignments: []hybrid.RotationAssignment{
			{PersonID: resident.ID, RotationTemplateID: rt.ID, Start: entity.NewDate(2026, 1, 5), End: entity.NewDate(2026, 1, 5)},
		},
		Config: baseConfig(),
	}

	go func() {
		deadline := time.Now().Add(2 * time.Second)
		for time.Now().Before(deadline) {
			if orch.RequestSolverAbort(service.AbortRequest{RunID: runID, Reason: "test abort", ActorID: uuid.New()}) {
				return
			}
			time.Sleep(time.Millisecond)
		}
	}()

	result, err := orch.GenerateSchedule(ctx, req)
	require.NoError(t, err)
	assert.Contains(t, []string{"ok", "aborted"}, result.Status, "a tiny single-block fixture may finish before the abort goroutine wins the race")
}
