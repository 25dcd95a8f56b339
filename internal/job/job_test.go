package job_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schedcu/v2/internal/cache"
	"github.com/schedcu/v2/internal/constraint"
	"github.com/schedcu/v2/internal/entity"
	"github.com/schedcu/v2/internal/hybrid"
	"github.com/schedcu/v2/internal/job"
	"github.com/schedcu/v2/internal/lock"
	"github.com/schedcu/v2/internal/repository/memory"
	"github.com/schedcu/v2/internal/service"

	redislib "github.com/redis/go-redis/v9"
)

func TestScheduler_EnqueueGenerateSchedule_StampsRunIDAsTaskID(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	sched, err := job.NewScheduler(mr.Addr())
	require.NoError(t, err)
	defer sched.Close()

	cfg := service.DefaultConfig()
	cfg.NominalHoursByActivity = map[string]float64{"fm_clinic": 4}

	req := service.GenerateRequest{
		YearID: "2026", Start: entity.NewDate(2026, 1, 5), End: entity.NewDate(2026, 1, 6),
		Config: cfg,
	}

	info, err := sched.EnqueueGenerateSchedule(context.Background(), req)
	require.NoError(t, err)
	assert.NotEmpty(t, info.ID)

	fetched, err := sched.GetTaskInfo(context.Background(), info.Queue, info.ID)
	require.NoError(t, err)
	assert.Equal(t, info.ID, fetched.ID)
}

func TestHandlers_HandleGenerateSchedule_RunsEmptyContextToCompletion(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	redisClient := redislib.NewClient(&redislib.Options{Addr: mr.Addr()})
	defer redisClient.Close()

	db := memory.NewDatabase()
	locker := lock.NewScheduleGenerationLock(redisClient)
	solutionCache := cache.NewSolutionCache(redisClient, cache.DefaultTTL)
	manager := constraint.CreateDefault("", "", 0)
	orch := service.NewOrchestrator(db, locker, solutionCache, manager)
	handlers := job.NewHandlers(orch)

	payload := job.GenerateSchedulePayload{
		RunID:  uuid.New().String(),
		YearID: "2026-job",
		Start:  entity.NewDate(2026, 1, 5),
		End:    entity.NewDate(2026, 1, 6),
		Config: func() service.Config {
			c := service.DefaultConfig()
			c.NominalHoursByActivity = map[string]float64{"fm_clinic": 4}
			return c
		}(),
		RotationAssignments: []hybrid.RotationAssignment{},
	}
	payloadBytes, err := json.Marshal(payload)
	require.NoError(t, err)

	task := asynq.NewTask(job.TypeGenerateSchedule, payloadBytes)
	err = handlers.HandleGenerateSchedule(context.Background(), task)
	assert.NoError(t, err)
}

func TestHandlers_HandleGenerateSchedule_BadPayloadSkipsRetry(t *testing.T) {
	db := memory.NewDatabase()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	redisClient := redislib.NewClient(&redislib.Options{Addr: mr.Addr()})
	defer redisClient.Close()

	orch := service.NewOrchestrator(db, lock.NewScheduleGenerationLock(redisClient), cache.NewSolutionCache(redisClient, cache.DefaultTTL), constraint.CreateDefault("", "", 0))
	handlers := job.NewHandlers(orch)

	task := asynq.NewTask(job.TypeGenerateSchedule, []byte("not json"))
	err = handlers.HandleGenerateSchedule(context.Background(), task)
	require.Error(t, err)
}
