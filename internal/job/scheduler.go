// Package job retargets the generation core's two long-running
// operations — generate_schedule and solution-cache warming — onto
// Asynq, for callers that want to dispatch a run rather than block on
// it. TaskIDs double as service.GenerateRequest.RunID so a dispatched
// task's progress stays pollable through
// service.Orchestrator.GetSolverProgress.
package job

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/google/uuid"

	"github.com/schedcu/v2/internal/entity"
	"github.com/schedcu/v2/internal/hybrid"
	"github.com/schedcu/v2/internal/service"
)

// Scheduler enqueues generation jobs onto Asynq.
type Scheduler struct {
	client    *asynq.Client
	redisAddr string
}

// NewScheduler connects to Redis at redisAddr and verifies the
// connection before returning.
func NewScheduler(redisAddr string) (*Scheduler, error) {
	client := asynq.NewClient(asynq.RedisClientOpt{Addr: redisAddr})
	if err := client.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &Scheduler{client: client, redisAddr: redisAddr}, nil
}

// Job types.
const (
	TypeGenerateSchedule = "schedule:generate"
	TypeWarmCache        = "schedule:warm-cache"
)

// GenerateSchedulePayload carries everything HandleGenerateSchedule
// needs to reconstruct a service.GenerateRequest.
type GenerateSchedulePayload struct {
	RunID               string                       `json:"run_id"`
	YearID              string                       `json:"year_id"`
	Start               entity.Date                  `json:"start"`
	End                 entity.Date                  `json:"end"`
	RotationAssignments []hybrid.RotationAssignment  `json:"rotation_assignments"`
	Config              service.Config               `json:"config"`
	CreatedBy           uuid.UUID                    `json:"created_by"`
}

// EnqueueGenerateSchedule dispatches a generate_schedule run. The
// returned TaskInfo's ID is also stamped onto the payload as RunID
// before enqueueing, so the caller can immediately poll
// GetSolverProgress/RequestSolverAbort by that ID without waiting for
// Asynq to assign one.
func (s *Scheduler) EnqueueGenerateSchedule(ctx context.Context, req service.GenerateRequest) (*asynq.TaskInfo, error) {
	if req.RunID == "" {
		req.RunID = uuid.New().String()
	}

	payload := GenerateSchedulePayload{
		RunID:               req.RunID,
		YearID:              req.YearID,
		Start:               req.Start,
		End:                 req.End,
		RotationAssignments: req.RotationAssignments,
		Config:              req.Config,
		CreatedBy:           req.CreatedBy,
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	task := asynq.NewTask(TypeGenerateSchedule, payloadBytes, asynq.TaskID(req.RunID))

	timeout := time.Duration(req.Config.SolverTimeoutSeconds+req.Config.LockAcquisitionTimeoutSeconds+30) * time.Second
	info, err := s.client.EnqueueContext(ctx, task, asynq.MaxRetry(1), asynq.Timeout(timeout))
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue generate_schedule job: %w", err)
	}
	return info, nil
}

// WarmCachePayload carries the inputs of a generation request whose
// only purpose is to prime the solution cache ahead of a real call —
// same shape as GenerateSchedulePayload minus RunID/CreatedBy, which a
// cache warm has no use for.
type WarmCachePayload struct {
	YearID              string                      `json:"year_id"`
	Start               entity.Date                 `json:"start"`
	End                 entity.Date                 `json:"end"`
	RotationAssignments []hybrid.RotationAssignment `json:"rotation_assignments"`
	Config              service.Config              `json:"config"`
}

// EnqueueWarmCache dispatches a low-priority cache-warming run.
func (s *Scheduler) EnqueueWarmCache(ctx context.Context, payload WarmCachePayload) (*asynq.TaskInfo, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	task := asynq.NewTask(TypeWarmCache, payloadBytes)
	info, err := s.client.EnqueueContext(
		ctx, task,
		asynq.MaxRetry(1),
		asynq.Timeout(time.Duration(payload.Config.SolverTimeoutSeconds+30)*time.Second),
		asynq.Queue("low"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue cache warm job: %w", err)
	}
	return info, nil
}

// Close releases the underlying Asynq client.
func (s *Scheduler) Close() error {
	return s.client.Close()
}

// GetTaskInfo retrieves a dispatched task's status. RunID-derived task
// IDs (see EnqueueGenerateSchedule) make this directly addressable by
// the same ID a caller uses for GetSolverProgress/RequestSolverAbort.
func (s *Scheduler) GetTaskInfo(ctx context.Context, queue, taskID string) (*asynq.TaskInfo, error) {
	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: s.redisAddr})
	defer inspector.Close()
	return inspector.GetTaskInfo(ctx, queue, taskID)
}
