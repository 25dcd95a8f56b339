package job

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"

	"github.com/schedcu/v2/internal/service"
)

// Handlers executes dispatched generation jobs against a shared
// Orchestrator.
type Handlers struct {
	orchestrator *service.Orchestrator
}

// NewHandlers wraps orchestrator for Asynq dispatch.
func NewHandlers(orchestrator *service.Orchestrator) *Handlers {
	return &Handlers{orchestrator: orchestrator}
}

// RegisterHandlers wires both job types into mux.
func (h *Handlers) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeGenerateSchedule, h.HandleGenerateSchedule)
	mux.HandleFunc(TypeWarmCache, h.HandleWarmCache)
}

// HandleGenerateSchedule runs generate_schedule from a dispatched
// payload. A locked/infeasible/aborted result is not a handler error —
// those are valid, expected outcomes of the operation — so only an
// actual failure to run it (bad payload, unexpected repository error)
// is returned to Asynq for retry.
func (h *Handlers) HandleGenerateSchedule(ctx context.Context, t *asynq.Task) error {
	var payload GenerateSchedulePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", asynq.SkipRetry)
	}

	log.Info().Str("run_id", payload.RunID).Str("year_id", payload.YearID).
		Msg("executing generate_schedule job")

	result, err := h.orchestrator.GenerateSchedule(ctx, service.GenerateRequest{
		RunID:               payload.RunID,
		YearID:              payload.YearID,
		Start:               payload.Start,
		End:                 payload.End,
		RotationAssignments: payload.RotationAssignments,
		Config:              payload.Config,
		CreatedBy:           payload.CreatedBy,
	})
	if err != nil {
		log.Error().Err(err).Str("run_id", payload.RunID).Msg("generate_schedule job failed")
		return fmt.Errorf("generate_schedule error: %w", err)
	}

	log.Info().Str("run_id", payload.RunID).Str("status", result.Status).
		Float64("score", result.Score).Int("assignments", result.AssignmentsCount).
		Msg("generate_schedule job complete")
	return nil
}

// HandleWarmCache runs a generation attempt purely to populate the
// solution cache for a subsequent real call; it discards the
// generation outcome once it's cached and only surfaces genuine errors.
func (h *Handlers) HandleWarmCache(ctx context.Context, t *asynq.Task) error {
	var payload WarmCachePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", asynq.SkipRetry)
	}

	log.Info().Str("year_id", payload.YearID).Msg("executing cache warm job")

	result, err := h.orchestrator.GenerateSchedule(ctx, service.GenerateRequest{
		YearID:              payload.YearID,
		Start:               payload.Start,
		End:                 payload.End,
		RotationAssignments: payload.RotationAssignments,
		Config:              payload.Config,
	})
	if err != nil {
		log.Error().Err(err).Str("year_id", payload.YearID).Msg("cache warm job failed")
		return fmt.Errorf("cache warm error: %w", err)
	}

	log.Info().Str("year_id", payload.YearID).Str("status", result.Status).
		Msg("cache warm job complete")
	return nil
}
