// Package service wires the generation core's components — repository,
// constraint, hybrid, solver, validation, override, lock, cache, and
// pruner — behind the programmatic operations of spec.md §6.1:
// generate_schedule, validate_schedule, apply_override,
// verify_approval_chain, get_solver_progress, request_solver_abort.
package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/schedcu/v2/internal/cache"
	"github.com/schedcu/v2/internal/constraint"
	"github.com/schedcu/v2/internal/entity"
	"github.com/schedcu/v2/internal/hybrid"
	"github.com/schedcu/v2/internal/lock"
	"github.com/schedcu/v2/internal/override"
	"github.com/schedcu/v2/internal/pruner"
	"github.com/schedcu/v2/internal/repository"
	"github.com/schedcu/v2/internal/service/coverage"
	"github.com/schedcu/v2/internal/solver"
	"github.com/schedcu/v2/internal/validation"
)

// Config is the recognized set of generate_schedule options (spec.md §6.3).
type Config struct {
	SolverTimeoutSeconds          int     `validate:"gte=0"`
	SolverMaxIterations           int     `validate:"gte=0"`
	SolverHeartbeatMS             int     `validate:"gte=0"`
	LockTTLSeconds                int     `validate:"gte=0"`
	LockAcquisitionTimeoutSeconds int     `validate:"gte=0"`
	CacheTTLSeconds               int     `validate:"gte=0"`
	PrunerEnabled                 bool
	CriticalFailScoreCap          float64 `validate:"gte=0,lte=1"`
	Weights                       validation.Weights
	// NominalHoursByActivity is required configuration for the 80-hour
	// rule (spec.md §9's open question): nominal duty hours per half-day
	// of a given activity code. No default exists — Config.Validate
	// rejects a nil map, and EightyHourRule's Validate fails loudly for
	// any activity code missing from it.
	NominalHoursByActivity map[string]float64 `validate:"required"`
	// ProtectedActivityCodes overrides the default {FMIT, PCAT, DO}
	// cancellation-blocking set (spec.md §9's data-driven-future note).
	ProtectedActivityCodes map[string]bool
}

// DefaultConfig returns spec.md §6.3's documented defaults; callers must
// still supply NominalHoursByActivity.
func DefaultConfig() Config {
	return Config{
		SolverTimeoutSeconds:          60,
		SolverMaxIterations:           1000,
		SolverHeartbeatMS:             500,
		LockTTLSeconds:                lock.LockTimeoutSeconds,
		LockAcquisitionTimeoutSeconds: lock.DefaultAcquisitionTimeoutSeconds,
		CacheTTLSeconds:               int(cache.DefaultTTL.Seconds()),
		PrunerEnabled:                 true,
		CriticalFailScoreCap:          validation.CriticalFailScoreCap,
		Weights:                       validation.DefaultWeights(),
		ProtectedActivityCodes:        entity.ProtectedActivityCodes,
	}
}

// Validate checks struct tags plus the scoring weights' sum-to-1 rule.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return entity.NewValidation(err.Error())
	}
	return c.Weights.Validate()
}

// GenerateRequest is generate_schedule's full argument set. RunID is
// optional — callers that need to correlate a call with a pre-assigned
// identifier (e.g. a job queue's task ID) may supply it; otherwise one is
// generated. Supplying RunID is also what makes a run addressable by
// GetSolverProgress/RequestSolverAbort before GenerateSchedule returns.
type GenerateRequest struct {
	RunID               string
	YearID              string
	Start, End          entity.Date
	RotationAssignments []hybrid.RotationAssignment
	Config              Config
	CreatedBy           uuid.UUID
}

// GenerateResult is generate_schedule's return shape (spec.md §6.1).
type GenerateResult struct {
	RunID               string
	Status              string // ok, aborted, infeasible, locked
	Score               float64
	Violations          []constraint.Violation
	AssignmentsCount    int
	RuntimeSeconds      float64
	RemainingTTLSeconds int      // populated when Status == "locked"
	ConflictSet         []string // populated when Status == "infeasible"
}

// SolverProgress is get_solver_progress's return shape.
type SolverProgress struct {
	Iteration     int
	MaxIterations int
	BestScore     float64
	ElapsedMS     int64
}

// AbortRequest is request_solver_abort's full argument set.
type AbortRequest struct {
	RunID   string
	Reason  string
	ActorID uuid.UUID
}

// ChainVerification is verify_approval_chain's return shape.
type ChainVerification struct {
	OK               bool
	FirstBadSequence *int
}

// Orchestrator is the single entry point for every programmatic
// operation spec.md §6.1 lists, holding the process-wide shared
// resources (lock, cache) the core needs injected rather than accessed
// through hidden globals (spec.md §9's "Global state" note).
type Orchestrator struct {
	db        repository.Database
	locker    *lock.ScheduleGenerationLock
	solutionCache *cache.SolutionCache
	overrides *override.Manager
	manager   *constraint.Manager

	abortRegistry *solver.AbortRegistry

	mu       sync.Mutex
	trackers map[string]*solver.ProgressTracker
}

// NewOrchestrator wires the generation core's dependencies. manager is the
// constraint set to run (constraint.CreateDefault(...) or
// constraint.CreateResilienceAware(...)).
func NewOrchestrator(db repository.Database, locker *lock.ScheduleGenerationLock, solutionCache *cache.SolutionCache, manager *constraint.Manager) *Orchestrator {
	return &Orchestrator{
		db:            db,
		locker:        locker,
		solutionCache: solutionCache,
		overrides:     override.NewManager(db),
		manager:       manager,
		abortRegistry: solver.NewAbortRegistry(),
		trackers:      make(map[string]*solver.ProgressTracker),
	}
}

// GenerateSchedule runs one locked, cached, pruned-and-solved generation
// attempt over [req.Start, req.End], implementing spec.md §6.1's
// generate_schedule and §8.3/§8.4's boundary and end-to-end behaviors.
func (o *Orchestrator) GenerateSchedule(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	if err := req.Config.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	runID := req.RunID
	if runID == "" {
		runID = uuid.New().String()
	}
	elapsed := func() float64 { return time.Since(start).Seconds() }

	held, err := lock.AcquireWithRetry(ctx, o.locker, req.YearID, req.Config.LockAcquisitionTimeoutSeconds)
	if err != nil {
		var coreErr *entity.CoreError
		if errors.As(err, &coreErr) && coreErr.Kind == entity.KindLockAcquisitionError {
			return &GenerateResult{
				RunID: runID, Status: "locked",
				RemainingTTLSeconds: coreErr.RemainingTTLSeconds,
				RuntimeSeconds:      elapsed(),
			}, nil
		}
		return nil, err
	}
	defer held.Release(ctx)

	data, err := o.db.LoadContext(ctx, req.Start, req.End)
	if err != nil {
		return nil, err
	}

	sctx := constraint.NewSchedulingContext(constraint.ContextData{
		Persons:                data.Persons,
		Blocks:                 data.Blocks,
		Activities:             data.Activities,
		Templates:              data.RotationTemplates,
		Patterns:               data.WeeklyPatterns,
		Requirements:           data.Requirements,
		Absences:               data.Absences,
		CallAssignments:        data.CallAssignments,
		Credentials:            data.Credentials,
		NominalHoursByActivity: req.Config.NominalHoursByActivity,
	})

	problemHash, err := o.problemHash(req, sctx)
	if err != nil {
		return nil, err
	}
	if o.solutionCache != nil {
		if cached, err := o.solutionCache.GetSolution(ctx, problemHash); err == nil && cached != nil {
			log.Info().Str("run_id", runID).Str("problem_hash", problemHash).Msg("generate_schedule served from cache")
			return &GenerateResult{
				RunID: runID, Status: "ok", Score: cached.Score,
				AssignmentsCount: len(cached.Assignments), RuntimeSeconds: elapsed(),
			}, nil
		}
	}

	hr, err := hybrid.NewEngine().Run(sctx, req.RotationAssignments, req.CreatedBy)
	if err != nil {
		return nil, err
	}

	if req.Config.PrunerEnabled {
		hr.Structural = o.prune(hr.Structural, sctx, data)
	}

	tracker := solver.NewProgressTracker()
	abortFlag := o.abortRegistry.Register(runID)
	o.setTracker(runID, tracker)
	defer func() {
		o.abortRegistry.Unregister(runID)
		o.clearTracker(runID)
	}()

	opts := solver.Options{
		TimeoutSeconds: req.Config.SolverTimeoutSeconds,
		MaxIterations:  req.Config.SolverMaxIterations,
		HeartbeatMS:    req.Config.SolverHeartbeatMS,
	}
	sr, err := solver.NewAdapter().Solve(ctx, sctx, hr, o.manager, opts, tracker, abortFlag, req.CreatedBy)
	if err != nil {
		return nil, err
	}

	switch sr.Status {
	case solver.StatusAborted:
		return &GenerateResult{
			RunID: runID, Status: "aborted", Score: sr.Objective,
			AssignmentsCount: len(sr.Assignments), RuntimeSeconds: elapsed(),
		}, nil
	case solver.StatusTimedOut:
		// spec.md §6.1 recognizes no standalone "timed_out" status;
		// a wall-clock or iteration bound hit with no operator abort
		// request is reported the same way an operator abort is.
		return &GenerateResult{
			RunID: runID, Status: "aborted", Score: sr.Objective,
			AssignmentsCount: len(sr.Assignments), RuntimeSeconds: elapsed(),
		}, nil
	case solver.StatusInfeasible:
		return &GenerateResult{
			RunID: runID, Status: "infeasible", ConflictSet: sr.ConflictSet,
			RuntimeSeconds: elapsed(),
		}, nil
	}

	requiredByActivity := coverage.RequiredFromRequirements(data.Requirements)
	report, err := validation.Validate(sr.Assignments, sctx, o.manager, requiredByActivity, req.Config.Weights)
	if err != nil {
		return nil, err
	}

	if err := o.db.WriteAssignments(ctx, runID, sr.Assignments); err != nil {
		return nil, err
	}

	if o.solutionCache != nil {
		ttl := time.Duration(req.Config.CacheTTLSeconds) * time.Second
		sol := &cache.Solution{Assignments: sr.Assignments, Score: report.Score}
		if err := o.solutionCache.SetSolution(ctx, problemHash, sol, ttl); err != nil {
			log.Warn().Err(err).Str("run_id", runID).Msg("solution cache write failed")
		}
	}

	actorID := req.CreatedBy
	genPayload := map[string]interface{}{
		"run_id":            runID,
		"year_id":           req.YearID,
		"score":             report.Score,
		"assignments_count": len(sr.Assignments),
	}
	if err := override.AppendToChain(ctx, o.db, req.YearID, entity.ApprovalActionScheduleGenerated, genPayload, &actorID, entity.ActorTypeSystem, "schedule generated", "ScheduleRun", nil); err != nil {
		return nil, err
	}

	log.Info().Str("run_id", runID).Float64("score", report.Score).
		Int("assignments", len(sr.Assignments)).Msg("generate_schedule complete")

	return &GenerateResult{
		RunID: runID, Status: "ok", Score: report.Score, Violations: report.Violations,
		AssignmentsCount: len(sr.Assignments), RuntimeSeconds: elapsed(),
	}, nil
}

// problemHash fingerprints a generation request's inputs for the solution
// cache key (spec.md §4.7).
func (o *Orchestrator) problemHash(req GenerateRequest, sctx *constraint.SchedulingContext) (string, error) {
	personSet := make(map[string]bool)
	rotationSet := make(map[string]bool)
	for _, ra := range req.RotationAssignments {
		personSet[ra.PersonID.String()] = true
		rotationSet[ra.RotationTemplateID.String()] = true
	}
	blockIDs := make([]string, 0, len(sctx.Blocks))
	for _, b := range sctx.Blocks {
		blockIDs = append(blockIDs, b.ID.String())
	}
	personIDs := make([]string, 0, len(personSet))
	for id := range personSet {
		personIDs = append(personIDs, id)
	}
	rotationIDs := make([]string, 0, len(rotationSet))
	for id := range rotationSet {
		rotationIDs = append(rotationIDs, id)
	}

	return cache.ProblemHash(cache.ProblemInputs{
		PersonIDs:   personIDs,
		RotationIDs: rotationIDs,
		BlockIDs:    blockIDs,
		Constraints: map[string]interface{}{
			"weights":            req.Config.Weights,
			"critical_score_cap": req.Config.CriticalFailScoreCap,
		},
	})
}

// prune restricts each structural requirement's FreeBlockIDs to the
// (person, block, rotation) triples the pruner judges feasible, running
// spec.md §4.8 before the solver ever sees them.
func (o *Orchestrator) prune(structural []hybrid.StructuralRequirement, sctx *constraint.SchedulingContext, data *repository.SchedulingData) []hybrid.StructuralRequirement {
	absencesByPerson := make(map[uuid.UUID][]*entity.Absence)
	for _, a := range data.Absences {
		absencesByPerson[a.PersonID] = append(absencesByPerson[a.PersonID], a)
	}
	existing := make(map[pruner.ExistingAssignmentKey]bool)
	for _, a := range data.ExistingAssignments {
		if a.IsDeleted() {
			continue
		}
		existing[pruner.ExistingAssignmentKey{PersonID: a.PersonID, BlockID: a.BlockID}] = true
	}

	result := pruner.Prune(data.Persons, data.Blocks, data.RotationTemplates, absencesByPerson, existing)
	reduction := pruner.EstimateSearchSpaceReduction(result)
	log.Info().
		Int("pruned", result.PrunedCount).
		Int("evaluated", result.TotalEvaluated).
		Float64("reduction_ratio", reduction.ReductionRatio).
		Msg("constraint pruning applied before solve")

	feasible := make(map[string]bool, len(result.Feasible))
	for _, t := range result.Feasible {
		feasible[constraint.Key(t.Person.ID, t.Block.ID, t.RotationTemplate.ID)] = true
	}

	out := make([]hybrid.StructuralRequirement, len(structural))
	for i, r := range structural {
		filtered := make([]uuid.UUID, 0, len(r.FreeBlockIDs))
		for _, blockID := range r.FreeBlockIDs {
			if feasible[constraint.Key(r.PersonID, blockID, r.RotationTemplateID)] {
				filtered = append(filtered, blockID)
			}
		}
		r.FreeBlockIDs = filtered
		r.Feasible = r.Max >= 0 && r.Min <= len(filtered)
		out[i] = r
	}
	return out
}

// ValidateSchedule runs validate_schedule (spec.md §6.1): a standalone,
// purely functional check of an assignment set against a context, with no
// locking, caching, or persistence side effects.
func (o *Orchestrator) ValidateSchedule(assignments []*entity.Assignment, sctx *constraint.SchedulingContext, requiredByActivity map[string]int, weights validation.Weights) (*validation.Report, error) {
	return validation.Validate(assignments, sctx, o.manager, requiredByActivity, weights)
}

// ApplyOverride delegates to the override manager, implementing
// apply_override (spec.md §6.1/§4.5).
func (o *Orchestrator) ApplyOverride(ctx context.Context, req override.ApplyOverrideRequest, protectedActivityCodes map[string]bool) (*entity.ScheduleOverride, error) {
	mgr := o.overrides
	if protectedActivityCodes != nil {
		mgr = mgr.WithProtectedActivityCodes(protectedActivityCodes)
	}
	return mgr.Apply(ctx, req)
}

// VerifyApprovalChain implements verify_approval_chain (spec.md §6.1):
// reads a chain's full record set and walks its hash links.
func (o *Orchestrator) VerifyApprovalChain(ctx context.Context, chainID string) (*ChainVerification, error) {
	records, err := o.db.ReadChain(ctx, chainID)
	if err != nil {
		return nil, err
	}
	ok, firstBad := override.VerifyChain(records)
	result := &ChainVerification{OK: ok}
	if !ok {
		result.FirstBadSequence = &firstBad
	}
	return result, nil
}

// GetSolverProgress implements get_solver_progress (spec.md §6.1):
// returns nil for a run_id with no registered tracker (never started, or
// already finished and cleaned up).
func (o *Orchestrator) GetSolverProgress(runID string) *SolverProgress {
	o.mu.Lock()
	tracker, ok := o.trackers[runID]
	o.mu.Unlock()
	if !ok {
		return nil
	}
	snap := tracker.Snapshot()
	return &SolverProgress{
		Iteration: snap.Iteration, MaxIterations: snap.MaxIterations,
		BestScore: snap.BestObjective, ElapsedMS: snap.ElapsedMS,
	}
}

// RequestSolverAbort implements request_solver_abort (spec.md §6.1):
// flips the run's abort flag if it's still registered.
func (o *Orchestrator) RequestSolverAbort(req AbortRequest) bool {
	acknowledged := o.abortRegistry.RequestAbort(req.RunID)
	log.Info().Str("run_id", req.RunID).Str("reason", req.Reason).
		Str("actor", req.ActorID.String()).Bool("acknowledged", acknowledged).
		Msg("solver abort requested")
	return acknowledged
}

func (o *Orchestrator) setTracker(runID string, t *solver.ProgressTracker) {
	o.mu.Lock()
	o.trackers[runID] = t
	o.mu.Unlock()
}

func (o *Orchestrator) clearTracker(runID string) {
	o.mu.Lock()
	delete(o.trackers, runID)
	o.mu.Unlock()
}
