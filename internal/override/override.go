// Package override implements spec.md §4.5: post-release modifications
// of released assignments (coverage swaps, cancellations, gap overrides)
// plus the tamper-evident approval hash chain every override is recorded
// against.
package override

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/schedcu/v2/internal/entity"
	"github.com/schedcu/v2/internal/repository"
)

// Manager applies overrides and maintains the audit chain, grounded on
// the repository layer's ScheduleOverrideRepository/ApprovalRecordRepository.
type Manager struct {
	db                      repository.Database
	protectedActivityCodes  map[string]bool
}

func NewManager(db repository.Database) *Manager {
	return &Manager{db: db, protectedActivityCodes: entity.ProtectedActivityCodes}
}

// WithProtectedActivityCodes overrides the protected-activity set consulted
// during cancellation eligibility checks, per spec.md §9's note that the
// default set may need to become data-driven.
func (m *Manager) WithProtectedActivityCodes(codes map[string]bool) *Manager {
	m.protectedActivityCodes = codes
	return m
}

// ApplyOverrideRequest is apply_override's full argument set (spec.md §4.5.1).
type ApplyOverrideRequest struct {
	AssignmentID  uuid.UUID
	Type          entity.OverrideType
	Replacement   *uuid.UUID // required for OverrideTypeCoverage
	Reason        string
	ActorID       uuid.UUID
	ChainID       string // the approval chain this override's record is appended to
}

// Apply runs spec.md §4.5.1's eligibility checks, commits the override,
// and appends an ApprovalRecord to the chain, in one pass.
func (m *Manager) Apply(ctx context.Context, req ApplyOverrideRequest) (*entity.ScheduleOverride, error) {
	assignments := m.db.AssignmentRepository()
	activities := m.db.ActivityRepository()
	overrides := m.db.ScheduleOverrideRepository()

	assignment, err := assignments.GetByID(ctx, req.AssignmentID)
	if err != nil {
		return nil, err
	}

	activityCode := assignment.ActivityOverride
	var activity *entity.Activity
	if activityCode != "" {
		activity, err = activities.GetByCode(ctx, activityCode)
		if err != nil && !entity.IsNotFound(err) {
			return nil, err
		}
	}

	if activity != nil {
		if req.Type == entity.OverrideTypeCancellation && m.protectedActivityCodes[activity.Code] {
			return nil, entity.NewPrecondition("override not permitted: " + activity.Code + " is a protected activity for cancellation")
		}
		if activity.Category == entity.ActivityCategoryTimeOff {
			return nil, entity.ErrOverrideProtectedActivity
		}
	}

	existing, err := overrides.GetActiveByAssignment(ctx, req.AssignmentID)
	if err != nil && !entity.IsNotFound(err) {
		return nil, err
	}
	if existing != nil {
		return nil, entity.NewConflict("an active override already exists for this assignment")
	}

	if req.Type == entity.OverrideTypeCoverage {
		if err := m.validateCoverageReplacement(ctx, assignment, req); err != nil {
			return nil, err
		}
	}

	ov := entity.NewScheduleOverride(uuid.New(), req.AssignmentID, assignment.PersonID, req.Type, req.Reason, req.ActorID)
	if req.Replacement != nil {
		ov.ReplacementPersonID = req.Replacement
	}

	if err := overrides.Create(ctx, ov); err != nil {
		return nil, err
	}

	if err := m.appendApprovalForOverride(ctx, req.ChainID, ov); err != nil {
		return nil, err
	}

	log.Info().Str("override_id", ov.ID.String()).Str("type", string(ov.Type)).Msg("override applied")
	return ov, nil
}

// validateCoverageReplacement enforces spec.md §4.5.1 item 4: replacement
// must exist, differ from the original, and not already be booked for the
// same (date, time) unless that booking is itself under an active
// cancellation/gap override.
func (m *Manager) validateCoverageReplacement(ctx context.Context, assignment *entity.Assignment, req ApplyOverrideRequest) error {
	if req.Replacement == nil {
		return entity.NewValidation("coverage override requires a replacement person")
	}
	if *req.Replacement == assignment.PersonID {
		return entity.ErrOverrideReplacementSame
	}

	persons := m.db.PersonRepository()
	if _, err := persons.GetByID(ctx, *req.Replacement); err != nil {
		return err
	}

	block, err := m.db.BlockRepository().GetByID(ctx, assignment.BlockID)
	if err != nil {
		return err
	}
	existing, err := m.db.AssignmentRepository().GetByPersonAndDateRange(ctx, *req.Replacement, block.Date, block.Date)
	if err != nil {
		return err
	}
	for _, other := range existing {
		if other.BlockID != assignment.BlockID || other.IsDeleted() {
			continue
		}
		active, err := m.db.ScheduleOverrideRepository().GetActiveByAssignment(ctx, other.ID)
		if err != nil && !entity.IsNotFound(err) {
			return err
		}
		if active != nil && (active.Type == entity.OverrideTypeCancellation || active.Type == entity.OverrideTypeGap) {
			continue // the conflicting booking is itself overridden away
		}
		return entity.NewConflict("replacement is already booked for this block")
	}
	return nil
}

// DeactivateSuperseded deactivates a prior override when a new one
// supersedes it, stamping SupersedesOverrideID on the new record.
func (m *Manager) DeactivateSuperseded(ctx context.Context, prior *entity.ScheduleOverride, replacement *entity.ScheduleOverride, deactivatorID uuid.UUID) error {
	prior.Deactivate(deactivatorID)
	if err := m.db.ScheduleOverrideRepository().Update(ctx, prior); err != nil {
		return err
	}
	priorID := prior.ID
	replacement.SupersedesOverrideID = &priorID
	return m.db.ScheduleOverrideRepository().Update(ctx, replacement)
}

// appendApprovalForOverride appends the chain record the override
// produces, via AppendToChain.
func (m *Manager) appendApprovalForOverride(ctx context.Context, chainID string, ov *entity.ScheduleOverride) error {
	action := entity.ApprovalActionForOverride(ov.Type)
	actorID := ov.ActorID
	payload := map[string]interface{}{
		"assignment_id": ov.AssignmentID.String(),
		"override_id":   ov.ID.String(),
		"override_type": string(ov.Type),
	}
	return AppendToChain(ctx, m.db, chainID, action, payload, &actorID, entity.ActorTypeHuman, ov.Reason, "assignment", &ov.AssignmentID)
}

// AppendToChain appends one record to chainID, creating that chain's
// genesis record first if it doesn't exist yet. Shared by Manager.Apply
// (override records) and any other caller that needs to extend a chain
// without duplicating the genesis-or-append dance.
func AppendToChain(ctx context.Context, db repository.Database, chainID string, action entity.ApprovalAction, payload map[string]interface{}, actorID *uuid.UUID, actorType entity.ActorType, reason, resourceType string, resourceID *uuid.UUID) error {
	approvals := db.ApprovalRecordRepository()

	prior, err := approvals.GetLatest(ctx, chainID)
	if err != nil && !entity.IsNotFound(err) {
		return err
	}
	if prior == nil {
		genesis, err := entity.NewGenesisRecord(uuid.New(), chainID, actorID, "chain initialized")
		if err != nil {
			return err
		}
		if err := approvals.Append(ctx, genesis); err != nil {
			return err
		}
		prior = genesis
	}

	record, err := entity.NewApprovalRecord(uuid.New(), prior, action, payload, actorID, actorType, reason, resourceType, resourceID)
	if err != nil {
		return err
	}
	return approvals.Append(ctx, record)
}

// VerifyChain walks a chain's records in sequence_num order, recomputing
// each record's hash and checking prev_hash against the prior record's
// stored hash. Returns (true, 0) if clean, or (false, sequence_num) of
// the first tampered record.
func VerifyChain(records []*entity.ApprovalRecord) (bool, int) {
	var prevHash string
	for i, r := range records {
		ok, err := r.VerifyHash()
		if err != nil || !ok {
			return false, r.SequenceNum
		}
		if i > 0 && r.PrevHash != prevHash {
			return false, r.SequenceNum
		}
		prevHash = r.RecordHash
	}
	return true, 0
}
