package entity

import (
	"time"

	"github.com/google/uuid"
)

// ApprovalAction is the full action vocabulary carried over from the
// original system's ApprovalAction enum, not just the three override
// kinds spec.md names directly.
type ApprovalAction string

const (
	ApprovalActionScheduleGenerated ApprovalAction = "SCHEDULE_GENERATED"
	ApprovalActionScheduleApproved  ApprovalAction = "SCHEDULE_APPROVED"
	ApprovalActionSchedulePublished ApprovalAction = "SCHEDULE_PUBLISHED"
	ApprovalActionScheduleRejected  ApprovalAction = "SCHEDULE_REJECTED"

	ApprovalActionAssignmentCreated  ApprovalAction = "ASSIGNMENT_CREATED"
	ApprovalActionAssignmentModified ApprovalAction = "ASSIGNMENT_MODIFIED"
	ApprovalActionAssignmentDeleted  ApprovalAction = "ASSIGNMENT_DELETED"

	ApprovalActionACGMEOverrideRequested ApprovalAction = "ACGME_OVERRIDE_REQUESTED"
	ApprovalActionACGMEOverrideApproved  ApprovalAction = "ACGME_OVERRIDE_APPROVED"
	ApprovalActionACGMEOverrideDenied    ApprovalAction = "ACGME_OVERRIDE_DENIED"

	ApprovalActionSwapRequested ApprovalAction = "SWAP_REQUESTED"
	ApprovalActionSwapApproved  ApprovalAction = "SWAP_APPROVED"
	ApprovalActionSwapExecuted  ApprovalAction = "SWAP_EXECUTED"
	ApprovalActionSwapRolledBack ApprovalAction = "SWAP_ROLLED_BACK"

	ApprovalActionGenesis    ApprovalAction = "GENESIS"
	ApprovalActionDaySealed  ApprovalAction = "DAY_SEALED"
	ApprovalActionAborted    ApprovalAction = "ABORTED"
)

// ActorType is who (or what) performed the approval action.
type ActorType string

const (
	ActorTypeHuman  ActorType = "human"
	ActorTypeSystem ActorType = "system"
	ActorTypeAI     ActorType = "ai"
)

// ApprovalRecord is a single link in a chain_id's tamper-evident hash chain.
type ApprovalRecord struct {
	ID              uuid.UUID
	ChainID         string
	SequenceNum     int
	PrevRecordID    *uuid.UUID
	PrevHash        string // empty for genesis
	RecordHash      string
	Action          ApprovalAction
	Payload         map[string]interface{}
	ActorID         *uuid.UUID
	ActorType       ActorType
	Reason          string
	TargetEntityType string
	TargetEntityID   *uuid.UUID
	CreatedAt       time.Time
}

// ComputeApprovalHash mirrors the original's ApprovalRecord.compute_hash: SHA-256
// over the canonical JSON of {prev_hash or "GENESIS", payload, actor_id,
// actor_type, action, iso_timestamp, reason}, keys sorted.
func ComputeApprovalHash(prevHash string, payload map[string]interface{}, actorID *uuid.UUID, actorType ActorType, action ApprovalAction, timestamp time.Time, reason string) (string, error) {
	ph := prevHash
	if ph == "" {
		ph = "GENESIS"
	}
	var actorIDStr interface{}
	if actorID != nil {
		actorIDStr = actorID.String()
	}
	data := map[string]interface{}{
		"prev_hash":  ph,
		"payload":    payload,
		"actor_id":   actorIDStr,
		"actor_type": string(actorType),
		"action":     string(action),
		"timestamp":  timestamp.UTC().Format(time.RFC3339Nano),
		"reason":     reasonOrNil(reason),
	}
	raw, err := CanonicalJSON(data)
	if err != nil {
		return "", err
	}
	return sha256Hex(raw), nil
}

func reasonOrNil(reason string) interface{} {
	if reason == "" {
		return nil
	}
	return reason
}

// NewGenesisRecord creates the first record of a chain, sequence_num 0,
// prev_hash nil.
func NewGenesisRecord(id uuid.UUID, chainID string, actorID *uuid.UUID, reason string) (*ApprovalRecord, error) {
	if reason == "" {
		reason = "Chain initialized"
	}
	now := time.Now().UTC()
	payload := map[string]interface{}{"chain_initialized": true}
	hash, err := ComputeApprovalHash("", payload, actorID, ActorTypeSystem, ApprovalActionGenesis, now, reason)
	if err != nil {
		return nil, err
	}
	return &ApprovalRecord{
		ID:          id,
		ChainID:     chainID,
		SequenceNum: 0,
		Payload:     payload,
		Action:      ApprovalActionGenesis,
		ActorID:     actorID,
		ActorType:   ActorTypeSystem,
		Reason:      reason,
		RecordHash:  hash,
		CreatedAt:   now,
	}, nil
}

// NewApprovalRecord builds the next record following prior in the chain,
// stamping sequence_num = prior.SequenceNum+1 and prev_hash = prior hash.
func NewApprovalRecord(id uuid.UUID, prior *ApprovalRecord, action ApprovalAction, payload map[string]interface{}, actorID *uuid.UUID, actorType ActorType, reason string, targetEntityType string, targetEntityID *uuid.UUID) (*ApprovalRecord, error) {
	now := time.Now().UTC()
	hash, err := ComputeApprovalHash(prior.RecordHash, payload, actorID, actorType, action, now, reason)
	if err != nil {
		return nil, err
	}
	priorID := prior.ID
	return &ApprovalRecord{
		ID:               id,
		ChainID:          prior.ChainID,
		SequenceNum:      prior.SequenceNum + 1,
		PrevRecordID:     &priorID,
		PrevHash:         prior.RecordHash,
		RecordHash:       hash,
		Action:           action,
		Payload:          payload,
		ActorID:          actorID,
		ActorType:        actorType,
		Reason:           reason,
		TargetEntityType: targetEntityType,
		TargetEntityID:   targetEntityID,
		CreatedAt:        now,
	}, nil
}

// VerifyHash recomputes the record's hash from its stored fields and
// compares it against RecordHash, mirroring the original's verify_hash.
func (r *ApprovalRecord) VerifyHash() (bool, error) {
	expected, err := ComputeApprovalHash(r.PrevHash, r.Payload, r.ActorID, r.ActorType, r.Action, r.CreatedAt, r.Reason)
	if err != nil {
		return false, err
	}
	return expected == r.RecordHash, nil
}
