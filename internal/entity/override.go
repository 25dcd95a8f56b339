package entity

import (
	"time"

	"github.com/google/uuid"
)

// OverrideType is the kind of post-release modification applied to an
// assignment.
type OverrideType string

const (
	OverrideTypeCoverage    OverrideType = "coverage"
	OverrideTypeCancellation OverrideType = "cancellation"
	OverrideTypeGap         OverrideType = "gap"
)

// ScheduleOverride is a post-release modification of an Assignment.
type ScheduleOverride struct {
	ID                    uuid.UUID
	AssignmentID          uuid.UUID
	Type                  OverrideType
	OriginalPersonID      uuid.UUID
	ReplacementPersonID   *uuid.UUID // required for coverage
	EffectiveAt           time.Time
	IsActive              bool
	SupersedesOverrideID  *uuid.UUID
	Reason                string
	ActorID               uuid.UUID

	CreatedAt      time.Time
	DeactivatedAt  *time.Time
	DeactivatedBy  *uuid.UUID
}

func NewScheduleOverride(id, assignmentID, originalPersonID uuid.UUID, typ OverrideType, reason string, actorID uuid.UUID) *ScheduleOverride {
	return &ScheduleOverride{
		ID:               id,
		AssignmentID:     assignmentID,
		Type:             typ,
		OriginalPersonID: originalPersonID,
		Reason:           reason,
		ActorID:          actorID,
		IsActive:         true,
		EffectiveAt:      time.Now().UTC(),
		CreatedAt:        time.Now().UTC(),
	}
}

// Deactivate marks the override inactive, stamping the deactivator. Used
// when a later override supersedes this one.
func (o *ScheduleOverride) Deactivate(deactivatorID uuid.UUID) {
	now := time.Now().UTC()
	o.IsActive = false
	o.DeactivatedAt = &now
	o.DeactivatedBy = &deactivatorID
}

// ApprovalActionForOverride maps an override type to the ApprovalAction
// recorded in the audit chain for it.
func ApprovalActionForOverride(t OverrideType) ApprovalAction {
	switch t {
	case OverrideTypeCoverage:
		return ApprovalActionSwapApproved
	case OverrideTypeCancellation:
		return ApprovalActionAssignmentDeleted
	case OverrideTypeGap:
		return ApprovalActionAssignmentModified
	default:
		return ApprovalActionAssignmentModified
	}
}
