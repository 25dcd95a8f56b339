package entity

import (
	"time"

	"github.com/google/uuid"
)

// AssignmentRole is the capacity in which a person fills a block.
type AssignmentRole string

const (
	AssignmentRolePrimary    AssignmentRole = "primary"
	AssignmentRoleSupervising AssignmentRole = "supervising"
	AssignmentRoleBackup     AssignmentRole = "backup"
)

// Assignment is the scheduled fact: a person filling a block, optionally
// under a rotation template, with an optional activity override.
type Assignment struct {
	ID                 uuid.UUID
	BlockID            uuid.UUID
	PersonID           uuid.UUID
	RotationTemplateID *uuid.UUID
	Role               AssignmentRole
	ActivityOverride   string // empty means derive activity from rotation/pattern
	Notes              string

	CreatedAt time.Time
	CreatedBy uuid.UUID
	UpdatedAt time.Time // optimistic-locking token
	DeletedAt *time.Time
	DeletedBy *uuid.UUID
}

func NewAssignment(id, blockID, personID uuid.UUID, role AssignmentRole, createdBy uuid.UUID) *Assignment {
	now := time.Now().UTC()
	return &Assignment{
		ID:        id,
		BlockID:   blockID,
		PersonID:  personID,
		Role:      role,
		CreatedAt: now,
		CreatedBy: createdBy,
		UpdatedAt: now,
	}
}

// Key is the (block, person) uniqueness key.
func (a *Assignment) Key() string { return a.BlockID.String() + "_" + a.PersonID.String() }

func (a *Assignment) IsDeleted() bool { return a.DeletedAt != nil }

func (a *Assignment) SoftDelete(deleterID uuid.UUID) {
	now := time.Now().UTC()
	a.DeletedAt = &now
	a.DeletedBy = &deleterID
	a.UpdatedAt = now
}

// AbsenceType classifies an absence period.
type AbsenceType string

const (
	AbsenceTypeVacation        AbsenceType = "vacation"
	AbsenceTypeDeployment      AbsenceType = "deployment"
	AbsenceTypeTDY             AbsenceType = "tdy"
	AbsenceTypeMedical         AbsenceType = "medical"
	AbsenceTypeFamilyEmergency AbsenceType = "family_emergency"
	AbsenceTypeConference      AbsenceType = "conference"
)

// Absence is a (person, date range) period during which the person is
// unavailable for assignment.
type Absence struct {
	ID                   uuid.UUID
	PersonID             uuid.UUID
	StartDate            Date
	EndDate              Date
	Type                 AbsenceType
	IsDeployment         bool
	ReplacementActivity  string
}

func NewAbsence(id, personID uuid.UUID, start, end Date, typ AbsenceType) (*Absence, error) {
	if end.Time.Before(start.Time) {
		return nil, ErrInvalidDateRange
	}
	return &Absence{ID: id, PersonID: personID, StartDate: start, EndDate: end, Type: typ}, nil
}

// Covers reports whether the absence covers the given date.
func (a *Absence) Covers(d Date) bool {
	return !d.Time.Before(a.StartDate.Time) && !d.Time.After(a.EndDate.Time)
}

// CallType distinguishes overnight, weekend, and backup call duty.
type CallType string

const (
	CallTypeOvernight CallType = "overnight"
	CallTypeWeekend   CallType = "weekend"
	CallTypeBackup    CallType = "backup"
)

// CallAssignment is a (date, person, call_type) duty assignment, unique per
// triple.
type CallAssignment struct {
	ID       uuid.UUID
	Date     Date
	PersonID uuid.UUID
	CallType CallType
}

func (c *CallAssignment) Key() string {
	return c.Date.String() + "_" + c.PersonID.String() + "_" + string(c.CallType)
}

// CredentialStatus tracks a procedure credential's lifecycle.
type CredentialStatus string

const (
	CredentialStatusActive               CredentialStatus = "active"
	CredentialStatusSuspended            CredentialStatus = "suspended"
	CredentialStatusExpired              CredentialStatus = "expired"
	CredentialStatusPendingVerification  CredentialStatus = "pending_verification"
)

// Credential is a person's qualification to perform a procedure.
type Credential struct {
	ID               uuid.UUID
	PersonID         uuid.UUID
	Procedure        string
	Status           CredentialStatus
	CompetencyLevel  int
	IssuedDate       Date
	ExpirationDate   *Date
	LastVerifiedDate *Date
	Caps             int // optional per-period cap on procedure volume; 0 = unlimited
}

// IsQualified reports whether the credential is usable as of asOf: its
// status is active and asOf is not past its expiration date.
func (c *Credential) IsQualified(asOf Date) bool {
	if c.Status == CredentialStatusSuspended || c.Status == CredentialStatusExpired {
		return false
	}
	if c.ExpirationDate != nil && asOf.Time.After(c.ExpirationDate.Time) {
		return false
	}
	return c.Status == CredentialStatusActive
}
