package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/schedcu/v2/internal/entity"
)

// Database provides access to all per-entity repositories plus the single
// LoadContext/WriteAssignments/AppendApproval/ReadChain surface the
// generation core actually depends on.
type Database interface {
	BeginTx(ctx context.Context) (Transaction, error)

	PersonRepository() PersonRepository
	BlockRepository() BlockRepository
	ActivityRepository() ActivityRepository
	RotationTemplateRepository() RotationTemplateRepository
	WeeklyPatternRepository() WeeklyPatternRepository
	RotationActivityRequirementRepository() RotationActivityRequirementRepository
	AssignmentRepository() AssignmentRepository
	AbsenceRepository() AbsenceRepository
	CallAssignmentRepository() CallAssignmentRepository
	ScheduleOverrideRepository() ScheduleOverrideRepository
	ApprovalRecordRepository() ApprovalRecordRepository
	CredentialRepository() CredentialRepository

	// LoadContext returns every entity needed to build a SchedulingContext
	// for the given date range: persons, blocks, templates, existing
	// assignments, absences, patterns, requirements, call assignments,
	// and credentials.
	LoadContext(ctx context.Context, start, end entity.Date) (*SchedulingData, error)

	// WriteAssignments idempotently replaces any prior write for runID,
	// transactionally.
	WriteAssignments(ctx context.Context, runID string, assignments []*entity.Assignment) error

	// AppendApproval appends a record, enforcing (chain_id, sequence_num)
	// uniqueness.
	AppendApproval(ctx context.Context, record *entity.ApprovalRecord) error

	// ReadChain returns all records for chainID ordered by sequence_num.
	ReadChain(ctx context.Context, chainID string) ([]*entity.ApprovalRecord, error)

	Close() error
	Health(ctx context.Context) error
}

// Transaction mirrors Database's repository accessors within a single
// transactional scope.
type Transaction interface {
	Commit() error
	Rollback() error

	PersonRepository() PersonRepository
	BlockRepository() BlockRepository
	AssignmentRepository() AssignmentRepository
	ApprovalRecordRepository() ApprovalRecordRepository
}

// SchedulingData is the raw bundle load_context returns before the
// constraint package folds it into a SchedulingContext.
type SchedulingData struct {
	Persons              []*entity.Person
	Blocks               []*entity.Block
	Activities           []*entity.Activity
	RotationTemplates    []*entity.RotationTemplate
	WeeklyPatterns       []*entity.WeeklyPattern
	Requirements         []*entity.RotationActivityRequirement
	ExistingAssignments  []*entity.Assignment
	Absences             []*entity.Absence
	CallAssignments      []*entity.CallAssignment
	Credentials          []*entity.Credential
}

type PersonRepository interface {
	Create(ctx context.Context, p *entity.Person) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Person, error)
	GetByEmail(ctx context.Context, email string) (*entity.Person, error)
	GetAll(ctx context.Context) ([]*entity.Person, error)
	Update(ctx context.Context, p *entity.Person) error
	Delete(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context) (int64, error)
}

type BlockRepository interface {
	Create(ctx context.Context, b *entity.Block) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Block, error)
	GetByDateRange(ctx context.Context, start, end entity.Date) ([]*entity.Block, error)
	Count(ctx context.Context) (int64, error)
}

type ActivityRepository interface {
	Create(ctx context.Context, a *entity.Activity) error
	GetByCode(ctx context.Context, code string) (*entity.Activity, error)
	GetAll(ctx context.Context) ([]*entity.Activity, error)
}

type RotationTemplateRepository interface {
	Create(ctx context.Context, r *entity.RotationTemplate) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.RotationTemplate, error)
	GetAll(ctx context.Context) ([]*entity.RotationTemplate, error)
	Update(ctx context.Context, r *entity.RotationTemplate) error
}

type WeeklyPatternRepository interface {
	Create(ctx context.Context, p *entity.WeeklyPattern) error
	GetByRotationTemplate(ctx context.Context, rotationTemplateID uuid.UUID) ([]*entity.WeeklyPattern, error)
}

type RotationActivityRequirementRepository interface {
	Create(ctx context.Context, r *entity.RotationActivityRequirement) error
	GetByRotationTemplate(ctx context.Context, rotationTemplateID uuid.UUID) ([]*entity.RotationActivityRequirement, error)
}

type AssignmentRepository interface {
	Create(ctx context.Context, a *entity.Assignment) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Assignment, error)
	GetByPerson(ctx context.Context, personID uuid.UUID) ([]*entity.Assignment, error)
	GetByPersonAndDateRange(ctx context.Context, personID uuid.UUID, start, end entity.Date) ([]*entity.Assignment, error)
	GetByBlock(ctx context.Context, blockID uuid.UUID) ([]*entity.Assignment, error)
	Update(ctx context.Context, a *entity.Assignment) error
	Delete(ctx context.Context, id uuid.UUID, deleterID uuid.UUID) error
	Count(ctx context.Context) (int64, error)
}

type AbsenceRepository interface {
	Create(ctx context.Context, a *entity.Absence) error
	GetByPerson(ctx context.Context, personID uuid.UUID) ([]*entity.Absence, error)
	GetByDateRange(ctx context.Context, start, end entity.Date) ([]*entity.Absence, error)
}

type CallAssignmentRepository interface {
	Create(ctx context.Context, c *entity.CallAssignment) error
	GetByDateRange(ctx context.Context, start, end entity.Date) ([]*entity.CallAssignment, error)
}

type ScheduleOverrideRepository interface {
	Create(ctx context.Context, o *entity.ScheduleOverride) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.ScheduleOverride, error)
	GetActiveByAssignment(ctx context.Context, assignmentID uuid.UUID) (*entity.ScheduleOverride, error)
	Update(ctx context.Context, o *entity.ScheduleOverride) error
}

type ApprovalRecordRepository interface {
	Append(ctx context.Context, r *entity.ApprovalRecord) error
	GetByChain(ctx context.Context, chainID string) ([]*entity.ApprovalRecord, error)
	GetLatest(ctx context.Context, chainID string) (*entity.ApprovalRecord, error)
}

type CredentialRepository interface {
	GetByPerson(ctx context.Context, personID uuid.UUID) ([]*entity.Credential, error)
	GetByPersonAndProcedure(ctx context.Context, personID uuid.UUID, procedure string) (*entity.Credential, error)
}
