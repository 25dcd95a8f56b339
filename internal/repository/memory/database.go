package memory

import (
	"context"

	"github.com/schedcu/v2/internal/entity"
	"github.com/schedcu/v2/internal/repository"
)

// Database is an in-memory repository.Database implementation, composing
// the package's per-entity map-backed repositories. Useful for tests and
// for running the core without Postgres.
type Database struct {
	persons       *PersonRepository
	blocks        *BlockRepository
	activities    *ActivityRepository
	templates     *RotationTemplateRepository
	patterns      *WeeklyPatternRepository
	requirements  *RotationActivityRequirementRepository
	assignments   *AssignmentRepository
	absences      *AbsenceRepository
	calls         *CallAssignmentRepository
	overrides     *ScheduleOverrideRepository
	approvals     *ApprovalRecordRepository
	credentials   *CredentialRepository
}

func NewDatabase() *Database {
	return &Database{
		persons:      NewPersonRepository(),
		blocks:       NewBlockRepository(),
		activities:   NewActivityRepository(),
		templates:    NewRotationTemplateRepository(),
		patterns:     NewWeeklyPatternRepository(),
		requirements: NewRotationActivityRequirementRepository(),
		assignments:  NewAssignmentRepository(),
		absences:     NewAbsenceRepository(),
		calls:        NewCallAssignmentRepository(),
		overrides:    NewScheduleOverrideRepository(),
		approvals:    NewApprovalRecordRepository(),
		credentials:  NewCredentialRepository(),
	}
}

func (d *Database) PersonRepository() repository.PersonRepository { return d.persons }
func (d *Database) BlockRepository() repository.BlockRepository   { return d.blocks }
func (d *Database) ActivityRepository() repository.ActivityRepository { return d.activities }
func (d *Database) RotationTemplateRepository() repository.RotationTemplateRepository {
	return d.templates
}
func (d *Database) WeeklyPatternRepository() repository.WeeklyPatternRepository { return d.patterns }
func (d *Database) RotationActivityRequirementRepository() repository.RotationActivityRequirementRepository {
	return d.requirements
}
func (d *Database) AssignmentRepository() repository.AssignmentRepository { return d.assignments }
func (d *Database) AbsenceRepository() repository.AbsenceRepository       { return d.absences }
func (d *Database) CallAssignmentRepository() repository.CallAssignmentRepository {
	return d.calls
}
func (d *Database) ScheduleOverrideRepository() repository.ScheduleOverrideRepository {
	return d.overrides
}
func (d *Database) ApprovalRecordRepository() repository.ApprovalRecordRepository {
	return d.approvals
}
func (d *Database) CredentialRepository() repository.CredentialRepository { return d.credentials }

func (d *Database) BeginTx(ctx context.Context) (repository.Transaction, error) {
	return &memTx{db: d}, nil
}

func (d *Database) LoadContext(ctx context.Context, start, end entity.Date) (*repository.SchedulingData, error) {
	persons, err := d.persons.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	blocks, err := d.blocks.GetByDateRange(ctx, start, end)
	if err != nil {
		return nil, err
	}
	activities, err := d.activities.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	templates, err := d.templates.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	var patterns []*entity.WeeklyPattern
	var requirements []*entity.RotationActivityRequirement
	for _, t := range templates {
		p, err := d.patterns.GetByRotationTemplate(ctx, t.ID)
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, p...)
		r, err := d.requirements.GetByRotationTemplate(ctx, t.ID)
		if err != nil {
			return nil, err
		}
		requirements = append(requirements, r...)
	}

	var assignments []*entity.Assignment
	for _, b := range blocks {
		a, err := d.assignments.GetByBlock(ctx, b.ID)
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, a...)
	}

	absences, err := d.absences.GetByDateRange(ctx, start, end)
	if err != nil {
		return nil, err
	}
	calls, err := d.calls.GetByDateRange(ctx, start, end)
	if err != nil {
		return nil, err
	}
	var credentials []*entity.Credential
	for _, p := range persons {
		c, err := d.credentials.GetByPerson(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		credentials = append(credentials, c...)
	}

	return &repository.SchedulingData{
		Persons:             persons,
		Blocks:              blocks,
		Activities:          activities,
		RotationTemplates:   templates,
		WeeklyPatterns:      patterns,
		Requirements:        requirements,
		ExistingAssignments: assignments,
		Absences:            absences,
		CallAssignments:     calls,
		Credentials:         credentials,
	}, nil
}

func (d *Database) WriteAssignments(ctx context.Context, runID string, assignments []*entity.Assignment) error {
	d.assignments.ReplaceForRun(runID, assignments)
	return nil
}

func (d *Database) AppendApproval(ctx context.Context, record *entity.ApprovalRecord) error {
	return d.approvals.Append(ctx, record)
}

func (d *Database) ReadChain(ctx context.Context, chainID string) ([]*entity.ApprovalRecord, error) {
	return d.approvals.GetByChain(ctx, chainID)
}

func (d *Database) Close() error { return nil }

func (d *Database) Health(ctx context.Context) error { return nil }

var _ repository.Database = (*Database)(nil)

// memTx is a no-op transaction wrapper: the in-memory store already applies
// each write atomically under its own mutex, so Commit/Rollback are no-ops
// and the accessor methods simply delegate to the parent Database.
type memTx struct {
	db *Database
}

func (t *memTx) Commit() error   { return nil }
func (t *memTx) Rollback() error { return nil }

func (t *memTx) PersonRepository() repository.PersonRepository         { return t.db.persons }
func (t *memTx) BlockRepository() repository.BlockRepository           { return t.db.blocks }
func (t *memTx) AssignmentRepository() repository.AssignmentRepository { return t.db.assignments }
func (t *memTx) ApprovalRecordRepository() repository.ApprovalRecordRepository {
	return t.db.approvals
}

var _ repository.Transaction = (*memTx)(nil)
