package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/schedcu/v2/internal/entity"
	"github.com/schedcu/v2/internal/repository"
)

// Database is a PostgreSQL-backed repository.Database, composing the
// package's per-entity repositories over a single connection pool.
type Database struct {
	conn *DB

	persons      *PersonRepository
	blocks       *BlockRepository
	activities   *ActivityRepository
	templates    *RotationTemplateRepository
	patterns     *WeeklyPatternRepository
	requirements *RotationActivityRequirementRepository
	assignments  *AssignmentRepository
	absences     *AbsenceRepository
	calls        *CallAssignmentRepository
	overrides    *ScheduleOverrideRepository
	approvals    *ApprovalRecordRepository
	credentials  *CredentialRepository
}

func NewDatabase(conn *DB) *Database {
	db := conn.DB
	return &Database{
		conn:         conn,
		persons:      NewPersonRepository(db),
		blocks:       NewBlockRepository(db),
		activities:   NewActivityRepository(db),
		templates:    NewRotationTemplateRepository(db),
		patterns:     NewWeeklyPatternRepository(db),
		requirements: NewRotationActivityRequirementRepository(db),
		assignments:  NewAssignmentRepository(db),
		absences:     NewAbsenceRepository(db),
		calls:        NewCallAssignmentRepository(db),
		overrides:    NewScheduleOverrideRepository(db),
		approvals:    NewApprovalRecordRepository(db),
		credentials:  NewCredentialRepository(db),
	}
}

func (d *Database) PersonRepository() repository.PersonRepository { return d.persons }
func (d *Database) BlockRepository() repository.BlockRepository   { return d.blocks }
func (d *Database) ActivityRepository() repository.ActivityRepository {
	return d.activities
}
func (d *Database) RotationTemplateRepository() repository.RotationTemplateRepository {
	return d.templates
}
func (d *Database) WeeklyPatternRepository() repository.WeeklyPatternRepository {
	return d.patterns
}
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
	tx, err := d.conn.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &sqlTx{
		tx:          tx,
		persons:     NewPersonRepository(tx),
		blocks:      NewBlockRepository(tx),
		assignments: NewAssignmentRepository(tx),
		approvals:   NewApprovalRecordRepository(tx),
	}, nil
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
	return ReplaceAssignmentsForRun(ctx, d.conn.DB, runID, assignments)
}

func (d *Database) AppendApproval(ctx context.Context, record *entity.ApprovalRecord) error {
	return d.approvals.Append(ctx, record)
}

func (d *Database) ReadChain(ctx context.Context, chainID string) ([]*entity.ApprovalRecord, error) {
	return d.approvals.GetByChain(ctx, chainID)
}

func (d *Database) Close() error { return d.conn.Close() }

func (d *Database) Health(ctx context.Context) error { return d.conn.Health(ctx) }

var _ repository.Database = (*Database)(nil)

// sqlTx wraps a *sql.Tx for the narrow set of repositories the generation
// core touches mid-transaction (applying an override and appending its
// audit record must commit or roll back together).
type sqlTx struct {
	tx *sql.Tx

	persons     *PersonRepository
	blocks      *BlockRepository
	assignments *AssignmentRepository
	approvals   *ApprovalRecordRepository
}

func (t *sqlTx) Commit() error   { return t.tx.Commit() }
func (t *sqlTx) Rollback() error { return t.tx.Rollback() }

func (t *sqlTx) PersonRepository() repository.PersonRepository         { return t.persons }
func (t *sqlTx) BlockRepository() repository.BlockRepository           { return t.blocks }
func (t *sqlTx) AssignmentRepository() repository.AssignmentRepository { return t.assignments }
func (t *sqlTx) ApprovalRecordRepository() repository.ApprovalRecordRepository {
	return t.approvals
}

var _ repository.Transaction = (*sqlTx)(nil)
