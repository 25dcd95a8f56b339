package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/schedcu/v2/internal/entity"
)

// AbsenceRepository implements repository.AbsenceRepository for PostgreSQL.
type AbsenceRepository struct {
	db *sql.DB
}

func NewAbsenceRepository(db *sql.DB) *AbsenceRepository {
	return &AbsenceRepository{db: db}
}

func (r *AbsenceRepository) Create(ctx context.Context, a *entity.Absence) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	query := `
		INSERT INTO absences (id, person_id, start_date, end_date, type, is_deployment, replacement_activity)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query, a.ID, a.PersonID, a.StartDate.Time, a.EndDate.Time, string(a.Type), a.IsDeployment, a.ReplacementActivity)
	if err != nil {
		return fmt.Errorf("failed to create absence: %w", err)
	}
	return nil
}

func (r *AbsenceRepository) GetByPerson(ctx context.Context, personID uuid.UUID) ([]*entity.Absence, error) {
	query := `
		SELECT id, person_id, start_date, end_date, type, is_deployment, replacement_activity
		FROM absences WHERE person_id = $1 ORDER BY start_date
	`
	rows, err := r.db.QueryContext(ctx, query, personID)
	if err != nil {
		return nil, fmt.Errorf("failed to query absences by person: %w", err)
	}
	defer rows.Close()
	return scanAbsences(rows)
}

func (r *AbsenceRepository) GetByDateRange(ctx context.Context, start, end entity.Date) ([]*entity.Absence, error) {
	query := `
		SELECT id, person_id, start_date, end_date, type, is_deployment, replacement_activity
		FROM absences WHERE end_date >= $1 AND start_date <= $2 ORDER BY start_date
	`
	rows, err := r.db.QueryContext(ctx, query, start.Time, end.Time)
	if err != nil {
		return nil, fmt.Errorf("failed to query absences by date range: %w", err)
	}
	defer rows.Close()
	return scanAbsences(rows)
}

func scanAbsences(rows *sql.Rows) ([]*entity.Absence, error) {
	var out []*entity.Absence
	for rows.Next() {
		a := &entity.Absence{}
		if err := rows.Scan(&a.ID, &a.PersonID, &a.StartDate.Time, &a.EndDate.Time, (*string)(&a.Type), &a.IsDeployment, &a.ReplacementActivity); err != nil {
			return nil, fmt.Errorf("failed to scan absence: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// CallAssignmentRepository implements repository.CallAssignmentRepository
// for PostgreSQL.
type CallAssignmentRepository struct {
	db *sql.DB
}

func NewCallAssignmentRepository(db *sql.DB) *CallAssignmentRepository {
	return &CallAssignmentRepository{db: db}
}

func (r *CallAssignmentRepository) Create(ctx context.Context, c *entity.CallAssignment) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	query := `INSERT INTO call_assignments (id, date, person_id, call_type) VALUES ($1, $2, $3, $4)`
	_, err := r.db.ExecContext(ctx, query, c.ID, c.Date.Time, c.PersonID, string(c.CallType))
	if err != nil {
		if isUniqueViolation(err) {
			return entity.NewConflict("call assignment already exists for this (date, person, call_type)")
		}
		return fmt.Errorf("failed to create call assignment: %w", err)
	}
	return nil
}

func (r *CallAssignmentRepository) GetByDateRange(ctx context.Context, start, end entity.Date) ([]*entity.CallAssignment, error) {
	query := `SELECT id, date, person_id, call_type FROM call_assignments WHERE date BETWEEN $1 AND $2 ORDER BY date`
	rows, err := r.db.QueryContext(ctx, query, start.Time, end.Time)
	if err != nil {
		return nil, fmt.Errorf("failed to query call assignments: %w", err)
	}
	defer rows.Close()

	var out []*entity.CallAssignment
	for rows.Next() {
		c := &entity.CallAssignment{}
		if err := rows.Scan(&c.ID, &c.Date.Time, &c.PersonID, (*string)(&c.CallType)); err != nil {
			return nil, fmt.Errorf("failed to scan call assignment: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ScheduleOverrideRepository implements repository.ScheduleOverrideRepository
// for PostgreSQL.
type ScheduleOverrideRepository struct {
	db *sql.DB
}

func NewScheduleOverrideRepository(db *sql.DB) *ScheduleOverrideRepository {
	return &ScheduleOverrideRepository{db: db}
}

func (r *ScheduleOverrideRepository) Create(ctx context.Context, o *entity.ScheduleOverride) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	query := `
		INSERT INTO schedule_overrides
			(id, assignment_id, type, original_person_id, replacement_person_id, effective_at, is_active,
			 supersedes_override_id, reason, actor_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.db.ExecContext(ctx, query,
		o.ID, o.AssignmentID, string(o.Type), o.OriginalPersonID, o.ReplacementPersonID, o.EffectiveAt, o.IsActive,
		o.SupersedesOverrideID, o.Reason, o.ActorID, o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create schedule override: %w", err)
	}
	return nil
}

func (r *ScheduleOverrideRepository) scan(row *sql.Row) (*entity.ScheduleOverride, error) {
	o := &entity.ScheduleOverride{}
	var replacementPersonID, supersedesOverrideID, deactivatedBy sql.NullString
	var deactivatedAt sql.NullTime
	err := row.Scan(
		&o.ID, &o.AssignmentID, (*string)(&o.Type), &o.OriginalPersonID, &replacementPersonID, &o.EffectiveAt, &o.IsActive,
		&supersedesOverrideID, &o.Reason, &o.ActorID, &o.CreatedAt, &deactivatedAt, &deactivatedBy,
	)
	if err != nil {
		return nil, err
	}
	if o.ReplacementPersonID, err = nullUUID(replacementPersonID); err != nil {
		return nil, err
	}
	if o.SupersedesOverrideID, err = nullUUID(supersedesOverrideID); err != nil {
		return nil, err
	}
	if o.DeactivatedBy, err = nullUUID(deactivatedBy); err != nil {
		return nil, err
	}
	o.DeactivatedAt = nullTimePtr(deactivatedAt)
	return o, nil
}

func (r *ScheduleOverrideRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.ScheduleOverride, error) {
	query := `
		SELECT id, assignment_id, type, original_person_id, replacement_person_id, effective_at, is_active,
			supersedes_override_id, reason, actor_id, created_at, deactivated_at, deactivated_by
		FROM schedule_overrides WHERE id = $1
	`
	o, err := r.scan(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, entity.NewNotFound("ScheduleOverride", id.String())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get schedule override: %w", err)
	}
	return o, nil
}

func (r *ScheduleOverrideRepository) GetActiveByAssignment(ctx context.Context, assignmentID uuid.UUID) (*entity.ScheduleOverride, error) {
	query := `
		SELECT id, assignment_id, type, original_person_id, replacement_person_id, effective_at, is_active,
			supersedes_override_id, reason, actor_id, created_at, deactivated_at, deactivated_by
		FROM schedule_overrides WHERE assignment_id = $1 AND is_active = true
		ORDER BY created_at DESC LIMIT 1
	`
	o, err := r.scan(r.db.QueryRowContext(ctx, query, assignmentID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active schedule override: %w", err)
	}
	return o, nil
}

func (r *ScheduleOverrideRepository) Update(ctx context.Context, o *entity.ScheduleOverride) error {
	query := `
		UPDATE schedule_overrides SET is_active=$2, deactivated_at=$3, deactivated_by=$4
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query, o.ID, o.IsActive, o.DeactivatedAt, o.DeactivatedBy)
	if err != nil {
		return fmt.Errorf("failed to update schedule override: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return entity.NewNotFound("ScheduleOverride", o.ID.String())
	}
	return nil
}

// CredentialRepository implements repository.CredentialRepository for
// PostgreSQL.
type CredentialRepository struct {
	db *sql.DB
}

func NewCredentialRepository(db *sql.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

func (r *CredentialRepository) GetByPerson(ctx context.Context, personID uuid.UUID) ([]*entity.Credential, error) {
	query := `
		SELECT id, person_id, procedure, status, competency_level, issued_date, expiration_date, last_verified_date, caps
		FROM credentials WHERE person_id = $1
	`
	rows, err := r.db.QueryContext(ctx, query, personID)
	if err != nil {
		return nil, fmt.Errorf("failed to query credentials by person: %w", err)
	}
	defer rows.Close()
	return scanCredentials(rows)
}

func (r *CredentialRepository) GetByPersonAndProcedure(ctx context.Context, personID uuid.UUID, procedure string) (*entity.Credential, error) {
	query := `
		SELECT id, person_id, procedure, status, competency_level, issued_date, expiration_date, last_verified_date, caps
		FROM credentials WHERE person_id = $1 AND procedure = $2
	`
	c := &entity.Credential{}
	var expiration, lastVerified sql.NullTime
	err := r.db.QueryRowContext(ctx, query, personID, procedure).Scan(
		&c.ID, &c.PersonID, &c.Procedure, (*string)(&c.Status), &c.CompetencyLevel, &c.IssuedDate.Time, &expiration, &lastVerified, &c.Caps,
	)
	if err == sql.ErrNoRows {
		return nil, entity.NewNotFound("Credential", personID.String()+"/"+procedure)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get credential: %w", err)
	}
	c.ExpirationDate = nullTimeToDate(expiration)
	c.LastVerifiedDate = nullTimeToDate(lastVerified)
	return c, nil
}

func scanCredentials(rows *sql.Rows) ([]*entity.Credential, error) {
	var out []*entity.Credential
	for rows.Next() {
		c := &entity.Credential{}
		var expiration, lastVerified sql.NullTime
		if err := rows.Scan(
			&c.ID, &c.PersonID, &c.Procedure, (*string)(&c.Status), &c.CompetencyLevel, &c.IssuedDate.Time, &expiration, &lastVerified, &c.Caps,
		); err != nil {
			return nil, fmt.Errorf("failed to scan credential: %w", err)
		}
		c.ExpirationDate = nullTimeToDate(expiration)
		c.LastVerifiedDate = nullTimeToDate(lastVerified)
		out = append(out, c)
	}
	return out, rows.Err()
}

func nullTimeToDate(nt sql.NullTime) *entity.Date {
	if !nt.Valid {
		return nil
	}
	d := entity.Date{Time: nt.Time}
	return &d
}
