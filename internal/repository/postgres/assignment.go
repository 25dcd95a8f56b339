package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/schedcu/v2/internal/entity"
)

// AssignmentRepository implements repository.AssignmentRepository for PostgreSQL.
type AssignmentRepository struct {
	db sqlExecutor
}

func NewAssignmentRepository(db sqlExecutor) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

func (r *AssignmentRepository) Create(ctx context.Context, a *entity.Assignment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	query := `
		INSERT INTO assignments (id, block_id, person_id, rotation_template_id, role, activity_override, notes, created_at, created_by, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.ExecContext(ctx, query,
		a.ID, a.BlockID, a.PersonID, a.RotationTemplateID, string(a.Role), a.ActivityOverride, a.Notes,
		a.CreatedAt, a.CreatedBy, a.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return entity.NewConflict("assignment already exists for this (block, person)")
		}
		return fmt.Errorf("failed to create assignment: %w", err)
	}
	return nil
}

// assignmentScanner is satisfied by both *sql.Row and *sql.Rows, letting
// scanAssignment serve GetByID, queryAll, and GetByPersonAndDateRange alike.
type assignmentScanner interface {
	Scan(dest ...interface{}) error
}

func scanAssignment(s assignmentScanner) (*entity.Assignment, error) {
	a := &entity.Assignment{}
	var rotationTemplateID sql.NullString
	var deletedAt sql.NullTime
	var deletedBy sql.NullString
	err := s.Scan(
		&a.ID, &a.BlockID, &a.PersonID, &rotationTemplateID, (*string)(&a.Role), &a.ActivityOverride, &a.Notes,
		&a.CreatedAt, &a.CreatedBy, &a.UpdatedAt, &deletedAt, &deletedBy,
	)
	if err != nil {
		return nil, err
	}
	if a.RotationTemplateID, err = nullUUID(rotationTemplateID); err != nil {
		return nil, err
	}
	a.DeletedAt = nullTimePtr(deletedAt)
	if a.DeletedBy, err = nullUUID(deletedBy); err != nil {
		return nil, err
	}
	return a, nil
}

func (r *AssignmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Assignment, error) {
	query := `
		SELECT id, block_id, person_id, rotation_template_id, role, activity_override, notes, created_at, created_by, updated_at, deleted_at, deleted_by
		FROM assignments WHERE id = $1 AND deleted_at IS NULL
	`
	a, err := scanAssignment(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, entity.NewNotFound("Assignment", id.String())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	return a, nil
}

func (r *AssignmentRepository) queryAll(ctx context.Context, where string, args ...interface{}) ([]*entity.Assignment, error) {
	query := `
		SELECT id, block_id, person_id, rotation_template_id, role, activity_override, notes, created_at, created_by, updated_at, deleted_at, deleted_by
		FROM assignments WHERE deleted_at IS NULL AND ` + where
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignments: %w", err)
	}
	defer rows.Close()

	var out []*entity.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *AssignmentRepository) GetByPerson(ctx context.Context, personID uuid.UUID) ([]*entity.Assignment, error) {
	return r.queryAll(ctx, "person_id = $1", personID)
}

func (r *AssignmentRepository) GetByPersonAndDateRange(ctx context.Context, personID uuid.UUID, start, end entity.Date) ([]*entity.Assignment, error) {
	query := `
		SELECT a.id, a.block_id, a.person_id, a.rotation_template_id, a.role, a.activity_override, a.notes,
			a.created_at, a.created_by, a.updated_at, a.deleted_at, a.deleted_by
		FROM assignments a
		JOIN blocks b ON b.id = a.block_id
		WHERE a.deleted_at IS NULL AND a.person_id = $1 AND b.date BETWEEN $2 AND $3
	`
	rows, err := r.db.QueryContext(ctx, query, personID, start.Time, end.Time)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignments by person and date range: %w", err)
	}
	defer rows.Close()

	var out []*entity.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *AssignmentRepository) GetByBlock(ctx context.Context, blockID uuid.UUID) ([]*entity.Assignment, error) {
	return r.queryAll(ctx, "block_id = $1", blockID)
}

func (r *AssignmentRepository) Update(ctx context.Context, a *entity.Assignment) error {
	query := `
		UPDATE assignments SET rotation_template_id=$2, role=$3, activity_override=$4, notes=$5, updated_at=$6
		WHERE id = $1 AND deleted_at IS NULL AND updated_at = $7
	`
	prevUpdatedAt := a.UpdatedAt
	result, err := r.db.ExecContext(ctx, query,
		a.ID, a.RotationTemplateID, string(a.Role), a.ActivityOverride, a.Notes, a.UpdatedAt, prevUpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update assignment: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		if _, err := r.GetByID(ctx, a.ID); err != nil {
			return err
		}
		return entity.NewPrecondition("assignment was modified concurrently")
	}
	return nil
}

func (r *AssignmentRepository) Delete(ctx context.Context, id uuid.UUID, deleterID uuid.UUID) error {
	query := `UPDATE assignments SET deleted_at = NOW(), deleted_by = $2 WHERE id = $1 AND deleted_at IS NULL`
	result, err := r.db.ExecContext(ctx, query, id, deleterID)
	if err != nil {
		return fmt.Errorf("failed to delete assignment: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return entity.NewNotFound("Assignment", id.String())
	}
	return nil
}

func (r *AssignmentRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM assignments WHERE deleted_at IS NULL`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count assignments: %w", err)
	}
	return count, nil
}

// ReplaceAssignmentsForRun deletes any assignments previously written under runID and
// inserts the new set inside a single transaction, giving WriteAssignments
// its idempotent, all-or-nothing semantics. It takes the raw *sql.DB
// directly since it needs to manage its own transaction rather than run
// under the sqlExecutor the rest of the repository is bound to.
func ReplaceAssignmentsForRun(ctx context.Context, db *sql.DB, runID string, assignments []*entity.Assignment) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM assignments WHERE run_id = $1`, runID); err != nil {
		return fmt.Errorf("failed to clear prior run assignments: %w", err)
	}

	for _, a := range assignments {
		if a.ID == uuid.Nil {
			a.ID = uuid.New()
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO assignments (id, run_id, block_id, person_id, rotation_template_id, role, activity_override, notes, created_at, created_by, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`, a.ID, runID, a.BlockID, a.PersonID, a.RotationTemplateID, string(a.Role), a.ActivityOverride, a.Notes,
			a.CreatedAt, a.CreatedBy, a.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert assignment: %w", err)
		}
	}

	return tx.Commit()
}
