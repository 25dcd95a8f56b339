package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/schedcu/v2/internal/entity"
)

// PersonRepository implements repository.PersonRepository for PostgreSQL.
type PersonRepository struct {
	db sqlExecutor
}

func NewPersonRepository(db sqlExecutor) *PersonRepository {
	return &PersonRepository{db: db}
}

func (r *PersonRepository) Create(ctx context.Context, p *entity.Person) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	query := `
		INSERT INTO persons (id, type, pgy_level, email, name, specialties, performs_procedures, faculty_role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.ExecContext(ctx, query,
		p.ID, string(p.Type), p.PGYLevel, p.Email, p.Name, pq.Array(p.Specialties),
		p.PerformsProcedures, string(p.FacultyRole), p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create person: %w", err)
	}
	return nil
}

func (r *PersonRepository) scanRow(row *sql.Row) (*entity.Person, error) {
	p := &entity.Person{}
	var facultyRole string
	var deletedAt sql.NullTime
	err := row.Scan(
		&p.ID, (*string)(&p.Type), &p.PGYLevel, &p.Email, &p.Name, pq.Array(&p.Specialties),
		&p.PerformsProcedures, &facultyRole, &p.CreatedAt, &p.UpdatedAt, &deletedAt,
	)
	if err != nil {
		return nil, err
	}
	p.FacultyRole = entity.FacultyRole(facultyRole)
	p.DeletedAt = nullTimePtr(deletedAt)
	return p, nil
}

func (r *PersonRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Person, error) {
	query := `
		SELECT id, type, pgy_level, email, name, specialties, performs_procedures, faculty_role, created_at, updated_at, deleted_at
		FROM persons WHERE id = $1 AND deleted_at IS NULL
	`
	p, err := r.scanRow(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, entity.NewNotFound("Person", id.String())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get person: %w", err)
	}
	return p, nil
}

func (r *PersonRepository) GetByEmail(ctx context.Context, email string) (*entity.Person, error) {
	query := `
		SELECT id, type, pgy_level, email, name, specialties, performs_procedures, faculty_role, created_at, updated_at, deleted_at
		FROM persons WHERE email = $1 AND deleted_at IS NULL
	`
	p, err := r.scanRow(r.db.QueryRowContext(ctx, query, email))
	if err == sql.ErrNoRows {
		return nil, entity.NewNotFound("Person", email)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get person by email: %w", err)
	}
	return p, nil
}

func (r *PersonRepository) GetAll(ctx context.Context) ([]*entity.Person, error) {
	query := `
		SELECT id, type, pgy_level, email, name, specialties, performs_procedures, faculty_role, created_at, updated_at, deleted_at
		FROM persons WHERE deleted_at IS NULL
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query persons: %w", err)
	}
	defer rows.Close()

	var out []*entity.Person
	for rows.Next() {
		p := &entity.Person{}
		var facultyRole string
		var deletedAt sql.NullTime
		if err := rows.Scan(
			&p.ID, (*string)(&p.Type), &p.PGYLevel, &p.Email, &p.Name, pq.Array(&p.Specialties),
			&p.PerformsProcedures, &facultyRole, &p.CreatedAt, &p.UpdatedAt, &deletedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan person: %w", err)
		}
		p.FacultyRole = entity.FacultyRole(facultyRole)
		p.DeletedAt = nullTimePtr(deletedAt)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PersonRepository) Update(ctx context.Context, p *entity.Person) error {
	query := `
		UPDATE persons SET type=$2, pgy_level=$3, email=$4, name=$5, specialties=$6,
			performs_procedures=$7, faculty_role=$8, updated_at=$9
		WHERE id = $1 AND deleted_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query,
		p.ID, string(p.Type), p.PGYLevel, p.Email, p.Name, pq.Array(p.Specialties),
		p.PerformsProcedures, string(p.FacultyRole), p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update person: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return entity.NewNotFound("Person", p.ID.String())
	}
	return nil
}

func (r *PersonRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE persons SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete person: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return entity.NewNotFound("Person", id.String())
	}
	return nil
}

func (r *PersonRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM persons WHERE deleted_at IS NULL`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count persons: %w", err)
	}
	return count, nil
}
