package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/schedcu/v2/internal/entity"
)

// ActivityRepository implements repository.ActivityRepository for PostgreSQL.
type ActivityRepository struct {
	db *sql.DB
}

func NewActivityRepository(db *sql.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

func (r *ActivityRepository) Create(ctx context.Context, a *entity.Activity) error {
	query := `INSERT INTO activities (code, display_abbreviation, category) VALUES ($1, $2, $3)`
	_, err := r.db.ExecContext(ctx, query, a.Code, a.DisplayAbbreviation, string(a.Category))
	if err != nil {
		if isUniqueViolation(err) {
			return entity.NewConflict("activity code already exists")
		}
		return fmt.Errorf("failed to create activity: %w", err)
	}
	return nil
}

func (r *ActivityRepository) GetByCode(ctx context.Context, code string) (*entity.Activity, error) {
	a := &entity.Activity{}
	err := r.db.QueryRowContext(ctx, `SELECT code, display_abbreviation, category FROM activities WHERE code = $1`, code).
		Scan(&a.Code, &a.DisplayAbbreviation, (*string)(&a.Category))
	if err == sql.ErrNoRows {
		return nil, entity.NewNotFound("Activity", code)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get activity: %w", err)
	}
	return a, nil
}

func (r *ActivityRepository) GetAll(ctx context.Context) ([]*entity.Activity, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT code, display_abbreviation, category FROM activities`)
	if err != nil {
		return nil, fmt.Errorf("failed to query activities: %w", err)
	}
	defer rows.Close()

	var out []*entity.Activity
	for rows.Next() {
		a := &entity.Activity{}
		if err := rows.Scan(&a.Code, &a.DisplayAbbreviation, (*string)(&a.Category)); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// RotationTemplateRepository implements repository.RotationTemplateRepository
// for PostgreSQL.
type RotationTemplateRepository struct {
	db *sql.DB
}

func NewRotationTemplateRepository(db *sql.DB) *RotationTemplateRepository {
	return &RotationTemplateRepository{db: db}
}

func (r *RotationTemplateRepository) Create(ctx context.Context, t *entity.RotationTemplate) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	allowed := make([]string, len(t.AllowedPersonTypes))
	for i, pt := range t.AllowedPersonTypes {
		allowed[i] = string(pt)
	}
	query := `
		INSERT INTO rotation_templates
			(id, name, activity_type, abbreviation, clinic_location, max_residents, requires_specialty,
			 requires_procedure_credential, supervision_required, max_supervision_ratio, allowed_person_types,
			 min_pgy, max_pgy, time_of_day, is_archived)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err := r.db.ExecContext(ctx, query,
		t.ID, t.Name, t.ActivityType, t.Abbreviation, t.ClinicLocation, t.MaxResidents, pq.Array(t.RequiresSpecialty),
		t.RequiresProcedureCredential, t.SupervisionRequired, t.MaxSupervisionRatio, pq.Array(allowed),
		t.MinPGY, t.MaxPGY, string(t.TimeOfDay), t.IsArchived,
	)
	if err != nil {
		return fmt.Errorf("failed to create rotation template: %w", err)
	}
	return nil
}

func (r *RotationTemplateRepository) scan(row *sql.Row) (*entity.RotationTemplate, error) {
	t := &entity.RotationTemplate{}
	var allowed []string
	err := row.Scan(
		&t.ID, &t.Name, &t.ActivityType, &t.Abbreviation, &t.ClinicLocation, &t.MaxResidents, pq.Array(&t.RequiresSpecialty),
		&t.RequiresProcedureCredential, &t.SupervisionRequired, &t.MaxSupervisionRatio, pq.Array(&allowed),
		&t.MinPGY, &t.MaxPGY, (*string)(&t.TimeOfDay), &t.IsArchived,
	)
	if err != nil {
		return nil, err
	}
	t.AllowedPersonTypes = make([]entity.PersonType, len(allowed))
	for i, pt := range allowed {
		t.AllowedPersonTypes[i] = entity.PersonType(pt)
	}
	return t, nil
}

func (r *RotationTemplateRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.RotationTemplate, error) {
	query := `
		SELECT id, name, activity_type, abbreviation, clinic_location, max_residents, requires_specialty,
			requires_procedure_credential, supervision_required, max_supervision_ratio, allowed_person_types,
			min_pgy, max_pgy, time_of_day, is_archived
		FROM rotation_templates WHERE id = $1
	`
	t, err := r.scan(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, entity.NewNotFound("RotationTemplate", id.String())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rotation template: %w", err)
	}
	return t, nil
}

func (r *RotationTemplateRepository) GetAll(ctx context.Context) ([]*entity.RotationTemplate, error) {
	query := `
		SELECT id, name, activity_type, abbreviation, clinic_location, max_residents, requires_specialty,
			requires_procedure_credential, supervision_required, max_supervision_ratio, allowed_person_types,
			min_pgy, max_pgy, time_of_day, is_archived
		FROM rotation_templates WHERE is_archived = false
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query rotation templates: %w", err)
	}
	defer rows.Close()

	var out []*entity.RotationTemplate
	for rows.Next() {
		t := &entity.RotationTemplate{}
		var allowed []string
		if err := rows.Scan(
			&t.ID, &t.Name, &t.ActivityType, &t.Abbreviation, &t.ClinicLocation, &t.MaxResidents, pq.Array(&t.RequiresSpecialty),
			&t.RequiresProcedureCredential, &t.SupervisionRequired, &t.MaxSupervisionRatio, pq.Array(&allowed),
			&t.MinPGY, &t.MaxPGY, (*string)(&t.TimeOfDay), &t.IsArchived,
		); err != nil {
			return nil, fmt.Errorf("failed to scan rotation template: %w", err)
		}
		t.AllowedPersonTypes = make([]entity.PersonType, len(allowed))
		for i, pt := range allowed {
			t.AllowedPersonTypes[i] = entity.PersonType(pt)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *RotationTemplateRepository) Update(ctx context.Context, t *entity.RotationTemplate) error {
	allowed := make([]string, len(t.AllowedPersonTypes))
	for i, pt := range t.AllowedPersonTypes {
		allowed[i] = string(pt)
	}
	query := `
		UPDATE rotation_templates SET name=$2, activity_type=$3, abbreviation=$4, clinic_location=$5,
			max_residents=$6, requires_specialty=$7, requires_procedure_credential=$8, supervision_required=$9,
			max_supervision_ratio=$10, allowed_person_types=$11, min_pgy=$12, max_pgy=$13, time_of_day=$14, is_archived=$15
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query,
		t.ID, t.Name, t.ActivityType, t.Abbreviation, t.ClinicLocation, t.MaxResidents, pq.Array(t.RequiresSpecialty),
		t.RequiresProcedureCredential, t.SupervisionRequired, t.MaxSupervisionRatio, pq.Array(allowed),
		t.MinPGY, t.MaxPGY, string(t.TimeOfDay), t.IsArchived,
	)
	if err != nil {
		return fmt.Errorf("failed to update rotation template: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return entity.NewNotFound("RotationTemplate", t.ID.String())
	}
	return nil
}

// WeeklyPatternRepository implements repository.WeeklyPatternRepository for
// PostgreSQL.
type WeeklyPatternRepository struct {
	db *sql.DB
}

func NewWeeklyPatternRepository(db *sql.DB) *WeeklyPatternRepository {
	return &WeeklyPatternRepository{db: db}
}

func (r *WeeklyPatternRepository) Create(ctx context.Context, p *entity.WeeklyPattern) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	query := `
		INSERT INTO weekly_patterns (id, rotation_template_id, day_of_week, time_of_day, activity_code, is_protected, linked_template_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query, p.ID, p.RotationTemplateID, p.DayOfWeek, string(p.TimeOfDay), p.ActivityCode, p.IsProtected, p.LinkedTemplateID)
	if err != nil {
		if isUniqueViolation(err) {
			return entity.NewConflict("weekly pattern already exists for this (template, day, time)")
		}
		return fmt.Errorf("failed to create weekly pattern: %w", err)
	}
	return nil
}

func (r *WeeklyPatternRepository) GetByRotationTemplate(ctx context.Context, rotationTemplateID uuid.UUID) ([]*entity.WeeklyPattern, error) {
	query := `
		SELECT id, rotation_template_id, day_of_week, time_of_day, activity_code, is_protected, linked_template_id
		FROM weekly_patterns WHERE rotation_template_id = $1 ORDER BY day_of_week, time_of_day
	`
	rows, err := r.db.QueryContext(ctx, query, rotationTemplateID)
	if err != nil {
		return nil, fmt.Errorf("failed to query weekly patterns: %w", err)
	}
	defer rows.Close()

	var out []*entity.WeeklyPattern
	for rows.Next() {
		p := &entity.WeeklyPattern{}
		var linkedTemplateID sql.NullString
		if err := rows.Scan(&p.ID, &p.RotationTemplateID, &p.DayOfWeek, (*string)(&p.TimeOfDay), &p.ActivityCode, &p.IsProtected, &linkedTemplateID); err != nil {
			return nil, fmt.Errorf("failed to scan weekly pattern: %w", err)
		}
		linked, err := nullUUID(linkedTemplateID)
		if err != nil {
			return nil, fmt.Errorf("failed to parse linked template id: %w", err)
		}
		p.LinkedTemplateID = linked
		out = append(out, p)
	}
	return out, rows.Err()
}

// RotationActivityRequirementRepository implements
// repository.RotationActivityRequirementRepository for PostgreSQL.
type RotationActivityRequirementRepository struct {
	db *sql.DB
}

func NewRotationActivityRequirementRepository(db *sql.DB) *RotationActivityRequirementRepository {
	return &RotationActivityRequirementRepository{db: db}
}

func (r *RotationActivityRequirementRepository) Create(ctx context.Context, req *entity.RotationActivityRequirement) error {
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	weeksDisplay := weeksToString(req.ApplicableWeeks)
	query := `
		INSERT INTO rotation_activity_requirements
			(id, rotation_template_id, activity_code, min_halfdays, max_halfdays, target_halfdays,
			 applicable_weeks, applicable_weeks_hash, prefer_full_days, preferred_days, avoid_days, priority)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.db.ExecContext(ctx, query,
		req.ID, req.RotationTemplateID, req.ActivityCode, req.MinHalfdays, req.MaxHalfdays, req.TargetHalfdays,
		weeksDisplay, req.ApplicableWeeksHash, req.PreferFullDays, pq.Array(req.PreferredDays), pq.Array(req.AvoidDays), req.Priority,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return entity.NewConflict("requirement already exists for this (template, activity, week scope)")
		}
		return fmt.Errorf("failed to create rotation activity requirement: %w", err)
	}
	return nil
}

func (r *RotationActivityRequirementRepository) GetByRotationTemplate(ctx context.Context, rotationTemplateID uuid.UUID) ([]*entity.RotationActivityRequirement, error) {
	query := `
		SELECT id, rotation_template_id, activity_code, min_halfdays, max_halfdays, target_halfdays,
			applicable_weeks, applicable_weeks_hash, prefer_full_days, preferred_days, avoid_days, priority
		FROM rotation_activity_requirements WHERE rotation_template_id = $1
	`
	rows, err := r.db.QueryContext(ctx, query, rotationTemplateID)
	if err != nil {
		return nil, fmt.Errorf("failed to query rotation activity requirements: %w", err)
	}
	defer rows.Close()

	var out []*entity.RotationActivityRequirement
	for rows.Next() {
		req := &entity.RotationActivityRequirement{}
		var weeksDisplay string
		if err := rows.Scan(
			&req.ID, &req.RotationTemplateID, &req.ActivityCode, &req.MinHalfdays, &req.MaxHalfdays, &req.TargetHalfdays,
			&weeksDisplay, &req.ApplicableWeeksHash, &req.PreferFullDays, pq.Array(&req.PreferredDays), pq.Array(&req.AvoidDays), &req.Priority,
		); err != nil {
			return nil, fmt.Errorf("failed to scan rotation activity requirement: %w", err)
		}
		req.ApplicableWeeks = weeksFromString(weeksDisplay)
		out = append(out, req)
	}
	return out, rows.Err()
}

func weeksToString(weeks []int) string {
	if weeks == nil {
		return ""
	}
	sorted := append([]int(nil), weeks...)
	sort.Ints(sorted)
	parts := make([]string, len(sorted))
	for i, w := range sorted {
		parts[i] = strconv.Itoa(w)
	}
	return strings.Join(parts, ",")
}

func weeksFromString(s string) []int {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			continue
		}
		out = append(out, n)
	}
	return out
}
