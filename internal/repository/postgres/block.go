package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/schedcu/v2/internal/entity"
)

// BlockRepository implements repository.BlockRepository for PostgreSQL.
type BlockRepository struct {
	db sqlExecutor
}

func NewBlockRepository(db sqlExecutor) *BlockRepository {
	return &BlockRepository{db: db}
}

func (r *BlockRepository) Create(ctx context.Context, b *entity.Block) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	query := `
		INSERT INTO blocks (id, date, time_of_day, block_number, is_weekend, is_holiday, holiday_name, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		b.ID, b.Date.Time, string(b.TimeOfDay), b.BlockNumber, b.IsWeekend, b.IsHoliday, b.HolidayName, b.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return entity.NewConflict("block already exists for this (date, time_of_day)")
		}
		return fmt.Errorf("failed to create block: %w", err)
	}
	return nil
}

func (r *BlockRepository) scan(row *sql.Row) (*entity.Block, error) {
	b := &entity.Block{}
	err := row.Scan(&b.ID, &b.Date.Time, (*string)(&b.TimeOfDay), &b.BlockNumber, &b.IsWeekend, &b.IsHoliday, &b.HolidayName, &b.CreatedAt)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (r *BlockRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Block, error) {
	query := `
		SELECT id, date, time_of_day, block_number, is_weekend, is_holiday, holiday_name, created_at
		FROM blocks WHERE id = $1
	`
	b, err := r.scan(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, entity.NewNotFound("Block", id.String())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get block: %w", err)
	}
	return b, nil
}

func (r *BlockRepository) GetByDateRange(ctx context.Context, start, end entity.Date) ([]*entity.Block, error) {
	query := `
		SELECT id, date, time_of_day, block_number, is_weekend, is_holiday, holiday_name, created_at
		FROM blocks WHERE date BETWEEN $1 AND $2 ORDER BY date, time_of_day
	`
	rows, err := r.db.QueryContext(ctx, query, start.Time, end.Time)
	if err != nil {
		return nil, fmt.Errorf("failed to query blocks: %w", err)
	}
	defer rows.Close()

	var out []*entity.Block
	for rows.Next() {
		b := &entity.Block{}
		if err := rows.Scan(&b.ID, &b.Date.Time, (*string)(&b.TimeOfDay), &b.BlockNumber, &b.IsWeekend, &b.IsHoliday, &b.HolidayName, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan block: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *BlockRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM blocks`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count blocks: %w", err)
	}
	return count, nil
}
