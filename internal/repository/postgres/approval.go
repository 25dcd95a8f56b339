package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/schedcu/v2/internal/entity"
)

// ApprovalRecordRepository implements repository.ApprovalRecordRepository
// for PostgreSQL, storing each chain's hash-linked records with a unique
// (chain_id, sequence_num) constraint enforcing append-only ordering.
type ApprovalRecordRepository struct {
	db sqlExecutor
}

func NewApprovalRecordRepository(db sqlExecutor) *ApprovalRecordRepository {
	return &ApprovalRecordRepository{db: db}
}

func (r *ApprovalRecordRepository) Append(ctx context.Context, rec *entity.ApprovalRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	payload, err := json.Marshal(rec.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal approval payload: %w", err)
	}
	query := `
		INSERT INTO approval_records
			(id, chain_id, sequence_num, prev_record_id, prev_hash, record_hash, action, payload,
			 actor_id, actor_type, reason, target_entity_type, target_entity_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err = r.db.ExecContext(ctx, query,
		rec.ID, rec.ChainID, rec.SequenceNum, rec.PrevRecordID, rec.PrevHash, rec.RecordHash,
		string(rec.Action), payload, rec.ActorID, string(rec.ActorType), rec.Reason,
		rec.TargetEntityType, rec.TargetEntityID, rec.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return entity.NewConflict("approval record already exists at this sequence_num")
		}
		return fmt.Errorf("failed to append approval record: %w", err)
	}
	return nil
}

func (r *ApprovalRecordRepository) scanRows(rows *sql.Rows) ([]*entity.ApprovalRecord, error) {
	var out []*entity.ApprovalRecord
	for rows.Next() {
		rec := &entity.ApprovalRecord{}
		var payload []byte
		var prevRecordID, actorID, targetEntityID sql.NullString
		if err := rows.Scan(
			&rec.ID, &rec.ChainID, &rec.SequenceNum, &prevRecordID, &rec.PrevHash, &rec.RecordHash,
			(*string)(&rec.Action), &payload, &actorID, (*string)(&rec.ActorType), &rec.Reason,
			&rec.TargetEntityType, &targetEntityID, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan approval record: %w", err)
		}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &rec.Payload); err != nil {
				return nil, fmt.Errorf("failed to unmarshal approval payload: %w", err)
			}
		}
		var err error
		if rec.PrevRecordID, err = nullUUID(prevRecordID); err != nil {
			return nil, err
		}
		if rec.ActorID, err = nullUUID(actorID); err != nil {
			return nil, err
		}
		if rec.TargetEntityID, err = nullUUID(targetEntityID); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *ApprovalRecordRepository) GetByChain(ctx context.Context, chainID string) ([]*entity.ApprovalRecord, error) {
	query := `
		SELECT id, chain_id, sequence_num, prev_record_id, prev_hash, record_hash, action, payload,
			actor_id, actor_type, reason, target_entity_type, target_entity_id, created_at
		FROM approval_records WHERE chain_id = $1 ORDER BY sequence_num ASC
	`
	rows, err := r.db.QueryContext(ctx, query, chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to query approval chain: %w", err)
	}
	defer rows.Close()
	return r.scanRows(rows)
}

func (r *ApprovalRecordRepository) GetLatest(ctx context.Context, chainID string) (*entity.ApprovalRecord, error) {
	query := `
		SELECT id, chain_id, sequence_num, prev_record_id, prev_hash, record_hash, action, payload,
			actor_id, actor_type, reason, target_entity_type, target_entity_id, created_at
		FROM approval_records WHERE chain_id = $1 ORDER BY sequence_num DESC LIMIT 1
	`
	rows, err := r.db.QueryContext(ctx, query, chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest approval record: %w", err)
	}
	defer rows.Close()
	recs, err := r.scanRows(rows)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, entity.NewNotFound("ApprovalRecord chain", chainID)
	}
	return recs[0], nil
}
