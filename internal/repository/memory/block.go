package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/schedcu/v2/internal/entity"
	"github.com/schedcu/v2/internal/repository"
)

type BlockRepository struct {
	mu     sync.RWMutex
	blocks map[uuid.UUID]*entity.Block
}

func NewBlockRepository() *BlockRepository {
	return &BlockRepository{blocks: make(map[uuid.UUID]*entity.Block)}
}

func (r *BlockRepository) Create(ctx context.Context, b *entity.Block) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	r.blocks[b.ID] = b
	return nil
}

func (r *BlockRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Block, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.blocks[id]
	if !ok {
		return nil, entity.NewNotFound("Block", id.String())
	}
	return b, nil
}

func (r *BlockRepository) GetByDateRange(ctx context.Context, start, end entity.Date) ([]*entity.Block, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*entity.Block
	for _, b := range r.blocks {
		if !b.Date.Time.Before(start.Time) && !b.Date.Time.After(end.Time) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *BlockRepository) Count(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.blocks)), nil
}

var _ repository.BlockRepository = (*BlockRepository)(nil)
