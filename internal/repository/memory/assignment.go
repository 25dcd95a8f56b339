package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/schedcu/v2/internal/entity"
	"github.com/schedcu/v2/internal/repository"
)

// AssignmentRepository is a map-backed implementation of
// repository.AssignmentRepository.
type AssignmentRepository struct {
	mu          sync.RWMutex
	assignments map[uuid.UUID]*entity.Assignment
	runIndex    map[string][]uuid.UUID
}

func NewAssignmentRepository() *AssignmentRepository {
	return &AssignmentRepository{
		assignments: make(map[uuid.UUID]*entity.Assignment),
		runIndex:    make(map[string][]uuid.UUID),
	}
}

func (r *AssignmentRepository) Create(ctx context.Context, a *entity.Assignment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	for _, existing := range r.assignments {
		if !existing.IsDeleted() && existing.Key() == a.Key() && existing.ID != a.ID {
			return entity.NewConflict("assignment already exists for this (block, person)")
		}
	}
	r.assignments[a.ID] = a
	return nil
}

func (r *AssignmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Assignment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.assignments[id]
	if !ok || a.IsDeleted() {
		return nil, entity.NewNotFound("Assignment", id.String())
	}
	return a, nil
}

func (r *AssignmentRepository) GetByPerson(ctx context.Context, personID uuid.UUID) ([]*entity.Assignment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*entity.Assignment
	for _, a := range r.assignments {
		if a.PersonID == personID && !a.IsDeleted() {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *AssignmentRepository) GetByPersonAndDateRange(ctx context.Context, personID uuid.UUID, start, end entity.Date) ([]*entity.Assignment, error) {
	// The in-memory store holds no block dates, so start and end are
	// ignored: this returns every live assignment of the person,
	// whatever its block's date, unlike the postgres implementation.
	return r.GetByPerson(ctx, personID)
}

func (r *AssignmentRepository) GetByBlock(ctx context.Context, blockID uuid.UUID) ([]*entity.Assignment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*entity.Assignment
	for _, a := range r.assignments {
		if a.BlockID == blockID && !a.IsDeleted() {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *AssignmentRepository) Update(ctx context.Context, a *entity.Assignment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.assignments[a.ID]
	if !ok {
		return entity.NewNotFound("Assignment", a.ID.String())
	}
	if !existing.UpdatedAt.Equal(a.UpdatedAt) {
		return entity.NewPrecondition("assignment was modified concurrently")
	}
	r.assignments[a.ID] = a
	return nil
}

func (r *AssignmentRepository) Delete(ctx context.Context, id uuid.UUID, deleterID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.assignments[id]
	if !ok {
		return entity.NewNotFound("Assignment", id.String())
	}
	a.SoftDelete(deleterID)
	return nil
}

func (r *AssignmentRepository) Count(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var n int64
	for _, a := range r.assignments {
		if !a.IsDeleted() {
			n++
		}
	}
	return n, nil
}

// ReplaceForRun atomically removes all assignments previously written under
// runID and inserts the new set, implementing the idempotent-write
// semantics WriteAssignments needs.
func (r *AssignmentRepository) ReplaceForRun(runID string, assignments []*entity.Assignment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range r.runIndex[runID] {
		delete(r.assignments, id)
	}
	ids := make([]uuid.UUID, 0, len(assignments))
	for _, a := range assignments {
		if a.ID == uuid.Nil {
			a.ID = uuid.New()
		}
		r.assignments[a.ID] = a
		ids = append(ids, a.ID)
	}
	r.runIndex[runID] = ids
}

var _ repository.AssignmentRepository = (*AssignmentRepository)(nil)
