package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/schedcu/v2/internal/entity"
	"github.com/schedcu/v2/internal/repository"
)

// PersonRepository is a map-backed implementation of repository.PersonRepository,
// in the teacher's sync.RWMutex-guarded style.
type PersonRepository struct {
	mu         sync.RWMutex
	persons    map[uuid.UUID]*entity.Person
	queryCount int
}

func NewPersonRepository() *PersonRepository {
	return &PersonRepository{persons: make(map[uuid.UUID]*entity.Person)}
}

func (r *PersonRepository) Create(ctx context.Context, p *entity.Person) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	r.persons[p.ID] = p
	return nil
}

func (r *PersonRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Person, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	r.queryCount++
	p, ok := r.persons[id]
	if !ok || p.IsDeleted() {
		return nil, entity.NewNotFound("Person", id.String())
	}
	return p, nil
}

func (r *PersonRepository) GetByEmail(ctx context.Context, email string) (*entity.Person, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	r.queryCount++
	for _, p := range r.persons {
		if p.Email == email && !p.IsDeleted() {
			return p, nil
		}
	}
	return nil, entity.NewNotFound("Person", email)
}

func (r *PersonRepository) GetAll(ctx context.Context) ([]*entity.Person, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	r.queryCount++
	out := make([]*entity.Person, 0, len(r.persons))
	for _, p := range r.persons {
		if !p.IsDeleted() {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *PersonRepository) Update(ctx context.Context, p *entity.Person) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.persons[p.ID]; !ok {
		return entity.NewNotFound("Person", p.ID.String())
	}
	r.persons[p.ID] = p
	return nil
}

func (r *PersonRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.persons[id]
	if !ok {
		return entity.NewNotFound("Person", id.String())
	}
	p.SoftDelete()
	return nil
}

func (r *PersonRepository) Count(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var n int64
	for _, p := range r.persons {
		if !p.IsDeleted() {
			n++
		}
	}
	return n, nil
}

// QueryCount reports the number of read operations served, for test
// assertions about N+1 behavior.
func (r *PersonRepository) QueryCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.queryCount
}

var _ repository.PersonRepository = (*PersonRepository)(nil)
