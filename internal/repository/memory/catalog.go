package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/schedcu/v2/internal/entity"
	"github.com/schedcu/v2/internal/repository"
)

// ActivityRepository is a map-backed implementation keyed by activity code.
type ActivityRepository struct {
	mu         sync.RWMutex
	activities map[string]*entity.Activity
}

func NewActivityRepository() *ActivityRepository {
	return &ActivityRepository{activities: make(map[string]*entity.Activity)}
}

func (r *ActivityRepository) Create(ctx context.Context, a *entity.Activity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.activities[a.Code] = a
	return nil
}

func (r *ActivityRepository) GetByCode(ctx context.Context, code string) (*entity.Activity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.activities[code]
	if !ok {
		return nil, entity.NewNotFound("Activity", code)
	}
	return a, nil
}

func (r *ActivityRepository) GetAll(ctx context.Context) ([]*entity.Activity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*entity.Activity, 0, len(r.activities))
	for _, a := range r.activities {
		out = append(out, a)
	}
	return out, nil
}

var _ repository.ActivityRepository = (*ActivityRepository)(nil)

// RotationTemplateRepository is a map-backed implementation of
// repository.RotationTemplateRepository.
type RotationTemplateRepository struct {
	mu        sync.RWMutex
	templates map[uuid.UUID]*entity.RotationTemplate
}

func NewRotationTemplateRepository() *RotationTemplateRepository {
	return &RotationTemplateRepository{templates: make(map[uuid.UUID]*entity.RotationTemplate)}
}

func (r *RotationTemplateRepository) Create(ctx context.Context, t *entity.RotationTemplate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	r.templates[t.ID] = t
	return nil
}

func (r *RotationTemplateRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.RotationTemplate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.templates[id]
	if !ok {
		return nil, entity.NewNotFound("RotationTemplate", id.String())
	}
	return t, nil
}

func (r *RotationTemplateRepository) GetAll(ctx context.Context) ([]*entity.RotationTemplate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*entity.RotationTemplate, 0, len(r.templates))
	for _, t := range r.templates {
		if !t.IsArchived {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *RotationTemplateRepository) Update(ctx context.Context, t *entity.RotationTemplate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.templates[t.ID]; !ok {
		return entity.NewNotFound("RotationTemplate", t.ID.String())
	}
	r.templates[t.ID] = t
	return nil
}

var _ repository.RotationTemplateRepository = (*RotationTemplateRepository)(nil)

// WeeklyPatternRepository is a map-backed implementation of
// repository.WeeklyPatternRepository.
type WeeklyPatternRepository struct {
	mu       sync.RWMutex
	patterns map[uuid.UUID]*entity.WeeklyPattern
}

func NewWeeklyPatternRepository() *WeeklyPatternRepository {
	return &WeeklyPatternRepository{patterns: make(map[uuid.UUID]*entity.WeeklyPattern)}
}

func (r *WeeklyPatternRepository) Create(ctx context.Context, p *entity.WeeklyPattern) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	r.patterns[p.ID] = p
	return nil
}

func (r *WeeklyPatternRepository) GetByRotationTemplate(ctx context.Context, rotationTemplateID uuid.UUID) ([]*entity.WeeklyPattern, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*entity.WeeklyPattern
	for _, p := range r.patterns {
		if p.RotationTemplateID == rotationTemplateID {
			out = append(out, p)
		}
	}
	return out, nil
}

var _ repository.WeeklyPatternRepository = (*WeeklyPatternRepository)(nil)

// RotationActivityRequirementRepository is a map-backed implementation of
// repository.RotationActivityRequirementRepository.
type RotationActivityRequirementRepository struct {
	mu           sync.RWMutex
	requirements map[uuid.UUID]*entity.RotationActivityRequirement
}

func NewRotationActivityRequirementRepository() *RotationActivityRequirementRepository {
	return &RotationActivityRequirementRepository{requirements: make(map[uuid.UUID]*entity.RotationActivityRequirement)}
}

func (r *RotationActivityRequirementRepository) Create(ctx context.Context, req *entity.RotationActivityRequirement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	r.requirements[req.ID] = req
	return nil
}

func (r *RotationActivityRequirementRepository) GetByRotationTemplate(ctx context.Context, rotationTemplateID uuid.UUID) ([]*entity.RotationActivityRequirement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*entity.RotationActivityRequirement
	for _, req := range r.requirements {
		if req.RotationTemplateID == rotationTemplateID {
			out = append(out, req)
		}
	}
	return out, nil
}

var _ repository.RotationActivityRequirementRepository = (*RotationActivityRequirementRepository)(nil)
