package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/schedcu/v2/internal/entity"
	"github.com/schedcu/v2/internal/repository"
)

// AbsenceRepository is a map-backed implementation of
// repository.AbsenceRepository.
type AbsenceRepository struct {
	mu       sync.RWMutex
	absences map[uuid.UUID]*entity.Absence
}

func NewAbsenceRepository() *AbsenceRepository {
	return &AbsenceRepository{absences: make(map[uuid.UUID]*entity.Absence)}
}

func (r *AbsenceRepository) Create(ctx context.Context, a *entity.Absence) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	r.absences[a.ID] = a
	return nil
}

func (r *AbsenceRepository) GetByPerson(ctx context.Context, personID uuid.UUID) ([]*entity.Absence, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*entity.Absence
	for _, a := range r.absences {
		if a.PersonID == personID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *AbsenceRepository) GetByDateRange(ctx context.Context, start, end entity.Date) ([]*entity.Absence, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*entity.Absence
	for _, a := range r.absences {
		if !a.EndDate.Time.Before(start.Time) && !a.StartDate.Time.After(end.Time) {
			out = append(out, a)
		}
	}
	return out, nil
}

var _ repository.AbsenceRepository = (*AbsenceRepository)(nil)

// CallAssignmentRepository is a map-backed implementation of
// repository.CallAssignmentRepository.
type CallAssignmentRepository struct {
	mu    sync.RWMutex
	calls map[uuid.UUID]*entity.CallAssignment
}

func NewCallAssignmentRepository() *CallAssignmentRepository {
	return &CallAssignmentRepository{calls: make(map[uuid.UUID]*entity.CallAssignment)}
}

func (r *CallAssignmentRepository) Create(ctx context.Context, c *entity.CallAssignment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	for _, existing := range r.calls {
		if existing.Key() == c.Key() && existing.ID != c.ID {
			return entity.NewConflict("call assignment already exists for this (date, person, call_type)")
		}
	}
	r.calls[c.ID] = c
	return nil
}

func (r *CallAssignmentRepository) GetByDateRange(ctx context.Context, start, end entity.Date) ([]*entity.CallAssignment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*entity.CallAssignment
	for _, c := range r.calls {
		if !c.Date.Time.Before(start.Time) && !c.Date.Time.After(end.Time) {
			out = append(out, c)
		}
	}
	return out, nil
}

var _ repository.CallAssignmentRepository = (*CallAssignmentRepository)(nil)

// ScheduleOverrideRepository is a map-backed implementation of
// repository.ScheduleOverrideRepository.
type ScheduleOverrideRepository struct {
	mu        sync.RWMutex
	overrides map[uuid.UUID]*entity.ScheduleOverride
}

func NewScheduleOverrideRepository() *ScheduleOverrideRepository {
	return &ScheduleOverrideRepository{overrides: make(map[uuid.UUID]*entity.ScheduleOverride)}
}

func (r *ScheduleOverrideRepository) Create(ctx context.Context, o *entity.ScheduleOverride) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	r.overrides[o.ID] = o
	return nil
}

func (r *ScheduleOverrideRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.ScheduleOverride, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.overrides[id]
	if !ok {
		return nil, entity.NewNotFound("ScheduleOverride", id.String())
	}
	return o, nil
}

func (r *ScheduleOverrideRepository) GetActiveByAssignment(ctx context.Context, assignmentID uuid.UUID) (*entity.ScheduleOverride, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, o := range r.overrides {
		if o.AssignmentID == assignmentID && o.IsActive {
			return o, nil
		}
	}
	return nil, nil
}

func (r *ScheduleOverrideRepository) Update(ctx context.Context, o *entity.ScheduleOverride) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.overrides[o.ID]; !ok {
		return entity.NewNotFound("ScheduleOverride", o.ID.String())
	}
	r.overrides[o.ID] = o
	return nil
}

var _ repository.ScheduleOverrideRepository = (*ScheduleOverrideRepository)(nil)

// ApprovalRecordRepository is a map-backed implementation of
// repository.ApprovalRecordRepository, enforcing (chain_id, sequence_num)
// uniqueness the way the hash chain's storage layer must.
type ApprovalRecordRepository struct {
	mu      sync.RWMutex
	records map[string][]*entity.ApprovalRecord // keyed by chain_id, ordered by sequence_num
}

func NewApprovalRecordRepository() *ApprovalRecordRepository {
	return &ApprovalRecordRepository{records: make(map[string][]*entity.ApprovalRecord)}
}

func (r *ApprovalRecordRepository) Append(ctx context.Context, rec *entity.ApprovalRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	chain := r.records[rec.ChainID]
	for _, existing := range chain {
		if existing.SequenceNum == rec.SequenceNum {
			return entity.NewConflict("approval record already exists at this sequence_num")
		}
	}
	chain = append(chain, rec)
	sort.Slice(chain, func(i, j int) bool { return chain[i].SequenceNum < chain[j].SequenceNum })
	r.records[rec.ChainID] = chain
	return nil
}

func (r *ApprovalRecordRepository) GetByChain(ctx context.Context, chainID string) ([]*entity.ApprovalRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*entity.ApprovalRecord, len(r.records[chainID]))
	copy(out, r.records[chainID])
	return out, nil
}

func (r *ApprovalRecordRepository) GetLatest(ctx context.Context, chainID string) (*entity.ApprovalRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	chain := r.records[chainID]
	if len(chain) == 0 {
		return nil, entity.NewNotFound("ApprovalRecord chain", chainID)
	}
	return chain[len(chain)-1], nil
}

var _ repository.ApprovalRecordRepository = (*ApprovalRecordRepository)(nil)

// CredentialRepository is a map-backed implementation of
// repository.CredentialRepository.
type CredentialRepository struct {
	mu          sync.RWMutex
	credentials map[uuid.UUID]*entity.Credential
}

func NewCredentialRepository() *CredentialRepository {
	return &CredentialRepository{credentials: make(map[uuid.UUID]*entity.Credential)}
}

func (r *CredentialRepository) Create(ctx context.Context, c *entity.Credential) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	r.credentials[c.ID] = c
	return nil
}

func (r *CredentialRepository) GetByPerson(ctx context.Context, personID uuid.UUID) ([]*entity.Credential, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*entity.Credential
	for _, c := range r.credentials {
		if c.PersonID == personID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *CredentialRepository) GetByPersonAndProcedure(ctx context.Context, personID uuid.UUID, procedure string) (*entity.Credential, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.credentials {
		if c.PersonID == personID && c.Procedure == procedure {
			return c, nil
		}
	}
	return nil, entity.NewNotFound("Credential", personID.String()+"/"+procedure)
}

var _ repository.CredentialRepository = (*CredentialRepository)(nil)
