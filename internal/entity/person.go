package entity

import (
	"time"

	"github.com/google/uuid"
)

// PersonType distinguishes residents from faculty.
type PersonType string

const (
	PersonTypeResident PersonType = "resident"
	PersonTypeFaculty  PersonType = "faculty"
)

// FacultyRole is the administrative role a faculty member may hold.
type FacultyRole string

const (
	FacultyRolePD        FacultyRole = "pd"
	FacultyRoleAPD       FacultyRole = "apd"
	FacultyRoleOIC       FacultyRole = "oic"
	FacultyRoleDeptChief FacultyRole = "dept_chief"
	FacultyRoleSportsMed FacultyRole = "sports_med"
	FacultyRoleCore      FacultyRole = "core"
)

// Person is a resident or faculty member eligible for assignment.
type Person struct {
	ID                uuid.UUID
	Type              PersonType
	PGYLevel          int // 0 when not applicable (faculty)
	Email             string
	Name              string
	Specialties       []string
	PerformsProcedures bool
	FacultyRole       FacultyRole // empty when not applicable

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

// NewPerson validates the PGY/faculty-role invariant and returns a Person.
// Residents must carry a PGY level in {1,2,3}; faculty must not.
func NewPerson(id uuid.UUID, typ PersonType, pgyLevel int, email, name string, specialties []string) (*Person, error) {
	now := time.Now().UTC()
	p := &Person{
		ID:          id,
		Type:        typ,
		PGYLevel:    pgyLevel,
		Email:       email,
		Name:        name,
		Specialties: specialties,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := p.checkPGYInvariant(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Person) checkPGYInvariant() error {
	switch p.Type {
	case PersonTypeResident:
		if p.PGYLevel < 1 || p.PGYLevel > 3 {
			return ErrResidentRequiresPGY
		}
	case PersonTypeFaculty:
		if p.PGYLevel != 0 {
			return ErrFacultyHasNoPGY
		}
	}
	return nil
}

func (p *Person) IsDeleted() bool { return p.DeletedAt != nil }

func (p *Person) SoftDelete() {
	now := time.Now().UTC()
	p.DeletedAt = &now
	p.UpdatedAt = now
}

// HasSpecialty reports whether the person carries the given specialty.
func (p *Person) HasSpecialty(specialty string) bool {
	for _, s := range p.Specialties {
		if s == specialty {
			return true
		}
	}
	return false
}
