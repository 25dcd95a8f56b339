package entity

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPerson_ResidentRequiresPGY(t *testing.T) {
	_, err := NewPerson(uuid.New(), PersonTypeResident, 0, "a@example.com", "A", nil)
	require.ErrorIs(t, err, ErrResidentRequiresPGY)

	p, err := NewPerson(uuid.New(), PersonTypeResident, 2, "a@example.com", "A", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, p.PGYLevel)
}

func TestNewPerson_FacultyRejectsPGY(t *testing.T) {
	_, err := NewPerson(uuid.New(), PersonTypeFaculty, 2, "f@example.com", "F", nil)
	require.ErrorIs(t, err, ErrFacultyHasNoPGY)

	p, err := NewPerson(uuid.New(), PersonTypeFaculty, 0, "f@example.com", "F", nil)
	require.NoError(t, err)
	assert.False(t, p.IsDeleted())
}

func TestPerson_SoftDelete(t *testing.T) {
	p, err := NewPerson(uuid.New(), PersonTypeFaculty, 0, "f@example.com", "F", nil)
	require.NoError(t, err)
	p.SoftDelete()
	assert.True(t, p.IsDeleted())
}

func TestPerson_HasSpecialty(t *testing.T) {
	p, err := NewPerson(uuid.New(), PersonTypeFaculty, 0, "f@example.com", "F", []string{"sports_med", "obgyn"})
	require.NoError(t, err)
	assert.True(t, p.HasSpecialty("obgyn"))
	assert.False(t, p.HasSpecialty("neuro"))
}
