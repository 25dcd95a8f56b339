package entity

import (
	"strconv"

	"github.com/google/uuid"
)

// RotationTemplate is a named rotation (e.g. "FMIT", "Neurology Selective")
// that activities and weekly patterns are scoped to.
type RotationTemplate struct {
	ID                      uuid.UUID
	Name                    string
	ActivityType            string
	Abbreviation            string
	ClinicLocation          string
	MaxResidents            int
	RequiresSpecialty       []string
	RequiresProcedureCredential string
	SupervisionRequired     bool
	MaxSupervisionRatio     int // default 4
	AllowedPersonTypes      []PersonType
	MinPGY                  int
	MaxPGY                  int
	TimeOfDay               TimeOfDay // empty means not time-restricted
	IsArchived              bool
}

func NewRotationTemplate(id uuid.UUID, name, abbreviation string) *RotationTemplate {
	return &RotationTemplate{
		ID:                  id,
		Name:                name,
		Abbreviation:        abbreviation,
		MaxSupervisionRatio: 4,
		MinPGY:              1,
		MaxPGY:              3,
	}
}

// AllowsPersonType reports whether the given person type may be scheduled
// to this rotation. An empty AllowedPersonTypes list means no restriction.
func (r *RotationTemplate) AllowsPersonType(t PersonType) bool {
	if len(r.AllowedPersonTypes) == 0 {
		return true
	}
	for _, pt := range r.AllowedPersonTypes {
		if pt == t {
			return true
		}
	}
	return false
}

// WeeklyPattern is the L1 layer: a (rotation_template, day_of_week,
// time_of_day) -> activity rule. Once IsProtected is true, the solver
// cannot change the assignment it produces.
type WeeklyPattern struct {
	ID                uuid.UUID
	RotationTemplateID uuid.UUID
	DayOfWeek         int // 0..6
	TimeOfDay         TimeOfDay
	ActivityCode      string
	IsProtected       bool
	LinkedTemplateID  *uuid.UUID
}

func NewWeeklyPattern(id, rotationTemplateID uuid.UUID, dayOfWeek int, tod TimeOfDay, activityCode string) (*WeeklyPattern, error) {
	if dayOfWeek < 0 || dayOfWeek > 6 {
		return nil, ErrInvalidDateRange
	}
	if tod != TimeOfDayAM && tod != TimeOfDayPM {
		return nil, ErrInvalidTimeOfDay
	}
	return &WeeklyPattern{
		ID:                 id,
		RotationTemplateID: rotationTemplateID,
		DayOfWeek:          dayOfWeek,
		TimeOfDay:          tod,
		ActivityCode:       activityCode,
	}, nil
}

// Key is the (template, day, time) uniqueness key.
func (w *WeeklyPattern) Key() string {
	return w.RotationTemplateID.String() + "_" + strconv.Itoa(w.DayOfWeek) + "_" + string(w.TimeOfDay)
}
