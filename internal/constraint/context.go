// Package constraint provides the composable hard/soft constraint objects
// used by the hybrid layer engine and the solver adapter, plus the
// standalone validator that checks a concrete assignment set against them.
package constraint

import (
	"github.com/google/uuid"

	"github.com/schedcu/v2/internal/entity"
)

// SchedulingContext is the read-only view constraints operate over: the
// entities loaded for a generation run, plus lookup indexes built once at
// context-construction time so individual constraints never re-scan the
// raw slices. Mirrors the original's SchedulingContext dataclass.
type SchedulingContext struct {
	Persons      []*entity.Person
	Blocks       []*entity.Block
	Activities   []*entity.Activity
	Templates    []*entity.RotationTemplate
	Patterns     []*entity.WeeklyPattern
	Requirements []*entity.RotationActivityRequirement
	Absences     []*entity.Absence
	CallAssignments []*entity.CallAssignment
	Credentials  []*entity.Credential

	PersonIndex   map[uuid.UUID]*entity.Person
	BlockIndex    map[uuid.UUID]*entity.Block
	TemplateIndex map[uuid.UUID]*entity.RotationTemplate
	ActivityIndex map[string]*entity.Activity
	BlocksByDate  map[string][]*entity.Block

	// NominalHoursByActivity is required configuration for the 80-hour
	// rule: nominal duty hours contributed by a half-day of a given
	// activity code. The source leaves this table unspecified; spec.md
	// §9 requires the core to surface it as required configuration and
	// fail loudly if absent, rather than guess a default.
	NominalHoursByActivity map[string]float64

	// Resilience-aware fields (Tier 1 integration), used by
	// ConstraintManager.CreateResilienceAware()'s added constraints.
	HubScores           map[uuid.UUID]float64
	CurrentUtilization  map[uuid.UUID]float64
	N1VulnerableFaculty map[uuid.UUID]bool
	PreferenceTrails    map[uuid.UUID][]string
	ZoneAssignments     map[uuid.UUID]string
}

// NewSchedulingContext builds lookup indexes from the raw entity slices.
func NewSchedulingContext(data ContextData) *SchedulingContext {
	ctx := &SchedulingContext{
		Persons:                data.Persons,
		Blocks:                 data.Blocks,
		Activities:             data.Activities,
		Templates:              data.Templates,
		Patterns:               data.Patterns,
		Requirements:           data.Requirements,
		Absences:               data.Absences,
		CallAssignments:        data.CallAssignments,
		Credentials:            data.Credentials,
		NominalHoursByActivity: data.NominalHoursByActivity,
		HubScores:              data.HubScores,
		CurrentUtilization:     data.CurrentUtilization,
		N1VulnerableFaculty:    data.N1VulnerableFaculty,
		PreferenceTrails:       data.PreferenceTrails,
		ZoneAssignments:        data.ZoneAssignments,

		PersonIndex:   make(map[uuid.UUID]*entity.Person, len(data.Persons)),
		BlockIndex:    make(map[uuid.UUID]*entity.Block, len(data.Blocks)),
		TemplateIndex: make(map[uuid.UUID]*entity.RotationTemplate, len(data.Templates)),
		ActivityIndex: make(map[string]*entity.Activity, len(data.Activities)),
		BlocksByDate:  make(map[string][]*entity.Block),
	}
	for _, p := range data.Persons {
		ctx.PersonIndex[p.ID] = p
	}
	for _, b := range data.Blocks {
		ctx.BlockIndex[b.ID] = b
		ctx.BlocksByDate[b.Date.String()] = append(ctx.BlocksByDate[b.Date.String()], b)
	}
	for _, t := range data.Templates {
		ctx.TemplateIndex[t.ID] = t
	}
	for _, a := range data.Activities {
		ctx.ActivityIndex[a.Code] = a
	}
	return ctx
}

// ContextData is the plain bundle NewSchedulingContext indexes. Kept
// separate from repository.SchedulingData so the constraint package never
// imports the repository package.
type ContextData struct {
	Persons                []*entity.Person
	Blocks                 []*entity.Block
	Activities             []*entity.Activity
	Templates              []*entity.RotationTemplate
	Patterns               []*entity.WeeklyPattern
	Requirements           []*entity.RotationActivityRequirement
	Absences               []*entity.Absence
	CallAssignments        []*entity.CallAssignment
	Credentials            []*entity.Credential
	NominalHoursByActivity map[string]float64
	HubScores              map[uuid.UUID]float64
	CurrentUtilization     map[uuid.UUID]float64
	N1VulnerableFaculty    map[uuid.UUID]bool
	PreferenceTrails       map[uuid.UUID][]string
	ZoneAssignments        map[uuid.UUID]string
}

// IsAbsent reports whether person is absent on date, per the person's
// absence periods.
func (c *SchedulingContext) IsAbsent(personID uuid.UUID, d entity.Date) bool {
	for _, a := range c.Absences {
		if a.PersonID == personID && a.Covers(d) {
			return true
		}
	}
	return false
}

// ActivityCodeFor resolves the activity code an assignment represents:
// an explicit ActivityOverride wins; otherwise it falls back to the
// rotation's protected weekly pattern for the assignment's block
// (day-of-week, time-of-day), mirroring how Layer 1 pre-commits cells.
func (c *SchedulingContext) ActivityCodeFor(a *entity.Assignment) string {
	if a.ActivityOverride != "" {
		return a.ActivityOverride
	}
	if a.RotationTemplateID == nil {
		return ""
	}
	block, ok := c.BlockIndex[a.BlockID]
	if !ok {
		return ""
	}
	dow := int(block.Date.Weekday())
	for _, p := range c.Patterns {
		if p.RotationTemplateID == *a.RotationTemplateID && p.DayOfWeek == dow && p.TimeOfDay == block.TimeOfDay {
			return p.ActivityCode
		}
	}
	return ""
}

// ActivityCategory resolves the category for an activity code, falling
// back to empty if the catalog does not carry it (e.g. an ad-hoc
// ActivityOverride string never registered as a catalog Activity).
func (c *SchedulingContext) ActivityCategory(code string) entity.ActivityCategory {
	if a, ok := c.ActivityIndex[code]; ok {
		return a.Category
	}
	return ""
}
