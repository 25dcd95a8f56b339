package entity

// ActivityCategory groups activity codes by kind.
type ActivityCategory string

const (
	ActivityCategoryClinical      ActivityCategory = "clinical"
	ActivityCategoryEducation     ActivityCategory = "education"
	ActivityCategoryAdministrative ActivityCategory = "administrative"
	ActivityCategoryTimeOff       ActivityCategory = "time_off"
)

// Activity is a catalog entry for a unit of clinical, educational, or
// administrative work that a half-day block can be filled with.
type Activity struct {
	Code                string
	DisplayAbbreviation string
	Category            ActivityCategory
}

func NewActivity(code, displayAbbreviation string, category ActivityCategory) (*Activity, error) {
	if code == "" {
		return nil, ErrEmptyActivityCode
	}
	return &Activity{Code: code, DisplayAbbreviation: displayAbbreviation, Category: category}, nil
}

// ProtectedActivityCodes is the default set of activity codes for which
// cancellation overrides are rejected outright (spec's current behavior;
// the spec notes this set may need to become data-driven later).
var ProtectedActivityCodes = map[string]bool{
	"FMIT": true,
	"PCAT": true,
	"DO":   true,
}
