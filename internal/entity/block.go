package entity

import (
	"time"

	"github.com/google/uuid"
)

// TimeOfDay is the half-day session within a calendar date.
type TimeOfDay string

const (
	TimeOfDayAM TimeOfDay = "AM"
	TimeOfDayPM TimeOfDay = "PM"
)

// Date is a calendar day with no time component, serialized as YYYY-MM-DD.
type Date struct {
	time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func (d Date) String() string { return d.Format("2006-01-02") }

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	if len(data) < 2 {
		return ErrInvalidDateRange
	}
	t, err := time.Parse("2006-01-02", string(data[1:len(data)-1]))
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

// Block is the half-day scheduling atom: a (date, time_of_day) pair.
type Block struct {
	ID          uuid.UUID
	Date        Date
	TimeOfDay   TimeOfDay
	BlockNumber int // 1-13 academic block index
	IsWeekend   bool
	IsHoliday   bool
	HolidayName string

	CreatedAt time.Time
}

func NewBlock(id uuid.UUID, date Date, tod TimeOfDay, blockNumber int) (*Block, error) {
	if tod != TimeOfDayAM && tod != TimeOfDayPM {
		return nil, ErrInvalidTimeOfDay
	}
	weekday := date.Weekday()
	return &Block{
		ID:          id,
		Date:        date,
		TimeOfDay:   tod,
		BlockNumber: blockNumber,
		IsWeekend:   weekday == time.Saturday || weekday == time.Sunday,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// Key returns the (date, time_of_day) uniqueness key for this block.
func (b *Block) Key() string { return b.Date.String() + "_" + string(b.TimeOfDay) }
