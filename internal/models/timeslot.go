package models

import (
	"strings"
	"time"
)

// TimeSlot is a named, reusable daily interval independent of any date.
type TimeSlot struct {
	ID           string    `db:"id" json:"id"`
	Label        string    `db:"label" json:"label"`
	StartMinutes int       `db:"start_minutes" json:"start_minutes"`
	EndMinutes   int       `db:"end_minutes" json:"end_minutes"`
	SortOrder    int       `db:"sort_order" json:"sort_order"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// DurationHours returns the slot length in hours.
func (t TimeSlot) DurationHours() float64 {
	return float64(t.EndMinutes-t.StartMinutes) / 60.0
}

// Overlaps reports whether two slots share any minute of the day.
func (t TimeSlot) Overlaps(other TimeSlot) bool {
	return t.StartMinutes < other.EndMinutes && other.StartMinutes < t.EndMinutes
}

// AdjacentTo reports whether the slots touch back to back or sit next to each
// other in slot order.
func (t TimeSlot) AdjacentTo(other TimeSlot) bool {
	if t.EndMinutes == other.StartMinutes || other.EndMinutes == t.StartMinutes {
		return true
	}
	diff := t.SortOrder - other.SortOrder
	return diff == 1 || diff == -1
}

// Canonical day-of-week names, stored uppercase.
const (
	Monday    = "MONDAY"
	Tuesday   = "TUESDAY"
	Wednesday = "WEDNESDAY"
	Thursday  = "THURSDAY"
	Friday    = "FRIDAY"
	Saturday  = "SATURDAY"
	Sunday    = "SUNDAY"
)

// DaysInOrder lists the canonical day names Monday first.
var DaysInOrder = []string{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

var dayNames = map[string]time.Weekday{
	Monday:    time.Monday,
	Tuesday:   time.Tuesday,
	Wednesday: time.Wednesday,
	Thursday:  time.Thursday,
	Friday:    time.Friday,
	Saturday:  time.Saturday,
	Sunday:    time.Sunday,
}

// ValidDayOfWeek reports whether the supplied name is a canonical day.
func ValidDayOfWeek(day string) bool {
	_, ok := dayNames[strings.ToUpper(day)]
	return ok
}

// DayOfWeekFromDate derives the canonical day name from a calendar date.
func DayOfWeekFromDate(date time.Time) string {
	switch date.Weekday() {
	case time.Monday:
		return Monday
	case time.Tuesday:
		return Tuesday
	case time.Wednesday:
		return Wednesday
	case time.Thursday:
		return Thursday
	case time.Friday:
		return Friday
	case time.Saturday:
		return Saturday
	default:
		return Sunday
	}
}

// IsWeekend reports whether the canonical day name falls on a weekend.
func IsWeekend(day string) bool {
	day = strings.ToUpper(day)
	return day == Saturday || day == Sunday
}
