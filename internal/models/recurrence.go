package models

import "time"

// RecurrencePattern controls how expansion steps forward.
type RecurrencePattern string

const (
	RecurrenceDaily   RecurrencePattern = "DAILY"
	RecurrenceWeekly  RecurrencePattern = "WEEKLY"
	RecurrenceMonthly RecurrencePattern = "MONTHLY"
)

// ValidRecurrencePattern reports whether the pattern is known.
func ValidRecurrencePattern(p RecurrencePattern) bool {
	switch p {
	case RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly:
		return true
	}
	return false
}

// RecurrenceRule describes a recurring series. Exactly one end condition must
// be set; the rule is consumed once to materialize entries and never stored.
type RecurrenceRule struct {
	Pattern         RecurrencePattern `json:"pattern"`
	EndDate         *time.Time        `json:"end_date,omitempty"`
	OccurrenceCount int               `json:"occurrence_count,omitempty"`
	DurationHours   float64           `json:"duration_hours,omitempty"`
	UntilTermEnd    bool              `json:"until_term_end,omitempty"`
	TermEnd         *time.Time        `json:"term_end,omitempty"`
}

// EndConditionCount returns how many end conditions are set.
func (r RecurrenceRule) EndConditionCount() int {
	count := 0
	if r.EndDate != nil {
		count++
	}
	if r.OccurrenceCount > 0 {
		count++
	}
	if r.DurationHours > 0 {
		count++
	}
	if r.UntilTermEnd {
		count++
	}
	return count
}

// Occurrence pairs a generated date with the weekday derived from that date.
type Occurrence struct {
	Date      time.Time `json:"date"`
	DayOfWeek string    `json:"day_of_week"`
}
