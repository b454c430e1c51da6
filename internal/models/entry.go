package models

import "time"

// EntryKind classifies a scheduled entry.
type EntryKind string

const (
	EntryKindRegular EntryKind = "REGULAR"
	EntryKindMakeup  EntryKind = "MAKEUP"
	EntryKindExtra   EntryKind = "EXTRA"
	EntryKindExam    EntryKind = "EXAM"
)

// ValidEntryKind reports whether the kind is one of the known variants.
func ValidEntryKind(kind EntryKind) bool {
	switch kind {
	case EntryKindRegular, EntryKindMakeup, EntryKindExtra, EntryKindExam:
		return true
	}
	return false
}

// ScheduledEntry is one concrete assignment of subject+faculty+batch to a
// time slot on a weekday. A nil Date means the entry is a recurring template
// repeating every matching weekday; a set Date pins it to that day only.
type ScheduledEntry struct {
	ID         string     `db:"id" json:"id"`
	BatchID    string     `db:"batch_id" json:"batch_id"`
	SubjectID  string     `db:"subject_id" json:"subject_id"`
	FacultyID  string     `db:"faculty_id" json:"faculty_id"`
	TimeSlotID string     `db:"time_slot_id" json:"time_slot_id"`
	DayOfWeek  string     `db:"day_of_week" json:"day_of_week"`
	Date       *time.Time `db:"date" json:"date,omitempty"`
	Kind       EntryKind  `db:"kind" json:"kind"`
	Priority   int        `db:"priority" json:"priority"`
	Active     bool       `db:"active" json:"active"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
}

// DateOverlaps applies the date-context rule: a recurring template collides
// with everything in the same slot/day, two dated entries only on equal dates.
func (e ScheduledEntry) DateOverlaps(other ScheduledEntry) bool {
	if e.Date == nil || other.Date == nil {
		return true
	}
	ey, em, ed := e.Date.Date()
	oy, om, od := other.Date.Date()
	return ey == oy && em == om && ed == od
}

// EntryFilter describes query params for listing entries.
type EntryFilter struct {
	BatchID    string
	FacultyID  string
	SubjectID  string
	DayOfWeek  string
	TimeSlotID string
	ActiveOnly bool
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}
