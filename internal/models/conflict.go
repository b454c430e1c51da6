package models

// ConflictType identifies the axis on which a candidate collides.
type ConflictType string

const (
	ConflictBatchDoubleBooking ConflictType = "BATCH_DOUBLE_BOOKING"
	ConflictFaculty            ConflictType = "FACULTY_CONFLICT"
	ConflictModuleOverlap      ConflictType = "MODULE_OVERLAP"
	ConflictHolidayScheduling  ConflictType = "HOLIDAY_SCHEDULING"
	ConflictExamPeriod         ConflictType = "EXAM_PERIOD_CONFLICT"
)

// ConflictSeverity classifies how strongly a conflict blocks a commit.
type ConflictSeverity string

const (
	SeverityCritical ConflictSeverity = "critical"
	SeverityHigh     ConflictSeverity = "high"
	SeverityMedium   ConflictSeverity = "medium"
	SeverityLow      ConflictSeverity = "low"
)

// SeverityFor maps a conflict type to its severity.
func SeverityFor(t ConflictType) ConflictSeverity {
	switch t {
	case ConflictBatchDoubleBooking, ConflictFaculty:
		return SeverityCritical
	case ConflictModuleOverlap:
		return SeverityHigh
	case ConflictHolidayScheduling:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// Conflict is a detected collision between a candidate and the active
// timetable. Conflicts are computed on demand and never persisted.
type Conflict struct {
	Type     ConflictType     `json:"type"`
	Severity ConflictSeverity `json:"severity"`
	Message  string           `json:"message"`
	Entry    *ScheduledEntry  `json:"entry,omitempty"`
}

// ConflictError is returned when a commit collides with existing entries and
// the caller has not forced the commit through.
type ConflictError struct {
	Message   string     `json:"message"`
	Conflicts []Conflict `json:"conflicts"`
}

// Error implements the error interface for conflict errors.
func (e *ConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}
