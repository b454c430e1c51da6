package service

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/campus-hq/timetable-api/internal/models"
	appErrors "github.com/campus-hq/timetable-api/pkg/errors"
)

// TimetableSnapshot is the read-only data a detection pass runs against. It is
// assembled once per request so repeated checks inside one resolve call stay
// deterministic.
type TimetableSnapshot struct {
	Entries  []models.ScheduledEntry
	Slots    map[string]models.TimeSlot
	Subjects map[string]models.Subject
	Calendar models.CalendarContext
}

// ConflictService detects collisions between a candidate entry and the active
// timetable. Detection is a pure query: no clock, no side effects.
type ConflictService struct {
	logger *zap.Logger
}

// NewConflictService constructs the detector.
func NewConflictService(logger *zap.Logger) *ConflictService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConflictService{logger: logger}
}

// ValidateCandidate rejects malformed candidates before any detection runs.
// Faculty and subject may be empty only when the caller allows unassigned
// placeholders.
func (s *ConflictService) ValidateCandidate(candidate models.ScheduledEntry, allowUnassigned bool) error {
	if candidate.BatchID == "" {
		return appErrors.Clone(appErrors.ErrValidation, "batch is required")
	}
	if candidate.TimeSlotID == "" {
		return appErrors.Clone(appErrors.ErrValidation, "time slot is required")
	}
	if !models.ValidDayOfWeek(candidate.DayOfWeek) {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown day of week %q", candidate.DayOfWeek))
	}
	if !allowUnassigned {
		if candidate.FacultyID == "" {
			return appErrors.Clone(appErrors.ErrValidation, "faculty is required")
		}
		if candidate.SubjectID == "" {
			return appErrors.Clone(appErrors.ErrValidation, "subject is required")
		}
	}
	if candidate.Kind != "" && !models.ValidEntryKind(candidate.Kind) {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown entry kind %q", candidate.Kind))
	}
	if candidate.Date != nil && models.DayOfWeekFromDate(*candidate.Date) != candidate.DayOfWeek {
		return appErrors.Clone(appErrors.ErrValidation, "date does not fall on the stated day of week")
	}
	return nil
}

type conflictKey struct {
	entryID string
	kind    models.ConflictType
}

// Detect returns every conflict between the candidate and the snapshot. The
// list is empty exactly when the candidate can be committed without violating
// the batch and faculty booking invariants. Duplicate (entry, type) pairs are
// suppressed.
func (s *ConflictService) Detect(candidate models.ScheduledEntry, snapshot TimetableSnapshot) []models.Conflict {
	conflicts := make([]models.Conflict, 0)
	seen := make(map[conflictKey]bool)

	add := func(t models.ConflictType, message string, entry *models.ScheduledEntry) {
		key := conflictKey{kind: t}
		if entry != nil {
			key.entryID = entry.ID
		}
		if seen[key] {
			return
		}
		seen[key] = true
		conflicts = append(conflicts, models.Conflict{
			Type:     t,
			Severity: models.SeverityFor(t),
			Message:  message,
			Entry:    entry,
		})
	}

	for i := range snapshot.Entries {
		existing := snapshot.Entries[i]
		if !existing.Active {
			continue
		}
		if candidate.ID != "" && existing.ID == candidate.ID {
			continue
		}
		if existing.DayOfWeek != candidate.DayOfWeek {
			continue
		}

		if existing.TimeSlotID == candidate.TimeSlotID && candidate.DateOverlaps(existing) {
			if existing.BatchID == candidate.BatchID {
				add(models.ConflictBatchDoubleBooking,
					fmt.Sprintf("batch %s already has %s with faculty %s in this slot", existing.BatchID, existing.SubjectID, existing.FacultyID),
					&snapshot.Entries[i])
			}
			if candidate.FacultyID != "" && existing.FacultyID == candidate.FacultyID {
				add(models.ConflictFaculty,
					fmt.Sprintf("faculty %s already teaches %s for batch %s in this slot", existing.FacultyID, existing.SubjectID, existing.BatchID),
					&snapshot.Entries[i])
			}
		}

		if s.isModuleOverlap(candidate, existing, snapshot) {
			add(models.ConflictModuleOverlap,
				fmt.Sprintf("module %s already occupies a neighbouring slot for batch %s on %s", candidate.SubjectID, candidate.BatchID, candidate.DayOfWeek),
				&snapshot.Entries[i])
		}
	}

	if candidate.Date != nil {
		if holiday, ok := snapshot.Calendar.HolidayOn(*candidate.Date); ok {
			add(models.ConflictHolidayScheduling,
				fmt.Sprintf("%s falls on holiday %q", candidate.Date.Format("2006-01-02"), holiday.Title), nil)
		}
		if candidate.Kind != models.EntryKindExam {
			if period, ok := snapshot.Calendar.ExamPeriodOn(*candidate.Date); ok {
				add(models.ConflictExamPeriod,
					fmt.Sprintf("%s falls inside exam period %q", candidate.Date.Format("2006-01-02"), period.Title), nil)
			}
		}
	}

	return conflicts
}

func (s *ConflictService) isModuleOverlap(candidate, existing models.ScheduledEntry, snapshot TimetableSnapshot) bool {
	if candidate.SubjectID == "" {
		return false
	}
	subject, ok := snapshot.Subjects[candidate.SubjectID]
	if !ok || !subject.IsModule {
		return false
	}
	if existing.SubjectID != candidate.SubjectID || existing.BatchID != candidate.BatchID {
		return false
	}
	if existing.TimeSlotID == candidate.TimeSlotID {
		return false
	}
	if !candidate.DateOverlaps(existing) {
		return false
	}
	candidateSlot, okC := snapshot.Slots[candidate.TimeSlotID]
	existingSlot, okE := snapshot.Slots[existing.TimeSlotID]
	if !okC || !okE {
		return false
	}
	return candidateSlot.Overlaps(existingSlot) || candidateSlot.AdjacentTo(existingSlot)
}
