package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-hq/timetable-api/internal/models"
	appErrors "github.com/campus-hq/timetable-api/pkg/errors"
)

func testSlots() map[string]models.TimeSlot {
	return map[string]models.TimeSlot{
		"s1":  {ID: "s1", Label: "08:00-09:00", StartMinutes: 480, EndMinutes: 540, SortOrder: 1},
		"s2":  {ID: "s2", Label: "09:00-10:00", StartMinutes: 540, EndMinutes: 600, SortOrder: 2},
		"s3":  {ID: "s3", Label: "10:30-11:30", StartMinutes: 630, EndMinutes: 690, SortOrder: 3},
		"lab": {ID: "lab", Label: "13:00-15:00", StartMinutes: 780, EndMinutes: 900, SortOrder: 4},
	}
}

func testSnapshot(entries ...models.ScheduledEntry) TimetableSnapshot {
	return TimetableSnapshot{
		Entries: entries,
		Slots:   testSlots(),
		Subjects: map[string]models.Subject{
			"math":   {ID: "math", Name: "Mathematics"},
			"module": {ID: "module", Name: "Lab Module", IsModule: true},
		},
	}
}

func dateOn(value string) *time.Time {
	d, err := time.Parse("2006-01-02", value)
	if err != nil {
		panic(err)
	}
	return &d
}

func TestValidateCandidateRequiredFields(t *testing.T) {
	svc := NewConflictService(nil)

	err := svc.ValidateCandidate(models.ScheduledEntry{TimeSlotID: "s1", DayOfWeek: models.Monday}, false)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	err = svc.ValidateCandidate(models.ScheduledEntry{BatchID: "b1", TimeSlotID: "s1", DayOfWeek: "FUNDAY"}, false)
	require.Error(t, err)

	// Faculty and subject may stay empty for placeholder checks only.
	candidate := models.ScheduledEntry{BatchID: "b1", TimeSlotID: "s1", DayOfWeek: models.Monday}
	require.Error(t, svc.ValidateCandidate(candidate, false))
	require.NoError(t, svc.ValidateCandidate(candidate, true))
}

func TestValidateCandidateDateMustMatchDay(t *testing.T) {
	svc := NewConflictService(nil)
	candidate := models.ScheduledEntry{
		BatchID: "b1", SubjectID: "math", FacultyID: "f1", TimeSlotID: "s1",
		DayOfWeek: models.Tuesday,
		Date:      dateOn("2025-01-06"), // a Monday
	}
	require.Error(t, svc.ValidateCandidate(candidate, false))

	candidate.DayOfWeek = models.Monday
	require.NoError(t, svc.ValidateCandidate(candidate, false))
}

func TestDetectBatchDoubleBookingOnly(t *testing.T) {
	svc := NewConflictService(nil)
	existing := models.ScheduledEntry{
		ID: "e1", BatchID: "b1", SubjectID: "math", FacultyID: "f1",
		TimeSlotID: "s1", DayOfWeek: models.Monday, Active: true,
	}
	candidate := models.ScheduledEntry{
		BatchID: "b1", SubjectID: "physics", FacultyID: "f2",
		TimeSlotID: "s1", DayOfWeek: models.Monday,
	}

	conflicts := svc.Detect(candidate, testSnapshot(existing))
	require.Len(t, conflicts, 1)
	assert.Equal(t, models.ConflictBatchDoubleBooking, conflicts[0].Type)
	assert.Equal(t, models.SeverityCritical, conflicts[0].Severity)
	require.NotNil(t, conflicts[0].Entry)
	assert.Equal(t, "e1", conflicts[0].Entry.ID)
}

func TestDetectBatchAndFacultyConflictFromOnePair(t *testing.T) {
	svc := NewConflictService(nil)
	existing := models.ScheduledEntry{
		ID: "e1", BatchID: "b1", SubjectID: "math", FacultyID: "f1",
		TimeSlotID: "s1", DayOfWeek: models.Monday, Active: true,
	}
	candidate := models.ScheduledEntry{
		BatchID: "b1", SubjectID: "physics", FacultyID: "f1",
		TimeSlotID: "s1", DayOfWeek: models.Monday,
	}

	conflicts := svc.Detect(candidate, testSnapshot(existing))
	require.Len(t, conflicts, 2)
	types := []models.ConflictType{conflicts[0].Type, conflicts[1].Type}
	assert.Contains(t, types, models.ConflictBatchDoubleBooking)
	assert.Contains(t, types, models.ConflictFaculty)
}

func TestDetectFacultyConflictAcrossBatches(t *testing.T) {
	svc := NewConflictService(nil)
	existing := models.ScheduledEntry{
		ID: "e1", BatchID: "b1", SubjectID: "math", FacultyID: "f1",
		TimeSlotID: "s1", DayOfWeek: models.Monday, Active: true,
	}
	candidate := models.ScheduledEntry{
		BatchID: "b2", SubjectID: "physics", FacultyID: "f1",
		TimeSlotID: "s1", DayOfWeek: models.Monday,
	}

	conflicts := svc.Detect(candidate, testSnapshot(existing))
	require.Len(t, conflicts, 1)
	assert.Equal(t, models.ConflictFaculty, conflicts[0].Type)
}

func TestDetectSkipsInactiveAndSelf(t *testing.T) {
	svc := NewConflictService(nil)
	inactive := models.ScheduledEntry{
		ID: "e1", BatchID: "b1", FacultyID: "f1", SubjectID: "math",
		TimeSlotID: "s1", DayOfWeek: models.Monday, Active: false,
	}
	self := models.ScheduledEntry{
		ID: "e2", BatchID: "b1", FacultyID: "f1", SubjectID: "math",
		TimeSlotID: "s1", DayOfWeek: models.Monday, Active: true,
	}
	candidate := self

	conflicts := svc.Detect(candidate, testSnapshot(inactive, self))
	assert.Empty(t, conflicts)
}

func TestDetectDatedEntriesOnlyCollideOnSameDate(t *testing.T) {
	svc := NewConflictService(nil)
	existing := models.ScheduledEntry{
		ID: "e1", BatchID: "b1", SubjectID: "math", FacultyID: "f1",
		TimeSlotID: "s1", DayOfWeek: models.Monday, Date: dateOn("2025-01-06"), Active: true,
	}

	other := models.ScheduledEntry{
		BatchID: "b1", SubjectID: "physics", FacultyID: "f2",
		TimeSlotID: "s1", DayOfWeek: models.Monday, Date: dateOn("2025-01-13"),
	}
	assert.Empty(t, svc.Detect(other, testSnapshot(existing)))

	same := other
	same.Date = dateOn("2025-01-06")
	assert.Len(t, svc.Detect(same, testSnapshot(existing)), 1)

	// A recurring template collides with any dated entry on its weekday.
	recurring := other
	recurring.Date = nil
	assert.Len(t, svc.Detect(recurring, testSnapshot(existing)), 1)
}

func TestDetectModuleOverlapInAdjacentSlot(t *testing.T) {
	svc := NewConflictService(nil)
	existing := models.ScheduledEntry{
		ID: "e1", BatchID: "b1", SubjectID: "module", FacultyID: "f1",
		TimeSlotID: "s1", DayOfWeek: models.Monday, Active: true,
	}
	candidate := models.ScheduledEntry{
		BatchID: "b1", SubjectID: "module", FacultyID: "f2",
		TimeSlotID: "s2", DayOfWeek: models.Monday,
	}

	conflicts := svc.Detect(candidate, testSnapshot(existing))
	require.Len(t, conflicts, 1)
	assert.Equal(t, models.ConflictModuleOverlap, conflicts[0].Type)
	assert.Equal(t, models.SeverityHigh, conflicts[0].Severity)
}

func TestDetectModuleOverlapIgnoresNonModuleSubjects(t *testing.T) {
	svc := NewConflictService(nil)
	existing := models.ScheduledEntry{
		ID: "e1", BatchID: "b1", SubjectID: "math", FacultyID: "f1",
		TimeSlotID: "s1", DayOfWeek: models.Monday, Active: true,
	}
	candidate := models.ScheduledEntry{
		BatchID: "b1", SubjectID: "math", FacultyID: "f2",
		TimeSlotID: "s2", DayOfWeek: models.Monday,
	}
	assert.Empty(t, svc.Detect(candidate, testSnapshot(existing)))
}

func TestDetectHolidayAndExamPeriod(t *testing.T) {
	svc := NewConflictService(nil)
	snapshot := testSnapshot()
	snapshot.Calendar = models.CalendarContext{
		Holidays: []models.Holiday{{ID: "h1", Title: "Founders Day", Date: *dateOn("2025-01-06")}},
		ExamPeriods: []models.ExamPeriod{{
			ID: "x1", Title: "Midterms",
			StartDate: *dateOn("2025-01-06"), EndDate: *dateOn("2025-01-10"),
		}},
	}

	candidate := models.ScheduledEntry{
		BatchID: "b1", SubjectID: "math", FacultyID: "f1",
		TimeSlotID: "s1", DayOfWeek: models.Monday, Date: dateOn("2025-01-06"),
	}
	conflicts := svc.Detect(candidate, snapshot)
	require.Len(t, conflicts, 2)

	bySeverity := map[models.ConflictType]models.ConflictSeverity{}
	for _, c := range conflicts {
		bySeverity[c.Type] = c.Severity
	}
	assert.Equal(t, models.SeverityMedium, bySeverity[models.ConflictHolidayScheduling])
	assert.Equal(t, models.SeverityLow, bySeverity[models.ConflictExamPeriod])
}

func TestDetectExamEntrySkipsExamPeriodConflict(t *testing.T) {
	svc := NewConflictService(nil)
	snapshot := testSnapshot()
	snapshot.Calendar = models.CalendarContext{
		ExamPeriods: []models.ExamPeriod{{
			ID: "x1", Title: "Midterms",
			StartDate: *dateOn("2025-01-06"), EndDate: *dateOn("2025-01-10"),
		}},
	}

	exam := models.ScheduledEntry{
		BatchID: "b1", SubjectID: "math", FacultyID: "f1",
		TimeSlotID: "s1", DayOfWeek: models.Wednesday, Date: dateOn("2025-01-08"),
		Kind: models.EntryKindExam,
	}
	assert.Empty(t, svc.Detect(exam, snapshot))
}

func TestDetectRecurringCandidateSkipsCalendarChecks(t *testing.T) {
	svc := NewConflictService(nil)
	snapshot := testSnapshot()
	snapshot.Calendar = models.CalendarContext{
		Holidays: []models.Holiday{{ID: "h1", Title: "Founders Day", Date: *dateOn("2025-01-06")}},
	}

	recurring := models.ScheduledEntry{
		BatchID: "b1", SubjectID: "math", FacultyID: "f1",
		TimeSlotID: "s1", DayOfWeek: models.Monday,
	}
	assert.Empty(t, svc.Detect(recurring, snapshot))
}
