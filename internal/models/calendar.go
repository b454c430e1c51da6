package models

import "time"

// Holiday is a single non-teaching date supplied by the academic calendar.
type Holiday struct {
	ID        string    `db:"id" json:"id"`
	Title     string    `db:"title" json:"title"`
	Date      time.Time `db:"date" json:"date"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ExamPeriod is a date window during which regular classes conflict with exams.
type ExamPeriod struct {
	ID        string    `db:"id" json:"id"`
	Title     string    `db:"title" json:"title"`
	StartDate time.Time `db:"start_date" json:"start_date"`
	EndDate   time.Time `db:"end_date" json:"end_date"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Contains reports whether the date falls inside the exam window (inclusive).
func (p ExamPeriod) Contains(date time.Time) bool {
	d := truncateToDay(date)
	return !d.Before(truncateToDay(p.StartDate)) && !d.After(truncateToDay(p.EndDate))
}

// CalendarContext is the read-only snapshot of calendar data the conflict
// detector cross-references for dated candidates.
type CalendarContext struct {
	Holidays    []Holiday
	ExamPeriods []ExamPeriod
}

// HolidayOn returns the holiday falling on the date, if any.
func (c CalendarContext) HolidayOn(date time.Time) (Holiday, bool) {
	d := truncateToDay(date)
	for _, h := range c.Holidays {
		if truncateToDay(h.Date).Equal(d) {
			return h, true
		}
	}
	return Holiday{}, false
}

// ExamPeriodOn returns the exam period covering the date, if any.
func (c CalendarContext) ExamPeriodOn(date time.Time) (ExamPeriod, bool) {
	for _, p := range c.ExamPeriods {
		if p.Contains(date) {
			return p, true
		}
	}
	return ExamPeriod{}, false
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
