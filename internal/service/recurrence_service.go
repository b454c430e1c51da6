package service

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/campus-hq/timetable-api/internal/models"
	appErrors "github.com/campus-hq/timetable-api/pkg/errors"
)

// expansionCeiling caps how many dates one rule may generate. A rule that has
// not met its end condition by then is rejected instead of looping.
const expansionCeiling = 500

// RecurrenceService materializes recurrence rules into finite occurrence
// sequences. Expansion is a single forward pass; the result is a concrete
// slice so callers can run conflict checks and commits over the same dates.
type RecurrenceService struct {
	logger *zap.Logger
}

// NewRecurrenceService constructs the expander.
func NewRecurrenceService(logger *zap.Logger) *RecurrenceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecurrenceService{logger: logger}
}

// ValidateRule rejects rules with zero or multiple end conditions.
func (s *RecurrenceService) ValidateRule(rule models.RecurrenceRule) error {
	if !models.ValidRecurrencePattern(rule.Pattern) {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown recurrence pattern %q", rule.Pattern))
	}
	switch rule.EndConditionCount() {
	case 0:
		return appErrors.Clone(appErrors.ErrValidation, "recurrence rule has no end condition")
	case 1:
	default:
		return appErrors.Clone(appErrors.ErrValidation, "recurrence rule must have exactly one end condition")
	}
	if rule.UntilTermEnd && rule.TermEnd == nil {
		return appErrors.Clone(appErrors.ErrValidation, "term end date is required for until-term-end rules")
	}
	if rule.OccurrenceCount > expansionCeiling {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("occurrence count exceeds the %d occurrence ceiling", expansionCeiling))
	}
	return nil
}

// Expand generates the ordered dated occurrences for the rule starting at
// start. Each occurrence contributes slotDurationHours toward duration-based
// end conditions. The weekday of every occurrence is derived from the date
// itself so the sequence can never drift from the calendar.
func (s *RecurrenceService) Expand(rule models.RecurrenceRule, start time.Time, slotDurationHours float64) ([]models.Occurrence, error) {
	if err := s.ValidateRule(rule); err != nil {
		return nil, err
	}
	if rule.DurationHours > 0 && slotDurationHours <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "slot duration is required for duration-based rules")
	}

	occurrences := make([]models.Occurrence, 0)
	current := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	accumulated := 0.0

	for i := 0; i < expansionCeiling; i++ {
		if rule.EndDate != nil && current.After(dayOf(*rule.EndDate)) {
			return occurrences, nil
		}
		if rule.UntilTermEnd && current.After(dayOf(*rule.TermEnd)) {
			return occurrences, nil
		}

		occurrences = append(occurrences, models.Occurrence{
			Date:      current,
			DayOfWeek: models.DayOfWeekFromDate(current),
		})

		if rule.OccurrenceCount > 0 && len(occurrences) >= rule.OccurrenceCount {
			return occurrences, nil
		}
		if rule.DurationHours > 0 {
			accumulated += slotDurationHours
			if accumulated >= rule.DurationHours {
				return occurrences, nil
			}
		}

		current = step(rule.Pattern, current)
	}

	return nil, appErrors.Clone(appErrors.ErrValidation,
		fmt.Sprintf("recurrence rule did not terminate within %d occurrences", expansionCeiling))
}

func step(pattern models.RecurrencePattern, date time.Time) time.Time {
	switch pattern {
	case models.RecurrenceDaily:
		return date.AddDate(0, 0, 1)
	case models.RecurrenceWeekly:
		return date.AddDate(0, 0, 7)
	default:
		return date.AddDate(0, 1, 0)
	}
}

func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
