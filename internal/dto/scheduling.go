package dto

import "github.com/campus-hq/timetable-api/internal/models"

// CandidateEntry is a not-yet-committed entry submitted for conflict checks,
// resolution or commit. Date uses the 2006-01-02 layout; empty means the
// candidate is a recurring template.
type CandidateEntry struct {
	BatchID    string `json:"batchId" validate:"required"`
	SubjectID  string `json:"subjectId"`
	FacultyID  string `json:"facultyId"`
	TimeSlotID string `json:"timeSlotId" validate:"required"`
	DayOfWeek  string `json:"dayOfWeek" validate:"required,dayofweek"`
	Date       string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Kind       string `json:"kind" validate:"omitempty,entrykind"`
	Priority   int    `json:"priority" validate:"omitempty,min=0,max=10"`
}

// CheckConflictsRequest asks the detector to evaluate one candidate.
type CheckConflictsRequest struct {
	Entry           CandidateEntry `json:"entry" validate:"required"`
	AllowUnassigned bool           `json:"allowUnassigned"`
}

// CheckConflictsResponse lists detected conflicts; empty means committable.
type CheckConflictsResponse struct {
	Conflicts []models.Conflict `json:"conflicts"`
}

// ExpandRequest materializes a recurrence rule into dated occurrences.
type ExpandRequest struct {
	Rule       models.RecurrenceRule `json:"rule" validate:"required"`
	StartDate  string                `json:"startDate" validate:"required,datetime=2006-01-02"`
	TimeSlotID string                `json:"timeSlotId" validate:"required"`
}

// ExpandResponse returns the finite occurrence sequence.
type ExpandResponse struct {
	Occurrences []models.Occurrence `json:"occurrences"`
}

// StrategyKind tags an auto-resolve strategy variant.
type StrategyKind string

const (
	StrategyNextSlot           StrategyKind = "next_slot"
	StrategyNextDay            StrategyKind = "next_day"
	StrategyAlternativeFaculty StrategyKind = "alternative_faculty"
	StrategySplitSession       StrategyKind = "split_session"
	StrategyRescheduleExisting StrategyKind = "reschedule_existing"
)

// StrategyParams is the per-kind parameter bag. Shape is validated against the
// kind when the resolver is invoked, not at call sites.
type StrategyParams struct {
	SameDayOnly        bool `json:"sameDayOnly,omitempty"`
	MaxHoursAhead      int  `json:"maxHoursAhead,omitempty"`
	MaxDaysAhead       int  `json:"maxDaysAhead,omitempty"`
	SkipWeekends       bool `json:"skipWeekends,omitempty"`
	SkipHolidays       bool `json:"skipHolidays,omitempty"`
	SameDepartmentOnly bool `json:"sameDepartmentOnly,omitempty"`
	MaxWeeklyLoad      int  `json:"maxWeeklyLoad,omitempty"`
	MaxParts           int  `json:"maxParts,omitempty"`
}

// StrategyConfig selects and orders one strategy. Lower priority runs first.
type StrategyConfig struct {
	Kind     StrategyKind   `json:"kind" validate:"required,strategykind"`
	Priority int            `json:"priority" validate:"min=0"`
	Params   StrategyParams `json:"params"`
}

// ResolveRequest asks the engine for ranked alternative placements.
type ResolveRequest struct {
	Entry        CandidateEntry   `json:"entry" validate:"required"`
	Strategies   []StrategyConfig `json:"strategies" validate:"required,min=1,dive"`
	MaxSolutions int              `json:"maxSolutions" validate:"omitempty,min=1,max=20"`
}

// Solution is one conflict-free placement found by a strategy. Placements
// produced by reschedule_existing mutate a different entry and therefore carry
// RequiresApproval.
type Solution struct {
	Strategy          StrategyKind     `json:"strategy"`
	StrategyPriority  int              `json:"strategyPriority"`
	Score             float64          `json:"score"`
	Entry             CandidateEntry   `json:"entry"`
	Parts             []CandidateEntry `json:"parts,omitempty"`
	RescheduleEntryID string           `json:"rescheduleEntryId,omitempty"`
	RequiresApproval  bool             `json:"requiresApproval"`
	Notes             string           `json:"notes,omitempty"`
}

// ResolveResponse returns solutions ordered best first.
type ResolveResponse struct {
	Solutions []Solution `json:"solutions"`
}

// CommitRequest creates entries, optionally expanded from a recurrence rule
// attached to the single candidate.
type CommitRequest struct {
	Entries              []CandidateEntry       `json:"entries" validate:"required,min=1,dive"`
	Rule                 *models.RecurrenceRule `json:"rule,omitempty"`
	ForceIgnoreConflicts bool                   `json:"forceIgnoreConflicts"`
}

// CommitResponse reports the committed entries and the aggregate undo handle.
type CommitResponse struct {
	Created         []models.ScheduledEntry `json:"created"`
	UndoOperationID string                  `json:"undoOperationId"`
	Conflicts       []models.Conflict       `json:"conflicts,omitempty"`
}

// UndoResponse reports the outcome of executing an undo operation.
type UndoResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// UndoStatusResponse carries the remaining countdown for a pending operation.
type UndoStatusResponse struct {
	OperationID      string  `json:"operationId"`
	RemainingSeconds float64 `json:"remainingSeconds"`
}
