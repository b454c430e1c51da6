package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campus-hq/timetable-api/internal/dto"
	"github.com/campus-hq/timetable-api/internal/models"
	appErrors "github.com/campus-hq/timetable-api/pkg/errors"
	"github.com/campus-hq/timetable-api/pkg/events"
)

type entryRepository interface {
	List(ctx context.Context, filter models.EntryFilter) ([]models.ScheduledEntry, int, error)
	ListActive(ctx context.Context) ([]models.ScheduledEntry, error)
	FindByID(ctx context.Context, id string) (*models.ScheduledEntry, error)
	BulkCreate(ctx context.Context, entries []models.ScheduledEntry) error
	Update(ctx context.Context, entry *models.ScheduledEntry) error
	SetActive(ctx context.Context, ids []string, active bool) error
}

type timeSlotReader interface {
	ListAll(ctx context.Context) ([]models.TimeSlot, error)
	FindByID(ctx context.Context, id string) (*models.TimeSlot, error)
}

type subjectReader interface {
	ListAll(ctx context.Context) ([]models.Subject, error)
}

type facultyReader interface {
	ListActive(ctx context.Context) ([]models.Faculty, error)
}

type calendarProvider interface {
	Holidays(ctx context.Context) ([]models.Holiday, error)
	ExamPeriods(ctx context.Context) ([]models.ExamPeriod, error)
}

// Emitter publishes mutation events to downstream subscribers. A nil Emitter
// disables broadcasting.
type Emitter interface {
	Emit(event events.Event) error
}

const entityScheduledEntry = "scheduled_entry"

// ScheduleService orchestrates conflict checking, recurrence expansion,
// auto-resolution and the reversible commit path.
type ScheduleService struct {
	entries    entryRepository
	slots      timeSlotReader
	subjects   subjectReader
	faculty    facultyReader
	calendar   calendarProvider
	detector   *ConflictService
	recurrence *RecurrenceService
	resolver   *ResolverService
	undo       *UndoService
	emitter    Emitter
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewScheduleService wires the scheduling core. The undo service must be
// constructed with this service as its applier (see ApplyInverse).
func NewScheduleService(
	entries entryRepository,
	slots timeSlotReader,
	subjects subjectReader,
	faculty facultyReader,
	calendar calendarProvider,
	detector *ConflictService,
	recurrence *RecurrenceService,
	resolver *ResolverService,
	emitter Emitter,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &ScheduleService{
		entries:    entries,
		slots:      slots,
		subjects:   subjects,
		faculty:    faculty,
		calendar:   calendar,
		detector:   detector,
		recurrence: recurrence,
		resolver:   resolver,
		emitter:    emitter,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
	}
	registerSchedulingValidators(svc.validator)
	return svc
}

// SetUndoService attaches the undo registry after construction, breaking the
// applier cycle between the two services.
func (s *ScheduleService) SetUndoService(undo *UndoService) {
	s.undo = undo
}

func registerSchedulingValidators(v *validator.Validate) {
	_ = v.RegisterValidation("dayofweek", func(fl validator.FieldLevel) bool {
		return models.ValidDayOfWeek(fl.Field().String())
	})
	_ = v.RegisterValidation("entrykind", func(fl validator.FieldLevel) bool {
		return models.ValidEntryKind(models.EntryKind(strings.ToUpper(fl.Field().String())))
	})
	_ = v.RegisterValidation("strategykind", func(fl validator.FieldLevel) bool {
		switch dto.StrategyKind(fl.Field().String()) {
		case dto.StrategyNextSlot, dto.StrategyNextDay, dto.StrategyAlternativeFaculty,
			dto.StrategySplitSession, dto.StrategyRescheduleExisting:
			return true
		}
		return false
	})
}

// CheckConflicts evaluates one candidate against the active timetable.
func (s *ScheduleService) CheckConflicts(ctx context.Context, req dto.CheckConflictsRequest) ([]models.Conflict, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid conflict check payload")
	}
	candidate, err := entryFromDTO(req.Entry)
	if err != nil {
		return nil, err
	}
	if err := s.detector.ValidateCandidate(candidate, req.AllowUnassigned); err != nil {
		return nil, err
	}
	snapshot, err := s.loadSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	conflicts := s.detector.Detect(candidate, snapshot.TimetableSnapshot)
	s.observeConflicts(conflicts)
	return conflicts, nil
}

// Expand materializes a recurrence rule into concrete occurrences.
func (s *ScheduleService) Expand(ctx context.Context, req dto.ExpandRequest) ([]models.Occurrence, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid expand payload")
	}
	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "startDate must use the 2006-01-02 layout")
	}
	slot, err := s.slots.FindByID(ctx, req.TimeSlotID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "time slot not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrCollaborator.Code, appErrors.ErrCollaborator.Status, "failed to load time slot")
	}
	return s.recurrence.Expand(req.Rule, start, slot.DurationHours())
}

// Resolve asks the strategy engine for ranked alternative placements.
func (s *ScheduleService) Resolve(ctx context.Context, req dto.ResolveRequest) ([]dto.Solution, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid resolve payload")
	}
	candidate, err := entryFromDTO(req.Entry)
	if err != nil {
		return nil, err
	}
	if err := s.detector.ValidateCandidate(candidate, false); err != nil {
		return nil, err
	}
	snapshot, err := s.loadSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	conflicts := s.detector.Detect(candidate, snapshot.TimetableSnapshot)
	solutions, err := s.resolver.Resolve(ctx, candidate, conflicts, req.Strategies, snapshot, req.MaxSolutions)
	if err != nil {
		return nil, err
	}
	s.observeResolutions(solutions)
	return solutions, nil
}

// Commit validates, expands and checks every candidate occurrence before any
// row is written, then creates the whole batch in one transaction and
// registers a single aggregate undo operation for it.
func (s *ScheduleService) Commit(ctx context.Context, req dto.CommitRequest) (*dto.CommitResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid commit payload")
	}

	candidates, err := s.buildCandidates(ctx, req)
	if err != nil {
		return nil, err
	}

	snapshot, err := s.loadSnapshot(ctx)
	if err != nil {
		return nil, err
	}

	allConflicts := make([]models.Conflict, 0)
	checked := snapshot.TimetableSnapshot
	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "commit aborted before any write")
		}
		conflicts := s.detector.Detect(candidate, checked)
		allConflicts = append(allConflicts, conflicts...)
		// Later occurrences in the same batch must also clear the earlier ones.
		accepted := candidate
		accepted.Active = true
		checked.Entries = append(checked.Entries, accepted)
	}
	s.observeConflicts(allConflicts)

	if len(allConflicts) > 0 && !req.ForceIgnoreConflicts {
		domainErr := &models.ConflictError{Message: "schedule conflicts detected", Conflicts: allConflicts}
		return nil, appErrors.Wrap(domainErr, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "schedule conflicts detected")
	}

	start := time.Now()
	if err := s.entries.BulkCreate(ctx, candidates); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrCollaborator.Code, appErrors.ErrCollaborator.Status, "failed to persist entries")
	}
	s.observeQuery("entries_bulk_create", start)

	ids := make([]string, len(candidates))
	for i, entry := range candidates {
		ids[i] = entry.ID
	}

	undoID := ""
	if s.undo != nil {
		description := fmt.Sprintf("creation of %d schedule entr%s", len(ids), pluralSuffix(len(ids)))
		undoID, err = s.undo.Register(entityScheduledEntry, ids, models.UndoCreate, nil, description)
		if err != nil {
			s.logger.Sugar().Warnw("failed to register undo for commit", "error", err)
		}
	}

	s.emit("COMMIT", ids)

	resp := &dto.CommitResponse{Created: candidates, UndoOperationID: undoID}
	if req.ForceIgnoreConflicts {
		resp.Conflicts = allConflicts
	}
	return resp, nil
}

// UpdateEntryRequest modifies an existing entry.
type UpdateEntryRequest struct {
	SubjectID  string `json:"subject_id" validate:"required"`
	FacultyID  string `json:"faculty_id" validate:"required"`
	TimeSlotID string `json:"time_slot_id" validate:"required"`
	DayOfWeek  string `json:"day_of_week" validate:"required,dayofweek"`
	Date       string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Priority   int    `json:"priority" validate:"omitempty,min=0,max=10"`
}

// Update modifies an entry after re-running conflict detection, recording the
// pre-image so the change stays reversible inside the undo window.
func (s *ScheduleService) Update(ctx context.Context, id string, req UpdateEntryRequest, force bool) (*models.ScheduledEntry, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid entry payload")
	}
	existing, err := s.entries.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "entry not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrCollaborator.Code, appErrors.ErrCollaborator.Status, "failed to load entry")
	}

	updated := *existing
	updated.SubjectID = req.SubjectID
	updated.FacultyID = req.FacultyID
	updated.TimeSlotID = req.TimeSlotID
	updated.DayOfWeek = strings.ToUpper(req.DayOfWeek)
	updated.Priority = req.Priority
	if req.Date != "" {
		date, parseErr := time.Parse("2006-01-02", req.Date)
		if parseErr != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "date must use the 2006-01-02 layout")
		}
		updated.Date = &date
	} else {
		updated.Date = nil
	}

	if err := s.detector.ValidateCandidate(updated, false); err != nil {
		return nil, err
	}
	snapshot, err := s.loadSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	conflicts := s.detector.Detect(updated, snapshot.TimetableSnapshot)
	s.observeConflicts(conflicts)
	if len(conflicts) > 0 && !force {
		domainErr := &models.ConflictError{Message: "schedule conflicts detected", Conflicts: conflicts}
		return nil, appErrors.Wrap(domainErr, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "schedule conflicts detected")
	}

	if err := s.entries.Update(ctx, &updated); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrCollaborator.Code, appErrors.ErrCollaborator.Status, "failed to update entry")
	}

	if s.undo != nil {
		preImage, marshalErr := json.Marshal(existing)
		if marshalErr == nil {
			if _, undoErr := s.undo.Register(entityScheduledEntry, []string{id}, models.UndoUpdate, preImage,
				fmt.Sprintf("update of schedule entry %s", id)); undoErr != nil {
				s.logger.Sugar().Warnw("failed to register undo for update", "error", undoErr)
			}
		}
	}

	s.emit("UPDATE", []string{id})
	return &updated, nil
}

// Delete soft-deletes an entry; the undo window can bring it back.
func (s *ScheduleService) Delete(ctx context.Context, id string) (string, error) {
	entry, err := s.entries.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", appErrors.Clone(appErrors.ErrNotFound, "entry not found")
		}
		return "", appErrors.Wrap(err, appErrors.ErrCollaborator.Code, appErrors.ErrCollaborator.Status, "failed to load entry")
	}
	if !entry.Active {
		return "", appErrors.Clone(appErrors.ErrNotFound, "entry already deleted")
	}

	if err := s.entries.SetActive(ctx, []string{id}, false); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrCollaborator.Code, appErrors.ErrCollaborator.Status, "failed to delete entry")
	}

	undoID := ""
	if s.undo != nil {
		undoID, err = s.undo.Register(entityScheduledEntry, []string{id}, models.UndoDelete, nil,
			fmt.Sprintf("deletion of schedule entry %s", id))
		if err != nil {
			s.logger.Sugar().Warnw("failed to register undo for delete", "error", err)
		}
	}

	s.emit("DELETE", []string{id})
	return undoID, nil
}

// Undo executes a pending undo operation.
func (s *ScheduleService) Undo(ctx context.Context, operationID string) (*dto.UndoResponse, error) {
	if s.undo == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "undo registry unavailable")
	}
	message, err := s.undo.Execute(ctx, operationID)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.ObserveUndo("executed")
	}
	s.emit("UNDO", []string{operationID})
	return &dto.UndoResponse{Success: true, Message: message}, nil
}

// UndoStatus reports the remaining countdown for a pending operation.
func (s *ScheduleService) UndoStatus(operationID string) (*dto.UndoStatusResponse, error) {
	if s.undo == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "undo registry unavailable")
	}
	remaining := s.undo.RemainingTime(operationID)
	if remaining <= 0 {
		return nil, appErrors.Clone(appErrors.ErrUndoNotFound, "nothing to undo: operation unknown or expired")
	}
	return &dto.UndoStatusResponse{OperationID: operationID, RemainingSeconds: remaining}, nil
}

// ApplyInverse implements UndoApplier for scheduled entries.
func (s *ScheduleService) ApplyInverse(ctx context.Context, op models.UndoOperation) error {
	switch op.Kind {
	case models.UndoCreate:
		return s.entries.SetActive(ctx, op.EntityIDs, false)
	case models.UndoDelete:
		return s.entries.SetActive(ctx, op.EntityIDs, true)
	case models.UndoUpdate:
		var preImage models.ScheduledEntry
		if err := json.Unmarshal(op.InverseData, &preImage); err != nil {
			return fmt.Errorf("decode undo pre-image: %w", err)
		}
		return s.entries.Update(ctx, &preImage)
	default:
		return fmt.Errorf("unknown undo kind %q", op.Kind)
	}
}

// List returns entries with pagination metadata.
func (s *ScheduleService) List(ctx context.Context, filter models.EntryFilter) ([]models.ScheduledEntry, *models.Pagination, error) {
	start := time.Now()
	entries, total, err := s.entries.List(ctx, filter)
	s.observeQuery("entries_list", start)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrCollaborator.Code, appErrors.ErrCollaborator.Status, "failed to list entries")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return entries, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

func (s *ScheduleService) buildCandidates(ctx context.Context, req dto.CommitRequest) ([]models.ScheduledEntry, error) {
	if req.Rule != nil && len(req.Entries) != 1 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "a recurrence rule requires exactly one template entry")
	}

	base := make([]models.ScheduledEntry, 0, len(req.Entries))
	for _, item := range req.Entries {
		candidate, err := entryFromDTO(item)
		if err != nil {
			return nil, err
		}
		if err := s.detector.ValidateCandidate(candidate, false); err != nil {
			return nil, err
		}
		base = append(base, candidate)
	}

	if req.Rule == nil {
		return base, nil
	}

	template := base[0]
	if template.Date == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "a recurrence rule requires a dated start entry")
	}
	slot, err := s.slots.FindByID(ctx, template.TimeSlotID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "time slot not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrCollaborator.Code, appErrors.ErrCollaborator.Status, "failed to load time slot")
	}
	occurrences, err := s.recurrence.Expand(*req.Rule, *template.Date, slot.DurationHours())
	if err != nil {
		return nil, err
	}

	expanded := make([]models.ScheduledEntry, 0, len(occurrences))
	for _, occ := range occurrences {
		entry := template
		date := occ.Date
		entry.Date = &date
		entry.DayOfWeek = occ.DayOfWeek
		expanded = append(expanded, entry)
	}
	return expanded, nil
}

func (s *ScheduleService) loadSnapshot(ctx context.Context) (ResolverSnapshot, error) {
	collaborator := func(err error, what string) error {
		return appErrors.Wrap(err, appErrors.ErrCollaborator.Code, appErrors.ErrCollaborator.Status, "failed to load "+what)
	}

	start := time.Now()
	entries, err := s.entries.ListActive(ctx)
	s.observeQuery("entries_list_active", start)
	if err != nil {
		return ResolverSnapshot{}, collaborator(err, "active entries")
	}
	start = time.Now()
	slotList, err := s.slots.ListAll(ctx)
	s.observeQuery("time_slots_list", start)
	if err != nil {
		return ResolverSnapshot{}, collaborator(err, "time slots")
	}
	start = time.Now()
	subjectList, err := s.subjects.ListAll(ctx)
	s.observeQuery("subjects_list", start)
	if err != nil {
		return ResolverSnapshot{}, collaborator(err, "subjects")
	}
	start = time.Now()
	facultyList, err := s.faculty.ListActive(ctx)
	s.observeQuery("faculty_list_active", start)
	if err != nil {
		return ResolverSnapshot{}, collaborator(err, "faculty")
	}
	start = time.Now()
	holidays, err := s.calendar.Holidays(ctx)
	s.observeQuery("holidays_list", start)
	if err != nil {
		return ResolverSnapshot{}, collaborator(err, "holidays")
	}
	start = time.Now()
	examPeriods, err := s.calendar.ExamPeriods(ctx)
	s.observeQuery("exam_periods_list", start)
	if err != nil {
		return ResolverSnapshot{}, collaborator(err, "exam periods")
	}

	slots := make(map[string]models.TimeSlot, len(slotList))
	for _, slot := range slotList {
		slots[slot.ID] = slot
	}
	subjects := make(map[string]models.Subject, len(subjectList))
	for _, subject := range subjectList {
		subjects[subject.ID] = subject
	}

	return ResolverSnapshot{
		TimetableSnapshot: TimetableSnapshot{
			Entries:  entries,
			Slots:    slots,
			Subjects: subjects,
			Calendar: models.CalendarContext{Holidays: holidays, ExamPeriods: examPeriods},
		},
		Faculty: facultyList,
	}, nil
}

func (s *ScheduleService) observeQuery(label string, start time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveDBQuery(label, time.Since(start))
}

func (s *ScheduleService) observeConflicts(conflicts []models.Conflict) {
	if s.metrics == nil {
		return
	}
	for _, conflict := range conflicts {
		s.metrics.ObserveConflict(string(conflict.Type))
	}
}

func (s *ScheduleService) observeResolutions(solutions []dto.Solution) {
	if s.metrics == nil {
		return
	}
	for _, solution := range solutions {
		s.metrics.ObserveResolution(string(solution.Strategy))
	}
}

func (s *ScheduleService) emit(operation string, ids []string) {
	if s.emitter == nil {
		return
	}
	if err := s.emitter.Emit(events.Event{EntityType: entityScheduledEntry, Operation: operation, EntityIDs: ids}); err != nil {
		s.logger.Sugar().Debugw("event emission skipped", "operation", operation, "error", err)
	}
}

func entryFromDTO(item dto.CandidateEntry) (models.ScheduledEntry, error) {
	entry := models.ScheduledEntry{
		BatchID:    item.BatchID,
		SubjectID:  item.SubjectID,
		FacultyID:  item.FacultyID,
		TimeSlotID: item.TimeSlotID,
		DayOfWeek:  strings.ToUpper(item.DayOfWeek),
		Kind:       models.EntryKind(strings.ToUpper(item.Kind)),
		Priority:   item.Priority,
		Active:     true,
	}
	if entry.Kind == "" {
		entry.Kind = models.EntryKindRegular
	}
	if item.Date != "" {
		date, err := time.Parse("2006-01-02", item.Date)
		if err != nil {
			return models.ScheduledEntry{}, appErrors.Clone(appErrors.ErrValidation, "date must use the 2006-01-02 layout")
		}
		entry.Date = &date
	}
	return entry, nil
}

func pluralSuffix(n int) string {
	if n == 1 {
		return "y"
	}
	return "ies"
}
