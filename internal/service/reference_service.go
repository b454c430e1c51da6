package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campus-hq/timetable-api/internal/models"
	appErrors "github.com/campus-hq/timetable-api/pkg/errors"
)

type timeSlotRepository interface {
	timeSlotReader
	Create(ctx context.Context, slot *models.TimeSlot) error
	Update(ctx context.Context, slot *models.TimeSlot) error
	Delete(ctx context.Context, id string) error
}

type facultyRepository interface {
	facultyReader
	FindByID(ctx context.Context, id string) (*models.Faculty, error)
	Create(ctx context.Context, member *models.Faculty) error
	Update(ctx context.Context, member *models.Faculty) error
}

type batchRepository interface {
	batchReader
	ListAll(ctx context.Context) ([]models.Batch, error)
	Create(ctx context.Context, batch *models.Batch) error
}

type subjectRepository interface {
	subjectReader
	Create(ctx context.Context, subject *models.Subject) error
}

type calendarRepository interface {
	calendarProvider
	CreateHoliday(ctx context.Context, holiday *models.Holiday) error
	CreateExamPeriod(ctx context.Context, period *models.ExamPeriod) error
	DeleteHoliday(ctx context.Context, id string) error
	DeleteExamPeriod(ctx context.Context, id string) error
}

// ReferenceService manages the supporting entities the scheduling core reads:
// time slots, faculty, batches, subjects and the academic calendar.
type ReferenceService struct {
	slots     timeSlotRepository
	faculty   facultyRepository
	batches   batchRepository
	subjects  subjectRepository
	calendar  calendarRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewReferenceService constructs a ReferenceService.
func NewReferenceService(slots timeSlotRepository, faculty facultyRepository, batches batchRepository, subjects subjectRepository, calendar calendarRepository, validate *validator.Validate, logger *zap.Logger) *ReferenceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReferenceService{
		slots:     slots,
		faculty:   faculty,
		batches:   batches,
		subjects:  subjects,
		calendar:  calendar,
		validator: validate,
		logger:    logger,
	}
}

// TimeSlotRequest creates or replaces a slot definition.
type TimeSlotRequest struct {
	Label        string `json:"label" validate:"required"`
	StartMinutes int    `json:"start_minutes" validate:"min=0,max=1439"`
	EndMinutes   int    `json:"end_minutes" validate:"min=1,max=1440"`
	SortOrder    int    `json:"sort_order" validate:"min=0"`
}

// ListTimeSlots returns the slot grid.
func (s *ReferenceService) ListTimeSlots(ctx context.Context) ([]models.TimeSlot, error) {
	slots, err := s.slots.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrCollaborator.Code, appErrors.ErrCollaborator.Status, "failed to list time slots")
	}
	return slots, nil
}

// CreateTimeSlot stores a new slot.
func (s *ReferenceService) CreateTimeSlot(ctx context.Context, req TimeSlotRequest) (*models.TimeSlot, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid time slot payload")
	}
	if req.EndMinutes <= req.StartMinutes {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end_minutes must be after start_minutes")
	}
	slot := &models.TimeSlot{
		Label:        req.Label,
		StartMinutes: req.StartMinutes,
		EndMinutes:   req.EndMinutes,
		SortOrder:    req.SortOrder,
	}
	if err := s.slots.Create(ctx, slot); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrCollaborator.Code, appErrors.ErrCollaborator.Status, "failed to create time slot")
	}
	return slot, nil
}

// UpdateTimeSlot replaces a slot definition.
func (s *ReferenceService) UpdateTimeSlot(ctx context.Context, id string, req TimeSlotRequest) (*models.TimeSlot, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid time slot payload")
	}
	if req.EndMinutes <= req.StartMinutes {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end_minutes must be after start_minutes")
	}
	existing, err := s.slots.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "time slot not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrCollaborator.Code, appErrors.ErrCollaborator.Status, "failed to load time slot")
	}
	existing.Label = req.Label
	existing.StartMinutes = req.StartMinutes
	existing.EndMinutes = req.EndMinutes
	existing.SortOrder = req.SortOrder
	if err := s.slots.Update(ctx, existing); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrCollaborator.Code, appErrors.ErrCollaborator.Status, "failed to update time slot")
	}
	return existing, nil
}

// DeleteTimeSlot removes a slot.
func (s *ReferenceService) DeleteTimeSlot(ctx context.Context, id string) error {
	if err := s.slots.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrCollaborator.Code, appErrors.ErrCollaborator.Status, "failed to delete time slot")
	}
	return nil
}

// FacultyRequest creates or replaces a faculty member.
type FacultyRequest struct {
	FullName      string `json:"full_name" validate:"required"`
	Department    string `json:"department" validate:"required"`
	MaxWeeklyLoad int    `json:"max_weekly_load" validate:"min=0,max=60"`
	Active        *bool  `json:"active"`
}

// ListFaculty returns active faculty.
func (s *ReferenceService) ListFaculty(ctx context.Context) ([]models.Faculty, error) {
	list, err := s.faculty.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrCollaborator.Code, appErrors.ErrCollaborator.Status, "failed to list faculty")
	}
	return list, nil
}

// CreateFaculty stores a new faculty member.
func (s *ReferenceService) CreateFaculty(ctx context.Context, req FacultyRequest) (*models.Faculty, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid faculty payload")
	}
	member := &models.Faculty{
		FullName:      req.FullName,
		Department:    req.Department,
		MaxWeeklyLoad: req.MaxWeeklyLoad,
		Active:        true,
	}
	if req.Active != nil {
		member.Active = *req.Active
	}
	if err := s.faculty.Create(ctx, member); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrCollaborator.Code, appErrors.ErrCollaborator.Status, "failed to create faculty")
	}
	return member, nil
}

// UpdateFaculty replaces a faculty record.
func (s *ReferenceService) UpdateFaculty(ctx context.Context, id string, req FacultyRequest) (*models.Faculty, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid faculty payload")
	}
	existing, err := s.faculty.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "faculty not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrCollaborator.Code, appErrors.ErrCollaborator.Status, "failed to load faculty")
	}
	existing.FullName = req.FullName
	existing.Department = req.Department
	existing.MaxWeeklyLoad = req.MaxWeeklyLoad
	if req.Active != nil {
		existing.Active = *req.Active
	}
	if err := s.faculty.Update(ctx, existing); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrCollaborator.Code, appErrors.ErrCollaborator.Status, "failed to update faculty")
	}
	return existing, nil
}

// BatchRequest creates a cohort.
type BatchRequest struct {
	Name     string `json:"name" validate:"required"`
	Program  string `json:"program" validate:"required"`
	Semester int    `json:"semester" validate:"min=1,max=14"`
}

// ListBatches returns all cohorts.
func (s *ReferenceService) ListBatches(ctx context.Context) ([]models.Batch, error) {
	list, err := s.batches.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrCollaborator.Code, appErrors.ErrCollaborator.Status, "failed to list batches")
	}
	return list, nil
}

// CreateBatch stores a new cohort.
func (s *ReferenceService) CreateBatch(ctx context.Context, req BatchRequest) (*models.Batch, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid batch payload")
	}
	batch := &models.Batch{Name: req.Name, Program: req.Program, Semester: req.Semester}
	if err := s.batches.Create(ctx, batch); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrCollaborator.Code, appErrors.ErrCollaborator.Status, "failed to create batch")
	}
	return batch, nil
}

// SubjectRequest creates a subject.
type SubjectRequest struct {
	Name       string `json:"name" validate:"required"`
	Department string `json:"department" validate:"required"`
	IsModule   bool   `json:"is_module"`
}

// ListSubjects returns all subjects.
func (s *ReferenceService) ListSubjects(ctx context.Context) ([]models.Subject, error) {
	list, err := s.subjects.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrCollaborator.Code, appErrors.ErrCollaborator.Status, "failed to list subjects")
	}
	return list, nil
}

// CreateSubject stores a new subject.
func (s *ReferenceService) CreateSubject(ctx context.Context, req SubjectRequest) (*models.Subject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subject payload")
	}
	subject := &models.Subject{Name: req.Name, Department: req.Department, IsModule: req.IsModule}
	if err := s.subjects.Create(ctx, subject); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrCollaborator.Code, appErrors.ErrCollaborator.Status, "failed to create subject")
	}
	return subject, nil
}

// HolidayRequest declares a non-teaching date.
type HolidayRequest struct {
	Title string `json:"title" validate:"required"`
	Date  string `json:"date" validate:"required,datetime=2006-01-02"`
}

// ExamPeriodRequest declares an exam window.
type ExamPeriodRequest struct {
	Title     string `json:"title" validate:"required"`
	StartDate string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"end_date" validate:"required,datetime=2006-01-02"`
}

// Calendar returns the full academic calendar context.
func (s *ReferenceService) Calendar(ctx context.Context) (*models.CalendarContext, error) {
	holidays, err := s.calendar.Holidays(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrCollaborator.Code, appErrors.ErrCollaborator.Status, "failed to list holidays")
	}
	examPeriods, err := s.calendar.ExamPeriods(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrCollaborator.Code, appErrors.ErrCollaborator.Status, "failed to list exam periods")
	}
	return &models.CalendarContext{Holidays: holidays, ExamPeriods: examPeriods}, nil
}

// CreateHoliday stores a holiday.
func (s *ReferenceService) CreateHoliday(ctx context.Context, req HolidayRequest) (*models.Holiday, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid holiday payload")
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must use the 2006-01-02 layout")
	}
	holiday := &models.Holiday{Title: strings.TrimSpace(req.Title), Date: date}
	if err := s.calendar.CreateHoliday(ctx, holiday); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrCollaborator.Code, appErrors.ErrCollaborator.Status, "failed to create holiday")
	}
	return holiday, nil
}

// CreateExamPeriod stores an exam window.
func (s *ReferenceService) CreateExamPeriod(ctx context.Context, req ExamPeriodRequest) (*models.ExamPeriod, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid exam period payload")
	}
	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "start_date must use the 2006-01-02 layout")
	}
	end, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end_date must use the 2006-01-02 layout")
	}
	if end.Before(start) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end_date must not precede start_date")
	}
	period := &models.ExamPeriod{Title: strings.TrimSpace(req.Title), StartDate: start, EndDate: end}
	if err := s.calendar.CreateExamPeriod(ctx, period); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrCollaborator.Code, appErrors.ErrCollaborator.Status, "failed to create exam period")
	}
	return period, nil
}

// DeleteHoliday removes a holiday.
func (s *ReferenceService) DeleteHoliday(ctx context.Context, id string) error {
	if err := s.calendar.DeleteHoliday(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrCollaborator.Code, appErrors.ErrCollaborator.Status, "failed to delete holiday")
	}
	return nil
}

// DeleteExamPeriod removes an exam window.
func (s *ReferenceService) DeleteExamPeriod(ctx context.Context, id string) error {
	if err := s.calendar.DeleteExamPeriod(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrCollaborator.Code, appErrors.ErrCollaborator.Status, "failed to delete exam period")
	}
	return nil
}
