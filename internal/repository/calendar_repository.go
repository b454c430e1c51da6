package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campus-hq/timetable-api/internal/models"
)

// CalendarRepository provides persistence for holidays and exam periods.
type CalendarRepository struct {
	db *sqlx.DB
}

// NewCalendarRepository creates a new calendar repository.
func NewCalendarRepository(db *sqlx.DB) *CalendarRepository {
	return &CalendarRepository{db: db}
}

// Holidays returns every holiday ordered by date.
func (r *CalendarRepository) Holidays(ctx context.Context) ([]models.Holiday, error) {
	const query = `SELECT id, title, date, created_at FROM holidays ORDER BY date ASC`
	var list []models.Holiday
	if err := r.db.SelectContext(ctx, &list, query); err != nil {
		return nil, fmt.Errorf("list holidays: %w", err)
	}
	return list, nil
}

// ExamPeriods returns every exam window ordered by start date.
func (r *CalendarRepository) ExamPeriods(ctx context.Context) ([]models.ExamPeriod, error) {
	const query = `SELECT id, title, start_date, end_date, created_at FROM exam_periods ORDER BY start_date ASC`
	var list []models.ExamPeriod
	if err := r.db.SelectContext(ctx, &list, query); err != nil {
		return nil, fmt.Errorf("list exam periods: %w", err)
	}
	return list, nil
}

// CreateHoliday stores a new holiday.
func (r *CalendarRepository) CreateHoliday(ctx context.Context, holiday *models.Holiday) error {
	if holiday.ID == "" {
		holiday.ID = uuid.NewString()
	}
	if holiday.CreatedAt.IsZero() {
		holiday.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO holidays (id, title, date, created_at) VALUES (:id, :title, :date, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, holiday); err != nil {
		return fmt.Errorf("create holiday: %w", err)
	}
	return nil
}

// CreateExamPeriod stores a new exam window.
func (r *CalendarRepository) CreateExamPeriod(ctx context.Context, period *models.ExamPeriod) error {
	if period.ID == "" {
		period.ID = uuid.NewString()
	}
	if period.CreatedAt.IsZero() {
		period.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO exam_periods (id, title, start_date, end_date, created_at) VALUES (:id, :title, :start_date, :end_date, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, period); err != nil {
		return fmt.Errorf("create exam period: %w", err)
	}
	return nil
}

// DeleteHoliday removes a holiday by id.
func (r *CalendarRepository) DeleteHoliday(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM holidays WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete holiday: %w", err)
	}
	return nil
}

// DeleteExamPeriod removes an exam window by id.
func (r *CalendarRepository) DeleteExamPeriod(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM exam_periods WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete exam period: %w", err)
	}
	return nil
}
