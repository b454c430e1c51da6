package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campus-hq/timetable-api/internal/models"
)

const facultyColumns = "id, full_name, department, max_weekly_load, active, created_at, updated_at"

// FacultyRepository provides persistence for teaching staff.
type FacultyRepository struct {
	db *sqlx.DB
}

// NewFacultyRepository creates a new faculty repository.
func NewFacultyRepository(db *sqlx.DB) *FacultyRepository {
	return &FacultyRepository{db: db}
}

// ListActive returns active faculty ordered by name.
func (r *FacultyRepository) ListActive(ctx context.Context) ([]models.Faculty, error) {
	query := fmt.Sprintf("SELECT %s FROM faculty WHERE active = TRUE ORDER BY full_name ASC", facultyColumns)
	var list []models.Faculty
	if err := r.db.SelectContext(ctx, &list, query); err != nil {
		return nil, fmt.Errorf("list active faculty: %w", err)
	}
	return list, nil
}

// FindByID loads a faculty member by id.
func (r *FacultyRepository) FindByID(ctx context.Context, id string) (*models.Faculty, error) {
	query := fmt.Sprintf("SELECT %s FROM faculty WHERE id = $1", facultyColumns)
	var member models.Faculty
	if err := r.db.GetContext(ctx, &member, query, id); err != nil {
		return nil, err
	}
	return &member, nil
}

// Create stores a new faculty record.
func (r *FacultyRepository) Create(ctx context.Context, member *models.Faculty) error {
	if member.ID == "" {
		member.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if member.CreatedAt.IsZero() {
		member.CreatedAt = now
	}
	member.UpdatedAt = now

	const query = `INSERT INTO faculty (id, full_name, department, max_weekly_load, active, created_at, updated_at) VALUES (:id, :full_name, :department, :max_weekly_load, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, member); err != nil {
		return fmt.Errorf("create faculty: %w", err)
	}
	return nil
}

// Update modifies a faculty record.
func (r *FacultyRepository) Update(ctx context.Context, member *models.Faculty) error {
	member.UpdatedAt = time.Now().UTC()
	const query = `UPDATE faculty SET full_name = :full_name, department = :department, max_weekly_load = :max_weekly_load, active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, member); err != nil {
		return fmt.Errorf("update faculty: %w", err)
	}
	return nil
}
