package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/campus-hq/timetable-api/internal/models"
)

const entryColumns = "id, batch_id, subject_id, faculty_id, time_slot_id, day_of_week, date, kind, priority, active, created_at, updated_at"

// EntryRepository provides persistence for scheduled entries.
type EntryRepository struct {
	db *sqlx.DB
}

// NewEntryRepository creates a new entry repository.
func NewEntryRepository(db *sqlx.DB) *EntryRepository {
	return &EntryRepository{db: db}
}

// List returns entries with optional filtering and pagination.
func (r *EntryRepository) List(ctx context.Context, filter models.EntryFilter) ([]models.ScheduledEntry, int, error) {
	base := "FROM scheduled_entries WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.BatchID != "" {
		conditions = append(conditions, fmt.Sprintf("batch_id = $%d", len(args)+1))
		args = append(args, filter.BatchID)
	}
	if filter.FacultyID != "" {
		conditions = append(conditions, fmt.Sprintf("faculty_id = $%d", len(args)+1))
		args = append(args, filter.FacultyID)
	}
	if filter.SubjectID != "" {
		conditions = append(conditions, fmt.Sprintf("subject_id = $%d", len(args)+1))
		args = append(args, filter.SubjectID)
	}
	if filter.DayOfWeek != "" {
		conditions = append(conditions, fmt.Sprintf("day_of_week = $%d", len(args)+1))
		args = append(args, strings.ToUpper(filter.DayOfWeek))
	}
	if filter.TimeSlotID != "" {
		conditions = append(conditions, fmt.Sprintf("time_slot_id = $%d", len(args)+1))
		args = append(args, filter.TimeSlotID)
	}
	if filter.ActiveOnly {
		conditions = append(conditions, "active = TRUE")
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"day_of_week": true,
		"date":        true,
		"priority":    true,
		"created_at":  true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "day_of_week"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", entryColumns, base, sortBy, order, size, offset)
	var entries []models.ScheduledEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list entries: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count entries: %w", err)
	}

	return entries, total, nil
}

// ListActive returns every active entry; this is the working timetable the
// conflict detector evaluates against.
func (r *EntryRepository) ListActive(ctx context.Context) ([]models.ScheduledEntry, error) {
	query := fmt.Sprintf("SELECT %s FROM scheduled_entries WHERE active = TRUE ORDER BY day_of_week ASC, created_at ASC", entryColumns)
	var entries []models.ScheduledEntry
	if err := r.db.SelectContext(ctx, &entries, query); err != nil {
		return nil, fmt.Errorf("list active entries: %w", err)
	}
	return entries, nil
}

// FindByID loads an entry by id.
func (r *EntryRepository) FindByID(ctx context.Context, id string) (*models.ScheduledEntry, error) {
	query := fmt.Sprintf("SELECT %s FROM scheduled_entries WHERE id = $1", entryColumns)
	var entry models.ScheduledEntry
	if err := r.db.GetContext(ctx, &entry, query, id); err != nil {
		return nil, err
	}
	return &entry, nil
}

// BulkCreate inserts entries within a transaction of its own. Either the
// whole batch lands or none of it does.
func (r *EntryRepository) BulkCreate(ctx context.Context, entries []models.ScheduledEntry) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin bulk create entries: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = r.BulkCreateWithTx(ctx, tx, entries); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit bulk create entries: %w", err)
	}
	return nil
}

// BulkCreateWithTx inserts entries using an existing transaction.
func (r *EntryRepository) BulkCreateWithTx(ctx context.Context, tx *sqlx.Tx, entries []models.ScheduledEntry) error {
	if tx == nil {
		return fmt.Errorf("nil transaction provided")
	}
	return r.bulkInsertEntries(ctx, tx, entries)
}

func (r *EntryRepository) bulkInsertEntries(ctx context.Context, exec sqlx.ExtContext, entries []models.ScheduledEntry) error {
	now := time.Now().UTC()
	for i := range entries {
		payload := entries[i]
		if payload.ID == "" {
			payload.ID = uuid.NewString()
		}
		if payload.CreatedAt.IsZero() {
			payload.CreatedAt = now
		}
		payload.UpdatedAt = now

		if _, err := sqlx.NamedExecContext(ctx, exec, `INSERT INTO scheduled_entries (id, batch_id, subject_id, faculty_id, time_slot_id, day_of_week, date, kind, priority, active, created_at, updated_at) VALUES (:id, :batch_id, :subject_id, :faculty_id, :time_slot_id, :day_of_week, :date, :kind, :priority, :active, :created_at, :updated_at)`, &payload); err != nil {
			return fmt.Errorf("bulk insert entry: %w", err)
		}
		entries[i] = payload
	}
	return nil
}

// Update modifies an entry record.
func (r *EntryRepository) Update(ctx context.Context, entry *models.ScheduledEntry) error {
	entry.UpdatedAt = time.Now().UTC()
	const query = `UPDATE scheduled_entries SET batch_id = :batch_id, subject_id = :subject_id, faculty_id = :faculty_id, time_slot_id = :time_slot_id, day_of_week = :day_of_week, date = :date, kind = :kind, priority = :priority, active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("update entry: %w", err)
	}
	return nil
}

// SetActive flips the soft-delete flag for a set of entries.
func (r *EntryRepository) SetActive(ctx context.Context, ids []string, active bool) error {
	if len(ids) == 0 {
		return nil
	}
	const query = `UPDATE scheduled_entries SET active = $1, updated_at = $2 WHERE id = ANY($3)`
	if _, err := r.db.ExecContext(ctx, query, active, time.Now().UTC(), pq.Array(ids)); err != nil {
		return fmt.Errorf("set entries active=%t: %w", active, err)
	}
	return nil
}
