package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-hq/timetable-api/internal/dto"
	"github.com/campus-hq/timetable-api/internal/models"
	"github.com/campus-hq/timetable-api/pkg/config"
	appErrors "github.com/campus-hq/timetable-api/pkg/errors"
	"github.com/campus-hq/timetable-api/pkg/events"
)

type mockEntryRepo struct {
	mu        sync.Mutex
	store     map[string]models.ScheduledEntry
	seq       int
	bulkCalls int
	listErr   error
	createErr error
}

func newMockEntryRepo(seed ...models.ScheduledEntry) *mockEntryRepo {
	repo := &mockEntryRepo{store: make(map[string]models.ScheduledEntry)}
	for _, entry := range seed {
		repo.store[entry.ID] = entry
	}
	return repo
}

func (m *mockEntryRepo) List(ctx context.Context, filter models.EntryFilter) ([]models.ScheduledEntry, int, error) {
	if m.listErr != nil {
		return nil, 0, m.listErr
	}
	entries, err := m.ListActive(ctx)
	return entries, len(entries), err
}

func (m *mockEntryRepo) ListActive(_ context.Context) ([]models.ScheduledEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]models.ScheduledEntry, 0, len(m.store))
	for _, entry := range m.store {
		if entry.Active {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (m *mockEntryRepo) FindByID(_ context.Context, id string) (*models.ScheduledEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.store[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &entry, nil
}

func (m *mockEntryRepo) BulkCreate(_ context.Context, entries []models.ScheduledEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bulkCalls++
	if m.createErr != nil {
		return m.createErr
	}
	for i := range entries {
		if entries[i].ID == "" {
			m.seq++
			entries[i].ID = fmt.Sprintf("generated-%d", m.seq)
		}
		m.store[entries[i].ID] = entries[i]
	}
	return nil
}

func (m *mockEntryRepo) Update(_ context.Context, entry *models.ScheduledEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[entry.ID]; !ok {
		return sql.ErrNoRows
	}
	m.store[entry.ID] = *entry
	return nil
}

func (m *mockEntryRepo) SetActive(_ context.Context, ids []string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		entry, ok := m.store[id]
		if !ok {
			continue
		}
		entry.Active = active
		m.store[id] = entry
	}
	return nil
}

func (m *mockEntryRepo) get(id string) (models.ScheduledEntry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.store[id]
	return entry, ok
}

func (m *mockEntryRepo) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.store)
}

func (m *mockEntryRepo) bulkCreateCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bulkCalls
}

type mockSlotReader struct {
	slots map[string]models.TimeSlot
}

func (m *mockSlotReader) ListAll(_ context.Context) ([]models.TimeSlot, error) {
	out := make([]models.TimeSlot, 0, len(m.slots))
	for _, slot := range m.slots {
		out = append(out, slot)
	}
	return out, nil
}

func (m *mockSlotReader) FindByID(_ context.Context, id string) (*models.TimeSlot, error) {
	slot, ok := m.slots[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &slot, nil
}

type mockSubjectReader struct {
	subjects []models.Subject
}

func (m *mockSubjectReader) ListAll(_ context.Context) ([]models.Subject, error) {
	return m.subjects, nil
}

type mockFacultyReader struct {
	faculty []models.Faculty
}

func (m *mockFacultyReader) ListActive(_ context.Context) ([]models.Faculty, error) {
	return m.faculty, nil
}

type mockCalendarProvider struct {
	holidays    []models.Holiday
	examPeriods []models.ExamPeriod
}

func (m *mockCalendarProvider) Holidays(_ context.Context) ([]models.Holiday, error) {
	return m.holidays, nil
}

func (m *mockCalendarProvider) ExamPeriods(_ context.Context) ([]models.ExamPeriod, error) {
	return m.examPeriods, nil
}

type mockEmitter struct {
	mu     sync.Mutex
	events []events.Event
}

func (m *mockEmitter) Emit(event events.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *mockEmitter) operations() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ops := make([]string, len(m.events))
	for i, ev := range m.events {
		ops[i] = ev.Operation
	}
	return ops
}

type scheduleFixture struct {
	svc     *ScheduleService
	undo    *UndoService
	entries *mockEntryRepo
	emitter *mockEmitter
}

func newScheduleFixture(t *testing.T, seed ...models.ScheduledEntry) *scheduleFixture {
	t.Helper()
	return newScheduleFixtureWithMetrics(t, nil, seed...)
}

func newScheduleFixtureWithMetrics(t *testing.T, metrics *MetricsService, seed ...models.ScheduledEntry) *scheduleFixture {
	t.Helper()
	detector := NewConflictService(nil)
	entries := newMockEntryRepo(seed...)
	emitter := &mockEmitter{}
	svc := NewScheduleService(
		entries,
		&mockSlotReader{slots: testSlots()},
		&mockSubjectReader{subjects: []models.Subject{
			{ID: "math", Name: "Mathematics", Department: "science"},
			{ID: "physics", Name: "Physics", Department: "science"},
		}},
		&mockFacultyReader{faculty: []models.Faculty{
			{ID: "f1", FullName: "Dr. Rao", Department: "science", Active: true},
			{ID: "f2", FullName: "Dr. Iyer", Department: "science", Active: true},
		}},
		&mockCalendarProvider{},
		detector,
		NewRecurrenceService(nil),
		NewResolverService(detector, config.ResolverConfig{}, nil),
		emitter,
		metrics,
		nil,
		nil,
	)
	undo := NewUndoService(svc, config.UndoConfig{Timeout: time.Minute}, nil)
	svc.SetUndoService(undo)
	t.Cleanup(undo.Shutdown)
	return &scheduleFixture{svc: svc, undo: undo, entries: entries, emitter: emitter}
}

func seededEntry() models.ScheduledEntry {
	return models.ScheduledEntry{
		ID:         "e1",
		BatchID:    "b1",
		SubjectID:  "math",
		FacultyID:  "f1",
		TimeSlotID: "s1",
		DayOfWeek:  models.Monday,
		Kind:       models.EntryKindRegular,
		Priority:   3,
		Active:     true,
	}
}

func TestCommitExpandsRecurrenceAndRegistersUndo(t *testing.T) {
	fx := newScheduleFixture(t)

	resp, err := fx.svc.Commit(context.Background(), dto.CommitRequest{
		Entries: []dto.CandidateEntry{{
			BatchID:    "b1",
			SubjectID:  "math",
			FacultyID:  "f1",
			TimeSlotID: "s1",
			DayOfWeek:  "MONDAY",
			Date:       "2025-01-06",
		}},
		Rule: &models.RecurrenceRule{Pattern: models.RecurrenceWeekly, OccurrenceCount: 3},
	})
	require.NoError(t, err)
	require.Len(t, resp.Created, 3)
	require.NotEmpty(t, resp.UndoOperationID)
	assert.Empty(t, resp.Conflicts)

	wantDates := []string{"2025-01-06", "2025-01-13", "2025-01-20"}
	for i, entry := range resp.Created {
		assert.NotEmpty(t, entry.ID)
		assert.Equal(t, models.Monday, entry.DayOfWeek)
		require.NotNil(t, entry.Date)
		assert.Equal(t, wantDates[i], entry.Date.Format("2006-01-02"))
	}

	assert.Equal(t, 3, fx.entries.size())
	assert.Equal(t, []string{"COMMIT"}, fx.emitter.operations())
	assert.Equal(t, 1, fx.undo.PendingCount())
}

func TestCommitRecordsQueryDurations(t *testing.T) {
	metrics := NewMetricsService(nil)
	fx := newScheduleFixtureWithMetrics(t, metrics)

	_, err := fx.svc.Commit(context.Background(), dto.CommitRequest{
		Entries: []dto.CandidateEntry{{
			BatchID:    "b1",
			SubjectID:  "math",
			FacultyID:  "f1",
			TimeSlotID: "s1",
			DayOfWeek:  "MONDAY",
		}},
	})
	require.NoError(t, err)

	families, err := metrics.registry.Gather()
	require.NoError(t, err)
	observed := map[string]bool{}
	for _, family := range families {
		if family.GetName() != "db_query_duration_seconds" {
			continue
		}
		for _, metric := range family.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "query" {
					observed[label.GetValue()] = true
				}
			}
		}
	}
	for _, query := range []string{"entries_list_active", "time_slots_list", "entries_bulk_create"} {
		assert.True(t, observed[query], "no timing recorded for %s", query)
	}
}

func TestCommitBatchMembersCheckEachOther(t *testing.T) {
	fx := newScheduleFixture(t)

	// Two candidates for the same batch, slot and day collide with each other
	// even though the timetable is empty.
	_, err := fx.svc.Commit(context.Background(), dto.CommitRequest{
		Entries: []dto.CandidateEntry{
			{BatchID: "b1", SubjectID: "math", FacultyID: "f1", TimeSlotID: "s1", DayOfWeek: "MONDAY"},
			{BatchID: "b1", SubjectID: "physics", FacultyID: "f2", TimeSlotID: "s1", DayOfWeek: "MONDAY"},
		},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Equal(t, 0, fx.entries.size())
}

func TestCommitBlockedByConflicts(t *testing.T) {
	fx := newScheduleFixture(t, seededEntry())

	_, err := fx.svc.Commit(context.Background(), dto.CommitRequest{
		Entries: []dto.CandidateEntry{{
			BatchID: "b1", SubjectID: "physics", FacultyID: "f2", TimeSlotID: "s1", DayOfWeek: "MONDAY",
		}},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	var domainErr *models.ConflictError
	require.ErrorAs(t, err, &domainErr)
	require.NotEmpty(t, domainErr.Conflicts)
	assert.Equal(t, models.ConflictBatchDoubleBooking, domainErr.Conflicts[0].Type)

	assert.Equal(t, 1, fx.entries.size())
	assert.Empty(t, fx.emitter.operations())
}

func TestCommitForceIgnoresConflicts(t *testing.T) {
	fx := newScheduleFixture(t, seededEntry())

	resp, err := fx.svc.Commit(context.Background(), dto.CommitRequest{
		Entries: []dto.CandidateEntry{{
			BatchID: "b1", SubjectID: "physics", FacultyID: "f2", TimeSlotID: "s1", DayOfWeek: "MONDAY",
		}},
		ForceIgnoreConflicts: true,
	})
	require.NoError(t, err)
	require.Len(t, resp.Created, 1)
	assert.NotEmpty(t, resp.Conflicts)
	assert.Equal(t, 2, fx.entries.size())
}

func TestCommitCancelledContextWritesNothing(t *testing.T) {
	fx := newScheduleFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := fx.svc.Commit(ctx, dto.CommitRequest{
		Entries: []dto.CandidateEntry{{
			BatchID: "b1", SubjectID: "math", FacultyID: "f1", TimeSlotID: "s1", DayOfWeek: "MONDAY",
		}},
	})
	require.Error(t, err)
	assert.Equal(t, 0, fx.entries.bulkCreateCalls())
	assert.Equal(t, 0, fx.entries.size())
	assert.Empty(t, fx.emitter.operations())
	assert.Equal(t, 0, fx.undo.PendingCount())
}

func TestCommitRuleRequiresSingleDatedTemplate(t *testing.T) {
	fx := newScheduleFixture(t)
	rule := &models.RecurrenceRule{Pattern: models.RecurrenceWeekly, OccurrenceCount: 2}

	_, err := fx.svc.Commit(context.Background(), dto.CommitRequest{
		Entries: []dto.CandidateEntry{
			{BatchID: "b1", SubjectID: "math", FacultyID: "f1", TimeSlotID: "s1", DayOfWeek: "MONDAY", Date: "2025-01-06"},
			{BatchID: "b2", SubjectID: "math", FacultyID: "f1", TimeSlotID: "s2", DayOfWeek: "MONDAY", Date: "2025-01-06"},
		},
		Rule: rule,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = fx.svc.Commit(context.Background(), dto.CommitRequest{
		Entries: []dto.CandidateEntry{{BatchID: "b1", SubjectID: "math", FacultyID: "f1", TimeSlotID: "s1", DayOfWeek: "MONDAY"}},
		Rule:    rule,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCommitThenUndoDeactivatesEntries(t *testing.T) {
	fx := newScheduleFixture(t)

	resp, err := fx.svc.Commit(context.Background(), dto.CommitRequest{
		Entries: []dto.CandidateEntry{{
			BatchID: "b1", SubjectID: "math", FacultyID: "f1", TimeSlotID: "s1", DayOfWeek: "MONDAY", Date: "2025-01-06",
		}},
		Rule: &models.RecurrenceRule{Pattern: models.RecurrenceWeekly, OccurrenceCount: 2},
	})
	require.NoError(t, err)
	require.Len(t, resp.Created, 2)

	undoResp, err := fx.svc.Undo(context.Background(), resp.UndoOperationID)
	require.NoError(t, err)
	assert.True(t, undoResp.Success)
	assert.Contains(t, undoResp.Message, "2 schedule entries")

	for _, created := range resp.Created {
		stored, ok := fx.entries.get(created.ID)
		require.True(t, ok)
		assert.False(t, stored.Active)
	}
	assert.Equal(t, []string{"COMMIT", "UNDO"}, fx.emitter.operations())
}

func TestDeleteThenUndoRestoresEntry(t *testing.T) {
	fx := newScheduleFixture(t, seededEntry())

	undoID, err := fx.svc.Delete(context.Background(), "e1")
	require.NoError(t, err)
	require.NotEmpty(t, undoID)

	stored, _ := fx.entries.get("e1")
	assert.False(t, stored.Active)

	_, err = fx.svc.Undo(context.Background(), undoID)
	require.NoError(t, err)

	stored, _ = fx.entries.get("e1")
	assert.True(t, stored.Active)
	assert.Equal(t, []string{"DELETE", "UNDO"}, fx.emitter.operations())
}

func TestDeleteUnknownEntryFails(t *testing.T) {
	fx := newScheduleFixture(t)

	_, err := fx.svc.Delete(context.Background(), "ghost")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestUpdateThenUndoRestoresPreImage(t *testing.T) {
	fx := newScheduleFixture(t, seededEntry())

	updated, err := fx.svc.Update(context.Background(), "e1", UpdateEntryRequest{
		SubjectID:  "math",
		FacultyID:  "f1",
		TimeSlotID: "s2",
		DayOfWeek:  "MONDAY",
		Priority:   3,
	}, false)
	require.NoError(t, err)
	assert.Equal(t, "s2", updated.TimeSlotID)

	stored, _ := fx.entries.get("e1")
	assert.Equal(t, "s2", stored.TimeSlotID)
	assert.Equal(t, 1, fx.undo.PendingCount())

	// The registry now holds the update pre-image; executing it rolls the
	// entry back to its original slot.
	ops := fx.emitter.operations()
	require.Equal(t, []string{"UPDATE"}, ops)

	fx.undo.mu.Lock()
	var undoID string
	for id := range fx.undo.pending {
		undoID = id
	}
	fx.undo.mu.Unlock()
	require.NotEmpty(t, undoID)
	_, err = fx.svc.Undo(context.Background(), undoID)
	require.NoError(t, err)

	stored, _ = fx.entries.get("e1")
	assert.Equal(t, "s1", stored.TimeSlotID)
}

func TestUpdateConflictBlockedWithoutForce(t *testing.T) {
	other := seededEntry()
	other.ID = "e2"
	other.BatchID = "b2"
	other.FacultyID = "f2"
	other.TimeSlotID = "s2"
	fx := newScheduleFixture(t, seededEntry(), other)

	// Moving e2 into f1's occupied Monday slot is a faculty conflict.
	_, err := fx.svc.Update(context.Background(), "e2", UpdateEntryRequest{
		SubjectID:  "math",
		FacultyID:  "f1",
		TimeSlotID: "s1",
		DayOfWeek:  "MONDAY",
	}, false)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	stored, _ := fx.entries.get("e2")
	assert.Equal(t, "s2", stored.TimeSlotID)
}

func TestCheckConflictsReportsDoubleBooking(t *testing.T) {
	fx := newScheduleFixture(t, seededEntry())

	conflicts, err := fx.svc.CheckConflicts(context.Background(), dto.CheckConflictsRequest{
		Entry: dto.CandidateEntry{
			BatchID: "b1", SubjectID: "physics", FacultyID: "f2", TimeSlotID: "s1", DayOfWeek: "monday",
		},
	})
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, models.ConflictBatchDoubleBooking, conflicts[0].Type)
}

func TestExpandUnknownSlotFails(t *testing.T) {
	fx := newScheduleFixture(t)

	_, err := fx.svc.Expand(context.Background(), dto.ExpandRequest{
		Rule:       models.RecurrenceRule{Pattern: models.RecurrenceWeekly, OccurrenceCount: 2},
		StartDate:  "2025-01-06",
		TimeSlotID: "no-such-slot",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestResolveReturnsRankedSolutions(t *testing.T) {
	fx := newScheduleFixture(t, seededEntry())

	solutions, err := fx.svc.Resolve(context.Background(), dto.ResolveRequest{
		Entry: dto.CandidateEntry{
			BatchID: "b1", SubjectID: "physics", FacultyID: "f2", TimeSlotID: "s1", DayOfWeek: "MONDAY",
		},
		Strategies: []dto.StrategyConfig{{Kind: dto.StrategyNextSlot, Priority: 1}},
	})
	require.NoError(t, err)
	require.NotEmpty(t, solutions)
	assert.Equal(t, dto.StrategyNextSlot, solutions[0].Strategy)
	assert.Equal(t, "s2", solutions[0].Entry.TimeSlotID)
}

func TestCommitCollaboratorFailure(t *testing.T) {
	fx := newScheduleFixture(t)
	fx.entries.listErr = errors.New("connection refused")

	_, err := fx.svc.Commit(context.Background(), dto.CommitRequest{
		Entries: []dto.CandidateEntry{{
			BatchID: "b1", SubjectID: "math", FacultyID: "f1", TimeSlotID: "s1", DayOfWeek: "MONDAY",
		}},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrCollaborator.Code, appErrors.FromError(err).Code)
}

func TestUndoStatusUnknownOperation(t *testing.T) {
	fx := newScheduleFixture(t)

	_, err := fx.svc.UndoStatus("ghost")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUndoNotFound.Code, appErrors.FromError(err).Code)
}

func TestUndoStatusCountsDown(t *testing.T) {
	fx := newScheduleFixture(t, seededEntry())

	undoID, err := fx.svc.Delete(context.Background(), "e1")
	require.NoError(t, err)

	status, err := fx.svc.UndoStatus(undoID)
	require.NoError(t, err)
	assert.Equal(t, undoID, status.OperationID)
	assert.Greater(t, status.RemainingSeconds, 0.0)
	assert.LessOrEqual(t, status.RemainingSeconds, 60.0)
}
