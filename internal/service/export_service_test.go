package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-hq/timetable-api/internal/models"
	appErrors "github.com/campus-hq/timetable-api/pkg/errors"
	"github.com/campus-hq/timetable-api/pkg/export"
)

type mockBatchReader struct {
	batches map[string]models.Batch
}

func (m *mockBatchReader) FindByID(_ context.Context, id string) (*models.Batch, error) {
	batch, ok := m.batches[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &batch, nil
}

type captureRenderer struct {
	dataset export.Dataset
	title   string
}

func (c *captureRenderer) Render(data export.Dataset) ([]byte, error) {
	c.dataset = data
	return []byte("rendered"), nil
}

func (c *captureRenderer) RenderPDF(data export.Dataset, title string) ([]byte, error) {
	c.dataset = data
	c.title = title
	return []byte("%PDF-rendered"), nil
}

type pdfAdapter struct{ inner *captureRenderer }

func (a pdfAdapter) Render(data export.Dataset, title string) ([]byte, error) {
	return a.inner.RenderPDF(data, title)
}

func newExportFixture(renderer *captureRenderer, entries ...models.ScheduledEntry) *ExportService {
	return NewExportService(
		newMockEntryRepo(entries...),
		&mockSlotReader{slots: testSlots()},
		&mockSubjectReader{subjects: []models.Subject{
			{ID: "math", Name: "Mathematics", Department: "science"},
			{ID: "physics", Name: "Physics", Department: "science"},
		}},
		&mockFacultyReader{faculty: []models.Faculty{
			{ID: "f1", FullName: "Dr. Rao", Department: "science", Active: true},
		}},
		&mockBatchReader{batches: map[string]models.Batch{
			"b1": {ID: "b1", Name: "CSE 2025 A"},
		}},
		nil,
		renderer,
		pdfAdapter{inner: renderer},
	)
}

func TestWeeklyTimetableGridContent(t *testing.T) {
	renderer := &captureRenderer{}
	dated := seededEntry()
	dated.ID = "e2"
	dated.TimeSlotID = "s2"
	dated.Date = dateOn("2025-01-06")
	otherBatch := seededEntry()
	otherBatch.ID = "e3"
	otherBatch.BatchID = "b2"
	otherBatch.TimeSlotID = "s3"
	svc := newExportFixture(renderer, seededEntry(), dated, otherBatch)

	result, err := svc.WeeklyTimetable(context.Background(), "b1", ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", result.ContentType)
	assert.True(t, strings.HasPrefix(result.Filename, "timetable_CSE_2025_A_"))
	assert.True(t, strings.HasSuffix(result.Filename, ".csv"))
	assert.Equal(t, []byte("rendered"), result.Payload)

	require.Equal(t, append([]string{"Time Slot"}, models.DaysInOrder...), renderer.dataset.Headers)
	require.Len(t, renderer.dataset.Rows, len(testSlots()))

	// s1 holds the recurring entry; the dated one-off and the other batch's
	// entry never make it into the weekly grid.
	assert.Equal(t, "Mathematics (Dr. Rao)", renderer.dataset.Rows[0][models.Monday])
	for _, row := range renderer.dataset.Rows[1:] {
		assert.Empty(t, row[models.Monday])
	}
}

func TestWeeklyTimetablePDFFormat(t *testing.T) {
	renderer := &captureRenderer{}
	svc := newExportFixture(renderer, seededEntry())

	result, err := svc.WeeklyTimetable(context.Background(), "b1", ExportFormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", result.ContentType)
	assert.Contains(t, renderer.title, "CSE 2025 A")
}

func TestWeeklyTimetableUnknownBatch(t *testing.T) {
	svc := newExportFixture(&captureRenderer{})

	_, err := svc.WeeklyTimetable(context.Background(), "ghost", ExportFormatCSV)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestWeeklyTimetableUnsupportedFormat(t *testing.T) {
	svc := newExportFixture(&captureRenderer{})

	_, err := svc.WeeklyTimetable(context.Background(), "b1", ExportFormat("xlsx"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
