package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/campus-hq/timetable-api/internal/models"
	appErrors "github.com/campus-hq/timetable-api/pkg/errors"
	"github.com/campus-hq/timetable-api/pkg/export"
)

type batchReader interface {
	FindByID(ctx context.Context, id string) (*models.Batch, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportFormat selects the rendered output type.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportResult is a rendered timetable ready to stream to the caller.
type ExportResult struct {
	Payload     []byte
	Filename    string
	ContentType string
}

// ExportService renders a batch's weekly timetable as a downloadable grid.
type ExportService struct {
	entries  entryRepository
	slots    timeSlotReader
	subjects subjectReader
	faculty  facultyReader
	batches  batchReader
	csv      csvRenderer
	pdf      pdfRenderer
	logger   *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(entries entryRepository, slots timeSlotReader, subjects subjectReader, faculty facultyReader, batches batchReader, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		entries:  entries,
		slots:    slots,
		subjects: subjects,
		faculty:  faculty,
		batches:  batches,
		csv:      csv,
		pdf:      pdf,
		logger:   logger,
	}
}

// WeeklyTimetable renders the recurring weekly grid for one batch. Dated
// one-off entries are left out; the grid shows the repeating template only.
func (s *ExportService) WeeklyTimetable(ctx context.Context, batchID string, format ExportFormat) (*ExportResult, error) {
	batch, err := s.batches.FindByID(ctx, batchID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "batch not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrCollaborator.Code, appErrors.ErrCollaborator.Status, "failed to load batch")
	}

	dataset, err := s.buildGrid(ctx, batchID)
	if err != nil {
		return nil, err
	}

	title := fmt.Sprintf("Weekly Timetable %s", batch.Name)
	timestamp := time.Now().UTC().Format("20060102_150405")
	filename := fmt.Sprintf("timetable_%s_%s.%s", sanitizeFilename(batch.Name), timestamp, format)

	var payload []byte
	var contentType string
	switch format {
	case ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
		contentType = "text/csv"
	case ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
		contentType = "application/pdf"
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render timetable")
	}

	return &ExportResult{Payload: payload, Filename: filename, ContentType: contentType}, nil
}

func (s *ExportService) buildGrid(ctx context.Context, batchID string) (export.Dataset, error) {
	collaborator := func(err error, what string) error {
		return appErrors.Wrap(err, appErrors.ErrCollaborator.Code, appErrors.ErrCollaborator.Status, "failed to load "+what)
	}

	entries, err := s.entries.ListActive(ctx)
	if err != nil {
		return export.Dataset{}, collaborator(err, "entries")
	}
	slotList, err := s.slots.ListAll(ctx)
	if err != nil {
		return export.Dataset{}, collaborator(err, "time slots")
	}
	subjectList, err := s.subjects.ListAll(ctx)
	if err != nil {
		return export.Dataset{}, collaborator(err, "subjects")
	}
	facultyList, err := s.faculty.ListActive(ctx)
	if err != nil {
		return export.Dataset{}, collaborator(err, "faculty")
	}

	subjectNames := make(map[string]string, len(subjectList))
	for _, subject := range subjectList {
		subjectNames[subject.ID] = subject.Name
	}
	facultyNames := make(map[string]string, len(facultyList))
	for _, f := range facultyList {
		facultyNames[f.ID] = f.FullName
	}

	sort.Slice(slotList, func(i, j int) bool { return slotList[i].SortOrder < slotList[j].SortOrder })

	// cell[slotID][day] -> rendered text
	cells := make(map[string]map[string]string)
	for _, entry := range entries {
		if entry.BatchID != batchID || entry.Date != nil {
			continue
		}
		subjectName := subjectNames[entry.SubjectID]
		if subjectName == "" {
			subjectName = entry.SubjectID
		}
		text := subjectName
		if facultyName := facultyNames[entry.FacultyID]; facultyName != "" {
			text = fmt.Sprintf("%s (%s)", subjectName, facultyName)
		}
		if cells[entry.TimeSlotID] == nil {
			cells[entry.TimeSlotID] = make(map[string]string)
		}
		day := strings.ToUpper(entry.DayOfWeek)
		if existing := cells[entry.TimeSlotID][day]; existing != "" {
			text = existing + "; " + text
		}
		cells[entry.TimeSlotID][day] = text
	}

	headers := append([]string{"Time Slot"}, models.DaysInOrder...)
	rows := make([]map[string]string, 0, len(slotList))
	for _, slot := range slotList {
		row := map[string]string{"Time Slot": slot.Label}
		for _, day := range models.DaysInOrder {
			row[day] = cells[slot.ID][day]
		}
		rows = append(rows, row)
	}

	return export.Dataset{Headers: headers, Rows: rows}, nil
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
