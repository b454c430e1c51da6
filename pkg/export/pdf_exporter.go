package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// Landscape A4 printable width in mm with 10mm margins.
const printableWidth = 277.0

// PDFExporter renders datasets into a tabular PDF laid out as a weekly grid:
// a narrow label column followed by evenly sized day columns.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates a landscape PDF document with a title row, shaded header and
// zebra-striped body rows.
func (e *PDFExporter) Render(data Dataset, title string) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()

	if title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, title, "", 1, "C", false, 0, "")
		pdf.Ln(5)
	}

	// First column holds slot labels and needs less room than timetable cells.
	labelWidth := printableWidth * 0.12
	colWidth := (printableWidth - labelWidth) / float64(len(data.Headers)-1)
	if len(data.Headers) == 1 {
		labelWidth = printableWidth
		colWidth = 0
	}
	widthFor := func(i int) float64 {
		if i == 0 {
			return labelWidth
		}
		return colWidth
	}

	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	for i, header := range data.Headers {
		pdf.CellFormat(widthFor(i), 8, header, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	pdf.SetFillColor(245, 245, 245)
	for rowIdx, row := range data.Rows {
		fill := rowIdx%2 == 1
		for i, header := range data.Headers {
			align := "C"
			if i > 0 {
				align = "L"
			}
			pdf.CellFormat(widthFor(i), 7, row[header], "1", 0, align, fill, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
