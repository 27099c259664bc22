package execution

import (
	"encoding/csv"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"unicode/utf8"

	"go-reports/internal/config"
	"go-reports/internal/connectors"
	"go-reports/internal/features/report"

	"github.com/go-pdf/fpdf"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// RenderedFile describes a generated report artifact
type RenderedFile struct {
	Path string // physical location on disk
	URL  string // public path persisted on the execution record
	Size int64
}

// Renderer writes query results to disk in the report's output format.
// Artifacts are named report_<execution_id>.<ext> under <fs_path>/reports.
type Renderer struct {
	cfg *config.Config
	log *zap.Logger
}

func NewRenderer(cfg *config.Config, log *zap.Logger) *Renderer {
	return &Renderer{cfg: cfg, log: log}
}

func (r *Renderer) Render(format report.ReportFormat, title, executionID string, result *connectors.QueryResult) (*RenderedFile, error) {
	dir := filepath.Join(r.cfg.FSPath, "reports")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create report directory: %w", err)
	}

	ext := format.FileExtension()
	name := fmt.Sprintf("report_%s.%s", executionID, ext)
	fullPath := filepath.Join(dir, name)

	var err error
	switch ext {
	case "csv":
		err = renderCSV(fullPath, result)
	case "xlsx":
		err = renderXLSX(fullPath, title, result)
	default:
		err = renderPDF(fullPath, title, result)
	}
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat rendered file: %w", err)
	}

	return &RenderedFile{
		Path: fullPath,
		URL:  path.Join(r.cfg.FSURL, "reports", name),
		Size: info.Size(),
	}, nil
}

func renderCSV(fullPath string, result *connectors.QueryResult) error {
	file, err := os.Create(fullPath)
	if err != nil {
		return fmt.Errorf("failed to create csv file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(result.Columns); err != nil {
		return err
	}

	record := make([]string, len(result.Columns))
	for _, row := range result.Rows {
		for i, col := range result.Columns {
			record[i] = cellString(row[col])
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func renderXLSX(fullPath, title string, result *connectors.QueryResult) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Report"
	f.SetSheetName("Sheet1", sheet)

	f.SetCellValue(sheet, "A1", title)

	for i, col := range result.Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 3)
		f.SetCellValue(sheet, cell, col)
	}

	for rowIdx, row := range result.Rows {
		for colIdx, col := range result.Columns {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+4)
			f.SetCellValue(sheet, cell, cellValue(row[col]))
		}
	}

	return f.SaveAs(fullPath)
}

func renderPDF(fullPath, title string, result *connectors.QueryResult) error {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 10, title, "", 1, "L", false, 0, "")
	pdf.Ln(2)

	colWidth := 267.0 // landscape A4 width minus margins
	if len(result.Columns) > 0 {
		colWidth = 267.0 / float64(len(result.Columns))
	}

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	for _, col := range result.Columns {
		pdf.CellFormat(colWidth, 8, truncate(col, 30), "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 8)
	for _, row := range result.Rows {
		for _, col := range result.Columns {
			pdf.CellFormat(colWidth, 7, truncate(cellString(row[col]), 35), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	return pdf.OutputFileAndClose(fullPath)
}

func cellString(v interface{}) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}

// cellValue keeps native numeric types so spreadsheet cells stay sortable
func cellValue(v interface{}) interface{} {
	switch v.(type) {
	case nil:
		return ""
	case int, int32, int64, float32, float64, bool:
		return v
	default:
		return cellString(v)
	}
}

// truncate shortens cell content on rune boundaries so multibyte text is
// never cut mid-character
func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max-3]) + "..."
}
