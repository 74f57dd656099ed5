// Package export renders task rows as an .xlsx workbook.
package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"quickplan/app/models"
)

const (
	sheetName = "QuickPlan Tasks"
	// headerRow is the first row of the data table; title, date and summary
	// lines sit above it.
	headerRow = 5
)

var columns = []struct {
	header string
	width  float64
}{
	{"ID", 8},
	{"Task", 45},
	{"Hours", 12},
	{"Notes", 35},
	{"Resource", 20},
	{"Created", 18},
}

// Report describes one workbook.
type Report struct {
	Title       string
	GeneratedAt time.Time
	Rows        []models.Task
	Summary     models.ExportSummary
}

// Render builds the workbook and returns its bytes.
func Render(r Report) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, err
	}
	if err := f.SetDocProps(&excelize.DocProperties{
		Creator:        "QuickPlan",
		LastModifiedBy: "QuickPlan",
		Title:          r.Title,
		Created:        r.GeneratedAt.Format(time.RFC3339),
		Modified:       r.GeneratedAt.Format(time.RFC3339),
	}); err != nil {
		return nil, err
	}

	for i, col := range columns {
		name, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(sheetName, name, name, col.width); err != nil {
			return nil, err
		}
	}

	if err := writeBanner(f, r); err != nil {
		return nil, err
	}
	if err := writeTable(f, r.Rows); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func lastColumn() string {
	name, _ := excelize.ColumnNumberToName(len(columns))
	return name
}

func writeBanner(f *excelize.File, r Report) error {
	last := lastColumn()

	titleStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Size: 18, Bold: true, Color: "2196F3"},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"E3F2FD"}},
	})
	if err != nil {
		return err
	}
	dateStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Size: 11, Italic: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return err
	}
	summaryStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Size: 10, Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return err
	}

	lines := []struct {
		text  string
		style int
	}{
		{r.Title, titleStyle},
		{"Generated on " + r.GeneratedAt.Format("2006-01-02 at 15:04:05"), dateStyle},
		{fmt.Sprintf("Total tasks: %d | Total hours: %s", r.Summary.TotalTasks, formatHours(r.Summary.TotalHours)), summaryStyle},
	}
	for i, line := range lines {
		row := i + 1
		start, end := fmt.Sprintf("A%d", row), fmt.Sprintf("%s%d", last, row)
		if err := f.MergeCell(sheetName, start, end); err != nil {
			return err
		}
		if err := f.SetCellValue(sheetName, start, line.text); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheetName, start, end, line.style); err != nil {
			return err
		}
	}
	return nil
}

func writeTable(f *excelize.File, rows []models.Task) error {
	last := lastColumn()
	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF", Size: 10},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"1976D2"}},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    border,
	})
	if err != nil {
		return err
	}
	plainStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Size: 9}, Border: border})
	if err != nil {
		return err
	}
	shadedStyle, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Size: 9},
		Fill:   excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"F8F9FA"}},
		Border: border,
	})
	if err != nil {
		return err
	}

	header := make([]any, len(columns))
	for i, col := range columns {
		header[i] = col.header
	}
	if err := f.SetSheetRow(sheetName, fmt.Sprintf("A%d", headerRow), &header); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetName, fmt.Sprintf("A%d", headerRow), fmt.Sprintf("%s%d", last, headerRow), headerStyle); err != nil {
		return err
	}

	for i, t := range rows {
		row := headerRow + 1 + i
		title := t.Title
		if t.IsSubtask() {
			title = "    " + title
		}
		values := []any{t.ID, title, t.Hours, t.Notes, t.Resource, t.CreatedAt.Format("2006-01-02")}
		if err := f.SetSheetRow(sheetName, fmt.Sprintf("A%d", row), &values); err != nil {
			return err
		}
		style := plainStyle
		if row%2 == 0 {
			style = shadedStyle
		}
		if err := f.SetCellStyle(sheetName, fmt.Sprintf("A%d", row), fmt.Sprintf("%s%d", last, row), style); err != nil {
			return err
		}
	}
	return nil
}

func formatHours(h float64) string {
	return fmt.Sprintf("%g", h)
}
