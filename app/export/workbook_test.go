package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"quickplan/app/models"
)

func TestRender(t *testing.T) {
	parent := int64(1)
	created := time.Date(2026, 2, 3, 10, 0, 0, 0, time.UTC)
	data, err := Render(Report{
		Title:       "Sprint 4",
		GeneratedAt: time.Date(2026, 2, 4, 8, 15, 0, 0, time.UTC),
		Rows: []models.Task{
			{ID: 1, Title: "Design", Hours: 8, Resource: "Alice", CreatedAt: created},
			{ID: 3, Title: "Wireframes", Hours: 5, ParentID: &parent, CreatedAt: created},
			{ID: 2, Title: "Build", Hours: 4.5, Notes: "api", Resource: "Bob", CreatedAt: created},
		},
		Summary: models.ExportSummary{TotalTasks: 3, TotalHours: 17.5},
	})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	cell := func(axis string) string {
		v, err := f.GetCellValue(sheetName, axis)
		require.NoError(t, err)
		return v
	}

	assert.Equal(t, "Sprint 4", cell("A1"))
	assert.Equal(t, "Generated on 2026-02-04 at 08:15:00", cell("A2"))
	assert.Equal(t, "Total tasks: 3 | Total hours: 17.5", cell("A3"))
	assert.Equal(t, "", cell("A4"))
	assert.Equal(t, "ID", cell("A5"))
	assert.Equal(t, "Created", cell("F5"))

	assert.Equal(t, "1", cell("A6"))
	assert.Equal(t, "Design", cell("B6"))
	assert.Equal(t, "    Wireframes", cell("B7"), "subtasks are indented under their parent")
	assert.Equal(t, "4.5", cell("C8"))
	assert.Equal(t, "Bob", cell("E8"))
	assert.Equal(t, "2026-02-03", cell("F8"))

	merged, err := f.GetMergeCells(sheetName)
	require.NoError(t, err)
	assert.Len(t, merged, 3)
}

func TestRender_NoRows(t *testing.T) {
	data, err := Render(Report{Title: "Empty", GeneratedAt: time.Now()})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	assert.Len(t, rows, headerRow)
}

func TestFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", "report.xlsx"},
		{"sprint", "sprint.xlsx"},
		{"sprint.xlsx", "sprint.xlsx"},
		{"../../etc/passwd", "passwd.xlsx"},
		{`C:\tmp\plan`, "plan.xlsx"},
		{`we"ird?`, "weird.xlsx"},
		{"..", "report.xlsx"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Filename(tt.in, "report"), "input %q", tt.in)
	}
}
