package controllers

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"quickplan/app/config"
	"quickplan/app/export"
	"quickplan/app/services"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportController renders the task list as a spreadsheet download.
type ExportController struct {
	Service  *services.TaskService
	Defaults config.ExportConfig
	Logger   *slog.Logger
	Now      func() time.Time
}

// NewExportController creates a new ExportController.
func NewExportController(service *services.TaskService, defaults config.ExportConfig, logger *slog.Logger) *ExportController {
	return &ExportController{Service: service, Defaults: defaults, Logger: logger, Now: time.Now}
}

// Export handles POST /api/export with an optional {"title", "filename"}.
func (c *ExportController) Export(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Title    string `json:"title"`
		Filename string `json:"filename"`
	}
	if !decode(w, r, &body) {
		return
	}
	title := strings.TrimSpace(body.Title)
	if title == "" {
		title = c.Defaults.Title
	}

	rows, summary, err := c.Service.ExportRows(r.Context())
	if err != nil {
		writeError(w, c.Logger, err)
		return
	}
	data, err := export.Render(export.Report{
		Title:       title,
		GeneratedAt: c.Now(),
		Rows:        rows,
		Summary:     summary,
	})
	if err != nil {
		writeError(w, c.Logger, fmt.Errorf("render export: %w", err))
		return
	}

	name := export.Filename(body.Filename, c.Defaults.Filename)
	c.Logger.Info("export generated", "rows", len(rows), "filename", name, "bytes", len(data))

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
