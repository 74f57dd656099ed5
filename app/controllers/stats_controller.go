package controllers

import (
	"log/slog"
	"net/http"

	"quickplan/app/services"
)

// StatsController serves the aggregate view.
type StatsController struct {
	Service *services.TaskService
	Logger  *slog.Logger
}

// NewStatsController creates a new StatsController.
func NewStatsController(service *services.TaskService, logger *slog.Logger) *StatsController {
	return &StatsController{Service: service, Logger: logger}
}

// GetStats handles GET /api/stats.
func (c *StatsController) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := c.Service.GetStats(r.Context())
	if err != nil {
		writeError(w, c.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
