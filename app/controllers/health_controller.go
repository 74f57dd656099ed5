package controllers

import (
	"context"
	"log/slog"
	"net/http"
	"runtime"
	"time"

	"quickplan/app/services"
)

const (
	serviceName = "QuickPlan"
	pingTimeout = 2 * time.Second
	bytesPerMB  = 1 << 20
)

// HealthController answers liveness and readiness probes.
type HealthController struct {
	Service *services.TaskService
	Version string
	Logger  *slog.Logger
	started time.Time
}

// NewHealthController creates a new HealthController; uptime counts from now.
func NewHealthController(service *services.TaskService, version string, logger *slog.Logger) *HealthController {
	return &HealthController{Service: service, Version: version, Logger: logger, started: time.Now()}
}

type memoryUsage struct {
	UsedMB  uint64 `json:"used"`
	TotalMB uint64 `json:"total"`
}

func (c *HealthController) base(status string) map[string]any {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return map[string]any{
		"status":    status,
		"service":   serviceName,
		"version":   c.Version,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(c.started).Seconds(),
		"memory": memoryUsage{
			UsedMB:  ms.HeapAlloc / bytesPerMB,
			TotalMB: ms.HeapSys / bytesPerMB,
		},
	}
}

// Health handles GET /health without touching the store.
func (c *HealthController) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, c.base("OK"))
}

// Ready handles GET /api/health and reports 503 when the store does not answer.
func (c *HealthController) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
	defer cancel()

	if err := c.Service.Ping(ctx); err != nil {
		c.Logger.Error("store health check failed", "error", err)
		body := c.base("ERROR")
		body["database"] = "FAILED"
		body["error"] = err.Error()
		writeJSON(w, http.StatusServiceUnavailable, body)
		return
	}
	body := c.base("OK")
	body["database"] = "OK"
	writeJSON(w, http.StatusOK, body)
}
