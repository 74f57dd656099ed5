package routes

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"quickplan/app/config"
	"quickplan/app/controllers"
	"quickplan/app/metrics"
	"quickplan/app/middleware"
)

// Handlers groups the controllers mounted by RegisterRoutes.
type Handlers struct {
	Tasks   *controllers.TaskController
	Stats   *controllers.StatsController
	Export  *controllers.ExportController
	Health  *controllers.HealthController
	Metrics http.Handler
}

// Options configures the middleware chain built by NewRouter.
type Options struct {
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
	RateLimit config.RateLimitConfig
}

var healthPaths = []string{"/health", "/api/health"}

// RegisterRoutes sets up all routes for the application. Health probes and
// /metrics stay on the root router; everything else lives under /api.
func RegisterRoutes(router *mux.Router, h Handlers, apiLimit mux.MiddlewareFunc) {
	router.HandleFunc("/health", h.Health.Health).Methods(http.MethodGet)
	router.HandleFunc("/api/health", h.Health.Ready).Methods(http.MethodGet)
	if h.Metrics != nil {
		router.Handle("/metrics", h.Metrics).Methods(http.MethodGet)
	}

	api := router.PathPrefix("/api").Subrouter()
	if apiLimit != nil {
		api.Use(apiLimit)
	}

	api.HandleFunc("/tasks", h.Tasks.GetTasks).Methods(http.MethodGet)
	api.HandleFunc("/tasks", h.Tasks.CreateTask).Methods(http.MethodPost)
	api.HandleFunc("/tasks", h.Tasks.DeleteAllTasks).Methods(http.MethodDelete)
	api.HandleFunc("/tasks/reorder", h.Tasks.ReorderTasks).Methods(http.MethodPut)
	api.HandleFunc("/tasks/{taskID:[0-9]+}", h.Tasks.GetTaskByID).Methods(http.MethodGet)
	api.HandleFunc("/tasks/{taskID:[0-9]+}", h.Tasks.UpdateTask).Methods(http.MethodPut)
	api.HandleFunc("/tasks/{taskID:[0-9]+}", h.Tasks.DeleteTask).Methods(http.MethodDelete)
	api.HandleFunc("/tasks/{taskID:[0-9]+}/subtasks", h.Tasks.CreateSubtask).Methods(http.MethodPost)
	api.HandleFunc("/tasks/{taskID:[0-9]+}/move", h.Tasks.MoveTask).Methods(http.MethodPut)
	api.HandleFunc("/tasks/{taskID:[0-9]+}/validate", h.Tasks.ValidateSubtasks).Methods(http.MethodGet)
	api.HandleFunc("/stats", h.Stats.GetStats).Methods(http.MethodGet)
	api.HandleFunc("/export", h.Export.Export).Methods(http.MethodPost)
}

// NewRouter builds the mux router with the full middleware chain:
// recover, request id and logging wrap every request; metrics and the
// refresh limiter run on matched routes; the API limiter covers /api.
func NewRouter(h Handlers, opts Options) http.Handler {
	router := mux.NewRouter()
	router.Use(middleware.Metrics(opts.Metrics))

	refresh := middleware.NewRateLimiter(opts.RateLimit.Refresh.Requests, opts.RateLimit.Refresh.Window,
		"Refreshing too often, wait a moment", append(healthPaths, "/metrics")...)
	router.Use(refresh.Middleware)

	api := middleware.NewRateLimiter(opts.RateLimit.API.Requests, opts.RateLimit.API.Window,
		"Too many requests, try again later", healthPaths...)
	RegisterRoutes(router, h, api.Middleware)

	var handler http.Handler = router
	handler = middleware.Logging(opts.Logger)(handler)
	handler = middleware.RequestID(handler)
	handler = middleware.Recover(opts.Logger)(handler)
	return handler
}
