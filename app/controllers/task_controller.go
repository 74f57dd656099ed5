package controllers

import (
	"fmt"
	"log/slog"
	"net/http"

	"quickplan/app/models"
	"quickplan/app/services"
)

// TaskController handles HTTP requests for tasks.
type TaskController struct {
	Service *services.TaskService
	Logger  *slog.Logger
}

// NewTaskController creates a new TaskController.
func NewTaskController(service *services.TaskService, logger *slog.Logger) *TaskController {
	return &TaskController{Service: service, Logger: logger}
}

// GetTasks handles GET /api/tasks. With ?view=flat the stored rows are
// returned as a flat list, orphaned subtasks included.
func (c *TaskController) GetTasks(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("view") == "flat" {
		rows, err := c.Service.ListRows(r.Context())
		if err != nil {
			writeError(w, c.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, rows)
		return
	}

	tasks, err := c.Service.ListTasks(r.Context())
	if err != nil {
		writeError(w, c.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

// CreateTask handles POST /api/tasks.
func (c *TaskController) CreateTask(w http.ResponseWriter, r *http.Request) {
	var in models.TaskInput
	if !decode(w, r, &in) {
		return
	}

	id, err := c.Service.CreateTask(r.Context(), in)
	if err != nil {
		writeError(w, c.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": id, "message": "Task created"})
}

// CreateSubtask handles POST /api/tasks/{taskID}/subtasks.
func (c *TaskController) CreateSubtask(w http.ResponseWriter, r *http.Request) {
	parentID, ok := taskID(w, r)
	if !ok {
		return
	}
	var in models.SubtaskInput
	if !decode(w, r, &in) {
		return
	}

	id, err := c.Service.CreateSubtask(r.Context(), parentID, in)
	if err != nil {
		writeError(w, c.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": id, "parent_id": parentID, "message": "Subtask created"})
}

// GetTaskByID handles GET /api/tasks/{taskID}.
func (c *TaskController) GetTaskByID(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}
	task, err := c.Service.GetTask(r.Context(), id)
	if err != nil {
		writeError(w, c.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// UpdateTask handles PUT /api/tasks/{taskID}.
func (c *TaskController) UpdateTask(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}
	var in models.UpdateInput
	if !decode(w, r, &in) {
		return
	}

	if err := c.Service.UpdateTask(r.Context(), id, in); err != nil {
		writeError(w, c.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Task updated"})
}

// DeleteTask handles DELETE /api/tasks/{taskID}.
func (c *TaskController) DeleteTask(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}
	if err := c.Service.DeleteTask(r.Context(), id); err != nil {
		writeError(w, c.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteAllTasks handles DELETE /api/tasks.
func (c *TaskController) DeleteAllTasks(w http.ResponseWriter, r *http.Request) {
	n, err := c.Service.DeleteAllTasks(r.Context())
	if err != nil {
		writeError(w, c.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"deleted": n,
		"message": fmt.Sprintf("%d tasks deleted", n),
	})
}

// ReorderTasks handles PUT /api/tasks/reorder with {"order": [ids]}.
func (c *TaskController) ReorderTasks(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Order *[]int64 `json:"order"`
	}
	if !decode(w, r, &body) {
		return
	}
	if body.Order == nil {
		writeMessage(w, http.StatusBadRequest, "order must be an array of task ids")
		return
	}

	res, err := c.Service.ReorderAll(r.Context(), *body.Order)
	if err != nil {
		writeError(w, c.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Order updated", "writes": res.Writes})
}

// MoveTask handles PUT /api/tasks/{taskID}/move with {"targetId": id}: the
// task is placed immediately before the target.
func (c *TaskController) MoveTask(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}
	var body struct {
		TargetID *int64 `json:"targetId"`
	}
	if !decode(w, r, &body) {
		return
	}
	if body.TargetID == nil {
		writeMessage(w, http.StatusBadRequest, "targetId is required")
		return
	}

	res, err := c.Service.ReorderOne(r.Context(), id, *body.TargetID)
	if err != nil {
		writeError(w, c.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Task moved", "writes": res.Writes})
}

// ValidateSubtasks handles GET /api/tasks/{taskID}/validate.
func (c *TaskController) ValidateSubtasks(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}
	report, err := c.Service.ValidateSubtaskSum(r.Context(), id)
	if err != nil {
		writeError(w, c.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
