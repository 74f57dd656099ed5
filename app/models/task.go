package models

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// Task represents a task row. A task with a ParentID is a subtask.
type Task struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Hours     float64   `json:"hours"`
	Notes     string    `json:"notes"`
	Resource  string    `json:"resource"`
	ParentID  *int64    `json:"parent_id"`
	SortOrder int       `json:"sort_order"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsSubtask reports whether the task belongs to a parent.
func (t Task) IsSubtask() bool {
	return t.ParentID != nil
}

// TaskNode is a top-level task with its subtasks nested in rank order.
type TaskNode struct {
	Task
	Subtasks []Task `json:"subtasks"`
}

// Fields are the user-editable columns written by insert and update.
type Fields struct {
	Title    string
	Hours    float64
	Notes    string
	Resource string
	ParentID *int64
}

// Hours is a lenient hour amount: numbers and numeric strings are accepted,
// anything else decodes to 0.
type Hours float64

// UnmarshalJSON implements json.Unmarshaler.
func (h *Hours) UnmarshalJSON(data []byte) error {
	*h = 0
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}
	switch v := raw.(type) {
	case float64:
		*h = Hours(finite(v))
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			*h = Hours(finite(f))
		}
	}
	return nil
}

func finite(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// TaskInput is the payload for creating or replacing a top-level task.
type TaskInput struct {
	Title    string `json:"title" validate:"required"`
	Hours    Hours  `json:"hours" validate:"gte=0"`
	Notes    string `json:"notes"`
	Resource string `json:"resource" validate:"required"`
}

// UpdateInput is the payload for a full replace. Resource may be empty so
// that subtasks can be edited through the same operation.
type UpdateInput struct {
	Title    string `json:"title" validate:"required"`
	Hours    Hours  `json:"hours" validate:"gte=0"`
	Notes    string `json:"notes"`
	Resource string `json:"resource"`
}

// SubtaskInput is the payload for creating a subtask.
type SubtaskInput struct {
	Title string `json:"title" validate:"required"`
	Hours Hours  `json:"hours" validate:"gte=0"`
	Notes string `json:"notes"`
}

// BudgetCheck is the outcome of validating a proposed subtask against its
// parent's hour budget.
type BudgetCheck struct {
	OK                  bool    `json:"ok"`
	Available           float64 `json:"available"`
	ParentHours         float64 `json:"parentHours"`
	CurrentSubtaskHours float64 `json:"currentSubtaskHours"`
}

// SubtaskSumReport compares a parent's hours with the sum of its subtasks.
type SubtaskSumReport struct {
	ParentHours   float64 `json:"parentHours"`
	TotalSubtasks float64 `json:"totalSubtasks"`
	Difference    float64 `json:"difference"`
	IsValid       bool    `json:"isValid"`
}

// Stats is the aggregate view over every stored row.
type Stats struct {
	TotalTasks      int      `json:"totalTasks"`
	TotalHours      *float64 `json:"totalHours"`
	UniqueResources int      `json:"uniqueResources"`
	AvgHours        *float64 `json:"avgHours"`
}

// ExportSummary holds the figures shown in the export header.
type ExportSummary struct {
	TotalTasks int     `json:"totalTasks"`
	TotalHours float64 `json:"totalHours"`
}
