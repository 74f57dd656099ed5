package models

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation     = errors.New("validation failed")
	ErrNotFound       = errors.New("task not found")
	ErrParentNotFound = fmt.Errorf("parent %w", ErrNotFound)
	ErrBudgetExceeded = errors.New("subtask hours exceed parent budget")
	ErrStore          = errors.New("store failure")
	ErrReorder        = errors.New("reorder partially applied")
)

// FieldError describes one rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError reports missing or malformed input. No mutation was made.
type ValidationError struct {
	Fields []FieldError
}

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// BudgetExceededError is returned when a new subtask would push the sum of
// subtask hours above the parent's hours.
type BudgetExceededError struct {
	ParentID            int64
	Requested           float64
	Available           float64
	ParentHours         float64
	CurrentSubtaskHours float64
}

func (e *BudgetExceededError) Error() string {
	return fmt.Sprintf("subtask hours %.2f exceed available budget %.2f of parent %d (parent %.2f, assigned %.2f)",
		e.Requested, e.Available, e.ParentID, e.ParentHours, e.CurrentSubtaskHours)
}

func (e *BudgetExceededError) Is(target error) bool { return target == ErrBudgetExceeded }

// StoreError wraps a failure of the underlying record store.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("store %s: %v", e.Op, e.Err) }

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Is(target error) bool { return target == ErrStore }

// RankWrite is a single sort_order assignment issued by a reorder.
type RankWrite struct {
	ID       int64 `json:"id"`
	Rank     int   `json:"rank"`
	Affected int64 `json:"affected"`
	Err      error `json:"-"`
}

// BatchResult reports every write of a composite reorder. Writes that
// succeeded stay committed even when others failed.
type BatchResult struct {
	Writes []RankWrite `json:"writes"`
}

// Failed returns the writes that did not commit.
func (b BatchResult) Failed() []RankWrite {
	var out []RankWrite
	for _, w := range b.Writes {
		if w.Err != nil {
			out = append(out, w)
		}
	}
	return out
}

// Committed returns the number of writes that succeeded.
func (b BatchResult) Committed() int {
	n := 0
	for _, w := range b.Writes {
		if w.Err == nil {
			n++
		}
	}
	return n
}

// ReorderError is returned when at least one write of a reorder failed.
type ReorderError struct {
	Result BatchResult
}

func (e *ReorderError) Error() string {
	failed := e.Result.Failed()
	msg := fmt.Sprintf("reorder: %d of %d writes failed", len(failed), len(e.Result.Writes))
	if len(failed) > 0 {
		msg += ": " + failed[0].Err.Error()
	}
	return msg
}

func (e *ReorderError) Is(target error) bool { return target == ErrReorder }
