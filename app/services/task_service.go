package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"quickplan/app/metrics"
	"quickplan/app/models"
	"quickplan/app/store"
)

// TaskService handles task-related operations.
type TaskService struct {
	store    store.TaskStore
	budget   *BudgetValidator
	ordering *OrderingEngine
	cache    *StatsCache
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewTaskService creates a new instance of TaskService. m may be nil.
func NewTaskService(st store.TaskStore, cache *StatsCache, m *metrics.Metrics, logger *slog.Logger) *TaskService {
	if cache == nil {
		cache = NewStatsCache(DefaultStatsTTL)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskService{
		store:    st,
		budget:   NewBudgetValidator(st),
		ordering: NewOrderingEngine(st),
		cache:    cache,
		metrics:  m,
		logger:   logger,
	}
}

// mutated runs after every mutating operation, successful or not. A failed
// reorder may have committed some writes, so the cache is dropped either way.
func (s *TaskService) mutated(op string, err error) {
	s.cache.Invalidate()
	s.metrics.Mutation(op, err)
	if err != nil && errors.Is(err, models.ErrStore) {
		s.logger.Error("task mutation failed", "operation", op, "error", err)
	}
}

// ListTasks returns top-level tasks with their subtasks nested.
func (s *TaskService) ListTasks(ctx context.Context) ([]models.TaskNode, error) {
	rows, err := s.store.Scan(ctx, store.All())
	if err != nil {
		return nil, err
	}
	return AssembleHierarchy(rows), nil
}

// ListRows returns every row flat, including orphaned subtasks.
func (s *TaskService) ListRows(ctx context.Context) ([]models.Task, error) {
	return s.store.Scan(ctx, store.All())
}

// GetTask retrieves a single row by its ID.
func (s *TaskService) GetTask(ctx context.Context, id int64) (*models.Task, error) {
	return s.store.Get(ctx, id)
}

// CreateTask adds a new top-level task at the end of the top-level group.
func (s *TaskService) CreateTask(ctx context.Context, in models.TaskInput) (int64, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Resource = strings.TrimSpace(in.Resource)
	if err := checkInput(in); err != nil {
		return 0, err
	}

	id, err := s.store.Insert(ctx, models.Fields{
		Title:    in.Title,
		Hours:    float64(in.Hours),
		Notes:    in.Notes,
		Resource: in.Resource,
	})
	s.mutated("create", err)
	if err != nil {
		return 0, err
	}
	s.logger.Info("task created", "task_id", id, "resource", in.Resource, "hours", float64(in.Hours))
	return id, nil
}

// CreateSubtask adds a subtask under parentID if its hours fit the parent's
// remaining budget. Nothing is written when the budget check fails. The
// check and the insert hold the parent's budget lock together.
func (s *TaskService) CreateSubtask(ctx context.Context, parentID int64, in models.SubtaskInput) (int64, error) {
	in.Title = strings.TrimSpace(in.Title)
	if err := checkInput(in); err != nil {
		return 0, err
	}

	hours := float64(in.Hours)
	unlock := s.budget.Lock(parentID)
	defer unlock()

	check, err := s.budget.ValidateNewSubtask(ctx, parentID, hours)
	if err != nil {
		if errors.Is(err, models.ErrBudgetExceeded) {
			s.logger.Info("subtask rejected", "parent_id", parentID, "hours", hours, "available", check.Available)
		}
		return 0, err
	}

	id, err := s.store.Insert(ctx, models.Fields{
		Title:    in.Title,
		Hours:    hours,
		Notes:    in.Notes,
		ParentID: &parentID,
	})
	s.mutated("create_subtask", err)
	if err != nil {
		return 0, err
	}
	s.logger.Info("subtask created", "task_id", id, "parent_id", parentID, "hours", hours)
	return id, nil
}

// UpdateTask replaces the editable fields of a task and refreshes
// updated_at. The parent's budget is not re-checked.
func (s *TaskService) UpdateTask(ctx context.Context, id int64, in models.UpdateInput) error {
	in.Title = strings.TrimSpace(in.Title)
	in.Resource = strings.TrimSpace(in.Resource)
	if err := checkInput(in); err != nil {
		return err
	}

	n, err := s.store.Update(ctx, id, models.Fields{
		Title:    in.Title,
		Hours:    float64(in.Hours),
		Notes:    in.Notes,
		Resource: in.Resource,
	})
	s.mutated("update", err)
	if err != nil {
		return err
	}
	if n == 0 {
		return models.ErrNotFound
	}
	s.logger.Info("task updated", "task_id", id)
	return nil
}

// DeleteTask removes one row. Subtasks of a deleted parent are kept.
func (s *TaskService) DeleteTask(ctx context.Context, id int64) error {
	n, err := s.store.DeleteOne(ctx, id)
	s.mutated("delete", err)
	if err != nil {
		return err
	}
	if n == 0 {
		return models.ErrNotFound
	}
	s.logger.Info("task deleted", "task_id", id)
	return nil
}

// DeleteAllTasks removes every row and returns how many were deleted.
func (s *TaskService) DeleteAllTasks(ctx context.Context) (int64, error) {
	n, err := s.store.DeleteAll(ctx)
	s.mutated("delete_all", err)
	if err != nil {
		return 0, err
	}
	s.logger.Info("all tasks deleted", "count", n)
	return n, nil
}

// ReorderAll assigns rank = position to every listed id.
func (s *TaskService) ReorderAll(ctx context.Context, ids []int64) (models.BatchResult, error) {
	res, err := s.ordering.ReorderAll(ctx, ids)
	s.reordered("reorder", res, err)
	return res, err
}

// ReorderOne moves a top-level task immediately before another one.
func (s *TaskService) ReorderOne(ctx context.Context, movedID, targetID int64) (models.BatchResult, error) {
	res, err := s.ordering.ReorderOne(ctx, movedID, targetID)
	s.reordered("move", res, err)
	return res, err
}

func (s *TaskService) reordered(op string, res models.BatchResult, err error) {
	s.mutated(op, err)
	failed := len(res.Failed())
	s.metrics.RankWrites(len(res.Writes)-failed, failed)
	if failed > 0 {
		s.logger.Error("reorder partially applied", "operation", op,
			"committed", res.Committed(), "failed", failed, "error", err)
		return
	}
	if err == nil {
		s.logger.Info("tasks reordered", "operation", op, "count", len(res.Writes))
	}
}

// ValidateSubtaskSum compares a parent's hours with its subtasks' total.
func (s *TaskService) ValidateSubtaskSum(ctx context.Context, parentID int64) (models.SubtaskSumReport, error) {
	return s.budget.CheckSubtaskSum(ctx, parentID)
}

// GetStats returns the aggregate view, served from cache while fresh.
func (s *TaskService) GetStats(ctx context.Context) (models.Stats, error) {
	stats, hit, err := s.cache.Get(ctx, func(ctx context.Context) (models.Stats, error) {
		rows, err := s.store.Scan(ctx, store.All())
		if err != nil {
			return models.Stats{}, err
		}
		return computeStats(rows), nil
	})
	if err != nil {
		return models.Stats{}, err
	}
	s.metrics.CacheLookup(hit)
	if hit {
		s.logger.Debug("stats served from cache")
	}
	return stats, nil
}

// ExportRows returns rows in listing order (each parent followed by its
// subtasks) and the summary figures for the export header.
func (s *TaskService) ExportRows(ctx context.Context) ([]models.Task, models.ExportSummary, error) {
	tree, err := s.ListTasks(ctx)
	if err != nil {
		return nil, models.ExportSummary{}, err
	}
	rows := Flatten(tree)
	summary := models.ExportSummary{TotalTasks: len(rows)}
	for _, r := range rows {
		summary.TotalHours += r.Hours
	}
	return rows, summary, nil
}

// Ping checks that the store answers.
func (s *TaskService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}
