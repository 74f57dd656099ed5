package services

import (
	"context"
	"errors"
	"math"
	"sync"

	"quickplan/app/models"
	"quickplan/app/store"
)

// sumTolerance is how far a subtask sum may drift from the parent's hours
// and still count as matching.
const sumTolerance = 0.01

// BudgetValidator enforces that subtask hours fit inside the parent's hours.
type BudgetValidator struct {
	store store.TaskStore

	mu    sync.Mutex
	locks map[int64]*parentLock
}

type parentLock struct {
	mu   sync.Mutex
	refs int
}

func NewBudgetValidator(st store.TaskStore) *BudgetValidator {
	return &BudgetValidator{store: st, locks: make(map[int64]*parentLock)}
}

// Lock holds parentID's budget until the returned func is called. A check
// and the insert it admits run under one lock.
func (v *BudgetValidator) Lock(parentID int64) (unlock func()) {
	v.mu.Lock()
	l, ok := v.locks[parentID]
	if !ok {
		l = &parentLock{}
		v.locks[parentID] = l
	}
	l.refs++
	v.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		v.mu.Lock()
		if l.refs--; l.refs == 0 {
			delete(v.locks, parentID)
		}
		v.mu.Unlock()
	}
}

// parent loads a top-level task. Subtasks cannot own subtasks, so a subtask
// id is reported the same way as a missing one.
func (v *BudgetValidator) parent(ctx context.Context, parentID int64) (*models.Task, error) {
	parent, err := v.store.Get(ctx, parentID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, models.ErrParentNotFound
	}
	if err != nil {
		return nil, err
	}
	if parent.IsSubtask() {
		return nil, models.ErrParentNotFound
	}
	return parent, nil
}

func (v *BudgetValidator) subtaskHours(ctx context.Context, parentID int64) (float64, error) {
	subtasks, err := v.store.Scan(ctx, store.ChildrenOf(parentID))
	if err != nil {
		return 0, err
	}
	var sum float64
	for _, s := range subtasks {
		sum += s.Hours
	}
	return sum, nil
}

// ValidateNewSubtask checks whether a subtask of the given hours fits. When
// it does not, the check is returned together with a
// *models.BudgetExceededError.
func (v *BudgetValidator) ValidateNewSubtask(ctx context.Context, parentID int64, hours float64) (models.BudgetCheck, error) {
	parent, err := v.parent(ctx, parentID)
	if err != nil {
		return models.BudgetCheck{}, err
	}
	current, err := v.subtaskHours(ctx, parentID)
	if err != nil {
		return models.BudgetCheck{}, err
	}

	check := models.BudgetCheck{
		OK:                  current+hours <= parent.Hours,
		Available:           parent.Hours - current,
		ParentHours:         parent.Hours,
		CurrentSubtaskHours: current,
	}
	if !check.OK {
		return check, &models.BudgetExceededError{
			ParentID:            parentID,
			Requested:           hours,
			Available:           check.Available,
			ParentHours:         check.ParentHours,
			CurrentSubtaskHours: check.CurrentSubtaskHours,
		}
	}
	return check, nil
}

// CheckSubtaskSum reports whether the subtasks of a parent add up to its
// hours. It is informational and never blocks a write.
func (v *BudgetValidator) CheckSubtaskSum(ctx context.Context, parentID int64) (models.SubtaskSumReport, error) {
	parent, err := v.parent(ctx, parentID)
	if err != nil {
		return models.SubtaskSumReport{}, err
	}
	total, err := v.subtaskHours(ctx, parentID)
	if err != nil {
		return models.SubtaskSumReport{}, err
	}
	diff := parent.Hours - total
	return models.SubtaskSumReport{
		ParentHours:   parent.Hours,
		TotalSubtasks: total,
		Difference:    diff,
		IsValid:       math.Abs(diff) < sumTolerance,
	}, nil
}
