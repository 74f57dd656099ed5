package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quickplan/app/models"
	"quickplan/app/store"
)

// Parent of 8h, 5h subtask accepted, 4h subtask rejected with 3h available.
func TestCreateSubtask_Budget(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t)

	parent := mustCreate(t, svc, "Design", 8, "Alice")
	require.Equal(t, int64(1), parent)

	mustCreateSubtask(t, svc, parent, "Wireframes", 5)

	check, err := svc.budget.ValidateNewSubtask(ctx, parent, 0)
	require.NoError(t, err)
	assert.Equal(t, 3.0, check.Available)

	_, err = svc.CreateSubtask(ctx, parent, models.SubtaskInput{Title: "Mockups", Hours: 4})
	require.ErrorIs(t, err, models.ErrBudgetExceeded)

	var be *models.BudgetExceededError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, 3.0, be.Available)
	assert.Equal(t, 8.0, be.ParentHours)
	assert.Equal(t, 5.0, be.CurrentSubtaskHours)
	assert.Equal(t, 4.0, be.Requested)

	subtasks, err := st.Scan(ctx, store.ChildrenOf(parent))
	require.NoError(t, err)
	assert.Len(t, subtasks, 1, "rejected subtask must not be stored")
}

func TestCreateSubtask_BudgetBoundary(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		existing []float64
		proposed float64
		wantErr  bool
	}{
		{"exact fill is accepted", []float64{3}, 5, false},
		{"one over is rejected", []float64{3}, 5.5, true},
		{"zero hours always fits a full parent", []float64{8}, 0, false},
		{"first subtask larger than parent", nil, 9, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(t)
			parent := mustCreate(t, svc, "p", 8, "r")
			for _, h := range tt.existing {
				mustCreateSubtask(t, svc, parent, "s", h)
			}
			_, err := svc.CreateSubtask(ctx, parent, models.SubtaskInput{Title: "new", Hours: models.Hours(tt.proposed)})
			if tt.wantErr {
				assert.ErrorIs(t, err, models.ErrBudgetExceeded)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// Any sequence of accepted subtasks keeps the sum within the parent's hours.
func TestCreateSubtask_SumNeverExceedsParent(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t)
	parent := mustCreate(t, svc, "p", 10, "r")

	for _, h := range []float64{2.5, 4, 3, 1.5, 0.25, 2, 0.75, 1} {
		_, err := svc.CreateSubtask(ctx, parent, models.SubtaskInput{Title: "s", Hours: models.Hours(h)})
		if err != nil {
			require.ErrorIs(t, err, models.ErrBudgetExceeded)
		}

		subtasks, err := st.Scan(ctx, store.ChildrenOf(parent))
		require.NoError(t, err)
		var sum float64
		for _, s := range subtasks {
			sum += s.Hours
		}
		assert.LessOrEqual(t, sum, 10.0)
	}
}

func TestCreateSubtask_ConcurrentSameParent(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := NewTaskService(slowChildrenStore{TaskStore: st, delay: 20 * time.Millisecond}, nil, nil,
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	parent := mustCreate(t, svc, "p", 8, "r")

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.CreateSubtask(ctx, parent, models.SubtaskInput{Title: "s", Hours: 5})
			if err != nil {
				assert.ErrorIs(t, err, models.ErrBudgetExceeded)
				return
			}
			mu.Lock()
			accepted++
			mu.Unlock()
		}()
	}
	wg.Wait()

	subtasks, err := st.Scan(ctx, store.ChildrenOf(parent))
	require.NoError(t, err)
	var sum float64
	for _, s := range subtasks {
		sum += s.Hours
	}
	assert.Equal(t, 1, accepted)
	assert.Len(t, subtasks, 1)
	assert.LessOrEqual(t, sum, 8.0)
}

func TestBudgetValidator_LockReleases(t *testing.T) {
	v := NewBudgetValidator(nil)
	unlock := v.Lock(1)
	other := v.Lock(2)
	other()
	unlock()

	v.mu.Lock()
	defer v.mu.Unlock()
	assert.Empty(t, v.locks)
}

func TestCreateSubtask_ParentNotFound(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.CreateSubtask(ctx, 42, models.SubtaskInput{Title: "x", Hours: 1})
	assert.ErrorIs(t, err, models.ErrParentNotFound)

	t.Run("subtasks cannot own subtasks", func(t *testing.T) {
		parent := mustCreate(t, svc, "p", 8, "r")
		sub := mustCreateSubtask(t, svc, parent, "s", 1)

		_, err := svc.CreateSubtask(ctx, sub, models.SubtaskInput{Title: "nested", Hours: 0})
		assert.ErrorIs(t, err, models.ErrParentNotFound)
	})
}

func TestCreateSubtask_Validation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	parent := mustCreate(t, svc, "p", 8, "r")

	_, err := svc.CreateSubtask(ctx, parent, models.SubtaskInput{Title: "   ", Hours: 1})
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = svc.CreateSubtask(ctx, parent, models.SubtaskInput{Title: "neg", Hours: -1})
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestValidateSubtaskSum(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	parent := mustCreate(t, svc, "p", 1, "r")

	report, err := svc.ValidateSubtaskSum(ctx, parent)
	require.NoError(t, err)
	assert.False(t, report.IsValid)
	assert.Equal(t, 1.0, report.Difference)

	mustCreateSubtask(t, svc, parent, "a", 0.1)
	mustCreateSubtask(t, svc, parent, "b", 0.2)
	mustCreateSubtask(t, svc, parent, "c", 0.695)

	report, err = svc.ValidateSubtaskSum(ctx, parent)
	require.NoError(t, err)
	assert.InDelta(t, 0.995, report.TotalSubtasks, 1e-9)
	assert.InDelta(t, 0.005, report.Difference, 1e-9)
	assert.True(t, report.IsValid, "within 0.01 counts as matching")

	_, err = svc.ValidateSubtaskSum(ctx, 999)
	assert.ErrorIs(t, err, models.ErrParentNotFound)
}
