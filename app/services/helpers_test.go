package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"quickplan/app/models"
	"quickplan/app/store"
)

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	st, err := store.OpenSQLite(context.Background(), store.SQLiteOptions{
		Path: filepath.Join(t.TempDir(), "tasks.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close(context.Background()) })
	return st
}

func newTestService(t *testing.T) (*TaskService, *store.SQLiteStore) {
	t.Helper()
	st := newTestStore(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewTaskService(st, NewStatsCache(DefaultStatsTTL), nil, logger), st
}

func mustCreate(t *testing.T, svc *TaskService, title string, hours float64, resource string) int64 {
	t.Helper()
	id, err := svc.CreateTask(context.Background(), models.TaskInput{Title: title, Hours: models.Hours(hours), Resource: resource})
	require.NoError(t, err)
	return id
}

func mustCreateSubtask(t *testing.T, svc *TaskService, parent int64, title string, hours float64) int64 {
	t.Helper()
	id, err := svc.CreateSubtask(context.Background(), parent, models.SubtaskInput{Title: title, Hours: models.Hours(hours)})
	require.NoError(t, err)
	return id
}

func topLevelIDs(t *testing.T, svc *TaskService) []int64 {
	t.Helper()
	tree, err := svc.ListTasks(context.Background())
	require.NoError(t, err)
	ids := make([]int64, len(tree))
	for i, n := range tree {
		ids[i] = n.ID
	}
	return ids
}

// flakyStore fails SetRank for the listed ids.
type flakyStore struct {
	store.TaskStore
	mu     sync.Mutex
	failOn map[int64]bool
}

var errLocked = errors.New("database is locked")

func (f *flakyStore) SetRank(ctx context.Context, id int64, rank int) (int64, error) {
	f.mu.Lock()
	fail := f.failOn[id]
	f.mu.Unlock()
	if fail {
		return 0, &models.StoreError{Op: "set rank", Err: errLocked}
	}
	return f.TaskStore.SetRank(ctx, id, rank)
}

// countingStore counts full scans.
type countingStore struct {
	store.TaskStore
	mu    sync.Mutex
	scans int
}

func (c *countingStore) Scan(ctx context.Context, filter store.Filter) ([]models.Task, error) {
	c.mu.Lock()
	c.scans++
	c.mu.Unlock()
	return c.TaskStore.Scan(ctx, filter)
}

func (c *countingStore) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scans
}

// slowChildrenStore delays subtask scans, widening the gap between a budget
// check and the insert that follows it.
type slowChildrenStore struct {
	store.TaskStore
	delay time.Duration
}

func (s slowChildrenStore) Scan(ctx context.Context, filter store.Filter) ([]models.Task, error) {
	rows, err := s.TaskStore.Scan(ctx, filter)
	if filter.Scope == store.ScopeChildren {
		time.Sleep(s.delay)
	}
	return rows, err
}
