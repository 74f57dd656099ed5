package store

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quickplan/app/models"
)

func openTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	st, err := OpenSQLite(context.Background(), SQLiteOptions{Path: filepath.Join(t.TempDir(), "nested", "tasks.db")})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close(context.Background()) })
	return st
}

func id(v int64) *int64 { return &v }

func TestSQLiteStore_InsertAndGet(t *testing.T) {
	ctx := context.Background()
	st := openTestSQLite(t)
	fixed := time.Date(2026, 3, 1, 9, 30, 0, 123, time.UTC)
	st.now = func() time.Time { return fixed }

	newID, err := st.Insert(ctx, models.Fields{Title: "Design", Hours: 8, Notes: "n", Resource: "Alice"})
	require.NoError(t, err)

	task, err := st.Get(ctx, newID)
	require.NoError(t, err)
	assert.Equal(t, "Design", task.Title)
	assert.Equal(t, 8.0, task.Hours)
	assert.Equal(t, "n", task.Notes)
	assert.Equal(t, "Alice", task.Resource)
	assert.Nil(t, task.ParentID)
	assert.Equal(t, 0, task.SortOrder)
	assert.True(t, fixed.Equal(task.CreatedAt))
	assert.True(t, fixed.Equal(task.UpdatedAt))

	_, err = st.Get(ctx, 999)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestSQLiteStore_InsertRanksPerSiblingGroup(t *testing.T) {
	ctx := context.Background()
	st := openTestSQLite(t)

	p1, err := st.Insert(ctx, models.Fields{Title: "p1"})
	require.NoError(t, err)
	p2, err := st.Insert(ctx, models.Fields{Title: "p2"})
	require.NoError(t, err)
	c1, err := st.Insert(ctx, models.Fields{Title: "c1", ParentID: id(p1)})
	require.NoError(t, err)
	c2, err := st.Insert(ctx, models.Fields{Title: "c2", ParentID: id(p1)})
	require.NoError(t, err)
	d1, err := st.Insert(ctx, models.Fields{Title: "d1", ParentID: id(p2)})
	require.NoError(t, err)

	want := map[int64]int{p1: 0, p2: 1, c1: 0, c2: 1, d1: 0}
	for taskID, rank := range want {
		task, err := st.Get(ctx, taskID)
		require.NoError(t, err)
		assert.Equal(t, rank, task.SortOrder, "task %d", taskID)
	}
}

func TestSQLiteStore_ScanFilters(t *testing.T) {
	ctx := context.Background()
	st := openTestSQLite(t)

	p, _ := st.Insert(ctx, models.Fields{Title: "p"})
	q, _ := st.Insert(ctx, models.Fields{Title: "q"})
	c, _ := st.Insert(ctx, models.Fields{Title: "c", ParentID: id(p)})

	ids := func(tasks []models.Task) []int64 {
		out := []int64{}
		for _, t := range tasks {
			out = append(out, t.ID)
		}
		return out
	}

	all, err := st.Scan(ctx, All())
	require.NoError(t, err)
	// p and c share rank 0; c is newer so it comes first
	assert.Equal(t, []int64{c, p, q}, ids(all))

	top, err := st.Scan(ctx, TopLevel())
	require.NoError(t, err)
	assert.Equal(t, []int64{p, q}, ids(top))

	children, err := st.Scan(ctx, ChildrenOf(p))
	require.NoError(t, err)
	assert.Equal(t, []int64{c}, ids(children))

	none, err := st.Scan(ctx, ChildrenOf(q))
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestSQLiteStore_UpdateSetRankDelete(t *testing.T) {
	ctx := context.Background()
	st := openTestSQLite(t)
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	st.now = func() time.Time { return created }

	taskID, err := st.Insert(ctx, models.Fields{Title: "a", Resource: "r"})
	require.NoError(t, err)

	st.now = func() time.Time { return created.Add(time.Hour) }
	n, err := st.Update(ctx, taskID, models.Fields{Title: "b", Hours: 2, Notes: "x", Resource: "s"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	st.now = func() time.Time { return created.Add(2 * time.Hour) }
	n, err = st.SetRank(ctx, taskID, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	task, err := st.Get(ctx, taskID)
	require.NoError(t, err)
	assert.Equal(t, "b", task.Title)
	assert.Equal(t, 7, task.SortOrder)
	assert.True(t, created.Equal(task.CreatedAt))
	assert.True(t, created.Add(time.Hour).Equal(task.UpdatedAt), "rank writes leave updated_at alone")

	n, err = st.Update(ctx, 404, models.Fields{Title: "x"})
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = st.DeleteOne(ctx, taskID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, err = st.DeleteOne(ctx, taskID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSQLiteStore_DeleteAllKeepsIDSequence(t *testing.T) {
	ctx := context.Background()
	st := openTestSQLite(t)

	first, _ := st.Insert(ctx, models.Fields{Title: "a"})
	_, _ = st.Insert(ctx, models.Fields{Title: "b"})

	n, err := st.DeleteAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	next, err := st.Insert(ctx, models.Fields{Title: "c"})
	require.NoError(t, err)
	assert.Greater(t, next, first+1)

	task, err := st.Get(ctx, next)
	require.NoError(t, err)
	assert.Equal(t, 0, task.SortOrder, "empty group starts at 0 again")
}

func TestSQLiteStore_ConcurrentInserts(t *testing.T) {
	ctx := context.Background()
	st := openTestSQLite(t)

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := st.Insert(ctx, models.Fields{Title: "t", Hours: float64(i)})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	rows, err := st.Scan(ctx, TopLevel())
	require.NoError(t, err)
	require.Len(t, rows, 20)
	for i, r := range rows {
		assert.Equal(t, i, r.SortOrder, "ranks are unique and dense")
	}
}

func TestSQLiteStore_ClosedReturnsStoreError(t *testing.T) {
	ctx := context.Background()
	st := openTestSQLite(t)
	require.NoError(t, st.Close(ctx))

	_, err := st.Insert(ctx, models.Fields{Title: "late"})
	assert.ErrorIs(t, err, models.ErrStore)
	assert.ErrorIs(t, st.Ping(ctx), models.ErrStore)
}

func TestOpenSQLite_EmptyPath(t *testing.T) {
	_, err := OpenSQLite(context.Background(), SQLiteOptions{})
	assert.Error(t, err)
}
