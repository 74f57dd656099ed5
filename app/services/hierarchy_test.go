package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quickplan/app/models"
)

func ptr(id int64) *int64 { return &id }

func TestAssembleHierarchy(t *testing.T) {
	rows := []models.Task{
		{ID: 3, Title: "sub of 1 (rank 0)", ParentID: ptr(1)},
		{ID: 1, Title: "parent A"},
		{ID: 2, Title: "parent B"},
		{ID: 9, Title: "orphan", ParentID: ptr(42)},
		{ID: 5, Title: "sub of 2", ParentID: ptr(2)},
		{ID: 4, Title: "sub of 1 (rank 1)", ParentID: ptr(1)},
	}

	tree := AssembleHierarchy(rows)

	require.Len(t, tree, 2)
	assert.Equal(t, int64(1), tree[0].ID)
	assert.Equal(t, int64(2), tree[1].ID)

	t.Run("subtasks keep scan order", func(t *testing.T) {
		require.Len(t, tree[0].Subtasks, 2)
		assert.Equal(t, int64(3), tree[0].Subtasks[0].ID)
		assert.Equal(t, int64(4), tree[0].Subtasks[1].ID)
		require.Len(t, tree[1].Subtasks, 1)
		assert.Equal(t, int64(5), tree[1].Subtasks[0].ID)
	})

	t.Run("orphans are omitted", func(t *testing.T) {
		for _, r := range Flatten(tree) {
			assert.NotEqual(t, int64(9), r.ID)
		}
	})
}

func TestAssembleHierarchy_Empty(t *testing.T) {
	tree := AssembleHierarchy(nil)
	assert.NotNil(t, tree)
	assert.Empty(t, tree)
}

func TestAssembleHierarchy_ParentWithoutSubtasksHasEmptyList(t *testing.T) {
	tree := AssembleHierarchy([]models.Task{{ID: 1}})
	require.Len(t, tree, 1)
	assert.NotNil(t, tree[0].Subtasks)
	assert.Empty(t, tree[0].Subtasks)
}

func TestFlatten(t *testing.T) {
	tree := []models.TaskNode{
		{Task: models.Task{ID: 1}, Subtasks: []models.Task{{ID: 3}, {ID: 4}}},
		{Task: models.Task{ID: 2}},
	}
	var ids []int64
	for _, r := range Flatten(tree) {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []int64{1, 3, 4, 2}, ids)
}
