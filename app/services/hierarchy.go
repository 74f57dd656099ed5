package services

import "quickplan/app/models"

// AssembleHierarchy turns a flat scan into top-level tasks with nested
// subtasks. Scan order is preserved inside every group. Subtasks whose
// parent is not in rows are left out of the tree.
func AssembleHierarchy(rows []models.Task) []models.TaskNode {
	// first pass: one slot per top-level row, indexed by id
	slots := make(map[int64]int, len(rows))
	tree := make([]models.TaskNode, 0, len(rows))
	for _, row := range rows {
		if row.ParentID == nil {
			slots[row.ID] = len(tree)
			tree = append(tree, models.TaskNode{Task: row, Subtasks: []models.Task{}})
		}
	}

	// second pass: link subtasks into their parent's slot
	for _, row := range rows {
		if row.ParentID == nil {
			continue
		}
		if i, ok := slots[*row.ParentID]; ok {
			tree[i].Subtasks = append(tree[i].Subtasks, row)
		}
	}
	return tree
}

// Flatten lists each top-level task followed by its subtasks.
func Flatten(tree []models.TaskNode) []models.Task {
	var n int
	for _, node := range tree {
		n += 1 + len(node.Subtasks)
	}
	rows := make([]models.Task, 0, n)
	for _, node := range tree {
		rows = append(rows, node.Task)
		rows = append(rows, node.Subtasks...)
	}
	return rows
}
