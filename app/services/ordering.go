package services

import (
	"context"
	"fmt"

	"quickplan/app/models"
	"quickplan/app/store"
)

// OrderingEngine rewrites sort_order for a sibling group. New rows are ranked
// by the store itself when they are inserted.
type OrderingEngine struct {
	store store.TaskStore
}

func NewOrderingEngine(st store.TaskStore) *OrderingEngine {
	return &OrderingEngine{store: st}
}

// ReorderAll assigns each listed id its index as rank. Ids that are not
// listed keep their current rank.
func (o *OrderingEngine) ReorderAll(ctx context.Context, ids []int64) (models.BatchResult, error) {
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return models.BatchResult{}, models.NewValidationError("order", fmt.Sprintf("id %d listed more than once", id))
		}
		seen[id] = struct{}{}
	}
	return store.WriteRanks(ctx, o.store, ids)
}

// ReorderOne moves a top-level task so that it sits immediately before
// target, then re-ranks the whole top-level group.
func (o *OrderingEngine) ReorderOne(ctx context.Context, movedID, targetID int64) (models.BatchResult, error) {
	group, err := o.store.Scan(ctx, store.TopLevel())
	if err != nil {
		return models.BatchResult{}, err
	}
	ids := make([]int64, len(group))
	for i, t := range group {
		ids[i] = t.ID
	}

	order, err := moveBefore(ids, movedID, targetID)
	if err != nil {
		return models.BatchResult{}, err
	}
	return store.WriteRanks(ctx, o.store, order)
}

// moveBefore returns a copy of ids with moved removed and reinserted right in
// front of target.
func moveBefore(ids []int64, moved, target int64) ([]int64, error) {
	from := indexOf(ids, moved)
	if from < 0 || indexOf(ids, target) < 0 {
		return nil, models.ErrNotFound
	}

	if moved == target {
		return append([]int64(nil), ids...), nil
	}

	rest := make([]int64, 0, len(ids))
	rest = append(rest, ids[:from]...)
	rest = append(rest, ids[from+1:]...)
	to := indexOf(rest, target)
	out := make([]int64, 0, len(ids))
	out = append(out, rest[:to]...)
	out = append(out, moved)
	out = append(out, rest[to:]...)
	return out, nil
}

func indexOf(ids []int64, id int64) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}
