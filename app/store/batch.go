package store

import (
	"context"

	"golang.org/x/sync/errgroup"

	"quickplan/app/models"
)

// WriteRanks issues one SetRank per entry of order, assigning the entry's
// index as its rank. All writes run concurrently and every one is awaited;
// a failed write does not cancel or roll back the others. The returned
// error is a *models.ReorderError when any write failed.
func WriteRanks(ctx context.Context, st TaskStore, order []int64) (models.BatchResult, error) {
	result := models.BatchResult{Writes: make([]models.RankWrite, len(order))}

	var g errgroup.Group
	for i, id := range order {
		result.Writes[i] = models.RankWrite{ID: id, Rank: i}
		g.Go(func() error {
			affected, err := st.SetRank(ctx, id, i)
			result.Writes[i].Affected = affected
			result.Writes[i].Err = err
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return result, &models.ReorderError{Result: result}
	}
	return result, nil
}
