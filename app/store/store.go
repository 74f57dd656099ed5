// Package store persists task rows. Every write is a single atomic
// statement; composite operations are built on top by the caller.
package store

import (
	"context"

	"quickplan/app/models"
)

// Scope selects which rows a scan returns.
type Scope int

const (
	ScopeAll Scope = iota
	ScopeTopLevel
	ScopeChildren
)

// Filter narrows a scan. ParentID is used only with ScopeChildren.
type Filter struct {
	Scope    Scope
	ParentID int64
}

// All matches every row, parents and subtasks alike.
func All() Filter { return Filter{Scope: ScopeAll} }

// TopLevel matches rows without a parent.
func TopLevel() Filter { return Filter{Scope: ScopeTopLevel} }

// ChildrenOf matches the subtasks of one parent.
func ChildrenOf(parentID int64) Filter {
	return Filter{Scope: ScopeChildren, ParentID: parentID}
}

// TaskStore is the record store behind the task service.
//
// Scan returns rows ordered by sort_order ascending, then created_at
// descending, then id descending. Insert places the new row at the end of its
// sibling group in the same statement that creates it.
type TaskStore interface {
	Insert(ctx context.Context, fields models.Fields) (int64, error)
	Update(ctx context.Context, id int64, fields models.Fields) (int64, error)
	SetRank(ctx context.Context, id int64, rank int) (int64, error)
	DeleteOne(ctx context.Context, id int64) (int64, error)
	DeleteAll(ctx context.Context) (int64, error)
	Get(ctx context.Context, id int64) (*models.Task, error)
	Scan(ctx context.Context, filter Filter) ([]models.Task, error)
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &models.StoreError{Op: op, Err: err}
}
